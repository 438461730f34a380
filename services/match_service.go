package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Dosada05/tourney-engine/brackets"
	"github.com/Dosada05/tourney-engine/metrics"
	"github.com/Dosada05/tourney-engine/models"
	"github.com/Dosada05/tourney-engine/repositories"
)

// standingsRecorder is the narrow seam match results are pushed through once
// a match completes. Implemented by the standings service; kept here so this
// package doesn't import it back.
type standingsRecorder interface {
	RecordMatchResult(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error
}

type CheckInInput struct {
	MatchID        int
	RegistrationID int
}

type RaiseDisputeInput struct {
	MatchID  int
	RaisedBy int
	Reason   string
}

type ResolveDisputeInput struct {
	MatchID           int
	ResolvedBy        int
	WinnerID          int
	Participant1Score int
	Participant2Score int
}

type ScheduleMatchInput struct {
	MatchID     int
	ScheduledAt time.Time
	ServerID    *string
	LobbyCode   *string
	StreamURL   *string
}

type PostponeMatchInput struct {
	MatchID     int
	ActorID     int
	ScheduledAt *time.Time
	Reason      string
}

type MatchService interface {
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ListMatches(ctx context.Context, filter models.MatchFilter) (*models.Page[models.Match], error)
	ListUpcoming(ctx context.Context, tournamentID, registrationID int) ([]models.Match, error)
	ListDisputed(ctx context.Context, tournamentID int) ([]models.Match, error)
	ScheduleMatch(ctx context.Context, input ScheduleMatchInput) (*models.Match, error)
	AutoScheduleBracket(ctx context.Context, bracketID int, startAt time.Time, interval time.Duration) error
	CheckIn(ctx context.Context, input CheckInInput) (*models.Match, error)
	AssignServer(ctx context.Context, matchID int, serverID, lobbyCode *string) (*models.Match, error)
	UpdateStatus(ctx context.Context, matchID int, status models.MatchStatus) (*models.Match, error)
	SubmitResult(ctx context.Context, input models.SubmitResultInput) (*models.Match, error)
	ConfirmResult(ctx context.Context, matchID, registrationID int) (*models.Match, error)
	RaiseDispute(ctx context.Context, input RaiseDisputeInput) (*models.Match, error)
	ResolveDispute(ctx context.Context, input ResolveDisputeInput) (*models.Match, error)
	AdminOverride(ctx context.Context, input models.AdminOverrideInput) (*models.Match, error)
	PostponeMatch(ctx context.Context, input PostponeMatchInput) (*models.Match, error)
	MarkForfeit(ctx context.Context, matchID, winnerID int, reason string) (*models.Match, error)
	DetectManipulation(ctx context.Context, matchID int) (*models.Match, error)
}

type matchService struct {
	db             *sql.DB
	matchRepo      repositories.MatchRepository
	bracketRepo    repositories.BracketRepository
	tournamentRepo repositories.TournamentRepository
	standings      standingsRecorder
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewMatchService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	bracketRepo repositories.BracketRepository,
	tournamentRepo repositories.TournamentRepository,
	standings standingsRecorder,
	hub *brackets.Hub,
	logger *slog.Logger,
) MatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &matchService{
		db:             db,
		matchRepo:      matchRepo,
		bracketRepo:    bracketRepo,
		tournamentRepo: tournamentRepo,
		standings:      standings,
		hub:            hub,
		logger:         logger,
	}
}

func roomIDForMatchTournament(tournamentID int) string {
	return "tournament_" + strconv.Itoa(tournamentID)
}

func (s *matchService) broadcast(tournamentID int, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	roomID := roomIDForMatchTournament(tournamentID)
	s.hub.BroadcastToRoom(roomID, brackets.WebSocketMessage{Type: eventType, Payload: payload, RoomID: roomID})
}

// withTransaction runs fn inside a *sql.Tx, committing on success and
// rolling back on error or panic.
func (s *matchService) withTransaction(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("match transaction rollback failed", "error", rbErr, "original_error", err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func mapMatchRepoErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return ErrMatchNotFound
	}
	if errors.Is(err, repositories.ErrMatchVersionStale) {
		return ErrMatchVersionStale
	}
	return err
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapMatchRepoErr(err)
	}
	return m, nil
}

func (s *matchService) ListMatches(ctx context.Context, filter models.MatchFilter) (*models.Page[models.Match], error) {
	items, total, err := s.matchRepo.List(ctx, nil, filter)
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Match]{Items: items, TotalCount: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *matchService) ListUpcoming(ctx context.Context, tournamentID, registrationID int) ([]models.Match, error) {
	return s.matchRepo.ListNonCompletedByRegistration(ctx, nil, tournamentID, registrationID)
}

func (s *matchService) ListDisputed(ctx context.Context, tournamentID int) ([]models.Match, error) {
	return s.matchRepo.ListDisputed(ctx, nil, tournamentID)
}

func (s *matchService) ScheduleMatch(ctx context.Context, input ScheduleMatchInput) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, input.MatchID)
	if err != nil {
		return nil, mapMatchRepoErr(err)
	}
	if m.Status != models.MatchScheduled && !models.IsValidMatchStatusTransition(m.Status, models.MatchScheduled) {
		return nil, ErrMatchInvalidStatusTransition
	}
	m.Status = models.MatchScheduled
	scheduledAt := input.ScheduledAt
	m.ScheduledAt = &scheduledAt
	if input.ServerID != nil {
		m.ServerID = input.ServerID
	}
	if input.LobbyCode != nil {
		m.LobbyCode = input.LobbyCode
	}
	if input.StreamURL != nil {
		m.StreamURL = input.StreamURL
	}
	if err := s.matchRepo.Update(ctx, nil, m); err != nil {
		return nil, mapMatchRepoErr(err)
	}
	s.broadcast(m.TournamentID, "MATCH_UPDATED", m)
	return m, nil
}

// AutoScheduleBracket assigns sequential scheduled_at times, interval apart
// starting at startAt, to every not-yet-started match of a bracket whose two
// slots are both filled, in (round, match_number) order. Matches still
// missing a participant are skipped. Run right after bracket generation so
// the first round has a start time without the organizer having to schedule
// every match by hand.
func (s *matchService) AutoScheduleBracket(ctx context.Context, bracketID int, startAt time.Time, interval time.Duration) error {
	pending, err := s.matchRepo.ListByBracket(ctx, nil, bracketID)
	if err != nil {
		return err
	}
	t := startAt
	for i := range pending {
		m := &pending[i]
		if m.Status != models.MatchPending && m.Status != models.MatchScheduled {
			continue
		}
		if m.Participant1.IsEmpty() || m.Participant2.IsEmpty() {
			continue
		}
		m.Status = models.MatchScheduled
		scheduled := t
		m.ScheduledAt = &scheduled
		if err := s.matchRepo.Update(ctx, nil, m); err != nil {
			return mapMatchRepoErr(err)
		}
		s.broadcast(m.TournamentID, "MATCH_UPDATED", m)
		t = t.Add(interval)
	}
	return nil
}

func (s *matchService) CheckIn(ctx context.Context, input CheckInInput) (*models.Match, error) {
	var result *models.Match
	err := s.withTransaction(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetForUpdate(ctx, exec, input.MatchID)
		if err != nil {
			return mapMatchRepoErr(err)
		}
		slot, ok := m.SlotFor(input.RegistrationID)
		if !ok {
			return ErrMatchNotParticipant
		}
		now := time.Now()
		if slot == &m.Participant1 {
			m.Participant1CheckedIn = true
			m.Participant1CheckedInAt = &now
		} else {
			m.Participant2CheckedIn = true
			m.Participant2CheckedInAt = &now
		}
		if m.Status == models.MatchScheduled {
			m.Status = models.MatchCheckIn
		}
		if m.Participant1CheckedIn && m.Participant2CheckedIn && models.IsValidMatchStatusTransition(m.Status, models.MatchInProgress) {
			m.Status = models.MatchInProgress
			started := time.Now()
			m.StartedAt = &started
		}
		if err := s.matchRepo.Update(ctx, exec, m); err != nil {
			return mapMatchRepoErr(err)
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(result.TournamentID, "MATCH_UPDATED", result)
	return result, nil
}

func (s *matchService) AssignServer(ctx context.Context, matchID int, serverID, lobbyCode *string) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchRepoErr(err)
	}
	m.ServerID = serverID
	m.LobbyCode = lobbyCode
	if err := s.matchRepo.Update(ctx, nil, m); err != nil {
		return nil, mapMatchRepoErr(err)
	}
	s.broadcast(m.TournamentID, "MATCH_UPDATED", m)
	return m, nil
}

func (s *matchService) UpdateStatus(ctx context.Context, matchID int, status models.MatchStatus) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchRepoErr(err)
	}
	if !models.IsValidMatchStatusTransition(m.Status, status) {
		return nil, ErrMatchInvalidStatusTransition
	}
	m.Status = status
	if status == models.MatchInProgress && m.StartedAt == nil {
		now := time.Now()
		m.StartedAt = &now
	}
	if err := s.matchRepo.Update(ctx, nil, m); err != nil {
		return nil, mapMatchRepoErr(err)
	}
	s.broadcast(m.TournamentID, "MATCH_UPDATED", m)
	return m, nil
}

// SubmitResult records a participant-submitted score and marks the
// submitter's side as confirmed. The match moves to AWAITING_CONFIRMATION
// until the opponent (or an admin) confirms it, unless the opponent's side
// is already confirmed, in which case it completes immediately with the
// scores of this submission. Scores submitted earlier are overwritten, not
// compared.
func (s *matchService) SubmitResult(ctx context.Context, input models.SubmitResultInput) (*models.Match, error) {
	var completedMatch, nextMatch *models.Match
	var isFinal bool
	err := s.withTransaction(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetForUpdate(ctx, exec, input.MatchID)
		if err != nil {
			return mapMatchRepoErr(err)
		}
		switch m.Status {
		case models.MatchCompleted, models.MatchForfeit, models.MatchCancelled:
			return ErrMatchAlreadyConfirmed
		case models.MatchScheduled, models.MatchCheckIn, models.MatchInProgress, models.MatchAwaitingConfirmation:
			// a result may be submitted (or re-submitted, pending the
			// opponent's confirmation) from any of these states.
		default:
			return ErrMatchInvalidStatusTransition
		}
		if m.Participant1.IsEmpty() || m.Participant2.IsEmpty() {
			return ErrMatchMissingParticipant
		}
		submitterSlot, ok := m.SlotFor(input.SubmittedBy)
		if !ok {
			return ErrMatchNotParticipant
		}
		winnerSlot, ok := m.SlotFor(input.WinnerID)
		if !ok {
			return ErrMatchScoreInvalid
		}

		if submitterSlot == &m.Participant1 {
			m.Participant1Confirmed = true
		} else {
			m.Participant2Confirmed = true
		}
		m.Participant1Score = &input.Participant1Score
		m.Participant2Score = &input.Participant2Score
		m.GamesPlayed = input.GamesPlayed
		m.WinnerID = winnerSlot.RegistrationID
		if winnerSlot == &m.Participant1 {
			m.LoserID = m.Participant2.RegistrationID
		} else {
			m.LoserID = m.Participant1.RegistrationID
		}

		if m.Participant1Confirmed && m.Participant2Confirmed {
			if err := s.completeMatch(ctx, exec, m); err != nil {
				return err
			}
			completedMatch = m
			if m.NextMatchID != nil {
				next, err := s.advanceWinner(ctx, exec, m)
				if err != nil {
					return err
				}
				nextMatch = next
			}
			isFinal = m.NextMatchID == nil
			return nil
		}

		if models.IsValidMatchStatusTransition(m.Status, models.MatchAwaitingConfirmation) {
			m.Status = models.MatchAwaitingConfirmation
		}
		return s.matchRepo.UpdateWithVersion(ctx, exec, m, m.Version)
	})
	if err != nil {
		return nil, mapMatchRepoErr(err)
	}

	result := completedMatch
	if result == nil {
		refetched, ferr := s.matchRepo.GetByID(ctx, nil, input.MatchID)
		if ferr != nil {
			return nil, mapMatchRepoErr(ferr)
		}
		result = refetched
	}
	s.broadcast(result.TournamentID, "MATCH_UPDATED", result)
	if nextMatch != nil {
		s.broadcastAdvance(result, nextMatch)
	}
	if isFinal {
		s.broadcastFinal(result)
	}
	return result, nil
}

// ConfirmResult lets the opposing participant confirm a result already
// submitted by the other side, completing the match.
func (s *matchService) ConfirmResult(ctx context.Context, matchID, registrationID int) (*models.Match, error) {
	var completedMatch, nextMatch *models.Match
	var isFinal bool
	err := s.withTransaction(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetForUpdate(ctx, exec, matchID)
		if err != nil {
			return mapMatchRepoErr(err)
		}
		if m.Status != models.MatchAwaitingConfirmation {
			return ErrMatchInvalidStatusTransition
		}
		slot, ok := m.SlotFor(registrationID)
		if !ok {
			return ErrMatchNotParticipant
		}
		if slot == &m.Participant1 {
			if m.Participant1Confirmed {
				return ErrMatchAlreadyConfirmed
			}
			m.Participant1Confirmed = true
		} else {
			if m.Participant2Confirmed {
				return ErrMatchAlreadyConfirmed
			}
			m.Participant2Confirmed = true
		}
		if err := s.completeMatch(ctx, exec, m); err != nil {
			return err
		}
		completedMatch = m
		if m.NextMatchID != nil {
			next, err := s.advanceWinner(ctx, exec, m)
			if err != nil {
				return err
			}
			nextMatch = next
		}
		isFinal = m.NextMatchID == nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(completedMatch.TournamentID, "MATCH_UPDATED", completedMatch)
	if nextMatch != nil {
		s.broadcastAdvance(completedMatch, nextMatch)
	}
	if isFinal {
		s.broadcastFinal(completedMatch)
	}
	return completedMatch, nil
}

// completeMatch finalizes status/timestamps and hands the result to the
// standings recorder, all inside the caller's transaction.
func (s *matchService) completeMatch(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	if !models.IsValidMatchStatusTransition(m.Status, models.MatchCompleted) {
		return ErrMatchInvalidStatusTransition
	}
	m.Status = models.MatchCompleted
	now := time.Now()
	m.CompletedAt = &now
	if err := s.matchRepo.UpdateWithVersion(ctx, exec, m, m.Version); err != nil {
		return mapMatchRepoErr(err)
	}
	if err := s.bumpBracketProgress(ctx, exec, m.BracketID); err != nil {
		return err
	}
	if s.standings != nil {
		if err := s.standings.RecordMatchResult(ctx, exec, m); err != nil {
			return fmt.Errorf("record standings: %w", err)
		}
	}
	metrics.RecordMatchCompleted()
	return nil
}

func (s *matchService) bumpBracketProgress(ctx context.Context, exec repositories.SQLExecutor, bracketID int) error {
	if s.bracketRepo == nil {
		return nil
	}
	b, err := s.bracketRepo.GetForUpdate(ctx, exec, bracketID)
	if err != nil {
		return err
	}
	b.CompletedMatches++
	b.RecomputeStatus()
	return s.bracketRepo.Update(ctx, exec, b)
}

// advanceWinner places the completed match's winner into the next match's
// first open slot and, if the match type feeds a losers bracket, places the
// loser the same way.
func (s *matchService) advanceWinner(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) (*models.Match, error) {
	next, err := s.matchRepo.GetForUpdate(ctx, exec, *m.NextMatchID)
	if err != nil {
		return nil, mapMatchRepoErr(err)
	}
	if err := s.placeAdvancer(ctx, exec, next, m, m.WinnerID); err != nil {
		return nil, err
	}

	if m.LoserNextMatchID != nil && m.LoserID != nil {
		loserNext, err := s.matchRepo.GetForUpdate(ctx, exec, *m.LoserNextMatchID)
		if err != nil {
			return nil, mapMatchRepoErr(err)
		}
		if err := s.placeAdvancer(ctx, exec, loserNext, m, m.LoserID); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func (s *matchService) placeAdvancer(ctx context.Context, exec repositories.SQLExecutor, target, source *models.Match, advancerID *int) error {
	slot := slotSnapshot(source, advancerID)
	placeSlot(target, slot)
	if models.IsValidMatchStatusTransition(target.Status, models.MatchScheduled) && !target.Participant1.IsEmpty() && !target.Participant2.IsEmpty() {
		target.Status = models.MatchScheduled
	}
	if err := s.matchRepo.UpdateWithVersion(ctx, exec, target, target.Version); err != nil {
		return mapMatchRepoErr(err)
	}
	return nil
}

// slotSnapshot copies the name/seed of registrationID out of source's slots,
// so the denormalized fields in the destination match stay populated.
func slotSnapshot(source *models.Match, registrationID *int) models.Slot {
	slot := models.Slot{RegistrationID: registrationID}
	if registrationID == nil {
		return slot
	}
	if source.Participant1.RegistrationID != nil && *source.Participant1.RegistrationID == *registrationID {
		slot.Name = source.Participant1.Name
		slot.Seed = source.Participant1.Seed
	} else if source.Participant2.RegistrationID != nil && *source.Participant2.RegistrationID == *registrationID {
		slot.Name = source.Participant2.Name
		slot.Seed = source.Participant2.Seed
	}
	return slot
}

// placeSlot fills the first empty side of m with slot, Participant1 before
// Participant2. When both sides are open (a match fed by two played
// matches), the side an advancer lands on follows the order in which its
// source matches complete.
func placeSlot(m *models.Match, slot models.Slot) {
	if m.Participant1.IsEmpty() {
		m.Participant1 = slot
		return
	}
	m.Participant2 = slot
}

func (s *matchService) broadcastAdvance(source, next *models.Match) {
	s.broadcast(source.TournamentID, "PARTICIPANT_ADVANCED", map[string]interface{}{
		"tournament_id":   source.TournamentID,
		"source_match_id": source.ID,
		"next_match_id":   next.ID,
		"advancing_id":    derefInt(source.WinnerID),
	})
	if !next.Participant1.IsEmpty() && !next.Participant2.IsEmpty() && next.Status == models.MatchScheduled {
		s.broadcast(source.TournamentID, "MATCH_UPDATED", next)
	}
}

func (s *matchService) broadcastFinal(m *models.Match) {
	s.broadcast(m.TournamentID, "TOURNAMENT_FINAL_MATCH_COMPLETED", map[string]interface{}{
		"match_id":      m.ID,
		"tournament_id": m.TournamentID,
		"winner_id":     derefInt(m.WinnerID),
	})
}

func (s *matchService) RaiseDispute(ctx context.Context, input RaiseDisputeInput) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, input.MatchID)
	if err != nil {
		return nil, mapMatchRepoErr(err)
	}
	if m.Status == models.MatchDisputed {
		return nil, ErrMatchDisputeAlreadyOpen
	}
	if !models.IsValidMatchStatusTransition(m.Status, models.MatchDisputed) {
		return nil, ErrMatchInvalidStatusTransition
	}
	if _, ok := m.SlotFor(input.RaisedBy); !ok {
		return nil, ErrMatchNotParticipant
	}
	m.Status = models.MatchDisputed
	m.DisputeRaisedBy = &input.RaisedBy
	m.DisputeReason = &input.Reason
	now := time.Now()
	m.DisputeRaisedAt = &now
	if err := s.matchRepo.Update(ctx, nil, m); err != nil {
		return nil, mapMatchRepoErr(err)
	}
	s.broadcast(m.TournamentID, "MATCH_UPDATED", m)
	return m, nil
}

func (s *matchService) ResolveDispute(ctx context.Context, input ResolveDisputeInput) (*models.Match, error) {
	var resolved, nextMatch *models.Match
	var isFinal bool
	err := s.withTransaction(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetForUpdate(ctx, exec, input.MatchID)
		if err != nil {
			return mapMatchRepoErr(err)
		}
		if m.Status != models.MatchDisputed {
			return ErrMatchNoDisputeOpen
		}
		winnerSlot, ok := m.SlotFor(input.WinnerID)
		if !ok {
			return ErrMatchScoreInvalid
		}
		m.Participant1Score = &input.Participant1Score
		m.Participant2Score = &input.Participant2Score
		m.WinnerID = winnerSlot.RegistrationID
		if winnerSlot == &m.Participant1 {
			m.LoserID = m.Participant2.RegistrationID
		} else {
			m.LoserID = m.Participant1.RegistrationID
		}
		m.Participant1Confirmed = true
		m.Participant2Confirmed = true
		m.AdminOverride = true
		m.AdminOverrideBy = &input.ResolvedBy
		resolvedNote := "dispute resolved by organizer"
		m.AdminOverrideReason = &resolvedNote
		now := time.Now()
		m.AdminOverrideAt = &now
		if err := s.completeMatch(ctx, exec, m); err != nil {
			return err
		}
		resolved = m
		if m.NextMatchID != nil {
			next, err := s.advanceWinner(ctx, exec, m)
			if err != nil {
				return err
			}
			nextMatch = next
		}
		isFinal = m.NextMatchID == nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(resolved.TournamentID, "MATCH_UPDATED", resolved)
	if nextMatch != nil {
		s.broadcastAdvance(resolved, nextMatch)
	}
	if isFinal {
		s.broadcastFinal(resolved)
	}
	return resolved, nil
}

// AdminOverride lets an administrator set a match's result directly,
// bypassing participant confirmation. Used for no-shows, cheating rulings,
// and other cases where neither submission can be trusted.
func (s *matchService) AdminOverride(ctx context.Context, input models.AdminOverrideInput) (*models.Match, error) {
	var overridden, nextMatch *models.Match
	var isFinal bool
	err := s.withTransaction(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetForUpdate(ctx, exec, input.MatchID)
		if err != nil {
			return mapMatchRepoErr(err)
		}
		if m.Status == models.MatchCompleted || m.Status == models.MatchForfeit || m.Status == models.MatchCancelled {
			return ErrMatchAlreadyConfirmed
		}
		winnerSlot, ok := m.SlotFor(input.WinnerID)
		if !ok {
			return ErrMatchScoreInvalid
		}
		m.Participant1Score = &input.Participant1Score
		m.Participant2Score = &input.Participant2Score
		m.WinnerID = winnerSlot.RegistrationID
		if winnerSlot == &m.Participant1 {
			m.LoserID = m.Participant2.RegistrationID
		} else {
			m.LoserID = m.Participant1.RegistrationID
		}
		m.Participant1Confirmed = true
		m.Participant2Confirmed = true
		m.AdminOverride = true
		m.AdminOverrideBy = &input.AdminID
		m.AdminOverrideReason = &input.Reason
		now := time.Now()
		m.AdminOverrideAt = &now
		if err := s.completeMatch(ctx, exec, m); err != nil {
			return err
		}
		overridden = m
		if m.NextMatchID != nil {
			next, err := s.advanceWinner(ctx, exec, m)
			if err != nil {
				return err
			}
			nextMatch = next
		}
		isFinal = m.NextMatchID == nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(overridden.TournamentID, "MATCH_UPDATED", overridden)
	if nextMatch != nil {
		s.broadcastAdvance(overridden, nextMatch)
	}
	if isFinal {
		s.broadcastFinal(overridden)
	}
	return overridden, nil
}

func (s *matchService) PostponeMatch(ctx context.Context, input PostponeMatchInput) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, input.MatchID)
	if err != nil {
		return nil, mapMatchRepoErr(err)
	}
	if !models.IsValidMatchStatusTransition(m.Status, models.MatchPostponed) {
		return nil, ErrMatchInvalidStatusTransition
	}
	m.Status = models.MatchPostponed
	m.ScheduledAt = input.ScheduledAt
	if err := s.matchRepo.Update(ctx, nil, m); err != nil {
		return nil, mapMatchRepoErr(err)
	}
	s.broadcast(m.TournamentID, "MATCH_UPDATED", m)
	return m, nil
}

// MarkForfeit resolves a match in favor of winnerID without requiring a
// score, used when one side fails to show up or is disqualified mid-match.
func (s *matchService) MarkForfeit(ctx context.Context, matchID, winnerID int, reason string) (*models.Match, error) {
	var result, nextMatch *models.Match
	var isFinal bool
	err := s.withTransaction(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetForUpdate(ctx, exec, matchID)
		if err != nil {
			return mapMatchRepoErr(err)
		}
		if m.Status == models.MatchCompleted || m.Status == models.MatchForfeit || m.Status == models.MatchCancelled {
			return ErrMatchAlreadyConfirmed
		}
		winnerSlot, ok := m.SlotFor(winnerID)
		if !ok {
			return ErrMatchScoreInvalid
		}
		m.WinnerID = winnerSlot.RegistrationID
		if winnerSlot == &m.Participant1 {
			m.LoserID = m.Participant2.RegistrationID
		} else {
			m.LoserID = m.Participant1.RegistrationID
		}
		m.Status = models.MatchForfeit
		m.ForfeitReason = &reason
		now := time.Now()
		m.CompletedAt = &now
		if err := s.matchRepo.UpdateWithVersion(ctx, exec, m, m.Version); err != nil {
			return mapMatchRepoErr(err)
		}
		if err := s.bumpBracketProgress(ctx, exec, m.BracketID); err != nil {
			return err
		}
		if s.standings != nil {
			if err := s.standings.RecordMatchResult(ctx, exec, m); err != nil {
				return fmt.Errorf("record standings: %w", err)
			}
		}
		result = m
		if m.NextMatchID != nil {
			next, err := s.advanceWinner(ctx, exec, m)
			if err != nil {
				return err
			}
			nextMatch = next
		}
		isFinal = m.NextMatchID == nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(result.TournamentID, "MATCH_UPDATED", result)
	if nextMatch != nil {
		s.broadcastAdvance(result, nextMatch)
	}
	if isFinal {
		s.broadcastFinal(result)
	}
	return result, nil
}

// DetectManipulation re-evaluates a match's reported score against a
// lightweight heuristic and persists the Suspicious flag. It is advisory
// only: nothing in the match lifecycle is blocked by the result, an
// organizer decides what to do with a flagged match.
func (s *matchService) DetectManipulation(ctx context.Context, matchID int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchRepoErr(err)
	}
	m.Suspicious = matchLooksManipulated(m)
	if err := s.matchRepo.Update(ctx, nil, m); err != nil {
		return nil, mapMatchRepoErr(err)
	}
	if m.Suspicious {
		s.broadcast(m.TournamentID, "MATCH_FLAGGED_SUSPICIOUS", m)
	}
	return m, nil
}

// matchLooksManipulated flags a match whose recorded score doesn't hold
// together: a match that moved past IN_PROGRESS with no score on the board
// at all, or a game count that doesn't sum up to what was reported played.
func matchLooksManipulated(m *models.Match) bool {
	switch m.Status {
	case models.MatchAwaitingConfirmation, models.MatchCompleted, models.MatchDisputed, models.MatchForfeit:
		if derefInt(m.Participant1Score) == 0 && derefInt(m.Participant2Score) == 0 {
			return true
		}
	}
	if m.GamesPlayed > 0 && derefInt(m.Participant1Score)+derefInt(m.Participant2Score) != m.GamesPlayed {
		return true
	}
	return false
}
