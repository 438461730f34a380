package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/Dosada05/tourney-engine/brackets"
	"github.com/Dosada05/tourney-engine/metrics"
	"github.com/Dosada05/tourney-engine/models"
	"github.com/Dosada05/tourney-engine/repositories"
)

// standingsProvider is the narrow seam bracket_service reaches through to
// pull the current leaderboard when pairing a new Swiss round, credit
// byes, and mark a disqualified participant's standing. Implemented by the
// standings service.
type standingsProvider interface {
	SwissPairingInputs(ctx context.Context, tournamentID int) ([]brackets.SwissStanding, map[int]map[int]bool, map[int]bool, error)
	RecordBye(ctx context.Context, exec repositories.SQLExecutor, tournamentID, registrationID int) error
	DisqualifyStanding(ctx context.Context, tournamentID, registrationID int, eliminatedRound, eliminatedBy *int) error
}

type BracketExport struct {
	Bracket models.Bracket  `json:"bracket"`
	Matches []models.Match  `json:"matches"`
}

type BracketService interface {
	GenerateBracket(ctx context.Context, tournamentID, actorID int) ([]models.Bracket, error)
	GetBracket(ctx context.Context, id int) (*models.Bracket, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Bracket, error)
	GetMatches(ctx context.Context, bracketID int) ([]models.Match, error)
	GetVisualization(ctx context.Context, bracketID int) ([]models.VisualizationNode, error)
	ExportBracket(ctx context.Context, bracketID int) (*BracketExport, error)
	ResetBracket(ctx context.Context, tournamentID, actorID int) ([]models.Bracket, error)
	DisqualifyParticipant(ctx context.Context, tournamentID, registrationID, actorID int, reason string) error
	PairSwissRound(ctx context.Context, tournamentID, actorID int) ([]models.Match, error)
}

type bracketService struct {
	db               *sql.DB
	bracketRepo      repositories.BracketRepository
	matchRepo        repositories.MatchRepository
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matches          MatchService
	standings        standingsProvider
	hub              *brackets.Hub
	logger           *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matches MatchService,
	standings standingsProvider,
	hub *brackets.Hub,
	logger *slog.Logger,
) BracketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &bracketService{
		db:               db,
		bracketRepo:      bracketRepo,
		matchRepo:        matchRepo,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matches:          matches,
		standings:        standings,
		hub:              hub,
		logger:           logger,
	}
}

func roomIDForBracketTournament(tournamentID int) string {
	return "tournament_" + strconv.Itoa(tournamentID)
}

func (s *bracketService) broadcast(tournamentID int, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	roomID := roomIDForBracketTournament(tournamentID)
	s.hub.BroadcastToRoom(roomID, brackets.WebSocketMessage{Type: eventType, Payload: payload, RoomID: roomID})
}

func (s *bracketService) seedList(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]brackets.Seed, error) {
	regs, err := s.registrationRepo.ListConfirmedAndCheckedIn(ctx, exec, tournamentID)
	if err != nil {
		return nil, err
	}
	seeds := make([]brackets.Seed, 0, len(regs))
	for i := range regs {
		r := &regs[i]
		seedRank := i + 1
		if r.Seed != nil {
			seedRank = *r.Seed
		}
		seeds = append(seeds, brackets.Seed{
			RegistrationID: r.ID,
			Name:           displayNameForRegistration(r),
			Seed:           seedRank,
		})
	}
	return seeds, nil
}

func generatorFor(format models.Format) (brackets.Generator, error) {
	switch format {
	case models.FormatSingleElim:
		return brackets.NewSingleEliminationGenerator(), nil
	case models.FormatDoubleElim:
		return brackets.NewDoubleEliminationGenerator(), nil
	case models.FormatRoundRobin:
		return brackets.NewRoundRobinGenerator(), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// GenerateBracket builds and persists the full match graph for a tournament.
// Swiss formats only pair round one here; later rounds come from
// PairSwissRound once results are in.
func (s *bracketService) GenerateBracket(ctx context.Context, tournamentID, actorID int) ([]models.Bracket, error) {
	start := time.Now()
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if t.OrganizerID != actorID {
		return nil, ErrTournamentNotOrganizer
	}
	existing, err := s.bracketRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrBracketAlreadyGenerated
	}

	seeds, err := s.seedList(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(seeds) < 2 {
		return nil, ErrInsufficientParticipants
	}

	var brs []models.Bracket
	if t.Format == models.FormatSwiss {
		brs, err = s.generateSwissFirstRound(ctx, t, seeds)
	} else {
		brs, err = s.generateLinkedBracket(ctx, t, seeds)
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordBracketGenerationDuration(string(t.Format), time.Since(start))
	s.broadcast(tournamentID, "BRACKET_GENERATED", brs)
	return brs, nil
}

func (s *bracketService) generateSwissFirstRound(ctx context.Context, t *models.Tournament, seeds []brackets.Seed) ([]models.Bracket, error) {
	pairer := brackets.NewSwissPairer()
	matches, err := pairer.PairRoundOne(seeds)
	if err != nil {
		return nil, err
	}

	b := &models.Bracket{
		TournamentID:     t.ID,
		Type:             models.BracketSwiss,
		Format:           models.FormatSwiss,
		Status:           models.BracketGenerated,
		TotalRounds:      t.SwissRounds,
		CurrentRound:     1,
		ParticipantCount: len(seeds),
	}
	for _, m := range matches {
		if m.IsBye {
			b.ByeCount++
		} else {
			b.TotalMatches++
		}
	}

	var created *models.Bracket
	err = withDBTransaction(ctx, s.db, func(exec repositories.SQLExecutor) error {
		if err := s.bracketRepo.Create(ctx, exec, b); err != nil {
			return err
		}
		created = b
		for _, gm := range matches {
			if gm.IsBye {
				if s.standings != nil && gm.WinnerID != nil {
					if err := s.standings.RecordBye(ctx, exec, t.ID, *gm.WinnerID); err != nil {
						return err
					}
				}
				continue
			}
			if _, err := s.persistMatch(ctx, exec, t.ID, b.ID, gm); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []models.Bracket{*created}, nil
}

func (s *bracketService) generateLinkedBracket(ctx context.Context, t *models.Tournament, seeds []brackets.Seed) ([]models.Bracket, error) {
	generator, err := generatorFor(t.Format)
	if err != nil {
		return nil, err
	}
	generated, err := generator.Generate(ctx, brackets.GenerateParams{Tournament: t, Seeds: seeds})
	if err != nil {
		return nil, err
	}
	if len(generated) == 0 {
		return nil, ErrInsufficientParticipants
	}

	type addr struct {
		bt  models.BracketType
		rd  int
		num int
	}
	dbIDs := make(map[addr]int)
	type pendingLink struct {
		matchID int
		next    *addr
		loser   *addr
	}
	var links []pendingLink
	var result []models.Bracket

	err = withDBTransaction(ctx, s.db, func(exec repositories.SQLExecutor) error {
		for _, gb := range generated {
			b := &models.Bracket{
				TournamentID:     t.ID,
				Type:             gb.Type,
				Format:           t.Format,
				Status:           models.BracketGenerated,
				TotalRounds:      gb.TotalRounds,
				ParticipantCount: gb.ParticipantCount,
				ByeCount:         gb.ByeCount,
				SeedSnapshot:     gb.SeedSnapshot,
				Visualization:    gb.Visualization,
			}
			for _, gm := range gb.Matches {
				if !gm.IsBye {
					b.TotalMatches++
				}
			}
			if err := s.bracketRepo.Create(ctx, exec, b); err != nil {
				return err
			}
			result = append(result, *b)

			for _, gm := range gb.Matches {
				if gm.IsBye {
					continue
				}
				matchID, err := s.persistMatch(ctx, exec, t.ID, b.ID, gm)
				if err != nil {
					return err
				}
				dbIDs[addr{gb.Type, gm.Round, gm.MatchNumber}] = matchID
				link := pendingLink{matchID: matchID}
				if gm.HasNext {
					link.next = &addr{gm.NextBracketType, gm.NextRound, gm.NextMatchNumber}
				}
				if gm.HasLoserNext {
					link.loser = &addr{gm.LoserNextBracketType, gm.LoserNextRound, gm.LoserNextMatchNumber}
				}
				if link.next != nil || link.loser != nil {
					links = append(links, link)
				}
			}
		}

		for _, link := range links {
			m, err := s.matchRepo.GetByID(ctx, exec, link.matchID)
			if err != nil {
				return err
			}
			if link.next != nil {
				if id, ok := dbIDs[*link.next]; ok {
					m.NextMatchID = &id
				}
			}
			if link.loser != nil {
				if id, ok := dbIDs[*link.loser]; ok {
					m.LoserNextMatchID = &id
				}
			}
			if err := s.matchRepo.Update(ctx, exec, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *bracketService) persistMatch(ctx context.Context, exec repositories.SQLExecutor, tournamentID, bracketID int, gm brackets.GeneratedMatch) (int, error) {
	status := models.MatchPending
	if !gm.Participant1.IsEmpty() && !gm.Participant2.IsEmpty() {
		status = models.MatchScheduled
	}
	m := &models.Match{
		TournamentID: tournamentID,
		BracketID:    bracketID,
		Round:        gm.Round,
		MatchNumber:  gm.MatchNumber,
		Type:         gm.Type,
		Status:       status,
		Participant1: gm.Participant1,
		Participant2: gm.Participant2,
		BestOf:       1,
	}
	if err := s.matchRepo.Create(ctx, exec, m); err != nil {
		return 0, err
	}
	return m.ID, nil
}

func withDBTransaction(ctx context.Context, db *sql.DB, fn func(exec repositories.SQLExecutor) error) error {
	tx, err := db.BeginTx(ctx, nil)
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
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *bracketService) GetBracket(ctx context.Context, id int) (*models.Bracket, error) {
	b, err := s.bracketRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *bracketService) ListByTournament(ctx context.Context, tournamentID int) ([]models.Bracket, error) {
	return s.bracketRepo.ListByTournament(ctx, nil, tournamentID)
}

func (s *bracketService) GetMatches(ctx context.Context, bracketID int) ([]models.Match, error) {
	return s.matchRepo.ListByBracket(ctx, nil, bracketID)
}

func (s *bracketService) GetVisualization(ctx context.Context, bracketID int) ([]models.VisualizationNode, error) {
	b, err := s.GetBracket(ctx, bracketID)
	if err != nil {
		return nil, err
	}
	return b.Visualization, nil
}

func (s *bracketService) ExportBracket(ctx context.Context, bracketID int) (*BracketExport, error) {
	b, err := s.GetBracket(ctx, bracketID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matchRepo.ListByBracket(ctx, nil, bracketID)
	if err != nil {
		return nil, err
	}
	return &BracketExport{Bracket: *b, Matches: matches}, nil
}

// ResetBracket deletes every bracket and match for the tournament and
// regenerates from the current registration seeding. Only legal before any
// match has completed, since rewinding a live bracket would orphan results.
func (s *bracketService) ResetBracket(ctx context.Context, tournamentID, actorID int) ([]models.Bracket, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if t.OrganizerID != actorID {
		return nil, ErrTournamentNotOrganizer
	}
	existing, err := s.bracketRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	for _, b := range existing {
		completed, err := s.matchRepo.CountCompletedByBracket(ctx, nil, b.ID)
		if err != nil {
			return nil, err
		}
		if completed > 0 {
			return nil, ErrBracketResetNotAllowed
		}
	}
	err = withDBTransaction(ctx, s.db, func(exec repositories.SQLExecutor) error {
		for _, b := range existing {
			if err := s.matchRepo.DeleteByBracket(ctx, exec, b.ID); err != nil {
				return err
			}
			if err := s.bracketRepo.Delete(ctx, exec, b.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GenerateBracket(ctx, tournamentID, actorID)
}

// DisqualifyParticipant marks the registration's standing disqualified and
// eliminated, then forfeits every non-completed match it is currently
// scheduled in, advancing each opponent in its place.
func (s *bracketService) DisqualifyParticipant(ctx context.Context, tournamentID, registrationID, actorID int, reason string) error {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return mapTournamentRepoErr(err)
	}
	if t.OrganizerID != actorID {
		return ErrTournamentNotOrganizer
	}
	reg, err := s.registrationRepo.GetByID(ctx, nil, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return err
	}
	if models.IsValidRegistrationStatusTransition(reg.Status, models.RegistrationDisqualified) {
		reg.Status = models.RegistrationDisqualified
		if err := s.registrationRepo.Update(ctx, nil, reg); err != nil {
			return err
		}
	}
	if s.standings != nil {
		if err := s.standings.DisqualifyStanding(ctx, tournamentID, registrationID, nil, nil); err != nil {
			return err
		}
	}

	pending, err := s.matchRepo.ListNonCompletedByRegistration(ctx, nil, tournamentID, registrationID)
	if err != nil {
		return err
	}
	for i := range pending {
		m := &pending[i]
		opponentID, ok := m.OpponentOf(registrationID)
		if !ok {
			continue
		}
		if _, err := s.matches.MarkForfeit(ctx, m.ID, opponentID, reason); err != nil {
			return err
		}
	}
	return nil
}

// PairSwissRound pairs the next Swiss round from current standings, avoiding
// rematches and repeat byes, and persists it as new matches in the
// tournament's single Swiss bracket.
func (s *bracketService) PairSwissRound(ctx context.Context, tournamentID, actorID int) ([]models.Match, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if t.OrganizerID != actorID {
		return nil, ErrTournamentNotOrganizer
	}
	if s.standings == nil {
		return nil, fmt.Errorf("%w: swiss pairing requires the standings service", ErrUnsupportedFormat)
	}
	b, err := s.bracketRepo.GetByTournamentAndType(ctx, nil, tournamentID, models.BracketSwiss)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotGenerated
		}
		return nil, err
	}
	if b.CurrentRound >= b.TotalRounds {
		return nil, fmt.Errorf("%w: swiss event has already played its final round", ErrMatchInvalidStatusTransition)
	}

	standings, priorOpponents, byeHistory, err := s.standings.SwissPairingInputs(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	nextRound := b.CurrentRound + 1
	pairer := brackets.NewSwissPairer()
	generated, err := pairer.PairNextRound(nextRound, standings, priorOpponents, byeHistory)
	if err != nil {
		return nil, err
	}

	var created []models.Match
	err = withDBTransaction(ctx, s.db, func(exec repositories.SQLExecutor) error {
		for _, gm := range generated {
			if gm.IsBye {
				if s.standings != nil && gm.WinnerID != nil {
					if err := s.standings.RecordBye(ctx, exec, tournamentID, *gm.WinnerID); err != nil {
						return err
					}
				}
				continue
			}
			matchID, err := s.persistMatch(ctx, exec, tournamentID, b.ID, gm)
			if err != nil {
				return err
			}
			m, err := s.matchRepo.GetByID(ctx, exec, matchID)
			if err != nil {
				return err
			}
			created = append(created, *m)
		}
		b.CurrentRound = nextRound
		b.TotalMatches += len(created)
		b.RecomputeStatus()
		return s.bracketRepo.Update(ctx, exec, b)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(created, func(i, j int) bool { return created[i].MatchNumber < created[j].MatchNumber })
	s.broadcast(tournamentID, "BRACKET_GENERATED", created)
	return created, nil
}
