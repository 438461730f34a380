package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/Dosada05/tourney-engine/brackets"
	"github.com/Dosada05/tourney-engine/cache"
	"github.com/Dosada05/tourney-engine/models"
	"github.com/Dosada05/tourney-engine/repositories"
)

const leaderboardCacheTTLActive = 60 * time.Second
const leaderboardCacheTTLCompleted = 3600 * time.Second

type StandingsService interface {
	GetStanding(ctx context.Context, tournamentID, registrationID int) (*models.Standing, error)
	ListStandings(ctx context.Context, filter models.StandingFilter) ([]models.Standing, error)
	RecalculateStandings(ctx context.Context, tournamentID int) ([]models.Standing, error)
	DisqualifyStanding(ctx context.Context, tournamentID, registrationID int, eliminatedRound *int, eliminatedBy *int) error
}

type standingsService struct {
	db               *sql.DB
	standingRepo     repositories.StandingRepository
	matchRepo        repositories.MatchRepository
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	cacheStore       cache.Store
	hub              *brackets.Hub
	logger           *slog.Logger
}

func NewStandingsService(
	db *sql.DB,
	standingRepo repositories.StandingRepository,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	cacheStore cache.Store,
	hub *brackets.Hub,
	logger *slog.Logger,
) StandingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &standingsService{
		db:               db,
		standingRepo:     standingRepo,
		matchRepo:        matchRepo,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		cacheStore:       cacheStore,
		hub:              hub,
		logger:           logger,
	}
}

func roomIDForStandingsTournament(tournamentID int) string {
	return "tournament_" + strconv.Itoa(tournamentID)
}

func (s *standingsService) broadcast(tournamentID int, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	roomID := roomIDForStandingsTournament(tournamentID)
	s.hub.BroadcastToRoom(roomID, brackets.WebSocketMessage{Type: eventType, Payload: payload, RoomID: roomID})
}

// invalidate drops every cached leaderboard page for the tournament plus the
// global leaderboard, which may include this tournament's entrants.
func (s *standingsService) invalidate(ctx context.Context, tournamentID int) {
	if s.cacheStore == nil {
		return
	}
	if err := s.cacheStore.DeletePrefix(ctx, fmt.Sprintf("leaderboard:tournament:%d:", tournamentID)); err != nil {
		s.logger.WarnContext(ctx, "leaderboard cache invalidation failed", "tournament_id", tournamentID, "error", err)
	}
	if err := s.cacheStore.DeletePrefix(ctx, "leaderboard:global:"); err != nil {
		s.logger.WarnContext(ctx, "global leaderboard cache invalidation failed", "error", err)
	}
}

func (s *standingsService) GetStanding(ctx context.Context, tournamentID, registrationID int) (*models.Standing, error) {
	st, err := s.standingRepo.GetByRegistration(ctx, nil, tournamentID, registrationID)
	if err != nil {
		return nil, mapStandingRepoErr(err)
	}
	return st, nil
}

func (s *standingsService) ListStandings(ctx context.Context, filter models.StandingFilter) ([]models.Standing, error) {
	filter.SortByRank = true
	return s.standingRepo.ListByTournament(ctx, nil, filter)
}

func mapStandingRepoErr(err error) error {
	if err == repositories.ErrStandingNotFound {
		return ErrStandingNotFound
	}
	return err
}

// RecordMatchResult applies the incremental update of §4.7 for one completed
// (or forfeited) match, then reranks the tournament. Called by the match
// engine inside the same transaction that finalized the match, so a failure
// here rolls the match completion back too.
func (s *standingsService) RecordMatchResult(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	if match.WinnerID == nil || match.LoserID == nil {
		return nil
	}
	winnerScore, loserScore := scoresFor(match)

	winner, err := s.standingRepo.GetOrCreate(ctx, exec, match.TournamentID, *match.WinnerID)
	if err != nil {
		return err
	}
	loser, err := s.standingRepo.GetOrCreate(ctx, exec, match.TournamentID, *match.LoserID)
	if err != nil {
		return err
	}

	applyWin(winner, winnerScore, loserScore)
	applyLoss(loser, loserScore, winnerScore)
	recordHeadToHead(winner, *match.LoserID)

	if err := s.standingRepo.Update(ctx, exec, winner); err != nil {
		return err
	}
	if err := s.standingRepo.Update(ctx, exec, loser); err != nil {
		return err
	}

	if err := s.rerank(ctx, exec, match.TournamentID); err != nil {
		return err
	}
	s.invalidate(ctx, match.TournamentID)
	s.broadcast(match.TournamentID, "STANDINGS_UPDATED", map[string]interface{}{"tournament_id": match.TournamentID})
	return nil
}

func scoresFor(m *models.Match) (winner, loser int) {
	if m.Participant1Score == nil || m.Participant2Score == nil {
		return 1, 0
	}
	if m.WinnerID != nil && m.Participant1.RegistrationID != nil && *m.WinnerID == *m.Participant1.RegistrationID {
		return *m.Participant1Score, *m.Participant2Score
	}
	return *m.Participant2Score, *m.Participant1Score
}

func applyWin(st *models.Standing, gamesFor, gamesAgainst int) {
	st.Wins++
	st.MatchesPlayed++
	st.GamesWon += gamesFor
	st.GamesLost += gamesAgainst
	st.Points += 3
	if st.StreakType == models.StreakWin {
		st.CurrentStreak++
	} else {
		st.CurrentStreak = 1
	}
	st.StreakType = models.StreakWin
	if st.CurrentStreak > st.LongestWinStreak {
		st.LongestWinStreak = st.CurrentStreak
	}
	st.RecomputeWinRate()
}

func applyLoss(st *models.Standing, gamesFor, gamesAgainst int) {
	st.Losses++
	st.MatchesPlayed++
	st.GamesWon += gamesFor
	st.GamesLost += gamesAgainst
	if st.StreakType == models.StreakLoss {
		st.CurrentStreak++
	} else {
		st.CurrentStreak = 1
	}
	st.StreakType = models.StreakLoss
	st.RecomputeWinRate()
}

func recordHeadToHead(winner *models.Standing, loserRegistrationID int) {
	if winner.HeadToHeadWins == nil {
		winner.HeadToHeadWins = make(map[int]int)
	}
	winner.HeadToHeadWins[loserRegistrationID]++
}

// RecordBye credits a Swiss bye the same way a 1-0 win is credited, since
// byes never produce a match row to drive the normal fan-out.
func (s *standingsService) RecordBye(ctx context.Context, exec repositories.SQLExecutor, tournamentID, registrationID int) error {
	st, err := s.standingRepo.GetOrCreate(ctx, exec, tournamentID, registrationID)
	if err != nil {
		return err
	}
	applyWin(st, 1, 0)
	st.ByeCount++
	if err := s.standingRepo.Update(ctx, exec, st); err != nil {
		return err
	}
	return s.rerank(ctx, exec, tournamentID)
}

// rerank recomputes buchholz/opponent-win-rate for every standing, sorts by
// the §4.7 comparator, and persists dense 1-based ranks.
func (s *standingsService) rerank(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	all, err := s.standingRepo.ListAllByTournament(ctx, exec, tournamentID)
	if err != nil {
		return err
	}
	matches, err := s.matchRepo.ListCompletedByTournament(ctx, exec, tournamentID)
	if err != nil {
		return err
	}
	byRegistration := make(map[int]*models.Standing, len(all))
	for i := range all {
		byRegistration[all[i].RegistrationID] = &all[i]
	}
	computeBuchholzAndOpponentWinRate(byRegistration, matches)

	ordered := make([]models.Standing, len(all))
	copy(ordered, all)
	sortStandings(ordered)

	for i := range ordered {
		ordered[i].Rank = i + 1
	}
	for i := range ordered {
		if err := s.standingRepo.Update(ctx, exec, &ordered[i]); err != nil {
			return err
		}
	}
	return nil
}

// computeBuchholzAndOpponentWinRate sums, for each participant, their
// opponents' points (buchholz) and averages their opponents' win rates
// (opponent_win_rate), scanning only completed matches they played.
func computeBuchholzAndOpponentWinRate(byRegistration map[int]*models.Standing, matches []models.Match) {
	opponents := make(map[int][]int)
	for _, m := range matches {
		p1 := m.Participant1.RegistrationID
		p2 := m.Participant2.RegistrationID
		if p1 == nil || p2 == nil {
			continue
		}
		opponents[*p1] = append(opponents[*p1], *p2)
		opponents[*p2] = append(opponents[*p2], *p1)
	}
	for regID, st := range byRegistration {
		opp := opponents[regID]
		if len(opp) == 0 {
			st.BuchholzScore = 0
			st.OpponentWinRate = 0
			continue
		}
		var pointsSum float64
		var winRateSum float64
		for _, oppID := range opp {
			if o, ok := byRegistration[oppID]; ok {
				pointsSum += float64(o.Points)
				winRateSum += o.WinRate
			}
		}
		st.BuchholzScore = pointsSum
		st.OpponentWinRate = winRateSum / float64(len(opp))
	}
}

// sortStandings implements the seven-level tie-break comparator. Circular
// head-to-head ties (A beat B, B beat C, C beat A) fall through to seed,
// since no total order exists among them.
func sortStandings(standings []models.Standing) {
	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.BuchholzScore != b.BuchholzScore {
			return a.BuchholzScore > b.BuchholzScore
		}
		if a.GameDifferential() != b.GameDifferential() {
			return a.GameDifferential() > b.GameDifferential()
		}
		if a.GamesWon != b.GamesWon {
			return a.GamesWon > b.GamesWon
		}
		if h2h, ok := headToHeadOrder(a, b); ok {
			return h2h
		}
		return derefInt(a.Seed) < derefInt(b.Seed)
	})
}

// headToHeadOrder reports whether a should sort before b based purely on
// their direct record against each other, and whether that record is
// decisive (the two sides have different win counts against each other; an
// equal count, including none, is not decisive).
func headToHeadOrder(a, b models.Standing) (aFirst bool, decisive bool) {
	aWins := a.HeadToHeadWins[b.RegistrationID]
	bWins := b.HeadToHeadWins[a.RegistrationID]
	if aWins == bWins {
		return false, false
	}
	return aWins > bWins, true
}

// RecalculateStandings rebuilds every standing from the completed-match log
// from scratch, discarding incremental drift. Its caller is
// StandingsHandler.Recalculate; dispute resolution does not invoke it.
func (s *standingsService) RecalculateStandings(ctx context.Context, tournamentID int) ([]models.Standing, error) {
	var result []models.Standing
	err := withDBTransaction(ctx, s.db, func(exec repositories.SQLExecutor) error {
		regs, err := s.registrationRepo.ListConfirmedAndCheckedIn(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		fresh := make(map[int]*models.Standing, len(regs))
		for _, r := range regs {
			st, err := s.standingRepo.GetOrCreate(ctx, exec, tournamentID, r.ID)
			if err != nil {
				return err
			}
			resetStanding(st)
			fresh[r.ID] = st
		}
		existing, err := s.standingRepo.ListAllByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		for i := range existing {
			if _, ok := fresh[existing[i].RegistrationID]; !ok {
				st := &existing[i]
				resetStanding(st)
				fresh[st.RegistrationID] = st
			}
		}

		matches, err := s.matchRepo.ListCompletedByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		for _, m := range matches {
			if m.WinnerID == nil || m.LoserID == nil {
				continue
			}
			winner, ok := fresh[*m.WinnerID]
			if !ok {
				continue
			}
			loser, ok := fresh[*m.LoserID]
			if !ok {
				continue
			}
			winnerScore, loserScore := scoresFor(&m)
			mCopy := m
			applyWin(winner, winnerScore, loserScore)
			applyLoss(loser, loserScore, winnerScore)
			recordHeadToHead(winner, *mCopy.LoserID)
		}

		for _, st := range fresh {
			if err := s.standingRepo.Update(ctx, exec, st); err != nil {
				return err
			}
		}
		if err := s.rerank(ctx, exec, tournamentID); err != nil {
			return err
		}
		result, err = s.standingRepo.ListAllByTournament(ctx, exec, tournamentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tournamentID)
	s.broadcast(tournamentID, "STANDINGS_UPDATED", map[string]interface{}{"tournament_id": tournamentID})
	return result, nil
}

func resetStanding(st *models.Standing) {
	st.Points, st.Wins, st.Losses, st.Draws = 0, 0, 0, 0
	st.MatchesPlayed, st.GamesWon, st.GamesLost = 0, 0, 0
	st.RoundsWon, st.RoundsLost = 0, 0
	st.WinRate, st.BuchholzScore, st.OpponentWinRate = 0, 0, 0
	st.HeadToHeadWins = make(map[int]int)
	st.ByeCount = 0
	st.CurrentStreak, st.StreakType, st.LongestWinStreak = 0, models.StreakNone, 0
}

// DisqualifyStanding marks a standing eliminated and disqualified, leaving
// its record intact for ranking purposes. Called by the bracket service
// alongside forfeiting the registration's remaining matches.
func (s *standingsService) DisqualifyStanding(ctx context.Context, tournamentID, registrationID int, eliminatedRound, eliminatedBy *int) error {
	return withDBTransaction(ctx, s.db, func(exec repositories.SQLExecutor) error {
		st, err := s.standingRepo.GetOrCreate(ctx, exec, tournamentID, registrationID)
		if err != nil {
			return err
		}
		st.IsDisqualified = true
		st.IsEliminated = true
		st.EliminatedRound = eliminatedRound
		st.EliminatedBy = eliminatedBy
		return s.standingRepo.Update(ctx, exec, st)
	})
}

// SwissPairingInputs builds the standings-engine side of a Swiss round
// pairing request: each participant's current points/buchholz/seed, the set
// of opponents each has already faced, and who has already received the
// event's one-per-participant bye.
func (s *standingsService) SwissPairingInputs(ctx context.Context, tournamentID int) ([]brackets.SwissStanding, map[int]map[int]bool, map[int]bool, error) {
	standings, err := s.standingRepo.ListAllByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, nil, nil, err
	}
	regs, err := s.registrationRepo.ListConfirmedAndCheckedIn(ctx, nil, tournamentID)
	if err != nil {
		return nil, nil, nil, err
	}
	names := make(map[int]string, len(regs))
	for i := range regs {
		names[regs[i].ID] = displayNameForRegistration(&regs[i])
	}

	out := make([]brackets.SwissStanding, 0, len(standings))
	byeHistory := make(map[int]bool, len(standings))
	for _, st := range standings {
		out = append(out, brackets.SwissStanding{
			RegistrationID: st.RegistrationID,
			Name:           names[st.RegistrationID],
			Seed:           derefInt(st.Seed),
			Points:         st.Points,
			Buchholz:       st.BuchholzScore,
			HadBye:         st.ByeCount > 0,
		})
		if st.ByeCount > 0 {
			byeHistory[st.RegistrationID] = true
		}
	}

	matches, err := s.matchRepo.ListCompletedByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, nil, nil, err
	}
	priorOpponents := make(map[int]map[int]bool)
	for _, m := range matches {
		p1 := m.Participant1.RegistrationID
		p2 := m.Participant2.RegistrationID
		if p1 == nil || p2 == nil {
			continue
		}
		if priorOpponents[*p1] == nil {
			priorOpponents[*p1] = make(map[int]bool)
		}
		if priorOpponents[*p2] == nil {
			priorOpponents[*p2] = make(map[int]bool)
		}
		priorOpponents[*p1][*p2] = true
		priorOpponents[*p2][*p1] = true
	}
	return out, priorOpponents, byeHistory, nil
}
