package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/tourney-engine/models"
)

var ErrStandingNotFound = errors.New("standing not found")

type StandingRepository interface {
	GetOrCreate(ctx context.Context, exec SQLExecutor, tournamentID, registrationID int) (*models.Standing, error)
	GetByRegistration(ctx context.Context, exec SQLExecutor, tournamentID, registrationID int) (*models.Standing, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, filter models.StandingFilter) ([]models.Standing, error)
	// ListAllByTournament returns every standing row for a tournament with no
	// page cap, backing full reranks and recalculation.
	ListAllByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Standing, error)
	Update(ctx context.Context, exec SQLExecutor, s *models.Standing) error
	BatchUpdateRanks(ctx context.Context, exec SQLExecutor, ranked []models.Standing) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const standingColumns = `
	id, tournament_id, registration_id, team_id, seed, rank,
	points, wins, losses, draws, matches_played, games_won, games_lost,
	rounds_won, rounds_lost, win_rate, buchholz_score, opponent_win_rate, head_to_head_wins,
	bye_count, current_streak, streak_type, longest_win_streak,
	is_eliminated, eliminated_in_round, eliminated_by, is_disqualified, final_placement,
	created_at, updated_at`

func scanStanding(row interface{ Scan(...interface{}) error }) (*models.Standing, error) {
	var s models.Standing
	var headToHead []byte
	err := row.Scan(
		&s.ID, &s.TournamentID, &s.RegistrationID, &s.TeamID, &s.Seed, &s.Rank,
		&s.Points, &s.Wins, &s.Losses, &s.Draws, &s.MatchesPlayed, &s.GamesWon, &s.GamesLost,
		&s.RoundsWon, &s.RoundsLost, &s.WinRate, &s.BuchholzScore, &s.OpponentWinRate, &headToHead,
		&s.ByeCount, &s.CurrentStreak, &s.StreakType, &s.LongestWinStreak,
		&s.IsEliminated, &s.EliminatedRound, &s.EliminatedBy, &s.IsDisqualified, &s.FinalPlacement,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStandingNotFound
		}
		return nil, err
	}
	s.HeadToHeadWins = make(map[int]int)
	if err := decodeJSONMap(headToHead, &s.HeadToHeadWins); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetOrCreate returns the existing standing row for a registration, creating
// a zeroed one on first match involvement.
func (r *postgresStandingRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, tournamentID, registrationID int) (*models.Standing, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, "SELECT "+standingColumns+" FROM standings WHERE tournament_id=$1 AND registration_id=$2", tournamentID, registrationID)
	s, err := scanStanding(row)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrStandingNotFound) {
		return nil, err
	}

	h2h, encErr := encodeJSONMap(map[int]int{})
	if encErr != nil {
		return nil, encErr
	}
	s = &models.Standing{TournamentID: tournamentID, RegistrationID: registrationID, StreakType: models.StreakNone}
	insertErr := executor.QueryRowContext(ctx, `
		INSERT INTO standings (tournament_id, registration_id, streak_type, head_to_head_wins)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (tournament_id, registration_id) DO UPDATE SET tournament_id=EXCLUDED.tournament_id
		RETURNING `+standingColumns,
		tournamentID, registrationID, models.StreakNone, h2h,
	).Scan(
		&s.ID, &s.TournamentID, &s.RegistrationID, &s.TeamID, &s.Seed, &s.Rank,
		&s.Points, &s.Wins, &s.Losses, &s.Draws, &s.MatchesPlayed, &s.GamesWon, &s.GamesLost,
		&s.RoundsWon, &s.RoundsLost, &s.WinRate, &s.BuchholzScore, &s.OpponentWinRate, &h2h,
		&s.ByeCount, &s.CurrentStreak, &s.StreakType, &s.LongestWinStreak,
		&s.IsEliminated, &s.EliminatedRound, &s.EliminatedBy, &s.IsDisqualified, &s.FinalPlacement,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if insertErr != nil {
		return nil, insertErr
	}
	s.HeadToHeadWins = make(map[int]int)
	if err := decodeJSONMap(h2h, &s.HeadToHeadWins); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresStandingRepository) GetByRegistration(ctx context.Context, exec SQLExecutor, tournamentID, registrationID int) (*models.Standing, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, "SELECT "+standingColumns+" FROM standings WHERE tournament_id=$1 AND registration_id=$2", tournamentID, registrationID)
	return scanStanding(row)
}

func (r *postgresStandingRepository) ListByTournament(ctx context.Context, exec SQLExecutor, filter models.StandingFilter) ([]models.Standing, error) {
	executor := r.getExecutor(exec)
	order := " ORDER BY points DESC, win_rate DESC, buchholz_score DESC, opponent_win_rate DESC"
	if filter.SortByRank {
		order = " ORDER BY rank ASC"
	}
	pg := Pagination{Page: filter.Page, Limit: filter.Limit}
	query := "SELECT " + standingColumns + " FROM standings WHERE tournament_id=$1" + order + " LIMIT $2 OFFSET $3"
	rows, err := executor.QueryContext(ctx, query, filter.TournamentID, pg.limit(), pg.offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Standing, 0)
	for rows.Next() {
		s, scanErr := scanStanding(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *postgresStandingRepository) ListAllByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Standing, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, "SELECT "+standingColumns+" FROM standings WHERE tournament_id=$1 ORDER BY rank ASC", tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Standing, 0)
	for rows.Next() {
		s, scanErr := scanStanding(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *postgresStandingRepository) Update(ctx context.Context, exec SQLExecutor, s *models.Standing) error {
	executor := r.getExecutor(exec)
	h2h, err := encodeJSONMap(s.HeadToHeadWins)
	if err != nil {
		return err
	}
	query := `
		UPDATE standings SET
			team_id=$1, seed=$2, rank=$3, points=$4, wins=$5, losses=$6, draws=$7,
			matches_played=$8, games_won=$9, games_lost=$10, rounds_won=$11, rounds_lost=$12,
			win_rate=$13, buchholz_score=$14, opponent_win_rate=$15, head_to_head_wins=$16,
			bye_count=$17, current_streak=$18, streak_type=$19, longest_win_streak=$20,
			is_eliminated=$21, eliminated_in_round=$22, eliminated_by=$23, is_disqualified=$24,
			final_placement=$25, updated_at=NOW()
		WHERE id=$26`
	result, err := executor.ExecContext(ctx, query,
		s.TeamID, s.Seed, s.Rank, s.Points, s.Wins, s.Losses, s.Draws,
		s.MatchesPlayed, s.GamesWon, s.GamesLost, s.RoundsWon, s.RoundsLost,
		s.WinRate, s.BuchholzScore, s.OpponentWinRate, h2h,
		s.ByeCount, s.CurrentStreak, s.StreakType, s.LongestWinStreak,
		s.IsEliminated, s.EliminatedRound, s.EliminatedBy, s.IsDisqualified,
		s.FinalPlacement, s.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrStandingNotFound)
}

// BatchUpdateRanks persists only the rank column, used after a full
// leaderboard recomputation assigns a fresh ordering.
func (r *postgresStandingRepository) BatchUpdateRanks(ctx context.Context, exec SQLExecutor, ranked []models.Standing) error {
	executor := r.getExecutor(exec)
	for _, s := range ranked {
		if _, err := executor.ExecContext(ctx, `UPDATE standings SET rank=$1, updated_at=NOW() WHERE id=$2`, s.Rank, s.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresStandingRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM standings WHERE tournament_id=$1`, tournamentID)
	return err
}
