package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/tourney-engine/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchVersionStale = errors.New("match was modified concurrently")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, m *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	List(ctx context.Context, exec SQLExecutor, filter models.MatchFilter) ([]models.Match, int, error)
	ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]models.Match, error)
	ListPendingOrdered(ctx context.Context, exec SQLExecutor, bracketID int) ([]models.Match, error)
	ListCompletedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Match, error)
	ListByRegistration(ctx context.Context, exec SQLExecutor, tournamentID, registrationID int) ([]models.Match, error)
	ListNonCompletedByRegistration(ctx context.Context, exec SQLExecutor, tournamentID, registrationID int) ([]models.Match, error)
	ListDisputed(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Match, error)
	Update(ctx context.Context, exec SQLExecutor, m *models.Match) error
	// UpdateWithVersion performs an optimistic-locked write, failing with
	// ErrMatchVersionStale if the row's version no longer matches.
	UpdateWithVersion(ctx context.Context, exec SQLExecutor, m *models.Match, expectedVersion int) error
	CountCompletedByBracket(ctx context.Context, exec SQLExecutor, bracketID int) (int, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	DeleteByBracket(ctx context.Context, exec SQLExecutor, bracketID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, bracket_id, round, match_number, type, status,
	p1_registration_id, p1_name, p1_seed, p2_registration_id, p2_name, p2_seed,
	participant1_score, participant2_score, winner_id, loser_id,
	participant1_confirmed, participant2_confirmed,
	participant1_checked_in, participant2_checked_in,
	participant1_checked_in_at, participant2_checked_in_at,
	scheduled_at, started_at, completed_at, server_id, lobby_code, stream_url,
	next_match_id, loser_next_match_id,
	dispute_raised_by, dispute_reason, dispute_raised_at,
	admin_override, admin_override_by, admin_override_reason, admin_override_at,
	forfeit_reason, best_of, games_played, suspicious, version, metadata,
	created_at, updated_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.BracketID, &m.Round, &m.MatchNumber, &m.Type, &m.Status,
		&m.Participant1.RegistrationID, &m.Participant1.Name, &m.Participant1.Seed,
		&m.Participant2.RegistrationID, &m.Participant2.Name, &m.Participant2.Seed,
		&m.Participant1Score, &m.Participant2Score, &m.WinnerID, &m.LoserID,
		&m.Participant1Confirmed, &m.Participant2Confirmed,
		&m.Participant1CheckedIn, &m.Participant2CheckedIn,
		&m.Participant1CheckedInAt, &m.Participant2CheckedInAt,
		&m.ScheduledAt, &m.StartedAt, &m.CompletedAt, &m.ServerID, &m.LobbyCode, &m.StreamURL,
		&m.NextMatchID, &m.LoserNextMatchID,
		&m.DisputeRaisedBy, &m.DisputeReason, &m.DisputeRaisedAt,
		&m.AdminOverride, &m.AdminOverrideBy, &m.AdminOverrideReason, &m.AdminOverrideAt,
		&m.ForfeitReason, &m.BestOf, &m.GamesPlayed, &m.Suspicious, &m.Version, &m.Metadata,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (
			tournament_id, bracket_id, round, match_number, type, status,
			p1_registration_id, p1_name, p1_seed, p2_registration_id, p2_name, p2_seed,
			participant1_score, participant2_score, winner_id, loser_id,
			next_match_id, loser_next_match_id, best_of, metadata
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		RETURNING id, version, created_at, updated_at`
	err := executor.QueryRowContext(ctx, query,
		m.TournamentID, m.BracketID, m.Round, m.MatchNumber, m.Type, m.Status,
		m.Participant1.RegistrationID, m.Participant1.Name, m.Participant1.Seed,
		m.Participant2.RegistrationID, m.Participant2.Name, m.Participant2.Seed,
		m.Participant1Score, m.Participant2Score, m.WinnerID, m.LoserID,
		m.NextMatchID, m.LoserNextMatchID, m.BestOf, m.Metadata,
	).Scan(&m.ID, &m.Version, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return r.handleError(err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, "SELECT "+matchColumns+" FROM matches WHERE id=$1", id)
	return scanMatch(row)
}

// GetForUpdate locks the match row, backing the bracket-advancement and
// match-completion fan-out locking discipline of §5.
func (r *postgresMatchRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, "SELECT "+matchColumns+" FROM matches WHERE id=$1 FOR UPDATE", id)
	return scanMatch(row)
}

func (r *postgresMatchRepository) List(ctx context.Context, exec SQLExecutor, filter models.MatchFilter) ([]models.Match, int, error) {
	executor := r.getExecutor(exec)
	where := strings.Builder{}
	where.WriteString(" WHERE 1=1")
	args := []interface{}{}
	argID := 1
	if filter.TournamentID != nil {
		where.WriteString(fmt.Sprintf(" AND tournament_id=$%d", argID))
		args = append(args, *filter.TournamentID)
		argID++
	}
	if filter.BracketID != nil {
		where.WriteString(fmt.Sprintf(" AND bracket_id=$%d", argID))
		args = append(args, *filter.BracketID)
		argID++
	}
	if len(filter.Statuses) > 0 {
		where.WriteString(fmt.Sprintf(" AND status = ANY($%d)", argID))
		args = append(args, pq.Array(filter.Statuses))
		argID++
	}
	if filter.Round != nil {
		where.WriteString(fmt.Sprintf(" AND round=$%d", argID))
		args = append(args, *filter.Round)
		argID++
	}

	var total int
	if err := executor.QueryRowContext(ctx, "SELECT COUNT(*) FROM matches"+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pg := Pagination{Page: filter.Page, Limit: filter.Limit}
	query := "SELECT " + matchColumns + " FROM matches" + where.String() +
		" ORDER BY round ASC, match_number ASC" + fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, pg.limit(), pg.offset())

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := scanMatches(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *postgresMatchRepository) ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]models.Match, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, "SELECT "+matchColumns+" FROM matches WHERE bracket_id=$1 ORDER BY round ASC, match_number ASC", bracketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatches(rows)
}

func (r *postgresMatchRepository) ListPendingOrdered(ctx context.Context, exec SQLExecutor, bracketID int) ([]models.Match, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		"SELECT "+matchColumns+" FROM matches WHERE bracket_id=$1 AND status=$2 ORDER BY round ASC, match_number ASC",
		bracketID, models.MatchPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatches(rows)
}

func (r *postgresMatchRepository) ListCompletedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Match, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		"SELECT "+matchColumns+" FROM matches WHERE tournament_id=$1 AND status=$2 ORDER BY completed_at ASC",
		tournamentID, models.MatchCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatches(rows)
}

func (r *postgresMatchRepository) ListByRegistration(ctx context.Context, exec SQLExecutor, tournamentID, registrationID int) ([]models.Match, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		"SELECT "+matchColumns+` FROM matches
		WHERE tournament_id=$1 AND (p1_registration_id=$2 OR p2_registration_id=$2)
		ORDER BY round ASC, match_number ASC`,
		tournamentID, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatches(rows)
}

func (r *postgresMatchRepository) ListNonCompletedByRegistration(ctx context.Context, exec SQLExecutor, tournamentID, registrationID int) ([]models.Match, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		"SELECT "+matchColumns+` FROM matches
		WHERE tournament_id=$1 AND (p1_registration_id=$2 OR p2_registration_id=$2)
		AND status NOT IN ($3,$4,$5)`,
		tournamentID, registrationID, models.MatchCompleted, models.MatchForfeit, models.MatchCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatches(rows)
}

func (r *postgresMatchRepository) ListDisputed(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Match, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		"SELECT "+matchColumns+" FROM matches WHERE tournament_id=$1 AND status=$2 ORDER BY dispute_raised_at ASC",
		tournamentID, models.MatchDisputed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatches(rows)
}

func scanMatches(rows *sql.Rows) ([]models.Match, error) {
	out := make([]models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := matchUpdateQuery + " WHERE id=$38"
	args := matchUpdateArgs(m)
	args = append(args, m.ID)
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return r.handleError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateWithVersion(ctx context.Context, exec SQLExecutor, m *models.Match, expectedVersion int) error {
	executor := r.getExecutor(exec)
	query := matchUpdateQuery + " WHERE id=$38 AND version=$39"
	args := matchUpdateArgs(m)
	args = append(args, m.ID, expectedVersion)
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return r.handleError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMatchVersionStale
	}
	m.Version = expectedVersion + 1
	return nil
}

const matchUpdateQuery = `
	UPDATE matches SET
		status=$1,
		p1_registration_id=$2, p1_name=$3, p1_seed=$4,
		p2_registration_id=$5, p2_name=$6, p2_seed=$7,
		participant1_score=$8, participant2_score=$9, winner_id=$10, loser_id=$11,
		participant1_confirmed=$12, participant2_confirmed=$13,
		participant1_checked_in=$14, participant2_checked_in=$15,
		participant1_checked_in_at=$16, participant2_checked_in_at=$17,
		scheduled_at=$18, started_at=$19, completed_at=$20, server_id=$21, lobby_code=$22, stream_url=$23,
		next_match_id=$24, loser_next_match_id=$25,
		dispute_raised_by=$26, dispute_reason=$27, dispute_raised_at=$28,
		admin_override=$29, admin_override_by=$30, admin_override_reason=$31, admin_override_at=$32,
		forfeit_reason=$33, best_of=$34, games_played=$35, suspicious=$36, metadata=$37,
		version=version+1, updated_at=NOW()`

func matchUpdateArgs(m *models.Match) []interface{} {
	return []interface{}{
		m.Status,
		m.Participant1.RegistrationID, m.Participant1.Name, m.Participant1.Seed,
		m.Participant2.RegistrationID, m.Participant2.Name, m.Participant2.Seed,
		m.Participant1Score, m.Participant2Score, m.WinnerID, m.LoserID,
		m.Participant1Confirmed, m.Participant2Confirmed,
		m.Participant1CheckedIn, m.Participant2CheckedIn,
		m.Participant1CheckedInAt, m.Participant2CheckedInAt,
		m.ScheduledAt, m.StartedAt, m.CompletedAt, m.ServerID, m.LobbyCode, m.StreamURL,
		m.NextMatchID, m.LoserNextMatchID,
		m.DisputeRaisedBy, m.DisputeReason, m.DisputeRaisedAt,
		m.AdminOverride, m.AdminOverrideBy, m.AdminOverrideReason, m.AdminOverrideAt,
		m.ForfeitReason, m.BestOf, m.GamesPlayed, m.Suspicious, m.Metadata,
	}
}

func (r *postgresMatchRepository) CountCompletedByBracket(ctx context.Context, exec SQLExecutor, bracketID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE bracket_id=$1 AND status IN ($2,$3)`,
		bracketID, models.MatchCompleted, models.MatchForfeit,
	).Scan(&count)
	return count, err
}

func (r *postgresMatchRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByBracket(ctx context.Context, exec SQLExecutor, bracketID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE bracket_id=$1`, bracketID)
	return err
}

func (r *postgresMatchRepository) handleError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("match number conflict: %w", err)
	}
	return err
}
