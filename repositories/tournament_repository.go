package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/tourney-engine/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict for this organizer")
	ErrTournamentInUse        = errors.New("tournament is in use (registrations/matches exist)")
	ErrTournamentInvalidOrg   = errors.New("invalid organizer reference")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, exec SQLExecutor, filter models.TournamentFilter) ([]models.Tournament, int, error)
	Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	UpdateLogoKey(ctx context.Context, exec SQLExecutor, tournamentID int, logoKey *string) error
	GetTournamentsForAutoStatusUpdate(ctx context.Context, exec SQLExecutor, currentTime time.Time) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, description, game_id, format, status, visibility, registration_type,
	organizer_id, team_size, min_participants, max_participants, min_mmr, max_mmr,
	allowed_regions, identity_required, prize_pool_amount, prize_currency,
	prize_distribution, entry_fee, registration_start, registration_end,
	check_in_start, check_in_end, start_date, end_date, match_interval_minutes,
	swiss_rounds, grand_finals_reset, template_id, rules, stream_url, logo_key,
	metadata, created_at, updated_at`

func scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	var t models.Tournament
	var allowedRegions pq.StringArray
	var prizeDist []byte
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.GameID, &t.Format, &t.Status, &t.Visibility, &t.RegistrationType,
		&t.OrganizerID, &t.TeamSize, &t.MinParticipants, &t.MaxParticipants, &t.MinMMR, &t.MaxMMR,
		&allowedRegions, &t.IdentityRequired, &t.PrizePoolAmount, &t.PrizeCurrency,
		&prizeDist, &t.EntryFee, &t.RegistrationStart, &t.RegistrationEnd,
		&t.CheckInStart, &t.CheckInEnd, &t.StartDate, &t.EndDate, &t.MatchIntervalMinutes,
		&t.SwissRounds, &t.GrandFinalsReset, &t.TemplateID, &t.Rules, &t.StreamURL, &t.LogoKey,
		&t.Metadata, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	t.AllowedRegions = allowedRegions
	if len(prizeDist) > 0 {
		_ = decodeJSONMap(prizeDist, &t.PrizeDistribution)
	}
	return &t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	prizeDist, err := encodeJSONMap(t.PrizeDistribution)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO tournaments (
			name, description, game_id, format, status, visibility, registration_type,
			organizer_id, team_size, min_participants, max_participants, min_mmr, max_mmr,
			allowed_regions, identity_required, prize_pool_amount, prize_currency,
			prize_distribution, entry_fee, registration_start, registration_end,
			check_in_start, check_in_end, start_date, end_date, match_interval_minutes,
			swiss_rounds, grand_finals_reset, template_id, rules, stream_url, logo_key, metadata
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32
		) RETURNING id, created_at, updated_at`

	err = executor.QueryRowContext(ctx, query,
		t.Name, t.Description, t.GameID, t.Format, t.Status, t.Visibility, t.RegistrationType,
		t.OrganizerID, t.TeamSize, t.MinParticipants, t.MaxParticipants, t.MinMMR, t.MaxMMR,
		pq.Array(t.AllowedRegions), t.IdentityRequired, t.PrizePoolAmount, t.PrizeCurrency,
		prizeDist, t.EntryFee, t.RegistrationStart, t.RegistrationEnd,
		t.CheckInStart, t.CheckInEnd, t.StartDate, t.EndDate, t.MatchIntervalMinutes,
		t.SwissRounds, t.GrandFinalsReset, t.TemplateID, t.Rules, t.StreamURL, t.LogoKey, t.Metadata,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, "SELECT "+tournamentColumns+" FROM tournaments WHERE id = $1", id)
	return scanTournament(row)
}

func (r *postgresTournamentRepository) List(ctx context.Context, exec SQLExecutor, filter models.TournamentFilter) ([]models.Tournament, int, error) {
	executor := r.getExecutor(exec)

	where := strings.Builder{}
	where.WriteString(" WHERE 1=1")
	args := []interface{}{}
	argID := 1

	if filter.GameID != nil {
		where.WriteString(fmt.Sprintf(" AND game_id = $%d", argID))
		args = append(args, *filter.GameID)
		argID++
	}
	if len(filter.Statuses) > 0 {
		where.WriteString(fmt.Sprintf(" AND status = ANY($%d)", argID))
		args = append(args, pq.Array(filter.Statuses))
		argID++
	}
	if filter.Visibility != nil {
		where.WriteString(fmt.Sprintf(" AND visibility = $%d", argID))
		args = append(args, *filter.Visibility)
		argID++
	}
	if filter.OrganizerID != nil {
		where.WriteString(fmt.Sprintf(" AND organizer_id = $%d", argID))
		args = append(args, *filter.OrganizerID)
		argID++
	}
	if filter.Format != nil {
		where.WriteString(fmt.Sprintf(" AND format = $%d", argID))
		args = append(args, *filter.Format)
		argID++
	}
	if filter.Search != nil && *filter.Search != "" {
		where.WriteString(fmt.Sprintf(" AND name ILIKE $%d", argID))
		args = append(args, "%"+*filter.Search+"%")
		argID++
	}
	if filter.DateFrom != nil {
		where.WriteString(fmt.Sprintf(" AND start_date >= $%d", argID))
		args = append(args, *filter.DateFrom)
		argID++
	}
	if filter.DateTo != nil {
		where.WriteString(fmt.Sprintf(" AND start_date <= $%d", argID))
		args = append(args, *filter.DateTo)
		argID++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM tournaments" + where.String()
	if err := executor.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pg := Pagination{Page: filter.Page, Limit: filter.Limit}
	query := "SELECT " + tournamentColumns + " FROM tournaments" + where.String() +
		" ORDER BY start_date DESC, created_at DESC" +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, pg.limit(), pg.offset())

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return tournaments, total, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	prizeDist, err := encodeJSONMap(t.PrizeDistribution)
	if err != nil {
		return err
	}
	query := `
		UPDATE tournaments SET
			name=$1, description=$2, game_id=$3, format=$4, status=$5, visibility=$6,
			registration_type=$7, team_size=$8, min_participants=$9, max_participants=$10,
			min_mmr=$11, max_mmr=$12, allowed_regions=$13, identity_required=$14,
			prize_pool_amount=$15, prize_currency=$16, prize_distribution=$17, entry_fee=$18,
			registration_start=$19, registration_end=$20, check_in_start=$21, check_in_end=$22,
			start_date=$23, end_date=$24, match_interval_minutes=$25, swiss_rounds=$26,
			grand_finals_reset=$27, rules=$28, stream_url=$29, metadata=$30, updated_at=NOW()
		WHERE id = $31`

	result, err := executor.ExecContext(ctx, query,
		t.Name, t.Description, t.GameID, t.Format, t.Status, t.Visibility,
		t.RegistrationType, t.TeamSize, t.MinParticipants, t.MaxParticipants,
		t.MinMMR, t.MaxMMR, pq.Array(t.AllowedRegions), t.IdentityRequired,
		t.PrizePoolAmount, t.PrizeCurrency, prizeDist, t.EntryFee,
		t.RegistrationStart, t.RegistrationEnd, t.CheckInStart, t.CheckInEnd,
		t.StartDate, t.EndDate, t.MatchIntervalMinutes, t.SwissRounds,
		t.GrandFinalsReset, t.Rules, t.StreamURL, t.Metadata,
		t.ID,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE tournaments SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, exec SQLExecutor, tournamentID int, logoKey *string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE tournaments SET logo_key=$1, updated_at=NOW() WHERE id=$2`, logoKey, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update tournament logo key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM tournaments WHERE id=$1`, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// GetTournamentsForAutoStatusUpdate fetches non-terminal tournaments whose
// schedule window has already elapsed for their current status, so the
// scheduler sweep can advance them.
func (r *postgresTournamentRepository) GetTournamentsForAutoStatusUpdate(ctx context.Context, exec SQLExecutor, currentTime time.Time) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + tournamentColumns + ` FROM tournaments
		WHERE status NOT IN ($1, $2)
		AND (
			(status = $3 AND registration_start <= $7) OR
			(status = $4 AND registration_end <= $7) OR
			(status = $5 AND check_in_start <= $7) OR
			(status = $6 AND check_in_end <= $7)
		)`
	rows, err := executor.QueryContext(ctx, query,
		models.TournamentCompleted, models.TournamentCancelled,
		models.TournamentDraft, models.TournamentRegistrationOpen,
		models.TournamentRegistrationClosed, models.TournamentCheckIn,
		currentTime,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments for auto status update: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament for auto status update: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration for auto status update: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournaments_organizer_id_name_key" {
				return ErrTournamentNameConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "tournaments_organizer_id_fkey":
				return ErrTournamentInvalidOrg
			default:
				return ErrTournamentInUse
			}
		}
	}
	return err
}
