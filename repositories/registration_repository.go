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
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationConflict = errors.New("participant already registered for this tournament")
	ErrRegistrationTeamConflict = errors.New("team already registered for this tournament")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error)
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error)
	GetByTournamentAndParticipant(ctx context.Context, exec SQLExecutor, tournamentID, participantID int) (*models.Registration, error)
	List(ctx context.Context, exec SQLExecutor, filter models.RegistrationFilter) ([]models.Registration, int, error)
	ListConfirmedAndCheckedIn(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Registration, error)
	ListWaitlist(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Registration, error)
	CountActive(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	Update(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const registrationColumns = `
	id, tournament_id, participant_id, display_name, team_id, team_name, team_member_ids,
	status, seed, mmr, identity_verified, region, entry_fee_paid, refund_issued,
	refund_amount, refund_at, waitlist_position, substituted_from_participant_id,
	substituted_at, checked_in_at, metadata, created_at, updated_at`

func scanRegistration(row interface{ Scan(...interface{}) error }) (*models.Registration, error) {
	var reg models.Registration
	var memberIDs pq.Int64Array
	err := row.Scan(
		&reg.ID, &reg.TournamentID, &reg.ParticipantID, &reg.DisplayName, &reg.TeamID, &reg.TeamName, &memberIDs,
		&reg.Status, &reg.Seed, &reg.MMR, &reg.IdentityVerified, &reg.Region, &reg.EntryFeePaid, &reg.RefundIssued,
		&reg.RefundAmount, &reg.RefundAt, &reg.WaitlistPosition, &reg.SubstitutedFromParticipantID,
		&reg.SubstitutedAt, &reg.CheckedInAt, &reg.Metadata, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	reg.TeamMemberIDs = make([]int, len(memberIDs))
	for i, v := range memberIDs {
		reg.TeamMemberIDs[i] = int(v)
	}
	return &reg, nil
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO registrations (
			tournament_id, participant_id, display_name, team_id, team_name, team_member_ids,
			status, seed, mmr, identity_verified, region, entry_fee_paid, waitlist_position, metadata
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id, created_at, updated_at`
	err := executor.QueryRowContext(ctx, query,
		reg.TournamentID, reg.ParticipantID, reg.DisplayName, reg.TeamID, reg.TeamName, pq.Array(toInt64Slice(reg.TeamMemberIDs)),
		reg.Status, reg.Seed, reg.MMR, reg.IdentityVerified, reg.Region, reg.EntryFeePaid, reg.WaitlistPosition, reg.Metadata,
	).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
	return r.handleError(err)
}

func toInt64Slice(ints []int) []int64 {
	out := make([]int64, len(ints))
	for i, v := range ints {
		out[i] = int64(v)
	}
	return out
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, "SELECT "+registrationColumns+" FROM registrations WHERE id=$1", id)
	return scanRegistration(row)
}

// GetForUpdate locks the registration row for the duration of the caller's
// transaction, backing the waitlist-promotion locking discipline of §5.
func (r *postgresRegistrationRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, "SELECT "+registrationColumns+" FROM registrations WHERE id=$1 FOR UPDATE", id)
	return scanRegistration(row)
}

func (r *postgresRegistrationRepository) GetByTournamentAndParticipant(ctx context.Context, exec SQLExecutor, tournamentID, participantID int) (*models.Registration, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, "SELECT "+registrationColumns+" FROM registrations WHERE tournament_id=$1 AND participant_id=$2", tournamentID, participantID)
	return scanRegistration(row)
}

func (r *postgresRegistrationRepository) List(ctx context.Context, exec SQLExecutor, filter models.RegistrationFilter) ([]models.Registration, int, error) {
	executor := r.getExecutor(exec)
	where := strings.Builder{}
	where.WriteString(" WHERE tournament_id = $1")
	args := []interface{}{filter.TournamentID}
	argID := 2
	if len(filter.Statuses) > 0 {
		where.WriteString(fmt.Sprintf(" AND status = ANY($%d)", argID))
		args = append(args, pq.Array(filter.Statuses))
		argID++
	}

	var total int
	if err := executor.QueryRowContext(ctx, "SELECT COUNT(*) FROM registrations"+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pg := Pagination{Page: filter.Page, Limit: filter.Limit}
	query := "SELECT " + registrationColumns + " FROM registrations" + where.String() +
		" ORDER BY created_at ASC" + fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, pg.limit(), pg.offset())

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	regs := make([]models.Registration, 0)
	for rows.Next() {
		reg, scanErr := scanRegistration(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		regs = append(regs, *reg)
	}
	return regs, total, rows.Err()
}

func (r *postgresRegistrationRepository) ListConfirmedAndCheckedIn(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Registration, error) {
	executor := r.getExecutor(exec)
	query := "SELECT " + registrationColumns + ` FROM registrations
		WHERE tournament_id=$1 AND status IN ($2,$3)
		ORDER BY COALESCE(seed, 2147483647) ASC, created_at ASC`
	rows, err := executor.QueryContext(ctx, query, tournamentID, models.RegistrationConfirmed, models.RegistrationCheckedIn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	regs := make([]models.Registration, 0)
	for rows.Next() {
		reg, scanErr := scanRegistration(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func (r *postgresRegistrationRepository) ListWaitlist(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Registration, error) {
	executor := r.getExecutor(exec)
	query := "SELECT " + registrationColumns + ` FROM registrations
		WHERE tournament_id=$1 AND status=$2 ORDER BY waitlist_position ASC`
	rows, err := executor.QueryContext(ctx, query, tournamentID, models.RegistrationWaitlisted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	regs := make([]models.Registration, 0)
	for rows.Next() {
		reg, scanErr := scanRegistration(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func (r *postgresRegistrationRepository) CountActive(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE tournament_id=$1 AND status IN ($2,$3)`,
		tournamentID, models.RegistrationConfirmed, models.RegistrationCheckedIn,
	).Scan(&count)
	return count, err
}

func (r *postgresRegistrationRepository) Update(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE registrations SET
			display_name=$1, team_id=$2, team_name=$3, team_member_ids=$4, status=$5, seed=$6,
			mmr=$7, identity_verified=$8, region=$9, entry_fee_paid=$10, refund_issued=$11,
			refund_amount=$12, refund_at=$13, waitlist_position=$14, participant_id=$15,
			substituted_from_participant_id=$16, substituted_at=$17, checked_in_at=$18,
			metadata=$19, updated_at=NOW()
		WHERE id=$20`
	result, err := executor.ExecContext(ctx, query,
		reg.DisplayName, reg.TeamID, reg.TeamName, pq.Array(toInt64Slice(reg.TeamMemberIDs)), reg.Status, reg.Seed,
		reg.MMR, reg.IdentityVerified, reg.Region, reg.EntryFeePaid, reg.RefundIssued,
		reg.RefundAmount, reg.RefundAt, reg.WaitlistPosition, reg.ParticipantID,
		reg.SubstitutedFromParticipantID, reg.SubstitutedAt, reg.CheckedInAt,
		reg.Metadata, reg.ID,
	)
	if err != nil {
		return r.handleError(err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM registrations WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) handleError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "registrations_tournament_id_participant_id_key":
			return ErrRegistrationConflict
		case "registrations_tournament_id_team_id_key":
			return ErrRegistrationTeamConflict
		}
	}
	return err
}
