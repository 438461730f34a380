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

var ErrPrizeNotFound = errors.New("prize not found")

type PrizeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Prize) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Prize, error)
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Prize, error)
	List(ctx context.Context, exec SQLExecutor, filter models.PrizeFilter) ([]models.Prize, int, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Prize, error)
	ListByRecipient(ctx context.Context, exec SQLExecutor, recipientID int) ([]models.Prize, error)
	ListRetryEligible(ctx context.Context, exec SQLExecutor) ([]models.Prize, error)
	Update(ctx context.Context, exec SQLExecutor, p *models.Prize) error
	// ReplaceForTournament deletes any existing pool rows and bulk-inserts the
	// given set, used by setup-pool to re-run the distribution plan.
	ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, prizes []models.Prize) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresPrizeRepository struct {
	db *sql.DB
}

func NewPostgresPrizeRepository(db *sql.DB) PrizeRepository {
	return &postgresPrizeRepository{db: db}
}

func (r *postgresPrizeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const prizeColumns = `
	id, tournament_id, placement, recipient_id, recipient_name, team_id, prize_type,
	amount, currency, percentage_of_pool, status, wallet_id, wallet_address, identity_verified,
	transaction_id, distributed_at, distributed_by, failure_reason, retry_count, last_retry_at,
	tax_form_on_file, tax_form_key, tax_rate, tax_withheld, net_amount, created_at, updated_at`

func scanPrize(row interface{ Scan(...interface{}) error }) (*models.Prize, error) {
	var p models.Prize
	err := row.Scan(
		&p.ID, &p.TournamentID, &p.Placement, &p.RecipientID, &p.RecipientName, &p.TeamID, &p.Type,
		&p.Amount, &p.Currency, &p.PercentageOfPool, &p.Status, &p.WalletID, &p.WalletAddress, &p.IdentityVerified,
		&p.TransactionID, &p.DistributedAt, &p.DistributedBy, &p.FailureReason, &p.RetryCount, &p.LastRetryAt,
		&p.TaxFormOnFile, &p.TaxFormKey, &p.TaxRate, &p.TaxWithheld, &p.NetAmount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPrizeNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresPrizeRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Prize) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO prizes (
			tournament_id, placement, recipient_id, recipient_name, team_id, prize_type,
			amount, currency, percentage_of_pool, status, wallet_id, wallet_address,
			identity_verified, tax_rate, tax_withheld, net_amount
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id, created_at, updated_at`
	err := executor.QueryRowContext(ctx, query,
		p.TournamentID, p.Placement, p.RecipientID, p.RecipientName, p.TeamID, p.Type,
		p.Amount, p.Currency, p.PercentageOfPool, p.Status, p.WalletID, p.WalletAddress,
		p.IdentityVerified, p.TaxRate, p.TaxWithheld, p.NetAmount,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return err
}

func (r *postgresPrizeRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Prize, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, "SELECT "+prizeColumns+" FROM prizes WHERE id=$1", id)
	return scanPrize(row)
}

// GetForUpdate locks a prize row for the duration of a distribution/retry
// transaction, preventing a second worker from racing the same payout.
func (r *postgresPrizeRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Prize, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, "SELECT "+prizeColumns+" FROM prizes WHERE id=$1 FOR UPDATE", id)
	return scanPrize(row)
}

func (r *postgresPrizeRepository) List(ctx context.Context, exec SQLExecutor, filter models.PrizeFilter) ([]models.Prize, int, error) {
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
	if filter.RecipientID != nil {
		where.WriteString(fmt.Sprintf(" AND recipient_id=$%d", argID))
		args = append(args, *filter.RecipientID)
		argID++
	}
	if len(filter.Statuses) > 0 {
		where.WriteString(fmt.Sprintf(" AND status = ANY($%d)", argID))
		args = append(args, pq.Array(filter.Statuses))
		argID++
	}

	var total int
	if err := executor.QueryRowContext(ctx, "SELECT COUNT(*) FROM prizes"+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pg := Pagination{Page: filter.Page, Limit: filter.Limit}
	query := "SELECT " + prizeColumns + " FROM prizes" + where.String() +
		" ORDER BY placement ASC" + fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, pg.limit(), pg.offset())

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]models.Prize, 0)
	for rows.Next() {
		p, scanErr := scanPrize(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (r *postgresPrizeRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Prize, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, "SELECT "+prizeColumns+" FROM prizes WHERE tournament_id=$1 ORDER BY placement ASC", tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Prize, 0)
	for rows.Next() {
		p, scanErr := scanPrize(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *postgresPrizeRepository) ListByRecipient(ctx context.Context, exec SQLExecutor, recipientID int) ([]models.Prize, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, "SELECT "+prizeColumns+" FROM prizes WHERE recipient_id=$1 ORDER BY created_at DESC", recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Prize, 0)
	for rows.Next() {
		p, scanErr := scanPrize(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListRetryEligible finds failed prizes still under the retry ceiling. No
// background sweep calls it; retries go through PrizeService.RetryPrize.
func (r *postgresPrizeRepository) ListRetryEligible(ctx context.Context, exec SQLExecutor) ([]models.Prize, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		"SELECT "+prizeColumns+" FROM prizes WHERE status=$1 AND retry_count<$2 ORDER BY last_retry_at ASC NULLS FIRST",
		models.PrizeFailed, models.MaxPrizeRetries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Prize, 0)
	for rows.Next() {
		p, scanErr := scanPrize(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *postgresPrizeRepository) Update(ctx context.Context, exec SQLExecutor, p *models.Prize) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE prizes SET
			recipient_id=$1, recipient_name=$2, team_id=$3, status=$4,
			wallet_id=$5, wallet_address=$6, identity_verified=$7,
			transaction_id=$8, distributed_at=$9, distributed_by=$10, failure_reason=$11,
			retry_count=$12, last_retry_at=$13,
			tax_form_on_file=$14, tax_form_key=$15, tax_rate=$16, tax_withheld=$17, net_amount=$18,
			updated_at=NOW()
		WHERE id=$19`
	result, err := executor.ExecContext(ctx, query,
		p.RecipientID, p.RecipientName, p.TeamID, p.Status,
		p.WalletID, p.WalletAddress, p.IdentityVerified,
		p.TransactionID, p.DistributedAt, p.DistributedBy, p.FailureReason,
		p.RetryCount, p.LastRetryAt,
		p.TaxFormOnFile, p.TaxFormKey, p.TaxRate, p.TaxWithheld, p.NetAmount,
		p.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPrizeNotFound)
}

func (r *postgresPrizeRepository) ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, prizes []models.Prize) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM prizes WHERE tournament_id=$1`, tournamentID); err != nil {
		return err
	}
	for i := range prizes {
		p := &prizes[i]
		p.TournamentID = tournamentID
		if err := r.Create(ctx, executor, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresPrizeRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM prizes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPrizeNotFound)
}
