package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Dosada05/tourney-engine/models"
	"github.com/lib/pq"
)

var ErrBracketNotFound = errors.New("bracket not found")

type BracketRepository interface {
	Create(ctx context.Context, exec SQLExecutor, b *models.Bracket) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Bracket, error)
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Bracket, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Bracket, error)
	GetByTournamentAndType(ctx context.Context, exec SQLExecutor, tournamentID int, bracketType models.BracketType) (*models.Bracket, error)
	Update(ctx context.Context, exec SQLExecutor, b *models.Bracket) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const bracketColumns = `
	id, tournament_id, type, format, status, total_rounds, current_round,
	total_matches, completed_matches, participant_count, bye_count,
	seed_snapshot, visualization, metadata, created_at, updated_at`

func scanBracket(row interface{ Scan(...interface{}) error }) (*models.Bracket, error) {
	var b models.Bracket
	var seedSnapshot pq.Int64Array
	var visualization []byte
	err := row.Scan(
		&b.ID, &b.TournamentID, &b.Type, &b.Format, &b.Status, &b.TotalRounds, &b.CurrentRound,
		&b.TotalMatches, &b.CompletedMatches, &b.ParticipantCount, &b.ByeCount,
		&seedSnapshot, &visualization, &b.Metadata, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}
	b.SeedSnapshot = make([]int, len(seedSnapshot))
	for i, v := range seedSnapshot {
		b.SeedSnapshot[i] = int(v)
	}
	if len(visualization) > 0 {
		_ = json.Unmarshal(visualization, &b.Visualization)
	}
	return &b, nil
}

func (r *postgresBracketRepository) Create(ctx context.Context, exec SQLExecutor, b *models.Bracket) error {
	executor := r.getExecutor(exec)
	viz, err := json.Marshal(b.Visualization)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO brackets (
			tournament_id, type, format, status, total_rounds, current_round,
			total_matches, completed_matches, participant_count, bye_count,
			seed_snapshot, visualization, metadata
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id, created_at, updated_at`
	err = executor.QueryRowContext(ctx, query,
		b.TournamentID, b.Type, b.Format, b.Status, b.TotalRounds, b.CurrentRound,
		b.TotalMatches, b.CompletedMatches, b.ParticipantCount, b.ByeCount,
		pq.Array(toInt64Slice(b.SeedSnapshot)), viz, b.Metadata,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return err
}

func (r *postgresBracketRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Bracket, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, "SELECT "+bracketColumns+" FROM brackets WHERE id=$1", id)
	return scanBracket(row)
}

func (r *postgresBracketRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Bracket, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, "SELECT "+bracketColumns+" FROM brackets WHERE id=$1 FOR UPDATE", id)
	return scanBracket(row)
}

func (r *postgresBracketRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Bracket, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, "SELECT "+bracketColumns+" FROM brackets WHERE tournament_id=$1 ORDER BY id ASC", tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Bracket, 0)
	for rows.Next() {
		b, scanErr := scanBracket(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *postgresBracketRepository) GetByTournamentAndType(ctx context.Context, exec SQLExecutor, tournamentID int, bracketType models.BracketType) (*models.Bracket, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, "SELECT "+bracketColumns+" FROM brackets WHERE tournament_id=$1 AND type=$2", tournamentID, bracketType)
	return scanBracket(row)
}

func (r *postgresBracketRepository) Update(ctx context.Context, exec SQLExecutor, b *models.Bracket) error {
	executor := r.getExecutor(exec)
	viz, err := json.Marshal(b.Visualization)
	if err != nil {
		return err
	}
	query := `
		UPDATE brackets SET
			status=$1, total_rounds=$2, current_round=$3, total_matches=$4,
			completed_matches=$5, participant_count=$6, bye_count=$7,
			seed_snapshot=$8, visualization=$9, metadata=$10, updated_at=NOW()
		WHERE id=$11`
	result, err := executor.ExecContext(ctx, query,
		b.Status, b.TotalRounds, b.CurrentRound, b.TotalMatches,
		b.CompletedMatches, b.ParticipantCount, b.ByeCount,
		pq.Array(toInt64Slice(b.SeedSnapshot)), viz, b.Metadata, b.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

func (r *postgresBracketRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM brackets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}
