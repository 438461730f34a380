package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// encodeJSONMap/decodeJSONMap round-trip small map-typed columns (prize
// distribution, head-to-head tallies) through jsonb without requiring each
// map type to implement driver.Valuer/sql.Scanner itself.
func encodeJSONMap(v interface{}) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode jsonb map: %w", err)
	}
	return b, nil
}

func decodeJSONMap(raw []byte, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx, letting every
// repository method compose into a caller-supplied transaction without
// knowing whether it owns one.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

// Pagination mirrors the offset/limit convention used across every
// FindMany-style repository method.
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.limit()
}

func (p Pagination) limit() int {
	if p.Limit <= 0 {
		return 20
	}
	if p.Limit > 200 {
		return 200
	}
	return p.Limit
}
