package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/optiscreen/pkg/models"
)

// CboeRepository handles cboe_securities.
type CboeRepository struct {
	q   DBTX
	now func() time.Time
	log zerolog.Logger
}

// List returns securities ordered by symbol, optionally filtered by a
// case-insensitive substring.
func (r *CboeRepository) List(ctx context.Context, contains string) ([]models.CboeSecurity, error) {
	query := `SELECT id, symbol, created_at, updated_at FROM cboe_securities`
	var args []any
	if contains = strings.TrimSpace(contains); contains != "" {
		query += ` WHERE LOWER(symbol) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(contains))+"%")
	}
	rows, err := r.q.QueryContext(ctx, query+" ORDER BY symbol", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cboe securities: %w", err)
	}
	defer rows.Close()

	out := []models.CboeSecurity{}
	for rows.Next() {
		sec, err := scanCboe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cboe security: %w", err)
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

// Get returns the security with id.
func (r *CboeRepository) Get(ctx context.Context, id int64) (*models.CboeSecurity, error) {
	row := r.q.QueryRowContext(ctx, `SELECT id, symbol, created_at, updated_at FROM cboe_securities WHERE id = ?`, id)
	sec, err := scanCboe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cboe security: %w", err)
	}
	return &sec, nil
}

// Replace makes the table hold exactly symbols. Existing rows keep their
// created_at. It returns the number of distinct symbols stored.
func (r *CboeRepository) Replace(ctx context.Context, symbols []string) (int, error) {
	now := timeArg(r.now())
	unique := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || unique[s] {
			continue
		}
		unique[s] = true
		_, err := r.q.ExecContext(ctx, `INSERT INTO cboe_securities (symbol, created_at, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT (symbol) DO UPDATE SET updated_at = excluded.updated_at`, s, now, now)
		if err != nil {
			return 0, wrapWriteErr("upsert cboe security", err)
		}
	}

	query := `DELETE FROM cboe_securities`
	var args []any
	if len(unique) > 0 {
		query += ` WHERE symbol NOT IN (` + placeholders(len(unique)) + `)`
		for s := range unique {
			args = append(args, s)
		}
	}
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune cboe securities: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		r.log.Info().Int64("removed", n).Msg("pruned cboe securities")
	}
	return len(unique), nil
}

func scanCboe(s rowScanner) (models.CboeSecurity, error) {
	var (
		sec                  models.CboeSecurity
		createdAt, updatedAt string
	)
	if err := s.Scan(&sec.ID, &sec.Symbol, &createdAt, &updatedAt); err != nil {
		return sec, err
	}
	var err error
	if sec.CreatedAt, err = parseTime(createdAt); err != nil {
		return sec, err
	}
	sec.UpdatedAt, err = parseTime(updatedAt)
	return sec, err
}
