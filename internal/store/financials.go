package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seenimoa/optiscreen/pkg/models"
)

const financialColumns = `id, symbol, target_currency, period_type, statement_type, payload, created_at, updated_at`

// FinancialStatementRepository handles financial_statements.
type FinancialStatementRepository struct {
	q   DBTX
	now func() time.Time
}

// FinancialFilter narrows List with case-insensitive exact matches.
type FinancialFilter struct {
	Symbol         string
	TargetCurrency string
	PeriodType     string
	StatementType  string
}

// List returns statements ordered by symbol, statement type and id.
func (r *FinancialStatementRepository) List(ctx context.Context, f FinancialFilter) ([]models.FinancialStatement, error) {
	var conds []string
	var args []any
	for col, v := range map[string]string{
		"symbol":          f.Symbol,
		"target_currency": f.TargetCurrency,
		"period_type":     f.PeriodType,
		"statement_type":  f.StatementType,
	} {
		if v = strings.TrimSpace(v); v != "" {
			conds = append(conds, col+" = ? COLLATE NOCASE")
			args = append(args, v)
		}
	}
	query := "SELECT " + financialColumns + " FROM financial_statements"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	rows, err := r.q.QueryContext(ctx, query+" ORDER BY symbol, statement_type, id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query financial statements: %w", err)
	}
	defer rows.Close()

	out := []models.FinancialStatement{}
	for rows.Next() {
		fs, err := scanFinancial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan financial statement: %w", err)
		}
		out = append(out, fs)
	}
	return out, rows.Err()
}

// Get returns the statement with id.
func (r *FinancialStatementRepository) Get(ctx context.Context, id int64) (*models.FinancialStatement, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+financialColumns+" FROM financial_statements WHERE id = ?", id)
	fs, err := scanFinancial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load financial statement: %w", err)
	}
	return &fs, nil
}

// Create inserts fs.
func (r *FinancialStatementRepository) Create(ctx context.Context, fs *models.FinancialStatement) error {
	now := r.now()
	res, err := r.q.ExecContext(ctx, `INSERT INTO financial_statements
		(symbol, target_currency, period_type, statement_type, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fs.Symbol, fs.TargetCurrency, fs.PeriodType, fs.StatementType, string(fs.Payload),
		timeArg(now), timeArg(now))
	if err != nil {
		return wrapWriteErr("create financial statement", err)
	}
	fs.CreatedAt, fs.UpdatedAt = now, now
	fs.ID, err = res.LastInsertId()
	return err
}

// Update writes every column of fs by id.
func (r *FinancialStatementRepository) Update(ctx context.Context, fs *models.FinancialStatement) error {
	fs.UpdatedAt = r.now()
	res, err := r.q.ExecContext(ctx, `UPDATE financial_statements SET
		symbol = ?, target_currency = ?, period_type = ?, statement_type = ?, payload = ?, updated_at = ?
		WHERE id = ?`,
		fs.Symbol, fs.TargetCurrency, fs.PeriodType, fs.StatementType, string(fs.Payload),
		timeArg(fs.UpdatedAt), fs.ID)
	if err != nil {
		return wrapWriteErr("update financial statement", err)
	}
	return checkAffected(res, "update financial statement")
}

// Delete removes the statement with id.
func (r *FinancialStatementRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM financial_statements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete financial statement: %w", err)
	}
	return checkAffected(res, "delete financial statement")
}

// Upsert normalizes fs and inserts or replaces the payload of the statement
// with the same key. It reports whether a new row was created.
func (r *FinancialStatementRepository) Upsert(ctx context.Context, fs *models.FinancialStatement) (bool, error) {
	fs.Normalize()
	row := r.q.QueryRowContext(ctx, "SELECT "+financialColumns+` FROM financial_statements
		WHERE symbol = ? AND target_currency = ? AND period_type = ? AND statement_type = ?`,
		fs.Symbol, fs.TargetCurrency, fs.PeriodType, fs.StatementType)
	existing, err := scanFinancial(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return true, r.Create(ctx, fs)
	case err != nil:
		return false, fmt.Errorf("failed to load financial statement: %w", err)
	}
	fs.ID = existing.ID
	fs.CreatedAt = existing.CreatedAt
	return false, r.Update(ctx, fs)
}

func scanFinancial(s rowScanner) (models.FinancialStatement, error) {
	var (
		fs                   models.FinancialStatement
		payload              string
		createdAt, updatedAt string
	)
	err := s.Scan(&fs.ID, &fs.Symbol, &fs.TargetCurrency, &fs.PeriodType, &fs.StatementType,
		&payload, &createdAt, &updatedAt)
	if err != nil {
		return fs, err
	}
	fs.Payload = json.RawMessage(payload)
	if fs.CreatedAt, err = parseTime(createdAt); err != nil {
		return fs, err
	}
	fs.UpdatedAt, err = parseTime(updatedAt)
	return fs, err
}
