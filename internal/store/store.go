// Package store persists optiscreen records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/optiscreen/pkg/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("store: unique constraint violated")
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store groups the repositories. A Store returned to a WithTx callback is
// bound to that transaction.
type Store struct {
	db  *sql.DB
	tx  *sql.Tx
	log zerolog.Logger
	now func() time.Time

	Investments *InvestmentRepository
	Screeners   *ScreenerRepository
	Financials  *FinancialStatementRepository
	Reports     *ReportRepository
	Cboe        *CboeRepository
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New builds a Store over db.
func New(db *sql.DB, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{db: db, log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.bind(db)
	return s
}

func (s *Store) bind(q DBTX) {
	clock := func() time.Time { return s.now().UTC() }
	s.Investments = &InvestmentRepository{q: q, now: clock, log: s.log.With().Str("repo", "investment").Logger()}
	s.Screeners = &ScreenerRepository{q: q, now: clock, log: s.log.With().Str("repo", "screener").Logger()}
	s.Financials = &FinancialStatementRepository{q: q, now: clock}
	s.Reports = &ReportRepository{q: q, now: clock}
	s.Cboe = &CboeRepository{q: q, now: clock, log: s.log.With().Str("repo", "cboe").Logger()}
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
// Nested calls reuse the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	bound := &Store{db: s.db, tx: tx, log: s.log, now: s.now}
	bound.bind(tx)

	if err := fn(bound); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ── column helpers ──

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func timeArg(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func decimalArg(d decimal.NullDecimal, spec models.DecimalSpec) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.StringFixed(spec.Places)
}

func scanDecimal(ns sql.NullString) (decimal.NullDecimal, error) {
	if !ns.Valid || ns.String == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return models.NewNullDecimal(d), nil
}

func dateArg(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanDate(ns sql.NullString) (*models.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := models.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func boolArg(b bool) int {
	if b {
		return 1
	}
	return 0
}

func wrapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func checkAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
