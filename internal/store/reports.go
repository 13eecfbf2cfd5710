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

const reportColumns = `id, symbol, rating, confidence, model_name, report, financial_data, created_at`

// ReportRepository handles due_diligence_reports.
type ReportRepository struct {
	q   DBTX
	now func() time.Time
}

// ReportFilter narrows List with case-insensitive exact matches.
type ReportFilter struct {
	Symbol string
	Rating string
}

// List returns reports, newest first.
func (r *ReportRepository) List(ctx context.Context, f ReportFilter) ([]models.DueDiligenceReport, error) {
	var conds []string
	var args []any
	if s := strings.TrimSpace(f.Symbol); s != "" {
		conds = append(conds, "symbol = ? COLLATE NOCASE")
		args = append(args, s)
	}
	if s := strings.TrimSpace(f.Rating); s != "" {
		conds = append(conds, "rating = ? COLLATE NOCASE")
		args = append(args, s)
	}
	query := "SELECT " + reportColumns + " FROM due_diligence_reports"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	rows, err := r.q.QueryContext(ctx, query+" ORDER BY created_at DESC, symbol, id DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	out := []models.DueDiligenceReport{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// Get returns the report with id.
func (r *ReportRepository) Get(ctx context.Context, id int64) (*models.DueDiligenceReport, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+reportColumns+" FROM due_diligence_reports WHERE id = ?", id)
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return &rep, nil
}

// Create inserts rep.
func (r *ReportRepository) Create(ctx context.Context, rep *models.DueDiligenceReport) error {
	now := r.now()
	res, err := r.q.ExecContext(ctx, `INSERT INTO due_diligence_reports
		(symbol, rating, confidence, model_name, report, financial_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rep.Symbol, rep.Rating, rep.Confidence, rep.ModelName, string(rep.Report),
		string(rep.FinancialData), timeArg(now))
	if err != nil {
		return wrapWriteErr("create report", err)
	}
	rep.CreatedAt = now
	rep.ID, err = res.LastInsertId()
	return err
}

// Update writes every column except created_at.
func (r *ReportRepository) Update(ctx context.Context, rep *models.DueDiligenceReport) error {
	res, err := r.q.ExecContext(ctx, `UPDATE due_diligence_reports SET
		symbol = ?, rating = ?, confidence = ?, model_name = ?, report = ?, financial_data = ?
		WHERE id = ?`,
		rep.Symbol, rep.Rating, rep.Confidence, rep.ModelName, string(rep.Report),
		string(rep.FinancialData), rep.ID)
	if err != nil {
		return wrapWriteErr("update report", err)
	}
	return checkAffected(res, "update report")
}

// Delete removes the report with id.
func (r *ReportRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM due_diligence_reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return checkAffected(res, "delete report")
}

func scanReport(s rowScanner) (models.DueDiligenceReport, error) {
	var (
		rep                   models.DueDiligenceReport
		confidence            sql.NullFloat64
		report, financialData string
		createdAt             string
	)
	err := s.Scan(&rep.ID, &rep.Symbol, &rep.Rating, &confidence, &rep.ModelName,
		&report, &financialData, &createdAt)
	if err != nil {
		return rep, err
	}
	if confidence.Valid {
		c := confidence.Float64
		rep.Confidence = &c
	}
	rep.Report = json.RawMessage(report)
	rep.FinancialData = json.RawMessage(financialData)
	rep.CreatedAt, err = parseTime(createdAt)
	return rep, err
}
