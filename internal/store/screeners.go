package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/optiscreen/pkg/models"
)

const (
	screenerTypeColumns   = `id, name, description, created_at, updated_at`
	screenerFilterColumns = `id, screener_type_id, label, payload, display_order, created_at, updated_at`
)

// ScreenerRepository handles screener_types and screener_filters.
type ScreenerRepository struct {
	q   DBTX
	now func() time.Time
	log zerolog.Logger
}

// FilterSpec is a filter as produced by the screener list sync.
type FilterSpec struct {
	Label   string
	Payload json.RawMessage
}

// ListTypes returns every screener type with its filters, ordered by name.
func (r *ScreenerRepository) ListTypes(ctx context.Context, name string) ([]models.ScreenerType, error) {
	query := "SELECT " + screenerTypeColumns + " FROM screener_types"
	var args []any
	if name != "" {
		query += " WHERE name = ? COLLATE NOCASE"
		args = append(args, name)
	}
	rows, err := r.q.QueryContext(ctx, query+" ORDER BY name, id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query screener types: %w", err)
	}
	var types []models.ScreenerType
	for rows.Next() {
		st, err := scanScreenerType(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan screener type: %w", err)
		}
		types = append(types, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	filters, err := r.ListFilters(ctx, 0)
	if err != nil {
		return nil, err
	}
	byType := make(map[int64][]models.ScreenerFilter)
	for _, f := range filters {
		byType[f.ScreenerTypeID] = append(byType[f.ScreenerTypeID], f)
	}
	for i := range types {
		types[i].Filters = byType[types[i].ID]
		if types[i].Filters == nil {
			types[i].Filters = []models.ScreenerFilter{}
		}
	}
	return types, nil
}

// GetType returns the screener type with id and its filters.
func (r *ScreenerRepository) GetType(ctx context.Context, id int64) (*models.ScreenerType, error) {
	return r.getType(ctx, "id = ?", id)
}

// GetTypeByName returns the screener type with name and its filters.
func (r *ScreenerRepository) GetTypeByName(ctx context.Context, name string) (*models.ScreenerType, error) {
	return r.getType(ctx, "name = ?", name)
}

func (r *ScreenerRepository) getType(ctx context.Context, cond string, arg any) (*models.ScreenerType, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+screenerTypeColumns+" FROM screener_types WHERE "+cond, arg)
	st, err := scanScreenerType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load screener type: %w", err)
	}
	if st.Filters, err = r.ListFilters(ctx, st.ID); err != nil {
		return nil, err
	}
	return &st, nil
}

// CreateType inserts st.
func (r *ScreenerRepository) CreateType(ctx context.Context, st *models.ScreenerType) error {
	now := r.now()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO screener_types (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		st.Name, st.Description, timeArg(now), timeArg(now))
	if err != nil {
		return wrapWriteErr("create screener type", err)
	}
	st.CreatedAt, st.UpdatedAt = now, now
	if st.Filters == nil {
		st.Filters = []models.ScreenerFilter{}
	}
	st.ID, err = res.LastInsertId()
	return err
}

// UpdateType writes name and description.
func (r *ScreenerRepository) UpdateType(ctx context.Context, st *models.ScreenerType) error {
	st.UpdatedAt = r.now()
	res, err := r.q.ExecContext(ctx,
		`UPDATE screener_types SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		st.Name, st.Description, timeArg(st.UpdatedAt), st.ID)
	if err != nil {
		return wrapWriteErr("update screener type", err)
	}
	return checkAffected(res, "update screener type")
}

// DeleteType removes the type and, through the foreign key, its filters.
func (r *ScreenerRepository) DeleteType(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM screener_types WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete screener type: %w", err)
	}
	return checkAffected(res, "delete screener type")
}

// UpsertType creates the named type or updates its description.
func (r *ScreenerRepository) UpsertType(ctx context.Context, name, description string) (*models.ScreenerType, error) {
	st, err := r.GetTypeByName(ctx, name)
	switch {
	case errors.Is(err, ErrNotFound):
		st = &models.ScreenerType{Name: name, Description: description}
		if err := r.CreateType(ctx, st); err != nil {
			return nil, err
		}
		return st, nil
	case err != nil:
		return nil, err
	}
	if st.Description != description {
		st.Description = description
		if err := r.UpdateType(ctx, st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// ListFilters returns filters ordered by display_order. typeID 0 lists all.
func (r *ScreenerRepository) ListFilters(ctx context.Context, typeID int64) ([]models.ScreenerFilter, error) {
	query := "SELECT " + screenerFilterColumns + " FROM screener_filters"
	var args []any
	if typeID > 0 {
		query += " WHERE screener_type_id = ?"
		args = append(args, typeID)
	}
	rows, err := r.q.QueryContext(ctx, query+" ORDER BY screener_type_id, display_order, id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query screener filters: %w", err)
	}
	defer rows.Close()

	out := []models.ScreenerFilter{}
	for rows.Next() {
		f, err := scanScreenerFilter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan screener filter: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetFilter returns the filter with id.
func (r *ScreenerRepository) GetFilter(ctx context.Context, id int64) (*models.ScreenerFilter, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+screenerFilterColumns+" FROM screener_filters WHERE id = ?", id)
	f, err := scanScreenerFilter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load screener filter: %w", err)
	}
	return &f, nil
}

// CreateFilter inserts f.
func (r *ScreenerRepository) CreateFilter(ctx context.Context, f *models.ScreenerFilter) error {
	now := r.now()
	res, err := r.q.ExecContext(ctx, `INSERT INTO screener_filters
		(screener_type_id, label, payload, display_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.ScreenerTypeID, f.Label, string(f.Payload), f.DisplayOrder, timeArg(now), timeArg(now))
	if err != nil {
		return wrapWriteErr("create screener filter", err)
	}
	f.CreatedAt, f.UpdatedAt = now, now
	f.ID, err = res.LastInsertId()
	return err
}

// UpdateFilter writes every column of f by id.
func (r *ScreenerRepository) UpdateFilter(ctx context.Context, f *models.ScreenerFilter) error {
	f.UpdatedAt = r.now()
	res, err := r.q.ExecContext(ctx, `UPDATE screener_filters SET
		screener_type_id = ?, label = ?, payload = ?, display_order = ?, updated_at = ?
		WHERE id = ?`,
		f.ScreenerTypeID, f.Label, string(f.Payload), f.DisplayOrder, timeArg(f.UpdatedAt), f.ID)
	if err != nil {
		return wrapWriteErr("update screener filter", err)
	}
	return checkAffected(res, "update screener filter")
}

// DeleteFilter removes the filter with id.
func (r *ScreenerRepository) DeleteFilter(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM screener_filters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete screener filter: %w", err)
	}
	return checkAffected(res, "delete screener filter")
}

// SyncFilters makes the type's filters match specs. Filters are matched by
// label; display_order follows spec order starting at 1. Labels not present
// in specs are deleted.
func (r *ScreenerRepository) SyncFilters(ctx context.Context, typeID int64, specs []FilterSpec) error {
	existing, err := r.ListFilters(ctx, typeID)
	if err != nil {
		return err
	}
	byLabel := make(map[string]*models.ScreenerFilter, len(existing))
	for i := range existing {
		byLabel[existing[i].Label] = &existing[i]
	}

	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		seen[spec.Label] = true
		order := i + 1
		if f, ok := byLabel[spec.Label]; ok {
			f.Payload = spec.Payload
			f.DisplayOrder = order
			if err := r.UpdateFilter(ctx, f); err != nil {
				return err
			}
			continue
		}
		f := &models.ScreenerFilter{
			ScreenerTypeID: typeID,
			Label:          spec.Label,
			Payload:        spec.Payload,
			DisplayOrder:   order,
		}
		if err := r.CreateFilter(ctx, f); err != nil {
			return err
		}
		byLabel[spec.Label] = f
	}

	for _, f := range existing {
		if !seen[f.Label] {
			if err := r.DeleteFilter(ctx, f.ID); err != nil {
				return err
			}
		}
	}
	r.log.Debug().Int64("screener_type", typeID).Int("filters", len(specs)).Msg("synced screener filters")
	return nil
}

func scanScreenerType(s rowScanner) (models.ScreenerType, error) {
	var (
		st                   models.ScreenerType
		createdAt, updatedAt string
	)
	if err := s.Scan(&st.ID, &st.Name, &st.Description, &createdAt, &updatedAt); err != nil {
		return st, err
	}
	var err error
	if st.CreatedAt, err = parseTime(createdAt); err != nil {
		return st, err
	}
	st.UpdatedAt, err = parseTime(updatedAt)
	return st, err
}

func scanScreenerFilter(s rowScanner) (models.ScreenerFilter, error) {
	var (
		f                    models.ScreenerFilter
		payload              string
		createdAt, updatedAt string
	)
	if err := s.Scan(&f.ID, &f.ScreenerTypeID, &f.Label, &payload, &f.DisplayOrder, &createdAt, &updatedAt); err != nil {
		return f, err
	}
	f.Payload = json.RawMessage(payload)
	var err error
	if f.CreatedAt, err = parseTime(createdAt); err != nil {
		return f, err
	}
	f.UpdatedAt, err = parseTime(updatedAt)
	return f, err
}
