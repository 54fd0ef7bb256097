package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/chaudhuree/home-repair/internal/model"
)

// ServiceRepo provides CRUD operations over the services catalog table.
type ServiceRepo struct{ db *sql.DB }

// NewServiceRepo returns a ServiceRepo bound to the given database.
func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

const serviceColumns = `id, name, description, price, duration_min, created_at, updated_at`

func scanService(row interface{ Scan(...any) error }) (model.Service, error) {
	var s model.Service
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.DurationMin, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a catalog entry and reads back the stored row so the
// caller sees database-assigned timestamps.
func (r *ServiceRepo) Create(ctx context.Context, s *model.Service) error {
	const q = `INSERT INTO services (id, name, description, price, duration_min) VALUES (?,?,?,?,?)`
	if _, err := r.db.ExecContext(ctx, q, s.ID, s.Name, s.Description, s.Price, s.DurationMin); err != nil {
		return err
	}
	created, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = created
	return nil
}

// GetByID fetches one catalog entry. Returns sql.ErrNoRows when absent.
func (r *ServiceRepo) GetByID(ctx context.Context, id string) (model.Service, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id=? LIMIT 1`, id)
	return scanService(row)
}

// ServiceUpdate is a partial update payload; nil fields keep their
// current value.
type ServiceUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	DurationMin *uint32
}

// Update applies the non-nil fields of upd and returns the fresh row.
// Returns sql.ErrNoRows when the entry does not exist.
func (r *ServiceRepo) Update(ctx context.Context, id string, upd ServiceUpdate) (model.Service, error) {
	sets := []string{}
	args := []any{}
	if upd.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *upd.Name)
	}
	if upd.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *upd.Description)
	}
	if upd.Price != nil {
		sets = append(sets, "price=?")
		args = append(args, *upd.Price)
	}
	if upd.DurationMin != nil {
		sets = append(sets, "duration_min=?")
		args = append(args, *upd.DurationMin)
	}
	if len(sets) > 0 {
		args = append(args, id)
		if _, err := r.db.ExecContext(ctx, `UPDATE services SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...); err != nil {
			return model.Service{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a catalog entry. Returns sql.ErrNoRows when nothing
// was deleted.
func (r *ServiceRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ServiceQuery defines the fixed filter schema for the catalog list.
// SearchTerm matches name and description by substring.
type ServiceQuery struct {
	SearchTerm string
	Page       PageOptions
}

var serviceSortable = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
	"price":     "price",
}

// List returns a page of catalog entries plus the total matching count.
func (r *ServiceRepo) List(ctx context.Context, q ServiceQuery) ([]model.Service, int64, error) {
	cond := "1=1"
	args := []any{}
	if q.SearchTerm != "" {
		cond = "(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)"
		term := "%" + strings.ToLower(q.SearchTerm) + "%"
		args = append(args, term, term)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM services WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	opts := q.Page.Normalized()
	dataSQL := `SELECT ` + serviceColumns + ` FROM services WHERE ` + cond +
		` ORDER BY ` + opts.orderClause(serviceSortable, "created_at") + ` LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataSQL, append(append([]any{}, args...), opts.Limit, opts.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Service, 0, opts.Limit)
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
