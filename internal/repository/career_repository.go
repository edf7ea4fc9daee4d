package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/SuyogBora/picode-server/internal/model"
)

// CareerRepo encapsulates queries over `careers`.
type CareerRepo struct {
	db *sql.DB
}

func NewCareerRepo(db *sql.DB) *CareerRepo {
	return &CareerRepo{db: db}
}

const careerColumns = "id, title, department, location, employment_type, description, requirements, status, created_by, created_at, updated_at"

func scanCareer(row interface{ Scan(...any) error }) (*model.Career, error) {
	var c model.Career
	err := row.Scan(&c.ID, &c.Title, &c.Department, &c.Location, &c.EmploymentType,
		&c.Description, &c.Requirements, &c.Status, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a posting.
func (r *CareerRepo) Create(ctx context.Context, c *model.Career) error {
	if c.Status == "" {
		c.Status = model.CareerOpen
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO careers (title, department, location, employment_type, description, requirements, status, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Title, c.Department, c.Location, c.EmploymentType, c.Description, c.Requirements, c.Status, c.CreatedBy)
	if err != nil {
		return classifyWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches a posting by id.
func (r *CareerRepo) GetByID(ctx context.Context, id uint64) (*model.Career, error) {
	c, err := scanCareer(r.db.QueryRowContext(ctx, "SELECT "+careerColumns+" FROM careers WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// List returns postings newest first, optionally restricted to a status.
func (r *CareerRepo) List(ctx context.Context, status string) ([]*model.Career, error) {
	q := "SELECT " + careerColumns + " FROM careers"
	var args []any
	if status != "" {
		q += " WHERE status = ?"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Career{}
	for rows.Next() {
		c, err := scanCareer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of a posting.
func (r *CareerRepo) Update(ctx context.Context, c *model.Career) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE careers SET title = ?, department = ?, location = ?, employment_type = ?,
		        description = ?, requirements = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		c.Title, c.Department, c.Location, c.EmploymentType, c.Description, c.Requirements, c.Status, c.ID)
	if err != nil {
		return classifyWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a posting.  Postings with applications yield ErrConflict
// through the foreign key.
func (r *CareerRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM careers WHERE id = ?", id)
	if err != nil {
		return classifyWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
