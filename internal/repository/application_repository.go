package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/SuyogBora/picode-server/internal/model"
)

// ApplicationRepo encapsulates queries over `applications`.
type ApplicationRepo struct {
	db *sql.DB
}

func NewApplicationRepo(db *sql.DB) *ApplicationRepo {
	return &ApplicationRepo{db: db}
}

const applicationColumns = "id, career_id, full_name, email, phone, resume_key, cover_letter, status, notes, created_at, updated_at"

func scanApplication(row interface{ Scan(...any) error }) (*model.Application, error) {
	var a model.Application
	err := row.Scan(&a.ID, &a.CareerID, &a.FullName, &a.Email, &a.Phone, &a.ResumeKey,
		&a.CoverLetter, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ApplicationFilter narrows List.
type ApplicationFilter struct {
	CareerID uint64
	Status   string
	Limit    int
}

// Create stores a submission against an open posting.  A closed or
// missing posting yields ErrConflict or ErrNotFound respectively.
func (r *ApplicationRepo) Create(ctx context.Context, a *model.Application) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, "SELECT status FROM careers WHERE id = ? FOR UPDATE", a.CareerID).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if status != model.CareerOpen {
			return ErrConflict
		}
		a.Status = model.ApplicationApplied
		res, err := tx.ExecContext(ctx,
			`INSERT INTO applications (career_id, full_name, email, phone, resume_key, cover_letter, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.CareerID, a.FullName, a.Email, a.Phone, a.ResumeKey, a.CoverLetter, a.Status)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		a.ID = uint64(id)
		return nil
	})
}

// GetByID fetches a submission.
func (r *ApplicationRepo) GetByID(ctx context.Context, id uint64) (*model.Application, error) {
	a, err := scanApplication(r.db.QueryRowContext(ctx, "SELECT "+applicationColumns+" FROM applications WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// List returns submissions newest first.
func (r *ApplicationRepo) List(ctx context.Context, f ApplicationFilter) ([]*model.Application, error) {
	q := "SELECT " + applicationColumns + " FROM applications WHERE 1=1"
	var args []any
	if f.CareerID != 0 {
		q += " AND career_id = ?"
		args = append(args, f.CareerID)
	}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status)
	}
	q += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateStatus moves a submission through the hiring pipeline and
// records reviewer notes.
func (r *ApplicationRepo) UpdateStatus(ctx context.Context, id uint64, status, notes string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE applications SET status = ?, notes = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, notes, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
