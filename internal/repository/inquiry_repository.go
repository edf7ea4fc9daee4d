package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/SuyogBora/picode-server/internal/model"
)

// InquiryRepo encapsulates queries over `inquiries`.
type InquiryRepo struct {
	db *sql.DB
}

func NewInquiryRepo(db *sql.DB) *InquiryRepo {
	return &InquiryRepo{db: db}
}

const inquiryColumns = "id, name, email, phone, company, subject, message, status, assigned_to, created_at, updated_at"

func scanInquiry(row interface{ Scan(...any) error }) (*model.Inquiry, error) {
	var (
		in       model.Inquiry
		assigned sql.NullInt64
	)
	err := row.Scan(&in.ID, &in.Name, &in.Email, &in.Phone, &in.Company, &in.Subject,
		&in.Message, &in.Status, &assigned, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if assigned.Valid {
		v := uint64(assigned.Int64)
		in.AssignedTo = &v
	}
	return &in, nil
}

// Create stores a new inquiry with status "new".
func (r *InquiryRepo) Create(ctx context.Context, in *model.Inquiry) error {
	in.Status = model.InquiryNew
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO inquiries (name, email, phone, company, subject, message, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.Name, in.Email, in.Phone, in.Company, in.Subject, in.Message, in.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	in.ID = uint64(id)
	return nil
}

// GetByID fetches an inquiry.
func (r *InquiryRepo) GetByID(ctx context.Context, id uint64) (*model.Inquiry, error) {
	in, err := scanInquiry(r.db.QueryRowContext(ctx, "SELECT "+inquiryColumns+" FROM inquiries WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return in, err
}

// List returns inquiries newest first, optionally filtered by status.
func (r *InquiryRepo) List(ctx context.Context, status string, limit int) ([]*model.Inquiry, error) {
	q := "SELECT " + inquiryColumns + " FROM inquiries"
	var args []any
	if status != "" {
		q += " WHERE status = ?"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Inquiry{}
	for rows.Next() {
		in, err := scanInquiry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// Update changes status and assignee.  A nil assignee clears it; an
// unknown user id yields ErrConflict through the foreign key.
func (r *InquiryRepo) Update(ctx context.Context, id uint64, status string, assignedTo *uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE inquiries SET status = ?, assigned_to = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, assignedTo, id)
	if err != nil {
		return classifyWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
