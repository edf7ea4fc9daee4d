package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/SuyogBora/picode-server/internal/model"
)

// PermissionRepo encapsulates queries over `permissions`.  The table has a
// unique index on (resource, action).
type PermissionRepo struct {
	db *sql.DB
}

func NewPermissionRepo(db *sql.DB) *PermissionRepo {
	return &PermissionRepo{db: db}
}

// List returns every permission ordered by resource and action.
func (r *PermissionRepo) List(ctx context.Context) ([]model.Permission, error) {
	const q = `SELECT id, resource, action, description, created_at
	           FROM permissions ORDER BY resource, action`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Permission{}
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Resource, &p.Action, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts a permission.  Resource and action are normalized to
// lower case; a repeated pair yields ErrDuplicate.
func (r *PermissionRepo) Create(ctx context.Context, p *model.Permission) error {
	p.Resource = strings.ToLower(strings.TrimSpace(p.Resource))
	p.Action = strings.ToLower(strings.TrimSpace(p.Action))
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO permissions (resource, action, description) VALUES (?, ?, ?)",
		p.Resource, p.Action, strings.TrimSpace(p.Description))
	if err != nil {
		return classifyWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Delete removes a permission and its role assignments.
func (r *PermissionRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM role_permissions WHERE permission_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM permissions WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
