package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/SuyogBora/picode-server/internal/database"
	"github.com/SuyogBora/picode-server/internal/model"
)

// RoleRepo encapsulates queries over `roles` and `role_permissions`.
type RoleRepo struct {
	db *sql.DB
}

// NewRoleRepo constructs a RoleRepo with the provided DB handle.
func NewRoleRepo(db *sql.DB) *RoleRepo {
	return &RoleRepo{db: db}
}

// roleWithPermsColumns selects a role joined to its (possibly absent)
// permissions.  Rows are ordered by role then permission so that
// scanRolesWithPermissions can group them in one pass.
const roleWithPermsColumns = `r.id, r.name, r.description, r.is_default, r.created_at, r.updated_at,
	p.id, p.resource, p.action, p.description, p.created_at`

// List returns every role with its resolved permissions ordered by name.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	q := `SELECT ` + roleWithPermsColumns + `
	      FROM roles r
	      LEFT JOIN role_permissions rp ON rp.role_id = r.id
	      LEFT JOIN permissions p ON p.id = rp.permission_id
	      ORDER BY r.name, r.id, p.resource, p.action`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRolesWithPermissions(rows)
}

// GetByID returns a role with its resolved permissions or ErrNotFound.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (*model.Role, error) {
	q := `SELECT ` + roleWithPermsColumns + `
	      FROM roles r
	      LEFT JOIN role_permissions rp ON rp.role_id = r.id
	      LEFT JOIN permissions p ON p.id = rp.permission_id
	      WHERE r.id = ?
	      ORDER BY r.id, p.resource, p.action`
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles, err := scanRolesWithPermissions(rows)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, ErrNotFound
	}
	return &roles[0], nil
}

// GetDefault returns the role flagged is_default, or ErrNotFound when no
// role carries the flag.
func (r *RoleRepo) GetDefault(ctx context.Context) (*model.Role, error) {
	const q = `SELECT id, name, description, is_default, created_at, updated_at
	           FROM roles WHERE is_default = 1 ORDER BY id LIMIT 1`
	var role model.Role
	err := r.db.QueryRowContext(ctx, q).Scan(&role.ID, &role.Name, &role.Description, &role.IsDefault, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// Create inserts a role and its permission assignments in one
// transaction.  When role.IsDefault is set every other role loses the
// flag first.  role.ID is populated on success.
func (r *RoleRepo) Create(ctx context.Context, role *model.Role) error {
	role.Name = strings.TrimSpace(role.Name)
	ids := dedupeIDs(role.PermissionIDs)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if role.IsDefault {
			if _, err := tx.ExecContext(ctx, "UPDATE roles SET is_default = 0 WHERE is_default = 1"); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO roles (name, description, is_default) VALUES (?, ?, ?)",
			role.Name, role.Description, role.IsDefault)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		role.ID = uint64(id)
		return replaceRolePermissions(ctx, tx, role.ID, ids)
	})
	if err != nil {
		return classifyWriteErr(err)
	}
	role.PermissionIDs = ids
	return nil
}

// Update changes a role's name, description and permission set.
func (r *RoleRepo) Update(ctx context.Context, role *model.Role) error {
	role.Name = strings.TrimSpace(role.Name)
	ids := dedupeIDs(role.PermissionIDs)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE roles SET name = ?, description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			role.Name, role.Description, role.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// MySQL reports 0 affected rows for a no-op update too; tell
			// the two apart before giving up.
			var exists int
			if err := tx.QueryRowContext(ctx, "SELECT 1 FROM roles WHERE id = ?", role.ID).Scan(&exists); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrNotFound
				}
				return err
			}
		}
		return replaceRolePermissions(ctx, tx, role.ID, ids)
	})
	if err != nil {
		return classifyWriteErr(err)
	}
	role.PermissionIDs = ids
	return nil
}

// SetDefault flags the role as the default for new registrations and
// clears the flag on every other role, keeping at most one default.
func (r *RoleRepo) SetDefault(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE roles SET is_default = 0 WHERE is_default = 1 AND id <> ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "UPDATE roles SET is_default = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Delete removes a role.  Roles still assigned to users yield ErrConflict.
func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var assigned int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_roles WHERE role_id = ?", id).Scan(&assigned); err != nil {
			return err
		}
		if assigned > 0 {
			return ErrConflict
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM role_permissions WHERE role_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM roles WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// replaceRolePermissions swaps the role's permission set for ids.
func replaceRolePermissions(ctx context.Context, tx *sql.Tx, roleID uint64, ids []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM role_permissions WHERE role_id = ?", roleID); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)*2)
	values := make([]string, 0, len(ids))
	for _, pid := range ids {
		values = append(values, "(?, ?)")
		args = append(args, roleID, pid)
	}
	q := "INSERT INTO role_permissions (role_id, permission_id) VALUES " + strings.Join(values, ", ")
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// classifyWriteErr maps driver errors onto repository sentinels.
func classifyWriteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return err
	case database.IsDuplicateKey(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// scanRolesWithPermissions groups role+permission join rows (ordered by
// role) into resolved roles.
func scanRolesWithPermissions(rows *sql.Rows) ([]model.Role, error) {
	var (
		out   []model.Role
		index = map[uint64]int{}
	)
	for rows.Next() {
		var (
			role   model.Role
			pID    sql.NullInt64
			pRes   sql.NullString
			pAct   sql.NullString
			pDesc  sql.NullString
			pCreat sql.NullTime
		)
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsDefault, &role.CreatedAt, &role.UpdatedAt,
			&pID, &pRes, &pAct, &pDesc, &pCreat); err != nil {
			return nil, err
		}
		i, ok := index[role.ID]
		if !ok {
			role.Permissions = []model.Permission{}
			role.PermissionIDs = []uint64{}
			out = append(out, role)
			i = len(out) - 1
			index[role.ID] = i
		}
		if pID.Valid {
			p := model.Permission{
				ID:          uint64(pID.Int64),
				Resource:    pRes.String,
				Action:      pAct.String,
				Description: pDesc.String,
				CreatedAt:   pCreat.Time,
			}
			out[i].Permissions = append(out[i].Permissions, p)
			out[i].PermissionIDs = append(out[i].PermissionIDs, p.ID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
