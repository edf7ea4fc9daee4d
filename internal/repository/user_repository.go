package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/SuyogBora/picode-server/internal/model"
	"github.com/SuyogBora/picode-server/internal/utils"
)

// UserRepo encapsulates queries over `users` and `user_roles`.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, email, name, password_hash, is_active, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }, u *model.User) error {
	return row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

// Create inserts a user, hashes its password and assigns roleIDs in one
// transaction.  It returns the new user's ID.
func (r *UserRepo) Create(ctx context.Context, email, name, password string, roleIDs []uint64, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	var id uint64
	err = withTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO users (email, name, password_hash) VALUES (?,?,?)",
			email, strings.TrimSpace(name), hash)
		if err != nil {
			return err
		}
		lid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		id = uint64(lid)
		return replaceUserRoles(ctx, tx, id, dedupeIDs(roleIDs))
	})
	if err != nil {
		if err = classifyWriteErr(err); errors.Is(err, ErrDuplicate) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return id, nil
}

// GetByEmail fetches a user by normalized email without roles.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email), &u)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id with unresolved role references only.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id), &u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, ErrNotFound
		}
		return u, err
	}
	rows, err := r.DB.QueryContext(ctx, "SELECT role_id FROM user_roles WHERE user_id = ? ORDER BY role_id", id)
	if err != nil {
		return u, err
	}
	defer rows.Close()
	u.RoleIDs = []uint64{}
	for rows.Next() {
		var rid uint64
		if err := rows.Scan(&rid); err != nil {
			return u, err
		}
		u.RoleIDs = append(u.RoleIDs, rid)
	}
	return u, rows.Err()
}

// GetPrincipal loads the user together with its roles and every role's
// permissions, producing the resolved principal that rbac checks expect.
func (r *UserRepo) GetPrincipal(ctx context.Context, id uint64) (*model.Principal, error) {
	var u model.User
	err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id), &u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	q := `SELECT ` + roleWithPermsColumns + `
	      FROM user_roles ur
	      JOIN roles r ON r.id = ur.role_id
	      LEFT JOIN role_permissions rp ON rp.role_id = r.id
	      LEFT JOIN permissions p ON p.id = rp.permission_id
	      WHERE ur.user_id = ?
	      ORDER BY r.id, p.resource, p.action`
	rows, err := r.DB.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles, err := scanRolesWithPermissions(rows)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	u.RoleIDs = make([]uint64, 0, len(roles))
	for _, role := range roles {
		u.RoleIDs = append(u.RoleIDs, role.ID)
	}
	return &u, nil
}

// List returns every user (without password hashes being meaningful to
// callers) ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetRoles replaces the user's role assignments.
func (r *UserRepo) SetRoles(ctx context.Context, userID uint64, roleIDs []uint64) error {
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", userID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		return replaceUserRoles(ctx, tx, userID, dedupeIDs(roleIDs))
	})
	return classifyWriteErr(err)
}

// SetActive enables or disables a user account.
func (r *UserRepo) SetActive(ctx context.Context, userID uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", active, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func replaceUserRoles(ctx context.Context, tx *sql.Tx, userID uint64, roleIDs []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id = ?", userID); err != nil {
		return err
	}
	if len(roleIDs) == 0 {
		return nil
	}
	args := make([]any, 0, len(roleIDs)*2)
	values := make([]string, 0, len(roleIDs))
	for _, rid := range roleIDs {
		values = append(values, "(?, ?)")
		args = append(args, userID, rid)
	}
	_, err := tx.ExecContext(ctx, "INSERT INTO user_roles (user_id, role_id) VALUES "+strings.Join(values, ", "), args...)
	return err
}
