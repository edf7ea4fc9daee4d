package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuyogBora/picode-server/internal/model"
)

var roleJoinCols = []string{
	"r.id", "r.name", "r.description", "r.is_default", "r.created_at", "r.updated_at",
	"p.id", "p.resource", "p.action", "p.description", "p.created_at",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestUserRepoGetPrincipalResolvesRolesAndPermissions(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userColumns + " FROM users WHERE id=?")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "is_active", "created_at", "updated_at"}).
			AddRow(7, "hr@example.com", "HR", "hash", true, now, now))
	mock.ExpectQuery("FROM user_roles ur").
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(roleJoinCols).
			AddRow(2, "HRManager", "", false, now, now, 10, "careers", "manage", "", now).
			AddRow(2, "HRManager", "", false, now, now, 11, "applications", "read", "", now).
			AddRow(3, "Viewer", "", true, now, now, nil, nil, nil, nil, nil))

	p, err := NewUserRepo(db).GetPrincipal(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, p.Roles, 2)
	assert.Equal(t, "HRManager", p.Roles[0].Name)
	assert.Len(t, p.Roles[0].Permissions, 2)
	assert.Equal(t, "careers:manage", p.Roles[0].Permissions[0].Code())
	assert.Empty(t, p.Roles[1].Permissions)
	assert.Equal(t, []uint64{2, 3}, p.RoleIDs)
	assert.Equal(t, []string{"careers:manage", "applications:read"}, p.PermissionCodes())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoGetPrincipalNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM users WHERE id=").WithArgs(uint64(99)).WillReturnError(sql.ErrNoRows)

	_, err := NewUserRepo(db).GetPrincipal(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepoCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := NewUserRepo(db).Create(context.Background(), "A@Example.com ", "A", "pw", nil, 4)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoCreateAssignsRoles(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs("a@example.com", "A", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("DELETE FROM user_roles").WithArgs(uint64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)")).
		WithArgs(uint64(5), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := NewUserRepo(db).Create(context.Background(), "A@Example.com", "A", "pw", []uint64{3, 3, 0}, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepoSetDefaultClearsOthers(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE roles SET is_default = 0 WHERE is_default = 1 AND id <> ?")).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE roles SET is_default = 1")).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewRoleRepo(db).SetDefault(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepoSetDefaultMissingRole(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE roles SET is_default = 0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE roles SET is_default = 1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := NewRoleRepo(db).SetDefault(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepoDeleteAssignedRole(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM user_roles WHERE role_id = ?")).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	err := NewRoleRepo(db).Delete(context.Background(), 2)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepoCreateDefaultRole(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE roles SET is_default = 0").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO roles").
		WithArgs("Viewer", "read only", true).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec("DELETE FROM role_permissions").WithArgs(uint64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?), (?, ?)")).
		WithArgs(uint64(9), uint64(1), uint64(9), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	role := &model.Role{Name: " Viewer ", Description: "read only", IsDefault: true, PermissionIDs: []uint64{1, 2, 1}}
	require.NoError(t, NewRoleRepo(db).Create(context.Background(), role))
	assert.Equal(t, uint64(9), role.ID)
	assert.Equal(t, "Viewer", role.Name)
	assert.Equal(t, []uint64{1, 2}, role.PermissionIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionRepoCreateDuplicatePair(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO permissions").
		WithArgs("blogs", "create", "").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'blogs-create'"})

	err := NewPermissionRepo(db).Create(context.Background(), &model.Permission{Resource: " Blogs", Action: "CREATE"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestSetActiveMatchedRows(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	// with clientFoundRows a repeated status still counts the matched row
	mock.ExpectExec("UPDATE users SET is_active").WithArgs(false, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetActive(context.Background(), 5, false))

	mock.ExpectExec("UPDATE users SET is_active").WithArgs(true, uint64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetActive(context.Background(), 404, true), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
