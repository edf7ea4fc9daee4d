package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumeRefreshRevokesLiveToken(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM refresh_tokens WHERE token_hash = \\? AND revoked_at IS NULL").
		WithArgs("h1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").WithArgs("h1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	uid, err := NewTokenRepo(db).ConsumeRefresh(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), uid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeRefreshUnknownToken(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM refresh_tokens").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := NewTokenRepo(db).ConsumeRefresh(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeByHashAlreadyRevoked(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs("h2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewTokenRepo(db).RevokeByHash(context.Background(), "h2")
	assert.ErrorIs(t, err, ErrNotFound)
}
