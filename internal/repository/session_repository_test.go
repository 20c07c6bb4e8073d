package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestSessionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(sqlmock.AnyArg(), "owner-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.Create(context.Background(), "owner-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryAttachToken(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec("UPDATE sessions SET token").
		WithArgs("sess-1", "signed-token").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AttachToken(context.Background(), "sess-1", "signed-token"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "owner_id", "token", "expires_at", "created_at"}).
		AddRow("sess-1", "owner-1", "signed-token", now.Add(time.Hour), now)
	mock.ExpectQuery("SELECT id, owner_id, token").
		WithArgs("sess-1").
		WillReturnRows(rows)

	record, err := repo.FindByID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", record.OwnerID)
	assert.Equal(t, "signed-token", record.Token)
}

func TestSessionRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectQuery("SELECT id, owner_id, token").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSessionRepositoryListByOwner(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "owner_id", "token", "expires_at", "created_at"}).
		AddRow("sess-1", "owner-1", "t1", now.Add(time.Hour), now.Add(-2*time.Minute)).
		AddRow("sess-2", "owner-1", "t2", now.Add(time.Hour), now.Add(-time.Minute))
	mock.ExpectQuery("SELECT id, owner_id, token, expires_at, created_at FROM sessions WHERE owner_id").
		WithArgs("owner-1").
		WillReturnRows(rows)

	records, err := repo.ListByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "sess-1", records[0].ID)
}

func TestSessionRepositoryDeleteByToken(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec("DELETE FROM sessions WHERE token").
		WithArgs("signed-token").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteByToken(context.Background(), "signed-token"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryDeleteExpiredBefore(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeleteExpiredBefore(context.Background(), now))
	require.NoError(t, mock.ExpectationsWereMet())
}
