package patients

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertQuery = `(?s)^INSERT\s+INTO\s+patients\s*\(idempotency_key,\s*payload\)\s*VALUES\s*\(\$1,\s*\$2\)\s*ON\s+CONFLICT\s*\(idempotency_key\)\s*DO\s+NOTHING\s+RETURNING\s+id\s*$`
	lookupQuery = `(?s)^SELECT\s+id\s+FROM\s+patients\s+WHERE\s+idempotency_key\s*=\s*\$1\s*$`
	getQuery    = `(?s)^SELECT\s+id,\s*idempotency_key,\s*payload,\s*created_at\s+FROM\s+patients\s+WHERE\s+id\s*=\s*\$1\s*$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

var payload = json.RawMessage(`{"full_name":"Asha","age":42,"gender":"Female","village":"Rampur"}`)

func TestCreate_Inserted(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(insertQuery).
		WithArgs("local_p1", string(payload)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(101)))

	id, created, err := repo.Create(context.Background(), &models.Patient{IdempotencyKey: "local_p1", Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, int64(101), id)
	assert.True(t, created)
}

func TestCreate_DuplicateKeyReturnsExistingID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(insertQuery).
		WithArgs("local_p1", string(payload)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(lookupQuery).
		WithArgs("local_p1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(101)))

	id, created, err := repo.Create(context.Background(), &models.Patient{IdempotencyKey: "local_p1", Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, int64(101), id)
	assert.False(t, created)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(insertQuery).
		WithArgs("local_p1", string(payload)).
		WillReturnError(errors.New("db down"))

	_, _, err := repo.Create(context.Background(), &models.Patient{IdempotencyKey: "local_p1", Payload: payload})
	assert.ErrorContains(t, err, "db error: db down")
}

func TestGet(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(getQuery).
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "idempotency_key", "payload", "created_at"}).
			AddRow(int64(101), "local_p1", []byte(payload), created))

	got, err := repo.Get(context.Background(), 101)
	require.NoError(t, err)
	assert.Equal(t, &models.Patient{ID: 101, IdempotencyKey: "local_p1", Payload: payload, CreatedAt: created}, got)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(getQuery).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 7)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
