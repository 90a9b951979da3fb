package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return NewStoreWithDB(db), mock
}

func TestStoreLastStoredBlock(t *testing.T) {
	store, mock := newMockStore(t)
	query := regexp.QuoteMeta(LastBlockQuery)

	// empty
	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"number"}))
	number, ok, err := store.LastStoredBlock(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, number)

	// null
	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"number"}).AddRow(nil))
	_, ok, err = store.LastStoredBlock(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)

	// stored
	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"number"}).AddRow(int64(18_000_000)))
	number, ok, err = store.LastStoredBlock(context.Background())
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(18_000_000), number)

	// failure
	mock.ExpectQuery(query).WillReturnError(sql.ErrConnDone)
	_, _, err = store.LastStoredBlock(context.Background())
	assert.ErrorIs(t, err, sql.ErrConnDone)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreTxCommit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO blocks("number"`)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO transactions("hash"`)).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)

	rows, err := tx.Exec(context.Background(), `INSERT INTO blocks("number", "hash", "timestamp") VALUES (1), (2)`)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), rows)

	rows, err = tx.Exec(context.Background(), `INSERT INTO transactions("hash") VALUES (1)`)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), rows)

	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreTxRollback(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO blocks").WillReturnError(sql.ErrTxDone)
	mock.ExpectRollback()

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)

	_, err = tx.Exec(context.Background(), "INSERT INTO blocks VALUES (1)")
	assert.ErrorIs(t, err, sql.ErrTxDone)

	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreBeginFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

	_, err := store.Begin(context.Background())
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestNewStoreWithoutDSN(t *testing.T) {
	_, err := NewStore(context.Background(), DefaultConfig())
	assert.ErrorContains(t, err, "DSN not specified")
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, 2, config.MaxOpenConns)
	assert.Equal(t, 2, config.MaxIdleConns)
	assert.False(t, config.SkipMigration)
}
