package repository

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxManagerCommitsOnSuccess(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE gift_requests").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewTxManager(db).RunInTx(context.Background(), func(tx sqlx.ExtContext) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE gift_requests SET is_bo = TRUE")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := NewTxManager(db).RunInTx(context.Background(), func(tx sqlx.ExtContext) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRollsBackOnPanic(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = NewTxManager(db).RunInTx(context.Background(), func(tx sqlx.ExtContext) error { panic("bad row") })
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSavepointIsolatesRowFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec("^SAVEPOINT import_row$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("^ROLLBACK TO SAVEPOINT import_row$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("^SAVEPOINT import_row$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("^RELEASE SAVEPOINT import_row$").WillReturnResult(sqlmock.NewResult(0, 0))

	rowErr, err := WithSavepoint(context.Background(), db, "import_row", func() error { return errors.New("duplicate") })
	require.NoError(t, err)
	require.EqualError(t, rowErr, "duplicate")

	rowErr, err = WithSavepoint(context.Background(), db, "import_row", func() error { return nil })
	require.NoError(t, err)
	require.NoError(t, rowErr)
	require.NoError(t, mock.ExpectationsWereMet())
}
