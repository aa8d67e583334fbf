package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewStore(db), mock
}

func TestStore_WithinTxCommits(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, name FROM users WHERE id = $1`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name"}).AddRow("user-1", "a@example.com", "Ann"))
	mock.ExpectCommit()

	var got domain.User
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		var err error
		got, err = tx.Users().Get(ctx, "user-1")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, "a@example.com", got.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(context.Context, domain.Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxRollsBackOnPanic(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.Panics(t, func() {
		_ = store.WithinTx(context.Background(), func(context.Context, domain.Tx) error {
			panic("unexpected")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxCommitError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	err := store.WithinTx(context.Background(), func(context.Context, domain.Tx) error { return nil })
	require.Error(t, err)
	require.Contains(t, err.Error(), "commit tx")
}

func TestStore_NilGuards(t *testing.T) {
	var store *Store

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := store.Ping(ctx); err == nil {
		t.Fatal("expected ping error for nil store")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store should not fail: %v", err)
	}
	if _, err := store.MigrationStatus(ctx); err == nil {
		t.Fatal("expected migration status error for nil store")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("expected unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign key violation is not unique violation")
	}
	if isUniqueViolation(errors.New("plain")) {
		t.Fatal("plain error is not unique violation")
	}
}
