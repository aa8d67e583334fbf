package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

func TestPaymentRepository_UpsertReturnsStoredID(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	created := now.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO payment_sessions .* ON CONFLICT \(order_id\) DO UPDATE .* WHERE payment_sessions.status <> 'completed' RETURNING id, created_at`).
		WithArgs("new-id", "order-1", "momo", 430000, "MOMO-req-2", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("existing-id", created))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		session, err := tx.Payments().Upsert(ctx, domain.PaymentSession{
			ID:          "new-id",
			OrderID:     "order-1",
			Method:      domain.PaymentMethodMoMo,
			AmountMinor: 430000,
			RequestID:   "MOMO-req-2",
			UpdatedAt:   now,
		})
		require.NoError(t, err)
		require.Equal(t, "existing-id", session.ID)
		require.Equal(t, domain.PaymentSessionPending, session.Status)
		require.True(t, session.CreatedAt.Equal(created))
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_UpsertKeepsCompletedSession(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO payment_sessions`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		_, err := tx.Payments().Upsert(ctx, domain.PaymentSession{
			ID:        "id",
			OrderID:   "order-1",
			Method:    domain.PaymentMethodMoMo,
			RequestID: "req",
			UpdatedAt: time.Now().UTC(),
		})
		return err
	})
	require.ErrorIs(t, err, domain.ErrAlreadyPaid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetByRequestID(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM payment_sessions WHERE request_id = \$1$`).
		WithArgs("MOMO-req-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_id", "method", "amount_minor", "status", "request_id", "trans_id", "result_code", "created_at", "updated_at",
		}).AddRow("pay-1", "order-1", "momo", 430000, "pending", "MOMO-req-1", "", 0, now, now))
	mock.ExpectQuery(`FROM payment_sessions WHERE request_id = \$1$`).
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_id", "method", "amount_minor", "status", "request_id", "trans_id", "result_code", "created_at", "updated_at",
		}))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		session, err := tx.Payments().GetByRequestID(ctx, "MOMO-req-1")
		require.NoError(t, err)
		require.Equal(t, "order-1", session.OrderID)
		require.Equal(t, domain.PaymentSessionPending, session.Status)

		_, err = tx.Payments().GetByRequestID(ctx, "unknown")
		require.ErrorIs(t, err, domain.ErrPaymentNotFound)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
