package checkout_test

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/service/checkout"
	"github.com/vladislavdragonenkov/shop/internal/storage/postgres"
)

var lockedTable = regexp.MustCompile(`FROM\s+(\w+)`)

type lockRecorder struct {
	mu     sync.Mutex
	tables []string
}

func (r *lockRecorder) Match(expectedSQL, actualSQL string) error {
	if err := sqlmock.QueryMatcherRegexp.Match(expectedSQL, actualSQL); err != nil {
		return err
	}
	if strings.Contains(actualSQL, "FOR UPDATE") {
		if m := lockedTable.FindStringSubmatch(actualSQL); m != nil {
			r.mu.Lock()
			r.tables = append(r.tables, m[1])
			r.mu.Unlock()
		}
	}
	return nil
}

func TestCancelOrder_LocksOrderBeforeSession(t *testing.T) {
	locks := &lockRecorder{}
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(locks))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger, _ := test.NewNullLogger()
	svc := checkout.NewService(postgres.NewStore(db), nil, checkout.DefaultConfig(),
		checkout.WithLogger(logger.WithField("test", t.Name())),
	)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM orders WHERE id = \$1 FOR UPDATE`).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "address_id", "status", "payment_method", "currency",
			"total_minor", "shipping_fee_minor", "version", "created_at", "updated_at",
		}).AddRow("order-1", "user-1", "addr-1", "pending", "momo", "VND", 400000, 30000, 1, now, now))
	mock.ExpectQuery(`FROM order_items`).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "variant_id", "product_id", "product_name", "qty", "unit_price_minor", "created_at"}))
	mock.ExpectExec(`UPDATE orders`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM payment_sessions WHERE order_id = \$1 FOR UPDATE`).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_id", "method", "amount_minor", "status", "request_id", "trans_id", "result_code", "created_at", "updated_at",
		}).AddRow("pay-1", "order-1", "momo", 430000, "pending", "MOMO-req-1", "", 0, now, now))
	mock.ExpectExec(`UPDATE payment_sessions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO outbox_messages`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO timeline_events`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO outbox_messages`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO timeline_events`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := svc.CancelOrder(context.Background(), "user-1", "order-1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCancelled, order.Status)
	require.Equal(t, []string{"orders", "payment_sessions"}, locks.tables)
	require.NoError(t, mock.ExpectationsWereMet())
}
