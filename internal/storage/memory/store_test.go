package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/storage/memory"
)

func seededStore(t *testing.T, stock int32) *memory.Store {
	t.Helper()

	store := memory.NewStore()
	store.SeedUser(domain.User{ID: "user-1", Email: "ann@example.com", Name: "Ann"})
	store.SeedAddress(domain.Address{ID: "addr-1", UserID: "user-1", Recipient: "Ann", Phone: "0900", Line: "1 Le Loi", City: "Hanoi"})
	store.SeedVariant(domain.InventoryRecord{
		VariantID: "variant-1", ProductID: "product-1", ProductName: "Linen Shirt",
		UnitPriceMinor: 200000, Active: true, Stock: stock,
	})
	return store
}

func TestStore_CommitAppliesChanges(t *testing.T) {
	store := seededStore(t, 5)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		left, err := tx.Inventory().Decrement(ctx, "variant-1", 2)
		require.NoError(t, err)
		require.Equal(t, int32(3), left)
		return nil
	})
	require.NoError(t, err)

	stock, ok := store.VariantStock("variant-1")
	require.True(t, ok)
	require.Equal(t, int32(3), stock)
}

func TestStore_RollbackDiscardsEveryWrite(t *testing.T) {
	store := seededStore(t, 5)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		_, err := tx.Inventory().Decrement(ctx, "variant-1", 2)
		require.NoError(t, err)
		require.NoError(t, tx.Orders().Create(ctx, domain.Order{ID: "order-1", UserID: "user-1"}))
		require.NoError(t, tx.Timeline().Append(ctx, domain.TimelineEvent{OrderID: "order-1", Type: domain.TimelineOrderCreated}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	stock, _ := store.VariantStock("variant-1")
	require.Equal(t, int32(5), stock)

	err = store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		_, err := tx.Orders().Get(ctx, "order-1")
		require.ErrorIs(t, err, domain.ErrOrderNotFound)
		events, err := tx.Timeline().List(ctx, "order-1")
		require.NoError(t, err)
		require.Empty(t, events)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_DecrementRefusesNegativeStock(t *testing.T) {
	store := seededStore(t, 1)

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		_, err := tx.Inventory().Decrement(ctx, "variant-1", 2)
		return err
	})
	require.ErrorIs(t, err, domain.ErrStockExceeded)
}

func TestStore_CancelledContext(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.WithinTx(ctx, func(context.Context, domain.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestCartRepository_AddLineMergesSameVariant(t *testing.T) {
	store := seededStore(t, 10)
	ts := time.Now().UTC()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		carts := tx.Carts()
		require.NoError(t, carts.Create(ctx, domain.Cart{ID: "cart-1", UserID: "user-1", CreatedAt: ts}))
		// повторное создание не дублирует корзину
		require.NoError(t, carts.Create(ctx, domain.Cart{ID: "cart-2", UserID: "user-1", CreatedAt: ts}))

		first, err := carts.AddLine(ctx, domain.CartLine{ID: "line-1", CartID: "cart-1", VariantID: "variant-1", Qty: 1, Selected: true, CreatedAt: ts, UpdatedAt: ts})
		require.NoError(t, err)
		merged, err := carts.AddLine(ctx, domain.CartLine{ID: "line-2", CartID: "cart-1", VariantID: "variant-1", Qty: 2, Selected: true, CreatedAt: ts, UpdatedAt: ts})
		require.NoError(t, err)
		require.Equal(t, first.ID, merged.ID)
		require.Equal(t, int32(3), merged.Qty)

		cart, err := carts.GetByUser(ctx, "user-1")
		require.NoError(t, err)
		require.Equal(t, "cart-1", cart.ID)

		lines, err := carts.Lines(ctx, "cart-1")
		require.NoError(t, err)
		require.Len(t, lines, 1)

		require.NoError(t, carts.DeleteLines(ctx, "cart-1", []string{"line-1"}))
		_, err = carts.GetLine(ctx, "cart-1", "line-1")
		require.ErrorIs(t, err, domain.ErrCartLineNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestPaymentRepository_UpsertKeepsOneSessionPerOrder(t *testing.T) {
	store := memory.NewStore()
	ts := time.Now().UTC()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		payments := tx.Payments()

		first, err := payments.Upsert(ctx, domain.PaymentSession{ID: "pay-1", OrderID: "order-1", Method: domain.PaymentMethodMoMo, AmountMinor: 100, RequestID: "req-1", UpdatedAt: ts})
		require.NoError(t, err)
		require.Equal(t, domain.PaymentSessionPending, first.Status)

		second, err := payments.Upsert(ctx, domain.PaymentSession{ID: "pay-2", OrderID: "order-1", Method: domain.PaymentMethodMoMo, AmountMinor: 100, RequestID: "req-2", UpdatedAt: ts})
		require.NoError(t, err)
		require.Equal(t, "pay-1", second.ID)

		_, err = payments.GetByRequestID(ctx, "req-1")
		require.ErrorIs(t, err, domain.ErrPaymentNotFound)

		second.Status = domain.PaymentSessionCompleted
		require.NoError(t, payments.Save(ctx, second))

		_, err = payments.Upsert(ctx, domain.PaymentSession{ID: "pay-3", OrderID: "order-1", RequestID: "req-3", UpdatedAt: ts})
		require.ErrorIs(t, err, domain.ErrAlreadyPaid)
		return nil
	})
	require.NoError(t, err)
}
