package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

var variantRowColumns = []string{"id", "product_id", "name", "price_minor", "is_active", "stock"}

func TestInventoryRepository_LockVariantUsesRowLock(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM product_variants v JOIN products p ON p.id = v.product_id WHERE v.id = \$1 FOR UPDATE OF v`).
		WithArgs("variant-1").
		WillReturnRows(sqlmock.NewRows(variantRowColumns).AddRow("variant-1", "product-1", "Linen Shirt", 200000, true, 10))
	mock.ExpectQuery(`UPDATE product_variants SET stock = stock - \$2 WHERE id = \$1 AND stock >= \$2 RETURNING stock`).
		WithArgs("variant-1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(8))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		rec, err := tx.Inventory().LockVariant(ctx, "variant-1")
		require.NoError(t, err)
		require.Equal(t, "Linen Shirt", rec.ProductName)
		require.Equal(t, int32(10), rec.Stock)

		left, err := tx.Inventory().Decrement(ctx, "variant-1", 2)
		require.NoError(t, err)
		require.Equal(t, int32(8), left)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepository_DecrementGuardsStock(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE product_variants`).
		WithArgs("variant-1", 5).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		_, err := tx.Inventory().Decrement(ctx, "variant-1", 5)
		return err
	})
	require.ErrorIs(t, err, domain.ErrStockExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_GetVariantNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM product_variants v`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(variantRowColumns))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		_, err := tx.Catalog().GetVariant(ctx, "missing")
		return err
	})
	require.ErrorIs(t, err, domain.ErrVariantNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
