package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

const selectVariantSQL = `
	SELECT v.id, v.product_id, p.name, p.price_minor, p.is_active, v.stock
	FROM product_variants v
	JOIN products p ON p.id = v.product_id
	WHERE v.id = $1`

type catalogRepository struct {
	q querier
}

func (r *catalogRepository) GetVariant(ctx context.Context, variantID string) (domain.InventoryRecord, error) {
	return scanVariant(r.q.QueryRowContext(ctx, selectVariantSQL, variantID))
}

type inventoryRepository struct {
	q querier
}

// LockVariant блокирует только строку варианта: цена и активность товара
// читаются из products без блокировки, остаток — под FOR UPDATE.
func (r *inventoryRepository) LockVariant(ctx context.Context, variantID string) (domain.InventoryRecord, error) {
	return scanVariant(r.q.QueryRowContext(ctx, selectVariantSQL+`
	FOR UPDATE OF v`, variantID))
}

func (r *inventoryRepository) Decrement(ctx context.Context, variantID string, qty int32) (int32, error) {
	var stock int32
	err := r.q.QueryRowContext(ctx, `
		UPDATE product_variants
		SET stock = stock - $2
		WHERE id = $1
		  AND stock >= $2
		RETURNING stock
	`, variantID, qty).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrStockExceeded
		}
		return 0, fmt.Errorf("decrement stock: %w", err)
	}
	return stock, nil
}

func scanVariant(row *sql.Row) (domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := row.Scan(&rec.VariantID, &rec.ProductID, &rec.ProductName, &rec.UnitPriceMinor, &rec.Active, &rec.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.InventoryRecord{}, domain.ErrVariantNotFound
		}
		return domain.InventoryRecord{}, fmt.Errorf("select variant: %w", err)
	}
	return rec, nil
}

var (
	_ domain.CatalogRepository   = (*catalogRepository)(nil)
	_ domain.InventoryRepository = (*inventoryRepository)(nil)
)
