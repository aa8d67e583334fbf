package inventory

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// Ledger списывает остатки вариантов товара внутри транзакции вызывающего.
// Сам транзакций не открывает: блокировка строки живёт до commit/rollback
// той транзакции, чей дескриптор передан в Reserve.
type Ledger struct {
	logger *log.Entry
}

// NewLedger создаёт Ledger.
func NewLedger(logger *log.Entry) *Ledger {
	if logger == nil {
		logger = log.New().WithField("component", "inventory-ledger")
	}
	return &Ledger{logger: logger}
}

// Reserve блокирует строку варианта, проверяет остаток и сразу уменьшает его.
// Несколько вызовов для одного варианта в одной транзакции видят уже
// уменьшенный остаток, поэтому каждая позиция проверяется независимо.
func (l *Ledger) Reserve(ctx context.Context, tx domain.Tx, variantID string, qty int32) (domain.Reservation, error) {
	if qty < 1 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}

	rec, err := tx.Inventory().LockVariant(ctx, variantID)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("lock variant %s: %w", variantID, err)
	}
	if !rec.Active {
		return domain.Reservation{}, fmt.Errorf("variant %s: %w", variantID, domain.ErrProductUnavailable)
	}
	if rec.Stock < qty {
		l.logger.WithFields(log.Fields{
			"variant_id": variantID,
			"requested":  qty,
			"available":  rec.Stock,
		}).Info("stock exceeded")
		return domain.Reservation{}, domain.NewStockExceeded(rec.ProductName)
	}

	left, err := tx.Inventory().Decrement(ctx, variantID, qty)
	if err != nil {
		if errors.Is(err, domain.ErrStockExceeded) {
			return domain.Reservation{}, domain.NewStockExceeded(rec.ProductName)
		}
		return domain.Reservation{}, fmt.Errorf("decrement variant %s: %w", variantID, err)
	}

	return domain.Reservation{
		VariantID:      rec.VariantID,
		ProductID:      rec.ProductID,
		ProductName:    rec.ProductName,
		Qty:            qty,
		UnitPriceMinor: rec.UnitPriceMinor,
		StockAfter:     left,
	}, nil
}
