package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// pgTx связывает все репозитории с одной *sql.Tx.
type pgTx struct {
	q querier
}

func newTx(tx *sql.Tx) *pgTx {
	return &pgTx{q: tx}
}

func (t *pgTx) Carts() domain.CartRepository { return &cartRepository{q: t.q} }
func (t *pgTx) Catalog() domain.CatalogRepository { return &catalogRepository{q: t.q} }
func (t *pgTx) Inventory() domain.InventoryRepository { return &inventoryRepository{q: t.q} }
func (t *pgTx) Addresses() domain.AddressRepository { return &addressRepository{q: t.q} }
func (t *pgTx) Users() domain.UserRepository { return &userRepository{q: t.q} }
func (t *pgTx) Orders() domain.OrderRepository { return &orderRepository{q: t.q} }
func (t *pgTx) Payments() domain.PaymentRepository { return &paymentRepository{q: t.q} }
func (t *pgTx) Outbox() domain.OutboxRepository { return &outboxRepository{q: t.q} }
func (t *pgTx) Timeline() domain.TimelineRepository { return &timelineRepository{q: t.q} }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.Tx = (*pgTx)(nil)
