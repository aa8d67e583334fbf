package memory

import "github.com/vladislavdragonenkov/shop/internal/domain"

type memTx struct {
	st *state
}

func (t *memTx) Carts() domain.CartRepository { return &cartRepository{st: t.st} }
func (t *memTx) Catalog() domain.CatalogRepository { return &inventoryRepository{st: t.st} }
func (t *memTx) Inventory() domain.InventoryRepository { return &inventoryRepository{st: t.st} }
func (t *memTx) Addresses() domain.AddressRepository { return &addressRepository{st: t.st} }
func (t *memTx) Users() domain.UserRepository { return &userRepository{st: t.st} }
func (t *memTx) Orders() domain.OrderRepository { return &orderRepository{st: t.st} }
func (t *memTx) Payments() domain.PaymentRepository { return &paymentRepository{st: t.st} }
func (t *memTx) Outbox() domain.OutboxRepository { return &outboxRepository{st: t.st} }
func (t *memTx) Timeline() domain.TimelineRepository { return &timelineRepository{st: t.st} }

var _ domain.Tx = (*memTx)(nil)
