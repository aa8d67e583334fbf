package domain

import "context"

// TxManager выполняет fn в одной транзакции: commit, если fn вернула nil,
// и полный rollback при любой ошибке.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx — дескриптор одной транзакции. Репозитории, полученные из него,
// читают и пишут только в рамках этой транзакции; дескриптор передаётся
// по цепочке вызовов явно.
type Tx interface {
	Carts() CartRepository
	Catalog() CatalogRepository
	Inventory() InventoryRepository
	Addresses() AddressRepository
	Users() UserRepository
	Orders() OrderRepository
	Payments() PaymentRepository
	Outbox() OutboxRepository
	Timeline() TimelineRepository
}

// CartRepository хранит корзины и их позиции.
type CartRepository interface {
	// GetByUser возвращает корзину пользователя или ErrCartNotFound.
	GetByUser(ctx context.Context, userID string) (Cart, error)
	Create(ctx context.Context, cart Cart) error
	Lines(ctx context.Context, cartID string) ([]CartLine, error)
	SelectedLines(ctx context.Context, cartID string) ([]CartLine, error)
	// GetLine возвращает позицию корзины или ErrCartLineNotFound.
	GetLine(ctx context.Context, cartID, lineID string) (CartLine, error)
	// AddLine создаёт позицию или увеличивает количество существующей
	// позиции с тем же вариантом. Возвращает итоговую позицию.
	AddLine(ctx context.Context, line CartLine) (CartLine, error)
	SaveLine(ctx context.Context, line CartLine) error
	DeleteLines(ctx context.Context, cartID string, lineIDs []string) error
}

// CatalogRepository — чтение каталога без блокировок.
type CatalogRepository interface {
	// GetVariant возвращает вариант с ценой и остатком или ErrVariantNotFound.
	GetVariant(ctx context.Context, variantID string) (InventoryRecord, error)
}

// InventoryRepository — изменение остатков под блокировкой строки.
type InventoryRepository interface {
	// LockVariant читает остаток с блокировкой строки до конца транзакции.
	LockVariant(ctx context.Context, variantID string) (InventoryRecord, error)
	// Decrement уменьшает остаток и возвращает новое значение.
	Decrement(ctx context.Context, variantID string, qty int32) (int32, error)
}

// AddressRepository — чтение адресной книги.
type AddressRepository interface {
	// Get возвращает адрес или ErrAddressNotFound.
	Get(ctx context.Context, id string) (Address, error)
}

// UserRepository — чтение профиля пользователя.
type UserRepository interface {
	// Get возвращает пользователя или ErrUserNotFound.
	Get(ctx context.Context, id string) (User, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ вместе с позициями.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// GetForUpdate то же, что Get, но блокирует строку заказа до конца транзакции.
	GetForUpdate(ctx context.Context, id string) (Order, error)
	// ListByUser возвращает заказы пользователя с опциональным ограничением на количество.
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(ctx context.Context, order Order) error
}

// PaymentRepository хранит платёжные сессии (одна на заказ).
type PaymentRepository interface {
	GetByOrder(ctx context.Context, orderID string) (PaymentSession, error)
	GetByOrderForUpdate(ctx context.Context, orderID string) (PaymentSession, error)
	// GetByRequestID ищет сессию по ключу корреляции провайдера без блокировки.
	// Блокировки берутся в порядке заказ, затем сессия.
	GetByRequestID(ctx context.Context, requestID string) (PaymentSession, error)
	// Upsert создаёт сессию или перезапускает существующую как pending.
	// Завершённую сессию не трогает и возвращает ErrAlreadyPaid.
	Upsert(ctx context.Context, session PaymentSession) (PaymentSession, error)
	Save(ctx context.Context, session PaymentSession) error
}
