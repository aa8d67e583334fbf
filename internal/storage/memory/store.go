package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// Store — in-memory хранилище для локальной разработки и тестов.
// Транзакции сериализуются общим мьютексом и работают над копией
// состояния: commit подменяет состояние копией, rollback её выбрасывает.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	users     map[string]domain.User
	addresses map[string]domain.Address
	variants  map[string]domain.InventoryRecord

	carts      map[string]domain.Cart
	cartByUser map[string]string
	cartLines  map[string]domain.CartLine

	orders   map[string]domain.Order
	payments map[string]domain.PaymentSession

	timeline  map[string][]domain.TimelineEvent
	outbox    map[string]outboxRecord
	outboxSeq int64
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{state: newState()}
}

func newState() *state {
	return &state{
		users:      make(map[string]domain.User),
		addresses:  make(map[string]domain.Address),
		variants:   make(map[string]domain.InventoryRecord),
		carts:      make(map[string]domain.Cart),
		cartByUser: make(map[string]string),
		cartLines:  make(map[string]domain.CartLine),
		orders:     make(map[string]domain.Order),
		payments:   make(map[string]domain.PaymentSession),
		timeline:   make(map[string][]domain.TimelineEvent),
		outbox:     make(map[string]outboxRecord),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:      cloneMap(s.users),
		addresses:  cloneMap(s.addresses),
		variants:   cloneMap(s.variants),
		carts:      cloneMap(s.carts),
		cartByUser: cloneMap(s.cartByUser),
		cartLines:  cloneMap(s.cartLines),
		orders:     cloneMap(s.orders),
		payments:   cloneMap(s.payments),
		timeline:   make(map[string][]domain.TimelineEvent, len(s.timeline)),
		outbox:     cloneMap(s.outbox),
		outboxSeq:  s.outboxSeq,
	}
	for orderID, events := range s.timeline {
		c.timeline[orderID] = append([]domain.TimelineEvent(nil), events...)
	}
	return c
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// WithinTx выполняет fn над копией состояния. Вложенные вызовы не поддерживаются.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &memTx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// Ping всегда успешен: хранилище живёт в памяти процесса.
func (s *Store) Ping(context.Context) error {
	return nil
}

// SeedUser добавляет пользователя.
func (s *Store) SeedUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[user.ID] = user
}

// SeedAddress добавляет адрес в адресную книгу.
func (s *Store) SeedAddress(addr domain.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.addresses[addr.ID] = addr
}

// SeedVariant добавляет или перезаписывает вариант товара вместе с остатком.
func (s *Store) SeedVariant(rec domain.InventoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.variants[rec.VariantID] = rec
}

// VariantStock возвращает текущий остаток варианта.
func (s *Store) VariantStock(variantID string) (int32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state.variants[variantID]
	return rec.Stock, ok
}

func now() time.Time {
	return time.Now().UTC()
}

var _ domain.TxManager = (*Store)(nil)
