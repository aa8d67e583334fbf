package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

type orderRepository struct {
	st *state
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepository) Create(_ context.Context, order domain.Order) error {
	if _, exists := r.st.orders[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	r.st.orders[order.ID] = cloneOrder(order)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepository) Get(_ context.Context, id string) (domain.Order, error) {
	order, ok := r.st.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return r.Get(ctx, id)
}

// ListByUser возвращает заказы пользователя, новые первыми; limit>0 ограничивает выборку.
func (r *orderRepository) ListByUser(_ context.Context, userID string, limit int) ([]domain.Order, error) {
	result := make([]domain.Order, 0)
	for _, order := range r.st.orders {
		if order.UserID != userID {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Save обновляет статус заказа, проверяя версию (optimistic locking).
// Позиции и суммы после создания не меняются.
func (r *orderRepository) Save(_ context.Context, order domain.Order) error {
	current, ok := r.st.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	current.Status = order.Status
	current.UpdatedAt = order.UpdatedAt
	current.Version++
	r.st.orders[order.ID] = current
	return nil
}

func cloneOrder(order domain.Order) domain.Order {
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	return order
}

type timelineRepository struct {
	st *state
}

func (r *timelineRepository) Append(_ context.Context, event domain.TimelineEvent) error {
	if event.Occurred.IsZero() {
		event.Occurred = now()
	}
	r.st.timeline[event.OrderID] = append(r.st.timeline[event.OrderID], event)
	return nil
}

func (r *timelineRepository) List(_ context.Context, orderID string) ([]domain.TimelineEvent, error) {
	return append([]domain.TimelineEvent{}, r.st.timeline[orderID]...), nil
}

var (
	_ domain.OrderRepository    = (*orderRepository)(nil)
	_ domain.TimelineRepository = (*timelineRepository)(nil)
)
