package domain

import (
	"context"
	"time"
)

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит ключи идемпотентности API.
type IdempotencyRepository interface {
	// Acquire занимает ключ в статусе processing. Занятый ключ возвращается
	// вместе с ErrIdempotencyKeyAlreadyExists или ErrIdempotencyHashMismatch;
	// просроченный ключ занимается заново.
	Acquire(ctx context.Context, scope IdempotencyScope, requestHash string, expiresAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, scope IdempotencyScope) (IdempotencyRecord, error)
	// Complete сохраняет ответ и переводит ключ в done или failed.
	Complete(ctx context.Context, scope IdempotencyScope, status IdempotencyStatus, resp StoredResponse) error
	// DeleteExpired удаляет не больше limit просроченных ключей; limit<=0 снимает ограничение.
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// Типы событий, которые пишутся в outbox.
const (
	EventOrderCreated     = "order.created"
	EventOrderCancelled   = "order.cancelled"
	EventOrderCompleted   = "order.completed"
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
)

// Типы агрегатов outbox.
const (
	AggregateOrder   = "order"
	AggregatePayment = "payment"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
