package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"
)

// outboxRecord хранит сообщение и служебные поля для in-memory реализации.
type outboxRecord struct {
	msg        domain.OutboxMessage
	seq        int64
	status     string
	attemptCnt int
	createdAt  time.Time
	updatedAt  time.Time
}

// outboxRepository работает внутри транзакции Store.
type outboxRepository struct {
	st *state
}

// Enqueue сохраняет событие со статусом `pending` и возвращает его идентификатор.
func (r *outboxRepository) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Payload = append([]byte(nil), msg.Payload...)

	ts := now()
	r.st.outboxSeq++
	r.st.outbox[msg.ID] = outboxRecord{
		msg:       msg,
		seq:       r.st.outboxSeq,
		status:    outboxStatusPending,
		createdAt: ts,
		updatedAt: ts,
	}
	return msg, nil
}

// PullPending возвращает до limit сообщений со статусом `pending` в порядке записи.
func (r *outboxRepository) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	pending := r.pending()
	if len(pending) > limit {
		pending = pending[:limit]
	}

	result := make([]domain.OutboxMessage, 0, len(pending))
	for _, rec := range pending {
		result = append(result, rec.msg)
	}
	return result, nil
}

func (r *outboxRepository) Stats(context.Context) (domain.OutboxStats, error) {
	pending := r.pending()
	stats := domain.OutboxStats{PendingCount: len(pending)}
	if len(pending) > 0 {
		stats.OldestPendingAt = pending[0].createdAt
	}
	return stats, nil
}

// MarkSent обновляет статус события после успешной публикации.
func (r *outboxRepository) MarkSent(_ context.Context, id string) error {
	return r.mark(id, outboxStatusSent)
}

// MarkFailed фиксирует, что событие исчерпало попытки публикации.
func (r *outboxRepository) MarkFailed(_ context.Context, id string) error {
	return r.mark(id, outboxStatusFailed)
}

func (r *outboxRepository) mark(id, status string) error {
	rec, ok := r.st.outbox[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	rec.status = status
	rec.attemptCnt++
	rec.updatedAt = now()
	r.st.outbox[id] = rec
	return nil
}

func (r *outboxRepository) pending() []outboxRecord {
	result := make([]outboxRecord, 0)
	for _, rec := range r.st.outbox {
		if rec.status == outboxStatusPending {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].seq < result[j].seq })
	return result
}

// OutboxRepository — outbox вне бизнес-транзакций, для relay-воркера.
type OutboxRepository struct {
	store *Store
}

// NewOutboxRepository создаёт outbox-репозиторий поверх общего Store.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	var out domain.OutboxMessage
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		out, err = tx.Outbox().Enqueue(ctx, msg)
		return err
	})
	return out, err
}

func (r *OutboxRepository) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&outboxRepository{st: r.store.state}).PullPending(ctx, limit)
}

func (r *OutboxRepository) Stats(ctx context.Context) (domain.OutboxStats, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&outboxRepository{st: r.store.state}).Stats(ctx)
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&outboxRepository{st: r.store.state}).MarkSent(ctx, id)
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&outboxRepository{st: r.store.state}).MarkFailed(ctx, id)
}

// AllPending возвращает копию всех сообщений со статусом `pending`.
func (r *OutboxRepository) AllPending() []domain.OutboxMessage {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	pending := (&outboxRepository{st: r.store.state}).pending()
	result := make([]domain.OutboxMessage, 0, len(pending))
	for _, rec := range pending {
		result = append(result, rec.msg)
	}
	return result
}

var (
	_ domain.OutboxRepository = (*outboxRepository)(nil)
	_ domain.OutboxRepository = (*OutboxRepository)(nil)
)
