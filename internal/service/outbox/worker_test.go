package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
	"github.com/vladislavdragonenkov/shop/internal/storage/memory"
)

func newRepo(t *testing.T, events ...domain.OutboxMessage) (*memory.Store, *memory.OutboxRepository) {
	t.Helper()
	store := memory.NewStore()
	repo := memory.NewOutboxRepository(store)
	for _, ev := range events {
		_, err := repo.Enqueue(context.Background(), ev)
		require.NoError(t, err)
	}
	return store, repo
}

func orderCreated(orderID string) domain.OutboxMessage {
	return domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   orderID,
		EventType:     domain.EventOrderCreated,
		Payload:       []byte(`{"order_id":"` + orderID + `","status":"pending"}`),
	}
}

func TestWorker_ProcessOnce_MarkSent(t *testing.T) {
	t.Parallel()

	_, repo := newRepo(t, orderCreated("order-1"), orderCreated("order-2"))
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher,
		WithRetryBaseDelay(0),
		WithMetrics(metrics.NewOutboxMetricsWithRegisterer(prometheus.NewRegistry())),
	)
	worker.ProcessOnce(context.Background())

	assert.Equal(t, 2, publisher.calls())
	assert.Equal(t, []string{"order-1", "order-2"}, publisher.aggregateIDs())
	assert.Empty(t, repo.AllPending())

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.PendingCount)
}

func TestWorker_ProcessOnce_MarkFailedAndDLQAfterRetries(t *testing.T) {
	t.Parallel()

	_, repo := newRepo(t, orderCreated("order-2"))
	publisher := &stubPublisher{err: errors.New("broker unavailable")}
	dlq := &stubPublisher{}

	worker := NewWorker(repo, publisher,
		WithDLQPublisher(dlq),
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)
	worker.ProcessOnce(context.Background())

	assert.Equal(t, 3, publisher.calls())
	assert.Empty(t, repo.AllPending())
	require.Equal(t, 1, dlq.calls())

	var letter deadLetter
	require.NoError(t, json.Unmarshal(dlq.last().Payload, &letter))
	assert.Equal(t, "order-2", letter.AggregateID)
	assert.Equal(t, domain.EventOrderCreated, letter.EventType)
	assert.Equal(t, 3, letter.Attempts)
	assert.Contains(t, letter.PublishError, "broker unavailable")
	assert.JSONEq(t, `{"order_id":"order-2","status":"pending"}`, string(letter.Payload))
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	_, repo := newRepo(t, orderCreated("order-3"))
	publisher := &stubPublisher{sequenceErrors: []error{errors.New("attempt 1"), errors.New("attempt 2"), nil}}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMaxAttempts(3))
	worker.ProcessOnce(context.Background())

	assert.Equal(t, 3, publisher.calls())
	assert.Empty(t, repo.AllPending())
}

func TestWorker_ProcessOnce_RespectsBatchSize(t *testing.T) {
	t.Parallel()

	_, repo := newRepo(t, orderCreated("order-1"), orderCreated("order-2"), orderCreated("order-3"))
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher, WithBatchSize(2), WithRetryBaseDelay(0))
	worker.ProcessOnce(context.Background())
	assert.Len(t, repo.AllPending(), 1)

	worker.ProcessOnce(context.Background())
	assert.Empty(t, repo.AllPending())
	assert.Equal(t, []string{"order-1", "order-2", "order-3"}, publisher.aggregateIDs())
}

func TestWorker_RetryBackoff(t *testing.T) {
	t.Parallel()

	worker := NewWorker(nil, nil, WithRetryBaseDelay(50*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, worker.retryBackoff(1))
	assert.Equal(t, 100*time.Millisecond, worker.retryBackoff(2))
	assert.Equal(t, 200*time.Millisecond, worker.retryBackoff(3))

	assert.Zero(t, NewWorker(nil, nil, WithRetryBaseDelay(0)).retryBackoff(3))
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	_, repo := newRepo(t)
	worker := NewWorker(repo, &stubPublisher{}, WithPollInterval(5*time.Millisecond), WithRetryBaseDelay(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

func TestWorker_Run_DisabledWithoutPublisher(t *testing.T) {
	t.Parallel()

	_, repo := newRepo(t, orderCreated("order-1"))
	NewWorker(repo, nil).Run(context.Background())
	assert.Len(t, repo.AllPending(), 1)
}

type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	published      []domain.OutboxMessage
	callCount      int
}

func (s *stubPublisher) Publish(msg domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	err := s.err
	if len(s.sequenceErrors) > 0 {
		err = s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
	}
	if err == nil {
		s.published = append(s.published, msg)
	}
	return err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

func (s *stubPublisher) last() domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published[len(s.published)-1]
}

func (s *stubPublisher) aggregateIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.published))
	for _, msg := range s.published {
		ids = append(ids, msg.AggregateID)
	}
	return ids
}

var _ domain.OutboxPublisher = (*stubPublisher)(nil)
