// Package idempotency освобождает ключи Idempotency-Key с истёкшим сроком.
package idempotency

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
)

const (
	defaultInterval  = 10 * time.Minute
	defaultBatchSize = 500
	// defaultMaxBatches ограничивает один проход; остаток удаляется на следующем тике.
	defaultMaxBatches = 20
)

// Option настраивает Sweeper.
type Option func(*Sweeper)

func WithLogger(logger *log.Entry) Option {
	return func(s *Sweeper) { s.logger = logger }
}

func WithMetrics(m *metrics.IdempotencyMetrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

// WithInterval задаёт паузу между проходами.
func WithInterval(interval time.Duration) Option {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithBatchSize задаёт число ключей в одном DELETE.
func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithMaxBatches задаёт число DELETE за один проход.
func WithMaxBatches(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.maxBatches = n
		}
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// SweepResult — итог одного прохода.
type SweepResult struct {
	Deleted int
	Batches int
	// Drained — просроченных ключей не осталось.
	Drained bool
}

// Sweeper периодически удаляет просроченные ключи порциями.
type Sweeper struct {
	repo       domain.IdempotencyRepository
	logger     *log.Entry
	metrics    *metrics.IdempotencyMetrics
	interval   time.Duration
	batchSize  int
	maxBatches int
	now        func() time.Time
}

func NewSweeper(repo domain.IdempotencyRepository, opts ...Option) *Sweeper {
	s := &Sweeper{
		repo:       repo,
		interval:   defaultInterval,
		batchSize:  defaultBatchSize,
		maxBatches: defaultMaxBatches,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "idempotency-sweeper")
	}
	return s
}

// Run выполняет проход сразу и затем по таймеру до отмены ctx.
func (s *Sweeper) Run(ctx context.Context) {
	if s.repo == nil {
		s.logger.Warn("idempotency sweeper is disabled: repo is nil")
		return
	}

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	res, err := s.Sweep(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.metrics.RecordRun("error")
		s.logger.WithError(err).WithField("deleted", res.Deleted).Warn("idempotency sweep failed")
		return
	}

	s.metrics.SetLastDeleted(res.Deleted)
	fields := log.Fields{"deleted": res.Deleted, "batches": res.Batches}
	if !res.Drained {
		s.metrics.RecordRun("partial")
		s.logger.WithFields(fields).Warn("idempotency sweep hit batch limit, backlog remains")
		return
	}
	s.metrics.RecordRun("ok")
	if res.Deleted > 0 {
		s.logger.WithFields(fields).Info("expired idempotency keys removed")
	}
}

// Sweep удаляет ключи, истёкшие к текущему моменту, не больше maxBatches порций.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	before := s.now()
	var res SweepResult

	for res.Batches < s.maxBatches {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		deleted, err := s.repo.DeleteExpired(ctx, before, s.batchSize)
		if err != nil {
			return res, err
		}
		res.Batches++
		res.Deleted += deleted
		s.metrics.RecordDeleted(deleted)

		if deleted < s.batchSize {
			res.Drained = true
			return res, nil
		}
	}
	return res, nil
}
