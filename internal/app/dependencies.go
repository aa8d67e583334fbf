package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/shop/internal/health"
	"github.com/vladislavdragonenkov/shop/internal/storage/memory"
	"github.com/vladislavdragonenkov/shop/internal/storage/postgres"
)

// runtimeDependencies — хранилище и репозитории, выбранные драйвером.
type runtimeDependencies struct {
	tx              domain.TxManager
	outboxRepo      domain.OutboxRepository
	idempotencyRepo domain.IdempotencyRepository
	storageChecker  healthcheck.Checker
	closeFn         func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageDriver)) {
	case "", StorageDriverMemory:
		store := memory.NewStore()
		if cfg.SeedDemoData {
			seedDemoData(store)
			logger.Info("in-memory store seeded with demo catalog")
		}
		return &runtimeDependencies{
			tx:              store,
			outboxRepo:      memory.NewOutboxRepository(store),
			idempotencyRepo: memory.NewIdempotencyRepository(),
			storageChecker:  healthcheck.NewPingChecker("storage", true, store),
		}, nil

	case StorageDriverPostgres:
		dsn := strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			return nil, errors.New("postgres dsn is required for postgres storage driver")
		}

		store, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("postgres schema is up to date")
		}

		return &runtimeDependencies{
			tx:              store,
			outboxRepo:      postgres.NewOutboxRepository(store),
			idempotencyRepo: postgres.NewIdempotencyRepository(store),
			storageChecker:  healthcheck.NewPingChecker("storage", true, store),
			closeFn:         store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}
