package app

import (
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/gateway/momo"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr       string
	MetricsAddr    string
	GRPCHealthAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	// SeedDemoData наполняет in-memory хранилище демонстрационным каталогом.
	SeedDemoData bool

	KafkaBrokers []string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyTTL              time.Duration
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration

	Shipping      domain.ShippingPolicy
	Currency      string
	NotifyTimeout time.Duration

	MoMo momo.Config
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                    ":8080",
		MetricsAddr:                 ":9090",
		GRPCHealthAddr:              ":50051",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		SeedDemoData:                true,
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            100 * time.Millisecond,
		IdempotencyTTL:              24 * time.Hour,
		IdempotencyCleanupInterval:  time.Hour,
		IdempotencyCleanupBatchSize: 500,
		RateLimitRPS:                20,
		RateLimitBurst:              40,
		RequestTimeout:              30 * time.Second,
		Shipping:                    domain.DefaultShippingPolicy(),
		Currency:                    "VND",
		NotifyTimeout:               5 * time.Second,
		MoMo:                        momo.DefaultConfig(),
	}
}

// momoConfigured сообщает, заданы ли ключи провайдера; без них используется заглушка.
func (c Config) momoConfigured() bool {
	return c.MoMo.PartnerCode != "" && c.MoMo.AccessKey != "" && c.MoMo.SecretKey != ""
}
