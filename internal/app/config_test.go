package app

import (
	"testing"
	"time"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected HTTPAddr :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("expected MetricsAddr :9090, got %s", cfg.MetricsAddr)
	}
	if cfg.GRPCHealthAddr != ":50051" {
		t.Errorf("expected GRPCHealthAddr :50051, got %s", cfg.GRPCHealthAddr)
	}
	if cfg.StorageDriver != StorageDriverMemory {
		t.Errorf("expected StorageDriver %s, got %s", StorageDriverMemory, cfg.StorageDriver)
	}
	if !cfg.PostgresAutoMigrate {
		t.Error("expected PostgresAutoMigrate to be true")
	}
	if cfg.OutboxPollInterval <= 0 || cfg.OutboxBatchSize <= 0 || cfg.OutboxMaxAttempts <= 0 {
		t.Errorf("expected positive outbox settings, got %+v", cfg)
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Errorf("expected IdempotencyTTL 24h, got %s", cfg.IdempotencyTTL)
	}
	if cfg.Shipping.FeeMinor != 30_000 || cfg.Shipping.FreeThresholdMinor != 1_000_000 {
		t.Errorf("unexpected shipping policy %+v", cfg.Shipping)
	}
	if cfg.Currency != "VND" {
		t.Errorf("expected currency VND, got %s", cfg.Currency)
	}
	if cfg.MoMo.Endpoint == "" {
		t.Error("expected default momo endpoint")
	}
}

func TestConfig_MoMoConfigured(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.momoConfigured() {
		t.Fatal("default config must not have momo credentials")
	}

	cfg.MoMo.PartnerCode = "MOMO"
	cfg.MoMo.AccessKey = "access"
	if cfg.momoConfigured() {
		t.Fatal("secret key is required")
	}

	cfg.MoMo.SecretKey = "secret"
	if !cfg.momoConfigured() {
		t.Fatal("expected momo to be configured")
	}
}
