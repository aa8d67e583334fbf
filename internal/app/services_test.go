package app

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/gateway/momo"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
	"github.com/vladislavdragonenkov/shop/internal/notification"
	"github.com/vladislavdragonenkov/shop/internal/service/payment"
)

func TestNewPaymentGateway(t *testing.T) {
	logger := log.WithField("test", "gateway")
	m := metrics.NewPaymentMetricsWithRegisterer(prometheus.NewRegistry())

	t.Run("mock without credentials", func(t *testing.T) {
		gw, err := newPaymentGateway(DefaultConfig(), m, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := gw.(*payment.MockGateway); !ok {
			t.Fatalf("expected mock gateway, got %T", gw)
		}
	})

	t.Run("postgres requires credentials", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.StorageDriver = StorageDriverPostgres
		if _, err := newPaymentGateway(cfg, m, logger); err == nil {
			t.Fatal("expected error without momo credentials")
		}
	})

	t.Run("real client with credentials", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MoMo.PartnerCode = "MOMO"
		cfg.MoMo.AccessKey = "access"
		cfg.MoMo.SecretKey = "secret"
		cfg.MoMo.RedirectURL = "https://shop.example.com/api/payments/cancel"
		cfg.MoMo.IPNURL = "https://shop.example.com/api/payments/success"

		gw, err := newPaymentGateway(cfg, m, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := gw.(*momo.Client); !ok {
			t.Fatalf("expected momo client, got %T", gw)
		}
	})

	t.Run("invalid momo config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MoMo.PartnerCode = "MOMO"
		cfg.MoMo.AccessKey = "access"
		cfg.MoMo.SecretKey = "secret"
		cfg.MoMo.IPNURL = ""
		cfg.MoMo.RedirectURL = ""

		_, err := newPaymentGateway(cfg, m, logger)
		if err == nil || !strings.Contains(err.Error(), "invalid momo config") {
			t.Fatalf("expected invalid momo config error, got %v", err)
		}
	})
}

func TestNewNotifier_FallsBackToLog(t *testing.T) {
	n := newNotifier(nil, log.WithField("test", "notifier"))
	if _, ok := n.(*notification.LogNotifier); !ok {
		t.Fatalf("expected log notifier, got %T", n)
	}
}
