package app

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/gateway/momo"
	"github.com/vladislavdragonenkov/shop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
	"github.com/vladislavdragonenkov/shop/internal/notification"
	"github.com/vladislavdragonenkov/shop/internal/service/payment"
)

// newPaymentGateway возвращает клиент MoMo или заглушку, если ключи не заданы.
// Заглушка допустима только для in-memory режима.
func newPaymentGateway(cfg Config, m *metrics.PaymentMetrics, logger *log.Entry) (payment.Gateway, error) {
	if !cfg.momoConfigured() {
		if cfg.StorageDriver == StorageDriverPostgres {
			return nil, fmt.Errorf("momo credentials are required for %s storage", StorageDriverPostgres)
		}
		logger.Warn("momo credentials are not set, using mock payment gateway")
		return payment.NewMockGateway(), nil
	}

	if err := cfg.MoMo.Validate(); err != nil {
		return nil, fmt.Errorf("invalid momo config: %w", err)
	}
	return momo.NewClient(cfg.MoMo,
		momo.WithMetrics(m),
		momo.WithLogger(logger.WithField("component", "momo")),
	), nil
}

// newNotifier публикует подтверждения в Kafka, а без брокера пишет их в лог.
func newNotifier(producer *kafka.Producer, logger *log.Entry) notification.Notifier {
	if producer == nil {
		return notification.NewLogNotifier(logger.WithField("component", "notifier"))
	}
	return notification.NewKafkaNotifier(producer, kafka.TopicOrderNotifications)
}
