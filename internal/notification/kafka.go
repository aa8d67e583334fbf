package notification

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/shop/internal/messaging/kafka"
)

// KafkaNotifier публикует подтверждение в topic, который читает почтовый сервис.
// Повторы отправки выполняет sarama (Producer.Retry.Max).
type KafkaNotifier struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaNotifier(producer *kafka.Producer, topic string) *KafkaNotifier {
	if topic == "" {
		topic = kafka.TopicOrderNotifications
	}
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (n *KafkaNotifier) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// SendMessage не принимает контекст, поэтому дедлайн соблюдается ожиданием в горутине.
	done := make(chan error, 1)
	go func() {
		done <- n.producer.PublishJSON(n.topic, msg.OrderID, msg, map[string]string{
			kafka.HeaderEventType: "order.confirmation",
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("publish order confirmation: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Notifier = (*KafkaNotifier)(nil)
