package kafka

import "github.com/vladislavdragonenkov/shop/internal/domain"

// Topics для Kafka
const (
	TopicOrderEvents        = "shop.order.events"
	TopicPaymentEvents      = "shop.payment.events"
	TopicOrderNotifications = "shop.notifications.order-confirmation"
	TopicDeadLetterQueue    = "shop.dlq"
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOriginalTopic = "x-original-topic"
)

// TopicFor выбирает topic по типу агрегата outbox-сообщения.
func TopicFor(aggregateType string) string {
	switch aggregateType {
	case domain.AggregatePayment:
		return TopicPaymentEvents
	default:
		return TopicOrderEvents
	}
}
