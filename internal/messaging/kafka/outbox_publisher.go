package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// OutboxPublisher публикует outbox-сообщения в Kafka. Без явного topic
// сообщение уходит в topic своего агрегата (см. TopicFor).
type OutboxPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт паблишер с маршрутизацией по типу агрегата.
func NewOutboxPublisher(producer *Producer) *OutboxPublisher {
	return &OutboxPublisher{producer: producer}
}

// NewTopicPublisher создаёт паблишер, пишущий всё в один topic (например, DLQ).
func NewTopicPublisher(producer *Producer, topic string) *OutboxPublisher {
	return &OutboxPublisher{producer: producer, topic: topic}
}

type outboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

func (p *OutboxPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}
	topic := p.topic
	if topic == "" {
		topic = TopicFor(event.AggregateType)
	}

	payload := json.RawMessage(event.Payload)
	if !json.Valid(payload) {
		return fmt.Errorf("outbox message %s has invalid json payload", event.ID)
	}

	headers := map[string]string{
		HeaderEventType:     event.EventType,
		HeaderAggregateType: event.AggregateType,
	}
	if p.topic != "" {
		headers[HeaderOriginalTopic] = TopicFor(event.AggregateType)
	}

	return p.producer.PublishJSON(topic, key, outboxEnvelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       payload,
		PublishedAt:   time.Now().UTC(),
	}, headers)
}

var _ domain.OutboxPublisher = (*OutboxPublisher)(nil)
