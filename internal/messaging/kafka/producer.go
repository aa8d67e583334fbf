package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// ProducerOptions — настройки sarama producer.
type ProducerOptions struct {
	// MaxRetries — сколько раз sarama повторяет отправку внутри SendMessage.
	MaxRetries   int
	RetryBackoff time.Duration
	Timeout      time.Duration
	Logger       *log.Entry
}

// Producer публикует JSON-сообщения в Kafka.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// NewProducer создаёт синхронный идемпотентный producer.
func NewProducer(brokers []string, opts ProducerOptions) (*Producer, error) {
	config := sarama.NewConfig()
	config.ClientID = "shop-api"
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	if opts.MaxRetries > 0 {
		config.Producer.Retry.Max = opts.MaxRetries
	}
	if opts.RetryBackoff > 0 {
		config.Producer.Retry.Backoff = opts.RetryBackoff
	}
	if opts.Timeout > 0 {
		config.Producer.Timeout = opts.Timeout
		config.Net.DialTimeout = opts.Timeout
		config.Net.WriteTimeout = opts.Timeout
	}
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return NewProducerFromSync(producer, opts.Logger), nil
}

// NewProducerFromSync оборачивает готовый sarama.SyncProducer.
func NewProducerFromSync(producer sarama.SyncProducer, logger *log.Entry) *Producer {
	if logger == nil {
		logger = log.WithField("component", "kafka-producer")
	}
	return &Producer{producer: producer, logger: logger}
}

// PublishJSON сериализует value в JSON и отправляет его в topic.
func (p *Producer) PublishJSON(topic, key string, value any, headers map[string]string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.PublishRaw(topic, key, data, headers)
}

// PublishRaw отправляет готовые байты.
func (p *Producer) PublishRaw(topic, key string, value []byte, headers map[string]string) error {
	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Timestamp: time.Now(),
	}
	for name, v := range headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(name), Value: []byte(v)})
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")

	return nil
}

// Close закрывает producer
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}
