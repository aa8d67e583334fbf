// Команда dlq-replay перечитывает topic мёртвых писем outbox и
// повторно публикует исходные события. По умолчанию работает в dry-run.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
	envKafkaBrokers    = "SHOP_KAFKA_BROKERS"
)

type config struct {
	brokers     []string
	sourceTopic string
	// targetTopic пуст: событие уходит в topic своего агрегата.
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

// deadLetter повторяет формат, который outbox worker кладёт в payload DLQ.
type deadLetter struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
	Attempts      int             `json:"attempts"`
}

type dlqEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

type saramaConsumerAdapter struct {
	consumer sarama.Consumer
}

func (a saramaConsumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	return a.consumer.ConsumePartition(topic, partition, offset)
}

func (a saramaConsumerAdapter) Close() error {
	return a.consumer.Close()
}

// replayDeps — соединения с Kafka; publisher и closeFn nil в dry-run.
type replayDeps struct {
	client    offsetClient
	consumer  partitionConsumerSource
	publisher domain.OutboxPublisher
	closeFn   func() error
}

var newReplayDeps = func(cfg config) (*replayDeps, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.ClientID = "shop-dlq-replay"
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	rawConsumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	deps := &replayDeps{client: client, consumer: saramaConsumerAdapter{consumer: rawConsumer}}
	if !cfg.execute {
		return deps, nil
	}

	producer, err := kafka.NewProducer(cfg.brokers, kafka.ProducerOptions{
		Logger: log.WithField("component", "dlq-replay"),
	})
	if err != nil {
		_ = rawConsumer.Close()
		_ = client.Close()
		return nil, err
	}
	if cfg.targetTopic != "" {
		deps.publisher = kafka.NewTopicPublisher(producer, cfg.targetTopic)
	} else {
		deps.publisher = kafka.NewOutboxPublisher(producer)
	}
	deps.closeFn = producer.Close
	return deps, nil
}

func (d *replayDeps) close() {
	if d.closeFn != nil {
		_ = d.closeFn()
	}
	if d.consumer != nil {
		_ = d.consumer.Close()
	}
	if d.client != nil {
		_ = d.client.Close()
	}
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := parseConfig(os.Args[1:], os.Getenv)
	if err != nil {
		fail("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func parseConfig(args []string, getenv func(string) string) (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	fs := flag.NewFlagSet("dlq-replay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: "+envKafkaBrokers+")")
	fs.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ source topic")
	fs.StringVar(&cfg.targetTopic, "target-topic", "", "override target topic (default: topic of the event aggregate)")
	fs.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of messages to scan/replay")
	fs.BoolVar(&cfg.execute, "execute", false, "execute replay; default is dry-run")
	fs.BoolVar(&cfg.fromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = getenv(envKafkaBrokers)
	}
	cfg.brokers = parseBrokers(brokersRaw)
	cfg.sourceTopic = strings.TrimSpace(cfg.sourceTopic)
	cfg.targetTopic = strings.TrimSpace(cfg.targetTopic)

	switch {
	case len(cfg.brokers) == 0:
		return config{}, fmt.Errorf("kafka brokers are required (-brokers or %s)", envKafkaBrokers)
	case cfg.sourceTopic == "":
		return config{}, errors.New("source-topic is required")
	case cfg.targetTopic == cfg.sourceTopic:
		return config{}, errors.New("target-topic must differ from source-topic")
	case cfg.limit <= 0:
		return config{}, errors.New("limit must be > 0")
	case cfg.idleTimeout <= 0:
		return config{}, errors.New("idle-timeout must be > 0")
	}
	return cfg, nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func run(ctx context.Context, cfg config) error {
	log.WithFields(log.Fields{
		"source_topic": cfg.sourceTopic,
		"target_topic": cfg.targetTopic,
		"limit":        cfg.limit,
		"execute":      cfg.execute,
		"from_newest":  cfg.fromNewest,
	}).Info("starting dlq replay")

	deps, err := newReplayDeps(cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	_, err = runReplay(ctx, cfg, deps)
	return err
}

type replayStats struct {
	processed int
	replayed  int
	skipped   int
}

func (s *replayStats) add(other replayStats) {
	s.processed += other.processed
	s.replayed += other.replayed
	s.skipped += other.skipped
}

func runReplay(ctx context.Context, cfg config, deps *replayDeps) (replayStats, error) {
	var total replayStats
	if deps == nil || deps.client == nil || deps.consumer == nil {
		return total, errors.New("kafka client and consumer are required")
	}
	if cfg.execute && deps.publisher == nil {
		return total, errors.New("publisher is required in execute mode")
	}

	partitions, err := deps.client.Partitions(cfg.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", cfg.sourceTopic, err)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if total.processed >= cfg.limit {
			break
		}
		stats, err := replayPartition(ctx, cfg, deps, partition, cfg.limit-total.processed)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":      mode,
		"processed": total.processed,
		"replayed":  total.replayed,
		"skipped":   total.skipped,
	}).Info("dlq replay finished")

	return total, nil
}

// replayPartition читает сообщения до зафиксированного на старте newest offset,
// чтобы не зациклиться на письмах, попавших в DLQ во время прогона.
func replayPartition(ctx context.Context, cfg config, deps *replayDeps, partition int32, limit int) (replayStats, error) {
	var stats replayStats

	oldest, err := deps.client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := deps.client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	start := oldest
	if cfg.fromNewest && newest-int64(limit) > oldest {
		start = newest - int64(limit)
	}

	pc, err := deps.consumer.ConsumePartition(cfg.sourceTopic, partition, start)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(cfg.idleTimeout)
	defer idle.Stop()

	for stats.processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case cerr := <-pc.Errors():
			if cerr != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, cerr)
			}
		case <-idle.C:
			return stats, nil
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(cfg.idleTimeout)

			stats.processed++
			event, err := decodeDeadLetter(msg.Value)
			if err != nil {
				stats.skipped++
				log.WithError(err).WithFields(log.Fields{
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Warn("skip unsupported dlq message")
			} else if cfg.execute {
				if err := deps.publisher.Publish(event); err != nil {
					return stats, fmt.Errorf("republish outbox %s: %w", event.ID, err)
				}
				stats.replayed++
			} else {
				log.WithFields(log.Fields{
					"partition":    msg.Partition,
					"offset":       msg.Offset,
					"outbox_id":    event.ID,
					"event_type":   event.EventType,
					"target_topic": targetTopic(cfg, event),
				}).Info("dlq replay candidate")
				stats.replayed++
			}

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		}
	}
	return stats, nil
}

// decodeDeadLetter восстанавливает исходное outbox-событие из конверта DLQ.
func decodeDeadLetter(raw []byte) (domain.OutboxMessage, error) {
	var envelope dlqEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("decode dlq envelope: %w", err)
	}
	if len(envelope.Payload) == 0 {
		return domain.OutboxMessage{}, errors.New("dlq envelope has no payload")
	}

	var letter deadLetter
	if err := json.Unmarshal(envelope.Payload, &letter); err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("decode dead letter: %w", err)
	}
	if len(letter.Payload) == 0 || !json.Valid(letter.Payload) {
		return domain.OutboxMessage{}, errors.New("dead letter does not contain original event payload")
	}

	return domain.OutboxMessage{
		ID:            firstNonEmpty(letter.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(letter.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(letter.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(letter.EventType, envelope.EventType),
		Payload:       []byte(letter.Payload),
	}, nil
}

func targetTopic(cfg config, event domain.OutboxMessage) string {
	if cfg.targetTopic != "" {
		return cfg.targetTopic
	}
	return kafka.TopicFor(event.AggregateType)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
