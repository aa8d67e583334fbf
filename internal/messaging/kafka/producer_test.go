package kafka

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newMockProducer(t *testing.T) (*Producer, *mocks.SyncProducer) {
	t.Helper()

	mockProducer := mocks.NewSyncProducer(t, nil)
	return NewProducerFromSync(mockProducer, log.WithField("component", "kafka-producer-test")), mockProducer
}

func TestProducer_PublishJSON(t *testing.T) {
	producer, mockProducer := newMockProducer(t)

	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got map[string]string
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got["order_id"] != "order-123" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	err := producer.PublishJSON(TopicOrderEvents, "order-123", map[string]string{"order_id": "order-123"}, nil)
	require.NoError(t, err)
	require.NoError(t, mockProducer.Close())
}

func TestProducer_PublishError(t *testing.T) {
	producer, mockProducer := newMockProducer(t)

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.PublishRaw(TopicOrderEvents, "order-123", []byte(`{}`), map[string]string{HeaderEventType: "order.created"})
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, mockProducer.Close())
}

func TestProducer_PublishJSONMarshalError(t *testing.T) {
	producer, mockProducer := newMockProducer(t)

	err := producer.PublishJSON(TopicOrderEvents, "k", make(chan int), nil)
	require.Error(t, err)
	require.NoError(t, mockProducer.Close())
}
