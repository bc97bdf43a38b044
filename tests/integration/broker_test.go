package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"ediaudit/internal/broker"
	"ediaudit/internal/config"
	"ediaudit/pkg/models"
)

const consumeTimeout = 60 * time.Second

func startKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("audit-test-cluster"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers
}

// createTopics goes through the controller so the writer never races topic
// auto-creation.
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	configs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		configs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(configs...))
}

func TestKafkaBroker_PublishConsume(t *testing.T) {
	brokers := startKafka(t)
	createTopics(t, brokers, "audit.inbound.roundtrip")

	cfg := config.KafkaConfig{
		Brokers: brokers,
		GroupID: "audit-test-roundtrip",
	}
	log := createTestLogger()

	producer := broker.NewKafkaProducer(cfg, log)
	defer producer.Close()

	envelope := createTestEnvelope("msg-rt-001", "partner-a", rawInvoice("SENDERRT", "000000301", "INV-RT-1", "150000", "USD"))
	require.NoError(t, producer.Publish(context.Background(), "audit.inbound.roundtrip", envelope))

	received := make(chan models.InboundEnvelope, 1)
	consumer := broker.NewKafkaConsumer(cfg, log)
	consumer.SetServiceName("integration-test")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = consumer.Consume(ctx, "audit.inbound.roundtrip", func(ctx context.Context, msg models.InboundEnvelope) error {
			received <- msg
			return nil
		})
	}()
	// Cancel before Close so the fetch loop unblocks and Close's wait returns.
	defer consumer.Close()
	defer cancel()

	select {
	case got := <-received:
		assert.Equal(t, envelope.ID, got.ID)
		assert.Equal(t, envelope.Source, got.Source)
		assert.Equal(t, envelope.Raw, got.Raw)
	case <-time.After(consumeTimeout):
		t.Fatal("timed out waiting for message")
	}
}

func TestKafkaBroker_FailedMessageGoesToDLQ(t *testing.T) {
	brokers := startKafka(t)
	createTopics(t, brokers, "audit.inbound.failing", "audit.inbound.failing.dlq")

	cfg := config.KafkaConfig{
		Brokers:  brokers,
		GroupID:  "audit-test-dlq",
		DLQTopic: "audit.inbound.failing.dlq",
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: 50 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2.0,
		},
	}
	log := createTestLogger()

	producer := broker.NewKafkaProducer(cfg, log)
	defer producer.Close()

	envelope := createTestEnvelope("msg-dlq-001", "partner-b", rawInvoice("SENDERDQ", "000000302", "INV-DQ-1", "99900", "USD"))
	require.NoError(t, producer.Publish(context.Background(), "audit.inbound.failing", envelope))

	consumer := broker.NewKafkaConsumer(cfg, log)
	consumer.SetServiceName("integration-test")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = consumer.Consume(ctx, "audit.inbound.failing", func(ctx context.Context, msg models.InboundEnvelope) error {
			return fmt.Errorf("handler rejected %s", msg.ID)
		})
	}()
	defer consumer.Close()
	defer cancel()

	dlqReader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: brokers,
		GroupID: "audit-test-dlq-reader",
		Topic:   "audit.inbound.failing.dlq",
	})
	defer dlqReader.Close()

	readCtx, readCancel := context.WithTimeout(context.Background(), consumeTimeout)
	defer readCancel()
	m, err := dlqReader.ReadMessage(readCtx)
	require.NoError(t, err)

	var dead models.InboundEnvelope
	require.NoError(t, json.Unmarshal(m.Value, &dead))
	assert.Equal(t, envelope.ID, dead.ID)
	assert.Contains(t, dead.Metadata.FailureReason, "handler rejected")
}

func TestKafkaBroker_PublishEventKeyedByInvoice(t *testing.T) {
	brokers := startKafka(t)
	createTopics(t, brokers, "audit.invoice.ingested")

	cfg := config.KafkaConfig{Brokers: brokers}
	log := createTestLogger()

	producer := broker.NewKafkaProducer(cfg, log)
	defer producer.Close()

	event := models.InvoiceEvent{
		ID:         "evt-001",
		InvoiceID:  "inv-abc",
		MessageID:  "msg-evt-001",
		Source:     "partner-a",
		IngestedAt: time.Now().UTC(),
		Metadata:   map[string]interface{}{"currency": "USD"},
	}
	require.NoError(t, producer.PublishEvent(context.Background(), "audit.invoice.ingested", event))

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: brokers,
		GroupID: "audit-test-event-reader",
		Topic:   "audit.invoice.ingested",
	})
	defer reader.Close()

	readCtx, readCancel := context.WithTimeout(context.Background(), consumeTimeout)
	defer readCancel()
	m, err := reader.ReadMessage(readCtx)
	require.NoError(t, err)

	assert.Equal(t, "inv-abc", string(m.Key))

	var got models.InvoiceEvent
	require.NoError(t, json.Unmarshal(m.Value, &got))
	assert.Equal(t, event.InvoiceID, got.InvoiceID)
	assert.Equal(t, event.MessageID, got.MessageID)
}
