package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"ediaudit/internal/config"
	"ediaudit/internal/constants"
	"ediaudit/internal/logger"
	"ediaudit/pkg/errors"
	"ediaudit/pkg/logging"
	"ediaudit/pkg/metrics"
	"ediaudit/pkg/models"
	"ediaudit/pkg/retry"
)

type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return &KafkaProducer{writer: w, logger: log}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, msg models.InboundEnvelope) error {
	return p.write(ctx, topic, msg.ID, msg)
}

func (p *KafkaProducer) PublishEvent(ctx context.Context, topic string, event models.InvoiceEvent) error {
	// Key by invoice so replays of the same invoice land on one partition.
	return p.write(ctx, topic, event.InvoiceID, event)
}

func (p *KafkaProducer) write(ctx context.Context, topic, key string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: body,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type KafkaConsumer struct {
	cfg         config.KafkaConfig
	wg          sync.WaitGroup
	reader      *kafka.Reader
	logger      logger.Logger
	dlqProducer Producer
	serviceName string
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	consumer := &KafkaConsumer{
		cfg:         cfg,
		logger:      log,
		serviceName: "unknown",
	}
	if cfg.DLQTopic != "" {
		consumer.dlqProducer = NewKafkaProducer(cfg, log)
	}
	return consumer
}

func (c *KafkaConsumer) SetServiceName(name string) {
	c.serviceName = name
}

func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    topic,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})

	c.wg.Add(1)
	go c.fetchLoop(ctx, topic, handler)

	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaConsumer) fetchLoop(ctx context.Context, topic string, handler HandlerFunc) {
	defer c.wg.Done()

	loopCtx := logging.WithServiceName(ctx, c.serviceName)
	c.logger.InfowCtx(loopCtx, "Started consuming",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
	)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.InfowCtx(loopCtx, "Stopped consuming",
					"topic", topic,
					"reason", "context canceled",
				)
				return
			}
			c.logger.ErrorwCtx(loopCtx, "Error fetching kafka message",
				"error", err,
				"topic", topic,
			)
			time.Sleep(time.Second)
			continue
		}

		c.dispatch(ctx, m, topic, handler)
	}
}

// dispatch runs one fetched message through the handler and decides what to
// commit. Malformed payloads and exhausted retries are committed so the
// partition keeps moving; exhausted retries also go to the DLQ when one is
// configured.
func (c *KafkaConsumer) dispatch(ctx context.Context, m kafka.Message, topic string, handler HandlerFunc) {
	var envelope models.InboundEnvelope
	if err := json.Unmarshal(m.Value, &envelope); err != nil {
		c.logger.ErrorwCtx(ctx, "Failed to unmarshal message",
			"error", err,
			"topic", topic,
			"service_name", c.serviceName,
		)
		_ = c.reader.CommitMessages(ctx, m)
		return
	}

	msgCtx := logging.WithMessageID(ctx, envelope.ID)
	msgCtx = logging.WithServiceName(msgCtx, c.serviceName)

	err := c.processMessageWithRetry(msgCtx, envelope, handler, topic)
	if err == nil {
		if commitErr := c.reader.CommitMessages(ctx, m); commitErr != nil {
			c.logger.ErrorwCtx(msgCtx, "Failed to commit message",
				"error", commitErr,
				"topic", topic,
			)
		}
		return
	}

	c.logger.ErrorwCtx(msgCtx, "Failed to process message after retries",
		"error", err,
		"topic", topic,
	)
	if c.dlqProducer != nil && c.cfg.DLQTopic != "" {
		if dlqErr := c.sendToDLQ(msgCtx, envelope, err, topic); dlqErr != nil {
			c.logger.ErrorwCtx(msgCtx, "Failed to send message to DLQ",
				"error", dlqErr,
				"topic", topic,
			)
		}
	} else {
		c.logger.WarnwCtx(msgCtx, "No DLQ configured, committing message to avoid blocking",
			"topic", topic,
		)
	}
	_ = c.reader.CommitMessages(ctx, m)
}

func (c *KafkaConsumer) Close() error {
	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	if c.dlqProducer != nil {
		if closeErr := c.dlqProducer.Close(); err == nil {
			err = closeErr
		}
	}
	c.wg.Wait()
	return err
}

func (c *KafkaConsumer) retryPolicy() retry.Policy {
	policy := retry.Policy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}

	r := c.cfg.Retry
	if r.MaxAttempts > 0 {
		policy.MaxAttempts = r.MaxAttempts
	}
	if r.InitialInterval > 0 {
		policy.InitialInterval = r.InitialInterval
	}
	if r.MaxInterval > 0 {
		policy.MaxInterval = r.MaxInterval
	}
	if r.Multiplier > 0 {
		policy.Multiplier = r.Multiplier
	}
	if r.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = r.MaxElapsedTime
	}
	return policy
}

func (c *KafkaConsumer) processMessageWithRetry(ctx context.Context, envelope models.InboundEnvelope, handler HandlerFunc, topic string) error {
	policy := c.retryPolicy()

	attempt := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.RecoverPanic(r)
				c.logger.ErrorwCtx(ctx, "Panic recovered during message processing",
					"error", err,
					"topic", topic,
				)
			}
		}()
		return handler(ctx, envelope)
	}

	onRetry := func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(c.serviceName, topic).Inc()
		c.logger.WarnwCtx(ctx, "Retrying message processing",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	}

	return retry.RetryWithCallback(ctx, policy, attempt, onRetry)
}

func (c *KafkaConsumer) sendToDLQ(ctx context.Context, envelope models.InboundEnvelope, originalErr error, sourceTopic string) error {
	envelope.Metadata.FailureReason = originalErr.Error()

	if err := c.dlqProducer.Publish(ctx, c.cfg.DLQTopic, envelope); err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	metrics.DLQMessagesTotal.WithLabelValues(c.serviceName, sourceTopic, "max_retries_exceeded").Inc()
	c.logger.InfowCtx(ctx, "Message sent to DLQ",
		"source_topic", sourceTopic,
		"dlq_topic", c.cfg.DLQTopic,
		"reason", originalErr.Error(),
	)
	return nil
}
