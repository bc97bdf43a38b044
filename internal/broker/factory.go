package broker

import (
	"fmt"

	"ediaudit/internal/config"
	"ediaudit/internal/logger"
)

// Kafka is the only transport today. The factory indirection keeps the
// binaries from caring.

func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	if cfg.Type != "kafka" {
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
	return NewKafkaProducer(cfg.Kafka, log), nil
}

func NewConsumer(cfg config.BrokerConfig, log logger.Logger) (Consumer, error) {
	if cfg.Type != "kafka" {
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
	return NewKafkaConsumer(cfg.Kafka, log), nil
}
