package broker

import (
	"context"

	"ediaudit/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, msg models.InboundEnvelope) error
	PublishEvent(ctx context.Context, topic string, event models.InvoiceEvent) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, msg models.InboundEnvelope) error
