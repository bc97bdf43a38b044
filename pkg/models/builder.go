package models

import (
	"time"

	"github.com/google/uuid"
)

// EnvelopeBuilder assembles an InboundEnvelope step by step.
type EnvelopeBuilder struct {
	envelope InboundEnvelope
}

func NewEnvelopeBuilder() *EnvelopeBuilder {
	return &EnvelopeBuilder{
		envelope: InboundEnvelope{
			ID:        uuid.New().String(),
			Timestamp: time.Now().UTC(),
		},
	}
}

func (b *EnvelopeBuilder) WithID(id string) *EnvelopeBuilder {
	b.envelope.ID = id
	return b
}

func (b *EnvelopeBuilder) WithSource(source string) *EnvelopeBuilder {
	b.envelope.Source = source
	return b
}

func (b *EnvelopeBuilder) WithRaw(raw string) *EnvelopeBuilder {
	b.envelope.Raw = raw
	return b
}

func (b *EnvelopeBuilder) WithDedup(isUnique bool) *EnvelopeBuilder {
	b.envelope.Metadata.Dedup = &DedupInfo{
		IsUnique:  isUnique,
		CheckedAt: time.Now().UTC(),
	}
	return b
}

func (b *EnvelopeBuilder) WithFailureReason(reason string) *EnvelopeBuilder {
	b.envelope.Metadata.FailureReason = reason
	return b
}

func (b *EnvelopeBuilder) Build() (InboundEnvelope, error) {
	if err := ValidateEnvelope(b.envelope); err != nil {
		return InboundEnvelope{}, err
	}
	return b.envelope, nil
}

// MustBuild panics on validation failure. Test helper.
func (b *EnvelopeBuilder) MustBuild() InboundEnvelope {
	env, err := b.Build()
	if err != nil {
		panic(err)
	}
	return env
}
