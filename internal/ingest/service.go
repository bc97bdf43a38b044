package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ediaudit/internal/acceptance"
	"ediaudit/internal/archive"
	"ediaudit/internal/broker"
	"ediaudit/internal/config"
	"ediaudit/internal/dedup"
	"ediaudit/internal/edi"
	"ediaudit/internal/logger"
	pkgerrors "ediaudit/pkg/errors"
	"ediaudit/pkg/logging"
	"ediaudit/pkg/metrics"
	"ediaudit/pkg/models"
)

type Service interface {
	Decode(ctx context.Context, raw string) (*edi.ParsedMessage, error)
	Ingest(ctx context.Context, env models.InboundEnvelope) (*Invoice, error)
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error)
	GetRawMessage(ctx context.Context, invoiceID string) (*archive.RawMessage, error)
}

type serviceImpl struct {
	repo        Repository
	acceptance  *acceptance.Service
	dedup       *dedup.Service
	archiveRepo archive.Repository
	producer    broker.Producer
	cfg         *config.Config
	logger      logger.Logger
}

func NewService(
	repo Repository,
	acceptanceSvc *acceptance.Service,
	dedupSvc *dedup.Service,
	archiveRepo archive.Repository,
	producer broker.Producer,
	cfg *config.Config,
	log logger.Logger,
) Service {
	return &serviceImpl{
		repo:        repo,
		acceptance:  acceptanceSvc,
		dedup:       dedupSvc,
		archiveRepo: archiveRepo,
		producer:    producer,
		cfg:         cfg,
		logger:      log,
	}
}

// Decode parses a raw message without touching storage. Used by the
// preview endpoint and the first step of Ingest.
func (s *serviceImpl) Decode(ctx context.Context, raw string) (*edi.ParsedMessage, error) {
	start := time.Now()

	parsed, err := edi.Decode(raw)
	if err != nil {
		metrics.DecodeMessagesTotal.WithLabelValues("invalid").Inc()
		metrics.ObserveDecodeDuration(time.Since(start), "invalid")
		return nil, pkgerrors.ErrInvalidMessage.WithCause(err)
	}

	metrics.DecodeMessagesTotal.WithLabelValues("decoded").Inc()
	metrics.ObserveDecodeDuration(time.Since(start), "decoded")
	return parsed, nil
}

// Ingest runs the full pipeline for one envelope: decode, acceptance
// check, duplicate check, persist, archive, publish.
func (s *serviceImpl) Ingest(ctx context.Context, env models.InboundEnvelope) (*Invoice, error) {
	ctx = logging.WithMessageID(ctx, env.ID)
	start := time.Now()

	if err := models.ValidateEnvelope(env); err != nil {
		s.recordOutcome(start, "invalid")
		return nil, pkgerrors.ErrInvalidMessage.WithCause(err)
	}

	parsed, err := s.Decode(ctx, env.Raw)
	if err != nil {
		s.recordOutcome(start, "invalid")
		return nil, err
	}

	invoiceFields := parsed.Metadata.Map()
	segmentCount := len(parsed.Segments)

	accepted, appliedRules, err := s.acceptance.Evaluate(ctx, env, invoiceFields, segmentCount)
	if err != nil {
		s.recordOutcome(start, "error")
		return nil, err
	}
	if !accepted {
		s.recordOutcome(start, "rejected")
		s.logger.InfowCtx(ctx, "Invoice rejected by acceptance rules",
			"source", env.Source,
			"invoice_number", parsed.Metadata.InvoiceNumber,
		)
		return nil, pkgerrors.ErrRejected.WithDetail("message_id", env.ID)
	}

	unique, err := s.dedup.Check(ctx, env.ID, invoiceFields)
	if err != nil {
		s.recordOutcome(start, "error")
		return nil, err
	}
	if !unique {
		s.recordOutcome(start, "duplicate")
		s.logger.InfowCtx(ctx, "Duplicate interchange dropped",
			"source", env.Source,
			"invoice_number", parsed.Metadata.InvoiceNumber,
			"control_number", parsed.Metadata.ControlNumber,
		)
		return nil, pkgerrors.ErrDuplicate.WithDetail("message_id", env.ID)
	}

	invoice := NewInvoiceFromMetadata(parsed.Metadata, segmentCount)
	invoice.ID = uuid.New().String()
	invoice.MessageID = env.ID
	invoice.Source = env.Source
	invoice.RulesApplied = appliedRules
	invoice.IngestedAt = time.Now().UTC()

	if err := s.repo.Create(ctx, &invoice); err != nil {
		s.recordOutcome(start, "error")
		return nil, err
	}

	ctx = logging.WithInvoiceID(ctx, invoice.ID)

	s.archiveRaw(ctx, env, invoice.ID)
	s.publishEvent(ctx, env, invoice, invoiceFields)

	s.recordOutcome(start, "accepted")
	s.logger.InfowCtx(ctx, "Invoice ingested",
		"source", env.Source,
		"invoice_number", invoice.InvoiceNumber,
		"segment_count", segmentCount,
	)

	return &invoice, nil
}

func (s *serviceImpl) archiveRaw(ctx context.Context, env models.InboundEnvelope, invoiceID string) {
	if s.archiveRepo == nil || !s.cfg.Archive.Enabled {
		return
	}

	err := s.archiveRepo.Store(ctx, archive.RawMessage{
		MessageID:  env.ID,
		InvoiceID:  invoiceID,
		Source:     env.Source,
		Raw:        env.Raw,
		ReceivedAt: env.Timestamp,
		ArchivedAt: time.Now().UTC(),
	})
	if err != nil {
		// The invoice row is already committed. Keep going and let the
		// archive backfill from the event stream if needed.
		s.logger.ErrorwCtx(ctx, "Failed to archive raw message",
			"error", err,
		)
	}
}

func (s *serviceImpl) publishEvent(ctx context.Context, env models.InboundEnvelope, invoice Invoice, invoiceFields map[string]interface{}) {
	if s.producer == nil {
		return
	}

	topic := s.cfg.Broker.Kafka.InvoiceTopic
	if topic == "" {
		return
	}

	event := models.InvoiceEvent{
		ID:         uuid.New().String(),
		InvoiceID:  invoice.ID,
		MessageID:  env.ID,
		Source:     env.Source,
		IngestedAt: invoice.IngestedAt,
		Metadata:   invoiceFields,
	}

	if err := models.ValidateInvoiceEvent(event); err != nil {
		s.logger.ErrorwCtx(ctx, "Refusing to publish malformed invoice event",
			"error", err,
		)
		return
	}

	if err := s.producer.PublishEvent(ctx, topic, event); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to publish invoice event",
			"error", err,
			"topic", topic,
		)
		return
	}

	metrics.IncKafkaMessagesWritten("ingest", topic)
}

func (s *serviceImpl) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *serviceImpl) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.repo.List(ctx, filter)
}

func (s *serviceImpl) GetRawMessage(ctx context.Context, invoiceID string) (*archive.RawMessage, error) {
	if s.archiveRepo == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "archive is disabled")
	}
	return s.archiveRepo.GetByInvoiceID(ctx, invoiceID)
}

func (s *serviceImpl) recordOutcome(start time.Time, status string) {
	metrics.IngestMessagesTotal.WithLabelValues(status).Inc()
	metrics.ObserveIngestDuration(time.Since(start), status)
}
