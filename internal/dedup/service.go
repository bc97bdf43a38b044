package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ediaudit/internal/config"
	"ediaudit/internal/constants"
	"ediaudit/internal/logger"
	"ediaudit/pkg/metrics"
)

type redisErrorHandlingStatus int

const (
	redisErrorHandlingDeny redisErrorHandlingStatus = iota
	redisErrorHandlingAllow
)

// Service answers whether an interchange has been seen before. Identity is
// a hash over the sender, interchange control number and invoice number by
// default, so replays of the same file from a partner are caught even when
// the transport assigns fresh message IDs.
type Service struct {
	repo             Repository
	hasher           *Hasher
	cfg              config.DedupConfig
	fieldsToHash     []string
	logger           logger.Logger
	fieldsMu         sync.RWMutex
	cancelMetricsCtx context.CancelFunc
}

func NewService(repo Repository, cfg config.DedupConfig, log logger.Logger) *Service {
	fieldsToHash := cfg.FieldsToHash
	if len(fieldsToHash) == 0 {
		fieldsToHash = []string{"sender_id", "control_number", "invoice_number"}
		log.Infow("No fields_to_hash configured, using defaults", "fields", fieldsToHash)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		repo:             repo,
		hasher:           NewHasher(cfg.HashAlgorithm),
		cfg:              cfg,
		fieldsToHash:     fieldsToHash,
		logger:           log,
		cancelMetricsCtx: cancel,
	}

	go s.updateCacheSizeMetrics(ctx)

	return s
}

// Check returns true when the invoice identified by the given fields has
// not been seen within the TTL window.
func (s *Service) Check(ctx context.Context, messageID string, invoice map[string]interface{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fieldsToHash := s.getFieldsToHash()

	hash, err := s.hasher.ComputeHash(invoice, fieldsToHash)
	if err != nil {
		return false, fmt.Errorf("failed to compute hash for message %s: %w", messageID, err)
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	ttlSeconds := s.cfg.TTLSeconds
	if ttlSeconds <= 0 {
		ttlSeconds = constants.DefaultDedupTTLSeconds
	}

	key := constants.CacheKeyPrefixInterchange + hash
	start := time.Now()
	unique, err := s.repo.SetNX(ctx, key, time.Now().Unix(), time.Duration(ttlSeconds)*time.Second)
	duration := time.Since(start)

	if err != nil {
		return s.handleRedisError(ctx, err, duration, messageID)
	}

	s.recordMetrics(duration, unique)
	return unique, nil
}

func (s *Service) getFieldsToHash() []string {
	s.fieldsMu.RLock()
	defer s.fieldsMu.RUnlock()

	fields := make([]string, len(s.fieldsToHash))
	copy(fields, s.fieldsToHash)
	return fields
}

func (s *Service) handleRedisError(ctx context.Context, err error, duration time.Duration, messageID string) (bool, error) {
	s.recordMetricsWithStatus(duration, "error")

	if s.getRedisErrorHandlingStatus(ctx, err) == redisErrorHandlingAllow {
		return true, nil
	}
	return false, fmt.Errorf("redis error during dedup check for message %s: %w", messageID, err)
}

func (s *Service) getRedisErrorHandlingStatus(ctx context.Context, err error) redisErrorHandlingStatus {
	if s.cfg.OnRedisError == constants.FallbackAllow {
		metrics.FallbackUsageTotal.WithLabelValues("dedup", "allow_on_error", err.Error()).Inc()
		s.logger.WarnwCtx(ctx, "Redis error during dedup check, allowing message (fallback: allow)",
			"error", err,
		)
		return redisErrorHandlingAllow
	}

	metrics.FallbackUsageTotal.WithLabelValues("dedup", "deny_on_error", err.Error()).Inc()
	return redisErrorHandlingDeny
}

func (s *Service) recordMetrics(duration time.Duration, isUnique bool) {
	status := "duplicate"
	if isUnique {
		status = "unique"
	}
	s.recordMetricsWithStatus(duration, status)
}

func (s *Service) recordMetricsWithStatus(duration time.Duration, status string) {
	metrics.DedupMessagesTotal.WithLabelValues(status).Inc()
	metrics.ObserveDedupDuration(duration, status)
}

// UpdateFieldsToHash replaces the identity fields at runtime.
func (s *Service) UpdateFieldsToHash(fields []string) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields list cannot be empty")
	}

	fieldsCopy := make([]string, len(fields))
	copy(fieldsCopy, fields)

	s.fieldsMu.Lock()
	s.fieldsToHash = fieldsCopy
	s.fieldsMu.Unlock()

	s.logger.Infow("Updated fields to hash", "fields", fieldsCopy)
	return nil
}

func (s *Service) GetFieldsToHash() []string {
	return s.getFieldsToHash()
}

func (s *Service) updateCacheSizeMetrics(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			size, err := s.repo.GetCacheSize(ctx, constants.CacheKeyPrefixInterchange)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Debugw("Failed to get cache size for metrics",
					"error", err,
				)
				continue
			}
			metrics.SetDedupCacheSize(size)
		case <-ctx.Done():
			return
		}
	}
}

// Stop terminates the background cache metrics updater.
func (s *Service) Stop() {
	if s.cancelMetricsCtx != nil {
		s.cancelMetricsCtx()
	}
}
