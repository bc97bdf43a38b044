package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"ediaudit/internal/config"
	"ediaudit/pkg/circuitbreaker"
)

const breakerName = "redis-dedup"

// CircuitBreakerRepository shields the Redis repository so a cache outage
// cannot stall the whole ingest pipeline.
type CircuitBreakerRepository struct {
	repo Repository
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerRepository(repo Repository, cfg config.CircuitBreakerConfig) *CircuitBreakerRepository {
	if !cfg.Enabled {
		return &CircuitBreakerRepository{repo: repo}
	}

	cbConfig := circuitbreaker.DefaultConfig(breakerName)
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		}
	}

	return &CircuitBreakerRepository{
		repo: repo,
		cb:   circuitbreaker.NewWrapper(cbConfig),
	}
}

func (r *CircuitBreakerRepository) execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	result, err := r.cb.ExecuteWithContext(ctx, fn)
	r.cb.RecordRequest(err == nil)

	if err != nil {
		if r.cb.IsOpen() {
			return nil, fmt.Errorf("circuit breaker is open for %s: %w", breakerName, err)
		}
		return nil, err
	}

	return result, nil
}

func (r *CircuitBreakerRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if r.cb == nil {
		return r.repo.SetNX(ctx, key, value, ttl)
	}

	result, err := r.execute(ctx, func() (interface{}, error) {
		return r.repo.SetNX(ctx, key, value, ttl)
	})
	if err != nil {
		return false, err
	}

	wasSet, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("repository returned invalid result type")
	}
	return wasSet, nil
}

func (r *CircuitBreakerRepository) GetCacheSize(ctx context.Context, prefix string) (int, error) {
	if r.cb == nil {
		return r.repo.GetCacheSize(ctx, prefix)
	}

	result, err := r.execute(ctx, func() (interface{}, error) {
		return r.repo.GetCacheSize(ctx, prefix)
	})
	if err != nil {
		return 0, err
	}

	size, ok := result.(int)
	if !ok {
		return 0, fmt.Errorf("repository returned invalid result type")
	}
	return size, nil
}

func (r *CircuitBreakerRepository) State() string {
	if r.cb == nil {
		return "disabled"
	}
	return r.cb.State().String()
}

func (r *CircuitBreakerRepository) IsOpen() bool {
	if r.cb == nil {
		return false
	}
	return r.cb.IsOpen()
}
