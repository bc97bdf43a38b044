package retry

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newExponential builds the exponential schedule for this policy. A zero
// MaxElapsedTime means the schedule never gives up on its own.
func (p Policy) newExponential() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.Multiplier = p.Multiplier
	exp.MaxElapsedTime = p.MaxElapsedTime
	return exp
}

// delayAfter returns the delay the schedule would pick after the given
// attempt, ignoring jitter. Used for retry callbacks and logging.
func (p Policy) delayAfter(attempt int) time.Duration {
	d := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxInterval) {
		return p.MaxInterval
	}
	return time.Duration(d)
}
