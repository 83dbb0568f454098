package fetch

import (
	"time"

	"github.com/quoteline/beacon/pkg/constants"
)

// RetryPolicy controls how transient fetch failures are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, first try included.
	MaxAttempts int

	// BaseBackoff is the delay before the first retry. Each further retry
	// doubles it.
	BaseBackoff time.Duration

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
}

// DefaultRetryPolicy returns the standard policy: 3 attempts, exponential
// backoff starting at 2s, capped at 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: constants.MaxRetries,
		BaseBackoff: constants.RetryBackoff,
		MaxBackoff:  constants.MaxRetryBackoff,
	}
}

// Backoff returns the delay to wait before the given attempt (1-based for
// the first retry). Doubles per attempt, capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	delay := p.BaseBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if delay > p.MaxBackoff {
		return p.MaxBackoff
	}
	return delay
}
