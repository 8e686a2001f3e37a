package worker

import (
	"math"
	"time"
)

// RetryPolicy controls how failed sheet sync tasks are rescheduled.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultSheetsRetry suits the Sheets API write quota: five attempts spread over a few minutes.
func DefaultSheetsRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
}

// Exhausted reports whether attempt (1-based) has used up the budget.
// A zero MaxRetries fails a task on its first error.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxRetries
}

// NextDelay returns the backoff before attempt (1-based), capped by MaxDelay.
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := p.InitialDelay
	if base <= 0 {
		base = time.Second
	}
	factor := p.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	d := time.Duration(float64(base) * math.Pow(factor, float64(attempt-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// NextRetryAt is the moment the task becomes pending again.
func (p RetryPolicy) NextRetryAt(now time.Time, attempt int) time.Time {
	return now.Add(p.NextDelay(attempt))
}
