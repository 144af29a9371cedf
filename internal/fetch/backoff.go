package fetch

import (
	"math/rand"
	"time"
)

// Backoff is a pure retry policy: exponential delay growth from BaseDelay,
// capped at MaxDelay, with optional proportional jitter. It carries no
// state; callers pass the attempt number.
type Backoff struct {
	// MaxAttempts bounds the total tries per request, including the first.
	MaxAttempts int
	// BaseDelay is the delay after the first failed attempt.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
	// Jitter is the fraction of the delay randomized in [-Jitter, +Jitter].
	// Zero disables jitter, which keeps unit tests deterministic.
	Jitter float64
}

// DefaultBackoff matches the published rate budget of 75 requests per 10
// seconds: four attempts with 500ms doubling stays well under the floor.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Jitter:      0.2,
	}
}

// Delay returns the sleep before retry number attempt (1-based: attempt 1 is
// the delay after the first failure).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := b.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if b.MaxDelay > 0 && delay >= b.MaxDelay {
			delay = b.MaxDelay
			break
		}
	}
	if b.MaxDelay > 0 && delay > b.MaxDelay {
		delay = b.MaxDelay
	}
	if b.Jitter > 0 {
		spread := float64(delay) * b.Jitter
		delay += time.Duration((rand.Float64()*2 - 1) * spread)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}
