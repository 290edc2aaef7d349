// Package backoff computes the retry delay for a failed job attempt.
// It is a pure, stateless function of the attempt count and the
// configured base: delay = base^attempts.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Policy computes the delay before a failed job becomes eligible again.
type Policy struct {
	// Base is the exponent base (config key backoff_base, default 2, must be >= 2).
	Base int
	// Jitter adds up to this fraction of positive jitter to the computed
	// delay (0 disables jitter). Spec allows up to 0.10.
	Jitter float64
}

// NewPolicy returns a Policy with no jitter.
func NewPolicy(base int) Policy {
	return Policy{Base: base}
}

// Delay returns base^attempts seconds, optionally perturbed by up to
// Jitter extra (always non-negative, never shortening the delay).
// attempts is the 1-based count of the failed attempt that just
// finished, matching the value fail_job observes on row.attempts.
func (p Policy) Delay(attempts int) time.Duration {
	base := p.Base
	if base < 2 {
		base = 2
	}
	if attempts < 1 {
		attempts = 1
	}

	seconds := math.Pow(float64(base), float64(attempts))
	d := time.Duration(seconds * float64(time.Second))

	if p.Jitter > 0 {
		d += time.Duration(rand.Float64() * p.Jitter * float64(d))
	}

	return d
}

// NextRetryAt returns the absolute instant a failed job becomes eligible again.
func (p Policy) NextRetryAt(now time.Time, attempts int) time.Time {
	return now.Add(p.Delay(attempts))
}
