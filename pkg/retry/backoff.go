// Package retry provides backoff algorithm implementations
package retry

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy defines the backoff strategy interface
type BackoffStrategy interface {
	// NextDelay calculates the delay before the retry numbered attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// FixedBackoff implements fixed backoff strategy
type FixedBackoff struct {
	delay  time.Duration
	jitter JitterFunc
}

// NewFixedBackoff creates a fixed backoff strategy
func NewFixedBackoff(delay time.Duration, opts ...BackoffStrategyOption) *FixedBackoff {
	b := &FixedBackoff{
		delay: delay,
	}

	for _, opt := range opts {
		opt.applyToFixed(b)
	}

	return b
}

// NextDelay calculates the delay for the next retry
func (b *FixedBackoff) NextDelay(attempt int) time.Duration {
	delay := b.delay
	if b.jitter != nil {
		delay = b.jitter(delay)
	}
	return delay
}

// ExponentialBackoff implements capped exponential backoff:
// min(maxDelay, initialDelay * multiplier^attempt)
type ExponentialBackoff struct {
	initialDelay time.Duration
	multiplier   float64
	maxDelay     time.Duration
	jitter       JitterFunc
}

// NewExponentialBackoff creates an exponential backoff strategy
func NewExponentialBackoff(initialDelay time.Duration, opts ...BackoffStrategyOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initialDelay: initialDelay,
		multiplier:   2.0,
		maxDelay:     DefaultMaxDelay,
	}

	for _, opt := range opts {
		opt.applyToExponential(b)
	}

	return b
}

// NextDelay calculates the delay for the next retry
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	// compare in float space so huge attempts saturate instead of overflowing
	var delay time.Duration
	if b.initialDelay > 0 {
		delay = b.maxDelay
		if raw := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt)); raw < float64(b.maxDelay) {
			delay = time.Duration(raw)
		}
	}

	if b.jitter != nil {
		delay = b.jitter(delay)
	}

	return delay
}

// RandFunc returns a non-negative pseudo-random number in [0, n). n > 0.
type RandFunc func(n int64) int64

// JitterFunc jitter function type
type JitterFunc func(time.Duration) time.Duration

// FullJitter returns a jitter function picking uniformly within [0, delay],
// both ends included. A zero delay, and therefore an immediate retry, is a
// valid outcome. A nil rnd uses math/rand.
func FullJitter(rnd RandFunc) JitterFunc {
	if rnd == nil {
		rnd = rand.Int63n
	}
	return func(delay time.Duration) time.Duration {
		if delay <= 0 {
			return 0
		}
		if delay == math.MaxInt64 {
			return time.Duration(rnd(int64(delay)))
		}
		return time.Duration(rnd(int64(delay) + 1))
	}
}

// BackoffStrategyOption backoff strategy configuration option
type BackoffStrategyOption interface {
	applyToFixed(*FixedBackoff)
	applyToExponential(*ExponentialBackoff)
}

type backoffStrategyOption struct {
	multiplier *float64
	maxDelay   *time.Duration
	jitter     JitterFunc
}

func (o *backoffStrategyOption) applyToFixed(b *FixedBackoff) {
	if o.jitter != nil {
		b.jitter = o.jitter
	}
}

func (o *backoffStrategyOption) applyToExponential(b *ExponentialBackoff) {
	if o.multiplier != nil {
		b.multiplier = *o.multiplier
	}
	if o.maxDelay != nil {
		b.maxDelay = *o.maxDelay
	}
	if o.jitter != nil {
		b.jitter = o.jitter
	}
}

// WithBackoffMultiplier sets backoff multiplier (exponential backoff only)
func WithBackoffMultiplier(multiplier float64) BackoffStrategyOption {
	return &backoffStrategyOption{multiplier: &multiplier}
}

// WithBackoffMaxDelay sets maximum delay time
func WithBackoffMaxDelay(maxDelay time.Duration) BackoffStrategyOption {
	return &backoffStrategyOption{maxDelay: &maxDelay}
}

// WithBackoffJitter sets jitter function
func WithBackoffJitter(jitter JitterFunc) BackoffStrategyOption {
	return &backoffStrategyOption{jitter: jitter}
}
