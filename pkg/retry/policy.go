// Package retry provides retry mechanism strategies and implementations
package retry

import (
	"fmt"
	"time"

	"github.com/jzx17/actionflow/pkg/types"
)

// Default policy values, applied before any PolicyOption
const (
	DefaultInterval    = time.Second
	DefaultMaxAttempts = 0
	DefaultMaxDelay    = 60 * time.Second
)

// Policy holds the parameters that govern retries and backoff of one action.
//
// MaxAttempts is the number of retries after the first call; 0 means a
// single attempt. Interval is the fixed delay, or the base of the
// exponential delay, which is capped at MaxDelay.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
	MaxDelay    time.Duration
	Exponential bool
	Jitter      bool
}

// DefaultPolicy returns the policy every action starts from
func DefaultPolicy() Policy {
	return Policy{
		Interval:    DefaultInterval,
		MaxAttempts: DefaultMaxAttempts,
		MaxDelay:    DefaultMaxDelay,
		Exponential: true,
		Jitter:      true,
	}
}

// NewPolicy merges opts over DefaultPolicy and validates the result
func NewPolicy(opts ...PolicyOption) (Policy, error) {
	p := DefaultPolicy()
	for _, opt := range opts {
		opt(&p)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks the policy invariants
func (p Policy) Validate() error {
	if p.MaxAttempts < 0 {
		return fmt.Errorf("%w: max attempts %d is negative", types.ErrInvalidPolicy, p.MaxAttempts)
	}
	if p.Interval < 0 {
		return fmt.Errorf("%w: interval %v is negative", types.ErrInvalidPolicy, p.Interval)
	}
	if p.Interval > p.MaxDelay {
		return fmt.Errorf("%w: interval %v exceeds max delay %v", types.ErrInvalidPolicy, p.Interval, p.MaxDelay)
	}
	return nil
}

// Backoff builds the backoff strategy described by the policy. rnd is the
// random source used for jitter; nil selects the package default.
func (p Policy) Backoff(rnd RandFunc) BackoffStrategy {
	var opts []BackoffStrategyOption
	if p.Jitter {
		opts = append(opts, WithBackoffJitter(FullJitter(rnd)))
	}

	if p.Exponential {
		return NewExponentialBackoff(p.Interval, append(opts, WithBackoffMaxDelay(p.MaxDelay))...)
	}
	return NewFixedBackoff(p.Interval, opts...)
}

// PolicyOption is a configuration option for retry policies
type PolicyOption func(*Policy)

// WithInterval sets the base delay between attempts
func WithInterval(interval time.Duration) PolicyOption {
	return func(p *Policy) {
		p.Interval = interval
	}
}

// WithMaxAttempts sets the number of retries after the first attempt
func WithMaxAttempts(maxAttempts int) PolicyOption {
	return func(p *Policy) {
		p.MaxAttempts = maxAttempts
	}
}

// WithMaxDelay sets the cap of the exponential delay
func WithMaxDelay(maxDelay time.Duration) PolicyOption {
	return func(p *Policy) {
		p.MaxDelay = maxDelay
	}
}

// WithExponential enables or disables exponential growth of the delay
func WithExponential(enabled bool) PolicyOption {
	return func(p *Policy) {
		p.Exponential = enabled
	}
}

// WithJitter enables or disables full jitter
func WithJitter(enabled bool) PolicyOption {
	return func(p *Policy) {
		p.Jitter = enabled
	}
}
