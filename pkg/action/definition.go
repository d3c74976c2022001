package action

import (
	"context"
	"fmt"
	"time"

	"github.com/jzx17/actionflow/pkg/retry"
	"github.com/jzx17/actionflow/pkg/types"
	"github.com/jzx17/actionflow/pkg/watcher"
)

// Definition describes an action before registration. Build it with Define.
type Definition struct {
	name         string
	worker       retry.Worker
	pollInterval time.Duration
	policyOpts   []retry.PolicyOption
	strategy     *watcher.Strategy
}

// Option configures a Definition
type Option func(*Definition)

// Define creates the definition of action name served by worker
func Define(name string, worker retry.Worker, opts ...Option) Definition {
	d := Definition{name: name, worker: worker}
	return d.With(opts...)
}

// With returns a copy of d with opts applied after its own options
func (d Definition) With(opts ...Option) Definition {
	d.policyOpts = append([]retry.PolicyOption(nil), d.policyOpts...)
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Name returns the action name
func (d Definition) Name() string {
	return d.name
}

// WithRetry merges policy options over the default retry policy
func WithRetry(opts ...retry.PolicyOption) Option {
	return func(d *Definition) {
		d.policyOpts = append(d.policyOpts, opts...)
	}
}

// WithPollInterval re-arms every finished run after interval. Zero disables
// polling.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Definition) {
		d.pollInterval = interval
	}
}

// WithStrategy overrides the engine's default concurrency strategy
func WithStrategy(strategy watcher.Strategy) Option {
	return func(d *Definition) {
		d.strategy = &strategy
	}
}

// Action is a registered, immutable action definition
type Action struct {
	Name         string
	Worker       retry.Worker
	Policy       retry.Policy
	Strategy     watcher.Strategy
	PollInterval time.Duration
}

// Polls reports whether finished runs are re-armed
func (a *Action) Polls() bool {
	return a.PollInterval > 0
}

// resolve validates d and fills unset fields from settings
func (d Definition) resolve(settings Settings) (*Action, error) {
	if d.name == "" {
		return nil, types.ErrEmptyActionName
	}
	if d.worker == nil {
		return nil, fmt.Errorf("action %s: %w", d.name, types.ErrNilWorker)
	}
	if d.pollInterval < 0 {
		return nil, fmt.Errorf("action %s: %w: negative poll interval %v", d.name, types.ErrInvalidPolicy, d.pollInterval)
	}

	policy, err := retry.NewPolicy(d.policyOpts...)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", d.name, err)
	}

	strategy := settings.DefaultStrategy
	if d.strategy != nil {
		strategy = *d.strategy
	}
	if strategy.String() == "unknown" {
		return nil, fmt.Errorf("action %s: %w: %d", d.name, types.ErrInvalidStrategy, int(strategy))
	}

	return &Action{
		Name:         d.name,
		Worker:       d.worker,
		Policy:       policy,
		Strategy:     strategy,
		PollInterval: d.pollInterval,
	}, nil
}

// ErrPayloadType is the failure of a typed worker called with a payload of
// another type
type ErrPayloadType struct {
	Want string
	Got  any
}

// Error implements the error interface
func (e *ErrPayloadType) Error() string {
	return fmt.Sprintf("payload has type %T, want %s", e.Got, e.Want)
}

// Func adapts a typed worker. A nil payload is passed as the zero P.
func Func[P, R any](fn func(ctx context.Context, payload P) (R, error)) retry.Worker {
	return func(ctx context.Context, payload any) (any, error) {
		var p P
		if payload != nil {
			typed, ok := payload.(P)
			if !ok {
				return nil, &ErrPayloadType{Want: fmt.Sprintf("%T", p), Got: payload}
			}
			p = typed
		}
		return fn(ctx, p)
	}
}
