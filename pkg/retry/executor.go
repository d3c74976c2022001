// Package retry provides retry executor implementation
package retry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jzx17/actionflow/pkg/types"
)

// ErrSuppressed is returned by a run whose event was refused by the emitter
// while its context was still live
var ErrSuppressed = errors.New("lifecycle event suppressed")

// Worker is the opaque asynchronous operation behind an action. Workers
// that honour ctx are interrupted when their run is cancelled; the result
// of a worker that ignores it is discarded.
type Worker func(ctx context.Context, payload any) (any, error)

// Emitter publishes lifecycle events of a run. Emit returns false when the
// event was not applied, which ends the run.
type Emitter interface {
	Emit(ctx context.Context, ev types.Event) bool
}

// EmitterFunc adapts a function to the Emitter interface
type EmitterFunc func(ctx context.Context, ev types.Event) bool

// Emit calls f(ctx, ev)
func (f EmitterFunc) Emit(ctx context.Context, ev types.Event) bool {
	return f(ctx, ev)
}

// Runner starts one run of an action for a payload. It returns nil once the
// run reached its terminal event and the context error when it was
// cancelled.
type Runner interface {
	Run(ctx context.Context, name string, payload any, worker Worker, emitter Emitter) error
}

// Executor runs a worker with bounded retries and emits a lifecycle event
// for each phase: Retry before every backoff wait, then exactly one
// Success or Fail.
type Executor struct {
	policy       Policy
	backoff      BackoffStrategy
	rand         RandFunc
	eventHandler EventHandler
	metrics      MetricsCollector
	stats        RetryStats
	clock        types.Clock
}

// RetryStats contains retry statistics
type RetryStats struct {
	TotalAttempts   int64         // total worker calls
	TotalRetries    int64         // total retries scheduled
	TotalSuccesses  int64         // runs ended with Success
	TotalFailures   int64         // runs ended with Fail
	TotalCancelled  int64         // runs ended by cancellation
	AverageAttempts float64       // average worker calls per finished run
	LastRetryTime   time.Time     // last retry time
	TotalRetryDelay time.Duration // total backoff scheduled
	mu              sync.RWMutex
}

// EventHandler observes the phases of a run
type EventHandler interface {
	OnAttemptFailed(ctx context.Context, action string, attempt int, err error)
	OnRetryScheduled(ctx context.Context, action string, attempt int, delay time.Duration)
	OnSuccess(ctx context.Context, action string, attempts int, duration time.Duration)
	OnMaxAttemptsReached(ctx context.Context, action string, attempts int, err error)
}

// MetricsCollector receives run measurements
type MetricsCollector interface {
	RecordAttempt(action string)
	RecordRetry(action string, delay time.Duration)
	RecordSuccess(action string, attempts int, duration time.Duration)
	RecordFailure(action string, attempts int, duration time.Duration)
	RecordCancel(action string)
}

// NewExecutor creates a retry executor for policy. The policy is assumed
// valid; see Policy.Validate.
func NewExecutor(policy Policy, opts ...ExecutorOption) *Executor {
	executor := &Executor{
		policy: policy,
		clock:  types.NewRealClock(),
	}

	for _, opt := range opts {
		opt(executor)
	}

	executor.backoff = policy.Backoff(executor.rand)
	return executor
}

// Policy returns the policy the executor runs with
func (r *Executor) Policy() Policy {
	return r.policy
}

// Clock returns the clock used for backoff waits
func (r *Executor) Clock() types.Clock {
	return r.clock
}

// Run executes worker for payload until it succeeds or the retry budget is
// spent. Worker failures never escape: they become Retry and Fail events.
func (r *Executor) Run(ctx context.Context, name string, payload any, worker Worker, emitter Emitter) error {
	start := r.clock.Now()
	attempt := 0

	for {
		attempt++

		if err := ctx.Err(); err != nil {
			return r.cancelled(name, err)
		}

		r.updateStats(func(stats *RetryStats) {
			stats.TotalAttempts++
		})
		if r.metrics != nil {
			r.metrics.RecordAttempt(name)
		}

		result, err := call(ctx, worker, payload)

		// the result of a call that outlived its run is discarded
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.cancelled(name, ctxErr)
		}

		// a terminal outcome counts only once its event is applied
		if err == nil {
			duration := r.clock.Since(start)
			if err := r.emit(ctx, emitter, types.Success{ActionName: name, Result: result}); err != nil {
				return err
			}
			r.updateStats(func(stats *RetryStats) {
				stats.TotalSuccesses++
				stats.updateAverageAttempts()
			})
			if r.eventHandler != nil {
				r.eventHandler.OnSuccess(ctx, name, attempt, duration)
			}
			if r.metrics != nil {
				r.metrics.RecordSuccess(name, attempt, duration)
			}
			return nil
		}

		if r.eventHandler != nil {
			r.eventHandler.OnAttemptFailed(ctx, name, attempt, err)
		}

		if attempt > r.policy.MaxAttempts {
			duration := r.clock.Since(start)
			if err := r.emit(ctx, emitter, types.Fail{ActionName: name, Err: r.wrapError(name, err, attempt)}); err != nil {
				return err
			}
			r.updateStats(func(stats *RetryStats) {
				stats.TotalFailures++
				stats.updateAverageAttempts()
			})
			if r.eventHandler != nil {
				r.eventHandler.OnMaxAttemptsReached(ctx, name, attempt, err)
			}
			if r.metrics != nil {
				r.metrics.RecordFailure(name, attempt, duration)
			}
			return nil
		}

		delay := r.backoff.NextDelay(attempt)

		r.updateStats(func(stats *RetryStats) {
			stats.TotalRetries++
			stats.LastRetryTime = r.clock.Now()
			stats.TotalRetryDelay += delay
		})
		if r.eventHandler != nil {
			r.eventHandler.OnRetryScheduled(ctx, name, attempt, delay)
		}
		if r.metrics != nil {
			r.metrics.RecordRetry(name, delay)
		}

		if err := r.emit(ctx, emitter, types.Retry{ActionName: name, Attempt: attempt, Delay: delay}); err != nil {
			return err
		}

		if err := types.Sleep(ctx, r.clock, delay); err != nil {
			return r.cancelled(name, err)
		}
	}
}

// call invokes the worker, turning a panic into an error
func call(ctx context.Context, worker Worker, payload any) (result any, err error) {
	defer func() {
		if v := recover(); v != nil {
			result = nil
			err = &types.PanicError{Value: v}
		}
	}()
	return worker(ctx, payload)
}

func (r *Executor) emit(ctx context.Context, emitter Emitter, ev types.Event) error {
	if emitter.Emit(ctx, ev) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return r.cancelled(ev.Action(), err)
	}
	return ErrSuppressed
}

func (r *Executor) cancelled(name string, err error) error {
	r.updateStats(func(stats *RetryStats) {
		stats.TotalCancelled++
	})
	if r.metrics != nil {
		r.metrics.RecordCancel(name)
	}
	return err
}

// GetStats gets retry statistics
func (r *Executor) GetStats() RetryStats {
	r.stats.mu.RLock()
	defer r.stats.mu.RUnlock()
	return RetryStats{
		TotalAttempts:   r.stats.TotalAttempts,
		TotalRetries:    r.stats.TotalRetries,
		TotalSuccesses:  r.stats.TotalSuccesses,
		TotalFailures:   r.stats.TotalFailures,
		TotalCancelled:  r.stats.TotalCancelled,
		AverageAttempts: r.stats.AverageAttempts,
		LastRetryTime:   r.stats.LastRetryTime,
		TotalRetryDelay: r.stats.TotalRetryDelay,
	}
}

// ResetStats resets statistics
func (r *Executor) ResetStats() {
	r.stats.mu.Lock()
	defer r.stats.mu.Unlock()

	r.stats.TotalAttempts = 0
	r.stats.TotalRetries = 0
	r.stats.TotalSuccesses = 0
	r.stats.TotalFailures = 0
	r.stats.TotalCancelled = 0
	r.stats.AverageAttempts = 0
	r.stats.LastRetryTime = time.Time{}
	r.stats.TotalRetryDelay = 0
}

// updateStats updates statistics (thread-safe)
func (r *Executor) updateStats(fn func(*RetryStats)) {
	r.stats.mu.Lock()
	defer r.stats.mu.Unlock()
	fn(&r.stats)
}

func (s *RetryStats) updateAverageAttempts() {
	finished := s.TotalSuccesses + s.TotalFailures
	if finished > 0 {
		s.AverageAttempts = float64(s.TotalAttempts) / float64(finished)
	}
}

// wrapError wraps the last worker error with retry information
func (r *Executor) wrapError(name string, err error, attempts int) error {
	return types.NewWorkerError(name, attempts, err).
		WithContext("max_attempts", r.policy.MaxAttempts)
}

// ExecutorOption is a configuration option for retry executor
type ExecutorOption func(*Executor)

// WithEventHandler sets the event handler
func WithEventHandler(handler EventHandler) ExecutorOption {
	return func(r *Executor) {
		r.eventHandler = handler
	}
}

// WithMetricsCollector sets the metrics collector
func WithMetricsCollector(collector MetricsCollector) ExecutorOption {
	return func(r *Executor) {
		r.metrics = collector
	}
}

// WithClock sets the clock for time operations
func WithClock(clock types.Clock) ExecutorOption {
	return func(r *Executor) {
		r.clock = clock
	}
}

// WithRand sets the random source used for jitter
func WithRand(rnd RandFunc) ExecutorOption {
	return func(r *Executor) {
		r.rand = rnd
	}
}

type runIDKey struct{}

// ContextWithRunID tags ctx with the id of the run it belongs to
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run id stored by ContextWithRunID
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// LoggingEventHandler logs run phases with zap
type LoggingEventHandler struct {
	logger *zap.Logger
}

// NewLoggingEventHandler creates an event handler that logs to logger
func NewLoggingEventHandler(logger *zap.Logger) *LoggingEventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingEventHandler{logger: logger}
}

func (h *LoggingEventHandler) fields(ctx context.Context, action string, attempt int) []zap.Field {
	fields := []zap.Field{zap.String("action", action), zap.Int("attempt", attempt)}
	if id := RunIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("run_id", id))
	}
	return fields
}

// OnAttemptFailed logs a failed worker call
func (h *LoggingEventHandler) OnAttemptFailed(ctx context.Context, action string, attempt int, err error) {
	h.logger.Debug("worker call failed", append(h.fields(ctx, action, attempt), zap.Error(err))...)
}

// OnRetryScheduled logs the backoff before the next attempt
func (h *LoggingEventHandler) OnRetryScheduled(ctx context.Context, action string, attempt int, delay time.Duration) {
	h.logger.Debug("waiting before retry", append(h.fields(ctx, action, attempt), zap.Duration("delay", delay))...)
}

// OnSuccess logs a successful run
func (h *LoggingEventHandler) OnSuccess(ctx context.Context, action string, attempts int, duration time.Duration) {
	h.logger.Debug("run succeeded", append(h.fields(ctx, action, attempts), zap.Duration("duration", duration))...)
}

// OnMaxAttemptsReached logs the terminal failure of a run
func (h *LoggingEventHandler) OnMaxAttemptsReached(ctx context.Context, action string, attempts int, err error) {
	h.logger.Warn("run failed, retry budget spent", append(h.fields(ctx, action, attempts), zap.Error(err))...)
}
