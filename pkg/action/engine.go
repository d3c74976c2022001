package action

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jzx17/actionflow/pkg/retry"
	"github.com/jzx17/actionflow/pkg/store"
	"github.com/jzx17/actionflow/pkg/types"
	"github.com/jzx17/actionflow/pkg/watcher"
)

// MetricsCollector receives run and admission measurements of every action
type MetricsCollector interface {
	retry.MetricsCollector
	watcher.MetricsCollector
}

// Engine owns the store and one watcher per registered action. All runs
// are started in the engine's errgroup and end when it is closed.
type Engine struct {
	settings Settings
	store    *store.Store
	registry *Registry
	clock    types.Clock
	rand     retry.RandFunc
	logger   *zap.Logger
	metrics  MetricsCollector
	sem      *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	mu        sync.Mutex
	watchers  map[string]*watcher.Watcher
	executors map[string]*retry.Executor
	closed    bool
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithClock sets the clock for backoff waits, poll intervals and delayed
// resets
func WithClock(clock types.Clock) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithRand sets the jitter source
func WithRand(rnd retry.RandFunc) EngineOption {
	return func(e *Engine) {
		e.rand = rnd
	}
}

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetricsCollector sets the metrics collector
func WithMetricsCollector(collector MetricsCollector) EngineOption {
	return func(e *Engine) {
		e.metrics = collector
	}
}

// WithStore binds the engine to an existing store
func WithStore(s *store.Store) EngineOption {
	return func(e *Engine) {
		e.store = s
	}
}

// New creates an engine with settings
func New(settings Settings, opts ...EngineOption) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		settings:  settings,
		registry:  NewRegistry(),
		clock:     types.NewRealClock(),
		logger:    zap.NewNop(),
		watchers:  make(map[string]*watcher.Watcher),
		executors: make(map[string]*retry.Executor),
	}
	for _, opt := range opts {
		opt(e)
	}

	if !settings.DebugLogging && e.logger.Core().Enabled(zapcore.DebugLevel) {
		e.logger = e.logger.WithOptions(zap.IncreaseLevel(zapcore.InfoLevel))
	}
	if e.store == nil {
		e.store = store.New(store.WithLogger(e.logger))
	}
	if settings.MaxConcurrentRuns > 0 {
		e.sem = semaphore.NewWeighted(int64(settings.MaxConcurrentRuns))
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e, nil
}

// Register validates and registers defs. Either all of them are registered
// or none is.
func (e *Engine) Register(defs ...Definition) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return types.ErrEngineClosed
	}

	actions := make([]*Action, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		a, err := def.resolve(e.settings)
		if err != nil {
			return err
		}
		if _, err := e.registry.Get(a.Name); err == nil || seen[a.Name] {
			return fmt.Errorf("action %s: %w", a.Name, types.ErrDuplicateAction)
		}
		seen[a.Name] = true
		actions = append(actions, a)
	}

	for _, a := range actions {
		if err := e.registry.Add(a); err != nil {
			return err
		}
		e.start(a)
	}
	return nil
}

func (e *Engine) start(a *Action) {
	execOpts := []retry.ExecutorOption{
		retry.WithClock(e.clock),
		retry.WithRand(e.rand),
		retry.WithEventHandler(retry.NewLoggingEventHandler(e.logger)),
	}
	watchOpts := []watcher.Option{
		watcher.WithSpawner(&e.group),
		watcher.WithLogger(e.logger),
	}
	if e.metrics != nil {
		execOpts = append(execOpts, retry.WithMetricsCollector(e.metrics))
		watchOpts = append(watchOpts, watcher.WithMetricsCollector(e.metrics))
	}
	if e.sem != nil {
		watchOpts = append(watchOpts, watcher.WithSemaphore(e.sem))
	}

	executor := retry.NewExecutor(a.Policy, execOpts...)
	var runner retry.Runner = executor
	if a.Polls() {
		runner = retry.NewPoller(executor, a.PollInterval, e.logger)
	}

	w := watcher.New(e.ctx, a.Name, a.Strategy, runner, a.Worker, e.store, watchOpts...)
	w.Attach(e.store)
	e.watchers[a.Name] = w
	e.executors[a.Name] = executor

	e.logger.Debug("action registered",
		zap.String("action", a.Name),
		zap.Stringer("strategy", a.Strategy),
		zap.Int("max_attempts", a.Policy.MaxAttempts),
		zap.Duration("poll_interval", a.PollInterval))
}

// On returns the handle of a registered action
func (e *Engine) On(name string) (*Handle, error) {
	if _, err := e.registry.Get(name); err != nil {
		return nil, err
	}
	return NewHandle(e.store, name, e.clock, e.settings.DefaultResetDelay)
}

// MustOn is like On but panics on error
func (e *Engine) MustOn(name string) *Handle {
	h, err := e.On(name)
	if err != nil {
		panic(err)
	}
	return h
}

// Dispatch applies a wire message to the store
func (e *Engine) Dispatch(msg types.Message) bool {
	return e.store.DispatchMessage(msg)
}

// Store returns the engine's store
func (e *Engine) Store() *store.Store {
	return e.store
}

// Actions lists registered actions in registration order
func (e *Engine) Actions() []string {
	return e.registry.Names()
}

// Action returns the registered definition of name
func (e *Engine) Action(name string) (*Action, error) {
	return e.registry.Get(name)
}

// Stats returns the retry statistics of action name
func (e *Engine) Stats(name string) (retry.RetryStats, error) {
	e.mu.Lock()
	executor, ok := e.executors[name]
	e.mu.Unlock()
	if !ok {
		return retry.RetryStats{}, fmt.Errorf("action %s: %w", name, types.ErrUnknownAction)
	}
	return executor.GetStats(), nil
}

// InFlight returns the number of live runs across all actions
func (e *Engine) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, w := range e.watchers {
		n += w.InFlight()
	}
	return n
}

// Close stops every watcher, cancels all runs and waits for them to
// return. Records keep their last state.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	watchers := make([]*watcher.Watcher, 0, len(e.watchers))
	for _, w := range e.watchers {
		watchers = append(watchers, w)
	}
	e.mu.Unlock()

	for _, w := range watchers {
		w.Stop()
	}
	e.cancel()

	err := e.group.Wait()
	e.logger.Debug("engine closed")
	return err
}
