package watcher

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jzx17/actionflow/pkg/retry"
	"github.com/jzx17/actionflow/pkg/store"
	"github.com/jzx17/actionflow/pkg/types"
)

// Spawner starts a function in its own goroutine. *errgroup.Group
// satisfies it.
type Spawner interface {
	Go(fn func() error)
}

type goSpawner struct{}

func (goSpawner) Go(fn func() error) {
	go func() { _ = fn() }()
}

// MetricsCollector receives admission decisions
type MetricsCollector interface {
	RecordSuperseded(action string)
	RecordIgnored(action string)
}

type run struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
}

// Watcher admits Trigger events of one action and starts, cancels or
// ignores runs according to its strategy.
type Watcher struct {
	name     string
	strategy Strategy
	runner   retry.Runner
	worker   retry.Worker
	emitter  retry.Emitter
	spawner  Spawner
	sem      *semaphore.Weighted
	metrics  MetricsCollector
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// a runner that re-arms after a terminal event keeps its run live
	rearms bool

	mu       sync.Mutex
	current  *run
	inflight map[string]*run
	detach   func()
}

// Option configures a Watcher
type Option func(*Watcher)

// WithSpawner sets where runs are started; the default is a bare goroutine
func WithSpawner(spawner Spawner) Option {
	return func(w *Watcher) {
		w.spawner = spawner
	}
}

// WithSemaphore bounds concurrently live runs. The semaphore may be shared
// by several watchers; waiting for a slot ends when the run is cancelled.
func WithSemaphore(sem *semaphore.Weighted) Option {
	return func(w *Watcher) {
		w.sem = sem
	}
}

// WithMetricsCollector sets the admission metrics collector
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(w *Watcher) {
		w.metrics = collector
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New creates a watcher. Runs derive their context from ctx; cancelling it
// cancels every run of the watcher.
func New(ctx context.Context, name string, strategy Strategy, runner retry.Runner, worker retry.Worker, emitter retry.Emitter, opts ...Option) *Watcher {
	w := &Watcher{
		name:     name,
		strategy: strategy,
		runner:   runner,
		worker:   worker,
		emitter:  emitter,
		spawner:  goSpawner{},
		logger:   zap.NewNop(),
		inflight: make(map[string]*run),
	}
	for _, opt := range opts {
		opt(w)
	}
	_, w.rearms = runner.(*retry.Poller)
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.logger = w.logger.With(zap.String("action", name), zap.Stringer("strategy", strategy))
	return w
}

// Name returns the action name the watcher serves
func (w *Watcher) Name() string {
	return w.name
}

// Strategy returns the admission strategy
func (w *Watcher) Strategy() Strategy {
	return w.strategy
}

// Attach subscribes the watcher to the events of its action in s. Triggers
// are admitted through Handle; a Success or Fail ends the current run in
// the same store update that applies it.
func (w *Watcher) Attach(s *store.Store) {
	unsubscribe := s.Subscribe(func(ev types.Event, _ types.Record) {
		if ev.Action() != w.name {
			return
		}
		switch ev := ev.(type) {
		case types.Trigger:
			w.Handle(ev.Payload)
		case types.Success, types.Fail:
			w.settle()
		}
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	w.detach = unsubscribe
}

// Handle admits one Trigger with payload. It never blocks: runs are
// started through the spawner. A superseded run is cancelled before Handle
// returns.
func (w *Watcher) Handle(payload any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil {
		return
	}

	switch w.strategy {
	case Leading:
		if w.current != nil {
			w.logger.Debug("trigger ignored, run in flight", zap.String("run_id", w.current.id))
			if w.metrics != nil {
				w.metrics.RecordIgnored(w.name)
			}
			return
		}
	case Latest:
		if w.current != nil {
			w.logger.Debug("cancelling superseded run", zap.String("run_id", w.current.id))
			w.current.cancel()
			if w.metrics != nil {
				w.metrics.RecordSuperseded(w.name)
			}
		}
	}

	r := &run{id: uuid.NewString()}
	r.ctx, r.cancel = context.WithCancel(retry.ContextWithRunID(w.ctx, r.id))
	if w.strategy == Every {
		w.inflight[r.id] = r
	} else {
		w.current = r
	}

	w.spawner.Go(func() error {
		w.execute(r, payload)
		return nil
	})
}

func (w *Watcher) execute(r *run, payload any) {
	defer w.finish(r)

	if w.sem != nil {
		if err := w.sem.Acquire(r.ctx, 1); err != nil {
			w.logger.Debug("run cancelled while waiting for a slot", zap.String("run_id", r.id))
			return
		}
		defer w.sem.Release(1)
	}

	w.logger.Debug("run started", zap.String("run_id", r.id))
	err := w.runner.Run(r.ctx, w.name, payload, w.worker, w.emitter)
	switch {
	case err == nil:
		w.logger.Debug("run finished", zap.String("run_id", r.id))
	case errors.Is(err, context.Canceled):
		w.logger.Debug("run cancelled", zap.String("run_id", r.id))
	default:
		w.logger.Warn("run stopped", zap.String("run_id", r.id), zap.Error(err))
	}
}

// settle releases the current run once its terminal event is applied, so
// the next Trigger is admitted even though the run's goroutine has not
// returned yet. Only one run of a latest or leading watcher can emit, so
// the event is its own. The run stays counted by InFlight until finish.
func (w *Watcher) settle() {
	if w.strategy == Every || w.rearms {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if r := w.current; r != nil {
		w.logger.Debug("run settled", zap.String("run_id", r.id))
		w.inflight[r.id] = r
		w.current = nil
	}
}

func (w *Watcher) finish(r *run) {
	r.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == r {
		w.current = nil
	}
	delete(w.inflight, r.id)
}

// InFlight returns the number of runs admitted and not yet finished
func (w *Watcher) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.inflight)
	if w.current != nil {
		n++
	}
	return n
}

// Stop detaches the watcher from its store and cancels all its runs.
// Triggers handled after Stop are ignored.
func (w *Watcher) Stop() {
	w.mu.Lock()
	detach := w.detach
	w.detach = nil
	w.cancel()
	w.mu.Unlock()

	if detach != nil {
		detach()
	}
}
