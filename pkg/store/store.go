// Package store holds the per-action records and is the single point
// through which lifecycle events are applied to them.
package store

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/jzx17/actionflow/pkg/types"
)

// Listener observes every applied event together with the resulting record.
// Listeners run synchronously inside Dispatch, in registration order, while
// the store is locked: they must not block and must not dispatch.
type Listener func(ev types.Event, rec types.Record)

type subscription struct {
	id int
	fn Listener
}

// Store owns every action record. Records are created lazily on the first
// event for an action and are never removed.
type Store struct {
	mu        sync.Mutex
	records   map[string]types.Record
	listeners []subscription
	nextID    int
	logger    *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithLogger logs every applied event at debug level
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		records: make(map[string]types.Record),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch applies ev to its action's record and notifies listeners
func (s *Store) Dispatch(ev types.Event) {
	if ev == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(ev)
}

// DispatchContext applies ev only if ctx is still live when the store lock
// is held. A run whose context was cancelled by a newer Trigger can
// therefore never write after that Trigger has been applied.
func (s *Store) DispatchContext(ctx context.Context, ev types.Event) bool {
	if ev == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		s.logger.Debug("dropping event of cancelled run",
			zap.String("action", ev.Action()),
			zap.String("type", string(ev.Kind())))
		return false
	}
	s.apply(ev)
	return true
}

// Emit implements retry.Emitter
func (s *Store) Emit(ctx context.Context, ev types.Event) bool {
	return s.DispatchContext(ctx, ev)
}

// DispatchMessage decodes a wire message and dispatches it. Messages
// without a known event type are ignored and reported as false.
func (s *Store) DispatchMessage(msg types.Message) bool {
	ev, ok := types.Decode(msg)
	if !ok {
		s.logger.Debug("ignoring unknown message", zap.String("type", msg.Type))
		return false
	}
	s.Dispatch(ev)
	return true
}

func (s *Store) apply(ev types.Event) {
	name := ev.Action()
	rec, ok := s.records[name]
	if !ok {
		rec = types.InitialRecord()
	}
	rec = Reduce(rec, ev)
	s.records[name] = rec

	s.logger.Debug("event applied",
		zap.String("action", name),
		zap.String("type", types.EventType(name, ev.Kind())),
		zap.String("status", rec.Status.String()))

	for _, sub := range s.listeners {
		sub.fn(ev, rec)
	}
}

// Query returns the current record for name, or the initial record when
// the action has not seen any event yet
func (s *Store) Query(name string) types.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[name]; ok {
		return rec
	}
	return types.InitialRecord()
}

// Actions returns the names of all actions that have a record, sorted
func (s *Store) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subscribe registers l and returns a function that removes it
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: l})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}
