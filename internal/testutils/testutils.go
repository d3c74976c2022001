// Package testutils provides simplified testing utilities and helper functions
package testutils

import (
	"context"
	"sync"
	"testing"

	"github.com/jzx17/actionflow/pkg/types"
)

// Recorder is an emitter that keeps every lifecycle event it receives.
// Emit refuses events once ctx is done, like the store does.
type Recorder struct {
	mu     sync.Mutex
	events []types.Event
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit records ev unless ctx is done
func (r *Recorder) Emit(ctx context.Context, ev types.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	r.events = append(r.events, ev)
	return true
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded events
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Kinds returns the kinds of the recorded events, in order
func (r *Recorder) Kinds() []types.EventKind {
	events := r.Events()
	kinds := make([]types.EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind()
	}
	return kinds
}

// CountKind returns how many recorded events have the given kind
func (r *Recorder) CountKind(kind types.EventKind) int {
	n := 0
	for _, ev := range r.Events() {
		if ev.Kind() == kind {
			n++
		}
	}
	return n
}

// Context returns a context cancelled when the test ends
func Context(t testing.TB) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
