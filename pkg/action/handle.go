package action

import (
	"time"

	"github.com/jzx17/actionflow/pkg/types"
)

// Dispatcher is the part of the store a Handle needs. *store.Store
// satisfies it.
type Dispatcher interface {
	Dispatch(ev types.Event)
	Query(name string) types.Record
}

// Handle is the caller-facing surface of one action. Every accessor reads
// the current record; nothing is cached.
type Handle struct {
	name       string
	store      Dispatcher
	clock      types.Clock
	resetDelay time.Duration
}

// NewHandle binds a handle for action name to store. Resets are scheduled
// on clock.
func NewHandle(store Dispatcher, name string, clock types.Clock, resetDelay time.Duration) (*Handle, error) {
	if store == nil {
		return nil, types.ErrStoreNotBound
	}
	if name == "" {
		return nil, types.ErrEmptyActionName
	}
	if clock == nil {
		clock = types.NewRealClock()
	}
	return &Handle{
		name:       name,
		store:      store,
		clock:      clock,
		resetDelay: resetDelay,
	}, nil
}

// Name returns the action name
func (h *Handle) Name() string {
	return h.name
}

// Trigger starts a run with payload. It never fails: the outcome is
// observed through the status accessors.
func (h *Handle) Trigger(payload any) {
	h.store.Dispatch(types.Trigger{ActionName: h.name, Payload: payload})
}

// Reset schedules a Reset event after the default reset delay
func (h *Handle) Reset() {
	h.ResetAfter(h.resetDelay)
}

// ResetAfter schedules a Reset event after d. Scheduled resets are neither
// coalesced nor cancelled by later triggers.
func (h *Handle) ResetAfter(d time.Duration) {
	reset := func() {
		h.store.Dispatch(types.Reset{ActionName: h.name})
	}
	if d <= 0 {
		go reset()
		return
	}
	h.clock.AfterFunc(d, reset)
}

// Record returns a snapshot of the action record
func (h *Handle) Record() types.Record {
	return h.store.Query(h.name)
}

// Status returns the lifecycle status
func (h *Handle) Status() types.Status {
	return h.Record().Status
}

// Data returns the most recent successful result
func (h *Handle) Data() any {
	return h.Record().Data
}

// Err returns the failure of the most recent cycle
func (h *Handle) Err() error {
	return h.Record().Err
}

// RetryAttempt returns the attempt number of the last reported retry
func (h *Handle) RetryAttempt() int {
	return h.Record().RetryAttempt
}

// HasNeverTriggered reports whether no Trigger has ever been applied
func (h *Handle) HasNeverTriggered() bool {
	return !h.Record().TriggeredBefore
}

func (h *Handle) IsLoading() bool  { return h.Status() == types.StatusLoading }
func (h *Handle) IsRetrying() bool { return h.Status() == types.StatusRetrying }
func (h *Handle) IsSuccess() bool  { return h.Status() == types.StatusSuccess }
func (h *Handle) IsFail() bool     { return h.Status() == types.StatusFail }

// DataAs returns the handle's data as T. ok is false when there is no data
// or it has another type.
func DataAs[T any](h *Handle) (value T, ok bool) {
	value, ok = h.Data().(T)
	return value, ok
}
