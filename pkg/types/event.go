package types

import "time"

// EventKind identifies one of the five lifecycle events of an action
type EventKind string

const (
	KindTrigger EventKind = "TRIGGER"
	KindSuccess EventKind = "SUCCESS"
	KindRetry   EventKind = "RETRY"
	KindFail    EventKind = "FAIL"
	KindReset   EventKind = "RESET"
)

// Kinds lists every lifecycle event kind
var Kinds = []EventKind{KindTrigger, KindSuccess, KindRetry, KindFail, KindReset}

// Event is a lifecycle event for one action. The set of implementations is
// closed: Trigger, Retry, Success, Fail and Reset.
type Event interface {
	// Action returns the name of the action the event belongs to
	Action() string
	// Kind returns the event kind
	Kind() EventKind

	isEvent()
}

// Trigger asks the action's watcher to start a run with Payload
type Trigger struct {
	ActionName string
	Payload    any
}

// Retry reports that attempt Attempt is about to be retried after Delay
type Retry struct {
	ActionName string
	Attempt    int
	Delay      time.Duration
}

// Success carries the worker result of a run
type Success struct {
	ActionName string
	Result     any
}

// Fail carries the terminal error of a run
type Fail struct {
	ActionName string
	Err        error
}

// Reset returns the record to its initial status
type Reset struct {
	ActionName string
}

func (e Trigger) Action() string { return e.ActionName }
func (e Retry) Action() string   { return e.ActionName }
func (e Success) Action() string { return e.ActionName }
func (e Fail) Action() string    { return e.ActionName }
func (e Reset) Action() string   { return e.ActionName }

func (Trigger) Kind() EventKind { return KindTrigger }
func (Retry) Kind() EventKind   { return KindRetry }
func (Success) Kind() EventKind { return KindSuccess }
func (Fail) Kind() EventKind    { return KindFail }
func (Reset) Kind() EventKind   { return KindReset }

func (Trigger) isEvent() {}
func (Retry) isEvent()   {}
func (Success) isEvent() {}
func (Fail) isEvent()    {}
func (Reset) isEvent()   {}
