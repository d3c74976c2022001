// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Configuration errors. They are returned at registration or first use and
// are never retried.
var (
	// ErrDuplicateAction indicates an action name was registered twice
	ErrDuplicateAction = errors.New("duplicate action name")

	// ErrUnknownAction indicates an action name that was never registered
	ErrUnknownAction = errors.New("unknown action")

	// ErrStoreNotBound indicates a facade or watcher was used without a store
	ErrStoreNotBound = errors.New("store is not bound")

	// ErrInvalidPolicy indicates a retry policy that violates its invariants
	ErrInvalidPolicy = errors.New("invalid retry policy")

	// ErrEmptyActionName indicates a definition without a name
	ErrEmptyActionName = errors.New("action name is empty")

	// ErrNilWorker indicates a definition without a worker
	ErrNilWorker = errors.New("worker is nil")

	// ErrInvalidStrategy indicates an unrecognised concurrency strategy
	ErrInvalidStrategy = errors.New("invalid concurrency strategy")
)

// ErrEngineClosed is returned when triggering through a closed engine
var ErrEngineClosed = errors.New("engine is closed")

var configurationErrors = []error{
	ErrDuplicateAction,
	ErrUnknownAction,
	ErrStoreNotBound,
	ErrInvalidPolicy,
	ErrEmptyActionName,
	ErrNilWorker,
	ErrInvalidStrategy,
}

// IsConfigurationError reports whether err is (or wraps) a configuration error
func IsConfigurationError(err error) bool {
	for _, target := range configurationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// WorkerError is the terminal failure of a run: the worker failed on the
// final allowed attempt. It is what observers find in Record.Err.
type WorkerError struct {
	// Action is the name of the action whose worker failed
	Action string

	// Attempts is the number of worker calls made by the run
	Attempts int

	// Cause is the error returned by the last worker call
	Cause error

	// Context contains error context information
	Context map[string]interface{}
}

// NewWorkerError creates a new terminal worker error
func NewWorkerError(action string, attempts int, cause error) *WorkerError {
	return &WorkerError{
		Action:   action,
		Attempts: attempts,
		Cause:    cause,
		Context:  make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *WorkerError) Error() string {
	return fmt.Sprintf("action %s failed after %d attempt(s): %v", e.Action, e.Attempts, e.Cause)
}

// Unwrap returns the underlying error
func (e *WorkerError) Unwrap() error {
	return e.Cause
}

// WithContext adds error context
func (e *WorkerError) WithContext(key string, value interface{}) *WorkerError {
	e.Context[key] = value
	return e
}

// PanicError wraps a value recovered from a panicking worker
type PanicError struct {
	Value interface{}
}

// Error implements the error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("worker panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is an error
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
