package types

// Status is the observable lifecycle status of an action
type Status string

const (
	StatusInitial  Status = "INITIAL"
	StatusLoading  Status = "LOADING"
	StatusRetrying Status = "RETRYING"
	StatusSuccess  Status = "SUCCESS"
	StatusFail     Status = "FAIL"
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the status ends a run
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFail
}

// Record is the observable state of one action.
//
// Data holds the most recent successful result and survives failures and
// resets. Err holds the failure of the most recent cycle. A zero
// RetryAttempt means no retry has been reported since the last reset.
type Record struct {
	Status          Status
	Data            any
	Err             error
	RetryAttempt    int
	TriggeredBefore bool
}

// InitialRecord returns the record of an action that has never seen an event
func InitialRecord() Record {
	return Record{Status: StatusInitial}
}
