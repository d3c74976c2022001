package watcher

import (
	"fmt"
	"strings"

	"github.com/jzx17/actionflow/pkg/types"
)

// Strategy decides how a watcher admits a Trigger while runs are in flight
type Strategy int

const (
	// Latest cancels the run in flight and starts a new one
	Latest Strategy = iota
	// Every starts an independent run for each Trigger
	Every
	// Leading ignores Triggers while a run is in flight
	Leading
)

// String returns the string representation of the strategy
func (s Strategy) String() string {
	switch s {
	case Latest:
		return "latest"
	case Every:
		return "every"
	case Leading:
		return "leading"
	default:
		return "unknown"
	}
}

// ParseStrategy parses "latest", "every" or "leading", ignoring case
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "latest":
		return Latest, nil
	case "every":
		return Every, nil
	case "leading":
		return Leading, nil
	default:
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidStrategy, s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Strategy) MarshalText() ([]byte, error) {
	if s < Latest || s > Leading {
		return nil, fmt.Errorf("%w: %d", types.ErrInvalidStrategy, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
