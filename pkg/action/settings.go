package action

import (
	"fmt"
	"time"

	"github.com/jzx17/actionflow/pkg/types"
	"github.com/jzx17/actionflow/pkg/watcher"
)

// DefaultResetDelay is the delay of Handle.Reset
const DefaultResetDelay = 100 * time.Millisecond

// Settings are engine-wide defaults
type Settings struct {
	// DebugLogging lets debug entries through to the engine logger
	DebugLogging bool

	// DefaultResetDelay is the delay of Handle.Reset
	DefaultResetDelay time.Duration

	// DefaultStrategy applies to actions registered without WithStrategy
	DefaultStrategy watcher.Strategy

	// MaxConcurrentRuns bounds live runs across all actions. Zero is
	// unbounded.
	MaxConcurrentRuns int
}

// DefaultSettings returns the engine defaults
func DefaultSettings() Settings {
	return Settings{
		DefaultResetDelay: DefaultResetDelay,
		DefaultStrategy:   watcher.Latest,
	}
}

// Validate checks the settings
func (s Settings) Validate() error {
	if s.DefaultResetDelay < 0 {
		return fmt.Errorf("%w: negative reset delay %v", types.ErrInvalidPolicy, s.DefaultResetDelay)
	}
	if s.MaxConcurrentRuns < 0 {
		return fmt.Errorf("%w: negative max concurrent runs %d", types.ErrInvalidPolicy, s.MaxConcurrentRuns)
	}
	if s.DefaultStrategy.String() == "unknown" {
		return fmt.Errorf("%w: %d", types.ErrInvalidStrategy, int(s.DefaultStrategy))
	}
	return nil
}
