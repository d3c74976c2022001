package retry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jzx17/actionflow/pkg/types"
)

// Poller re-arms an executor run interval after it finishes, for as long
// as its context lives. Each cycle starts with a fresh retry budget.
type Poller struct {
	executor *Executor
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller creates a poller over executor
func NewPoller(executor *Executor, interval time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		executor: executor,
		interval: interval,
		logger:   logger,
	}
}

// Interval returns the wait between two cycles
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run loops executor runs until ctx is done and then returns its error.
// It never returns nil.
func (p *Poller) Run(ctx context.Context, name string, payload any, worker Worker, emitter Emitter) error {
	for cycle := 1; ; cycle++ {
		if err := p.executor.Run(ctx, name, payload, worker, emitter); err != nil {
			return err
		}

		p.logger.Debug("poll cycle finished",
			zap.String("action", name),
			zap.Int("cycle", cycle),
			zap.Duration("next_in", p.interval))

		if err := types.Sleep(ctx, p.executor.Clock(), p.interval); err != nil {
			return err
		}
	}
}
