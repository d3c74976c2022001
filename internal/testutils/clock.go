package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/jzx17/actionflow/pkg/types"
)

// NewMockClock creates a mock clock for testing
func NewMockClock(t testing.TB) *quartz.Mock {
	return quartz.NewMock(t)
}

// ClockWrapper wraps quartz.Mock to implement our Clock interface
type ClockWrapper struct {
	*quartz.Mock
}

// NewClockWrapper creates a new ClockWrapper
func NewClockWrapper(mock *quartz.Mock) *ClockWrapper {
	return &ClockWrapper{Mock: mock}
}

// Now returns the current time
func (c *ClockWrapper) Now() time.Time {
	return c.Mock.Now()
}

// Since returns the time elapsed since t
func (c *ClockWrapper) Since(t time.Time) time.Duration {
	return c.Mock.Since(t)
}

// NewTimer creates a new Timer
func (c *ClockWrapper) NewTimer(d time.Duration) types.Timer {
	return &TimerWrapper{timer: c.Mock.NewTimer(d)}
}

// AfterFunc calls f once the mock clock has been advanced by d
func (c *ClockWrapper) AfterFunc(d time.Duration, f func()) types.Timer {
	return &TimerWrapper{timer: c.Mock.AfterFunc(d, f)}
}

// TimerWrapper wraps quartz timer
type TimerWrapper struct {
	timer *quartz.Timer
}

func (t *TimerWrapper) C() <-chan time.Time {
	return t.timer.C
}

func (t *TimerWrapper) Stop() bool {
	return t.timer.Stop()
}

// AdvanceUntil fires pending mock timers one at a time, in deadline order,
// until done reports true. It returns the total mock time advanced and fails
// the test if done is still false after wait of real time.
func AdvanceUntil(t testing.TB, mock *quartz.Mock, wait time.Duration, done func() bool) time.Duration {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	var advanced time.Duration
	for !done() {
		if ctx.Err() != nil {
			t.Fatalf("condition not reached after advancing mock clock by %v", advanced)
			return advanced
		}
		if _, ok := mock.Peek(); !ok {
			// nothing scheduled yet; let the goroutine under test reach its wait
			time.Sleep(time.Millisecond)
			continue
		}
		d, w := mock.AdvanceNext()
		w.MustWait(ctx)
		advanced += d
	}
	return advanced
}
