package retry

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/actionflow/internal/testutils"
	"github.com/jzx17/actionflow/pkg/types"
)

func TestPoller_RearmsWithFreshBudget(t *testing.T) {
	mock := testutils.NewMockClock(t)
	executor := NewExecutor(noJitter(1), WithClock(testutils.NewClockWrapper(mock)))
	poller := NewPoller(executor, 30*time.Second, nil)
	recorder := testutils.NewRecorder()

	// every cycle fails once and then succeeds
	var calls int32
	worker := func(ctx context.Context, payload any) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		if n%2 == 1 {
			return nil, errFlaky
		}
		return n, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- poller.Run(ctx, "poll", nil, worker, recorder)
	}()

	advanced := testutils.AdvanceUntil(t, mock, 5*time.Second, func() bool {
		return recorder.CountKind(types.KindSuccess) == 3
	})
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop on cancellation")
	}

	assert.Equal(t, []types.Event{
		types.Retry{ActionName: "poll", Attempt: 1, Delay: 2 * time.Second},
		types.Success{ActionName: "poll", Result: int32(2)},
		types.Retry{ActionName: "poll", Attempt: 1, Delay: 2 * time.Second},
		types.Success{ActionName: "poll", Result: int32(4)},
		types.Retry{ActionName: "poll", Attempt: 1, Delay: 2 * time.Second},
		types.Success{ActionName: "poll", Result: int32(6)},
	}, recorder.Events())

	// three backoffs plus two poll waits
	assert.Equal(t, 3*2*time.Second+2*30*time.Second, advanced)
}

func TestPoller_ContinuesAfterTerminalFailure(t *testing.T) {
	mock := testutils.NewMockClock(t)
	executor := NewExecutor(noJitter(0), WithClock(testutils.NewClockWrapper(mock)))
	poller := NewPoller(executor, time.Minute, nil)
	recorder := testutils.NewRecorder()

	var calls int32
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- poller.Run(ctx, "poll", nil, failingWorker(&calls), recorder)
	}()

	testutils.AdvanceUntil(t, mock, 5*time.Second, func() bool {
		return recorder.CountKind(types.KindFail) == 2
	})
	cancel()

	require.ErrorIs(t, <-errCh, context.Canceled)
	assert.Equal(t, []types.EventKind{types.KindFail, types.KindFail}, recorder.Kinds())
	assert.Equal(t, time.Minute, poller.Interval())
}

func TestPoller_StopsWhenEmitRefused(t *testing.T) {
	executor := NewExecutor(noJitter(0))
	poller := NewPoller(executor, time.Hour, nil)

	refuse := EmitterFunc(func(ctx context.Context, ev types.Event) bool { return false })
	err := poller.Run(context.Background(), "poll", nil, func(ctx context.Context, payload any) (any, error) {
		return nil, nil
	}, refuse)

	assert.ErrorIs(t, err, ErrSuppressed)
}
