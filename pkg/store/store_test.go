package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jzx17/actionflow/pkg/types"
)

func TestStore_QueryUnknownAction(t *testing.T) {
	s := New()
	diffRecord(t, types.InitialRecord(), s.Query("never"))
	assert.Empty(t, s.Actions())
}

func TestStore_DispatchCreatesRecordsLazily(t *testing.T) {
	s := New()
	s.Dispatch(types.Trigger{ActionName: "b"})
	s.Dispatch(types.Trigger{ActionName: "a"})
	s.Dispatch(types.Success{ActionName: "a", Result: 1})

	assert.Equal(t, []string{"a", "b"}, s.Actions())
	assert.Equal(t, types.StatusSuccess, s.Query("a").Status)
	assert.Equal(t, types.StatusLoading, s.Query("b").Status)
}

func TestStore_DispatchNil(t *testing.T) {
	s := New()
	s.Dispatch(nil)
	assert.False(t, s.DispatchContext(context.Background(), nil))
	assert.Empty(t, s.Actions())
}

func TestStore_DispatchContext(t *testing.T) {
	s := New()

	assert.True(t, s.DispatchContext(context.Background(), types.Trigger{ActionName: "a"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, s.Emit(ctx, types.Success{ActionName: "a", Result: "stale"}))

	rec := s.Query("a")
	assert.Equal(t, types.StatusLoading, rec.Status)
	assert.Nil(t, rec.Data)
}

func TestStore_DispatchMessage(t *testing.T) {
	s := New()

	assert.True(t, s.DispatchMessage(types.Message{Type: "search_TRIGGER", Payload: "go"}))
	assert.True(t, s.DispatchMessage(types.Message{Type: "search_RETRY", RetryAttempt: 1}))
	assert.False(t, s.DispatchMessage(types.Message{Type: "search_UNKNOWN"}))

	rec := s.Query("search")
	assert.Equal(t, types.StatusRetrying, rec.Status)
	assert.Equal(t, 1, rec.RetryAttempt)
}

func TestStore_Listeners(t *testing.T) {
	s := New()

	var got []types.Status
	unsubscribe := s.Subscribe(func(ev types.Event, rec types.Record) {
		got = append(got, rec.Status)
	})

	var order []int
	s.Subscribe(func(types.Event, types.Record) { order = append(order, 1) })
	s.Subscribe(func(types.Event, types.Record) { order = append(order, 2) })

	s.Dispatch(types.Trigger{ActionName: "a"})
	s.Dispatch(types.Fail{ActionName: "a"})
	unsubscribe()
	unsubscribe()
	s.Dispatch(types.Reset{ActionName: "a"})

	assert.Equal(t, []types.Status{types.StatusLoading, types.StatusFail}, got)
	assert.Equal(t, []int{1, 2, 1, 2, 1, 2}, order)
}

func TestStore_ListenerSeesEventsInApplyOrder(t *testing.T) {
	s := New()

	var mu sync.Mutex
	perAction := map[string][]int{}
	s.Subscribe(func(ev types.Event, rec types.Record) {
		if r, ok := ev.(types.Retry); ok {
			mu.Lock()
			perAction[ev.Action()] = append(perAction[ev.Action()], r.Attempt)
			mu.Unlock()
		}
	})

	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			for i := 1; i <= 50; i++ {
				s.Dispatch(types.Retry{ActionName: name, Attempt: i})
			}
		}(name)
	}
	wg.Wait()

	for _, name := range []string{"a", "b", "c"} {
		require.Len(t, perAction[name], 50)
		for i, attempt := range perAction[name] {
			assert.Equal(t, i+1, attempt, "events of %s reordered", name)
		}
		assert.Equal(t, 50, s.Query(name).RetryAttempt)
	}
}

func TestStore_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := New(WithLogger(zap.New(core)))

	s.Dispatch(types.Trigger{ActionName: "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.DispatchContext(ctx, types.Success{ActionName: "a"})
	s.DispatchMessage(types.Message{Type: "garbage"})

	applied := logs.FilterMessage("event applied").All()
	require.Len(t, applied, 1)
	assert.Equal(t, "a_TRIGGER", applied[0].ContextMap()["type"])
	assert.Equal(t, 1, logs.FilterMessage("dropping event of cancelled run").Len())
	assert.Equal(t, 1, logs.FilterMessage("ignoring unknown message").Len())
}
