package types

import (
	"context"
	"testing"
	"time"
)

func TestSleep(t *testing.T) {
	clock := NewRealClock()

	t.Run("non-positive duration returns immediately", func(t *testing.T) {
		if err := Sleep(context.Background(), clock, 0); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
		if err := Sleep(context.Background(), clock, -time.Second); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("waits for the duration", func(t *testing.T) {
		start := clock.Now()
		if err := Sleep(context.Background(), clock, 20*time.Millisecond); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
		if elapsed := clock.Since(start); elapsed < 20*time.Millisecond {
			t.Errorf("slept only %v", elapsed)
		}
	})

	t.Run("cancelled context aborts the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		err := Sleep(ctx, clock, time.Minute)
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if time.Since(start) > 5*time.Second {
			t.Error("cancellation did not abort the wait")
		}
	})

	t.Run("already cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := Sleep(ctx, clock, 0); err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestRealClock_AfterFunc(t *testing.T) {
	done := make(chan struct{})
	NewRealClock().AfterFunc(5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AfterFunc callback did not run")
	}
}
