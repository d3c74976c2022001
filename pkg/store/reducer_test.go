package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/jzx17/actionflow/pkg/types"
)

var errBoom = errors.New("boom")

func diffRecord(t *testing.T, want, got types.Record) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateErrors()); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestReduce_Transitions(t *testing.T) {
	populated := types.Record{
		Status:          types.StatusFail,
		Data:            "old",
		Err:             errBoom,
		RetryAttempt:    2,
		TriggeredBefore: true,
	}

	tests := []struct {
		name string
		from types.Record
		ev   types.Event
		want types.Record
	}{
		{
			name: "trigger from initial",
			from: types.InitialRecord(),
			ev:   types.Trigger{ActionName: "a", Payload: 1},
			want: types.Record{Status: types.StatusLoading, TriggeredBefore: true},
		},
		{
			name: "trigger clears error but keeps data and retry attempt",
			from: populated,
			ev:   types.Trigger{ActionName: "a"},
			want: types.Record{Status: types.StatusLoading, Data: "old", RetryAttempt: 2, TriggeredBefore: true},
		},
		{
			name: "retry",
			from: types.Record{Status: types.StatusLoading, TriggeredBefore: true},
			ev:   types.Retry{ActionName: "a", Attempt: 3, Delay: time.Second},
			want: types.Record{Status: types.StatusRetrying, RetryAttempt: 3, TriggeredBefore: true},
		},
		{
			name: "success keeps retry attempt",
			from: types.Record{Status: types.StatusRetrying, RetryAttempt: 2, TriggeredBefore: true},
			ev:   types.Success{ActionName: "a", Result: "ok"},
			want: types.Record{Status: types.StatusSuccess, Data: "ok", RetryAttempt: 2, TriggeredBefore: true},
		},
		{
			name: "fail keeps data",
			from: types.Record{Status: types.StatusLoading, Data: "old", TriggeredBefore: true},
			ev:   types.Fail{ActionName: "a", Err: errBoom},
			want: types.Record{Status: types.StatusFail, Data: "old", Err: errBoom, TriggeredBefore: true},
		},
		{
			name: "reset keeps data and history",
			from: populated,
			ev:   types.Reset{ActionName: "a"},
			want: types.Record{Status: types.StatusInitial, Data: "old", TriggeredBefore: true},
		},
		{
			name: "nil event is a no-op",
			from: populated,
			ev:   nil,
			want: populated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diffRecord(t, tt.want, Reduce(tt.from, tt.ev))
		})
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	rec := types.Record{Status: types.StatusFail, Err: errBoom}
	_ = Reduce(rec, types.Reset{ActionName: "a"})

	if rec.Status != types.StatusFail || rec.Err != errBoom {
		t.Errorf("input record was modified: %+v", rec)
	}
}

func TestReduce_ResetAlwaysClears(t *testing.T) {
	events := []types.Event{
		types.Trigger{ActionName: "a"},
		types.Retry{ActionName: "a", Attempt: 1},
		types.Fail{ActionName: "a", Err: errBoom},
		types.Success{ActionName: "a", Result: 7},
		types.Retry{ActionName: "a", Attempt: 4},
	}

	rec := types.InitialRecord()
	for _, ev := range events {
		rec = Reduce(rec, ev)
		dataBefore := rec.Data

		reset := Reduce(rec, types.Reset{ActionName: "a"})
		if reset.Status != types.StatusInitial || reset.Err != nil || reset.RetryAttempt != 0 {
			t.Errorf("after %s reset left %+v", ev.Kind(), reset)
		}
		if reset.Data != dataBefore {
			t.Errorf("after %s reset changed data from %v to %v", ev.Kind(), dataBefore, reset.Data)
		}
		if !reset.TriggeredBefore {
			t.Errorf("after %s reset erased trigger history", ev.Kind())
		}
	}
}

func TestReduce_EndToEndSequence(t *testing.T) {
	rec := types.InitialRecord()
	for _, ev := range []types.Event{
		types.Trigger{ActionName: "a"},
		types.Retry{ActionName: "a", Attempt: 1, Delay: 2 * time.Second},
		types.Retry{ActionName: "a", Attempt: 2, Delay: 4 * time.Second},
		types.Success{ActionName: "a", Result: "ok"},
	} {
		rec = Reduce(rec, ev)
	}

	diffRecord(t, types.Record{
		Status:          types.StatusSuccess,
		Data:            "ok",
		RetryAttempt:    2,
		TriggeredBefore: true,
	}, rec)
}
