package store

import "github.com/jzx17/actionflow/pkg/types"

// Reduce folds one lifecycle event into a record. It is pure and total:
// events it does not know return the record unchanged.
//
//	Trigger    Status=Loading, TriggeredBefore=true, Err cleared
//	Retry(a)   Status=Retrying, RetryAttempt=a
//	Success(r) Status=Success, Data=r
//	Fail(e)    Status=Fail, Err=e
//	Reset      Status=Initial, Err and RetryAttempt cleared
func Reduce(rec types.Record, ev types.Event) types.Record {
	switch e := ev.(type) {
	case types.Trigger:
		rec.Status = types.StatusLoading
		rec.TriggeredBefore = true
		rec.Err = nil
	case types.Retry:
		rec.Status = types.StatusRetrying
		rec.RetryAttempt = e.Attempt
	case types.Success:
		rec.Status = types.StatusSuccess
		rec.Data = e.Result
	case types.Fail:
		rec.Status = types.StatusFail
		rec.Err = e.Err
	case types.Reset:
		rec.Status = types.StatusInitial
		rec.Err = nil
		rec.RetryAttempt = 0
	}
	return rec
}
