// Package action is the entry point of actionflow.
//
// An Engine registers action definitions, each pairing a name with a
// worker, a retry policy, an optional poll interval and a concurrency
// strategy. For every action the engine attaches a watcher to its store;
// triggering the action through its Handle starts a run, and the run's
// Retry, Success and Fail events drive the action record.
//
// Basic usage:
//
//	engine, err := action.New(action.DefaultSettings())
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
//
//	err = engine.Register(action.Define("fetchUser", fetchUser,
//		action.WithRetry(retry.WithMaxAttempts(3)),
//	))
//	if err != nil {
//		return err
//	}
//
//	user := engine.MustOn("fetchUser")
//	user.Trigger(42)
//
//	if user.IsSuccess() {
//		u, _ := action.DataAs[*User](user)
//		...
//	}
//
// Worker failures never surface as errors of Trigger. They are observed
// through Status, Err and RetryAttempt of the handle.
package action
