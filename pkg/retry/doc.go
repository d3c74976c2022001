// Package retry runs action workers with bounded retries, capped
// exponential backoff and optional polling.
//
// Key Features:
//
// 1. Policy:
//   - Interval, MaxAttempts, MaxDelay, Exponential, Jitter
//   - Options merged over DefaultPolicy, validated at construction
//
// 2. Backoff:
//   - FixedBackoff: Interval on every retry
//   - ExponentialBackoff: min(MaxDelay, Interval*2^attempt)
//   - FullJitter: uniform within [0, delay], both ends included
//
// 3. Executor:
//   - One run per call, attempt counter starting from zero
//   - Retry event before every backoff wait, then one Success or Fail
//   - Worker errors and panics never escape the run
//   - Context cancellation aborts backoff waits and suppresses late results
//   - Statistics, zap logging and metrics hooks
//
// 4. Poller:
//   - Re-arms a finished run after a fixed interval until cancelled
//
// Basic usage example:
//
//	policy, err := retry.NewPolicy(retry.WithMaxAttempts(2), retry.WithJitter(false))
//	if err != nil {
//		return err
//	}
//
//	executor := retry.NewExecutor(policy,
//		retry.WithEventHandler(retry.NewLoggingEventHandler(logger)))
//
//	err = executor.Run(ctx, "fetch_user", userID, fetchUser, store)
//
// With the policy above and a worker that fails twice before succeeding,
// the run emits Retry(1) after which it waits 2s, Retry(2) and a 4s wait,
// then Success.
//
// A jittered delay may be zero. The retry is then immediate, which is the
// expected lower end of full jitter.
package retry
