// Package metrics exports run and admission measurements of actions to
// Prometheus.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "actionflow"

	OutcomeSuccess   = "success"
	OutcomeFail      = "fail"
	OutcomeCancelled = "cancelled"

	DecisionSuperseded = "superseded"
	DecisionIgnored    = "ignored"
)

// Collector implements the run and admission metrics interfaces of the
// retry and watcher packages
type Collector struct {
	attempts    *prometheus.CounterVec   // by action
	retries     *prometheus.CounterVec   // by action
	retryDelay  *prometheus.HistogramVec // by action
	runs        *prometheus.CounterVec   // by action and outcome
	runDuration *prometheus.HistogramVec // by action and outcome
	admissions  *prometheus.CounterVec   // by action and decision
}

// New creates a collector and registers it with reg
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of worker calls",
		}, []string{"action"}),

		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retries scheduled",
		}, []string{"action"}),

		retryDelay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retry_delay_seconds",
			Help:      "Backoff delay before a retry",
			Buckets:   []float64{0, 0.1, 0.5, 1, 2, 4, 8, 16, 32, 60},
		}, []string{"action"}),

		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of finished runs",
		}, []string{"action", "outcome"}), // outcome: success, fail, cancelled

		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Run duration including backoff waits",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"action", "outcome"}),

		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_total",
			Help:      "Triggers that superseded or were ignored because of a live run",
		}, []string{"action", "decision"}), // decision: superseded, ignored
	}

	for _, col := range []prometheus.Collector{c.attempts, c.retries, c.retryDelay, c.runs, c.runDuration, c.admissions} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return c, nil
}

func (c *Collector) RecordAttempt(action string) {
	c.attempts.WithLabelValues(action).Inc()
}

func (c *Collector) RecordRetry(action string, delay time.Duration) {
	c.retries.WithLabelValues(action).Inc()
	c.retryDelay.WithLabelValues(action).Observe(delay.Seconds())
}

func (c *Collector) RecordSuccess(action string, _ int, duration time.Duration) {
	c.finish(action, OutcomeSuccess, duration)
}

func (c *Collector) RecordFailure(action string, _ int, duration time.Duration) {
	c.finish(action, OutcomeFail, duration)
}

// RecordCancel counts a cancelled run. Its duration is not observed.
func (c *Collector) RecordCancel(action string) {
	c.runs.WithLabelValues(action, OutcomeCancelled).Inc()
}

func (c *Collector) RecordSuperseded(action string) {
	c.admissions.WithLabelValues(action, DecisionSuperseded).Inc()
}

func (c *Collector) RecordIgnored(action string) {
	c.admissions.WithLabelValues(action, DecisionIgnored).Inc()
}

func (c *Collector) finish(action, outcome string, duration time.Duration) {
	c.runs.WithLabelValues(action, outcome).Inc()
	c.runDuration.WithLabelValues(action, outcome).Observe(duration.Seconds())
}
