package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jzx17/actionflow/internal/config"
	"github.com/jzx17/actionflow/internal/logger"
	"github.com/jzx17/actionflow/internal/metrics"
	"github.com/jzx17/actionflow/pkg/action"
	"github.com/jzx17/actionflow/pkg/retry"
	"github.com/jzx17/actionflow/pkg/types"
	"github.com/jzx17/actionflow/pkg/watcher"
)

type simulateOptions struct {
	configPath  string
	name        string
	failTimes   int
	latency     time.Duration
	triggers    int
	strategy    string
	poll        time.Duration
	interval    time.Duration
	maxAttempts int
	maxDelay    time.Duration
	jitter      bool
	timeout     time.Duration
	jsonOutput  bool
	debug       bool
	logFormat   string
	metricsAddr string
}

func simulateCmd() *cobra.Command {
	opts := simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Trigger a simulated action and print its lifecycle",
		Long: `simulate registers one action whose worker fails a given number of
times before it succeeds, triggers it and prints every lifecycle event
together with the resulting status.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSimulate(ctx, cmd.OutOrStdout(), opts)
		},
	}

	policy := retry.DefaultPolicy()
	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.name, "name", "simulated", "action name")
	flags.IntVar(&opts.failTimes, "fail-times", 2, "worker calls that fail before the first success")
	flags.DurationVar(&opts.latency, "latency", 0, "duration of each worker call")
	flags.IntVar(&opts.triggers, "triggers", 1, "number of triggers fired back to back")
	flags.StringVar(&opts.strategy, "strategy", "", "concurrency strategy: latest, every or leading")
	flags.DurationVar(&opts.poll, "poll", 0, "re-arm finished runs after this interval")
	flags.DurationVar(&opts.interval, "interval", 100*time.Millisecond, "base retry interval")
	flags.IntVar(&opts.maxAttempts, "max-attempts", 3, "retries allowed after the first call")
	flags.DurationVar(&opts.maxDelay, "max-delay", policy.MaxDelay, "upper bound of a backoff wait")
	flags.BoolVar(&opts.jitter, "jitter", policy.Jitter, "randomize backoff waits")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "stop the simulation after this long")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print events as JSON messages")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.StringVar(&opts.logFormat, "log-format", string(logger.FormatConsole), "log format: console or json")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	return cmd
}

// transition is one applied event together with the status it produced
type transition struct {
	at     time.Duration
	msg    types.Message
	status types.Status
}

func runSimulate(ctx context.Context, out io.Writer, opts simulateOptions) error {
	file := config.Default()
	if opts.configPath != "" {
		var err error
		if file, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}

	settings, err := file.Settings()
	if err != nil {
		return err
	}
	settings.DebugLogging = settings.DebugLogging || opts.debug

	log := logger.New(logger.ForDebug(settings.DebugLogging), logger.Format(opts.logFormat))
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	if err != nil {
		return err
	}
	if opts.metricsAddr != "" {
		stopServer := serveMetrics(opts.metricsAddr, reg, log)
		defer stopServer()
	}

	engine, err := action.New(settings, action.WithLogger(log), action.WithMetricsCollector(collector))
	if err != nil {
		return err
	}
	defer engine.Close()

	def, err := definition(opts)
	if err != nil {
		return err
	}
	defs, err := file.Apply(def)
	if err != nil {
		return err
	}
	if err := engine.Register(defs...); err != nil {
		return err
	}

	start := time.Now()
	transitions := make(chan transition, 1024)
	unsubscribe := engine.Store().Subscribe(func(ev types.Event, rec types.Record) {
		if ev.Action() != opts.name {
			return
		}
		select {
		case transitions <- transition{at: time.Since(start), msg: types.Encode(ev), status: rec.Status}:
		default:
		}
	})
	defer unsubscribe()

	h := engine.MustOn(opts.name)
	for i := 1; i <= opts.triggers; i++ {
		h.Trigger(i)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	polling := opts.poll > 0
	for {
		select {
		case tr := <-transitions:
			if err := printTransition(out, tr, opts.jsonOutput); err != nil {
				return err
			}
		case <-ticker.C:
			if !polling && len(transitions) == 0 && h.Status().IsTerminal() && engine.InFlight() == 0 {
				return summarize(out, engine, h)
			}
		case <-ctx.Done():
			for len(transitions) > 0 {
				if err := printTransition(out, <-transitions, opts.jsonOutput); err != nil {
					return err
				}
			}
			return summarize(out, engine, h)
		}
	}
}

func definition(opts simulateOptions) (action.Definition, error) {
	defOpts := []action.Option{
		action.WithRetry(
			retry.WithInterval(opts.interval),
			retry.WithMaxAttempts(opts.maxAttempts),
			retry.WithMaxDelay(opts.maxDelay),
			retry.WithJitter(opts.jitter),
		),
		action.WithPollInterval(opts.poll),
	}
	if opts.strategy != "" {
		strategy, err := watcher.ParseStrategy(opts.strategy)
		if err != nil {
			return action.Definition{}, err
		}
		defOpts = append(defOpts, action.WithStrategy(strategy))
	}
	return action.Define(opts.name, simulatedWorker(opts.failTimes, opts.latency), defOpts...), nil
}

var errSimulated = errors.New("simulated failure")

// simulatedWorker fails its first failTimes calls, across all runs
func simulatedWorker(failTimes int, latency time.Duration) retry.Worker {
	var calls atomic.Int64
	clock := types.NewRealClock()
	return func(ctx context.Context, payload any) (any, error) {
		n := calls.Add(1)
		if err := types.Sleep(ctx, clock, latency); err != nil {
			return nil, err
		}
		if n <= int64(failTimes) {
			return nil, fmt.Errorf("call %d: %w", n, errSimulated)
		}
		return fmt.Sprintf("payload %v served by call %d", payload, n), nil
	}
}

var statusColors = map[types.Status]*color.Color{
	types.StatusInitial:  color.New(color.FgWhite),
	types.StatusLoading:  color.New(color.FgCyan),
	types.StatusRetrying: color.New(color.FgYellow),
	types.StatusSuccess:  color.New(color.FgGreen),
	types.StatusFail:     color.New(color.FgRed),
}

func colorStatus(status types.Status) string {
	if c, ok := statusColors[status]; ok {
		return c.Sprint(status)
	}
	return status.String()
}

func printTransition(out io.Writer, tr transition, asJSON bool) error {
	if asJSON {
		data, err := types.MarshalMessage(tr.msg)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	detail := ""
	switch {
	case tr.msg.Error != nil:
		detail = tr.msg.Error.Error()
	case tr.msg.RetryAttempt > 0:
		detail = fmt.Sprintf("attempt %d", tr.msg.RetryAttempt)
	case tr.msg.Payload != nil:
		detail = fmt.Sprint(tr.msg.Payload)
	}

	_, err := fmt.Fprintf(out, "%8s  %-28s %-10s %s\n",
		tr.at.Truncate(time.Millisecond), tr.msg.Type, colorStatus(tr.status), detail)
	return err
}

func summarize(out io.Writer, engine *action.Engine, h *action.Handle) error {
	stats, err := engine.Stats(h.Name())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nfinal status: %s\n", colorStatus(h.Status()))
	if data := h.Data(); data != nil {
		fmt.Fprintf(out, "data:         %v\n", data)
	}
	if err := h.Err(); err != nil {
		fmt.Fprintf(out, "error:        %v\n", err)
	}
	_, err = fmt.Fprintf(out, "calls: %d  retries: %d  successes: %d  failures: %d  cancelled: %d\n",
		stats.TotalAttempts, stats.TotalRetries, stats.TotalSuccesses, stats.TotalFailures, stats.TotalCancelled)
	return err
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
