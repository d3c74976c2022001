// Package config loads engine settings and per-action overrides from YAML.
//
//	debug_logging: true
//	default_reset_delay: 100ms
//	default_strategy: latest
//	max_concurrent_runs: 8
//	actions:
//	  fetchUser:
//	    strategy: every
//	    poll_interval: 30s
//	    retry:
//	      interval: 1s
//	      max_attempts: 3
//	      max_delay: 1m
//	      exponential: true
//	      jitter: false
//
// Every field is optional. Unset fields keep the engine and policy defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jzx17/actionflow/pkg/action"
	"github.com/jzx17/actionflow/pkg/retry"
	"github.com/jzx17/actionflow/pkg/types"
	"github.com/jzx17/actionflow/pkg/watcher"
)

// File is the decoded configuration file
type File struct {
	DebugLogging      bool                    `yaml:"debug_logging"`
	DefaultResetDelay *time.Duration          `yaml:"default_reset_delay"`
	DefaultStrategy   string                  `yaml:"default_strategy"`
	MaxConcurrentRuns int                     `yaml:"max_concurrent_runs"`
	Actions           map[string]ActionConfig `yaml:"actions"`
}

// ActionConfig overrides the definition of one action
type ActionConfig struct {
	Strategy     string         `yaml:"strategy"`
	PollInterval *time.Duration `yaml:"poll_interval"`
	Retry        RetryConfig    `yaml:"retry"`
}

// RetryConfig overrides fields of the retry policy
type RetryConfig struct {
	Interval    *time.Duration `yaml:"interval"`
	MaxAttempts *int           `yaml:"max_attempts"`
	MaxDelay    *time.Duration `yaml:"max_delay"`
	Exponential *bool          `yaml:"exponential"`
	Jitter      *bool          `yaml:"jitter"`
}

// Default returns an empty configuration
func Default() *File {
	return &File{}
}

// Load reads and parses the file at path
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	f := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if _, err := f.Settings(); err != nil {
		return nil, err
	}
	for _, name := range f.names() {
		if _, err := f.Options(name); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Settings returns the engine settings described by the file
func (f *File) Settings() (action.Settings, error) {
	settings := action.DefaultSettings()
	settings.DebugLogging = f.DebugLogging
	settings.MaxConcurrentRuns = f.MaxConcurrentRuns
	if f.DefaultResetDelay != nil {
		settings.DefaultResetDelay = *f.DefaultResetDelay
	}
	if f.DefaultStrategy != "" {
		strategy, err := watcher.ParseStrategy(f.DefaultStrategy)
		if err != nil {
			return action.Settings{}, fmt.Errorf("default_strategy: %w", err)
		}
		settings.DefaultStrategy = strategy
	}
	if err := settings.Validate(); err != nil {
		return action.Settings{}, err
	}
	return settings, nil
}

// Options returns the definition options configured for action name. An
// action without an entry has no options.
func (f *File) Options(name string) ([]action.Option, error) {
	ac, ok := f.Actions[name]
	if !ok {
		return nil, nil
	}

	var opts []action.Option
	if ac.Strategy != "" {
		strategy, err := watcher.ParseStrategy(ac.Strategy)
		if err != nil {
			return nil, fmt.Errorf("actions.%s.strategy: %w", name, err)
		}
		opts = append(opts, action.WithStrategy(strategy))
	}
	if ac.PollInterval != nil {
		opts = append(opts, action.WithPollInterval(*ac.PollInterval))
	}

	policyOpts := ac.Retry.policyOptions()
	if _, err := retry.NewPolicy(policyOpts...); err != nil {
		return nil, fmt.Errorf("actions.%s.retry: %w", name, err)
	}
	if len(policyOpts) > 0 {
		opts = append(opts, action.WithRetry(policyOpts...))
	}
	return opts, nil
}

func (r RetryConfig) policyOptions() []retry.PolicyOption {
	var opts []retry.PolicyOption
	if r.Interval != nil {
		opts = append(opts, retry.WithInterval(*r.Interval))
	}
	if r.MaxAttempts != nil {
		opts = append(opts, retry.WithMaxAttempts(*r.MaxAttempts))
	}
	if r.MaxDelay != nil {
		opts = append(opts, retry.WithMaxDelay(*r.MaxDelay))
	}
	if r.Exponential != nil {
		opts = append(opts, retry.WithExponential(*r.Exponential))
	}
	if r.Jitter != nil {
		opts = append(opts, retry.WithJitter(*r.Jitter))
	}
	return opts
}

// Apply appends the configured overrides to defs. Every configured action
// must be among defs.
func (f *File) Apply(defs ...action.Definition) ([]action.Definition, error) {
	known := make(map[string]bool, len(defs))
	out := make([]action.Definition, len(defs))
	for i, def := range defs {
		known[def.Name()] = true
		opts, err := f.Options(def.Name())
		if err != nil {
			return nil, err
		}
		out[i] = def.With(opts...)
	}

	for _, name := range f.names() {
		if !known[name] {
			return nil, fmt.Errorf("actions.%s: %w", name, types.ErrUnknownAction)
		}
	}
	return out, nil
}

func (f *File) names() []string {
	names := make([]string, 0, len(f.Actions))
	for name := range f.Actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
