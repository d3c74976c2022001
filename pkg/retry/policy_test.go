package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/actionflow/pkg/types"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, time.Second, p.Interval)
	assert.Equal(t, 0, p.MaxAttempts)
	assert.Equal(t, 60*time.Second, p.MaxDelay)
	assert.True(t, p.Exponential)
	assert.True(t, p.Jitter)
	assert.NoError(t, p.Validate())
}

func TestNewPolicy_MergesOverDefaults(t *testing.T) {
	p, err := NewPolicy(WithMaxAttempts(3), WithJitter(false))
	require.NoError(t, err)

	assert.Equal(t, Policy{
		Interval:    time.Second,
		MaxAttempts: 3,
		MaxDelay:    60 * time.Second,
		Exponential: true,
		Jitter:      false,
	}, p)
}

func TestNewPolicy_AllOptions(t *testing.T) {
	p, err := NewPolicy(
		WithInterval(250*time.Millisecond),
		WithMaxAttempts(5),
		WithMaxDelay(2*time.Second),
		WithExponential(false),
		WithJitter(false),
	)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, p.Interval)
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 2*time.Second, p.MaxDelay)
	assert.False(t, p.Exponential)
	assert.False(t, p.Jitter)
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []PolicyOption
		wantErr bool
	}{
		{"defaults", nil, false},
		{"interval equals max delay", []PolicyOption{WithInterval(time.Second), WithMaxDelay(time.Second)}, false},
		{"zero interval", []PolicyOption{WithInterval(0)}, false},
		{"interval above max delay", []PolicyOption{WithInterval(2 * time.Minute)}, true},
		{"negative max attempts", []PolicyOption{WithMaxAttempts(-1)}, true},
		{"negative interval", []PolicyOption{WithInterval(-time.Second)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicy(tt.opts...)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrInvalidPolicy))
			assert.True(t, types.IsConfigurationError(err))
		})
	}
}
