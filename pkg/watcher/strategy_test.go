package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/actionflow/pkg/types"
)

func TestStrategy_String(t *testing.T) {
	tests := []struct {
		strategy Strategy
		expected string
	}{
		{Latest, "latest"},
		{Every, "every"},
		{Leading, "leading"},
		{Strategy(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.strategy.String())
		})
	}
}

func TestParseStrategy(t *testing.T) {
	for _, in := range []string{"latest", "LATEST", " Latest "} {
		s, err := ParseStrategy(in)
		require.NoError(t, err)
		assert.Equal(t, Latest, s)
	}

	_, err := ParseStrategy("debounce")
	assert.ErrorIs(t, err, types.ErrInvalidStrategy)
	assert.True(t, types.IsConfigurationError(err))
}

func TestStrategy_Text(t *testing.T) {
	var s Strategy
	require.NoError(t, s.UnmarshalText([]byte("leading")))
	assert.Equal(t, Leading, s)

	text, err := Every.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "every", string(text))

	_, err = Strategy(-1).MarshalText()
	assert.Error(t, err)
	assert.Error(t, s.UnmarshalText([]byte("nope")))
	assert.Equal(t, Leading, s, "failed unmarshal must not change the value")
}
