package action

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/actionflow/pkg/retry"
	"github.com/jzx17/actionflow/pkg/types"
	"github.com/jzx17/actionflow/pkg/watcher"
)

func TestFunc(t *testing.T) {
	double := Func(func(ctx context.Context, n int) (int, error) {
		return n * 2, nil
	})

	out, err := double(context.Background(), 21)
	require.NoError(t, err)
	assert.Equal(t, 42, out)

	out, err = double(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out)

	_, err = double(context.Background(), "21")
	var perr *ErrPayloadType
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "int", perr.Want)
	assert.Equal(t, "payload has type string, want int", err.Error())
}

func TestDefinition_With(t *testing.T) {
	noop := func(ctx context.Context, payload any) (any, error) { return nil, nil }
	base := Define("a", noop, WithRetry(retry.WithMaxAttempts(2)))
	derived := base.With(WithRetry(retry.WithMaxAttempts(5)), WithStrategy(watcher.Every))

	assert.Equal(t, "a", derived.Name())

	a, err := base.resolve(DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, 2, a.Policy.MaxAttempts)
	assert.Equal(t, watcher.Latest, a.Strategy)

	d, err := derived.resolve(DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, 5, d.Policy.MaxAttempts, "later options win")
	assert.Equal(t, watcher.Every, d.Strategy)
}

func TestDefinition_ResolveUsesSettings(t *testing.T) {
	noop := func(ctx context.Context, payload any) (any, error) { return nil, nil }
	settings := DefaultSettings()
	settings.DefaultStrategy = watcher.Leading

	a, err := Define("a", noop, WithPollInterval(time.Minute)).resolve(settings)
	require.NoError(t, err)
	assert.Equal(t, watcher.Leading, a.Strategy)
	assert.Equal(t, time.Minute, a.PollInterval)

	_, err = Define("a", noop, WithRetry(retry.WithInterval(time.Hour), retry.WithMaxDelay(time.Second))).resolve(settings)
	assert.ErrorIs(t, err, types.ErrInvalidPolicy)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(&Action{Name: "b"}))
	require.NoError(t, r.Add(&Action{Name: "a"}))

	assert.ErrorIs(t, r.Add(&Action{Name: "a"}), types.ErrDuplicateAction)
	assert.Equal(t, []string{"b", "a"}, r.Names())
	assert.Equal(t, 2, r.Len())

	a, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", a.Name)

	_, err = r.Get("c")
	assert.ErrorIs(t, err, types.ErrUnknownAction)
}
