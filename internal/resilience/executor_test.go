package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorAppliesPerAttemptTimeout(t *testing.T) {
	cfg := breakerConfig()
	cfg.Enabled = false
	exec := NewExecutor[string]("judge", "run", 20*time.Millisecond, fastPolicy(1), cfg, nil)

	attempts := 0
	_, err := exec.Execute(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		<-ctx.Done()
		return "", ctx.Err()
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, attempts)
}

func TestExecutorReportsToObserver(t *testing.T) {
	cfg := breakerConfig()
	cfg.MinRequests = 5
	exec := NewExecutor[int]("judge", "submit", time.Second, fastPolicy(0), cfg, nil)

	var observed []error
	var ops []string
	exec.Observer = func(_ context.Context, operation string, d time.Duration, err error) {
		ops = append(ops, operation)
		observed = append(observed, err)
		assert.GreaterOrEqual(t, d, time.Duration(0))
	}

	out, err := exec.Execute(context.Background(), func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, out)

	boom := errors.New("boom")
	_, err = exec.Execute(context.Background(), func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"submit", "submit"}, ops)
	assert.NoError(t, observed[0])
	assert.ErrorIs(t, observed[1], boom)
	assert.Equal(t, "judge-submit", exec.Stats()["name"])
	assert.True(t, exec.IsHealthy(), "two calls are below MinRequests")
}

func TestExecutorBreakerOpensAtFailureRatio(t *testing.T) {
	exec := NewExecutor[int]("judge", "run", time.Second, fastPolicy(0), breakerConfig(), nil)

	_, err := exec.Execute(context.Background(), func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), func(context.Context) (int, error) { return 0, errors.New("boom") })
	require.Error(t, err)

	assert.False(t, exec.IsHealthy())
	calls := 0
	_, err = exec.Execute(context.Background(), func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	assert.True(t, IsOpen(err))
	assert.Zero(t, calls)
}

func TestExecutorBreakerCountsRetriedCallOnce(t *testing.T) {
	exec := NewExecutor[int]("scorer", "score", time.Second, fastPolicy(2), breakerConfig(), nil)

	_, err := exec.Execute(context.Background(), func(context.Context) (int, error) {
		return 0, &StatusError{Code: 503}
	})
	require.Error(t, err)

	counts := exec.Stats()["counts"]
	require.NotNil(t, counts)
	assert.True(t, exec.IsHealthy(), "one failed call is below MinRequests")
}
