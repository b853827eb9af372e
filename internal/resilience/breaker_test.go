package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"placementprep/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func breakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}
}

func TestBreakerTripsAfterFailures(t *testing.T) {
	cb := NewBreaker[int]("judge-run", breakerConfig(), nil)
	require.NotNil(t, cb)

	stats := cb.GetStats()
	assert.Equal(t, "judge-run", stats["name"])
	assert.Equal(t, "closed", stats["state"])
	assert.True(t, cb.IsHealthy())

	boom := errors.New("boom")
	for range 2 {
		_, err := cb.Execute(func() (int, error) { return 0, boom })
		assert.ErrorIs(t, err, boom)
	}

	assert.False(t, cb.IsHealthy())
	assert.Equal(t, "open", cb.GetStats()["state"])

	called := false
	_, err := cb.Execute(func() (int, error) { called = true; return 1, nil })
	assert.True(t, IsOpen(err))
	assert.False(t, called)
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	cb := NewBreaker[int]("judge-submit", breakerConfig(), nil)

	for range 3 {
		_, err := cb.Execute(func() (int, error) { return 0, context.Canceled })
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.True(t, cb.IsHealthy())
}

func TestBreakerDisabled(t *testing.T) {
	cfg := breakerConfig()
	cfg.Enabled = false

	cb := NewBreaker[string]("scorer-score", cfg, nil)
	assert.Nil(t, cb)

	out, err := cb.Execute(func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.True(t, cb.IsHealthy())
	assert.Equal(t, map[string]any{"enabled": false}, cb.GetStats())
	assert.Empty(t, cb.Name())
}

func TestIndependentBreakers(t *testing.T) {
	run := NewBreaker[int]("judge-run", breakerConfig(), nil)
	submit := NewBreaker[int]("judge-submit", breakerConfig(), nil)

	for range 2 {
		_, _ = run.Execute(func() (int, error) { return 0, errors.New("down") })
	}

	assert.False(t, run.IsHealthy())
	assert.True(t, submit.IsHealthy())
}
