package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	appErrors "placementprep/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(retries int) Policy {
	return Policy{MaxRetries: retries, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: fmt.Errorf("get: %w", context.DeadlineExceeded), want: true},
		{name: "503", err: &StatusError{Code: 503}, want: true},
		{name: "429", err: &StatusError{Code: 429}, want: true},
		{name: "400", err: &StatusError{Code: 400, Body: "bad"}, want: false},
		{name: "404", err: &StatusError{Code: 404}, want: false},
		{name: "net op error", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: true},
		{name: "network app error", err: appErrors.NewNetworkError(appErrors.ErrCodeNetworkTimeout, "slow", nil), want: true},
		{name: "validation app error", err: appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "bad", nil), want: false},
		{name: "plain", err: errors.New("decode"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestBackoff(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	first := p.Backoff(1)
	assert.GreaterOrEqual(t, first, 100*time.Millisecond)
	assert.Less(t, first, 111*time.Millisecond)

	third := p.Backoff(3)
	assert.GreaterOrEqual(t, third, 400*time.Millisecond)
	assert.Less(t, third, 441*time.Millisecond)

	assert.Equal(t, time.Second, p.Backoff(10))
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	out, err := Retry(context.Background(), fastPolicy(2), "problem", nil, func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &StatusError{Code: 502}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	attempts := 0
	_, err := Retry(context.Background(), fastPolicy(3), "run", nil, func(context.Context) (int, error) {
		attempts++
		return 0, &StatusError{Code: 400, Body: "invalid language"}
	})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 400, statusErr.Code)
	assert.Equal(t, 1, attempts)
}

func TestRetryExhausted(t *testing.T) {
	attempts := 0
	_, err := Retry(context.Background(), fastPolicy(1), "problem", nil, func(context.Context) (int, error) {
		attempts++
		return 0, &StatusError{Code: 500}
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation 'problem' failed after 1 retries")
	assert.Equal(t, 2, attempts)
}

func TestRetryZeroRetriesReturnsErrorUnwrapped(t *testing.T) {
	boom := &StatusError{Code: 503}
	_, err := Retry(context.Background(), fastPolicy(0), "submit", nil, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.Same(t, boom, err)
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	attempts := 0
	_, err := Retry(ctx, policy, "problem", nil, func(context.Context) (int, error) {
		attempts++
		cancel()
		return 0, &StatusError{Code: 503}
	})

	assert.Equal(t, 1, attempts)
	require.Error(t, err)
}

func TestRetryCustomClassifier(t *testing.T) {
	attempts := 0
	policy := fastPolicy(2)
	policy.Retryable = func(error) bool { return true }

	_, _ = Retry(context.Background(), policy, "question", nil, func(context.Context) (int, error) {
		attempts++
		return 0, errors.New("quota")
	})
	assert.Equal(t, 3, attempts)
}

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "error field", body: `{"error": "Missing required fields"}`, want: "Missing required fields"},
		{name: "message field", body: `{"message": "overloaded"}`, want: "overloaded"},
		{name: "plain text", body: "  Bad Gateway\n", want: "Bad Gateway"},
		{name: "empty", body: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewStatusError(http.StatusBadRequest, []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, err.Code)
			assert.Equal(t, tt.want, err.Body)
		})
	}
}
