package resilience

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	appErrors "placementprep/internal/errors"
)

// StatusError is a non-2xx response from a remote service
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote returned status %d", e.Code)
	}
	return fmt.Sprintf("remote returned status %d: %s", e.Code, e.Body)
}

// NewStatusError builds a StatusError, keeping the {"error": "..."} or {"message": "..."} text of body
func NewStatusError(code int, body []byte) *StatusError {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return &StatusError{Code: code, Body: payload.Error}
		}
		if payload.Message != "" {
			return &StatusError{Code: code, Body: payload.Message}
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return &StatusError{Code: code, Body: text}
}

// Policy controls how many times and how far apart a call is retried
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Retryable decides whether err warrants another attempt. Defaults to IsRetryable.
	Retryable func(error) bool
}

// IsRetryable classifies transport failures, timeouts, 429 and 5xx as transient
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return appErrors.IsType(err, appErrors.ErrorTypeNetwork)
}

// Backoff returns the delay before the given retry attempt (1-based):
// exponential from BaseDelay with up to 10% jitter, capped at MaxDelay.
func (p Policy) Backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	delay := time.Duration(math.Pow(2, float64(attempt-1))) * base
	var jitter time.Duration
	if jitterMax := int64(float64(delay) * 0.1); jitterMax > 0 {
		// Use crypto/rand for secure random jitter
		if jitterBig, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(jitterBig.Int64())
		}
	}
	return min(delay+jitter, maxDelay)
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return IsRetryable(err)
}

// Retry calls fn until it succeeds, fails with a non-retryable error, or retries run out
func Retry[T any](ctx context.Context, p Policy, operation string, logger *appErrors.Logger, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying remote operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", p.MaxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(p.Backoff(attempt)):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("Remote operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err

		if ctx.Err() != nil || !p.retryable(err) {
			logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			return zero, err
		}
	}

	if p.MaxRetries == 0 {
		return zero, lastErr
	}

	logger.LogError(lastErr, "Remote operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", p.MaxRetries+1)

	return zero, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, p.MaxRetries, lastErr)
}
