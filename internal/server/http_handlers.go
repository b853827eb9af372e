package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"placementprep/internal/ai"
	appErrors "placementprep/internal/errors"
	"placementprep/internal/identity"
	"placementprep/internal/interview"
	"placementprep/internal/practice"
)

func (s *Server) getHealthCheckTimeout() time.Duration {
	if timeout := s.Config().Observability.HealthCheck.Timeout; timeout > 0 {
		return timeout
	}
	return 5 * time.Second
}

// healthHandler reports judge reachability and every circuit breaker.
// Any open breaker or an unreachable judge makes the service degraded.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "placementprep",
		"version": s.Version,
	}

	overallHealthy := true
	breakers := map[string]any{}

	if s.services.Judge != nil {
		status := s.services.Judge.Status(r.Context(), s.getHealthCheckTimeout())
		response["judge"] = status
		breakers["judge"] = s.services.Judge.CircuitBreakerStats()
		if !status.Available || !s.services.Judge.IsHealthy() {
			overallHealthy = false
		}
	}

	if sc := s.currentScorer(); sc != nil {
		stats := sc.CircuitBreakerStats()
		breakers["scorer"] = stats
		response["scorer_mode"] = sc.Mode()
		if !breakerHealthy(stats) {
			overallHealthy = false
		}
	}

	if p, ok := s.services.Interview.(interface{ CircuitBreakerStats() map[string]any }); ok {
		stats := p.CircuitBreakerStats()
		breakers["interview"] = stats
		for _, op := range stats {
			if opStats, ok := op.(map[string]any); ok && !breakerHealthy(opStats) {
				overallHealthy = false
			}
		}
	}
	response["circuit_breakers"] = breakers

	if models := s.checkAIModelsHealth(r.Context()); len(models) > 0 {
		response["ai_models"] = models
		for _, info := range models {
			if info != nil && !info.Available {
				overallHealthy = false
			}
		}
	}

	status := http.StatusOK
	if !overallHealthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkAIModelsHealth asks every Gemini-backed component whether its model is reachable
func (s *Server) checkAIModelsHealth(ctx context.Context) map[string]*ai.ModelInfo {
	ctx, cancel := context.WithTimeout(ctx, s.getHealthCheckTimeout())
	defer cancel()

	models := map[string]*ai.ModelInfo{}
	if sc := s.currentScorer(); sc != nil {
		for op, info := range sc.Models(ctx) {
			models[op] = info
		}
	}
	if p, ok := s.services.Interview.(interface {
		Models(context.Context) map[string]*ai.ModelInfo
	}); ok {
		for op, info := range p.Models(ctx) {
			models[op] = info
		}
	}
	return models
}

// breakerHealthy reads the "state" reported by resilience breaker stats
func breakerHealthy(stats map[string]any) bool {
	state, ok := stats["state"]
	if !ok {
		return true
	}
	return fmt.Sprint(state) != "open"
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service":        "placementprep",
		"version":        s.Version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"api_keys_configured":    len(s.APIKeys),
		},
	}

	if s.services.Practice != nil {
		response["practice"] = s.services.Practice.GetStats()
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// statusHandler proxies the judge's own status endpoint
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if s.services.Judge == nil {
		writeErrorResponse(w, "Judge not configured", "", http.StatusServiceUnavailable)
		return
	}
	status := s.services.Judge.Status(r.Context(), s.getHealthCheckTimeout())
	code := http.StatusOK
	if !status.Available {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, status)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes): %w", maxBytesErr.Limit, err)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRequestError reports a body that could not be read or decoded
func writeRequestError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeErrorResponse(w, "Request too large", err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message})
}

// errorStatus maps domain errors to a status, a short error title and a user-facing message.
// ok is false for errors it does not recognise.
func errorStatus(err error) (status int, title, message string, ok bool) {
	var idErr *identity.Error
	if errors.As(err, &idErr) {
		return idErr.Kind.HTTPStatus(), "Authentication failed", identity.MessageOf(err), true
	}

	switch {
	case errors.Is(err, practice.ErrSessionNotFound):
		return http.StatusNotFound, "Session not found", err.Error(), true
	case errors.Is(err, practice.ErrInvalidExample):
		return http.StatusBadRequest, "Invalid example", err.Error(), true
	case errors.Is(err, practice.ErrRunInFlight),
		errors.Is(err, practice.ErrSubmitInFlight),
		errors.Is(err, practice.ErrAlreadyAccepted),
		errors.Is(err, practice.ErrStaleResponse),
		errors.Is(err, practice.ErrNoProblem),
		errors.Is(err, interview.ErrStaleResponse):
		return http.StatusConflict, "Conflict", err.Error(), true
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Upstream timeout", err.Error(), true
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, "Request too large",
			fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), true
	}

	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case appErrors.ErrorTypeValidation:
			return http.StatusBadRequest, "Invalid request", appErr.Message, true
		case appErrors.ErrorTypeNetwork, appErrors.ErrorTypeJudge, appErrors.ErrorTypeAI:
			return http.StatusBadGateway, "Upstream service failed", appErr.Message, true
		case appErrors.ErrorTypeConfig:
			return http.StatusServiceUnavailable, "Service not configured", appErr.Message, true
		}
	}
	return 0, "", "", false
}

// writeError writes err with its mapped status. Upstream failures, including
// unrecognised errors, are shown with fallbackMessage when one is given.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	status, title, message, ok := errorStatus(err)
	if !ok {
		status, title, message = http.StatusBadGateway, "Upstream service failed", fallbackMessage
	}
	if fallbackMessage != "" && (status == http.StatusBadGateway || status == http.StatusGatewayTimeout) {
		message = fallbackMessage
	}
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "status", status)
	} else {
		s.Logger.Debug("Request rejected", "endpoint", r.URL.Path, "status", status, "error", err.Error())
	}
	writeErrorResponse(w, title, message, status)
}
