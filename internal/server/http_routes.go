package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	rateLimit := s.rateLimitMiddleware()
	requestLimit := s.requestSizeLimitMiddleware()
	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return rateLimit(s.authMiddleware(requestLimit(h)))
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	mux.HandleFunc("GET /status", s.statusHandler)

	mux.HandleFunc("POST /practice/sessions", protected(s.createSessionHandler))
	mux.HandleFunc("GET /practice/sessions/{id}", protected(s.getSessionHandler))
	mux.HandleFunc("DELETE /practice/sessions/{id}", protected(s.deleteSessionHandler))
	mux.HandleFunc("POST /practice/sessions/{id}/problem", protected(s.fetchProblemHandler))
	mux.HandleFunc("PUT /practice/sessions/{id}/language", protected(s.switchLanguageHandler))
	mux.HandleFunc("PUT /practice/sessions/{id}/code", protected(s.editCodeHandler))
	mux.HandleFunc("POST /practice/sessions/{id}/runs/{index}", protected(s.runExampleHandler))
	mux.HandleFunc("POST /practice/sessions/{id}/submission", protected(s.submitHandler))

	mux.HandleFunc("POST /resume/score", protected(s.scoreResumeHandler))

	mux.HandleFunc("GET /interview/question", protected(s.questionHandler))
	mux.HandleFunc("POST /interview/evaluate", protected(s.evaluateHandler))

	mux.HandleFunc("POST /auth/signup", protected(s.signUpHandler))
	mux.HandleFunc("POST /auth/login", protected(s.loginHandler))
	mux.HandleFunc("POST /auth/google", protected(s.googleLoginHandler))
	mux.HandleFunc("GET /profile", protected(s.profileHandler))

	return mux
}

// requestAPIKey reads X-API-Key. The Authorization header carries session tokens.
func requestAPIKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr)
			writeErrorResponse(w, "Missing API key", "X-API-Key header required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr,
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
