package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET    /health                                  - Health check")
	fmt.Println("  GET    /stats                                   - Server statistics")
	fmt.Println("  GET    /status                                  - Judge status")
	fmt.Println("  POST   /practice/sessions                       - Start a practice session")
	fmt.Println("  GET    /practice/sessions/{id}                  - Session state")
	fmt.Println("  DELETE /practice/sessions/{id}                  - End a session")
	fmt.Println("  POST   /practice/sessions/{id}/problem          - Load a problem")
	fmt.Println("  PUT    /practice/sessions/{id}/language         - Switch language")
	fmt.Println("  PUT    /practice/sessions/{id}/code             - Update the draft")
	fmt.Println("  POST   /practice/sessions/{id}/runs/{index}     - Run one example")
	fmt.Println("  POST   /practice/sessions/{id}/submission       - Submit the solution")
	fmt.Println("  POST   /resume/score                            - Score a resume (multipart)")
	fmt.Println("  GET    /interview/question                      - Interview question")
	fmt.Println("  POST   /interview/evaluate                      - Grade an answer")
	fmt.Println("  POST   /auth/signup, /auth/login, /auth/google  - Sign up and sign in")
	fmt.Println("  GET    /profile                                 - Profile for a session token")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to every endpoint except /health, /stats and /status")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
