package server

import (
	"net/http"

	"placementprep/internal/identity"
	"placementprep/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

func (s *Server) signUpHandler(w http.ResponseWriter, r *http.Request) {
	var req identity.SignUpRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	session, err := s.services.Identity.SignUp(r.Context(), req)
	s.om.RecordBusinessMetric(r.Context(), observability.MetricSignIn, err == nil, attribute.String("method", "signup"))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	session, err := s.services.Identity.SignIn(r.Context(), req.Email, req.Password)
	s.om.RecordBusinessMetric(r.Context(), observability.MetricSignIn, err == nil, attribute.String("method", "password"))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) googleLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	session, err := s.services.Identity.SignInWithGoogle(r.Context(), req.IDToken)
	s.om.RecordBusinessMetric(r.Context(), observability.MetricSignIn, err == nil, attribute.String("method", "google"))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// profileHandler requires "Authorization: Bearer <session token>"
func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := s.services.Identity.Authenticate(r.Header.Get("Authorization"))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, s.services.Identity.Profile(r.Context(), userID))
}
