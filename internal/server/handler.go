package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	appErrors "placementprep/internal/errors"
	"placementprep/internal/observability"
	"placementprep/internal/practice"
	"placementprep/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RunResponse is returned by the example run endpoint
type RunResponse struct {
	Result  *types.TestRunResult `json:"result"`
	Session practice.View        `json:"session"`
}

// SubmissionResponse is returned by the submission endpoint
type SubmissionResponse struct {
	Result  *types.SubmissionResult `json:"result"`
	Session practice.View           `json:"session"`
}

func recordSpanError(span trace.Span, err error, errorType string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.type", errorType))
}

// session resolves {id} or writes 404
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*practice.Session, bool) {
	sess, err := s.services.Practice.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, "")
		return nil, false
	}
	return sess, true
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.services.Practice.Create()
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Practice.Delete(r.PathValue("id")); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fetchProblemHandler accepts an empty body or a ProblemRequest
func (s *Server) fetchProblemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("placementprep.api").Start(r.Context(), "api.practice.problem")
	defer span.End()

	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req ProblemRequest
	if r.ContentLength != 0 {
		if err := parseJSONRequest(r, &req); err != nil {
			recordSpanError(span, err, "validation")
			writeRequestError(w, err)
			return
		}
	}
	span.SetAttributes(attribute.String("practice.difficulty", req.Difficulty), attribute.Bool("practice.force_new", req.ForceNew))

	if err := sess.FetchProblem(ctx, practice.FetchOptions{Difficulty: req.Difficulty, ForceNew: req.ForceNew}); err != nil {
		recordSpanError(span, err, "judge")
		s.writeError(w, r, err, practice.MsgLoadFailed)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) switchLanguageHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req LanguageRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	lang, err := types.ParseLanguage(req.Language)
	if err != nil {
		writeErrorResponse(w, "Invalid language", err.Error(), http.StatusBadRequest)
		return
	}
	if err := sess.SwitchLanguage(lang); err != nil {
		writeErrorResponse(w, "Invalid language", err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) editCodeHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req CodeRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	sess.EditCode(req.Code)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// runExampleHandler runs the 0-based example {index}. A judge failure is reported
// in the result with passed=false, not as an HTTP error.
func (s *Server) runExampleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("placementprep.api").Start(r.Context(), "api.practice.run")
	defer span.End()

	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeErrorResponse(w, "Invalid example", fmt.Sprintf("example index must be a number, got %q", r.PathValue("index")), http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.Int("practice.example", index))

	result, err := sess.RunExample(ctx, index)
	if err != nil {
		recordSpanError(span, err, "practice")
		s.writeError(w, r, err, practice.MsgRunFailed)
		return
	}
	span.SetAttributes(attribute.Bool("practice.passed", result.Passed))
	writeJSON(w, http.StatusOK, RunResponse{Result: result, Session: sess.Snapshot()})
}

func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("placementprep.api").Start(r.Context(), "api.practice.submit")
	defer span.End()

	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	result, err := sess.SubmitSolution(ctx)
	if err != nil {
		recordSpanError(span, err, "practice")
		s.writeError(w, r, err, practice.MsgSubmitFailed)
		return
	}
	passed, total := result.Counts()
	span.SetAttributes(attribute.Bool("practice.success", result.Success), attribute.Int("practice.passed", passed), attribute.Int("practice.total", total))
	writeJSON(w, http.StatusOK, SubmissionResponse{Result: result, Session: sess.Snapshot()})
}

// scoreResumeHandler takes multipart fields "resume" (file) and "job_description"
func (s *Server) scoreResumeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("placementprep.api").Start(r.Context(), "api.resume.score")
	defer span.End()

	upload, err := readResumeUpload(r)
	if err != nil {
		recordSpanError(span, err, "validation")
		s.writeError(w, r, err, "")
		return
	}
	span.SetAttributes(
		attribute.Int("request.resume_bytes", len(upload.Content)),
		attribute.Int("request.job_length", len(upload.JobDescription)),
	)

	sc := s.currentScorer()
	result, err := sc.Score(ctx, upload)
	s.om.RecordBusinessMetric(ctx, observability.MetricResumeScored, err == nil, attribute.String("mode", sc.Mode()))
	if err != nil {
		recordSpanError(span, err, "scorer")
		s.writeError(w, r, err, "Resume scoring failed")
		return
	}
	span.SetAttributes(attribute.Float64("response.match_score", float64(result.MatchScore)))
	writeJSON(w, http.StatusOK, result)
}

// readResumeUpload reads the multipart form. A missing file or field is left empty
// so the scorer reports the user-facing validation message.
func readResumeUpload(r *http.Request) (types.ResumeUpload, error) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return types.ResumeUpload{}, err
		}
		return types.ResumeUpload{}, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
			"request must be multipart/form-data", err)
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	upload := types.ResumeUpload{JobDescription: strings.TrimSpace(r.FormValue("job_description"))}

	file, header, err := r.FormFile("resume")
	if errors.Is(err, http.ErrMissingFile) {
		return upload, nil
	}
	if err != nil {
		return types.ResumeUpload{}, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "invalid resume upload", err)
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		return types.ResumeUpload{}, appErrors.NewIOError(appErrors.ErrCodeFileNotReadable, "failed to read resume", err)
	}
	upload.FileName = header.Filename
	upload.Content = content
	return upload, nil
}

func (s *Server) questionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("placementprep.api").Start(r.Context(), "api.interview.question")
	defer span.End()

	q, err := s.services.Interview.Question(ctx)
	if err != nil {
		recordSpanError(span, err, "interview")
		s.writeError(w, r, err, "Failed to fetch interview question")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// evaluateHandler grades one answer. The client keeps the round state.
func (s *Server) evaluateHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("placementprep.api").Start(r.Context(), "api.interview.evaluate")
	defer span.End()

	var req EvaluateRequest
	if err := parseJSONRequest(r, &req); err != nil {
		recordSpanError(span, err, "validation")
		writeRequestError(w, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeErrorResponse(w, "Missing question", "question field is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		writeErrorResponse(w, "Missing answer", "answer field is required", http.StatusBadRequest)
		return
	}

	eval, err := s.services.Interview.Evaluate(ctx, req.Question, req.Answer)
	s.om.RecordBusinessMetric(ctx, observability.MetricAnswerEvaluated, err == nil)
	if err != nil {
		recordSpanError(span, err, "interview")
		s.writeError(w, r, err, "Failed to evaluate answer")
		return
	}
	span.SetAttributes(attribute.Float64("response.score", float64(eval.Score)))
	writeJSON(w, http.StatusOK, eval)
}
