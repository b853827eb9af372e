package scorer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"placementprep/internal/ai"
	"placementprep/internal/config"
	appErrors "placementprep/internal/errors"
	"placementprep/internal/resilience"
	"placementprep/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scorerConfig(endpoint string) config.ScorerConfig {
	return config.ScorerConfig{
		Mode:              ModeRemote,
		Endpoint:          endpoint,
		Timeout:           2 * time.Second,
		AllowedExtensions: []string{".pdf", "docx"},
		MaxFileSize:       1024,
	}
}

func validUpload() types.ResumeUpload {
	return types.ResumeUpload{
		FileName:       "resume.pdf",
		Content:        []byte("%PDF-1.4 resume"),
		JobDescription: "React Native developer",
	}
}

func appErrorOf(t *testing.T, err error) *appErrors.AppError {
	t.Helper()
	var appErr *appErrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr
}

func TestValidate(t *testing.T) {
	svc := NewServiceWithProvider(DemoProvider{}, scorerConfig("http://unused"), nil)

	tests := []struct {
		name    string
		mutate  func(*types.ResumeUpload)
		wantMsg string
	}{
		{name: "valid pdf", mutate: func(*types.ResumeUpload) {}},
		{name: "valid docx upper case", mutate: func(u *types.ResumeUpload) { u.FileName = "CV.DOCX" }},
		{name: "no resume", mutate: func(u *types.ResumeUpload) { u.Content = nil }, wantMsg: MsgMissingInput},
		{name: "blank job description", mutate: func(u *types.ResumeUpload) { u.JobDescription = "  \n" }, wantMsg: MsgMissingInput},
		{name: "text file", mutate: func(u *types.ResumeUpload) { u.FileName = "resume.txt" }, wantMsg: MsgUnsupportedType},
		{name: "too large", mutate: func(u *types.ResumeUpload) { u.Content = make([]byte, 2048) }, wantMsg: "Resume is too large (max 1024 bytes)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upload := validUpload()
			tt.mutate(&upload)

			err := svc.Validate(upload)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			appErr := appErrorOf(t, err)
			assert.Equal(t, appErrors.ErrorTypeValidation, appErr.Type)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}

func TestDemoMode(t *testing.T) {
	cfg := &config.Config{Scorer: scorerConfig("")}
	cfg.Scorer.Mode = ModeDemo

	svc, err := NewService(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeDemo, svc.Mode())

	result, err := svc.Score(context.Background(), validUpload())
	require.NoError(t, err)
	assert.True(t, result.Demo)
	assert.Equal(t, types.Percentage(85), result.MatchScore)
	assert.Equal(t, []string{"React Native", "Redux", "TypeScript"}, result.MissingKeywords)
	assert.Len(t, result.ImprovementTips, 3)
	assert.Equal(t, map[string]any{"enabled": false}, svc.CircuitBreakerStats())
}

func TestDemoModeStillValidates(t *testing.T) {
	cfg := &config.Config{Scorer: scorerConfig("")}
	cfg.Scorer.Mode = ModeDemo
	svc, err := NewService(cfg, nil)
	require.NoError(t, err)

	_, err = svc.Score(context.Background(), types.ResumeUpload{FileName: "resume.pdf"})
	assert.Equal(t, MsgMissingInput, appErrorOf(t, err).Message)
}

func TestUnknownMode(t *testing.T) {
	cfg := &config.Config{Scorer: scorerConfig("")}
	cfg.Scorer.Mode = "fallback"
	_, err := NewService(cfg, nil)
	assert.ErrorContains(t, err, "unsupported scorer mode")
}

func TestRemoteScore(t *testing.T) {
	type received struct{ file, name, jd string }
	got := make(chan received, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		file, header, err := r.FormFile("resume")
		if !assert.NoError(t, err) {
			return
		}
		data, _ := io.ReadAll(file)
		got <- received{file: string(data), name: header.Filename, jd: r.FormValue("job_description")}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"match_score": "78%", "missing_keywords": ["Redux"], "improvement_tips": ["Add metrics"]}`))
	}))
	defer server.Close()

	cfg := &config.Config{Scorer: scorerConfig(server.URL + "/process")}
	svc, err := NewService(cfg, nil)
	require.NoError(t, err)

	result, err := svc.Score(context.Background(), validUpload())
	require.NoError(t, err)

	form := <-got
	assert.Equal(t, "%PDF-1.4 resume", form.file)
	assert.Equal(t, "resume.pdf", form.name)
	assert.Equal(t, "React Native developer", form.jd)

	assert.Equal(t, types.Percentage(78), result.MatchScore)
	assert.Equal(t, []string{"Redux"}, result.MissingKeywords)
	assert.False(t, result.Demo)
}

func TestRemoteFailureHasNoFallback(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error": "model crashed"}`},
		{name: "unparseable score", status: http.StatusOK, body: `{"match_score": "N/A", "missing_keywords": [], "improvement_tips": []}`},
		{name: "missing score", status: http.StatusOK, body: `{"missing_keywords": ["Go"], "improvement_tips": []}`},
		{name: "null score", status: http.StatusOK, body: `{"match_score": null}`},
		{name: "rejected file", status: http.StatusBadRequest, body: `{"error": "Unsupported file type"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc, err := NewService(&config.Config{Scorer: scorerConfig(server.URL)}, nil)
			require.NoError(t, err)

			result, err := svc.Score(context.Background(), validUpload())
			require.Error(t, err)
			assert.False(t, result.Demo)
			assert.Zero(t, result.MatchScore)
			assert.Equal(t, appErrors.ErrCodeRemoteFailed, appErrorOf(t, err).Code)
		})
	}
}

func TestRemoteStatusErrorIsExposed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": "busy"}`))
	}))
	defer server.Close()

	svc, err := NewService(&config.Config{Scorer: scorerConfig(server.URL)}, nil)
	require.NoError(t, err)

	_, err = svc.Score(context.Background(), validUpload())
	var statusErr *resilience.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Equal(t, "busy", statusErr.Body)
}

func TestRemoteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := scorerConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond

	svc, err := NewService(&config.Config{Scorer: cfg}, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = svc.Score(context.Background(), validUpload())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRemoteObserver(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"match_score": 50, "missing_keywords": [], "improvement_tips": []}`))
	}))
	defer server.Close()

	svc, err := NewService(&config.Config{Scorer: scorerConfig(server.URL)}, nil)
	require.NoError(t, err)

	var calls []string
	svc.SetObserver(func(_ context.Context, operation string, _ time.Duration, err error) {
		calls = append(calls, operation)
		assert.NoError(t, err)
	})

	_, err = svc.Score(context.Background(), validUpload())
	require.NoError(t, err)
	assert.Equal(t, []string{"score"}, calls)
}

type stubAI struct {
	ai.AIProvider
	result types.ScoreResult
	err    error
	seen   types.ResumeUpload
}

func (s *stubAI) ScoreResume(_ context.Context, upload types.ResumeUpload) (types.ScoreResult, *ai.TokenUsage, error) {
	s.seen = upload
	return s.result, nil, s.err
}

func TestGeminiProvider(t *testing.T) {
	stub := &stubAI{result: types.ScoreResult{MatchScore: 64, MissingKeywords: []string{"Go"}}}
	svc := NewServiceWithProvider(NewGeminiProvider(stub), scorerConfig(""), nil)
	assert.Equal(t, ModeGemini, svc.Mode())

	result, err := svc.Score(context.Background(), validUpload())
	require.NoError(t, err)
	assert.Equal(t, types.Percentage(64), result.MatchScore)
	assert.Equal(t, "resume.pdf", stub.seen.FileName)

	stub.err = appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed, "boom", nil)
	_, err = svc.Score(context.Background(), validUpload())
	assert.Equal(t, appErrors.ErrCodeAIServiceFailed, appErrorOf(t, err).Code)
}
