package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"placementprep/internal/ai"
	"placementprep/internal/config"
	appErrors "placementprep/internal/errors"
	"placementprep/internal/resilience"
	"placementprep/internal/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const maxResponseBytes = 1 << 20

// RemoteProvider posts the resume to an ATS scoring service as multipart form data
type RemoteProvider struct {
	endpoint   string
	httpClient *http.Client
	executor   *resilience.Executor[types.ScoreResult]
	logger     *appErrors.Logger
}

// NewRemoteProvider creates a client for cfg.Endpoint
func NewRemoteProvider(cfg config.ScorerConfig, logger *appErrors.Logger) (*RemoteProvider, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig,
			fmt.Sprintf("invalid scorer endpoint %q", cfg.Endpoint), err)
	}

	policy := resilience.Policy{MaxRetries: cfg.MaxRetries}
	return &RemoteProvider{
		endpoint: u.String(),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		executor: resilience.NewExecutor[types.ScoreResult]("scorer", "score", cfg.Timeout, policy, cfg.CircuitBreaker, logger),
		logger:   logger,
	}, nil
}

func (p *RemoteProvider) Name() string { return ModeRemote }

// SetObserver reports every scorer call outcome to observer
func (p *RemoteProvider) SetObserver(observer resilience.Observer) {
	p.executor.Observer = observer
}

// CircuitBreakerStats returns the scorer breaker statistics
func (p *RemoteProvider) CircuitBreakerStats() map[string]any {
	return p.executor.Stats()
}

// Score sends fields "resume" (file) and "job_description"
func (p *RemoteProvider) Score(ctx context.Context, upload types.ResumeUpload) (types.ScoreResult, error) {
	ctx, span := otel.Tracer("placementprep.scorer").Start(ctx, "scorer.score")
	defer span.End()
	span.SetAttributes(
		attribute.Int("input.resume_bytes", len(upload.Content)),
		attribute.String("input.extension", filepath.Ext(upload.FileName)),
	)

	result, err := p.executor.Execute(ctx, func(ctx context.Context) (types.ScoreResult, error) {
		return p.post(ctx, upload)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return types.ScoreResult{}, appErrors.NewNetworkError(appErrors.ErrCodeRemoteFailed,
			"Resume scoring service failed", err)
	}
	return result, nil
}

func (p *RemoteProvider) post(ctx context.Context, upload types.ResumeUpload) (types.ScoreResult, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("resume", filepath.Base(upload.FileName))
	if err != nil {
		return types.ScoreResult{}, err
	}
	if _, err := part.Write(upload.Content); err != nil {
		return types.ScoreResult{}, err
	}
	if err := form.WriteField("job_description", upload.JobDescription); err != nil {
		return types.ScoreResult{}, err
	}
	if err := form.Close(); err != nil {
		return types.ScoreResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &body)
	if err != nil {
		return types.ScoreResult{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return types.ScoreResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return types.ScoreResult{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.ScoreResult{}, resilience.NewStatusError(resp.StatusCode, data)
	}

	var decoded struct {
		MatchScore      *types.Percentage `json:"match_score"`
		MissingKeywords []string          `json:"missing_keywords"`
		ImprovementTips []string          `json:"improvement_tips"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return types.ScoreResult{}, appErrors.NewValidationError(appErrors.ErrCodeInvalidResponse,
			"scorer returned an invalid response", err)
	}
	if decoded.MatchScore == nil {
		return types.ScoreResult{}, appErrors.NewValidationError(appErrors.ErrCodeInvalidResponse,
			"scorer response has no match_score", nil)
	}
	return types.ScoreResult{
		MatchScore:      *decoded.MatchScore,
		MissingKeywords: decoded.MissingKeywords,
		ImprovementTips: decoded.ImprovementTips,
	}, nil
}

// GeminiProvider scores resumes with the Gemini score operation
type GeminiProvider struct {
	ai ai.AIProvider
}

// NewGeminiProvider adapts an AI provider to the scorer
func NewGeminiProvider(provider ai.AIProvider) *GeminiProvider {
	return &GeminiProvider{ai: provider}
}

func (p *GeminiProvider) Name() string { return ModeGemini }

// SetObserver reports every Gemini call outcome to observer
func (p *GeminiProvider) SetObserver(observer resilience.Observer) {
	p.ai.SetObserver(observer)
}

// CircuitBreakerStats returns the Gemini breaker statistics
func (p *GeminiProvider) CircuitBreakerStats() map[string]any {
	return p.ai.GetCircuitBreakerStats()
}

// Models reports whether the configured Gemini model is reachable
func (p *GeminiProvider) Models(ctx context.Context) map[string]*ai.ModelInfo {
	return map[string]*ai.ModelInfo{ai.OperationScore: p.ai.GetModelInfo(ctx)}
}

func (p *GeminiProvider) Score(ctx context.Context, upload types.ResumeUpload) (types.ScoreResult, error) {
	result, _, err := p.ai.ScoreResume(ctx, upload)
	if err != nil {
		return types.ScoreResult{}, err
	}
	return result, nil
}

// DemoProvider returns a fixed sample result, flagged as demo
type DemoProvider struct{}

func (DemoProvider) Name() string { return ModeDemo }

func (DemoProvider) Score(context.Context, types.ResumeUpload) (types.ScoreResult, error) {
	return DemoResult(), nil
}

// DemoResult is the sample shown when no scoring backend is used
func DemoResult() types.ScoreResult {
	return types.ScoreResult{
		MatchScore:      85,
		MissingKeywords: []string{"React Native", "Redux", "TypeScript"},
		ImprovementTips: []string{
			"Add more details about your React experience",
			"Include specific project metrics",
			"Highlight your team collaboration skills",
		},
		Demo: true,
	}
}
