// Package interview asks interview questions and grades answers.
package interview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"placementprep/internal/ai"
	"placementprep/internal/config"
	appErrors "placementprep/internal/errors"
	"placementprep/internal/resilience"
	"placementprep/internal/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// Modes selected by interview.mode
const (
	ModeRemote = "remote"
	ModeGemini = "gemini"
)

const maxResponseBytes = 1 << 20

// Provider supplies questions and grades answers on a 0-100 scale
type Provider interface {
	Question(ctx context.Context) (types.InterviewQuestion, error)
	Evaluate(ctx context.Context, question, answer string) (types.AnswerEvaluation, error)
	Name() string
}

// NewProvider builds the provider named by cfg.Interview.Mode
func NewProvider(cfg *config.Config, logger *appErrors.Logger) (Provider, error) {
	switch cfg.Interview.Mode {
	case ModeRemote:
		return NewRemoteProvider(cfg.Interview, logger)
	case ModeGemini:
		question, err := ai.NewServiceForOperation(cfg, ai.OperationQuestion, logger)
		if err != nil {
			return nil, err
		}
		evaluate, err := ai.NewServiceForOperation(cfg, ai.OperationEvaluate, logger)
		if err != nil {
			return nil, err
		}
		return NewGeminiProvider(question.Provider, evaluate.Provider), nil
	default:
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported interview mode: %s", cfg.Interview.Mode), nil)
	}
}

// RemoteProvider talks to an interview service exposing /api/question and /api/evaluate
type RemoteProvider struct {
	baseURL    *url.URL
	httpClient *http.Client
	question   *resilience.Executor[types.InterviewQuestion]
	evaluate   *resilience.Executor[types.AnswerEvaluation]
	logger     *appErrors.Logger
}

// NewRemoteProvider creates a client for cfg.BaseURL
func NewRemoteProvider(cfg config.InterviewConfig, logger *appErrors.Logger) (*RemoteProvider, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig,
			fmt.Sprintf("invalid interview base URL %q", cfg.BaseURL), err)
	}

	policy := resilience.Policy{MaxRetries: cfg.MaxRetries}
	return &RemoteProvider{
		baseURL: base,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		question: resilience.NewExecutor[types.InterviewQuestion]("interview", "question", cfg.Timeout, policy, cfg.CircuitBreaker, logger),
		evaluate: resilience.NewExecutor[types.AnswerEvaluation]("interview", "evaluate", cfg.Timeout, policy, cfg.CircuitBreaker, logger),
		logger:   logger,
	}, nil
}

func (p *RemoteProvider) Name() string { return ModeRemote }

// SetObserver reports every interview call outcome to observer
func (p *RemoteProvider) SetObserver(observer resilience.Observer) {
	p.question.Observer = observer
	p.evaluate.Observer = observer
}

// CircuitBreakerStats returns breaker statistics per operation
func (p *RemoteProvider) CircuitBreakerStats() map[string]any {
	return map[string]any{
		"question": p.question.Stats(),
		"evaluate": p.evaluate.Stats(),
	}
}

func (p *RemoteProvider) Question(ctx context.Context) (types.InterviewQuestion, error) {
	ctx, span := otel.Tracer("placementprep.interview").Start(ctx, "interview.question")
	defer span.End()

	q, err := p.question.Execute(ctx, func(ctx context.Context) (types.InterviewQuestion, error) {
		var q types.InterviewQuestion
		if err := p.do(ctx, http.MethodGet, "/api/question", nil, &q); err != nil {
			return types.InterviewQuestion{}, err
		}
		return q, nil
	})
	if err == nil && strings.TrimSpace(q.Question) == "" {
		err = appErrors.NewValidationError(appErrors.ErrCodeInvalidResponse, "interview service returned an empty question", nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return types.InterviewQuestion{}, appErrors.NewNetworkError(appErrors.ErrCodeRemoteFailed, "Failed to fetch interview question", err)
	}
	return q, nil
}

func (p *RemoteProvider) Evaluate(ctx context.Context, question, answer string) (types.AnswerEvaluation, error) {
	ctx, span := otel.Tracer("placementprep.interview").Start(ctx, "interview.evaluate")
	defer span.End()

	payload := map[string]string{"question": question, "answer": answer}
	eval, err := p.evaluate.Execute(ctx, func(ctx context.Context) (types.AnswerEvaluation, error) {
		var decoded struct {
			Score    *types.Percentage `json:"score"`
			Feedback string            `json:"feedback"`
		}
		if err := p.do(ctx, http.MethodPost, "/api/evaluate", payload, &decoded); err != nil {
			return types.AnswerEvaluation{}, err
		}
		if decoded.Score == nil {
			return types.AnswerEvaluation{}, appErrors.NewValidationError(appErrors.ErrCodeInvalidResponse,
				"evaluator response has no score", nil)
		}
		return types.AnswerEvaluation{Score: *decoded.Score, Feedback: decoded.Feedback}, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return types.AnswerEvaluation{}, appErrors.NewNetworkError(appErrors.ErrCodeRemoteFailed, "Failed to evaluate answer", err)
	}
	return eval, nil
}

func (p *RemoteProvider) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resilience.NewStatusError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return appErrors.NewValidationError(appErrors.ErrCodeInvalidResponse,
			fmt.Sprintf("interview service returned an invalid %s response", path), err)
	}
	return nil
}

// GeminiProvider generates and grades questions with Gemini
type GeminiProvider struct {
	question ai.AIProvider
	evaluate ai.AIProvider
}

// NewGeminiProvider pairs the question and evaluate AI providers
func NewGeminiProvider(question, evaluate ai.AIProvider) *GeminiProvider {
	return &GeminiProvider{question: question, evaluate: evaluate}
}

func (p *GeminiProvider) Name() string { return ModeGemini }

// SetObserver reports every Gemini call outcome to observer
func (p *GeminiProvider) SetObserver(observer resilience.Observer) {
	p.question.SetObserver(observer)
	p.evaluate.SetObserver(observer)
}

// CircuitBreakerStats returns breaker statistics per operation
func (p *GeminiProvider) CircuitBreakerStats() map[string]any {
	return map[string]any{
		"question": p.question.GetCircuitBreakerStats(),
		"evaluate": p.evaluate.GetCircuitBreakerStats(),
	}
}

// Models reports availability of the question and evaluate models
func (p *GeminiProvider) Models(ctx context.Context) map[string]*ai.ModelInfo {
	return map[string]*ai.ModelInfo{
		ai.OperationQuestion: p.question.GetModelInfo(ctx),
		ai.OperationEvaluate: p.evaluate.GetModelInfo(ctx),
	}
}

func (p *GeminiProvider) Question(ctx context.Context) (types.InterviewQuestion, error) {
	q, _, err := p.question.GenerateQuestion(ctx)
	return q, err
}

func (p *GeminiProvider) Evaluate(ctx context.Context, question, answer string) (types.AnswerEvaluation, error) {
	eval, _, err := p.evaluate.EvaluateAnswer(ctx, question, answer)
	return eval, err
}
