package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"placementprep/internal/config"
	appErrors "placementprep/internal/errors"
	"placementprep/internal/resilience"
	"placementprep/internal/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const maxResponseBytes = 4 << 20

// ProblemQuery selects the next problem
type ProblemQuery struct {
	Difficulty string
	ForceNew   bool
	CurrentID  string
}

// RunRequest asks the judge to run code against one example
type RunRequest struct {
	Language types.Language `json:"language"`
	Code     string         `json:"code"`
	TestCase types.Example  `json:"test_case"`
}

// SubmitRequest asks the judge to grade code against the full suite
type SubmitRequest struct {
	QuestionDescription string          `json:"question_description"`
	Examples            []types.Example `json:"examples"`
	Language            types.Language  `json:"language"`
	Code                string          `json:"code"`
}

// Status is the judge health report
type Status struct {
	Status    string `json:"status"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Client talks to the external code judge
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	logger     *appErrors.Logger

	problem *resilience.Executor[*types.Problem]
	run     *resilience.Executor[*types.TestRunResult]
	submit  *resilience.Executor[*types.SubmissionResult]
}

// NewClient creates a judge client with per-endpoint timeouts, retries and circuit breakers
func NewClient(cfg *config.Config, logger *appErrors.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.Judge.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig,
			fmt.Sprintf("invalid judge base URL %q", cfg.Judge.BaseURL), err)
	}

	c := &Client{
		baseURL: base,
		token:   cfg.Judge.APIToken,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
	c.problem = newExecutor[*types.Problem](cfg, "problem", logger)
	c.run = newExecutor[*types.TestRunResult](cfg, "run", logger)
	c.submit = newExecutor[*types.SubmissionResult](cfg, "submit", logger)
	return c, nil
}

func newExecutor[T any](cfg *config.Config, name string, logger *appErrors.Logger) *resilience.Executor[T] {
	op := cfg.GetJudgeOperation(name)
	policy := resilience.Policy{
		MaxRetries: op.MaxRetries,
		BaseDelay:  op.BaseDelay,
		MaxDelay:   op.MaxDelay,
	}
	return resilience.NewExecutor[T]("judge", name, op.Timeout, policy, op.CircuitBreaker, logger)
}

// SetObserver reports every judge call outcome to observer
func (c *Client) SetObserver(observer resilience.Observer) {
	c.problem.Observer = observer
	c.run.Observer = observer
	c.submit.Observer = observer
}

// FetchProblem gets a problem of the requested difficulty
func (c *Client) FetchProblem(ctx context.Context, q ProblemQuery) (*types.Problem, error) {
	params := url.Values{}
	if q.Difficulty != "" {
		params.Set("difficulty", q.Difficulty)
	}
	if q.ForceNew {
		params.Set("force_new", strconv.FormatBool(true))
	}
	if q.CurrentID != "" {
		params.Set("current_id", q.CurrentID)
	}

	return traced(ctx, "judge.fetch_problem", c.problem, func(ctx context.Context) (*types.Problem, error) {
		var problem types.Problem
		if err := c.do(ctx, http.MethodGet, "/get_question", params, nil, &problem); err != nil {
			return nil, err
		}
		if len(problem.Examples) == 0 && problem.Title == "" {
			return nil, appErrors.NewJudgeError(appErrors.ErrCodeInvalidResponse, "judge returned an empty problem", nil)
		}
		return &problem, nil
	}, attribute.String("judge.difficulty", q.Difficulty))
}

// RunTestCase runs code against a single example
func (c *Client) RunTestCase(ctx context.Context, req RunRequest) (*types.TestRunResult, error) {
	return traced(ctx, "judge.run_test_case", c.run, func(ctx context.Context) (*types.TestRunResult, error) {
		var result types.TestRunResult
		if err := c.do(ctx, http.MethodPost, "/run_test_case", nil, req, &result); err != nil {
			return nil, err
		}
		return &result, nil
	}, attribute.String("judge.language", string(req.Language)), attribute.Int("judge.code_length", len(req.Code)))
}

// SubmitSolution grades code against the full suite
func (c *Client) SubmitSolution(ctx context.Context, req SubmitRequest) (*types.SubmissionResult, error) {
	return traced(ctx, "judge.submit_solution", c.submit, func(ctx context.Context) (*types.SubmissionResult, error) {
		var result types.SubmissionResult
		if err := c.do(ctx, http.MethodPost, "/submit_solution", nil, req, &result); err != nil {
			return nil, err
		}
		return &result, nil
	}, attribute.String("judge.language", string(req.Language)), attribute.Int("judge.examples", len(req.Examples)))
}

// Status checks judge availability; it never returns an error
func (c *Client) Status(ctx context.Context, timeout time.Duration) Status {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var status Status
	if err := c.do(ctx, http.MethodGet, "/status", nil, nil, &status); err != nil {
		c.logger.Warn("Judge status check failed", "error", err.Error())
		return Status{Status: "unreachable", Error: err.Error()}
	}
	status.Available = true
	if status.Status == "" {
		status.Status = "ok"
	}
	return status
}

// CircuitBreakerStats returns breaker statistics keyed by operation
func (c *Client) CircuitBreakerStats() map[string]any {
	return map[string]any{
		"problem": c.problem.Stats(),
		"run":     c.run.Stats(),
		"submit":  c.submit.Stats(),
	}
}

// IsHealthy reports whether every judge breaker admits calls
func (c *Client) IsHealthy() bool {
	return c.problem.IsHealthy() && c.run.IsHealthy() && c.submit.IsHealthy()
}

func traced[T any](ctx context.Context, spanName string, exec *resilience.Executor[T], fn func(context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	ctx, span := otel.Tracer("placementprep.judge").Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attrs...)

	result, err := exec.Execute(ctx, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("success", false))
		return result, err
	}
	span.SetAttributes(attribute.Bool("success", true))
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL.JoinPath(path)
	endpoint.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return appErrors.NewInternalError(appErrors.ErrCodeInvalidRequest, "failed to encode judge request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return appErrors.NewInternalError(appErrors.ErrCodeInvalidRequest, "failed to build judge request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("Calling judge", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
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
		return appErrors.NewJudgeError(appErrors.ErrCodeInvalidResponse,
			fmt.Sprintf("judge returned an invalid %s response", path), err)
	}
	return nil
}
