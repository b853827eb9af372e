package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"placementprep/internal/config"
	appErrors "placementprep/internal/errors"
	"placementprep/internal/resilience"
	"placementprep/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const modelCheckTimeout = 10 * time.Second

// GeminiProvider runs one AI operation (score, question or evaluate) against Google Gemini
type GeminiProvider struct {
	client       *genai.Client
	config       *config.OperationAIConfig
	operation    string
	executor     *resilience.Executor[*genai.GenerateContentResponse]
	modelBreaker *resilience.Breaker[*genai.Model]
	logger       *appErrors.Logger
}

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operationType string, logger *appErrors.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeMissingAPIKey,
			"Gemini API key is not configured", nil)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return newGeminiProvider(client, cfg, operationType, logger), nil
}

func newGeminiProvider(client *genai.Client, cfg *config.OperationAIConfig, operationType string, logger *appErrors.Logger) *GeminiProvider {
	logger.Debug("Initializing Gemini provider",
		"operation_type", operationType,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	policy := resilience.Policy{
		MaxRetries: *cfg.MaxRetries,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Retryable:  isRetryableError,
	}

	return &GeminiProvider{
		client:       client,
		config:       cfg,
		operation:    operationType,
		executor:     resilience.NewExecutor[*genai.GenerateContentResponse]("gemini", operationType, *cfg.Timeout, policy, cfg.CircuitBreaker, logger),
		modelBreaker: resilience.NewBreaker[*genai.Model]("gemini-model-"+operationType, cfg.CircuitBreaker, logger),
		logger:       logger,
	}
}

// SetObserver reports every Gemini call outcome to observer
func (g *GeminiProvider) SetObserver(observer resilience.Observer) {
	g.executor.Observer = observer
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{Name: g.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"operation", g.operation,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return retryableStatus(genaiErr.Code)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}

	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// executeAIOperation runs one generate call with tracing, breaker, retries and JSON decoding
func executeAIOperation[Out any](
	ctx context.Context,
	g *GeminiProvider,
	contents []*genai.Content,
	systemPrompt string,
	genaiConfig *genai.GenerateContentConfig,
	spanAttributes ...attribute.KeyValue,
) (Out, *TokenUsage, error) {
	var output Out
	tracer := otel.Tracer("placementprep.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+g.operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	if *g.config.UseSystemPrompts && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	result, err := g.executor.Execute(ctx, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, g.config.Model, contents, genaiConfig)
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed, "Failed to generate content for "+g.operation, err)
	}

	if err := json.Unmarshal([]byte(result.Text()), &output); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, appErrors.NewAIError(appErrors.ErrCodeInvalidResponse, "Failed to parse AI response for "+g.operation, err)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return output, tokenUsage, nil
}

// ScoreResume matches a resume document against a job description
func (g *GeminiProvider) ScoreResume(ctx context.Context, upload types.ResumeUpload) (types.ScoreResult, *TokenUsage, error) {
	resumePart, err := resumeContentPart(upload.FileName, upload.Content)
	if err != nil {
		return types.ScoreResult{}, nil, err
	}

	systemPrompt := resolvePrompt(g.config.CustomPrompts.SystemPrompts.ScoreResume, DefaultSystemPrompts.ScoreResume)
	userPrompt := fmt.Sprintf(resolvePrompt(g.config.CustomPrompts.UserPrompts.ScoreResume, DefaultUserPrompts.ScoreResume), upload.JobDescription)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{resumePart, genai.NewPartFromText(userPrompt)}, genai.RoleUser),
	}

	output, tokenUsage, err := executeAIOperation[types.ScoreResult](
		ctx, g, contents, systemPrompt, g.buildScoreSchema(),
		attribute.Int("input.resume_bytes", len(upload.Content)),
		attribute.Int("input.job_length", len(upload.JobDescription)),
	)
	if err != nil {
		return types.ScoreResult{}, nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Float64("ats.score", float64(output.MatchScore)))
	}

	return output, tokenUsage, nil
}

// GenerateQuestion produces one interview question
func (g *GeminiProvider) GenerateQuestion(ctx context.Context) (types.InterviewQuestion, *TokenUsage, error) {
	systemPrompt := resolvePrompt(g.config.CustomPrompts.SystemPrompts.GenerateQuestion, DefaultSystemPrompts.GenerateQuestion)
	userPrompt := resolvePrompt(g.config.CustomPrompts.UserPrompts.GenerateQuestion, DefaultUserPrompts.GenerateQuestion)

	output, tokenUsage, err := executeAIOperation[types.InterviewQuestion](
		ctx, g, genai.Text(userPrompt), systemPrompt, g.buildQuestionSchema(),
	)
	if err != nil {
		return types.InterviewQuestion{}, nil, err
	}

	output.Question = strings.TrimSpace(output.Question)
	if output.Question == "" {
		return types.InterviewQuestion{}, nil, appErrors.NewAIError(appErrors.ErrCodeInvalidResponse, "AI returned an empty question", nil)
	}
	return output, tokenUsage, nil
}

// EvaluateAnswer grades an answer to question on a 0-100 scale
func (g *GeminiProvider) EvaluateAnswer(ctx context.Context, question, answer string) (types.AnswerEvaluation, *TokenUsage, error) {
	systemPrompt := resolvePrompt(g.config.CustomPrompts.SystemPrompts.EvaluateAnswer, DefaultSystemPrompts.EvaluateAnswer)
	userPrompt := fmt.Sprintf(resolvePrompt(g.config.CustomPrompts.UserPrompts.EvaluateAnswer, DefaultUserPrompts.EvaluateAnswer), question, answer)

	output, tokenUsage, err := executeAIOperation[types.AnswerEvaluation](
		ctx, g, genai.Text(userPrompt), systemPrompt, g.buildEvaluateSchema(),
		attribute.Int("input.answer_length", len(answer)),
	)
	if err != nil {
		return types.AnswerEvaluation{}, nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Float64("answer.score", float64(output.Score)))
	}

	return output, tokenUsage, nil
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.executor.Stats(),
		"model_operations": g.modelBreaker.GetStats(),
		"overall_healthy":  g.IsHealthy(),
	}
}

// IsHealthy reports whether both breakers admit calls
func (g *GeminiProvider) IsHealthy() bool {
	return g.executor.IsHealthy() && g.modelBreaker.IsHealthy()
}

// Close releases provider resources
func (g *GeminiProvider) Close() error {
	// The genai client holds no connections outside of individual calls
	return nil
}

func (g *GeminiProvider) withTemperature(cfg *genai.GenerateContentConfig) *genai.GenerateContentConfig {
	if *g.config.Temperature > 0 {
		cfg.Temperature = g.config.Temperature
	}
	return cfg
}

func (g *GeminiProvider) buildScoreSchema() *genai.GenerateContentConfig {
	return g.withTemperature(&genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"match_score": {Type: genai.TypeInteger},
				"missing_keywords": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
				"improvement_tips": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
			},
			Required: []string{"match_score", "missing_keywords", "improvement_tips"},
		},
	})
}

func (g *GeminiProvider) buildQuestionSchema() *genai.GenerateContentConfig {
	return g.withTemperature(&genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"question": {Type: genai.TypeString},
			},
			Required: []string{"question"},
		},
	})
}

func (g *GeminiProvider) buildEvaluateSchema() *genai.GenerateContentConfig {
	return g.withTemperature(&genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"score":    {Type: genai.TypeInteger},
				"feedback": {Type: genai.TypeString},
			},
			Required: []string{"score", "feedback"},
		},
	})
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

// resolvePrompt prefers a configured prompt (inline or loaded from file) over the built-in default
func resolvePrompt(fromConfig, fromDefault string) string {
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
