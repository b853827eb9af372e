package ai

import (
	"context"

	"placementprep/internal/resilience"
	"placementprep/internal/types"
)

// AIProvider interface for different AI implementations.
// All methods return token usage information; callers can ignore it if not needed.
type AIProvider interface {
	ScoreResume(ctx context.Context, upload types.ResumeUpload) (types.ScoreResult, *TokenUsage, error)
	GenerateQuestion(ctx context.Context) (types.InterviewQuestion, *TokenUsage, error)
	EvaluateAnswer(ctx context.Context, question, answer string) (types.AnswerEvaluation, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	GetCircuitBreakerStats() map[string]any
	IsHealthy() bool
	SetObserver(observer resilience.Observer)
	Close() error
}

// Ensure GeminiProvider implements AIProvider
var _ AIProvider = (*GeminiProvider)(nil)
