// Package scorer matches a resume against a job description through a remote ATS
// service, Gemini, or a fixed demo response.
package scorer

import (
	"context"
	"fmt"
	"strings"

	"placementprep/internal/ai"
	"placementprep/internal/config"
	appErrors "placementprep/internal/errors"
	"placementprep/internal/resilience"
	"placementprep/internal/types"
	"placementprep/internal/utils"
)

// User-facing validation messages
const (
	MsgMissingInput    = "Please upload a resume and enter a job description."
	MsgUnsupportedType = "Unsupported file type"
)

// Modes selected by scorer.mode
const (
	ModeRemote = "remote"
	ModeGemini = "gemini"
	ModeDemo   = "demo"
)

// Provider scores one validated upload
type Provider interface {
	Score(ctx context.Context, upload types.ResumeUpload) (types.ScoreResult, error)
	Name() string
}

// Service validates uploads and hands them to the configured provider.
// A provider failure is returned as is; there is no fallback to the demo result.
type Service struct {
	provider          Provider
	allowedExtensions []string
	maxFileSize       int64
	logger            *appErrors.Logger
}

// NewService builds the provider named by cfg.Scorer.Mode
func NewService(cfg *config.Config, logger *appErrors.Logger) (*Service, error) {
	var provider Provider
	switch cfg.Scorer.Mode {
	case ModeRemote:
		remote, err := NewRemoteProvider(cfg.Scorer, logger)
		if err != nil {
			return nil, err
		}
		provider = remote
	case ModeGemini:
		svc, err := ai.NewServiceForOperation(cfg, ai.OperationScore, logger)
		if err != nil {
			return nil, err
		}
		provider = NewGeminiProvider(svc.Provider)
	case ModeDemo:
		provider = DemoProvider{}
	default:
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported scorer mode: %s", cfg.Scorer.Mode), nil)
	}

	logger.Debug("Resume scorer initialized", "mode", provider.Name())
	return NewServiceWithProvider(provider, cfg.Scorer, logger), nil
}

// NewServiceWithProvider wraps an existing provider with the configured upload limits
func NewServiceWithProvider(provider Provider, cfg config.ScorerConfig, logger *appErrors.Logger) *Service {
	exts := make([]string, 0, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		exts = append(exts, utils.NormalizeExtension(ext))
	}
	return &Service{
		provider:          provider,
		allowedExtensions: exts,
		maxFileSize:       cfg.MaxFileSize,
		logger:            logger,
	}
}

// Models returns model availability when the provider is backed by Gemini, nil otherwise
func (s *Service) Models(ctx context.Context) map[string]*ai.ModelInfo {
	if m, ok := s.provider.(interface {
		Models(context.Context) map[string]*ai.ModelInfo
	}); ok {
		return m.Models(ctx)
	}
	return nil
}

// Mode returns the active provider name
func (s *Service) Mode() string {
	return s.provider.Name()
}

// Validate checks an upload without scoring it
func (s *Service) Validate(upload types.ResumeUpload) error {
	if len(upload.Content) == 0 || strings.TrimSpace(upload.FileName) == "" || strings.TrimSpace(upload.JobDescription) == "" {
		return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, MsgMissingInput, nil)
	}

	ext := utils.GetFileExtension(upload.FileName)
	if len(s.allowedExtensions) > 0 && !utils.HasAllowedExtension(upload.FileName, s.allowedExtensions) {
		return appErrors.NewValidationError(appErrors.ErrCodeUnsupportedFile, MsgUnsupportedType, nil).
			WithContext("extension", ext).
			WithContext("allowed", strings.Join(s.allowedExtensions, ", "))
	}

	if s.maxFileSize > 0 && int64(len(upload.Content)) > s.maxFileSize {
		return appErrors.NewValidationError(appErrors.ErrCodeFileTooLarge,
			fmt.Sprintf("Resume is too large (max %d bytes)", s.maxFileSize), nil).
			WithContext("size", len(upload.Content))
	}

	return nil
}

// Score validates the upload and scores it with the configured provider
func (s *Service) Score(ctx context.Context, upload types.ResumeUpload) (types.ScoreResult, error) {
	if err := s.Validate(upload); err != nil {
		return types.ScoreResult{}, err
	}

	result, err := s.provider.Score(ctx, upload)
	if err != nil {
		s.logger.LogError(err, "Resume scoring failed", "mode", s.provider.Name(), "file_name", upload.FileName)
		return types.ScoreResult{}, err
	}

	s.logger.Info("Resume scored",
		"mode", s.provider.Name(),
		"match_score", float64(result.MatchScore),
		"missing_keywords", len(result.MissingKeywords))
	return result, nil
}

// SetObserver forwards call outcomes to observer when the provider makes remote calls
func (s *Service) SetObserver(observer resilience.Observer) {
	if o, ok := s.provider.(interface{ SetObserver(resilience.Observer) }); ok {
		o.SetObserver(observer)
	}
}

// CircuitBreakerStats returns breaker statistics for providers that have one
func (s *Service) CircuitBreakerStats() map[string]any {
	if o, ok := s.provider.(interface{ CircuitBreakerStats() map[string]any }); ok {
		return o.CircuitBreakerStats()
	}
	return map[string]any{"enabled": false}
}
