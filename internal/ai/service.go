package ai

import (
	"fmt"

	"placementprep/internal/config"
	"placementprep/internal/errors"
)

// Operation names, one provider each
const (
	OperationScore    = "score"
	OperationQuestion = "question"
	OperationEvaluate = "evaluate"
)

// Service binds an AI provider to one operation's configuration
type Service struct {
	Provider  AIProvider
	Operation string
	logger    *errors.Logger
}

// NewService creates a new AI service instance with configuration for a specific operation
func NewService(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*Service, error) {
	var provider AIProvider
	var err error

	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, operationType, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		return nil, err
	}

	return &Service{
		Provider:  provider,
		Operation: operationType,
		logger:    logger,
	}, nil
}

// NewServiceForOperation resolves the operation config from cfg and creates its service
func NewServiceForOperation(cfg *config.Config, operationType string, logger *errors.Logger) (*Service, error) {
	var opCfg config.OperationAIConfig
	switch operationType {
	case OperationScore:
		opCfg = cfg.GetScoreConfig()
	case OperationQuestion:
		opCfg = cfg.GetQuestionConfig()
	case OperationEvaluate:
		opCfg = cfg.GetEvaluateConfig()
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unknown AI operation: %s", operationType), nil)
	}
	return NewService(&opCfg, operationType, logger)
}
