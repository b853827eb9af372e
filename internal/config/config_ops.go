package config

import "time"

// ResolvedJudgeOperation is the effective configuration for one judge endpoint
type ResolvedJudgeOperation struct {
	Name           string
	Timeout        time.Duration
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	CircuitBreaker CircuitBreakerConfig
}

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	// UseSystemPrompts: apply global default only if not explicitly set
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
}

// applyPromptFallbacks fills empty operation prompts from the global set
func applyPromptFallbacks(op *PromptSet, global PromptSet, pick func(*PromptSet) *string) {
	if p := pick(op); *p == "" {
		*p = *pick(&global)
	}
}

func (c *Config) operationConfig(opCfg OperationAIConfig, pick func(*PromptSet) *string) OperationAIConfig {
	config := opCfg
	c.applyOperationDefaults(&config)
	applyPromptFallbacks(&config.CustomPrompts.SystemPrompts, c.AI.CustomPrompts.SystemPrompts, pick)
	applyPromptFallbacks(&config.CustomPrompts.UserPrompts, c.AI.CustomPrompts.UserPrompts, pick)
	return config
}

// GetScoreConfig returns the AI configuration for resume scoring with fallback to global config
func (c *Config) GetScoreConfig() OperationAIConfig {
	return c.operationConfig(c.AI.Score, func(p *PromptSet) *string { return &p.ScoreResume })
}

// GetQuestionConfig returns the AI configuration for interview question generation
func (c *Config) GetQuestionConfig() OperationAIConfig {
	return c.operationConfig(c.AI.Question, func(p *PromptSet) *string { return &p.GenerateQuestion })
}

// GetEvaluateConfig returns the AI configuration for interview answer evaluation
func (c *Config) GetEvaluateConfig() OperationAIConfig {
	return c.operationConfig(c.AI.Evaluate, func(p *PromptSet) *string { return &p.EvaluateAnswer })
}

// GetJudgeOperation resolves the judge settings for "problem", "run" or "submit"
func (c *Config) GetJudgeOperation(name string) ResolvedJudgeOperation {
	var op JudgeOperationConfig
	switch name {
	case "problem":
		op = c.Judge.Problem
	case "run":
		op = c.Judge.Run
	case "submit":
		op = c.Judge.Submit
	}

	resolved := ResolvedJudgeOperation{
		Name:           name,
		Timeout:        c.Judge.Timeout,
		MaxRetries:     c.Judge.MaxRetries,
		BaseDelay:      c.Judge.Retry.BaseDelay,
		MaxDelay:       c.Judge.Retry.MaxDelay,
		CircuitBreaker: op.CircuitBreaker,
	}
	if op.Timeout != nil {
		resolved.Timeout = *op.Timeout
	}
	if op.MaxRetries != nil {
		resolved.MaxRetries = *op.MaxRetries
	}
	return resolved
}
