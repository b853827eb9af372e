package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// promptField pairs an inline prompt with the file it may be loaded from
type promptField struct {
	scope     string
	kind      string
	operation string
	inline    *string
	file      string
}

// loadPromptsFromFiles replaces inline prompts with file contents where a file path is set
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	loaded := 0
	for _, f := range c.promptFields() {
		if f.file == "" {
			continue
		}
		content, err := loadPromptFromFile(f.file, f.kind, f.operation)
		if err != nil {
			return fmt.Errorf("failed to load %s %s prompts: %w", f.scope, f.kind, err)
		}
		*f.inline = content
		loaded++
		log.Printf("[CONFIG] %s %s %s prompt: loaded from file", f.scope, f.kind, f.operation)
	}

	if loaded == 0 {
		log.Println("[CONFIG] No custom prompt files configured - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded from files: %d", loaded)
	}
	return nil
}

func (c *Config) promptFields() []promptField {
	var fields []promptField
	add := func(scope string, prompts *PromptConfig) {
		for _, set := range []struct {
			kind string
			p    *PromptSet
		}{
			{"system", &prompts.SystemPrompts},
			{"user", &prompts.UserPrompts},
		} {
			fields = append(fields,
				promptField{scope, set.kind, "scoreResume", &set.p.ScoreResume, set.p.ScoreResumeFile},
				promptField{scope, set.kind, "generateQuestion", &set.p.GenerateQuestion, set.p.GenerateQuestionFile},
				promptField{scope, set.kind, "evaluateAnswer", &set.p.EvaluateAnswer, set.p.EvaluateAnswerFile},
			)
		}
	}

	add("global", &c.AI.CustomPrompts)
	add("score", &c.AI.Score.CustomPrompts)
	add("question", &c.AI.Question.CustomPrompts)
	add("evaluate", &c.AI.Evaluate.CustomPrompts)
	return fields
}

// loadPromptFromFile reads one prompt file, rejecting missing or blank files
func loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmedContent))

	return trimmedContent, nil
}
