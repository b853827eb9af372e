package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyAIKeyFallbacks()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("PLACEMENTPREP_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
}

// applyAIKeyFallbacks honours the conventional GEMINI_API_KEY variable
func (c *Config) applyAIKeyFallbacks() {
	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// EnsureJWTSecret generates a process-lifetime signing secret when none was configured.
// It reports whether a secret was generated.
func (c *Config) EnsureJWTSecret() (bool, error) {
	if c.Identity.JWTSecret != "" {
		return false, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return false, fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	c.Identity.JWTSecret = hex.EncodeToString(buf)
	return true, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	// Try to get hostname, fallback to default
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// isSensitiveEnv reports whether an environment variable name holds a secret
func isSensitiveEnv(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"key", "token", "secret", "databaseurl"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"PLACEMENTPREP_JUDGE_BASEURL",
		"PLACEMENTPREP_JUDGE_APITOKEN",
		"PLACEMENTPREP_SCORER_MODE",
		"PLACEMENTPREP_SCORER_ENDPOINT",
		"PLACEMENTPREP_INTERVIEW_MODE",
		"PLACEMENTPREP_INTERVIEW_BASEURL",
		"PLACEMENTPREP_AI_APIKEY",
		"PLACEMENTPREP_AI_MODEL",
		"PLACEMENTPREP_IDENTITY_STORE",
		"PLACEMENTPREP_IDENTITY_DATABASEURL",
		"PLACEMENTPREP_IDENTITY_JWTSECRET",
		"PLACEMENTPREP_SERVER_PORT",
		"PLACEMENTPREP_SERVER_HOST",
		"PLACEMENTPREP_APP_LOGLEVEL",
		"PLACEMENTPREP_VAULT_ENABLED",
		"GEMINI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if isSensitiveEnv(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Judge: %s", c.Judge.BaseURL)
	log.Printf("[CONFIG] Scorer Mode: %s", c.Scorer.Mode)
	log.Printf("[CONFIG] Interview Mode: %s", c.Interview.Mode)
	log.Printf("[CONFIG] Identity Store: %s", c.Identity.Store)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Server: %s:%s", c.Server.Host, c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	log.Println("[CONFIG] === Judge Operations ===")
	for _, name := range []string{"problem", "run", "submit"} {
		op := c.GetJudgeOperation(name)
		log.Printf("[CONFIG] %s - Timeout: %s, Retries: %d, Breaker: %t", name, op.Timeout, op.MaxRetries, op.CircuitBreaker.Enabled)
	}

	log.Println("[CONFIG] =====================================")
}

// CarrySecrets copies secrets that only arrive at startup (Vault, generated JWT secret)
// from prev into a freshly reloaded snapshot.
func (c *Config) CarrySecrets(prev *Config) {
	if prev == nil {
		return
	}
	if len(c.Server.APIKeys) == 0 {
		c.Server.APIKeys = prev.Server.APIKeys
	}
	if c.AI.APIKey == "" {
		c.AI.APIKey = prev.AI.APIKey
	}
	if c.Judge.APIToken == "" {
		c.Judge.APIToken = prev.Judge.APIToken
	}
	if c.Identity.JWTSecret == "" {
		c.Identity.JWTSecret = prev.Identity.JWTSecret
	}
	if c.Identity.DatabaseURL == "" {
		c.Identity.DatabaseURL = prev.Identity.DatabaseURL
	}
}
