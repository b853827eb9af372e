package config

import (
	"fmt"
	"os"
	"strings"

	"placementprep/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets holds KVv2 read paths. Empty paths are skipped.
type VaultSecrets struct {
	APIKeys     string `mapstructure:"apiKeys"`     // "keys", comma separated
	GeminiKey   string `mapstructure:"geminiKey"`   // "api_key"
	JudgeToken  string `mapstructure:"judgeToken"`  // "token"
	JWTSecret   string `mapstructure:"jwtSecret"`   // "secret"
	DatabaseURL string `mapstructure:"databaseUrl"` // "url"
}

// VaultClient reads KVv2 secrets
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// NewVaultClient connects to Vault and checks its health
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	apiConfig := api.DefaultConfig()
	if config.Address != "" {
		apiConfig.Address = config.Address
	}
	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	logger.Info("Connected to Vault",
		"address", apiConfig.Address,
		"version", health.Version,
		"sealed", health.Sealed)

	return &VaultClient{client: client, logger: logger}, nil
}

// resolveVaultToken prefers the configured token and falls back to the token file
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token
	if token == "" && config.TokenFile != "" {
		raw, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// GetString reads key from the KVv2 secret at path
func (vc *VaultClient) GetString(path, key string) (string, error) {
	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("secret not found at path: %s", path)
	}
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return "", fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}

	value, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	vc.logger.Debug("Secret read from Vault", "path", path, "key", key, "masked_value", maskSecret(s))
	return s, nil
}

func maskSecret(s string) string {
	if len(s) > 8 {
		return s[:4] + "****" + s[len(s)-4:]
	}
	if s != "" {
		return "****"
	}
	return ""
}

// vaultSecret binds one Vault path and key to the config fields it fills
type vaultSecret struct {
	name  string
	path  string
	key   string
	apply func(cfg *Config, value string)
}

func vaultSecretsFor(cfg *Config) []vaultSecret {
	paths := cfg.Vault.Secrets
	return []vaultSecret{
		{"API keys", paths.APIKeys, "keys", func(c *Config, v string) {
			if keys := splitAndTrim(v); len(keys) > 0 {
				c.Server.APIKeys = keys
			}
		}},
		{"Gemini API key", paths.GeminiKey, "api_key", applyGeminiKeyToConfig},
		{"judge token", paths.JudgeToken, "token", func(c *Config, v string) { c.Judge.APIToken = v }},
		{"JWT secret", paths.JWTSecret, "secret", func(c *Config, v string) { c.Identity.JWTSecret = v }},
		{"database URL", paths.DatabaseURL, "url", func(c *Config, v string) { c.Identity.DatabaseURL = v }},
	}
}

// ApplyVaultSecrets overwrites config secrets with the values stored in Vault.
// An empty value in Vault leaves the config value untouched.
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		logger.LogError(err, "Failed to initialize Vault client")
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}

	loaded := 0
	for _, s := range vaultSecretsFor(config) {
		if s.path == "" {
			continue
		}
		value, err := client.GetString(s.path, s.key)
		if err != nil {
			logger.LogError(err, "Failed to load secret from Vault", "secret", s.name, "path", s.path)
			return fmt.Errorf("failed to load %s from vault: %w", s.name, err)
		}
		if value == "" {
			logger.Warn("Empty secret found in Vault", "secret", s.name, "path", s.path)
			continue
		}
		s.apply(config, value)
		loaded++
	}

	logger.Info("Secrets applied from Vault", "count", loaded)
	return nil
}

// applyGeminiKeyToConfig sets the global key and every operation key that is still empty
func applyGeminiKeyToConfig(config *Config, geminiKey string) {
	config.AI.APIKey = geminiKey
	for _, op := range []*OperationAIConfig{&config.AI.Score, &config.AI.Question, &config.AI.Evaluate} {
		if op.APIKey == "" {
			op.APIKey = geminiKey
		}
	}
}
