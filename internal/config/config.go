package config

import (
	"fmt"
	"log"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
// Secret Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (PLACEMENTPREP_JUDGE_APITOKEN, etc.), including a local .env file
// 4. Default values - Lowest priority
type Config struct {
	Judge         JudgeConfig         `mapstructure:"judge"`
	Practice      PracticeConfig      `mapstructure:"practice"`
	Scorer        ScorerConfig        `mapstructure:"scorer"`
	Interview     InterviewConfig     `mapstructure:"interview"`
	AI            AIConfig            `mapstructure:"ai"`
	Identity      IdentityConfig      `mapstructure:"identity"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// RetryConfig controls exponential backoff between attempts
type RetryConfig struct {
	BaseDelay time.Duration `mapstructure:"baseDelay"`
	MaxDelay  time.Duration `mapstructure:"maxDelay"`
}

// JudgeConfig holds the external code judge connection settings
type JudgeConfig struct {
	BaseURL    string        `mapstructure:"baseUrl"`
	APIToken   string        `mapstructure:"apiToken"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"maxRetries"`
	Retry      RetryConfig   `mapstructure:"retry"`

	// Operation-specific configurations
	Problem JudgeOperationConfig `mapstructure:"problem"`
	Run     JudgeOperationConfig `mapstructure:"run"`
	Submit  JudgeOperationConfig `mapstructure:"submit"`
}

// JudgeOperationConfig overrides judge settings for one endpoint
type JudgeOperationConfig struct {
	Timeout        *time.Duration       `mapstructure:"timeout"`
	MaxRetries     *int                 `mapstructure:"maxRetries"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PracticeConfig holds coding-practice session settings
type PracticeConfig struct {
	DefaultLanguage   string        `mapstructure:"defaultLanguage"`
	DefaultDifficulty string        `mapstructure:"defaultDifficulty"`
	SessionTTL        time.Duration `mapstructure:"sessionTTL"`
	CleanupInterval   time.Duration `mapstructure:"cleanupInterval"`
}

// ScorerConfig holds resume scorer settings
type ScorerConfig struct {
	Mode              string               `mapstructure:"mode"` // remote, gemini or demo
	Endpoint          string               `mapstructure:"endpoint"`
	Timeout           time.Duration        `mapstructure:"timeout"`
	MaxRetries        int                  `mapstructure:"maxRetries"`
	AllowedExtensions []string             `mapstructure:"allowedExtensions"`
	MaxFileSize       int64                `mapstructure:"maxFileSize"`
	CircuitBreaker    CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// InterviewConfig holds interview Q&A provider settings
type InterviewConfig struct {
	Mode           string               `mapstructure:"mode"` // remote or gemini
	BaseURL        string               `mapstructure:"baseUrl"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	MaxRetries     int                  `mapstructure:"maxRetries"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// AIConfig holds Gemini configuration shared by the gemini scorer and interview providers
type AIConfig struct {
	// Global/fallback configuration
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	APIKey           string        `mapstructure:"apiKey"`
	MaxRetries       int           `mapstructure:"maxRetries"`
	Temperature      float32       `mapstructure:"temperature"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig  `mapstructure:"customPrompts"`

	// Operation-specific configurations
	Score    OperationAIConfig `mapstructure:"score"`
	Question OperationAIConfig `mapstructure:"question"`
	Evaluate OperationAIConfig `mapstructure:"evaluate"`
}

// OperationAIConfig holds AI configuration for specific operations
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig holds configuration for customizable prompts
type PromptConfig struct {
	SystemPrompts PromptSet `mapstructure:"systemPrompts"`
	UserPrompts   PromptSet `mapstructure:"userPrompts"`
}

// PromptSet holds one prompt per AI operation, inline or by file path
type PromptSet struct {
	ScoreResume          string `mapstructure:"scoreResume"`
	ScoreResumeFile      string `mapstructure:"scoreResumeFile"`
	GenerateQuestion     string `mapstructure:"generateQuestion"`
	GenerateQuestionFile string `mapstructure:"generateQuestionFile"`
	EvaluateAnswer       string `mapstructure:"evaluateAnswer"`
	EvaluateAnswerFile   string `mapstructure:"evaluateAnswerFile"`
}

// IdentityConfig holds account, profile and session token settings
type IdentityConfig struct {
	Store          string        `mapstructure:"store"` // memory or postgres
	DatabaseURL    string        `mapstructure:"databaseUrl"`
	JWTSecret      string        `mapstructure:"jwtSecret"`
	TokenTTL       time.Duration `mapstructure:"tokenTTL"`
	GoogleClientID string        `mapstructure:"googleClientId"`
	BcryptCost     int           `mapstructure:"bcryptCost"`
	MinPassword    int           `mapstructure:"minPasswordLength"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool          `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
	IdleEviction   time.Duration `mapstructure:"idleEviction"`   // Drop limiters unused for this long
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	RemoteCalls     RemoteCallMetricsConfig     `mapstructure:"remoteCalls"`
	BusinessMetrics BusinessMetricsConfig       `mapstructure:"businessMetrics"`
	Infrastructure  InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// RemoteCallMetricsConfig holds judge/scorer/interview/gemini call metrics configuration
type RemoteCallMetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	TrackDuration bool `mapstructure:"trackDuration"`
}

// BusinessMetricsConfig holds business metrics configuration
type BusinessMetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

var (
	activeMu    sync.Mutex
	activeViper *viper.Viper
)

// LoadConfig loads configuration from a .env file, environment variables and a config file
func LoadConfig() (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	// A missing .env is normal outside local development
	if err := godotenv.Load(); err == nil {
		log.Println("[CONFIG] Loaded environment overrides from .env")
	}

	v := newViper()

	// Read the config file
	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	config, err := decode(v)
	if err != nil {
		return nil, err
	}

	// Log configuration sources summary
	config.logConfigurationSources(configFileUsed)

	activeMu.Lock()
	activeViper = v
	activeMu.Unlock()

	log.Println("[CONFIG] Configuration loading completed successfully")
	return config, nil
}

// newViper builds a viper instance with defaults, env handling and search paths
func newViper() *viper.Viper {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PLACEMENTPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/placementprep/")
	v.AddConfigPath("$HOME/.placementprep")
	v.AddConfigPath(".")

	return v
}

// decode unmarshals, completes and validates a configuration snapshot
func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()

	if err := config.loadPromptsFromFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validateURL("judge.baseUrl", c.Judge.BaseURL); err != nil {
		return err
	}
	if c.Judge.Timeout <= 0 {
		return fmt.Errorf("judge timeout must be positive")
	}

	switch c.Practice.DefaultLanguage {
	case "java", "cpp", "python":
	default:
		return fmt.Errorf("invalid practice.defaultLanguage: %s (must be java, cpp or python)", c.Practice.DefaultLanguage)
	}

	switch c.Scorer.Mode {
	case "remote":
		if err := validateURL("scorer.endpoint", c.Scorer.Endpoint); err != nil {
			return err
		}
	case "gemini", "demo":
	default:
		return fmt.Errorf("invalid scorer.mode: %s (must be remote, gemini or demo)", c.Scorer.Mode)
	}
	if c.Scorer.Timeout <= 0 {
		return fmt.Errorf("scorer timeout must be positive")
	}

	switch c.Interview.Mode {
	case "remote":
		if err := validateURL("interview.baseUrl", c.Interview.BaseURL); err != nil {
			return err
		}
	case "gemini":
	default:
		return fmt.Errorf("invalid interview.mode: %s (must be remote or gemini)", c.Interview.Mode)
	}

	switch c.Identity.Store {
	case "memory":
	case "postgres":
		if c.Identity.DatabaseURL == "" {
			return fmt.Errorf("identity.databaseUrl is required for the postgres store")
		}
	default:
		return fmt.Errorf("invalid identity.store: %s (must be memory or postgres)", c.Identity.Store)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	return nil
}

// ValidateSecrets checks secrets that may only arrive from Vault
func (c *Config) ValidateSecrets() error {
	if c.UsesGemini() && c.AI.APIKey == "" {
		return fmt.Errorf("AI API key is required when gemini mode is selected (set PLACEMENTPREP_AI_APIKEY environment variable)")
	}
	if c.Identity.JWTSecret == "" {
		return fmt.Errorf("identity JWT secret is required")
	}
	return nil
}

// UsesGemini reports whether any provider is configured to call Gemini
func (c *Config) UsesGemini() bool {
	return c.Scorer.Mode == "gemini" || c.Interview.Mode == "gemini"
}

func validateURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL: %q", key, raw)
	}
	return nil
}
