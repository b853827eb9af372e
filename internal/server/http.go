package server

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"placementprep/internal/config"
	appErrors "placementprep/internal/errors"
	"placementprep/internal/identity"
	"placementprep/internal/interview"
	"placementprep/internal/judge"
	"placementprep/internal/observability"
	"placementprep/internal/practice"
	"placementprep/internal/resilience"
	"placementprep/internal/scorer"
	"placementprep/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// LanguageRequest is the body of PUT /practice/sessions/{id}/language
type LanguageRequest struct {
	Language string `json:"language"`
}

// CodeRequest is the body of PUT /practice/sessions/{id}/code
type CodeRequest struct {
	Code string `json:"code"`
}

// ProblemRequest is the optional body of POST /practice/sessions/{id}/problem
type ProblemRequest struct {
	Difficulty string `json:"difficulty"`
	ForceNew   bool   `json:"forceNew"`
}

// EvaluateRequest is the body of POST /interview/evaluate
type EvaluateRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleLoginRequest is the body of POST /auth/google
type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

// Judge is the judge client surface used by the server
type Judge interface {
	practice.Judge
	Status(ctx context.Context, timeout time.Duration) judge.Status
	CircuitBreakerStats() map[string]any
	IsHealthy() bool
}

// Services are the domain components behind the routes
type Services struct {
	Judge     Judge
	Practice  *practice.Store
	Scorer    *scorer.Service
	Interview interview.Provider
	Identity  *identity.Service
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Logger *appErrors.Logger

	appConfig atomic.Pointer[config.Config]
	scorer    atomic.Pointer[scorer.Service]
	services  Services
	om        *observability.ObservabilityManager
	started   time.Time
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// ServerConfigFrom maps the loaded configuration onto a ServerConfig
func ServerConfigFrom(cfg *config.Config, version string) ServerConfig {
	rateLimit := cfg.Server.RateLimit
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize,
		RateLimit:      &rateLimit,
	}
}

// NewServer creates a new Server instance. om may be nil.
func NewServer(appCfg *config.Config, cfg ServerConfig, services Services, om *observability.ObservabilityManager, logger *appErrors.Logger) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			cfg.RateLimit.IdleEviction,
			logger,
		)
	}

	s := &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
		services:       services,
		om:             om,
		started:        time.Now(),
	}
	s.appConfig.Store(appCfg)
	if services.Scorer != nil {
		s.setScorer(services.Scorer)
	}
	if services.Judge != nil {
		if j, ok := services.Judge.(interface{ SetObserver(resilience.Observer) }); ok {
			j.SetObserver(om.RemoteCallObserver("judge"))
		}
	}
	if p, ok := services.Interview.(interface{ SetObserver(resilience.Observer) }); ok {
		p.SetObserver(om.RemoteCallObserver("interview"))
	}
	return s
}

// BuildServices wires the domain components from cfg. Practice sessions report
// test runs and submissions as business metrics.
func BuildServices(ctx context.Context, cfg *config.Config, om *observability.ObservabilityManager, logger *appErrors.Logger) (Services, error) {
	judgeClient, err := judge.NewClient(cfg, logger)
	if err != nil {
		return Services{}, err
	}

	scorerSvc, err := scorer.NewService(cfg, logger)
	if err != nil {
		return Services{}, err
	}

	interviewProvider, err := interview.NewProvider(cfg, logger)
	if err != nil {
		return Services{}, err
	}

	identitySvc, err := identity.NewService(ctx, cfg, logger)
	if err != nil {
		return Services{}, err
	}

	lang, err := types.ParseLanguage(cfg.Practice.DefaultLanguage)
	if err != nil {
		return Services{}, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig,
			fmt.Sprintf("invalid practice.defaultLanguage: %s", cfg.Practice.DefaultLanguage), err)
	}

	store := practice.NewStore(judgeClient, practice.Options{
		DefaultDifficulty: cfg.Practice.DefaultDifficulty,
		Language:          lang,
		Logger:            logger,
		Hooks: practice.Hooks{
			TestRun: func(ctx context.Context, lang types.Language, passed bool) {
				om.RecordBusinessMetric(ctx, observability.MetricTestRun, passed, attribute.String("language", string(lang)))
			},
			Submission: func(ctx context.Context, lang types.Language, success bool) {
				om.RecordBusinessMetric(ctx, observability.MetricSubmission, success, attribute.String("language", string(lang)))
			},
		},
	}, cfg.Practice.SessionTTL, cfg.Practice.CleanupInterval)

	return Services{
		Judge:     judgeClient,
		Practice:  store,
		Scorer:    scorerSvc,
		Interview: interviewProvider,
		Identity:  identitySvc,
	}, nil
}

// Config returns the active configuration snapshot
func (s *Server) Config() *config.Config {
	return s.appConfig.Load()
}

func (s *Server) currentScorer() *scorer.Service {
	return s.scorer.Load()
}

func (s *Server) setScorer(svc *scorer.Service) {
	svc.SetObserver(s.om.RemoteCallObserver("scorer"))
	s.scorer.Store(svc)
}
