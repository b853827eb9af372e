package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Judge Configuration - Global defaults
	v.SetDefault("judge.baseUrl", "http://localhost:5000")
	v.SetDefault("judge.apiToken", "")
	v.SetDefault("judge.timeout", 30*time.Second)
	v.SetDefault("judge.maxRetries", 1)
	v.SetDefault("judge.retry.baseDelay", time.Second)
	v.SetDefault("judge.retry.maxDelay", 30*time.Second)

	// Judge Configuration - per endpoint
	v.SetDefault("judge.problem.timeout", 30*time.Second)
	v.SetDefault("judge.problem.maxRetries", 2)
	v.SetDefault("judge.run.timeout", 60*time.Second) // Compilation plus execution
	v.SetDefault("judge.run.maxRetries", 1)
	v.SetDefault("judge.submit.timeout", 120*time.Second) // Full hidden suite
	v.SetDefault("judge.submit.maxRetries", 0)            // Never grade twice by accident

	for _, op := range []string{"problem", "run", "submit"} {
		setCircuitBreakerDefaults(v, "judge."+op+".circuitBreaker")
	}

	// Practice Configuration
	v.SetDefault("practice.defaultLanguage", "java")
	v.SetDefault("practice.defaultDifficulty", "easy")
	v.SetDefault("practice.sessionTTL", 2*time.Hour)
	v.SetDefault("practice.cleanupInterval", 10*time.Minute)

	// Scorer Configuration
	v.SetDefault("scorer.mode", "remote")
	v.SetDefault("scorer.endpoint", "http://localhost:5000/process")
	v.SetDefault("scorer.timeout", 10*time.Second)
	v.SetDefault("scorer.maxRetries", 0)
	v.SetDefault("scorer.allowedExtensions", []string{".pdf", ".docx"})
	v.SetDefault("scorer.maxFileSize", 5*1024*1024) // 5MB
	setCircuitBreakerDefaults(v, "scorer.circuitBreaker")

	// Interview Configuration
	v.SetDefault("interview.mode", "remote")
	v.SetDefault("interview.baseUrl", "http://localhost:5001")
	v.SetDefault("interview.timeout", 30*time.Second)
	v.SetDefault("interview.maxRetries", 1)
	setCircuitBreakerDefaults(v, "interview.circuitBreaker")

	// AI Configuration - Global defaults
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.useSystemPrompts", true)

	// AI Configuration - Score operation defaults
	v.SetDefault("ai.score.provider", "gemini")
	v.SetDefault("ai.score.model", "")
	v.SetDefault("ai.score.timeout", 90*time.Second) // Document parsing takes longer
	v.SetDefault("ai.score.maxRetries", 2)
	v.SetDefault("ai.score.temperature", 0.2) // Consistent scoring
	v.SetDefault("ai.score.useSystemPrompts", true)

	// AI Configuration - Question operation defaults
	v.SetDefault("ai.question.provider", "gemini")
	v.SetDefault("ai.question.model", "")
	v.SetDefault("ai.question.timeout", 30*time.Second)
	v.SetDefault("ai.question.maxRetries", 2)
	v.SetDefault("ai.question.temperature", 0.9) // Variety between rounds
	v.SetDefault("ai.question.useSystemPrompts", true)

	// AI Configuration - Evaluate operation defaults
	v.SetDefault("ai.evaluate.provider", "gemini")
	v.SetDefault("ai.evaluate.model", "")
	v.SetDefault("ai.evaluate.timeout", 60*time.Second)
	v.SetDefault("ai.evaluate.maxRetries", 2)
	v.SetDefault("ai.evaluate.temperature", 0.1) // Very low temperature for grading
	v.SetDefault("ai.evaluate.useSystemPrompts", true)

	for _, op := range []string{"score", "question", "evaluate"} {
		setCircuitBreakerDefaults(v, "ai."+op+".circuitBreaker")
	}

	// Identity Configuration
	v.SetDefault("identity.store", "memory")
	v.SetDefault("identity.databaseUrl", "")
	v.SetDefault("identity.jwtSecret", "")
	v.SetDefault("identity.tokenTTL", 24*time.Hour)
	v.SetDefault("identity.googleClientId", "")
	v.SetDefault("identity.bcryptCost", 10)
	v.SetDefault("identity.minPasswordLength", 6)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 150*time.Second) // Must outlive judge.submit.timeout
	v.SetDefault("server.idleTimeout", 120*time.Second)
	// API Authentication defaults
	v.SetDefault("server.apiKeys", []string{})
	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.idleEviction", 10*time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 6*1024*1024) // 6MB, request bodies carry resumes

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.geminiKey", "")
	v.SetDefault("vault.secrets.judgeToken", "")
	v.SetDefault("vault.secrets.jwtSecret", "")
	v.SetDefault("vault.secrets.databaseUrl", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "placementprep")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.customMetrics.remoteCalls.enabled", true)
	v.SetDefault("observability.customMetrics.remoteCalls.trackDuration", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.healthCheck.timeout", 5*time.Second)
}

func setCircuitBreakerDefaults(v *viper.Viper, prefix string) {
	v.SetDefault(prefix+".enabled", true)
	v.SetDefault(prefix+".maxRequests", 3)
	v.SetDefault(prefix+".interval", 60*time.Second)
	v.SetDefault(prefix+".timeout", 60*time.Second)
	v.SetDefault(prefix+".minRequests", 3)
	v.SetDefault(prefix+".failureThreshold", 0.6)
}
