package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"basegraph.app/convene/core/db"
)

type Config struct {
	OTel        OTelConfig
	LLM         LLMConfig
	Calendar    CalendarConfig
	Coordinator CoordinatorConfig
	Redis       RedisConfig
	DB          db.Config
	Env         string
	Port        string
	NodeID      int64
	// ParticipantsFile points at the YAML participant table. Empty = built-in table.
	ParticipantsFile string
	MetricsEnabled   bool
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
	SampleRatio    float64
}

type LLMConfig struct {
	Provider         string // "openai" or "anthropic"
	APIKey           string
	BaseURL          string // OpenAI-compatible servers (vLLM, llama.cpp) are reached through this
	Model            string
	StructuredOutput bool
	Timeout          time.Duration // per attempt
	MaxAttempts      int
	RetryBackoff     time.Duration
	BreakerFailures  uint32
	BreakerCooldown  time.Duration
}

type CalendarConfig struct {
	// TokenDir holds per-participant OAuth token files named <username>.token.
	TokenDir string
	Timeout  time.Duration
}

// CoordinatorConfig carries the fan-out bound and the token budget of each prompt.
type CoordinatorConfig struct {
	MaxParallel          int
	ParseMaxTokens       int
	AvailabilityMaxToken int
	NegotiateMaxTokens   int
	DecideMaxTokens      int
}

type RedisConfig struct {
	URL    string
	Stream string // scheduling decisions out

	// Request queue consumed by the worker.
	RequestStream string
	Group         string
	Consumer      string
	DLQStream     string
	MaxAttempts   int
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeWorker ServiceType = "worker"
	ServiceTypeCLI    ServiceType = "cli"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the HTTP service
//   - .env.worker for the request queue worker
//   - .env.cli for the convene command
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("CONVENE_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:              getEnv("CONVENE_ENV", "development"),
		Port:             getEnv("PORT", "5000"),
		NodeID:           int64(getEnvInt("NODE_ID", 1)),
		ParticipantsFile: getEnv("PARTICIPANTS_FILE", ""),
		MetricsEnabled:   getEnvBool("METRICS_ENABLED", true),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 5),
			MinConns: getEnvInt32("DB_MIN_CONNS", 1),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "convene"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			SampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0),
		},
		LLM: LLMConfig{
			Provider:         getEnv("LLM_PROVIDER", "openai"),
			APIKey:           getEnv("LLM_API_KEY", ""),
			BaseURL:          getEnv("LLM_BASE_URL", "http://localhost:3000/v1"),
			Model:            getEnv("LLM_MODEL", "deepseek-llm-7b-chat"),
			StructuredOutput: getEnvBool("LLM_STRUCTURED_OUTPUT", false),
			Timeout:          getEnvDuration("COMPLETION_TIMEOUT", 20*time.Second),
			MaxAttempts:      getEnvInt("COMPLETION_MAX_ATTEMPTS", 2),
			RetryBackoff:     getEnvDuration("COMPLETION_RETRY_BACKOFF", 250*time.Millisecond),
			BreakerFailures:  uint32(getEnvInt("COMPLETION_BREAKER_FAILURES", 5)),
			BreakerCooldown:  getEnvDuration("COMPLETION_BREAKER_COOLDOWN", 30*time.Second),
		},
		Calendar: CalendarConfig{
			TokenDir: getEnv("CALENDAR_TOKEN_DIR", "Keys"),
			Timeout:  getEnvDuration("CALENDAR_TIMEOUT", 15*time.Second),
		},
		Coordinator: CoordinatorConfig{
			MaxParallel:          getEnvInt("COORDINATOR_MAX_PARALLEL", 8),
			ParseMaxTokens:       getEnvInt("PARSE_MAX_TOKENS", 50),
			AvailabilityMaxToken: getEnvInt("AVAILABILITY_MAX_TOKENS", 300),
			NegotiateMaxTokens:   getEnvInt("NEGOTIATE_MAX_TOKENS", 150),
			DecideMaxTokens:      getEnvInt("DECIDE_MAX_TOKENS", 150),
		},
		Redis: RedisConfig{
			URL:           getEnv("REDIS_URL", ""),
			Stream:        getEnv("REDIS_STREAM", "convene_meetings"),
			RequestStream: getEnv("REDIS_REQUEST_STREAM", "convene_requests"),
			Group:         getEnv("REDIS_GROUP", "convene_workers"),
			Consumer:      getEnv("REDIS_CONSUMER", "worker-1"),
			DLQStream:     getEnv("REDIS_DLQ_STREAM", "convene_requests_dlq"),
			MaxAttempts:   getEnvInt("WORKER_MAX_ATTEMPTS", 3),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.LLM.Provider != "openai" && c.LLM.Provider != "anthropic" {
		return fmt.Errorf("LLM_PROVIDER must be openai or anthropic, got %q", c.LLM.Provider)
	}
	if c.Coordinator.MaxParallel <= 0 {
		return fmt.Errorf("COORDINATOR_MAX_PARALLEL must be positive")
	}
	if c.OTel.SampleRatio < 0 || c.OTel.SampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLE_RATIO must be within [0, 1]")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Enabled reports whether a completion backend can be built. A base URL alone is
// enough for self-hosted OpenAI-compatible servers.
func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" || (c.Provider == "openai" && c.BaseURL != "")
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
