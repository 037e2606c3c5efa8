// Package config loads application configuration from environment variables.
// All variables use the SAT_ prefix.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Env       string // "development" or "production"
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	AI        AIConfig
	Session   SessionConfig
	Roadmap   RoadmapConfig
	Questions QuestionsConfig
	Tutor     TutorConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL runs
// without PostgreSQL.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings. An empty URL runs
// without a cache.
type CacheConfig struct {
	URL        string
	RoadmapTTL time.Duration
}

// AIConfig holds configuration for all AI providers.
type AIConfig struct {
	OpenAI       OpenAIConfig
	Anthropic    AnthropicConfig
	DeepSeek     DeepSeekConfig
	Ollama       OllamaConfig
	OpenRouter   OpenRouterConfig
	DefaultModel string
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey string
}

// AnthropicConfig holds Anthropic provider settings.
type AnthropicConfig struct {
	APIKey string
}

// DeepSeekConfig holds DeepSeek provider settings (OpenAI-compatible).
type DeepSeekConfig struct {
	APIKey string
}

// OllamaConfig holds self-hosted Ollama settings.
type OllamaConfig struct {
	Enabled bool
	URL     string
}

// OpenRouterConfig holds OpenRouter provider settings.
type OpenRouterConfig struct {
	APIKey string
}

// SessionConfig holds the learner cookie session settings. TrustHeader
// accepts the X-Learner-ID header as identity; it defaults to on only in
// development.
type SessionConfig struct {
	Secret      string
	Name        string
	MaxAge      time.Duration
	Secure      bool
	TrustHeader bool
}

// RoadmapConfig selects roadmap persistence and ordering.
type RoadmapConfig struct {
	Store       string // "memory", "postgres", "sqlite" or "worker"
	SQLitePath  string
	WorkerURL   string
	WorkerToken string
	TieBreak    string // "random" or "stable"
	Seed        uint64
}

// QuestionsConfig locates the question bank and bounds practice sessions.
type QuestionsConfig struct {
	BankPath     string
	SessionTTL   time.Duration
	SessionLimit int
}

// TutorConfig holds tutor chat settings.
type TutorConfig struct {
	DailyTokenBudget int
	MaxTokens        int
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with SAT_ prefix.
// A .env file in the working directory is read first when present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	if err := LoadEnvFile(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	env := envStr("SAT_ENV", "development")
	cfg := &Config{
		Env: env,
		Server: ServerConfig{
			Port: envInt("SAT_SERVER_PORT", 8080),
			Host: envStr("SAT_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("SAT_DATABASE_URL", ""),
			MaxConns: envInt("SAT_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("SAT_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL:        envStr("SAT_CACHE_URL", ""),
			RoadmapTTL: envDuration("SAT_CACHE_ROADMAP_TTL", 10*time.Minute),
		},
		AI: AIConfig{
			OpenAI: OpenAIConfig{
				APIKey: envStr("SAT_AI_OPENAI_API_KEY", ""),
			},
			Anthropic: AnthropicConfig{
				APIKey: envStr("SAT_AI_ANTHROPIC_API_KEY", ""),
			},
			DeepSeek: DeepSeekConfig{
				APIKey: envStr("SAT_AI_DEEPSEEK_API_KEY", ""),
			},
			Ollama: OllamaConfig{
				Enabled: envBool("SAT_AI_OLLAMA_ENABLED", false),
				URL:     envStr("SAT_AI_OLLAMA_URL", "http://localhost:11434"),
			},
			OpenRouter: OpenRouterConfig{
				APIKey: envStr("SAT_AI_OPENROUTER_API_KEY", ""),
			},
			DefaultModel: envStr("SAT_AI_DEFAULT_MODEL", ""),
		},
		Session: SessionConfig{
			Secret:      envStr("SAT_SESSION_SECRET", ""),
			Name:        envStr("SAT_SESSION_NAME", "sat_session"),
			MaxAge:      envDuration("SAT_SESSION_MAX_AGE", 30*24*time.Hour),
			Secure:      envBool("SAT_SESSION_SECURE", false),
			TrustHeader: envBool("SAT_TRUST_LEARNER_HEADER", env == "development"),
		},
		Roadmap: RoadmapConfig{
			Store:       envStr("SAT_ROADMAP_STORE", "memory"),
			SQLitePath:  envStr("SAT_ROADMAP_SQLITE_PATH", "./data/sat.db"),
			WorkerURL:   envStr("SAT_ROADMAP_WORKER_URL", ""),
			WorkerToken: envStr("SAT_ROADMAP_WORKER_TOKEN", ""),
			TieBreak:    envStr("SAT_ROADMAP_TIEBREAK", "random"),
			Seed:        envUint64("SAT_ROADMAP_SEED", 0),
		},
		Questions: QuestionsConfig{
			BankPath:     envStr("SAT_QUESTIONS_PATH", "./questions"),
			SessionTTL:   envDuration("SAT_PRACTICE_SESSION_TTL", 2*time.Hour),
			SessionLimit: envInt("SAT_PRACTICE_SESSION_LIMIT", 20),
		},
		Tutor: TutorConfig{
			DailyTokenBudget: envInt("SAT_TUTOR_DAILY_TOKEN_BUDGET", 50000),
			MaxTokens:        envInt("SAT_TUTOR_MAX_TOKENS", 1024),
		},
		Log: LogConfig{
			Level:  envStr("SAT_LOG_LEVEL", "info"),
			Format: envStr("SAT_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// LoadEnvFile sets variables from a dotenv file without overriding ones
// already present in the environment.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return godotenv.Load(path)
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "production" {
		return fmt.Errorf("SAT_ENV must be 'development' or 'production', got %q", c.Env)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SAT_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Roadmap.Store {
	case "memory", "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("SAT_DATABASE_URL is required when SAT_ROADMAP_STORE is postgres")
		}
	case "worker":
		if c.Roadmap.WorkerURL == "" {
			return fmt.Errorf("SAT_ROADMAP_WORKER_URL is required when SAT_ROADMAP_STORE is worker")
		}
	default:
		return fmt.Errorf("SAT_ROADMAP_STORE must be one of memory, postgres, sqlite, worker; got %q", c.Roadmap.Store)
	}

	if c.Roadmap.TieBreak != "random" && c.Roadmap.TieBreak != "stable" {
		return fmt.Errorf("SAT_ROADMAP_TIEBREAK must be 'random' or 'stable', got %q", c.Roadmap.TieBreak)
	}

	if c.Session.Secret == "" && c.IsProduction() {
		return fmt.Errorf("SAT_SESSION_SECRET is required in production")
	}

	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// HasAIProvider returns true if at least one AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.OpenAI.APIKey != "" ||
		c.AI.Anthropic.APIKey != "" ||
		c.AI.DeepSeek.APIKey != "" ||
		c.AI.OpenRouter.APIKey != "" ||
		c.AI.Ollama.Enabled
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envUint64(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			return u
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
