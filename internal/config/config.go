package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env          string `env:"APP_ENV" env-default:"local"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	HTTPPort     string `env:"HTTP_PORT" env-default:"8080"`
	LogLevel     string `env:"LOG_LEVEL" env-default:"info"`
	CatalogPath  string `env:"CATALOG_PATH"`

	Storage Storage
	JWT     JWT
	Redis   Redis
	LLM     LLM
	HTTP    HTTPServer
	Limits  RateLimit
}

type Storage struct {
	Driver      string `env:"STORAGE_DRIVER" env-default:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL" env-default:"beauty_care.db"`
}

type JWT struct {
	Secret   string        `env:"JWT_SECRET"`
	TokenTTL time.Duration `env:"TOKEN_TTL" env-default:"168h"`
}

// Redis is optional. An empty Addr disables caching.
type Redis struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	CacheTTL time.Duration `env:"CACHE_TTL" env-default:"24h"`
}

type LLM struct {
	Model          string        `env:"GEMINI_MODEL" env-default:"gemini-1.5-flash-latest"`
	EmbeddingModel string        `env:"GEMINI_EMBEDDING_MODEL" env-default:"text-embedding-004"`
	Timeout        time.Duration `env:"LLM_TIMEOUT" env-default:"45s"`
}

type HTTPServer struct {
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"60s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

type RateLimit struct {
	RPS   float64 `env:"RATE_LIMIT_RPS" env-default:"2"`
	Burst int     `env:"RATE_LIMIT_BURST" env-default:"5"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings every command needs. Secrets are checked
// separately by RequireSecrets since seeding runs without them.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Limits.RPS <= 0 || c.Limits.Burst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// RequireSecrets reports a missing model key or token secret. The API
// server cannot start without them.
func (c *Config) RequireSecrets() error {
	if c.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY environment variable is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	return nil
}
