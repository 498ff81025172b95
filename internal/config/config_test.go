package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 168*time.Hour, cfg.JWT.TokenTTL)
	assert.Equal(t, "text-embedding-004", cfg.LLM.EmbeddingModel)
	assert.Equal(t, 60*time.Second, cfg.HTTP.WriteTimeout)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RATE_LIMIT_RPS", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TokenTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.InDelta(t, 0.5, cfg.Limits.RPS, 1e-9)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			GeminiAPIKey: "key",
			Storage:      Storage{Driver: "sqlite"},
			JWT:          JWT{Secret: "secret"},
			Limits:       RateLimit{RPS: 1, Burst: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "postgres" }, wantErr: "STORAGE_DRIVER"},
		{name: "zero burst", mutate: func(c *Config) { c.Limits.Burst = 0 }, wantErr: "RATE_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadWithoutSecrets(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err, "seeding needs no secrets")
	assert.ErrorContains(t, cfg.RequireSecrets(), "GEMINI_API_KEY")

	cfg.GeminiAPIKey = "key"
	assert.ErrorContains(t, cfg.RequireSecrets(), "JWT_SECRET")

	cfg.JWT.Secret = "secret"
	assert.NoError(t, cfg.RequireSecrets())
}
