package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	c.ModelAPIKey = "key"
	c.DatabaseURL = "mysql://root:pw@localhost:3306/brandcount"
	return c
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing model key", func(c *Config) { c.ModelAPIKey = " " }, true},
		{"missing database url", func(c *Config) { c.DatabaseURL = "" }, true},
		{"unsupported database", func(c *Config) { c.DatabaseURL = "mongodb://localhost" }, true},
		{"sqlite database", func(c *Config) { c.DatabaseURL = "sqlite:///tmp/x.db" }, false},
		{"unknown provider", func(c *Config) { c.Model.Provider = "gemini" }, true},
		{"anthropic provider", func(c *Config) { c.Model.Provider = "anthropic" }, false},
		{"invalid port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative rate", func(c *Config) { c.Server.RateLimit.RequestsPerSecond = -1 }, true},
		{"redis without url", func(c *Config) { c.Cache.Driver = "redis" }, true},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true; c.Archive.Endpoint = "minio:9000" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
  allowedOrigins: ["http://localhost:5173"]
modelApiKey: file-key
databaseUrl: sqlite:///tmp/brandcount.db
model:
  provider: openai
  name: gemini-2.0-flash
  timeout: 15s
cache:
  ttl: 1m
`), 0o600))

	t.Setenv("DATABASE_URL", "")
	t.Setenv("MODEL_PROVIDER", "")
	t.Setenv("MODEL_API_KEY", "env-key")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.ModelAPIKey)
	assert.Equal(t, "sqlite:///tmp/brandcount.db", cfg.DatabaseURL)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.Model.Timeout)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	for _, k := range []string{"MODEL_API_KEY", "MODEL_PROVIDER", "SERVER_PORT", "REDIS_URL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Error(t, cfg.Validate())
}

func TestLoad_BadPortEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_ValidateStorageSkipsModelKey(t *testing.T) {
	c := validConfig()
	c.ModelAPIKey = ""

	assert.Error(t, c.Validate())
	assert.NoError(t, c.ValidateStorage())

	c.DatabaseURL = ""
	assert.Error(t, c.ValidateStorage())
}
