package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int               `yaml:"port"`
		AllowedOrigins []string          `yaml:"allowedOrigins"`
		APIKeys        map[string]string `yaml:"apiKeys"`
		MaxTextChars   int               `yaml:"maxTextChars"`
		MaxBodyBytes   int64             `yaml:"maxBodyBytes"`
		RateLimit      struct {
			RequestsPerSecond float64 `yaml:"requestsPerSecond"`
			Burst             int     `yaml:"burst"`
		} `yaml:"rateLimit"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	ModelAPIKey string `yaml:"modelApiKey"`
	DatabaseURL string `yaml:"databaseUrl"`

	Model struct {
		Provider  string        `yaml:"provider"`
		Name      string        `yaml:"name"`
		BaseURL   string        `yaml:"baseUrl"`
		MaxTokens int           `yaml:"maxTokens"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"model"`

	Database struct {
		MaxOpenConns    int           `yaml:"maxOpenConns"`
		MaxIdleConns    int           `yaml:"maxIdleConns"`
		ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	} `yaml:"database"`

	Cache struct {
		Driver   string        `yaml:"driver"` // memory | redis | none
		TTL      time.Duration `yaml:"ttl"`
		RedisURL string        `yaml:"redisUrl"`
	} `yaml:"cache"`

	Archive struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"archive"`

	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"` // json | console
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"maxSizeMB"`
		MaxBackups int    `yaml:"maxBackups"`
		MaxAgeDays int    `yaml:"maxAgeDays"`
	} `yaml:"log"`
}

// Load baca file config.yaml, lalu isi default + override dari env.
// File gak ada bukan error, supaya bisa jalan cuma pakai env.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3001
	}
	if c.Server.MaxTextChars == 0 {
		c.Server.MaxTextChars = 100000
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}
	if c.Model.Provider == "" {
		c.Model.Provider = "openai"
	}
	if c.Model.Timeout == 0 {
		c.Model.Timeout = 60 * time.Second
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = 2048
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"MODEL_API_KEY":  &c.ModelAPIKey,
		"DATABASE_URL":   &c.DatabaseURL,
		"MODEL_PROVIDER": &c.Model.Provider,
		"MODEL_NAME":     &c.Model.Name,
		"MODEL_BASE_URL": &c.Model.BaseURL,
		"LOG_LEVEL":      &c.Log.Level,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		c.Cache.RedisURL = v
		c.Cache.Driver = "redis"
	}
	if v, ok := lookup("SERVER_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate cek semua field sekaligus
func (c *Config) Validate() error { return c.validate(true) }

// ValidateStorage is Validate for commands that never call the model, modelApiKey boleh kosong.
func (c *Config) ValidateStorage() error { return c.validate(false) }

func (c *Config) validate(needsModel bool) error {
	var errs []error
	if needsModel && strings.TrimSpace(c.ModelAPIKey) == "" {
		errs = append(errs, errors.New("modelApiKey is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("databaseUrl is required"))
	} else if _, err := url.Parse(c.DatabaseURL); err != nil {
		errs = append(errs, fmt.Errorf("databaseUrl: %w", err))
	} else {
		switch scheme := strings.ToLower(strings.SplitN(c.DatabaseURL, ":", 2)[0]); scheme {
		case "mysql", "postgres", "postgresql", "sqlite":
		default:
			errs = append(errs, fmt.Errorf("databaseUrl: unsupported scheme %q", scheme))
		}
	}
	switch c.Model.Provider {
	case "openai", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("model.provider must be openai or anthropic, got %q", c.Model.Provider))
	}
	if c.Model.Timeout < 0 {
		errs = append(errs, errors.New("model.timeout must not be negative"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.RateLimit.RequestsPerSecond < 0 || c.Server.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("server.rateLimit values must not be negative"))
	}
	switch c.Cache.Driver {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("cache.redisUrl is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.driver must be memory, redis or none, got %q", c.Cache.Driver))
	}
	if c.Archive.Enabled && (c.Archive.Endpoint == "" || c.Archive.BucketName == "") {
		errs = append(errs, errors.New("archive.endpoint and archive.bucketName are required when the archive is enabled"))
	}
	return errors.Join(errs...)
}
