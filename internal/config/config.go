// Package config loads the service configuration from YAML, .env files and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"seasonbot/internal/assistant"
	"seasonbot/internal/logger"
	"seasonbot/internal/models/providers"
	"seasonbot/internal/order"
	"seasonbot/internal/storage"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Log       logger.Config    `yaml:"log"`
	LLM       providers.Config `yaml:"llm"`
	Assistant assistant.Config `yaml:"assistant"`
	Storage   storage.Config   `yaml:"storage"`
	Rules     order.Rules      `yaml:"rules"`
	Geocoding GeocodingConfig  `yaml:"geocoding"`
	Sessions  SessionConfig    `yaml:"sessions"`
	// MenuFile replaces the embedded menu when set
	MenuFile string `yaml:"menu_file"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Port            int           `yaml:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	TokenSecret     string        `yaml:"token_secret"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// GeocodingConfig configures reverse geocoding
type GeocodingConfig struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// SessionConfig tunes widget sessions and background jobs
type SessionConfig struct {
	UpdateDelay   time.Duration `yaml:"update_delay"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	EvictInterval time.Duration `yaml:"evict_interval"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Default returns a configuration that runs without any external services
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			AllowedOrigins:  []string{"*"},
			TokenTTL:        7 * 24 * time.Hour,
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Log: logger.DefaultConfig(),
		LLM: providers.Config{
			Provider: providers.ProviderOffline,
		},
		Assistant: assistant.DefaultConfig(),
		Storage: storage.Config{
			Backend: storage.BackendSQLite,
			DSN:     "seasonbot.db",
		},
		Rules: order.DefaultRules(),
		Geocoding: GeocodingConfig{
			UserAgent: "seasonbot/1.0",
			Timeout:   5 * time.Second,
		},
		Sessions: SessionConfig{
			UpdateDelay:   100 * time.Millisecond,
			IdleTimeout:   2 * time.Hour,
			EvictInterval: 10 * time.Minute,
			SweepInterval: time.Hour,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies .env and
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load()
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail at runtime
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port %d", c.Metrics.Port)
	}
	if c.Rules.MinOrderAmount < 0 || c.Rules.MaxDeliveryKm <= 0 || c.Rules.DeliveryFee < 0 {
		return fmt.Errorf("invalid delivery rules: %+v", c.Rules)
	}
	if c.Assistant.HistoryWindow < 0 {
		return fmt.Errorf("invalid assistant history window %d", c.Assistant.HistoryWindow)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func applyEnv(cfg *Config) {
	if v := getEnv("SEASONBOT_PORT", getEnv("PORT", "")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := getEnv("SEASONBOT_METRICS_PORT", ""); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := getEnv("SEASONBOT_ALLOWED_ORIGINS", ""); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}
	cfg.Server.TokenSecret = getEnv("SEASONBOT_TOKEN_SECRET", cfg.Server.TokenSecret)
	cfg.Log.Level = logger.LogLevel(getEnv("SEASONBOT_LOG_LEVEL", string(cfg.Log.Level)))
	cfg.Log.Format = getEnv("SEASONBOT_LOG_FORMAT", cfg.Log.Format)

	cfg.LLM.Provider = getEnv("SEASONBOT_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnv("SEASONBOT_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv("SEASONBOT_LLM_BASE_URL", cfg.LLM.BaseURL)
	switch cfg.LLM.Provider {
	case providers.ProviderOpenAI:
		cfg.LLM.APIKey = getEnv("OPENAI_API_KEY", cfg.LLM.APIKey)
	case providers.ProviderGitHubModels:
		cfg.LLM.APIKey = getEnv("GITHUB_TOKEN", cfg.LLM.APIKey)
	case providers.ProviderAzureOpenAI:
		cfg.LLM.APIKey = getEnv("AZURE_OPENAI_API_KEY", cfg.LLM.APIKey)
		cfg.LLM.AzureEndpoint = getEnv("AZURE_OPENAI_ENDPOINT", cfg.LLM.AzureEndpoint)
		cfg.LLM.AzureDeployment = getEnv("AZURE_OPENAI_DEPLOYMENT", cfg.LLM.AzureDeployment)
	}
	if v := getEnv("SEASONBOT_LLM_TIMEOUT", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Assistant.Timeout = d
		}
	}

	cfg.Storage.Backend = getEnv("SEASONBOT_STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.DSN = getEnv("SEASONBOT_STORAGE_DSN", getEnv("DATABASE_URL", cfg.Storage.DSN))
	cfg.Storage.RedisAddr = getEnv("SEASONBOT_REDIS_ADDR", cfg.Storage.RedisAddr)
	cfg.Storage.RedisPassword = getEnv("SEASONBOT_REDIS_PASSWORD", cfg.Storage.RedisPassword)

	cfg.MenuFile = getEnv("SEASONBOT_MENU_FILE", cfg.MenuFile)
}
