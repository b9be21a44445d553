package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"seasonbot/internal/models/providers"
	"seasonbot/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, providers.ProviderOffline, cfg.LLM.Provider)
	assert.Equal(t, storage.BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, 1000, cfg.Rules.MinOrderAmount)
	assert.Equal(t, 5.0, cfg.Rules.MaxDeliveryKm)
	assert.Equal(t, 20*time.Second, cfg.Assistant.Timeout)
	assert.Equal(t, 10, cfg.Assistant.HistoryWindow)
	assert.Equal(t, time.Hour, cfg.Sessions.SweepInterval)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  allowed_origins: [https://fourseason.example]
llm:
  provider: github_models
  model: gpt-4o-mini
assistant:
  timeout: 5s
storage:
  backend: memory
rules:
  min_order_amount: 1500
  max_delivery_km: 3
`)
	t.Setenv("GITHUB_TOKEN", "ghp_test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://fourseason.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "ghp_test", cfg.LLM.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Assistant.Timeout)
	assert.Equal(t, 0.5, cfg.Assistant.Temperature, "unset fields keep defaults")
	assert.Equal(t, storage.BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 1500, cfg.Rules.MinOrderAmount)
	assert.Equal(t, 3.0, cfg.Rules.MaxDeliveryKm)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SEASONBOT_PORT", "7070")
	t.Setenv("SEASONBOT_LLM_PROVIDER", "azure_openai")
	t.Setenv("AZURE_OPENAI_API_KEY", "azure-key")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT", "gpt-4o")
	t.Setenv("SEASONBOT_STORAGE_BACKEND", "redis")
	t.Setenv("SEASONBOT_REDIS_ADDR", "localhost:6379")
	t.Setenv("SEASONBOT_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, providers.ProviderAzureOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "azure-key", cfg.LLM.APIKey)
	assert.Equal(t, "https://example.openai.azure.com", cfg.LLM.AzureEndpoint)
	assert.Equal(t, "gpt-4o", cfg.LLM.AzureDeployment)
	assert.Equal(t, storage.BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "localhost:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [broken"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "rules:\n  max_delivery_km: 0\n"))
	assert.ErrorContains(t, err, "invalid delivery rules")

	_, err = Load(writeConfig(t, "server:\n  port: 70000\n"))
	assert.ErrorContains(t, err, "invalid server port")
}
