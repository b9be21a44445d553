package providers

import (
	"fmt"

	"seasonbot/internal/intent"
)

// Supported provider names
const (
	ProviderOpenAI       = "openai"
	ProviderGitHubModels = "github_models"
	ProviderAzureOpenAI  = "azure_openai"
	ProviderOffline      = "offline"
)

// Config selects and configures the hosted model. Sampling settings travel
// per request from the assistant config.
type Config struct {
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	BaseURL         string `yaml:"base_url"`
	APIKey          string `yaml:"api_key"`
	AzureEndpoint   string `yaml:"azure_endpoint"`
	AzureDeployment string `yaml:"azure_deployment"`
}

// New builds the provider named in cfg. The offline provider needs the local
// router and the name of the tool it reports actions through.
func New(cfg Config, router *intent.Router, toolName string) (Provider, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg)
	case ProviderGitHubModels:
		return NewGitHubModelsProvider(cfg)
	case ProviderAzureOpenAI:
		return NewAzureOpenAIProvider(cfg)
	case ProviderOffline, "":
		if router == nil {
			return nil, fmt.Errorf("offline provider requires an intent router")
		}
		return NewOfflineProvider(router, toolName), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
