package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const githubModelsBaseURL = "https://models.inference.ai.azure.com"

// LangChainProvider implements the Provider interface on top of any
// langchaingo model with OpenAI-style tool calling
type LangChainProvider struct {
	name  string
	model llms.Model
	id    string
}

// NewLangChainProvider wraps an existing langchaingo model
func NewLangChainProvider(name string, model llms.Model, modelID string) *LangChainProvider {
	return &LangChainProvider{name: name, model: model, id: modelID}
}

// NewOpenAIProvider creates a provider for the OpenAI API or any compatible endpoint
func NewOpenAIProvider(cfg Config) (*LangChainProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI configuration missing: an API key is required")
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return NewLangChainProvider(ProviderOpenAI, client, cfg.Model), nil
}

// NewGitHubModelsProvider creates a provider for GitHub Models, which
// speaks the OpenAI API
func NewGitHubModelsProvider(cfg Config) (*LangChainProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN is required for GitHub Models")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = githubModelsBaseURL
	}

	p, err := NewOpenAIProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub Models client: %w", err)
	}
	p.name = ProviderGitHubModels
	return p, nil
}

// Name returns the provider name
func (p *LangChainProvider) Name() string {
	return p.name
}

// Generate sends the conversation and tool schema to the model
func (p *LangChainProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	messages := make([]llms.MessageContent, 0, len(req.History)+1)
	if req.SystemInstruction != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemInstruction))
	}
	for _, msg := range req.History {
		msgType := llms.ChatMessageTypeHuman
		if msg.Role == RoleModel {
			msgType = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(msgType, msg.Content))
	}

	opts := []llms.CallOption{
		llms.WithTemperature(req.Temperature),
	}
	if p.id != "" {
		opts = append(opts, llms.WithModel(p.id))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		tools := make([]llms.Tool, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = llms.Tool{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			}
		}
		opts = append(opts, llms.WithTools(tools))
	}

	resp, err := p.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s completion failed: %w", p.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from %s", p.name)
	}

	choice := resp.Choices[0]
	out := &Response{Text: choice.Content}
	for _, call := range choice.ToolCalls {
		if call.FunctionCall == nil {
			continue
		}
		out.FunctionCall = &FunctionCall{
			Name:      call.FunctionCall.Name,
			Arguments: json.RawMessage(call.FunctionCall.Arguments),
		}
		break
	}
	return out, nil
}
