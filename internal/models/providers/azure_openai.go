package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

// AzureOpenAIProvider implements the Provider interface for Azure OpenAI
type AzureOpenAIProvider struct {
	client         *azopenai.Client
	deploymentName string
}

// NewAzureOpenAIProvider creates a new Azure OpenAI provider
func NewAzureOpenAIProvider(cfg Config) (*AzureOpenAIProvider, error) {
	if cfg.AzureEndpoint == "" || cfg.APIKey == "" || cfg.AzureDeployment == "" {
		return nil, fmt.Errorf("Azure OpenAI configuration missing: ensure AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY, and AZURE_OPENAI_DEPLOYMENT_NAME are set")
	}

	keyCredential := azcore.NewKeyCredential(cfg.APIKey)
	client, err := azopenai.NewClientWithKeyCredential(cfg.AzureEndpoint, keyCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure OpenAI client: %w", err)
	}

	return &AzureOpenAIProvider{
		client:         client,
		deploymentName: cfg.AzureDeployment,
	}, nil
}

// Name returns the provider name
func (p *AzureOpenAIProvider) Name() string {
	return ProviderAzureOpenAI
}

// Generate implements the Provider interface
func (p *AzureOpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	chatMessages := make([]azopenai.ChatRequestMessageClassification, 0, len(req.History)+1)
	if req.SystemInstruction != "" {
		chatMessages = append(chatMessages, &azopenai.ChatRequestSystemMessage{
			Content: azopenai.NewChatRequestSystemMessageContent(req.SystemInstruction),
		})
	}
	for _, msg := range req.History {
		switch msg.Role {
		case RoleUser:
			chatMessages = append(chatMessages, &azopenai.ChatRequestUserMessage{
				Content: azopenai.NewChatRequestUserMessageContent(msg.Content),
			})
		case RoleModel:
			chatMessages = append(chatMessages, &azopenai.ChatRequestAssistantMessage{
				Content: azopenai.NewChatRequestAssistantMessageContent(msg.Content),
			})
		default:
			return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}

	opts := azopenai.ChatCompletionsOptions{
		Messages:       chatMessages,
		Temperature:    to.Ptr(float32(req.Temperature)),
		DeploymentName: to.Ptr(p.deploymentName),
	}
	if req.MaxTokens > 0 {
		opts.MaxTokens = to.Ptr(int32(req.MaxTokens))
	}
	for _, t := range req.Tools {
		params, err := json.Marshal(t.Parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tool %s: %w", t.Name, err)
		}
		opts.Tools = append(opts.Tools, &azopenai.ChatCompletionsFunctionToolDefinition{
			Type: to.Ptr("function"),
			Function: &azopenai.ChatCompletionsFunctionToolDefinitionFunction{
				Name:        to.Ptr(t.Name),
				Description: to.Ptr(t.Description),
				Parameters:  params,
			},
		})
	}

	resp, err := p.client.GetChatCompletions(ctx, opts, nil)
	if err != nil {
		return nil, fmt.Errorf("Azure OpenAI completion failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return nil, fmt.Errorf("no response from Azure OpenAI")
	}

	msg := resp.Choices[0].Message
	out := &Response{}
	if msg.Content != nil {
		out.Text = *msg.Content
	}
	for _, call := range msg.ToolCalls {
		fn, ok := call.(*azopenai.ChatCompletionsFunctionToolCall)
		if !ok || fn.Function == nil || fn.Function.Name == nil {
			continue
		}
		var args string
		if fn.Function.Arguments != nil {
			args = *fn.Function.Arguments
		}
		out.FunctionCall = &FunctionCall{Name: *fn.Function.Name, Arguments: json.RawMessage(args)}
		break
	}
	return out, nil
}
