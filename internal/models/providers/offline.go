package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"seasonbot/internal/intent"
)

// OfflineProvider answers from the local intent router when no hosted model
// is configured
type OfflineProvider struct {
	router   *intent.Router
	toolName string
}

// NewOfflineProvider creates a new OfflineProvider. Actions are reported as
// calls to toolName.
func NewOfflineProvider(router *intent.Router, toolName string) *OfflineProvider {
	return &OfflineProvider{router: router, toolName: toolName}
}

// Name returns the provider name
func (p *OfflineProvider) Name() string {
	return ProviderOffline
}

// Generate classifies the most recent user message
func (p *OfflineProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var last string
	for i := len(req.History) - 1; i >= 0; i-- {
		if req.History[i].Role == RoleUser {
			last = req.History[i].Content
			break
		}
	}

	reply := p.router.Fallback(last)
	out := &Response{Text: reply.Text}
	if reply.Action != nil {
		args, err := json.Marshal(reply.Action)
		if err != nil {
			return nil, fmt.Errorf("failed to encode offline action: %w", err)
		}
		out.FunctionCall = &FunctionCall{Name: p.toolName, Arguments: args}
	}
	return out, nil
}
