package providers

import (
	"context"
	"encoding/json"
)

// Conversation roles understood by every provider
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool describes a function the model may call
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is one generation call
type Request struct {
	SystemInstruction string
	History           []Message
	Tools             []Tool
	Temperature       float64
	MaxTokens         int
}

// FunctionCall is a tool invocation returned by the model
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Response is the model's reply: text, a function call, or both
type Response struct {
	Text         string        `json:"text"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// Provider interface for LLM providers
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}
