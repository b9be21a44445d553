// Package assistant talks to the hosted model: it builds the prompt and
// history, enforces the timeout and turns tool calls into order actions.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"seasonbot/internal/catalog"
	"seasonbot/internal/models"
	"seasonbot/internal/models/providers"
	"seasonbot/internal/monitoring"
	"seasonbot/internal/order"
)

// Canned replies
const (
	Greeting     = "Assalamu Alaikum! How may I assist you with your dining today?"
	TimeoutReply = "I'm sorry, our system is responding slowly. Please try again in a moment."
	FailureReply = "I apologize, I'm having trouble connecting right now. Please try again in a moment."
	Processing   = "One moment please, I am processing that..."
)

var actionReplies = map[models.ActionKind]string{
	models.ActionCheckout:   "Certainly, Sir/Ma'am. I am opening your billing summary for review. 📝",
	models.ActionConfirm:    "Thank you! Your order has been confirmed and sent to our kitchen. 👨‍🍳",
	models.ActionUpdateInfo: "I have updated your information. Thank you. ✍️",
	models.ActionAdd:        "Certainly, I've added that to your cart. Would you like anything else? 🛒",
	models.ActionBrowseMenu: "Of course, I am opening our menu for you now. 📖",
}

// Config tunes the assistant call
type Config struct {
	HistoryWindow int           `yaml:"history_window"`
	Timeout       time.Duration `yaml:"timeout"`
	Temperature   float64       `yaml:"temperature"`
	MaxTokens     int           `yaml:"max_tokens"`
}

// DefaultConfig returns the standard assistant settings
func DefaultConfig() Config {
	return Config{
		HistoryWindow: 10,
		Timeout:       20 * time.Second,
		Temperature:   0.5,
	}
}

// Reply is the assistant's answer: text and an optional validated action
type Reply struct {
	Text   string
	Action *models.OrderAction
}

// Client sends conversations to a provider
type Client struct {
	provider providers.Provider
	catalog  *catalog.Catalog
	rules    order.Rules
	cfg      Config
	logger   *slog.Logger
	metrics  *monitoring.MetricsCollector
	now      func() time.Time
}

// NewClient creates a new Client; metrics may be nil
func NewClient(provider providers.Provider, c *catalog.Catalog, rules order.Rules, cfg Config, logger *slog.Logger, metrics *monitoring.MetricsCollector) *Client {
	def := DefaultConfig()
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = def.HistoryWindow
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Client{
		provider: provider,
		catalog:  c,
		rules:    rules,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// ProviderName returns the name of the underlying provider
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// window keeps the last n non-system messages in provider roles
func window(history []models.ChatMessage, n int) []providers.Message {
	var out []providers.Message
	for _, m := range history {
		if m.Sender == models.SenderSystem {
			continue
		}
		role := providers.RoleModel
		if m.Sender == models.SenderUser {
			role = providers.RoleUser
		}
		out = append(out, providers.Message{Role: role, Content: m.Content})
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

type result struct {
	resp *providers.Response
	err  error
}

// Reply asks the model for the next message. It never fails: errors and
// timeouts become canned replies without an action.
func (c *Client) Reply(ctx context.Context, history []models.ChatMessage, current *models.Order) Reply {
	msgs := window(history, c.cfg.HistoryWindow)
	if len(msgs) == 0 {
		return Reply{Text: Greeting}
	}

	system, err := SystemInstruction(c.catalog, c.rules, current, c.now())
	if err != nil {
		c.logger.Error("failed to build system instruction", "error", err)
		c.metrics.RecordAssistantCall(c.provider.Name(), monitoring.OutcomeError, 0)
		return Reply{Text: FailureReply}
	}

	req := providers.Request{
		SystemInstruction: system,
		History:           msgs,
		Tools:             []providers.Tool{OrderTool()},
		Temperature:       c.cfg.Temperature,
		MaxTokens:         c.cfg.MaxTokens,
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan result, 1)
	go func() {
		resp, err := c.provider.Generate(ctx, req)
		done <- result{resp: resp, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = result{err: ctx.Err()}
	}
	elapsed := time.Since(start)

	if res.err != nil {
		if errors.Is(res.err, context.DeadlineExceeded) {
			c.logger.Warn("assistant request timed out", "provider", c.provider.Name(), "timeout", c.cfg.Timeout)
			c.metrics.RecordAssistantCall(c.provider.Name(), monitoring.OutcomeTimeout, elapsed)
			return Reply{Text: TimeoutReply}
		}
		c.logger.Error("assistant request failed", "provider", c.provider.Name(), "error", res.err)
		c.metrics.RecordAssistantCall(c.provider.Name(), monitoring.OutcomeError, elapsed)
		return Reply{Text: FailureReply}
	}
	if res.resp == nil {
		c.metrics.RecordAssistantCall(c.provider.Name(), monitoring.OutcomeError, elapsed)
		return Reply{Text: FailureReply}
	}

	reply := Reply{Text: res.resp.Text}
	outcome := monitoring.OutcomeOK
	if call := res.resp.FunctionCall; call != nil {
		if call.Name != ToolName {
			c.logger.Warn("ignoring unknown tool call", "tool", call.Name)
			outcome = monitoring.OutcomeInvalidAction
		} else if action, err := models.ParseOrderAction(call.Arguments); err != nil {
			c.logger.Warn("dropping invalid order action", "error", err)
			outcome = monitoring.OutcomeInvalidAction
		} else {
			reply.Action = action
		}
	}
	c.metrics.RecordAssistantCall(c.provider.Name(), outcome, elapsed)

	if reply.Text == "" {
		reply.Text = fallbackText(reply.Action)
	}
	return reply
}

func fallbackText(action *models.OrderAction) string {
	if action == nil {
		return Processing
	}
	if text, ok := actionReplies[action.Action]; ok {
		return text
	}
	return Processing
}
