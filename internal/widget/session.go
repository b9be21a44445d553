// Package widget owns the per-browser chat session: the message log, the
// canonical draft order and the wizard opened from the menu and cart tabs.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"seasonbot/internal/assistant"
	"seasonbot/internal/catalog"
	"seasonbot/internal/geo"
	"seasonbot/internal/intent"
	"seasonbot/internal/models"
	"seasonbot/internal/monitoring"
	"seasonbot/internal/order"
	"seasonbot/internal/schedule"
	"seasonbot/internal/storage"
	"seasonbot/internal/wizard"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrSessionNotFound is returned for unknown or closed sessions
	ErrSessionNotFound = errors.New("session not found")
	// ErrBusy is returned when a message is sent while a reply is pending
	ErrBusy = errors.New("session is busy")
	// ErrEmptyMessage is returned for blank input
	ErrEmptyMessage = errors.New("message is empty")
	// ErrWizardClosed is returned for wizard calls while the chat tab is shown
	ErrWizardClosed = errors.New("order wizard is not open")
)

// Routes reported to metrics
const (
	RouteLocal  = "local"
	RouteRemote = "remote"
)

// Question is a one-tap prompt shown under the chat input
type Question struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Questions are the predefined prompts
var Questions = []Question{
	{Label: "Opening Hours", Text: "When are you open?"},
	{Label: "Contact Info", Text: "What is your address and phone number?"},
	{Label: "Full Menu", Text: "Show me the full menu"},
}

// Assistant answers messages the local router cannot
type Assistant interface {
	Reply(ctx context.Context, history []models.ChatMessage, current *models.Order) assistant.Reply
}

// Deps are the collaborators shared by every session
type Deps struct {
	Catalog     *catalog.Catalog
	Router      *intent.Router
	Assistant   Assistant
	Reducer     *order.Reducer
	Persistence *storage.Persistence
	Geocoder    geo.Geocoder
	Logger      *slog.Logger
	Metrics     *monitoring.MetricsCollector
	Clock       clockwork.Clock
	UpdateDelay time.Duration
}

// Snapshot is the full renderable state of a session
type Snapshot struct {
	ID            string               `json:"id"`
	Messages      []models.ChatMessage `json:"messages"`
	Order         *models.Order        `json:"order"`
	Totals        order.Totals         `json:"totals"`
	Tab           order.Tab            `json:"tab"`
	CategoryID    string               `json:"categoryId,omitempty"`
	SubcategoryID string               `json:"subcategoryId,omitempty"`
	Busy          bool                 `json:"busy"`
	Wizard        *wizard.State        `json:"wizard,omitempty"`
	LastOrder     *models.Order        `json:"lastOrder,omitempty"`
	Questions     []Question           `json:"questions"`
}

// Update is pushed to subscribers after every change
type Update struct {
	Snapshot Snapshot      `json:"snapshot"`
	Toasts   []order.Toast `json:"toasts,omitempty"`
}

// Result describes what one sent message produced
type Result struct {
	Reply      models.ChatMessage   `json:"reply"`
	Route      string               `json:"route"`
	Toasts     []order.Toast        `json:"toasts,omitempty"`
	Navigation *order.Navigation    `json:"navigation,omitempty"`
	Confirmed  *models.Order        `json:"confirmed,omitempty"`
	Messages   []models.ChatMessage `json:"messages,omitempty"`
}

// Session is one widget conversation
type Session struct {
	id     string
	deps   *Deps
	store  *storage.SessionStore
	logger *slog.Logger
	notify func(Update)

	// sendMu serializes Send; it is only ever try-locked
	sendMu sync.Mutex

	mu            sync.Mutex
	messages      []models.ChatMessage
	order         *models.Order
	lastOrder     *models.Order
	tab           order.Tab
	categoryID    string
	subcategoryID string
	wizard        *wizard.Wizard
	busy          bool
	closed        bool
	lastActive    time.Time

	// gen advances whenever the draft is finalized, reset or loses its
	// wizard; pushes from an older generation are dropped
	gen uint64
}

func newSession(ctx context.Context, id string, deps *Deps, notify func(Update)) *Session {
	s := &Session{
		id:         id,
		deps:       deps,
		store:      deps.Persistence.ForSession(id),
		logger:     deps.Logger.With("session", id),
		notify:     notify,
		tab:        order.TabChat,
		lastActive: deps.Clock.Now(),
	}

	s.messages = s.store.LoadChat(ctx)
	if len(s.messages) == 0 {
		s.messages = []models.ChatMessage{s.welcome()}
		s.store.SaveChat(ctx, s.messages)
	}
	if draft := s.store.LoadOrderDraft(ctx); draft != nil {
		order.Recalculate(draft, deps.Reducer.Rules())
		s.order = draft
	}
	return s
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

func (s *Session) welcome() models.ChatMessage {
	name := s.deps.Catalog.Restaurant().Name
	return models.ChatMessage{
		ID:        "welcome",
		Content:   fmt.Sprintf("Assalamu Alaikum! Welcome to **%s**.\n\nI am **SeasonBot**, your personal waiter. How can I help you today?", name),
		Sender:    models.SenderAI,
		Timestamp: s.deps.Clock.Now(),
		Type:      models.MessageTypeText,
	}
}

func (s *Session) message(sender models.Sender, content string) models.ChatMessage {
	return models.ChatMessage{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    sender,
		Timestamp: s.deps.Clock.Now(),
		Type:      models.MessageTypeText,
	}
}

// Send appends the user's message, answers it locally or through the
// assistant and applies any resulting action. A second Send while one is in
// flight fails with ErrBusy.
func (s *Session) Send(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !s.sendMu.TryLock() {
		return nil, ErrBusy
	}
	defer s.sendMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	s.touchLocked()
	s.messages = append(s.messages, s.message(models.SenderUser, text))
	s.busy = true
	s.store.SaveChat(ctx, s.messages)
	history := append([]models.ChatMessage(nil), s.messages...)
	current := s.order.Clone()
	update := Update{Snapshot: s.snapshotLocked()}
	s.mu.Unlock()
	s.publish(update)

	route := RouteLocal
	var reply assistant.Reply
	if local := s.deps.Router.Classify(text); local != nil {
		reply = assistant.Reply{Text: local.Text, Action: local.Action}
	} else {
		route = RouteRemote
		reply = s.deps.Assistant.Reply(ctx, history, current)
	}
	s.deps.Metrics.RecordMessage(route)

	s.mu.Lock()
	ai := s.message(models.SenderAI, reply.Text)
	s.messages = append(s.messages, ai)
	result := &Result{Reply: ai, Route: route}
	if reply.Action != nil {
		s.applyLocked(ctx, reply.Action, result)
	}
	s.busy = false
	s.store.SaveChat(ctx, s.messages)
	update = Update{Snapshot: s.snapshotLocked(), Toasts: result.Toasts}
	s.mu.Unlock()
	s.publish(update)

	s.logger.Debug("message handled", "route", route, "action", actionName(reply.Action))
	return result, nil
}

func actionName(a *models.OrderAction) string {
	if a == nil {
		return ""
	}
	return string(a.Action)
}

// applyLocked runs action through the reducer and applies its effects
func (s *Session) applyLocked(ctx context.Context, action *models.OrderAction, result *Result) {
	out := s.deps.Reducer.Apply(action, s.order)
	s.deps.Metrics.RecordAction(string(action.Action), out.Changed)

	if out.Changed {
		s.order = out.Order
		if s.order == nil {
			s.store.ClearOrderDraft(ctx)
		} else {
			s.store.SaveOrderDraft(ctx, s.order)
		}
		if s.wizard != nil {
			s.wizard.Sync(s.order)
		}
	}
	if out.Confirmed != nil {
		s.gen++
		s.lastOrder = out.Confirmed
		s.deps.Metrics.RecordOrderConfirmed(out.Confirmed.ID, out.Confirmed.Total, string(out.Confirmed.CustomerInfo.DeliveryType))
		s.logger.Info("order confirmed from chat", "order_id", out.Confirmed.ID, "total", out.Confirmed.Total)
	}
	s.messages = append(s.messages, out.Messages...)
	if out.Navigation != nil {
		if err := s.setTabLocked(out.Navigation.Tab, out.Navigation.CategoryID, out.Navigation.SubcategoryID); err != nil {
			s.logger.Warn("ignoring navigation", "tab", out.Navigation.Tab, "error", err)
		}
	}

	result.Toasts = out.Toasts
	result.Navigation = out.Navigation
	result.Confirmed = out.Confirmed
	result.Messages = out.Messages
}

// SetTab switches the visible panel. Menu and cart open the order wizard;
// chat closes it.
func (s *Session) SetTab(tab order.Tab, categoryID, subcategoryID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	s.touchLocked()
	if err := s.setTabLocked(tab, categoryID, subcategoryID); err != nil {
		s.mu.Unlock()
		return err
	}
	update := Update{Snapshot: s.snapshotLocked()}
	s.mu.Unlock()
	s.publish(update)
	return nil
}

func (s *Session) setTabLocked(tab order.Tab, categoryID, subcategoryID string) error {
	var view wizard.View
	switch tab {
	case order.TabChat:
		s.closeWizardLocked()
		s.tab = tab
		return nil
	case order.TabMenu:
		view = wizard.ViewMenu
	case order.TabCart:
		view = wizard.ViewCart
	default:
		return fmt.Errorf("%w: unknown tab %q", wizard.ErrInvalidTransition, tab)
	}

	if categoryID != "" {
		if _, ok := s.deps.Catalog.Category(categoryID); !ok {
			// unknown sections fall back to the default category
			categoryID, subcategoryID = "", ""
		}
	}

	if s.wizard != nil && s.wizard.View() == wizard.ViewSuccess {
		s.closeWizardLocked()
	}
	if s.wizard == nil {
		s.wizard = s.newWizard(view, categoryID, subcategoryID)
	} else {
		if err := s.wizard.Navigate(view); err != nil {
			return err
		}
		if categoryID != "" {
			if err := s.wizard.SelectCategory(categoryID, subcategoryID); err != nil {
				return err
			}
		}
	}

	s.tab = tab
	if tab == order.TabMenu {
		s.categoryID, s.subcategoryID = categoryID, subcategoryID
	}
	return nil
}

func (s *Session) newWizard(view wizard.View, categoryID, subcategoryID string) *wizard.Wizard {
	delay := s.deps.UpdateDelay
	if delay <= 0 {
		delay = wizard.DefaultUpdateDelay
	}
	var w *wizard.Wizard
	gen := s.gen
	onUpdate := func(draft *models.Order, rev uint64) {
		s.updateFromWizard(w, gen, rev, draft)
	}
	w = wizard.New(wizard.Options{
		Catalog:       s.deps.Catalog,
		Rules:         s.deps.Reducer.Rules(),
		Geocoder:      s.deps.Geocoder,
		Logger:        s.logger.With("component", "wizard"),
		Debouncer:     schedule.NewDebouncer(s.deps.Clock, delay),
		OnUpdate:      onUpdate,
		OnSubmit:      s.FinalizeOrder,
		InitialView:   view,
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
		Now:           s.deps.Clock.Now,
	}, s.order)
	return w
}

func (s *Session) closeWizardLocked() {
	if s.wizard != nil {
		s.wizard.Close()
		s.wizard = nil
		s.gen++
	}
}

// Wizard returns the open order wizard
func (s *Session) Wizard() (*wizard.Wizard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionNotFound
	}
	if s.wizard == nil {
		return nil, ErrWizardClosed
	}
	s.touchLocked()
	return s.wizard, nil
}

// updateFromWizard takes a draft pushed by w. Pushes from a wizard that has
// since closed, from an older generation or taken before a chat edit synced
// into the wizard are dropped.
func (s *Session) updateFromWizard(w *wizard.Wizard, gen, rev uint64, draft *models.Order) {
	s.mu.Lock()
	if s.closed || s.wizard != w || s.gen != gen || !w.Current(rev) {
		s.mu.Unlock()
		s.logger.Debug("dropping stale wizard draft", "generation", gen, "revision", rev)
		return
	}
	s.order = draft.Clone()
	if s.order != nil {
		order.Recalculate(s.order, s.deps.Reducer.Rules())
		s.store.SaveOrderDraft(context.Background(), s.order)
	}
	update := Update{Snapshot: s.snapshotLocked()}
	s.mu.Unlock()
	s.publish(update)
}

// FinalizeOrder records an order submitted through the wizard: it posts the
// confirmation to the chat, clears the draft and returns to the chat tab.
func (s *Session) FinalizeOrder(o *models.Order) {
	ctx := context.Background()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	msg := s.message(models.SenderAI, fmt.Sprintf("Order Confirmed! ID: **%s**", o.ID))
	msg.Type = models.MessageTypeOrderUpdate
	msg.Metadata = &models.MessageMetadata{OrderID: o.ID}
	s.messages = append(s.messages, msg)
	s.store.SaveChat(ctx, s.messages)

	s.gen++
	s.order = nil
	s.lastOrder = o.Clone()
	s.store.ClearOrderDraft(ctx)
	s.closeWizardLocked()
	s.tab = order.TabChat

	toast := order.Toast{Message: "Order placed successfully!", Kind: order.ToastSuccess}
	update := Update{Snapshot: s.snapshotLocked(), Toasts: []order.Toast{toast}}
	s.mu.Unlock()

	s.deps.Metrics.RecordOrderConfirmed(o.ID, o.Total, string(o.CustomerInfo.DeliveryType))
	s.logger.Info("order confirmed from wizard", "order_id", o.ID, "total", o.Total)
	s.publish(update)
}

// LastOrder returns the most recently confirmed order, if any
func (s *Session) LastOrder() *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOrder.Clone()
}

// Reset clears the stored chat and draft and starts over with a welcome
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	s.closeWizardLocked()
	s.store.ClearAll(ctx)
	s.messages = []models.ChatMessage{s.welcome()}
	s.store.SaveChat(ctx, s.messages)
	s.order = nil
	s.lastOrder = nil
	s.tab = order.TabChat
	s.categoryID, s.subcategoryID = "", ""
	update := Update{Snapshot: s.snapshotLocked()}
	s.mu.Unlock()
	s.publish(update)
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Publish pushes the current state to subscribers, e.g. after a wizard call
func (s *Session) Publish(toasts ...order.Toast) {
	s.publish(Update{Snapshot: s.Snapshot(), Toasts: toasts})
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:            s.id,
		Messages:      append([]models.ChatMessage(nil), s.messages...),
		Order:         s.order.Clone(),
		Tab:           s.tab,
		CategoryID:    s.categoryID,
		SubcategoryID: s.subcategoryID,
		Busy:          s.busy,
		LastOrder:     s.lastOrder.Clone(),
		Questions:     Questions,
	}
	if s.order != nil {
		snap.Totals = order.ComputeTotals(s.order.Items, s.order.CustomerInfo, s.deps.Reducer.Rules())
	}
	if s.wizard != nil {
		state := s.wizard.State()
		snap.Wizard = &state
	}
	return snap
}

func (s *Session) publish(u Update) {
	if s.notify != nil {
		s.notify(u)
	}
}

func (s *Session) touchLocked() {
	s.lastActive = s.deps.Clock.Now()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// close stops the wizard; stored state is kept
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeWizardLocked()
	s.closed = true
}
