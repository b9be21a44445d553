package storage

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"seasonbot/internal/models"
	"seasonbot/internal/monitoring"
)

// Per-session key suffixes
const (
	ChatKey  = "fourseason_chat_v1"
	DraftKey = "fourseason_order_draft"
)

// DefaultRetention is how long chat messages are kept
const DefaultRetention = 7 * 24 * time.Hour

const chatLockStripes = 32

// Persistence snapshots chat logs and order drafts. Failures are logged and
// counted, never returned.
type Persistence struct {
	store     Store
	logger    *slog.Logger
	metrics   *monitoring.MetricsCollector
	retention time.Duration
	now       func() time.Time
	active    func(sessionID string) bool

	// chatLocks serialize read-trim-write cycles on a session's chat log
	chatLocks [chatLockStripes]sync.Mutex
}

// NewPersistence wraps store; metrics may be nil
func NewPersistence(store Store, logger *slog.Logger, metrics *monitoring.MetricsCollector) *Persistence {
	return &Persistence{
		store:     store,
		logger:    logger,
		metrics:   metrics,
		retention: DefaultRetention,
		now:       time.Now,
	}
}

// WithClock overrides the time source used for trimming and defaults
func (p *Persistence) WithClock(now func() time.Time) *Persistence {
	p.now = now
	return p
}

// WithActive lets Sweep skip sessions that are live in memory; they rewrite
// their own log on every message
func (p *Persistence) WithActive(active func(sessionID string) bool) *Persistence {
	p.active = active
	return p
}

func (p *Persistence) lockChat(session string) func() {
	h := fnv.New32a()
	h.Write([]byte(session))
	mu := &p.chatLocks[h.Sum32()%chatLockStripes]
	mu.Lock()
	return mu.Unlock
}

// ForSession scopes persistence to one session id
func (p *Persistence) ForSession(id string) *SessionStore {
	return &SessionStore{p: p, id: id}
}

func chatKey(session string) string  { return session + ":" + ChatKey }
func draftKey(session string) string { return session + ":" + DraftKey }

func (p *Persistence) fail(op, key string, err error) {
	p.logger.Warn("storage operation failed", "op", op, "key", key, "error", err)
	p.metrics.RecordStorageError(op)
}

// trim drops messages older than the retention window
func (p *Persistence) trim(messages []models.ChatMessage) ([]models.ChatMessage, bool) {
	cutoff := p.now().Add(-p.retention)
	kept := messages[:0:0]
	for _, m := range messages {
		if m.Timestamp.After(cutoff) {
			kept = append(kept, m)
		}
	}
	return kept, len(kept) != len(messages)
}

func (p *Persistence) loadChat(ctx context.Context, key string) []models.ChatMessage {
	raw, err := p.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		p.fail("load_chat", key, err)
		return nil
	}

	var messages []models.ChatMessage
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		p.fail("decode_chat", key, err)
		return nil
	}

	kept, dropped := p.trim(messages)
	if dropped {
		p.saveChat(ctx, key, kept)
	}
	return kept
}

func (p *Persistence) saveChat(ctx context.Context, key string, messages []models.ChatMessage) {
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		p.fail("encode_chat", key, err)
		return
	}
	if err := p.store.Set(ctx, key, string(data)); err != nil {
		p.fail("save_chat", key, err)
	}
}

// Sweep trims every stored chat log of a session that is not live and
// returns how many logs were visited
func (p *Persistence) Sweep(ctx context.Context) int {
	suffix := ":" + ChatKey
	keys, err := p.store.KeysWithSuffix(ctx, suffix)
	if err != nil {
		p.fail("sweep", "*"+suffix, err)
		return 0
	}

	visited, skipped := 0, 0
	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}
		id := strings.TrimSuffix(key, suffix)
		if p.active != nil && p.active(id) {
			skipped++
			continue
		}
		unlock := p.lockChat(id)
		p.loadChat(ctx, key)
		unlock()
		visited++
	}
	p.logger.Debug("chat retention sweep finished", "logs", visited, "live", skipped)
	return visited
}

// SessionStore is Persistence bound to a single session
type SessionStore struct {
	p  *Persistence
	id string
}

// SaveChat replaces the stored chat log
func (s *SessionStore) SaveChat(ctx context.Context, messages []models.ChatMessage) {
	defer s.p.lockChat(s.id)()
	s.p.saveChat(ctx, chatKey(s.id), messages)
}

// LoadChat returns the stored chat log without expired messages. The trimmed
// log is written back when anything was dropped.
func (s *SessionStore) LoadChat(ctx context.Context) []models.ChatMessage {
	defer s.p.lockChat(s.id)()
	return s.p.loadChat(ctx, chatKey(s.id))
}

// SaveOrderDraft stores the draft order
func (s *SessionStore) SaveOrderDraft(ctx context.Context, o *models.Order) {
	key := draftKey(s.id)
	if o == nil {
		s.ClearOrderDraft(ctx)
		return
	}
	data, err := json.Marshal(o)
	if err != nil {
		s.p.fail("encode_draft", key, err)
		return
	}
	if err := s.p.store.Set(ctx, key, string(data)); err != nil {
		s.p.fail("save_draft", key, err)
	}
}

// LoadOrderDraft returns the stored draft or nil
func (s *SessionStore) LoadOrderDraft(ctx context.Context) *models.Order {
	key := draftKey(s.id)
	raw, err := s.p.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		s.p.fail("load_draft", key, err)
		return nil
	}

	var o models.Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		s.p.fail("decode_draft", key, err)
		return nil
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.p.now()
	}
	return &o
}

// ClearOrderDraft removes the stored draft
func (s *SessionStore) ClearOrderDraft(ctx context.Context) {
	if err := s.p.store.Delete(ctx, draftKey(s.id)); err != nil {
		s.p.fail("clear_draft", draftKey(s.id), err)
	}
}

// ClearAll removes everything stored for the session
func (s *SessionStore) ClearAll(ctx context.Context) {
	defer s.p.lockChat(s.id)()
	if err := s.p.store.Delete(ctx, chatKey(s.id), draftKey(s.id)); err != nil {
		s.p.fail("clear_all", s.id, err)
	}
}
