package widget

import (
	"context"
	"sync"
	"time"

	"seasonbot/internal/schedule"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// EvictJobName names the idle-session job in the scheduler
const EvictJobName = "idle-session-eviction"

// Manager keeps live sessions in memory. Stored chat and drafts outlive
// eviction and are restored on the next visit.
type Manager struct {
	deps *Deps

	mu          sync.RWMutex
	sessions    map[string]*Session
	subscribers []func(id string, u Update)
}

// NewManager creates a new Manager
func NewManager(deps Deps) *Manager {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &Manager{
		deps:     &deps,
		sessions: make(map[string]*Session),
	}
}

// Subscribe registers fn to receive every session update
func (m *Manager) Subscribe(fn func(id string, u Update)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func (m *Manager) broadcast(id string, u Update) {
	m.mu.RLock()
	subs := append([]func(string, Update){}, m.subscribers...)
	m.mu.RUnlock()
	for _, fn := range subs {
		fn(id, u)
	}
}

// Create starts a session with a fresh id
func (m *Manager) Create(ctx context.Context) *Session {
	return m.Resume(ctx, uuid.NewString())
}

// Resume returns the live session for id, restoring it from storage when it
// is not in memory
func (m *Manager) Resume(ctx context.Context, id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s
	}

	restored := newSession(ctx, id, m.deps, func(u Update) { m.broadcast(id, u) })

	m.mu.Lock()
	if s, ok = m.sessions[id]; !ok {
		s = restored
		m.sessions[id] = s
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if s != restored {
		restored.close()
	}
	m.deps.Metrics.SetActiveSessions(n)
	return s
}

// Get returns a live session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete wipes a session's stored state and drops it from memory
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.store.ClearAll(ctx)
	s.close()
	m.deps.Metrics.SetActiveSessions(n)
	return nil
}

// Active reports whether id is live in memory
func (m *Manager) Active(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[id]
	return ok
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// EvictIdle drops sessions inactive for longer than maxIdle and returns how
// many were dropped
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	cutoff := m.deps.Clock.Now().Add(-maxIdle)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range idle {
		s.close()
	}
	if len(idle) > 0 {
		m.deps.Logger.Info("evicted idle sessions", "count", len(idle), "active", n)
	}
	m.deps.Metrics.SetActiveSessions(n)
	return len(idle)
}

// ScheduleEviction registers idle eviction on jobs
func (m *Manager) ScheduleEviction(jobs *schedule.Jobs, interval, maxIdle time.Duration) error {
	return jobs.Every(EvictJobName, interval, func() {
		m.EvictIdle(maxIdle)
	})
}

// Close drops every session from memory
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
