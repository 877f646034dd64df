// Package session owns conversation lifecycle: creation, turn serialization,
// history, and idle expiry. Sessions are in-memory only; ending a session or
// restarting the process discards the conversation.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/aftercare/internal/agents"
	"github.com/carebridge/aftercare/internal/config"
	"github.com/carebridge/aftercare/pkg/types"
)

// ErrSessionNotFound is returned for unknown or expired session IDs. The
// session map is never mutated on this path.
var ErrSessionNotFound = errors.New("session not found")

// Turner processes one conversational turn against a session. Implemented by
// agents.Router.
type Turner interface {
	Route(ctx context.Context, sess *types.Session, text string) (types.Message, *types.PatientRecord)
}

// managedSession pairs a session with the mutex that serializes its turns.
// The mutex is held for the whole turn, so a turn in flight also blocks
// eviction of its session.
type managedSession struct {
	mu   sync.Mutex
	sess *types.Session
}

// Manager tracks active sessions. The map lock is held only for lookups and
// inserts; turn work happens under the per-session mutex, so distinct
// sessions proceed in parallel.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*managedSession

	router      Turner
	turnTimeout time.Duration
	idleTimeout time.Duration
}

// NewManager creates a session manager.
func NewManager(router Turner, cfg config.SessionConfig) *Manager {
	turnTimeout := cfg.TurnTimeout
	if turnTimeout <= 0 {
		turnTimeout = 30 * time.Second
	}
	idleTimeout := cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Manager{
		sessions:    make(map[string]*managedSession),
		router:      router,
		turnTimeout: turnTimeout,
		idleTimeout: idleTimeout,
	}
}

// StartSession creates a new session with the receptionist greeting already
// appended, and returns the session together with the greeting message.
func (m *Manager) StartSession(ctx context.Context) (*types.Session, types.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.Message{}, err
	}

	now := time.Now().UTC()
	greeting := types.Message{
		Role:      types.RoleAssistant,
		Text:      agents.Greeting,
		Agent:     types.AgentReceptionist,
		CreatedAt: now,
	}
	sess := &types.Session{
		ID:             uuid.New().String(),
		CreatedAt:      now,
		LastActivityAt: now,
		ActiveAgent:    types.AgentReceptionist,
		Messages:       []types.Message{greeting},
	}

	m.mu.Lock()
	m.sessions[sess.ID] = &managedSession{sess: sess}
	m.mu.Unlock()

	log.Printf("session: started %s", sess.ID)
	return snapshot(sess), greeting, nil
}

// PostMessage appends a user turn to the session, routes it, appends the
// assistant's reply, and returns the reply. The second return carries the
// patient record only on the turn the patient was first identified. An
// unknown or expired session ID returns ErrSessionNotFound with nothing
// recorded.
func (m *Manager) PostMessage(ctx context.Context, sessionID, text string) (types.Message, *types.PatientRecord, error) {
	ms, ok := m.lookup(sessionID)
	if !ok {
		return types.Message{}, nil, ErrSessionNotFound
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if m.expired(ms.sess) {
		m.remove(sessionID)
		return types.Message{}, nil, ErrSessionNotFound
	}

	now := time.Now().UTC()
	ms.sess.Messages = append(ms.sess.Messages, types.Message{
		Role:      types.RoleUser,
		Text:      text,
		CreatedAt: now,
	})
	ms.sess.LastActivityAt = now

	turnCtx, cancel := context.WithTimeout(ctx, m.turnTimeout)
	defer cancel()

	reply, record := m.router.Route(turnCtx, ms.sess, text)
	if reply.Text == "" {
		// Every collaborator degraded at once. The user turn stays recorded.
		reply = types.Message{
			Role:      types.RoleAssistant,
			Text:      "I'm sorry, I'm having trouble responding right now. Please try again in a moment.",
			Agent:     ms.sess.ActiveAgent,
			CreatedAt: time.Now().UTC(),
		}
	}

	ms.sess.Messages = append(ms.sess.Messages, reply)
	ms.sess.LastActivityAt = time.Now().UTC()
	return reply, record, nil
}

// History returns a copy of the session's messages in order.
func (m *Manager) History(sessionID string) ([]types.Message, error) {
	ms, ok := m.lookup(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if m.expired(ms.sess) {
		m.remove(sessionID)
		return nil, ErrSessionNotFound
	}

	out := make([]types.Message, len(ms.sess.Messages))
	copy(out, ms.sess.Messages)
	return out, nil
}

// Get returns a point-in-time copy of the session.
func (m *Manager) Get(sessionID string) (*types.Session, error) {
	ms, ok := m.lookup(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if m.expired(ms.sess) {
		m.remove(sessionID)
		return nil, ErrSessionNotFound
	}
	return snapshot(ms.sess), nil
}

// EndSession removes the session. Ending an unknown session returns
// ErrSessionNotFound.
func (m *Manager) EndSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	log.Printf("session: ended %s", sessionID)
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts idle sessions. A session with a turn in flight holds its own
// mutex, so TryLock skips it; it will be swept on a later pass once idle.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, ms := range m.sessions {
		if !ms.mu.TryLock() {
			continue
		}
		idle := m.expired(ms.sess)
		ms.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		log.Printf("session: swept %d idle sessions", evicted)
	}
	return evicted
}

// StartSweeping runs Sweep on an interval until ctx is cancelled.
func (m *Manager) StartSweeping(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

func (m *Manager) lookup(sessionID string) (*managedSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.sessions[sessionID]
	return ms, ok
}

func (m *Manager) remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) expired(sess *types.Session) bool {
	return time.Since(sess.LastActivityAt) > m.idleTimeout
}

// snapshot copies the session so callers cannot mutate manager state.
func snapshot(sess *types.Session) *types.Session {
	out := *sess
	out.Messages = make([]types.Message, len(sess.Messages))
	copy(out.Messages, sess.Messages)
	return &out
}
