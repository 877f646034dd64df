package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/aftercare/internal/agents"
	"github.com/carebridge/aftercare/internal/config"
	"github.com/carebridge/aftercare/pkg/types"
)

// mockRouter echoes a canned reply and optionally mutates the session.
type mockRouter struct {
	mu     sync.Mutex
	reply  types.Message
	record *types.PatientRecord
	calls  int
}

func (m *mockRouter) Route(ctx context.Context, sess *types.Session, text string) (types.Message, *types.PatientRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.reply, m.record
}

func assistantReply(text string) types.Message {
	return types.Message{
		Role:      types.RoleAssistant,
		Text:      text,
		Agent:     types.AgentReceptionist,
		CreatedAt: time.Now().UTC(),
	}
}

func testManager(router Turner) *Manager {
	return NewManager(router, config.SessionConfig{
		TurnTimeout: 5 * time.Second,
		IdleTimeout: 30 * time.Minute,
	})
}

func TestStartSessionGreetsAsReceptionist(t *testing.T) {
	m := testManager(&mockRouter{reply: assistantReply("hi")})

	sess, greeting, err := m.StartSession(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, types.AgentReceptionist, sess.ActiveAgent)
	assert.Equal(t, agents.Greeting, greeting.Text)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, types.RoleAssistant, sess.Messages[0].Role)
	assert.Equal(t, 1, m.Count())
}

func TestPostMessageAppendsBothTurns(t *testing.T) {
	router := &mockRouter{reply: assistantReply("hello there")}
	m := testManager(router)

	sess, _, err := m.StartSession(context.Background())
	require.NoError(t, err)

	reply, record, err := m.PostMessage(context.Background(), sess.ID, "hi")
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Equal(t, "hello there", reply.Text)

	history, err := m.History(sess.ID)
	require.NoError(t, err)
	require.Len(t, history, 3) // greeting, user turn, assistant turn
	assert.Equal(t, types.RoleUser, history[1].Role)
	assert.Equal(t, "hi", history[1].Text)
	assert.Equal(t, types.RoleAssistant, history[2].Role)
}

func TestPostMessageUnknownSessionNoMutation(t *testing.T) {
	router := &mockRouter{reply: assistantReply("x")}
	m := testManager(router)

	_, _, err := m.PostMessage(context.Background(), "nope", "hi")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, router.calls)
	assert.Equal(t, 0, m.Count())
}

func TestPostMessageEmptyReplyBecomesApology(t *testing.T) {
	// A router returning a zero message models total collaborator failure.
	m := testManager(&mockRouter{})

	sess, _, err := m.StartSession(context.Background())
	require.NoError(t, err)

	reply, _, err := m.PostMessage(context.Background(), sess.ID, "hi")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "trouble responding")

	// The user turn is preserved even though the turn degraded.
	history, err := m.History(sess.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "hi", history[1].Text)
}

func TestHistoryReturnsCopy(t *testing.T) {
	m := testManager(&mockRouter{reply: assistantReply("x")})
	sess, _, err := m.StartSession(context.Background())
	require.NoError(t, err)

	history, err := m.History(sess.ID)
	require.NoError(t, err)
	history[0].Text = "mutated"

	again, err := m.History(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, agents.Greeting, again[0].Text)
}

func TestEndSession(t *testing.T) {
	m := testManager(&mockRouter{reply: assistantReply("x")})
	sess, _, err := m.StartSession(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.EndSession(sess.ID))
	assert.Equal(t, 0, m.Count())

	_, err = m.History(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.EndSession(sess.ID), ErrSessionNotFound)
}

func TestExpiredSessionBehavesLikeUnknown(t *testing.T) {
	m := NewManager(&mockRouter{reply: assistantReply("x")}, config.SessionConfig{
		TurnTimeout: time.Second,
		IdleTimeout: 10 * time.Millisecond,
	})

	sess, _, err := m.StartSession(context.Background())
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, _, err = m.PostMessage(context.Background(), sess.ID, "hi")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, m.Count())
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	m := NewManager(&mockRouter{reply: assistantReply("x")}, config.SessionConfig{
		TurnTimeout: time.Second,
		IdleTimeout: 10 * time.Millisecond,
	})

	_, _, err := m.StartSession(context.Background())
	require.NoError(t, err)
	_, _, err = m.StartSession(context.Background())
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 2, m.Sweep())
	assert.Equal(t, 0, m.Count())
}

func TestConcurrentTurnsOnDistinctSessions(t *testing.T) {
	m := testManager(&mockRouter{reply: assistantReply("x")})

	var ids []string
	for i := 0; i < 8; i++ {
		sess, _, err := m.StartSession(context.Background())
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_, _, err := m.PostMessage(context.Background(), id, "hi")
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		history, err := m.History(id)
		require.NoError(t, err)
		assert.Len(t, history, 11) // greeting + 5 user/assistant pairs
	}
}
