// Package handlers provides HTTP handlers and middleware for the Aftercare
// chat API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/carebridge/aftercare/internal/session"
	"github.com/carebridge/aftercare/pkg/types"
)

// maxMessageLen bounds a single chat message body.
const maxMessageLen = 4000

// ChatHandlers contains HTTP handlers for the conversational API.
type ChatHandlers struct {
	sessions *session.Manager
	hub      *WebSocketHub
}

// NewChatHandlers creates a ChatHandlers instance. hub may be nil; turn
// events are then not broadcast.
func NewChatHandlers(sessions *session.Manager, hub *WebSocketHub) *ChatHandlers {
	return &ChatHandlers{sessions: sessions, hub: hub}
}

// StartChat handles POST /api/chat/start - create a session and return the
// receptionist greeting.
func (h *ChatHandlers) StartChat(w http.ResponseWriter, r *http.Request) {
	sess, greeting, err := h.sessions.StartSession(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "could not start a session")
		return
	}

	respondJSON(w, http.StatusOK, StartChatResponse{
		SessionID: sess.ID,
		Message:   greeting.Text,
		Agent:     greeting.Agent,
	})
}

// PostMessage handles POST /api/chat/message - process one patient turn.
func (h *ChatHandlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body")
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.SessionID == "" || req.Message == "" {
		respondError(w, http.StatusBadRequest, "session_id and message are required")
		return
	}
	if len(req.Message) > maxMessageLen {
		respondError(w, http.StatusBadRequest, "message too long")
		return
	}

	reply, record, err := h.sessions.PostMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found or expired, please start a new chat")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	if h.hub != nil {
		h.hub.BroadcastTurn(req.SessionID, reply.Agent, reply.Urgency)
	}

	citations := reply.Citations
	if citations == nil {
		citations = []types.Citation{}
	}

	respondJSON(w, http.StatusOK, ChatMessageResponse{
		SessionID:     req.SessionID,
		Message:       reply.Text,
		Agent:         reply.Agent,
		Urgency:       reply.Urgency,
		Citations:     citations,
		UsedWebSearch: reply.UsedWebSearch,
		PatientData:   record,
	})
}

// GetHistory handles GET /api/chat/history/{id} - return the session
// transcript in order.
func (h *ChatHandlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	messages, err := h.sessions.History(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found or expired")
		return
	}

	respondJSON(w, http.StatusOK, HistoryResponse{
		SessionID: sessionID,
		Messages:  messages,
	})
}

// EndSession handles DELETE /api/chat/session/{id} - discard the session.
func (h *ChatHandlers) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	if err := h.sessions.EndSession(sessionID); err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ended", "session_id": sessionID})
}
