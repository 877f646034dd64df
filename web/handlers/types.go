package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/carebridge/aftercare/pkg/types"
)

// ErrorResponse is the standard error response format for the API. It never
// carries internal error text; collaborator failures surface to patients as
// conversational degradation, not stack traces.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StartChatResponse is the response format for POST /api/chat/start.
type StartChatResponse struct {
	SessionID string          `json:"session_id"`
	Message   string          `json:"message"`
	Agent     types.AgentKind `json:"agent"`
}

// ChatMessageRequest is the request format for POST /api/chat/message.
type ChatMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatMessageResponse is the response format for POST /api/chat/message.
// PatientData is present only on the turn the patient was first identified.
type ChatMessageResponse struct {
	SessionID     string               `json:"session_id"`
	Message       string               `json:"message"`
	Agent         types.AgentKind      `json:"agent"`
	Urgency       types.Urgency        `json:"urgency,omitempty"`
	Citations     []types.Citation     `json:"citations"`
	UsedWebSearch bool                 `json:"used_web_search"`
	PatientData   *types.PatientRecord `json:"patient_data,omitempty"`
}

// HistoryResponse is the response format for GET /api/chat/history/{id}.
type HistoryResponse struct {
	SessionID string          `json:"session_id"`
	Messages  []types.Message `json:"messages"`
}

// PatientsResponse is the response format for GET /api/patients.
type PatientsResponse struct {
	Total    int                    `json:"total"`
	Patients []types.PatientSummary `json:"patients"`
}

// HealthResponse is the response format for GET /api/health.
type HealthResponse struct {
	Status        string          `json:"status"`
	Model         string          `json:"model"`
	DocumentCount int             `json:"document_count"`
	PatientCount  int             `json:"patient_count"`
	Features      map[string]bool `json:"features"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent; nothing more to write.
		log.Printf("handlers: failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	})
}
