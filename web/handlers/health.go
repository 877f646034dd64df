package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/carebridge/aftercare/internal/patients"
	"github.com/carebridge/aftercare/internal/storage"
)

// healthFeatures lists the capabilities this deployment exposes.
var healthFeatures = map[string]bool{
	"agent_routing":          true,
	"document_retrieval":     true,
	"web_search_fallback":    true,
	"urgency_classification": true,
}

// HealthHandler reports service health for GET /api/health.
type HealthHandler struct {
	store     storage.KnowledgeStore
	directory *patients.Directory
	model     string
}

// NewHealthHandler creates a HealthHandler. model is the completion model
// name reported in the response.
func NewHealthHandler(store storage.KnowledgeStore, directory *patients.Directory, model string) *HealthHandler {
	return &HealthHandler{store: store, directory: directory, model: model}
}

// GetHealth handles GET /api/health. A store outage degrades the status but
// still returns 200: the conversational paths have their own fallbacks.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	docCount, err := h.store.Count(ctx)
	if err != nil {
		status = "degraded"
		docCount = 0
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:        status,
		Model:         h.model,
		DocumentCount: docCount,
		PatientCount:  h.directory.Count(),
		Features:      healthFeatures,
	})
}
