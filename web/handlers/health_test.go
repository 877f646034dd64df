package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/aftercare/internal/patients"
	"github.com/carebridge/aftercare/internal/storage"
	"github.com/carebridge/aftercare/pkg/types"
)

// stubStore satisfies storage.KnowledgeStore for health checks.
type stubStore struct {
	count int
	err   error
}

func (s *stubStore) Query(ctx context.Context, text string, k int) ([]storage.ScoredChunk, error) {
	return nil, nil
}

func (s *stubStore) Add(ctx context.Context, chunks []types.KnowledgeChunk) error { return nil }

func (s *stubStore) Count(ctx context.Context) (int, error) { return s.count, s.err }

func (s *stubStore) Close() error { return nil }

func getHealth(t *testing.T, h *HealthHandler) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.GetHealth(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	return rec
}

func TestGetHealthReportsFeatureMap(t *testing.T) {
	directory := patients.NewDirectory([]types.PatientRecord{{Name: "John Smith"}})
	h := NewHealthHandler(&stubStore{count: 12}, directory, "llama3.2")

	rec := getHealth(t, h)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status        string          `json:"status"`
		Model         string          `json:"model"`
		DocumentCount int             `json:"document_count"`
		PatientCount  int             `json:"patient_count"`
		Features      map[string]bool `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "llama3.2", resp.Model)
	assert.Equal(t, 12, resp.DocumentCount)
	assert.Equal(t, 1, resp.PatientCount)
	for _, feature := range []string{
		"agent_routing",
		"document_retrieval",
		"web_search_fallback",
		"urgency_classification",
	} {
		assert.True(t, resp.Features[feature], feature)
	}
}

func TestGetHealthDegradedWhenStoreFails(t *testing.T) {
	h := NewHealthHandler(&stubStore{err: errors.New("db down")}, patients.NewDirectory(nil), "llama3.2")

	rec := getHealth(t, h)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, 0, resp.DocumentCount)
}
