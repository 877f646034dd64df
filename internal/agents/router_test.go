package agents

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/aftercare/internal/config"
	"github.com/carebridge/aftercare/internal/triage"
	"github.com/carebridge/aftercare/pkg/types"
)

// mockRetriever returns a canned retrieval result.
type mockRetriever struct {
	result types.RetrievalResult
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string) types.RetrievalResult {
	return m.result
}

func confidentResult() types.RetrievalResult {
	score := 0.9
	return types.RetrievalResult{
		Confident: true,
		Citations: []types.Citation{{
			ID:             1,
			Source:         types.SourceDocument,
			Title:          "Recovery Guide",
			Content:        "Mild soreness is expected for two weeks.",
			RelevanceScore: &score,
		}},
	}
}

func testRouter(retriever Retriever, gen *mockGenerator) *Router {
	directory := testDirectory()
	classifier := triage.NewClassifier(config.TriageConfig{
		EmergencyKeywords: []string{"chest pain"},
		UrgentKeywords:    []string{"swelling"},
	})
	clinical := NewClinical(retriever, gen, classifier, time.Second)
	receptionist := NewReceptionist(directory)
	intents := NewIntentClassifier(gen, time.Second)
	return NewRouter(intents, receptionist, clinical, directory)
}

func TestRouteAdministrativeStaysWithReceptionist(t *testing.T) {
	router := testRouter(&mockRetriever{result: confidentResult()}, &mockGenerator{response: "ok"})
	sess := newSession()

	msg, record := router.Route(context.Background(), sess, "hello, my name is John Smith")

	require.NotNil(t, record)
	assert.Equal(t, types.AgentReceptionist, msg.Agent)
	assert.Equal(t, types.AgentReceptionist, sess.ActiveAgent)
	assert.Empty(t, msg.Citations)
}

func TestRouteMedicalTransitionsToClinicalWithMergedNotice(t *testing.T) {
	router := testRouter(&mockRetriever{result: confidentResult()},
		&mockGenerator{response: "Mild soreness is normal [1]."})
	sess := newSession()
	sess.PatientIdentified = true
	sess.PatientRef = "John Smith"

	msg, record := router.Route(context.Background(), sess, "I have pain near my incision")

	assert.Nil(t, record)
	assert.Equal(t, types.AgentClinical, msg.Agent)
	assert.Equal(t, types.AgentClinical, sess.ActiveAgent)
	// Routing acknowledgement and answer arrive as one message.
	assert.True(t, strings.HasPrefix(msg.Text, clinicalHandoff))
	assert.Contains(t, msg.Text, "Mild soreness is normal [1].")
	require.Len(t, msg.Citations, 1)
	assert.Equal(t, 1, msg.Citations[0].ID)
}

func TestRouteSecondMedicalTurnHasNoHandoffPrefix(t *testing.T) {
	router := testRouter(&mockRetriever{result: confidentResult()},
		&mockGenerator{response: "Still normal [1]."})
	sess := newSession()
	sess.ActiveAgent = types.AgentClinical

	msg, _ := router.Route(context.Background(), sess, "the pain is still there")

	assert.False(t, strings.HasPrefix(msg.Text, clinicalHandoff))
}

func TestRouteSwellingTurnIsAtLeastUrgent(t *testing.T) {
	router := testRouter(&mockRetriever{result: confidentResult()},
		&mockGenerator{response: "Elevate your legs and monitor the area [1]."})
	sess := newSession()
	sess.PatientIdentified = true
	sess.PatientRef = "John Smith"

	msg, _ := router.Route(context.Background(), sess, "I have swelling in my legs since yesterday")

	assert.Equal(t, types.AgentClinical, msg.Agent)
	assert.NotEqual(t, types.UrgencyRoutine, msg.Urgency)
	assert.Contains(t, msg.Text, "URGENT")
}

func TestRouteAmbiguousUnidentifiedTriesNameCapture(t *testing.T) {
	// No rule fires and the model is down, so intent degrades to ambiguous;
	// the bare name still identifies the patient.
	router := testRouter(&mockRetriever{}, &mockGenerator{err: context.DeadlineExceeded})
	sess := newSession()

	msg, record := router.Route(context.Background(), sess, "John Smith")

	require.NotNil(t, record)
	assert.True(t, sess.PatientIdentified)
	assert.Equal(t, types.AgentReceptionist, msg.Agent)
}

func TestRouteAmbiguousIdentifiedAsksForClarification(t *testing.T) {
	router := testRouter(&mockRetriever{}, &mockGenerator{err: context.DeadlineExceeded})
	sess := newSession()
	sess.PatientIdentified = true
	sess.PatientRef = "John Smith"

	msg, record := router.Route(context.Background(), sess, "the blue form thing")

	assert.Nil(t, record)
	assert.Contains(t, msg.Text, "not sure I understood")
}
