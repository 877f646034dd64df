package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// mockGenerator is a canned TextGenerator for agent tests.
type mockGenerator struct {
	response string
	err      error
	calls    int
}

func (m *mockGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockGenerator) GetModel() string { return "mock-model" }

func TestRuleIntentIsAuthoritative(t *testing.T) {
	// The generator must never be consulted when a rule fires.
	gen := &mockGenerator{response: "medical"}
	c := NewIntentClassifier(gen, time.Second)

	tests := []struct {
		message string
		want    Intent
	}{
		{"Hello, my name is John Smith", IntentAdministrative},
		{"hi there", IntentAdministrative},
		{"When is my follow-up appointment?", IntentAdministrative},
		{"What medications am I taking?", IntentAdministrative},
		{"what can i eat this week", IntentAdministrative},
		{"thank you, goodbye", IntentAdministrative},
		{"I have pain in my knee", IntentMedical},
		{"my incision looks red and swollen", IntentMedical},
		{"is it normal to feel dizzy", IntentMedical},
		{"I'm experiencing shortness of breath", IntentMedical},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(context.Background(), tt.message))
		})
	}
	assert.Equal(t, 0, gen.calls)
}

func TestClassifyFallsBackToModel(t *testing.T) {
	gen := &mockGenerator{response: "Medical"}
	c := NewIntentClassifier(gen, time.Second)

	got := c.Classify(context.Background(), "something about the blue form")
	assert.Equal(t, IntentMedical, got)
	assert.Equal(t, 1, gen.calls)
}

func TestClassifyModelFailureIsAmbiguous(t *testing.T) {
	gen := &mockGenerator{err: errors.New("model down")}
	c := NewIntentClassifier(gen, time.Second)

	got := c.Classify(context.Background(), "something about the blue form")
	assert.Equal(t, IntentAmbiguous, got)
}

func TestClassifyUnparseableModelOutputIsAmbiguous(t *testing.T) {
	gen := &mockGenerator{response: "I think this could be medical, or maybe not"}
	c := NewIntentClassifier(gen, time.Second)

	got := c.Classify(context.Background(), "something about the blue form")
	assert.Equal(t, IntentAmbiguous, got)
}

func TestClassifyNilGenerator(t *testing.T) {
	c := NewIntentClassifier(nil, time.Second)
	assert.Equal(t, IntentAmbiguous, c.Classify(context.Background(), "something about the blue form"))
}
