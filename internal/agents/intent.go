// Package agents implements the two conversational personas and the router
// that dispatches patient turns between them. The receptionist handles
// identification and administrative questions; the clinical agent answers
// medical questions with retrieval-backed citations.
package agents

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/carebridge/aftercare/internal/llm"
)

// Intent is the routing label assigned to a patient turn.
type Intent string

const (
	IntentAdministrative Intent = "administrative"
	IntentMedical        Intent = "medical"
	IntentAmbiguous      Intent = "ambiguous"
)

// medicalKeywords route a turn to the clinical agent. Checked before the
// administrative list so "I have pain, can you help" routes clinically.
var medicalKeywords = []string{
	"pain", "hurt", "ache", "symptom", "swelling", "swollen", "fever",
	"dizzy", "nausea", "vomit", "bleeding", "breath", "side effect",
	"infection", "wound", "incision", "rash", "is it normal",
	"should i worry", "feel sick", "feeling sick", "headache", "chest",
	"palpitation", "numb",
}

// administrativeKeywords keep a turn with the receptionist.
var administrativeKeywords = []string{
	"hello", "hi ", "hey", "good morning", "good afternoon",
	"my name is", "i'm ", "i am ", "this is ",
	"appointment", "schedule", "follow-up", "follow up",
	"what medications", "my medications", "medication list",
	"when do i take", "diet", "what can i eat", "what should i eat",
	"warning signs", "discharge", "instructions", "summary",
	"thank", "thanks", "bye", "goodbye",
}

// IntentClassifier labels patient turns. The keyword layer is authoritative
// and deterministic; the model is consulted only when no keyword matches, and
// a model failure degrades to ambiguous rather than failing the turn.
type IntentClassifier struct {
	generator llm.TextGenerator
	timeout   time.Duration
}

// NewIntentClassifier creates a classifier. generator may be nil, in which
// case inconclusive turns classify as ambiguous without a model call.
func NewIntentClassifier(generator llm.TextGenerator, timeout time.Duration) *IntentClassifier {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &IntentClassifier{generator: generator, timeout: timeout}
}

// Classify returns the routing intent for a patient message.
func (c *IntentClassifier) Classify(ctx context.Context, message string) Intent {
	if intent, ok := ruleIntent(message); ok {
		return intent
	}

	if c.generator == nil {
		return IntentAmbiguous
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.generator.Complete(ctx, llm.IntentClassificationPrompt(message))
	if err != nil {
		log.Printf("agents: intent model call failed, treating as ambiguous: %v", err)
		return IntentAmbiguous
	}

	switch strings.ToLower(strings.TrimSpace(response)) {
	case "administrative":
		return IntentAdministrative
	case "medical":
		return IntentMedical
	default:
		return IntentAmbiguous
	}
}

// ruleIntent applies the deterministic keyword layer. The second return is
// false when no rule fired.
func ruleIntent(message string) (Intent, bool) {
	text := " " + strings.ToLower(strings.TrimSpace(message)) + " "

	for _, kw := range medicalKeywords {
		if strings.Contains(text, kw) {
			return IntentMedical, true
		}
	}
	for _, kw := range administrativeKeywords {
		if strings.Contains(text, kw) {
			return IntentAdministrative, true
		}
	}
	return IntentAmbiguous, false
}
