// Package triage classifies clinical turns into emergency, urgent, or
// routine levels. Classification is a pure function of the turn's text and
// the warning-sign flag: no external calls, no hidden state, so identical
// input always produces identical output.
//
// The policy is deliberately asymmetric: a false "routine" is worse than a
// false "urgent", so any keyword hit anywhere in the user text or the answer
// text promotes the turn to the highest tier that matched, and a
// record-specific warning sign promotes routine to urgent.
package triage

import (
	"strings"

	"github.com/carebridge/aftercare/internal/config"
	"github.com/carebridge/aftercare/pkg/types"
)

// Classifier maps clinical turns to urgency levels using configured keyword
// tiers. Keyword tables are configuration so they can be tuned against a
// labeled validation set.
type Classifier struct {
	emergency []string
	urgent    []string
}

// NewClassifier builds a classifier from the triage configuration.
func NewClassifier(cfg config.TriageConfig) *Classifier {
	return &Classifier{
		emergency: lowerAll(cfg.EmergencyKeywords),
		urgent:    lowerAll(cfg.UrgentKeywords),
	}
}

// Classify returns the urgency level for a clinical turn. Both the patient's
// text and the assistant's answer are scanned; the highest tier hit wins.
// warningSign promotes an otherwise routine turn to urgent.
func (c *Classifier) Classify(userText, answerText string, warningSign bool) types.Urgency {
	combined := strings.ToLower(userText + " " + answerText)

	for _, kw := range c.emergency {
		if strings.Contains(combined, kw) {
			return types.UrgencyEmergency
		}
	}

	for _, kw := range c.urgent {
		if strings.Contains(combined, kw) {
			return types.UrgencyUrgent
		}
	}

	if warningSign {
		return types.UrgencyUrgent
	}

	return types.UrgencyRoutine
}

// Recommendation renders the patient-facing guidance for an urgency level.
// followUp, when present, is the patient's scheduled follow-up text.
func Recommendation(urgency types.Urgency, followUp string) string {
	switch urgency {
	case types.UrgencyEmergency:
		return "EMERGENCY: Please call 911 or go to the nearest emergency room immediately."
	case types.UrgencyUrgent:
		msg := "URGENT: Please contact your healthcare provider today."
		if followUp != "" {
			msg += " Your follow-up: " + followUp + "."
		}
		return msg + " If symptoms worsen, go to the emergency room."
	default:
		return "Routine: Continue monitoring your symptoms. If they persist or worsen, contact your healthcare provider."
	}
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
