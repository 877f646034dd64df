package agents

import (
	"errors"
	"fmt"
	"strings"

	"github.com/carebridge/aftercare/internal/patients"
	"github.com/carebridge/aftercare/pkg/types"
)

// Greeting is the receptionist's opening message for a new session.
const Greeting = "Hello! I'm your post-discharge care assistant. " +
	"I can help with questions about your recovery, medications, and follow-up care. " +
	"May I have your full name so I can look up your discharge information?"

// Receptionist handles patient identification and administrative lookups
// against the discharge record. It never fabricates patient data: a failed
// lookup always turns into a clarifying question.
type Receptionist struct {
	directory *patients.Directory
}

// NewReceptionist creates a receptionist over the given patient directory.
func NewReceptionist(directory *patients.Directory) *Receptionist {
	return &Receptionist{directory: directory}
}

// Handle processes an administrative turn. The returned record is non-nil
// only on the turn the patient is first identified; the session fields
// (PatientRef, PatientIdentified) are updated in place.
func (r *Receptionist) Handle(sess *types.Session, text string) (string, *types.PatientRecord) {
	if !sess.PatientIdentified {
		return r.identify(sess, text)
	}

	record, err := r.directory.Lookup(sess.PatientRef)
	if err != nil || record == nil {
		// The ref went stale (directory reloaded between turns). Start over.
		sess.PatientIdentified = false
		sess.PatientRef = ""
		return "I'm sorry, I seem to have lost your record. Could you tell me your full name again?", nil
	}

	return r.answerAdministrative(record, text), nil
}

// Clarify is the receptionist's response to a turn whose intent could not be
// determined.
func (r *Receptionist) Clarify(sess *types.Session) string {
	if !sess.PatientIdentified {
		return "I'm not sure I understood. Could you tell me your full name so I can look up your discharge information?"
	}
	return "I'm not sure I understood. Are you asking about your discharge details " +
		"(medications, diet, follow-up), or do you have a medical question about how you're feeling?"
}

// identify tries to resolve the patient's name from the message.
func (r *Receptionist) identify(sess *types.Session, text string) (string, *types.PatientRecord) {
	name := extractName(text)
	if name == "" {
		return "Could you tell me your full name as it appears on your discharge paperwork?", nil
	}

	record, err := r.directory.Lookup(name)

	var ambiguous *patients.AmbiguousMatchError
	if errors.As(err, &ambiguous) {
		return fmt.Sprintf("I found several patients matching %q: %s. Which one are you?",
			name, strings.Join(ambiguous.Candidates, ", ")), nil
	}
	if err != nil || record == nil {
		return fmt.Sprintf("I couldn't find a discharge record for %q. "+
			"Could you check the spelling and give me your full name?", name), nil
	}

	sess.PatientIdentified = true
	sess.PatientRef = record.Name

	reply := fmt.Sprintf("Thank you, %s. I found your discharge record from %s for %s. "+
		"You can ask me about your medications, diet, follow-up appointments, or any symptoms you're experiencing.",
		record.Name, record.DischargeDate, record.PrimaryDiagnosis)
	return reply, record
}

// answerAdministrative resolves record lookups: medications, diet, follow-up,
// warning signs, and the discharge summary.
func (r *Receptionist) answerAdministrative(record *types.PatientRecord, text string) string {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "medication") || strings.Contains(lower, "medicine") ||
		strings.Contains(lower, "pills") || strings.Contains(lower, "prescri"):
		if len(record.Medications) == 0 {
			return "Your discharge record doesn't list any current medications. " +
				"If that seems wrong, please contact your provider's office."
		}
		return "Your current medications are:\n- " + strings.Join(record.Medications, "\n- ") +
			"\nPlease take them exactly as prescribed."

	case strings.Contains(lower, "diet") || strings.Contains(lower, "eat") ||
		strings.Contains(lower, "food"):
		if record.DietaryRestrictions == "" {
			return "Your discharge record doesn't list any dietary restrictions."
		}
		return "Your dietary guidance: " + record.DietaryRestrictions

	case strings.Contains(lower, "follow") || strings.Contains(lower, "appointment") ||
		strings.Contains(lower, "schedule"):
		if record.FollowUp == "" {
			return "I don't see a scheduled follow-up on your record. " +
				"Please call your provider's office to confirm."
		}
		return "Your follow-up: " + record.FollowUp

	case strings.Contains(lower, "warning") || strings.Contains(lower, "watch"):
		if record.WarningSigns == "" {
			return "Your record doesn't list specific warning signs. " +
				"If anything feels seriously wrong, contact your provider or call 911."
		}
		return "Warning signs to watch for: " + record.WarningSigns +
			"\nIf you experience any of these, contact your provider promptly."

	case strings.Contains(lower, "summary") || strings.Contains(lower, "discharge") ||
		strings.Contains(lower, "instructions"):
		return dischargeSummary(record)

	case strings.Contains(lower, "thank") || strings.Contains(lower, "bye"):
		return "You're welcome. Take care, and don't hesitate to reach out with more questions."

	default:
		return fmt.Sprintf("Hello %s! You can ask me about your medications, diet, "+
			"follow-up appointments, warning signs, or your discharge summary.", record.Name)
	}
}

func dischargeSummary(record *types.PatientRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Discharge summary for %s:\n", record.Name)
	fmt.Fprintf(&b, "- Diagnosis: %s\n", record.PrimaryDiagnosis)
	fmt.Fprintf(&b, "- Discharged: %s\n", record.DischargeDate)
	if len(record.Medications) > 0 {
		fmt.Fprintf(&b, "- Medications: %s\n", strings.Join(record.Medications, ", "))
	}
	if record.DietaryRestrictions != "" {
		fmt.Fprintf(&b, "- Diet: %s\n", record.DietaryRestrictions)
	}
	if record.FollowUp != "" {
		fmt.Fprintf(&b, "- Follow-up: %s\n", record.FollowUp)
	}
	if record.DischargeInstructions != "" {
		fmt.Fprintf(&b, "- Instructions: %s\n", record.DischargeInstructions)
	}
	return strings.TrimRight(b.String(), "\n")
}

// extractName pulls a candidate patient name out of free text. Introduction
// phrases are tried first; otherwise a short message made of plain words is
// taken as a bare name ("John Smith").
func extractName(text string) string {
	lower := strings.ToLower(text)

	for _, phrase := range []string{"my name is", "i'm", "i am", "this is", "name's"} {
		if idx := strings.Index(lower, phrase); idx >= 0 {
			candidate := strings.TrimSpace(text[idx+len(phrase):])
			candidate = strings.Trim(candidate, ".!,?")
			if candidate != "" && wordCount(candidate) <= 4 {
				return candidate
			}
		}
	}

	trimmed := strings.Trim(strings.TrimSpace(text), ".!,?")
	words := strings.Fields(trimmed)
	if len(words) == 0 || len(words) > 3 {
		return ""
	}
	for _, w := range words {
		if !isNameWord(w) {
			return ""
		}
	}
	return trimmed
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// isNameWord filters out obvious non-name tokens so a short question like
// "help me?" is not mistaken for a name.
func isNameWord(w string) bool {
	for _, r := range w {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '-' || r == '\'') {
			return false
		}
	}
	switch strings.ToLower(w) {
	case "help", "yes", "no", "ok", "okay", "what", "who", "when", "where", "why", "how":
		return false
	}
	return len(w) > 1
}
