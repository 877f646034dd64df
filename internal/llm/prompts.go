package llm

import (
	"fmt"
	"strings"

	"github.com/carebridge/aftercare/pkg/types"
)

// ClinicalAnswerPrompt builds the grounded-answer prompt for the clinical
// agent. The model is instructed to assert only claims supported by the
// numbered context below and to cite them inline with [n] markers matching
// the citation IDs assigned by the retrieval engine.
//
// Parameters:
//   - question: the patient's question, already enhanced with patient context
//   - citations: the merged, ranked citation list from the retrieval engine
//
// Returns a prompt string for TextGenerator.Complete.
func ClinicalAnswerPrompt(question string, citations []types.Citation) string {
	var context strings.Builder
	for _, c := range citations {
		context.WriteString(fmt.Sprintf("[%d] %s\n\n", c.ID, c.Content))
	}

	return fmt.Sprintf(`You are a clinical information assistant for post-discharge patients.
Answer the question using ONLY the numbered context below.

Rules:
1. Cite your sources inline using the citation markers [1], [2], etc. after each claim.
2. If the context does not contain enough information, clearly say so.
3. Be concise but complete.
4. Never invent facts that are not in the context.
5. Do not give a diagnosis; describe what the referenced sources say.

Context:
%s---

Question: %s

Answer:`, context.String(), question)
}

// IntentClassificationPrompt asks the model to label a patient message as
// administrative, medical, or ambiguous. It is only consulted when the
// deterministic keyword layer is inconclusive. The response must be exactly
// one of the three labels; anything else is treated as ambiguous by the
// caller.
func IntentClassificationPrompt(message string) string {
	return fmt.Sprintf(`TASK: Classify a patient's chat message.
OUTPUT: exactly one word, one of: administrative, medical, ambiguous.

- administrative: greetings, names, appointments, schedules, logistics,
  questions about their own discharge paperwork.
- medical: symptoms, medications' effects, treatment questions, anything
  requiring clinical knowledge.
- ambiguous: cannot tell.

Message: %q

Label:`, message)
}

// PatientContextPrefix renders the patient context block prepended to a
// clinical query so retrieval and generation see the diagnosis and current
// medications.
func PatientContextPrefix(record *types.PatientRecord) string {
	if record == nil {
		return ""
	}
	return fmt.Sprintf("Patient context: diagnosis %s; current medications: %s.\n",
		record.PrimaryDiagnosis, strings.Join(record.Medications, ", "))
}
