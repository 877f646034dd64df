package agents

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/carebridge/aftercare/internal/llm"
	"github.com/carebridge/aftercare/internal/patients"
	"github.com/carebridge/aftercare/internal/triage"
	"github.com/carebridge/aftercare/pkg/types"
)

// Retriever is the slice of the retrieval engine the clinical agent needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string) types.RetrievalResult
}

// Clinical answers medical questions with retrieval-backed citations and an
// urgency assessment. Every answer path, including the degraded ones, still
// runs triage: a model outage must never suppress an emergency warning.
type Clinical struct {
	retriever  Retriever
	generator  llm.TextGenerator
	classifier *triage.Classifier
	llmTimeout time.Duration
}

// NewClinical creates the clinical agent.
func NewClinical(retriever Retriever, generator llm.TextGenerator, classifier *triage.Classifier, llmTimeout time.Duration) *Clinical {
	if llmTimeout <= 0 {
		llmTimeout = 20 * time.Second
	}
	return &Clinical{
		retriever:  retriever,
		generator:  generator,
		classifier: classifier,
		llmTimeout: llmTimeout,
	}
}

// Handle processes one medical turn. record may be nil when the patient has
// not identified themselves yet; retrieval then runs on the bare question.
func (c *Clinical) Handle(ctx context.Context, record *types.PatientRecord, text string) types.Message {
	query := llm.PatientContextPrefix(record) + text
	result := c.retriever.Retrieve(ctx, query)

	answer := c.compose(ctx, text, result.Citations)

	warningSign := patients.MatchesWarningSigns(record, text)
	urgency := c.classifier.Classify(text, answer, warningSign)
	if urgency != types.UrgencyRoutine {
		followUp := ""
		if record != nil {
			followUp = record.FollowUp
		}
		answer = answer + "\n\n" + triage.Recommendation(urgency, followUp)
	}

	return types.Message{
		Role:          types.RoleAssistant,
		Text:          answer,
		Agent:         types.AgentClinical,
		Urgency:       urgency,
		Citations:     result.Citations,
		UsedWebSearch: result.UsedWebSearch,
		CreatedAt:     time.Now().UTC(),
	}
}

// compose produces the answer text for a turn: a grounded model answer when
// possible, a snippet digest when the model is down, a disclaimer when
// nothing was retrieved.
func (c *Clinical) compose(ctx context.Context, question string, citations []types.Citation) string {
	if len(citations) == 0 {
		return "I couldn't find reliable information to answer that question. " +
			"I'd rather not guess about your health. Please contact your healthcare provider, " +
			"who can give you advice specific to your situation."
	}

	ctx, cancel := context.WithTimeout(ctx, c.llmTimeout)
	defer cancel()

	answer, err := c.generator.Complete(ctx, llm.ClinicalAnswerPrompt(question, citations))
	if err != nil {
		log.Printf("agents: answer generation failed, returning source snippets: %v", err)
		return snippetAnswer(citations)
	}
	return strings.TrimSpace(answer)
}

// snippetAnswer renders retrieved snippets directly when generation is
// unavailable. The citations keep their provenance markers.
func snippetAnswer(citations []types.Citation) string {
	var b strings.Builder
	b.WriteString("I'm having trouble composing a full answer right now, " +
		"but here is what the reference material says:\n")
	for _, c := range citations {
		fmt.Fprintf(&b, "\n[%d] %s", c.ID, c.Content)
	}
	b.WriteString("\n\nPlease contact your healthcare provider if you need a definitive answer.")
	return b.String()
}
