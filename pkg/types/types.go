// Package types defines the core data structures for the Aftercare assistant:
// sessions, messages, citations, patient records, and knowledge chunks.
// These types are shared between the orchestration engine, the storage layer,
// and the HTTP boundary.
package types

import "time"

// AgentKind identifies which agent persona produced or should handle a turn.
type AgentKind string

const (
	// AgentReceptionist handles greetings, patient identification, and
	// administrative questions.
	AgentReceptionist AgentKind = "receptionist"

	// AgentClinical handles medical questions using retrieval-augmented
	// generation with citations.
	AgentClinical AgentKind = "clinical"
)

// Urgency is the triage level assigned to a clinical turn.
type Urgency string

const (
	// UrgencyEmergency indicates a potentially life-threatening situation.
	UrgencyEmergency Urgency = "emergency"

	// UrgencyUrgent indicates the patient should contact their provider today.
	UrgencyUrgent Urgency = "urgent"

	// UrgencyRoutine indicates continued monitoring is sufficient.
	UrgencyRoutine Urgency = "routine"
)

// CitationSource identifies where a citation's supporting text came from.
type CitationSource string

const (
	// SourceDocument marks a citation backed by the ingested reference corpus.
	SourceDocument CitationSource = "document"

	// SourceWeb marks a citation backed by an external web search result.
	SourceWeb CitationSource = "web"
)

// MessageRole describes who authored a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Citation is a provenance record attached to an assistant answer. Citations
// are response-scoped value objects: IDs are a contiguous 1..n sequence within
// a single response and are never persisted beyond the Message that carries
// them. A web-sourced citation always has a non-empty URL.
type Citation struct {
	ID             int            `json:"id"`
	Source         CitationSource `json:"source"`
	Title          string         `json:"title,omitempty"`
	Content        string         `json:"content"`
	URL            string         `json:"url,omitempty"`
	RelevanceScore *float64       `json:"relevance_score,omitempty"`
}

// Message is a single turn in a conversation. Messages are immutable once
// appended to a session. Agent, Urgency, and Citations are set only on
// assistant messages.
type Message struct {
	Role          MessageRole `json:"role"`
	Text          string      `json:"text"`
	Agent         AgentKind   `json:"agent,omitempty"`
	Urgency       Urgency     `json:"urgency,omitempty"`
	Citations     []Citation  `json:"citations,omitempty"`
	UsedWebSearch bool        `json:"used_web_search,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Session holds the state of one conversation. PatientRef is a weak lookup key
// into the patient directory (the directory owns the record); it is empty
// until the patient has been identified.
type Session struct {
	ID                string    `json:"session_id"`
	CreatedAt         time.Time `json:"created_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`
	ActiveAgent       AgentKind `json:"active_agent"`
	PatientRef        string    `json:"patient_ref,omitempty"`
	PatientIdentified bool      `json:"patient_identified"`
	Messages          []Message `json:"messages"`
}

// PatientRecord is a read-only discharge record owned by the patient
// directory. Sessions hold only the patient's name as a reference.
type PatientRecord struct {
	Name                  string   `json:"patient_name"`
	PrimaryDiagnosis      string   `json:"primary_diagnosis"`
	DischargeDate         string   `json:"discharge_date"`
	Medications           []string `json:"medications"`
	DietaryRestrictions   string   `json:"dietary_restrictions,omitempty"`
	FollowUp              string   `json:"follow_up,omitempty"`
	WarningSigns          string   `json:"warning_signs,omitempty"`
	DischargeInstructions string   `json:"discharge_instructions,omitempty"`
}

// PatientSummary is the reduced record shape returned by the patient listing
// endpoint.
type PatientSummary struct {
	Name          string `json:"name"`
	DischargeDate string `json:"discharge_date"`
	Diagnosis     string `json:"diagnosis"`
}

// KnowledgeChunk is one span of an ingested reference document together with
// its embedding vector. Chunks are immutable after ingestion.
type KnowledgeChunk struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
}

// WebResult is one hit returned by the web search adapter.
type WebResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// RetrievalResult is the merged, ranked output of the retrieval engine.
// Confident reports whether document retrieval alone was judged sufficient;
// UsedWebSearch reports whether the web fallback path was actually exercised.
type RetrievalResult struct {
	Citations     []Citation `json:"citations"`
	UsedWebSearch bool       `json:"used_web_search"`
	Confident     bool       `json:"confident"`
}
