package agents

import (
	"context"
	"time"

	"github.com/carebridge/aftercare/internal/patients"
	"github.com/carebridge/aftercare/pkg/types"
)

// clinicalHandoff prefixes the first clinical answer after a transition so
// the patient sees the routing rather than an unexplained change of voice.
const clinicalHandoff = "Let me connect you with our clinical assistant for that.\n\n"

// Router dispatches a patient turn to the receptionist or the clinical agent
// based on its classified intent, and records agent transitions on the
// session.
type Router struct {
	intents      *IntentClassifier
	receptionist *Receptionist
	clinical     *Clinical
	directory    *patients.Directory
}

// NewRouter wires up the router.
func NewRouter(intents *IntentClassifier, receptionist *Receptionist, clinical *Clinical, directory *patients.Directory) *Router {
	return &Router{
		intents:      intents,
		receptionist: receptionist,
		clinical:     clinical,
		directory:    directory,
	}
}

// Route handles one turn. The caller has already appended the user message to
// the session; Route returns the assistant message to append, plus the
// patient record when this turn resolved the patient's identity.
func (r *Router) Route(ctx context.Context, sess *types.Session, text string) (types.Message, *types.PatientRecord) {
	intent := r.intents.Classify(ctx, text)

	switch intent {
	case IntentMedical:
		return r.routeClinical(ctx, sess, text), nil

	case IntentAdministrative:
		sess.ActiveAgent = types.AgentReceptionist
		reply, record := r.receptionist.Handle(sess, text)
		return assistantMessage(reply, types.AgentReceptionist), record

	default:
		sess.ActiveAgent = types.AgentReceptionist
		// An unidentified patient answering the greeting with a bare name
		// classifies as ambiguous; let the receptionist try name capture
		// before asking for clarification.
		if !sess.PatientIdentified {
			reply, record := r.receptionist.Handle(sess, text)
			return assistantMessage(reply, types.AgentReceptionist), record
		}
		return assistantMessage(r.receptionist.Clarify(sess), types.AgentReceptionist), nil
	}
}

func (r *Router) routeClinical(ctx context.Context, sess *types.Session, text string) types.Message {
	transitioned := sess.ActiveAgent != types.AgentClinical
	sess.ActiveAgent = types.AgentClinical

	var record *types.PatientRecord
	if sess.PatientIdentified {
		record, _ = r.directory.Lookup(sess.PatientRef)
	}

	msg := r.clinical.Handle(ctx, record, text)
	if transitioned {
		msg.Text = clinicalHandoff + msg.Text
	}
	return msg
}

func assistantMessage(text string, agent types.AgentKind) types.Message {
	return types.Message{
		Role:      types.RoleAssistant,
		Text:      text,
		Agent:     agent,
		CreatedAt: time.Now().UTC(),
	}
}
