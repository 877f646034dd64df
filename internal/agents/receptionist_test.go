package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/aftercare/internal/patients"
	"github.com/carebridge/aftercare/pkg/types"
)

func testDirectory() *patients.Directory {
	return patients.NewDirectory([]types.PatientRecord{
		{
			Name:                "John Smith",
			PrimaryDiagnosis:    "Congestive heart failure",
			DischargeDate:       "2026-08-15",
			Medications:         []string{"Furosemide 40mg daily", "Lisinopril 10mg daily"},
			DietaryRestrictions: "Low sodium diet, limit fluids to 2L per day",
			FollowUp:            "Cardiology clinic in 2 weeks",
			WarningSigns:        "sudden weight gain, swelling in legs, shortness of breath",
		},
		{Name: "John Doe", PrimaryDiagnosis: "Appendectomy recovery", DischargeDate: "2026-08-20"},
	})
}

func newSession() *types.Session {
	return &types.Session{ID: "s1", ActiveAgent: types.AgentReceptionist}
}

func TestIdentifyByIntroductionPhrase(t *testing.T) {
	r := NewReceptionist(testDirectory())
	sess := newSession()

	reply, record := r.Handle(sess, "Hi, my name is John Smith")

	require.NotNil(t, record)
	assert.Equal(t, "John Smith", record.Name)
	assert.True(t, sess.PatientIdentified)
	assert.Equal(t, "John Smith", sess.PatientRef)
	assert.Contains(t, reply, "John Smith")
	assert.Contains(t, reply, "Congestive heart failure")
}

func TestIdentifyByBareName(t *testing.T) {
	r := NewReceptionist(testDirectory())
	sess := newSession()

	reply, record := r.Handle(sess, "John Smith")

	require.NotNil(t, record)
	assert.True(t, sess.PatientIdentified)
	assert.Contains(t, reply, "2026-08-15")
}

func TestIdentifyAmbiguousNameAsksToDisambiguate(t *testing.T) {
	r := NewReceptionist(testDirectory())
	sess := newSession()

	reply, record := r.Handle(sess, "I'm John")

	assert.Nil(t, record)
	assert.False(t, sess.PatientIdentified)
	assert.Contains(t, reply, "John Smith")
	assert.Contains(t, reply, "John Doe")
}

func TestIdentifyUnknownNameNeverFabricates(t *testing.T) {
	r := NewReceptionist(testDirectory())
	sess := newSession()

	reply, record := r.Handle(sess, "my name is Zelda Fitzgerald")

	assert.Nil(t, record)
	assert.False(t, sess.PatientIdentified)
	assert.Contains(t, reply, "couldn't find")
}

func TestIdentifyNoNameInMessage(t *testing.T) {
	r := NewReceptionist(testDirectory())
	sess := newSession()

	reply, record := r.Handle(sess, "can you help with my paperwork please?")

	assert.Nil(t, record)
	assert.Contains(t, reply, "full name")
}

func identifiedSession(t *testing.T, r *Receptionist) *types.Session {
	t.Helper()
	sess := newSession()
	_, record := r.Handle(sess, "my name is John Smith")
	require.NotNil(t, record)
	return sess
}

func TestAdministrativeLookups(t *testing.T) {
	r := NewReceptionist(testDirectory())
	sess := identifiedSession(t, r)

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"medications", "what medications am I on?", "Furosemide 40mg daily"},
		{"diet", "what should my diet look like?", "Low sodium"},
		{"follow-up", "when is my follow up?", "Cardiology clinic in 2 weeks"},
		{"warning signs", "what warning signs should I watch for?", "sudden weight gain"},
		{"summary", "give me my discharge summary", "Congestive heart failure"},
		{"thanks", "thank you!", "welcome"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, record := r.Handle(sess, tt.message)
			assert.Nil(t, record, "record is only returned on the identification turn")
			assert.Contains(t, reply, tt.want)
		})
	}
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"my name is John Smith", "John Smith"},
		{"I'm Maria Garcia", "Maria Garcia"},
		{"John Smith", "John Smith"},
		{"john smith.", "john smith"},
		{"help me?", ""},
		{"what is my medication schedule for the next two weeks", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractName(tt.in), "input %q", tt.in)
	}
}
