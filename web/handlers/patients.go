package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/carebridge/aftercare/internal/patients"
)

// PatientHandlers contains HTTP handlers for the read-only patient listing.
type PatientHandlers struct {
	directory *patients.Directory
}

// NewPatientHandlers creates a PatientHandlers instance.
func NewPatientHandlers(directory *patients.Directory) *PatientHandlers {
	return &PatientHandlers{directory: directory}
}

// ListPatients handles GET /api/patients - reduced summaries of every loaded
// discharge record. Full records are only released conversationally, after
// the patient identifies themselves.
func (h *PatientHandlers) ListPatients(w http.ResponseWriter, r *http.Request) {
	summaries := h.directory.List()
	respondJSON(w, http.StatusOK, PatientsResponse{
		Total:    len(summaries),
		Patients: summaries,
	})
}

// GetPatient handles GET /api/patients/{name} - the full discharge record
// for a single patient, matched the same way the receptionist matches names.
func (h *PatientHandlers) GetPatient(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	record, err := h.directory.Lookup(name)
	if err != nil {
		var ambiguous *patients.AmbiguousMatchError
		if errors.As(err, &ambiguous) {
			respondError(w, http.StatusBadRequest,
				"Name matches multiple patients: "+strings.Join(ambiguous.Candidates, ", "))
			return
		}
		respondError(w, http.StatusInternalServerError, "Patient lookup failed")
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, "Patient not found")
		return
	}

	respondJSON(w, http.StatusOK, record)
}
