// Package patients provides read-only access to patient discharge records.
//
// Records are loaded once from a JSON file at startup; the directory is
// immutable afterward, so lookups are safe for concurrent use without
// locking. The directory never fabricates records: a miss returns nil and
// multiple partial matches surface as an AmbiguousMatchError so the caller
// can ask the patient to disambiguate instead of picking arbitrarily.
package patients

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/carebridge/aftercare/pkg/types"
)

// AmbiguousMatchError is returned when a partial name matches more than one
// record. Candidates carries the full names of every matching record.
type AmbiguousMatchError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous patient match for %q: %d candidates", e.Name, len(e.Candidates))
}

// Directory holds patient discharge records loaded from a JSON file.
type Directory struct {
	records []types.PatientRecord
}

// Load reads patient records from the given JSON file. A missing file is not
// an error: the directory starts empty and every lookup misses, which keeps
// the assistant usable for general questions.
func Load(dataFile string) (*Directory, error) {
	data, err := os.ReadFile(dataFile)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("patients: data file %s not found, starting with empty directory", dataFile)
			return &Directory{}, nil
		}
		return nil, fmt.Errorf("patients: read %s: %w", dataFile, err)
	}

	var records []types.PatientRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("patients: parse %s: %w", dataFile, err)
	}

	log.Printf("patients: loaded %d records from %s", len(records), dataFile)
	return &Directory{records: records}, nil
}

// NewDirectory builds a directory from in-memory records. Used by tests.
func NewDirectory(records []types.PatientRecord) *Directory {
	return &Directory{records: records}
}

// Lookup finds a patient by name. Matching is case-insensitive and
// whitespace-normalized. An exact full-name match wins; otherwise a partial
// match on any name component is tried. A unique partial match is returned;
// multiple partial matches return an AmbiguousMatchError; no match returns
// (nil, nil).
func (d *Directory) Lookup(name string) (*types.PatientRecord, error) {
	needle := normalize(name)
	if needle == "" {
		return nil, nil
	}

	// Exact match first.
	for i := range d.records {
		if normalize(d.records[i].Name) == needle {
			record := d.records[i]
			return &record, nil
		}
	}

	// Partial match: the given name contains, or is contained in, a record
	// name component.
	var matches []int
	for i := range d.records {
		if partialMatch(needle, normalize(d.records[i].Name)) {
			matches = append(matches, i)
		}
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		record := d.records[matches[0]]
		return &record, nil
	default:
		candidates := make([]string, 0, len(matches))
		for _, i := range matches {
			candidates = append(candidates, d.records[i].Name)
		}
		return nil, &AmbiguousMatchError{Name: name, Candidates: candidates}
	}
}

// List returns reduced summaries of every record for the browse endpoint.
func (d *Directory) List() []types.PatientSummary {
	summaries := make([]types.PatientSummary, 0, len(d.records))
	for _, r := range d.records {
		summaries = append(summaries, types.PatientSummary{
			Name:          r.Name,
			DischargeDate: r.DischargeDate,
			Diagnosis:     r.PrimaryDiagnosis,
		})
	}
	return summaries
}

// Count returns the number of loaded records.
func (d *Directory) Count() int {
	return len(d.records)
}

// MatchesWarningSigns reports whether the symptom text overlaps the
// free-text warning signs listed on the record.
func MatchesWarningSigns(record *types.PatientRecord, symptom string) bool {
	if record == nil || record.WarningSigns == "" {
		return false
	}
	signs := strings.ToLower(record.WarningSigns)
	for _, word := range strings.Fields(normalize(symptom)) {
		// Short words ("a", "my", "in") match everything; skip them.
		if len(word) < 4 {
			continue
		}
		if strings.Contains(signs, word) {
			return true
		}
	}
	return false
}

// normalize lowercases and collapses interior whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// partialMatch reports whether any component of one name appears in the other.
func partialMatch(needle, recordName string) bool {
	if needle == "" || recordName == "" {
		return false
	}
	if strings.Contains(recordName, needle) {
		return true
	}
	for _, part := range strings.Fields(recordName) {
		if strings.Contains(needle, part) {
			return true
		}
	}
	return false
}
