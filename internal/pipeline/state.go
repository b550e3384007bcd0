// Package pipeline runs the discharge-summary processing stages: image
// transcription, diagnosis and medication extraction, catalog
// reconciliation, and report assembly.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/shusrusha/shusrusha/internal/prompts/diagnoses"
	"github.com/shusrusha/shusrusha/internal/prompts/medications"
)

// Match classifications for reconciled medications.
const (
	MatchExact       = "exact"
	MatchAlternative = "alternative"
	MatchNone        = "none"
)

// Page is one document image in page order.
type Page struct {
	Name string `json:"name"` // source filename, informational
	Data []byte `json:"data"` // image bytes (base64 when persisted)
}

// FixedMedication is one medication after catalog reconciliation.
// Entries correspond one-to-one, in order, with State.Medications.
type FixedMedication struct {
	Medication  medications.Medication `json:"medication"`
	MatchType   string                 `json:"match_type"` // exact | alternative | none
	ProductName *string                `json:"product_name"`
	ProductURL  *string                `json:"product_url"`
	Confidence  int                    `json:"confidence"`
	Reasoning   string                 `json:"reasoning"`
}

// State carries one document run through the pipeline. Each field is
// written by exactly one stage and read-only afterward.
type State struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`

	Images           []Page                   `json:"images"`
	Markdown         string                   `json:"markdown,omitempty"`
	Diagnoses        *diagnoses.Result        `json:"diagnoses,omitempty"`
	Medications      []medications.Medication `json:"medications,omitempty"`
	FixedMedications []FixedMedication        `json:"fixed_medications,omitempty"`
	HTMLSummary      string                   `json:"html_summary,omitempty"`
}

// NewState creates a fresh run state over the given pages.
func NewState(images []Page) *State {
	return &State{
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Images:    images,
	}
}

// Save persists the state as JSON for audit and debugging.
func (s *State) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// LoadState reads a previously saved run state.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	return &s, nil
}
