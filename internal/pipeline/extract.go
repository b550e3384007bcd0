package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shusrusha/shusrusha/internal/prompts/diagnoses"
	"github.com/shusrusha/shusrusha/internal/prompts/medications"
	"github.com/shusrusha/shusrusha/internal/providers"
)

// ExtractDiagnoses pulls conditions and lab findings out of the
// transcription. On any failure the state gets an empty result; the
// failure is logged and the run continues.
func (r *Runner) ExtractDiagnoses(ctx context.Context, st *State) {
	result := &diagnoses.Result{
		Conditions: []string{},
		LabTests:   []diagnoses.LabTest{},
	}
	defer func() { st.Diagnoses = result }()

	user := r.userPrompt(diagnoses.UserPromptKey,
		struct{ Markdown string }{st.Markdown},
		diagnoses.UserPrompt(st.Markdown))
	raw, err := r.callStructured(ctx, structuredCall{
		system:    r.systemPrompt(diagnoses.SystemPromptKey, diagnoses.SystemPrompt()),
		user:      user,
		schema:    diagnoses.SchemaJSON(),
		model:     r.cfg.ExtractionModel,
		requestID: st.RunID + "-diagnoses",
	})
	if err != nil {
		r.logger.Warn("diagnosis extraction failed", "run_id", st.RunID, "error", err)
		return
	}

	var parsed diagnoses.Result
	if err := json.Unmarshal(raw, &parsed); err != nil {
		r.logger.Warn("diagnosis extraction returned unexpected shape",
			"run_id", st.RunID, "error", err)
		return
	}
	if parsed.Conditions != nil {
		result.Conditions = parsed.Conditions
	}
	if parsed.LabTests != nil {
		result.LabTests = parsed.LabTests
	}
}

// ExtractMedications pulls the prescribed medication list out of the
// transcription, preserving document order. Same failure policy as
// diagnosis extraction: empty list on failure, run continues.
func (r *Runner) ExtractMedications(ctx context.Context, st *State) {
	st.Medications = []medications.Medication{}

	user := r.userPrompt(medications.UserPromptKey,
		struct{ Markdown string }{st.Markdown},
		medications.UserPrompt(st.Markdown))
	raw, err := r.callStructured(ctx, structuredCall{
		system:    r.systemPrompt(medications.SystemPromptKey, medications.SystemPrompt()),
		user:      user,
		schema:    medications.SchemaJSON(),
		model:     r.cfg.ExtractionModel,
		requestID: st.RunID + "-medications",
	})
	if err != nil {
		r.logger.Warn("medication extraction failed", "run_id", st.RunID, "error", err)
		return
	}

	var parsed medications.Result
	if err := json.Unmarshal(raw, &parsed); err != nil {
		r.logger.Warn("medication extraction returned unexpected shape",
			"run_id", st.RunID, "error", err)
		return
	}
	if parsed.Medications != nil {
		st.Medications = parsed.Medications
	}
}

type structuredCall struct {
	system    string
	user      string
	schema    json.RawMessage
	model     string
	requestID string
}

// callStructured issues one JSON-schema chat call and returns the
// validated payload.
func (r *Runner) callStructured(ctx context.Context, call structuredCall) (json.RawMessage, error) {
	req := &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: call.system},
			{Role: "user", Content: call.user},
		},
		Model:           call.model,
		MaxOutputTokens: 4096,
		Timeout:         r.cfg.RequestTimeout,
		JSONSchema:      call.schema,
		RequestID:       call.requestID,
	}

	result, err := r.llm.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("%s: %s", result.ErrorType, result.ErrorMessage)
	}
	if len(result.ParsedJSON) == 0 {
		return nil, fmt.Errorf("no structured payload in response")
	}
	return result.ParsedJSON, nil
}
