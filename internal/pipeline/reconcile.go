package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/shusrusha/shusrusha/internal/prompts/match"
	"github.com/shusrusha/shusrusha/internal/prompts/medications"
	"github.com/shusrusha/shusrusha/internal/prompts/products"
)

// Reconcile matches every extracted medication against the pharmacy
// catalog. Work fans out over a bounded worker set and gathers back in
// input order; a failure on one medication downgrades that single entry
// to no-match and never aborts the batch. Returns an error only when
// the context is cancelled mid-stage.
func (r *Runner) Reconcile(ctx context.Context, st *State) error {
	st.FixedMedications = make([]FixedMedication, len(st.Medications))
	if len(st.Medications) == 0 {
		return ctx.Err()
	}

	diagnosisContext := match.FormatDiagnoses(st.conditions())

	sem := make(chan struct{}, r.cfg.MaxWorkers)
	var wg sync.WaitGroup
	for i, med := range st.Medications {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(i int, med medications.Medication) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			st.FixedMedications[i] = r.reconcileOne(ctx, st.RunID, i, med, diagnosisContext)
		}(i, med)
	}
	wg.Wait()

	// Entries skipped by cancellation still need explicit no-match
	// values to keep the one-to-one correspondence.
	for i := range st.FixedMedications {
		if st.FixedMedications[i].MatchType == "" {
			st.FixedMedications[i] = noMatch(st.Medications[i], "reconciliation cancelled")
		}
	}
	return ctx.Err()
}

func (r *Runner) reconcileOne(ctx context.Context, runID string, idx int, med medications.Medication, diagnosisContext string) FixedMedication {
	if ctx.Err() != nil {
		return noMatch(med, "reconciliation cancelled")
	}

	pageText, err := r.catalog.Search(ctx, med.Name)
	if err != nil {
		r.logger.Warn("catalog search failed",
			"run_id", runID, "medication", med.Name, "error", err)
		return noMatch(med, "catalog search failed")
	}
	if strings.TrimSpace(pageText) == "" {
		return noMatch(med, "catalog returned no content")
	}

	candidates, err := r.parseCandidates(ctx, runID, idx, med.Name, pageText)
	if err != nil {
		r.logger.Warn("catalog page parsing failed",
			"run_id", runID, "medication", med.Name, "error", err)
		return noMatch(med, "catalog page could not be parsed")
	}
	if len(candidates) == 0 {
		return noMatch(med, "no candidate products found")
	}

	matched, err := r.matchCandidates(ctx, runID, idx, med, candidates, diagnosisContext)
	if err != nil {
		r.logger.Warn("product matching failed",
			"run_id", runID, "medication", med.Name, "error", err)
		return noMatch(med, "product matching failed")
	}
	return matched
}

// parseCandidates asks the model to read the flattened catalog page and
// list candidate products. The page markup is not machine-stable, so an
// LLM parse is more robust than a structural scraper.
func (r *Runner) parseCandidates(ctx context.Context, runID string, idx int, query, pageText string) ([]products.Product, error) {
	user := r.userPrompt(products.UserPromptKey,
		struct{ Query, Content string }{query, pageText},
		products.UserPrompt(query, pageText))
	raw, err := r.callStructured(ctx, structuredCall{
		system:    r.systemPrompt(products.SystemPromptKey, products.SystemPrompt()),
		user:      user,
		schema:    products.SchemaJSON(),
		model:     r.cfg.PharmacyModel,
		requestID: fmt.Sprintf("%s-products-%d", runID, idx),
	})
	if err != nil {
		return nil, err
	}

	var parsed products.Result
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing candidate list: %w", err)
	}
	return parsed.Products, nil
}

func (r *Runner) matchCandidates(ctx context.Context, runID string, idx int, med medications.Medication, candidates []products.Product, diagnosisContext string) (FixedMedication, error) {
	data := match.UserPromptData{
		Name:         med.Name,
		Strength:     deref(med.Strength),
		Form:         deref(med.Form),
		Instructions: med.Instructions,
		Diagnoses:    diagnosisContext,
		Candidates:   candidates,
	}
	user := r.userPrompt(match.UserPromptKey, data, match.UserPrompt(data))

	raw, err := r.callStructured(ctx, structuredCall{
		system:    r.systemPrompt(match.SystemPromptKey, match.SystemPrompt()),
		user:      user,
		schema:    match.SchemaJSON(),
		model:     r.cfg.PharmacyModel,
		requestID: fmt.Sprintf("%s-match-%d", runID, idx),
	})
	if err != nil {
		return FixedMedication{}, err
	}

	var parsed match.Result
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return FixedMedication{}, fmt.Errorf("parsing match result: %w", err)
	}

	switch parsed.MatchType {
	case MatchExact, MatchAlternative:
		if parsed.ProductName == nil || parsed.ProductURL == nil {
			return noMatch(med, "match result missing product fields"), nil
		}
		return FixedMedication{
			Medication:  med,
			MatchType:   parsed.MatchType,
			ProductName: parsed.ProductName,
			ProductURL:  parsed.ProductURL,
			Confidence:  parsed.Confidence,
			Reasoning:   parsed.Reasoning,
		}, nil
	case MatchNone:
		fm := noMatch(med, parsed.Reasoning)
		return fm, nil
	default:
		return noMatch(med, "unrecognized match classification"), nil
	}
}

func noMatch(med medications.Medication, reasoning string) FixedMedication {
	return FixedMedication{
		Medication: med,
		MatchType:  MatchNone,
		Reasoning:  reasoning,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
