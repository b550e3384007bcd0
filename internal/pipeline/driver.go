package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/shusrusha/shusrusha/internal/prompts"
	"github.com/shusrusha/shusrusha/internal/providers"
)

// Precondition failures. These are the only errors that abort a run;
// every other stage failure degrades to partial output.
var (
	ErrNoImages      = errors.New("no images to process")
	ErrEmptyMarkdown = errors.New("transcription produced no text")
)

// CatalogSearcher fetches catalog search pages for a medication name.
type CatalogSearcher interface {
	Search(ctx context.Context, term string) (string, error)
}

// Config selects models and bounds for one Runner.
type Config struct {
	OCRModel        string // vision model for page transcription
	ExtractionModel string // diagnosis/medication extraction
	PharmacyModel   string // catalog parsing and product matching
	MaxWorkers      int    // concurrent reconciliation workers
	RequestTimeout  time.Duration
}

func (c *Config) applyDefaults() {
	if c.OCRModel == "" {
		c.OCRModel = "gpt-4o"
	}
	if c.ExtractionModel == "" {
		c.ExtractionModel = "gpt-4o-mini"
	}
	if c.PharmacyModel == "" {
		c.PharmacyModel = "gpt-4o"
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 6
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 120 * time.Second
	}
}

// Runner drives the pipeline stages over one State at a time. A Runner
// is safe to reuse across runs; each run owns its own State.
type Runner struct {
	llm      providers.LLMClient
	catalog  CatalogSearcher
	resolver *prompts.Resolver
	cfg      Config
	logger   *slog.Logger
}

// NewRunner creates a pipeline runner.
func NewRunner(llm providers.LLMClient, catalog CatalogSearcher, resolver *prompts.Resolver, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &Runner{
		llm:      llm,
		catalog:  catalog,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run executes all stages in order. It returns an error only for
// precondition failures; stage-local failures are absorbed and leave
// degraded-but-present data in the state.
func (r *Runner) Run(ctx context.Context, st *State) error {
	if len(st.Images) == 0 {
		return ErrNoImages
	}
	start := time.Now()
	r.logger.Info("run started", "run_id", st.RunID, "pages", len(st.Images))

	if err := r.RunOCR(ctx, st); err != nil {
		return err
	}
	if strings.TrimSpace(st.Markdown) == "" {
		return ErrEmptyMarkdown
	}

	r.ExtractDiagnoses(ctx, st)
	r.ExtractMedications(ctx, st)

	if err := r.Reconcile(ctx, st); err != nil {
		return err
	}
	if err := r.RenderReport(st); err != nil {
		return err
	}

	r.logger.Info("run finished",
		"run_id", st.RunID,
		"conditions", len(st.conditions()),
		"medications", len(st.Medications),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (s *State) conditions() []string {
	if s.Diagnoses == nil {
		return nil
	}
	return s.Diagnoses.Conditions
}

// systemPrompt resolves a stage system prompt, honoring runtime
// overrides when a resolver is configured.
func (r *Runner) systemPrompt(key, embedded string) string {
	if r.resolver == nil {
		return embedded
	}
	resolved, err := r.resolver.Resolve(key)
	if err != nil {
		return embedded
	}
	return resolved.Text
}

// userPrompt resolves a stage user prompt. When an override template is
// installed for the key it is rendered with the stage's data; otherwise
// rendered is the embedded template's output, passed in pre-rendered by
// the stage package.
func (r *Runner) userPrompt(key string, data any, rendered string) string {
	if r.resolver == nil {
		return rendered
	}
	resolved, err := r.resolver.Resolve(key)
	if err != nil || !resolved.IsOverride {
		return rendered
	}
	tmpl, err := template.New(key).Parse(resolved.Text)
	if err != nil {
		r.logger.Warn("user prompt override does not parse, using embedded", "key", key, "error", err)
		return rendered
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		r.logger.Warn("user prompt override failed to render, using embedded", "key", key, "error", err)
		return rendered
	}
	return buf.String()
}
