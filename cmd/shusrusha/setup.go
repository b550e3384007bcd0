package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shusrusha/shusrusha/internal/config"
	"github.com/shusrusha/shusrusha/internal/pharmacy"
	"github.com/shusrusha/shusrusha/internal/pipeline"
	"github.com/shusrusha/shusrusha/internal/prompts"
	"github.com/shusrusha/shusrusha/internal/prompts/diagnoses"
	"github.com/shusrusha/shusrusha/internal/prompts/match"
	"github.com/shusrusha/shusrusha/internal/prompts/medications"
	"github.com/shusrusha/shusrusha/internal/prompts/ocr"
	"github.com/shusrusha/shusrusha/internal/prompts/products"
	"github.com/shusrusha/shusrusha/internal/providers"
)

// newResolver registers every stage's embedded prompts.
func newResolver(logger *slog.Logger) *prompts.Resolver {
	resolver := prompts.NewResolver(logger)
	ocr.RegisterPrompts(resolver)
	diagnoses.RegisterPrompts(resolver)
	medications.RegisterPrompts(resolver)
	products.RegisterPrompts(resolver)
	match.RegisterPrompts(resolver)
	return resolver
}

// buildRunner wires a pipeline runner from loaded configuration.
func buildRunner(cfgMgr *config.Manager, registry *providers.Registry, logger *slog.Logger) (*pipeline.Runner, error) {
	cfg := cfgMgr.Get()

	llm, err := registry.GetLLM(cfg.Defaults.LLMProvider)
	if err != nil {
		return nil, fmt.Errorf("resolving default LLM provider: %w", err)
	}

	catalog := pharmacy.NewClient(cfg.Pharmacy, logger)
	resolver := newResolver(logger)

	return pipeline.NewRunner(llm, catalog, resolver, pipeline.Config{
		OCRModel:        cfg.Defaults.OCRModel,
		ExtractionModel: cfg.Defaults.ExtractionModel,
		PharmacyModel:   cfg.Defaults.PharmacyModel,
		MaxWorkers:      cfg.Defaults.MaxWorkers,
		RequestTimeout:  time.Duration(cfg.Defaults.RequestTimeoutSeconds) * time.Second,
	}, logger), nil
}

// loadProviders creates the provider registry from configuration.
func loadProviders(cfgMgr *config.Manager, logger *slog.Logger) *providers.Registry {
	registry := providers.NewRegistryFromConfig(cfgMgr.Get().ToProviderRegistryConfig())
	registry.SetLogger(logger)
	return registry
}
