package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shusrusha/shusrusha/internal/config"
	"github.com/shusrusha/shusrusha/internal/ingest"
	"github.com/shusrusha/shusrusha/internal/pipeline"
)

var (
	processOutDir    string
	processSaveState bool
)

var processCmd = &cobra.Command{
	Use:   "process <image-or-pdf>...",
	Short: "Process discharge summary images into a report",
	Long: `Run the full pipeline over one discharge summary.

Inputs are image files (jpg, png, webp) in page order, or PDFs rendered
one page per PDF page. Artifacts are written to the output directory:

  discharge.md            transcribed markdown
  diagnoses.json          extracted conditions and lab findings
  medications.json        extracted medication list
  fixed_medications.json  catalog matches per medication
  summary.html            final report

Examples:
  shusrusha process page1.jpg page2.jpg
  shusrusha process summary.pdf -o ./out --save-state`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		registry := loadProviders(cfgMgr, logger)
		runner, err := buildRunner(cfgMgr, registry, logger)
		if err != nil {
			return err
		}

		pages, err := ingest.LoadPages(args, logger)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(processOutDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}

		st := pipeline.NewState(pages)
		if err := runner.Run(cmd.Context(), st); err != nil {
			return err
		}

		if err := writeArtifacts(st, processOutDir); err != nil {
			return err
		}
		if processSaveState {
			if err := st.Save(filepath.Join(processOutDir, "state.json")); err != nil {
				return err
			}
		}

		fmt.Printf("Report written to %s\n", filepath.Join(processOutDir, "summary.html"))
		return nil
	},
}

func writeArtifacts(st *pipeline.State, outDir string) error {
	if err := os.WriteFile(filepath.Join(outDir, "discharge.md"), []byte(st.Markdown), 0o644); err != nil {
		return fmt.Errorf("writing markdown: %w", err)
	}
	for name, v := range map[string]any{
		"diagnoses.json":         st.Diagnoses,
		"medications.json":       st.Medications,
		"fixed_medications.json": st.FixedMedications,
	} {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(outDir, "summary.html"), []byte(st.HTMLSummary), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func init() {
	processCmd.Flags().StringVarP(&processOutDir, "output-dir", "o", ".", "directory for output artifacts")
	processCmd.Flags().BoolVar(&processSaveState, "save-state", false, "also persist the full run state as state.json")

	rootCmd.AddCommand(processCmd)
}
