package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shusrusha/shusrusha/version"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "shusrusha",
	Short: "Discharge summary digitization with LLM-powered extraction",
	Long: `Shusrusha converts photographed hospital discharge summaries into a
structured, shoppable report.

The pipeline includes:
  - LLM-vision transcription of each page into markdown
  - Diagnosis and lab finding extraction
  - Medication list extraction with dosing instructions
  - Pharmacy catalog matching with confidence scoring
  - Self-contained HTML report generation`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.shusrusha/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger honoring the verbose flag.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
