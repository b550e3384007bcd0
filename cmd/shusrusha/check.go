package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shusrusha/shusrusha/internal/config"
	"github.com/shusrusha/shusrusha/internal/providers"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify provider configuration and connectivity",
	Long: `Load the configuration and health-check every enabled LLM provider.
Fails if any configured provider is unreachable or its API key is
rejected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		registry := loadProviders(cfgMgr, logger)

		names := registry.ListLLM()
		if len(names) == 0 {
			return fmt.Errorf("no LLM providers configured (is OPENAI_API_KEY set?)")
		}

		failed := 0
		for _, name := range names {
			client, err := registry.GetLLM(name)
			if err != nil {
				return err
			}
			checker, ok := client.(providers.HealthChecker)
			if !ok {
				fmt.Printf("%-12s no health check\n", name)
				continue
			}
			if err := checker.HealthCheck(cmd.Context()); err != nil {
				fmt.Printf("%-12s FAIL: %v\n", name, err)
				failed++
				continue
			}
			fmt.Printf("%-12s ok\n", name)
		}

		if failed > 0 {
			return fmt.Errorf("%d provider(s) failed health check", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
