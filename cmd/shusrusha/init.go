package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shusrusha/shusrusha/internal/config"
)

var initForce bool

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a default config file",
	Long: `Write the default configuration to the given path (default:
./config.yaml). Edit it to change models, rate limits, and the pharmacy
catalog endpoint. API keys reference environment variables using
${ENV_VAR} syntax and are resolved at load time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	},
}

func init() {
	initConfigCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")

	rootCmd.AddCommand(initConfigCmd)
}
