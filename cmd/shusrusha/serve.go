package main

import (
	"github.com/spf13/cobra"

	"github.com/shusrusha/shusrusha/internal/config"
	"github.com/shusrusha/shusrusha/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the shusrusha HTTP server",
	Long: `Start the local HTTP API server.

The server provides:
  - GET  /health   - Basic health check (no auth)
  - GET  /status   - Server status (bearer auth)
  - POST /process  - Run the pipeline over uploaded images (bearer auth)

Authentication uses a bearer token from server.auth_token in the config
(by default read from the SHUSRUSHA_API_SECRET environment variable).
Configuration changes on disk are picked up without a restart.

Examples:
  shusrusha serve                  # Start on default port 5000
  shusrusha serve --port 8080      # Start on custom port
  shusrusha serve --host 0.0.0.0   # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		registry := loadProviders(cfgMgr, logger)

		// Watch for config changes
		cfgMgr.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
			logger.Info("provider registry reloaded from config")
		})
		cfgMgr.WatchConfig()

		runner, err := buildRunner(cfgMgr, registry, logger)
		if err != nil {
			return err
		}

		serverCfg := cfgMgr.Get().Server
		if serveHost != "" {
			serverCfg.Host = serveHost
		}
		if servePort != "" {
			serverCfg.Port = servePort
		}
		serverCfg.AuthToken = config.ResolveEnvVars(serverCfg.AuthToken)

		srv, err := server.New(server.Config{
			Server: serverCfg,
			Runner: runner,
			Logger: logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "host to bind to (default from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
