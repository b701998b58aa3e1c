package main

import (
	"fmt"
	"os"

	"github.com/faktion/registry/bootstrap"
	"github.com/faktion/registry/config"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the registry server",
	Long: `Start the registry HTTP server.

The server will:
  - Load configuration from registry.yaml (or --config)
  - Or load configuration from REGISTRY_* environment variables
  - Load and index the catalog (registry.json)
  - Serve GET /r/{name} to clients holding the shared token

Environment variables (for container deployments):
  REGISTRY_AUTH_TOKEN       - Shared distribution secret
  REGISTRY_CATALOG_PATH     - Registry document (default: registry.json)
  REGISTRY_FILES_ROOT       - Directory holding the catalog's files (default: .)
  REGISTRY_SERVER_PORT      - Server port (default: 8080)
  REGISTRY_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  registry serve
  registry serve --config /etc/registry/registry.yaml
  registry serve --hot-reload=false

  # Container (env vars only):
  REGISTRY_AUTH_TOKEN=secret registry serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "reload logging.level when the config file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	// No configuration at all
	if !hasConfigFile && !config.HasEnvConfig() {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "No configuration found.")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Option 1: Create %s\n", cfgFile)
		fmt.Fprintln(out, "Option 2: Set REGISTRY_AUTH_TOKEN environment variable")
		return nil
	}

	opts := bootstrap.Options{Version: version}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with config file
		app, err = bootstrap.NewWithHotReload(cfgFile, opts)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}
		app, err = bootstrap.NewWithOptions(cfg, opts)
	}
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
