package main

import (
	"fmt"
	"io"

	"github.com/faktion/registry/bootstrap"
	"github.com/faktion/registry/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and every catalog entry",
	Long: `Validate the registry before deployment.

Checks:
  - Configuration loads (file or REGISTRY_* environment)
  - The catalog parses and item names are unique
  - Every item passes the registry item schema
  - Every file of every item can be read

Exits non-zero when any item would fail to serve.

Examples:
  registry validate
  registry validate --config /etc/registry/registry.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)

	components, err := bootstrap.Build(cmd.Context(), cfg, zerolog.New(io.Discard))
	if err != nil {
		fmt.Fprintf(out, "  %s Catalog loaded\n", crossMark)
		return fmt.Errorf("catalog error: %w", err)
	}
	fmt.Fprintf(out, "  %s Catalog loaded: %s (%d items)\n", checkMark, cfg.Catalog.Path, components.Catalog.Len())
	if cfg.Auth.Token == "" {
		fmt.Fprintf(out, "  %s auth.token is not set, all requests will be rejected\n", crossMark)
	}
	fmt.Fprintln(out)

	failed := 0
	for _, check := range components.Distribution.CheckCatalog(cmd.Context()) {
		if check.OK() {
			fmt.Fprintf(out, "  %s %s\n", checkMark, check.Name)
			continue
		}
		failed++
		fmt.Fprintf(out, "  %s %s\n", crossMark, check.Name)
		if !check.Validation.Valid {
			fmt.Fprintf(out, "      %s\n", check.Validation.Summary())
		}
		if check.Err != nil {
			fmt.Fprintf(out, "      Error: %v\n", check.Err)
		}
	}

	fmt.Fprintln(out)
	if failed > 0 {
		return fmt.Errorf("%d of %d items failed validation", failed, components.Catalog.Len())
	}
	fmt.Fprintln(out, "Registry is valid.")
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
