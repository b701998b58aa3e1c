package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "registry",
	Short: "Token-protected component registry",
	Long: `registry serves bundled UI components, hooks and recipes from a
static catalog to authenticated clients.

Quick start:
  registry validate  # Check every catalog entry and its files
  registry serve     # Start the HTTP server

Other commands:
  registry list      # Print catalog item names
  registry version   # Print build information`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "registry.yaml", "config file path")
}
