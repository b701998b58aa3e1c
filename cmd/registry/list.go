package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/faktion/registry/bootstrap"
	"github.com/faktion/registry/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog items",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	cat, err := bootstrap.LoadCatalog(cmd.Context(), cfg.Catalog.Path, zerolog.New(io.Discard))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tFILES")
	for _, e := range cat.Entries() {
		fmt.Fprintf(w, "%s\t%s\t%d\n", e.Name, e.Type, len(e.Files))
	}
	return w.Flush()
}
