package main

import (
	"context"
	"encoding/json"
	"io"
	"text/tabwriter"

	"github.com/hyperengineering/pagesmith/internal/config"
	"github.com/hyperengineering/pagesmith/internal/store"
	"github.com/spf13/cobra"
)

var cacheJSONOutput bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the transformation cache",
	Long:  "Inspect stored transformations without running the server.",
}

func init() {
	cacheCmd.PersistentFlags().BoolVar(&cacheJSONOutput, "json", false,
		"Output in JSON format")

	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheListCmd)
}

// openStore opens the configured store. It needs no service credentials.
func openStore(ctx context.Context) (store.Store, error) {
	db, err := config.LoadDatabase()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, storeOptions(db))
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// truncate shortens s to at most n runes for table output.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
