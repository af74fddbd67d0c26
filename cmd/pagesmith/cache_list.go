package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var cacheListLimit int

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent transformations",
	Args:  cobra.NoArgs,
	RunE:  runCacheList,
}

func init() {
	cacheListCmd.Flags().IntVar(&cacheListLimit, "limit", 20, "Maximum number of records to show")
}

func runCacheList(cmd *cobra.Command, args []string) error {
	if cacheListLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", cacheListLimit)
	}
	ctx := cmd.Context()

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.List(ctx, cacheListLimit)
	if err != nil {
		return fmt.Errorf("list transformations: %w", err)
	}

	if cacheJSONOutput {
		items := make([]map[string]any, len(recs))
		for i, r := range recs {
			items[i] = map[string]any{
				"id":                r.ID,
				"embedding_status":  r.EmbeddingStatus,
				"created_at":        r.CreatedAt,
				"original_bytes":    len(r.Original),
				"transformed_bytes": len(r.Transformed),
			}
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"transformations": items,
			"total":           len(items),
		})
	}

	if len(recs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No transformations found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tCREATED\tEMBEDDING\tTRANSFORMED")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.EmbeddingStatus,
			truncate(strings.Join(strings.Fields(r.Transformed), " "), 48),
		)
	}
	w.Flush()

	return nil
}
