package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show transformation cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runCacheInfo,
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	out := cmd.OutOrStdout()

	if cacheJSONOutput {
		return printJSON(out, stats)
	}

	fmt.Fprintf(out, "Records:            %d\n", stats.RecordCount)
	fmt.Fprintf(out, "Pending embeddings: %d\n", stats.PendingEmbeddings)
	fmt.Fprintf(out, "Failed embeddings:  %d\n", stats.FailedEmbeddings)
	fmt.Fprintf(out, "Oldest:             %s\n", formatTime(stats.OldestRecord))
	fmt.Fprintf(out, "Newest:             %s\n", formatTime(stats.NewestRecord))

	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}
