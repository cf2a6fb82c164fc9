package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var quarantinedLimit int

var quarantinedCmd = &cobra.Command{
	Use:   "quarantined",
	Short: "List recently quarantined releases from the Redis journal",
	Run:   runQuarantined,
}

func init() {
	quarantinedCmd.Flags().IntVar(&quarantinedLimit, "limit", 20, "entries to show")
	rootCmd.AddCommand(quarantinedCmd)
}

func runQuarantined(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	_, app := mustService(ctx, cmd)
	defer func() {
		_ = app.Stop(ctx)
	}()

	journal := app.Journal()
	if journal == nil {
		slog.Error("Quarantine journal needs redis.url to be configured")
		os.Exit(1)
	}

	entries, err := journal.Recent(ctx, quarantinedLimit)
	if err != nil {
		slog.Error("Failed to read quarantine journal", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "RELEASE\tRUN\tAT")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", e.ReleaseID, e.RunID, e.At.Format(time.RFC3339))
	}
	_ = w.Flush()
}
