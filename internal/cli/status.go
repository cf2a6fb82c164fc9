package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/nfowatch/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how many releases are available to process, by nfostatus",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	cfg, app := mustService(ctx, cmd)
	defer func() {
		_ = app.Stop(ctx)
	}()

	counts, err := app.Processor().Stats(ctx, cfg.NFO.GroupID, cfg.NFO.GUIDPrefix)
	if err != nil {
		slog.Error("Failed to count releases", "error", err)
		os.Exit(1)
	}

	statuses := make([]domain.NfoStatus, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "NFOSTATUS\tSTATE\tRELEASES")

	total := 0
	for _, s := range statuses {
		total += counts[s]
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\n", int(s), s, counts[s])
	}
	_, _ = fmt.Fprintf(w, "\tfloor %d\t%d\n", int(app.Processor().Floor()), total)
	_ = w.Flush()

	owner, err := app.LeaseOwner(ctx)
	if err != nil {
		slog.Warn("Failed to read partition lease", "error", err)
		return
	}
	if owner != "" {
		fmt.Printf("partition leased by %s\n", owner)
	}
}
