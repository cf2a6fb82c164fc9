package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var ingestReleaseID int64

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Store an NFO obtained outside the gateway for a release",
	Args:  cobra.ExactArgs(1),
	Run:   runIngest,
}

func init() {
	ingestCmd.Flags().Int64Var(&ingestReleaseID, "release-id", 0, "release to attach the NFO to")
	_ = ingestCmd.MarkFlagRequired("release-id")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	_, app := mustService(ctx, cmd)
	defer func() {
		_ = app.Stop(ctx)
	}()

	data, err := os.ReadFile(args[0])
	if err != nil {
		slog.Error("Failed to read file", "path", args[0], "error", err)
		os.Exit(1)
	}

	release, err := app.Release(ctx, ingestReleaseID)
	if err != nil {
		slog.Error("Failed to load release", "release_id", ingestReleaseID, "error", err)
		os.Exit(1)
	}

	ok, err := app.Processor().IngestAlternate(ctx, data, *release, app.ContentScanner())
	if err != nil {
		slog.Error("Failed to ingest NFO", "release_id", ingestReleaseID, "error", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Printf("rejected\t%d\n", ingestReleaseID)
		os.Exit(2)
	}
	fmt.Printf("stored\t%d\n", ingestReleaseID)
}
