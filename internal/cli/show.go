package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vietddude/nfowatch/internal/infra/compress"
	"github.com/vietddude/nfowatch/internal/infra/storage"
	"github.com/vietddude/nfowatch/internal/processing/extract"
)

var showCmd = &cobra.Command{
	Use:   "show <release-id>",
	Short: "Print the stored NFO of a release",
	Args:  cobra.ExactArgs(1),
	Run:   runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(os.Stderr, "invalid release id %q\n", args[0])
		os.Exit(1)
	}

	ctx := context.Background()
	_, app := mustService(ctx, cmd)
	defer func() {
		_ = app.Stop(ctx)
	}()

	payload, err := app.Store().Payload(ctx, id)
	if errors.Is(err, storage.ErrPayloadNotFound) {
		fmt.Fprintf(os.Stderr, "release %d has no stored NFO\n", id)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("Failed to load payload", "release_id", id, "error", err)
		os.Exit(1)
	}

	text, err := compress.Decode(payload)
	if err != nil {
		slog.Error("Failed to decode payload", "release_id", id, "error", err)
		os.Exit(1)
	}
	_, _ = os.Stdout.Write(text)

	if sid, ok := extract.ParseShowID(string(text)); ok {
		slog.Info("Show reference", "site", sid.Site, "id", sid.ID)
	}
}
