package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vietddude/nfowatch/internal/control"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file>...",
	Short: "Classify local files as NFO or not",
	Args:  cobra.MinimumNArgs(1),
	Run:   runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	// Classification needs no database or gateway.
	c := control.NewClassifier(cfg.NFO)
	ctx := context.Background()

	failed := false
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Error("Failed to read file", "path", path, "error", err)
			failed = true
			continue
		}
		verdict, err := c.Classify(ctx, data, filepath.Base(path))
		if err != nil {
			slog.Error("Classification failed", "path", path, "error", err)
			failed = true
			continue
		}
		fmt.Printf("%s\t%s\n", verdict, path)
	}
	if failed {
		os.Exit(1)
	}
}
