package cli

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/nfowatch/internal/control"
	"github.com/vietddude/nfowatch/internal/core/config"
)

var (
	cfgPath    string
	isDebug    bool
	groupID    int64
	guidPrefix string
	limit      int
	interval   time.Duration
	noTV       bool
	noIMDb     bool
)

var rootCmd = &cobra.Command{
	Use:   "nfowatch",
	Short: "NFO acquisition and classification service",
	Long: `nfowatch fetches NFO candidates for imported releases, classifies them,
stores genuine NFOs and quarantines releases that keep failing.`,
	Run: runService,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Int64Var(&groupID, "group-id", 0, "only process releases of this group")
	rootCmd.PersistentFlags().StringVar(&guidPrefix, "guid-prefix", "", "only process releases whose guid starts with this prefix")

	rootCmd.Flags().IntVar(&limit, "limit", 0, "releases per pass (default from config)")
	rootCmd.Flags().DurationVar(&interval, "interval", 0, "time between passes; 0 runs once (default from config)")
	rootCmd.Flags().BoolVar(&noTV, "no-tv", false, "skip show id scans")
	rootCmd.Flags().BoolVar(&noIMDb, "no-imdb", false, "skip IMDb id extraction")
}

// loadConfig reads the config file, falling back to defaults when the
// default path does not exist, and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("group-id") {
		cfg.NFO.GroupID = groupID
	}
	if flags.Changed("guid-prefix") {
		cfg.NFO.GUIDPrefix = guidPrefix
	}
	if flags.Changed("limit") && limit > 0 {
		cfg.NFO.MaxPerRun = limit
	}
	if flags.Changed("interval") {
		cfg.NFO.Interval = interval
	}
	if noTV {
		cfg.NFO.ProcessTV = false
	}
	if noIMDb {
		cfg.NFO.ProcessIMDb = false
	}
	return cfg, nil
}

func setupLogging(cfg *config.AppConfig) {
	// Setup logging
	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
}

// mustService loads config, sets up logging and wires the service.
func mustService(ctx context.Context, cmd *cobra.Command) (*config.AppConfig, *control.Service) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	svc, err := control.NewService(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize nfowatch", "error", err)
		os.Exit(1)
	}
	return cfg, svc
}

func runService(cmd *cobra.Command, args []string) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, app := mustService(ctx, cmd)
	if err := cfg.ValidatePipeline(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		_ = app.Stop(ctx)
		os.Exit(1)
	}

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start nfowatch", "error", err)
		os.Exit(1)
	}

	slog.Info("nfowatch started", "config", cfgPath)

	runErr := app.Run(ctx)
	if ctx.Err() != nil {
		slog.Info("Received signal, shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
	if runErr != nil {
		slog.Error("NFO pass failed", "error", runErr)
		os.Exit(1)
	}
}
