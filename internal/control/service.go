package control

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/nfowatch/internal/core/config"
	"github.com/vietddude/nfowatch/internal/core/domain"
	"github.com/vietddude/nfowatch/internal/infra/fetcher"
	redisclient "github.com/vietddude/nfowatch/internal/infra/redis"
	"github.com/vietddude/nfowatch/internal/infra/storage"
	"github.com/vietddude/nfowatch/internal/infra/storage/memory"
	"github.com/vietddude/nfowatch/internal/infra/storage/postgres"
	"github.com/vietddude/nfowatch/internal/processing/classifier"
	"github.com/vietddude/nfowatch/internal/processing/extract"
	"github.com/vietddude/nfowatch/internal/processing/health"
	"github.com/vietddude/nfowatch/internal/processing/nfo"
	"github.com/vietddude/nfowatch/internal/processing/retry"
)

// Service wires storage, fetcher, classifier and the NFO processor.
type Service struct {
	cfg          *config.AppConfig
	store        storage.ReleaseStore
	db           *postgres.DB
	memStore     *memory.MemoryStorage
	redisClient  *redisclient.Client
	journal      *redisclient.QuarantineJournal
	fetcher      *fetcher.HTTPFetcher
	classifier   *classifier.Classifier
	processor    *nfo.Processor
	runner       *Runner
	healthMon    *health.Monitor
	healthServer *health.Server
	log          *slog.Logger
}

// NewService creates a Service with all dependencies initialized.
func NewService(ctx context.Context, cfg *config.AppConfig) (*Service, error) {
	s := &Service{cfg: cfg, log: slog.Default()}

	// 1. Initialize Storage
	var (
		movies storage.MovieRepository
		shows  storage.ShowRepository
	)
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := postgres.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		repo := postgres.NewReleaseRepo(db)
		s.db = db
		s.store = repo
		movies = repo
		shows = repo
		s.log.Info("Using PostgreSQL storage")
	} else {
		s.memStore = memory.NewMemoryStorage()
		s.store = s.memStore
		movies = s.memStore
		shows = s.memStore
		s.log.Info("Using Memory storage")
	}

	// 2. Initialize Redis (optional)
	var journal nfo.QuarantineJournal
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			s.log.Warn("Failed to connect to Redis, lease and journal disabled", "error", err)
		} else {
			s.redisClient = client
			s.journal = redisclient.NewQuarantineJournal(client)
			journal = s.journal
		}
	}

	// 3. Fetcher and classifier
	s.fetcher = fetcher.NewHTTPFetcher(cfg.Fetcher)
	s.classifier = NewClassifier(cfg.NFO)

	// 4. Processor
	s.processor = nfo.NewProcessor(nfo.Config{
		Store:      s.store,
		Fetcher:    s.fetcher,
		Classifier: s.classifier,
		Movies:     extract.NewMovieIDExtractor(movies),
		Shows:      extract.NewShowIDScanner(shows),
		Journal:    journal,
		Retry:      retry.Config{MaxRetries: cfg.NFO.MaxRetries},
		Window:     retry.NewSizeWindow(cfg.NFO.MinSizeMB, cfg.NFO.MaxSizeGB),
		MaxPerRun:  cfg.NFO.MaxPerRun,
	})

	// 5. Runner
	runnerCfg := RunnerConfig{
		Request: nfo.BatchRequest{
			GroupID:         cfg.NFO.GroupID,
			GUIDPrefix:      cfg.NFO.GUIDPrefix,
			Limit:           cfg.NFO.MaxPerRun,
			ExtractShowIDs:  cfg.NFO.ProcessTV,
			ExtractMovieIDs: cfg.NFO.ProcessIMDb,
		},
		Interval: cfg.NFO.Interval,
		LeaseTTL: cfg.Redis.LeaseTTL,
		Owner:    instanceID(),
	}
	if s.redisClient != nil {
		runnerCfg.Lease = s.redisClient
	}
	s.runner = NewRunner(runnerCfg, s.processor)

	// 6. Health
	s.healthMon = health.NewMonitor(10 * time.Second)
	s.healthMon.Register("store", s.store, true)
	s.healthMon.Register("fetcher", s.fetcher, false)
	if s.redisClient != nil {
		s.healthMon.Register("redis", s.redisClient, false)
	}
	if cfg.Server.Port > 0 {
		s.healthServer = health.NewServer(s.healthMon, cfg.Server.Port)
	}

	return s, nil
}

// NewClassifier builds the classifier described by the nfo config section.
func NewClassifier(cfg config.NFOConfig) *classifier.Classifier {
	return classifier.New(classifier.Config{
		TmpDir:   cfg.TmpPath,
		Prober:   newProber(cfg),
		Analyzer: classifier.FFprobeAnalyzer{Binary: cfg.FFprobeBinary},
	})
}

func newProber(cfg config.NFOConfig) classifier.SignatureProber {
	if cfg.Prober == "file" {
		return classifier.FileCommandProber{Binary: cfg.FileBinary}
	}
	return classifier.LibraryProber{}
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "nfowatch"
	}
	return host + "-" + uuid.NewString()[:8]
}

// Start starts the background components: health server and DB metrics.
func (s *Service) Start(ctx context.Context) error {
	if s.healthServer != nil {
		go func() {
			if err := s.healthServer.Start(); err != nil {
				s.log.Error("Health server failed", "error", err)
			}
		}()
	}

	if s.db != nil {
		s.db.StartMetricsCollector(ctx)
	}
	return nil
}

// Run executes NFO passes until ctx is done, or one pass when no interval
// is configured.
func (s *Service) Run(ctx context.Context) error {
	if err := s.cfg.ValidatePipeline(); err != nil {
		return err
	}
	s.log.Info("Starting NFO runner",
		"interval", s.cfg.NFO.Interval,
		"group_id", s.cfg.NFO.GroupID,
		"guid_prefix", s.cfg.NFO.GUIDPrefix,
		"max_per_run", s.cfg.NFO.MaxPerRun,
		"floor", int(s.processor.Floor()))
	return s.runner.Run(ctx)
}

// Stop releases every connection.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("Stopping nfowatch...")

	var firstErr error
	if s.healthServer != nil {
		if err := s.healthServer.Stop(ctx); err != nil {
			firstErr = err
		}
	}

	// Close Redis
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Processor returns the NFO processor.
func (s *Service) Processor() *nfo.Processor { return s.processor }

// Classifier returns the configured classifier.
func (s *Service) Classifier() *classifier.Classifier { return s.classifier }

// Store returns the release store.
func (s *Service) Store() storage.ReleaseStore { return s.store }

// ContentScanner returns the gateway client used for full content scans.
func (s *Service) ContentScanner() fetcher.ContentScanner { return s.fetcher }

// Journal returns the quarantine journal, or nil without Redis.
func (s *Service) Journal() *redisclient.QuarantineJournal { return s.journal }

// LeaseOwner returns the instance holding the configured partition, or ""
// when it is free or Redis is not configured.
func (s *Service) LeaseOwner(ctx context.Context) (string, error) {
	if s.redisClient == nil {
		return "", nil
	}
	return s.redisClient.LeaseOwner(ctx, s.cfg.NFO.GUIDPrefix)
}

// Release loads one release for alternate ingest.
func (s *Service) Release(ctx context.Context, id int64) (*domain.Release, error) {
	return s.store.GetRelease(ctx, id)
}
