package nfo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/nfowatch/internal/core/domain"
	"github.com/vietddude/nfowatch/internal/infra/compress"
	"github.com/vietddude/nfowatch/internal/infra/fetcher"
	"github.com/vietddude/nfowatch/internal/infra/storage"
	"github.com/vietddude/nfowatch/internal/processing/classifier"
	"github.com/vietddude/nfowatch/internal/processing/metrics"
	"github.com/vietddude/nfowatch/internal/processing/retry"
)

// DefaultMaxPerRun is the batch size used when neither the request nor the
// configuration sets one.
const DefaultMaxPerRun = 100

// ErrPersistence wraps every store failure. It aborts the current batch.
var ErrPersistence = errors.New("nfo persistence failure")

// Classifier decides whether a blob is an NFO.
type Classifier interface {
	Classify(ctx context.Context, blob []byte, guid string) (classifier.Verdict, error)
}

// MovieExtractor consumes NFO text to find movie identifiers.
type MovieExtractor interface {
	OnNfoText(ctx context.Context, text string, releaseID int64, extractImdbIDs bool) error
}

// ShowScanner runs show identification over the partition.
type ShowScanner interface {
	OnDemandScan(ctx context.Context, groupID int64, guidPrefix string, enabled bool) error
}

// ShowTextExtractor is implemented by show scanners that also read show
// references from each stored NFO.
type ShowTextExtractor interface {
	OnShowText(ctx context.Context, text string, releaseID int64) error
}

// QuarantineJournal records releases moved to FAILED.
type QuarantineJournal interface {
	RecordQuarantine(ctx context.Context, releaseID int64, runID string) error
}

// Config wires a Processor.
type Config struct {
	Store      storage.ReleaseStore
	Fetcher    fetcher.Fetcher
	Classifier Classifier
	Movies     MovieExtractor
	Shows      ShowScanner
	// Journal is optional.
	Journal QuarantineJournal

	Retry     retry.Config
	Window    retry.SizeWindow
	MaxPerRun int

	// NewRunID overrides run id generation (tests).
	NewRunID func() string
	Logger   *slog.Logger
}

// BatchRequest selects the partition and options for one pass.
type BatchRequest struct {
	GroupID    int64
	GUIDPrefix string
	// Limit caps the releases attempted; <= 0 uses the configured max per run.
	Limit           int
	ExtractShowIDs  bool
	ExtractMovieIDs bool
}

// Processor runs NFO acquisition passes.
type Processor struct {
	cfg    Config
	floor  domain.NfoStatus
	logger *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(cfg Config) *Processor {
	if cfg.MaxPerRun <= 0 {
		cfg.MaxPerRun = DefaultMaxPerRun
	}
	if cfg.NewRunID == nil {
		cfg.NewRunID = func() string { return uuid.NewString() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		cfg:    cfg,
		floor:  cfg.Retry.Floor(),
		logger: logger.With("component", "nfo"),
	}
}

// Floor returns the lowest status still eligible for an attempt.
func (p *Processor) Floor() domain.NfoStatus {
	return p.floor
}

func (p *Processor) eligibility(f storage.Filters) storage.EligibilityQuery {
	return storage.EligibilityQuery{
		Filters: f,
		Floor:   p.floor,
		MinSize: p.cfg.Window.MinBytes,
		MaxSize: p.cfg.Window.MaxBytes,
	}
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// ProcessBatch fetches and classifies eligible releases, then quarantines
// releases that exhausted their retries. It returns how many NFOs were found.
func (p *Processor) ProcessBatch(ctx context.Context, req BatchRequest) (int, error) {
	start := time.Now()
	defer func() { metrics.BatchDuration.Observe(time.Since(start).Seconds()) }()

	runID := p.cfg.NewRunID()
	log := p.logger.With("run_id", runID)
	filters := storage.Filters{GroupID: req.GroupID, GUIDPrefix: req.GUIDPrefix}

	limit := req.Limit
	if limit <= 0 {
		limit = p.cfg.MaxPerRun
	}

	// 1. Select eligible releases
	q := p.eligibility(filters)
	q.Limit = limit
	releases, err := p.cfg.Store.FindEligible(ctx, q)
	if err != nil {
		return 0, persistErr("find eligible", err)
	}

	if len(releases) > 0 {
		log.Info("Processing NFOs",
			"count", len(releases),
			"group_id", req.GroupID,
			"guid_prefix", req.GUIDPrefix,
			"floor", int(p.floor))
		p.logAvailable(ctx, log, filters)
	}

	// 2-3. Fetch, classify and persist one release at a time
	found := 0
	for _, rel := range releases {
		if err := ctx.Err(); err != nil {
			log.Warn("NFO batch interrupted", "found", found, "error", err)
			return found, err
		}
		ok, err := p.processRelease(ctx, log, rel, req)
		if err != nil {
			return found, err
		}
		if ok {
			found++
		}
	}

	// 4. Quarantine sweep
	quarantined, err := p.sweep(ctx, log, runID, filters)
	if err != nil {
		return found, err
	}

	log.Info("NFO batch complete",
		"attempted", len(releases),
		"found", found,
		"quarantined", quarantined,
		"duration", time.Since(start))
	return found, nil
}

// logAvailable reports per-status counts of releases in scope. Failures are
// logged only; the eligibility query already succeeded.
func (p *Processor) logAvailable(ctx context.Context, log *slog.Logger, f storage.Filters) {
	counts, err := p.cfg.Store.CountByStatus(ctx, p.eligibility(f))
	if err != nil {
		log.Warn("Failed to count releases by status", "error", err)
		return
	}
	attrs := make([]any, 0, len(counts)*2)
	for status, n := range counts {
		attrs = append(attrs, strconv.Itoa(int(status)), n)
		metrics.PendingReleases.WithLabelValues(strconv.Itoa(int(status))).Set(float64(n))
	}
	log.Debug("Available to process", attrs...)
}

func (p *Processor) processRelease(
	ctx context.Context,
	log *slog.Logger,
	rel domain.ReleaseSummary,
	req BatchRequest,
) (bool, error) {
	log = log.With("release_id", rel.ID, "guid", rel.GUID)

	blob, err := p.cfg.Fetcher.Fetch(ctx, fetcher.Request{
		GUID:      rel.GUID,
		ReleaseID: rel.ID,
		GroupID:   rel.GroupID,
		GroupName: rel.GroupName,
	})
	if err != nil {
		// Shutdown is not a failed attempt.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		errType := "transport"
		if errors.Is(err, fetcher.ErrNotFound) {
			errType = "not_found"
		}
		metrics.FetchErrorsTotal.WithLabelValues(errType).Inc()
		log.Debug("NFO fetch failed", "reason", errType, "error", err)
		return false, p.retryLater(ctx, log, rel)
	}

	verdict, err := p.classify(ctx, blob, rel.GUID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		metrics.FetchErrorsTotal.WithLabelValues("probe").Inc()
		log.Debug("NFO probe failed", "error", err)
		return false, p.retryLater(ctx, log, rel)
	}

	if verdict == classifier.NotNfo {
		if err := p.cfg.Store.SetStatus(ctx, rel.ID, domain.StatusNoNfo); err != nil {
			return false, persistErr("set status", err)
		}
		metrics.ReleasesProcessed.WithLabelValues("no_nfo").Inc()
		log.Debug("Candidate is not an NFO")
		return false, nil
	}

	if err := p.storeNfo(ctx, rel.ID, blob); err != nil {
		return false, err
	}
	metrics.ReleasesProcessed.WithLabelValues("found").Inc()
	log.Debug("NFO found", "size", len(blob))

	p.extractMovie(ctx, log, rel.ID, blob, req.ExtractMovieIDs)
	if req.ExtractShowIDs && p.cfg.Shows != nil {
		if st, ok := p.cfg.Shows.(ShowTextExtractor); ok {
			if err := st.OnShowText(ctx, string(blob), rel.ID); err != nil {
				metrics.ExtractorErrorsTotal.WithLabelValues("show").Inc()
				log.Warn("Show id extraction failed", "error", err)
			}
		}
		if err := p.cfg.Shows.OnDemandScan(ctx, req.GroupID, req.GUIDPrefix, true); err != nil {
			metrics.ExtractorErrorsTotal.WithLabelValues("show").Inc()
			log.Warn("Show scan failed", "error", err)
		}
	}
	return true, nil
}

func (p *Processor) classify(ctx context.Context, blob []byte, guid string) (classifier.Verdict, error) {
	start := time.Now()
	verdict, err := p.cfg.Classifier.Classify(ctx, blob, guid)
	label := verdict.String()
	if err != nil {
		label = "error"
	}
	metrics.ClassifyDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	return verdict, err
}

// retryLater consumes one attempt for a release still in scope.
func (p *Processor) retryLater(ctx context.Context, log *slog.Logger, rel domain.ReleaseSummary) error {
	next := retry.Decrement(rel.NfoStatus)
	if err := p.cfg.Store.SetStatus(ctx, rel.ID, next); err != nil {
		return persistErr("set status", err)
	}
	metrics.ReleasesProcessed.WithLabelValues("retry").Inc()
	log.Debug("NFO attempt consumed", "status", next.String())
	return nil
}

// storeNfo writes the compressed payload unless one exists, then marks the
// release FOUND.
func (p *Processor) storeNfo(ctx context.Context, releaseID int64, blob []byte) error {
	payload, err := compress.Encode(blob)
	if err != nil {
		return fmt.Errorf("compress nfo: %w", err)
	}
	if _, err := p.cfg.Store.InsertPayloadIfAbsent(ctx, releaseID, payload); err != nil {
		return persistErr("insert payload", err)
	}
	if err := p.cfg.Store.SetStatus(ctx, releaseID, domain.StatusFound); err != nil {
		return persistErr("set status", err)
	}
	return nil
}

func (p *Processor) extractMovie(ctx context.Context, log *slog.Logger, releaseID int64, blob []byte, extractImdbIDs bool) {
	if p.cfg.Movies == nil {
		return
	}
	if err := p.cfg.Movies.OnNfoText(ctx, string(blob), releaseID, extractImdbIDs); err != nil {
		metrics.ExtractorErrorsTotal.WithLabelValues("movie").Inc()
		log.Warn("Movie extractor failed", "error", err)
	}
}

// sweep quarantines releases below the retry floor and drops their NULL
// payload rows.
func (p *Processor) sweep(ctx context.Context, log *slog.Logger, runID string, f storage.Filters) (int, error) {
	ids, err := p.cfg.Store.FindQuarantineCandidates(ctx, p.floor, f)
	if err != nil {
		return 0, persistErr("find quarantine candidates", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if bulk, ok := p.cfg.Store.(storage.Quarantiner); ok {
		if err := bulk.QuarantineReleases(ctx, ids); err != nil {
			return 0, persistErr("quarantine releases", err)
		}
	} else {
		for _, id := range ids {
			if err := p.cfg.Store.DeleteNullPayload(ctx, id); err != nil {
				return 0, persistErr("delete null payload", err)
			}
			if err := p.cfg.Store.SetStatus(ctx, id, domain.StatusFailed); err != nil {
				return 0, persistErr("set status", err)
			}
		}
	}
	metrics.QuarantinedTotal.Add(float64(len(ids)))

	if p.cfg.Journal != nil {
		for _, id := range ids {
			if err := p.cfg.Journal.RecordQuarantine(ctx, id, runID); err != nil {
				log.Warn("Failed to journal quarantine", "release_id", id, "error", err)
			}
		}
	}

	log.Info("Quarantined releases", "count", len(ids), "floor", int(p.floor))
	return len(ids), nil
}
