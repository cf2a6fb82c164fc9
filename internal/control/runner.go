package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vietddude/nfowatch/internal/processing/metrics"
	"github.com/vietddude/nfowatch/internal/processing/nfo"
)

// BatchProcessor runs one NFO pass.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, req nfo.BatchRequest) (int, error)
}

// ErrLeaseLost is returned when the partition lease could not be kept for
// the whole pass.
var ErrLeaseLost = errors.New("partition lease lost")

// Lease guards a guid partition so only one instance processes it at a time.
type Lease interface {
	AcquireLease(ctx context.Context, partition, owner string, ttl time.Duration) (bool, error)
	RefreshLease(ctx context.Context, partition, owner string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, partition, owner string) error
}

// RunnerConfig configures the pass loop.
type RunnerConfig struct {
	Request nfo.BatchRequest
	// Interval between passes; 0 runs a single pass.
	Interval time.Duration
	// Lease is optional. Without it every pass runs.
	Lease    Lease
	LeaseTTL time.Duration
	// RefreshInterval between lease extensions; defaults to a third of LeaseTTL.
	RefreshInterval time.Duration
	Owner           string
}

// Runner repeats NFO passes on an interval.
type Runner struct {
	cfg     RunnerConfig
	proc    BatchProcessor
	running atomic.Bool
	log     *slog.Logger
}

// NewRunner creates a pass loop around proc.
func NewRunner(cfg RunnerConfig, proc BatchProcessor) *Runner {
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 10 * time.Minute
	}
	if cfg.RefreshInterval <= 0 || cfg.RefreshInterval >= cfg.LeaseTTL {
		cfg.RefreshInterval = cfg.LeaseTTL / 3
	}
	return &Runner{
		cfg:  cfg,
		proc: proc,
		log:  slog.Default().With("component", "runner", "guid_prefix", cfg.Request.GUIDPrefix),
	}
}

// RunPass runs one pass under the partition lease. ran is false when another
// instance holds the lease.
func (r *Runner) RunPass(ctx context.Context) (found int, ran bool, err error) {
	partition := r.cfg.Request.GUIDPrefix

	if r.cfg.Lease != nil {
		ok, err := r.cfg.Lease.AcquireLease(ctx, partition, r.cfg.Owner, r.cfg.LeaseTTL)
		if err != nil {
			return 0, false, fmt.Errorf("acquire lease: %w", err)
		}
		if !ok {
			metrics.LeaseSkipsTotal.Inc()
			r.log.Info("Partition leased by another instance, skipping pass")
			return 0, false, nil
		}
		defer func() {
			// Release even when ctx is cancelled
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := r.cfg.Lease.ReleaseLease(releaseCtx, partition, r.cfg.Owner); err != nil {
				r.log.Warn("Failed to release lease", "error", err)
			}
		}()
	}

	if r.cfg.Lease == nil {
		found, err = r.proc.ProcessBatch(ctx, r.cfg.Request)
		return found, true, err
	}

	passCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go r.keepLease(passCtx, cancel, partition)

	found, err = r.proc.ProcessBatch(passCtx, r.cfg.Request)
	if cause := context.Cause(passCtx); errors.Is(cause, ErrLeaseLost) {
		return found, true, cause
	}
	return found, true, err
}

// keepLease extends the lease until ctx ends. The pass is cancelled as soon
// as the lease cannot be extended, before another instance can claim it.
func (r *Runner) keepLease(ctx context.Context, cancel context.CancelCauseFunc, partition string) {
	ticker := time.NewTicker(r.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		ok, err := r.cfg.Lease.RefreshLease(ctx, partition, r.cfg.Owner, r.cfg.LeaseTTL)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.log.Error("Failed to refresh lease, aborting pass", "error", err)
			cancel(fmt.Errorf("%w: %w", ErrLeaseLost, err))
			return
		}
		if !ok {
			r.log.Error("Lease taken over, aborting pass")
			cancel(ErrLeaseLost)
			return
		}
	}
}

// Run executes passes until ctx is done. With a zero interval it runs a
// single pass and returns its error.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return fmt.Errorf("runner already running")
	}
	defer r.running.Store(false)

	if r.cfg.Interval <= 0 {
		_, _, err := r.RunPass(ctx)
		return err
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, _, err := r.RunPass(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// A failed pass leaves committed transitions in place; the next
			// pass resumes from the eligibility query.
			r.log.Error("NFO pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

