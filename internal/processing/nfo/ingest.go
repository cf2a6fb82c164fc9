package nfo

import (
	"context"
	"errors"

	"github.com/vietddude/nfowatch/internal/core/domain"
	"github.com/vietddude/nfowatch/internal/infra/fetcher"
	"github.com/vietddude/nfowatch/internal/infra/storage"
	"github.com/vietddude/nfowatch/internal/processing/classifier"
)

// IngestAlternate stores an NFO obtained outside the fetcher, for example
// from an archive or a pre-database. It returns false without touching the
// store when the release id is invalid or the blob is not an NFO.
// Incomplete releases get a full content scan through scanner.
func (p *Processor) IngestAlternate(
	ctx context.Context,
	blob []byte,
	release domain.Release,
	scanner fetcher.ContentScanner,
) (bool, error) {
	if release.ID <= 0 {
		return false, nil
	}
	log := p.logger.With("release_id", release.ID, "guid", release.GUID, "source", "alternate")

	verdict, err := p.classify(ctx, blob, release.GUID)
	if err != nil {
		var cerr *classifier.ClassificationError
		if errors.As(err, &cerr) {
			log.Debug("Alternate NFO probe failed", "op", cerr.Op, "error", cerr.Err)
		}
		return false, nil
	}
	if verdict != classifier.Nfo {
		return false, nil
	}

	if err := p.storeNfo(ctx, release.ID, blob); err != nil {
		return false, err
	}
	log.Debug("Alternate NFO stored", "size", len(blob))

	p.extractMovie(ctx, log, release.ID, blob, true)

	if release.Completion == 0 && scanner != nil {
		if err := scanner.ScanContents(ctx, release.GUID, release.ID, release.GroupID); err != nil {
			log.Warn("Content scan failed", "error", err)
		}
	}
	return true, nil
}

// Stats returns per-status counts of releases available to process.
func (p *Processor) Stats(ctx context.Context, groupID int64, guidPrefix string) (map[domain.NfoStatus]int, error) {
	counts, err := p.cfg.Store.CountByStatus(ctx, p.eligibility(storage.Filters{
		GroupID:    groupID,
		GUIDPrefix: guidPrefix,
	}))
	if err != nil {
		return nil, persistErr("count by status", err)
	}
	return counts, nil
}
