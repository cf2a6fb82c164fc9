package storage

import (
	"context"
	"errors"

	"github.com/vietddude/nfowatch/internal/core/domain"
)

var (
	// ErrPayloadNotFound is returned when a release has no payload row
	ErrPayloadNotFound = errors.New("nfo payload not found")
	// ErrReleaseNotFound is returned when a release id does not exist
	ErrReleaseNotFound = errors.New("release not found")
)

// Filters narrows release selection to one group and/or one guid shard.
type Filters struct {
	// GroupID limits to a single group when > 0.
	GroupID int64
	// GUIDPrefix limits to releases whose guid starts with this prefix.
	GUIDPrefix string
}

// EligibilityQuery selects releases due for an NFO attempt.
type EligibilityQuery struct {
	Filters
	// Floor is the lowest status still eligible; the ceiling is always
	// domain.StatusUnprocessed.
	Floor domain.NfoStatus
	// MinSize and MaxSize are exclusive byte bounds; zero disables a bound.
	MinSize int64
	MaxSize int64
	Limit   int
}

// ReleaseStore persists per-release NFO state and payloads.
type ReleaseStore interface {
	// FindEligible returns up to q.Limit releases ordered by nfostatus
	// ascending, then postdate descending.
	FindEligible(ctx context.Context, q EligibilityQuery) ([]domain.ReleaseSummary, error)

	// GetRelease loads one release with its group name.
	GetRelease(ctx context.Context, id int64) (*domain.Release, error)

	// CountByStatus counts in-scope releases per status (q.Limit is ignored).
	CountByStatus(ctx context.Context, q EligibilityQuery) (map[domain.NfoStatus]int, error)

	// HasPayload reports whether a payload row exists for the release.
	HasPayload(ctx context.Context, releaseID int64) (bool, error)

	// InsertPayloadIfAbsent stores a compressed payload unless a row already
	// exists. It reports whether a row was inserted.
	InsertPayloadIfAbsent(ctx context.Context, releaseID int64, compressed []byte) (bool, error)

	// Payload returns the stored compressed payload.
	Payload(ctx context.Context, releaseID int64) ([]byte, error)

	// DeleteNullPayload removes a payload row whose body is NULL.
	DeleteNullPayload(ctx context.Context, releaseID int64) error

	// SetStatus updates a release's nfostatus.
	SetStatus(ctx context.Context, releaseID int64, status domain.NfoStatus) error

	// FindQuarantineCandidates lists releases with a status strictly
	// between domain.StatusFailed and floor.
	FindQuarantineCandidates(ctx context.Context, floor domain.NfoStatus, f Filters) ([]int64, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
}

// MovieRepository records movie identifiers found in NFO text.
type MovieRepository interface {
	SetIMDbID(ctx context.Context, releaseID int64, imdbID string) error
}

// ShowRepository records show references found in NFO text.
type ShowRepository interface {
	SetShowID(ctx context.Context, releaseID int64, site, id string) error
}

// Quarantiner is implemented by stores that can mark many releases
// FAILED and drop their NULL payload rows in one transaction.
type Quarantiner interface {
	QuarantineReleases(ctx context.Context, releaseIDs []int64) error
}
