package fetcher

import (
	"context"
	"errors"
)

// ErrNotFound means the release carries no embedded NFO candidate.
var ErrNotFound = errors.New("nfo not found")

// Request identifies the release whose NFO should be retrieved.
type Request struct {
	GUID      string
	ReleaseID int64
	GroupID   int64
	GroupName string
}

// Fetcher retrieves the raw bytes of a release's NFO candidate.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// ContentScanner asks the retrieval collaborator to scan every message of a
// release.
type ContentScanner interface {
	ScanContents(ctx context.Context, guid string, releaseID, groupID int64) error
}
