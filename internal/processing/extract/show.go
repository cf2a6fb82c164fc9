package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/vietddude/nfowatch/internal/infra/storage"
)

// ShowIDScanner records show references linked from NFO text and logs
// partition scan requests for the show identification service.
type ShowIDScanner struct {
	repo     storage.ShowRepository
	requests atomic.Int64
}

// NewShowIDScanner creates a show scanner writing to repo.
func NewShowIDScanner(repo storage.ShowRepository) *ShowIDScanner {
	return &ShowIDScanner{repo: repo}
}

// OnShowText stores the first show reference in text, if any.
func (s *ShowIDScanner) OnShowText(ctx context.Context, text string, releaseID int64) error {
	sid, ok := ParseShowID(text)
	if !ok {
		return nil
	}
	if err := s.repo.SetShowID(ctx, releaseID, sid.Site, sid.ID); err != nil {
		return fmt.Errorf("record show id: %w", err)
	}
	slog.Debug("Show id recorded", "release_id", releaseID, "site", sid.Site, "show_id", sid.ID)
	return nil
}

// OnDemandScan logs a show scan request for the partition.
func (s *ShowIDScanner) OnDemandScan(ctx context.Context, groupID int64, guidPrefix string, enabled bool) error {
	if !enabled {
		return nil
	}
	n := s.requests.Add(1)
	slog.Info("[SHOW SCAN] requested", "group_id", groupID, "guid_prefix", guidPrefix, "total", n)
	return nil
}

// Requests returns how many scans were requested.
func (s *ShowIDScanner) Requests() int64 {
	return s.requests.Load()
}
