package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vietddude/nfowatch/internal/core/domain"
	"github.com/vietddude/nfowatch/internal/infra/storage"
	"github.com/vietddude/nfowatch/internal/processing/retry"
)

type payloadRow struct {
	nfo []byte // nil models a NULL body
}

// MemoryStorage keeps releases and payloads in process memory. It backs
// tests and dry runs without a database.
type MemoryStorage struct {
	releases map[int64]*domain.Release
	payloads map[int64]payloadRow
	imdb     map[int64]string
	shows    map[int64][2]string
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		releases: make(map[int64]*domain.Release),
		payloads: make(map[int64]payloadRow),
		imdb:     make(map[int64]string),
		shows:    make(map[int64][2]string),
	}
}

// -----------------------------------------------------------------------------
// Seeding and inspection
// -----------------------------------------------------------------------------

// AddRelease inserts or replaces a release.
func (s *MemoryStorage) AddRelease(r domain.Release) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel := r
	s.releases[r.ID] = &rel
}

// Release returns a copy of a stored release.
func (s *MemoryStorage) Release(id int64) (domain.Release, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.releases[id]
	if !ok {
		return domain.Release{}, false
	}
	return *r, true
}

// AddNullPayload creates a payload row with a NULL body.
func (s *MemoryStorage) AddNullPayload(releaseID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[releaseID] = payloadRow{}
}

// PayloadRows returns the number of payload rows.
func (s *MemoryStorage) PayloadRows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payloads)
}

// IMDbID returns the movie id recorded for a release.
func (s *MemoryStorage) IMDbID(releaseID int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.imdb[releaseID]
}

// ShowID returns the show reference recorded for a release.
func (s *MemoryStorage) ShowID(releaseID int64) (site, id string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref := s.shows[releaseID]
	return ref[0], ref[1]
}

// -----------------------------------------------------------------------------
// storage.ReleaseStore
// -----------------------------------------------------------------------------

func matchesFilters(r *domain.Release, f storage.Filters) bool {
	if f.GroupID > 0 && r.GroupID != f.GroupID {
		return false
	}
	if f.GUIDPrefix != "" && !strings.HasPrefix(r.GUID, f.GUIDPrefix) {
		return false
	}
	return true
}

func inScope(r *domain.Release, q storage.EligibilityQuery) bool {
	if r.NZBStatus != domain.NZBStatusAdded {
		return false
	}
	if !retry.IsEligible(r.NfoStatus, q.Floor) {
		return false
	}
	window := retry.SizeWindow{MinBytes: q.MinSize, MaxBytes: q.MaxSize}
	if !window.Contains(r.Size) {
		return false
	}
	return matchesFilters(r, q.Filters)
}

func (s *MemoryStorage) FindEligible(ctx context.Context, q storage.EligibilityQuery) ([]domain.ReleaseSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Release
	for _, r := range s.releases {
		if inScope(r, q) {
			matched = append(matched, r)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].NfoStatus != matched[j].NfoStatus {
			return matched[i].NfoStatus < matched[j].NfoStatus
		}
		if !matched[i].PostDate.Equal(matched[j].PostDate) {
			return matched[i].PostDate.After(matched[j].PostDate)
		}
		return matched[i].ID < matched[j].ID
	})

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]domain.ReleaseSummary, 0, len(matched))
	for _, r := range matched {
		out = append(out, domain.ReleaseSummary{
			ID:        r.ID,
			GUID:      r.GUID,
			GroupID:   r.GroupID,
			GroupName: r.GroupName,
			Name:      r.Name,
			NfoStatus: r.NfoStatus,
			PostDate:  r.PostDate,
		})
	}
	return out, nil
}

func (s *MemoryStorage) GetRelease(ctx context.Context, id int64) (*domain.Release, error) {
	r, ok := s.Release(id)
	if !ok {
		return nil, storage.ErrReleaseNotFound
	}
	return &r, nil
}

func (s *MemoryStorage) CountByStatus(ctx context.Context, q storage.EligibilityQuery) (map[domain.NfoStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.NfoStatus]int)
	for _, r := range s.releases {
		if inScope(r, q) {
			counts[r.NfoStatus]++
		}
	}
	return counts, nil
}

func (s *MemoryStorage) HasPayload(ctx context.Context, releaseID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.payloads[releaseID]
	return ok, nil
}

func (s *MemoryStorage) InsertPayloadIfAbsent(ctx context.Context, releaseID int64, compressed []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payloads[releaseID]; ok {
		return false, nil
	}
	s.payloads[releaseID] = payloadRow{nfo: append([]byte{}, compressed...)}
	return true, nil
}

func (s *MemoryStorage) Payload(ctx context.Context, releaseID int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.payloads[releaseID]
	if !ok || row.nfo == nil {
		return nil, storage.ErrPayloadNotFound
	}
	return append([]byte{}, row.nfo...), nil
}

func (s *MemoryStorage) DeleteNullPayload(ctx context.Context, releaseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.payloads[releaseID]; ok && row.nfo == nil {
		delete(s.payloads, releaseID)
	}
	return nil
}

func (s *MemoryStorage) SetStatus(ctx context.Context, releaseID int64, status domain.NfoStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.releases[releaseID]; ok {
		r.NfoStatus = status
	}
	return nil
}

func (s *MemoryStorage) FindQuarantineCandidates(ctx context.Context, floor domain.NfoStatus, f storage.Filters) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for _, r := range s.releases {
		if r.NZBStatus != domain.NZBStatusAdded {
			continue
		}
		if r.NfoStatus < floor && r.NfoStatus > domain.StatusFailed && matchesFilters(r, f) {
			ids = append(ids, r.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryStorage) Ping(ctx context.Context) error { return nil }

// -----------------------------------------------------------------------------
// storage.MovieRepository
// -----------------------------------------------------------------------------

func (s *MemoryStorage) SetIMDbID(ctx context.Context, releaseID int64, imdbID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imdb[releaseID] = imdbID
	return nil
}

// -----------------------------------------------------------------------------
// storage.ShowRepository
// -----------------------------------------------------------------------------

func (s *MemoryStorage) SetShowID(ctx context.Context, releaseID int64, site, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shows[releaseID] = [2]string{site, id}
	return nil
}
