package nfo

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vietddude/nfowatch/internal/core/domain"
	"github.com/vietddude/nfowatch/internal/infra/compress"
	"github.com/vietddude/nfowatch/internal/infra/fetcher"
	"github.com/vietddude/nfowatch/internal/infra/storage"
	"github.com/vietddude/nfowatch/internal/infra/storage/memory"
	"github.com/vietddude/nfowatch/internal/processing/classifier"
	"github.com/vietddude/nfowatch/internal/processing/retry"
)

// =============================================================================
// Mocks
// =============================================================================

type fakeFetcher struct {
	mu    sync.Mutex
	blobs map[string][]byte
	errs  map[string]error
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{blobs: map[string][]byte{}, errs: map[string]error{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, req fetcher.Request) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.GUID)
	if err, ok := f.errs[req.GUID]; ok {
		return nil, err
	}
	if b, ok := f.blobs[req.GUID]; ok {
		return b, nil
	}
	return nil, fetcher.ErrNotFound
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// stubProber stands in for file(1) under the real classifier.
type stubProber struct {
	desc  string
	calls int
}

func (p *stubProber) Probe(ctx context.Context, path string) (string, error) {
	p.calls++
	return p.desc, nil
}

type unrecognizedAnalyzer struct{}

func (unrecognizedAnalyzer) Analyze(ctx context.Context, path string) error {
	return classifier.ErrUnrecognized
}

type fakeClassifier struct {
	verdict classifier.Verdict
	err     error
	calls   int
}

func (c *fakeClassifier) Classify(ctx context.Context, blob []byte, guid string) (classifier.Verdict, error) {
	c.calls++
	return c.verdict, c.err
}

type movieCall struct {
	ReleaseID int64
	Flag      bool
}

type recordingMovies struct {
	calls []movieCall
	err   error
}

func (m *recordingMovies) OnNfoText(ctx context.Context, text string, releaseID int64, extractImdbIDs bool) error {
	m.calls = append(m.calls, movieCall{ReleaseID: releaseID, Flag: extractImdbIDs})
	return m.err
}

type recordingShows struct {
	calls   int
	texts   []int64
	err     error
	textErr error
}

func (s *recordingShows) OnShowText(ctx context.Context, text string, releaseID int64) error {
	s.texts = append(s.texts, releaseID)
	return s.textErr
}

func (s *recordingShows) OnDemandScan(ctx context.Context, groupID int64, guidPrefix string, enabled bool) error {
	s.calls++
	return s.err
}

type recordingJournal struct {
	ids []int64
}

func (j *recordingJournal) RecordQuarantine(ctx context.Context, releaseID int64, runID string) error {
	j.ids = append(j.ids, releaseID)
	return nil
}

type recordingScanner struct {
	guids []string
}

func (s *recordingScanner) ScanContents(ctx context.Context, guid string, releaseID, groupID int64) error {
	s.guids = append(s.guids, guid)
	return nil
}

// failingStore fails SetStatus for one release.
type failingStore struct {
	*memory.MemoryStorage
	failID int64
}

func (s *failingStore) SetStatus(ctx context.Context, releaseID int64, status domain.NfoStatus) error {
	if releaseID == s.failID {
		return errors.New("connection reset")
	}
	return s.MemoryStorage.SetStatus(ctx, releaseID, status)
}

// bulkStore records bulk quarantine calls.
type bulkStore struct {
	*memory.MemoryStorage
	batches [][]int64
}

func (s *bulkStore) QuarantineReleases(ctx context.Context, ids []int64) error {
	s.batches = append(s.batches, ids)
	for _, id := range ids {
		_ = s.MemoryStorage.DeleteNullPayload(ctx, id)
		_ = s.MemoryStorage.SetStatus(ctx, id, domain.StatusFailed)
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func asciiNfo(n int) []byte {
	line := "Release.Name.2024.1080p  -  Group presents  \r\n"
	return []byte(strings.Repeat(line, n/len(line)+1)[:n])
}

func addRelease(s *memory.MemoryStorage, id int64, guid string, status domain.NfoStatus) {
	s.AddRelease(domain.Release{
		ID:        id,
		GUID:      guid,
		GroupID:   10,
		Size:      50 << 20,
		NfoStatus: status,
		NZBStatus: domain.NZBStatusAdded,
		PostDate:  time.Date(2024, 5, 1, 0, 0, 0, int(id), time.UTC),
	})
}

func status(t *testing.T, s *memory.MemoryStorage, id int64) domain.NfoStatus {
	t.Helper()
	r, ok := s.Release(id)
	if !ok {
		t.Fatalf("release %d not found", id)
	}
	return r.NfoStatus
}

func newProcessor(cfg Config) *Processor {
	if cfg.Retry == (retry.Config{}) {
		cfg.Retry = retry.Config{MaxRetries: 5}
	}
	cfg.NewRunID = func() string { return "run-test" }
	return NewProcessor(cfg)
}

// =============================================================================
// Tests
// =============================================================================

func TestProcessBatch_TextNfoIsStored(t *testing.T) {
	store := memory.NewMemoryStorage()
	addRelease(store, 1, "g1", domain.StatusUnprocessed)

	f := newFakeFetcher()
	blob := asciiNfo(200)
	f.blobs["g1"] = blob

	prober := &stubProber{desc: "ASCII text"}
	movies := &recordingMovies{}
	p := newProcessor(Config{
		Store:   store,
		Fetcher: f,
		Classifier: classifier.New(classifier.Config{
			TmpDir:   t.TempDir(),
			Prober:   prober,
			Analyzer: unrecognizedAnalyzer{},
		}),
		Movies: movies,
	})

	found, err := p.ProcessBatch(context.Background(), BatchRequest{ExtractMovieIDs: true})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	if found != 1 {
		t.Errorf("found = %d, want 1", found)
	}
	if got := status(t, store, 1); got != domain.StatusFound {
		t.Errorf("status = %v, want found", got)
	}

	payload, err := store.Payload(context.Background(), 1)
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	text, err := compress.Decode(payload)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(text, blob) {
		t.Error("stored payload does not round trip")
	}

	if diff := cmp.Diff([]movieCall{{ReleaseID: 1, Flag: true}}, movies.calls); diff != "" {
		t.Errorf("movie calls mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessBatch_SignatureExcludedWithoutProbe(t *testing.T) {
	store := memory.NewMemoryStorage()
	addRelease(store, 1, "g1", domain.StatusUnprocessed)

	f := newFakeFetcher()
	f.blobs["g1"] = append([]byte("RIFF"), bytes.Repeat([]byte{0x41}, 50*1024)...)

	prober := &stubProber{desc: "ASCII text"}
	p := newProcessor(Config{
		Store:   store,
		Fetcher: f,
		Classifier: classifier.New(classifier.Config{
			TmpDir:   t.TempDir(),
			Prober:   prober,
			Analyzer: unrecognizedAnalyzer{},
		}),
	})

	found, err := p.ProcessBatch(context.Background(), BatchRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if found != 0 {
		t.Errorf("found = %d, want 0", found)
	}
	if prober.calls != 0 {
		t.Errorf("prober called %d times, want 0", prober.calls)
	}
	if got := status(t, store, 1); got != domain.StatusNoNfo {
		t.Errorf("status = %v, want no_nfo", got)
	}
	if store.PayloadRows() != 0 {
		t.Error("no payload should be stored")
	}
}

func TestProcessBatch_SweepBelowFloor(t *testing.T) {
	store := memory.NewMemoryStorage()
	// Floor for MaxRetries 5 is -6.
	addRelease(store, 1, "below", -7)
	store.AddNullPayload(1)
	addRelease(store, 2, "at-floor", -6)
	addRelease(store, 3, "fresh", domain.StatusUnprocessed)

	f := newFakeFetcher()
	journal := &recordingJournal{}
	p := newProcessor(Config{
		Store:      store,
		Fetcher:    f,
		Classifier: &fakeClassifier{},
		Journal:    journal,
	})
	if p.Floor() != -6 {
		t.Fatalf("floor = %d, want -6", p.Floor())
	}

	if _, err := p.ProcessBatch(context.Background(), BatchRequest{}); err != nil {
		t.Fatal(err)
	}

	// The release below the floor is never fetched.
	if diff := cmp.Diff([]string{"at-floor", "fresh"}, f.calls); diff != "" {
		t.Errorf("fetch order mismatch (-want +got):\n%s", diff)
	}
	if got := status(t, store, 1); got != domain.StatusFailed {
		t.Errorf("release 1 status = %v, want quarantined", got)
	}
	if ok, _ := store.HasPayload(context.Background(), 1); ok {
		t.Error("null payload row should be removed")
	}
	// -6 fails once more, lands at -7 and is swept in the same pass.
	if got := status(t, store, 2); got != domain.StatusFailed {
		t.Errorf("release 2 status = %v, want quarantined", got)
	}
	if got := status(t, store, 3); got != -2 {
		t.Errorf("release 3 status = %v, want -2", got)
	}
	if diff := cmp.Diff([]int64{1, 2}, journal.ids); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessBatch_MonotonicQuarantine(t *testing.T) {
	for _, maxRetries := range []int{0, 2, 5} {
		store := memory.NewMemoryStorage()
		addRelease(store, 1, "g1", domain.StatusUnprocessed)
		f := newFakeFetcher()
		f.errs["g1"] = errors.New("gateway down")

		p := NewProcessor(Config{
			Store:      store,
			Fetcher:    f,
			Classifier: &fakeClassifier{},
			Retry:      retry.Config{MaxRetries: maxRetries},
		})

		ctx := context.Background()
		for pass := 1; pass <= maxRetries+1; pass++ {
			if got := status(t, store, 1); got == domain.StatusFailed {
				t.Fatalf("maxRetries=%d: quarantined early after %d failures", maxRetries, pass-1)
			}
			if _, err := p.ProcessBatch(ctx, BatchRequest{}); err != nil {
				t.Fatal(err)
			}
		}
		if got := status(t, store, 1); got != domain.StatusFailed {
			t.Fatalf("maxRetries=%d: status = %v after %d failures, want quarantined", maxRetries, got, maxRetries+1)
		}

		for i := 0; i < 3; i++ {
			if _, err := p.ProcessBatch(ctx, BatchRequest{}); err != nil {
				t.Fatal(err)
			}
		}
		if got := status(t, store, 1); got != domain.StatusFailed {
			t.Errorf("maxRetries=%d: status moved to %v after quarantine", maxRetries, got)
		}
		if got := f.callCount(); got != maxRetries+1 {
			t.Errorf("maxRetries=%d: fetch calls = %d, want %d", maxRetries, got, maxRetries+1)
		}
	}
}

func TestProcessBatch_Idempotent(t *testing.T) {
	store := memory.NewMemoryStorage()
	addRelease(store, 1, "nfo", domain.StatusUnprocessed)
	addRelease(store, 2, "other", domain.StatusUnprocessed)

	f := newFakeFetcher()
	f.blobs["nfo"] = asciiNfo(300)
	f.blobs["other"] = asciiNfo(300)

	cls := &fakeClassifier{verdict: classifier.Nfo}
	p := newProcessor(Config{Store: store, Fetcher: f, Classifier: cls})
	ctx := context.Background()

	first, err := p.ProcessBatch(ctx, BatchRequest{})
	if err != nil || first != 2 {
		t.Fatalf("first pass = %d, %v; want 2", first, err)
	}

	second, err := p.ProcessBatch(ctx, BatchRequest{})
	if err != nil || second != 0 {
		t.Errorf("second pass = %d, %v; want 0", second, err)
	}
	if got := f.callCount(); got != 2 {
		t.Errorf("fetch calls = %d, want 2", got)
	}
}

func TestProcessBatch_ProbeFailureConsumesAttempt(t *testing.T) {
	store := memory.NewMemoryStorage()
	addRelease(store, 1, "g1", -3)

	f := newFakeFetcher()
	f.blobs["g1"] = asciiNfo(100)
	cls := &fakeClassifier{err: &classifier.ClassificationError{Op: "probe", Err: errors.New("file: not found")}}

	p := newProcessor(Config{Store: store, Fetcher: f, Classifier: cls})
	found, err := p.ProcessBatch(context.Background(), BatchRequest{})
	if err != nil {
		t.Fatalf("probe failures must not abort the batch: %v", err)
	}
	if found != 0 {
		t.Errorf("found = %d, want 0", found)
	}
	if got := status(t, store, 1); got != -4 {
		t.Errorf("status = %v, want -4", got)
	}
}

func TestProcessBatch_PersistenceFailureAborts(t *testing.T) {
	mem := memory.NewMemoryStorage()
	addRelease(mem, 1, "first", domain.StatusUnprocessed)
	addRelease(mem, 2, "second", domain.StatusUnprocessed)
	addRelease(mem, 3, "third", domain.StatusUnprocessed)
	store := &failingStore{MemoryStorage: mem, failID: 2}

	f := newFakeFetcher()
	p := newProcessor(Config{Store: store, Fetcher: f, Classifier: &fakeClassifier{}})

	_, err := p.ProcessBatch(context.Background(), BatchRequest{})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	// Newest first: 3, then 2 fails, 1 is never attempted.
	if got := status(t, mem, 3); got != -2 {
		t.Errorf("committed transition lost: status = %v, want -2", got)
	}
	if got := status(t, mem, 1); got != domain.StatusUnprocessed {
		t.Errorf("release after failure was touched: status = %v", got)
	}
	if diff := cmp.Diff([]string{"third", "second"}, f.calls); diff != "" {
		t.Errorf("fetch calls mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessBatch_ExtractorFailureKeepsFound(t *testing.T) {
	store := memory.NewMemoryStorage()
	addRelease(store, 1, "g1", domain.StatusUnprocessed)
	f := newFakeFetcher()
	f.blobs["g1"] = asciiNfo(100)

	movies := &recordingMovies{err: errors.New("lookup failed")}
	shows := &recordingShows{err: errors.New("scan failed"), textErr: errors.New("parse failed")}
	p := newProcessor(Config{
		Store:      store,
		Fetcher:    f,
		Classifier: &fakeClassifier{verdict: classifier.Nfo},
		Movies:     movies,
		Shows:      shows,
	})

	found, err := p.ProcessBatch(context.Background(), BatchRequest{ExtractShowIDs: true})
	if err != nil || found != 1 {
		t.Fatalf("ProcessBatch = %d, %v; want 1, nil", found, err)
	}
	if got := status(t, store, 1); got != domain.StatusFound {
		t.Errorf("status = %v, want found", got)
	}
	if diff := cmp.Diff([]movieCall{{ReleaseID: 1, Flag: false}}, movies.calls); diff != "" {
		t.Errorf("movie calls mismatch (-want +got):\n%s", diff)
	}
	if shows.calls != 1 {
		t.Errorf("show scans = %d, want 1", shows.calls)
	}
}

func TestProcessBatch_ShowScanOnlyWhenEnabled(t *testing.T) {
	store := memory.NewMemoryStorage()
	addRelease(store, 1, "g1", domain.StatusUnprocessed)
	f := newFakeFetcher()
	f.blobs["g1"] = asciiNfo(100)

	shows := &recordingShows{}
	p := newProcessor(Config{
		Store:      store,
		Fetcher:    f,
		Classifier: &fakeClassifier{verdict: classifier.Nfo},
		Shows:      shows,
	})
	if _, err := p.ProcessBatch(context.Background(), BatchRequest{}); err != nil {
		t.Fatal(err)
	}
	if shows.calls != 0 || len(shows.texts) != 0 {
		t.Errorf("show scans = %d, texts = %v; want none", shows.calls, shows.texts)
	}

	addRelease(store, 2, "g2", domain.StatusUnprocessed)
	f.blobs["g2"] = asciiNfo(100)
	if _, err := p.ProcessBatch(context.Background(), BatchRequest{ExtractShowIDs: true}); err != nil {
		t.Fatal(err)
	}
	if shows.calls != 1 {
		t.Errorf("show scans = %d, want 1", shows.calls)
	}
	if diff := cmp.Diff([]int64{2}, shows.texts); diff != "" {
		t.Errorf("show text calls mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessBatch_LimitAndFilters(t *testing.T) {
	store := memory.NewMemoryStorage()
	addRelease(store, 1, "a1", domain.StatusUnprocessed)
	addRelease(store, 2, "a2", domain.StatusUnprocessed)
	addRelease(store, 3, "b1", domain.StatusUnprocessed)

	f := newFakeFetcher()
	p := newProcessor(Config{Store: store, Fetcher: f, Classifier: &fakeClassifier{}, MaxPerRun: 2})
	ctx := context.Background()

	if _, err := p.ProcessBatch(ctx, BatchRequest{GUIDPrefix: "a", Limit: 1}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a2"}, f.calls); diff != "" {
		t.Errorf("limit 1 mismatch (-want +got):\n%s", diff)
	}

	f.calls = nil
	if _, err := p.ProcessBatch(ctx, BatchRequest{}); err != nil {
		t.Fatal(err)
	}
	if len(f.calls) != 2 {
		t.Errorf("default limit: fetch calls = %v, want 2 releases", f.calls)
	}
}

func TestProcessBatch_SizeWindow(t *testing.T) {
	store := memory.NewMemoryStorage()
	addRelease(store, 1, "in", domain.StatusUnprocessed)
	store.AddRelease(domain.Release{ID: 2, GUID: "small", Size: 1 << 20, NfoStatus: -1, NZBStatus: 1})
	store.AddRelease(domain.Release{ID: 3, GUID: "unadded", Size: 50 << 20, NfoStatus: -1, NZBStatus: 0})

	f := newFakeFetcher()
	p := newProcessor(Config{
		Store:      store,
		Fetcher:    f,
		Classifier: &fakeClassifier{},
		Window:     retry.NewSizeWindow(1, 1),
	})
	if _, err := p.ProcessBatch(context.Background(), BatchRequest{}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"in"}, f.calls); diff != "" {
		t.Errorf("fetch calls mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessBatch_BulkQuarantine(t *testing.T) {
	mem := memory.NewMemoryStorage()
	addRelease(mem, 1, "g1", -8)
	addRelease(mem, 2, "g2", -7)
	store := &bulkStore{MemoryStorage: mem}

	p := newProcessor(Config{Store: store, Fetcher: newFakeFetcher(), Classifier: &fakeClassifier{}})
	if _, err := p.ProcessBatch(context.Background(), BatchRequest{}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][]int64{{1, 2}}, store.batches); diff != "" {
		t.Errorf("bulk batches mismatch (-want +got):\n%s", diff)
	}
	if got := status(t, mem, 2); got != domain.StatusFailed {
		t.Errorf("status = %v, want quarantined", got)
	}
}

func TestProcessBatch_Cancelled(t *testing.T) {
	store := memory.NewMemoryStorage()
	addRelease(store, 1, "g1", domain.StatusUnprocessed)
	f := newFakeFetcher()
	p := newProcessor(Config{Store: store, Fetcher: f, Classifier: &fakeClassifier{}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.ProcessBatch(ctx, BatchRequest{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if f.callCount() != 0 {
		t.Error("no fetch should happen after cancellation")
	}
}

// cancellingClassifier cancels the pass while a probe is in flight.
type cancellingClassifier struct {
	cancel context.CancelFunc
}

func (c *cancellingClassifier) Classify(ctx context.Context, blob []byte, guid string) (classifier.Verdict, error) {
	c.cancel()
	return classifier.NotNfo, &classifier.ClassificationError{Op: "probe", Err: ctx.Err()}
}

// cancellingFetcher cancels the pass while a download is in flight.
type cancellingFetcher struct {
	cancel context.CancelFunc
}

func (f *cancellingFetcher) Fetch(ctx context.Context, req fetcher.Request) ([]byte, error) {
	f.cancel()
	return nil, ctx.Err()
}

func TestProcessBatch_ShutdownDoesNotConsumeAttempt(t *testing.T) {
	t.Run("during fetch", func(t *testing.T) {
		store := memory.NewMemoryStorage()
		addRelease(store, 1, "g1", -3)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		p := newProcessor(Config{Store: store, Fetcher: &cancellingFetcher{cancel: cancel}, Classifier: &fakeClassifier{}})
		if _, err := p.ProcessBatch(ctx, BatchRequest{}); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if got := status(t, store, 1); got != -3 {
			t.Errorf("status = %d, want -3 unchanged", got)
		}
	})

	t.Run("during classification", func(t *testing.T) {
		store := memory.NewMemoryStorage()
		addRelease(store, 1, "g1", -3)
		f := newFakeFetcher()
		f.blobs["g1"] = asciiNfo(200)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		p := newProcessor(Config{Store: store, Fetcher: f, Classifier: &cancellingClassifier{cancel: cancel}})
		if _, err := p.ProcessBatch(ctx, BatchRequest{}); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if got := status(t, store, 1); got != -3 {
			t.Errorf("status = %d, want -3 unchanged", got)
		}
	})
}

func TestIngestAlternate_InvalidRelease(t *testing.T) {
	store := memory.NewMemoryStorage()
	cls := &fakeClassifier{verdict: classifier.Nfo}
	p := newProcessor(Config{Store: store, Fetcher: newFakeFetcher(), Classifier: cls})

	ok, err := p.IngestAlternate(context.Background(), asciiNfo(200), domain.Release{ID: 0, GUID: "g"}, nil)
	if err != nil || ok {
		t.Errorf("IngestAlternate = %v, %v; want false, nil", ok, err)
	}
	if cls.calls != 0 || store.PayloadRows() != 0 {
		t.Error("invalid release must not be classified or stored")
	}
}

func TestIngestAlternate(t *testing.T) {
	tests := []struct {
		name       string
		verdict    classifier.Verdict
		err        error
		completion float64
		wantOK     bool
		wantScan   bool
	}{
		{name: "incomplete release is scanned", verdict: classifier.Nfo, wantOK: true, wantScan: true},
		{name: "complete release", verdict: classifier.Nfo, completion: 100, wantOK: true},
		{name: "not an nfo", verdict: classifier.NotNfo},
		{name: "probe failure", err: &classifier.ClassificationError{Op: "probe", Err: errors.New("boom")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewMemoryStorage()
			addRelease(store, 5, "g5", -2)
			movies := &recordingMovies{}
			scanner := &recordingScanner{}
			p := newProcessor(Config{
				Store:      store,
				Fetcher:    newFakeFetcher(),
				Classifier: &fakeClassifier{verdict: tt.verdict, err: tt.err},
				Movies:     movies,
			})

			rel, _ := store.Release(5)
			rel.Completion = tt.completion
			ok, err := p.IngestAlternate(context.Background(), asciiNfo(200), rel, scanner)
			if err != nil {
				t.Fatalf("IngestAlternate failed: %v", err)
			}
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}

			wantStatus := domain.NfoStatus(-2)
			wantRows := 0
			if tt.wantOK {
				wantStatus = domain.StatusFound
				wantRows = 1
			}
			if got := status(t, store, 5); got != wantStatus {
				t.Errorf("status = %v, want %v", got, wantStatus)
			}
			if store.PayloadRows() != wantRows {
				t.Errorf("payload rows = %d, want %d", store.PayloadRows(), wantRows)
			}
			if got := len(scanner.guids) == 1; got != tt.wantScan {
				t.Errorf("scanned = %v, want %v", got, tt.wantScan)
			}
			if got := len(movies.calls) == 1; got != tt.wantOK {
				t.Errorf("movie extractor called = %v, want %v", got, tt.wantOK)
			}
		})
	}
}

func TestIngestAlternate_PayloadUnique(t *testing.T) {
	store := memory.NewMemoryStorage()
	addRelease(store, 1, "g1", domain.StatusUnprocessed)
	p := newProcessor(Config{Store: store, Fetcher: newFakeFetcher(), Classifier: &fakeClassifier{verdict: classifier.Nfo}})
	rel, _ := store.Release(1)
	rel.Completion = 100
	ctx := context.Background()

	first := asciiNfo(120)
	second := asciiNfo(240)
	for _, blob := range [][]byte{first, second} {
		if ok, err := p.IngestAlternate(ctx, blob, rel, nil); !ok || err != nil {
			t.Fatalf("IngestAlternate = %v, %v", ok, err)
		}
	}

	if store.PayloadRows() != 1 {
		t.Errorf("payload rows = %d, want 1", store.PayloadRows())
	}
	payload, _ := store.Payload(ctx, 1)
	text, err := compress.Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(text, first) {
		t.Error("existing payload was overwritten")
	}
}

func TestStats(t *testing.T) {
	store := memory.NewMemoryStorage()
	addRelease(store, 1, "a", domain.StatusUnprocessed)
	addRelease(store, 2, "b", domain.StatusUnprocessed)
	addRelease(store, 3, "c", -4)
	addRelease(store, 4, "d", domain.StatusFound)

	p := newProcessor(Config{Store: store, Fetcher: newFakeFetcher(), Classifier: &fakeClassifier{}})
	counts, err := p.Stats(context.Background(), 0, "")
	if err != nil {
		t.Fatal(err)
	}
	want := map[domain.NfoStatus]int{-1: 2, -4: 1}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

var _ storage.Quarantiner = (*bulkStore)(nil)
