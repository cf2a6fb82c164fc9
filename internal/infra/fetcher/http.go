package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxBodySize bounds a fetched candidate. Anything larger fails the
// classifier size gate anyway.
const maxBodySize = 1 << 20

// Config holds article gateway settings.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	APIKey  string        `yaml:"api_key"`
	Retry   RetryConfig   `yaml:"retry"`
}

// Health tracks request outcomes against the gateway.
type Health struct {
	Available     bool
	LastSuccessAt time.Time
	LastError     string
	SuccessCount  int
	FailureCount  int
}

// HTTPFetcher implements Fetcher and ContentScanner against an HTTP article
// gateway.
type HTTPFetcher struct {
	baseURL    string
	apiKey     string
	retry      RetryConfig
	httpClient *http.Client

	mu     sync.RWMutex
	health Health
}

var (
	_ Fetcher        = (*HTTPFetcher)(nil)
	_ ContentScanner = (*HTTPFetcher)(nil)
)

// NewHTTPFetcher creates a gateway client.
func NewHTTPFetcher(cfg Config) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		retry:   cfg.Retry,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		health: Health{Available: true, LastSuccessAt: time.Now()},
	}
}

// Fetch downloads the NFO candidate for a release, retrying transient
// gateway failures.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	return callWithRetry(ctx, f.retry, func() ([]byte, error) {
		return f.fetchOnce(ctx, req)
	})
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, req Request) ([]byte, error) {
	q := url.Values{}
	q.Set("release_id", strconv.FormatInt(req.ReleaseID, 10))
	q.Set("group_id", strconv.FormatInt(req.GroupID, 10))
	if req.GroupName != "" {
		q.Set("group", req.GroupName)
	}
	endpoint := fmt.Sprintf("%s/releases/%s/nfo?%s", f.baseURL, url.PathEscape(req.GUID), q.Encode())

	resp, err := f.do(ctx, http.MethodGet, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// The gateway answered; a missing NFO is not a gateway failure.
		f.recordSuccess()
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, f.statusError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		f.recordFailure(err)
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) == 0 {
		f.recordSuccess()
		return nil, ErrNotFound
	}

	f.recordSuccess()
	return body, nil
}

// ScanContents requests a full content scan of a release.
func (f *HTTPFetcher) ScanContents(ctx context.Context, guid string, releaseID, groupID int64) error {
	_, err := callWithRetry(ctx, f.retry, func() (struct{}, error) {
		return struct{}{}, f.scanOnce(ctx, guid, releaseID, groupID)
	})
	return err
}

func (f *HTTPFetcher) scanOnce(ctx context.Context, guid string, releaseID, groupID int64) error {
	q := url.Values{}
	q.Set("release_id", strconv.FormatInt(releaseID, 10))
	q.Set("group_id", strconv.FormatInt(groupID, 10))
	endpoint := fmt.Sprintf("%s/releases/%s/scan?%s", f.baseURL, url.PathEscape(guid), q.Encode())

	resp, err := f.do(ctx, http.MethodPost, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return f.statusError(resp)
	}
	f.recordSuccess()
	return nil
}

// GetHealth returns a snapshot of the gateway health.
func (f *HTTPFetcher) GetHealth() Health {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.health
}

// Ping reports the gateway as down after a run of failures with no recent
// success. It makes no request of its own.
func (f *HTTPFetcher) Ping(ctx context.Context) error {
	h := f.GetHealth()
	if !h.Available {
		return fmt.Errorf("gateway unavailable (%d failures): %s", h.FailureCount, h.LastError)
	}
	return nil
}

func (f *HTTPFetcher) do(ctx context.Context, method, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		f.recordFailure(err)
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("X-Api-Key", f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.recordFailure(err)
		return nil, fmt.Errorf("gateway call: %w", err)
	}
	return resp, nil
}

func (f *HTTPFetcher) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := &StatusError{
		Code:       resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
		RetryAfter: resp.Header.Get("Retry-After"),
	}
	f.recordFailure(err)
	return err
}

func (f *HTTPFetcher) recordSuccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.health.Available = true
	f.health.LastSuccessAt = time.Now()
	f.health.SuccessCount++
}

func (f *HTTPFetcher) recordFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.health.FailureCount++
	f.health.LastError = err.Error()
	// Mark unavailable after a run of failures since the last success.
	if f.health.FailureCount > 5 && time.Since(f.health.LastSuccessAt) > time.Minute {
		f.health.Available = false
	}
}
