package retry

import "github.com/vietddude/nfowatch/internal/core/domain"

const (
	bytesPerMB = 1048576
	bytesPerGB = 1073741824
)

// Config holds the administrator-tunable retry budget.
type Config struct {
	// MaxRetries is the number of failed fetches tolerated before quarantine.
	// Negative values disable retries entirely.
	MaxRetries int
}

// Floor returns the eligibility floor for this configuration.
func (c Config) Floor() domain.NfoStatus {
	return ComputeFloor(c.MaxRetries)
}

// ComputeFloor maps a retry budget to the lowest still-eligible status.
// The result never goes below domain.MinRetryFloor.
func ComputeFloor(maxRetries int) domain.NfoStatus {
	floor := domain.StatusUnprocessed
	if maxRetries >= 0 {
		floor = domain.NfoStatus(-(maxRetries + 1))
	}
	return max(floor, domain.MinRetryFloor)
}

// IsEligible reports whether a release at status may be attempted again.
func IsEligible(status, floor domain.NfoStatus) bool {
	return floor <= status && status <= domain.StatusUnprocessed
}

// Decrement records one more failed attempt. Terminal statuses are returned
// unchanged and the result never drops below domain.StatusFailed.
func Decrement(status domain.NfoStatus) domain.NfoStatus {
	if status.IsTerminal() {
		return status
	}
	return max(status-1, domain.StatusFailed)
}

// SizeWindow bounds release sizes considered for NFO processing.
// Zero means unbounded on that side. Both bounds are exclusive.
type SizeWindow struct {
	MinBytes int64
	MaxBytes int64
}

// NewSizeWindow builds a window from a minimum in megabytes and a maximum in
// gigabytes, the units administrators configure.
func NewSizeWindow(minMB, maxGB int64) SizeWindow {
	var w SizeWindow
	if minMB > 0 {
		w.MinBytes = minMB * bytesPerMB
	}
	if maxGB > 0 {
		w.MaxBytes = maxGB * bytesPerGB
	}
	return w
}

// Contains reports whether size falls inside the window.
func (w SizeWindow) Contains(size int64) bool {
	if w.MinBytes > 0 && size <= w.MinBytes {
		return false
	}
	if w.MaxBytes > 0 && size >= w.MaxBytes {
		return false
	}
	return true
}
