package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

// RetryConfig defines retry behavior for gateway calls.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialDelay    time.Duration `yaml:"initial_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	BackoffMultiple float64       `yaml:"backoff_multiple"`
}

// DefaultRetryConfig retries transient gateway failures a few times.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    500 * time.Millisecond,
	MaxDelay:        10 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrorAction determines how to handle a gateway error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

// StatusError is a non-success gateway response.
type StatusError struct {
	Code       int
	Body       string
	RetryAfter string
}

func (e *StatusError) Error() string {
	if e.Code == http.StatusTooManyRequests {
		return fmt.Sprintf("rate limited (429), retry after: %s", e.RetryAfter)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
		return ActionFatal
	}

	var se *StatusError
	if errors.As(err, &se) {
		// Rate limits are left to the next pass rather than hammered.
		if se.Code == http.StatusTooManyRequests || se.Code < 500 {
			return ActionFatal
		}
	}

	// Network, timeouts, 5xx
	return ActionRetry
}

func callWithRetry[T any](ctx context.Context, cfg RetryConfig, call func() (T, error)) (T, error) {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := call()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ClassifyError(err) == ActionFatal || attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(calculateBackoff(attempt, cfg)):
		}
	}

	if attempts > 1 && ClassifyError(lastErr) == ActionRetry {
		return zero, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
	}
	return zero, lastErr
}

func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	multiple := cfg.BackoffMultiple
	if multiple <= 0 {
		multiple = 2.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(multiple, float64(attempt))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
