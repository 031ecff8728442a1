// Package clients holds the raw wire clients for the generation and language
// model services. Retries are handled here; cost tracking and debug capture
// stay with the callers.
package clients

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

const (
	maxAttempts    = 3
	baseRetryDelay = 2 * time.Second
)

// HTTPError carries the status code so the retry loop can distinguish client
// mistakes from backend failures.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) Unwrap() error {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return apperr.ErrBackendPermanent
	}
	return apperr.ErrBackendTransient
}

// retryable: 5xx and transport errors. 4xx short-circuits.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// withRetry runs fn up to maxAttempts times with exponential backoff.
func withRetry(ctx context.Context, log *logger.Logger, label string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts-1 {
			break
		}
		sleep := baseRetryDelay * (1 << attempt)
		log.Warn("Request retrying",
			"call", label,
			"attempt", attempt+1,
			"sleep", sleep.String(),
			"error", lastErr.Error(),
		)
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", label, maxAttempts, lastErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
