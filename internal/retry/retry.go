// Package retry provides retry utilities with exponential backoff for transient failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"time"

	"github.com/lsardim1/siem-log-collectors/internal/logger"
)

var (
	// ErrMaxAttemptsExceeded is returned when max retry attempts are exceeded
	ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")
	// ErrContextCancelled is returned when the context is cancelled during retry
	ErrContextCancelled = errors.New("context cancelled during retry")
)

// retryableStatuses are the HTTP statuses worth retrying: rate limiting
// and transient server-side failures. Client errors such as 401, 403 and
// 404 never heal on their own and fail fast.
var retryableStatuses = map[int]struct{}{
	429: {},
	500: {},
	502: {},
	503: {},
	504: {},
}

// HTTPStatusError is implemented by errors that carry an HTTP status code
// and, optionally, a server-supplied Retry-After hint.
type HTTPStatusError interface {
	error
	HTTPStatus() int
	RetryAfterHint() (time.Duration, bool)
}

// Config configures retry behavior
type Config struct {
	// MaxRetries is the number of retries after the initial attempt
	MaxRetries int
	// BaseDelay is the delay before the first retry; subsequent retries
	// double it (base * 2^attempt)
	BaseDelay time.Duration
	// MaxDelay caps the exponential backoff
	MaxDelay time.Duration
	// IsRetryable determines if an error should be retried
	IsRetryable func(error) bool
	// Logger receives per-attempt warnings; nil disables them
	Logger logger.Interface
}

// DefaultConfig returns a default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    60 * time.Second,
		IsRetryable: DefaultIsRetryable,
	}
}

// DefaultIsRetryable classifies an error as transient.
// HTTP status errors are retried only for retryableStatuses. Network-level
// failures (connection refused, reset, DNS, timeouts) are always retried
// because they carry no status to inspect. Everything else is permanent.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var statusErr HTTPStatusError
	if errors.As(err, &statusErr) {
		_, ok := retryableStatuses[statusErr.HTTPStatus()]
		return ok
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	return false
}

// Do executes fn with retry logic and exponential backoff. A Retry-After
// hint on the error takes precedence over the computed backoff for that
// attempt. On exhaustion the last error is returned wrapped in
// ErrMaxAttemptsExceeded.
func Do(ctx context.Context, config Config, fn func(context.Context) error) error {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 2 * time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 60 * time.Second
	}
	if config.IsRetryable == nil {
		config.IsRetryable = DefaultIsRetryable
	}

	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !config.IsRetryable(err) {
			return err
		}
		if attempt == config.MaxRetries {
			break
		}

		delay := backoffDelay(config, attempt, err)
		if config.Logger != nil {
			config.Logger.Warn("transient failure, retrying",
				"attempt", attempt+1,
				"max_retries", config.MaxRetries,
				"delay", delay.String(),
				"error", err.Error())
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, config.MaxRetries+1, lastErr)
}

// backoffDelay computes the wait before the next attempt. attempt is
// zero-based, so the first retry waits BaseDelay.
func backoffDelay(config Config, attempt int, err error) time.Duration {
	var statusErr HTTPStatusError
	if errors.As(err, &statusErr) {
		if hint, ok := statusErr.RetryAfterHint(); ok && hint > 0 {
			if hint > config.MaxDelay {
				return config.MaxDelay
			}
			return hint
		}
	}

	delay := time.Duration(float64(config.BaseDelay) * math.Pow(2, float64(attempt)))
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

// DoWithDefaults executes fn with the default retry configuration.
func DoWithDefaults(ctx context.Context, fn func(context.Context) error) error {
	return Do(ctx, DefaultConfig(), fn)
}
