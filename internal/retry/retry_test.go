package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsardim1/siem-log-collectors/internal/retry"
	"github.com/lsardim1/siem-log-collectors/internal/siem"
)

func fastConfig() retry.Config {
	return retry.Config{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := retry.Do(context.Background(), fastConfig(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &siem.StatusError{Backend: "qradar", Code: 500}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoFailsFastOnPermanentStatus(t *testing.T) {
	attempts := 0
	authErr := &siem.StatusError{Backend: "qradar", Code: 401}
	err := retry.Do(context.Background(), fastConfig(), func(context.Context) error {
		attempts++
		return authErr
	})

	assert.Equal(t, 1, attempts, "auth failures never heal, do not retry them")
	assert.ErrorIs(t, err, error(authErr))
	assert.NotErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
}

func TestDoExhaustionWrapsLastError(t *testing.T) {
	attempts := 0
	err := retry.Do(context.Background(), fastConfig(), func(context.Context) error {
		attempts++
		return &siem.StatusError{Backend: "splunk", Code: 503}
	})

	assert.Equal(t, 4, attempts, "initial attempt plus MaxRetries")
	require.ErrorIs(t, err, retry.ErrMaxAttemptsExceeded)

	var statusErr *siem.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 503, statusErr.Code)
}

func TestDoHonorsRetryAfterHint(t *testing.T) {
	config := fastConfig()
	config.MaxRetries = 1
	config.MaxDelay = time.Second

	hinted := &siem.StatusError{Backend: "qradar", Code: 429, RetryAfter: 50 * time.Millisecond}
	start := time.Now()
	err := retry.Do(context.Background(), config, func(context.Context) error {
		return hinted
	})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond,
		"the server hint overrides the shorter computed backoff")
}

func TestDoContextCancellation(t *testing.T) {
	config := fastConfig()
	config.BaseDelay = time.Minute
	config.MaxDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- retry.Do(ctx, config, func(context.Context) error {
			attempts++
			return &siem.StatusError{Backend: "secops", Code: 500}
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, retry.ErrContextCancelled)
		assert.Equal(t, 1, attempts, "cancellation interrupts the backoff wait")
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not stop after context cancellation")
	}
}

func TestDefaultIsRetryable(t *testing.T) {
	assert.False(t, retry.DefaultIsRetryable(nil))
	assert.False(t, retry.DefaultIsRetryable(errors.New("malformed response")),
		"unclassified errors are permanent")

	assert.True(t, retry.DefaultIsRetryable(&siem.StatusError{Code: 429}))
	assert.True(t, retry.DefaultIsRetryable(&siem.StatusError{Code: 502}))
	assert.False(t, retry.DefaultIsRetryable(&siem.StatusError{Code: 404}))
	assert.False(t, retry.DefaultIsRetryable(&siem.StatusError{Code: 403}))
}
