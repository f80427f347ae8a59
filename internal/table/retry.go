package table

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
)

// permanentError marks an error that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so RetryWithBackoff returns it without another attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff retries a function with exponential backoff and jitter.
// Stops retrying immediately if the error is a permanentError.
//
// maxRetries: maximum number of retry attempts (0 = no retry, just try once)
// initialDelay: initial delay before first retry
//
// Backoff formula: delay = initialDelay * 2^attempt ± 25% jitter
// Example with initialDelay=500ms, maxRetries=3:
//
//	attempt 0: immediate (first try)
//	attempt 1: ~500ms (375ms - 625ms)
//	attempt 2: ~1s    (750ms - 1.25s)
//	attempt 3: ~2s    (1.5s - 2.5s)
func RetryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var permErr *permanentError
		if errors.As(err, &permErr) {
			return permErr.Unwrap()
		}

		// Don't delay after the last attempt
		if attempt == maxRetries {
			break
		}

		delay := time.Duration(float64(initialDelay) * math.Pow(2, float64(attempt)))

		// Add jitter (±25%)
		halfDelay := int64(delay) / 2
		if halfDelay == 0 {
			halfDelay = 1
		}
		jitterBig, err := rand.Int(rand.Reader, big.NewInt(halfDelay))
		if err != nil {
			jitterBig = big.NewInt(0)
		}
		delay = delay - delay/4 + time.Duration(jitterBig.Int64())

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
			continue
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return lastErr
}

type retrySource struct {
	src          Source
	maxRetries   int
	initialDelay time.Duration
}

// WithRetry wraps src so transient fetch failures are retried.
// Structural failures (empty source, schema mismatch, unknown table) are returned at once.
func WithRetry(src Source, maxRetries int, initialDelay time.Duration) Source {
	if maxRetries <= 0 {
		return src
	}
	return &retrySource{src: src, maxRetries: maxRetries, initialDelay: initialDelay}
}

func (r *retrySource) Fetch(ctx context.Context, name string) (*Table, error) {
	var tbl *Table
	err := RetryWithBackoff(ctx, r.maxRetries, r.initialDelay, func() error {
		t, err := r.src.Fetch(ctx, name)
		if err != nil {
			if domerrors.IsStructural(err) || ctx.Err() != nil {
				return Permanent(err)
			}
			return err
		}
		tbl = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	return tbl, nil
}

type timeoutSource struct {
	src     Source
	timeout time.Duration
}

// WithTimeout bounds every Fetch on src by timeout.
func WithTimeout(src Source, timeout time.Duration) Source {
	if timeout <= 0 {
		return src
	}
	return &timeoutSource{src: src, timeout: timeout}
}

func (t *timeoutSource) Fetch(ctx context.Context, name string) (*Table, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.src.Fetch(ctx, name)
}
