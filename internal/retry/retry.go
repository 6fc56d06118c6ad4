// Package retry re-runs inference calls that failed for transient reasons.
// Geocoding and forecast requests never go through it.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/openai/openai-go/v2"
)

// Policy controls how many times and how far apart attempts are made.
type Policy struct {
	MaxAttempts int           // retries after the first call
	BaseDelay   time.Duration // doubled on every retry
	MaxDelay    time.Duration // also caps a server supplied Retry-After

	// OnRetry, when set, is called before sleeping ahead of retry number attempt.
	OnRetry func(ctx context.Context, attempt int, err error)
}

// DefaultPolicy allows three retries between 500ms and 5s apart.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Do runs fn until it succeeds, fails permanently or attempts run out.
func Do(ctx context.Context, p Policy, fn func() error) error {
	_, err := DoWithResult(ctx, p, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is Do for functions that produce a value.
func DoWithResult[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		if !IsRetryable(err) {
			return zero, err
		}
		if attempt >= p.MaxAttempts {
			slog.WarnContext(ctx, "Giving up after transient failures",
				"attempts", attempt+1,
				"error", err)
			return zero, fmt.Errorf("gave up after %d attempts: %w", attempt+1, err)
		}

		delay := p.delay(attempt, err)
		slog.DebugContext(ctx, "Retrying after transient failure",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)
		if p.OnRetry != nil {
			p.OnRetry(ctx, attempt+1, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// IsRetryable reports whether err is worth another attempt: rate limits,
// server errors, deadlines and broken connections. Cancellation never is.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// delay is exponential in attempt unless the server named a wait.
func (p Policy) delay(attempt int, err error) time.Duration {
	d := p.BaseDelay << uint(attempt)
	if wait, ok := retryAfter(err); ok {
		d = wait
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func retryAfter(err error) (time.Duration, bool) {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) || apiErr.Response == nil {
		return 0, false
	}
	secs, convErr := strconv.Atoi(apiErr.Response.Header.Get("Retry-After"))
	if convErr != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
