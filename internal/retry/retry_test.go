package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/openai/openai-go/v2"

	"github.com/8adimka/Go_Weather_Assistant/internal/config"
)

func apiError(code int, header http.Header) *openai.Error {
	req, _ := http.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions", nil)
	if header == nil {
		header = http.Header{}
	}
	return &openai.Error{
		StatusCode: code,
		Request:    req,
		Response:   &http.Response{StatusCode: code, Request: req, Header: header},
	}
}

func fastPolicy() Policy {
	return Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDoWithResultSucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	var retried []int
	p := fastPolicy()
	p.OnRetry = func(_ context.Context, attempt int, _ error) { retried = append(retried, attempt) }

	got, err := DoWithResult(context.Background(), p, func() (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("read: %w", syscall.ECONNRESET)
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("Expected ok after 3 calls, got %q after %d", got, calls)
	}
	if fmt.Sprint(retried) != "[1 2]" {
		t.Errorf("Expected OnRetry for attempts [1 2], got %v", retried)
	}
}

func TestDoWithResultGivesUp(t *testing.T) {
	calls := 0
	_, err := DoWithResult(context.Background(), fastPolicy(), func() (int, error) {
		calls++
		return 0, context.DeadlineExceeded
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected wrapped deadline error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func() error {
		calls++
		return apiError(401, nil)
	})

	if err == nil || calls != 1 {
		t.Errorf("Expected one call and an error, got %d calls, err=%v", calls, err)
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	calls := 0
	err := Do(ctx, p, func() error {
		calls++
		cancel()
		return syscall.ECONNREFUSED
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected cancellation, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{fmt.Errorf("wrapped: %w", context.Canceled), false},
		{context.DeadlineExceeded, true},
		{apiError(429, nil), true},
		{apiError(503, nil), true},
		{apiError(400, nil), false},
		{fmt.Errorf("call: %w", apiError(500, nil)), true},
		{io.ErrUnexpectedEOF, true},
		{errors.New("invalid json"), false},
	}

	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	transient := errors.New("transient")

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for attempt, w := range want {
		if got := p.delay(attempt, transient); got != w {
			t.Errorf("attempt %d: expected %v, got %v", attempt, w, got)
		}
	}
}

func TestPolicyDelayHonoursRetryAfter(t *testing.T) {
	p := Policy{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Second}

	if got := p.delay(0, apiError(429, http.Header{"Retry-After": []string{"2"}})); got != 2*time.Second {
		t.Errorf("Expected 2s from Retry-After, got %v", got)
	}
	if got := p.delay(0, apiError(429, http.Header{"Retry-After": []string{"60"}})); got != 5*time.Second {
		t.Errorf("Expected Retry-After capped at 5s, got %v", got)
	}
	if got := p.delay(0, apiError(429, http.Header{"Retry-After": []string{"soon"}})); got != time.Millisecond {
		t.Errorf("Expected backoff on unparsable Retry-After, got %v", got)
	}
}

func TestFromConfig(t *testing.T) {
	p := FromConfig(&config.Config{RetryMaxAttempts: 4, RetryBaseDelayMs: 250, RetryMaxDelayMs: 2000})

	if p.MaxAttempts != 4 || p.BaseDelay != 250*time.Millisecond || p.MaxDelay != 2*time.Second {
		t.Errorf("unexpected policy %+v", p)
	}
}
