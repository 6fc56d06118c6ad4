package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream error")

func newTestBreaker(maxFailures int) (*CircuitBreaker, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(Config{
		Name:           "test",
		MaxFailures:    maxFailures,
		CooldownPeriod: time.Second,
	})
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestClosedState(t *testing.T) {
	cb, _ := newTestBreaker(3)

	if cb.State() != StateClosed {
		t.Errorf("Expected state Closed, got %v", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected state Closed after success, got %v", cb.State())
	}
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(3)

	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return errUpstream }); err != errUpstream {
			t.Errorf("Expected upstream error, got %v", err)
		}
		if cb.State() != StateClosed {
			t.Errorf("Expected Closed after %d failures, got %v", i+1, cb.State())
		}
	}

	cb.Execute(func() error { return errUpstream })
	if cb.State() != StateOpen {
		t.Errorf("Expected Open after 3 failures, got %v", cb.State())
	}

	err := cb.Execute(func() error {
		t.Error("Function should not be called when circuit is open")
		return nil
	})
	if err != ErrCircuitOpen {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(2)

	cb.Execute(func() error { return errUpstream })
	cb.Execute(func() error { return nil })
	cb.Execute(func() error { return errUpstream })

	if cb.State() != StateClosed {
		t.Errorf("Expected Closed, got %v", cb.State())
	}
}

func TestHalfOpenProbe(t *testing.T) {
	cb, now := newTestBreaker(1)

	cb.Execute(func() error { return errUpstream })
	if cb.State() != StateOpen {
		t.Fatalf("Expected Open, got %v", cb.State())
	}

	*now = now.Add(2 * time.Second)

	executed := false
	if err := cb.Execute(func() error { executed = true; return nil }); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !executed {
		t.Error("Expected probe to run after cooldown")
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected Closed after successful probe, got %v", cb.State())
	}
}

func TestFailedProbeReopens(t *testing.T) {
	cb, now := newTestBreaker(1)

	cb.Execute(func() error { return errUpstream })
	*now = now.Add(2 * time.Second)
	cb.Execute(func() error { return errUpstream })

	if cb.State() != StateOpen {
		t.Errorf("Expected Open after failed probe, got %v", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != ErrCircuitOpen {
		t.Errorf("Expected ErrCircuitOpen right after reopening, got %v", err)
	}
}

func TestIsFailureFilter(t *testing.T) {
	errNotFound := errors.New("not found")
	cb := NewCircuitBreaker(Config{
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return !errors.Is(err, errNotFound) },
	})

	for i := 0; i < 5; i++ {
		if err := cb.Execute(func() error { return errNotFound }); err != errNotFound {
			t.Fatalf("Expected errNotFound, got %v", err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected filtered errors to keep circuit Closed, got %v", cb.State())
	}
}

func TestOnStateChange(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(Config{
		Name:        "amap",
		MaxFailures: 1,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	cb.Execute(func() error { return errUpstream })
	cb.Reset()

	want := []string{"amap:closed->open", "amap:open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("Expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %q, got %q", i, want[i], transitions[i])
		}
	}
}
