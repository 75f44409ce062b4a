package resilience

import (
	"errors"
	"testing"
	"time"
)

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time          { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedBreaker(threshold int, reset time.Duration, onChange func(string, State, State)) (*CircuitBreaker, *manualClock) {
	clock := &manualClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("catalogue", CircuitBreakerConfig{
		FailureThreshold: threshold,
		ResetTimeout:     reset,
		OnStateChange:    onChange,
		Now:              clock.now,
	})
	return cb, clock
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	var transitions []State
	cb, clock := newClockedBreaker(2, 30*time.Second, func(name string, from, to State) {
		transitions = append(transitions, to)
	})

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errFlaky })
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %s, want open", cb.GetState())
	}

	clock.advance(10 * time.Second)
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	var open *OpenError
	if !errors.As(err, &open) || !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected OpenError, got %v", err)
	}
	if called || open.RetryAfter != 20*time.Second {
		t.Errorf("called = %v, retry after = %v", called, open.RetryAfter)
	}
	if st := cb.Status(); st.ConsecutiveFailures != 2 || st.RetryAfter != 20*time.Second {
		t.Errorf("status = %+v", st)
	}

	clock.advance(20 * time.Second)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state = %s, want closed", cb.GetState())
	}

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreakerFailedProbeReopens(t *testing.T) {
	cb, clock := newClockedBreaker(1, time.Minute, nil)
	_ = cb.Execute(func() error { return errFlaky })
	clock.advance(time.Minute)
	_ = cb.Execute(func() error { return errFlaky })
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %s, want open", cb.GetState())
	}
	if st := cb.Status(); st.RetryAfter != time.Minute {
		t.Errorf("reopened breaker should wait a full timeout, got %v", st.RetryAfter)
	}
}

func TestCircuitBreakerIgnoresPermanentErrors(t *testing.T) {
	cb := NewCircuitBreaker("catalogue", CircuitBreakerConfig{FailureThreshold: 1})
	err := cb.Execute(func() error { return Permanent(errFlaky) })
	if !errors.Is(err, errFlaky) {
		t.Fatalf("expected errFlaky, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("permanent error tripped the breaker: %s", cb.GetState())
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker("catalogue", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	_ = cb.Execute(func() error { return errFlaky })
	cb.Reset()
	if st := cb.Status(); st.State != StateClosed || st.ConsecutiveFailures != 0 {
		t.Errorf("status = %+v", st)
	}
}
