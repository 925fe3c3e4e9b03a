package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCallPolicyRetriesTransientErrors(t *testing.T) {
	p := newCallPolicy(3, time.Millisecond)

	calls := 0
	err := p.attempt(context.Background(), func(error) bool { return true }, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("attempt() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestCallPolicyStopsOnNonTransientError(t *testing.T) {
	p := newCallPolicy(5, time.Millisecond)

	calls := 0
	fatal := errors.New("bad request")
	err := p.attempt(context.Background(), func(error) bool { return false }, func() error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected the fatal error back, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestCallPolicyExhaustsAttemptBudget(t *testing.T) {
	p := newCallPolicy(2, time.Millisecond)

	calls := 0
	transient := errors.New("rate limited")
	err := p.attempt(context.Background(), func(error) bool { return true }, func() error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("expected the last error back, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestCallPolicyHonorsCancelledContext(t *testing.T) {
	p := newCallPolicy(3, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.attempt(ctx, nil, func() error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
