package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestInProcessLimiter_WindowBudget(t *testing.T) {
	l := NewInProcessLimiter(2)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Allow(ctx, "alice@example.com"); err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i+1, err)
		}
	}
	if err := l.Allow(ctx, "alice@example.com"); !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("third attempt: got %v, want ErrTooManyRequests", err)
	}

	// Other keys are independent.
	if err := l.Allow(ctx, "bob@example.com"); err != nil {
		t.Errorf("other key: unexpected error %v", err)
	}

	// A new window resets the budget.
	now = now.Add(time.Minute)
	if err := l.Allow(ctx, "alice@example.com"); err != nil {
		t.Errorf("next window: unexpected error %v", err)
	}
}

func TestInProcessLimiter_Disabled(t *testing.T) {
	l := NewInProcessLimiter(0)
	for i := 0; i < 100; i++ {
		if err := l.Allow(context.Background(), "alice@example.com"); err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i+1, err)
		}
	}
}

func TestInProcessLimiter_SweepsStaleWindows(t *testing.T) {
	l := NewInProcessLimiter(1)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	for i := 0; i < sweepThreshold; i++ {
		l.counters[fmt.Sprintf("user%d@example.com", i)] = &counter{count: 1, windowAt: now}
	}

	now = now.Add(2 * time.Minute)
	if err := l.Allow(context.Background(), "fresh@example.com"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(l.counters) != 1 {
		t.Errorf("counters after sweep = %d, want 1", len(l.counters))
	}
}
