package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/sat-prep/internal/platform/cache"
)

func TestInMemoryBudget_NoLimit(t *testing.T) {
	b := NewInMemoryBudget(0)
	ctx := context.Background()

	if err := b.Record(ctx, "learner-1", 1_000_000); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := b.Check(ctx, "learner-1"); err != nil {
		t.Errorf("Check() error = %v, want nil (zero limit means unlimited)", err)
	}
}

func TestInMemoryBudget_WithinBudget(t *testing.T) {
	b := NewInMemoryBudget(1000)
	ctx := context.Background()

	if err := b.Record(ctx, "learner-1", 500); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := b.Check(ctx, "learner-1"); err != nil {
		t.Errorf("Check() error = %v, want nil (500 < 1000)", err)
	}
}

func TestInMemoryBudget_ExactBudget(t *testing.T) {
	b := NewInMemoryBudget(100)
	ctx := context.Background()

	if err := b.Record(ctx, "learner-1", 100); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := b.Check(ctx, "learner-1"); !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("Check() error = %v, want ErrBudgetExceeded", err)
	}
	if err := b.Check(ctx, "learner-2"); err != nil {
		t.Errorf("Check() for another learner error = %v", err)
	}
}

func TestInMemoryBudget_NegativeTokens(t *testing.T) {
	b := NewInMemoryBudget(100)
	if err := b.Record(context.Background(), "learner-1", -1); err == nil {
		t.Error("Record() with negative tokens should fail")
	}
}

func TestInMemoryBudget_ResetsDaily(t *testing.T) {
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	b := NewInMemoryBudget(100).WithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := b.Record(ctx, "learner-1", 150); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := b.Check(ctx, "learner-1"); !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("Check() error = %v, want ErrBudgetExceeded", err)
	}

	now = now.Add(2 * time.Hour)
	used, limit, err := b.Usage(ctx, "learner-1")
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if used != 0 || limit != 100 {
		t.Errorf("Usage() = (%d, %d), want (0, 100)", used, limit)
	}
	if err := b.Check(ctx, "learner-1"); err != nil {
		t.Errorf("Check() after midnight error = %v", err)
	}
}

func TestRedisBudget_Key(t *testing.T) {
	b := NewRedisBudget(nil, 10)
	b.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	if got := b.key("learner-1"); got != "budget:learner-1:2026-03-01" {
		t.Errorf("key() = %q", got)
	}
}

func TestRedisBudget_UnreachableHost(t *testing.T) {
	opts, err := cache.ParseURL("redis://localhost:59999")
	if err != nil {
		t.Fatal(err)
	}
	opts.MaxRetries = -1
	c := &cache.Cache{Client: redis.NewClient(opts)}
	defer c.Close()

	b := NewRedisBudget(c, 10)
	ctx := t.Context()
	if err := b.Record(ctx, "learner-1", 5); err == nil {
		t.Error("Record() should fail when the cache is down")
	}
	if err := b.Check(ctx, "learner-1"); err == nil || errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("Check() error = %v, want a cache error", err)
	}

	unlimited := NewRedisBudget(c, 0)
	if err := unlimited.Check(ctx, "learner-1"); err != nil {
		t.Errorf("Check() with no limit error = %v", err)
	}
}
