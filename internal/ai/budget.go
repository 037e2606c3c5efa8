package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/p-n-ai/sat-prep/internal/platform/cache"
)

// ErrBudgetExceeded is returned when a learner has used up today's tokens.
var ErrBudgetExceeded = errors.New("daily token budget exceeded")

// BudgetChecker checks and records daily token usage per learner.
type BudgetChecker interface {
	// Check returns ErrBudgetExceeded when the learner has no budget left.
	Check(ctx context.Context, learnerID string) error
	// Record adds tokens to today's usage for the learner.
	Record(ctx context.Context, learnerID string, tokens int) error
	// Usage returns today's usage and the daily limit. A zero limit means
	// unlimited.
	Usage(ctx context.Context, learnerID string) (used int64, limit int64, err error)
}

// InMemoryBudget tracks usage in process memory. Counters reset when the
// UTC day changes.
type InMemoryBudget struct {
	limit int64
	now   func() time.Time

	mu    sync.Mutex
	day   string
	usage map[string]int64
}

// NewInMemoryBudget creates a tracker with a daily limit. A limit of zero or
// less disables enforcement.
func NewInMemoryBudget(limit int64) *InMemoryBudget {
	return &InMemoryBudget{
		limit: limit,
		now:   time.Now,
		usage: make(map[string]int64),
	}
}

// WithClock replaces the time source.
func (b *InMemoryBudget) WithClock(now func() time.Time) *InMemoryBudget {
	b.now = now
	return b
}

func (b *InMemoryBudget) Check(_ context.Context, learnerID string) error {
	if b.limit <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	if b.usage[learnerID] >= b.limit {
		return ErrBudgetExceeded
	}
	return nil
}

func (b *InMemoryBudget) Record(_ context.Context, learnerID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	b.usage[learnerID] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, learnerID string) (int64, int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	return b.usage[learnerID], b.limit, nil
}

// rollover must be called with mu held.
func (b *InMemoryBudget) rollover() {
	day := dayKey(b.now())
	if day != b.day {
		b.day = day
		clear(b.usage)
	}
}

// RedisBudget keeps daily counters in Redis so usage is shared between
// server replicas.
type RedisBudget struct {
	cache *cache.Cache
	limit int64
	now   func() time.Time
}

// budgetTTL outlives the day a counter belongs to.
const budgetTTL = 48 * time.Hour

// NewRedisBudget creates a Redis-backed tracker.
func NewRedisBudget(c *cache.Cache, limit int64) *RedisBudget {
	return &RedisBudget{cache: c, limit: limit, now: time.Now}
}

func (b *RedisBudget) key(learnerID string) string {
	return "budget:" + learnerID + ":" + dayKey(b.now())
}

func (b *RedisBudget) Check(ctx context.Context, learnerID string) error {
	if b.limit <= 0 {
		return nil
	}
	used, _, err := b.Usage(ctx, learnerID)
	if err != nil {
		return err
	}
	if used >= b.limit {
		return ErrBudgetExceeded
	}
	return nil
}

func (b *RedisBudget) Record(ctx context.Context, learnerID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	key := b.key(learnerID)
	pipe := b.cache.Client.TxPipeline()
	pipe.IncrBy(ctx, key, int64(tokens))
	pipe.Expire(ctx, key, budgetTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording token usage: %w", err)
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, learnerID string) (int64, int64, error) {
	used, err := b.cache.GetInt(ctx, b.key(learnerID))
	if err != nil {
		return 0, b.limit, fmt.Errorf("reading token usage: %w", err)
	}
	return used, b.limit, nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
