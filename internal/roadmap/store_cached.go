package roadmap

import (
	"context"
	"log/slog"
	"time"

	"github.com/p-n-ai/sat-prep/internal/platform/cache"
)

const cacheKeyPrefix = "roadmap:"

// CachedStore is a read-through Redis cache in front of another Store.
// Writes go to the backing store first and then invalidate the cached copy.
// Cache failures are logged and otherwise ignored.
type CachedStore struct {
	next  Store
	cache *cache.Cache
	ttl   time.Duration
}

// NewCachedStore wraps next with a cache whose entries live for ttl.
func NewCachedStore(next Store, c *cache.Cache, ttl time.Duration) *CachedStore {
	return &CachedStore{next: next, cache: c, ttl: ttl}
}

func (s *CachedStore) Get(ctx context.Context, learnerID string) (Record, error) {
	key := cacheKeyPrefix + learnerID

	var rec Record
	hit, err := s.cache.GetJSON(ctx, key, &rec)
	if err != nil {
		slog.Warn("roadmap cache read failed", "learner_id", learnerID, "error", err)
	}
	if hit {
		return rec, nil
	}

	rec, err = s.next.Get(ctx, learnerID)
	if err != nil {
		return Record{}, err
	}
	if err := s.cache.SetJSON(ctx, key, rec, s.ttl); err != nil {
		slog.Warn("roadmap cache write failed", "learner_id", learnerID, "error", err)
	}
	return rec, nil
}

func (s *CachedStore) Save(ctx context.Context, learnerID string, rec Record) error {
	if err := s.next.Save(ctx, learnerID, rec); err != nil {
		return err
	}
	s.invalidate(ctx, learnerID)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, learnerID string) error {
	if err := s.next.Delete(ctx, learnerID); err != nil {
		return err
	}
	s.invalidate(ctx, learnerID)
	return nil
}

func (s *CachedStore) invalidate(ctx context.Context, learnerID string) {
	if err := s.cache.Delete(ctx, cacheKeyPrefix+learnerID); err != nil {
		slog.Warn("roadmap cache invalidation failed", "learner_id", learnerID, "error", err)
	}
}
