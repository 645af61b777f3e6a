// Package artifacts implements the derived-artifact cache: named,
// recomputable values scoped to one data source, stored through the metadata
// store under "{entityID}:{artifact}" keys with read-through semantics.
package artifacts

import (
	"context"
	"encoding/json"

	"github.com/sdidier-dev/sageworks/pkg/errors"
	"github.com/sdidier-dev/sageworks/pkg/repositories"
)

// Cache provides read-through access to derived artifacts. A per-key lease
// lock coalesces concurrent computations of the same artifact in-process, so
// two callers observing a miss do not both issue the same expensive scan.
type Cache struct {
	store repositories.MetadataStore
	stats *StatsCollector
	locks keyedLock
}

// NewCache creates a derived-artifact cache over the given metadata store.
func NewCache(store repositories.MetadataStore) *Cache {
	return &Cache{
		store: store,
		stats: NewStatsCollector(),
	}
}

// Key returns the flattened cache key for an entity's artifact.
func Key(entityID, artifact string) string {
	return entityID + ":" + artifact
}

// Stats returns the cache hit/miss statistics.
func (c *Cache) Stats() Stats {
	return c.stats.GetStats()
}

// Has reports whether the artifact is present, without computing anything.
func (c *Cache) Has(ctx context.Context, entityID, artifact string) (bool, error) {
	_, ok, err := c.store.Get(ctx, entityID, artifact)
	if err != nil {
		return false, errors.Wrap(err, errors.CodeStorageFailed, "failed to probe artifact")
	}
	return ok, nil
}

// Invalidate removes the artifact so the next fetch recomputes it.
func (c *Cache) Invalidate(ctx context.Context, entityID, artifact string) error {
	if err := c.store.Delete(ctx, entityID, artifact); err != nil {
		return errors.Wrap(err, errors.CodeStorageFailed, "failed to invalidate artifact")
	}
	c.stats.RecordEviction()
	return nil
}

// FetchOrCompute returns the cached artifact, or computes, stores, and
// returns it. A compute failure propagates without touching the cache, so a
// previously cached value is never overwritten by a failed run.
func FetchOrCompute[T any](ctx context.Context, c *Cache, entityID, artifact string, recompute bool,
	compute func(ctx context.Context) (T, error)) (T, error) {

	var zero T

	unlock := c.locks.lock(Key(entityID, artifact))
	defer unlock()

	if !recompute {
		raw, ok, err := c.store.Get(ctx, entityID, artifact)
		if err != nil {
			return zero, errors.Wrap(err, errors.CodeStorageFailed, "failed to read artifact")
		}
		if ok {
			var value T
			if err := json.Unmarshal([]byte(raw), &value); err == nil {
				c.stats.RecordHit()
				return value, nil
			}
			// Undecodable entries are treated as misses and recomputed.
		}
		c.stats.RecordMiss()
	}

	value, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return zero, errors.Wrap(err, errors.CodeInternal, "failed to serialize artifact")
	}
	if err := c.store.Set(ctx, entityID, artifact, string(raw)); err != nil {
		return zero, errors.Wrap(err, errors.CodeStorageFailed, "failed to store artifact")
	}
	return value, nil
}

// Fetch returns the cached artifact without computing; the boolean reports presence.
func Fetch[T any](ctx context.Context, c *Cache, entityID, artifact string) (T, bool, error) {
	var zero T
	raw, ok, err := c.store.Get(ctx, entityID, artifact)
	if err != nil {
		return zero, false, errors.Wrap(err, errors.CodeStorageFailed, "failed to read artifact")
	}
	if !ok {
		c.stats.RecordMiss()
		return zero, false, nil
	}
	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return zero, false, errors.Wrap(err, errors.CodeInternal, "failed to decode artifact")
	}
	c.stats.RecordHit()
	return value, true, nil
}
