// Package store provides composable snapshot-store wrappers.
package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aromano/pricewatch/internal/tracker"
)

// Cached wraps a SnapshotStore with an LRU read-through cache keyed by
// source URL. Daemon runs hit GetLastByURL once per cycle per target, so
// a small cache removes almost all point lookups from the hot path.
type Cached struct {
	inner tracker.SnapshotStore
	cache *lru.Cache[string, tracker.ProductSnapshot]
}

// NewCached builds a cache of the given size over inner.
func NewCached(inner tracker.SnapshotStore, size int) (*Cached, error) {
	cache, err := lru.New[string, tracker.ProductSnapshot](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// GetLastByURL serves from cache when possible.
func (c *Cached) GetLastByURL(ctx context.Context, sourceURL string) (*tracker.ProductSnapshot, error) {
	if snap, ok := c.cache.Get(sourceURL); ok {
		cp := snap
		return &cp, nil
	}
	snap, err := c.inner.GetLastByURL(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		c.cache.Add(sourceURL, *snap)
	}
	return snap, nil
}

// Append writes through to the inner store and refreshes the cache.
func (c *Cached) Append(ctx context.Context, snap tracker.ProductSnapshot) error {
	if err := c.inner.Append(ctx, snap); err != nil {
		return err
	}
	c.cache.Add(snap.SourceURL, snap)
	return nil
}
