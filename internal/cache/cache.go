// Package cache keeps nearest-frame rankings in Redis so repeated lookups for
// the same reference frame skip the full population scan.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frameindex"
	pkgredis "github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "nearest:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Entry is one cached ranking position. Frames are resolved from the
// snapshot the ranking was computed against.
type Entry struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
}

// Observer receives hit and miss notifications, typically Prometheus
// counters.
type Observer interface {
	CacheHit()
	CacheMiss()
}

type NearestCache struct {
	store    Store
	ttl      time.Duration
	group    singleflight.Group
	observer Observer
	logger   *slog.Logger
	hits     atomic.Int64
	misses   atomic.Int64
}

// New returns a cache over store. observer may be nil.
func New(store Store, ttl time.Duration, observer Observer) *NearestCache {
	return &NearestCache{
		store:    store,
		ttl:      ttl,
		observer: observer,
		logger:   slog.Default().With("component", "nearest-cache"),
	}
}

// Get returns the cached ranking for the request, resolved against snap.
// Any store failure or stale id counts as a miss.
func (c *NearestCache) Get(ctx context.Context, snap *frameindex.Snapshot, id string, q frame.Query, k int) ([]frameindex.Match, bool) {
	key := buildKey(snap.Fingerprint(), id, q, k)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	matches, err := resolve(snap, entries)
	if err != nil {
		c.logger.Warn("cached ranking does not match snapshot", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "id", id, "key", key)
	return matches, true
}

// Set stores a ranking computed against snap.
func (c *NearestCache) Set(ctx context.Context, snap *frameindex.Snapshot, id string, q frame.Query, k int, matches []frameindex.Match) {
	key := buildKey(snap.Fingerprint(), id, q, k)
	entries := make([]Entry, len(matches))
	for i, m := range matches {
		entries[i] = Entry{ID: m.Frame.ID, Distance: m.Distance}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute serves the ranking from cache or computes it once per key,
// however many callers ask concurrently. The bool reports a cache hit.
func (c *NearestCache) GetOrCompute(
	ctx context.Context,
	snap *frameindex.Snapshot,
	id string,
	q frame.Query,
	k int,
	computeFn func() ([]frameindex.Match, error),
) ([]frameindex.Match, bool, error) {
	if matches, ok := c.Get(ctx, snap, id, q, k); ok {
		return matches, true, nil
	}
	key := buildKey(snap.Fingerprint(), id, q, k)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		matches, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, snap, id, q, k, matches)
		return matches, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]frameindex.Match), false, nil
}

// Invalidate drops every cached ranking. Keys carry the snapshot
// fingerprint, so this only reclaims space; stale entries are never served.
func (c *NearestCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *NearestCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *NearestCache) hit() {
	c.hits.Add(1)
	if c.observer != nil {
		c.observer.CacheHit()
	}
}

func (c *NearestCache) miss() {
	c.misses.Add(1)
	if c.observer != nil {
		c.observer.CacheMiss()
	}
}

func resolve(snap *frameindex.Snapshot, entries []Entry) ([]frameindex.Match, error) {
	matches := make([]frameindex.Match, 0, len(entries))
	for _, e := range entries {
		f, err := snap.FrameByID(e.ID)
		if err != nil {
			return nil, err
		}
		matches = append(matches, frameindex.Match{Frame: f, Distance: e.Distance})
	}
	return matches, nil
}

// buildKey hashes everything that changes a ranking: the snapshot content,
// the reference frame, k and each query target. Version is not part of it:
// it restarts with every process.
func buildKey(fingerprint string, id string, q frame.Query, k int) string {
	parts := []string{
		"snap=" + fingerprint,
		"id=" + id,
		"k=" + strconv.Itoa(k),
		"dsd=" + target(q.DSD),
		"drop=" + target(q.Drop),
		"ratio=" + target(q.RatioDSDDrop),
		"fork=" + target(q.ForkRate),
	}
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s%s:%x", keyPrefix, fingerprint, hash[:16])
}

func target(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
