// Package cache implements the persistent track cache: a capacity-bounded
// store of assembled track subgraphs with hybrid LRU and TTL eviction.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sydlexius/creditgraph/internal/event"
	"github.com/sydlexius/creditgraph/internal/graph"
	"github.com/sydlexius/creditgraph/internal/metrics"
	"github.com/sydlexius/creditgraph/internal/normalize"
)

// FormatVersion is written into the index. An index with any other version
// is discarded together with every entry.
const FormatVersion = 2

// Defaults.
const (
	DefaultCapacity   = 150
	DefaultTTL        = 7 * 24 * time.Hour
	DefaultEvictBurst = 10
	DefaultKeyLength  = 100
)

const (
	indexKey    = "index"
	entryPrefix = "entry:"
)

// Eviction reasons, used as metric labels and event data.
const (
	ReasonExpired  = "expired"
	ReasonCapacity = "capacity"
	ReasonQuota    = "quota"
	ReasonCorrupt  = "corrupt"
)

var (
	// ErrQuotaExceeded is returned by a Store when a write does not fit.
	ErrQuotaExceeded = errors.New("cache quota exceeded")
	// ErrFormatMismatch reports an index written by another format version.
	ErrFormatMismatch = errors.New("cache format version mismatch")
	// ErrEmptyGraph is returned by Put for a subgraph without entities.
	ErrEmptyGraph = errors.New("refusing to cache empty graph")
)

// Entry is one cached track subgraph. Times are epoch milliseconds.
type Entry struct {
	Entities       []graph.Entity       `json:"entities"`
	Relationships  []graph.Relationship `json:"relationships"`
	CachedAt       int64                `json:"cachedAt"`
	LastAccessedAt int64                `json:"lastAccessedAt"`
	HitCount       int                  `json:"hitCount"`
}

// Graph returns the cached subgraph.
func (e Entry) Graph() graph.Graph {
	return graph.Graph{Entities: e.Entities, Relationships: e.Relationships}
}

// Index orders cache keys most recently used first.
type Index struct {
	Keys          []string `json:"keys"`
	FormatVersion int      `json:"formatVersion"`
}

// Options configures a TrackCache. Zero values take the defaults.
type Options struct {
	Capacity   int
	TTL        time.Duration
	EvictBurst int
	KeyLength  int
	// Now is the clock; tests inject a fake.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.EvictBurst <= 0 {
		o.EvictBurst = DefaultEvictBurst
	}
	if o.KeyLength <= 0 {
		o.KeyLength = DefaultKeyLength
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries       int           `json:"entries"`
	Capacity      int           `json:"capacity"`
	TTL           time.Duration `json:"ttl"`
	Bytes         int64         `json:"bytes"`
	TotalHits     int           `json:"totalHits"`
	Oldest        time.Time     `json:"oldest,omitzero"`
	Newest        time.Time     `json:"newest,omitzero"`
	FormatVersion int           `json:"formatVersion"`
}

// TrackCache is the persistent LRU+TTL cache of track subgraphs. Every
// index read-modify-write happens under one mutex.
type TrackCache struct {
	store  Store
	opts   Options
	logger *slog.Logger
	bus    *event.Bus
	mu     sync.Mutex
}

// New returns a TrackCache over store. bus may be nil.
func New(store Store, opts Options, logger *slog.Logger, bus *event.Bus) *TrackCache {
	return &TrackCache{
		store:  store,
		opts:   opts.withDefaults(),
		logger: logger.With(slog.String("component", "cache")),
		bus:    bus,
	}
}

// Key builds the cache key for a request: the normalized artist, track and
// optional album joined by "::", each truncated to the key length.
func (c *TrackCache) Key(artist, track, album string) string {
	return key(artist, track, album, c.opts.KeyLength)
}

// Key builds a cache key with the default component length.
func Key(artist, track, album string) string {
	return key(artist, track, album, DefaultKeyLength)
}

func key(artist, track, album string, n int) string {
	k := normalize.Truncate(normalize.Name(artist), n) + "::" + normalize.Truncate(normalize.Name(track), n)
	if a := normalize.Truncate(normalize.Name(album), n); a != "" {
		k += "::" + a
	}
	return k
}

// Get returns the entry for key. Expired entries are evicted and reported
// as misses. A hit refreshes lastAccessedAt, bumps the hit count and moves
// the key to the front. Store and decode failures are logged and treated as
// misses.
func (c *TrackCache) Get(ctx context.Context, key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, err := c.loadIndex(ctx)
	if err != nil {
		c.logger.Warn("reading cache index", slog.String("error", err.Error()))
		return c.miss()
	}

	raw, ok, err := c.store.Get(ctx, entryPrefix+key)
	if err != nil {
		c.logger.Warn("reading cache entry", slog.String("key", key), slog.String("error", err.Error()))
		return c.miss()
	}
	if !ok {
		if i := slices.Index(idx.Keys, key); i >= 0 {
			idx.Keys = slices.Delete(idx.Keys, i, i+1)
			c.saveIndex(ctx, idx)
		}
		return c.miss()
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.logger.Warn("discarding unreadable cache entry", slog.String("key", key), slog.String("error", err.Error()))
		c.evict(ctx, idx, []string{key}, ReasonCorrupt)
		c.saveIndex(ctx, idx)
		return c.miss()
	}

	now := c.opts.Now()
	if now.Sub(time.UnixMilli(e.CachedAt)) > c.opts.TTL {
		c.evict(ctx, idx, []string{key}, ReasonExpired)
		c.saveIndex(ctx, idx)
		return c.miss()
	}

	e.LastAccessedAt = now.UnixMilli()
	e.HitCount++
	if b, err := json.Marshal(e); err == nil {
		if err := c.store.Set(ctx, entryPrefix+key, b); err != nil {
			c.logger.Debug("refreshing cache entry", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	// An entry missing from the index is adopted under the same capacity
	// bound as a Put.
	c.makeRoom(ctx, idx, key)
	idx.Keys = slices.Insert(idx.Keys, 0, key)
	c.saveIndex(ctx, idx)

	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return &e, true
}

func (c *TrackCache) miss() (*Entry, bool) {
	metrics.CacheRequests.WithLabelValues("miss").Inc()
	return nil, false
}

// Put stores g under key. It refuses empty graphs. At capacity the least
// recently used entries are evicted first. When the store reports its quota
// exceeded, the oldest entries are evicted in one burst and the write is
// retried once.
func (c *TrackCache) Put(ctx context.Context, key string, g graph.Graph) error {
	if g.Empty() {
		return ErrEmptyGraph
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx, err := c.loadIndex(ctx)
	if err != nil {
		return err
	}
	c.makeRoom(ctx, idx, key)

	now := c.opts.Now().UnixMilli()
	raw, err := json.Marshal(Entry{
		Entities:       g.Entities,
		Relationships:  g.Relationships,
		CachedAt:       now,
		LastAccessedAt: now,
	})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	if err := c.setWithEviction(ctx, idx, entryPrefix+key, raw); err != nil {
		// The index may have shrunk during eviction.
		c.saveIndex(ctx, idx)
		return err
	}
	idx.Keys = slices.Insert(idx.Keys, 0, key)
	if err := c.writeIndex(ctx, idx); err != nil {
		return err
	}
	metrics.CacheEntries.Set(float64(len(idx.Keys)))
	return nil
}

// setWithEviction writes value, evicting the oldest burst and retrying once
// on quota failure.
func (c *TrackCache) setWithEviction(ctx context.Context, idx *Index, k string, value []byte) error {
	err := c.store.Set(ctx, k, value)
	if !errors.Is(err, ErrQuotaExceeded) {
		return err
	}
	n := min(c.opts.EvictBurst, len(idx.Keys))
	c.logger.Info("cache quota exceeded, evicting oldest entries", slog.Int("count", n))
	c.evict(ctx, idx, slices.Clone(idx.Keys[len(idx.Keys)-n:]), ReasonQuota)
	if err := c.store.Set(ctx, k, value); err != nil {
		return fmt.Errorf("writing cache entry after eviction: %w", err)
	}
	return nil
}

// evict removes keys from the store and the index.
func (c *TrackCache) evict(ctx context.Context, idx *Index, keys []string, reason string) {
	if len(keys) == 0 {
		return
	}
	storeKeys := make([]string, len(keys))
	for i, k := range keys {
		storeKeys[i] = entryPrefix + k
	}
	if err := c.store.Delete(ctx, storeKeys...); err != nil {
		c.logger.Warn("evicting cache entries", slog.String("error", err.Error()))
	}
	idx.Keys = slices.DeleteFunc(idx.Keys, func(k string) bool { return slices.Contains(keys, k) })
	metrics.CacheEvictions.WithLabelValues(reason).Add(float64(len(keys)))
	metrics.CacheEntries.Set(float64(len(idx.Keys)))
	for _, k := range keys {
		c.logger.Debug("cache entry evicted", slog.String("key", k), slog.String("reason", reason))
		c.bus.Publish(event.Event{
			Type: event.CacheEvicted,
			Data: map[string]any{"key": k, "reason": reason},
		})
	}
}

// Stats reads every entry and summarizes the cache.
func (c *TrackCache) Stats(ctx context.Context) (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, err := c.loadIndex(ctx)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{
		Entries:       len(idx.Keys),
		Capacity:      c.opts.Capacity,
		TTL:           c.opts.TTL,
		FormatVersion: idx.FormatVersion,
	}
	for _, k := range idx.Keys {
		raw, ok, err := c.store.Get(ctx, entryPrefix+k)
		if err != nil || !ok {
			continue
		}
		var e Entry
		if json.Unmarshal(raw, &e) != nil {
			continue
		}
		s.TotalHits += e.HitCount
		at := time.UnixMilli(e.CachedAt).UTC()
		if s.Oldest.IsZero() || at.Before(s.Oldest) {
			s.Oldest = at
		}
		if at.After(s.Newest) {
			s.Newest = at
		}
	}
	if s.Bytes, err = c.store.Usage(ctx); err != nil {
		return Stats{}, err
	}
	return s, nil
}

// Keys returns the cached keys, most recently used first.
func (c *TrackCache) Keys(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, err := c.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(idx.Keys), nil
}

// Clear removes every entry and writes a fresh index.
func (c *TrackCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reset(ctx); err != nil {
		return err
	}
	c.bus.Publish(event.Event{Type: event.CacheCleared})
	c.logger.Info("cache cleared")
	return nil
}

func (c *TrackCache) reset(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	metrics.CacheEntries.Set(0)
	return c.writeIndex(ctx, &Index{FormatVersion: FormatVersion})
}

// loadIndex reads the index. A missing index starts empty; an unreadable
// index or one with another format version clears the cache.
func (c *TrackCache) loadIndex(ctx context.Context) (*Index, error) {
	raw, ok, err := c.store.Get(ctx, indexKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Index{FormatVersion: FormatVersion}, nil
	}
	idx, err := decodeIndex(raw)
	if err != nil {
		c.logger.Warn("discarding cache", slog.String("reason", err.Error()))
		if err := c.reset(ctx); err != nil {
			return nil, err
		}
		c.bus.Publish(event.Event{Type: event.CacheCleared, Data: map[string]any{"reason": "format"}})
		return &Index{FormatVersion: FormatVersion}, nil
	}
	return idx, nil
}

func decodeIndex(raw []byte) (*Index, error) {
	var idx Index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("decoding cache index: %w", err)
	}
	if idx.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrFormatMismatch, idx.FormatVersion, FormatVersion)
	}
	return &idx, nil
}

func (c *TrackCache) writeIndex(ctx context.Context, idx *Index) error {
	if idx.Keys == nil {
		idx.Keys = []string{}
	}
	err := c.storeIndex(ctx, idx)
	if errors.Is(err, ErrQuotaExceeded) && len(idx.Keys) > 0 {
		n := min(c.opts.EvictBurst, len(idx.Keys))
		c.evict(ctx, idx, slices.Clone(idx.Keys[len(idx.Keys)-n:]), ReasonQuota)
		err = c.storeIndex(ctx, idx)
	}
	if err != nil {
		return fmt.Errorf("writing cache index: %w", err)
	}
	return nil
}

func (c *TrackCache) storeIndex(ctx context.Context, idx *Index) error {
	raw, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encoding cache index: %w", err)
	}
	return c.store.Set(ctx, indexKey, raw)
}

// saveIndex writes the index and logs failures. Used on read paths where a
// stale index only costs a later miss.
func (c *TrackCache) saveIndex(ctx context.Context, idx *Index) {
	if err := c.writeIndex(ctx, idx); err != nil {
		c.logger.Warn("saving cache index", slog.String("error", err.Error()))
	}
}

// makeRoom drops key from the index and evicts least recently used entries
// until key can be inserted at the front within capacity.
func (c *TrackCache) makeRoom(ctx context.Context, idx *Index, key string) {
	if i := slices.Index(idx.Keys, key); i >= 0 {
		idx.Keys = slices.Delete(idx.Keys, i, i+1)
	}
	if over := len(idx.Keys) - c.opts.Capacity + 1; over > 0 {
		c.evict(ctx, idx, slices.Clone(idx.Keys[len(idx.Keys)-over:]), ReasonCapacity)
	}
}
