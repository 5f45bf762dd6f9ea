// Package buildcache implements the two-tier trust-but-verify build cache.
package buildcache

import (
	"context"
	"fmt"
	"sync"

	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

// Tier names reported to metrics.
const (
	TierMemory     = "memory"
	TierPersistent = "persistent"
)

// Generation identifies the invalidation state of one source path.
// It moves whenever the path's entries are invalidated or the cache is cleared,
// so a build started before the move can be recognised as stale.
type Generation struct {
	epoch uint64
	path  uint64
}

// RebuildFunc produces a fresh build for the key being verified.
type RebuildFunc func(ctx context.Context) (*domain.CacheEntry, error)

// Cache maps CacheKeys to finished builds.
// The memory tier is authoritative for the running process; the persistent
// tier is optional and only trusted after its source hash matches the file on
// disk, and then only until a background rebuild confirms it.
type Cache struct {
	mu     sync.RWMutex
	memory map[string]*domain.CacheEntry
	byPath map[string]map[string]struct{}
	// generations counts invalidations per path since the last Clear.
	generations map[string]uint64
	epoch       uint64

	persistent  ports.PersistentStore
	hasher      ports.Hasher
	broadcaster ports.Broadcaster
	logger      ports.Logger
	tracer      ports.Tracer
	metrics     ports.Metrics

	verifyGroup singleflight.Group
	wg          sync.WaitGroup
}

// Option configures a Cache.
type Option func(*Cache)

// WithPersistentStore enables the persistent tier.
func WithPersistentStore(store ports.PersistentStore) Option {
	return func(c *Cache) {
		c.persistent = store
	}
}

// WithMetrics records tier hits and verification mismatches.
func WithMetrics(m ports.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates a new Cache with an empty memory tier.
func New(
	hasher ports.Hasher,
	broadcaster ports.Broadcaster,
	logger ports.Logger,
	tracer ports.Tracer,
	opts ...Option,
) *Cache {
	c := &Cache{
		memory:      make(map[string]*domain.CacheEntry),
		byPath:      make(map[string]map[string]struct{}),
		generations: make(map[string]uint64),
		hasher:      hasher,
		broadcaster: broadcaster,
		logger:      logger,
		tracer:      tracer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get looks key up in memory, then in the persistent tier.
// A persistent hit whose source hash matches the current file is promoted and
// returned immediately while rebuild runs in the background to verify it.
// The boolean result reports a hit in either tier.
func (c *Cache) Get(ctx context.Context, key domain.CacheKey, rebuild RebuildFunc) (*domain.CacheEntry, bool, error) {
	k := key.String()

	c.mu.RLock()
	entry, ok := c.memory[k]
	c.mu.RUnlock()
	c.observe(TierMemory, ok)
	if ok {
		return entry, true, nil
	}

	if c.persistent == nil {
		return nil, false, nil
	}

	gen := c.Generation(key.Path)
	stored, err := c.persistent.Get(ctx, k)
	if err != nil {
		c.logger.Warn(fmt.Sprintf("persistent cache read failed for %s: %v", key.Path, err))
		c.observe(TierPersistent, false)
		return nil, false, nil
	}
	if stored == nil {
		c.observe(TierPersistent, false)
		return nil, false, nil
	}

	current, err := c.hasher.ComputeFileHash(key.Path)
	if err != nil {
		return nil, false, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", key.Path)
	}
	if current != stored.SourceHash {
		c.observe(TierPersistent, false)
		return nil, false, nil
	}
	c.observe(TierPersistent, true)

	// A change landed while the entry was read: serve it once, keep it out of memory.
	if _, ok := c.store(key, stored, gen); !ok {
		return stored, true, nil
	}
	c.verify(ctx, key, stored, rebuild)
	return stored, true, nil
}

// Generation returns the current invalidation state of path. Take it before
// reading the source and hand it to PutIfCurrent with the finished build.
func (c *Cache) Generation(path string) Generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Generation{epoch: c.epoch, path: c.generations[path]}
}

// Put stores a fresh build in memory synchronously and in the persistent tier
// in the background. Persistent write failures are logged and dropped.
func (c *Cache) Put(ctx context.Context, key domain.CacheKey, entry *domain.CacheEntry) {
	c.PutIfCurrent(ctx, key, entry, c.Generation(key.Path))
}

// PutIfCurrent is Put for a build that began at gen. When the path was
// invalidated or the cache cleared since, the entry is dropped from both tiers
// and the result is false.
func (c *Cache) PutIfCurrent(ctx context.Context, key domain.CacheKey, entry *domain.CacheEntry, gen Generation) bool {
	if entry == nil {
		return false
	}
	k := key.String()

	changed, stored := c.store(key, entry, gen)
	if !stored {
		return false
	}
	if !changed || c.persistent == nil {
		return true
	}
	value := *entry
	c.wg.Go(func() {
		if err := c.persistent.Put(context.WithoutCancel(ctx), k, value); err != nil {
			c.logger.Warn(fmt.Sprintf("persistent cache write failed for %s: %v", key.Path, err))
		}
	})
	return true
}

// InvalidateFile drops every memory entry for path, across all modes.
// Stale persistent entries are caught by the hash comparison on read.
func (c *Cache) InvalidateFile(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[path]++
	keys := c.byPath[path]
	for k := range keys {
		delete(c.memory, k)
	}
	delete(c.byPath, path)
	return len(keys)
}

// Clear empties both tiers.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.memory = make(map[string]*domain.CacheEntry)
	c.byPath = make(map[string]map[string]struct{})
	c.generations = make(map[string]uint64)
	c.epoch++
	c.mu.Unlock()

	if c.persistent == nil {
		return nil
	}
	if err := c.persistent.Clear(ctx); err != nil {
		return zerr.Wrap(err, domain.ErrStoreDeleteFailed.Error())
	}
	return nil
}

// Len returns the number of entries in the memory tier.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memory)
}

// Wait blocks until every background verification and persistent write has finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}

// store records entry under key unless gen is no longer current. changed is
// false when the same entry was already stored.
func (c *Cache) store(key domain.CacheKey, entry *domain.CacheEntry, gen Generation) (changed, stored bool) {
	k := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != (Generation{epoch: c.epoch, path: c.generations[key.Path]}) {
		return false, false
	}
	if existing, ok := c.memory[k]; ok && existing == entry {
		return false, true
	}

	c.memory[k] = entry
	keys, ok := c.byPath[key.Path]
	if !ok {
		keys = make(map[string]struct{})
		c.byPath[key.Path] = keys
	}
	keys[k] = struct{}{}
	return true, true
}

// verify rebuilds key in the background and compares the result with the
// served entry. Concurrent verifications of one key share a single rebuild.
func (c *Cache) verify(ctx context.Context, key domain.CacheKey, served *domain.CacheEntry, rebuild RebuildFunc) {
	if rebuild == nil {
		return
	}
	bg := context.WithoutCancel(ctx)

	c.wg.Go(func() {
		_, _, _ = c.verifyGroup.Do(key.String(), func() (any, error) {
			return nil, c.runVerification(bg, key, served, rebuild)
		})
	})
}

func (c *Cache) runVerification(ctx context.Context, key domain.CacheKey, served *domain.CacheEntry, rebuild RebuildFunc) error {
	ctx, span := c.tracer.Start(ctx, "cache.verify", ports.WithAttribute("path", key.Path))
	defer span.End()

	fresh, err := rebuild(ctx)
	if err != nil {
		// The builder has already reported the failure to clients.
		span.RecordError(err)
		return err
	}
	if fresh.Output.Equal(served.Output) {
		span.SetAttribute("consistent", true)
		return nil
	}

	span.SetAttribute("consistent", false)
	inconsistency := zerr.With(domain.ErrCacheInconsistency, "path", key.Path)
	c.logger.Warn(inconsistency.Error() + ": " + key.Path + ", clearing build cache")
	if c.metrics != nil {
		c.metrics.ObserveInconsistency()
	}

	if err := c.Clear(ctx); err != nil {
		c.logger.Error(err)
	}
	c.broadcaster.Broadcast(domain.NewReloadMessage())
	return inconsistency
}

func (c *Cache) observe(tier string, hit bool) {
	if c.metrics != nil {
		c.metrics.ObserveCacheLookup(tier, hit)
	}
}
