// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache keeps frozen family graphs between detections.
package cache

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/kinship/services/kinship/graph"
	"golang.org/x/sync/singleflight"
)

// BuildFunc builds the graph of one family.
//
// The returned fingerprint identifies the snapshot the graph was built
// from; it may be empty when staleness checks are not used.
type BuildFunc func(ctx context.Context, familyID string) (g *graph.Graph, fingerprint string, err error)

// GraphCache provides LRU caching for family graphs with reference counting.
//
// Description:
//
//	At most one build runs per family at a time; concurrent callers for the
//	same family share its result. Build failures are remembered for
//	ErrorCacheTTL so a broken snapshot source is not hammered.
//
// Thread Safety:
//
//	GraphCache is safe for concurrent use.
type GraphCache struct {
	mu           sync.RWMutex
	entries      map[string]*CacheEntry
	lru          *list.List
	flight       singleflight.Group
	failedBuilds map[string]*failedBuild
	options      CacheOptions

	hits            int64
	misses          int64
	evictions       int64
	buildCount      int64
	errorCount      int64
	memoryEvictions int64
	staleRebuilds   int64
}

// NewGraphCache creates a new GraphCache with the given options.
func NewGraphCache(opts ...CacheOption) *GraphCache {
	options := DefaultCacheOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &GraphCache{
		entries:      make(map[string]*CacheEntry),
		lru:          list.New(),
		failedBuilds: make(map[string]*failedBuild),
		options:      options,
	}
}

// Get retrieves a cached entry by family ID.
//
// Returns the entry, a release function, and whether the entry was found.
// The release function MUST be called when done using the entry.
//
// Stale and expired entries are reported as misses.
func (c *GraphCache) Get(familyID string) (*CacheEntry, func(), bool) {
	c.mu.RLock()
	entry, ok := c.entries[familyID]
	if !ok || entry.IsStale() {
		c.mu.RUnlock()
		atomic.AddInt64(&c.misses, 1)
		return nil, nil, false
	}

	if c.isExpired(entry) {
		c.mu.RUnlock()
		c.removeExpired(familyID)
		atomic.AddInt64(&c.misses, 1)
		return nil, nil, false
	}

	// Acquire reference before releasing lock
	entry.Acquire()
	c.mu.RUnlock()

	c.touch(entry)
	atomic.AddInt64(&c.hits, 1)

	return entry, c.releaseFunc(entry), true
}

// GetOrBuild retrieves a cached entry or builds a new one.
//
// Description:
//
//	A hit is checked against the configured VersionFunc; a changed
//	snapshot fingerprint retires the entry and triggers a rebuild. Misses
//	go through singleflight keyed by family ID. A build runs under
//	BuildTimeout, detached from ctx; a cancelled caller stops waiting but
//	the build continues for the others. Context errors are not
//	cached as build failures.
//
// Outputs:
//
//	*CacheEntry - The entry. Its Graph is frozen.
//	func() - Release function. MUST be called when done using the entry.
//	error - Build error, or *BuildFailedError while a failure is cached.
func (c *GraphCache) GetOrBuild(ctx context.Context, familyID string, build BuildFunc) (*CacheEntry, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	ctx, span := startCacheSpan(ctx, "GetOrBuild", familyID)
	defer span.End()
	start := time.Now()

	if entry, release, ok := c.Get(familyID); ok {
		if reason := checkStaleness(ctx, entry, c.options.Version); reason != StalenessSnapshotChanged {
			setCacheSpanResult(span, true)
			recordCacheHit(ctx)
			recordCacheGetLatency(ctx, time.Since(start), true)
			return entry, release, nil
		}
		slog.Info("family snapshot changed, rebuilding graph",
			slog.String("family_id", familyID),
			slog.String("cached_fingerprint", truncateHash(entry.Fingerprint)),
		)
		atomic.AddInt64(&c.staleRebuilds, 1)
		c.retire(familyID, entry)
		release()
	}

	setCacheSpanResult(span, false)
	recordCacheMiss(ctx)

	if fb := c.getCachedError(familyID); fb != nil {
		return nil, nil, &BuildFailedError{
			FamilyID: familyID,
			Err:      fb.err,
			FailedAt: fb.failedAt,
			RetryAt:  fb.retryAt,
		}
	}

	// Shared build: a caller's cancellation ends only its own wait.
	ch := c.flight.DoChan(familyID, func() (interface{}, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.options.BuildTimeout)
		defer cancel()

		entry, err := c.buildAndCache(buildCtx, familyID, build)
		recordCacheBuild(buildCtx, err == nil)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				c.cacheError(familyID, err)
			}
			atomic.AddInt64(&c.errorCount, 1)
			return nil, err
		}
		return entry, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		recordCacheGetLatency(ctx, time.Since(start), false)
		span.RecordError(ctx.Err())
		return nil, nil, ctx.Err()
	}
	recordCacheGetLatency(ctx, time.Since(start), false)

	if res.Err != nil {
		span.RecordError(res.Err)
		return nil, nil, res.Err
	}

	entry := res.Val.(*CacheEntry)
	entry.Acquire()

	return entry, c.releaseFunc(entry), nil
}

func (c *GraphCache) releaseFunc(entry *CacheEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			entry.Release()
			if entry.IsStale() && !entry.InUse() {
				c.tryRemove(entry.FamilyID, entry)
			}
		})
	}
}

// buildAndCache builds a graph and adds it to the cache.
func (c *GraphCache) buildAndCache(ctx context.Context, familyID string, build BuildFunc) (*CacheEntry, error) {
	g, fingerprint, err := build(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNilGraph
	}

	now := time.Now().UnixMilli()
	entry := &CacheEntry{
		FamilyID:        familyID,
		Graph:           g,
		Fingerprint:     fingerprint,
		BuiltAtMilli:    now,
		LastAccessMilli: now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[familyID]; ok {
		if !existing.IsStale() && !c.isExpired(existing) {
			return existing, nil
		}
		// Replace the retired entry. Holders keep their reference.
		existing.stale.Store(true)
		c.removeEntryLocked(familyID, existing)
	}

	c.evictIfNeeded(ctx)

	entry.lruElement = c.lru.PushFront(familyID)
	c.entries[familyID] = entry
	atomic.AddInt64(&c.buildCount, 1)
	delete(c.failedBuilds, familyID)

	return entry, nil
}

// Invalidate removes an entry from the cache.
//
// Returns ErrCacheEntryInUse if the entry has active references.
// Use ForceInvalidate to mark the entry as stale instead.
func (c *GraphCache) Invalidate(familyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.failedBuilds, familyID)

	entry, ok := c.entries[familyID]
	if !ok {
		return nil
	}
	if entry.InUse() {
		return ErrCacheEntryInUse
	}

	c.removeEntryLocked(familyID, entry)
	return nil
}

// ForceInvalidate retires an entry and forgets any cached build failure.
//
// An entry without readers is removed at once; otherwise it is marked
// stale and removed when the last reference is released. Stale entries
// are never returned by Get.
func (c *GraphCache) ForceInvalidate(familyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.failedBuilds, familyID)

	if entry, ok := c.entries[familyID]; ok {
		entry.stale.Store(true)
		if !entry.InUse() {
			c.removeEntryLocked(familyID, entry)
		}
	}
}

// Stats returns current cache statistics.
func (c *GraphCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		EntryCount:        len(c.entries),
		Hits:              atomic.LoadInt64(&c.hits),
		Misses:            atomic.LoadInt64(&c.misses),
		Evictions:         atomic.LoadInt64(&c.evictions),
		MemoryEvictions:   atomic.LoadInt64(&c.memoryEvictions),
		BuildCount:        atomic.LoadInt64(&c.buildCount),
		ErrorCount:        atomic.LoadInt64(&c.errorCount),
		StaleRebuilds:     atomic.LoadInt64(&c.staleRebuilds),
		MaxEntries:        c.options.MaxEntries,
		MaxAge:            c.options.MaxAge,
		MaxMemoryMB:       c.options.MaxMemoryMB,
		EstimatedMemoryMB: int(c.estimatedMemoryBytesLocked() / (1024 * 1024)),
	}
}

// Clear removes all entries from the cache.
//
// Entries with active references are marked as stale.
func (c *GraphCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for familyID, entry := range c.entries {
		entry.stale.Store(true)
		if !entry.InUse() {
			c.removeEntryLocked(familyID, entry)
		}
	}
	c.failedBuilds = make(map[string]*failedBuild)
}

// isExpired checks if an entry has exceeded its TTL.
func (c *GraphCache) isExpired(entry *CacheEntry) bool {
	if c.options.MaxAge == 0 {
		return false
	}
	age := time.Since(time.UnixMilli(entry.BuiltAtMilli))
	return age > c.options.MaxAge
}

// touch moves an entry to the front of the LRU list.
func (c *GraphCache) touch(entry *CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.LastAccessMilli = time.Now().UnixMilli()
	if entry.lruElement != nil {
		c.lru.MoveToFront(entry.lruElement)
	}
}

// retire marks a specific entry stale if it is still the cached one.
func (c *GraphCache) retire(familyID string, entry *CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.stale.Store(true)
	if current, ok := c.entries[familyID]; ok && current == entry && !entry.InUse() {
		c.removeEntryLocked(familyID, entry)
	}
}

// removeExpired removes an expired entry from the cache.
func (c *GraphCache) removeExpired(familyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[familyID]
	if !ok {
		return
	}
	if entry.InUse() {
		entry.stale.Store(true)
		return
	}
	c.removeEntryLocked(familyID, entry)
}

// tryRemove removes entry if it is still cached and unused.
func (c *GraphCache) tryRemove(familyID string, entry *CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.entries[familyID]
	if !ok || current != entry {
		return
	}
	if !entry.InUse() {
		c.removeEntryLocked(familyID, entry)
	}
}

// removeEntryLocked removes an entry (must hold write lock).
func (c *GraphCache) removeEntryLocked(familyID string, entry *CacheEntry) {
	if entry.lruElement != nil {
		c.lru.Remove(entry.lruElement)
		entry.lruElement = nil
	}
	if current, ok := c.entries[familyID]; ok && current == entry {
		delete(c.entries, familyID)
	}
}

// evictIfNeeded evicts entries if cache is at capacity or over memory limit.
//
// Description:
//
//	Evicts LRU entries to make room for one more entry and to stay under
//	MaxMemoryMB. Only evicts entries with refCount == 0.
//
// Limitations:
//
//	If all entries are in use, the cache may temporarily exceed limits.
//
// Thread Safety:
//
//	NOT safe for concurrent use. Caller must hold write lock.
func (c *GraphCache) evictIfNeeded(ctx context.Context) {
	for len(c.entries) >= c.options.MaxEntries {
		if !c.evictLRUEntry(ctx, false) {
			break
		}
	}

	if c.options.MaxMemoryMB > 0 {
		maxBytes := int64(c.options.MaxMemoryMB) * 1024 * 1024
		for c.estimatedMemoryBytesLocked() > maxBytes {
			if !c.evictLRUEntry(ctx, true) {
				break
			}
		}
	}
}

// evictLRUEntry evicts the least recently used entry that is not in use.
// Returns false if all entries are in use.
func (c *GraphCache) evictLRUEntry(ctx context.Context, isMemoryEviction bool) bool {
	for e := c.lru.Back(); e != nil; e = e.Prev() {
		familyID := e.Value.(string)
		entry := c.entries[familyID]
		if entry != nil && !entry.InUse() {
			c.removeEntryLocked(familyID, entry)
			atomic.AddInt64(&c.evictions, 1)
			if isMemoryEviction {
				atomic.AddInt64(&c.memoryEvictions, 1)
			}
			recordCacheEviction(ctx, isMemoryEviction)
			return true
		}
	}
	return false
}

// estimatedMemoryBytesLocked returns the total estimated memory usage.
// Caller must hold at least a read lock.
func (c *GraphCache) estimatedMemoryBytesLocked() int64 {
	var total int64
	for _, entry := range c.entries {
		total += entry.EstimatedMemoryBytes()
	}
	return total
}

// getCachedError returns a cached build error if one exists and hasn't expired.
func (c *GraphCache) getCachedError(familyID string) *failedBuild {
	c.mu.RLock()
	fb, ok := c.failedBuilds[familyID]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	if time.Now().After(fb.retryAt) {
		c.clearCachedError(familyID, fb)
		return nil
	}
	return fb
}

// cacheError stores a build error.
func (c *GraphCache) cacheError(familyID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.failedBuilds[familyID] = &failedBuild{
		err:      err,
		failedAt: now,
		retryAt:  now.Add(c.options.ErrorCacheTTL),
	}
}

// clearCachedError removes a cached error unless a newer one replaced it.
func (c *GraphCache) clearCachedError(familyID string, fb *failedBuild) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failedBuilds[familyID] == fb {
		delete(c.failedBuilds, familyID)
	}
}
