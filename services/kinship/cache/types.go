// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"container/list"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/kinship/services/kinship/graph"
)

// Default configuration values.
const (
	// DefaultMaxEntries is the default maximum number of cached family graphs.
	DefaultMaxEntries = 64

	// DefaultMaxAge is the default TTL for cached entries.
	DefaultMaxAge = 30 * time.Minute

	// DefaultErrorCacheTTL is how long build errors are cached.
	DefaultErrorCacheTTL = 5 * time.Second

	// DefaultBuildTimeout bounds one shared graph build.
	DefaultBuildTimeout = 30 * time.Second
)

// CacheEntry is a cached family graph with its metadata.
//
// Thread Safety:
//
//	CacheEntry is safe for concurrent reads. The graph is frozen and never
//	mutated; the cache replaces entries instead of updating them.
type CacheEntry struct {
	// FamilyID identifies the family.
	FamilyID string

	// Graph is the frozen family graph.
	Graph *graph.Graph

	// Fingerprint identifies the snapshot the graph was built from.
	// Empty when the build function does not report one.
	Fingerprint string

	// BuiltAtMilli is when the graph was built.
	BuiltAtMilli int64

	// LastAccessMilli is when the entry was last accessed.
	LastAccessMilli int64

	refCount int32

	// stale is true if the entry has been invalidated.
	stale atomic.Bool

	lruElement *list.Element
}

// Acquire increments the reference count.
//
// Must be paired with a call to Release when done using the entry.
func (e *CacheEntry) Acquire() {
	atomic.AddInt32(&e.refCount, 1)
}

// Release decrements the reference count.
func (e *CacheEntry) Release() {
	atomic.AddInt32(&e.refCount, -1)
}

// InUse returns true if the entry has active references.
func (e *CacheEntry) InUse() bool {
	return atomic.LoadInt32(&e.refCount) > 0
}

// RefCount returns the current reference count.
func (e *CacheEntry) RefCount() int32 {
	return atomic.LoadInt32(&e.refCount)
}

// IsStale returns true if the entry has been marked as stale.
func (e *CacheEntry) IsStale() bool {
	return e.stale.Load()
}

// EstimatedMemoryBytes returns an approximate memory usage for this entry.
//
// Memory Estimation:
//
//   - Per member: ~300 bytes (Member struct, map slot, adjacency header)
//   - Per stored edge: ~150 bytes (both directions of the adjacency index)
//   - Per sibling pair: ~100 bytes
//   - Base overhead: ~1KB
func (e *CacheEntry) EstimatedMemoryBytes() int64 {
	const (
		baseOverhead    = 1024
		bytesPerMember  = 300
		bytesPerEdge    = 150
		bytesPerSibling = 100
	)

	var bytes int64 = baseOverhead
	if e.Graph != nil {
		bytes += int64(e.Graph.MemberCount()) * bytesPerMember
		bytes += int64(e.Graph.EdgeCount()) * bytesPerEdge
		bytes += int64(e.Graph.SiblingPairCount()) * bytesPerSibling
	}
	return bytes
}

// CacheStats contains statistics about the cache.
type CacheStats struct {
	EntryCount        int           `json:"entry_count"`
	Hits              int64         `json:"hits"`
	Misses            int64         `json:"misses"`
	Evictions         int64         `json:"evictions"`
	MemoryEvictions   int64         `json:"memory_evictions"`
	BuildCount        int64         `json:"build_count"`
	ErrorCount        int64         `json:"error_count"`
	StaleRebuilds     int64         `json:"stale_rebuilds"`
	MaxEntries        int           `json:"max_entries"`
	MaxAge            time.Duration `json:"max_age"`
	MaxMemoryMB       int           `json:"max_memory_mb"`
	EstimatedMemoryMB int           `json:"estimated_memory_mb"`
}

// HitRate returns the cache hit rate as a percentage.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// CacheOptions configures GraphCache behavior.
type CacheOptions struct {
	// MaxEntries is the maximum number of cached graphs.
	MaxEntries int

	// MaxAge is the TTL for cached entries. Zero disables expiry.
	MaxAge time.Duration

	// MaxMemoryMB is the soft memory limit (0 = unlimited).
	MaxMemoryMB int

	// ErrorCacheTTL is how long build errors are cached.
	ErrorCacheTTL time.Duration

	// Version reports the current snapshot fingerprint of a family. When
	// set, a hit whose fingerprint differs is rebuilt.
	Version VersionFunc

	// BuildTimeout bounds a build. Builds are shared between callers and do
	// not stop when one caller gives up.
	BuildTimeout time.Duration
}

// DefaultCacheOptions returns sensible defaults.
func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		MaxEntries:    DefaultMaxEntries,
		MaxAge:        DefaultMaxAge,
		ErrorCacheTTL: DefaultErrorCacheTTL,
		BuildTimeout:  DefaultBuildTimeout,
	}
}

// CacheOption is a functional option for configuring GraphCache.
type CacheOption func(*CacheOptions)

// WithMaxEntries sets the maximum number of cached entries.
func WithMaxEntries(n int) CacheOption {
	return func(o *CacheOptions) {
		if n > 0 {
			o.MaxEntries = n
		}
	}
}

// WithMaxAge sets the TTL for cached entries.
func WithMaxAge(d time.Duration) CacheOption {
	return func(o *CacheOptions) {
		if d > 0 {
			o.MaxAge = d
		}
	}
}

// WithMaxMemoryMB sets the soft memory limit.
func WithMaxMemoryMB(mb int) CacheOption {
	return func(o *CacheOptions) {
		if mb >= 0 {
			o.MaxMemoryMB = mb
		}
	}
}

// WithErrorCacheTTL sets how long build errors are cached.
func WithErrorCacheTTL(d time.Duration) CacheOption {
	return func(o *CacheOptions) {
		if d > 0 {
			o.ErrorCacheTTL = d
		}
	}
}

// WithBuildTimeout sets the timeout of a shared build.
func WithBuildTimeout(d time.Duration) CacheOption {
	return func(o *CacheOptions) {
		if d > 0 {
			o.BuildTimeout = d
		}
	}
}

// WithVersionFunc enables fingerprint staleness checks on hits.
func WithVersionFunc(fn VersionFunc) CacheOption {
	return func(o *CacheOptions) {
		o.Version = fn
	}
}

// failedBuild represents a cached build error.
type failedBuild struct {
	err      error
	failedAt time.Time
	retryAt  time.Time
}
