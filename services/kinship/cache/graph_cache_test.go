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
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AleutianAI/kinship/services/kinship/graph"
)

func frozenGraph(familyID string) *graph.Graph {
	g := graph.NewGraph(familyID)
	_ = g.AddMember(graph.Member{ID: "a"})
	g.Freeze()
	return g
}

func countingBuildFunc(count *int32, fingerprint string) BuildFunc {
	return func(ctx context.Context, familyID string) (*graph.Graph, string, error) {
		atomic.AddInt32(count, 1)
		return frozenGraph(familyID), fingerprint, nil
	}
}

func TestGraphCache_GetOrBuild(t *testing.T) {
	t.Run("builds once then hits", func(t *testing.T) {
		c := NewGraphCache()
		ctx := context.Background()
		var builds int32
		build := countingBuildFunc(&builds, "")

		entry1, release1, err := c.GetOrBuild(ctx, "nguyen", build)
		if err != nil {
			t.Fatalf("first GetOrBuild: %v", err)
		}
		entry2, release2, err := c.GetOrBuild(ctx, "nguyen", build)
		if err != nil {
			t.Fatalf("second GetOrBuild: %v", err)
		}
		defer release1()
		defer release2()

		if entry1 != entry2 {
			t.Error("expected the same entry on a hit")
		}
		if builds != 1 {
			t.Errorf("builds = %d, want 1", builds)
		}
		if entry1.RefCount() != 2 {
			t.Errorf("RefCount = %d, want 2", entry1.RefCount())
		}

		stats := c.Stats()
		if stats.Hits != 1 || stats.BuildCount != 1 || stats.EntryCount != 1 {
			t.Errorf("stats = %+v, want 1 hit, 1 build, 1 entry", stats)
		}
	})

	t.Run("concurrent callers share one build", func(t *testing.T) {
		c := NewGraphCache()
		ctx := context.Background()
		var builds int32
		gate := make(chan struct{})
		build := func(ctx context.Context, familyID string) (*graph.Graph, string, error) {
			atomic.AddInt32(&builds, 1)
			<-gate
			return frozenGraph(familyID), "", nil
		}

		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, release, err := c.GetOrBuild(ctx, "tran", build)
				if err != nil {
					errs <- err
					return
				}
				release()
			}()
		}
		time.Sleep(20 * time.Millisecond)
		close(gate)
		wg.Wait()
		close(errs)

		for err := range errs {
			t.Errorf("GetOrBuild: %v", err)
		}
		if builds != 1 {
			t.Errorf("builds = %d, want 1", builds)
		}
	})

	t.Run("release is idempotent", func(t *testing.T) {
		c := NewGraphCache()
		var builds int32
		entry, release, err := c.GetOrBuild(context.Background(), "le", countingBuildFunc(&builds, ""))
		if err != nil {
			t.Fatalf("GetOrBuild: %v", err)
		}
		release()
		release()
		if entry.RefCount() != 0 {
			t.Errorf("RefCount = %d, want 0", entry.RefCount())
		}
	})

	t.Run("nil graph is an error", func(t *testing.T) {
		c := NewGraphCache()
		build := func(ctx context.Context, familyID string) (*graph.Graph, string, error) {
			return nil, "", nil
		}
		if _, _, err := c.GetOrBuild(context.Background(), "pham", build); !errors.Is(err, ErrNilGraph) {
			t.Errorf("err = %v, want ErrNilGraph", err)
		}
	})
}

func TestGraphCache_ErrorCaching(t *testing.T) {
	boom := errors.New("snapshot source down")

	t.Run("failure is cached until TTL", func(t *testing.T) {
		c := NewGraphCache(WithErrorCacheTTL(time.Hour))
		var calls int32
		build := func(ctx context.Context, familyID string) (*graph.Graph, string, error) {
			atomic.AddInt32(&calls, 1)
			return nil, "", boom
		}

		if _, _, err := c.GetOrBuild(context.Background(), "vo", build); !errors.Is(err, boom) {
			t.Fatalf("first err = %v, want boom", err)
		}

		_, _, err := c.GetOrBuild(context.Background(), "vo", build)
		var failed *BuildFailedError
		if !errors.As(err, &failed) {
			t.Fatalf("second err = %v, want *BuildFailedError", err)
		}
		if !errors.Is(err, boom) {
			t.Error("BuildFailedError should unwrap to the build error")
		}
		if failed.FamilyID != "vo" {
			t.Errorf("FamilyID = %q, want vo", failed.FamilyID)
		}
		if calls != 1 {
			t.Errorf("build calls = %d, want 1", calls)
		}
		if c.Stats().ErrorCount != 1 {
			t.Errorf("ErrorCount = %d, want 1", c.Stats().ErrorCount)
		}

		// Invalidation forgets the failure.
		c.ForceInvalidate("vo")
		if _, _, err := c.GetOrBuild(context.Background(), "vo", build); !errors.Is(err, boom) {
			t.Errorf("err after invalidate = %v", err)
		}
		if calls != 2 {
			t.Errorf("build calls = %d, want 2", calls)
		}
	})

	t.Run("cancelled caller", func(t *testing.T) {
		c := NewGraphCache()
		var builds int32

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, _, err := c.GetOrBuild(ctx, "do", countingBuildFunc(&builds, "")); !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
		if builds != 0 {
			t.Errorf("builds = %d, want 0", builds)
		}
	})

	t.Run("build timeout is not cached", func(t *testing.T) {
		c := NewGraphCache(WithErrorCacheTTL(time.Hour), WithBuildTimeout(20*time.Millisecond))
		slow := func(ctx context.Context, familyID string) (*graph.Graph, string, error) {
			<-ctx.Done()
			return nil, "", ctx.Err()
		}

		if _, _, err := c.GetOrBuild(context.Background(), "do", slow); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("err = %v, want context.DeadlineExceeded", err)
		}

		var builds int32
		if _, release, err := c.GetOrBuild(context.Background(), "do", countingBuildFunc(&builds, "")); err != nil {
			t.Errorf("retry after timeout: %v", err)
		} else {
			release()
		}
		if builds != 1 {
			t.Errorf("builds = %d, want 1", builds)
		}
	})

	t.Run("first caller cancelling does not fail the others", func(t *testing.T) {
		c := NewGraphCache()
		started := make(chan struct{})
		unblock := make(chan struct{})
		var builds int32
		build := func(ctx context.Context, familyID string) (*graph.Graph, string, error) {
			atomic.AddInt32(&builds, 1)
			close(started)
			select {
			case <-unblock:
			case <-ctx.Done():
				return nil, "", ctx.Err()
			}
			return frozenGraph(familyID), "", nil
		}

		firstCtx, cancelFirst := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, _, err := c.GetOrBuild(firstCtx, "ly", build)
			firstErr <- err
		}()
		<-started

		type outcome struct {
			entry   *CacheEntry
			release func()
			err     error
		}
		second := make(chan outcome, 1)
		go func() {
			entry, release, err := c.GetOrBuild(context.Background(), "ly", build)
			second <- outcome{entry, release, err}
		}()

		cancelFirst()
		if err := <-firstErr; !errors.Is(err, context.Canceled) {
			t.Errorf("first caller err = %v, want context.Canceled", err)
		}

		close(unblock)
		got := <-second
		if got.err != nil {
			t.Fatalf("second caller err = %v, want nil", got.err)
		}
		got.release()
		if got.entry.Graph == nil {
			t.Error("second caller got no graph")
		}
		if n := atomic.LoadInt32(&builds); n != 1 {
			t.Errorf("builds = %d, want 1", n)
		}
	})
}

func TestGraphCache_Invalidate(t *testing.T) {
	t.Run("in use", func(t *testing.T) {
		c := NewGraphCache()
		var builds int32
		_, release, err := c.GetOrBuild(context.Background(), "ngo", countingBuildFunc(&builds, ""))
		if err != nil {
			t.Fatalf("GetOrBuild: %v", err)
		}

		if err := c.Invalidate("ngo"); !errors.Is(err, ErrCacheEntryInUse) {
			t.Errorf("Invalidate err = %v, want ErrCacheEntryInUse", err)
		}
		release()
		if err := c.Invalidate("ngo"); err != nil {
			t.Errorf("Invalidate after release: %v", err)
		}
		if c.Stats().EntryCount != 0 {
			t.Errorf("EntryCount = %d, want 0", c.Stats().EntryCount)
		}
	})

	t.Run("force keeps holders working", func(t *testing.T) {
		c := NewGraphCache()
		var builds int32
		build := countingBuildFunc(&builds, "")

		old, releaseOld, err := c.GetOrBuild(context.Background(), "bui", build)
		if err != nil {
			t.Fatalf("GetOrBuild: %v", err)
		}

		c.ForceInvalidate("bui")
		if !old.IsStale() {
			t.Error("entry should be stale")
		}
		if _, _, ok := c.Get("bui"); ok {
			t.Error("stale entry must not be returned")
		}

		fresh, releaseFresh, err := c.GetOrBuild(context.Background(), "bui", build)
		if err != nil {
			t.Fatalf("rebuild: %v", err)
		}
		defer releaseFresh()

		if fresh == old {
			t.Error("expected a new entry after ForceInvalidate")
		}
		if builds != 2 {
			t.Errorf("builds = %d, want 2", builds)
		}
		if old.Graph.MemberCount() != 1 {
			t.Error("old graph should remain readable while held")
		}
		releaseOld()

		if got, release, ok := c.Get("bui"); !ok || got != fresh {
			t.Error("releasing the old entry must not remove the fresh one")
		} else {
			release()
		}
	})
}

func TestGraphCache_Eviction(t *testing.T) {
	c := NewGraphCache(WithMaxEntries(2))
	ctx := context.Background()
	var builds int32
	build := countingBuildFunc(&builds, "")

	for _, id := range []string{"a", "b"} {
		_, release, err := c.GetOrBuild(ctx, id, build)
		if err != nil {
			t.Fatalf("GetOrBuild(%s): %v", id, err)
		}
		release()
	}

	// Touch "a" so "b" is least recently used.
	_, release, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit for a")
	}
	release()

	_, release, err := c.GetOrBuild(ctx, "c", build)
	if err != nil {
		t.Fatalf("GetOrBuild(c): %v", err)
	}
	release()

	if _, r, ok := c.Get("b"); ok {
		r()
		t.Error("b should have been evicted")
	}
	if _, r, ok := c.Get("a"); !ok {
		t.Error("a should still be cached")
	} else {
		r()
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
	if stats.EntryCount != 2 {
		t.Errorf("EntryCount = %d, want 2", stats.EntryCount)
	}
}

func TestGraphCache_Expiry(t *testing.T) {
	c := NewGraphCache(WithMaxAge(time.Millisecond))
	var builds int32
	build := countingBuildFunc(&builds, "")

	_, release, err := c.GetOrBuild(context.Background(), "ly", build)
	if err != nil {
		t.Fatalf("GetOrBuild: %v", err)
	}
	release()

	time.Sleep(5 * time.Millisecond)

	_, release, err = c.GetOrBuild(context.Background(), "ly", build)
	if err != nil {
		t.Fatalf("GetOrBuild after expiry: %v", err)
	}
	release()

	if builds != 2 {
		t.Errorf("builds = %d, want 2", builds)
	}
}

func TestGraphCache_Staleness(t *testing.T) {
	var version atomic.Value
	version.Store("v1")

	c := NewGraphCache(WithVersionFunc(func(ctx context.Context, familyID string) (string, error) {
		return version.Load().(string), nil
	}))

	var builds int32
	build := func(ctx context.Context, familyID string) (*graph.Graph, string, error) {
		atomic.AddInt32(&builds, 1)
		return frozenGraph(familyID), version.Load().(string), nil
	}

	for i := 0; i < 3; i++ {
		_, release, err := c.GetOrBuild(context.Background(), "hoang", build)
		if err != nil {
			t.Fatalf("GetOrBuild: %v", err)
		}
		release()
	}
	if builds != 1 {
		t.Fatalf("builds = %d, want 1 while fingerprint is unchanged", builds)
	}

	version.Store("v2")
	entry, release, err := c.GetOrBuild(context.Background(), "hoang", build)
	if err != nil {
		t.Fatalf("GetOrBuild after change: %v", err)
	}
	release()

	if builds != 2 {
		t.Errorf("builds = %d, want 2", builds)
	}
	if entry.Fingerprint != "v2" {
		t.Errorf("Fingerprint = %q, want v2", entry.Fingerprint)
	}
	if got := c.Stats().StaleRebuilds; got != 1 {
		t.Errorf("StaleRebuilds = %d, want 1", got)
	}
}

func TestGraphCache_StalenessVersionErrorKeepsEntry(t *testing.T) {
	c := NewGraphCache(WithVersionFunc(func(ctx context.Context, familyID string) (string, error) {
		return "", errors.New("unreachable")
	}))
	var builds int32
	build := countingBuildFunc(&builds, "v1")

	for i := 0; i < 2; i++ {
		_, release, err := c.GetOrBuild(context.Background(), "duong", build)
		if err != nil {
			t.Fatalf("GetOrBuild: %v", err)
		}
		release()
	}
	if builds != 1 {
		t.Errorf("builds = %d, want 1", builds)
	}
}

func TestFingerprint(t *testing.T) {
	snap := &graph.Snapshot{
		FamilyID: "f",
		Members:  []graph.Member{{ID: "a"}, {ID: "b"}},
		Relationships: []graph.Relationship{
			{FromID: "a", ToID: "b", Kind: graph.EdgeKindFather},
		},
	}

	h1, err := Fingerprint(snap)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	h2, _ := Fingerprint(snap)
	if h1 != h2 {
		t.Error("fingerprint must be stable")
	}
	if len(h1) != 64 {
		t.Errorf("len = %d, want 64", len(h1))
	}

	snap.Members[1].BirthYear = 1990
	h3, _ := Fingerprint(snap)
	if h3 == h1 {
		t.Error("fingerprint must change with content")
	}

	if _, err := Fingerprint(nil); !errors.Is(err, graph.ErrNilSnapshot) {
		t.Errorf("Fingerprint(nil) err = %v", err)
	}
}

func TestCacheStats_HitRate(t *testing.T) {
	if got := (CacheStats{}).HitRate(); got != 0 {
		t.Errorf("HitRate() = %v, want 0", got)
	}
	if got := (CacheStats{Hits: 3, Misses: 1}).HitRate(); got != 75 {
		t.Errorf("HitRate() = %v, want 75", got)
	}
}

func TestTruncateHash(t *testing.T) {
	if got := truncateHash("abc"); got != "abc" {
		t.Errorf("truncateHash(abc) = %q", got)
	}
	if got := truncateHash("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("truncateHash = %q", got)
	}
}
