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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/kinship/services/kinship/graph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stalenessChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinship_cache_staleness_checks_total",
		Help: "Total staleness checks by reason",
	}, []string{"reason"})

	stalenessCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kinship_cache_staleness_check_duration_seconds",
		Help:    "Time spent asking the snapshot source for its fingerprint",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})
)

// VersionFunc returns the current fingerprint of a family's snapshot.
type VersionFunc func(ctx context.Context, familyID string) (string, error)

// StalenessReason indicates why a cache entry is stale.
type StalenessReason string

const (
	// StalenessNone indicates the cache is valid.
	StalenessNone StalenessReason = ""

	// StalenessSnapshotChanged indicates the snapshot fingerprint changed.
	StalenessSnapshotChanged StalenessReason = "snapshot_changed"

	// StalenessVersionError indicates the fingerprint could not be read.
	// The entry is kept; a failing source must not evict a good graph.
	StalenessVersionError StalenessReason = "version_error"
)

// Fingerprint returns a stable content hash of a snapshot.
//
// Description:
//
//	SHA256 over the JSON encoding. Member and relationship order is part
//	of the fingerprint since it decides which duplicate wins at build time.
func Fingerprint(snap *graph.Snapshot) (string, error) {
	if snap == nil {
		return "", graph.ErrNilSnapshot
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot %s: %w", snap.FamilyID, err)
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

// checkStaleness compares an entry with the current snapshot fingerprint.
func checkStaleness(ctx context.Context, entry *CacheEntry, version VersionFunc) StalenessReason {
	if version == nil || entry == nil || entry.Fingerprint == "" {
		return StalenessNone
	}

	start := time.Now()
	current, err := version(ctx, entry.FamilyID)
	stalenessCheckDuration.Observe(time.Since(start).Seconds())

	reason := StalenessNone
	switch {
	case err != nil:
		slog.Warn("snapshot fingerprint unavailable, keeping cached graph",
			slog.String("family_id", entry.FamilyID),
			slog.String("error", err.Error()),
		)
		reason = StalenessVersionError
	case current != "" && current != entry.Fingerprint:
		reason = StalenessSnapshotChanged
	}

	label := string(reason)
	if label == "" {
		label = "fresh"
	}
	stalenessChecksTotal.WithLabelValues(label).Inc()
	return reason
}

// truncateHash shortens a fingerprint for logs.
func truncateHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}
