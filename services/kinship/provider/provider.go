// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package provider supplies family snapshots to the detection service.
//
// A snapshot holds the members and stored relationships of one family,
// already filtered to that family. Providers perform all I/O; graph
// construction starts only after a snapshot has been returned.
//
// Implementations:
//
//   - Memory: in-process map, for tests and embedding hosts
//   - Dir: one YAML file per family in a directory, watched with Watcher
//   - Store: snapshots persisted in an embedded BadgerDB
package provider

import (
	"context"
	"regexp"
	"strings"

	"github.com/AleutianAI/kinship/services/kinship/graph"
	"golang.org/x/text/unicode/norm"
)

// Provider returns the snapshot of one family.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent use.
type Provider interface {
	// Snapshot returns the members and relationships of a family. The
	// returned snapshot is owned by the caller.
	//
	// Errors:
	//
	//	ErrFamilyNotFound - No data for the family
	//	ErrInvalidFamilyID - The ID is empty or malformed
	Snapshot(ctx context.Context, familyID string) (*graph.Snapshot, error)
}

// Versioner is implemented by providers that can report a cheap change
// marker for a family. The marker changes whenever the snapshot changes.
type Versioner interface {
	Version(ctx context.Context, familyID string) (string, error)
}

// Lister is implemented by providers that can enumerate their families.
type Lister interface {
	Families(ctx context.Context) ([]string, error)
}

var familyIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateFamilyID checks that a family ID is usable as a file name and key.
func ValidateFamilyID(familyID string) error {
	if !familyIDPattern.MatchString(familyID) || strings.Contains(familyID, "..") {
		return invalidFamilyID(familyID)
	}
	return nil
}

// Normalize trims member and relationship IDs and converts member names to
// Unicode NFC in place, so names typed on different platforms compare equal.
func Normalize(snap *graph.Snapshot) {
	if snap == nil {
		return
	}
	snap.FamilyID = strings.TrimSpace(snap.FamilyID)
	for i := range snap.Members {
		m := &snap.Members[i]
		m.ID = strings.TrimSpace(m.ID)
		m.Name = norm.NFC.String(strings.TrimSpace(m.Name))
	}
	for i := range snap.Relationships {
		r := &snap.Relationships[i]
		r.FromID = strings.TrimSpace(r.FromID)
		r.ToID = strings.TrimSpace(r.ToID)
	}
}

// clone deep-copies a snapshot.
func clone(snap *graph.Snapshot) *graph.Snapshot {
	out := &graph.Snapshot{
		FamilyID:      snap.FamilyID,
		Members:       append([]graph.Member(nil), snap.Members...),
		Relationships: append([]graph.Relationship(nil), snap.Relationships...),
	}
	return out
}
