// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package provider

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/AleutianAI/kinship/services/kinship/graph"
)

// Memory is an in-process provider.
//
// Thread Safety:
//
//	Memory is safe for concurrent use. Snapshots are copied on Put and on
//	Snapshot, so callers never share slices with the provider.
type Memory struct {
	mu       sync.RWMutex
	families map[string]memoryFamily
	revision uint64
}

type memoryFamily struct {
	snap     *graph.Snapshot
	revision uint64
}

// NewMemory creates an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{families: make(map[string]memoryFamily)}
}

// Put validates, normalizes and stores a snapshot, replacing any previous
// snapshot of the same family.
func (m *Memory) Put(snap *graph.Snapshot) error {
	if snap == nil {
		return Validate(nil)
	}
	c := clone(snap)
	Normalize(c)
	if err := Validate(c); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.revision++
	m.families[c.FamilyID] = memoryFamily{snap: c, revision: m.revision}
	return nil
}

// Delete removes a family. Deleting an unknown family is a no-op.
func (m *Memory) Delete(familyID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.families, familyID)
}

// Snapshot implements Provider.
func (m *Memory) Snapshot(ctx context.Context, familyID string) (*graph.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	f, ok := m.families[familyID]
	m.mu.RUnlock()

	if !ok {
		return nil, familyNotFound(familyID)
	}
	return clone(f.snap), nil
}

// Version implements Versioner. The version is a process-wide revision
// number assigned on Put.
func (m *Memory) Version(ctx context.Context, familyID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.families[familyID]
	if !ok {
		return "", familyNotFound(familyID)
	}
	return "r" + strconv.FormatUint(f.revision, 10), nil
}

// Families implements Lister.
func (m *Memory) Families(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.families))
	for id := range m.families {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
