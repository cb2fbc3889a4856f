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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AleutianAI/kinship/services/kinship/graph"
	"gopkg.in/yaml.v3"
)

// SnapshotExt is the file extension of snapshot files.
const SnapshotExt = ".yaml"

// Dir reads one YAML snapshot file per family from a directory.
//
// Description:
//
//	The file for family "nguyen" is <root>/nguyen.yaml. A file without a
//	family_id takes the family ID from its name; a file naming another
//	family is rejected. Member and relationship problems are left to the
//	graph builder.
//
// Thread Safety:
//
//	Dir is safe for concurrent use. It holds no state besides the root.
type Dir struct {
	root string
}

// NewDir creates a provider over root. The directory must exist.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot dir %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("snapshot dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot dir %s is not a directory", abs)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute snapshot directory.
func (d *Dir) Root() string {
	return d.root
}

// Path returns the snapshot file path of a family.
func (d *Dir) Path(familyID string) (string, error) {
	if err := ValidateFamilyID(familyID); err != nil {
		return "", err
	}
	return filepath.Join(d.root, familyID+SnapshotExt), nil
}

// FamilyIDFromPath returns the family a snapshot file belongs to, or false
// for files that are not snapshots.
func FamilyIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, SnapshotExt) {
		return "", false
	}
	id := strings.TrimSuffix(base, SnapshotExt)
	if ValidateFamilyID(id) != nil {
		return "", false
	}
	return id, true
}

// Snapshot implements Provider.
func (d *Dir) Snapshot(ctx context.Context, familyID string) (*graph.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.Path(familyID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, familyNotFound(familyID)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	snap, err := DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if snap.FamilyID == "" {
		snap.FamilyID = familyID
	}
	if snap.FamilyID != familyID {
		return nil, fmt.Errorf("%w: file %s declares %q", ErrFamilyMismatch, path, snap.FamilyID)
	}
	return snap, nil
}

// Version implements Versioner using the file's modification time and size.
func (d *Dir) Version(ctx context.Context, familyID string) (string, error) {
	path, err := d.Path(familyID)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", familyNotFound(familyID)
	}
	if err != nil {
		return "", fmt.Errorf("stat snapshot %s: %w", path, err)
	}
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size()), nil
}

// Families implements Lister.
func (d *Dir) Families(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("list snapshot dir: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := FamilyIDFromPath(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Write stores a snapshot as <root>/<family>.yaml, replacing the file
// atomically. The snapshot is validated first.
func (d *Dir) Write(snap *graph.Snapshot) error {
	if err := Validate(snap); err != nil {
		return err
	}
	path, err := d.Path(snap.FamilyID)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.FamilyID, err)
	}

	tmp, err := os.CreateTemp(d.root, "."+snap.FamilyID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", snap.FamilyID, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot %s: %w", snap.FamilyID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot %s: %w", snap.FamilyID, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot %s: %w", snap.FamilyID, err)
	}
	return nil
}

// DecodeYAML parses and normalizes a YAML snapshot.
func DecodeYAML(data []byte) (*graph.Snapshot, error) {
	var snap graph.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	Normalize(&snap)
	return &snap, nil
}
