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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/AleutianAI/kinship/services/kinship/graph"
	kbadger "github.com/AleutianAI/kinship/services/kinship/storage/badger"
	"github.com/dgraph-io/badger/v4"
)

// Key layout:
//
//	snapshot/<family>  JSON-encoded graph.Snapshot
//	version/<family>   hex SHA256 of the snapshot value
const (
	snapshotPrefix = "snapshot/"
	versionPrefix  = "version/"
)

// Store persists snapshots in BadgerDB.
//
// Thread Safety:
//
//	Store is safe for concurrent use. Put writes the snapshot and its
//	version in one transaction, so readers never see one without the other.
type Store struct {
	db     *kbadger.DB
	owned  bool
	closed atomic.Bool
}

// NewStore wraps an open database. The caller keeps ownership of db.
func NewStore(db *kbadger.DB) *Store {
	return &Store{db: db}
}

// OpenStore opens a database with cfg and returns a Store that closes it
// on Close.
func OpenStore(cfg kbadger.Config) (*Store, error) {
	db, err := kbadger.OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, owned: true}, nil
}

// Put validates, normalizes and stores a snapshot, replacing any previous
// one. Returns the new version.
func (s *Store) Put(ctx context.Context, snap *graph.Snapshot) (string, error) {
	if s.closed.Load() {
		return "", ErrProviderClosed
	}
	if snap == nil {
		return "", Validate(nil)
	}
	c := clone(snap)
	Normalize(c)
	if err := Validate(c); err != nil {
		return "", err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode snapshot %s: %w", c.FamilyID, err)
	}
	sum := sha256.Sum256(data)
	version := hex.EncodeToString(sum[:])

	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set([]byte(snapshotPrefix+c.FamilyID), data); err != nil {
			return err
		}
		return txn.Set([]byte(versionPrefix+c.FamilyID), []byte(version))
	})
	if err != nil {
		return "", fmt.Errorf("store snapshot %s: %w", c.FamilyID, err)
	}
	return version, nil
}

// Delete removes a family. Deleting an unknown family is a no-op.
func (s *Store) Delete(ctx context.Context, familyID string) error {
	if s.closed.Load() {
		return ErrProviderClosed
	}
	if err := ValidateFamilyID(familyID); err != nil {
		return err
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(snapshotPrefix + familyID)); err != nil {
			return err
		}
		return txn.Delete([]byte(versionPrefix + familyID))
	})
}

// Snapshot implements Provider.
func (s *Store) Snapshot(ctx context.Context, familyID string) (*graph.Snapshot, error) {
	data, err := s.get(ctx, snapshotPrefix, familyID)
	if err != nil {
		return nil, err
	}
	var snap graph.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", familyID, err)
	}
	return &snap, nil
}

// Version implements Versioner.
func (s *Store) Version(ctx context.Context, familyID string) (string, error) {
	data, err := s.get(ctx, versionPrefix, familyID)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Families implements Lister.
func (s *Store) Families(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrProviderClosed
	}
	keys, err := s.db.Keys(ctx, []byte(snapshotPrefix))
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = string(k[len(snapshotPrefix):])
	}
	return ids, nil
}

// Close closes the database if the Store opened it.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.owned {
		return s.db.Close()
	}
	return nil
}

func (s *Store) get(ctx context.Context, prefix, familyID string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrProviderClosed
	}
	if err := ValidateFamilyID(familyID); err != nil {
		return nil, err
	}
	data, err := s.db.Get(ctx, []byte(prefix+familyID))
	if errors.Is(err, kbadger.ErrKeyNotFound) {
		return nil, familyNotFound(familyID)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s%s: %w", prefix, familyID, err)
	}
	return data, nil
}
