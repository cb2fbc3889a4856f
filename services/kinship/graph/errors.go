// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the family graph and the shortest kinship path search.
//
// The graph holds a family's members and the parent, spouse and sibling links
// between them. Parent links are indexed in both directions so a search can
// walk up to a parent and back down to another child. Sibling links are
// synthesized from shared parents when the graph is frozen.
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use during building. It is designed for:
//   - Single-writer access during build phase (AddMember, Add*Edge calls)
//   - Read-only access after Freeze() is called
//
// After Freeze(), the graph can be safely read from multiple goroutines.
//
// # Lifecycle
//
//  1. Create with NewGraph(familyID) or Builder.Build(ctx, snapshot)
//  2. Add members, then parent, spouse and explicit sibling edges
//  3. Call Freeze() to synthesize sibling links and finalize
//  4. Query with Neighbors(), ShortestPath(), etc.
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrGraphFrozen is returned when attempting to modify a frozen graph.
	ErrGraphFrozen = errors.New("graph is frozen and cannot be modified")

	// ErrGraphNotFrozen is returned when querying a graph that is still building.
	ErrGraphNotFrozen = errors.New("graph is not frozen")

	// ErrMemberNotFound is returned when an id does not name a member.
	ErrMemberNotFound = errors.New("member not found")

	// ErrUnknownMember is returned when a relationship references a member
	// that is not part of the snapshot. The edge is dropped.
	ErrUnknownMember = errors.New("relationship references unknown member")

	// ErrDuplicateMember is returned when adding a member whose ID already exists.
	ErrDuplicateMember = errors.New("duplicate member ID")

	// ErrInvalidMember is returned for members without an ID.
	ErrInvalidMember = errors.New("invalid member")

	// ErrInvalidEdge is returned for an edge kind that cannot be stored
	// through the called method.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrSelfLoop is returned for an edge from a member to itself.
	ErrSelfLoop = errors.New("edge from member to itself")

	// ErrDuplicateEdge is returned when an equivalent edge already exists.
	// A generic Child edge is a duplicate of a Father or Mother edge for
	// the same pair.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrConflictingEdge is returned when the same parent is recorded as
	// both father and mother of one child.
	ErrConflictingEdge = errors.New("conflicting parent edge")

	// ErrTooManyParents is returned when a member already has two parents of
	// the edge's kind.
	ErrTooManyParents = errors.New("more than two parents of the same kind")

	// ErrMaxMembersExceeded is returned when the graph is at member capacity.
	ErrMaxMembersExceeded = errors.New("maximum member count exceeded")

	// ErrMaxEdgesExceeded is returned when the graph is at edge capacity.
	ErrMaxEdgesExceeded = errors.New("maximum edge count exceeded")

	// ErrBuildCancelled is returned when a build is cancelled via context.
	ErrBuildCancelled = errors.New("build cancelled")

	// ErrNoPath is returned when two members are not connected.
	ErrNoPath = errors.New("no path between members")

	// ErrNilSnapshot is returned when Build is called without a snapshot.
	ErrNilSnapshot = errors.New("snapshot must not be nil")
)
