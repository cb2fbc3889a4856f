// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "fmt"

// MemberError represents a member that could not be added during building.
type MemberError struct {
	// MemberID is the rejected member's ID (possibly empty).
	MemberID string

	// Index is the member's position in the snapshot.
	Index int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e MemberError) Error() string {
	return fmt.Sprintf("member %q (#%d): %v", e.MemberID, e.Index, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e MemberError) Unwrap() error {
	return e.Err
}

// EdgeError represents a relationship that was dropped during building.
type EdgeError struct {
	// FromID is the source member ID.
	FromID string

	// ToID is the target member ID.
	ToID string

	// Kind is the kind of the dropped relationship.
	Kind EdgeKind

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e EdgeError) Error() string {
	return fmt.Sprintf("edge %s -[%s]-> %s: %v", e.FromID, e.Kind, e.ToID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e EdgeError) Unwrap() error {
	return e.Err
}

// BuildStats contains statistics about a build operation.
type BuildStats struct {
	// MembersAdded is the number of members in the graph.
	MembersAdded int

	// MembersRejected is the number of members that were skipped.
	MembersRejected int

	// EdgesAdded is the number of stored edges in the graph.
	EdgesAdded int

	// EdgesDropped is the number of relationships that were dropped.
	EdgesDropped int

	// SiblingPairs is the number of sibling pairs after Freeze().
	SiblingPairs int

	// DurationMilli is the total build time in milliseconds.
	// NOTE: For fast builds (< 1ms), this rounds to 0. Use DurationMicro for precision.
	DurationMilli int64

	// DurationMicro is the total build time in microseconds.
	DurationMicro int64
}

// BuildResult contains the result of a graph build operation.
//
// Builds are resilient: a malformed member or relationship is recorded and
// skipped rather than failing the whole build, so partial data never blocks
// detection between members it does not touch.
type BuildResult struct {
	// Graph is the constructed, frozen graph. Partial if Incomplete is set.
	Graph *Graph

	// MemberErrors contains members that were skipped.
	MemberErrors []MemberError

	// EdgeErrors contains relationships that were dropped.
	EdgeErrors []EdgeError

	// Stats contains build statistics.
	Stats BuildStats

	// Incomplete is true if the build was cancelled via context. The graph
	// contains whatever was added before cancellation.
	Incomplete bool
}

// HasErrors returns true if any member or edge errors occurred.
func (r *BuildResult) HasErrors() bool {
	return len(r.MemberErrors) > 0 || len(r.EdgeErrors) > 0
}

// TotalErrors returns the total number of errors (member + edge).
func (r *BuildResult) TotalErrors() int {
	return len(r.MemberErrors) + len(r.EdgeErrors)
}

// Success returns true if the build completed without errors and is complete.
func (r *BuildResult) Success() bool {
	return !r.Incomplete && !r.HasErrors()
}
