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

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Build(t *testing.T) {
	snap := &Snapshot{
		FamilyID: "nguyen",
		Members:  []Member{male("d"), male("c"), female("m"), male("a"), female("b")},
		Relationships: []Relationship{
			{FromID: "d", ToID: "c", Kind: EdgeKindFather},
			{FromID: "c", ToID: "a", Kind: EdgeKindFather},
			{FromID: "m", ToID: "a", Kind: EdgeKindMother},
			{FromID: "c", ToID: "b", Kind: EdgeKindFather, Order: 2},
			{FromID: "c", ToID: "m", Kind: EdgeKindSpouse},
		},
	}

	result, err := NewBuilder().Build(context.Background(), snap)
	require.NoError(t, err)
	require.NotNil(t, result.Graph)

	assert.True(t, result.Success())
	assert.False(t, result.HasErrors())
	assert.Equal(t, 0, result.TotalErrors())
	assert.True(t, result.Graph.IsFrozen())
	assert.Equal(t, "nguyen", result.Graph.FamilyID)
	assert.Equal(t, 5, result.Stats.MembersAdded)
	assert.Equal(t, 5, result.Stats.EdgesAdded)
	assert.Equal(t, 1, result.Stats.SiblingPairs)
}

func TestBuilder_DropsBadEdges(t *testing.T) {
	snap := &Snapshot{
		FamilyID: "f",
		Members:  []Member{male("a"), male("b"), male("c"), male("d"), person("kid"), male("a")},
		Relationships: []Relationship{
			{FromID: "a", ToID: "ghost", Kind: EdgeKindFather},
			{FromID: "a", ToID: "a", Kind: EdgeKindSpouse},
			{FromID: "a", ToID: "kid", Kind: EdgeKindFather},
			{FromID: "b", ToID: "kid", Kind: EdgeKindFather},
			{FromID: "c", ToID: "kid", Kind: EdgeKindFather},
			{FromID: "a", ToID: "kid", Kind: EdgeKindChild},
			{FromID: "d", ToID: "b", Kind: EdgeKindFather},
		},
	}

	result, err := NewBuilder().Build(context.Background(), snap)
	require.NoError(t, err)

	assert.False(t, result.Success())
	assert.False(t, result.Incomplete)
	require.Len(t, result.MemberErrors, 1)
	assert.ErrorIs(t, result.MemberErrors[0], ErrDuplicateMember)
	assert.Equal(t, 5, result.MemberErrors[0].Index)

	require.Len(t, result.EdgeErrors, 4)
	assert.ErrorIs(t, result.EdgeErrors[0], ErrUnknownMember)
	assert.Equal(t, "ghost", result.EdgeErrors[0].ToID)
	assert.ErrorIs(t, result.EdgeErrors[1], ErrSelfLoop)
	assert.ErrorIs(t, result.EdgeErrors[2], ErrTooManyParents)
	assert.ErrorIs(t, result.EdgeErrors[3], ErrDuplicateEdge)

	var edgeErr EdgeError
	require.True(t, errors.As(error(result.EdgeErrors[2]), &edgeErr))
	assert.Equal(t, EdgeKindFather, edgeErr.Kind)

	// The remaining graph is still usable.
	assert.Equal(t, 3, result.Stats.EdgesAdded)
	assert.Equal(t, 4, result.Stats.EdgesDropped)
	path, err := result.Graph.ShortestPath(context.Background(), "kid", "d")
	require.NoError(t, err)
	assert.Equal(t, 2, path.Length())
}

func TestBuilder_TrimsRelationshipIDs(t *testing.T) {
	snap := &Snapshot{
		FamilyID: "tran",
		Members:  []Member{male(" d"), male("c "), female("m")},
		Relationships: []Relationship{
			{FromID: " d", ToID: "c", Kind: EdgeKindFather},
			{FromID: "c\t", ToID: " m ", Kind: EdgeKindSpouse},
		},
	}

	result, err := NewBuilder().Build(context.Background(), snap)
	require.NoError(t, err)
	assert.True(t, result.Success(), "edge errors: %v", result.EdgeErrors)
	assert.Equal(t, 2, result.Stats.EdgesAdded)

	path, err := result.Graph.ShortestPath(context.Background(), "m", "d")
	require.NoError(t, err)
	assert.Equal(t, 2, path.Length())

	g := NewGraph("direct")
	require.NoError(t, g.AddMember(male("a")))
	require.NoError(t, g.AddMember(male("b")))
	assert.NoError(t, g.AddParentEdge(" a", "b ", EdgeKindFather))
	assert.ErrorIs(t, g.AddSpouseEdge("a ", " a"), ErrSelfLoop)
}

func TestBuilder_NilSnapshot(t *testing.T) {
	_, err := NewBuilder().Build(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilSnapshot)
}

func TestBuilder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := &Snapshot{FamilyID: "f", Members: []Member{male("a"), male("b")}}
	result, err := NewBuilder().Build(ctx, snap)
	require.NoError(t, err)
	assert.True(t, result.Incomplete)
	assert.True(t, result.Graph.IsFrozen(), "partial graphs are frozen")
	assert.Equal(t, 0, result.Stats.MembersAdded)
}

func TestBuilder_Limits(t *testing.T) {
	snap := &Snapshot{
		FamilyID: "f",
		Members:  []Member{male("a"), male("b"), male("c")},
		Relationships: []Relationship{
			{FromID: "a", ToID: "b", Kind: EdgeKindFather},
			{FromID: "b", ToID: "c", Kind: EdgeKindFather},
		},
	}

	result, err := NewBuilder(WithBuilderMaxMembers(2), WithBuilderMaxEdges(5)).Build(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, result.MemberErrors, 1)
	assert.ErrorIs(t, result.MemberErrors[0], ErrMaxMembersExceeded)
	require.Len(t, result.EdgeErrors, 1)
	assert.ErrorIs(t, result.EdgeErrors[0], ErrUnknownMember)
}
