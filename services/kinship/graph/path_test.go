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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFamily builds a frozen graph and fails the test on any dropped data.
func buildFamily(t *testing.T, members []Member, rels []Relationship) *Graph {
	t.Helper()
	result, err := NewBuilder().Build(context.Background(), &Snapshot{
		FamilyID:      "test",
		Members:       members,
		Relationships: rels,
	})
	require.NoError(t, err)
	require.True(t, result.Success(), "unexpected build errors: %v %v", result.MemberErrors, result.EdgeErrors)
	return result.Graph
}

func kinds(p *Path) []EdgeKind {
	out := make([]EdgeKind, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Kind
	}
	return out
}

// threeGenerations: d is the paternal grandfather of a and b, m their mother.
func threeGenerations(t *testing.T) *Graph {
	return buildFamily(t,
		[]Member{male("d"), male("c"), female("m"), male("a"), female("b"), male("u"), male("x")},
		[]Relationship{
			{FromID: "d", ToID: "c", Kind: EdgeKindFather},
			{FromID: "d", ToID: "u", Kind: EdgeKindFather},
			{FromID: "c", ToID: "a", Kind: EdgeKindFather},
			{FromID: "m", ToID: "a", Kind: EdgeKindMother},
			{FromID: "c", ToID: "b", Kind: EdgeKindFather},
			{FromID: "m", ToID: "b", Kind: EdgeKindMother},
			{FromID: "c", ToID: "m", Kind: EdgeKindSpouse},
		},
	)
}

func TestShortestPath_Self(t *testing.T) {
	g := threeGenerations(t)
	path, err := g.ShortestPath(context.Background(), "a", "a")
	require.NoError(t, err)
	assert.Equal(t, 0, path.Length())
	assert.NotNil(t, path.Steps)
	assert.Equal(t, []string{"a"}, path.MemberIDs())
}

func TestShortestPath_Grandfather(t *testing.T) {
	g := threeGenerations(t)
	path, err := g.ShortestPath(context.Background(), "a", "d")
	require.NoError(t, err)

	require.Equal(t, 2, path.Length())
	assert.Equal(t, []EdgeKind{EdgeKindFather, EdgeKindFather}, kinds(path))
	assert.Equal(t, []string{"a", "c", "d"}, path.MemberIDs())
	for _, s := range path.Steps {
		assert.Equal(t, DirectionAscending, s.Direction)
	}

	seed, ok := path.LineageSeed()
	require.True(t, ok)
	assert.Equal(t, EdgeKindFather, seed)
	assert.Equal(t, "a -father-> c -father-> d", path.String())

	back, err := g.ShortestPath(context.Background(), "d", "a")
	require.NoError(t, err)
	assert.Equal(t, []EdgeKind{EdgeKindChild, EdgeKindChild}, kinds(back))
	_, ok = back.LineageSeed()
	assert.False(t, ok)
}

func TestShortestPath_SiblingShortcut(t *testing.T) {
	g := threeGenerations(t)

	path, err := g.ShortestPath(context.Background(), "a", "b")
	require.NoError(t, err)
	require.Equal(t, 1, path.Length())
	assert.Equal(t, EdgeKindSibling, path.Steps[0].Kind)
	assert.Equal(t, SharedFather|SharedMother, path.Steps[0].Shared)

	// Uncle: up to the father, then across to his brother.
	path, err = g.ShortestPath(context.Background(), "a", "u")
	require.NoError(t, err)
	assert.Equal(t, []EdgeKind{EdgeKindFather, EdgeKindSibling}, kinds(path))
	assert.Equal(t, "a -father-> c -sibling- u", path.String())
}

func TestShortestPath_PrefersFatherOverMother(t *testing.T) {
	// a's parents are both children of g, so g is reachable through either.
	g := buildFamily(t,
		[]Member{male("g"), male("f"), female("m"), male("a")},
		[]Relationship{
			{FromID: "g", ToID: "f", Kind: EdgeKindFather},
			{FromID: "g", ToID: "m", Kind: EdgeKindFather},
			{FromID: "f", ToID: "a", Kind: EdgeKindFather},
			{FromID: "m", ToID: "a", Kind: EdgeKindMother},
		},
	)

	path, err := g.ShortestPath(context.Background(), "a", "g")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "f", "g"}, path.MemberIDs())
}

func TestShortestPath_TieBreakByMemberID(t *testing.T) {
	// Two paths with identical step kinds; the one through the smaller ID wins.
	g := buildFamily(t,
		[]Member{person("root"), person("k2"), person("k1"), person("leaf")},
		[]Relationship{
			{FromID: "root", ToID: "k2", Kind: EdgeKindChild},
			{FromID: "root", ToID: "k1", Kind: EdgeKindChild},
			{FromID: "k2", ToID: "leaf", Kind: EdgeKindChild},
			{FromID: "k1", ToID: "leaf", Kind: EdgeKindChild},
		},
	)

	for i := 0; i < 20; i++ {
		path, err := g.ShortestPath(context.Background(), "root", "leaf")
		require.NoError(t, err)
		assert.Equal(t, []string{"root", "k1", "leaf"}, path.MemberIDs())
	}
}

func TestShortestPath_GenericParentIsAscending(t *testing.T) {
	g := buildFamily(t,
		[]Member{person("p"), male("kid")},
		[]Relationship{{FromID: "p", ToID: "kid", Kind: EdgeKindChild}},
	)

	path, err := g.ShortestPath(context.Background(), "kid", "p")
	require.NoError(t, err)
	require.Equal(t, 1, path.Length())
	assert.Equal(t, EdgeKindChild, path.Steps[0].Kind)
	assert.Equal(t, DirectionAscending, path.Steps[0].Direction)

	seed, ok := path.LineageSeed()
	require.True(t, ok)
	assert.Equal(t, EdgeKindChild, seed)
}

func TestShortestPath_MarriageLoopTerminates(t *testing.T) {
	// Cousins who married: the graph has a cycle through two sibling lines.
	g := buildFamily(t,
		[]Member{male("gp"), male("s1"), female("s2"), male("c1"), female("c2"), male("baby"), male("far")},
		[]Relationship{
			{FromID: "gp", ToID: "s1", Kind: EdgeKindFather},
			{FromID: "gp", ToID: "s2", Kind: EdgeKindFather},
			{FromID: "s1", ToID: "c1", Kind: EdgeKindFather},
			{FromID: "s2", ToID: "c2", Kind: EdgeKindMother},
			{FromID: "c1", ToID: "c2", Kind: EdgeKindSpouse},
			{FromID: "c1", ToID: "baby", Kind: EdgeKindFather},
			{FromID: "c2", ToID: "baby", Kind: EdgeKindMother},
			{FromID: "far", ToID: "gp", Kind: EdgeKindFather},
		},
	)

	path, err := g.ShortestPath(context.Background(), "baby", "far")
	require.NoError(t, err)
	assert.Equal(t, 4, path.Length())
	assert.Equal(t, []string{"baby", "c1", "s1", "gp", "far"}, path.MemberIDs())

	seen := make(map[string]bool)
	for _, id := range path.MemberIDs() {
		assert.False(t, seen[id], "member %s repeats", id)
		seen[id] = true
	}
}

func TestShortestPath_Errors(t *testing.T) {
	g := threeGenerations(t)
	ctx := context.Background()

	t.Run("unrelated", func(t *testing.T) {
		_, err := g.ShortestPath(ctx, "a", "x")
		assert.ErrorIs(t, err, ErrNoPath)
	})

	t.Run("unknown member", func(t *testing.T) {
		_, err := g.ShortestPath(ctx, "a", "nobody")
		assert.ErrorIs(t, err, ErrMemberNotFound)
	})

	t.Run("max depth", func(t *testing.T) {
		_, err := g.ShortestPath(ctx, "a", "d", WithMaxDepth(1))
		assert.ErrorIs(t, err, ErrNoPath)

		path, err := g.ShortestPath(ctx, "a", "d", WithMaxDepth(2))
		require.NoError(t, err)
		assert.Equal(t, 2, path.Length())
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := g.ShortestPath(cctx, "a", "d")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("not frozen", func(t *testing.T) {
		building := NewGraph("f")
		require.NoError(t, building.AddMember(male("a")))
		_, err := building.ShortestPath(ctx, "a", "a")
		assert.ErrorIs(t, err, ErrGraphNotFrozen)
	})
}
