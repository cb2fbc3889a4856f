// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"context"
	"testing"

	"github.com/AleutianAI/kinship/services/kinship/dict"
	"github.com/AleutianAI/kinship/services/kinship/graph"
	"github.com/AleutianAI/kinship/services/kinship/kin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func member(id string, g kin.Gender, born int) graph.Member {
	return graph.Member{ID: id, Gender: g, BirthYear: born}
}

func parent(from, to string, kind graph.EdgeKind) graph.Relationship {
	return graph.Relationship{FromID: from, ToID: to, Kind: kind}
}

func marriage(a, b string) graph.Relationship {
	return graph.Relationship{FromID: a, ToID: b, Kind: graph.EdgeKindSpouse}
}

// family is three generations around "me": a paternal line with an elder
// uncle and a younger aunt, a maternal line with a younger aunt, a sister,
// a paternal half brother, in-laws and a cousin.
func family(t *testing.T) *graph.Graph {
	t.Helper()
	const (
		M = kin.GenderMale
		F = kin.GenderFemale
	)
	snap := &graph.Snapshot{
		FamilyID: "nguyen",
		Members: []graph.Member{
			member("gf", M, 1920), member("gm", F, 1922), member("mgf", M, 1925),
			member("dad", M, 1950), member("bac", M, 1945), member("co", F, 1955),
			member("duong", M, 1954),
			member("mom", F, 1952), member("di", F, 1958),
			member("dad_wife2", F, 1960),
			member("me", M, 1980), member("sis", F, 1978), member("half_bro", M, 1990),
			member("anh_re", M, 1976), member("chau", F, 2005),
			member("anh_ho", M, 1985),
			member("vo", F, 1982), member("bo_vo", M, 1955),
			member("con", M, 2005), member("con_dau", F, 2006),
			member("stranger", M, 1980),
		},
		Relationships: []graph.Relationship{
			parent("gf", "dad", graph.EdgeKindFather), parent("gm", "dad", graph.EdgeKindMother),
			parent("gf", "bac", graph.EdgeKindFather),
			parent("gf", "co", graph.EdgeKindFather), parent("gm", "co", graph.EdgeKindMother),
			marriage("gf", "gm"), marriage("co", "duong"),
			parent("mgf", "mom", graph.EdgeKindFather), parent("mgf", "di", graph.EdgeKindFather),
			marriage("dad", "mom"), marriage("dad", "dad_wife2"),
			parent("dad", "me", graph.EdgeKindFather), parent("mom", "me", graph.EdgeKindMother),
			parent("dad", "sis", graph.EdgeKindFather), parent("mom", "sis", graph.EdgeKindMother),
			parent("dad", "half_bro", graph.EdgeKindFather), parent("dad_wife2", "half_bro", graph.EdgeKindMother),
			marriage("sis", "anh_re"), parent("sis", "chau", graph.EdgeKindMother),
			parent("bac", "anh_ho", graph.EdgeKindFather),
			marriage("me", "vo"), parent("bo_vo", "vo", graph.EdgeKindFather),
			parent("me", "con", graph.EdgeKindFather), parent("vo", "con", graph.EdgeKindMother),
			marriage("con", "con_dau"),
		},
	}
	result, err := graph.NewBuilder().Build(context.Background(), snap)
	require.NoError(t, err)
	require.True(t, result.Success(), "build errors: %v %v", result.MemberErrors, result.EdgeErrors)
	return result.Graph
}

func defaultDict(t *testing.T) *dict.Dictionary {
	t.Helper()
	d, err := dict.Default()
	require.NoError(t, err)
	return d
}

func infer(t *testing.T, e *Engine, g *graph.Graph, from, to string) Inference {
	t.Helper()
	path, err := g.ShortestPath(context.Background(), from, to)
	require.NoError(t, err)
	inf, err := e.Infer(path, g)
	require.NoError(t, err)
	return inf
}

func TestEngine_Infer(t *testing.T) {
	g := family(t)
	e := NewEngine()

	tests := []struct {
		name    string
		from    string
		to      string
		code    kin.Code
		lineage kin.Lineage
		delta   int
	}{
		{"paternal grandfather", "me", "gf", CodeGrandfather, kin.LineagePaternal, -2},
		{"maternal grandfather", "me", "mgf", CodeGrandfather, kin.LineageMaternal, -2},
		{"grandson", "gf", "me", CodeGrandson, kin.LineageEither, 2},
		{"father", "me", "dad", CodeFather, kin.LineagePaternal, -1},
		{"son", "dad", "me", CodeSon, kin.LineageEither, 1},
		{"elder full sister", "me", "sis", CodeElderSister, kin.LineageEither, 0},
		{"younger paternal half brother", "me", "half_bro", CodeYoungerBrother, kin.LineagePaternal, 0},
		{"father's elder brother", "me", "bac", CodeElderUncle, kin.LineagePaternal, -1},
		{"father's younger sister", "me", "co", CodeYoungerAunt, kin.LineagePaternal, -1},
		{"mother's younger sister", "me", "di", CodeYoungerAunt, kin.LineageMaternal, -1},
		{"father's sister's husband", "me", "duong", CodeUncleByMarriage, kin.LineagePaternal, -1},
		{"stepmother", "me", "dad_wife2", CodeStepmother, kin.LineagePaternal, -1},
		{"cousin through elder uncle", "me", "anh_ho", CodeElderMaleCousin, kin.LineagePaternal, 0},
		{"cousin through younger father", "anh_ho", "me", CodeYoungerCousin, kin.LineagePaternal, 0},
		{"niece", "me", "chau", CodeNiece, kin.LineageEither, 1},
		{"wife", "me", "vo", CodeWife, kin.LineageEither, 0},
		{"husband", "vo", "me", CodeHusband, kin.LineageEither, 0},
		{"wife's father", "me", "bo_vo", CodeWifesFather, kin.LineagePaternal, -1},
		{"son in law", "bo_vo", "me", CodeSonInLaw, kin.LineageEither, 1},
		{"daughter in law", "me", "con_dau", CodeDaughterInLaw, kin.LineageEither, 1},
		{"elder sister's husband", "me", "anh_re", CodeElderBrotherInLaw, kin.LineageEither, 0},
		{"wife's sibling", "anh_re", "me", CodeWifesSibling, kin.LineageEither, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inf := infer(t, e, g, tt.from, tt.to)
			assert.Equal(t, tt.code, inf.Code)
			assert.Equal(t, tt.lineage, inf.Lineage)
			assert.Equal(t, tt.delta, inf.GenerationDelta)
			assert.False(t, inf.Compound())
		})
	}
}

func TestEngine_Self(t *testing.T) {
	g := family(t)
	inf := infer(t, NewEngine(), g, "me", "me")
	assert.Equal(t, kin.CodeSelf, inf.Code)
	assert.Equal(t, 0, inf.GenerationDelta)
	assert.Empty(t, inf.Segments)
}

func TestEngine_Compound(t *testing.T) {
	g := family(t)
	e := NewEngine()

	// Husband's father's elder brother: no single rule covers the path.
	inf := infer(t, e, g, "vo", "bac")
	assert.Equal(t, kin.Code("HusbandsFather.ElderBrother"), inf.Code)
	assert.True(t, inf.Compound())
	require.Len(t, inf.Segments, 2)
	assert.Equal(t, "spouse+up1", inf.Segments[0].Shape.String())
	assert.Equal(t, 2, inf.Segments[0].Steps)
	assert.Equal(t, "sibling", inf.Segments[1].Shape.String())
	assert.Equal(t, -1, inf.GenerationDelta)
	assert.Equal(t, kin.LineagePaternal, inf.Segments[0].Lineage)
	assert.Equal(t, kin.LineagePaternal, inf.Segments[1].Lineage)
}

func TestEngine_CompoundSegmentLineage(t *testing.T) {
	g := family(t)
	e := NewEngine()

	// Son-in-law's mother's younger sister: the maternal step sits in the
	// tail segment, not the head.
	inf := infer(t, e, g, "bo_vo", "di")
	assert.Equal(t, kin.Code("SonInLaw.YoungerAunt"), inf.Code)
	assert.Equal(t, kin.LineageMaternal, inf.Lineage)
	require.Len(t, inf.Segments, 2)
	if inf.Segments[0].Lineage != kin.LineageEither {
		t.Errorf("head lineage = %s, want either", inf.Segments[0].Lineage)
	}
	if inf.Segments[1].Lineage != kin.LineageMaternal {
		t.Errorf("tail lineage = %s, want maternal", inf.Segments[1].Lineage)
	}
}

func TestEngine_GenderFallback(t *testing.T) {
	snap := &graph.Snapshot{
		FamilyID: "f",
		Members:  []graph.Member{{ID: "p"}, {ID: "q"}, {ID: "kid"}},
		Relationships: []graph.Relationship{
			parent("p", "kid", graph.EdgeKindFather),
			parent("q", "kid", graph.EdgeKindChild),
		},
	}
	result, err := graph.NewBuilder().Build(context.Background(), snap)
	require.NoError(t, err)
	g := result.Graph
	e := NewEngine()

	assert.Equal(t, CodeFather, infer(t, e, g, "kid", "p").Code, "father edge implies male")
	assert.Equal(t, CodeParent, infer(t, e, g, "kid", "q").Code)
	assert.Equal(t, kin.LineageEither, infer(t, e, g, "kid", "q").Lineage)
	assert.Equal(t, CodeChild, infer(t, e, g, "p", "kid").Code)
}

func TestEngine_AncestorBand(t *testing.T) {
	members := make([]graph.Member, 0, 7)
	rels := make([]graph.Relationship, 0, 6)
	ids := []string{"g0", "g1", "g2", "g3", "g4", "g5", "g6"}
	for i, id := range ids {
		members = append(members, member(id, kin.GenderMale, 0))
		if i > 0 {
			rels = append(rels, parent(id, ids[i-1], graph.EdgeKindFather))
		}
	}
	result, err := graph.NewBuilder().Build(context.Background(), &graph.Snapshot{FamilyID: "line", Members: members, Relationships: rels})
	require.NoError(t, err)
	g := result.Graph
	e := NewEngine()

	assert.Equal(t, CodeGreatGreatGrandfather, infer(t, e, g, "g0", "g4").Code)
	assert.Equal(t, CodeAncestor, infer(t, e, g, "g0", "g5").Code)
	assert.Equal(t, CodeAncestor, infer(t, e, g, "g0", "g6").Code)
	assert.Equal(t, CodeDescendant, infer(t, e, g, "g6", "g0").Code)
	assert.Equal(t, -6, infer(t, e, g, "g0", "g6").GenerationDelta)
}

func TestEngine_UnknownSeniority(t *testing.T) {
	snap := &graph.Snapshot{
		FamilyID: "f",
		Members: []graph.Member{
			member("dad", kin.GenderMale, 0), member("a", kin.GenderMale, 0),
			member("b", kin.GenderFemale, 1990), member("c", kin.GenderMale, 1990),
		},
		Relationships: []graph.Relationship{
			parent("dad", "a", graph.EdgeKindFather),
			parent("dad", "b", graph.EdgeKindFather),
			parent("dad", "c", graph.EdgeKindFather),
		},
	}
	result, err := graph.NewBuilder().Build(context.Background(), snap)
	require.NoError(t, err)
	g := result.Graph
	e := NewEngine()

	assert.Equal(t, CodeSister, infer(t, e, g, "a", "b").Code, "unknown birth year")
	assert.Equal(t, CodeBrother, infer(t, e, g, "b", "c").Code, "same birth year")
	assert.Equal(t, kin.LineagePaternal, infer(t, e, g, "b", "c").Lineage)
}

func TestEngine_Special(t *testing.T) {
	g := family(t)
	e := NewEngine(WithSpecialLookup(defaultDict(t)))

	assert.True(t, infer(t, e, g, "me", "anh_ho").Special)
	assert.True(t, infer(t, e, g, "me", "duong").Special)
	assert.False(t, infer(t, e, g, "me", "gf").Special)
	assert.False(t, infer(t, NewEngine(), g, "me", "anh_ho").Special, "no lookup configured")
}

func TestEngine_RoundTripInverse(t *testing.T) {
	g := family(t)
	e := NewEngine()
	d := defaultDict(t)

	pairs := [][2]string{
		{"me", "gf"}, {"me", "bac"}, {"me", "anh_ho"}, {"me", "bo_vo"},
		{"me", "sis"}, {"me", "half_bro"}, {"me", "anh_re"},
		{"me", "chau"}, {"me", "vo"}, {"dad", "me"},
	}
	for _, p := range pairs {
		fwd := infer(t, e, g, p[0], p[1])
		back := infer(t, e, g, p[1], p[0])
		assert.Equal(t, -fwd.GenerationDelta, back.GenerationDelta, "%s/%s", p[0], p[1])
		assert.True(t, d.IsInverse(fwd.Code, back.Code), "%s (%s) and %s (%s) are not inverses", p[0], fwd.Code, p[1], back.Code)
	}
}

func TestEngine_Errors(t *testing.T) {
	e := NewEngine()
	g := family(t)

	_, err := e.Infer(nil, g)
	assert.ErrorIs(t, err, ErrNilPath)

	path := &graph.Path{StartID: "me", EndID: "ghost", Steps: []graph.Step{
		{Kind: graph.EdgeKindFather, Direction: graph.DirectionAscending, FromID: "me", ToID: "ghost"},
	}}
	_, err = e.Infer(path, g)
	assert.ErrorIs(t, err, ErrMemberNotFound)

	path = &graph.Path{StartID: "me", EndID: "dad", Steps: []graph.Step{
		{Kind: graph.EdgeKindFather, Direction: graph.Direction(9), FromID: "me", ToID: "dad"},
	}}
	_, err = e.Infer(path, g)
	assert.ErrorIs(t, err, ErrUnsupportedStep)
}
