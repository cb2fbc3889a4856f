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
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/kinship/services/kinship/kin"
)

// pairKey identifies an unordered pair of members.
type pairKey struct {
	a, b string
}

func makePair(x, y string) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

type childLink struct {
	childID string
	kind    EdgeKind
}

// Graph is the kinship graph of one family.
//
// Thread Safety:
//
//	Graph is NOT safe for concurrent use during building. It is designed
//	for single-writer access during build, then read-only after Freeze().
//	After Freeze() is called, the graph can be safely read from multiple
//	goroutines, but no further modifications are allowed.
//
// Lifecycle:
//
//  1. Create with NewGraph(familyID)
//  2. Build with AddMember() and Add*Edge() calls
//  3. Call Freeze() to synthesize sibling links and finalize
//  4. Query with Neighbors(), ShortestPath(), etc.
type Graph struct {
	// FamilyID identifies the family the graph was built for.
	FamilyID string

	// members maps member ID to Member.
	members map[string]*Member

	// parents maps child ID to its stored parent links.
	parents map[string][]ParentLink

	// spouses and explicitSiblings hold symmetric stored links.
	spouses          map[pairKey]struct{}
	explicitSiblings map[pairKey]struct{}

	// adjacency is materialized by Freeze(). Lists are sorted by kind,
	// direction, then member ID.
	adjacency map[string][]Neighbor

	edgeCount    int
	siblingPairs int

	state   GraphState
	options GraphOptions

	// BuiltAtMilli is the Unix timestamp in milliseconds when Freeze() was called.
	// Zero if the graph has not been frozen.
	BuiltAtMilli int64
}

// NewGraph creates a new empty graph for the given family.
//
// Description:
//
//	Creates a graph in the Building state, ready to accept members and
//	edges. The graph must be frozen with Freeze() before querying.
//
// Example:
//
//	g := NewGraph("nguyen", WithMaxMembers(10_000))
func NewGraph(familyID string, opts ...GraphOption) *Graph {
	options := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Graph{
		FamilyID:         familyID,
		members:          make(map[string]*Member),
		parents:          make(map[string][]ParentLink),
		spouses:          make(map[pairKey]struct{}),
		explicitSiblings: make(map[pairKey]struct{}),
		state:            GraphStateBuilding,
		options:          options,
	}
}

// State returns the current lifecycle state of the graph.
func (g *Graph) State() GraphState {
	return g.state
}

// IsFrozen returns true if the graph is in read-only mode.
func (g *Graph) IsFrozen() bool {
	return g.state == GraphStateReadOnly
}

// MemberCount returns the number of members.
func (g *Graph) MemberCount() int {
	return len(g.members)
}

// EdgeCount returns the number of stored edges, excluding derived siblings.
func (g *Graph) EdgeCount() int {
	return g.edgeCount
}

// SiblingPairCount returns the number of sibling pairs. Zero before Freeze().
func (g *Graph) SiblingPairCount() int {
	return g.siblingPairs
}

// AddMember adds a member to the graph.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrInvalidMember - Member ID is empty
//	ErrDuplicateMember - Member with same ID already exists
//	ErrMaxMembersExceeded - Graph is at member capacity
func (g *Graph) AddMember(m Member) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}

	m.ID = strings.TrimSpace(m.ID)
	if m.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidMember)
	}

	if len(g.members) >= g.options.MaxMembers {
		return ErrMaxMembersExceeded
	}

	if _, exists := g.members[m.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMember, m.ID)
	}

	g.members[m.ID] = &m
	return nil
}

// HasMember reports whether the ID names a member.
func (g *Graph) HasMember(id string) bool {
	_, ok := g.members[id]
	return ok
}

// Member returns a copy of the member with the given ID.
func (g *Graph) Member(id string) (Member, bool) {
	m, ok := g.members[id]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

// MemberIDs returns all member IDs in sorted order.
func (g *Graph) MemberIDs() []string {
	ids := make([]string, 0, len(g.members))
	for id := range g.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Parents returns the stored parent links of a member.
func (g *Graph) Parents(id string) []ParentLink {
	links := g.parents[id]
	out := make([]ParentLink, len(links))
	copy(out, links)
	return out
}

// AddParentEdge stores a parent to child edge.
//
// Description:
//
//	A generic Child edge from a parent whose gender is recorded is stored
//	as Father or Mother. A Father or Mother edge for a pair that already
//	has a generic edge replaces it. IDs are trimmed as in AddMember.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrInvalidEdge - kind is not Father, Mother or Child
//	ErrSelfLoop - parentID equals childID
//	ErrMemberNotFound - Either member does not exist
//	ErrDuplicateEdge - The pair already has this or a more specific edge
//	ErrConflictingEdge - The parent is already stored with the other gender
//	ErrTooManyParents - The child already has two parents of this kind
//	ErrMaxEdgesExceeded - Graph is at edge capacity
func (g *Graph) AddParentEdge(parentID, childID string, kind EdgeKind) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}
	if !kind.IsParent() {
		return fmt.Errorf("%w: %s is not a parent kind", ErrInvalidEdge, kind)
	}
	parentID, childID = strings.TrimSpace(parentID), strings.TrimSpace(childID)
	if parentID == childID {
		return fmt.Errorf("%w: %s", ErrSelfLoop, parentID)
	}

	parent, ok := g.members[parentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, parentID)
	}
	if _, ok := g.members[childID]; !ok {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, childID)
	}

	if kind == EdgeKindChild {
		switch parent.Gender {
		case kin.GenderMale:
			kind = EdgeKindFather
		case kin.GenderFemale:
			kind = EdgeKindMother
		}
	}

	links := g.parents[childID]
	existing := -1
	sameKind := 0
	for i, l := range links {
		if l.ParentID == parentID {
			existing = i
			continue
		}
		if l.Kind == kind {
			sameKind++
		}
	}

	if existing >= 0 {
		current := links[existing].Kind
		switch {
		case current == kind, kind == EdgeKindChild:
			return fmt.Errorf("%w: %s -[%s]-> %s", ErrDuplicateEdge, parentID, kind, childID)
		case current != EdgeKindChild:
			return fmt.Errorf("%w: %s is already %s of %s", ErrConflictingEdge, parentID, current, childID)
		case sameKind >= 2:
			return fmt.Errorf("%w: %s has two %s edges", ErrTooManyParents, childID, kind)
		}
		links[existing].Kind = kind
		return nil
	}

	if sameKind >= 2 {
		return fmt.Errorf("%w: %s has two %s edges", ErrTooManyParents, childID, kind)
	}
	if g.edgeCount >= g.options.MaxEdges {
		return ErrMaxEdgesExceeded
	}

	g.parents[childID] = append(links, ParentLink{ParentID: parentID, Kind: kind})
	g.edgeCount++
	return nil
}

// AddSpouseEdge stores a marriage between two members.
func (g *Graph) AddSpouseEdge(aID, bID string) error {
	return g.addLateral(g.spouses, aID, bID, EdgeKindSpouse)
}

// AddSiblingEdge stores an explicit sibling link. Members that share a
// parent are linked by Freeze() without one.
func (g *Graph) AddSiblingEdge(aID, bID string) error {
	return g.addLateral(g.explicitSiblings, aID, bID, EdgeKindSibling)
}

func (g *Graph) addLateral(set map[pairKey]struct{}, aID, bID string, kind EdgeKind) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}
	aID, bID = strings.TrimSpace(aID), strings.TrimSpace(bID)
	if aID == bID {
		return fmt.Errorf("%w: %s", ErrSelfLoop, aID)
	}
	if _, ok := g.members[aID]; !ok {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, aID)
	}
	if _, ok := g.members[bID]; !ok {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, bID)
	}

	key := makePair(aID, bID)
	if _, exists := set[key]; exists {
		return fmt.Errorf("%w: %s -[%s]- %s", ErrDuplicateEdge, aID, kind, bID)
	}
	if g.edgeCount >= g.options.MaxEdges {
		return ErrMaxEdgesExceeded
	}

	set[key] = struct{}{}
	g.edgeCount++
	return nil
}

// Freeze transitions the graph to read-only mode.
//
// Description:
//
//	Materializes the adjacency index: every parent edge is indexed in both
//	directions and every pair of children of a common parent is linked by
//	a derived sibling edge recording which parents they share. After
//	calling Freeze(), mutators return ErrGraphFrozen. This operation is
//	irreversible.
//
// Thread Safety:
//
//	After Freeze() returns, the graph can be safely read from multiple
//	goroutines concurrently.
func (g *Graph) Freeze() {
	if g.state == GraphStateReadOnly {
		return
	}

	adj := make(map[string][]Neighbor, len(g.members))
	children := make(map[string][]childLink)

	for childID, links := range g.parents {
		for _, l := range links {
			adj[childID] = append(adj[childID], Neighbor{
				ID:        l.ParentID,
				Kind:      l.Kind,
				Direction: DirectionAscending,
			})
			adj[l.ParentID] = append(adj[l.ParentID], Neighbor{
				ID:        childID,
				Kind:      EdgeKindChild,
				Direction: DirectionDescending,
			})
			children[l.ParentID] = append(children[l.ParentID], childLink{childID: childID, kind: l.Kind})
		}
	}

	for pair := range g.spouses {
		adj[pair.a] = append(adj[pair.a], Neighbor{ID: pair.b, Kind: EdgeKindSpouse, Direction: DirectionLateral})
		adj[pair.b] = append(adj[pair.b], Neighbor{ID: pair.a, Kind: EdgeKindSpouse, Direction: DirectionLateral})
	}

	siblings := make(map[pairKey]SharedParents)
	for _, kids := range children {
		for i := 0; i < len(kids); i++ {
			for j := i + 1; j < len(kids); j++ {
				kind := kids[i].kind
				if kind == EdgeKindChild {
					kind = kids[j].kind
				}
				key := makePair(kids[i].childID, kids[j].childID)
				siblings[key] |= sharedFor(kind)
			}
		}
	}

	for pair, shared := range siblings {
		adj[pair.a] = append(adj[pair.a], Neighbor{ID: pair.b, Kind: EdgeKindSibling, Direction: DirectionLateral, Shared: shared, Derived: true})
		adj[pair.b] = append(adj[pair.b], Neighbor{ID: pair.a, Kind: EdgeKindSibling, Direction: DirectionLateral, Shared: shared, Derived: true})
	}

	explicitOnly := 0
	for pair := range g.explicitSiblings {
		if _, derived := siblings[pair]; derived {
			continue
		}
		explicitOnly++
		adj[pair.a] = append(adj[pair.a], Neighbor{ID: pair.b, Kind: EdgeKindSibling, Direction: DirectionLateral})
		adj[pair.b] = append(adj[pair.b], Neighbor{ID: pair.a, Kind: EdgeKindSibling, Direction: DirectionLateral})
	}

	for id := range adj {
		list := adj[id]
		sort.Slice(list, func(i, j int) bool { return neighborLess(list[i], list[j]) })
	}

	g.adjacency = adj
	g.siblingPairs = len(siblings) + explicitOnly
	g.state = GraphStateReadOnly
	g.BuiltAtMilli = time.Now().UnixMilli()
}

// Neighbors returns the traversable links of a member, including derived
// sibling links, sorted by kind priority, direction, then member ID.
//
// The returned slice is shared and must not be modified. Returns nil
// before Freeze() or for unknown members.
func (g *Graph) Neighbors(id string) []Neighbor {
	if g.state != GraphStateReadOnly {
		return nil
	}
	return g.adjacency[id]
}
