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
	"fmt"
	"sort"
	"strings"
	"time"
)

// Step is one typed, directed hop of a kinship path.
type Step struct {
	// Kind is what ToID is to FromID.
	Kind EdgeKind `json:"kind"`

	// Direction is the generational direction of the hop.
	Direction Direction `json:"direction"`

	FromID string `json:"from"`
	ToID   string `json:"to"`

	// Shared is set on sibling hops.
	Shared SharedParents `json:"shared,omitempty"`
}

// Path is the ordered sequence of steps from StartID to EndID.
//
// No member ID repeats within a path.
type Path struct {
	StartID string `json:"start"`
	EndID   string `json:"end"`
	Steps   []Step `json:"steps"`
}

// Length returns the number of steps.
func (p *Path) Length() int {
	return len(p.Steps)
}

// MemberIDs returns the members on the path, start first.
func (p *Path) MemberIDs() []string {
	ids := make([]string, 0, len(p.Steps)+1)
	ids = append(ids, p.StartID)
	for _, s := range p.Steps {
		ids = append(ids, s.ToID)
	}
	return ids
}

// LineageSeed returns the kind of the first ascending step.
func (p *Path) LineageSeed() (EdgeKind, bool) {
	for _, s := range p.Steps {
		if s.Direction == DirectionAscending {
			return s.Kind, true
		}
	}
	return 0, false
}

// String renders the path as "a -father-> b -sibling- c".
func (p *Path) String() string {
	var sb strings.Builder
	sb.WriteString(p.StartID)
	for _, s := range p.Steps {
		switch s.Direction {
		case DirectionLateral:
			fmt.Fprintf(&sb, " -%s- %s", s.Kind, s.ToID)
		default:
			fmt.Fprintf(&sb, " -%s-> %s", s.Kind, s.ToID)
		}
	}
	return sb.String()
}

// PathOptions configures ShortestPath.
type PathOptions struct {
	// MaxDepth bounds the number of steps searched. Zero means unbounded.
	MaxDepth int
}

// PathOption is a functional option for configuring ShortestPath.
type PathOption func(*PathOptions)

// WithMaxDepth bounds the search depth.
func WithMaxDepth(depth int) PathOption {
	return func(o *PathOptions) {
		o.MaxDepth = depth
	}
}

// arrival is the best known way to reach a member in the next BFS layer.
type arrival struct {
	parentRank int
	parentID   string
	step       Step
}

func (a arrival) sameSequence(b arrival) bool {
	return a.parentRank == b.parentRank && a.step.Kind == b.step.Kind && a.step.Direction == b.step.Direction
}

func (a arrival) less(b arrival) bool {
	if a.parentRank != b.parentRank {
		return a.parentRank < b.parentRank
	}
	if a.step.Kind != b.step.Kind {
		return a.step.Kind < b.step.Kind
	}
	if a.step.Direction != b.step.Direction {
		return a.step.Direction < b.step.Direction
	}
	return a.parentID < b.parentID
}

// ShortestPath finds the shortest kinship path between two members.
//
// Description:
//
//	Breadth-first search from fromID over all links, including derived
//	sibling links. Among shortest paths the one with the lexicographically
//	smallest step sequence wins, comparing kinds as Father < Mother <
//	Child < Spouse < Sibling, then directions as up < lateral < down, then
//	the IDs of the members passed through. Each BFS layer is ranked by the
//	step sequence that reaches it, so the result does not depend on map
//	iteration order.
//
// Inputs:
//
//	ctx - Checked between BFS layers.
//	fromID, toID - Member IDs. Equal IDs yield a zero-length path.
//
// Outputs:
//
//	*Path - The path from fromID to toID.
//	error - Non-nil if no path exists or the search was cancelled.
//
// Errors:
//
//	ErrGraphNotFrozen - Graph is still building
//	ErrMemberNotFound - Either ID is not a member
//	ErrNoPath - The members are in different components, or further apart
//	    than MaxDepth
//	ctx.Err() - The context was cancelled
func (g *Graph) ShortestPath(ctx context.Context, fromID, toID string, opts ...PathOption) (*Path, error) {
	if !g.IsFrozen() {
		return nil, ErrGraphNotFrozen
	}
	for _, id := range []string{fromID, toID} {
		if !g.HasMember(id) {
			return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
		}
	}

	options := PathOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, span := startPathSpan(ctx, g.FamilyID, fromID, toID)
	defer span.End()
	start := time.Now()

	path, visitedCount, err := g.shortestPath(ctx, fromID, toID, options)

	setPathSpanResult(span, path, visitedCount, err)
	recordPathMetrics(ctx, time.Since(start), path, err)

	return path, err
}

func (g *Graph) shortestPath(ctx context.Context, fromID, toID string, options PathOptions) (*Path, int, error) {
	if fromID == toID {
		return &Path{StartID: fromID, EndID: toID, Steps: []Step{}}, 1, nil
	}

	visited := map[string]bool{fromID: true}
	via := make(map[string]arrival)
	rank := map[string]int{fromID: 0}
	layer := []string{fromID}

	for depth := 0; len(layer) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, len(visited), err
		}
		if options.MaxDepth > 0 && depth >= options.MaxDepth {
			break
		}

		next := make(map[string]arrival)
		for _, id := range layer {
			for _, nb := range g.adjacency[id] {
				if visited[nb.ID] {
					continue
				}
				cand := arrival{
					parentRank: rank[id],
					parentID:   id,
					step: Step{
						Kind:      nb.Kind,
						Direction: nb.Direction,
						FromID:    id,
						ToID:      nb.ID,
						Shared:    nb.Shared,
					},
				}
				if cur, ok := next[nb.ID]; !ok || cand.less(cur) {
					next[nb.ID] = cand
				}
			}
		}
		if len(next) == 0 {
			break
		}

		ids := make([]string, 0, len(next))
		for id := range next {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			a, b := next[ids[i]], next[ids[j]]
			if a.less(b) {
				return true
			}
			if b.less(a) {
				return false
			}
			return ids[i] < ids[j]
		})

		r := -1
		for i, id := range ids {
			a := next[id]
			if i == 0 || !a.sameSequence(next[ids[i-1]]) {
				r++
			}
			rank[id] = r
			visited[id] = true
			via[id] = a
		}

		if _, reached := next[toID]; reached {
			return reconstruct(fromID, toID, via), len(visited), nil
		}
		layer = ids
	}

	return nil, len(visited), fmt.Errorf("%w: %s and %s", ErrNoPath, fromID, toID)
}

func reconstruct(fromID, toID string, via map[string]arrival) *Path {
	steps := make([]Step, 0)
	for id := toID; id != fromID; {
		a := via[id]
		steps = append(steps, a.step)
		id = a.parentID
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return &Path{StartID: fromID, EndID: toID, Steps: steps}
}
