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
	"strings"

	"github.com/AleutianAI/kinship/services/kinship/kin"
)

// Default configuration values.
const (
	// DefaultMaxMembers is the default maximum number of members a graph can hold.
	DefaultMaxMembers = 500_000

	// DefaultMaxEdges is the default maximum number of stored edges.
	DefaultMaxEdges = 2_000_000
)

// GraphState represents the lifecycle state of the graph.
type GraphState int

const (
	// GraphStateBuilding indicates the graph is accepting members and edges.
	GraphStateBuilding GraphState = iota

	// GraphStateReadOnly indicates the graph is frozen and read-only.
	GraphStateReadOnly
)

// String returns the string representation of the GraphState.
func (s GraphState) String() string {
	switch s {
	case GraphStateBuilding:
		return "building"
	case GraphStateReadOnly:
		return "readonly"
	default:
		return "unknown"
	}
}

// EdgeKind is the kind of a kinship step.
//
// The declaration order is the tie-break priority used by ShortestPath:
// Father < Mother < Child < Spouse < Sibling.
type EdgeKind int

const (
	// EdgeKindFather links a father to his child.
	EdgeKindFather EdgeKind = iota

	// EdgeKindMother links a mother to her child.
	EdgeKindMother

	// EdgeKindChild links a parent of unrecorded gender to a child. As a
	// descending step it is the generic "to a child" kind.
	EdgeKindChild

	// EdgeKindSpouse links two spouses.
	EdgeKindSpouse

	// EdgeKindSibling links two members sharing a parent. Usually derived.
	EdgeKindSibling

	// NumEdgeKinds is the number of edge kinds.
	NumEdgeKinds
)

var edgeKindNames = [NumEdgeKinds]string{
	EdgeKindFather:  "father",
	EdgeKindMother:  "mother",
	EdgeKindChild:   "child",
	EdgeKindSpouse:  "spouse",
	EdgeKindSibling: "sibling",
}

// String returns the string representation of the EdgeKind.
func (k EdgeKind) String() string {
	if k >= 0 && k < NumEdgeKinds {
		return edgeKindNames[k]
	}
	return "unknown"
}

// IsParent reports whether the kind is stored parent to child.
func (k EdgeKind) IsParent() bool {
	return k == EdgeKindFather || k == EdgeKindMother || k == EdgeKindChild
}

// ParseEdgeKind parses an edge kind name.
func ParseEdgeKind(s string) (EdgeKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range edgeKindNames {
		if name == s {
			return EdgeKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown edge kind %q", ErrInvalidEdge, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k EdgeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EdgeKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEdgeKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Direction is the generational direction of a step.
//
// The declaration order is the secondary tie-break in ShortestPath.
type Direction int

const (
	// DirectionAscending moves from a child to a parent.
	DirectionAscending Direction = iota

	// DirectionLateral moves between spouses or siblings.
	DirectionLateral

	// DirectionDescending moves from a parent to a child.
	DirectionDescending
)

// String returns the string representation of the Direction.
func (d Direction) String() string {
	switch d {
	case DirectionAscending:
		return "up"
	case DirectionLateral:
		return "lateral"
	case DirectionDescending:
		return "down"
	default:
		return "unknown"
	}
}

// SharedParents records which parents two siblings have in common.
type SharedParents uint8

const (
	// SharedFather is set when both siblings have the same father.
	SharedFather SharedParents = 1 << iota

	// SharedMother is set when both siblings have the same mother.
	SharedMother

	// SharedParent is set when both have the same parent of unrecorded gender.
	SharedParent
)

// Has reports whether all bits of other are set.
func (s SharedParents) Has(other SharedParents) bool {
	return s&other == other
}

// Lineage is the lineage side of a sibling link: full siblings and links of
// unknown origin are LineageEither, half siblings take the shared side.
func (s SharedParents) Lineage() kin.Lineage {
	father := s.Has(SharedFather)
	mother := s.Has(SharedMother)
	switch {
	case father && !mother:
		return kin.LineagePaternal
	case mother && !father:
		return kin.LineageMaternal
	default:
		return kin.LineageEither
	}
}

func sharedFor(kind EdgeKind) SharedParents {
	switch kind {
	case EdgeKindFather:
		return SharedFather
	case EdgeKindMother:
		return SharedMother
	default:
		return SharedParent
	}
}

// Member is a person in a family snapshot.
type Member struct {
	// ID uniquely identifies the member within the family.
	ID string `json:"id" yaml:"id" validate:"required"`

	// Name is a display name. Not used for inference.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Gender is the recorded gender.
	Gender kin.Gender `json:"gender" yaml:"gender"`

	// BirthYear is the year of birth, 0 when unknown.
	BirthYear int `json:"birth_year,omitempty" yaml:"birth_year,omitempty" validate:"gte=0"`

	// DeathYear is the year of death, 0 when unknown or alive.
	DeathYear int `json:"death_year,omitempty" yaml:"death_year,omitempty" validate:"gte=0"`
}

// Relationship is a stored fact between two members.
//
// Father, Mother and Child relationships are stored parent to child: FromID
// is the parent. Spouse and Sibling relationships are symmetric.
type Relationship struct {
	FromID string   `json:"from" yaml:"from" validate:"required"`
	ToID   string   `json:"to" yaml:"to" validate:"required"`
	Kind   EdgeKind `json:"kind" yaml:"kind"`

	// Order is the birth order among siblings. Display only.
	Order int `json:"order,omitempty" yaml:"order,omitempty" validate:"gte=0"`
}

// Snapshot is the member and relationship data of one family.
type Snapshot struct {
	FamilyID      string         `json:"family_id" yaml:"family_id" validate:"required"`
	Members       []Member       `json:"members" yaml:"members" validate:"dive"`
	Relationships []Relationship `json:"relationships" yaml:"relationships" validate:"dive"`
}

// Neighbor is one traversable link out of a member.
type Neighbor struct {
	// ID is the member at the other end.
	ID string

	// Kind is what the neighbor is to the member: Father or Mother when
	// ascending, Child when descending (or ascending to a parent of
	// unrecorded gender), Spouse or Sibling when lateral.
	Kind EdgeKind

	// Direction is the generational direction of the step.
	Direction Direction

	// Shared is set on sibling links.
	Shared SharedParents

	// Derived is true for sibling links synthesized from shared parents.
	Derived bool
}

func neighborLess(a, b Neighbor) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Direction != b.Direction {
		return a.Direction < b.Direction
	}
	return a.ID < b.ID
}

// ParentLink is a stored parent of a member.
type ParentLink struct {
	ParentID string
	Kind     EdgeKind
}

// GraphOptions configures Graph behavior and limits.
type GraphOptions struct {
	// MaxMembers is the maximum number of members. Default: 500,000.
	MaxMembers int

	// MaxEdges is the maximum number of stored edges. Default: 2,000,000.
	MaxEdges int
}

// DefaultGraphOptions returns sensible defaults for graph configuration.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxMembers: DefaultMaxMembers,
		MaxEdges:   DefaultMaxEdges,
	}
}

// GraphOption is a functional option for configuring Graph.
type GraphOption func(*GraphOptions)

// WithMaxMembers sets the maximum number of members the graph can hold.
func WithMaxMembers(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxMembers = n
	}
}

// WithMaxEdges sets the maximum number of stored edges.
func WithMaxEdges(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxEdges = n
	}
}
