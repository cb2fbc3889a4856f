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
	"fmt"
	"strings"

	"github.com/AleutianAI/kinship/services/kinship/graph"
)

// Lateral is the pivot between the ascending and descending runs of a shape.
type Lateral int

const (
	// LateralNone means the path has no pivot.
	LateralNone Lateral = iota

	// LateralSibling pivots through a sibling link.
	LateralSibling

	// LateralSpouse pivots through a marriage.
	LateralSpouse
)

// String returns the string representation of the Lateral.
func (l Lateral) String() string {
	switch l {
	case LateralNone:
		return "none"
	case LateralSibling:
		return "sibling"
	case LateralSpouse:
		return "spouse"
	default:
		return "unknown"
	}
}

// Shape is the normalized form of a kinship path.
//
// A path reads as: an optional marriage hop, Up ascending steps, an
// optional lateral pivot, Down descending steps, and an optional trailing
// marriage hop.
type Shape struct {
	LeadSpouse  bool
	Up          int
	Lateral     Lateral
	Down        int
	TrailSpouse bool
}

// String renders the shape as "+" joined parts, e.g. "spouse+up1" or
// "up1+sibling+down1". The rendering is unique per shape that ParseShape
// can produce.
func (s Shape) String() string {
	parts := make([]string, 0, 5)
	if s.LeadSpouse {
		parts = append(parts, "spouse")
	}
	if s.Up > 0 {
		parts = append(parts, fmt.Sprintf("up%d", s.Up))
	}
	if s.Lateral != LateralNone {
		parts = append(parts, s.Lateral.String())
	}
	if s.Down > 0 {
		parts = append(parts, fmt.Sprintf("down%d", s.Down))
	}
	if s.TrailSpouse {
		parts = append(parts, "spouse")
	}
	if len(parts) == 0 {
		return "self"
	}
	return strings.Join(parts, "+")
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Length returns the number of steps the shape covers.
func (s Shape) Length() int {
	n := s.Up + s.Down
	if s.LeadSpouse {
		n++
	}
	if s.Lateral != LateralNone {
		n++
	}
	if s.TrailSpouse {
		n++
	}
	return n
}

func isAscending(s graph.Step) bool {
	return s.Direction == graph.DirectionAscending
}

func isDescending(s graph.Step) bool {
	return s.Direction == graph.DirectionDescending
}

func isSibling(s graph.Step) bool {
	return s.Direction == graph.DirectionLateral && s.Kind == graph.EdgeKindSibling
}

func isSpouse(s graph.Step) bool {
	return s.Direction == graph.DirectionLateral && s.Kind == graph.EdgeKindSpouse
}

// ParseShape normalizes a step sequence.
//
// Description:
//
//	A leading Spouse step counts as LeadSpouse only when the next step
//	ascends or crosses to a sibling, so "spouse, child" stays a stepchild
//	pivot. ok is false when steps remain after the trailing marriage hop;
//	such paths are complex and are resolved segment by segment.
func ParseShape(steps []graph.Step) (shape Shape, ok bool) {
	i := 0
	if len(steps) >= 2 && isSpouse(steps[0]) && (isAscending(steps[1]) || isSibling(steps[1])) {
		shape.LeadSpouse = true
		i = 1
	}

	for i < len(steps) && isAscending(steps[i]) {
		shape.Up++
		i++
	}

	if i < len(steps) {
		switch {
		case isSibling(steps[i]):
			shape.Lateral = LateralSibling
			i++
		case isSpouse(steps[i]):
			shape.Lateral = LateralSpouse
			i++
		}
	}

	for i < len(steps) && isDescending(steps[i]) {
		shape.Down++
		i++
	}

	if i < len(steps) && isSpouse(steps[i]) && shape.Lateral != LateralSpouse {
		shape.TrailSpouse = true
		i++
	}

	return shape, i == len(steps)
}
