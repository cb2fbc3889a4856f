// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules turns kinship paths into canonical relation codes.
//
// A path is normalized into a Shape and looked up in a Table. Gender picks
// among the male, female and neutral code of a rule; birth years at a
// sibling pivot pick the elder or younger variant; the gender of a leading
// spouse picks the husband's or wife's variant. Paths no single rule covers
// are split into segments and composed into a compound code.
package rules

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/kinship/services/kinship/graph"
	"github.com/AleutianAI/kinship/services/kinship/kin"
)

// MemberLookup resolves member IDs. *graph.Graph satisfies it.
type MemberLookup interface {
	Member(id string) (graph.Member, bool)
}

// SpecialLookup reports special-case codes. *dict.Dictionary satisfies it.
type SpecialLookup interface {
	IsSpecial(code kin.Code) bool
}

// Segment is one resolved part of a path.
type Segment struct {
	Shape   Shape       `json:"shape"`
	Code    kin.Code    `json:"code"`
	Lineage kin.Lineage `json:"lineage"`

	// Steps is the number of path steps the segment covers.
	Steps int `json:"steps"`
}

// Inference is the outcome of applying the rule table to a path.
type Inference struct {
	Code            kin.Code    `json:"code"`
	Lineage         kin.Lineage `json:"lineage"`
	GenerationDelta int         `json:"generation_delta"`
	Special         bool        `json:"special"`

	// Segments lists the resolved parts, head first. A simple path has one.
	Segments []Segment `json:"segments"`
}

// Compound reports whether the path needed more than one rule.
func (i Inference) Compound() bool {
	return len(i.Segments) > 1
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	// Table is the rule table. Default: DefaultTable().
	Table *Table

	// Special flags special-case codes. Default: none are special.
	Special SpecialLookup

	// Logger receives debug output for compound paths. Default: slog.Default().
	Logger *slog.Logger
}

// EngineOption is a functional option for configuring Engine.
type EngineOption func(*EngineOptions)

// WithTable replaces the rule table.
func WithTable(t *Table) EngineOption {
	return func(o *EngineOptions) {
		o.Table = t
	}
}

// WithSpecialLookup sets the source of special-case flags.
func WithSpecialLookup(s SpecialLookup) EngineOption {
	return func(o *EngineOptions) {
		o.Special = s
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *EngineOptions) {
		o.Logger = logger
	}
}

// Engine applies a rule table to kinship paths.
//
// Thread Safety:
//
//	Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	table   *Table
	special SpecialLookup
	logger  *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(opts ...EngineOption) *Engine {
	var options EngineOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.Table == nil {
		options.Table = DefaultTable()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Engine{
		table:   options.Table,
		special: options.Special,
		logger:  options.Logger,
	}
}

// Infer derives the relation of path.EndID to path.StartID.
//
// Description:
//
//	A zero-length path yields kin.CodeSelf. Otherwise the longest prefix
//	covered by a rule is resolved, then the rest of the path is resolved
//	the same way relative to the member the prefix ends at. The codes are
//	joined head first with kin.Compose.
//
//	Lineage comes from the first ascending step of the whole path: Father
//	is paternal, Mother is maternal, a parent of unrecorded gender is
//	either. A single sibling step takes the side of the shared parents.
//
// Inputs:
//
//	path - A path from graph.ShortestPath. Must not be nil.
//	members - Resolves the genders and birth years of path members.
//
// Errors:
//
//	ErrNilPath - path is nil
//	ErrMemberNotFound - A path member is unknown to members
//	ErrUnsupportedStep - A step has a kind and direction no rule covers
func (e *Engine) Infer(path *graph.Path, members MemberLookup) (Inference, error) {
	if path == nil {
		return Inference{}, ErrNilPath
	}
	if len(path.Steps) == 0 {
		return Inference{Code: kin.CodeSelf, Lineage: kin.LineageEither, Segments: []Segment{}}, nil
	}

	segments, err := e.segments(path.Steps, members)
	if err != nil {
		return Inference{}, err
	}

	parts := make([]kin.Code, len(segments))
	for i, s := range segments {
		parts[i] = s.Code
	}

	inf := Inference{
		Code:            kin.Compose(parts...),
		Lineage:         lineageOf(path.Steps),
		GenerationDelta: generationDelta(path.Steps),
		Segments:        segments,
	}
	inf.Special = e.isSpecial(parts)

	if inf.Compound() {
		e.logger.Debug("compound relation",
			slog.String("from", path.StartID),
			slog.String("to", path.EndID),
			slog.String("path", path.String()),
			slog.String("code", string(inf.Code)),
		)
	}

	return inf, nil
}

func (e *Engine) segments(steps []graph.Step, members MemberLookup) ([]Segment, error) {
	segments := make([]Segment, 0, 1)
	for len(steps) > 0 {
		seg, err := e.longestPrefix(steps, members)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
		steps = steps[seg.Steps:]
	}
	return segments, nil
}

func (e *Engine) longestPrefix(steps []graph.Step, members MemberLookup) (Segment, error) {
	for n := len(steps); n > 0; n-- {
		shape, ok := ParseShape(steps[:n])
		if !ok {
			continue
		}
		rule, ok := e.table.Lookup(shape)
		if !ok {
			continue
		}
		code, err := pick(rule, steps[:n], members)
		if err != nil {
			return Segment{}, err
		}
		return Segment{Shape: shape, Code: code, Lineage: lineageOf(steps[:n]), Steps: n}, nil
	}
	return Segment{}, fmt.Errorf("%w: %s %s from %s", ErrUnsupportedStep, steps[0].Direction, steps[0].Kind, steps[0].FromID)
}

// pick selects the code of a rule for the segment's target member.
func pick(rule Rule, steps []graph.Step, members MemberLookup) (kin.Code, error) {
	last := steps[len(steps)-1]
	target, ok := members.Member(last.ToID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMemberNotFound, last.ToID)
	}

	gender := target.Gender
	if gender == kin.GenderUnknown && isAscending(last) {
		switch last.Kind {
		case graph.EdgeKindFather:
			gender = kin.GenderMale
		case graph.EdgeKindMother:
			gender = kin.GenderFemale
		}
	}

	t := rule.Terms

	if rule.Husbands != nil || rule.Wifes != nil {
		spouse, ok := members.Member(steps[0].ToID)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrMemberNotFound, steps[0].ToID)
		}
		switch {
		case spouse.Gender == kin.GenderMale && rule.Husbands != nil:
			t = *rule.Husbands
		case spouse.Gender == kin.GenderFemale && rule.Wifes != nil:
			t = *rule.Wifes
		}
	}

	if rule.Elder != nil || rule.Younger != nil {
		s, err := seniority(steps, members)
		if err != nil {
			return "", err
		}
		switch {
		case s == seniorityElder && rule.Elder != nil:
			t = *rule.Elder
		case s == seniorityYounger && rule.Younger != nil:
			t = *rule.Younger
		}
	}

	return t.For(gender), nil
}

type seniorityRank int

const (
	seniorityUnknown seniorityRank = iota
	seniorityElder
	seniorityYounger
)

// seniority compares the two ends of the sibling pivot by birth year. The
// result is about the far end: elder means born before the near end.
func seniority(steps []graph.Step, members MemberLookup) (seniorityRank, error) {
	for _, s := range steps {
		if !isSibling(s) {
			continue
		}
		near, ok := members.Member(s.FromID)
		if !ok {
			return seniorityUnknown, fmt.Errorf("%w: %s", ErrMemberNotFound, s.FromID)
		}
		far, ok := members.Member(s.ToID)
		if !ok {
			return seniorityUnknown, fmt.Errorf("%w: %s", ErrMemberNotFound, s.ToID)
		}
		if near.BirthYear == 0 || far.BirthYear == 0 || near.BirthYear == far.BirthYear {
			return seniorityUnknown, nil
		}
		if far.BirthYear < near.BirthYear {
			return seniorityElder, nil
		}
		return seniorityYounger, nil
	}
	return seniorityUnknown, nil
}

func lineageOf(steps []graph.Step) kin.Lineage {
	if len(steps) == 1 && isSibling(steps[0]) {
		return steps[0].Shared.Lineage()
	}
	for _, s := range steps {
		if !isAscending(s) {
			continue
		}
		switch s.Kind {
		case graph.EdgeKindFather:
			return kin.LineagePaternal
		case graph.EdgeKindMother:
			return kin.LineageMaternal
		default:
			return kin.LineageEither
		}
	}
	return kin.LineageEither
}

func generationDelta(steps []graph.Step) int {
	delta := 0
	for _, s := range steps {
		switch {
		case isAscending(s):
			delta--
		case isDescending(s):
			delta++
		}
	}
	return delta
}

func (e *Engine) isSpecial(parts []kin.Code) bool {
	if e.special == nil {
		return false
	}
	for _, p := range parts {
		if e.special.IsSpecial(p) {
			return true
		}
	}
	return false
}
