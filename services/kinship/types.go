// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package kinship

import (
	"time"

	"github.com/AleutianAI/kinship/services/kinship/graph"
	"github.com/AleutianAI/kinship/services/kinship/kin"
	"github.com/AleutianAI/kinship/services/kinship/rules"
)

// Result is the answer to "what is ToID to FromID?".
type Result struct {
	// DetectionID uniquely identifies this detection for audit logs.
	DetectionID string `json:"detection_id"`

	FamilyID string `json:"family_id"`
	FromID   string `json:"from_id"`
	ToID     string `json:"to_id"`

	// RelationCode is the canonical code, compound for complex paths.
	RelationCode kin.Code `json:"relation_code"`

	// DisplayName is the localized name for Region. Falls back to the raw
	// code when the dictionary has no entry (see Degraded).
	DisplayName string `json:"display_name"`

	// Alternates are other acceptable names in the region.
	Alternates []string `json:"alternates,omitempty"`

	Region  kin.Region  `json:"region"`
	Lineage kin.Lineage `json:"lineage"`

	// GenerationDelta is negative when ToID is an ancestor of FromID.
	GenerationDelta int `json:"generation_delta"`

	// IsSpecial marks idiomatic terms with no compositional translation.
	IsSpecial bool `json:"is_special"`

	// Segments are the rule-table parts the code was composed from.
	Segments []rules.Segment `json:"segments,omitempty"`

	// Path is the shortest path from FromID to ToID. Nil when unrelated.
	Path *graph.Path `json:"path,omitempty"`

	// Warnings describe degraded parts of the answer.
	Warnings []string `json:"warnings,omitempty"`

	// Degraded is true when the display name could not be resolved.
	Degraded bool `json:"degraded"`

	// DetectedAtMilli is when the detection finished.
	DetectedAtMilli int64 `json:"detected_at_milli"`
}

// Related reports whether a kinship path exists.
func (r *Result) Related() bool {
	return r.RelationCode != kin.CodeUnrelated
}

// Pair names two members of a family for DetectBatch.
type Pair struct {
	FromID string `json:"from_id" yaml:"from_id"`
	ToID   string `json:"to_id" yaml:"to_id"`
}

// PairResult is the outcome of one pair of a batch. Exactly one of Result
// and Error is set.
type PairResult struct {
	Pair   Pair    `json:"pair"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`

	err error
}

// Err returns the detection error of the pair, or nil.
func (p PairResult) Err() error {
	return p.err
}

// DetectOptions are per-call detection settings.
type DetectOptions struct {
	// Region overrides the service's configured region.
	Region *kin.Region
}

// DetectOption is a functional option for a single detection.
type DetectOption func(*DetectOptions)

// WithRegion resolves the display name for region instead of the
// configured one.
func WithRegion(region kin.Region) DetectOption {
	return func(o *DetectOptions) {
		o.Region = &region
	}
}

// FamilyReport summarizes the latest graph build of a family.
type FamilyReport struct {
	FamilyID string `json:"family_id"`

	// Fingerprint is the provider version, or a content hash of the
	// snapshot when the provider reports none.
	Fingerprint string `json:"fingerprint,omitempty"`

	Members      int `json:"members"`
	Edges        int `json:"edges"`
	SiblingPairs int `json:"sibling_pairs"`

	// DroppedMembers and DroppedEdges count snapshot records the builder
	// skipped. Problems holds one message per skipped record.
	DroppedMembers int      `json:"dropped_members"`
	DroppedEdges   int      `json:"dropped_edges"`
	Problems       []string `json:"problems,omitempty"`

	BuiltAtMilli int64 `json:"built_at_milli"`
}

// Clean reports whether the build kept every snapshot record.
func (r *FamilyReport) Clean() bool {
	return r.DroppedMembers == 0 && r.DroppedEdges == 0
}

func newFamilyReport(familyID, fingerprint string, result *graph.BuildResult) *FamilyReport {
	report := &FamilyReport{
		FamilyID:       familyID,
		Fingerprint:    fingerprint,
		Members:        result.Stats.MembersAdded,
		Edges:          result.Stats.EdgesAdded,
		SiblingPairs:   result.Stats.SiblingPairs,
		DroppedMembers: len(result.MemberErrors),
		DroppedEdges:   len(result.EdgeErrors),
		BuiltAtMilli:   time.Now().UnixMilli(),
	}
	for _, e := range result.MemberErrors {
		report.Problems = append(report.Problems, e.Error())
	}
	for _, e := range result.EdgeErrors {
		report.Problems = append(report.Problems, e.Error())
	}
	return report
}
