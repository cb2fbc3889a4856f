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
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// BuilderOptions configures graph building behavior.
type BuilderOptions struct {
	// MaxMembers is the maximum number of members (passed to Graph).
	MaxMembers int

	// MaxEdges is the maximum number of stored edges (passed to Graph).
	MaxEdges int

	// Logger receives warnings for dropped data. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultBuilderOptions returns sensible defaults.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		MaxMembers: DefaultMaxMembers,
		MaxEdges:   DefaultMaxEdges,
	}
}

// BuilderOption is a functional option for configuring Builder.
type BuilderOption func(*BuilderOptions)

// WithBuilderMaxMembers sets the member limit of built graphs.
func WithBuilderMaxMembers(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxMembers = n
	}
}

// WithBuilderMaxEdges sets the edge limit of built graphs.
func WithBuilderMaxEdges(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxEdges = n
	}
}

// WithBuilderLogger sets the logger for data quality warnings.
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(o *BuilderOptions) {
		o.Logger = logger
	}
}

// Builder turns a family snapshot into a frozen Graph.
//
// Thread Safety:
//
//	Builder holds only configuration and is safe for concurrent use; every
//	Build call works on its own Graph.
type Builder struct {
	options BuilderOptions
	logger  *slog.Logger
}

// NewBuilder creates a new Builder with the given options.
func NewBuilder(opts ...BuilderOption) *Builder {
	options := DefaultBuilderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{options: options, logger: logger}
}

// Build constructs a graph from a snapshot.
//
// Description:
//
//	Phase 1 adds members, skipping empty and duplicate IDs. Phase 2 adds
//	relationships; an edge to an unknown member, a self loop, a third parent
//	of one kind or a duplicate is dropped and recorded in EdgeErrors.
//	Phase 3 freezes the graph, which synthesizes sibling links.
//
// Outputs:
//
//	*BuildResult - Always non-nil when err is nil. The graph is frozen even
//	    when Incomplete is set.
//	error - ErrNilSnapshot only. Data problems are reported in the result.
//
// Cancellation:
//
//	The context is checked between members and between relationships. On
//	cancellation the partial graph is frozen and Incomplete is set.
func (b *Builder) Build(ctx context.Context, snap *Snapshot) (*BuildResult, error) {
	if snap == nil {
		return nil, ErrNilSnapshot
	}

	ctx, span := startBuildSpan(ctx, snap.FamilyID, len(snap.Members), len(snap.Relationships))
	defer span.End()

	start := time.Now()
	g := NewGraph(snap.FamilyID,
		WithMaxMembers(b.options.MaxMembers),
		WithMaxEdges(b.options.MaxEdges),
	)
	result := &BuildResult{
		Graph:        g,
		MemberErrors: make([]MemberError, 0),
		EdgeErrors:   make([]EdgeError, 0),
	}

	if err := b.addMembers(ctx, g, snap, result); err != nil {
		result.Incomplete = true
	} else if err := b.addRelationships(ctx, g, snap, result); err != nil {
		result.Incomplete = true
	}

	g.Freeze()

	duration := time.Since(start)
	result.Stats.MembersAdded = g.MemberCount()
	result.Stats.EdgesAdded = g.EdgeCount()
	result.Stats.SiblingPairs = g.SiblingPairCount()
	result.Stats.DurationMilli = duration.Milliseconds()
	result.Stats.DurationMicro = duration.Microseconds()

	if result.Incomplete {
		b.logger.Warn("family graph build cancelled",
			slog.String("family_id", snap.FamilyID),
			slog.Int("members", result.Stats.MembersAdded),
		)
	} else if result.HasErrors() {
		b.logger.Info("family graph built with dropped data",
			slog.String("family_id", snap.FamilyID),
			slog.Int("members_rejected", result.Stats.MembersRejected),
			slog.Int("edges_dropped", result.Stats.EdgesDropped),
		)
	}

	setBuildSpanResult(span, result.Stats, result.Incomplete)
	recordBuildMetrics(ctx, duration, result.Stats, !result.Incomplete)

	return result, nil
}

func (b *Builder) addMembers(ctx context.Context, g *Graph, snap *Snapshot, result *BuildResult) error {
	for i, m := range snap.Members {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrBuildCancelled, err)
		}

		if err := g.AddMember(m); err != nil {
			if errors.Is(err, ErrMaxMembersExceeded) {
				b.logger.Warn("member limit reached, remaining members skipped",
					slog.String("family_id", snap.FamilyID),
					slog.Int("limit", b.options.MaxMembers),
				)
			} else {
				b.logger.Warn("member skipped",
					slog.String("family_id", snap.FamilyID),
					slog.String("member_id", m.ID),
					slog.String("error", err.Error()),
				)
			}
			result.MemberErrors = append(result.MemberErrors, MemberError{MemberID: m.ID, Index: i, Err: err})
			result.Stats.MembersRejected++
		}
	}
	return nil
}

func (b *Builder) addRelationships(ctx context.Context, g *Graph, snap *Snapshot, result *BuildResult) error {
	for _, r := range snap.Relationships {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrBuildCancelled, err)
		}

		err := b.addRelationship(g, r)
		if err == nil {
			continue
		}

		result.EdgeErrors = append(result.EdgeErrors, EdgeError{FromID: r.FromID, ToID: r.ToID, Kind: r.Kind, Err: err})
		result.Stats.EdgesDropped++

		attrs := []any{
			slog.String("family_id", snap.FamilyID),
			slog.String("from", r.FromID),
			slog.String("to", r.ToID),
			slog.String("kind", r.Kind.String()),
			slog.String("error", err.Error()),
		}
		if errors.Is(err, ErrDuplicateEdge) {
			b.logger.Debug("duplicate relationship dropped", attrs...)
		} else {
			b.logger.Warn("relationship dropped", attrs...)
		}
	}
	return nil
}

func (b *Builder) addRelationship(g *Graph, r Relationship) error {
	r.FromID, r.ToID = strings.TrimSpace(r.FromID), strings.TrimSpace(r.ToID)
	for _, id := range []string{r.FromID, r.ToID} {
		if !g.HasMember(id) {
			return fmt.Errorf("%w: %s", ErrUnknownMember, id)
		}
	}

	switch {
	case r.Kind.IsParent():
		return g.AddParentEdge(r.FromID, r.ToID, r.Kind)
	case r.Kind == EdgeKindSpouse:
		return g.AddSpouseEdge(r.FromID, r.ToID)
	case r.Kind == EdgeKindSibling:
		return g.AddSiblingEdge(r.FromID, r.ToID)
	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidEdge, int(r.Kind))
	}
}
