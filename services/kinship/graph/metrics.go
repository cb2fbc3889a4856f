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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for graph operations.
var (
	tracer = otel.Tracer("kinship.graph")
	meter  = otel.Meter("kinship.graph")
)

// Metrics for graph building and path search.
var (
	buildLatency    metric.Float64Histogram
	buildTotal      metric.Int64Counter
	membersAdded    metric.Int64Histogram
	edgesDropped    metric.Int64Counter
	pathLatency     metric.Float64Histogram
	pathLength      metric.Int64Histogram
	pathSearchTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"kinship_graph_build_duration_seconds",
			metric.WithDescription("Duration of family graph builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"kinship_graph_build_total",
			metric.WithDescription("Total number of family graph builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		membersAdded, err = meter.Int64Histogram(
			"kinship_graph_members",
			metric.WithDescription("Number of members per built graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		edgesDropped, err = meter.Int64Counter(
			"kinship_graph_edges_dropped_total",
			metric.WithDescription("Relationships dropped as malformed during builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		pathLatency, err = meter.Float64Histogram(
			"kinship_path_search_duration_seconds",
			metric.WithDescription("Duration of shortest path searches"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		pathLength, err = meter.Int64Histogram(
			"kinship_path_length",
			metric.WithDescription("Number of steps in found paths"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		pathSearchTotal, err = meter.Int64Counter(
			"kinship_path_search_total",
			metric.WithDescription("Total number of path searches by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordBuildMetrics records metrics for a build operation.
func recordBuildMetrics(ctx context.Context, duration time.Duration, stats BuildStats, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))

	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)

	if success {
		membersAdded.Record(ctx, int64(stats.MembersAdded))
	}
	if stats.EdgesDropped > 0 {
		edgesDropped.Add(ctx, int64(stats.EdgesDropped))
	}
}

// recordPathMetrics records metrics for a path search.
func recordPathMetrics(ctx context.Context, duration time.Duration, path *Path, err error) {
	if initMetrics() != nil {
		return
	}

	outcome := pathOutcome(err)
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))

	pathLatency.Record(ctx, duration.Seconds(), attrs)
	pathSearchTotal.Add(ctx, 1, attrs)
	if path != nil {
		pathLength.Record(ctx, int64(path.Length()))
	}
}

func pathOutcome(err error) string {
	switch {
	case err == nil:
		return "found"
	case errors.Is(err, ErrNoPath):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

// startBuildSpan creates a span for a build operation.
func startBuildSpan(ctx context.Context, familyID string, memberCount, relationshipCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "GraphBuilder.Build",
		trace.WithAttributes(
			attribute.String("kinship.family_id", familyID),
			attribute.Int("kinship.member_count", memberCount),
			attribute.Int("kinship.relationship_count", relationshipCount),
		),
	)
}

// setBuildSpanResult sets the result attributes on a build span.
func setBuildSpanResult(span trace.Span, stats BuildStats, incomplete bool) {
	span.SetAttributes(
		attribute.Int("kinship.members_added", stats.MembersAdded),
		attribute.Int("kinship.edges_added", stats.EdgesAdded),
		attribute.Int("kinship.edges_dropped", stats.EdgesDropped),
		attribute.Int("kinship.sibling_pairs", stats.SiblingPairs),
		attribute.Bool("kinship.incomplete", incomplete),
	)
}

// startPathSpan creates a span for a path search.
func startPathSpan(ctx context.Context, familyID, fromID, toID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Graph.ShortestPath",
		trace.WithAttributes(
			attribute.String("kinship.family_id", familyID),
			attribute.String("kinship.from_id", fromID),
			attribute.String("kinship.to_id", toID),
		),
	)
}

// setPathSpanResult sets the result attributes on a path span.
func setPathSpanResult(span trace.Span, path *Path, visited int, err error) {
	span.SetAttributes(
		attribute.String("kinship.outcome", pathOutcome(err)),
		attribute.Int("kinship.visited", visited),
	)
	if path != nil {
		span.SetAttributes(attribute.Int("kinship.path_length", path.Length()))
	}
	if err != nil && !errors.Is(err, ErrNoPath) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
