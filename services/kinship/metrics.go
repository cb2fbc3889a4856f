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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("kinship.service")
	meter  = otel.Meter("kinship.service")
)

var (
	detectTotal   metric.Int64Counter
	detectLatency metric.Float64Histogram
	degradedTotal metric.Int64Counter
	batchPairs    metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		detectTotal, err = meter.Int64Counter(
			"kinship_detect_total",
			metric.WithDescription("Total detections by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		detectLatency, err = meter.Float64Histogram(
			"kinship_detect_duration_seconds",
			metric.WithDescription("Duration of detections, including graph builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		degradedTotal, err = meter.Int64Counter(
			"kinship_detect_degraded_total",
			metric.WithDescription("Detections answered with a raw relation code"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		batchPairs, err = meter.Int64Histogram(
			"kinship_detect_batch_pairs",
			metric.WithDescription("Number of pairs per batch detection"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// detectOutcome labels a finished detection.
func detectOutcome(result *Result, err error) string {
	switch {
	case err != nil:
		return "error"
	case !result.Related():
		return "unrelated"
	case result.Degraded:
		return "degraded"
	default:
		return "ok"
	}
}

func recordDetect(ctx context.Context, duration time.Duration, result *Result, err error) {
	if initMetrics() != nil {
		return
	}
	outcome := attribute.String("outcome", detectOutcome(result, err))
	detectTotal.Add(ctx, 1, metric.WithAttributes(outcome))
	detectLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(outcome))
	if err == nil && result.Degraded {
		degradedTotal.Add(ctx, 1)
	}
}

func recordBatch(ctx context.Context, pairs int) {
	if initMetrics() != nil {
		return
	}
	batchPairs.Record(ctx, int64(pairs))
}

func startDetectSpan(ctx context.Context, familyID, fromID, toID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Service.Detect",
		trace.WithAttributes(
			attribute.String("kinship.family_id", familyID),
			attribute.String("kinship.from_id", fromID),
			attribute.String("kinship.to_id", toID),
		),
	)
}

func setDetectSpanResult(span trace.Span, result *Result, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(
		attribute.String("kinship.relation_code", string(result.RelationCode)),
		attribute.Int("kinship.generation_delta", result.GenerationDelta),
		attribute.Bool("kinship.degraded", result.Degraded),
	)
}
