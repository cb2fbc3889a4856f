// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package kinship answers "what is B to A?" for two members of a family.
//
// The Service loads a family snapshot from a provider, builds (or reuses) a
// frozen family graph, finds the shortest kinship path, classifies it with
// the rule table and resolves a regional Vietnamese display name:
//
//	svc, err := kinship.NewService(provider.NewMemory(), kinship.DefaultServiceConfig())
//	res, err := svc.Detect(ctx, "nguyen", "me", "bac")
//	fmt.Println(res.RelationCode, res.DisplayName) // ElderUncle Bác
//
// Missing kinship is an answer, not an error: members without a path are
// "Unrelated", and a code the dictionary lacks is returned as-is with
// Degraded set.
package kinship

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/kinship/services/kinship/cache"
	"github.com/AleutianAI/kinship/services/kinship/dict"
	"github.com/AleutianAI/kinship/services/kinship/graph"
	"github.com/AleutianAI/kinship/services/kinship/kin"
	"github.com/AleutianAI/kinship/services/kinship/provider"
	"github.com/AleutianAI/kinship/services/kinship/rules"
	"github.com/AleutianAI/kinship/services/kinship/telemetry"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ServiceOptions holds collaborators that are not plain configuration.
type ServiceOptions struct {
	// Dictionary replaces the dictionary named by ServiceConfig.DictPath.
	Dictionary *dict.Dictionary

	// RuleTable replaces the built-in rule table.
	RuleTable *rules.Table

	// Logger is the service logger. Default: slog.Default()
	Logger *slog.Logger
}

// ServiceOption is a functional option for configuring Service.
type ServiceOption func(*ServiceOptions)

// WithDictionary sets the dictionary.
func WithDictionary(d *dict.Dictionary) ServiceOption {
	return func(o *ServiceOptions) {
		o.Dictionary = d
	}
}

// WithRuleTable sets the rule table.
func WithRuleTable(t *rules.Table) ServiceOption {
	return func(o *ServiceOptions) {
		o.RuleTable = t
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *ServiceOptions) {
		o.Logger = logger
	}
}

// Service is the relationship detection service.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Family graphs are frozen before
//	they are shared; the graph cache builds each family at most once at a
//	time.
type Service struct {
	config   ServiceConfig
	provider provider.Provider
	dict     *dict.Dictionary
	engine   *rules.Engine
	builder  *graph.Builder
	graphs   *cache.GraphCache
	logger   *slog.Logger
	closed   atomic.Bool

	// reports holds the latest *FamilyReport per family ID.
	reports sync.Map
}

// NewService creates a detection service.
//
// Description:
//
//	Validates the configuration and loads the dictionary (DictPath, or the
//	embedded table). When CheckVersions is set and the provider implements
//	provider.Versioner, cached graphs are rebuilt as soon as the provider
//	reports a new version for their family.
//
// Errors:
//
//	ErrNilProvider - p is nil
//	ErrInvalidConfig - config failed validation
//	dict errors - The dictionary could not be loaded
func NewService(p provider.Provider, config ServiceConfig, opts ...ServiceOption) (*Service, error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var options ServiceOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	logger := options.Logger.With(slog.String("component", "kinship"))

	d := options.Dictionary
	if d == nil {
		var err error
		if config.DictPath != "" {
			d, err = dict.LoadFile(config.DictPath)
		} else {
			d, err = dict.Default()
		}
		if err != nil {
			return nil, fmt.Errorf("load dictionary: %w", err)
		}
	}

	engineOpts := []rules.EngineOption{
		rules.WithSpecialLookup(d),
		rules.WithLogger(logger),
	}
	if options.RuleTable != nil {
		engineOpts = append(engineOpts, rules.WithTable(options.RuleTable))
	}

	cacheOpts := []cache.CacheOption{
		cache.WithMaxEntries(config.CacheMaxEntries),
		cache.WithMaxAge(config.CacheMaxAge),
		cache.WithMaxMemoryMB(config.CacheMaxMemoryMB),
		cache.WithErrorCacheTTL(config.ErrorCacheTTL),
		cache.WithBuildTimeout(config.BuildTimeout),
	}
	if v, ok := p.(provider.Versioner); ok && config.CheckVersions {
		cacheOpts = append(cacheOpts, cache.WithVersionFunc(v.Version))
	}

	return &Service{
		config:   config,
		provider: p,
		dict:     d,
		engine:   rules.NewEngine(engineOpts...),
		builder: graph.NewBuilder(
			graph.WithBuilderMaxMembers(config.MaxMembers),
			graph.WithBuilderMaxEdges(config.MaxEdges),
			graph.WithBuilderLogger(logger),
		),
		graphs: cache.NewGraphCache(cacheOpts...),
		logger: logger,
	}, nil
}

// Config returns the service configuration.
func (s *Service) Config() ServiceConfig {
	return s.config
}

// Dictionary returns the dictionary used for display names.
func (s *Service) Dictionary() *dict.Dictionary {
	return s.dict
}

// Detect answers what toID is to fromID within a family.
//
// Description:
//
//	Loads the family graph (cached per family), finds the shortest path
//	from fromID to toID, classifies it and resolves the display name.
//	Equal IDs yield "Self". Members without a connecting path yield
//	"Unrelated" with a nil Path. A relation code missing from the
//	dictionary is returned as the display name with Degraded set.
//
// Inputs:
//
//	ctx - Cancels the snapshot load, the graph build and the path search.
//	familyID, fromID, toID - Leading and trailing spaces are ignored.
//	opts - Per-call options such as WithRegion.
//
// Outputs:
//
//	*Result - The detection result. Never nil when err is nil.
//	error - Non-nil only for caller or collaborator faults.
//
// Errors:
//
//	ErrInvalidFamilyID, ErrInvalidMemberID - Empty IDs
//	ErrMemberNotFound - A member is not in the family
//	ErrSnapshotUnavailable - The provider failed; wraps its error
//	ErrServiceClosed - Close was called
//	ctx.Err() - The context was cancelled
func (s *Service) Detect(ctx context.Context, familyID, fromID, toID string, opts ...DetectOption) (*Result, error) {
	if s.closed.Load() {
		return nil, ErrServiceClosed
	}
	familyID = strings.TrimSpace(familyID)
	if familyID == "" {
		return nil, ErrInvalidFamilyID
	}
	fromID, toID, err := normalizeMemberIDs(fromID, toID)
	if err != nil {
		return nil, err
	}
	region := s.region(opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, release, err := s.graphs.GetOrBuild(ctx, familyID, s.buildGraph)
	if err != nil {
		return nil, wrapLoadError(familyID, err)
	}
	defer release()

	return s.detectOn(ctx, entry.Graph, familyID, fromID, toID, region)
}

// DetectBatch runs Detect for many pairs of one family.
//
// Description:
//
//	The family graph is loaded once and shared by all pairs, which run
//	with at most BatchConcurrency in parallel. Results are in pair order.
//	A failing pair records its error in its PairResult and does not stop
//	the batch; a failing snapshot load or a cancelled context does.
//
// Errors:
//
//	Same as Detect for the family; per-pair errors are in PairResult.
func (s *Service) DetectBatch(ctx context.Context, familyID string, pairs []Pair, opts ...DetectOption) ([]PairResult, error) {
	if s.closed.Load() {
		return nil, ErrServiceClosed
	}
	familyID = strings.TrimSpace(familyID)
	if familyID == "" {
		return nil, ErrInvalidFamilyID
	}
	region := s.region(opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recordBatch(ctx, len(pairs))

	entry, release, err := s.graphs.GetOrBuild(ctx, familyID, s.buildGraph)
	if err != nil {
		return nil, wrapLoadError(familyID, err)
	}
	defer release()

	results := make([]PairResult, len(pairs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.BatchConcurrency)

	for i, pair := range pairs {
		g.Go(func() error {
			results[i].Pair = pair
			if err := gCtx.Err(); err != nil {
				return err
			}

			fromID, toID, err := normalizeMemberIDs(pair.FromID, pair.ToID)
			var res *Result
			if err == nil {
				res, err = s.detectOn(gCtx, entry.Graph, familyID, fromID, toID, region)
			}
			if err != nil {
				if isContextError(err) {
					return err
				}
				results[i].Error = err.Error()
				results[i].err = err
				return nil
			}
			results[i].Result = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Invalidate drops the cached graph of a family and any remembered load
// failure. Detections in flight keep the graph they hold.
func (s *Service) Invalidate(familyID string) {
	s.graphs.ForceInvalidate(familyID)
	s.logger.Debug("family graph invalidated", slog.String("family_id", familyID))
}

// Rebuild drops the cached graph of a family, builds it again from the
// provider and reports what the build kept and dropped.
//
// Description:
//
//	Used after a snapshot changed on disk, so data problems surface when
//	the file is saved rather than at the next detection. Detections in
//	flight keep the graph they hold.
//
// Errors:
//
//	ErrServiceClosed - Close was called
//	ErrInvalidFamilyID - familyID is empty
//	ErrSnapshotUnavailable - The snapshot could not be loaded or built
//	context errors - ctx is done
func (s *Service) Rebuild(ctx context.Context, familyID string) (*FamilyReport, error) {
	if s.closed.Load() {
		return nil, ErrServiceClosed
	}
	familyID = strings.TrimSpace(familyID)
	if familyID == "" {
		return nil, ErrInvalidFamilyID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.graphs.ForceInvalidate(familyID)
	entry, release, err := s.graphs.GetOrBuild(ctx, familyID, s.buildGraph)
	if err != nil {
		s.reports.Delete(familyID)
		return nil, wrapLoadError(familyID, err)
	}
	defer release()

	if v, ok := s.reports.Load(familyID); ok {
		report := *v.(*FamilyReport)
		report.Problems = append([]string(nil), report.Problems...)
		return &report, nil
	}
	return &FamilyReport{
		FamilyID:     familyID,
		Fingerprint:  entry.Fingerprint,
		Members:      entry.Graph.MemberCount(),
		Edges:        entry.Graph.EdgeCount(),
		SiblingPairs: entry.Graph.SiblingPairCount(),
		BuiltAtMilli: entry.BuiltAtMilli,
	}, nil
}

// CacheStats returns graph cache statistics.
func (s *Service) CacheStats() cache.CacheStats {
	return s.graphs.Stats()
}

// Close releases cached graphs. Later calls return ErrServiceClosed. The
// provider is owned by the caller and is not closed.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.graphs.Clear()
	return nil
}

func (s *Service) region(opts []DetectOption) kin.Region {
	var options DetectOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.Region != nil {
		return *options.Region
	}
	return s.config.Region
}

// buildGraph is the cache.BuildFunc of the service.
//
// The fingerprint is the provider's version marker when the cache checks
// versions, otherwise a content hash of the snapshot. A failed version read
// leaves the fingerprint empty, which disables staleness checks for that
// entry instead of rebuilding it on every hit.
func (s *Service) buildGraph(ctx context.Context, familyID string) (*graph.Graph, string, error) {
	var fingerprint string
	versioner, checkVersions := s.provider.(provider.Versioner)
	checkVersions = checkVersions && s.config.CheckVersions
	if checkVersions {
		v, err := versioner.Version(ctx, familyID)
		if err != nil {
			s.logger.Debug("family version unavailable",
				slog.String("family_id", familyID),
				slog.String("error", err.Error()),
			)
		}
		fingerprint = v
	}

	snap, err := s.provider.Snapshot(ctx, familyID)
	if err != nil {
		return nil, "", err
	}
	if snap == nil {
		return nil, "", graph.ErrNilSnapshot
	}
	if snap.FamilyID == "" {
		snap.FamilyID = familyID
	}

	if !checkVersions {
		if fingerprint, err = cache.Fingerprint(snap); err != nil {
			return nil, "", err
		}
	}

	result, err := s.builder.Build(ctx, snap)
	if err != nil {
		return nil, "", err
	}
	if result.Incomplete {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		return nil, "", graph.ErrBuildCancelled
	}

	s.reports.Store(familyID, newFamilyReport(familyID, fingerprint, result))
	s.logger.Debug("family graph built",
		slog.String("family_id", familyID),
		slog.Int("members", result.Stats.MembersAdded),
		slog.Int("edges", result.Stats.EdgesAdded),
		slog.Int("sibling_pairs", result.Stats.SiblingPairs),
		slog.Int("dropped", result.TotalErrors()),
	)
	return result.Graph, fingerprint, nil
}

// detectOn runs one detection against a loaded graph.
func (s *Service) detectOn(ctx context.Context, g *graph.Graph, familyID, fromID, toID string, region kin.Region) (result *Result, err error) {
	ctx, span := startDetectSpan(ctx, familyID, fromID, toID)
	start := time.Now()
	defer func() {
		setDetectSpanResult(span, result, err)
		recordDetect(ctx, time.Since(start), result, err)
		span.End()
	}()

	for _, id := range []string{fromID, toID} {
		if !g.HasMember(id) {
			return nil, fmt.Errorf("%w: %s in family %s", ErrMemberNotFound, id, familyID)
		}
	}

	res := &Result{
		DetectionID: uuid.NewString(),
		FamilyID:    familyID,
		FromID:      fromID,
		ToID:        toID,
		Region:      region,
	}

	path, err := g.ShortestPath(ctx, fromID, toID, graph.WithMaxDepth(s.config.MaxPathDepth))
	switch {
	case errors.Is(err, graph.ErrNoPath):
		res.RelationCode = kin.CodeUnrelated
		res.Lineage = kin.LineageEither
	case err != nil:
		return nil, err
	default:
		inf, err := s.engine.Infer(path, g)
		if err != nil {
			return nil, fmt.Errorf("%w: %s to %s: %w", ErrInference, fromID, toID, err)
		}
		res.RelationCode = inf.Code
		res.Lineage = inf.Lineage
		res.GenerationDelta = inf.GenerationDelta
		res.IsSpecial = inf.Special
		res.Path = path
		if inf.Compound() {
			res.Segments = inf.Segments
		}
	}

	s.resolveName(ctx, res)
	res.DetectedAtMilli = time.Now().UnixMilli()
	return res, nil
}

// resolveName fills the display name. Compound codes resolve each part with
// its own segment's lineage. A code without a dictionary entry degrades to
// the raw code.
func (s *Service) resolveName(ctx context.Context, res *Result) {
	var (
		dn  dict.DisplayName
		err error
	)
	if len(res.Segments) > 1 {
		lineages := make([]kin.Lineage, len(res.Segments))
		for i, seg := range res.Segments {
			lineages[i] = seg.Lineage
		}
		dn, err = s.dict.ResolveCompound(res.RelationCode, lineages, res.Region)
	} else {
		dn, err = s.dict.Resolve(res.RelationCode, res.Lineage, res.Region)
	}
	if err != nil {
		res.DisplayName = string(res.RelationCode)
		res.Degraded = true
		res.Warnings = append(res.Warnings, err.Error())
		telemetry.LoggerWithTrace(ctx, s.logger).Warn("relation code has no display name",
			slog.String("family_id", res.FamilyID),
			slog.String("code", string(res.RelationCode)),
			slog.String("error", err.Error()),
		)
		return
	}
	res.DisplayName = dn.Name
	res.Alternates = dn.Alternates
	res.IsSpecial = res.IsSpecial || dn.Special
}

func normalizeMemberIDs(fromID, toID string) (string, string, error) {
	fromID = strings.TrimSpace(fromID)
	toID = strings.TrimSpace(toID)
	if fromID == "" || toID == "" {
		return "", "", ErrInvalidMemberID
	}
	return fromID, toID, nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// wrapLoadError classifies a GetOrBuild failure.
func wrapLoadError(familyID string, err error) error {
	if isContextError(err) {
		return err
	}
	return fmt.Errorf("%w: family %s: %w", ErrSnapshotUnavailable, familyID, err)
}
