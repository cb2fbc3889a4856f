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
	"fmt"
	"time"

	"github.com/AleutianAI/kinship/services/kinship/cache"
	"github.com/AleutianAI/kinship/services/kinship/graph"
	"github.com/AleutianAI/kinship/services/kinship/kin"
	"github.com/go-playground/validator/v10"
)

// ServiceConfig configures the detection service.
type ServiceConfig struct {
	// Region selects the naming convention of display names.
	// Default: north
	Region kin.Region `yaml:"region"`

	// DictPath is an optional dictionary file replacing the embedded table.
	DictPath string `yaml:"dict_path"`

	// MaxPathDepth bounds the path search. Zero means unbounded.
	// Default: 0
	MaxPathDepth int `yaml:"max_path_depth" validate:"gte=0"`

	// MaxMembers is the member limit of one family graph.
	// Default: graph.DefaultMaxMembers
	MaxMembers int `yaml:"max_members" validate:"gte=1"`

	// MaxEdges is the stored edge limit of one family graph.
	// Default: graph.DefaultMaxEdges
	MaxEdges int `yaml:"max_edges" validate:"gte=1"`

	// CacheMaxEntries is the number of family graphs kept in memory.
	// Default: 64
	CacheMaxEntries int `yaml:"cache_max_entries" validate:"gte=1"`

	// CacheMaxAge is how long a cached graph is used before rebuilding.
	// Default: 30m
	CacheMaxAge time.Duration `yaml:"cache_max_age" validate:"gte=0"`

	// CacheMaxMemoryMB is a soft memory limit for cached graphs (0 = none).
	CacheMaxMemoryMB int `yaml:"cache_max_memory_mb" validate:"gte=0"`

	// ErrorCacheTTL is how long a failed snapshot load is remembered.
	// Default: 5s
	ErrorCacheTTL time.Duration `yaml:"error_cache_ttl" validate:"gte=0"`

	// BuildTimeout bounds one family graph build, shared by every caller
	// waiting on it. Default: 30s
	BuildTimeout time.Duration `yaml:"build_timeout" validate:"gte=0"`

	// CheckVersions compares the provider's version marker on every cache
	// hit when the provider supports it. Default: true
	CheckVersions bool `yaml:"check_versions"`

	// BatchConcurrency bounds parallel detections in DetectBatch.
	// Default: 8
	BatchConcurrency int `yaml:"batch_concurrency" validate:"gte=1,lte=256"`
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Region:           kin.RegionNorth,
		MaxMembers:       graph.DefaultMaxMembers,
		MaxEdges:         graph.DefaultMaxEdges,
		CacheMaxEntries:  cache.DefaultMaxEntries,
		CacheMaxAge:      cache.DefaultMaxAge,
		ErrorCacheTTL:    cache.DefaultErrorCacheTTL,
		BuildTimeout:     cache.DefaultBuildTimeout,
		CheckVersions:    true,
		BatchConcurrency: 8,
	}
}

var configValidate = validator.New()

// Validate checks the configuration.
//
// Errors:
//
//	ErrInvalidConfig - Wraps the failing field constraints
func (c ServiceConfig) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Region < 0 || int(c.Region) >= len(kin.AllRegions) {
		return fmt.Errorf("%w: unknown region %d", ErrInvalidConfig, c.Region)
	}
	return nil
}
