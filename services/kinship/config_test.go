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
	"errors"
	"testing"
	"time"

	"github.com/AleutianAI/kinship/services/kinship/kin"
	"gopkg.in/yaml.v3"
)

func TestServiceConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServiceConfig)
		wantErr bool
	}{
		{"defaults", func(*ServiceConfig) {}, false},
		{"south", func(c *ServiceConfig) { c.Region = kin.RegionSouth }, false},
		{"unknown region", func(c *ServiceConfig) { c.Region = kin.Region(3) }, true},
		{"negative region", func(c *ServiceConfig) { c.Region = kin.Region(-1) }, true},
		{"negative depth", func(c *ServiceConfig) { c.MaxPathDepth = -1 }, true},
		{"zero members", func(c *ServiceConfig) { c.MaxMembers = 0 }, true},
		{"zero edges", func(c *ServiceConfig) { c.MaxEdges = 0 }, true},
		{"zero cache entries", func(c *ServiceConfig) { c.CacheMaxEntries = 0 }, true},
		{"negative age", func(c *ServiceConfig) { c.CacheMaxAge = -time.Second }, true},
		{"negative build timeout", func(c *ServiceConfig) { c.BuildTimeout = -time.Second }, true},
		{"batch too wide", func(c *ServiceConfig) { c.BatchConcurrency = 1000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultServiceConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestServiceConfig_YAML(t *testing.T) {
	cfg := DefaultServiceConfig()
	data := []byte(`
region: south
max_path_depth: 12
cache_max_age: 10m
batch_concurrency: 4
`)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if cfg.Region != kin.RegionSouth {
		t.Errorf("Region = %v, want south", cfg.Region)
	}
	if cfg.MaxPathDepth != 12 {
		t.Errorf("MaxPathDepth = %d, want 12", cfg.MaxPathDepth)
	}
	if cfg.CacheMaxAge != 10*time.Minute {
		t.Errorf("CacheMaxAge = %v, want 10m", cfg.CacheMaxAge)
	}
	if cfg.BatchConcurrency != 4 {
		t.Errorf("BatchConcurrency = %d, want 4", cfg.BatchConcurrency)
	}
	if !cfg.CheckVersions {
		t.Error("CheckVersions default should survive a partial document")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
