// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/AleutianAI/kinship/services/kinship"
	"github.com/AleutianAI/kinship/services/kinship/kin"
	"github.com/AleutianAI/kinship/services/kinship/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by the CLI.
const (
	EnvConfig  = "KINSHIP_CONFIG"
	EnvRegion  = "KINSHIP_REGION"
	EnvDataDir = "KINSHIP_DATA_DIR"
	EnvDBPath  = "KINSHIP_DB_PATH"
	EnvSource  = "KINSHIP_SOURCE"
)

// Snapshot sources.
const (
	SourceDir   = "dir"
	SourceStore = "store"
)

// Config is the kinship.yaml document.
type Config struct {
	// Source selects where family snapshots are read: "dir" reads
	// <data_dir>/<family>.yaml, "store" reads the badger database.
	Source string `yaml:"source" validate:"oneof=dir store"`

	// DataDir holds one YAML snapshot per family.
	DataDir string `yaml:"data_dir" validate:"required_if=Source dir"`

	// DBPath is the badger database directory.
	DBPath string `yaml:"db_path" validate:"required_if=Source store"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`

	Service   kinship.ServiceConfig `yaml:"service"`
	Telemetry telemetry.Config      `yaml:"telemetry"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Source:    SourceDir,
		DataDir:   "families",
		DBPath:    "kinship.db",
		LogLevel:  "info",
		LogFormat: "text",
		Service:   kinship.DefaultServiceConfig(),
		Telemetry: telemetry.DefaultConfig(),
	}
}

var configValidate = validator.New(validator.WithRequiredStructEnabled())

// loadEnv loads .env from the working directory when present. Existing
// environment variables win. A missing file is not an error.
func loadEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading .env: %w", err)
}

// LoadConfig reads the configuration.
//
// Description:
//
//	Starts from DefaultConfig, overlays the YAML file at path (or
//	$KINSHIP_CONFIG, or ./kinship.yaml), then the KINSHIP_* environment.
//	A missing default file is not an error; a missing explicit file is.
//
// Errors:
//
//	Read, parse and validation failures.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvConfig); env != "" {
			path, explicit = env, true
		} else {
			path = "kinship.yaml"
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvRegion); v != "" {
		r, err := kin.ParseRegion(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRegion, err)
		}
		cfg.Service.Region = r
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvSource); v != "" {
		cfg.Source = strings.ToLower(v)
	}
	return nil
}

// Validate checks the CLI fields, then the service configuration.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return c.Service.Validate()
}
