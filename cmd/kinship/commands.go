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
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/AleutianAI/kinship/pkg/ux"
	"github.com/AleutianAI/kinship/services/kinship"
	"github.com/AleutianAI/kinship/services/kinship/kin"
	"github.com/AleutianAI/kinship/services/kinship/provider"
	kbadger "github.com/AleutianAI/kinship/services/kinship/storage/badger"
	"github.com/AleutianAI/kinship/services/kinship/telemetry"
	"github.com/spf13/cobra"
)

// app is the state shared by all subcommands of one invocation.
type app struct {
	// Global flags
	configPath  string
	logLevel    string
	logFormat   string
	personality string
	region      string
	source      string
	dataDir     string
	dbPath      string

	cfg     Config
	logger  *slog.Logger
	printer *ux.Printer

	shutdownTelemetry func(context.Context) error
}

// newRootCmd builds the command tree. A fresh tree per invocation keeps
// flag state out of package globals.
func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "kinship",
		Short: "Vietnamese kinship terms for members of a family tree",
		Long: `kinship answers "what is B to A?" for two members of a family.

Families are YAML snapshots, one file per family in the data directory,
or records imported into a local badger database.

Examples:
  kinship detect nguyen me bac
  kinship detect nguyen me dad --region south --json
  kinship batch nguyen pairs.yaml
  kinship import families/*.yaml
  kinship watch --metrics-addr :9464`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default $KINSHIP_CONFIG or ./kinship.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	flags.StringVar(&a.personality, "personality", "", "output style: standard, minimal, machine (default: detect)")
	flags.StringVar(&a.region, "region", "", "naming convention: north, central, south")
	flags.StringVar(&a.source, "source", "", "snapshot source: dir or store")
	flags.StringVar(&a.dataDir, "data-dir", "", "directory of family YAML snapshots")
	flags.StringVar(&a.dbPath, "db", "", "badger database directory")

	root.AddCommand(
		newDetectCmd(a),
		newBatchCmd(a),
		newImportCmd(a),
		newDictCmd(a),
		newRulesCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup loads configuration, applies flag overrides, and installs the
// logger, printer and telemetry.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	envErr := loadEnv()

	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if a.source != "" {
		cfg.Source = a.source
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.region != "" {
		r, err := kin.ParseRegion(a.region)
		if err != nil {
			return fmt.Errorf("--region: %w", err)
		}
		cfg.Service.Region = r
	}
	if addr, err := cmd.Flags().GetString("metrics-addr"); err == nil && addr != "" {
		cfg.Telemetry.MetricExporter = telemetry.ExporterPrometheus
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Warn("ignoring .env", slog.String("error", envErr.Error()))
	}

	level := ux.ParsePersonalityLevel(a.personality)
	if a.personality == "" {
		level = ux.PersonalityMachine
		if f, ok := cmd.OutOrStdout().(*os.File); ok {
			level = ux.DetectPersonality(f)
		}
	}
	a.printer = ux.NewPrinter(cmd.OutOrStdout(), level)

	cfg.Telemetry.ServiceVersion = version
	shutdown, err := telemetry.Init(cmd.Context(), cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.shutdownTelemetry = shutdown
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.shutdownTelemetry == nil {
		return nil
	}
	return a.shutdownTelemetry(context.WithoutCancel(ctx))
}

// openProvider opens the configured snapshot source. The returned close
// function releases it.
func (a *app) openProvider() (provider.Provider, func(), error) {
	switch a.cfg.Source {
	case SourceStore:
		store, err := a.openStore()
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		dir, err := provider.NewDir(a.cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("data dir: %w", err)
		}
		return dir, func() {}, nil
	}
}

func (a *app) openStore() (*provider.Store, error) {
	dbCfg := kbadger.DefaultConfig()
	dbCfg.Path = a.cfg.DBPath
	dbCfg.Logger = a.logger
	store, err := provider.OpenStore(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.cfg.DBPath, err)
	}
	return store, nil
}

// openService wires a detection service over the configured source.
func (a *app) openService() (*kinship.Service, func(), error) {
	p, closeProvider, err := a.openProvider()
	if err != nil {
		return nil, nil, err
	}
	svc, err := kinship.NewService(p, a.cfg.Service, kinship.WithLogger(a.logger))
	if err != nil {
		closeProvider()
		return nil, nil, err
	}
	return svc, func() {
		_ = svc.Close()
		closeProvider()
	}, nil
}
