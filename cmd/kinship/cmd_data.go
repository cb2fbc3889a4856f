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
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/AleutianAI/kinship/pkg/ux"
	"github.com/AleutianAI/kinship/services/kinship/dict"
	"github.com/AleutianAI/kinship/services/kinship/graph"
	"github.com/AleutianAI/kinship/services/kinship/kin"
	"github.com/AleutianAI/kinship/services/kinship/provider"
	"github.com/AleutianAI/kinship/services/kinship/rules"
	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import family snapshot files",
		Long: `Validate YAML family snapshots and store them in the badger database
(--to store, the default) or the data directory (--to dir).

A snapshot without family_id takes the file name: families/nguyen.yaml
imports family "nguyen".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var put func(snapPath string) (string, error)

			switch target {
			case SourceStore:
				store, err := a.openStore()
				if err != nil {
					return err
				}
				defer store.Close()
				put = func(snapPath string) (string, error) {
					snap, err := readSnapshot(snapPath)
					if err != nil {
						return "", err
					}
					v, err := store.Put(cmd.Context(), snap)
					if err != nil {
						return "", err
					}
					return fmt.Sprintf("%s (version %s)", snap.FamilyID, shortVersion(v)), nil
				}
			case SourceDir:
				if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
					return fmt.Errorf("data dir: %w", err)
				}
				dir, err := provider.NewDir(a.cfg.DataDir)
				if err != nil {
					return err
				}
				put = func(snapPath string) (string, error) {
					snap, err := readSnapshot(snapPath)
					if err != nil {
						return "", err
					}
					if err := dir.Write(snap); err != nil {
						return "", err
					}
					return snap.FamilyID, nil
				}
			default:
				return fmt.Errorf("--to must be %q or %q", SourceStore, SourceDir)
			}

			failed := 0
			for _, path := range args {
				name, err := put(path)
				if err != nil {
					failed++
					a.printer.Error(fmt.Sprintf("%s: %v", path, err))
					a.logger.Warn("import failed", slog.String("file", path), slog.String("error", err.Error()))
					continue
				}
				a.printer.Success("imported " + name)
			}
			a.printer.Summary(len(args)-failed, failed, len(args))
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed to import", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "to", SourceStore, "destination: store or dir")
	return cmd
}

func readSnapshot(path string) (*graph.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	snap, err := provider.DecodeYAML(data)
	if err != nil {
		return nil, err
	}
	if snap.FamilyID == "" {
		id, ok := provider.FamilyIDFromPath(path)
		if !ok {
			return nil, fmt.Errorf("no family_id and %s is not a snapshot file name", path)
		}
		snap.FamilyID = id
	}
	return snap, nil
}

func shortVersion(v string) string {
	if len(v) > 12 {
		return v[:12]
	}
	return v
}

func newDictCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dict [CODE]",
		Short: "List relation codes and their names",
		Long: `Without arguments, list every relation code with its name in the
configured region. With a code, show its names in every region.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dictionary()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return printEntry(a.printer, d, kin.Code(args[0]))
			}

			region := a.cfg.Service.Region
			rows := make([][]string, 0, d.Len())
			for _, code := range d.Codes() {
				e, _ := d.Entry(code)
				name := "-"
				if dn, err := d.Resolve(code, e.Lineage, region); err == nil {
					name = dn.Name
				}
				rows = append(rows, []string{string(code), e.Gloss, name})
			}
			a.printer.Table([]string{"CODE", "GLOSS", "NAME (" + region.String() + ")"}, rows)
			return nil
		},
	}
}

func printEntry(p *ux.Printer, d *dict.Dictionary, code kin.Code) error {
	e, ok := d.Entry(code)
	if !ok {
		return fmt.Errorf("%w: %s", dict.ErrNotFound, code)
	}

	rows := []ux.Row{{Key: "gloss", Value: e.Gloss}}
	var lineages []kin.Lineage
	if e.Names.Either != nil {
		lineages = append(lineages, kin.LineageEither)
	}
	if e.Names.Paternal != nil {
		lineages = append(lineages, kin.LineagePaternal)
	}
	if e.Names.Maternal != nil {
		lineages = append(lineages, kin.LineageMaternal)
	}
	for _, region := range kin.AllRegions {
		for _, lineage := range lineages {
			dn, err := d.Resolve(code, lineage, region)
			if err != nil {
				continue
			}
			names := append([]string{dn.Name}, dn.Alternates...)
			rows = append(rows, ux.Row{
				Key:   region.String() + "/" + lineage.String(),
				Value: strings.Join(names, ", "),
			})
		}
	}
	if len(e.Inverse) > 0 {
		inv := make([]string, len(e.Inverse))
		for i, c := range e.Inverse {
			inv[i] = string(c)
		}
		rows = append(rows, ux.Row{Key: "inverse", Value: strings.Join(inv, ", ")})
	}
	if e.Special {
		rows = append(rows, ux.Row{Key: "special", Value: "true"})
	}
	p.Card(string(code), rows)
	return nil
}

// dictionary loads the configured dictionary without opening a provider.
func (a *app) dictionary() (*dict.Dictionary, error) {
	if a.cfg.Service.DictPath != "" {
		return dict.LoadFile(a.cfg.Service.DictPath)
	}
	return dict.Default()
}

func newRulesCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the path-shape rule table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rules.DefaultTable().Dump(cmd.OutOrStdout())
		},
	}
}
