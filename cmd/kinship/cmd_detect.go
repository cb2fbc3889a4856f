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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/AleutianAI/kinship/pkg/ux"
	"github.com/AleutianAI/kinship/services/kinship"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newDetectCmd(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "detect FAMILY FROM TO",
		Short: "Name what TO is to FROM",
		Long: `Find the kinship between two members of a family and print the
Vietnamese term FROM uses for TO.

Examples:
  kinship detect nguyen me bac
  kinship detect nguyen me dad --region south
  kinship detect nguyen me dad --json`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeSvc, err := a.openService()
			if err != nil {
				return err
			}
			defer closeSvc()

			res, err := svc.Detect(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printResult(a.printer, res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")
	return cmd
}

func printResult(p *ux.Printer, res *kinship.Result) {
	rows := []ux.Row{
		{Key: "name", Value: res.DisplayName},
		{Key: "code", Value: string(res.RelationCode)},
	}
	if len(res.Alternates) > 0 {
		rows = append(rows, ux.Row{Key: "also", Value: strings.Join(res.Alternates, ", ")})
	}
	rows = append(rows,
		ux.Row{Key: "lineage", Value: res.Lineage.String()},
		ux.Row{Key: "generation", Value: strconv.Itoa(res.GenerationDelta)},
		ux.Row{Key: "region", Value: res.Region.String()},
	)
	if res.IsSpecial {
		rows = append(rows, ux.Row{Key: "special", Value: "true"})
	}
	if res.Path != nil {
		rows = append(rows, ux.Row{Key: "path", Value: res.Path.String()})
	}

	p.Card(fmt.Sprintf("%s %s %s", res.FromID, ux.IconArrow, res.ToID), rows)
	for _, w := range res.Warnings {
		p.Warning(w)
	}
}

func newBatchCmd(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "batch FAMILY PAIRS_FILE",
		Short: "Detect many pairs of one family",
		Long: `Detect every pair listed in a YAML file. Use "-" to read stdin.

The file is a list of pairs:

  - from_id: me
    to_id: bac
  - from_id: me
    to_id: co

Failing pairs are reported in place and do not stop the batch.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := readPairs(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}

			svc, closeSvc, err := a.openService()
			if err != nil {
				return err
			}
			defer closeSvc()

			results, err := svc.DetectBatch(cmd.Context(), args[0], pairs)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), results)
			}

			rows := make([][]string, 0, len(results))
			failed := 0
			for _, r := range results {
				if r.Result == nil {
					failed++
					rows = append(rows, []string{r.Pair.FromID, r.Pair.ToID, "-", "error: " + r.Error})
					continue
				}
				rows = append(rows, []string{r.Pair.FromID, r.Pair.ToID, string(r.Result.RelationCode), r.Result.DisplayName})
			}
			a.printer.Table([]string{"FROM", "TO", "CODE", "NAME"}, rows)
			a.printer.Summary(len(results)-failed, failed, len(results))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the results as JSON")
	return cmd
}

// readPairs decodes a YAML list of pairs from path, or from stdin for "-".
func readPairs(stdin io.Reader, path string) ([]kinship.Pair, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading pairs: %w", err)
	}

	var pairs []kinship.Pair
	if err := yaml.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parsing pairs: %w", err)
	}
	return pairs, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
