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
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/kinship/services/kinship"
	"github.com/AleutianAI/kinship/services/kinship/kin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nguyenYAML = `
family_id: nguyen
members:
  - { id: gf, gender: male, birth_year: 1920 }
  - { id: dad, gender: male, birth_year: 1950 }
  - { id: bac, gender: male, birth_year: 1945 }
  - { id: mom, gender: female, birth_year: 1952 }
  - { id: me, gender: male, birth_year: 1980 }
relationships:
  - { from: gf, to: dad, kind: father }
  - { from: gf, to: bac, kind: father }
  - { from: dad, to: mom, kind: spouse }
  - { from: dad, to: me, kind: father }
  - { from: mom, to: me, kind: mother }
`

// cliEnv isolates a CLI run: a fresh working directory (no .env, no
// kinship.yaml) and no telemetry exporters.
func cliEnv(t *testing.T) string {
	t.Helper()
	work := t.TempDir()
	t.Chdir(work)
	for _, key := range []string{EnvConfig, EnvRegion, EnvDataDir, EnvDBPath, EnvSource} {
		t.Setenv(key, "")
	}
	t.Setenv("OTEL_TRACES_EXPORTER", "none")
	t.Setenv("OTEL_METRICS_EXPORTER", "none")

	data := filepath.Join(work, "families")
	require.NoError(t, os.MkdirAll(data, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(data, "nguyen.yaml"), []byte(nguyenYAML), 0o644))
	return work
}

// runCLI executes one invocation with machine output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--personality", "machine", "--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDetectCmd(t *testing.T) {
	cliEnv(t)

	out, err := runCLI(t, "detect", "nguyen", "me", "bac")
	require.NoError(t, err)
	assert.Contains(t, out, "code\tElderUncle\n")
	assert.Contains(t, out, "name\tBác\n")
	assert.Contains(t, out, "lineage\tpaternal\n")
	assert.Contains(t, out, "generation\t-1\n")
}

func TestDetectCmd_Region(t *testing.T) {
	cliEnv(t)

	out, err := runCLI(t, "detect", "nguyen", "me", "dad", "--region", "south")
	require.NoError(t, err)
	assert.Contains(t, out, "name\tBa\n")
	assert.Contains(t, out, "also\tTía, Cha\n")

	t.Setenv(EnvRegion, "south")
	out, err = runCLI(t, "detect", "nguyen", "me", "dad")
	require.NoError(t, err)
	assert.Contains(t, out, "name\tBa\n")
}

func TestDetectCmd_JSON(t *testing.T) {
	cliEnv(t)

	out, err := runCLI(t, "detect", "nguyen", "me", "gf", "--json")
	require.NoError(t, err)

	var res kinship.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, kin.Code("Grandfather"), res.RelationCode)
	assert.Equal(t, -2, res.GenerationDelta)
	assert.Equal(t, kin.LineagePaternal, res.Lineage)
	assert.Equal(t, "Ông nội", res.DisplayName)
	assert.NotEmpty(t, res.DetectionID)
}

func TestDetectCmd_Errors(t *testing.T) {
	cliEnv(t)

	_, err := runCLI(t, "detect", "missing", "me", "dad")
	assert.ErrorIs(t, err, kinship.ErrSnapshotUnavailable)

	_, err = runCLI(t, "detect", "nguyen", "me", "ghost")
	assert.ErrorIs(t, err, kinship.ErrMemberNotFound)

	_, err = runCLI(t, "detect", "nguyen", "me")
	assert.Error(t, err)

	_, err = runCLI(t, "detect", "nguyen", "me", "dad", "--region", "west")
	assert.Error(t, err)

	_, err = runCLI(t, "detect", "nguyen", "me", "dad", "--data-dir", "/nonexistent")
	assert.Error(t, err)
}

func TestBatchCmd(t *testing.T) {
	work := cliEnv(t)
	pairs := filepath.Join(work, "pairs.yaml")
	require.NoError(t, os.WriteFile(pairs, []byte(`
- { from_id: me, to_id: dad }
- { from_id: me, to_id: ghost }
- { from_id: dad, to_id: me }
`), 0o644))

	out, err := runCLI(t, "batch", "nguyen", pairs)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "FROM\tTO\tCODE\tNAME", lines[0])
	assert.Equal(t, "me\tdad\tFather\tBố", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "me\tghost\t-\terror: "), lines[2])
	assert.Equal(t, "dad\tme\tSon\tCon trai", lines[3])
	assert.Equal(t, "SUMMARY: ok=2 failed=1 total=3", lines[4])
}

func TestBatchCmd_JSON(t *testing.T) {
	work := cliEnv(t)
	pairs := filepath.Join(work, "pairs.yaml")
	require.NoError(t, os.WriteFile(pairs, []byte("- { from_id: me, to_id: gf }\n"), 0o644))

	out, err := runCLI(t, "batch", "nguyen", pairs, "--json")
	require.NoError(t, err)

	var results []kinship.PairResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Result)
	assert.Equal(t, kin.Code("Grandfather"), results[0].Result.RelationCode)
}

func TestImportCmd_Store(t *testing.T) {
	work := cliEnv(t)
	src := filepath.Join(work, "families", "nguyen.yaml")
	db := filepath.Join(work, "db")

	out, err := runCLI(t, "import", src, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: imported nguyen (version ")
	assert.Contains(t, out, "SUMMARY: ok=1 failed=0 total=1")

	out, err = runCLI(t, "detect", "nguyen", "me", "bac", "--source", "store", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "code\tElderUncle\n")
}

func TestImportCmd_DirAndFailures(t *testing.T) {
	work := cliEnv(t)

	// No family_id: the file name supplies it.
	src := filepath.Join(work, "tran.yaml")
	require.NoError(t, os.WriteFile(src, []byte(strings.Replace(nguyenYAML, "family_id: nguyen\n", "", 1)), 0o644))
	bad := filepath.Join(work, "broken.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("members: [\n"), 0o644))

	out, err := runCLI(t, "import", "--to", "dir", "--data-dir", filepath.Join(work, "imported"), src, bad)
	require.Error(t, err)
	assert.Contains(t, out, "OK: imported tran")
	assert.Contains(t, out, "ERROR: "+bad)

	out, err = runCLI(t, "detect", "tran", "me", "gf", "--data-dir", filepath.Join(work, "imported"))
	require.NoError(t, err)
	assert.Contains(t, out, "code\tGrandfather\n")
}

func TestDictCmd(t *testing.T) {
	cliEnv(t)

	out, err := runCLI(t, "dict", "Father")
	require.NoError(t, err)
	assert.Contains(t, out, "north/either\tBố\n")
	assert.Contains(t, out, "south/either\tBa, Tía, Cha\n")
	assert.Contains(t, out, "inverse\tSon, Daughter, Child\n")

	out, err = runCLI(t, "dict")
	require.NoError(t, err)
	assert.Contains(t, out, "CODE\tGLOSS\tNAME (north)\n")
	assert.Contains(t, out, "Father\tfather\tBố\n")

	_, err = runCLI(t, "dict", "NoSuchCode")
	assert.Error(t, err)
}

func TestRulesCmd(t *testing.T) {
	cliEnv(t)

	out, err := runCLI(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "down1 Son/Daughter/Child\n")
}

func TestVersionCmd(t *testing.T) {
	cliEnv(t)

	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "kinship dev (commit none, go"), out)
	assert.Contains(t, out, "\ndictionary ")
}
