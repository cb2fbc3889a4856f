// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconArrow} {
		if !strings.Contains(icon.Render(), string(icon)) {
			t.Errorf("Render(%q) lost the icon", icon)
		}
	}
}

func TestPrinter_StatusMachine(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, PersonalityMachine)

	p.Success("imported")
	p.Warning("degraded")
	p.Error("failed")
	p.Info("plain")

	want := "OK: imported\nWARN: degraded\nERROR: failed\nplain\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestPrinter_StatusMinimal(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityMinimal).Success("done")
	if buf.String() != "✓ done\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrinter_CardMachine(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityMachine).Card("me → bac", []Row{
		{Key: "code", Value: "ElderUncle"},
		{Key: "name", Value: "Bác"},
	})
	want := "code\tElderUncle\nname\tBác\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestPrinter_CardAlignsKeys(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityMinimal).Card("title", []Row{
		{Key: "a", Value: "1"},
		{Key: "lineage", Value: "paternal"},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	if lines[0] != "title" {
		t.Errorf("title line = %q", lines[0])
	}
	if lines[1] != "a        1" {
		t.Errorf("row = %q, want keys padded to the widest key", lines[1])
	}
}

func TestPrinter_CardStandardBox(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityStandard).Card("Kết quả", []Row{{Key: "name", Value: "Ông nội"}})
	out := buf.String()
	if !strings.Contains(out, "Ông nội") || !strings.Contains(out, "Kết quả") {
		t.Errorf("card lost content: %q", out)
	}
	if !strings.Contains(out, "╭") {
		t.Errorf("standard card should be boxed: %q", out)
	}
}

func TestPrinter_Table(t *testing.T) {
	headers := []string{"FROM", "TO", "NAME"}
	rows := [][]string{
		{"me", "dad", "Bố"},
		{"me", "grandfather", "Ông nội"},
	}

	var machine bytes.Buffer
	NewPrinter(&machine, PersonalityMachine).Table(headers, rows)
	if machine.String() != "FROM\tTO\tNAME\nme\tdad\tBố\nme\tgrandfather\tÔng nội\n" {
		t.Errorf("machine table = %q", machine.String())
	}

	var minimal bytes.Buffer
	NewPrinter(&minimal, PersonalityMinimal).Table(headers, rows)
	lines := strings.Split(strings.TrimRight(minimal.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0] != "FROM  TO           NAME" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "me    dad          Bố" {
		t.Errorf("row = %q", lines[1])
	}
}

func TestPrinter_Summary(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityMachine).Summary(3, 1, 4)
	if buf.String() != "SUMMARY: ok=3 failed=1 total=4\n" {
		t.Errorf("summary = %q", buf.String())
	}
}

func TestParsePersonalityLevel(t *testing.T) {
	tests := map[string]PersonalityLevel{
		"machine":  PersonalityMachine,
		"PLAIN":    PersonalityMachine,
		" min ":    PersonalityMinimal,
		"standard": PersonalityStandard,
		"nonsense": PersonalityStandard,
	}
	for in, want := range tests {
		if got := ParsePersonalityLevel(in); got != want {
			t.Errorf("ParsePersonalityLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectPersonality(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	t.Setenv(PersonalityEnv, "")
	if got := DetectPersonality(f); got != PersonalityMachine {
		t.Errorf("regular file = %q, want machine", got)
	}
	if IsTerminal(f) || IsTerminal(nil) {
		t.Error("a regular file is not a terminal")
	}

	t.Setenv(PersonalityEnv, "minimal")
	if got := DetectPersonality(f); got != PersonalityMinimal {
		t.Errorf("env override = %q, want minimal", got)
	}
}
