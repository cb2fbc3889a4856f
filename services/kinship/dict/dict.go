// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dict provides the family relation dictionary: the reference table
// mapping canonical relation codes to lineage and region specific names.
//
// The table is loaded once and never mutated. A *Dictionary is safe for
// concurrent use.
package dict

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/AleutianAI/kinship/services/kinship/kin"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Dictionary is an immutable, loaded relation dictionary.
type Dictionary struct {
	version string
	entries map[kin.Code]*Entry
	order   []kin.Code
}

var (
	defaultOnce sync.Once
	defaultDict *Dictionary
	defaultErr  error
)

// Default returns the dictionary built from the embedded table.
//
// The table is parsed on first use; later calls return the same instance.
func Default() (*Dictionary, error) {
	defaultOnce.Do(func() {
		defaultDict, defaultErr = Load(EmbeddedTable)
	})
	return defaultDict, defaultErr
}

// LoadFile reads and parses a dictionary from a YAML file.
func LoadFile(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dictionary %s: %w", path, err)
	}
	d, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("loading dictionary %s: %w", path, err)
	}
	return d, nil
}

// Load parses a dictionary from YAML bytes.
//
// Description:
//
//	Decodes the table, normalizes every name to Unicode NFC and validates
//	the result.
//
// Errors:
//
//	ErrEmptyDictionary - No entries
//	ErrDuplicateCode - Two entries share a code
//	ErrInvalidEntry - Missing code or names, empty names, compound codes,
//	    or inverse codes that do not exist in the table
func Load(data []byte) (*Dictionary, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	if len(f.Entries) == 0 {
		return nil, ErrEmptyDictionary
	}

	d := &Dictionary{
		version: f.Version,
		entries: make(map[kin.Code]*Entry, len(f.Entries)),
		order:   make([]kin.Code, 0, len(f.Entries)),
	}

	for i := range f.Entries {
		e := &f.Entries[i]
		if err := normalizeEntry(e); err != nil {
			return nil, err
		}
		if _, exists := d.entries[e.Code]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, e.Code)
		}
		d.entries[e.Code] = e
		d.order = append(d.order, e.Code)
	}

	for _, code := range d.order {
		for _, inv := range d.entries[code].Inverse {
			if _, ok := d.entries[inv]; !ok {
				return nil, fmt.Errorf("%w: %s: inverse %s has no entry", ErrInvalidEntry, code, inv)
			}
		}
	}

	return d, nil
}

func normalizeEntry(e *Entry) error {
	e.Code = kin.Code(strings.TrimSpace(string(e.Code)))
	if e.Code == "" {
		return fmt.Errorf("%w: missing code", ErrInvalidEntry)
	}
	if e.Code.IsCompound() {
		return fmt.Errorf("%w: %s: code must not contain %q", ErrInvalidEntry, e.Code, kin.CodeSeparator)
	}

	variants := 0
	var err error
	e.Names.each(func(lineage kin.Lineage, names *RegionNames) {
		variants++
		if err != nil {
			return
		}
		names.North = norm.NFC.String(strings.TrimSpace(names.North))
		if names.North == "" {
			err = fmt.Errorf("%w: %s: %s variant has no north name", ErrInvalidEntry, e.Code, lineage)
			return
		}
		for _, list := range []RegionalName{names.Central, names.South} {
			for i, n := range list {
				list[i] = norm.NFC.String(strings.TrimSpace(n))
				if list[i] == "" {
					err = fmt.Errorf("%w: %s: empty %s name", ErrInvalidEntry, e.Code, lineage)
					return
				}
			}
		}
	})
	if err != nil {
		return err
	}
	if variants == 0 {
		return fmt.Errorf("%w: %s: no names", ErrInvalidEntry, e.Code)
	}
	if e.Lineage != kin.LineageEither && e.Names.variant(e.Lineage) == nil {
		return fmt.Errorf("%w: %s: requires %s names", ErrInvalidEntry, e.Code, e.Lineage)
	}
	return nil
}

// Version returns the table version string.
func (d *Dictionary) Version() string {
	return d.version
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Codes returns every code in table order.
func (d *Dictionary) Codes() []kin.Code {
	out := make([]kin.Code, len(d.order))
	copy(out, d.order)
	return out
}

// Entry returns the entry for a simple code.
func (d *Dictionary) Entry(code kin.Code) (Entry, bool) {
	e, ok := d.entries[code]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// IsSpecial reports whether the code, or any part of a compound code, is
// flagged special. Unknown codes are not special.
func (d *Dictionary) IsSpecial(code kin.Code) bool {
	for _, part := range code.Parts() {
		if e, ok := d.entries[part]; ok && e.Special {
			return true
		}
	}
	return false
}

// Inverse returns the documented inverse codes of a simple code.
func (d *Dictionary) Inverse(code kin.Code) []kin.Code {
	e, ok := d.entries[code]
	if !ok {
		return nil
	}
	out := make([]kin.Code, len(e.Inverse))
	copy(out, e.Inverse)
	return out
}

// IsInverse reports whether other is a documented inverse of code.
func (d *Dictionary) IsInverse(code, other kin.Code) bool {
	e, ok := d.entries[code]
	if !ok {
		return false
	}
	for _, inv := range e.Inverse {
		if inv == other {
			return true
		}
	}
	return false
}

// Resolve returns the display name of a relation code.
//
// Description:
//
//	Picks the entry's lineage variant (falling back to the either variant),
//	then the region's names. The first name is canonical, the rest are
//	returned as alternates. Compound codes resolve each part and compose
//	the names, innermost relation first: "Con trai của Anh họ". Only the
//	head part takes lineage; ResolveCompound sets it per part.
//
// Errors:
//
//	ErrNotFound - The code, or a part of a compound code, has no entry.
func (d *Dictionary) Resolve(code kin.Code, lineage kin.Lineage, region kin.Region) (DisplayName, error) {
	if code.IsCompound() {
		return d.ResolveCompound(code, []kin.Lineage{lineage}, region)
	}

	e, ok := d.entries[code]
	if !ok {
		return DisplayName{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}

	names := e.namesFor(lineage).For(region)
	out := DisplayName{
		Code:    code,
		Name:    names[0],
		Lineage: lineage,
		Region:  region,
		Special: e.Special,
	}
	if len(names) > 1 {
		out.Alternates = append([]string(nil), names[1:]...)
	}
	return out, nil
}

// ResolveCompound returns the display name of a compound code whose parts
// each carry their own lineage side.
//
// Description:
//
//	lineages[i] applies to part i of code. Parts without an entry in
//	lineages resolve as either. A simple code resolves with lineages[0].
//	The returned Lineage is the head's.
//
// Errors:
//
//	ErrNotFound - A part has no entry.
func (d *Dictionary) ResolveCompound(code kin.Code, lineages []kin.Lineage, region kin.Region) (DisplayName, error) {
	if !code.IsCompound() {
		return d.Resolve(code, partLineage(lineages, 0), region)
	}

	parts := code.Parts()
	names := make([]string, len(parts))
	special := false

	for i, part := range parts {
		dn, err := d.Resolve(part, partLineage(lineages, i), region)
		if err != nil {
			return DisplayName{}, fmt.Errorf("compound %s: %w", code, err)
		}
		names[len(parts)-1-i] = dn.Name
		special = special || dn.Special
	}

	name := names[0]
	for _, n := range names[1:] {
		name += " của " + lowerFirst(n)
	}
	return DisplayName{
		Code:    code,
		Name:    name,
		Lineage: partLineage(lineages, 0),
		Region:  region,
		Special: special,
	}, nil
}

func partLineage(lineages []kin.Lineage, i int) kin.Lineage {
	if i < len(lineages) {
		return lineages[i]
	}
	return kin.LineageEither
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
