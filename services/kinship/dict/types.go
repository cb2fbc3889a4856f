// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dict

import (
	"fmt"

	"github.com/AleutianAI/kinship/services/kinship/kin"
	"gopkg.in/yaml.v3"
)

// RegionalName is one or more acceptable names for a region, canonical first.
//
// In YAML it is either a scalar ("Cô") or a sequence (["O", "Cô"]).
type RegionalName []string

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (n *RegionalName) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*n = RegionalName{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*n = RegionalName(list)
		return nil
	default:
		return fmt.Errorf("line %d: regional name must be a string or a list of strings", value.Line)
	}
}

// RegionNames holds the names of one lineage variant for every region.
//
// North is a single name. Central and South fall back to North when empty.
type RegionNames struct {
	North   string       `yaml:"north"`
	Central RegionalName `yaml:"central,omitempty"`
	South   RegionalName `yaml:"south,omitempty"`
}

// For returns the ordered names for the region, canonical first.
func (r *RegionNames) For(region kin.Region) []string {
	switch region {
	case kin.RegionCentral:
		if len(r.Central) > 0 {
			return r.Central
		}
	case kin.RegionSouth:
		if len(r.South) > 0 {
			return r.South
		}
	}
	return []string{r.North}
}

// LineageNames groups the lineage variants of an entry.
type LineageNames struct {
	Either   *RegionNames `yaml:"either,omitempty"`
	Paternal *RegionNames `yaml:"paternal,omitempty"`
	Maternal *RegionNames `yaml:"maternal,omitempty"`
}

func (l *LineageNames) variant(lineage kin.Lineage) *RegionNames {
	switch lineage {
	case kin.LineagePaternal:
		return l.Paternal
	case kin.LineageMaternal:
		return l.Maternal
	default:
		return l.Either
	}
}

func (l *LineageNames) each(fn func(lineage kin.Lineage, names *RegionNames)) {
	for _, lineage := range []kin.Lineage{kin.LineageEither, kin.LineagePaternal, kin.LineageMaternal} {
		if v := l.variant(lineage); v != nil {
			fn(lineage, v)
		}
	}
}

// Entry is the dictionary record of one relation code.
//
// Lineage is the lineage the entry requires. LineageEither entries may still
// carry paternal and maternal variants that override the either names.
type Entry struct {
	Code    kin.Code     `yaml:"code"`
	Gloss   string       `yaml:"gloss,omitempty"`
	Lineage kin.Lineage  `yaml:"lineage,omitempty"`
	Special bool         `yaml:"special,omitempty"`
	Inverse []kin.Code   `yaml:"inverse,omitempty"`
	Names   LineageNames `yaml:"names"`
}

// namesFor picks the lineage variant: exact match, then either, then the
// required lineage's variant.
func (e *Entry) namesFor(lineage kin.Lineage) *RegionNames {
	if v := e.Names.variant(lineage); v != nil {
		return v
	}
	if e.Names.Either != nil {
		return e.Names.Either
	}
	if v := e.Names.variant(e.Lineage); v != nil {
		return v
	}
	if e.Names.Paternal != nil {
		return e.Names.Paternal
	}
	return e.Names.Maternal
}

// file is the on-disk shape of the dictionary.
type file struct {
	Version string  `yaml:"version"`
	Entries []Entry `yaml:"entries"`
}

// DisplayName is a resolved, localized relation name.
type DisplayName struct {
	// Code is the relation code that was resolved.
	Code kin.Code `json:"code"`

	// Name is the canonical name for the region.
	Name string `json:"name"`

	// Alternates are other acceptable names, in dictionary order.
	Alternates []string `json:"alternates,omitempty"`

	// Lineage is the lineage variant that was requested.
	Lineage kin.Lineage `json:"lineage"`

	// Region is the region the name belongs to.
	Region kin.Region `json:"region"`

	// Special marks idiomatic terms that must not be decomposed.
	Special bool `json:"special"`
}
