// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package kin holds the vocabulary shared by the kinship packages: gender,
// lineage side, naming region and relation codes.
//
// The types here are plain values with text encodings so they round-trip
// through YAML, JSON and CLI flags without per-package adapters.
package kin

import (
	"fmt"
	"strings"
)

// Gender is the recorded gender of a family member.
//
// The zero value is GenderUnknown so that members loaded without a gender
// field select gender-neutral relation codes.
type Gender int

const (
	// GenderUnknown means no gender was recorded.
	GenderUnknown Gender = iota

	// GenderMale is a male member.
	GenderMale

	// GenderFemale is a female member.
	GenderFemale
)

var genderNames = map[Gender]string{
	GenderUnknown: "unknown",
	GenderMale:    "male",
	GenderFemale:  "female",
}

// String returns the string representation of the Gender.
func (g Gender) String() string {
	if name, ok := genderNames[g]; ok {
		return name
	}
	return "unknown"
}

// ParseGender parses a gender name. Empty input is GenderUnknown.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "u":
		return GenderUnknown, nil
	case "male", "m":
		return GenderMale, nil
	case "female", "f":
		return GenderFemale, nil
	default:
		return GenderUnknown, fmt.Errorf("%w: %q", ErrInvalidGender, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (g Gender) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Gender) UnmarshalText(text []byte) error {
	parsed, err := ParseGender(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Lineage is the side of the family a relationship is traced through.
type Lineage int

const (
	// LineageEither applies when the path has no ascending component, or
	// when the first ascent goes through a parent of unknown gender.
	LineageEither Lineage = iota

	// LineagePaternal is traced through the father.
	LineagePaternal

	// LineageMaternal is traced through the mother.
	LineageMaternal
)

// String returns the string representation of the Lineage.
func (l Lineage) String() string {
	switch l {
	case LineagePaternal:
		return "paternal"
	case LineageMaternal:
		return "maternal"
	default:
		return "either"
	}
}

// ParseLineage parses a lineage name. Empty input is LineageEither.
func ParseLineage(s string) (Lineage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "either", "any":
		return LineageEither, nil
	case "paternal", "noi":
		return LineagePaternal, nil
	case "maternal", "ngoai":
		return LineageMaternal, nil
	default:
		return LineageEither, fmt.Errorf("%w: %q", ErrInvalidLineage, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Lineage) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lineage) UnmarshalText(text []byte) error {
	parsed, err := ParseLineage(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Region selects a regional naming convention.
type Region int

const (
	// RegionNorth is the northern convention (Hà Nội).
	RegionNorth Region = iota

	// RegionCentral is the central convention (Huế, Quảng Nam).
	RegionCentral

	// RegionSouth is the southern convention (Sài Gòn, Mekong delta).
	RegionSouth

	// NumRegions is the number of supported regions.
	NumRegions
)

// AllRegions lists every region in declaration order.
var AllRegions = []Region{RegionNorth, RegionCentral, RegionSouth}

// String returns the string representation of the Region.
func (r Region) String() string {
	switch r {
	case RegionCentral:
		return "central"
	case RegionSouth:
		return "south"
	default:
		return "north"
	}
}

// ParseRegion parses a region name. Empty input is RegionNorth.
func ParseRegion(s string) (Region, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "north", "bac":
		return RegionNorth, nil
	case "central", "trung":
		return RegionCentral, nil
	case "south", "nam":
		return RegionSouth, nil
	default:
		return RegionNorth, fmt.Errorf("%w: %q", ErrInvalidRegion, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Region) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Region) UnmarshalText(text []byte) error {
	parsed, err := ParseRegion(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
