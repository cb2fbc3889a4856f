// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package kin

import "strings"

// Code is a canonical relation code such as "Grandfather" or "Cousin".
//
// A compound code joins the codes of consecutive path segments with
// CodeSeparator, head first: "Cousin.Son" is the son of a cousin.
type Code string

// CodeSeparator joins the parts of a compound code.
const CodeSeparator = "."

const (
	// CodeSelf is the relation of a member to themselves.
	CodeSelf Code = "Self"

	// CodeUnrelated is reported when no kinship path exists.
	CodeUnrelated Code = "Unrelated"
)

// Compose joins codes into a compound code. Empty parts are skipped.
func Compose(parts ...Code) Code {
	strs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		strs = append(strs, string(p))
	}
	return Code(strings.Join(strs, CodeSeparator))
}

// IsCompound reports whether the code has more than one part.
func (c Code) IsCompound() bool {
	return strings.Contains(string(c), CodeSeparator)
}

// Parts splits a compound code. A simple code yields itself.
func (c Code) Parts() []Code {
	if c == "" {
		return nil
	}
	raw := strings.Split(string(c), CodeSeparator)
	parts := make([]Code, len(raw))
	for i, p := range raw {
		parts[i] = Code(p)
	}
	return parts
}

// String returns the code as a string.
func (c Code) String() string {
	return string(c)
}
