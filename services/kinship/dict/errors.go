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

import "errors"

var (
	// ErrNotFound is returned when a relation code has no dictionary entry.
	ErrNotFound = errors.New("relation code not in dictionary")

	// ErrDuplicateCode is returned when two entries share a code.
	ErrDuplicateCode = errors.New("duplicate relation code")

	// ErrInvalidEntry is returned when an entry is malformed.
	ErrInvalidEntry = errors.New("invalid dictionary entry")

	// ErrEmptyDictionary is returned when the table has no entries.
	ErrEmptyDictionary = errors.New("dictionary has no entries")
)
