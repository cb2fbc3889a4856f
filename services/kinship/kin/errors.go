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

import "errors"

var (
	// ErrInvalidGender is returned when a gender name cannot be parsed.
	ErrInvalidGender = errors.New("invalid gender")

	// ErrInvalidLineage is returned when a lineage name cannot be parsed.
	ErrInvalidLineage = errors.New("invalid lineage")

	// ErrInvalidRegion is returned when a region name cannot be parsed.
	ErrInvalidRegion = errors.New("invalid region")
)
