// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import "errors"

var (
	// ErrNilPath is returned when Infer is called without a path.
	ErrNilPath = errors.New("path must not be nil")

	// ErrMemberNotFound is returned when a path names a member the lookup
	// does not know.
	ErrMemberNotFound = errors.New("member not found")

	// ErrUnsupportedStep is returned for a step no rule can cover.
	ErrUnsupportedStep = errors.New("unsupported step")
)
