// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package kinship

import "errors"

// Sentinel errors for the detection service.
var (
	// ErrInvalidFamilyID indicates an empty family ID.
	ErrInvalidFamilyID = errors.New("family ID must not be empty")

	// ErrInvalidMemberID indicates an empty member ID.
	ErrInvalidMemberID = errors.New("member ID must not be empty")

	// ErrMemberNotFound indicates a member is not part of the family graph.
	ErrMemberNotFound = errors.New("member not found in family")

	// ErrSnapshotUnavailable wraps failures of the snapshot provider.
	ErrSnapshotUnavailable = errors.New("family snapshot unavailable")

	// ErrInference indicates the rule engine could not classify a path.
	// Not expected with the built-in rule table.
	ErrInference = errors.New("relationship inference failed")

	// ErrNilProvider indicates NewService was given no provider.
	ErrNilProvider = errors.New("provider must not be nil")

	// ErrInvalidConfig indicates the service configuration failed validation.
	ErrInvalidConfig = errors.New("invalid service configuration")

	// ErrServiceClosed indicates the service has been closed.
	ErrServiceClosed = errors.New("service is closed")
)
