// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for snapshot providers.
var (
	// ErrFamilyNotFound is returned when a provider has no data for a family.
	ErrFamilyNotFound = errors.New("family not found")

	// ErrInvalidFamilyID is returned for empty or malformed family IDs.
	ErrInvalidFamilyID = errors.New("invalid family ID")

	// ErrInvalidSnapshot is returned when a snapshot fails validation.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrFamilyMismatch is returned when a snapshot names a different
	// family than the one it was stored under.
	ErrFamilyMismatch = errors.New("snapshot family does not match")

	// ErrProviderClosed is returned after Close.
	ErrProviderClosed = errors.New("provider is closed")
)

func invalidFamilyID(familyID string) error {
	return fmt.Errorf("%w: %q", ErrInvalidFamilyID, familyID)
}

func familyNotFound(familyID string) error {
	return fmt.Errorf("%w: %s", ErrFamilyNotFound, familyID)
}
