// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCacheEntryInUse is returned by Invalidate when readers still hold
	// the entry. Use ForceInvalidate to retire it once they release.
	ErrCacheEntryInUse = errors.New("cache entry in use")

	// ErrNilGraph is returned when a build function yields no graph.
	ErrNilGraph = errors.New("build returned nil graph")
)

// BuildFailedError is returned while a recent build failure is cached.
type BuildFailedError struct {
	FamilyID string
	Err      error
	FailedAt time.Time
	RetryAt  time.Time
}

// Error implements the error interface.
func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("graph build for family %q failed at %s, retry after %s: %v",
		e.FamilyID, e.FailedAt.Format(time.RFC3339), e.RetryAt.Format(time.RFC3339), e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *BuildFailedError) Unwrap() error {
	return e.Err
}
