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
	"fmt"

	"github.com/AleutianAI/kinship/services/kinship/graph"
	"github.com/go-playground/validator/v10"
)

// snapshotValidate is the validator instance for snapshots written to
// providers. Initialized in init() with struct-level rules.
var snapshotValidate *validator.Validate

func init() {
	snapshotValidate = validator.New(validator.WithRequiredStructEnabled())
	snapshotValidate.RegisterStructValidation(validateSnapshotLevel, graph.Snapshot{})
	snapshotValidate.RegisterStructValidation(validateRelationshipLevel, graph.Relationship{})
}

func validateSnapshotLevel(sl validator.StructLevel) {
	snap := sl.Current().Interface().(graph.Snapshot)
	if snap.FamilyID != "" && ValidateFamilyID(snap.FamilyID) != nil {
		sl.ReportError(snap.FamilyID, "FamilyID", "FamilyID", "familyid", "")
	}
}

func validateRelationshipLevel(sl validator.StructLevel) {
	r := sl.Current().Interface().(graph.Relationship)
	if r.Kind < 0 || r.Kind >= graph.NumEdgeKinds {
		sl.ReportError(r.Kind, "Kind", "Kind", "edgekind", "")
	}
}

// Validate checks a snapshot before it is stored.
//
// Description:
//
//	Rejects snapshots with a malformed family ID, members or relationships
//	without IDs, negative years, or unknown relationship kinds. Dangling
//	relationships and parent conflicts are not checked here; the graph
//	builder drops and reports them so a partly bad family stays usable.
//
// Errors:
//
//	ErrInvalidSnapshot - Wraps the validator's field errors
func Validate(snap *graph.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, graph.ErrNilSnapshot)
	}
	if err := snapshotValidate.Struct(snap); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return nil
}
