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

import "github.com/AleutianAI/kinship/services/kinship/kin"

// Relation codes produced by the rule table.
const (
	CodeFather kin.Code = "Father"
	CodeMother kin.Code = "Mother"
	CodeParent kin.Code = "Parent"

	CodeGrandfather kin.Code = "Grandfather"
	CodeGrandmother kin.Code = "Grandmother"
	CodeGrandparent kin.Code = "Grandparent"

	CodeGreatGrandfather kin.Code = "GreatGrandfather"
	CodeGreatGrandmother kin.Code = "GreatGrandmother"
	CodeGreatGrandparent kin.Code = "GreatGrandparent"

	CodeGreatGreatGrandfather kin.Code = "GreatGreatGrandfather"
	CodeGreatGreatGrandmother kin.Code = "GreatGreatGrandmother"
	CodeGreatGreatGrandparent kin.Code = "GreatGreatGrandparent"

	CodeAncestor kin.Code = "Ancestor"

	CodeSon      kin.Code = "Son"
	CodeDaughter kin.Code = "Daughter"
	CodeChild    kin.Code = "Child"

	CodeGrandson      kin.Code = "Grandson"
	CodeGranddaughter kin.Code = "Granddaughter"
	CodeGrandchild    kin.Code = "Grandchild"

	CodeGreatGrandson      kin.Code = "GreatGrandson"
	CodeGreatGranddaughter kin.Code = "GreatGranddaughter"
	CodeGreatGrandchild    kin.Code = "GreatGrandchild"

	CodeGreatGreatGrandchild kin.Code = "GreatGreatGrandchild"

	CodeDescendant kin.Code = "Descendant"

	CodeElderBrother   kin.Code = "ElderBrother"
	CodeElderSister    kin.Code = "ElderSister"
	CodeElderSibling   kin.Code = "ElderSibling"
	CodeYoungerBrother kin.Code = "YoungerBrother"
	CodeYoungerSister  kin.Code = "YoungerSister"
	CodeYoungerSibling kin.Code = "YoungerSibling"
	CodeBrother        kin.Code = "Brother"
	CodeSister         kin.Code = "Sister"
	CodeSibling        kin.Code = "Sibling"

	CodeElderUncle   kin.Code = "ElderUncle"
	CodeYoungerUncle kin.Code = "YoungerUncle"
	CodeUncle        kin.Code = "Uncle"
	CodeElderAunt    kin.Code = "ElderAunt"
	CodeYoungerAunt  kin.Code = "YoungerAunt"
	CodeAunt         kin.Code = "Aunt"
	CodeUncleOrAunt  kin.Code = "UncleOrAunt"

	CodeGreatUncle       kin.Code = "GreatUncle"
	CodeGreatAunt        kin.Code = "GreatAunt"
	CodeGreatUncleOrAunt kin.Code = "GreatUncleOrAunt"

	CodeNephew        kin.Code = "Nephew"
	CodeNiece         kin.Code = "Niece"
	CodeNephewOrNiece kin.Code = "NephewOrNiece"

	CodeGrandNephew        kin.Code = "GrandNephew"
	CodeGrandNiece         kin.Code = "GrandNiece"
	CodeGrandNephewOrNiece kin.Code = "GrandNephewOrNiece"

	CodeElderMaleCousin   kin.Code = "ElderMaleCousin"
	CodeElderFemaleCousin kin.Code = "ElderFemaleCousin"
	CodeElderCousin       kin.Code = "ElderCousin"
	CodeYoungerCousin     kin.Code = "YoungerCousin"
	CodeMaleCousin        kin.Code = "MaleCousin"
	CodeFemaleCousin      kin.Code = "FemaleCousin"
	CodeCousin            kin.Code = "Cousin"

	CodeCousinUncle   kin.Code = "CousinUncle"
	CodeCousinAunt    kin.Code = "CousinAunt"
	CodeParentsCousin kin.Code = "ParentsCousin"

	CodeCousinsChild kin.Code = "CousinsChild"

	CodeHusband kin.Code = "Husband"
	CodeWife    kin.Code = "Wife"
	CodeSpouse  kin.Code = "Spouse"

	CodeHusbandsFather kin.Code = "HusbandsFather"
	CodeHusbandsMother kin.Code = "HusbandsMother"
	CodeHusbandsParent kin.Code = "HusbandsParent"
	CodeWifesFather    kin.Code = "WifesFather"
	CodeWifesMother    kin.Code = "WifesMother"
	CodeWifesParent    kin.Code = "WifesParent"
	CodeFatherInLaw    kin.Code = "FatherInLaw"
	CodeMotherInLaw    kin.Code = "MotherInLaw"
	CodeParentInLaw    kin.Code = "ParentInLaw"

	CodeSonInLaw      kin.Code = "SonInLaw"
	CodeDaughterInLaw kin.Code = "DaughterInLaw"
	CodeChildInLaw    kin.Code = "ChildInLaw"

	CodeElderBrotherInLaw   kin.Code = "ElderBrotherInLaw"
	CodeElderSisterInLaw    kin.Code = "ElderSisterInLaw"
	CodeYoungerBrotherInLaw kin.Code = "YoungerBrotherInLaw"
	CodeYoungerSisterInLaw  kin.Code = "YoungerSisterInLaw"
	CodeBrotherInLaw        kin.Code = "BrotherInLaw"
	CodeSisterInLaw         kin.Code = "SisterInLaw"
	CodeSiblingInLaw        kin.Code = "SiblingInLaw"

	CodeHusbandsSibling kin.Code = "HusbandsSibling"
	CodeWifesSibling    kin.Code = "WifesSibling"
	CodeSpousesSibling  kin.Code = "SpousesSibling"

	CodeStepfather kin.Code = "Stepfather"
	CodeStepmother kin.Code = "Stepmother"
	CodeStepparent kin.Code = "Stepparent"

	CodeStepson      kin.Code = "Stepson"
	CodeStepdaughter kin.Code = "Stepdaughter"
	CodeStepchild    kin.Code = "Stepchild"

	CodeStepbrother kin.Code = "Stepbrother"
	CodeStepsister  kin.Code = "Stepsister"
	CodeStepsibling kin.Code = "Stepsibling"

	CodeUncleByMarriage       kin.Code = "UncleByMarriage"
	CodeAuntByMarriage        kin.Code = "AuntByMarriage"
	CodeUncleOrAuntByMarriage kin.Code = "UncleOrAuntByMarriage"

	CodeNephewByMarriage        kin.Code = "NephewByMarriage"
	CodeNieceByMarriage         kin.Code = "NieceByMarriage"
	CodeNephewOrNieceByMarriage kin.Code = "NephewOrNieceByMarriage"
)
