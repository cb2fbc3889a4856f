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

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/AleutianAI/kinship/services/kinship/kin"
)

// Terms are the gendered codes of one relation.
type Terms struct {
	Male    kin.Code
	Female  kin.Code
	Neutral kin.Code
}

func terms(male, female, neutral kin.Code) *Terms {
	return &Terms{Male: male, Female: female, Neutral: neutral}
}

// For picks the code for the gender.
func (t Terms) For(g kin.Gender) kin.Code {
	switch g {
	case kin.GenderMale:
		return t.Male
	case kin.GenderFemale:
		return t.Female
	default:
		return t.Neutral
	}
}

// Codes returns the male, female and neutral codes.
func (t Terms) Codes() []kin.Code {
	return []kin.Code{t.Male, t.Female, t.Neutral}
}

// String renders the terms as "male/female/neutral".
func (t Terms) String() string {
	return fmt.Sprintf("%s/%s/%s", t.Male, t.Female, t.Neutral)
}

// Rule maps one shape (or band of shapes) to relation codes.
type Rule struct {
	// Key is the shape rendering, or "band:<name>" for band rules.
	Key string

	// Terms apply when no variant below is selected.
	Terms Terms

	// Elder and Younger apply when the sibling pivot has known seniority.
	Elder   *Terms
	Younger *Terms

	// Husbands and Wifes apply when the leading spouse is a husband or wife.
	Husbands *Terms
	Wifes    *Terms
}

// Codes returns every code the rule can produce.
func (r Rule) Codes() []kin.Code {
	out := r.Terms.Codes()
	for _, v := range []*Terms{r.Elder, r.Younger, r.Husbands, r.Wifes} {
		if v != nil {
			out = append(out, v.Codes()...)
		}
	}
	return out
}

func (r Rule) String() string {
	var sb strings.Builder
	sb.WriteString(r.Key)
	sb.WriteByte(' ')
	sb.WriteString(r.Terms.String())
	variant := func(name string, t *Terms) {
		if t != nil {
			fmt.Fprintf(&sb, " %s=%s", name, t)
		}
	}
	variant("elder", r.Elder)
	variant("younger", r.Younger)
	variant("husbands", r.Husbands)
	variant("wifes", r.Wifes)
	return sb.String()
}

type band struct {
	rule  Rule
	match func(Shape) bool
}

// Table is an immutable set of rules. Exact shape rules take precedence
// over bands; bands are tried in declaration order.
type Table struct {
	exact map[Shape]Rule
	bands []band
}

// Lookup returns the rule for a shape.
func (t *Table) Lookup(s Shape) (Rule, bool) {
	if r, ok := t.exact[s]; ok {
		return r, true
	}
	for _, b := range t.bands {
		if b.match(s) {
			return b.rule, true
		}
	}
	return Rule{}, false
}

// Rules returns exact rules sorted by key, followed by band rules.
func (t *Table) Rules() []Rule {
	out := make([]Rule, 0, len(t.exact)+len(t.bands))
	for _, r := range t.exact {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	for _, b := range t.bands {
		out = append(out, b.rule)
	}
	return out
}

// Dump writes one line per rule in Rules order.
func (t *Table) Dump(w io.Writer) error {
	for _, r := range t.Rules() {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) add(s Shape, r Rule) {
	r.Key = s.String()
	t.exact[s] = r
}

func (t *Table) addBand(name string, match func(Shape) bool, r Rule) {
	r.Key = "band:" + name
	t.bands = append(t.bands, band{rule: r, match: match})
}

func plain(s Shape) bool {
	return !s.LeadSpouse && !s.TrailSpouse
}

var defaultTable = newDefaultTable()

// DefaultTable returns the built-in rule table.
func DefaultTable() *Table {
	return defaultTable
}

func newDefaultTable() *Table {
	t := &Table{exact: make(map[Shape]Rule)}

	// Direct line.
	t.add(Shape{Up: 1}, Rule{Terms: *terms(CodeFather, CodeMother, CodeParent)})
	t.add(Shape{Up: 2}, Rule{Terms: *terms(CodeGrandfather, CodeGrandmother, CodeGrandparent)})
	t.add(Shape{Up: 3}, Rule{Terms: *terms(CodeGreatGrandfather, CodeGreatGrandmother, CodeGreatGrandparent)})
	t.add(Shape{Up: 4}, Rule{Terms: *terms(CodeGreatGreatGrandfather, CodeGreatGreatGrandmother, CodeGreatGreatGrandparent)})
	t.add(Shape{Down: 1}, Rule{Terms: *terms(CodeSon, CodeDaughter, CodeChild)})
	t.add(Shape{Down: 2}, Rule{Terms: *terms(CodeGrandson, CodeGranddaughter, CodeGrandchild)})
	t.add(Shape{Down: 3}, Rule{Terms: *terms(CodeGreatGrandson, CodeGreatGranddaughter, CodeGreatGrandchild)})
	t.add(Shape{Down: 4}, Rule{Terms: *terms(CodeGreatGreatGrandchild, CodeGreatGreatGrandchild, CodeGreatGreatGrandchild)})

	// Collateral line.
	t.add(Shape{Lateral: LateralSibling}, Rule{
		Terms:   *terms(CodeBrother, CodeSister, CodeSibling),
		Elder:   terms(CodeElderBrother, CodeElderSister, CodeElderSibling),
		Younger: terms(CodeYoungerBrother, CodeYoungerSister, CodeYoungerSibling),
	})
	t.add(Shape{Up: 1, Lateral: LateralSibling}, Rule{
		Terms:   *terms(CodeUncle, CodeAunt, CodeUncleOrAunt),
		Elder:   terms(CodeElderUncle, CodeElderAunt, CodeUncleOrAunt),
		Younger: terms(CodeYoungerUncle, CodeYoungerAunt, CodeUncleOrAunt),
	})
	t.add(Shape{Up: 2, Lateral: LateralSibling}, Rule{Terms: *terms(CodeGreatUncle, CodeGreatAunt, CodeGreatUncleOrAunt)})
	t.add(Shape{Lateral: LateralSibling, Down: 1}, Rule{Terms: *terms(CodeNephew, CodeNiece, CodeNephewOrNiece)})
	t.add(Shape{Lateral: LateralSibling, Down: 2}, Rule{Terms: *terms(CodeGrandNephew, CodeGrandNiece, CodeGrandNephewOrNiece)})

	// Marriage.
	t.add(Shape{Lateral: LateralSpouse}, Rule{Terms: *terms(CodeHusband, CodeWife, CodeSpouse)})
	t.add(Shape{LeadSpouse: true, Up: 1}, Rule{
		Terms:    *terms(CodeFatherInLaw, CodeMotherInLaw, CodeParentInLaw),
		Husbands: terms(CodeHusbandsFather, CodeHusbandsMother, CodeHusbandsParent),
		Wifes:    terms(CodeWifesFather, CodeWifesMother, CodeWifesParent),
	})
	t.add(Shape{Down: 1, TrailSpouse: true}, Rule{Terms: *terms(CodeSonInLaw, CodeDaughterInLaw, CodeChildInLaw)})
	t.add(Shape{Lateral: LateralSibling, TrailSpouse: true}, Rule{
		Terms:   *terms(CodeBrotherInLaw, CodeSisterInLaw, CodeSiblingInLaw),
		Elder:   terms(CodeElderBrotherInLaw, CodeElderSisterInLaw, CodeSiblingInLaw),
		Younger: terms(CodeYoungerBrotherInLaw, CodeYoungerSisterInLaw, CodeSiblingInLaw),
	})
	t.add(Shape{LeadSpouse: true, Lateral: LateralSibling}, Rule{
		Terms:    *terms(CodeSpousesSibling, CodeSpousesSibling, CodeSpousesSibling),
		Husbands: terms(CodeHusbandsSibling, CodeHusbandsSibling, CodeHusbandsSibling),
		Wifes:    terms(CodeWifesSibling, CodeWifesSibling, CodeWifesSibling),
	})
	t.add(Shape{Up: 1, Lateral: LateralSpouse}, Rule{Terms: *terms(CodeStepfather, CodeStepmother, CodeStepparent)})
	t.add(Shape{Lateral: LateralSpouse, Down: 1}, Rule{Terms: *terms(CodeStepson, CodeStepdaughter, CodeStepchild)})
	t.add(Shape{Up: 1, Lateral: LateralSpouse, Down: 1}, Rule{Terms: *terms(CodeStepbrother, CodeStepsister, CodeStepsibling)})
	t.add(Shape{Up: 1, Lateral: LateralSibling, TrailSpouse: true}, Rule{
		Terms: *terms(CodeUncleByMarriage, CodeAuntByMarriage, CodeUncleOrAuntByMarriage),
	})
	t.add(Shape{LeadSpouse: true, Lateral: LateralSibling, Down: 1}, Rule{
		Terms: *terms(CodeNephewByMarriage, CodeNieceByMarriage, CodeNephewOrNieceByMarriage),
	})

	t.addBand("ancestor", func(s Shape) bool {
		return plain(s) && s.Lateral == LateralNone && s.Down == 0 && s.Up >= 5
	}, Rule{Terms: *terms(CodeAncestor, CodeAncestor, CodeAncestor)})

	t.addBand("descendant", func(s Shape) bool {
		return plain(s) && s.Lateral == LateralNone && s.Up == 0 && s.Down >= 5
	}, Rule{Terms: *terms(CodeDescendant, CodeDescendant, CodeDescendant)})

	t.addBand("cousin", func(s Shape) bool {
		return plain(s) && s.Lateral == LateralSibling && s.Up >= 1 && s.Up == s.Down
	}, Rule{
		Terms:   *terms(CodeMaleCousin, CodeFemaleCousin, CodeCousin),
		Elder:   terms(CodeElderMaleCousin, CodeElderFemaleCousin, CodeElderCousin),
		Younger: terms(CodeYoungerCousin, CodeYoungerCousin, CodeYoungerCousin),
	})

	t.addBand("parents-cousin", func(s Shape) bool {
		return plain(s) && s.Lateral == LateralSibling && s.Down >= 1 && s.Up == s.Down+1
	}, Rule{Terms: *terms(CodeCousinUncle, CodeCousinAunt, CodeParentsCousin)})

	t.addBand("cousins-child", func(s Shape) bool {
		return plain(s) && s.Lateral == LateralSibling && s.Up >= 1 && s.Down == s.Up+1
	}, Rule{Terms: *terms(CodeCousinsChild, CodeCousinsChild, CodeCousinsChild)})

	return t
}
