package model

type Section string

const (
	SectionHousehold Section = "household"
	SectionIncome    Section = "income"
	SectionExpenses  Section = "expenses"
	SectionAssets    Section = "assets"
	SectionSpecial   Section = "special"

	// SectionSummary is the pseudo-section reached once everything else is covered.
	SectionSummary Section = "summary"
)

// SectionOrder is the order the interview steps through topics.
var SectionOrder = []Section{SectionHousehold, SectionIncome, SectionExpenses, SectionAssets, SectionSpecial}

// RequiredSections are the sections that gate interview completeness.
// Special circumstances are informational and never required.
var RequiredSections = []Section{SectionHousehold, SectionIncome, SectionExpenses, SectionAssets}

// SectionLabels are the human-readable names used in status messages.
var SectionLabels = map[Section]string{
	SectionHousehold: "Household",
	SectionIncome:    "Income",
	SectionExpenses:  "Expenses",
	SectionAssets:    "Assets",
	SectionSpecial:   "Special circumstances",
}

// SectionCoverage holds the per-section coverage judgement for one evaluation.
// A coverage value is always replaced whole, never patched field by field.
type SectionCoverage struct {
	Household bool `json:"household" bson:"household"`
	Income    bool `json:"income" bson:"income"`
	Expenses  bool `json:"expenses" bson:"expenses"`
	Assets    bool `json:"assets" bson:"assets"`
	Special   bool `json:"special" bson:"special"`
}

// Covered reports whether a single section was judged covered.
func (c SectionCoverage) Covered(s Section) bool {
	switch s {
	case SectionHousehold:
		return c.Household
	case SectionIncome:
		return c.Income
	case SectionExpenses:
		return c.Expenses
	case SectionAssets:
		return c.Assets
	case SectionSpecial:
		return c.Special
	}
	return false
}

// Complete reports whether all required sections are covered.
// Special circumstances do not gate completeness.
func (c SectionCoverage) Complete() bool {
	for _, s := range RequiredSections {
		if !c.Covered(s) {
			return false
		}
	}
	return true
}

// CoveredSections returns the ids of all covered sections in interview order.
func (c SectionCoverage) CoveredSections() []string {
	out := []string{}
	for _, s := range SectionOrder {
		if c.Covered(s) {
			out = append(out, string(s))
		}
	}
	return out
}

// MissingSections returns the labels of sections not yet covered, in order.
func (c SectionCoverage) MissingSections() []string {
	out := []string{}
	for _, s := range SectionOrder {
		if !c.Covered(s) {
			out = append(out, SectionLabels[s])
		}
	}
	return out
}

// Percentage is the display progress: covered sections out of all five.
// Special counts toward the percentage even though it is not required,
// so a coverage with every required section but not special reads 80.
func (c SectionCoverage) Percentage() int {
	covered := 0
	for _, s := range SectionOrder {
		if c.Covered(s) {
			covered++
		}
	}
	return covered * 100 / len(SectionOrder)
}
