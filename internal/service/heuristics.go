package service

import (
	"regexp"
	"strconv"
	"strings"

	"snapintake/internal/model"
)

// sectionKeywords drive the cheap synchronous coverage fallback. A section
// counts as covered when any of its keywords appears in the transcript.
// The oracle's judgement supersedes this whenever it is available.
var sectionKeywords = map[model.Section][]string{
	model.SectionHousehold: {"household", "live with", "live alone", "family member", "children", "spouse", "roommate"},
	model.SectionIncome:    {"income", "salary", "wage", "paycheck", "employ", "unemploy", "social security", "pension"},
	model.SectionExpenses:  {"rent", "mortgage", "utilit", "expense", "bills", "childcare cost"},
	model.SectionAssets:    {"savings", "bank account", "checking account", "vehicle", "asset", "own a car", "property"},
	model.SectionSpecial:   {"disab", "pregnan", "elderly", "veteran", "medical condition", "homeless", "domestic violence"},
}

// KeywordCoverage derives section coverage from transcript keyword matching.
func KeywordCoverage(transcriptText string) model.SectionCoverage {
	text := strings.ToLower(transcriptText)

	covered := func(section model.Section) bool {
		for _, kw := range sectionKeywords[section] {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}

	return model.SectionCoverage{
		Household: covered(model.SectionHousehold),
		Income:    covered(model.SectionIncome),
		Expenses:  covered(model.SectionExpenses),
		Assets:    covered(model.SectionAssets),
		Special:   covered(model.SectionSpecial),
	}
}

// NextSection steps through the interview order and returns the first section
// not yet covered. Once everything is covered the interview moves to summary.
func NextSection(coverage model.SectionCoverage) string {
	for _, s := range model.SectionOrder {
		if !coverage.Covered(s) {
			return string(s)
		}
	}
	return string(model.SectionSummary)
}

// TranscriptText renders entries as role-prefixed lines, the format the
// oracle and the keyword heuristics both consume.
func TranscriptText(entries []model.TranscriptEntry) string {
	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(string(e.Role))
		sb.WriteString(": ")
		sb.WriteString(e.Content)
	}
	return sb.String()
}

// UserTurnCount counts the applicant's turns in a transcript.
func UserTurnCount(entries []model.TranscriptEntry) int {
	count := 0
	for _, e := range entries {
		if e.Role == model.RoleUser {
			count++
		}
	}
	return count
}

var (
	nameRe      = regexp.MustCompile(`(?i)my name is ([A-Za-z]+(?: [A-Za-z]+)?)`)
	householdRe = regexp.MustCompile(`(?i)(?:household of|family of|there are) (\d{1,2})(?: people| person| of us|$|[ .,])`)
	incomeRe    = regexp.MustCompile(`(?i)\$?([\d,]+(?:\.\d{2})?) (?:a|per|each) month`)
)

// ApplicantDetails are best-effort scalars pattern-matched out of the
// transcript. Advisory only; a caseworker verifies them during review.
type ApplicantDetails struct {
	Name          string
	HouseholdSize int
	MonthlyIncome float64
}

// ExtractDetails pulls applicant name, household size and monthly income
// from the transcript text. Missing values stay zero.
func ExtractDetails(transcriptText string) ApplicantDetails {
	var details ApplicantDetails

	if m := nameRe.FindStringSubmatch(transcriptText); m != nil {
		details.Name = strings.TrimSpace(m[1])
	}
	if m := householdRe.FindStringSubmatch(transcriptText); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			details.HouseholdSize = n
		}
	}
	if m := incomeRe.FindStringSubmatch(transcriptText); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			details.MonthlyIncome = v
		}
	}

	return details
}
