package service

import (
	"testing"
	"time"

	"snapintake/internal/model"
)

func TestKeywordCoverageMatchesSections(t *testing.T) {
	t.Parallel()

	text := "user: I live with my spouse and two children. My salary is about 2000.\nassistant: What about rent?\nuser: Rent is 900 and I have some savings."
	cov := KeywordCoverage(text)

	if !cov.Household || !cov.Income || !cov.Expenses || !cov.Assets {
		t.Fatalf("expected household, income, expenses, assets covered, got %+v", cov)
	}
	if cov.Special {
		t.Fatalf("special should not match, got %+v", cov)
	}
}

func TestKeywordCoverageEmptyText(t *testing.T) {
	t.Parallel()

	if cov := KeywordCoverage(""); cov != (model.SectionCoverage{}) {
		t.Fatalf("expected all false, got %+v", cov)
	}
}

func TestNextSectionStepsThroughOrder(t *testing.T) {
	t.Parallel()

	if got := NextSection(model.SectionCoverage{}); got != "household" {
		t.Fatalf("expected household, got %s", got)
	}
	if got := NextSection(model.SectionCoverage{Household: true}); got != "income" {
		t.Fatalf("expected income, got %s", got)
	}
	all := model.SectionCoverage{Household: true, Income: true, Expenses: true, Assets: true, Special: true}
	if got := NextSection(all); got != "summary" {
		t.Fatalf("expected summary, got %s", got)
	}
}

func TestTranscriptTextRoleLines(t *testing.T) {
	t.Parallel()

	entries := []model.TranscriptEntry{
		{Role: model.RoleAssistant, Content: "Hello", OccurredAt: time.Now()},
		{Role: model.RoleUser, Content: "Hi there", OccurredAt: time.Now()},
	}
	got := TranscriptText(entries)
	want := "assistant: Hello\nuser: Hi there"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestUserTurnCount(t *testing.T) {
	t.Parallel()

	entries := []model.TranscriptEntry{
		{Role: model.RoleAssistant, Content: "q1"},
		{Role: model.RoleUser, Content: "a1"},
		{Role: model.RoleAssistant, Content: "q2"},
		{Role: model.RoleUser, Content: "a2"},
		{Role: model.RoleUser, Content: "a3"},
	}
	if got := UserTurnCount(entries); got != 3 {
		t.Fatalf("expected 3 user turns, got %d", got)
	}
}

func TestExtractDetails(t *testing.T) {
	t.Parallel()

	text := "user: My name is Maria Lopez. There are 4 people in my household and I make $1,250.50 per month."
	details := ExtractDetails(text)

	if details.Name != "Maria Lopez" {
		t.Fatalf("expected name Maria Lopez, got %q", details.Name)
	}
	if details.HouseholdSize != 4 {
		t.Fatalf("expected household size 4, got %d", details.HouseholdSize)
	}
	if details.MonthlyIncome != 1250.50 {
		t.Fatalf("expected income 1250.50, got %f", details.MonthlyIncome)
	}
}

func TestExtractDetailsMissingValues(t *testing.T) {
	t.Parallel()

	details := ExtractDetails("user: I'd rather not say.")
	if details.Name != "" || details.HouseholdSize != 0 || details.MonthlyIncome != 0 {
		t.Fatalf("expected zero values, got %+v", details)
	}
}
