package domain

import (
	"errors"
	"testing"
)

func TestKnowledgeDocument_MatchesFilters(t *testing.T) {
	doc := KnowledgeDocument{
		Metadata: map[string]string{
			MetaLanguage: "python",
			MetaCategory: "security",
		},
	}

	tests := []struct {
		name    string
		filters map[string]string
		match   bool
	}{
		{"nil filters match everything", nil, true},
		{"empty filters match everything", map[string]string{}, true},
		{"single match", map[string]string{MetaLanguage: "python"}, true},
		{"conjunction", map[string]string{MetaLanguage: "python", MetaCategory: "security"}, true},
		{"one key mismatches", map[string]string{MetaLanguage: "python", MetaCategory: "performance"}, false},
		{"missing key", map[string]string{"author": "someone"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := doc.MatchesFilters(tt.filters); got != tt.match {
				t.Errorf("MatchesFilters(%v) = %v, expected %v", tt.filters, got, tt.match)
			}
		})
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		metadata map[string]string
		err      error
	}{
		{"ok", "use parameterized queries", map[string]string{MetaCategory: "security"}, nil},
		{"empty text", "  ", map[string]string{MetaCategory: "security"}, ErrEmptyDocument},
		{"no category", "some rule", map[string]string{MetaLanguage: "go"}, ErrMissingCategory},
		{"nil metadata", "some rule", nil, ErrMissingCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.text, tt.metadata)
			if !errors.Is(err, tt.err) {
				t.Errorf("ValidateDocument() = %v, expected %v", err, tt.err)
			}
		})
	}
}

func TestRoundScore(t *testing.T) {
	tests := []struct {
		in       float64
		expected float64
	}{
		{7.25, 7.3},
		{7.24, 7.2},
		{10, 10},
		{6.666666, 6.7},
	}

	for _, tt := range tests {
		if got := RoundScore(tt.in); got != tt.expected {
			t.Errorf("RoundScore(%v) = %v, expected %v", tt.in, got, tt.expected)
		}
	}
}

func TestSortFindings_Deterministic(t *testing.T) {
	findings := []Finding{
		{Severity: SeverityInfo, Line: 3},
		{Severity: SeverityCritical, Line: 10},
		{Severity: SeverityWarning, Line: 1},
		{Severity: SeverityCritical, Line: 2},
	}

	SortFindings(findings)

	if findings[0].Severity != SeverityCritical || findings[0].Line != 2 {
		t.Errorf("first finding = %+v, expected critical line 2", findings[0])
	}
	if findings[1].Severity != SeverityCritical || findings[1].Line != 10 {
		t.Errorf("second finding = %+v, expected critical line 10", findings[1])
	}
	if findings[3].Severity != SeverityInfo {
		t.Errorf("last finding = %+v, expected info", findings[3])
	}
}
