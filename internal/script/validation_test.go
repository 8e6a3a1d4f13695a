package script

import "testing"

func TestParseReportMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "notJSON", raw: "the script looks fine to me"},
		{name: "empty", raw: ""},
		{name: "jsonArray", raw: `["unexpected"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := ParseReport(tt.raw)

			if !report.IsValid {
				t.Error("sanitized report should be valid")
			}
			if report.OverallQuality != QualityFair {
				t.Errorf("OverallQuality = %q, want %q", report.OverallQuality, QualityFair)
			}
			if report.Recommendation != RecommendAccept {
				t.Errorf("Recommendation = %q, want %q", report.Recommendation, RecommendAccept)
			}
			if report.ShouldRegenerate() {
				t.Error("sanitized report should not trigger regeneration")
			}
		})
	}
}

func TestParseReportCoercesUnknownEnums(t *testing.T) {
	raw := `{
		"isValid": false,
		"overallQuality": "stellar",
		"recommendation": "maybe",
		"issues": [
			{"type": "grammar", "severity": "catastrophic", "issue": "x"}
		]
	}`

	report := ParseReport(raw)

	if report.OverallQuality != QualityFair {
		t.Errorf("OverallQuality = %q, want %q", report.OverallQuality, QualityFair)
	}
	if report.Recommendation != RecommendAccept {
		t.Errorf("Recommendation = %q, want %q", report.Recommendation, RecommendAccept)
	}
	if report.Issues[0].Severity != SeverityMinor {
		t.Errorf("Severity = %q, want %q", report.Issues[0].Severity, SeverityMinor)
	}
	if report.Issues[0].Type != IssueClarity {
		t.Errorf("Type = %q, want %q", report.Issues[0].Type, IssueClarity)
	}
}

func TestShouldRegenerate(t *testing.T) {
	tests := []struct {
		name   string
		report ValidationReport
		want   bool
	}{
		{
			name:   "cleanAccept",
			report: ValidationReport{IsValid: true, Recommendation: RecommendAccept},
			want:   false,
		},
		{
			name:   "explicitRegenerate",
			report: ValidationReport{IsValid: true, Recommendation: RecommendRegenerate},
			want:   true,
		},
		{
			name: "criticalIssue",
			report: ValidationReport{
				Recommendation: RecommendAccept,
				Issues:         []Issue{{Severity: SeverityCritical}},
			},
			want: true,
		},
		{
			name: "oneMajorIssue",
			report: ValidationReport{
				Recommendation: RecommendAccept,
				Issues:         []Issue{{Severity: SeverityMajor}},
			},
			want: false,
		},
		{
			name: "twoMajorIssuesOverrideAccept",
			report: ValidationReport{
				Recommendation: RecommendAccept,
				Issues:         []Issue{{Severity: SeverityMajor}, {Severity: SeverityMajor}},
			},
			want: true,
		},
		{
			name: "minorsOnly",
			report: ValidationReport{
				Recommendation: RecommendAccept,
				Issues: []Issue{
					{Severity: SeverityMinor},
					{Severity: SeverityMinor},
					{Severity: SeverityMinor},
				},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report.ShouldRegenerate(); got != tt.want {
				t.Errorf("ShouldRegenerate() = %v, want %v", got, tt.want)
			}
		})
	}
}
