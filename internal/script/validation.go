package script

import "encoding/json"

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

type IssueType string

const (
	IssueTypo       IssueType = "typo"
	IssueMadeUpWord IssueType = "made-up-word"
	IssueCoherence  IssueType = "coherence"
	IssueClarity    IssueType = "clarity"
)

type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

type Recommendation string

const (
	RecommendAccept     Recommendation = "accept"
	RecommendRegenerate Recommendation = "regenerate"
)

type Issue struct {
	Type       IssueType `json:"type"`
	Severity   Severity  `json:"severity"`
	Location   string    `json:"location"`
	Issue      string    `json:"issue"`
	Suggestion string    `json:"suggestion"`
}

type ValidationReport struct {
	IsValid        bool           `json:"isValid"`
	OverallQuality Quality        `json:"overallQuality"`
	Issues         []Issue        `json:"issues"`
	Summary        string         `json:"summary"`
	Recommendation Recommendation `json:"recommendation"`
}

// safeReport is the fallback when the validator output cannot be trusted.
// Validation is advisory, so a broken validator must never block generation.
func safeReport() *ValidationReport {
	return &ValidationReport{
		IsValid:        true,
		OverallQuality: QualityFair,
		Recommendation: RecommendAccept,
	}
}

// ParseReport parses raw validator output and coerces anything unexpected to
// safe defaults. It never fails.
func ParseReport(raw string) *ValidationReport {
	var report ValidationReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return safeReport()
	}
	sanitize(&report)
	return &report
}

func sanitize(report *ValidationReport) {
	switch report.OverallQuality {
	case QualityExcellent, QualityGood, QualityFair, QualityPoor:
	default:
		report.OverallQuality = QualityFair
	}

	switch report.Recommendation {
	case RecommendAccept, RecommendRegenerate:
	default:
		report.Recommendation = RecommendAccept
	}

	issues := report.Issues[:0]
	for _, issue := range report.Issues {
		switch issue.Severity {
		case SeverityCritical, SeverityMajor, SeverityMinor:
		default:
			issue.Severity = SeverityMinor
		}
		switch issue.Type {
		case IssueTypo, IssueMadeUpWord, IssueCoherence, IssueClarity:
		default:
			issue.Type = IssueClarity
		}
		issues = append(issues, issue)
	}
	report.Issues = issues
}

// ShouldRegenerate applies the regeneration rules in order: an explicit
// regenerate recommendation, then any critical issue, then two or more major
// issues. An "accept" recommendation does not suppress the later rules.
func (r *ValidationReport) ShouldRegenerate() bool {
	if r.Recommendation == RecommendRegenerate {
		return true
	}

	majors := 0
	for _, issue := range r.Issues {
		switch issue.Severity {
		case SeverityCritical:
			return true
		case SeverityMajor:
			majors++
		}
	}

	return majors >= 2
}
