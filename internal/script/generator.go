package script

import (
	"context"
	"fmt"
	"log/slog"

	"reelforge/internal/llm"
)

const defaultMaxAttempts = 2

// HookStyles are the opening-hook variants cycled by the rotation ledger.
var HookStyles = []string{
	"question",
	"shocking fact",
	"bold claim",
	"mini story",
	"statistic",
}

type Result struct {
	Draft    *llm.Draft
	Report   *ValidationReport
	Attempts int
	Passed   bool
}

type Generator struct {
	llm         llm.Client
	maxAttempts int
}

func NewGenerator(client llm.Client, maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Generator{llm: client, maxAttempts: maxAttempts}
}

// Generate produces a validated draft. The loop is bounded: after the final
// attempt the last candidate is accepted regardless of the validator's
// verdict, and the report is kept for observability.
func (g *Generator) Generate(ctx context.Context, req llm.DraftRequest) (*Result, error) {
	var draft *llm.Draft
	var report *ValidationReport

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		var err error
		draft, err = g.llm.GenerateDraft(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("generate draft (attempt %d): %w", attempt, err)
		}

		report = g.validate(ctx, draft)

		if !report.ShouldRegenerate() {
			return &Result{Draft: draft, Report: report, Attempts: attempt, Passed: true}, nil
		}

		slog.Info("Script rejected by validator",
			"attempt", attempt,
			"quality", report.OverallQuality,
			"issues", len(report.Issues),
			"recommendation", report.Recommendation,
		)
	}

	return &Result{Draft: draft, Report: report, Attempts: g.maxAttempts, Passed: false}, nil
}

// Refine validates an existing draft and regenerates while the verdict
// calls for it, within the same attempt limit as Generate. The incoming
// draft counts as the first attempt.
func (g *Generator) Refine(ctx context.Context, req llm.DraftRequest, draft *llm.Draft) (*Result, error) {
	report := g.validate(ctx, draft)

	for attempt := 1; ; attempt++ {
		if !report.ShouldRegenerate() {
			return &Result{Draft: draft, Report: report, Attempts: attempt, Passed: true}, nil
		}
		if attempt >= g.maxAttempts {
			return &Result{Draft: draft, Report: report, Attempts: attempt, Passed: false}, nil
		}

		slog.Info("Script rejected by validator",
			"attempt", attempt,
			"quality", report.OverallQuality,
			"issues", len(report.Issues),
			"recommendation", report.Recommendation,
		)

		next, err := g.llm.GenerateDraft(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("regenerate draft (attempt %d): %w", attempt+1, err)
		}
		draft = next
		report = g.validate(ctx, draft)
	}
}

func (g *Generator) validate(ctx context.Context, draft *llm.Draft) *ValidationReport {
	raw, err := g.llm.ValidateDraft(ctx, draft)
	if err != nil {
		slog.Warn("Validator call failed, accepting draft", "error", err)
		return safeReport()
	}
	return ParseReport(raw)
}
