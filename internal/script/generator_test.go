package script

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"reelforge/internal/llm"
)

type fakeLLM struct {
	drafts      int
	validations []string
	validateErr error
	generateErr error
}

func (f *fakeLLM) GenerateDraft(_ context.Context, _ llm.DraftRequest) (*llm.Draft, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	f.drafts++
	return &llm.Draft{
		Title:     fmt.Sprintf("Draft %d", f.drafts),
		Script:    "Some narration text.",
		WordCount: 3,
	}, nil
}

func (f *fakeLLM) ValidateDraft(_ context.Context, _ *llm.Draft) (string, error) {
	if f.validateErr != nil {
		return "", f.validateErr
	}
	raw := f.validations[0]
	if len(f.validations) > 1 {
		f.validations = f.validations[1:]
	}
	return raw, nil
}

func (f *fakeLLM) GenerateImagePrompts(_ context.Context, _ string, _ int) ([]string, error) {
	return nil, nil
}

func TestGenerateAcceptsFirstCleanDraft(t *testing.T) {
	client := &fakeLLM{validations: []string{`{"isValid": true, "recommendation": "accept"}`}}
	gen := NewGenerator(client, 2)

	result, err := gen.Generate(context.Background(), llm.DraftRequest{TopicName: "space"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if !result.Passed {
		t.Error("expected Passed")
	}
	if client.drafts != 1 {
		t.Errorf("drafts generated = %d, want 1", client.drafts)
	}
}

func TestGenerateRegeneratesOnTwoMajorIssues(t *testing.T) {
	rejected := `{
		"isValid": false,
		"recommendation": "accept",
		"issues": [
			{"type": "typo", "severity": "major", "issue": "a"},
			{"type": "clarity", "severity": "major", "issue": "b"}
		]
	}`
	client := &fakeLLM{validations: []string{
		rejected,
		`{"isValid": true, "recommendation": "accept"}`,
	}}
	gen := NewGenerator(client, 2)

	result, err := gen.Generate(context.Background(), llm.DraftRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}
	if !result.Passed {
		t.Error("second draft should pass")
	}
	if client.drafts != 2 {
		t.Errorf("drafts generated = %d, want 2", client.drafts)
	}
}

func TestGenerateTerminatesAfterMaxAttempts(t *testing.T) {
	client := &fakeLLM{validations: []string{`{"recommendation": "regenerate"}`}}
	gen := NewGenerator(client, 2)

	result, err := gen.Generate(context.Background(), llm.DraftRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}
	if result.Passed {
		t.Error("final draft was rejected, Passed should be false")
	}
	if result.Draft == nil {
		t.Fatal("final draft must still be returned")
	}
	if result.Report == nil {
		t.Fatal("final report must be kept for observability")
	}
}

func TestGenerateValidatorErrorIsAdvisory(t *testing.T) {
	client := &fakeLLM{validateErr: errors.New("validator down")}
	gen := NewGenerator(client, 2)

	result, err := gen.Generate(context.Background(), llm.DraftRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if !result.Passed {
		t.Error("validator outage must not block generation")
	}
}

func TestGenerateDraftErrorPropagates(t *testing.T) {
	client := &fakeLLM{generateErr: errors.New("model unavailable")}
	gen := NewGenerator(client, 2)

	if _, err := gen.Generate(context.Background(), llm.DraftRequest{}); err == nil {
		t.Fatal("expected error")
	}
}
