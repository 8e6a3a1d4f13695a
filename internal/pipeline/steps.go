package pipeline

import (
	"fmt"

	"reelforge/internal/store"
)

// Step is one unit of pipeline work. Steps execute strictly in order
// within a content item; the per-mode tables below define that order.
type Step string

const (
	StepGenerateScript    Step = "generate_script"
	StepValidateScript    Step = "validate_script"
	StepGeneratePrompts   Step = "generate_image_prompts"
	StepGenerateImages    Step = "generate_images"
	StepGenerateAudio     Step = "generate_audio"
	StepGenerateSubtitles Step = "generate_subtitles"
	StepRender            Step = "render"
)

var stepOrder = map[store.RenderMode][]Step{
	store.RenderModeStatic: {
		StepGenerateScript,
		StepValidateScript,
		StepGenerateAudio,
		StepGenerateSubtitles,
		StepRender,
	},
	store.RenderModeAiImages: {
		StepGenerateScript,
		StepValidateScript,
		StepGeneratePrompts,
		StepGenerateImages,
		StepGenerateAudio,
		StepGenerateSubtitles,
		StepRender,
	},
}

var stepStatuses = map[Step]store.ContentStatus{
	StepGenerateScript:    store.StatusGeneratingScript,
	StepValidateScript:    store.StatusValidatingScript,
	StepGeneratePrompts:   store.StatusGeneratingPrompts,
	StepGenerateImages:    store.StatusGeneratingImages,
	StepGenerateAudio:     store.StatusGeneratingAudio,
	StepGenerateSubtitles: store.StatusGeneratingSubtitle,
	StepRender:            store.StatusRendering,
}

func FirstStep() Step {
	return StepGenerateScript
}

func StepsFor(mode store.RenderMode) ([]Step, error) {
	steps, ok := stepOrder[mode]
	if !ok {
		return nil, fmt.Errorf("unknown render mode: %s", mode)
	}
	return steps, nil
}

// NextStep returns the step after the given one for the mode, or false
// when the step is the last.
func NextStep(mode store.RenderMode, step Step) (Step, bool, error) {
	steps, err := StepsFor(mode)
	if err != nil {
		return "", false, err
	}

	for i, s := range steps {
		if s == step {
			if i+1 < len(steps) {
				return steps[i+1], true, nil
			}
			return "", false, nil
		}
	}

	return "", false, fmt.Errorf("step %s is not part of mode %s", step, mode)
}

func StatusFor(step Step) (store.ContentStatus, error) {
	status, ok := stepStatuses[step]
	if !ok {
		return "", fmt.Errorf("unknown step: %s", step)
	}
	return status, nil
}

// StepForStatus maps an in-progress status back to its step, used to
// resume items that were mid-flight when the process stopped.
func StepForStatus(status store.ContentStatus) (Step, bool) {
	for step, s := range stepStatuses {
		if s == status {
			return step, true
		}
	}
	return "", false
}

func ParseStep(s string) (Step, error) {
	step := Step(s)
	if _, ok := stepStatuses[step]; !ok {
		return "", fmt.Errorf("unknown step: %q", s)
	}
	return step, nil
}

// VerifyTransitions sanity-checks the step tables at startup: every step
// has a status, no mode repeats a step, and both modes share the same
// first and last step.
func VerifyTransitions() error {
	for mode, steps := range stepOrder {
		if len(steps) == 0 {
			return fmt.Errorf("mode %s has no steps", mode)
		}
		if steps[0] != FirstStep() {
			return fmt.Errorf("mode %s does not start with %s", mode, FirstStep())
		}
		if steps[len(steps)-1] != StepRender {
			return fmt.Errorf("mode %s does not end with %s", mode, StepRender)
		}

		seen := make(map[Step]bool, len(steps))
		for _, step := range steps {
			if seen[step] {
				return fmt.Errorf("mode %s repeats step %s", mode, step)
			}
			seen[step] = true
			if _, ok := stepStatuses[step]; !ok {
				return fmt.Errorf("step %s has no status mapping", step)
			}
		}
	}
	return nil
}
