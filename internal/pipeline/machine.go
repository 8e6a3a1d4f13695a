package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"reelforge/internal/assets"
	"reelforge/internal/llm"
	"reelforge/internal/rotation"
	"reelforge/internal/script"
	"reelforge/internal/speech"
	"reelforge/internal/store"
	"reelforge/internal/video"
	"reelforge/pkg/config"
)

// Store is the slice of persistence the orchestrator needs. Every step
// loads the item fresh and persists its results before the next step runs.
type Store interface {
	GetContentItem(ctx context.Context, id string) (*store.ContentItem, error)
	GetTopic(ctx context.Context, id uint) (*store.Topic, error)
	SetContentStatus(ctx context.Context, id string, status store.ContentStatus) error
	SaveContentFields(ctx context.Context, id string, fields map[string]any) error
	MarkContentFailed(ctx context.Context, id, failedStep, message string) error
	MarkContentCompleted(ctx context.Context, id string) error
	SetUploadError(ctx context.Context, id, message string) error
	ListContentByStatus(ctx context.Context, statuses ...store.ContentStatus) ([]store.ContentItem, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, seed int, outPath string) error
}

type Renderer interface {
	RenderStatic(ctx context.Context, req video.StaticRequest) (*video.RenderResult, error)
	RenderSlideshow(ctx context.Context, req video.SlideshowRequest) (*video.RenderResult, error)
}

// Uploader runs the auto-upload flow for a completed item.
type Uploader interface {
	UploadNow(ctx context.Context, item *store.ContentItem) error
}

// Enqueuer hands the next step back to the job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, itemID string, step Step) error
}

type Machine struct {
	store    Store
	llm      llm.Client
	scripts  *script.Generator
	speech   speech.Provider
	images   ImageGenerator
	renderer Renderer
	assets   assets.Provider
	ledger   *rotation.Ledger
	topics   *rotation.TopicSelector
	uploader Uploader
	jobs     Enqueuer
	cfg      *config.Config
}

type MachineOptions struct {
	Store    Store
	LLM      llm.Client
	Scripts  *script.Generator
	Speech   speech.Provider
	Images   ImageGenerator
	Renderer Renderer
	Assets   assets.Provider
	Ledger   *rotation.Ledger
	Topics   *rotation.TopicSelector
	Config   *config.Config
}

func NewMachine(opts MachineOptions) *Machine {
	return &Machine{
		store:    opts.Store,
		llm:      opts.LLM,
		scripts:  opts.Scripts,
		speech:   opts.Speech,
		images:   opts.Images,
		renderer: opts.Renderer,
		assets:   opts.Assets,
		ledger:   opts.Ledger,
		topics:   opts.Topics,
		cfg:      opts.Config,
	}
}

func (m *Machine) SetEnqueuer(jobs Enqueuer) {
	m.jobs = jobs
}

func (m *Machine) SetUploader(uploader Uploader) {
	m.uploader = uploader
}

// RunStep executes one step for the item: mark the in-progress status,
// do the work, then enqueue the mode's next step or complete. Step
// failures are returned to the caller; the queue owns the retry policy
// and records the terminal failure via MarkStepFailed.
func (m *Machine) RunStep(ctx context.Context, itemID string, step Step) error {
	status, err := StatusFor(step)
	if err != nil {
		return err
	}

	item, err := m.store.GetContentItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("load content item: %w", err)
	}

	if err := m.store.SetContentStatus(ctx, itemID, status); err != nil {
		return fmt.Errorf("set status: %w", err)
	}

	slog.Info("Running pipeline step", "item", itemID, "step", step)

	if err := m.execute(ctx, item, step); err != nil {
		return fmt.Errorf("step %s: %w", step, err)
	}

	next, ok, err := NextStep(item.RenderMode, step)
	if err != nil {
		return err
	}
	if !ok {
		return m.complete(ctx, itemID)
	}

	return m.jobs.Enqueue(ctx, itemID, next)
}

// MarkStepFailed records a terminal step failure after retries are spent.
func (m *Machine) MarkStepFailed(ctx context.Context, itemID string, step Step, cause error) {
	slog.Error("Pipeline step failed", "item", itemID, "step", step, "error", cause)
	if err := m.store.MarkContentFailed(ctx, itemID, string(step), cause.Error()); err != nil {
		slog.Error("Failed to record step failure", "item", itemID, "error", err)
	}
}

// Start enqueues a fresh item at the first step.
func (m *Machine) Start(ctx context.Context, itemID string) error {
	return m.jobs.Enqueue(ctx, itemID, FirstStep())
}

// Retry resumes a failed item from its recorded step so already-generated
// assets are kept.
func (m *Machine) Retry(ctx context.Context, itemID string) error {
	item, err := m.store.GetContentItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("load content item: %w", err)
	}
	if item.Status != store.StatusFailed {
		return fmt.Errorf("item %s is %s, only failed items can be retried", itemID, item.Status)
	}

	step := FirstStep()
	if item.FailedStep != "" {
		step, err = ParseStep(item.FailedStep)
		if err != nil {
			return err
		}
	}

	slog.Info("Retrying content item", "item", itemID, "step", step)
	return m.jobs.Enqueue(ctx, itemID, step)
}

// Recover re-enqueues items left pending or mid-flight by a previous
// process. Safe because steps are idempotent per item.
func (m *Machine) Recover(ctx context.Context) (int, error) {
	statuses := []store.ContentStatus{store.StatusPending}
	for _, status := range stepStatuses {
		statuses = append(statuses, status)
	}

	items, err := m.store.ListContentByStatus(ctx, statuses...)
	if err != nil {
		return 0, fmt.Errorf("list in-flight items: %w", err)
	}

	recovered := 0
	for _, item := range items {
		step := FirstStep()
		if item.Status != store.StatusPending {
			s, ok := StepForStatus(item.Status)
			if !ok {
				continue
			}
			step = s
		}

		if err := m.jobs.Enqueue(ctx, item.ID, step); err != nil {
			return recovered, err
		}
		slog.Info("Recovered in-flight item", "item", item.ID, "step", step)
		recovered++
	}

	return recovered, nil
}

func (m *Machine) complete(ctx context.Context, itemID string) error {
	if err := m.store.MarkContentCompleted(ctx, itemID); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	item, err := m.store.GetContentItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("reload completed item: %w", err)
	}

	slog.Info("Content item completed", "item", itemID, "output", item.OutputPath)

	if item.AutoUpload && m.uploader != nil {
		// Detached so an upload failure can never fail the pipeline.
		go m.autoUpload(context.WithoutCancel(ctx), item)
	}

	return nil
}

func (m *Machine) autoUpload(ctx context.Context, item *store.ContentItem) {
	if err := m.uploader.UploadNow(ctx, item); err != nil {
		slog.Error("Auto-upload failed", "item", item.ID, "error", err)
		if storeErr := m.store.SetUploadError(ctx, item.ID, err.Error()); storeErr != nil {
			slog.Error("Failed to record upload error", "item", item.ID, "error", storeErr)
		}
	}
}
