package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"reelforge/internal/store"
	"reelforge/internal/upload/postapi"
)

// PostAPI is the post provider surface the processor drives.
type PostAPI interface {
	UploadMedia(ctx context.Context, filePath string) (string, error)
	CreatePost(ctx context.Context, post postapi.PostRequest) (string, error)
	GetJobStatus(ctx context.Context, jobID string) (*postapi.JobStatus, error)
	DeletePost(ctx context.Context, jobID string) error
}

type ProcessorStore interface {
	GetContentItem(ctx context.Context, id string) (*store.ContentItem, error)
	ListDueSchedules(ctx context.Context, now time.Time) ([]store.UploadSchedule, error)
	UpdateSchedule(ctx context.Context, id uint, fields map[string]any) error
}

type ProcessorOptions struct {
	Platforms    []string
	Accounts     map[string]string
	Tags         []string
	PollInterval time.Duration
	PollTimeout  time.Duration
}

type Processor struct {
	store        ProcessorStore
	api          PostAPI
	platforms    []string
	accounts     map[string]string
	tags         []string
	pollInterval time.Duration
	pollTimeout  time.Duration
	now          func() time.Time
}

func NewProcessor(schedules ProcessorStore, api PostAPI, opts ProcessorOptions) *Processor {
	pollInterval := opts.PollInterval
	if pollInterval == 0 {
		pollInterval = 10 * time.Second
	}
	pollTimeout := opts.PollTimeout
	if pollTimeout == 0 {
		pollTimeout = 10 * time.Minute
	}

	return &Processor{
		store:        schedules,
		api:          api,
		platforms:    opts.Platforms,
		accounts:     opts.Accounts,
		tags:         opts.Tags,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		now:          time.Now,
	}
}

// Run polls for due schedules until the context is cancelled. Each
// schedule is processed in isolation so one failed upload cannot block
// the rest.
func (p *Processor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processDue(ctx)
		}
	}
}

func (p *Processor) processDue(ctx context.Context) {
	schedules, err := p.store.ListDueSchedules(ctx, p.now())
	if err != nil {
		slog.Error("Failed to list due schedules", "error", err)
		return
	}

	for i := range schedules {
		schedule := schedules[i]
		item, err := p.store.GetContentItem(ctx, schedule.ContentItemID)
		if err != nil {
			slog.Error("Schedule references missing item", "schedule", schedule.ID, "error", err)
			continue
		}
		if err := p.Process(ctx, item, &schedule); err != nil {
			slog.Error("Upload failed", "schedule", schedule.ID, "item", item.ID, "error", err)
		}
	}
}

// Process uploads the item's media, creates the post, and polls the job
// to a terminal state. Platforms that already have a recorded success URL
// are skipped, since re-submitting identical media is rejected as
// duplicate content.
func (p *Processor) Process(ctx context.Context, item *store.ContentItem, schedule *store.UploadSchedule) error {
	if item.OutputPath == "" {
		return p.fail(ctx, schedule, nil, fmt.Errorf("item %s has no rendered output", item.ID))
	}

	targets, kept := p.remainingTargets(schedule)
	if len(targets) == 0 {
		slog.Info("All platforms already succeeded", "schedule", schedule.ID)
		return p.complete(ctx, schedule, kept)
	}

	if err := p.store.UpdateSchedule(ctx, schedule.ID, map[string]any{
		"status": store.ScheduleStatusUploading,
	}); err != nil {
		return err
	}

	mediaID, err := p.api.UploadMedia(ctx, item.OutputPath)
	if err != nil {
		return p.fail(ctx, schedule, nil, fmt.Errorf("upload media: %w", err))
	}

	jobID, err := p.api.CreatePost(ctx, postapi.PostRequest{
		MediaID:     mediaID,
		Title:       item.Title,
		Description: item.Description,
		Tags:        p.tags,
		Targets:     targets,
		PublishAt:   p.publishInstant(schedule),
	})
	if err != nil {
		return p.fail(ctx, schedule, nil, fmt.Errorf("create post: %w", err))
	}

	if err := p.store.UpdateSchedule(ctx, schedule.ID, map[string]any{
		"external_job_id": jobID,
	}); err != nil {
		return err
	}

	return p.poll(ctx, schedule, jobID, kept)
}

// remainingTargets splits the configured platforms into ones still to
// post and results already recorded as successes.
func (p *Processor) remainingTargets(schedule *store.UploadSchedule) ([]postapi.PlatformTarget, []store.PlatformResult) {
	succeeded := make(map[string]store.PlatformResult)
	for _, result := range schedule.Results {
		if result.URL != "" {
			succeeded[result.Platform] = result
		}
	}

	var targets []postapi.PlatformTarget
	var kept []store.PlatformResult
	for _, platform := range p.platforms {
		if result, ok := succeeded[platform]; ok {
			kept = append(kept, result)
			continue
		}
		targets = append(targets, postapi.PlatformTarget{
			Platform: platform,
			Account:  p.accounts[platform],
		})
	}

	return targets, kept
}

// publishInstant is nil for immediate schedules and for slots whose time
// already passed, which tells the provider to publish right away.
func (p *Processor) publishInstant(schedule *store.UploadSchedule) *time.Time {
	if schedule.Slot == ImmediateSlot || !schedule.ScheduledAt.After(p.now()) {
		return nil
	}
	at := schedule.ScheduledAt
	return &at
}

func (p *Processor) poll(ctx context.Context, schedule *store.UploadSchedule, jobID string, kept []store.PlatformResult) error {
	deadline := p.now().Add(p.pollTimeout)

	for {
		status, err := p.api.GetJobStatus(ctx, jobID)
		if err != nil {
			return p.fail(ctx, schedule, kept, fmt.Errorf("poll job %s: %w", jobID, err))
		}

		if err := p.store.UpdateSchedule(ctx, schedule.ID, map[string]any{
			"progress": status.Progress,
		}); err != nil {
			return err
		}

		if status.Terminal() {
			if status.Status == postapi.JobStatusFailed {
				// Per-platform successes inside a failed job must survive,
				// or the retry would re-post them as duplicate content.
				return p.fail(ctx, schedule, mergeResults(kept, status.Results),
					fmt.Errorf("job %s failed: %s", jobID, status.Error))
			}
			return p.complete(ctx, schedule, mergeResults(kept, status.Results))
		}

		if p.now().After(deadline) {
			return p.fail(ctx, schedule, mergeResults(kept, status.Results),
				fmt.Errorf("job %s timed out after %s", jobID, p.pollTimeout))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
}

func mergeResults(kept []store.PlatformResult, fresh []postapi.PlatformResult) []store.PlatformResult {
	merged := append([]store.PlatformResult(nil), kept...)
	for _, result := range fresh {
		merged = append(merged, store.PlatformResult{
			Platform: result.Platform,
			URL:      result.URL,
			Error:    result.Error,
		})
	}
	return merged
}

func marshalResults(results []store.PlatformResult) string {
	data, _ := json.Marshal(results)
	return string(data)
}

func (p *Processor) complete(ctx context.Context, schedule *store.UploadSchedule, results []store.PlatformResult) error {
	return p.store.UpdateSchedule(ctx, schedule.ID, map[string]any{
		"status":   store.ScheduleStatusCompleted,
		"progress": 100,
		"results":  marshalResults(results),
	})
}

// Cancel withdraws a schedule's post from the provider. Schedules that
// never reached the provider have nothing to withdraw.
func (p *Processor) Cancel(ctx context.Context, schedule *store.UploadSchedule) error {
	if schedule.ExternalJobID == "" {
		return nil
	}
	if err := p.api.DeletePost(ctx, schedule.ExternalJobID); err != nil {
		return fmt.Errorf("delete post %s: %w", schedule.ExternalJobID, err)
	}
	return nil
}

func (p *Processor) fail(ctx context.Context, schedule *store.UploadSchedule, results []store.PlatformResult, cause error) error {
	fields := map[string]any{
		"status":        store.ScheduleStatusFailed,
		"error_message": cause.Error(),
	}
	if len(results) > 0 {
		fields["results"] = marshalResults(results)
	}
	if err := p.store.UpdateSchedule(ctx, schedule.ID, fields); err != nil {
		slog.Error("Failed to record upload failure", "schedule", schedule.ID, "error", err)
	}
	return cause
}
