package upload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reelforge/internal/store"
	"reelforge/internal/upload/youtube"
)

// YouTubeUploader is the slice of the YouTube client the direct path uses.
type YouTubeUploader interface {
	Upload(ctx context.Context, video youtube.Video) (*youtube.Uploaded, error)
}

type scheduleUpdater interface {
	UpdateSchedule(ctx context.Context, id uint, fields map[string]any) error
}

// Direct publishes straight to YouTube, bypassing the post provider. Used
// when no provider API key is configured and YouTube is the only target.
// Scheduled mode still reserves a grid slot and defers publishing through
// YouTube's own publishAt, so slot accounting stays consistent with the
// provider path.
type Direct struct {
	scheduler *Scheduler
	store     scheduleUpdater
	client    YouTubeUploader
	tags      []string
}

func NewDirect(scheduler *Scheduler, schedules scheduleUpdater, client YouTubeUploader, tags []string) *Direct {
	return &Direct{scheduler: scheduler, store: schedules, client: client, tags: tags}
}

func (d *Direct) UploadNow(ctx context.Context, item *store.ContentItem) error {
	switch item.UploadMode {
	case store.UploadModeNone, "":
		return nil
	case store.UploadModeImmediate:
		schedule, err := d.scheduler.ScheduleImmediate(ctx, item.ID)
		if err != nil {
			return err
		}
		return d.upload(ctx, item, schedule, nil)
	case store.UploadModeScheduled:
		schedule, err := d.scheduler.ScheduleNext(ctx, item.ID)
		if err != nil {
			return err
		}
		at := schedule.ScheduledAt
		return d.upload(ctx, item, schedule, &at)
	default:
		return fmt.Errorf("unknown upload mode: %s", item.UploadMode)
	}
}

// Retry re-runs a failed upload against the schedule's existing slot. A
// slot whose publish instant already passed publishes immediately.
func (d *Direct) Retry(ctx context.Context, item *store.ContentItem, schedule *store.UploadSchedule) error {
	var publishAt *time.Time
	if schedule.Slot != ImmediateSlot && schedule.ScheduledAt.After(time.Now()) {
		at := schedule.ScheduledAt
		publishAt = &at
	}
	return d.upload(ctx, item, schedule, publishAt)
}

func (d *Direct) upload(ctx context.Context, item *store.ContentItem, schedule *store.UploadSchedule, publishAt *time.Time) error {
	if item.OutputPath == "" {
		return d.fail(ctx, schedule, fmt.Errorf("item %s has no rendered output", item.ID))
	}

	if err := d.store.UpdateSchedule(ctx, schedule.ID, map[string]any{
		"status": store.ScheduleStatusUploading,
	}); err != nil {
		return err
	}

	uploaded, err := d.client.Upload(ctx, youtube.Video{
		FilePath:    item.OutputPath,
		Title:       item.Title,
		Description: item.Description,
		Tags:        d.tags,
		PublishAt:   publishAt,
	})
	if err != nil {
		return d.fail(ctx, schedule, fmt.Errorf("youtube upload: %w", err))
	}

	results := []store.PlatformResult{{Platform: "youtube", URL: uploaded.URL}}
	return d.store.UpdateSchedule(ctx, schedule.ID, map[string]any{
		"status":   store.ScheduleStatusCompleted,
		"progress": 100,
		"results":  marshalResults(results),
	})
}

func (d *Direct) fail(ctx context.Context, schedule *store.UploadSchedule, cause error) error {
	if err := d.store.UpdateSchedule(ctx, schedule.ID, map[string]any{
		"status":        store.ScheduleStatusFailed,
		"error_message": cause.Error(),
	}); err != nil {
		slog.Error("Failed to record upload failure", "schedule", schedule.ID, "error", err)
	}
	return cause
}
