package upload

import (
	"context"
	"fmt"

	"reelforge/internal/store"
)

// Service ties the scheduler and processor together for the pipeline's
// auto-upload hook and the schedule CLI.
type Service struct {
	scheduler *Scheduler
	processor *Processor
}

func NewService(scheduler *Scheduler, processor *Processor) *Service {
	return &Service{scheduler: scheduler, processor: processor}
}

// UploadNow runs the item's configured upload mode after a completed
// render. Immediate mode reserves a sentinel slot and processes in place;
// scheduled mode only reserves a grid slot, the processor's poll loop
// picks it up when due.
func (s *Service) UploadNow(ctx context.Context, item *store.ContentItem) error {
	switch item.UploadMode {
	case store.UploadModeNone, "":
		return nil
	case store.UploadModeImmediate:
		schedule, err := s.scheduler.ScheduleImmediate(ctx, item.ID)
		if err != nil {
			return err
		}
		return s.processor.Process(ctx, item, schedule)
	case store.UploadModeScheduled:
		_, err := s.scheduler.ScheduleNext(ctx, item.ID)
		return err
	default:
		return fmt.Errorf("unknown upload mode: %s", item.UploadMode)
	}
}

// Schedule reserves a slot for an already-completed item without
// processing it.
func (s *Service) Schedule(ctx context.Context, item *store.ContentItem) (*store.UploadSchedule, error) {
	if item.Status != store.StatusCompleted {
		return nil, fmt.Errorf("item %s is %s, only completed items can be scheduled", item.ID, item.Status)
	}
	return s.scheduler.ScheduleNext(ctx, item.ID)
}
