package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// CreateSchedule inserts a reservation. The partial unique index on
// (scheduled_date, slot) makes the insert the atomic claim; a duplicate-key
// error surfaces as ErrSlotTaken so the scheduler can recompute and retry.
func (s *Store) CreateSchedule(ctx context.Context, schedule *UploadSchedule) error {
	err := s.db.WithContext(ctx).Create(schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrSlotTaken
		}
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

func (s *Store) GetSchedule(ctx context.Context, id uint) (*UploadSchedule, error) {
	var schedule UploadSchedule
	if err := s.db.WithContext(ctx).First(&schedule, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &schedule, nil
}

func (s *Store) GetScheduleForItem(ctx context.Context, contentItemID string) (*UploadSchedule, error) {
	var schedule UploadSchedule
	err := s.db.WithContext(ctx).First(&schedule, "content_item_id = ?", contentItemID).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &schedule, nil
}

// ReservedSlots returns the grid slots already taken on the given day.
func (s *Store) ReservedSlots(ctx context.Context, date time.Time) ([]int, error) {
	var slots []int
	err := s.db.WithContext(ctx).
		Model(&UploadSchedule{}).
		Where("scheduled_date = ? AND slot >= 0", date).
		Pluck("slot", &slots).Error
	if err != nil {
		return nil, fmt.Errorf("list reserved slots: %w", err)
	}
	return slots, nil
}

// ListDueSchedules returns reservations whose publish instant has
// arrived and which have not started uploading yet.
func (s *Store) ListDueSchedules(ctx context.Context, now time.Time) ([]UploadSchedule, error) {
	var schedules []UploadSchedule
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", ScheduleStatusScheduled, now).
		Order("scheduled_at").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	return schedules, nil
}

func (s *Store) UpdateSchedule(ctx context.Context, id uint, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(&UploadSchedule{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("update schedule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSchedule removes a reservation. Uploads in flight or already done
// are protected; only scheduled and failed rows may be deleted.
func (s *Store) DeleteSchedule(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND status IN ?", id, []ScheduleStatus{ScheduleStatusScheduled, ScheduleStatusFailed}).
		Delete(&UploadSchedule{})
	if result.Error != nil {
		return fmt.Errorf("delete schedule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
