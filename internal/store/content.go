package store

import (
	"context"
	"fmt"
	"time"
)

func (s *Store) CreateContentItem(ctx context.Context, item *ContentItem) error {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("create content item: %w", err)
	}
	return nil
}

func (s *Store) GetContentItem(ctx context.Context, id string) (*ContentItem, error) {
	var item ContentItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &item, nil
}

func (s *Store) SetContentStatus(ctx context.Context, id string, status ContentStatus) error {
	return s.updateContent(ctx, id, map[string]any{"status": status})
}

// SaveContentFields persists the artifacts a step produced. Keys are column
// names; steps are idempotent because re-running one overwrites the same fields.
func (s *Store) SaveContentFields(ctx context.Context, id string, fields map[string]any) error {
	return s.updateContent(ctx, id, fields)
}

func (s *Store) MarkContentFailed(ctx context.Context, id, failedStep, message string) error {
	return s.updateContent(ctx, id, map[string]any{
		"status":        StatusFailed,
		"failed_step":   failedStep,
		"error_message": message,
	})
}

func (s *Store) MarkContentCompleted(ctx context.Context, id string) error {
	now := time.Now()
	return s.updateContent(ctx, id, map[string]any{
		"status":        StatusCompleted,
		"failed_step":   "",
		"error_message": "",
		"completed_at":  &now,
	})
}

func (s *Store) SetUploadError(ctx context.Context, id, message string) error {
	return s.updateContent(ctx, id, map[string]any{
		"upload_error": message,
		"auto_upload":  false,
	})
}

func (s *Store) ListContentByStatus(ctx context.Context, statuses ...ContentStatus) ([]ContentItem, error) {
	var items []ContentItem
	err := s.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list content items: %w", err)
	}
	return items, nil
}

func (s *Store) PurgeCompletedBefore(ctx context.Context, cutoff time.Time) ([]ContentItem, error) {
	var items []ContentItem
	err := s.db.WithContext(ctx).
		Where("status = ? AND completed_at < ?", StatusCompleted, cutoff).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list purgeable items: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	if err := s.db.WithContext(ctx).Delete(&ContentItem{}, "id IN ?", ids).Error; err != nil {
		return nil, fmt.Errorf("purge content items: %w", err)
	}

	return items, nil
}

func (s *Store) updateContent(ctx context.Context, id string, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(&ContentItem{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("update content item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
