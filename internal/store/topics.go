package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ActiveTopics returns active topics in creation order. Selection order is
// defined by creation, so the rotation index maps stably onto this slice.
func (s *Store) ActiveTopics(ctx context.Context) ([]Topic, error) {
	var topics []Topic
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at, id").
		Find(&topics).Error
	if err != nil {
		return nil, fmt.Errorf("list active topics: %w", err)
	}
	return topics, nil
}

func (s *Store) AllTopics(ctx context.Context) ([]Topic, error) {
	var topics []Topic
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

func (s *Store) GetTopic(ctx context.Context, id uint) (*Topic, error) {
	var topic Topic
	if err := s.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &topic, nil
}

func (s *Store) AddTopic(ctx context.Context, name, description string) (*Topic, error) {
	topic := &Topic{Name: name, Description: description, IsActive: true}
	if err := s.db.WithContext(ctx).Create(topic).Error; err != nil {
		return nil, fmt.Errorf("add topic: %w", err)
	}
	return topic, nil
}

func (s *Store) SetTopicActive(ctx context.Context, id uint, active bool) error {
	result := s.db.WithContext(ctx).Model(&Topic{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("set topic active: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) TouchTopicUsage(ctx context.Context, id uint) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&Topic{}).Where("id = ?", id).Updates(map[string]any{
		"usage_count":  gorm.Expr("usage_count + 1"),
		"last_used_at": &now,
	}).Error
	if err != nil {
		return fmt.Errorf("touch topic usage: %w", err)
	}
	return nil
}
