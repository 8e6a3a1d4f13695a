package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrSlotTaken = errors.New("upload slot already reserved")
)

type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("database DSN not configured")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	if err := db.AutoMigrate(&ContentItem{}, &UploadSchedule{}, &Topic{}, &RotationCounters{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Grid slots must be unique per day at the storage layer; immediate
	// uploads (slot -1) are exempt so they can never collide.
	err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_upload_schedules_date_slot
		 ON upload_schedules (scheduled_date, slot) WHERE slot >= 0`,
	).Error
	if err != nil {
		return fmt.Errorf("create slot index: %w", err)
	}

	return nil
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
