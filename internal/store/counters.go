package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const countersRowID = 1

// counterColumns is the allowlist of rotated resource classes; class names
// arrive from callers and must never be interpolated unchecked.
var counterColumns = map[string]string{
	"topic":        "topic",
	"music":        "music",
	"overlay":      "overlay",
	"color_scheme": "color_scheme",
	"opening_hook": "opening_hook",
}

// IncrementCounter atomically increments the named class counter and returns
// the post-increment value. The single UPDATE .. RETURNING statement is what
// guarantees concurrent callers observe distinct values.
func (s *Store) IncrementCounter(ctx context.Context, class string) (int64, error) {
	column, err := s.ensureCountersRow(ctx, class)
	if err != nil {
		return 0, err
	}

	var value int64
	query := fmt.Sprintf(
		"UPDATE rotation_counters SET %s = %s + 1 WHERE id = ? RETURNING %s",
		column, column, column,
	)
	if err := s.db.WithContext(ctx).Raw(query, countersRowID).Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("increment %s counter: %w", class, err)
	}

	return value, nil
}

func (s *Store) GetCounter(ctx context.Context, class string) (int64, error) {
	column, err := s.ensureCountersRow(ctx, class)
	if err != nil {
		return 0, err
	}

	var value int64
	query := fmt.Sprintf("SELECT %s FROM rotation_counters WHERE id = ?", column)
	if err := s.db.WithContext(ctx).Raw(query, countersRowID).Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("read %s counter: %w", class, err)
	}
	return value, nil
}

// SetCounter overwrites the named counter. Only administrative operations
// (use-topic-next, reset) call this; normal selection goes through
// IncrementCounter.
func (s *Store) SetCounter(ctx context.Context, class string, value int64) error {
	column, err := s.ensureCountersRow(ctx, class)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE rotation_counters SET %s = ? WHERE id = ?", column)
	if err := s.db.WithContext(ctx).Exec(query, value, countersRowID).Error; err != nil {
		return fmt.Errorf("set %s counter: %w", class, err)
	}
	return nil
}

func (s *Store) ensureCountersRow(ctx context.Context, class string) (string, error) {
	column, ok := counterColumns[class]
	if !ok {
		return "", fmt.Errorf("unknown rotation class %q", class)
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&RotationCounters{ID: countersRowID}).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", fmt.Errorf("ensure counters row: %w", err)
	}

	return column, nil
}
