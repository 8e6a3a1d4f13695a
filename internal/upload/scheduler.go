package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reelforge/internal/store"
)

const reserveAttempts = 5

var ErrNoFreeSlot = errors.New("no free slot within the scheduling horizon")

// ReservationStore persists schedules. CreateSchedule must fail with
// store.ErrSlotTaken when another writer holds the same (date, slot).
type ReservationStore interface {
	CreateSchedule(ctx context.Context, schedule *store.UploadSchedule) error
	ReservedSlots(ctx context.Context, date time.Time) ([]int, error)
}

type Scheduler struct {
	grid  *Grid
	store ReservationStore
	now   func() time.Time
}

func NewScheduler(grid *Grid, reservations ReservationStore) *Scheduler {
	return &Scheduler{grid: grid, store: reservations, now: time.Now}
}

// ScheduleImmediate reserves a sentinel-slot schedule that publishes now.
func (s *Scheduler) ScheduleImmediate(ctx context.Context, contentItemID string) (*store.UploadSchedule, error) {
	now := s.now()
	schedule := &store.UploadSchedule{
		ContentItemID: contentItemID,
		ScheduledDate: s.grid.DayOf(now),
		Slot:          ImmediateSlot,
		ScheduledAt:   now,
		Status:        store.ScheduleStatusScheduled,
	}

	if err := s.store.CreateSchedule(ctx, schedule); err != nil {
		return nil, fmt.Errorf("reserve immediate schedule: %w", err)
	}
	return schedule, nil
}

// ScheduleNext reserves the next free grid slot. Losing a reservation
// race means another writer took the slot between the scan and the
// insert, so the scan is redone, bounded with short increasing backoff.
func (s *Scheduler) ScheduleNext(ctx context.Context, contentItemID string) (*store.UploadSchedule, error) {
	for attempt := 1; attempt <= reserveAttempts; attempt++ {
		date, slot, err := s.nextAvailableSlot(ctx, s.now(), nil)
		if err != nil {
			return nil, err
		}

		schedule := &store.UploadSchedule{
			ContentItemID: contentItemID,
			ScheduledDate: date,
			Slot:          slot,
			ScheduledAt:   s.grid.SlotInstant(date, slot),
			Status:        store.ScheduleStatusScheduled,
		}

		err = s.store.CreateSchedule(ctx, schedule)
		if err == nil {
			return schedule, nil
		}
		if !errors.Is(err, store.ErrSlotTaken) {
			return nil, fmt.Errorf("reserve slot: %w", err)
		}

		slog.Info("Slot taken by concurrent writer, recomputing",
			"date", date.Format("2006-01-02"), "slot", slot, "attempt", attempt)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}

	return nil, fmt.Errorf("gave up after %d reservation conflicts", reserveAttempts)
}

// PreviewUpcomingSlots computes the next n publish instants without
// reserving anything. Exclusions are simulated in memory across the n
// iterations so the preview matches what sequential reservations would get.
func (s *Scheduler) PreviewUpcomingSlots(ctx context.Context, n int) ([]time.Time, error) {
	taken := make(map[string]map[int]bool)
	now := s.now()

	instants := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		date, slot, err := s.nextAvailableSlot(ctx, now, taken)
		if err != nil {
			return instants, err
		}

		key := date.Format("2006-01-02")
		if taken[key] == nil {
			taken[key] = make(map[int]bool)
		}
		taken[key][slot] = true

		instants = append(instants, s.grid.SlotInstant(date, slot))
	}

	return instants, nil
}

// nextAvailableSlot scans the grid from now up to the horizon, skipping
// reserved slots, in-memory exclusions, and today's already-passed hours.
func (s *Scheduler) nextAvailableSlot(ctx context.Context, now time.Time, exclude map[string]map[int]bool) (time.Time, int, error) {
	startDay := s.grid.DayOf(now)

	for day := 0; day < s.grid.horizonDays; day++ {
		date := startDay.AddDate(0, 0, day)

		reserved, err := s.store.ReservedSlots(ctx, date)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("list reserved slots: %w", err)
		}
		taken := make(map[int]bool, len(reserved))
		for _, slot := range reserved {
			taken[slot] = true
		}

		excluded := exclude[date.Format("2006-01-02")]

		for slot := 0; slot < s.grid.slotsPerDay; slot++ {
			if taken[slot] || excluded[slot] {
				continue
			}
			if !s.grid.slotOpen(now, date, slot) {
				continue
			}
			return date, slot, nil
		}
	}

	return time.Time{}, 0, ErrNoFreeSlot
}
