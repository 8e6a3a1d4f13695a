package upload

import (
	"fmt"
	"time"
)

// ImmediateSlot marks a schedule that bypasses the grid and publishes now.
// The storage uniqueness constraint ignores it, so concurrent immediate
// uploads never conflict.
const ImmediateSlot = -1

// Grid is the fixed daily posting grid: slotsPerDay one-hour slots
// starting at startHour in the grid's timezone.
type Grid struct {
	loc         *time.Location
	startHour   int
	slotsPerDay int
	horizonDays int
}

func NewGrid(timezone string, startHour, slotsPerDay, horizonDays int) (*Grid, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", timezone, err)
	}
	if slotsPerDay <= 0 || slotsPerDay > 24-startHour {
		return nil, fmt.Errorf("slotsPerDay %d does not fit a day starting at %d", slotsPerDay, startHour)
	}
	if horizonDays <= 0 {
		horizonDays = 30
	}

	return &Grid{
		loc:         loc,
		startHour:   startHour,
		slotsPerDay: slotsPerDay,
		horizonDays: horizonDays,
	}, nil
}

func (g *Grid) SlotsPerDay() int {
	return g.slotsPerDay
}

// DayOf truncates an instant to midnight of its day in the grid timezone.
func (g *Grid) DayOf(t time.Time) time.Time {
	local := t.In(g.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.loc)
}

// SlotInstant maps (date, slot) to the wall-clock publish instant.
// Inverse of InstantSlot.
func (g *Grid) SlotInstant(date time.Time, slot int) time.Time {
	day := g.DayOf(date)
	return day.Add(time.Duration(g.startHour+slot) * time.Hour)
}

// InstantSlot maps an instant back to its (date, slot) pair. Instants
// outside the grid hours return a slot below zero or past the day's count.
func (g *Grid) InstantSlot(t time.Time) (time.Time, int) {
	local := t.In(g.loc)
	return g.DayOf(local), local.Hour() - g.startHour
}

// slotOpen reports whether the slot is still in the future on the given
// day. For today, slots at or before the current hour are closed.
func (g *Grid) slotOpen(now, date time.Time, slot int) bool {
	local := now.In(g.loc)
	if !g.DayOf(local).Equal(date) {
		return true
	}
	return g.startHour+slot > local.Hour()
}
