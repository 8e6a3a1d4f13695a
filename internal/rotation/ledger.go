package rotation

import (
	"context"
	"fmt"
)

// Resource classes cycled by the ledger.
const (
	ClassTopic       = "topic"
	ClassMusic       = "music"
	ClassOverlay     = "overlay"
	ClassColorScheme = "color_scheme"
	ClassOpeningHook = "opening_hook"
)

// NoSelection is returned when a class has no items to select from.
const NoSelection = -1

// CounterStore is the durable atomic counter backend. Increment must be a
// single increment-then-read operation so concurrent callers never observe
// the same value.
type CounterStore interface {
	IncrementCounter(ctx context.Context, class string) (int64, error)
	GetCounter(ctx context.Context, class string) (int64, error)
	SetCounter(ctx context.Context, class string, value int64) error
}

type Ledger struct {
	counters CounterStore
}

func NewLedger(counters CounterStore) *Ledger {
	return &Ledger{counters: counters}
}

// NextIndex advances the class counter and maps it onto total items.
func (l *Ledger) NextIndex(ctx context.Context, class string, total int) (int, error) {
	if total <= 0 {
		return NoSelection, nil
	}

	counter, err := l.counters.IncrementCounter(ctx, class)
	if err != nil {
		return NoSelection, fmt.Errorf("advance %s rotation: %w", class, err)
	}

	return indexFor(counter, total), nil
}

// UseNext rewinds the class counter so that the next natural increment lands
// on position: the counter is moved to the congruence class of position-1,
// never below its current value, preserving monotonicity.
func (l *Ledger) UseNext(ctx context.Context, class string, position, total int) error {
	if total <= 0 || position < 0 || position >= total {
		return fmt.Errorf("position %d out of range for %d items", position, total)
	}

	current, err := l.counters.GetCounter(ctx, class)
	if err != nil {
		return fmt.Errorf("read %s rotation: %w", class, err)
	}

	target := int64(position-1+total) % int64(total)
	delta := (target - current%int64(total) + int64(total)) % int64(total)

	if delta == 0 {
		return nil
	}
	if err := l.counters.SetCounter(ctx, class, current+delta); err != nil {
		return fmt.Errorf("rewind %s rotation: %w", class, err)
	}
	return nil
}

// indexFor maps a counter value onto an item index. Pure so selection is
// testable without storage.
func indexFor(counter int64, total int) int {
	return int(counter % int64(total))
}
