package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	openHour  = 9
	closeHour = 17

	// alternativeCount is how many free slots to offer when the requested
	// one is taken.
	alternativeCount = 2

	// searchHorizon bounds the alternative search.
	searchHorizon = 30 * 24 * time.Hour
)

// Calendar is an in-process scheduling backend: one-hour slots, Mon-Fri
// 09:00-17:00, with a busy-slot set that Book adds to.
type Calendar struct {
	mu   sync.RWMutex
	busy map[string]struct{}
}

// NewCalendar creates an empty calendar.
func NewCalendar() *Calendar {
	return &Calendar{busy: make(map[string]struct{})}
}

// NewCalendarWithBusy creates a calendar with the given slots already taken.
func NewCalendarWithBusy(slots ...string) *Calendar {
	c := NewCalendar()
	for _, slot := range slots {
		c.busy[slot] = struct{}{}
	}
	return c
}

// CheckAvailability reports whether a slot is free. Outside business hours
// or on a malformed slot it returns a reason the agent can speak back.
func (c *Calendar) CheckAvailability(ctx context.Context, slot string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	when, err := time.Parse(SlotLayout, slot)
	if err != nil {
		return Result{
			Available: false,
			Requested: slot,
			Reason:    "no he entendido la fecha, use el formato AAAA-MM-DD HH:MM.",
		}, nil
	}

	if !isBusinessSlot(when) {
		return Result{
			Available:    false,
			Requested:    slot,
			Reason:       "está fuera de nuestro horario (lunes a viernes, de 9:00 a 17:00).",
			Alternatives: c.nextAvailable(when, alternativeCount),
		}, nil
	}

	c.mu.RLock()
	_, taken := c.busy[slot]
	c.mu.RUnlock()

	if taken {
		return Result{
			Available:    false,
			Requested:    slot,
			Alternatives: c.nextAvailable(when, alternativeCount),
		}, nil
	}

	return Result{Available: true, Requested: slot}, nil
}

// Book marks a slot busy and returns the commit receipt.
func (c *Calendar) Book(ctx context.Context, slot, identifier string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if _, err := time.Parse(SlotLayout, slot); err != nil {
		return Receipt{}, fmt.Errorf("scheduling: invalid slot %q: %w", slot, err)
	}

	c.mu.Lock()
	c.busy[slot] = struct{}{}
	c.mu.Unlock()

	return Receipt{
		Slot:       slot,
		Identifier: identifier,
		Reference:  uuid.NewString(),
		BookedAt:   time.Now().UTC(),
	}, nil
}

// nextAvailable walks hour by hour after the given time and collects the
// next free business slots, bounded by the search horizon.
func (c *Calendar) nextAvailable(after time.Time, count int) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	slots := make([]string, 0, count)
	candidate := after.Truncate(time.Hour).Add(time.Hour)
	limit := after.Add(searchHorizon)
	for len(slots) < count && candidate.Before(limit) {
		if isBusinessSlot(candidate) {
			key := candidate.Format(SlotLayout)
			if _, taken := c.busy[key]; !taken {
				slots = append(slots, key)
			}
		}
		candidate = candidate.Add(time.Hour)
	}
	return slots
}

func isBusinessSlot(when time.Time) bool {
	wd := when.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return when.Hour() >= openHour && when.Hour() < closeHour
}
