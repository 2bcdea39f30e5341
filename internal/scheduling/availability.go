// Package scheduling owns appointment availability. Business-hours and
// conflict policy live here, not in the dialogue engine.
package scheduling

import (
	"context"
	"time"
)

// SlotLayout is the wire format for appointment slots.
const SlotLayout = "2006-01-02 15:04"

// Result is the outcome of an availability check. When the slot is taken,
// Alternatives carries the nearest free slots so the agent can offer them
// without another round-trip.
type Result struct {
	Available    bool     `json:"available"`
	Requested    string   `json:"requested"`
	Alternatives []string `json:"alternatives,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

// Receipt is the commit confirmation for a booked slot.
type Receipt struct {
	Slot       string    `json:"slot"`
	Identifier string    `json:"identifier"`
	Reference  string    `json:"reference"`
	BookedAt   time.Time `json:"booked_at"`
}

// Service is the scheduling backend contract.
type Service interface {
	CheckAvailability(ctx context.Context, slot string) (Result, error)
	Book(ctx context.Context, slot, identifier string) (Receipt, error)
}
