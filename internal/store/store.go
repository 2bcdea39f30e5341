// Package store persists per-call conversation state between turns. The
// session supervisor enforces single-writer-per-call; the store only has
// to apply whole-state commits atomically.
package store

import (
	"context"
	"errors"

	"github.com/omvyx/voice-receptionist/internal/engine"
)

// ErrEvicted is returned by Commit when the call's state is gone (call
// ended or TTL expired). Reported, never silently dropped.
var ErrEvicted = errors.New("store: call state evicted")

// Store is the conversation state contract.
type Store interface {
	// Load returns the call's state, creating a fresh default when absent.
	Load(ctx context.Context, callID string) (engine.CallState, error)
	// Snapshot reads without creating; ok is false when absent.
	Snapshot(ctx context.Context, callID string) (state engine.CallState, ok bool, err error)
	// Commit replaces the call's state. Fails with ErrEvicted when the
	// call no longer exists.
	Commit(ctx context.Context, callID string, state engine.CallState) error
	// End discards the call's state.
	End(ctx context.Context, callID string) error
}
