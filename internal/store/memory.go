package store

import (
	"context"
	"sync"

	"github.com/omvyx/voice-receptionist/internal/engine"
)

// MemoryStore keeps call state in-process. Satisfies the persistence
// contract (state survives between turns within one running instance) and
// backs the deterministic tests.
type MemoryStore struct {
	mu    sync.RWMutex
	calls map[string]*memoryEntry
}

type memoryEntry struct {
	state   engine.CallState
	version uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{calls: make(map[string]*memoryEntry)}
}

// Load returns the call's state, creating a default one on first use.
func (s *MemoryStore) Load(ctx context.Context, callID string) (engine.CallState, error) {
	if err := ctx.Err(); err != nil {
		return engine.CallState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.calls[callID]
	if !ok {
		entry = &memoryEntry{state: engine.NewCallState(callID)}
		s.calls[callID] = entry
	}
	return entry.state.Clone(), nil
}

// Snapshot reads without creating.
func (s *MemoryStore) Snapshot(ctx context.Context, callID string) (engine.CallState, bool, error) {
	if err := ctx.Err(); err != nil {
		return engine.CallState{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.calls[callID]
	if !ok {
		return engine.CallState{}, false, nil
	}
	return entry.state.Clone(), true, nil
}

// Commit replaces the stored state for the call.
func (s *MemoryStore) Commit(ctx context.Context, callID string, state engine.CallState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.calls[callID]
	if !ok {
		return ErrEvicted
	}
	entry.state = state.Clone()
	entry.version++
	return nil
}

// Version returns the commit counter for a call. Zero means never
// committed (or unknown call).
func (s *MemoryStore) Version(callID string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.calls[callID]; ok {
		return entry.version
	}
	return 0
}

// End discards the call's state.
func (s *MemoryStore) End(ctx context.Context, callID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.calls, callID)
	s.mu.Unlock()
	return nil
}
