package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omvyx/voice-receptionist/internal/engine"
)

func TestMemoryStoreLoadCreatesDefault(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	st, err := s.Load(ctx, "call-1")
	require.NoError(t, err)
	assert.Equal(t, "call-1", st.CallID)
	assert.False(t, st.Initialized)
	assert.Equal(t, engine.DefaultChecklist(), st.MissingFields)

	_, ok, err := s.Snapshot(ctx, "call-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreSnapshotDoesNotCreate(t *testing.T) {
	s := NewMemoryStore()

	_, ok, err := s.Snapshot(context.Background(), "call-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreCommitRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	st, err := s.Load(ctx, "call-1")
	require.NoError(t, err)

	st.Initialized = true
	st.Profile.Data[engine.FieldName] = "Ana"
	st.RecomputeMissing()
	require.NoError(t, s.Commit(ctx, "call-1", st))
	assert.Equal(t, uint64(1), s.Version("call-1"))

	restored, err := s.Load(ctx, "call-1")
	require.NoError(t, err)
	assert.Equal(t, st, restored)
}

func TestMemoryStoreCommitIsolatesCaller(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	st, err := s.Load(ctx, "call-1")
	require.NoError(t, err)
	require.NoError(t, s.Commit(ctx, "call-1", st))

	// Mutating the committed value afterwards must not leak into the store.
	st.Profile.Data[engine.FieldName] = "mutated"

	restored, err := s.Load(ctx, "call-1")
	require.NoError(t, err)
	assert.Empty(t, restored.Profile.Data[engine.FieldName])
}

func TestMemoryStoreCommitAfterEndIsEvicted(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	st, err := s.Load(ctx, "call-1")
	require.NoError(t, err)
	require.NoError(t, s.End(ctx, "call-1"))

	err = s.Commit(ctx, "call-1", st)
	assert.ErrorIs(t, err, ErrEvicted)
	assert.Equal(t, uint64(0), s.Version("call-1"))
}

func TestMemoryStoreHonorsCancellation(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Load(ctx, "call-1")
	assert.ErrorIs(t, err, context.Canceled)
}
