package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/omvyx/voice-receptionist/internal/engine"
)

// RedisStore persists call state as one JSON value per call with a TTL, so
// state survives process restarts for the lifetime of a call.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStore creates a Redis-backed store. ttl bounds how long an idle
// call's state is retained.
func NewRedisStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("store: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if tracer == nil {
		tracer = otel.Tracer("omvyx.internal.store")
	}
	return &RedisStore{redis: client, ttl: ttl, tracer: tracer}
}

func callKey(callID string) string {
	return fmt.Sprintf("call:%s", callID)
}

// Load returns the call's state, creating and persisting a default one on
// first use.
func (s *RedisStore) Load(ctx context.Context, callID string) (engine.CallState, error) {
	ctx, span := s.tracer.Start(ctx, "store.load")
	defer span.End()

	data, err := s.redis.Get(ctx, callKey(callID)).Bytes()
	if err == redis.Nil {
		state := engine.NewCallState(callID)
		if err := s.write(ctx, callID, state, false); err != nil {
			span.RecordError(err)
			return engine.CallState{}, err
		}
		return state, nil
	}
	if err != nil {
		span.RecordError(err)
		return engine.CallState{}, fmt.Errorf("store: failed to load call %s: %w", callID, err)
	}

	var state engine.CallState
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return engine.CallState{}, fmt.Errorf("store: failed to decode call %s: %w", callID, err)
	}
	return state, nil
}

// Snapshot reads without creating.
func (s *RedisStore) Snapshot(ctx context.Context, callID string) (engine.CallState, bool, error) {
	ctx, span := s.tracer.Start(ctx, "store.snapshot")
	defer span.End()

	data, err := s.redis.Get(ctx, callKey(callID)).Bytes()
	if err == redis.Nil {
		return engine.CallState{}, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return engine.CallState{}, false, fmt.Errorf("store: failed to snapshot call %s: %w", callID, err)
	}

	var state engine.CallState
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return engine.CallState{}, false, fmt.Errorf("store: failed to decode call %s: %w", callID, err)
	}
	return state, true, nil
}

// Commit replaces the call's state, refusing calls that no longer exist.
func (s *RedisStore) Commit(ctx context.Context, callID string, state engine.CallState) error {
	ctx, span := s.tracer.Start(ctx, "store.commit")
	defer span.End()

	if err := s.write(ctx, callID, state, true); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// End discards the call's state.
func (s *RedisStore) End(ctx context.Context, callID string) error {
	ctx, span := s.tracer.Start(ctx, "store.end")
	defer span.End()

	if err := s.redis.Del(ctx, callKey(callID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: failed to end call %s: %w", callID, err)
	}
	return nil
}

// write persists the state. With mustExist set it uses SET XX so a commit
// against an evicted call fails loudly instead of resurrecting it.
func (s *RedisStore) write(ctx context.Context, callID string, state engine.CallState, mustExist bool) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: failed to marshal call %s: %w", callID, err)
	}

	if !mustExist {
		if err := s.redis.Set(ctx, callKey(callID), data, s.ttl).Err(); err != nil {
			return fmt.Errorf("store: failed to persist call %s: %w", callID, err)
		}
		return nil
	}

	ok, err := s.redis.SetXX(ctx, callKey(callID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store: failed to commit call %s: %w", callID, err)
	}
	if !ok {
		return ErrEvicted
	}
	return nil
}
