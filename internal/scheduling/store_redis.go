package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultStateTTL = 72 * time.Hour

// RedisStore keeps session state as JSON under session_state:<id> with a
// sliding TTL. Saves run inside WATCH so a stale version is rejected.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("scheduling: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("healthai.internal.scheduling.state"),
		now:    time.Now,
	}
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.load_state", trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	data, err := s.redis.Get(ctx, stateKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return NewState(sessionID), nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: failed to load state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: failed to decode state: %w", err)
	}
	if st.History == nil {
		st.History = []Turn{}
	}
	return &st, nil
}

func (s *RedisStore) Save(ctx context.Context, state *State) error {
	if state == nil {
		return errors.New("scheduling: nil state")
	}
	ctx, span := s.tracer.Start(ctx, "scheduling.save_state", trace.WithAttributes(attribute.String("session_id", state.SessionID)))
	defer span.End()

	key := stateKey(state.SessionID)
	expected := state.Version
	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if expected != 0 {
				return ErrConcurrentUpdate
			}
		case err != nil:
			return err
		default:
			var stored struct {
				Version int64 `json:"version"`
			}
			if err := json.Unmarshal(current, &stored); err != nil {
				return fmt.Errorf("scheduling: failed to decode stored version: %w", err)
			}
			if stored.Version != expected {
				return ErrConcurrentUpdate
			}
		}

		next := *state
		next.Version = expected + 1
		next.UpdatedAt = s.now().UTC()
		data, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("scheduling: failed to marshal state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrConcurrentUpdate) || errors.Is(err, redis.TxFailedErr) {
			return ErrConcurrentUpdate
		}
		return fmt.Errorf("scheduling: failed to persist state: %w", err)
	}
	state.Version = expected + 1
	state.UpdatedAt = s.now().UTC()
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	n, err := s.redis.Del(ctx, stateKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("scheduling: failed to delete state: %w", err)
	}
	if n == 0 {
		return ErrStateNotFound
	}
	return nil
}

func stateKey(sessionID string) string {
	return fmt.Sprintf("session_state:%s", sessionID)
}
