package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists session state in the session_states table. The
// version column guards against two writers saving from the same snapshot.
type PostgresStore struct {
	db     rowQuerier
	tracer trace.Tracer
	now    func() time.Time
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("scheduling: pgx pool required")
	}
	return newPostgresStoreWithExec(pool)
}

func newPostgresStoreWithExec(db rowQuerier) *PostgresStore {
	if db == nil {
		panic("scheduling: exec required")
	}
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("healthai.internal.scheduling.state"),
		now:    time.Now,
	}
}

func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.load_state_pg")
	defer span.End()

	var (
		raw     []byte
		version int64
	)
	err := s.db.QueryRow(ctx,
		`SELECT state, version FROM session_states WHERE session_id = $1`,
		sessionID,
	).Scan(&raw, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return NewState(sessionID), nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: load state: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: decode state: %w", err)
	}
	if st.History == nil {
		st.History = []Turn{}
	}
	st.SessionID = sessionID
	st.Version = version
	return &st, nil
}

func (s *PostgresStore) Save(ctx context.Context, state *State) error {
	if state == nil {
		return errors.New("scheduling: nil state")
	}
	ctx, span := s.tracer.Start(ctx, "scheduling.save_state_pg")
	defer span.End()

	now := s.now().UTC()
	next := *state
	next.Version = state.Version + 1
	next.UpdatedAt = now
	raw, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("scheduling: marshal state: %w", err)
	}

	var tag pgconn.CommandTag
	if state.Version == 0 {
		tag, err = s.db.Exec(ctx, `
			INSERT INTO session_states (session_id, state, version, updated_at)
			VALUES ($1, $2, 1, $3)
			ON CONFLICT DO NOTHING
		`, state.SessionID, raw, now)
	} else {
		tag, err = s.db.Exec(ctx, `
			UPDATE session_states
			SET state = $2, version = version + 1, updated_at = $4
			WHERE session_id = $1 AND version = $3
		`, state.SessionID, raw, state.Version, now)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("scheduling: save state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrentUpdate
	}
	state.Version = next.Version
	state.UpdatedAt = now
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM session_states WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("scheduling: delete state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStateNotFound
	}
	return nil
}
