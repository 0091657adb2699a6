package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState(id string) *State {
	st := NewState(id)
	st.BeginScheduling()
	st.Phase = PhaseAwaitDateChoice
	st.Slots.PatientName = "Ana Carolina Silva"
	st.Slots.SpecialtyID = "12"
	st.Presented.Dates = []string{"2025-05-05", "2025-05-12"}
	st.Append(RoleUser, "manhã", time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	return st
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	fresh, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, OperationNone, fresh.Operation)
	assert.Empty(t, fresh.History)

	st := sampleState("s1")
	require.NoError(t, store.Save(ctx, st))
	assert.Equal(t, int64(1), st.Version)

	st.Presented.Dates[0] = "mutated"
	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "2025-05-05", loaded.Presented.Dates[0])
	assert.Equal(t, PhaseAwaitDateChoice, loaded.Phase)
}

func TestMemoryStoreRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, sampleState("s1")))

	a, _ := store.Load(ctx, "s1")
	b, _ := store.Load(ctx, "s1")
	require.NoError(t, store.Save(ctx, a))
	assert.ErrorIs(t, store.Save(ctx, b), ErrConcurrentUpdate)

	require.NoError(t, store.Delete(ctx, "s1"))
	assert.ErrorIs(t, store.Delete(ctx, "s1"), ErrStateNotFound)
}

func newRedisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedisClient(t)
	store := NewRedisStore(client, time.Hour)

	fresh, err := store.Load(ctx, "5511")
	require.NoError(t, err)
	assert.Equal(t, int64(0), fresh.Version)

	st := sampleState("5511")
	require.NoError(t, store.Save(ctx, st))
	assert.Equal(t, int64(1), st.Version)
	assert.Equal(t, time.Hour, mr.TTL("session_state:5511"))

	loaded, err := store.Load(ctx, "5511")
	require.NoError(t, err)
	assert.Equal(t, st.Slots, loaded.Slots)
	assert.Equal(t, st.Presented, loaded.Presented)
	assert.Equal(t, int64(1), loaded.Version)
	require.Len(t, loaded.History, 1)
	assert.Equal(t, RoleUser, loaded.History[0].Role)
}

func TestRedisStoreRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClient(t)
	store := NewRedisStore(client, time.Hour)
	require.NoError(t, store.Save(ctx, sampleState("5511")))

	a, err := store.Load(ctx, "5511")
	require.NoError(t, err)
	b, err := store.Load(ctx, "5511")
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, a))
	assert.ErrorIs(t, store.Save(ctx, b), ErrConcurrentUpdate)

	stale := sampleState("5511")
	assert.ErrorIs(t, store.Save(ctx, stale), ErrConcurrentUpdate)
}

func TestRedisStoreCorruptPayload(t *testing.T) {
	mr, client := newRedisClient(t)
	require.NoError(t, mr.Set("session_state:bad", "{not json"))
	_, err := NewRedisStore(client, 0).Load(context.Background(), "bad")
	assert.Error(t, err)
}

func TestPostgresStoreLoad(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()
	store := newPostgresStoreWithExec(mock)

	raw, err := json.Marshal(sampleState("5511"))
	require.NoError(t, err)
	mock.ExpectQuery("SELECT state, version FROM session_states").
		WithArgs("5511").
		WillReturnRows(pgxmock.NewRows([]string{"state", "version"}).AddRow(raw, int64(4)))
	st, err := store.Load(context.Background(), "5511")
	require.NoError(t, err)
	assert.Equal(t, int64(4), st.Version)
	assert.Equal(t, PhaseAwaitDateChoice, st.Phase)

	mock.ExpectQuery("SELECT state, version FROM session_states").
		WithArgs("new").
		WillReturnError(pgx.ErrNoRows)
	st, err = store.Load(context.Background(), "new")
	require.NoError(t, err)
	assert.Equal(t, OperationNone, st.Operation)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSave(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()
	store := newPostgresStoreWithExec(mock)
	ctx := context.Background()

	st := sampleState("5511")
	mock.ExpectExec("INSERT INTO session_states").
		WithArgs("5511", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.Save(ctx, st))
	assert.Equal(t, int64(1), st.Version)

	mock.ExpectExec("UPDATE session_states").
		WithArgs("5511", pgxmock.AnyArg(), int64(1), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.Save(ctx, st))
	assert.Equal(t, int64(2), st.Version)

	mock.ExpectExec("UPDATE session_states").
		WithArgs("5511", pgxmock.AnyArg(), int64(2), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, store.Save(ctx, st), ErrConcurrentUpdate)

	mock.ExpectExec("UPDATE session_states").
		WithArgs("5511", pgxmock.AnyArg(), int64(2), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	err = store.Save(ctx, st)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConcurrentUpdate)

	require.NoError(t, mock.ExpectationsWereMet())
}
