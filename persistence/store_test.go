package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/config"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

func sampleExecutionResult(id string) *types.ExecutionResult {
	return &types.ExecutionResult{
		ExecutionID:  id,
		TaskName:     "implement-feature",
		PersonaID:    "developer",
		FinalStatus:  types.StatusSuccess,
		FinalOutput:  "done",
		AttemptCount: 2,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func sampleLevel2Result(taskName string) *types.Level2Result {
	return &types.Level2Result{
		TaskName:       taskName,
		FinalStatus:    types.StatusSuccess,
		Success:        true,
		Level2Attempts: 1,
		Level1Results:  []types.ExecutionResult{*sampleExecutionResult("exec-1")},
		CircuitBreaker: types.BreakerSnapshot{State: "Closed", Threshold: 5, CooldownSeconds: 60},
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}
}

// storeUnderTest exercises the Store contract against any implementation.
func storeUnderTest(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	// --- results ---
	_, err := store.LoadResult(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	want := sampleExecutionResult("exec-42")
	require.NoError(t, store.SaveResult(ctx, want))

	got, err := store.LoadResult(ctx, "exec-42")
	require.NoError(t, err)
	assert.Equal(t, want.ExecutionID, got.ExecutionID)
	assert.Equal(t, want.TaskName, got.TaskName)
	assert.Equal(t, want.PersonaID, got.PersonaID)
	assert.Equal(t, want.FinalStatus, got.FinalStatus)
	assert.Equal(t, want.AttemptCount, got.AttemptCount)

	// --- checkpoints ---
	_, err = store.LoadCheckpoint(ctx, "missing-task")
	assert.ErrorIs(t, err, ErrNotFound)

	checkpoint := sampleLevel2Result("deploy-service")
	require.NoError(t, store.SaveCheckpoint(ctx, checkpoint))

	loaded, err := store.LoadCheckpoint(ctx, "deploy-service")
	require.NoError(t, err)
	assert.Equal(t, checkpoint.TaskName, loaded.TaskName)
	assert.True(t, loaded.Success)
	require.Len(t, loaded.Level1Results, 1)
	assert.Equal(t, "exec-1", loaded.Level1Results[0].ExecutionID)
	assert.Equal(t, "Closed", loaded.CircuitBreaker.State)

	// The latest checkpoint replaces the previous one.
	updated := sampleLevel2Result("deploy-service")
	updated.Success = false
	updated.FinalStatus = types.StatusFailed
	require.NoError(t, store.SaveCheckpoint(ctx, updated))

	loaded, err = store.LoadCheckpoint(ctx, "deploy-service")
	require.NoError(t, err)
	assert.False(t, loaded.Success)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	storeUnderTest(t, store)

	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.Close(), ErrStoreClosed)
	_, err := store.LoadResult(context.Background(), "exec-42")
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(config.StateConfig{
		StateDir:      dir + "/state",
		CheckpointDir: dir + "/checkpoints",
	}, zap.NewNop())
	require.NoError(t, err)

	storeUnderTest(t, store)

	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.SaveResult(context.Background(), sampleExecutionResult("x")), ErrStoreClosed)
}

func TestFileStore_SanitizesTaskNames(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(config.StateConfig{
		StateDir:      dir + "/state",
		CheckpointDir: dir + "/checkpoints",
	}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	checkpoint := sampleLevel2Result("deploy/service:v2")
	require.NoError(t, store.SaveCheckpoint(ctx, checkpoint))

	loaded, err := store.LoadCheckpoint(ctx, "deploy/service:v2")
	require.NoError(t, err)
	assert.Equal(t, "deploy/service:v2", loaded.TaskName)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, 0, zap.NewNop())

	storeUnderTest(t, store)

	require.NoError(t, store.Close())
}

func TestRedisStore_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Minute, zap.NewNop())
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveResult(ctx, sampleExecutionResult("exec-ttl")))

	mr.FastForward(2 * time.Minute)
	_, err := store.LoadResult(ctx, "exec-ttl")
	assert.ErrorIs(t, err, ErrNotFound)
}
