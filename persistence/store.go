// Package persistence stores execution results and task checkpoints so
// collaborators can recover state across process restarts. The retry
// core itself never calls a Store; it only exposes the configured
// state-store paths. Stores hold the ToMap-shaped JSON of results.
package persistence

import (
	"context"
	"errors"

	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

var (
	// ErrNotFound is returned when no record exists for the given key.
	ErrNotFound = errors.New("persistence: record not found")

	// ErrStoreClosed is returned on any operation after Close.
	ErrStoreClosed = errors.New("persistence: store closed")
)

// Store persists Level-1 results keyed by execution ID and Level-2
// checkpoints keyed by task name. The latest checkpoint for a task
// replaces the previous one. Implementations are safe for concurrent
// use.
type Store interface {
	// SaveResult persists a Level-1 execution result.
	SaveResult(ctx context.Context, result *types.ExecutionResult) error

	// LoadResult retrieves a Level-1 result by execution ID, or
	// ErrNotFound.
	LoadResult(ctx context.Context, executionID string) (*types.ExecutionResult, error)

	// SaveCheckpoint persists the latest Level-2 result for a task.
	SaveCheckpoint(ctx context.Context, result *types.Level2Result) error

	// LoadCheckpoint retrieves the latest Level-2 result for a task, or
	// ErrNotFound.
	LoadCheckpoint(ctx context.Context, taskName string) (*types.Level2Result, error)

	// Close releases underlying resources. Subsequent calls return
	// ErrStoreClosed.
	Close() error
}
