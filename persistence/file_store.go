package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/config"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

// FileStore persists results as JSON files under the configured state
// directory and checkpoints under the checkpoint directory. Writes go
// through a temp file and rename so readers never observe a partial
// record.
type FileStore struct {
	resultsDir    string
	checkpointDir string
	logger        *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewFileStore creates the state directories if needed.
func NewFileStore(cfg config.StateConfig, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	resultsDir := filepath.Join(cfg.StateDir, "results")
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	if err := os.MkdirAll(cfg.CheckpointDir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &FileStore{
		resultsDir:    resultsDir,
		checkpointDir: cfg.CheckpointDir,
		logger:        logger.With(zap.String("component", "file_store")),
	}, nil
}

// SaveResult implements Store.
func (s *FileStore) SaveResult(_ context.Context, result *types.ExecutionResult) error {
	if err := s.check(); err != nil {
		return err
	}
	path := filepath.Join(s.resultsDir, sanitize(result.ExecutionID)+".json")
	return s.writeJSON(path, result)
}

// LoadResult implements Store.
func (s *FileStore) LoadResult(_ context.Context, executionID string) (*types.ExecutionResult, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.resultsDir, sanitize(executionID)+".json")
	var result types.ExecutionResult
	if err := s.readJSON(path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SaveCheckpoint implements Store.
func (s *FileStore) SaveCheckpoint(_ context.Context, result *types.Level2Result) error {
	if err := s.check(); err != nil {
		return err
	}
	path := filepath.Join(s.checkpointDir, sanitize(result.TaskName)+".json")
	return s.writeJSON(path, result)
}

// LoadCheckpoint implements Store.
func (s *FileStore) LoadCheckpoint(_ context.Context, taskName string) (*types.Level2Result, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.checkpointDir, sanitize(taskName)+".json")
	var result types.Level2Result
	if err := s.readJSON(path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.closed = true
	return nil
}

func (s *FileStore) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func (s *FileStore) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

func (s *FileStore) readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read record: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// sanitize maps a key to a safe file name. Task names may contain
// separators; execution IDs are UUIDs and pass through unchanged.
func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
