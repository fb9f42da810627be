package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.Level1.MaxAttempts)
	assert.Equal(t, 1*time.Second, cfg.Level1.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Level1.MaxDelay)
	assert.Equal(t, 2.0, cfg.Level1.BackoffMultiplier)
	assert.True(t, cfg.Level1.EnableSelfHealing)
	assert.True(t, cfg.Level1.EnableSyntaxValidation)
	assert.Equal(t, RecoveryReflectAndRetry, cfg.Level1.RecoveryStrategy)

	assert.Equal(t, 2, cfg.Level2.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Level2.BaseDelay)
	assert.Equal(t, 60*time.Second, cfg.Level2.MaxDelay)
	assert.Equal(t, 5, cfg.Level2.CircuitBreakerThreshold)
	assert.Equal(t, 60*time.Second, cfg.Level2.CircuitBreakerCooldown)
	assert.False(t, cfg.Level2.EnableJiraEscalation)
	assert.Equal(t, RecoveryEscalate, cfg.Level2.RecoveryStrategy)

	assert.Equal(t, "/var/maestro/state", cfg.State.StateDir)
	assert.Equal(t, "/var/maestro/checkpoints", cfg.State.CheckpointDir)

	assert.Equal(t, uint64(100_000), cfg.Token.MaxTokensPerPersona)
	assert.Equal(t, uint64(500_000), cfg.Token.MaxTokensPerExecution)
	assert.True(t, cfg.Token.TrackUsage)
	assert.True(t, cfg.Token.EnforceBudget)
}

// ---------------------------------------------------------------------------
// normalize
// ---------------------------------------------------------------------------

func TestNormalize_ClampsInvalidValues(t *testing.T) {
	cfg := &Config{
		Level1: Level1Config{MaxAttempts: 0, BaseDelay: -1, BackoffMultiplier: 0.5},
		Level2: Level2Config{MaxAttempts: -2, CircuitBreakerThreshold: 0},
	}
	cfg.normalize()

	assert.Equal(t, 3, cfg.Level1.MaxAttempts)
	assert.Equal(t, 1*time.Second, cfg.Level1.BaseDelay)
	assert.Equal(t, 2.0, cfg.Level1.BackoffMultiplier)
	assert.GreaterOrEqual(t, cfg.Level1.MaxDelay, cfg.Level1.BaseDelay)

	assert.Equal(t, 2, cfg.Level2.MaxAttempts)
	assert.Equal(t, 5, cfg.Level2.CircuitBreakerThreshold)
	assert.Equal(t, RecoveryReflectAndRetry, cfg.Level1.RecoveryStrategy)
	assert.Equal(t, RecoveryEscalate, cfg.Level2.RecoveryStrategy)
	assert.Equal(t, "/var/maestro/state", cfg.State.StateDir)
	assert.Equal(t, uint64(100_000), cfg.Token.MaxTokensPerPersona)
}

func TestNormalize_MaxDelayNotBelowBase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level1.BaseDelay = 10 * time.Second
	cfg.Level1.MaxDelay = 2 * time.Second
	cfg.normalize()
	assert.Equal(t, 10*time.Second, cfg.Level1.MaxDelay)
}

// ---------------------------------------------------------------------------
// ToMap
// ---------------------------------------------------------------------------

func TestConfig_ToMap(t *testing.T) {
	cfg := DefaultConfig()
	m := cfg.ToMap()

	level1, ok := m["level1"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, level1["max_attempts"])
	assert.Equal(t, "reflect_and_retry", level1["recovery_strategy"])
	assert.Equal(t, "1s", level1["base_delay"])

	level2, ok := m["level2"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "escalate", level2["recovery_strategy"])
	assert.Equal(t, 5, level2["circuit_breaker_threshold"])

	state, ok := m["state"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/var/maestro/state", state["state_dir"])
	assert.Equal(t, "/var/maestro/checkpoints", state["checkpoint_dir"])

	token, ok := m["token"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, uint64(100_000), token["max_tokens_per_persona"])
	assert.Equal(t, true, token["enforce_budget"])
}

func TestConfig_ToMap_Idempotent(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg.ToMap(), cfg.ToMap())
}
