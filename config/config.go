// Package config holds the immutable execution policy of the resilience
// core: Level-1 retry policy, Level-2 safety policy, the token budget,
// and the state-store location handed to external collaborators.
//
// Precedence: explicit values in a loaded YAML file override built-in
// defaults, and environment variables (MAESTRO_* by default) override
// both. Overrides are read once at construction; a built Config never
// changes. The only process-wide state is the global accessor pair in
// global.go.
package config

import "time"

// RecoveryStrategy names what a retry level does when an attempt fails.
type RecoveryStrategy string

const (
	// RecoveryReflectAndRetry re-invokes the same task callable and relies
	// on the caller to feed the previous error back into it.
	RecoveryReflectAndRetry RecoveryStrategy = "reflect_and_retry"

	// RecoveryEscalate hands the failure to the escalation sink.
	RecoveryEscalate RecoveryStrategy = "escalate"
)

// Config is the complete execution policy. Value-immutable after Load.
type Config struct {
	Level1 Level1Config `yaml:"level1" env:"L1"`
	Level2 Level2Config `yaml:"level2" env:"L2"`
	State  StateConfig  `yaml:"state" env:""`
	Token  TokenConfig  `yaml:"token" env:"TOKEN"`
}

// Level1Config controls the inline per-task retry loop.
type Level1Config struct {
	MaxAttempts            int              `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	BaseDelay              time.Duration    `yaml:"base_delay" env:"BASE_DELAY"`
	MaxDelay               time.Duration    `yaml:"max_delay" env:"MAX_DELAY"`
	BackoffMultiplier      float64          `yaml:"backoff_multiplier" env:"BACKOFF_MULTIPLIER"`
	AttemptTimeout         time.Duration    `yaml:"attempt_timeout" env:"ATTEMPT_TIMEOUT"`
	EnableSelfHealing      bool             `yaml:"enable_self_healing" env:"ENABLE_SELF_HEALING"`
	EnableSyntaxValidation bool             `yaml:"enable_syntax_validation" env:"ENABLE_SYNTAX_VALIDATION"`
	RecoveryStrategy       RecoveryStrategy `yaml:"recovery_strategy" env:"RECOVERY_STRATEGY"`
}

// Level2Config controls the outer re-invocation-from-scratch loop and
// its circuit breaker.
type Level2Config struct {
	MaxAttempts             int              `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	BaseDelay               time.Duration    `yaml:"base_delay" env:"BASE_DELAY"`
	MaxDelay                time.Duration    `yaml:"max_delay" env:"MAX_DELAY"`
	BackoffMultiplier       float64          `yaml:"backoff_multiplier" env:"BACKOFF_MULTIPLIER"`
	CircuitBreakerThreshold int              `yaml:"circuit_breaker_threshold" env:"CIRCUIT_BREAKER_THRESHOLD"`
	CircuitBreakerCooldown  time.Duration    `yaml:"circuit_breaker_cooldown" env:"CIRCUIT_BREAKER_COOLDOWN"`
	EnableJiraEscalation    bool             `yaml:"enable_jira_escalation" env:"ENABLE_JIRA_ESCALATION"`
	RecoveryStrategy        RecoveryStrategy `yaml:"recovery_strategy" env:"RECOVERY_STRATEGY"`
}

// StateConfig locates the external key-value state store. The core never
// reads or writes these paths itself; they are handed to collaborators
// that persist results across restarts.
type StateConfig struct {
	StateDir      string `yaml:"state_dir" env:"STATE_DIR"`
	CheckpointDir string `yaml:"checkpoint_dir" env:"CHECKPOINT_DIR"`
}

// TokenConfig bounds cumulative resource consumption.
type TokenConfig struct {
	MaxTokensPerPersona   uint64 `yaml:"max_tokens_per_persona" env:"LIMIT"`
	MaxTokensPerExecution uint64 `yaml:"max_tokens_per_execution" env:"EXECUTION_LIMIT"`
	TrackUsage            bool   `yaml:"track_usage" env:"TRACK_USAGE"`
	EnforceBudget         bool   `yaml:"enforce_budget" env:"ENFORCE_BUDGET"`
}

// normalize clamps out-of-range values back to defaults so a Config
// obtained through Load always satisfies max_attempts >= 1 and a sane
// backoff curve.
func (c *Config) normalize() {
	def := DefaultConfig()

	if c.Level1.MaxAttempts < 1 {
		c.Level1.MaxAttempts = def.Level1.MaxAttempts
	}
	if c.Level1.BaseDelay <= 0 {
		c.Level1.BaseDelay = def.Level1.BaseDelay
	}
	if c.Level1.MaxDelay < c.Level1.BaseDelay {
		c.Level1.MaxDelay = c.Level1.BaseDelay
	}
	if c.Level1.BackoffMultiplier < 1.0 {
		c.Level1.BackoffMultiplier = def.Level1.BackoffMultiplier
	}
	if c.Level1.RecoveryStrategy == "" {
		c.Level1.RecoveryStrategy = RecoveryReflectAndRetry
	}

	if c.Level2.MaxAttempts < 1 {
		c.Level2.MaxAttempts = def.Level2.MaxAttempts
	}
	if c.Level2.BaseDelay <= 0 {
		c.Level2.BaseDelay = def.Level2.BaseDelay
	}
	if c.Level2.MaxDelay < c.Level2.BaseDelay {
		c.Level2.MaxDelay = c.Level2.BaseDelay
	}
	if c.Level2.BackoffMultiplier < 1.0 {
		c.Level2.BackoffMultiplier = def.Level2.BackoffMultiplier
	}
	if c.Level2.CircuitBreakerThreshold < 1 {
		c.Level2.CircuitBreakerThreshold = def.Level2.CircuitBreakerThreshold
	}
	if c.Level2.CircuitBreakerCooldown < 0 {
		c.Level2.CircuitBreakerCooldown = def.Level2.CircuitBreakerCooldown
	}
	if c.Level2.RecoveryStrategy == "" {
		c.Level2.RecoveryStrategy = RecoveryEscalate
	}

	if c.State.StateDir == "" {
		c.State.StateDir = def.State.StateDir
	}
	if c.State.CheckpointDir == "" {
		c.State.CheckpointDir = def.State.CheckpointDir
	}

	if c.Token.MaxTokensPerPersona == 0 {
		c.Token.MaxTokensPerPersona = def.Token.MaxTokensPerPersona
	}
	if c.Token.MaxTokensPerExecution == 0 {
		c.Token.MaxTokensPerExecution = def.Token.MaxTokensPerExecution
	}
}

// ToMap serializes every field for audit logging. Enum fields appear as
// their lowercase string tags.
func (c *Config) ToMap() map[string]any {
	return map[string]any{
		"level1": map[string]any{
			"max_attempts":             c.Level1.MaxAttempts,
			"base_delay":               c.Level1.BaseDelay.String(),
			"max_delay":                c.Level1.MaxDelay.String(),
			"backoff_multiplier":       c.Level1.BackoffMultiplier,
			"attempt_timeout":          c.Level1.AttemptTimeout.String(),
			"enable_self_healing":      c.Level1.EnableSelfHealing,
			"enable_syntax_validation": c.Level1.EnableSyntaxValidation,
			"recovery_strategy":        string(c.Level1.RecoveryStrategy),
		},
		"level2": map[string]any{
			"max_attempts":              c.Level2.MaxAttempts,
			"base_delay":                c.Level2.BaseDelay.String(),
			"max_delay":                 c.Level2.MaxDelay.String(),
			"backoff_multiplier":        c.Level2.BackoffMultiplier,
			"circuit_breaker_threshold": c.Level2.CircuitBreakerThreshold,
			"circuit_breaker_cooldown":  c.Level2.CircuitBreakerCooldown.String(),
			"enable_jira_escalation":    c.Level2.EnableJiraEscalation,
			"recovery_strategy":         string(c.Level2.RecoveryStrategy),
		},
		"state": map[string]any{
			"state_dir":      c.State.StateDir,
			"checkpoint_dir": c.State.CheckpointDir,
		},
		"token": map[string]any{
			"max_tokens_per_persona":   c.Token.MaxTokensPerPersona,
			"max_tokens_per_execution": c.Token.MaxTokensPerExecution,
			"track_usage":              c.Token.TrackUsage,
			"enforce_budget":           c.Token.EnforceBudget,
		},
	}
}
