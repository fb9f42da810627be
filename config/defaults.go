package config

import "time"

// DefaultConfig returns the built-in policy defaults.
func DefaultConfig() *Config {
	return &Config{
		Level1: DefaultLevel1Config(),
		Level2: DefaultLevel2Config(),
		State:  DefaultStateConfig(),
		Token:  DefaultTokenConfig(),
	}
}

// DefaultLevel1Config returns the default inline retry policy.
func DefaultLevel1Config() Level1Config {
	return Level1Config{
		MaxAttempts:            3,
		BaseDelay:              1 * time.Second,
		MaxDelay:               30 * time.Second,
		BackoffMultiplier:      2.0,
		AttemptTimeout:         5 * time.Minute,
		EnableSelfHealing:      true,
		EnableSyntaxValidation: true,
		RecoveryStrategy:       RecoveryReflectAndRetry,
	}
}

// DefaultLevel2Config returns the default safety wrapper policy.
func DefaultLevel2Config() Level2Config {
	return Level2Config{
		MaxAttempts:             2,
		BaseDelay:               5 * time.Second,
		MaxDelay:                60 * time.Second,
		BackoffMultiplier:       2.0,
		CircuitBreakerThreshold: 5,
		CircuitBreakerCooldown:  60 * time.Second,
		EnableJiraEscalation:    false,
		RecoveryStrategy:        RecoveryEscalate,
	}
}

// DefaultStateConfig returns the default state store locations.
func DefaultStateConfig() StateConfig {
	return StateConfig{
		StateDir:      "/var/maestro/state",
		CheckpointDir: "/var/maestro/checkpoints",
	}
}

// DefaultTokenConfig returns the default token budget policy.
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		MaxTokensPerPersona:   100_000,
		MaxTokensPerExecution: 500_000,
		TrackUsage:            true,
		EnforceBudget:         true,
	}
}
