// Package circuitbreaker implements the three-state failure gate that
// guards Level-2 attempts. One breaker is created per safety wrapper
// (per persona/task-class); when an instance is deliberately shared
// across goroutines it remains safe, all transitions happen under an
// internal mutex.
package circuitbreaker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

// State is the breaker position.
type State int

const (
	// StateClosed lets calls through and counts consecutive failures.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets exactly one trial call decide the next state.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// Config tunes a Breaker.
type Config struct {
	// Threshold is the consecutive-failure count that trips the breaker.
	Threshold int

	// Cooldown is how long the breaker stays Open before allowing a
	// half-open trial call. Zero means the very next IsOpen check
	// already moves to HalfOpen.
	Cooldown time.Duration

	// OnStateChange is invoked asynchronously on every transition.
	OnStateChange func(from State, to State)
}

// DefaultConfig returns the default breaker tuning.
func DefaultConfig() *Config {
	return &Config{
		Threshold: 5,
		Cooldown:  60 * time.Second,
	}
}

// Breaker tracks consecutive failures across Level-2 attempts.
type Breaker struct {
	config *Config
	logger *zap.Logger

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	openedAt            time.Time
}

// New creates a Breaker in the Closed state.
func New(config *Config, logger *zap.Logger) *Breaker {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Threshold <= 0 {
		config.Threshold = 5
	}
	if config.Cooldown < 0 {
		config.Cooldown = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Breaker{
		config: config,
		logger: logger,
		state:  StateClosed,
	}
}

// IsOpen reports whether calls must be rejected right now. When the
// cooldown of an Open breaker has elapsed, IsOpen performs the
// Open -> HalfOpen transition as a side effect and returns false: the
// caller may make exactly one trial call, then report its outcome via
// RecordSuccess or RecordFailure.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return false
	}

	if time.Since(b.openedAt) < b.config.Cooldown {
		return true
	}

	b.setState(StateHalfOpen)
	b.logger.Info("circuit breaker half-open, allowing trial call",
		zap.Duration("cooldown", b.config.Cooldown),
	)
	return false
}

// RecordSuccess resets the failure counter. In HalfOpen it closes the
// breaker; in Closed it is a counter reset only.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.consecutiveFailures = 0

	case StateHalfOpen:
		b.logger.Info("circuit breaker recovered",
			zap.Int("failures_before_recovery", b.consecutiveFailures),
		)
		b.setState(StateClosed)
		b.consecutiveFailures = 0
		b.openedAt = time.Time{}

	case StateOpen:
		// A success should never be reported while Open; keep the state
		// but note the protocol violation.
		b.logger.Warn("success recorded while circuit breaker open")
	}
}

// RecordFailure increments the consecutive-failure counter. At the
// threshold the breaker opens; a failed half-open trial re-opens it and
// restarts the cooldown window.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++

	switch b.state {
	case StateClosed:
		if b.consecutiveFailures >= b.config.Threshold {
			b.logger.Warn("circuit breaker opened",
				zap.Int("consecutive_failures", b.consecutiveFailures),
				zap.Int("threshold", b.config.Threshold),
			)
			b.setState(StateOpen)
			b.openedAt = time.Now()
		}

	case StateHalfOpen:
		b.logger.Warn("trial call failed, circuit breaker re-opened")
		b.setState(StateOpen)
		b.openedAt = time.Now()

	case StateOpen:
		b.logger.Warn("failure recorded while circuit breaker open")
		b.openedAt = time.Now()
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ConsecutiveFailures returns the current failure streak.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures
}

// Snapshot captures the breaker for audit trails.
func (b *Breaker) Snapshot() types.BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := types.BreakerSnapshot{
		State:               b.state.String(),
		ConsecutiveFailures: b.consecutiveFailures,
		Threshold:           b.config.Threshold,
		CooldownSeconds:     b.config.Cooldown.Seconds(),
	}
	if !b.openedAt.IsZero() {
		openedAt := b.openedAt
		snap.OpenedAt = &openedAt
	}
	return snap
}

// Reset forces the breaker back to Closed, e.g. after manual operator
// intervention.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	from := b.state
	b.setState(StateClosed)
	b.consecutiveFailures = 0
	b.openedAt = time.Time{}

	b.logger.Info("circuit breaker reset", zap.String("from_state", from.String()))
}

// setState transitions and fires the callback. Caller holds the lock.
func (b *Breaker) setState(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to

	if b.config.OnStateChange != nil {
		go b.config.OnStateChange(from, to)
	}
}
