// Package budget enforces the hard token ceiling each persona runs
// under. The guard is the Level-1 executor's pre-flight gate: a persona
// that has exhausted its budget never begins another attempt.
package budget

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

// Guard is a per-persona token counter with a hard limit. Usage is
// monotonic for the persona's lifetime until an explicit Reset; nothing
// resets it implicitly.
//
// A Guard is owned by one executor unless deliberately injected into
// several; all methods are safe for concurrent use.
type Guard struct {
	personaID string
	logger    *zap.Logger

	mu    sync.Mutex
	used  uint64
	limit uint64
}

// NewGuard creates a Guard for one persona.
func NewGuard(personaID string, limit uint64, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		personaID: personaID,
		limit:     limit,
		logger:    logger,
	}
}

// CheckAndReserve commits additional tokens against the budget, or
// fails with a TokenBudgetExceededError without mutating the counter.
// The check-and-commit is atomic: concurrent reservations can never
// jointly overshoot the limit.
func (g *Guard) CheckAndReserve(additional uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.used+additional > g.limit {
		g.logger.Warn("token budget exceeded",
			zap.String("persona_id", g.personaID),
			zap.Uint64("used", g.used),
			zap.Uint64("requested", additional),
			zap.Uint64("limit", g.limit),
		)
		return &types.TokenBudgetExceededError{
			PersonaID: g.personaID,
			Used:      g.used,
			Requested: additional,
			Limit:     g.limit,
		}
	}

	g.used += additional
	g.logger.Debug("tokens reserved",
		zap.String("persona_id", g.personaID),
		zap.Uint64("reserved", additional),
		zap.Uint64("used", g.used),
	)
	return nil
}

// Usage returns the tokens consumed so far.
func (g *Guard) Usage() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.used
}

// Remaining returns the tokens left before the limit.
func (g *Guard) Remaining() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.used >= g.limit {
		return 0
	}
	return g.limit - g.used
}

// Limit returns the configured ceiling.
func (g *Guard) Limit() uint64 {
	return g.limit
}

// PersonaID returns the owning persona.
func (g *Guard) PersonaID() string {
	return g.personaID
}

// Reset zeroes the counter. Only explicit caller action resets a
// budget, e.g. instantiating a new persona.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.logger.Info("token budget reset",
		zap.String("persona_id", g.personaID),
		zap.Uint64("discarded_usage", g.used),
	)
	g.used = 0
}
