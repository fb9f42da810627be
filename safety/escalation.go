package safety

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

// Escalator is the external escalation sink invoked when both retry
// levels are exhausted. Escalation failures are swallowed and logged by
// the wrapper; they must never mask the HelpNeeded error.
type Escalator interface {
	Escalate(ctx context.Context, report types.FailureReport) error
}

// EscalatorFunc adapts a plain function to the Escalator interface.
type EscalatorFunc func(ctx context.Context, report types.FailureReport) error

// Escalate implements Escalator.
func (f EscalatorFunc) Escalate(ctx context.Context, report types.FailureReport) error {
	return f(ctx, report)
}

// LogEscalator writes the failure report to the structured log. It is
// the default sink when escalation is enabled but no ticketing
// integration is wired.
type LogEscalator struct {
	logger *zap.Logger
}

// NewLogEscalator builds a LogEscalator. Nil logger means no-op logger.
func NewLogEscalator(logger *zap.Logger) *LogEscalator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEscalator{logger: logger}
}

// Escalate implements Escalator.
func (e *LogEscalator) Escalate(_ context.Context, report types.FailureReport) error {
	e.logger.Error("escalating failure report",
		zap.String("failed_persona", report.FailedPersona),
		zap.String("task_name", report.TaskName),
		zap.String("error_category", string(report.ErrorCategory)),
		zap.Int("attempts_exhausted", report.AttemptsExhausted),
		zap.String("last_error", report.LastErrorMessage),
		zap.Time("timestamp", report.Timestamp),
	)
	return nil
}

// RateLimitedEscalator drops reports beyond the configured rate so a
// failure storm cannot flood the ticketing system. Dropped reports are
// logged, not queued.
type RateLimitedEscalator struct {
	inner   Escalator
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRateLimitedEscalator wraps inner with a token-bucket limit of r
// escalations per second and the given burst.
func NewRateLimitedEscalator(inner Escalator, r rate.Limit, burst int, logger *zap.Logger) *RateLimitedEscalator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitedEscalator{
		inner:   inner,
		limiter: rate.NewLimiter(r, burst),
		logger:  logger,
	}
}

// Escalate implements Escalator.
func (e *RateLimitedEscalator) Escalate(ctx context.Context, report types.FailureReport) error {
	if !e.limiter.Allow() {
		e.logger.Warn("escalation dropped by rate limit",
			zap.String("task_name", report.TaskName),
			zap.String("failed_persona", report.FailedPersona),
		)
		return nil
	}
	return e.inner.Escalate(ctx, report)
}
