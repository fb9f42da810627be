// Package safety implements Level-2 resilience: the outer wrapper that
// re-invokes a fresh Level-1 executor from scratch, gated by a circuit
// breaker, with its own backoff curve and an escalation sink for
// terminal failures.
package safety

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/circuitbreaker"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/config"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/executor"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/internal/metrics"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/retry"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

const tracerName = "maestro/safety"

// Level1Executor is the inner retry engine the wrapper drives. The
// production implementation is *executor.PersonaExecutor; tests
// substitute deterministic fakes.
type Level1Executor interface {
	Execute(ctx context.Context, taskName string, task executor.TaskFunc) (*types.ExecutionResult, error)
}

// ExecutorFactory produces a fresh Level-1 executor for each Level-2
// attempt, so every attempt starts with its own attempt counter and no
// state from prior attempts.
type ExecutorFactory func(level2Attempt int) Level1Executor

// Wrapper is the Level-2 safety net around one persona/task-class. It
// owns its circuit breaker; the breaker's lifetime is the wrapper's.
// Safe for concurrent use.
type Wrapper struct {
	personaID string
	cfg       config.Level2Config
	policy    retry.Policy
	breaker   *circuitbreaker.Breaker
	factory   ExecutorFactory
	escalator Escalator
	logger    *zap.Logger
	tracer    trace.Tracer
	collector *metrics.Collector
}

// WrapperOption customizes a Wrapper.
type WrapperOption func(*Wrapper)

// WithLogger sets the logger. Nil is replaced with a no-op logger.
func WithLogger(logger *zap.Logger) WrapperOption {
	return func(w *Wrapper) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithEscalator sets the escalation sink used when escalation is
// enabled in the config.
func WithEscalator(e Escalator) WrapperOption {
	return func(w *Wrapper) { w.escalator = e }
}

// WithBreaker injects a pre-built circuit breaker, e.g. one shared
// deliberately across wrappers of the same task class.
func WithBreaker(b *circuitbreaker.Breaker) WrapperOption {
	return func(w *Wrapper) {
		if b != nil {
			w.breaker = b
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) WrapperOption {
	return func(w *Wrapper) { w.collector = c }
}

// NewWrapper creates a Level-2 wrapper. A nil cfg uses the Level-2
// defaults; factory must not be nil.
func NewWrapper(personaID string, cfg *config.Level2Config, factory ExecutorFactory, opts ...WrapperOption) *Wrapper {
	if cfg == nil {
		def := config.DefaultConfig().Level2
		cfg = &def
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	w := &Wrapper{
		personaID: personaID,
		cfg:       *cfg,
		policy:    retry.NewPolicy(cfg.BaseDelay, cfg.MaxDelay, cfg.BackoffMultiplier),
		factory:   factory,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.breaker == nil {
		w.breaker = circuitbreaker.New(&circuitbreaker.Config{
			Threshold: cfg.CircuitBreakerThreshold,
			Cooldown:  cfg.CircuitBreakerCooldown,
			OnStateChange: func(from, to circuitbreaker.State) {
				w.collector.RecordBreakerTransition(personaID, from.String(), to.String(), float64(to))
			},
		}, w.logger)
	}
	if w.escalator == nil && cfg.EnableJiraEscalation {
		w.escalator = NewLogEscalator(w.logger)
	}
	w.logger = w.logger.With(
		zap.String("component", "safety"),
		zap.String("persona_id", personaID),
	)
	return w
}

// Breaker exposes the wrapper's circuit breaker for inspection and
// manual operator reset.
func (w *Wrapper) Breaker() *circuitbreaker.Breaker {
	return w.breaker
}

// ExecuteSafe runs the task through the full two-level retry ladder.
// The returned result is always non-nil and carries every Level-1
// result produced, so audit trails survive the error path. The error is
// one of:
//
//   - nil: some Level-2 attempt succeeded;
//   - *types.CircuitBreakerOpenError: the breaker rejected the attempt
//     before any task code ran;
//   - *types.TokenBudgetExceededError: the persona is out of budget;
//   - context cancellation: terminal, never escalated;
//   - *types.HelpNeededError: every Level-2 attempt exhausted its
//     Level-1 executor.
func (w *Wrapper) ExecuteSafe(ctx context.Context, taskName string, task executor.TaskFunc) (*types.Level2Result, error) {
	result := &types.Level2Result{
		TaskName:    taskName,
		FinalStatus: types.StatusFailed,
		CreatedAt:   time.Now(),
	}

	ctx, span := w.tracer.Start(ctx, "safety.ExecuteSafe",
		trace.WithAttributes(
			attribute.String("maestro.persona_id", w.personaID),
			attribute.String("maestro.task_name", taskName),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		result.CircuitBreaker = w.breaker.Snapshot()
		w.collector.RecordExecution(w.personaID, "level2", string(result.FinalStatus), time.Since(start).Seconds())
	}()

	var lastUnrecoverable *types.UnrecoverableError

	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			result.FinalStatus = types.StatusCancelled
			result.Level2Attempts = attempt - 1
			return result, err
		}

		// The breaker stops wasted work: an open breaker rejects before
		// any task code runs and before any backoff sleep.
		if w.breaker.IsOpen() {
			result.Level2Attempts = attempt - 1
			span.SetAttributes(attribute.String("maestro.outcome", "breaker_open"))
			w.logger.Warn("rejected by circuit breaker",
				zap.String("task_name", taskName),
			)
			return result, &types.CircuitBreakerOpenError{Breaker: w.breaker.Snapshot()}
		}

		result.Level2Attempts = attempt
		w.collector.RecordAttempt(w.personaID, "level2")

		level1 := w.factory(attempt)
		execResult, err := level1.Execute(ctx, taskName, task)
		if execResult != nil {
			result.Level1Results = append(result.Level1Results, *execResult)
		}

		if err == nil {
			w.breaker.RecordSuccess()
			result.FinalStatus = types.StatusSuccess
			result.Success = true
			w.logger.Info("task succeeded",
				zap.String("task_name", taskName),
				zap.Int("level2_attempt", attempt),
			)
			return result, nil
		}

		// Budget exhaustion bypasses the ladder: retrying cannot refill
		// the budget, and the failure is the caller's resource policy,
		// not downstream health, so the breaker stays untouched.
		if types.IsTokenBudgetExceeded(err) {
			span.SetAttributes(attribute.String("maestro.outcome", "budget_exceeded"))
			return result, err
		}

		// Cancellation is terminal and never escalated.
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			result.FinalStatus = types.StatusCancelled
			w.logger.Info("task cancelled",
				zap.String("task_name", taskName),
				zap.Int("level2_attempt", attempt),
			)
			return result, err
		}

		var unrec *types.UnrecoverableError
		if errors.As(err, &unrec) {
			lastUnrecoverable = unrec
		} else {
			lastUnrecoverable = &types.UnrecoverableError{
				Report: types.FailureReport{
					FailedPersona:     w.personaID,
					TaskName:          taskName,
					ErrorCategory:     types.CategoryUnknown,
					AttemptsExhausted: attemptCount(execResult),
					LastErrorMessage:  err.Error(),
					Timestamp:         time.Now(),
				},
				Cause: err,
			}
		}

		w.breaker.RecordFailure()
		w.logger.Warn("level-1 executor exhausted",
			zap.String("task_name", taskName),
			zap.Int("level2_attempt", attempt),
			zap.Int("max_attempts", w.cfg.MaxAttempts),
			zap.String("category", string(lastUnrecoverable.Report.ErrorCategory)),
		)

		if attempt < w.cfg.MaxAttempts {
			w.collector.RecordRetry(w.personaID, "level2", string(lastUnrecoverable.Report.ErrorCategory))
			if serr := retry.Sleep(ctx, w.policy.Delay(attempt)); serr != nil {
				result.FinalStatus = types.StatusCancelled
				return result, serr
			}
		}
	}

	report := w.aggregateReport(taskName, lastUnrecoverable)
	helpErr := &types.HelpNeededError{Report: report, Cause: lastUnrecoverable}

	span.SetAttributes(attribute.String("maestro.outcome", "help_needed"))
	w.logger.Error("all retry levels exhausted, help needed",
		zap.String("task_name", taskName),
		zap.Int("level2_attempts", result.Level2Attempts),
		zap.String("category", string(report.ErrorCategory)),
	)

	w.escalate(ctx, report)
	return result, helpErr
}

// aggregateReport rolls the last Level-1 failure up into the terminal
// report. AttemptsExhausted counts Level-2 attempts; the per-attempt
// Level-1 counts live in the result's Level1Results.
func (w *Wrapper) aggregateReport(taskName string, last *types.UnrecoverableError) types.FailureReport {
	report := types.FailureReport{
		FailedPersona:     w.personaID,
		TaskName:          taskName,
		ErrorCategory:     types.CategoryUnknown,
		AttemptsExhausted: w.cfg.MaxAttempts,
		Timestamp:         time.Now(),
	}
	if last != nil {
		report.ErrorCategory = last.Report.ErrorCategory
		report.LastErrorMessage = last.Report.LastErrorMessage
		if report.FailedPersona == "" {
			report.FailedPersona = last.Report.FailedPersona
		}
	}
	return report
}

// escalate hands the report to the sink when escalation is enabled.
// Fire-and-forget: a sink failure is logged and swallowed so it can
// never mask the HelpNeeded error.
func (w *Wrapper) escalate(ctx context.Context, report types.FailureReport) {
	if !w.cfg.EnableJiraEscalation || w.escalator == nil {
		return
	}
	w.collector.RecordEscalation(w.personaID)
	if err := w.escalator.Escalate(context.WithoutCancel(ctx), report); err != nil {
		w.logger.Error("escalation sink failed",
			zap.String("task_name", report.TaskName),
			zap.Error(err),
		)
	}
}

func attemptCount(r *types.ExecutionResult) int {
	if r == nil {
		return 0
	}
	return r.AttemptCount
}
