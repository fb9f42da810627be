// Package executor implements Level-1 resilience: the inline retry loop
// that wraps every persona task. Failures are retried with exponential
// backoff until the attempt budget runs out; exhaustion surfaces as an
// UnrecoverableError for the Level-2 wrapper to handle.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/budget"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/config"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/internal/metrics"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/retry"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

const tracerName = "maestro/executor"

// TaskFunc is one persona task. It must honor ctx cancellation; the
// executor bounds each attempt with the configured attempt timeout.
type TaskFunc func(ctx context.Context) (any, error)

// AttemptHook observes every failed attempt before the backoff sleep.
// The executor ignores its return; it exists for reflection prompts and
// progress reporting.
type AttemptHook func(attempt int, err error)

// PersonaExecutor runs tasks for a single persona with inline retry.
// Safe for concurrent use; each Execute call keeps its own attempt
// state on the stack.
type PersonaExecutor struct {
	personaID string
	cfg       config.Level1Config
	policy    retry.Policy
	logger    *zap.Logger
	tracer    trace.Tracer

	guard           *budget.Guard
	tokenEstimate   uint64
	classifier      Classifier
	validator       SyntaxValidator
	onAttemptFailed AttemptHook
	collector       *metrics.Collector
}

// Option customizes a PersonaExecutor.
type Option func(*PersonaExecutor)

// WithLogger sets the logger. Nil is replaced with a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *PersonaExecutor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithGuard attaches a token budget guard checked before every attempt.
func WithGuard(guard *budget.Guard) Option {
	return func(e *PersonaExecutor) { e.guard = guard }
}

// WithTokenEstimate sets the tokens reserved per attempt. Zero disables
// the pre-flight reservation even when a guard is attached.
func WithTokenEstimate(tokens uint64) Option {
	return func(e *PersonaExecutor) { e.tokenEstimate = tokens }
}

// WithClassifier replaces the default error classifier.
func WithClassifier(c Classifier) Option {
	return func(e *PersonaExecutor) {
		if c != nil {
			e.classifier = c
		}
	}
}

// WithSyntaxValidator sets the validator applied to successful outputs
// when syntax validation is enabled in the config.
func WithSyntaxValidator(v SyntaxValidator) Option {
	return func(e *PersonaExecutor) { e.validator = v }
}

// WithAttemptHook registers a callback fired after every failed attempt.
func WithAttemptHook(hook AttemptHook) Option {
	return func(e *PersonaExecutor) { e.onAttemptFailed = hook }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *PersonaExecutor) { e.collector = c }
}

// New creates a PersonaExecutor. A nil cfg uses the Level-1 defaults.
func New(personaID string, cfg *config.Level1Config, opts ...Option) *PersonaExecutor {
	if cfg == nil {
		def := config.DefaultConfig().Level1
		cfg = &def
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	e := &PersonaExecutor{
		personaID:  personaID,
		cfg:        *cfg,
		policy:     retry.NewPolicy(cfg.BaseDelay, cfg.MaxDelay, cfg.BackoffMultiplier),
		logger:     zap.NewNop(),
		tracer:     otel.Tracer(tracerName),
		classifier: DefaultClassifier{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.validator == nil && e.cfg.EnableSyntaxValidation {
		e.validator = GoSyntaxValidator{}
	}
	e.logger = e.logger.With(
		zap.String("component", "executor"),
		zap.String("persona_id", personaID),
	)
	return e
}

// PersonaID returns the owning persona.
func (e *PersonaExecutor) PersonaID() string {
	return e.personaID
}

// Guard returns the attached budget guard, or nil.
func (e *PersonaExecutor) Guard() *budget.Guard {
	return e.guard
}

// Execute runs the task with inline retry. The returned result is
// always non-nil; on failure the error is one of:
//
//   - *types.TokenBudgetExceededError: the budget gate rejected the
//     attempt, no retry was made;
//   - context cancellation: the parent ctx ended, the result carries
//     StatusCancelled;
//   - *types.UnrecoverableError: all attempts were consumed.
func (e *PersonaExecutor) Execute(ctx context.Context, taskName string, task TaskFunc) (*types.ExecutionResult, error) {
	result := &types.ExecutionResult{
		ExecutionID: uuid.NewString(),
		TaskName:    taskName,
		PersonaID:   e.personaID,
		FinalStatus: types.StatusFailed,
		CreatedAt:   time.Now(),
	}

	ctx, span := e.tracer.Start(ctx, "executor.Execute",
		trace.WithAttributes(
			attribute.String("maestro.persona_id", e.personaID),
			attribute.String("maestro.task_name", taskName),
			attribute.String("maestro.execution_id", result.ExecutionID),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		e.collector.RecordExecution(e.personaID, "level1", string(result.FinalStatus), time.Since(start).Seconds())
	}()

	var lastErr error
	var lastCategory types.ErrorCategory

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			result.FinalStatus = types.StatusCancelled
			result.AttemptCount = attempt - 1
			return result, err
		}

		if err := e.reserveTokens(); err != nil {
			// Resource exhaustion is not a task failure: no retry, no
			// attempt recorded.
			result.AttemptCount = attempt - 1
			span.SetAttributes(attribute.String("maestro.outcome", "budget_exceeded"))
			return result, err
		}

		result.AttemptCount = attempt
		e.collector.RecordAttempt(e.personaID, "level1")

		output, err := e.runAttempt(ctx, task)
		if err == nil && e.cfg.EnableSyntaxValidation && e.validator != nil {
			if verr := e.validator.Validate(output); verr != nil {
				err = types.NewRecoverable(types.CategorySyntax, verr)
				if !e.cfg.EnableSelfHealing {
					// Validation caught bad output and self-healing is off:
					// fail now instead of burning the remaining attempts.
					lastErr, lastCategory = err, types.CategorySyntax
					break
				}
			}
		}

		if err == nil {
			result.FinalStatus = types.StatusSuccess
			result.FinalOutput = output
			e.logger.Info("task succeeded",
				zap.String("task_name", taskName),
				zap.Int("attempt", attempt),
			)
			return result, nil
		}

		if ctx.Err() != nil {
			// The parent context ended mid-attempt. Cancellation is an
			// orderly shutdown, not a task failure.
			result.FinalStatus = types.StatusCancelled
			e.logger.Info("task cancelled",
				zap.String("task_name", taskName),
				zap.Int("attempt", attempt),
			)
			return result, ctx.Err()
		}

		lastErr = err
		lastCategory = e.classifier.Classify(err)
		e.logger.Warn("task attempt failed",
			zap.String("task_name", taskName),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.cfg.MaxAttempts),
			zap.String("category", string(lastCategory)),
			zap.Error(err),
		)
		if e.onAttemptFailed != nil {
			e.onAttemptFailed(attempt, err)
		}

		if attempt < e.cfg.MaxAttempts {
			e.collector.RecordRetry(e.personaID, "level1", string(lastCategory))
			if serr := retry.Sleep(ctx, e.policy.Delay(attempt)); serr != nil {
				result.FinalStatus = types.StatusCancelled
				return result, serr
			}
		}
	}

	report := types.FailureReport{
		FailedPersona:     e.personaID,
		TaskName:          taskName,
		ErrorCategory:     lastCategory,
		AttemptsExhausted: result.AttemptCount,
		LastErrorMessage:  errMessage(lastErr),
		Timestamp:         time.Now(),
	}
	span.SetAttributes(attribute.String("maestro.outcome", "exhausted"))
	e.logger.Error("task unrecoverable, all attempts exhausted",
		zap.String("task_name", taskName),
		zap.Int("attempts", result.AttemptCount),
		zap.String("category", string(lastCategory)),
	)
	return result, &types.UnrecoverableError{Report: report, Cause: lastErr}
}

// runAttempt executes one attempt bounded by the attempt timeout. The
// task runs on its own goroutine so a task that ignores ctx still
// cannot block the retry loop past the deadline.
func (e *PersonaExecutor) runAttempt(ctx context.Context, task TaskFunc) (any, error) {
	attemptCtx := ctx
	if e.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.cfg.AttemptTimeout)
		defer cancel()
	}

	type outcome struct {
		output any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("task panicked: %v", r)}
			}
		}()
		output, err := task(attemptCtx)
		done <- outcome{output: output, err: err}
	}()

	select {
	case o := <-done:
		return o.output, o.err
	case <-attemptCtx.Done():
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, types.NewRecoverable(types.CategoryTimeout, attemptCtx.Err())
		}
		return nil, attemptCtx.Err()
	}
}

func (e *PersonaExecutor) reserveTokens() error {
	if e.guard == nil || e.tokenEstimate == 0 {
		return nil
	}
	if err := e.guard.CheckAndReserve(e.tokenEstimate); err != nil {
		return err
	}
	e.collector.RecordTokensReserved(e.personaID, e.tokenEstimate)
	return nil
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
