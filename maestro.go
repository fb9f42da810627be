// Package maestro provides a top-level convenience entry point for the
// two-level retry ladder with minimal boilerplate.
//
// Usage:
//
//	import "github.com/kulbirminhas-aiinitiative/maestro-platform-sub023"
//
//	rt, err := maestro.New("developer")
//	result, err := rt.ExecuteSafe(ctx, "implement-feature", task)
//
// New wires a token budget guard, a fresh-executor factory and a
// circuit-breaker-gated safety wrapper from one config. Callers needing
// finer control build the executor and safety packages directly.
package maestro

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/budget"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/config"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/executor"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/internal/metrics"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/persistence"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/safety"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

// Runtime bundles the wired retry ladder for one persona.
type Runtime struct {
	personaID     string
	cfg           *config.Config
	logger        *zap.Logger
	guard         *budget.Guard
	estimator     budget.Estimator
	tokenEstimate uint64
	wrapper       *safety.Wrapper
	store         persistence.Store
	escalator     safety.Escalator
	collector     *metrics.Collector
	validator     executor.SyntaxValidator
}

// Option configures the runtime created by [New].
type Option func(*Runtime)

// WithConfig replaces the environment-loaded config.
func WithConfig(cfg *config.Config) Option {
	return func(r *Runtime) { r.cfg = cfg }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEstimator sets the token estimator behind [Runtime.EstimateTokens].
// The default estimates with tiktoken's cl100k_base encoding.
func WithEstimator(e budget.Estimator) Option {
	return func(r *Runtime) {
		if e != nil {
			r.estimator = e
		}
	}
}

// WithTokenEstimate sets the tokens reserved against the persona budget
// per attempt, typically priced via [Runtime.EstimateTokens] on the
// prompt. Zero (the default) skips the pre-flight reservation.
func WithTokenEstimate(tokens uint64) Option {
	return func(r *Runtime) { r.tokenEstimate = tokens }
}

// WithStore persists every Level-2 result as a checkpoint after the
// ladder finishes, success or not.
func WithStore(store persistence.Store) Option {
	return func(r *Runtime) { r.store = store }
}

// WithEscalator sets the escalation sink.
func WithEscalator(e safety.Escalator) Option {
	return func(r *Runtime) { r.escalator = e }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Runtime) { r.collector = c }
}

// WithSyntaxValidator replaces the default Go syntax validator applied
// when syntax validation is enabled in the config.
func WithSyntaxValidator(v executor.SyntaxValidator) Option {
	return func(r *Runtime) { r.validator = v }
}

// New wires a ready runtime for one persona. Without WithConfig the
// config is loaded from defaults plus MAESTRO_* environment overrides.
func New(personaID string, opts ...Option) (*Runtime, error) {
	if personaID == "" {
		return nil, fmt.Errorf("maestro: persona id must not be empty")
	}

	r := &Runtime{
		personaID: personaID,
		logger:    zap.NewNop(),
		estimator: budget.NewTiktokenEstimator("cl100k_base"),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.cfg == nil {
		cfg, err := config.New()
		if err != nil {
			return nil, fmt.Errorf("maestro: load config: %w", err)
		}
		r.cfg = cfg
	}

	if r.cfg.Token.EnforceBudget {
		r.guard = budget.NewGuard(personaID, r.cfg.Token.MaxTokensPerPersona, r.logger)
	}

	factory := func(level2Attempt int) safety.Level1Executor {
		execOpts := []executor.Option{
			executor.WithLogger(r.logger),
			executor.WithMetrics(r.collector),
		}
		if r.guard != nil {
			execOpts = append(execOpts,
				executor.WithGuard(r.guard),
				executor.WithTokenEstimate(r.tokenEstimate),
			)
		}
		if r.validator != nil {
			execOpts = append(execOpts, executor.WithSyntaxValidator(r.validator))
		}
		return executor.New(personaID, &r.cfg.Level1, execOpts...)
	}

	wrapperOpts := []safety.WrapperOption{
		safety.WithLogger(r.logger),
		safety.WithMetrics(r.collector),
	}
	if r.escalator != nil {
		wrapperOpts = append(wrapperOpts, safety.WithEscalator(r.escalator))
	}
	r.wrapper = safety.NewWrapper(personaID, &r.cfg.Level2, factory, wrapperOpts...)

	return r, nil
}

// ExecuteSafe runs the task through the full ladder and, when a store
// is attached, checkpoints the Level-2 result. A checkpoint failure is
// logged and never replaces the execution outcome.
func (r *Runtime) ExecuteSafe(ctx context.Context, taskName string, task executor.TaskFunc) (*types.Level2Result, error) {
	result, err := r.wrapper.ExecuteSafe(ctx, taskName, task)

	if r.store != nil && result != nil {
		if serr := r.store.SaveCheckpoint(context.WithoutCancel(ctx), result); serr != nil {
			r.logger.Error("checkpoint failed",
				zap.String("task_name", taskName),
				zap.Error(serr),
			)
		}
	}
	return result, err
}

// EstimateTokens prices a prompt with the runtime's estimator.
func (r *Runtime) EstimateTokens(prompt string) uint64 {
	return r.estimator.EstimateTokens(prompt)
}

// Config returns the runtime's immutable config.
func (r *Runtime) Config() *config.Config {
	return r.cfg
}

// Guard returns the persona's budget guard, or nil when budget
// enforcement is disabled.
func (r *Runtime) Guard() *budget.Guard {
	return r.guard
}

// Wrapper returns the Level-2 safety wrapper.
func (r *Runtime) Wrapper() *safety.Wrapper {
	return r.wrapper
}
