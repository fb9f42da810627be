package types

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies the root cause of a failed task attempt.
// Categories annotate the FailureReport for diagnostics and escalation
// routing; they do not change retry behavior.
type ErrorCategory string

const (
	CategorySyntax       ErrorCategory = "SYNTAX"
	CategoryTestFailure  ErrorCategory = "TEST_FAILURE"
	CategoryACCViolation ErrorCategory = "ACC_VIOLATION"
	CategoryTimeout      ErrorCategory = "TIMEOUT"
	CategoryUnknown      ErrorCategory = "UNKNOWN"
)

// RecoverableError marks a failure as retryable by construction and
// carries the category it was classified as. Task callables may return
// one directly to pre-classify their own failures; the executor trusts
// an attached category as-is.
type RecoverableError struct {
	Category ErrorCategory
	Cause    error
}

func (e *RecoverableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] recoverable: %v", e.Category, e.Cause)
	}
	return fmt.Sprintf("[%s] recoverable", e.Category)
}

func (e *RecoverableError) Unwrap() error {
	return e.Cause
}

// NewRecoverable wraps err as a RecoverableError with the given category.
func NewRecoverable(category ErrorCategory, err error) *RecoverableError {
	return &RecoverableError{Category: category, Cause: err}
}

// UnrecoverableError signals Level-1 retry exhaustion. It is recoverable
// only by escalating to Level 2, which re-invokes a fresh executor.
type UnrecoverableError struct {
	Report FailureReport
	Cause  error
}

func (e *UnrecoverableError) Error() string {
	return fmt.Sprintf("task %q unrecoverable after %d attempts (category %s): %s",
		e.Report.TaskName, e.Report.AttemptsExhausted, e.Report.ErrorCategory, e.Report.LastErrorMessage)
}

func (e *UnrecoverableError) Unwrap() error {
	return e.Cause
}

// TokenBudgetExceededError signals resource exhaustion rather than
// logical failure. It bypasses both retry levels: once a persona is
// bankrupt, retrying cannot help.
type TokenBudgetExceededError struct {
	PersonaID string
	Used      uint64
	Requested uint64
	Limit     uint64
}

func (e *TokenBudgetExceededError) Error() string {
	return fmt.Sprintf("persona %q token budget exceeded: used %d + requested %d > limit %d",
		e.PersonaID, e.Used, e.Requested, e.Limit)
}

// CircuitBreakerOpenError rejects work before any task code runs. It
// carries a snapshot of the breaker at rejection time.
type CircuitBreakerOpenError struct {
	Breaker BreakerSnapshot
}

func (e *CircuitBreakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open: %d consecutive failures (threshold %d)",
		e.Breaker.ConsecutiveFailures, e.Breaker.Threshold)
}

// HelpNeededError is terminal: both retry levels are exhausted and the
// failure is surfaced to a human or ticketing system. It is never
// retried automatically again.
type HelpNeededError struct {
	Report FailureReport
	Cause  error
}

func (e *HelpNeededError) Error() string {
	return fmt.Sprintf("help needed for task %q (persona %q, category %s): %s",
		e.Report.TaskName, e.Report.FailedPersona, e.Report.ErrorCategory, e.Report.LastErrorMessage)
}

func (e *HelpNeededError) Unwrap() error {
	return e.Cause
}

// IsRecoverable reports whether err is (or wraps) a RecoverableError.
func IsRecoverable(err error) bool {
	var target *RecoverableError
	return errors.As(err, &target)
}

// IsUnrecoverable reports whether err is (or wraps) an UnrecoverableError.
func IsUnrecoverable(err error) bool {
	var target *UnrecoverableError
	return errors.As(err, &target)
}

// IsTokenBudgetExceeded reports whether err is (or wraps) a TokenBudgetExceededError.
func IsTokenBudgetExceeded(err error) bool {
	var target *TokenBudgetExceededError
	return errors.As(err, &target)
}

// IsCircuitBreakerOpen reports whether err is (or wraps) a CircuitBreakerOpenError.
func IsCircuitBreakerOpen(err error) bool {
	var target *CircuitBreakerOpenError
	return errors.As(err, &target)
}

// IsHelpNeeded reports whether err is (or wraps) a HelpNeededError.
func IsHelpNeeded(err error) bool {
	var target *HelpNeededError
	return errors.As(err, &target)
}

// CategoryOf extracts the category attached to err, if any. The second
// return is false when err carries no self-identified category.
func CategoryOf(err error) (ErrorCategory, bool) {
	var target *RecoverableError
	if errors.As(err, &target) {
		return target.Category, true
	}
	return "", false
}
