package types

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// RecoverableError
// ---------------------------------------------------------------------------

func TestRecoverableError(t *testing.T) {
	cause := errors.New("gofmt exploded")
	err := NewRecoverable(CategorySyntax, cause)

	assert.Contains(t, err.Error(), "SYNTAX")
	assert.Contains(t, err.Error(), "gofmt exploded")
	assert.ErrorIs(t, err, cause)

	assert.True(t, IsRecoverable(err))
	assert.True(t, IsRecoverable(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsRecoverable(cause))

	cat, ok := CategoryOf(fmt.Errorf("wrapped: %w", err))
	require.True(t, ok)
	assert.Equal(t, CategorySyntax, cat)

	_, ok = CategoryOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestRecoverableError_NoCause(t *testing.T) {
	err := &RecoverableError{Category: CategoryTestFailure}
	assert.Contains(t, err.Error(), "TEST_FAILURE")
	assert.NoError(t, err.Unwrap())
}

// ---------------------------------------------------------------------------
// UnrecoverableError
// ---------------------------------------------------------------------------

func TestUnrecoverableError(t *testing.T) {
	cause := errors.New("still broken")
	err := &UnrecoverableError{
		Report: FailureReport{
			FailedPersona:     "coder-1",
			TaskName:          "generate_handler",
			ErrorCategory:     CategoryUnknown,
			AttemptsExhausted: 3,
			LastErrorMessage:  "still broken",
		},
		Cause: cause,
	}

	assert.Contains(t, err.Error(), "generate_handler")
	assert.Contains(t, err.Error(), "3 attempts")
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsUnrecoverable(err))
	assert.False(t, IsUnrecoverable(cause))
}

// ---------------------------------------------------------------------------
// TokenBudgetExceededError
// ---------------------------------------------------------------------------

func TestTokenBudgetExceededError(t *testing.T) {
	err := &TokenBudgetExceededError{
		PersonaID: "coder-1",
		Used:      99000,
		Requested: 2000,
		Limit:     100000,
	}

	assert.Contains(t, err.Error(), "coder-1")
	assert.Contains(t, err.Error(), "99000")
	assert.Contains(t, err.Error(), "100000")
	assert.True(t, IsTokenBudgetExceeded(err))
	assert.True(t, IsTokenBudgetExceeded(fmt.Errorf("budget gate: %w", err)))
	assert.False(t, IsTokenBudgetExceeded(errors.New("other")))
}

// ---------------------------------------------------------------------------
// CircuitBreakerOpenError
// ---------------------------------------------------------------------------

func TestCircuitBreakerOpenError(t *testing.T) {
	err := &CircuitBreakerOpenError{
		Breaker: BreakerSnapshot{
			State:               "Open",
			ConsecutiveFailures: 5,
			Threshold:           5,
			CooldownSeconds:     60,
		},
	}

	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.True(t, IsCircuitBreakerOpen(err))
	assert.False(t, IsCircuitBreakerOpen(errors.New("other")))
}

// ---------------------------------------------------------------------------
// HelpNeededError
// ---------------------------------------------------------------------------

func TestHelpNeededError(t *testing.T) {
	cause := errors.New("exhausted")
	err := &HelpNeededError{
		Report: FailureReport{
			FailedPersona:     "coder-1",
			TaskName:          "generate_handler",
			ErrorCategory:     CategoryTimeout,
			AttemptsExhausted: 2,
			LastErrorMessage:  "exhausted",
			Timestamp:         time.Now(),
		},
		Cause: cause,
	}

	assert.Contains(t, err.Error(), "help needed")
	assert.Contains(t, err.Error(), "coder-1")
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsHelpNeeded(err))
	assert.False(t, IsHelpNeeded(cause))
}

// ---------------------------------------------------------------------------
// Taxonomy is mutually exclusive at the call site
// ---------------------------------------------------------------------------

func TestTaxonomy_Exclusive(t *testing.T) {
	budget := &TokenBudgetExceededError{Limit: 10}
	open := &CircuitBreakerOpenError{}
	help := &HelpNeededError{}

	assert.False(t, IsRecoverable(budget))
	assert.False(t, IsUnrecoverable(open))
	assert.False(t, IsTokenBudgetExceeded(help))
	assert.False(t, IsHelpNeeded(budget))
	assert.False(t, IsCircuitBreakerOpen(help))
}
