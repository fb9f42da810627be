package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

func TestDefaultClassifier(t *testing.T) {
	c := DefaultClassifier{}

	tests := []struct {
		name string
		err  error
		want types.ErrorCategory
	}{
		{"nil error", nil, types.CategoryUnknown},
		{"deadline exceeded", context.DeadlineExceeded, types.CategoryTimeout},
		{"wrapped deadline", fmt.Errorf("attempt: %w", context.DeadlineExceeded), types.CategoryTimeout},
		{"syntax message", errors.New("syntax error near line 3"), types.CategorySyntax},
		{"parse message", errors.New("parse error: unexpected EOF"), types.CategorySyntax},
		{"test failure message", errors.New("test failed: TestFoo"), types.CategoryTestFailure},
		{"assertion message", errors.New("assertion mismatch"), types.CategoryTestFailure},
		{"acc message", errors.New("acceptance criteria not met"), types.CategoryACCViolation},
		{"timeout message", errors.New("operation timeout"), types.CategoryTimeout},
		{"unknown", errors.New("something odd"), types.CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.err))
		})
	}
}

func TestDefaultClassifier_TrustsAttachedCategory(t *testing.T) {
	c := DefaultClassifier{}

	// The message says "timeout" but the attached category wins.
	err := types.NewRecoverable(types.CategoryTestFailure, errors.New("timeout waiting for test runner"))
	assert.Equal(t, types.CategoryTestFailure, c.Classify(err))
}

func TestClassifierFunc(t *testing.T) {
	c := ClassifierFunc(func(err error) types.ErrorCategory {
		return types.CategoryACCViolation
	})
	assert.Equal(t, types.CategoryACCViolation, c.Classify(errors.New("anything")))
}

func TestGoSyntaxValidator(t *testing.T) {
	v := GoSyntaxValidator{}

	assert.NoError(t, v.Validate("package main\n\nfunc main() {}\n"))
	assert.Error(t, v.Validate("package main\n\nfunc main() {"))
	assert.NoError(t, v.Validate(""), "empty output passes")
	assert.NoError(t, v.Validate(12345), "non-string output passes")
	assert.NoError(t, v.Validate(nil))
}
