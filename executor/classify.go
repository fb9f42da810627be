package executor

import (
	"context"
	"errors"
	"strings"

	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

// Classifier assigns an error category to a failed attempt. Categories
// feed diagnostics and escalation routing only; every category walks the
// same retry ladder.
type Classifier interface {
	Classify(err error) types.ErrorCategory
}

// DefaultClassifier is a heuristic classifier. An error that already
// carries a category (a RecoverableError built by the task itself) is
// trusted as-is; otherwise the classifier inspects the error chain and
// message.
type DefaultClassifier struct{}

// Classify implements Classifier.
func (DefaultClassifier) Classify(err error) types.ErrorCategory {
	if err == nil {
		return types.CategoryUnknown
	}

	if category, ok := types.CategoryOf(err); ok {
		return category
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return types.CategoryTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "syntax"), strings.Contains(msg, "parse error"):
		return types.CategorySyntax
	case strings.Contains(msg, "test fail"), strings.Contains(msg, "assertion"):
		return types.CategoryTestFailure
	case strings.Contains(msg, "acceptance criteria"), strings.Contains(msg, "acc violation"):
		return types.CategoryACCViolation
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return types.CategoryTimeout
	default:
		return types.CategoryUnknown
	}
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(err error) types.ErrorCategory

// Classify implements Classifier.
func (f ClassifierFunc) Classify(err error) types.ErrorCategory {
	return f(err)
}
