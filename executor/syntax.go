package executor

import (
	"fmt"
	"go/parser"
	"go/token"
)

// SyntaxValidator checks a successful attempt's output before the
// executor accepts it. A validation failure is treated as a SYNTAX
// attempt failure and, with self-healing enabled, retried like any
// other recoverable error.
type SyntaxValidator interface {
	Validate(output any) error
}

// GoSyntaxValidator parses string outputs as Go source. Non-string
// outputs pass untouched; validation only applies to personas that emit
// code.
type GoSyntaxValidator struct{}

// Validate implements SyntaxValidator.
func (GoSyntaxValidator) Validate(output any) error {
	src, ok := output.(string)
	if !ok || src == "" {
		return nil
	}

	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, "output.go", src, parser.AllErrors); err != nil {
		return fmt.Errorf("syntax validation failed: %w", err)
	}
	return nil
}

// ValidatorFunc adapts a plain function to the SyntaxValidator interface.
type ValidatorFunc func(output any) error

// Validate implements SyntaxValidator.
func (f ValidatorFunc) Validate(output any) error {
	return f(output)
}
