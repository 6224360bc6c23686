package jmespath

import (
	"cmp"
	"fmt"
)

// Severity ranks a static-analysis finding.
type Severity int

const (
	// SeverityWarning flags an expression that evaluates, but almost
	// certainly not the way the author intended (for example ordering
	// comparators over booleans, which always yield null).
	SeverityWarning Severity = iota
	// SeverityDanger flags an expression that yields null at runtime for
	// the analyzed input, such as a missing object field.
	SeverityDanger
	// SeverityError flags an expression that fails at runtime, such as a
	// call to an unknown function.
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityDanger:
		return "DANGER"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Problem is a single static-analysis finding. Line and Column are 1-based.
type Problem struct {
	Severity Severity
	Line     int
	Column   int
	Message  string
}

// String renders the finding as "[SEVERITY] message (line:column)".
func (p Problem) String() string {
	return fmt.Sprintf("[%s] %s (%d:%d)", p.Severity, p.Message, p.Line, p.Column)
}

// Compare totally orders problems (severity first, errors before warnings,
// then position, then message) so reports are deterministic.
func (p Problem) Compare(o Problem) int {
	return cmp.Or(
		cmp.Compare(o.Severity, p.Severity),
		cmp.Compare(p.Line, o.Line),
		cmp.Compare(p.Column, o.Column),
		cmp.Compare(p.Message, o.Message),
	)
}

// LintResult is the outcome of statically checking an expression: the
// inferred result type and every problem found, in Compare order.
type LintResult struct {
	Type     RuntimeType
	Problems []Problem
}

// OK reports whether no problems were found.
func (r LintResult) OK() bool {
	return len(r.Problems) == 0
}
