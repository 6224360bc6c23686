// Package ast defines the immutable expression tree produced by the parser,
// a generic visitor over it, and structural passes (equality, substitution,
// serialization) that operate on whole trees.
package ast

import (
	"github.com/shibukawa/jmespath"
)

// Position is the 1-based source location of a node.
type Position struct {
	Line   int
	Column int
}

// Pos lets Position be embedded to satisfy Expression.
func (p Position) Pos() Position {
	return p
}

// Expression is a node of the parsed tree. Nodes are immutable after
// construction; passes that change a tree build a new one.
type Expression interface {
	Pos() Position
}

// Current selects the current value (written "@").
type Current struct {
	Position
}

// Field selects an object member by name.
type Field struct {
	Position
	Name string
}

// Index selects an array element. Negative values count from the end.
type Index struct {
	Position
	Value int
}

// Slice selects a range of an array with Python-style clamping. Start and
// Stop are nil when omitted. Step defaults to 1 when omitted; an explicit
// zero step is rejected at evaluation time.
type Slice struct {
	Position
	Start *int
	Stop  *int
	Step  int
}

// Subexpression evaluates Left, then evaluates Right against the result.
// Pipe marks "a | b", which behaves identically at evaluation time but
// stops projections on the left side.
type Subexpression struct {
	Position
	Left  Expression
	Right Expression
	Pipe  bool
}

// Flatten merges one level of nested arrays of the result of Left.
type Flatten struct {
	Position
	Left Expression
}

// Projection evaluates Right once per element of the array produced by
// Left, dropping null results.
type Projection struct {
	Position
	Left  Expression
	Right Expression
}

// ObjectProjection evaluates Right once per value of the object produced
// by Left (written "*" or ".*"), dropping null results.
type ObjectProjection struct {
	Position
	Left  Expression
	Right Expression
}

// FilterProjection evaluates Right once per element of the array produced
// by Left for which Condition is truthy, dropping null results.
type FilterProjection struct {
	Position
	Left      Expression
	Condition Expression
	Right     Expression
}

// MultiSelectList builds an array from the results of its entries.
type MultiSelectList struct {
	Position
	Expressions []Expression
}

// MultiSelectHashEntry is one key/value pair of a MultiSelectHash. Entries
// keep their written order.
type MultiSelectHashEntry struct {
	Key   string
	Value Expression
}

// MultiSelectHash builds an object from the results of its entries.
type MultiSelectHash struct {
	Position
	Entries []MultiSelectHashEntry
}

// And yields the left value when it is falsey, otherwise the right value.
type And struct {
	Position
	Left  Expression
	Right Expression
}

// Or yields the left value when it is truthy, otherwise the right value.
type Or struct {
	Position
	Left  Expression
	Right Expression
}

// Not negates the truthiness of its operand.
type Not struct {
	Position
	Expr Expression
}

// Comparator compares two values with one of the six comparison operators.
type Comparator struct {
	Position
	Type  jmespath.ComparatorType
	Left  Expression
	Right Expression
}

// Function calls a named function with evaluated arguments.
type Function struct {
	Position
	Name string
	Args []Expression
}

// Literal yields a constant decoded JSON value: nil, bool, float64,
// string, []any, or map[string]any.
type Literal struct {
	Position
	Value any
}

// ExpressionRef wraps an expression as a value (written "&expr"). It is
// never evaluated eagerly; only functions such as sort_by apply it.
type ExpressionRef struct {
	Position
	Expr Expression
}
