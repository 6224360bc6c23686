// Package jmespath holds the vocabulary shared by the tokenizer, parser,
// evaluator, and linter: value and comparator classifications, the tagged
// error type, and static-analysis findings. The subpackages do the work:
// parser parses query expressions, interp evaluates them, lint checks
// them statically.
package jmespath

// RuntimeType classifies a value during evaluation or static analysis.
type RuntimeType int

const (
	NullType RuntimeType = iota
	BooleanType
	StringType
	NumberType
	ArrayType
	ObjectType
	// ExpressionType is the type of an expression reference passed to a
	// function. It never appears inside a document.
	ExpressionType
	// AnyType marks a statically unknown value. It only exists in the
	// abstract domain used by the lint package.
	AnyType
)

// String returns the lower-case name used in diagnostics and by the
// type() built-in.
func (t RuntimeType) String() string {
	switch t {
	case NullType:
		return "null"
	case BooleanType:
		return "boolean"
	case StringType:
		return "string"
	case NumberType:
		return "number"
	case ArrayType:
		return "array"
	case ObjectType:
		return "object"
	case ExpressionType:
		return "expression"
	case AnyType:
		return "any"
	default:
		return "unknown"
	}
}

// ComparatorType identifies one of the six comparison operators.
type ComparatorType int

const (
	Equal ComparatorType = iota
	NotEqual
	GreaterThan
	GreaterThanEqual
	LessThan
	LessThanEqual
)

// String returns the operator as written in an expression.
func (c ComparatorType) String() string {
	switch c {
	case Equal:
		return "=="
	case NotEqual:
		return "!="
	case GreaterThan:
		return ">"
	case GreaterThanEqual:
		return ">="
	case LessThan:
		return "<"
	case LessThanEqual:
		return "<="
	default:
		return "unknown"
	}
}

// Ordered reports whether the comparator requires an ordering between its
// operands. Equality comparators work on every type pair; ordering
// comparators only on matching strings or numbers.
func (c ComparatorType) Ordered() bool {
	return c != Equal && c != NotEqual
}
