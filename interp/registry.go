// Package interp evaluates parsed expressions against a document. The
// evaluator is generic over the value representation, so the same tree
// walk runs over decoded JSON (runtime.Document) and over the abstract
// domain the lint package analyzes (runtime.Static).
package interp

import (
	"fmt"
	"strings"

	"github.com/shibukawa/jmespath"
	"github.com/shibukawa/jmespath/ast"
	"github.com/shibukawa/jmespath/runtime"
)

// ArgValidator statically validates one function argument. It returns an
// empty string when the argument is acceptable, otherwise a description of
// the mismatch. Validators only flag arguments whose type is concretely
// known; unknown values always pass.
type ArgValidator func(value runtime.StaticValue) string

// IsType accepts arguments of exactly one type. IsType(AnyType) accepts
// everything.
func IsType(typ jmespath.RuntimeType) ArgValidator {
	return func(value runtime.StaticValue) string {
		if typ == jmespath.AnyType || value.IsAny() || value.Type() == typ {
			return ""
		}
		return fmt.Sprintf("Expected argument to be %s, but found %s", typ, value.Type())
	}
}

// OneOf accepts arguments whose type is any of the given types.
func OneOf(types ...jmespath.RuntimeType) ArgValidator {
	names := make([]string, len(types))
	for i, typ := range types {
		names[i] = typ.String()
	}
	expected := "[" + strings.Join(names, ", ") + "]"
	return func(value runtime.StaticValue) string {
		if value.IsAny() {
			return ""
		}
		for _, typ := range types {
			if value.Type() == typ {
				return ""
			}
		}
		return fmt.Sprintf("Expected one of %s, but found %s", expected, value.Type())
	}
}

// ListOfType accepts arrays whose elements all have the given type.
// Element types are only checked when the array value is fully known.
func ListOfType(typ jmespath.RuntimeType) ArgValidator {
	return func(value runtime.StaticValue) string {
		if value.IsAny() {
			return ""
		}
		if value.Type() != jmespath.ArrayType {
			return fmt.Sprintf("Expected an array of %s, but found %s", typ, value.Type())
		}
		elements, known := value.Elements()
		if !known {
			return ""
		}
		for i, element := range elements {
			if actual := runtime.Known(element).Type(); actual != typ {
				return fmt.Sprintf("Expected an array of %s, but found %s at index %d", typ, actual, i)
			}
		}
		return ""
	}
}

// Signature describes a function's contract: its return type, one
// validator per positional argument, and an optional validator applied to
// every trailing argument of a variadic function. The evaluator enforces
// arity from it; the lint package additionally runs the validators
// against statically inferred argument types.
type Signature struct {
	Returns  jmespath.RuntimeType
	Args     []ArgValidator
	Variadic ArgValidator
}

// Argument is one evaluated function argument, either a plain value or an
// unevaluated expression reference.
type Argument[T any] struct {
	value T
	expr  ast.Expression
}

// ValueArgument wraps an already evaluated value.
func ValueArgument[T any](value T) Argument[T] {
	return Argument[T]{value: value}
}

// ExpressionArgument wraps the body of an expression reference.
func ExpressionArgument[T any](expr ast.Expression) Argument[T] {
	return Argument[T]{expr: expr}
}

// IsExpression reports whether the argument is an expression reference.
func (a Argument[T]) IsExpression() bool {
	return a.expr != nil
}

// Value returns the evaluated value. Only meaningful for value arguments.
func (a Argument[T]) Value() T {
	return a.value
}

// Expression returns the referenced expression body. Only meaningful for
// expression arguments.
func (a Argument[T]) Expression() ast.Expression {
	return a.expr
}

// Call carries everything a function implementation needs: the runtime,
// the evaluated arguments, and access back into the evaluator so
// higher-order functions can apply expression references.
type Call[T any] struct {
	Name     string
	Runtime  runtime.Interface[T]
	Args     []Argument[T]
	registry *Registry[T]
}

// Apply evaluates an expression reference body against one value. Used by
// sort_by, min_by, max_by, and map.
func (c *Call[T]) Apply(expr ast.Expression, value T) (T, error) {
	return Evaluate(expr, value, c.Runtime, c.registry)
}

// Func implements one function.
type Func[T any] func(call *Call[T]) (T, error)

// Function pairs an implementation with its signature.
type Function[T any] struct {
	Signature Signature
	Call      Func[T]
}

// Registry maps function names to implementations. The zero value is not
// usable; construct with NewRegistry, which installs the built-ins.
type Registry[T any] struct {
	functions map[string]Function[T]
}

// NewRegistry returns a registry holding the built-in functions.
func NewRegistry[T any]() *Registry[T] {
	r := &Registry[T]{functions: make(map[string]Function[T])}
	registerBuiltins(r)
	return r
}

// Register adds a function under a new name. Registering a name twice is
// a programming error and panics.
func (r *Registry[T]) Register(name string, fn Function[T]) {
	if _, ok := r.functions[name]; ok {
		panic(fmt.Sprintf("jmespath: function %q registered twice", name))
	}
	r.functions[name] = fn
}

// Lookup returns the function registered under name.
func (r *Registry[T]) Lookup(name string) (Function[T], bool) {
	fn, ok := r.functions[name]
	return fn, ok
}

// Signatures returns a copy of the name to signature mapping, for static
// analysis of calls against this registry.
func (r *Registry[T]) Signatures() map[string]Signature {
	sigs := make(map[string]Signature, len(r.functions))
	for name, fn := range r.functions {
		sigs[name] = fn.Signature
	}
	return sigs
}

// DefaultSignatures returns the signatures of the built-in functions.
func DefaultSignatures() map[string]Signature {
	sigs := make(map[string]Signature, len(builtinSignatures))
	for name, sig := range builtinSignatures {
		sigs[name] = sig
	}
	return sigs
}

var builtinSignatures = map[string]Signature{
	"abs":         {Returns: jmespath.NumberType, Args: []ArgValidator{IsType(jmespath.NumberType)}},
	"avg":         {Returns: jmespath.NumberType, Args: []ArgValidator{ListOfType(jmespath.NumberType)}},
	"ceil":        {Returns: jmespath.NumberType, Args: []ArgValidator{IsType(jmespath.NumberType)}},
	"contains":    {Returns: jmespath.BooleanType, Args: []ArgValidator{OneOf(jmespath.ArrayType, jmespath.StringType), IsType(jmespath.AnyType)}},
	"ends_with":   {Returns: jmespath.BooleanType, Args: []ArgValidator{IsType(jmespath.StringType), IsType(jmespath.StringType)}},
	"floor":       {Returns: jmespath.NumberType, Args: []ArgValidator{IsType(jmespath.NumberType)}},
	"join":        {Returns: jmespath.StringType, Args: []ArgValidator{IsType(jmespath.StringType), ListOfType(jmespath.StringType)}},
	"keys":        {Returns: jmespath.ArrayType, Args: []ArgValidator{IsType(jmespath.ObjectType)}},
	"length":      {Returns: jmespath.NumberType, Args: []ArgValidator{OneOf(jmespath.StringType, jmespath.ArrayType, jmespath.ObjectType)}},
	"map":         {Returns: jmespath.ArrayType, Args: []ArgValidator{IsType(jmespath.ExpressionType), IsType(jmespath.ArrayType)}},
	"max":         {Returns: jmespath.NumberType, Args: []ArgValidator{IsType(jmespath.ArrayType)}},
	"max_by":      {Returns: jmespath.NumberType, Args: []ArgValidator{IsType(jmespath.ArrayType), IsType(jmespath.ExpressionType)}},
	"merge":       {Returns: jmespath.ObjectType, Variadic: IsType(jmespath.ObjectType)},
	"min":         {Returns: jmespath.NumberType, Args: []ArgValidator{IsType(jmespath.ArrayType)}},
	"min_by":      {Returns: jmespath.NumberType, Args: []ArgValidator{IsType(jmespath.ArrayType), IsType(jmespath.ExpressionType)}},
	"not_null":    {Returns: jmespath.AnyType, Args: []ArgValidator{IsType(jmespath.AnyType)}, Variadic: IsType(jmespath.AnyType)},
	"reverse":     {Returns: jmespath.ArrayType, Args: []ArgValidator{OneOf(jmespath.ArrayType, jmespath.StringType)}},
	"sort":        {Returns: jmespath.ArrayType, Args: []ArgValidator{IsType(jmespath.ArrayType)}},
	"sort_by":     {Returns: jmespath.ArrayType, Args: []ArgValidator{IsType(jmespath.ArrayType), IsType(jmespath.ExpressionType)}},
	"starts_with": {Returns: jmespath.BooleanType, Args: []ArgValidator{IsType(jmespath.StringType), IsType(jmespath.StringType)}},
	"sum":         {Returns: jmespath.NumberType, Args: []ArgValidator{ListOfType(jmespath.NumberType)}},
	"to_array":    {Returns: jmespath.ArrayType, Args: []ArgValidator{IsType(jmespath.AnyType)}},
	"to_number":   {Returns: jmespath.NumberType, Args: []ArgValidator{IsType(jmespath.AnyType)}},
	"to_string":   {Returns: jmespath.StringType, Args: []ArgValidator{IsType(jmespath.AnyType)}},
	"type":        {Returns: jmespath.StringType, Args: []ArgValidator{IsType(jmespath.AnyType)}},
	"values":      {Returns: jmespath.ArrayType, Args: []ArgValidator{IsType(jmespath.ObjectType)}},
}
