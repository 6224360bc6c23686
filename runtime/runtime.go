// Package runtime abstracts the value representation the evaluator works
// on. The concrete Document realization evaluates over decoded JSON; the
// Static realization evaluates over partially known values and backs the
// lint package. Callers can plug their own document model by implementing
// Interface.
package runtime

import (
	"iter"

	"github.com/shibukawa/jmespath"
)

// Interface adapts a value representation T for evaluation. Implementations
// must be cheap to copy; evaluators pass them by value.
//
// Conversions (AsBoolean, AsString, AsNumber) fail with an invalid-type
// error when the value has a different type. Field returns null for a
// missing member and fails on non-objects. Element supports negative
// indices counting from the end and returns null when out of range.
type Interface[T any] interface {
	// TypeOf classifies the value.
	TypeOf(value T) jmespath.RuntimeType

	CreateNull() T
	CreateBoolean(value bool) T
	CreateString(value string) T
	CreateNumber(value float64) T

	AsBoolean(value T) (bool, error)
	AsString(value T) (string, error)
	AsNumber(value T) (float64, error)

	// Length returns the number of code points of a string, elements of
	// an array, or entries of an object.
	Length(value T) (int, error)
	// Field returns the named member of an object, or null when missing.
	Field(object T, name string) (T, error)
	// Element returns the array element at index. Negative indices count
	// from the end; out-of-range indices yield null.
	Element(array T, index int) (T, error)
	// Iterate yields array elements in order, or object keys as string
	// values in deterministic order.
	Iterate(value T) (iter.Seq[T], error)

	ArrayBuilder() ArrayBuilder[T]
	ObjectBuilder() ObjectBuilder[T]

	// Equal compares two values by JSON semantics. Values of different
	// types are unequal. Document never fails; abstract realizations fail
	// when the answer is not statically known.
	Equal(a, b T) (bool, error)
	// Compare totally orders two strings or two numbers, failing for any
	// other combination.
	Compare(a, b T) (int, error)
	// IsTruthy reports the truthiness used by And, Or, Not, and filters:
	// null, false, empty strings, empty arrays, and empty objects are
	// falsey, every other value (including 0) is truthy.
	IsTruthy(value T) bool
}

// ArrayBuilder accumulates values into a new array.
type ArrayBuilder[T any] interface {
	Add(value T)
	// AddAll appends every element of an existing array value.
	AddAll(array T) error
	Build() T
}

// ObjectBuilder accumulates members into a new object. Put overwrites
// earlier members with the same key.
type ObjectBuilder[T any] interface {
	Put(key string, value T)
	// PutAll copies every member of an existing object value.
	PutAll(object T) error
	Build() T
}
