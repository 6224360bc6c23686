package runtime

import (
	"iter"
	"maps"
	"slices"

	"github.com/shibukawa/jmespath"
)

// StaticValue is the abstract value domain used for static analysis. A
// value is either fully known (an exact decoded JSON value), typed but
// unknown (for example "some object" returned by a function), or Any when
// even the type is unknown. Distinguishing known from typed-unknown keeps
// analysis from treating "some object" as an empty object.
type StaticValue struct {
	typ   jmespath.RuntimeType
	known bool
	value any
}

// Any is the unconstrained value: unknown type, unknown contents.
var Any = StaticValue{typ: jmespath.AnyType}

// Null is the known null value.
var Null = StaticValue{typ: jmespath.NullType, known: true}

// ExpressionRef is the opaque value of an expression reference.
var ExpressionRef = StaticValue{typ: jmespath.ExpressionType}

// Known wraps an exact decoded JSON value.
func Known(value any) StaticValue {
	if f, ok := asFloat(value); ok {
		value = f
	}
	return StaticValue{typ: Document{}.TypeOf(value), known: true, value: value}
}

// Unknown builds a value whose type is known but whose contents are not.
func Unknown(typ jmespath.RuntimeType) StaticValue {
	return StaticValue{typ: typ}
}

// Type returns the value's type; AnyType when unknown.
func (v StaticValue) Type() jmespath.RuntimeType {
	return v.typ
}

// IsKnown reports whether the exact value is known.
func (v StaticValue) IsKnown() bool {
	return v.known
}

// IsAny reports whether even the type is unknown.
func (v StaticValue) IsAny() bool {
	return v.typ == jmespath.AnyType
}

// Value returns the exact value when known.
func (v StaticValue) Value() (any, bool) {
	return v.value, v.known
}

// Truthy reports the value's truthiness, assuming truthy when the value
// is not fully known.
func (v StaticValue) Truthy() bool {
	if v.known {
		return Document{}.IsTruthy(v.value)
	}
	return true
}

// Field returns the named member of a known object and whether it exists.
func (v StaticValue) Field(name string) (StaticValue, bool) {
	if obj, ok := v.value.(map[string]any); ok && v.known {
		if member, ok := obj[name]; ok {
			return Known(member), true
		}
	}
	return Null, false
}

// Keys returns the sorted member names of a known object.
func (v StaticValue) Keys() []string {
	if obj, ok := v.value.(map[string]any); ok && v.known {
		return slices.Sorted(maps.Keys(obj))
	}
	return nil
}

// Elements returns the elements of a known array.
func (v StaticValue) Elements() ([]any, bool) {
	if arr, ok := v.value.([]any); ok && v.known {
		return arr, true
	}
	return nil, false
}

// Static realizes Interface over StaticValue. Operations that need the
// exact value fail with an invalid-type error when it is not statically
// known; the lint package treats those failures as "cannot decide".
type Static struct{}

var _ Interface[StaticValue] = Static{}

func (Static) TypeOf(value StaticValue) jmespath.RuntimeType {
	return value.typ
}

func (Static) CreateNull() StaticValue {
	return Null
}

func (Static) CreateBoolean(value bool) StaticValue {
	return Known(value)
}

func (Static) CreateString(value string) StaticValue {
	return Known(value)
}

func (Static) CreateNumber(value float64) StaticValue {
	return Known(value)
}

func (Static) AsBoolean(value StaticValue) (bool, error) {
	if v, ok := value.value.(bool); ok && value.known {
		return v, nil
	}
	return false, typeErrorf("expected a known boolean, but found %s", value.typ)
}

func (Static) AsString(value StaticValue) (string, error) {
	if v, ok := value.value.(string); ok && value.known {
		return v, nil
	}
	return "", typeErrorf("expected a known string, but found %s", value.typ)
}

func (Static) AsNumber(value StaticValue) (float64, error) {
	if v, ok := value.value.(float64); ok && value.known {
		return v, nil
	}
	return 0, typeErrorf("expected a known number, but found %s", value.typ)
}

func (Static) Length(value StaticValue) (int, error) {
	if value.known {
		return Document{}.Length(value.value)
	}
	return 0, typeErrorf("length of %s is not statically known", value.typ)
}

func (Static) Field(object StaticValue, name string) (StaticValue, error) {
	if object.known {
		if _, ok := object.value.(map[string]any); ok {
			member, _ := object.Field(name)
			return member, nil
		}
		return Any, typeErrorf("expected object, but found %s", object.typ)
	}
	switch object.typ {
	case jmespath.ObjectType, jmespath.AnyType:
		return Any, nil
	default:
		return Any, typeErrorf("expected object, but found %s", object.typ)
	}
}

func (Static) Element(array StaticValue, index int) (StaticValue, error) {
	if array.known {
		if arr, ok := array.value.([]any); ok {
			if index < 0 {
				index += len(arr)
			}
			if index < 0 || index >= len(arr) {
				return Null, nil
			}
			return Known(arr[index]), nil
		}
		return Any, typeErrorf("expected array, but found %s", array.typ)
	}
	switch array.typ {
	case jmespath.ArrayType, jmespath.AnyType:
		return Any, nil
	default:
		return Any, typeErrorf("expected array, but found %s", array.typ)
	}
}

func (Static) Iterate(value StaticValue) (iter.Seq[StaticValue], error) {
	if !value.known {
		return nil, typeErrorf("contents of %s are not statically known", value.typ)
	}
	switch v := value.value.(type) {
	case []any:
		return func(yield func(StaticValue) bool) {
			for _, element := range v {
				if !yield(Known(element)) {
					return
				}
			}
		}, nil
	case map[string]any:
		keys := slices.Sorted(maps.Keys(v))
		return func(yield func(StaticValue) bool) {
			for _, key := range keys {
				if !yield(Known(key)) {
					return
				}
			}
		}, nil
	default:
		return nil, typeErrorf("expected array or object, but found %s", value.typ)
	}
}

func (Static) ArrayBuilder() ArrayBuilder[StaticValue] {
	return &staticArrayBuilder{allKnown: true}
}

func (Static) ObjectBuilder() ObjectBuilder[StaticValue] {
	return &staticObjectBuilder{values: map[string]any{}, allKnown: true}
}

// Equal decides equality when possible: two known values compare exactly,
// and two values of different concrete types are unequal regardless of
// contents. Everything else is not statically known.
func (Static) Equal(a, b StaticValue) (bool, error) {
	if a.known && b.known {
		return documentEqual(a.value, b.value), nil
	}
	if !a.IsAny() && !b.IsAny() && a.typ != b.typ {
		return false, nil
	}
	return false, typeErrorf("equality of %s and %s is not statically known", a.typ, b.typ)
}

func (Static) Compare(a, b StaticValue) (int, error) {
	if a.known && b.known {
		return Document{}.Compare(a.value, b.value)
	}
	return 0, typeErrorf("ordering of %s and %s is not statically known", a.typ, b.typ)
}

func (Static) IsTruthy(value StaticValue) bool {
	return value.Truthy()
}

type staticArrayBuilder struct {
	values   []any
	allKnown bool
}

func (b *staticArrayBuilder) Add(value StaticValue) {
	if !value.known {
		b.allKnown = false
		return
	}
	b.values = append(b.values, value.value)
}

func (b *staticArrayBuilder) AddAll(array StaticValue) error {
	if arr, ok := array.Elements(); ok {
		b.values = append(b.values, arr...)
		return nil
	}
	switch array.typ {
	case jmespath.ArrayType, jmespath.AnyType:
		b.allKnown = false
		return nil
	default:
		return typeErrorf("expected array, but found %s", array.typ)
	}
}

func (b *staticArrayBuilder) Build() StaticValue {
	if !b.allKnown {
		return Unknown(jmespath.ArrayType)
	}
	if b.values == nil {
		return Known([]any{})
	}
	return Known(b.values)
}

type staticObjectBuilder struct {
	values   map[string]any
	allKnown bool
}

func (b *staticObjectBuilder) Put(key string, value StaticValue) {
	if !value.known {
		b.allKnown = false
		return
	}
	b.values[key] = value.value
}

func (b *staticObjectBuilder) PutAll(object StaticValue) error {
	if obj, ok := object.value.(map[string]any); ok && object.known {
		maps.Copy(b.values, obj)
		return nil
	}
	switch object.typ {
	case jmespath.ObjectType, jmespath.AnyType:
		b.allKnown = false
		return nil
	default:
		return typeErrorf("expected object, but found %s", object.typ)
	}
}

func (b *staticObjectBuilder) Build() StaticValue {
	if !b.allKnown {
		return Unknown(jmespath.ObjectType)
	}
	return Known(b.values)
}
