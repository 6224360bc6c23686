package runtime

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/jmespath"
)

func TestStaticValueBasics(t *testing.T) {
	known := Known(map[string]any{"a": 1.0})
	assert.Equal(t, jmespath.ObjectType, known.Type())
	assert.True(t, known.IsKnown())
	assert.False(t, known.IsAny())

	member, ok := known.Field("a")
	assert.True(t, ok)
	value, _ := member.Value()
	assert.Equal(t, 1.0, value.(float64))

	missing, ok := known.Field("b")
	assert.False(t, ok)
	assert.Equal(t, jmespath.NullType, missing.Type())

	unknown := Unknown(jmespath.ObjectType)
	assert.False(t, unknown.IsKnown())
	_, ok = unknown.Field("a")
	assert.False(t, ok)

	assert.True(t, Any.IsAny())
	assert.False(t, Any.IsKnown())
}

func TestStaticValueKnownNormalizesNumbers(t *testing.T) {
	value, _ := Known(3).Value()
	assert.Equal(t, 3.0, value.(float64))
	assert.Equal(t, jmespath.NumberType, Known(3).Type())
}

func TestStaticValueTruthiness(t *testing.T) {
	assert.False(t, Null.Truthy())
	assert.False(t, Known(false).Truthy())
	assert.False(t, Known("").Truthy())
	assert.False(t, Known([]any{}).Truthy())
	assert.True(t, Known(0.0).Truthy())
	assert.True(t, Known("a").Truthy())
	// Unknown values are assumed truthy.
	assert.True(t, Any.Truthy())
	assert.True(t, Unknown(jmespath.BooleanType).Truthy())
}

func TestStaticFieldNarrowing(t *testing.T) {
	s := Static{}

	narrowed, err := s.Field(Known(map[string]any{"a": []any{1.0}}), "a")
	assert.NoError(t, err)
	assert.Equal(t, jmespath.ArrayType, narrowed.Type())
	assert.True(t, narrowed.IsKnown())

	// Unknown object: the member could be anything.
	member, err := s.Field(Unknown(jmespath.ObjectType), "a")
	assert.NoError(t, err)
	assert.True(t, member.IsAny())

	_, err = s.Field(Known(true), "a")
	assert.Error(t, err)
}

func TestStaticElementNarrowing(t *testing.T) {
	s := Static{}

	element, err := s.Element(Known([]any{"a", "b"}), -1)
	assert.NoError(t, err)
	value, _ := element.Value()
	assert.Equal(t, "b", value.(string))

	outOfRange, err := s.Element(Known([]any{"a"}), 4)
	assert.NoError(t, err)
	assert.Equal(t, jmespath.NullType, outOfRange.Type())

	unknown, err := s.Element(Unknown(jmespath.ArrayType), 0)
	assert.NoError(t, err)
	assert.True(t, unknown.IsAny())

	_, err = s.Element(Known("str"), 0)
	assert.Error(t, err)
}

func TestStaticEqual(t *testing.T) {
	s := Static{}

	equal, err := s.Equal(Known(1.0), Known(1.0))
	assert.NoError(t, err)
	assert.True(t, equal)

	// Concretely different types are decidedly unequal even when the
	// values are unknown.
	equal, err = s.Equal(Unknown(jmespath.StringType), Unknown(jmespath.NumberType))
	assert.NoError(t, err)
	assert.False(t, equal)

	_, err = s.Equal(Any, Known(1.0))
	assert.Error(t, err)

	_, err = s.Equal(Unknown(jmespath.NumberType), Known(1.0))
	assert.Error(t, err)
}

func TestStaticBuilders(t *testing.T) {
	s := Static{}

	ab := s.ArrayBuilder()
	ab.Add(Known(1.0))
	ab.Add(Known("x"))
	built := ab.Build()
	assert.True(t, built.IsKnown())
	elements, ok := built.Elements()
	assert.True(t, ok)
	assert.Equal(t, []any{1.0, "x"}, elements)

	// One unknown element degrades the array to typed-unknown.
	ab = s.ArrayBuilder()
	ab.Add(Known(1.0))
	ab.Add(Any)
	built = ab.Build()
	assert.False(t, built.IsKnown())
	assert.Equal(t, jmespath.ArrayType, built.Type())

	ob := s.ObjectBuilder()
	ob.Put("a", Known(1.0))
	assert.NoError(t, ob.PutAll(Known(map[string]any{"b": 2.0})))
	builtObj := ob.Build()
	assert.True(t, builtObj.IsKnown())
	assert.Equal(t, []string{"a", "b"}, builtObj.Keys())

	ob = s.ObjectBuilder()
	ob.Put("a", Unknown(jmespath.NumberType))
	assert.False(t, ob.Build().IsKnown())
}
