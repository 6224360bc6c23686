package runtime

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/jmespath"
)

func TestDocumentTypeOf(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected jmespath.RuntimeType
	}{
		{name: "null", value: nil, expected: jmespath.NullType},
		{name: "boolean", value: true, expected: jmespath.BooleanType},
		{name: "string", value: "x", expected: jmespath.StringType},
		{name: "float", value: 1.5, expected: jmespath.NumberType},
		{name: "int", value: 3, expected: jmespath.NumberType},
		{name: "array", value: []any{}, expected: jmespath.ArrayType},
		{name: "object", value: map[string]any{}, expected: jmespath.ObjectType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Document{}.TypeOf(tt.value))
		})
	}
}

func TestDocumentTruthiness(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected bool
	}{
		{name: "null", value: nil, expected: false},
		{name: "false", value: false, expected: false},
		{name: "true", value: true, expected: true},
		{name: "empty string", value: "", expected: false},
		{name: "string", value: "a", expected: true},
		{name: "empty array", value: []any{}, expected: false},
		{name: "array", value: []any{nil}, expected: true},
		{name: "empty object", value: map[string]any{}, expected: false},
		{name: "object", value: map[string]any{"a": nil}, expected: true},
		{name: "zero is truthy", value: 0.0, expected: true},
		{name: "number", value: 1.0, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Document{}.IsTruthy(tt.value))
		})
	}
}

func TestDocumentEqual(t *testing.T) {
	tests := []struct {
		name     string
		a        any
		b        any
		expected bool
	}{
		{name: "numbers across go types", a: 1, b: 1.0, expected: true},
		{name: "different types", a: "1", b: 1.0, expected: false},
		{name: "nested arrays", a: []any{1.0, []any{"x"}}, b: []any{1.0, []any{"x"}}, expected: true},
		{name: "objects", a: map[string]any{"a": 1.0}, b: map[string]any{"a": 1.0}, expected: true},
		{name: "object key mismatch", a: map[string]any{"a": 1.0}, b: map[string]any{"b": 1.0}, expected: false},
		{name: "nulls", a: nil, b: nil, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			equal, err := Document{}.Equal(tt.a, tt.b)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, equal)
		})
	}
}

func TestDocumentCompare(t *testing.T) {
	d := Document{}

	result, err := d.Compare(1.0, 2.0)
	assert.NoError(t, err)
	assert.True(t, result < 0)

	result, err = d.Compare("b", "a")
	assert.NoError(t, err)
	assert.True(t, result > 0)

	_, err = d.Compare(1.0, "a")
	assert.Error(t, err)

	_, err = d.Compare(true, false)
	assert.Error(t, err)
}

func TestDocumentElement(t *testing.T) {
	d := Document{}
	arr := []any{"a", "b", "c"}

	v, err := d.Element(arr, 0)
	assert.NoError(t, err)
	assert.Equal(t, "a", v.(string))

	v, err = d.Element(arr, -1)
	assert.NoError(t, err)
	assert.Equal(t, "c", v.(string))

	v, err = d.Element(arr, 5)
	assert.NoError(t, err)
	assert.Equal(t, nil, v)

	v, err = d.Element(arr, -4)
	assert.NoError(t, err)
	assert.Equal(t, nil, v)

	_, err = d.Element("not array", 0)
	assert.Error(t, err)
}

func TestDocumentField(t *testing.T) {
	d := Document{}
	obj := map[string]any{"a": 1.0}

	v, err := d.Field(obj, "a")
	assert.NoError(t, err)
	assert.Equal(t, 1.0, v.(float64))

	v, err = d.Field(obj, "missing")
	assert.NoError(t, err)
	assert.Equal(t, nil, v)

	_, err = d.Field([]any{}, "a")
	assert.Error(t, err)
}

func TestDocumentLength(t *testing.T) {
	d := Document{}

	n, err := d.Length("héllo")
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = d.Length([]any{1.0, 2.0})
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = d.Length(map[string]any{"a": nil})
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = d.Length(10.0)
	assert.Error(t, err)
}

func TestDocumentIterateObjectKeysAreSorted(t *testing.T) {
	seq, err := Document{}.Iterate(map[string]any{"b": 1.0, "a": 2.0, "c": 3.0})
	assert.NoError(t, err)

	var keys []string
	for key := range seq {
		keys = append(keys, key.(string))
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestDocumentBuilders(t *testing.T) {
	d := Document{}

	ab := d.ArrayBuilder()
	ab.Add("x")
	assert.NoError(t, ab.AddAll([]any{1.0, 2.0}))
	assert.Equal(t, []any{"x", 1.0, 2.0}, ab.Build().([]any))

	empty := d.ArrayBuilder().Build()
	assert.Equal(t, []any{}, empty.([]any))

	ob := d.ObjectBuilder()
	ob.Put("a", 1.0)
	assert.NoError(t, ob.PutAll(map[string]any{"b": 2.0}))
	ob.Put("a", 3.0)
	assert.Equal(t, map[string]any{"a": 3.0, "b": 2.0}, ob.Build().(map[string]any))
}
