package runtime

import (
	"cmp"
	"iter"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/shibukawa/jmespath"
)

// Document realizes Interface over decoded JSON values: nil, bool,
// float64, string, []any, and map[string]any. Integer values produced by
// hand-built documents (int, int64, uint64, float32) are treated as
// numbers. Object keys iterate in sorted order so results are
// deterministic.
type Document struct{}

var _ Interface[any] = Document{}

func (Document) TypeOf(value any) jmespath.RuntimeType {
	switch value.(type) {
	case nil:
		return jmespath.NullType
	case bool:
		return jmespath.BooleanType
	case string:
		return jmespath.StringType
	case []any:
		return jmespath.ArrayType
	case map[string]any:
		return jmespath.ObjectType
	default:
		if _, ok := asFloat(value); ok {
			return jmespath.NumberType
		}
		return jmespath.NullType
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func (Document) CreateNull() any {
	return nil
}

func (Document) CreateBoolean(value bool) any {
	return value
}

func (Document) CreateString(value string) any {
	return value
}

func (Document) CreateNumber(value float64) any {
	return value
}

func (d Document) AsBoolean(value any) (bool, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return false, typeErrorf("expected boolean, but found %s", d.TypeOf(value))
}

func (d Document) AsString(value any) (string, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return "", typeErrorf("expected string, but found %s", d.TypeOf(value))
}

func (d Document) AsNumber(value any) (float64, error) {
	if v, ok := asFloat(value); ok {
		return v, nil
	}
	return 0, typeErrorf("expected number, but found %s", d.TypeOf(value))
}

func (d Document) Length(value any) (int, error) {
	switch v := value.(type) {
	case string:
		return utf8.RuneCountInString(v), nil
	case []any:
		return len(v), nil
	case map[string]any:
		return len(v), nil
	default:
		return 0, typeErrorf("expected string, array, or object, but found %s", d.TypeOf(value))
	}
}

func (d Document) Field(object any, name string) (any, error) {
	obj, ok := object.(map[string]any)
	if !ok {
		return nil, typeErrorf("expected object, but found %s", d.TypeOf(object))
	}
	return obj[name], nil
}

func (d Document) Element(array any, index int) (any, error) {
	arr, ok := array.([]any)
	if !ok {
		return nil, typeErrorf("expected array, but found %s", d.TypeOf(array))
	}
	if index < 0 {
		index += len(arr)
	}
	if index < 0 || index >= len(arr) {
		return nil, nil
	}
	return arr[index], nil
}

func (d Document) Iterate(value any) (iter.Seq[any], error) {
	switch v := value.(type) {
	case []any:
		return func(yield func(any) bool) {
			for _, element := range v {
				if !yield(element) {
					return
				}
			}
		}, nil
	case map[string]any:
		keys := slices.Sorted(maps.Keys(v))
		return func(yield func(any) bool) {
			for _, key := range keys {
				if !yield(key) {
					return
				}
			}
		}, nil
	default:
		return nil, typeErrorf("expected array or object, but found %s", d.TypeOf(value))
	}
}

func (Document) ArrayBuilder() ArrayBuilder[any] {
	return &documentArrayBuilder{}
}

func (Document) ObjectBuilder() ObjectBuilder[any] {
	return &documentObjectBuilder{values: map[string]any{}}
}

func (d Document) Equal(a, b any) (bool, error) {
	return documentEqual(a, b), nil
}

func documentEqual(a, b any) bool {
	if av, ok := asFloat(a); ok {
		bv, ok := asFloat(b)
		return ok && av == bv
	}

	switch av := a.(type) {
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !documentEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for key, value := range av {
			other, ok := bv[key]
			if !ok || !documentEqual(value, other) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func (d Document) Compare(a, b any) (int, error) {
	if av, ok := a.(string); ok {
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), nil
		}
	}
	if av, ok := asFloat(a); ok {
		if bv, ok := asFloat(b); ok {
			return cmp.Compare(av, bv), nil
		}
	}
	return 0, typeErrorf("cannot order %s and %s values", d.TypeOf(a), d.TypeOf(b))
}

func (Document) IsTruthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return len(v) > 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		// Numbers, including zero, are truthy.
		return true
	}
}

type documentArrayBuilder struct {
	values []any
}

func (b *documentArrayBuilder) Add(value any) {
	b.values = append(b.values, value)
}

func (b *documentArrayBuilder) AddAll(array any) error {
	arr, ok := array.([]any)
	if !ok {
		return typeErrorf("expected array, but found %s", Document{}.TypeOf(array))
	}
	b.values = append(b.values, arr...)
	return nil
}

func (b *documentArrayBuilder) Build() any {
	if b.values == nil {
		return []any{}
	}
	return b.values
}

type documentObjectBuilder struct {
	values map[string]any
}

func (b *documentObjectBuilder) Put(key string, value any) {
	b.values[key] = value
}

func (b *documentObjectBuilder) PutAll(object any) error {
	obj, ok := object.(map[string]any)
	if !ok {
		return typeErrorf("expected object, but found %s", Document{}.TypeOf(object))
	}
	maps.Copy(b.values, obj)
	return nil
}

func (b *documentObjectBuilder) Build() any {
	return b.values
}

func typeErrorf(format string, args ...any) error {
	return jmespath.NewError(jmespath.ErrInvalidType, format, args...)
}
