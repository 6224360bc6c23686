package interp

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/shibukawa/jmespath"
	"github.com/shibukawa/jmespath/ast"
	"github.com/shibukawa/jmespath/runtime"
)

func registerBuiltins[T any](r *Registry[T]) {
	impls := map[string]Func[T]{
		"abs":         absFn[T],
		"avg":         avgFn[T],
		"ceil":        ceilFn[T],
		"contains":    containsFn[T],
		"ends_with":   endsWithFn[T],
		"floor":       floorFn[T],
		"join":        joinFn[T],
		"keys":        keysFn[T],
		"length":      lengthFn[T],
		"map":         mapFn[T],
		"max":         maxFn[T],
		"max_by":      maxByFn[T],
		"merge":       mergeFn[T],
		"min":         minFn[T],
		"min_by":      minByFn[T],
		"not_null":    notNullFn[T],
		"reverse":     reverseFn[T],
		"sort":        sortFn[T],
		"sort_by":     sortByFn[T],
		"starts_with": startsWithFn[T],
		"sum":         sumFn[T],
		"to_array":    toArrayFn[T],
		"to_number":   toNumberFn[T],
		"to_string":   toStringFn[T],
		"type":        typeFn[T],
		"values":      valuesFn[T],
	}
	for name, impl := range impls {
		r.Register(name, Function[T]{Signature: builtinSignatures[name], Call: impl})
	}
}

// argError reports a type mismatch for argument i. Functions are strict:
// unlike field and index access, a bad argument fails the whole
// evaluation instead of degrading to null.
func (c *Call[T]) argError(i int, format string, args ...any) error {
	return jmespath.NewError(jmespath.ErrInvalidType,
		"%s function argument %d error: %s", c.Name, i, fmt.Sprintf(format, args...))
}

// argValue returns argument i, rejecting expression references.
func (c *Call[T]) argValue(i int) (T, error) {
	if c.Args[i].IsExpression() {
		var zero T
		return zero, c.argError(i, "Expected argument to be a value, but found expression")
	}
	return c.Args[i].Value(), nil
}

func (c *Call[T]) argTyped(i int, typ jmespath.RuntimeType) (T, error) {
	value, err := c.argValue(i)
	if err != nil {
		return value, err
	}
	if actual := c.Runtime.TypeOf(value); actual != typ {
		var zero T
		return zero, c.argError(i, "Expected argument to be %s, but found %s", typ, actual)
	}
	return value, nil
}

func (c *Call[T]) argNumber(i int) (float64, error) {
	value, err := c.argTyped(i, jmespath.NumberType)
	if err != nil {
		return 0, err
	}
	return c.Runtime.AsNumber(value)
}

func (c *Call[T]) argString(i int) (string, error) {
	value, err := c.argTyped(i, jmespath.StringType)
	if err != nil {
		return "", err
	}
	return c.Runtime.AsString(value)
}

// argElements returns the elements of an array argument.
func (c *Call[T]) argElements(i int) ([]T, error) {
	value, err := c.argTyped(i, jmespath.ArrayType)
	if err != nil {
		return nil, err
	}
	seq, err := c.Runtime.Iterate(value)
	if err != nil {
		return nil, err
	}
	var elements []T
	for element := range seq {
		elements = append(elements, element)
	}
	return elements, nil
}

// argNumbers returns the elements of an array-of-numbers argument.
func (c *Call[T]) argNumbers(i int) ([]float64, error) {
	elements, err := c.argElements(i)
	if err != nil {
		return nil, err
	}
	numbers := make([]float64, len(elements))
	for j, element := range elements {
		if actual := c.Runtime.TypeOf(element); actual != jmespath.NumberType {
			return nil, c.argError(i, "Expected an array of number, but found %s at index %d", actual, j)
		}
		numbers[j], err = c.Runtime.AsNumber(element)
		if err != nil {
			return nil, err
		}
	}
	return numbers, nil
}

func absFn[T any](c *Call[T]) (T, error) {
	n, err := c.argNumber(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	return c.Runtime.CreateNumber(math.Abs(n)), nil
}

func avgFn[T any](c *Call[T]) (T, error) {
	numbers, err := c.argNumbers(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	if len(numbers) == 0 {
		return c.Runtime.CreateNull(), nil
	}
	var total float64
	for _, n := range numbers {
		total += n
	}
	return c.Runtime.CreateNumber(total / float64(len(numbers))), nil
}

func ceilFn[T any](c *Call[T]) (T, error) {
	n, err := c.argNumber(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	return c.Runtime.CreateNumber(math.Ceil(n)), nil
}

func containsFn[T any](c *Call[T]) (T, error) {
	subject, err := c.argValue(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	search, err := c.argValue(1)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}

	switch c.Runtime.TypeOf(subject) {
	case jmespath.ArrayType:
		elements, err := c.Runtime.Iterate(subject)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		for element := range elements {
			equal, err := c.Runtime.Equal(element, search)
			if err != nil {
				return c.Runtime.CreateNull(), err
			}
			if equal {
				return c.Runtime.CreateBoolean(true), nil
			}
		}
		return c.Runtime.CreateBoolean(false), nil
	case jmespath.StringType:
		// A non-string needle never matches inside a string.
		if c.Runtime.TypeOf(search) != jmespath.StringType {
			return c.Runtime.CreateBoolean(false), nil
		}
		haystack, err := c.Runtime.AsString(subject)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		needle, err := c.Runtime.AsString(search)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		return c.Runtime.CreateBoolean(strings.Contains(haystack, needle)), nil
	default:
		return c.Runtime.CreateNull(), c.argError(0, "Expected one of [array, string], but found %s", c.Runtime.TypeOf(subject))
	}
}

func endsWithFn[T any](c *Call[T]) (T, error) {
	subject, err := c.argString(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	suffix, err := c.argString(1)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	return c.Runtime.CreateBoolean(strings.HasSuffix(subject, suffix)), nil
}

func floorFn[T any](c *Call[T]) (T, error) {
	n, err := c.argNumber(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	return c.Runtime.CreateNumber(math.Floor(n)), nil
}

func joinFn[T any](c *Call[T]) (T, error) {
	glue, err := c.argString(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	elements, err := c.argElements(1)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	parts := make([]string, len(elements))
	for i, element := range elements {
		if actual := c.Runtime.TypeOf(element); actual != jmespath.StringType {
			return c.Runtime.CreateNull(), c.argError(1, "Expected an array of string, but found %s at index %d", actual, i)
		}
		parts[i], err = c.Runtime.AsString(element)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
	}
	return c.Runtime.CreateString(strings.Join(parts, glue)), nil
}

func keysFn[T any](c *Call[T]) (T, error) {
	object, err := c.argTyped(0, jmespath.ObjectType)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	keys, err := c.Runtime.Iterate(object)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	result := c.Runtime.ArrayBuilder()
	for key := range keys {
		result.Add(key)
	}
	return result.Build(), nil
}

func lengthFn[T any](c *Call[T]) (T, error) {
	value, err := c.argValue(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	switch c.Runtime.TypeOf(value) {
	case jmespath.StringType, jmespath.ArrayType, jmespath.ObjectType:
		length, err := c.Runtime.Length(value)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		return c.Runtime.CreateNumber(float64(length)), nil
	default:
		return c.Runtime.CreateNull(), c.argError(0, "Expected one of [string, array, object], but found %s", c.Runtime.TypeOf(value))
	}
}

func mapFn[T any](c *Call[T]) (T, error) {
	if !c.Args[0].IsExpression() {
		return c.Runtime.CreateNull(), c.argError(0, "Expected argument to be expression, but found %s", c.Runtime.TypeOf(c.Args[0].Value()))
	}
	elements, err := c.argElements(1)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	// Unlike projections, map keeps null results.
	result := c.Runtime.ArrayBuilder()
	for _, element := range elements {
		mapped, err := c.Apply(c.Args[0].Expression(), element)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		result.Add(mapped)
	}
	return result.Build(), nil
}

func maxFn[T any](c *Call[T]) (T, error) {
	return extremumFn(c, false)
}

func minFn[T any](c *Call[T]) (T, error) {
	return extremumFn(c, true)
}

func extremumFn[T any](c *Call[T], least bool) (T, error) {
	elements, err := c.argElements(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	if len(elements) == 0 {
		return c.Runtime.CreateNull(), nil
	}
	if err := c.requireOrderable(0, elements); err != nil {
		return c.Runtime.CreateNull(), err
	}
	best := elements[0]
	for _, element := range elements[1:] {
		result, err := c.Runtime.Compare(element, best)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		if (least && result < 0) || (!least && result > 0) {
			best = element
		}
	}
	return best, nil
}

// requireOrderable checks that every element of an array argument shares
// one orderable type (all numbers or all strings).
func (c *Call[T]) requireOrderable(i int, elements []T) error {
	if len(elements) == 0 {
		return nil
	}
	first := c.Runtime.TypeOf(elements[0])
	if first != jmespath.NumberType && first != jmespath.StringType {
		return c.argError(i, "Expected an array of number or string, but found %s at index 0", first)
	}
	for j, element := range elements[1:] {
		if actual := c.Runtime.TypeOf(element); actual != first {
			return c.argError(i, "Expected an array of %s, but found %s at index %d", first, actual, j+1)
		}
	}
	return nil
}

func maxByFn[T any](c *Call[T]) (T, error) {
	return extremumByFn(c, false)
}

func minByFn[T any](c *Call[T]) (T, error) {
	return extremumByFn(c, true)
}

func extremumByFn[T any](c *Call[T], least bool) (T, error) {
	elements, err := c.argElements(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	if !c.Args[1].IsExpression() {
		return c.Runtime.CreateNull(), c.argError(1, "Expected argument to be expression, but found %s", c.Runtime.TypeOf(c.Args[1].Value()))
	}
	if len(elements) == 0 {
		return c.Runtime.CreateNull(), nil
	}
	keys, err := c.applyKeys(c.Args[1].Expression(), elements)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	best := 0
	for i := 1; i < len(keys); i++ {
		result, err := c.Runtime.Compare(keys[i], keys[best])
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		if (least && result < 0) || (!least && result > 0) {
			best = i
		}
	}
	return elements[best], nil
}

// applyKeys evaluates the key expression once per element and checks the
// keys share one orderable type.
func (c *Call[T]) applyKeys(expr ast.Expression, elements []T) ([]T, error) {
	keys := make([]T, len(elements))
	for i, element := range elements {
		key, err := c.Apply(expr, element)
		if err != nil {
			return nil, err
		}
		keys[i] = key
	}
	if err := c.requireOrderable(0, keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func mergeFn[T any](c *Call[T]) (T, error) {
	result := c.Runtime.ObjectBuilder()
	for i := range c.Args {
		object, err := c.argTyped(i, jmespath.ObjectType)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		if err := result.PutAll(object); err != nil {
			return c.Runtime.CreateNull(), err
		}
	}
	return result.Build(), nil
}

func notNullFn[T any](c *Call[T]) (T, error) {
	for i := range c.Args {
		value, err := c.argValue(i)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		if c.Runtime.TypeOf(value) != jmespath.NullType {
			return value, nil
		}
	}
	return c.Runtime.CreateNull(), nil
}

func reverseFn[T any](c *Call[T]) (T, error) {
	subject, err := c.argValue(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	switch c.Runtime.TypeOf(subject) {
	case jmespath.StringType:
		s, err := c.Runtime.AsString(subject)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		runes := []rune(s)
		slices.Reverse(runes)
		return c.Runtime.CreateString(string(runes)), nil
	case jmespath.ArrayType:
		elements, err := c.argElements(0)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		slices.Reverse(elements)
		result := c.Runtime.ArrayBuilder()
		for _, element := range elements {
			result.Add(element)
		}
		return result.Build(), nil
	default:
		return c.Runtime.CreateNull(), c.argError(0, "Expected one of [array, string], but found %s", c.Runtime.TypeOf(subject))
	}
}

func sortFn[T any](c *Call[T]) (T, error) {
	elements, err := c.argElements(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	if err := c.requireOrderable(0, elements); err != nil {
		return c.Runtime.CreateNull(), err
	}
	slices.SortStableFunc(elements, func(a, b T) int {
		result, _ := c.Runtime.Compare(a, b)
		return result
	})
	result := c.Runtime.ArrayBuilder()
	for _, element := range elements {
		result.Add(element)
	}
	return result.Build(), nil
}

func sortByFn[T any](c *Call[T]) (T, error) {
	elements, err := c.argElements(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	if !c.Args[1].IsExpression() {
		return c.Runtime.CreateNull(), c.argError(1, "Expected argument to be expression, but found %s", c.Runtime.TypeOf(c.Args[1].Value()))
	}
	if len(elements) > 0 {
		keys, err := c.applyKeys(c.Args[1].Expression(), elements)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		indexes := make([]int, len(elements))
		for i := range indexes {
			indexes[i] = i
		}
		slices.SortStableFunc(indexes, func(a, b int) int {
			result, _ := c.Runtime.Compare(keys[a], keys[b])
			return result
		})
		sorted := make([]T, len(elements))
		for i, index := range indexes {
			sorted[i] = elements[index]
		}
		elements = sorted
	}
	result := c.Runtime.ArrayBuilder()
	for _, element := range elements {
		result.Add(element)
	}
	return result.Build(), nil
}

func startsWithFn[T any](c *Call[T]) (T, error) {
	subject, err := c.argString(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	prefix, err := c.argString(1)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	return c.Runtime.CreateBoolean(strings.HasPrefix(subject, prefix)), nil
}

func sumFn[T any](c *Call[T]) (T, error) {
	numbers, err := c.argNumbers(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	var total float64
	for _, n := range numbers {
		total += n
	}
	return c.Runtime.CreateNumber(total), nil
}

func toArrayFn[T any](c *Call[T]) (T, error) {
	value, err := c.argValue(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	if c.Runtime.TypeOf(value) == jmespath.ArrayType {
		return value, nil
	}
	result := c.Runtime.ArrayBuilder()
	result.Add(value)
	return result.Build(), nil
}

func toNumberFn[T any](c *Call[T]) (T, error) {
	value, err := c.argValue(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	switch c.Runtime.TypeOf(value) {
	case jmespath.NumberType:
		return value, nil
	case jmespath.StringType:
		s, err := c.Runtime.AsString(value)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return c.Runtime.CreateNull(), nil
		}
		return c.Runtime.CreateNumber(n), nil
	default:
		return c.Runtime.CreateNull(), nil
	}
}

func toStringFn[T any](c *Call[T]) (T, error) {
	value, err := c.argValue(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	if c.Runtime.TypeOf(value) == jmespath.StringType {
		return value, nil
	}
	decoded, err := decodeValue(c.Runtime, value)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	encoded, err := json.Marshal(decoded)
	if err != nil {
		return c.Runtime.CreateNull(), jmespath.NewError(jmespath.ErrOther, "cannot serialize %s value: %s", c.Runtime.TypeOf(value), err)
	}
	return c.Runtime.CreateString(string(encoded)), nil
}

// decodeValue converts a runtime value back to a decoded JSON value so it
// can be serialized. Object keys come out in the runtime's deterministic
// iteration order; encoding/json sorts them again anyway.
func decodeValue[T any](rt runtime.Interface[T], value T) (any, error) {
	switch rt.TypeOf(value) {
	case jmespath.NullType:
		return nil, nil
	case jmespath.BooleanType:
		return rt.AsBoolean(value)
	case jmespath.NumberType:
		return rt.AsNumber(value)
	case jmespath.StringType:
		return rt.AsString(value)
	case jmespath.ArrayType:
		elements, err := rt.Iterate(value)
		if err != nil {
			return nil, err
		}
		result := []any{}
		for element := range elements {
			decoded, err := decodeValue(rt, element)
			if err != nil {
				return nil, err
			}
			result = append(result, decoded)
		}
		return result, nil
	case jmespath.ObjectType:
		keys, err := rt.Iterate(value)
		if err != nil {
			return nil, err
		}
		result := map[string]any{}
		for key := range keys {
			name, err := rt.AsString(key)
			if err != nil {
				return nil, err
			}
			member, err := rt.Field(value, name)
			if err != nil {
				return nil, err
			}
			decoded, err := decodeValue(rt, member)
			if err != nil {
				return nil, err
			}
			result[name] = decoded
		}
		return result, nil
	default:
		return nil, jmespath.NewError(jmespath.ErrInvalidType, "cannot serialize %s value", rt.TypeOf(value))
	}
}

func typeFn[T any](c *Call[T]) (T, error) {
	value, err := c.argValue(0)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	return c.Runtime.CreateString(c.Runtime.TypeOf(value).String()), nil
}

func valuesFn[T any](c *Call[T]) (T, error) {
	object, err := c.argTyped(0, jmespath.ObjectType)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	keys, err := c.Runtime.Iterate(object)
	if err != nil {
		return c.Runtime.CreateNull(), err
	}
	result := c.Runtime.ArrayBuilder()
	for key := range keys {
		name, err := c.Runtime.AsString(key)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		member, err := c.Runtime.Field(object, name)
		if err != nil {
			return c.Runtime.CreateNull(), err
		}
		result.Add(member)
	}
	return result.Build(), nil
}
