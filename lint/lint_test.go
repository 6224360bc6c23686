package lint_test

import (
	"encoding/json"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/jmespath"
	"github.com/shibukawa/jmespath/ast"
	"github.com/shibukawa/jmespath/interp"
	"github.com/shibukawa/jmespath/lint"
	"github.com/shibukawa/jmespath/parser"
	"github.com/shibukawa/jmespath/runtime"
)

func parse(t *testing.T, query string) ast.Expression {
	t.Helper()
	expr, err := parser.Parse(query)
	assert.NoError(t, err)
	return expr
}

func known(t *testing.T, src string) runtime.StaticValue {
	t.Helper()
	var value any
	assert.NoError(t, json.Unmarshal([]byte(src), &value))
	return runtime.Known(value)
}

func messages(result jmespath.LintResult) []string {
	var out []string
	for _, p := range result.Problems {
		out = append(out, p.Severity.String()+": "+p.Message)
	}
	return out
}

func TestCheckProblems(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		current  string
		expected []string
	}{
		{
			name:     "missing field on literal object",
			query:    "foo.baz",
			current:  `{"foo": {"nope": 1}}`,
			expected: []string{"DANGER: Object field 'baz' does not exist in object with properties [nope]"},
		},
		{
			name:     "field extraction on number",
			query:    "foo.bar",
			current:  `{"foo": 1}`,
			expected: []string{"DANGER: Object field 'bar' extraction performed on number"},
		},
		{
			name:     "index extraction on object",
			query:    "foo[0]",
			current:  `{"foo": {"a": 1}}`,
			expected: []string{"DANGER: Array index '0' extraction performed on object"},
		},
		{
			name:     "slice on string",
			query:    "foo[0:2]",
			current:  `{"foo": "abc"}`,
			expected: []string{"DANGER: Slice performed on string"},
		},
		{
			name:     "flatten on object",
			query:    "foo[]",
			current:  `{"foo": {"a": 1}}`,
			expected: []string{"DANGER: Array flatten performed on object"},
		},
		{
			name:     "projection on string",
			query:    "foo[*].bar",
			current:  `{"foo": "abc"}`,
			expected: []string{"DANGER: Array projection performed on string"},
		},
		{
			name:     "object projection on array",
			query:    "foo.*",
			current:  `{"foo": [1]}`,
			expected: []string{"DANGER: Object projection performed on array"},
		},
		{
			name:     "filter projection on boolean",
			query:    "foo[?bar == `1`]",
			current:  `{"foo": true}`,
			expected: []string{"DANGER: Filter projection performed on boolean"},
		},
		{
			name:    "projection narrows each element",
			query:   "foo[*].bar",
			current: `{"foo": [{"bar": 1}, {"nope": 2}]}`,
			expected: []string{
				"DANGER: Object field 'bar' does not exist in object with properties [nope]",
			},
		},
		{
			name:     "ordering comparator on booleans",
			query:    "`true` < `1`",
			current:  `{}`,
			expected: []string{"WARNING: Invalid comparator '<' for boolean"},
		},
		{
			name:     "ordering comparator across number and string",
			query:    "`1` < `\"a\"`",
			current:  `{}`,
			expected: []string{"WARNING: Invalid comparator '<' for string"},
		},
		{
			name:     "comparator on expression reference",
			query:    "foo[?@ == &bar]",
			current:  `{"foo": [1]}`,
			expected: []string{"WARNING: Invalid comparator '==' for expression"},
		},
		{
			name:     "unknown function",
			query:    "unknown(@)",
			current:  `{}`,
			expected: []string{"ERROR: Unknown function: unknown"},
		},
		{
			name:     "wrong arity",
			query:    "length()",
			current:  `{}`,
			expected: []string{"ERROR: length function expected 1 arguments, but was given 0"},
		},
		{
			name:     "wrong argument type",
			query:    "length(`1`)",
			current:  `{}`,
			expected: []string{"ERROR: length function argument 0 error: Expected one of [string, array, object], but found number"},
		},
		{
			name:     "variadic argument type",
			query:    "merge(foo, `1`)",
			current:  `{"foo": {}}`,
			expected: []string{"ERROR: merge function argument 1 error: Expected argument to be object, but found number"},
		},
		{
			name:    "and checks both branches",
			query:   "foo && bar.baz",
			current: `{"foo": false, "bar": 1}`,
			expected: []string{
				"DANGER: Object field 'baz' extraction performed on number",
			},
		},
		{
			name:    "or checks both branches",
			query:   "foo || bar.baz",
			current: `{"foo": 1, "bar": 1}`,
			expected: []string{
				"DANGER: Object field 'baz' extraction performed on number",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := lint.Check(parse(t, tt.query), known(t, tt.current))
			assert.Equal(t, tt.expected, messages(result))
		})
	}
}

func TestCheckCleanQueries(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		current string
	}{
		{name: "existing field", query: "foo.bar", current: `{"foo": {"bar": 1}}`},
		{name: "index in range", query: "foo[0]", current: `{"foo": [1]}`},
		{name: "slice of array", query: "foo[0:1]", current: `{"foo": [1, 2]}`},
		{name: "projection over objects", query: "foo[*].bar", current: `{"foo": [{"bar": 1}]}`},
		{name: "filter over numbers", query: "foo[?@ > `1`]", current: `{"foo": [1, 2]}`},
		{name: "function call", query: "sort_by(foo, &bar)", current: `{"foo": [{"bar": 1}], "bar": 1}`},
		{name: "string ordering", query: "`\"a\"` < `\"b\"`", current: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := lint.Check(parse(t, tt.query), known(t, tt.current))
			assert.True(t, result.OK())
		})
	}
}

// Unknown input suppresses diagnostics that would otherwise be guesses.
func TestCheckAnySuppressesProblems(t *testing.T) {
	queries := []string{
		"foo.baz",
		"foo[0].bar",
		"foo[*].bar | [0]",
		"foo > bar",
		"foo[?bar == `1`]",
	}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			result := lint.CheckAny(parse(t, query))
			assert.True(t, result.OK())
		})
	}
}

// A function returning an object must not produce "field does not exist"
// findings, because the shape of its result is unknown.
func TestCheckUnknownObjectShapeIsNotNarrowed(t *testing.T) {
	result := lint.Check(parse(t, "merge(foo).baz"), known(t, `{"foo": {"a": 1}}`))
	assert.True(t, result.OK())
}

func TestCheckInferredTypes(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		current  string
		expected jmespath.RuntimeType
	}{
		{name: "literal number", query: "`1`", current: `{}`, expected: jmespath.NumberType},
		{name: "narrowed field", query: "foo.bar", current: `{"foo": {"bar": "x"}}`, expected: jmespath.StringType},
		{name: "function return", query: "length(foo)", current: `{"foo": "abc"}`, expected: jmespath.NumberType},
		{name: "projection", query: "foo[*].bar", current: `{"foo": [{"bar": 1}]}`, expected: jmespath.ArrayType},
		{name: "comparator", query: "`1` < `2`", current: `{}`, expected: jmespath.BooleanType},
		{name: "unknown input", query: "foo.bar", current: ``, expected: jmespath.AnyType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := runtime.Any
			if tt.current != "" {
				current = known(t, tt.current)
			}
			result := lint.Check(parse(t, tt.query), current)
			assert.Equal(t, tt.expected, result.Type)
		})
	}
}

func TestCheckProblemOrdering(t *testing.T) {
	// One ERROR (unknown function) and one DANGER (bad field access); the
	// ERROR must sort first regardless of position.
	result := lint.Check(parse(t, "[foo.bar, unknown(@)]"), known(t, `{"foo": 1}`))
	assert.Equal(t, 2, len(result.Problems))
	assert.Equal(t, jmespath.SeverityError, result.Problems[0].Severity)
	assert.Equal(t, jmespath.SeverityDanger, result.Problems[1].Severity)
}

func TestCheckWithExtraSignatures(t *testing.T) {
	expr := parse(t, "double(`2`)")

	result := lint.CheckAny(expr)
	assert.Equal(t, 1, len(result.Problems))
	assert.Equal(t, jmespath.SeverityError, result.Problems[0].Severity)

	result = lint.CheckAny(expr, lint.WithSignatures(map[string]interp.Signature{
		"double": {
			Returns: jmespath.NumberType,
			Args:    []interp.ArgValidator{interp.IsType(jmespath.NumberType)},
		},
	}))
	assert.True(t, result.OK())
	assert.Equal(t, jmespath.NumberType, result.Type)
}
