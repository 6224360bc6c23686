package tokenizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/jmespath"
)

func TestBasicTokens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []TokenType
	}{
		{
			name:     "field access",
			input:    "foo.bar",
			expected: []TokenType{IDENTIFIER, DOT, IDENTIFIER, EOF},
		},
		{
			name:     "index",
			input:    "foo[0]",
			expected: []TokenType{IDENTIFIER, LBRACKET, NUMBER, RBRACKET, EOF},
		},
		{
			name:     "flatten",
			input:    "foo[]",
			expected: []TokenType{IDENTIFIER, FLATTEN, EOF},
		},
		{
			name:     "filter",
			input:    "foo[?bar]",
			expected: []TokenType{IDENTIFIER, FILTER, IDENTIFIER, RBRACKET, EOF},
		},
		{
			name:     "wildcard projection",
			input:    "foo[*].bar",
			expected: []TokenType{IDENTIFIER, LBRACKET, STAR, RBRACKET, DOT, IDENTIFIER, EOF},
		},
		{
			name:     "boolean operators",
			input:    "a && b || c",
			expected: []TokenType{IDENTIFIER, AND, IDENTIFIER, OR, IDENTIFIER, EOF},
		},
		{
			name:     "pipe versus or",
			input:    "a | b",
			expected: []TokenType{IDENTIFIER, PIPE, IDENTIFIER, EOF},
		},
		{
			name:     "comparators",
			input:    "a == b != c < d <= e > f >= g",
			expected: []TokenType{IDENTIFIER, EQUAL, IDENTIFIER, NOT_EQUAL, IDENTIFIER, LESS_THAN, IDENTIFIER, LESS_THAN_EQUAL, IDENTIFIER, GREATER_THAN, IDENTIFIER, GREATER_THAN_EQUAL, IDENTIFIER, EOF},
		},
		{
			name:     "expression reference versus and",
			input:    "sort_by(@, &name)",
			expected: []TokenType{IDENTIFIER, LPAREN, CURRENT, COMMA, EXPREF, IDENTIFIER, RPAREN, EOF},
		},
		{
			name:     "multi select hash",
			input:    "{a: b, c: d}",
			expected: []TokenType{LBRACE, IDENTIFIER, COLON, IDENTIFIER, COMMA, IDENTIFIER, COLON, IDENTIFIER, RBRACE, EOF},
		},
		{
			name:     "not",
			input:    "!foo",
			expected: []TokenType{NOT, IDENTIFIER, EOF},
		},
		{
			name:     "slice",
			input:    "[0:10:2]",
			expected: []TokenType{LBRACKET, NUMBER, COLON, NUMBER, COLON, NUMBER, RBRACKET, EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := New(tt.input).AllTokens()
			assert.NoError(t, err)

			types := make([]TokenType, 0, len(tokens))
			for _, token := range tokens {
				types = append(types, token.Type)
			}
			assert.Equal(t, tt.expected, types)
		})
	}
}

func TestIdentifierValues(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "foo_bar2", expected: "foo_bar2"},
		{name: "quoted", input: `"foo bar"`, expected: "foo bar"},
		{name: "quoted escapes", input: `"a\n\t\r\f\b\/\\\"b"`, expected: "a\n\t\r\f\b/\\\"b"},
		{name: "unicode escape", input: `"\u0041\u00e9"`, expected: "Aé"},
		{name: "multibyte passthrough", input: `"日本語"`, expected: "日本語"},
		{name: "surrogate pair composes one code point", input: `"\uD83D\uDE00"`, expected: "\U0001F600"},
		{name: "surrogate pair between text", input: `"a\uD83D\uDE00b"`, expected: "a\U0001F600b"},
		{name: "lone high surrogate is replaced", input: `"\uD83Dx"`, expected: "�x"},
		{name: "high surrogate before non-surrogate escape", input: `"\uD83D\u0041"`, expected: "�A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := New(tt.input).AllTokens()
			assert.NoError(t, err)
			assert.Equal(t, IDENTIFIER, tokens[0].Type)
			assert.Equal(t, tt.expected, tokens[0].Value.(string))
		})
	}
}

func TestRawStrings(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: `'foo'`, expected: "foo"},
		{name: "escaped quote", input: `'foo\'s'`, expected: "foo's"},
		{name: "escaped backslash", input: `'a\\b'`, expected: `a\b`},
		{name: "backslash kept literally", input: `'a\nb'`, expected: `a\nb`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := New(tt.input).AllTokens()
			assert.NoError(t, err)
			assert.Equal(t, LITERAL, tokens[0].Type)
			assert.Equal(t, tt.expected, tokens[0].Value.(string))
		})
	}
}

func TestJSONLiterals(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected any
	}{
		{name: "null", input: "`null`", expected: nil},
		{name: "true", input: "`true`", expected: true},
		{name: "false", input: "`false`", expected: false},
		{name: "number", input: "`10`", expected: 10.0},
		{name: "negative number", input: "`-1.5`", expected: -1.5},
		{name: "string", input: "`\"hi\"`", expected: "hi"},
		{name: "escaped backtick", input: "`\"a\\`b\"`", expected: "a`b"},
		{name: "empty array", input: "`[]`", expected: []any{}},
		{name: "array", input: "`[1, 2, 3]`", expected: []any{1.0, 2.0, 3.0}},
		{name: "empty object", input: "`{}`", expected: map[string]any{}},
		{name: "object", input: "`{\"a\": 1, \"b\": [true, null]}`", expected: map[string]any{"a": 1.0, "b": []any{true, nil}}},
		{name: "nested", input: "`[[{\"a\": []}]]`", expected: []any{[]any{map[string]any{"a": []any{}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := New(tt.input).AllTokens()
			assert.NoError(t, err)
			assert.Equal(t, LITERAL, tokens[0].Type)
			assert.Equal(t, tt.expected, tokens[0].Value)
		})
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{name: "integer", input: "10", expected: 10},
		{name: "negative", input: "-5", expected: -5},
		{name: "decimal", input: "1.25", expected: 1.25},
		{name: "exponent", input: "2e3", expected: 2000},
		{name: "negative exponent", input: "1E-2", expected: 0.01},
		{name: "signed exponent", input: "1e+2", expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := New(tt.input).AllTokens()
			assert.NoError(t, err)
			assert.Equal(t, NUMBER, tokens[0].Type)
			assert.Equal(t, tt.expected, tokens[0].Value.(float64))
		})
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "unexpected character", input: "foo # bar"},
		{name: "bare dash", input: "-"},
		{name: "dash without digit", input: "-a"},
		{name: "dot without digit", input: "1."},
		{name: "exponent without digit", input: "1e"},
		{name: "unclosed quotes", input: `"foo`},
		{name: "invalid escape", input: `"a\q"`},
		{name: "invalid unicode escape", input: `"\u00zz"`},
		{name: "unclosed raw string", input: "'foo"},
		{name: "single equals", input: "a = b"},
		{name: "unclosed literal", input: "`[1, 2"},
		{name: "bad json literal", input: "`trux`"},
		{name: "literal closed inside string", input: "`\"foo`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.input).AllTokens()
			assert.Error(t, err)
			assert.True(t, errors.Is(err, jmespath.ErrSyntax))
		})
	}
}

func TestPositions(t *testing.T) {
	tokens, err := New("foo.bar").AllTokens()
	assert.NoError(t, err)
	assert.Equal(t, Position{Line: 1, Column: 1}, tokens[0].Position)
	assert.Equal(t, Position{Line: 1, Column: 4}, tokens[1].Position)
	assert.Equal(t, Position{Line: 1, Column: 5}, tokens[2].Position)
	assert.Equal(t, Position{Line: 1, Column: 8}, tokens[3].Position)
}

func TestPositionsAcrossNewlines(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "lf", input: "a ||\nb"},
		{name: "crlf", input: "a ||\r\nb"},
		{name: "cr", input: "a ||\rb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := New(tt.input).AllTokens()
			assert.NoError(t, err)
			assert.Equal(t, 4, len(tokens))
			assert.Equal(t, Position{Line: 2, Column: 1}, tokens[2].Position)
		})
	}
}

func TestErrorPositions(t *testing.T) {
	_, err := New("foo.\n  #").AllTokens()
	assert.Error(t, err)

	var engineErr *jmespath.Error
	assert.True(t, errors.As(err, &engineErr))
	assert.Equal(t, 2, engineErr.Line)
	assert.Equal(t, 3, engineErr.Column)
}

func TestNestingDepthLimit(t *testing.T) {
	deep := "`" + strings.Repeat("[", 51) + strings.Repeat("]", 51) + "`"
	_, err := New(deep).AllTokens()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, jmespath.ErrSyntax))
	assert.Contains(t, err.Error(), "maximum allowed depth")

	ok := "`" + strings.Repeat("[", 50) + strings.Repeat("]", 50) + "`"
	_, err = New(ok).AllTokens()
	assert.NoError(t, err)

	_, err = New("`[[1]]`", Options{MaxNestingDepth: 1}).AllTokens()
	assert.Error(t, err)
}

func TestTokensIterator(t *testing.T) {
	var count int
	for token, err := range New("a.b.c").Tokens() {
		assert.NoError(t, err)
		count++
		if token.Type == EOF {
			break
		}
	}
	assert.Equal(t, 6, count)
}
