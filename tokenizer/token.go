package tokenizer

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

const (
	EOF TokenType = iota
	IDENTIFIER
	LITERAL
	RBRACKET
	RPAREN
	COMMA
	RBRACE
	NUMBER
	CURRENT
	EXPREF
	COLON
	PIPE
	OR
	AND
	EQUAL
	GREATER_THAN
	LESS_THAN
	GREATER_THAN_EQUAL
	LESS_THAN_EQUAL
	NOT_EQUAL
	FLATTEN
	STAR
	FILTER
	DOT
	NOT
	LBRACE
	LBRACKET
	LPAREN
)

// String returns the token type as it appears in diagnostics.
func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case IDENTIFIER:
		return "identifier"
	case LITERAL:
		return "literal"
	case RBRACKET:
		return "']'"
	case RPAREN:
		return "')'"
	case COMMA:
		return "','"
	case RBRACE:
		return "'}'"
	case NUMBER:
		return "number"
	case CURRENT:
		return "'@'"
	case EXPREF:
		return "'&'"
	case COLON:
		return "':'"
	case PIPE:
		return "'|'"
	case OR:
		return "'||'"
	case AND:
		return "'&&'"
	case EQUAL:
		return "'=='"
	case GREATER_THAN:
		return "'>'"
	case LESS_THAN:
		return "'<'"
	case GREATER_THAN_EQUAL:
		return "'>='"
	case LESS_THAN_EQUAL:
		return "'<='"
	case NOT_EQUAL:
		return "'!='"
	case FLATTEN:
		return "'[]'"
	case STAR:
		return "'*'"
	case FILTER:
		return "'[?'"
	case DOT:
		return "'.'"
	case NOT:
		return "'!'"
	case LBRACE:
		return "'{'"
	case LBRACKET:
		return "'['"
	case LPAREN:
		return "'('"
	default:
		return "unknown"
	}
}

// BindingPower returns the left binding power the parser uses for
// precedence climbing. Tokens that cannot continue an expression have
// power zero.
func (t TokenType) BindingPower() int {
	switch t {
	case PIPE:
		return 1
	case OR:
		return 2
	case AND:
		return 3
	case EQUAL, GREATER_THAN, LESS_THAN, GREATER_THAN_EQUAL, LESS_THAN_EQUAL, NOT_EQUAL:
		return 5
	case FLATTEN:
		return 9
	case STAR:
		return 20
	case FILTER:
		return 21
	case DOT:
		return 40
	case NOT:
		return 45
	case LBRACE:
		return 50
	case LBRACKET:
		return 55
	case LPAREN:
		return 60
	default:
		return 0
	}
}

// Position is a 1-based source location.
type Position struct {
	Line   int
	Column int
}

// Token is a lexical token. Value is set for IDENTIFIER (string), NUMBER
// (float64), and LITERAL (the decoded JSON value: nil, bool, float64,
// string, []any, or map[string]any).
type Token struct {
	Type     TokenType
	Value    any
	Position Position
}

// String renders the token for error messages.
func (t Token) String() string {
	switch t.Type {
	case IDENTIFIER:
		return fmt.Sprintf("'%v'", t.Value)
	case NUMBER:
		return fmt.Sprintf("%v", t.Value)
	case LITERAL:
		return fmt.Sprintf("`%v`", t.Value)
	default:
		return t.Type.String()
	}
}
