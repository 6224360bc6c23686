// Package parser builds an expression tree from query text using a
// top-down operator precedence (Pratt) parser.
package parser

import (
	"strings"

	"github.com/shibukawa/jmespath"
	"github.com/shibukawa/jmespath/ast"
	"github.com/shibukawa/jmespath/tokenizer"
)

// projectionStop is the highest binding power a token may have and still
// stop a projection. Tokens binding tighter than this continue the
// projection's right side.
const projectionStop = 10

// nudTokens are the tokens that can start an expression.
var nudTokens = []tokenizer.TokenType{
	tokenizer.CURRENT,
	tokenizer.IDENTIFIER,
	tokenizer.LITERAL,
	tokenizer.STAR,
	tokenizer.LBRACE,
	tokenizer.LBRACKET,
	tokenizer.FLATTEN,
	tokenizer.EXPREF,
	tokenizer.NOT,
	tokenizer.FILTER,
	tokenizer.LPAREN,
}

// ledTokens are the tokens that can continue an expression. An LPAREN
// after an identifier is handled in nud because it forms a function call.
var ledTokens = []tokenizer.TokenType{
	tokenizer.DOT,
	tokenizer.LBRACKET,
	tokenizer.OR,
	tokenizer.AND,
	tokenizer.PIPE,
	tokenizer.FLATTEN,
	tokenizer.FILTER,
	tokenizer.EQUAL,
	tokenizer.NOT_EQUAL,
	tokenizer.GREATER_THAN,
	tokenizer.GREATER_THAN_EQUAL,
	tokenizer.LESS_THAN,
	tokenizer.LESS_THAN_EQUAL,
	tokenizer.LPAREN,
}

// Parse parses a query expression. Errors are *jmespath.Error values
// tagged with jmespath.ErrSyntax and carry the offending position.
func Parse(expression string) (ast.Expression, error) {
	tokens, err := tokenizer.New(expression).AllTokens()
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	result, err := p.expression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenizer.EOF); err != nil {
		return nil, err
	}
	return result, nil
}

type parser struct {
	tokens []tokenizer.Token
	index  int
}

func (p *parser) peek() tokenizer.Token {
	return p.peekAt(0)
}

func (p *parser) peekAt(offset int) tokenizer.Token {
	target := p.index + offset
	if target >= len(p.tokens) {
		// The token stream always ends with EOF, so running past the end
		// can only happen on malformed manual advances.
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[target]
}

func (p *parser) next() tokenizer.Token {
	token := p.peek()
	if p.index < len(p.tokens)-1 {
		p.index++
	}
	return token
}

func (p *parser) pos() ast.Position {
	token := p.peek()
	return ast.Position{Line: token.Position.Line, Column: token.Position.Column}
}

func (p *parser) syntaxf(format string, args ...any) error {
	token := p.peek()
	return jmespath.NewErrorAt(jmespath.ErrSyntax, token.Position.Line, token.Position.Column, format, args...)
}

// expect consumes and returns the next token if it matches one of the
// given types.
func (p *parser) expect(types ...tokenizer.TokenType) (tokenizer.Token, error) {
	if _, err := p.expectPeek(types...); err != nil {
		return tokenizer.Token{}, err
	}
	return p.next(), nil
}

// expectPeek returns the next token without consuming it if it matches one
// of the given types.
func (p *parser) expectPeek(types ...tokenizer.TokenType) (tokenizer.Token, error) {
	token := p.peek()
	for _, t := range types {
		if token.Type == t {
			return token, nil
		}
	}

	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return tokenizer.Token{}, p.syntaxf("Expected %s, but found %s", strings.Join(names, ", "), token)
}

// expectNotEOF returns the next token without consuming it, failing on EOF.
func (p *parser) expectNotEOF() (tokenizer.Token, error) {
	token := p.peek()
	if token.Type == tokenizer.EOF {
		return tokenizer.Token{}, p.syntaxf("Expected more tokens, but found EOF")
	}
	return token, nil
}

func (p *parser) expression(rbp int) (ast.Expression, error) {
	left, err := p.nud()
	if err != nil {
		return nil, err
	}

	for rbp < p.peek().Type.BindingPower() {
		left, err = p.led(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

func (p *parser) nud() (ast.Expression, error) {
	token, err := p.expect(nudTokens...)
	if err != nil {
		return nil, err
	}
	pos := ast.Position{Line: token.Position.Line, Column: token.Position.Column}

	switch token.Type {
	case tokenizer.CURRENT: // @
		return &ast.Current{Position: pos}, nil
	case tokenizer.IDENTIFIER: // foo
		// "foo(" starts a function call.
		if p.peek().Type == tokenizer.LPAREN {
			p.next()
			args, err := p.parseList(tokenizer.RPAREN)
			if err != nil {
				return nil, err
			}
			return &ast.Function{Position: pos, Name: token.Value.(string), Args: args}, nil
		}
		return &ast.Field{Position: pos, Name: token.Value.(string)}, nil
	case tokenizer.STAR: // *
		return p.parseWildcardObject(&ast.Current{Position: pos}, pos)
	case tokenizer.LITERAL: // `true`
		return &ast.Literal{Position: pos, Value: token.Value}, nil
	case tokenizer.LBRACKET: // [1]
		return p.parseNudLbracket()
	case tokenizer.LBRACE: // {foo: bar}
		return p.parseNudLbrace(pos)
	case tokenizer.FLATTEN: // [].bar
		return p.parseFlatten(&ast.Current{Position: pos})
	case tokenizer.EXPREF: // sort_by(@, &foo)
		expr, err := p.expression(token.Type.BindingPower())
		if err != nil {
			return nil, err
		}
		return &ast.ExpressionRef{Position: pos, Expr: expr}, nil
	case tokenizer.NOT: // !foo
		expr, err := p.expression(token.Type.BindingPower())
		if err != nil {
			return nil, err
		}
		return &ast.Not{Position: pos, Expr: expr}, nil
	case tokenizer.FILTER: // [?foo == bar]
		return p.parseFilter(&ast.Current{Position: pos})
	case tokenizer.LPAREN: // (foo)
		expr, err := p.expression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenizer.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, p.syntaxf("Invalid nud token: %s", token)
	}
}

func (p *parser) led(left ast.Expression) (ast.Expression, error) {
	token, err := p.expect(ledTokens...)
	if err != nil {
		return nil, err
	}
	pos := ast.Position{Line: token.Position.Line, Column: token.Position.Column}

	switch token.Type {
	case tokenizer.DOT:
		if p.peek().Type == tokenizer.STAR {
			// "foo.*" skips the subexpression and directly creates an
			// object projection.
			star := p.next()
			starPos := ast.Position{Line: star.Position.Line, Column: star.Position.Column}
			return p.parseWildcardObject(left, starPos)
		}
		right, err := p.parseDotRhs(tokenizer.DOT.BindingPower())
		if err != nil {
			return nil, err
		}
		return &ast.Subexpression{Position: pos, Left: left, Right: right}, nil
	case tokenizer.FLATTEN: // a[].b
		return p.parseFlatten(left)
	case tokenizer.OR: // a || b
		right, err := p.expression(token.Type.BindingPower())
		if err != nil {
			return nil, err
		}
		return &ast.Or{Position: pos, Left: left, Right: right}, nil
	case tokenizer.AND: // a && b
		right, err := p.expression(token.Type.BindingPower())
		if err != nil {
			return nil, err
		}
		return &ast.And{Position: pos, Left: left, Right: right}, nil
	case tokenizer.PIPE: // a | b
		right, err := p.expression(token.Type.BindingPower())
		if err != nil {
			return nil, err
		}
		return &ast.Subexpression{Position: pos, Left: left, Right: right, Pipe: true}, nil
	case tokenizer.FILTER: // a[?foo == bar]
		return p.parseFilter(left)
	case tokenizer.LBRACKET:
		bracketToken, err := p.expectPeek(tokenizer.NUMBER, tokenizer.COLON, tokenizer.STAR)
		if err != nil {
			return nil, err
		}
		if bracketToken.Type == tokenizer.STAR {
			// foo[*]
			return p.parseWildcardIndex(left)
		}
		// foo[::1], foo[1]
		right, err := p.parseIndex()
		if err != nil {
			return nil, err
		}
		return &ast.Subexpression{Position: pos, Left: left, Right: right}, nil
	case tokenizer.EQUAL:
		return p.parseComparator(jmespath.Equal, left)
	case tokenizer.NOT_EQUAL:
		return p.parseComparator(jmespath.NotEqual, left)
	case tokenizer.GREATER_THAN:
		return p.parseComparator(jmespath.GreaterThan, left)
	case tokenizer.GREATER_THAN_EQUAL:
		return p.parseComparator(jmespath.GreaterThanEqual, left)
	case tokenizer.LESS_THAN:
		return p.parseComparator(jmespath.LessThan, left)
	case tokenizer.LESS_THAN_EQUAL:
		return p.parseComparator(jmespath.LessThanEqual, left)
	default:
		return nil, p.syntaxf("Invalid led token: %s", token)
	}
}

func (p *parser) parseNudLbracket() (ast.Expression, error) {
	token, err := p.expectNotEOF()
	if err != nil {
		return nil, err
	}

	switch token.Type {
	case tokenizer.NUMBER, tokenizer.COLON:
		// '[1', '[1:', '[:' all start an index or slice.
		return p.parseIndex()
	case tokenizer.STAR:
		if p.peekAt(1).Type == tokenizer.RBRACKET {
			// A led '[*]' projects from the left node; a nud '[*]'
			// projects from the current node.
			return p.parseWildcardIndex(&ast.Current{Position: p.pos()})
		}
		return p.parseMultiList()
	default:
		// Everything else is a multi-select list building an array.
		return p.parseMultiList()
	}
}

// parseIndex parses [0], [::-1], [0:-1], [0:1], etc.
func (p *parser) parseIndex() (ast.Expression, error) {
	pos := p.pos()
	var parts [2]*int
	step := 1
	colons := 0

loop:
	for {
		next, err := p.expectPeek(tokenizer.NUMBER, tokenizer.RBRACKET, tokenizer.COLON)
		if err != nil {
			return nil, err
		}
		switch next.Type {
		case tokenizer.NUMBER:
			p.next()
			value := int(next.Value.(float64))
			if colons < 2 {
				parts[colons] = &value
			} else {
				step = value
			}
			if _, err := p.expectPeek(tokenizer.COLON, tokenizer.RBRACKET); err != nil {
				return nil, err
			}
		case tokenizer.RBRACKET:
			break loop
		default: // COLON
			p.next()
			colons++
			if colons == 3 {
				return nil, p.syntaxf("Too many colons in slice expression")
			}
		}
	}

	if _, err := p.expect(tokenizer.RBRACKET); err != nil {
		return nil, err
	}

	if colons == 0 {
		// No colons, so this is a simple index extraction.
		if parts[0] == nil {
			return nil, p.syntaxf("Expected a number for array index")
		}
		return &ast.Index{Position: pos, Value: *parts[0]}, nil
	}

	// A slice selects potentially many elements, so like '[*]' it creates
	// a projection over whatever follows.
	slice := &ast.Slice{Position: pos, Start: parts[0], Stop: parts[1], Step: step}
	right, err := p.parseProjectionRhs(tokenizer.STAR.BindingPower())
	if err != nil {
		return nil, err
	}
	return &ast.Projection{Position: pos, Left: slice, Right: right}, nil
}

func (p *parser) parseMultiList() (ast.Expression, error) {
	pos := p.pos()
	nodes, err := p.parseList(tokenizer.RBRACKET)
	if err != nil {
		return nil, err
	}
	return &ast.MultiSelectList{Position: pos, Expressions: nodes}, nil
}

// parseList parses a comma separated list of expressions until a closing
// token. Used for function arguments and multi-select lists; empty lists
// are allowed because "[]" never reaches here (it lexes as flatten).
func (p *parser) parseList(closing tokenizer.TokenType) ([]ast.Expression, error) {
	var nodes []ast.Expression

	for p.peek().Type != closing {
		node, err := p.expression(0)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)

		if p.peek().Type == tokenizer.COMMA {
			p.next()
			if p.peek().Type == closing {
				return nil, p.syntaxf("Invalid token after ',': %s", p.peek())
			}
		}
	}

	if _, err := p.expect(closing); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (p *parser) parseNudLbrace(pos ast.Position) (ast.Expression, error) {
	var entries []ast.MultiSelectHashEntry

	for {
		// A multi-select hash requires at least one key/value pair.
		key, err := p.expect(tokenizer.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenizer.COLON); err != nil {
			return nil, err
		}
		value, err := p.expression(0)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.MultiSelectHashEntry{Key: key.Value.(string), Value: value})

		next, err := p.expectPeek(tokenizer.RBRACE, tokenizer.COMMA)
		if err != nil {
			return nil, err
		}
		if next.Type == tokenizer.COMMA {
			p.next()
		} else {
			break
		}
	}

	if _, err := p.expect(tokenizer.RBRACE); err != nil {
		return nil, err
	}
	return &ast.MultiSelectHash{Position: pos, Entries: entries}, nil
}

// parseWildcardIndex creates the projection for "[*]".
func (p *parser) parseWildcardIndex(left ast.Expression) (ast.Expression, error) {
	pos := p.pos()
	if _, err := p.expect(tokenizer.STAR); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenizer.RBRACKET); err != nil {
		return nil, err
	}
	right, err := p.parseProjectionRhs(tokenizer.STAR.BindingPower())
	if err != nil {
		return nil, err
	}
	return &ast.Projection{Position: pos, Left: left, Right: right}, nil
}

// parseWildcardObject creates the projection for "*". The star itself was
// already consumed; pos is its position.
func (p *parser) parseWildcardObject(left ast.Expression, pos ast.Position) (ast.Expression, error) {
	right, err := p.parseProjectionRhs(tokenizer.STAR.BindingPower())
	if err != nil {
		return nil, err
	}
	return &ast.ObjectProjection{Position: pos, Left: left, Right: right}, nil
}

// parseFlatten creates the projection for "[]", wrapping the left side in
// a flatten node.
func (p *parser) parseFlatten(left ast.Expression) (ast.Expression, error) {
	pos := p.pos()
	flatten := &ast.Flatten{Position: left.Pos(), Left: left}
	right, err := p.parseProjectionRhs(tokenizer.STAR.BindingPower())
	if err != nil {
		return nil, err
	}
	return &ast.Projection{Position: pos, Left: flatten, Right: right}, nil
}

// parseProjectionRhs parses the right side of a projection, using lbp to
// decide when to stop consuming tokens.
func (p *parser) parseProjectionRhs(lbp int) (ast.Expression, error) {
	next, err := p.expectNotEOF()
	if err != nil {
		return nil, err
	}

	switch {
	case next.Type == tokenizer.DOT:
		// foo.*.bar
		p.next()
		return p.parseDotRhs(lbp)
	case next.Type == tokenizer.LBRACKET || next.Type == tokenizer.FILTER:
		// foo[*][1], foo[*][?baz]
		return p.expression(lbp)
	case next.Type.BindingPower() < projectionStop:
		// foo.* || bar
		return &ast.Current{Position: ast.Position{Line: next.Position.Line, Column: next.Position.Column}}, nil
	default:
		return nil, p.syntaxf("Invalid projection")
	}
}

func (p *parser) parseComparator(comparator jmespath.ComparatorType, left ast.Expression) (ast.Expression, error) {
	pos := p.pos()
	right, err := p.expression(tokenizer.EQUAL.BindingPower())
	if err != nil {
		return nil, err
	}
	return &ast.Comparator{Position: pos, Type: comparator, Left: left, Right: right}, nil
}

// parseDotRhs parses the right side of a ".".
func (p *parser) parseDotRhs(lbp int) (ast.Expression, error) {
	token, err := p.expectPeek(
		tokenizer.LBRACKET,
		tokenizer.LBRACE,
		tokenizer.STAR,
		tokenizer.IDENTIFIER,
	)
	if err != nil {
		return nil, err
	}

	if token.Type == tokenizer.LBRACKET {
		// Skip '[' and parse the multi-select list.
		p.next()
		return p.parseMultiList()
	}
	return p.expression(lbp)
}

// parseFilter parses a filter into a projection that yields elements whose
// condition evaluates to a truthy value.
func (p *parser) parseFilter(left ast.Expression) (ast.Expression, error) {
	condition, err := p.expression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenizer.RBRACKET); err != nil {
		return nil, err
	}
	right, err := p.parseProjectionRhs(tokenizer.FILTER.BindingPower())
	if err != nil {
		return nil, err
	}
	return &ast.FilterProjection{
		Position:  condition.Pos(),
		Left:      left,
		Condition: condition,
		Right:     right,
	}, nil
}
