package tokenizer

import (
	"iter"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/shibukawa/jmespath"
)

// TokenIterator uses Go 1.24 iterator pattern
type TokenIterator iter.Seq2[Token, error]

// DefaultMaxNestingDepth bounds how deeply JSON literals may nest before
// tokenization fails with a syntax error.
const DefaultMaxNestingDepth = 50

// Tokenizer turns a query expression into a token stream.
type Tokenizer struct {
	input   string
	options Options
}

// Options are options for the tokenizer.
type Options struct {
	// MaxNestingDepth overrides DefaultMaxNestingDepth when positive.
	MaxNestingDepth int
}

// New creates a new Tokenizer.
func New(input string, options ...Options) *Tokenizer {
	opts := Options{}
	if len(options) > 0 {
		opts = options[0]
	}
	if opts.MaxNestingDepth <= 0 {
		opts.MaxNestingDepth = DefaultMaxNestingDepth
	}

	return &Tokenizer{
		input:   input,
		options: opts,
	}
}

// Tokens returns an iterator of tokens. The stream always ends with an EOF
// token; on a lexical error the stream yields the error and stops.
func (t *Tokenizer) Tokens() TokenIterator {
	return func(yield func(Token, error) bool) {
		l := &lexer{
			input:      t.input,
			length:     len(t.input),
			line:       1,
			column:     1,
			maxNesting: t.options.MaxNestingDepth,
		}

		if err := l.run(); err != nil {
			yield(Token{}, err)
			return
		}

		for _, token := range l.tokens {
			if !yield(token, nil) {
				return
			}
		}
	}
}

// AllTokens gets all tokens as a slice.
func (t *Tokenizer) AllTokens() ([]Token, error) {
	tokens := make([]Token, 0, 16)

	for token, err := range t.Tokens() {
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	return tokens, nil
}

// Internal lexer implementation
type lexer struct {
	input      string
	length     int
	position   int
	line       int
	column     int
	nesting    int
	maxNesting int
	inLiteral  bool
	tokens     []Token
}

func (l *lexer) run() error {
	for !l.eof() {
		c := l.peek()

		if isIdentifierStart(c) {
			l.parseIdentifier()
			continue
		}

		if c == '-' || isDigit(c) {
			token, err := l.parseNumber()
			if err != nil {
				return err
			}
			l.tokens = append(l.tokens, token)
			continue
		}

		switch c {
		case '.':
			l.emit(DOT)
		case '[':
			l.parseLbracket()
		case '*':
			l.emit(STAR)
		case '|':
			l.parseAlternatives('|', OR, PIPE)
		case '@':
			l.emit(CURRENT)
		case ']':
			l.emit(RBRACKET)
		case '{':
			l.emit(LBRACE)
		case '}':
			l.emit(RBRACE)
		case '&':
			l.parseAlternatives('&', AND, EXPREF)
		case '(':
			l.emit(LPAREN)
		case ')':
			l.emit(RPAREN)
		case ',':
			l.emit(COMMA)
		case ':':
			l.emit(COLON)
		case '"':
			token, err := l.parseString()
			if err != nil {
				return err
			}
			l.tokens = append(l.tokens, token)
		case '\'':
			token, err := l.parseRawString()
			if err != nil {
				return err
			}
			l.tokens = append(l.tokens, token)
		case '`':
			token, err := l.parseLiteral()
			if err != nil {
				return err
			}
			l.tokens = append(l.tokens, token)
		case '=':
			pos := l.pos()
			l.skip()
			if err := l.expect('='); err != nil {
				return err
			}
			l.tokens = append(l.tokens, Token{Type: EQUAL, Position: pos})
		case '>':
			l.parseAlternatives('=', GREATER_THAN_EQUAL, GREATER_THAN)
		case '<':
			l.parseAlternatives('=', LESS_THAN_EQUAL, LESS_THAN)
		case '!':
			l.parseAlternatives('=', NOT_EQUAL, NOT)
		case ' ', '\t', '\r', '\n':
			l.skip()
		default:
			return l.syntaxf("Unexpected syntax: %s", l.peekForMessage())
		}
	}

	l.tokens = append(l.tokens, Token{Type: EOF, Position: l.pos()})
	return nil
}

func (l *lexer) eof() bool {
	return l.position >= l.length
}

func (l *lexer) pos() Position {
	return Position{Line: l.line, Column: l.column}
}

func (l *lexer) peek() byte {
	return l.peekAt(0)
}

func (l *lexer) peekAt(offset int) byte {
	target := l.position + offset
	if target >= l.length || target < 0 {
		return 0
	}
	return l.input[target]
}

func (l *lexer) peekForMessage() string {
	if l.eof() {
		return "[EOF]"
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.position:])
	return string(r)
}

// skip advances one byte, tracking line and column across \n, \r, and \r\n.
func (l *lexer) skip() {
	if l.eof() {
		return
	}

	switch l.input[l.position] {
	case '\r':
		if l.peekAt(1) == '\n' {
			l.position++
		}
		l.line++
		l.column = 1
	case '\n':
		l.line++
		l.column = 1
	default:
		l.column++
	}

	l.position++
}

func (l *lexer) expect(c byte) error {
	if l.peek() == c {
		l.skip()
		return nil
	}
	return l.syntaxf("Expected: '%c', but found '%s'", c, l.peekForMessage())
}

func (l *lexer) expectOneOf(chars string) (byte, error) {
	for i := 0; i < len(chars); i++ {
		if l.peek() == chars[i] {
			l.skip()
			return chars[i], nil
		}
	}

	var message strings.Builder
	message.WriteString("Found '")
	message.WriteString(l.peekForMessage())
	message.WriteString("', but expected one of the following tokens:")
	for i := 0; i < len(chars); i++ {
		message.WriteString(" '")
		message.WriteByte(chars[i])
		message.WriteString("'")
	}
	return 0, l.syntaxf("%s", message.String())
}

func (l *lexer) syntaxf(format string, args ...any) error {
	return jmespath.NewErrorAt(jmespath.ErrSyntax, l.line, l.column, format, args...)
}

func (l *lexer) emit(t TokenType) {
	l.tokens = append(l.tokens, Token{Type: t, Position: l.pos()})
	l.skip()
}

func (l *lexer) sliceFrom(start int) string {
	return l.input[start:l.position]
}

func (l *lexer) consumeWhile(predicate func(byte) bool) int {
	start := l.position
	for !l.eof() && predicate(l.peek()) {
		l.skip()
	}
	return l.position - start
}

func (l *lexer) increaseNesting() error {
	l.nesting++
	if l.nesting > l.maxNesting {
		return l.syntaxf("Parser exceeded the maximum allowed depth of %d", l.maxNesting)
	}
	return nil
}

func (l *lexer) decreaseNesting() {
	l.nesting--
}

func isIdentifierStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentifierChar(c byte) bool {
	return isIdentifierStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// parseAlternatives consumes one character and emits first when the next
// character equals next ("||", "&&", ">="), second otherwise.
func (l *lexer) parseAlternatives(next byte, first, second TokenType) {
	pos := l.pos()
	l.skip()
	if l.peek() == next {
		l.skip()
		l.tokens = append(l.tokens, Token{Type: first, Position: pos})
	} else {
		l.tokens = append(l.tokens, Token{Type: second, Position: pos})
	}
}

func (l *lexer) parseIdentifier() {
	start := l.position
	pos := l.pos()
	l.consumeWhile(isIdentifierChar)
	l.tokens = append(l.tokens, Token{Type: IDENTIFIER, Value: l.sliceFrom(start), Position: pos})
}

func (l *lexer) parseString() (Token, error) {
	pos := l.pos()
	if err := l.expect('"'); err != nil {
		return Token{}, err
	}
	value, err := l.consumeInsideString()
	if err != nil {
		return Token{}, err
	}
	return Token{Type: IDENTIFIER, Value: value, Position: pos}, nil
}

func (l *lexer) consumeInsideString() (string, error) {
	var builder strings.Builder

	for !l.eof() {
		switch l.peek() {
		case '"':
			l.skip()
			return builder.String(), nil
		case '\\':
			l.skip()
			switch l.peek() {
			case '"':
				builder.WriteByte('"')
				l.skip()
			case 'n':
				builder.WriteByte('\n')
				l.skip()
			case 't':
				builder.WriteByte('\t')
				l.skip()
			case 'r':
				builder.WriteByte('\r')
				l.skip()
			case 'f':
				builder.WriteByte('\f')
				l.skip()
			case 'b':
				builder.WriteByte('\b')
				l.skip()
			case '/':
				builder.WriteByte('/')
				l.skip()
			case '\\':
				builder.WriteByte('\\')
				l.skip()
			case 'u':
				l.skip()
				unit, err := l.readHexEscape()
				if err != nil {
					return "", err
				}
				r := rune(unit)
				// Astral code points are escaped as a UTF-16 surrogate
				// pair of two \uXXXX units; they must be combined into a
				// single rune before encoding.
				if utf16.IsSurrogate(r) && l.peek() == '\\' && l.peekAt(1) == 'u' {
					l.skip()
					l.skip()
					second, err := l.readHexEscape()
					if err != nil {
						return "", err
					}
					if paired := utf16.DecodeRune(r, rune(second)); paired != utf8.RuneError {
						r = paired
					} else {
						builder.WriteRune(r)
						r = rune(second)
					}
				}
				builder.WriteRune(r)
			case '`':
				// Ticks can be escaped inside JSON literals.
				if l.inLiteral {
					builder.WriteByte('`')
					l.skip()
					break
				}
				return "", l.syntaxf("Invalid escape: %s", l.peekForMessage())
			default:
				return "", l.syntaxf("Invalid escape: %s", l.peekForMessage())
			}
		case '`':
			// An unescaped backtick inside a literal means the literal was
			// closed while still reading a string.
			if l.inLiteral {
				l.skip()
				return "", l.syntaxf("Unclosed quotes")
			}
			fallthrough
		default:
			builder.WriteByte(l.peek())
			l.skip()
		}
	}

	return "", l.syntaxf("Unclosed quotes")
}

// readHexEscape reads the four hex digits of a \uXXXX escape. The backslash
// and the 'u' have already been consumed.
func (l *lexer) readHexEscape() (int, error) {
	unit := 0
	for i := 0; i < 4; i++ {
		c := l.peek()
		l.skip()
		switch {
		case c >= '0' && c <= '9':
			unit = unit<<4 | int(c-'0')
		case c >= 'a' && c <= 'f':
			unit = unit<<4 | int(10+c-'a')
		case c >= 'A' && c <= 'F':
			unit = unit<<4 | int(10+c-'A')
		default:
			return 0, l.syntaxf("Invalid unicode escape character: `%c`", c)
		}
	}
	return unit, nil
}

// parseRawString reads '...' where only \' and \\ are escapes; every other
// backslash is kept literally.
func (l *lexer) parseRawString() (Token, error) {
	pos := l.pos()
	if err := l.expect('\''); err != nil {
		return Token{}, err
	}

	var builder strings.Builder
	for !l.eof() {
		switch l.peek() {
		case '\\':
			l.skip()
			if l.peek() == '\'' {
				l.skip()
				builder.WriteByte('\'')
			} else {
				if l.peek() == '\\' {
					l.skip()
				}
				builder.WriteByte('\\')
			}
		case '\'':
			l.skip()
			return Token{Type: LITERAL, Value: builder.String(), Position: pos}, nil
		default:
			builder.WriteByte(l.peek())
			l.skip()
		}
	}

	return Token{}, l.syntaxf("Unclosed raw string: %s", builder.String())
}

func (l *lexer) parseNumber() (Token, error) {
	start := l.position
	pos := l.pos()

	if l.peek() == '-' {
		l.skip()
		if !isDigit(l.peek()) {
			return Token{}, l.syntaxf("Invalid number '%s': '-' must be followed by a digit", l.sliceFrom(start))
		}
	}

	l.consumeWhile(isDigit)

	if l.peek() == '.' {
		l.skip()
		if l.consumeWhile(isDigit) == 0 {
			return Token{}, l.syntaxf("Invalid number '%s': '.' must be followed by a digit", l.sliceFrom(start))
		}
	}

	if c := l.peek(); c == 'e' || c == 'E' {
		l.skip()
		if c := l.peek(); c == '+' || c == '-' {
			l.skip()
		}
		if l.consumeWhile(isDigit) == 0 {
			return Token{}, l.syntaxf("Invalid number '%s': 'e', '+', and '-' must be followed by a digit", l.sliceFrom(start))
		}
	}

	lexeme := l.sliceFrom(start)
	number, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		return Token{}, l.syntaxf("Invalid number syntax: %s", lexeme)
	}

	return Token{Type: NUMBER, Value: number, Position: pos}, nil
}

// parseLbracket distinguishes "[]" (flatten) and "[?" (filter) from a
// plain "[".
func (l *lexer) parseLbracket() {
	pos := l.pos()
	l.skip()
	switch l.peek() {
	case ']':
		l.skip()
		l.tokens = append(l.tokens, Token{Type: FLATTEN, Position: pos})
	case '?':
		l.skip()
		l.tokens = append(l.tokens, Token{Type: FILTER, Position: pos})
	default:
		l.tokens = append(l.tokens, Token{Type: LBRACKET, Position: pos})
	}
}

func (l *lexer) parseLiteral() (Token, error) {
	pos := l.pos()
	l.inLiteral = true
	if err := l.expect('`'); err != nil {
		return Token{}, err
	}
	l.ws()
	value, err := l.parseJSONValue()
	if err != nil {
		return Token{}, err
	}
	l.ws()
	if err := l.expect('`'); err != nil {
		return Token{}, err
	}
	l.inLiteral = false
	return Token{Type: LITERAL, Value: value, Position: pos}, nil
}

func (l *lexer) parseJSONValue() (any, error) {
	l.ws()
	c, err := l.expectOneOf("\"{[tfn0123456789-")
	if err != nil {
		return nil, err
	}

	switch c {
	case 't':
		for _, expected := range []byte("rue") {
			if err := l.expect(expected); err != nil {
				return nil, err
			}
		}
		return true, nil
	case 'f':
		for _, expected := range []byte("alse") {
			if err := l.expect(expected); err != nil {
				return nil, err
			}
		}
		return false, nil
	case 'n':
		for _, expected := range []byte("ull") {
			if err := l.expect(expected); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case '"':
		// Backtrack for positioning.
		l.position--
		l.column--
		token, err := l.parseString()
		if err != nil {
			return nil, err
		}
		return token.Value, nil
	case '{':
		return l.parseJSONObject()
	case '[':
		return l.parseJSONArray()
	default: // - | 0-9
		// Backtrack.
		l.position--
		l.column--
		token, err := l.parseNumber()
		if err != nil {
			return nil, err
		}
		return token.Value, nil
	}
}

func (l *lexer) parseJSONArray() (any, error) {
	if err := l.increaseNesting(); err != nil {
		return nil, err
	}
	values := []any{}
	l.ws()

	if l.peek() == ']' {
		l.skip()
		l.decreaseNesting()
		return values, nil
	}

	for !l.eof() && l.peek() != '`' {
		value, err := l.parseJSONValue()
		if err != nil {
			return nil, err
		}
		values = append(values, value)
		l.ws()
		c, err := l.expectOneOf(",]")
		if err != nil {
			return nil, err
		}
		if c == ',' {
			l.ws()
		} else {
			l.decreaseNesting()
			return values, nil
		}
	}

	return nil, l.syntaxf("Unclosed JSON array")
}

func (l *lexer) parseJSONObject() (any, error) {
	if err := l.increaseNesting(); err != nil {
		return nil, err
	}
	values := map[string]any{}
	l.ws()

	if l.peek() == '}' {
		l.skip()
		l.decreaseNesting()
		return values, nil
	}

	for !l.eof() && l.peek() != '`' {
		key, err := l.parseString()
		if err != nil {
			return nil, err
		}
		l.ws()
		if err := l.expect(':'); err != nil {
			return nil, err
		}
		l.ws()
		value, err := l.parseJSONValue()
		if err != nil {
			return nil, err
		}
		values[key.Value.(string)] = value
		l.ws()
		c, err := l.expectOneOf(",}")
		if err != nil {
			return nil, err
		}
		if c == ',' {
			l.ws()
		} else {
			l.decreaseNesting()
			return values, nil
		}
	}

	return nil, l.syntaxf("Unclosed JSON object")
}

func (l *lexer) ws() {
	for !l.eof() {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.skip()
		default:
			return
		}
	}
}
