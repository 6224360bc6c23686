package jmespath

import (
	"errors"
	"fmt"
)

// Sentinel tag errors. Every error produced by the tokenizer, parser, and
// evaluator wraps exactly one of these, so callers can classify failures
// with errors.Is without parsing messages.
var (
	// ErrSyntax indicates the expression could not be tokenized or parsed.
	ErrSyntax = errors.New("syntax")
	// ErrInvalidType indicates a function received an argument of the wrong type.
	ErrInvalidType = errors.New("invalid-type")
	// ErrInvalidValue indicates a value was structurally valid but semantically
	// unusable, such as a slice step of zero.
	ErrInvalidValue = errors.New("invalid-value")
	// ErrUnknownFunction indicates a call to a function the registry does not know.
	ErrUnknownFunction = errors.New("unknown-function")
	// ErrInvalidArity indicates a function was called with the wrong number of arguments.
	ErrInvalidArity = errors.New("invalid-arity")
	// ErrOther covers failures outside the above categories.
	ErrOther = errors.New("other")
)

// Error is the engine error type. Tag is one of the sentinel tag errors
// above. Line and Column are 1-based; zero means the error carries no
// source location (for example a type error raised inside a built-in).
type Error struct {
	Tag     error
	Message string
	Line    int
	Column  int
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s error at line %d column %d: %s", e.Tag, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Tag, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Tag
}

// NewError builds a location-free Error with the given tag.
func NewError(tag error, format string, args ...any) *Error {
	return &Error{Tag: tag, Message: fmt.Sprintf(format, args...)}
}

// NewErrorAt builds an Error pinned to a 1-based source position.
func NewErrorAt(tag error, line, column int, format string, args ...any) *Error {
	return &Error{Tag: tag, Message: fmt.Sprintf(format, args...), Line: line, Column: column}
}
