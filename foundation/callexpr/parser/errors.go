// File: errors.go
// Title: Call Expression Parse Errors
// Description: Sentinel errors for the failure classes of call expression
//              parsing and helpers to build and inspect positioned errors.
// Author: msto63
// Version: v0.2.0
// Created: 2026-10-19
// Modified: 2026-10-19
//
// Change History:
// - 2026-10-19 v0.2.0: Sentinels backed by structured error codes

package parser

import (
	"errors"
	"fmt"

	mdwerror "github.com/msto63/callexpr/foundation/core/error"
)

// Sentinel errors. Errors returned by this package match exactly one of
// them with errors.Is and carry the same code.
var (
	// ErrMalformedExpression reports unbalanced parentheses, a missing
	// command name or a token in a position where it cannot appear.
	ErrMalformedExpression = mdwerror.New("malformed expression").WithCode(mdwerror.CodeMalformedExpression)

	// ErrEmptyExpression reports input in which no command was formed.
	ErrEmptyExpression = mdwerror.New("empty expression").WithCode(mdwerror.CodeEmptyExpression)

	// ErrUnterminatedQuote reports input ending inside a quoted argument.
	ErrUnterminatedQuote = mdwerror.New("unterminated quote").WithCode(mdwerror.CodeUnterminatedQuote)

	// ErrInputTooLong reports input longer than Options.MaxInputLength.
	ErrInputTooLong = mdwerror.New("input too long").WithCode(mdwerror.CodeInputTooLong)

	// ErrDepthExceeded reports nesting deeper than Options.MaxDepth.
	ErrDepthExceeded = mdwerror.New("nesting depth exceeded").WithCode(mdwerror.CodeDepthExceeded)
)

// Detail keys attached to parse errors
const (
	DetailOffset     = "offset"
	DetailTokenIndex = "token_index"
	DetailDepth      = "depth"
)

// errorAt builds a parse error positioned at a token
func errorAt(code mdwerror.Code, index, offset int, format string, args ...interface{}) *mdwerror.Error {
	return mdwerror.New(fmt.Sprintf(format, args...)).
		WithCode(code).
		WithOperation("parser.Build").
		WithDetail(DetailTokenIndex, index).
		WithDetail(DetailOffset, offset)
}

// ErrorOffset returns the byte offset in the input at which err was
// detected, if err carries one
func ErrorOffset(err error) (int, bool) {
	var e *mdwerror.Error
	if !errors.As(err, &e) {
		return 0, false
	}
	v, ok := e.Detail(DetailOffset)
	if !ok {
		return 0, false
	}
	offset, ok := v.(int)
	return offset, ok
}
