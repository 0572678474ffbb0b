// File: doc.go
// Title: Call Expression Parser Package Documentation
// Description: Package documentation for the tree builder and parser.
// Author: msto63
// Version: v0.2.0
// Created: 2026-10-19
// Modified: 2026-10-19
//
// Change History:
// - 2026-10-19 v0.2.0: Initial documentation

/*
Package parser turns call expressions into command trees.

	cmd, err := parser.Parse(`Foo(1, "a,b", Bar(2, Baz()))`)

Build walks the token sequence once. Each '(' opens a command named by the
literal token directly before it. Because a literal is appended to the
enclosing command as soon as it is seen, a following '(' removes that
argument again and uses its text as the name. Quote state is tracked here
rather than in the tokenizer: between two '"' tokens every token contributes
its text verbatim to a single quoted argument.

Failures are *mdwerror.Error values that match one of ErrMalformedExpression,
ErrEmptyExpression or ErrUnterminatedQuote with errors.Is and carry the
offending byte offset (see ErrorOffset). No partial tree is ever returned.

Parser adds an input length limit (ErrInputTooLong), a nesting limit
(ErrDepthExceeded) and debug logging; the package-level functions apply no
limits.
*/
package parser
