// File: builder.go
// Title: Call Expression Tree Builder
// Description: Builds a command tree from a token sequence in a single
//              pass. Open commands live on an explicit stack of frames;
//              literal arguments are appended eagerly and promoted to a
//              command name when an opening parenthesis follows them.
// Author: msto63
// Version: v0.2.0
// Created: 2026-10-19
// Modified: 2026-10-19
//
// Change History:
// - 2026-10-19 v0.2.0: Initial stack-based builder with quote tracking

package parser

import (
	"strings"

	"github.com/msto63/callexpr/foundation/callexpr/ast"
	"github.com/msto63/callexpr/foundation/callexpr/token"
	mdwerror "github.com/msto63/callexpr/foundation/core/error"
)

// frame is an in-progress command. Frames are kept in an arena and linked
// to their parent by index, so popping never moves data.
type frame struct {
	cmd    *ast.Command
	parent int // arena index of the enclosing frame, -1 for the root
	depth  int // 1 for the root
}

// builder holds the state of one build pass
type builder struct {
	maxDepth int // 0 means unlimited

	frames []frame
	top    int // arena index of the innermost open frame, -1 when none
	root   *ast.Command
	closed bool // the root command has been closed

	inQuote     bool
	quoteBuffer strings.Builder
	quoteIndex  int // token index of the opening quote
	quoteOffset int
}

// Build constructs the command tree described by tokens
func Build(tokens []token.Token) (*ast.Command, error) {
	return build(tokens, 0)
}

// Parse tokenizes text and builds its command tree
func Parse(text string) (*ast.Command, error) {
	return Build(token.Tokenize(text))
}

func build(tokens []token.Token, maxDepth int) (*ast.Command, error) {
	b := &builder{maxDepth: maxDepth, top: -1}
	for i := range tokens {
		if err := b.step(tokens, i); err != nil {
			return nil, err
		}
	}
	return b.finish(tokens)
}

// step processes the token at index i
func (b *builder) step(tokens []token.Token, i int) error {
	tok := tokens[i]

	if b.inQuote {
		if tok.Kind == token.Quote {
			b.inQuote = false
			b.appendArg(ast.Literal{Value: b.quoteBuffer.String(), Quoted: true})
			return nil
		}
		b.quoteBuffer.WriteString(tok.Text)
		return nil
	}

	switch tok.Kind {
	case token.ParenOpen:
		return b.open(tokens, i)

	case token.ParenClose:
		if b.top < 0 {
			return errorAt(mdwerror.CodeMalformedExpression, i, tok.Offset,
				"unexpected ')' at offset %d: no open command", tok.Offset)
		}
		b.top = b.frames[b.top].parent
		if b.top < 0 {
			b.closed = true
		}

	case token.Quote:
		if b.top < 0 {
			return b.outside(tok, i, `'"'`)
		}
		b.inQuote = true
		b.quoteBuffer.Reset()
		b.quoteIndex = i
		b.quoteOffset = tok.Offset

	case token.Comma:
		if b.top < 0 {
			return b.outside(tok, i, "','")
		}

	case token.Literal:
		value := strings.TrimSpace(tok.Text)
		if value == "" {
			return nil
		}
		if b.top >= 0 {
			b.appendArg(ast.Literal{Value: value})
			return nil
		}
		if b.closed {
			return errorAt(mdwerror.CodeMalformedExpression, i, tok.Offset,
				"unexpected %q at offset %d after the root command", value, tok.Offset)
		}
		// A literal before the root can only be its name; ParenOpen
		// picks it up from the token sequence.

	default:
		return errorAt(mdwerror.CodeMalformedExpression, i, tok.Offset,
			"unknown token kind %v at offset %d", tok.Kind, tok.Offset)
	}
	return nil
}

// open starts a command named by the literal preceding index i
func (b *builder) open(tokens []token.Token, i int) error {
	tok := tokens[i]
	if b.closed {
		return errorAt(mdwerror.CodeMalformedExpression, i, tok.Offset,
			"unexpected '(' at offset %d after the root command", tok.Offset)
	}
	if i == 0 || tokens[i-1].Kind != token.Literal || tokens[i-1].IsBlank() {
		return errorAt(mdwerror.CodeMalformedExpression, i, tok.Offset,
			"missing command name before '(' at offset %d", tok.Offset)
	}
	name := strings.TrimSpace(tokens[i-1].Text)

	depth := 1
	if b.top >= 0 {
		parent := b.frames[b.top].cmd
		// The name was appended as an argument when it was scanned.
		if n := len(parent.Args); n > 0 {
			if lit, ok := parent.Args[n-1].(ast.Literal); ok && !lit.Quoted && lit.Value == name {
				parent.Args = parent.Args[:n-1]
			}
		}
		depth = b.frames[b.top].depth + 1
	}
	if b.maxDepth > 0 && depth > b.maxDepth {
		return errorAt(mdwerror.CodeDepthExceeded, i, tok.Offset,
			"nesting depth %d exceeds limit %d at offset %d", depth, b.maxDepth, tok.Offset).
			WithDetail(DetailDepth, depth)
	}

	cmd := &ast.Command{Name: name}
	if b.root == nil {
		b.root = cmd
	}
	if b.top >= 0 {
		parent := b.frames[b.top].cmd
		parent.Args = append(parent.Args, ast.Nested{Command: cmd})
	}
	b.frames = append(b.frames, frame{cmd: cmd, parent: b.top, depth: depth})
	b.top = len(b.frames) - 1
	return nil
}

// appendArg adds an argument to the innermost open command
func (b *builder) appendArg(arg ast.Arg) {
	if b.top < 0 {
		return
	}
	cmd := b.frames[b.top].cmd
	cmd.Args = append(cmd.Args, arg)
}

// outside reports a structural token that appears outside any command
func (b *builder) outside(tok token.Token, i int, symbol string) error {
	if b.closed {
		return errorAt(mdwerror.CodeMalformedExpression, i, tok.Offset,
			"unexpected %s at offset %d after the root command", symbol, tok.Offset)
	}
	return errorAt(mdwerror.CodeMalformedExpression, i, tok.Offset,
		"unexpected %s at offset %d outside a command", symbol, tok.Offset)
}

// finish validates the end state and returns the root
func (b *builder) finish(tokens []token.Token) (*ast.Command, error) {
	end := 0
	if n := len(tokens); n > 0 {
		end = tokens[n-1].Offset + len(tokens[n-1].Text)
	}

	if b.inQuote {
		return nil, errorAt(mdwerror.CodeUnterminatedQuote, b.quoteIndex, b.quoteOffset,
			"quote opened at offset %d is never closed", b.quoteOffset)
	}
	if b.top >= 0 {
		return nil, errorAt(mdwerror.CodeMalformedExpression, len(tokens), end,
			"command %q is not closed", b.frames[b.top].cmd.Name).
			WithDetail(DetailDepth, b.frames[b.top].depth)
	}
	if b.root == nil {
		return nil, mdwerror.New("no command found in input").
			WithCode(mdwerror.CodeEmptyExpression).
			WithOperation("parser.Build").
			WithDetail(DetailTokenIndex, len(tokens)).
			WithDetail(DetailOffset, end)
	}
	return b.root, nil
}
