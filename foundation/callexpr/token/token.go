// File: token.go
// Title: Call Expression Tokenizer
// Description: Splits call expression text into literal runs and the four
//              structural symbols. The tokenizer is quote-agnostic; quote
//              state is resolved by the tree builder.
// Author: msto63
// Version: v0.2.0
// Created: 2026-10-19
// Modified: 2026-10-19
//
// Change History:
// - 2026-10-19 v0.2.0: Initial tokenizer with byte offsets and debug dump

package token

import (
	"fmt"
	"strings"
)

// Kind represents the type of a lexical token
type Kind int

const (
	Literal    Kind = iota // any run of non-structural characters, untrimmed
	Comma                  // ,
	ParenOpen              // (
	ParenClose             // )
	Quote                  // "
)

// String returns the name of the token kind
func (k Kind) String() string {
	switch k {
	case Literal:
		return "Literal"
	case Comma:
		return "Comma"
	case ParenOpen:
		return "ParenOpen"
	case ParenClose:
		return "ParenClose"
	case Quote:
		return "Quote"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsStructural reports whether k is one of the single-character symbols
func (k Kind) IsStructural() bool {
	return k >= Comma && k <= Quote
}

// Token represents a lexical token with position information
type Token struct {
	Kind   Kind   // Token kind
	Text   string // Raw text; the symbol itself for structural kinds
	Offset int    // Byte position in input
}

// String returns the kind:text form used by Format
func (t Token) String() string {
	return t.Kind.String() + ":" + t.Text
}

// IsBlank reports whether t is a literal consisting only of whitespace
func (t Token) IsBlank() bool {
	return t.Kind == Literal && strings.TrimSpace(t.Text) == ""
}

// kindOf maps a structural character to its kind
func kindOf(r rune) (Kind, bool) {
	switch r {
	case ',':
		return Comma, true
	case '(':
		return ParenOpen, true
	case ')':
		return ParenClose, true
	case '"':
		return Quote, true
	}
	return Literal, false
}

// Tokenize converts text into an ordered token sequence. It never fails;
// empty input yields an empty sequence.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1 // offset of the open literal run, -1 when none

	for i, r := range text {
		kind, structural := kindOf(r)
		if !structural {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, Token{Kind: Literal, Text: text[start:i], Offset: start})
			start = -1
		}
		tokens = append(tokens, Token{Kind: kind, Text: string(r), Offset: i})
	}
	if start >= 0 {
		tokens = append(tokens, Token{Kind: Literal, Text: text[start:], Offset: start})
	}

	return tokens
}

// Format renders tokens as space-separated kind:text pairs for diagnostics
func Format(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = tok.String()
	}
	return strings.Join(parts, " ")
}
