// Package token implements the lexical stage of call expression parsing.
//
// Tokenize scans input one rune at a time. The characters , ( ) and " each
// produce a token of their own and close any pending literal run; every other
// rune, whitespace included, extends the current run:
//
//	token.Format(token.Tokenize(`Foo(1, "a")`))
//	// Literal:Foo ParenOpen:( Literal:1 Comma:, Literal:  Quote:" Literal:a Quote:" ParenClose:)
//
// Literal text is kept verbatim. Trimming and quote handling happen in the
// parser package.
package token
