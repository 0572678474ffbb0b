// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     render
// Description: Output formats for command trees, tokens and parse errors
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/msto63/callexpr/foundation/callexpr/ast"
	"github.com/msto63/callexpr/foundation/callexpr/parser"
	"github.com/msto63/callexpr/foundation/callexpr/token"
	mdwerror "github.com/msto63/callexpr/foundation/core/error"
)

// Format selects an output representation
type Format string

const (
	FormatText   Format = "text"   // canonical one-line form
	FormatTree   Format = "tree"   // indented outline
	FormatJSON   Format = "json"   // generic map form
	FormatYAML   Format = "yaml"   // generic map form
	FormatTokens Format = "tokens" // token stream
)

// Formats lists the supported formats
func Formats() []Format {
	return []Format{FormatText, FormatTree, FormatJSON, FormatYAML, FormatTokens}
}

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", mdwerror.Newf("unknown output format %q", name).
		WithCode(mdwerror.CodeInvalidInput).
		WithOperation("render.ParseFormat").
		WithDetail("supported", Formats())
}

// Renderer writes trees and tokens in one format
type Renderer struct {
	format Format
	color  bool
	styles Styles
}

// New creates a renderer. Colour only affects the text, tree and tokens
// formats; json and yaml output is never styled.
func New(format Format, color bool) *Renderer {
	styles := PlainStyles()
	if color {
		styles = DefaultStyles()
	}
	return &Renderer{format: format, color: color, styles: styles}
}

// Format returns the renderer's format
func (r *Renderer) Format() Format {
	return r.format
}

// Command writes cmd followed by a newline. For FormatTokens the tokens of
// the source are needed, so tokens may be nil for the other formats.
func (r *Renderer) Command(w io.Writer, cmd *ast.Command, tokens []token.Token) error {
	var out string
	switch r.format {
	case FormatText:
		out = r.text(cmd) + "\n"
	case FormatTree:
		out = r.tree(cmd)
	case FormatJSON:
		data, err := json.MarshalIndent(cmd.ToMap(), "", "  ")
		if err != nil {
			return mdwerror.Wrap(err, "failed to encode tree").WithCode(mdwerror.CodeInternal)
		}
		out = string(data) + "\n"
	case FormatYAML:
		data, err := yaml.Marshal(yamlNode(cmd))
		if err != nil {
			return mdwerror.Wrap(err, "failed to encode tree").WithCode(mdwerror.CodeInternal)
		}
		out = string(data)
	case FormatTokens:
		return r.Tokens(w, tokens)
	default:
		return mdwerror.Newf("unknown output format %q", r.format).WithCode(mdwerror.CodeInvalidInput)
	}
	_, err := io.WriteString(w, out)
	return err
}

// Tokens writes one token per line with its offset and kind
func (r *Renderer) Tokens(w io.Writer, tokens []token.Token) error {
	switch r.format {
	case FormatJSON:
		data, err := json.MarshalIndent(TokenList(tokens), "", "  ")
		if err != nil {
			return mdwerror.Wrap(err, "failed to encode tokens").WithCode(mdwerror.CodeInternal)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		data, err := yaml.Marshal(TokenList(tokens))
		if err != nil {
			return mdwerror.Wrap(err, "failed to encode tokens").WithCode(mdwerror.CodeInternal)
		}
		_, err = w.Write(data)
		return err
	case FormatText:
		_, err := fmt.Fprintln(w, token.Format(tokens))
		return err
	}

	var b strings.Builder
	for _, tok := range tokens {
		fmt.Fprintf(&b, "%s  %s  %q\n",
			r.styles.Offset.Render(fmt.Sprintf("%5d", tok.Offset)),
			r.styles.Kind.Render(fmt.Sprintf("%-10s", tok.Kind)),
			tok.Text)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// TokenView is the serialisable form of a token
type TokenView struct {
	Kind   string `json:"kind" yaml:"kind"`
	Text   string `json:"text" yaml:"text"`
	Offset int    `json:"offset" yaml:"offset"`
}

// TokenList converts tokens to their serialisable form
func TokenList(tokens []token.Token) []TokenView {
	out := make([]TokenView, len(tokens))
	for i, tok := range tokens {
		out[i] = TokenView{Kind: tok.Kind.String(), Text: tok.Text, Offset: tok.Offset}
	}
	return out
}

// text renders the canonical form with styled names and literals
func (r *Renderer) text(cmd *ast.Command) string {
	if !r.color {
		return cmd.String()
	}
	var b strings.Builder
	r.writeText(&b, cmd)
	return b.String()
}

// writeText mirrors ast.Command.String with styling, using an explicit stack
func (r *Renderer) writeText(b *strings.Builder, root *ast.Command) {
	type item struct {
		cmd   *ast.Command
		next  int
		close bool
	}
	stack := []*item{{cmd: root}}
	b.WriteString(r.styles.Command.Render(root.Name) + "(")
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.cmd.Args) {
			b.WriteString(")")
			stack = stack[:len(stack)-1]
			continue
		}
		if top.next > 0 {
			b.WriteString(", ")
		}
		arg := top.cmd.Args[top.next]
		top.next++
		switch a := arg.(type) {
		case ast.Literal:
			b.WriteString(r.literal(a))
		case ast.Nested:
			b.WriteString(r.styles.Command.Render(a.Command.Name) + "(")
			stack = append(stack, &item{cmd: a.Command})
		}
	}
}

func (r *Renderer) literal(lit ast.Literal) string {
	if lit.Quoted {
		return r.styles.Quoted.Render(lit.String())
	}
	return r.styles.Literal.Render(lit.String())
}

// tree renders an outline with box-drawing branches
func (r *Renderer) tree(root *ast.Command) string {
	type item struct {
		arg    ast.Arg
		prefix string
		last   bool
		root   bool
	}

	var b strings.Builder
	stack := []item{{arg: ast.Nest(root), root: true}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		childPrefix := ""
		if !it.root {
			branch, cont := "├── ", "│   "
			if it.last {
				branch, cont = "└── ", "    "
			}
			b.WriteString(r.styles.Branch.Render(it.prefix + branch))
			childPrefix = it.prefix + cont
		}

		switch a := it.arg.(type) {
		case ast.Literal:
			b.WriteString(r.literal(a) + "\n")
		case ast.Nested:
			b.WriteString(r.styles.Command.Render(a.Command.Name) + "\n")
			args := a.Command.Args
			for i := len(args) - 1; i >= 0; i-- {
				stack = append(stack, item{arg: args[i], prefix: childPrefix, last: i == len(args)-1})
			}
		}
	}
	return b.String()
}

// yamlNode builds a node tree so that "name" precedes "args"
func yamlNode(cmd *ast.Command) *yaml.Node {
	str := func(v string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	}

	args := &yaml.Node{Kind: yaml.SequenceNode}
	for _, arg := range cmd.Args {
		item := &yaml.Node{Kind: yaml.MappingNode}
		switch a := arg.(type) {
		case ast.Literal:
			quoted := "false"
			if a.Quoted {
				quoted = "true"
			}
			item.Content = append(item.Content,
				str(ast.KeyLiteral), str(a.Value),
				str(ast.KeyQuoted), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: quoted})
		case ast.Nested:
			item.Content = append(item.Content, str(ast.KeyCommand), yamlNode(a.Command))
		}
		args.Content = append(args.Content, item)
	}

	return &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: []*yaml.Node{str(ast.KeyName), str(cmd.Name), str(ast.KeyArgs), args},
	}
}

// Error writes a parse error. When err carries an input offset the input
// line is echoed with a caret under the offending position.
func (r *Renderer) Error(w io.Writer, input string, err error) error {
	var b strings.Builder
	code := mdwerror.GetCode(err)
	b.WriteString(r.styles.Error.Render("error"))
	if code != mdwerror.CodeUnknown {
		b.WriteString(r.styles.Error.Render("[" + code.String() + "]"))
	}
	b.WriteString(": " + err.Error() + "\n")

	if offset, ok := parser.ErrorOffset(err); ok && offset >= 0 && offset <= len(input) {
		lineStart := strings.LastIndexByte(input[:offset], '\n') + 1
		lineEnd := len(input)
		if i := strings.IndexByte(input[offset:], '\n'); i >= 0 {
			lineEnd = offset + i
		}
		column := utf8.RuneCountInString(input[lineStart:offset])
		b.WriteString("  " + input[lineStart:lineEnd] + "\n")
		b.WriteString("  " + strings.Repeat(" ", column) + r.styles.Caret.Render("^") + "\n")
	}

	_, werr := io.WriteString(w, b.String())
	return werr
}
