// File: nodes.go
// Title: Call Expression Tree Nodes
// Description: Defines the command tree produced by the parser: named
//              commands with ordered arguments, where each argument is
//              either a literal string or a nested command.
// Author: msto63
// Version: v0.2.0
// Created: 2026-10-19
// Modified: 2026-10-19
//
// Change History:
// - 2026-10-19 v0.2.0: Command, Literal and Nested node types

package ast

import (
	"strings"
)

// Command represents a named call with positional arguments
type Command struct {
	Name string // Command name, trimmed
	Args []Arg  // Arguments in source order
}

// Arg is a command argument. Literal and Nested are its only
// implementations.
type Arg interface {
	// String returns the argument in canonical source form
	String() string

	argNode() // marker method
}

// Literal is a string argument. Bare values are trimmed and never empty;
// quoted values are stored verbatim and may be empty.
type Literal struct {
	Value  string // Argument text
	Quoted bool   // Whether the value was written in double quotes
}

// Nested is an argument holding a child command
type Nested struct {
	Command *Command
}

func (Literal) argNode() {}
func (Nested) argNode()  {}

// String returns the canonical source form of the literal
func (l Literal) String() string {
	if l.Quoted {
		return `"` + l.Value + `"`
	}
	return l.Value
}

// String returns the canonical source form of the nested command
func (n Nested) String() string {
	return n.Command.String()
}

// NewCommand creates a command with the given name and arguments
func NewCommand(name string, args ...Arg) *Command {
	return &Command{Name: name, Args: args}
}

// Lit creates a bare literal argument
func Lit(value string) Literal {
	return Literal{Value: value}
}

// Quoted creates a quoted literal argument
func Quoted(value string) Literal {
	return Literal{Value: value, Quoted: true}
}

// Nest wraps cmd as an argument
func Nest(cmd *Command) Nested {
	return Nested{Command: cmd}
}

// String renders the command as canonical source text, e.g.
// Foo(1, "a,b", Bar()). Parsing the result yields an equal tree.
func (c *Command) String() string {
	if c == nil {
		return "<nil>"
	}

	var sb strings.Builder
	// explicit stack of pending output so deep trees do not recurse
	type item struct {
		cmd  *Command
		text string
	}
	stack := []item{{cmd: c}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.cmd == nil {
			sb.WriteString(top.text)
			continue
		}

		sb.WriteString(top.cmd.Name)
		sb.WriteByte('(')
		stack = append(stack, item{text: ")"})
		for i := len(top.cmd.Args) - 1; i >= 0; i-- {
			switch a := top.cmd.Args[i].(type) {
			case Nested:
				stack = append(stack, item{cmd: a.Command})
			default:
				stack = append(stack, item{text: a.String()})
			}
			if i > 0 {
				stack = append(stack, item{text: ", "})
			}
		}
	}
	return sb.String()
}

// Literals returns the literal arguments of c, in order
func (c *Command) Literals() []Literal {
	var out []Literal
	for _, a := range c.Args {
		if l, ok := a.(Literal); ok {
			out = append(out, l)
		}
	}
	return out
}

// Children returns the nested commands of c, in order
func (c *Command) Children() []*Command {
	var out []*Command
	for _, a := range c.Args {
		if n, ok := a.(Nested); ok {
			out = append(out, n.Command)
		}
	}
	return out
}

// Depth returns the number of command levels in the tree rooted at c
func (c *Command) Depth() int {
	deepest := 0
	Walk(c, VisitorFuncs{Command: func(_ *Command, depth int) bool {
		if depth+1 > deepest {
			deepest = depth + 1
		}
		return true
	}})
	return deepest
}

// Count returns the number of commands in the tree rooted at c
func (c *Command) Count() int {
	n := 0
	Walk(c, VisitorFuncs{Command: func(*Command, int) bool {
		n++
		return true
	}})
	return n
}

// Equal reports whether two trees have the same names and arguments
func Equal(a, b *Command) bool {
	type pair struct{ a, b *Command }
	stack := []pair{{a, b}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.a == nil || p.b == nil {
			if p.a != p.b {
				return false
			}
			continue
		}
		if p.a.Name != p.b.Name || len(p.a.Args) != len(p.b.Args) {
			return false
		}
		for i := range p.a.Args {
			switch x := p.a.Args[i].(type) {
			case Literal:
				y, ok := p.b.Args[i].(Literal)
				if !ok || x != y {
					return false
				}
			case Nested:
				y, ok := p.b.Args[i].(Nested)
				if !ok {
					return false
				}
				stack = append(stack, pair{x.Command, y.Command})
			default:
				return false
			}
		}
	}
	return true
}
