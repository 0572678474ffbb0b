package ast

// Visitor receives the nodes of a command tree in pre-order. Depth is 0 for
// the root command and grows by one per nesting level.
type Visitor interface {
	// VisitCommand is called before the command's arguments. Returning
	// false skips the arguments.
	VisitCommand(cmd *Command, depth int) bool

	// VisitLiteral is called for each literal argument; depth is that of
	// the owning command.
	VisitLiteral(lit Literal, depth int)
}

// VisitorFuncs adapts plain functions to Visitor. Nil fields are no-ops.
type VisitorFuncs struct {
	Command func(cmd *Command, depth int) bool
	Literal func(lit Literal, depth int)
}

func (v VisitorFuncs) VisitCommand(cmd *Command, depth int) bool {
	if v.Command == nil {
		return true
	}
	return v.Command(cmd, depth)
}

func (v VisitorFuncs) VisitLiteral(lit Literal, depth int) {
	if v.Literal != nil {
		v.Literal(lit, depth)
	}
}

// Walk traverses the tree rooted at root in source order using an explicit
// stack, so arbitrarily deep trees are safe.
func Walk(root *Command, v Visitor) {
	if root == nil {
		return
	}

	type frame struct {
		arg   Arg
		depth int
	}
	stack := []frame{{arg: Nested{Command: root}, depth: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch a := f.arg.(type) {
		case Literal:
			v.VisitLiteral(a, f.depth-1)
		case Nested:
			if a.Command == nil || !v.VisitCommand(a.Command, f.depth) {
				continue
			}
			for i := len(a.Command.Args) - 1; i >= 0; i-- {
				stack = append(stack, frame{arg: a.Command.Args[i], depth: f.depth + 1})
			}
		}
	}
}
