// File: doc.go
// Title: Call Expression AST Package Documentation
// Description: Package documentation for the command tree types.
// Author: msto63
// Version: v0.2.0
// Created: 2026-10-19
// Modified: 2026-10-19
//
// Change History:
// - 2026-10-19 v0.2.0: Initial documentation

/*
Package ast defines the tree produced by parsing a call expression.

An expression such as

	Foo(1, "a,b", Bar(2, Baz()))

becomes a root Command named Foo with three arguments: Literal{"1"},
Literal{"a,b", Quoted: true} and Nested{Bar}. Arg is a closed interface;
only Literal and Nested implement it, so an argument is always exactly one
of the two.

Every command except the root is owned by exactly one Nested argument. Walk,
Equal, Depth, Count and String use explicit stacks and handle any nesting
depth the parser accepts.
*/
package ast
