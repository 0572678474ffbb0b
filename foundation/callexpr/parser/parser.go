// File: parser.go
// Title: Call Expression Parser
// Description: Configurable front end for tokenizing and building call
//              expressions. Adds input length and nesting depth limits and
//              structured logging on top of Build.
// Author: msto63
// Version: v0.2.0
// Created: 2026-10-19
// Modified: 2026-10-19
//
// Change History:
// - 2026-10-19 v0.2.0: Initial parser with limits and logging

package parser

import (
	"github.com/msto63/callexpr/foundation/callexpr/ast"
	"github.com/msto63/callexpr/foundation/callexpr/token"
	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	mdwlog "github.com/msto63/callexpr/foundation/core/log"
)

// DefaultMaxInputLength is used when Options.MaxInputLength is zero
const DefaultMaxInputLength = 64 * 1024

// DefaultMaxDepth is the nesting limit the service and the configuration
// apply when none is set. A bare Parser has no depth limit.
const DefaultMaxDepth = 128

// Parser parses call expressions. It holds no per-call state and is safe
// for concurrent use.
type Parser struct {
	logger  *mdwlog.Logger
	options Options
}

// Options configures parser behavior
type Options struct {
	Logger         *mdwlog.Logger
	MaxInputLength int // Maximum input size in bytes
	MaxDepth       int // Maximum command nesting, 0 for unlimited
}

// New creates a new parser with the given options
func New(opts Options) (*Parser, error) {
	if opts.MaxInputLength < 0 || opts.MaxDepth < 0 {
		return nil, mdwerror.New("parser limits must not be negative").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("parser.New").
			WithDetail("max_input_length", opts.MaxInputLength).
			WithDetail("max_depth", opts.MaxDepth)
	}

	// Set defaults
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.MaxInputLength == 0 {
		opts.MaxInputLength = DefaultMaxInputLength
	}

	return &Parser{
		logger:  opts.Logger.WithField("component", "callexpr-parser"),
		options: opts,
	}, nil
}

// Options returns the effective options
func (p *Parser) Options() Options {
	return p.options
}

// Tokenize checks the input length and tokenizes input
func (p *Parser) Tokenize(input string) ([]token.Token, error) {
	if len(input) > p.options.MaxInputLength {
		return nil, mdwerror.Newf("input exceeds maximum length: %d > %d",
			len(input), p.options.MaxInputLength).
			WithCode(mdwerror.CodeInputTooLong).
			WithOperation("parser.Parse").
			WithDetail("length", len(input)).
			WithDetail("limit", p.options.MaxInputLength)
	}
	return token.Tokenize(input), nil
}

// Parse parses a call expression and returns its command tree
func (p *Parser) Parse(input string) (*ast.Command, error) {
	tokens, err := p.Tokenize(input)
	if err != nil {
		p.logger.Warn("Call expression rejected", mdwlog.Fields{
			"length": len(input),
			"error":  err.Error(),
		})
		return nil, err
	}

	p.logger.Debug("Starting call expression parsing", mdwlog.Fields{
		"input":  input,
		"tokens": len(tokens),
	})

	timer := p.logger.StartTimer("Call expression parsing").WithField("tokens", len(tokens))
	cmd, err := p.Build(tokens)
	if err != nil {
		timer.WithField("input", input).StopWithError(err)
		return nil, err
	}

	timer.WithField("command", cmd.Name).WithField("args", len(cmd.Args)).Stop()
	return cmd, nil
}

// Build constructs the command tree for tokens, enforcing MaxDepth
func (p *Parser) Build(tokens []token.Token) (*ast.Command, error) {
	return build(tokens, p.options.MaxDepth)
}
