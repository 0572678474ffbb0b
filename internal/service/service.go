// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     service
// Description: Parse service shared by the CLI, gRPC and HTTP surfaces
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package service

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/msto63/callexpr/foundation/callexpr/ast"
	"github.com/msto63/callexpr/foundation/callexpr/parser"
	"github.com/msto63/callexpr/foundation/callexpr/token"
	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	"github.com/msto63/callexpr/internal/store"
	"github.com/msto63/callexpr/pkg/core/cache"
	pkgrpc "github.com/msto63/callexpr/pkg/core/grpc"
	"github.com/msto63/callexpr/pkg/core/logging"
)

// DefaultMaxBatchSize is used when Config.MaxBatchSize is zero
const DefaultMaxBatchSize = 1000

// Recorder persists parse attempts
type Recorder interface {
	Record(ctx context.Context, entry *store.Entry) error
}

// Config holds configuration for the parse service
type Config struct {
	Parser       parser.Options
	Recorder     Recorder // optional
	Logger       *logging.Logger
	MaxBatchSize int

	// CacheSize enables a tree cache of that many expressions when > 0.
	// Cached trees are shared between results and must not be modified.
	CacheSize int
	CacheTTL  time.Duration
}

// Result is a successful parse
type Result struct {
	RequestID  string
	Expression string
	Command    *ast.Command
	Tokens     int
	Depth      int
	Commands   int
	Duration   time.Duration
}

// BatchItem is the outcome of one expression in a batch. Exactly one of
// Result and Err is set.
type BatchItem struct {
	Index      int
	Expression string
	Result     *Result
	Err        error
}

// Counters reports how many expressions the service has handled
type Counters struct {
	Parsed uint64 `json:"parsed"`
	Failed uint64 `json:"failed"`
}

// Service parses expressions and optionally records them
type Service struct {
	parser       *parser.Parser
	recorder     Recorder
	logger       *logging.Logger
	maxBatchSize int
	trees        *cache.TreeCache

	parsed atomic.Uint64
	failed atomic.Uint64
}

// NewService creates a new parse service
func NewService(cfg Config) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("callexpr-service")
	}
	if cfg.Parser.Logger == nil {
		cfg.Parser.Logger = logger.Foundation()
	}
	if cfg.Parser.MaxDepth == 0 {
		cfg.Parser.MaxDepth = parser.DefaultMaxDepth
	}
	if cfg.Parser.MaxDepth > ast.MaxEncodableDepth {
		return nil, mdwerror.Newf("max depth %d exceeds the encodable limit %d", cfg.Parser.MaxDepth, ast.MaxEncodableDepth).
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("service.NewService")
	}

	p, err := parser.New(cfg.Parser)
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to create parser").WithOperation("service.NewService")
	}

	if cfg.MaxBatchSize < 0 {
		return nil, mdwerror.New("max batch size must not be negative").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("service.NewService")
	}
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}

	svc := &Service{
		parser:       p,
		recorder:     cfg.Recorder,
		logger:       logger,
		maxBatchSize: cfg.MaxBatchSize,
	}
	if cfg.CacheSize > 0 {
		svc.trees = cache.NewTreeCache(cache.Config{MaxItems: cfg.CacheSize, TTL: cfg.CacheTTL},
			cfg.Parser.MaxInputLength, cfg.Parser.MaxDepth)
	}
	return svc, nil
}

type sourceKey struct{}

// WithSource tags ctx with the surface a request arrived through
func WithSource(ctx context.Context, source store.Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFromContext returns the source set by WithSource
func SourceFromContext(ctx context.Context) store.Source {
	if s, ok := ctx.Value(sourceKey{}).(store.Source); ok {
		return s
	}
	return store.SourceUnknown
}

// Parser returns the underlying parser
func (s *Service) Parser() *parser.Parser {
	return s.parser
}

// Counters returns the running totals
func (s *Service) Counters() Counters {
	return Counters{Parsed: s.parsed.Load(), Failed: s.failed.Load()}
}

// CacheStats reports tree cache metrics; ok is false without a cache
func (s *Service) CacheStats() (stats cache.Stats, ok bool) {
	if s.trees == nil {
		return cache.Stats{}, false
	}
	return s.trees.Stats(), true
}

// Tokenize splits expr into tokens after checking the input length
func (s *Service) Tokenize(ctx context.Context, expr string) ([]token.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, canceled(err, "service.Tokenize")
	}
	return s.parser.Tokenize(expr)
}

// Parse parses expr and records the attempt when a recorder is configured
func (s *Service) Parse(ctx context.Context, expr string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, canceled(err, "service.Parse")
	}

	requestID := pkgrpc.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	start := time.Now()
	cmd, ntokens, err := s.build(expr)
	duration := time.Since(start)

	if err != nil {
		s.failed.Add(1)
		s.logger.Debug("Expression rejected",
			"request_id", requestID,
			"code", mdwerror.GetCode(err).String(),
			"error", err.Error())
		s.record(ctx, &store.Entry{
			RequestID:    requestID,
			Expression:   expr,
			ErrorCode:    mdwerror.GetCode(err).String(),
			ErrorMessage: err.Error(),
			Duration:     duration,
		})
		return nil, err
	}

	s.parsed.Add(1)
	result := &Result{
		RequestID:  requestID,
		Expression: expr,
		Command:    cmd,
		Tokens:     ntokens,
		Depth:      cmd.Depth(),
		Commands:   cmd.Count(),
		Duration:   duration,
	}
	s.logger.Debug("Expression parsed",
		"request_id", requestID,
		"command", cmd.Name,
		"depth", result.Depth,
		"duration", duration)

	entry := &store.Entry{
		RequestID:  requestID,
		Expression: expr,
		OK:         true,
		Canonical:  cmd.String(),
		Depth:      result.Depth,
		Commands:   result.Commands,
		Duration:   duration,
	}
	if s.recorder != nil {
		data, err := json.Marshal(cmd)
		if err != nil {
			s.logger.WithRequestID(requestID).
				LogError(mdwerror.Wrap(err, "failed to encode tree for history").
					WithCode(mdwerror.CodeInternal).
					WithOperation("service.Parse"))
		}
		entry.TreeJSON = string(data)
	}
	s.record(ctx, entry)
	return result, nil
}

// build returns the tree for expr and its token count, consulting the
// tree cache first
func (s *Service) build(expr string) (*ast.Command, int, error) {
	if s.trees != nil {
		if tree, ok := s.trees.Get(expr); ok {
			return tree.Command, tree.Tokens, nil
		}
	}
	tokens, err := s.parser.Tokenize(expr)
	if err != nil {
		return nil, 0, err
	}
	cmd, err := s.parser.Build(tokens)
	if err != nil {
		return nil, len(tokens), err
	}
	if s.trees != nil {
		s.trees.Set(expr, cache.Tree{Command: cmd, Tokens: len(tokens)})
	}
	return cmd, len(tokens), nil
}

// ParseBatch parses each expression independently. Results keep input
// order; a failing expression does not stop the batch. The returned error
// is set only when the batch as a whole is rejected or ctx is done.
func (s *Service) ParseBatch(ctx context.Context, exprs []string) ([]BatchItem, error) {
	if len(exprs) > s.maxBatchSize {
		return nil, mdwerror.Newf("batch exceeds maximum size: %d > %d", len(exprs), s.maxBatchSize).
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("service.ParseBatch").
			WithDetail("size", len(exprs)).
			WithDetail("limit", s.maxBatchSize)
	}

	items := make([]BatchItem, 0, len(exprs))
	for i, expr := range exprs {
		if err := ctx.Err(); err != nil {
			return items, canceled(err, "service.ParseBatch")
		}
		result, err := s.Parse(ctx, expr)
		items = append(items, BatchItem{Index: i, Expression: expr, Result: result, Err: err})
	}
	return items, nil
}

// Probe parses expr without recording it or touching the counters. It backs
// the readiness check.
func (s *Service) Probe(ctx context.Context, expr string) error {
	if err := ctx.Err(); err != nil {
		return canceled(err, "service.Probe")
	}
	_, err := s.parser.Parse(expr)
	return err
}

func (s *Service) record(ctx context.Context, entry *store.Entry) {
	if s.recorder == nil {
		return
	}
	entry.Source = SourceFromContext(ctx)
	if err := s.recorder.Record(ctx, entry); err != nil {
		s.logger.WithRequestID(entry.RequestID).
			LogError(mdwerror.Wrap(err, "failed to record parse history").
				WithOperation("service.record"))
	}
}

func canceled(err error, operation string) error {
	return mdwerror.Wrap(err, "request canceled").
		WithCode(mdwerror.CodeTimeout).
		WithOperation(operation)
}
