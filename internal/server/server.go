// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     server
// Description: gRPC ParseService on top of the parse service
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package server

import (
	"context"
	"net"
	"sync"
	"time"

	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	"github.com/msto63/callexpr/internal/service"
	"github.com/msto63/callexpr/internal/store"
	coreGrpc "github.com/msto63/callexpr/pkg/core/grpc"
	"github.com/msto63/callexpr/pkg/core/health"
	"github.com/msto63/callexpr/pkg/core/logging"
	"github.com/msto63/callexpr/pkg/core/version"
)

// Ensure Server implements ParseServiceServer
var _ ParseServiceServer = (*Server)(nil)

// ProbeExpression is parsed by the readiness check
const ProbeExpression = `Probe(1, "a,b", Nested())`

// Config holds server configuration
type Config struct {
	Reflection     bool
	HealthInterval time.Duration
	Service        *service.Service
	Health         *health.Registry // optional, created when nil
	Logger         *logging.Logger
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Reflection:     true,
		HealthInterval: 15 * time.Second,
	}
}

// Server is the ParseService gRPC server
type Server struct {
	service  *service.Service
	grpc     *coreGrpc.Server
	health   *health.Registry
	grpcHlth *grpchealth.Server
	logger   *logging.Logger
	config   Config

	stopOnce sync.Once
	done     chan struct{}
}

// New creates a new ParseService server
func New(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, mdwerror.New("parse service is required").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("server.New")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("callexpr-grpc")
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = DefaultConfig().HealthInterval
	}

	grpcCfg := coreGrpc.DefaultServerConfig()
	grpcCfg.EnableReflection = cfg.Reflection
	grpcCfg.Logger = logger

	grpcServer := coreGrpc.NewServer(grpcCfg)

	registry := cfg.Health
	if registry == nil {
		registry = NewHealthRegistry(cfg.Service, nil)
	}

	server := &Server{
		service:  cfg.Service,
		grpc:     grpcServer,
		health:   registry,
		grpcHlth: grpchealth.NewServer(),
		logger:   logger,
		config:   cfg,
		done:     make(chan struct{}),
	}

	// Register gRPC services
	RegisterParseServiceServer(grpcServer.GRPCServer(), server)
	healthpb.RegisterHealthServer(grpcServer.GRPCServer(), server.grpcHlth)

	return server, nil
}

// NewHealthRegistry builds the checks shared by the gRPC and HTTP servers.
// ping checks the history store and is nil when history is disabled.
func NewHealthRegistry(svc *service.Service, ping func(ctx context.Context) error) *health.Registry {
	registry := health.NewRegistry("callexpr", version.Server)
	registry.Register(health.ParseCheck("parser", ProbeExpression, svc.Probe))
	if ping != nil {
		registry.Register(health.PingCheck("history", ping))
	}
	return registry
}

// Parse implements ParseServiceServer.Parse
func (s *Server) Parse(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	expr, err := expressionOf(req)
	if err != nil {
		return nil, err
	}

	result, err := s.service.Parse(service.WithSource(ctx, store.SourceGRPC), expr)
	if err != nil {
		return nil, err
	}
	return s.encode(resultMap(result))
}

// ParseBatch implements ParseServiceServer.ParseBatch
func (s *Server) ParseBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	exprs, err := expressionsOf(req)
	if err != nil {
		return nil, err
	}

	items, err := s.service.ParseBatch(service.WithSource(ctx, store.SourceGRPC), exprs)
	if err != nil {
		return nil, err
	}
	return s.encode(batchMap(items))
}

// Tokenize implements ParseServiceServer.Tokenize
func (s *Server) Tokenize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	expr, err := expressionOf(req)
	if err != nil {
		return nil, err
	}

	tokens, err := s.service.Tokenize(ctx, expr)
	if err != nil {
		return nil, err
	}
	return s.encode(tokensMap(tokens))
}

func (s *Server) encode(m map[string]interface{}) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(m)
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to encode response").
			WithCode(mdwerror.CodeInternal).
			WithOperation("server.encode")
	}
	return resp, nil
}

// Serve publishes health and serves on listener until Stop
func (s *Server) Serve(listener net.Listener) error {
	s.logger.Info("Starting callexpr gRPC server", "address", listener.Addr().String())
	s.syncHealth()
	go s.healthLoop()
	return s.grpc.Serve(listener)
}

// Stop drains in-flight calls, forcing shutdown when ctx expires
func (s *Server) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping callexpr gRPC server")
		close(s.done)
		s.grpcHlth.Shutdown()
		s.grpc.StopWithTimeout(ctx)
	})
}

func (s *Server) syncHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	report := s.health.SyncGRPC(ctx, s.grpcHlth, ServiceName)
	s.logger.Debug("Health synchronised", "status", string(report.Status))
}

func (s *Server) healthLoop() {
	ticker := time.NewTicker(s.config.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.syncHealth()
		}
	}
}
