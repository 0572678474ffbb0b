// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     grpc
// Description: Client connection setup for the remote parse commands
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package grpc

import (
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	"github.com/msto63/callexpr/pkg/core/logging"
)

// ClientConfig holds gRPC client configuration
type ClientConfig struct {
	Target string
	// Timeout bounds calls made without a context deadline; 0 disables it
	Timeout           time.Duration
	MaxRecvMsgSize    int
	MaxSendMsgSize    int
	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration
	Logger            *logging.Logger
}

// DefaultClientConfig returns the client settings used by "callexpr remote".
// Replies carry whole trees, so the receive limit matches the server's send
// limit.
func DefaultClientConfig(target string) ClientConfig {
	return ClientConfig{
		Target:            target,
		Timeout:           10 * time.Second,
		MaxRecvMsgSize:    DefaultServerConfig().MaxSendMsgSize,
		MaxSendMsgSize:    DefaultServerConfig().MaxRecvMsgSize,
		KeepaliveInterval: 30 * time.Second,
		KeepaliveTimeout:  10 * time.Second,
	}
}

// Dial creates a client connection to cfg.Target. The connection is
// established lazily on the first call, so an unreachable server surfaces
// as SERVICE_UNAVAILABLE from that call.
func Dial(cfg ClientConfig, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if strings.TrimSpace(cfg.Target) == "" {
		return nil, mdwerror.New("gRPC target is empty").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("grpc.Dial")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("callexpr-client")
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(cfg.MaxRecvMsgSize),
			grpc.MaxCallSendMsgSize(cfg.MaxSendMsgSize),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveInterval,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithChainUnaryInterceptor(ClientInterceptor(logger, cfg.Timeout)),
	}
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(cfg.Target, dialOpts...)
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to create client for "+cfg.Target).
			WithCode(mdwerror.CodeConfigError).
			WithOperation("grpc.Dial")
	}
	return conn, nil
}
