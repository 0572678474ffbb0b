// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     grpc
// Description: Server and client interceptors for recovery, request IDs,
//              call logging, deadlines and error mapping
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package grpc

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	"github.com/msto63/callexpr/pkg/core/logging"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"

	// RequestIDHeader carries the request ID in gRPC metadata and HTTP headers
	RequestIDHeader = "x-request-id"
)

// RecoveryInterceptor turns a handler panic into an INTERNAL error. The
// panic value and stack are logged, never returned to the caller.
func RecoveryInterceptor(logger *logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Handler panic recovered",
					"request_id", GetRequestID(ctx),
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()),
				)
				err = ToStatus(mdwerror.New("internal server error").
					WithCode(mdwerror.CodeInternal).
					WithOperation(info.FullMethod))
			}
		}()
		return handler(ctx, req)
	}
}

// RequestIDInterceptor takes the request ID from incoming metadata or
// generates one, stores it in the context and echoes it in the header
func RequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		requestID := incomingRequestID(ctx)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx = WithRequestID(ctx, requestID)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID))

		return handler(ctx, req)
	}
}

// LoggingInterceptor logs one line per call. It must run inside
// ErrorInterceptor to see structured errors. Rejected expressions are
// logged at info with their error code; server faults are logged at error.
func LoggingInterceptor(logger *logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		kv := []interface{}{
			"request_id", GetRequestID(ctx),
			"method", info.FullMethod,
			"request_bytes", messageSize(req),
			"duration", time.Since(start),
		}
		if err == nil {
			logger.Debug("gRPC call", append(kv, "status", codes.OK.String())...)
			return resp, nil
		}

		code := mdwerror.GetCode(err)
		grpcCode := status.Code(err)
		if code != mdwerror.CodeUnknown {
			grpcCode = CodeFor(code)
		}
		kv = append(kv, "status", grpcCode.String(), "error_code", string(code))
		if code.IsClientError() {
			logger.Info("gRPC call rejected", append(kv, "error", err.Error())...)
		} else {
			logger.Error("gRPC call failed", append(kv, "error", err.Error())...)
		}
		return resp, err
	}
}

// ErrorInterceptor converts structured errors returned by handlers into
// gRPC status errors
func ErrorInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return resp, ToStatus(err)
		}
		return resp, nil
	}
}

// ClientInterceptor forwards the request ID, applies timeout when the
// caller set no deadline and logs the call at debug level
func ClientInterceptor(logger *logging.Logger, timeout time.Duration) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		requestID := GetRequestID(ctx)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx = metadata.AppendToOutgoingContext(ctx, RequestIDHeader, requestID)

		if _, ok := ctx.Deadline(); !ok && timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)

		logger.Debug("gRPC client call",
			"request_id", requestID,
			"method", method,
			"status", status.Code(err).String(),
			"duration", time.Since(start),
		)
		return err
	}
}

// GetRequestID returns the request ID stored by RequestIDInterceptor or
// the gateway middleware, falling back to incoming metadata
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return incomingRequestID(ctx)
}

// WithRequestID stores a request ID in the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func incomingRequestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(RequestIDHeader); len(values) > 0 {
		return values[0]
	}
	return ""
}

func messageSize(req interface{}) int {
	if m, ok := req.(proto.Message); ok {
		return proto.Size(m)
	}
	return 0
}
