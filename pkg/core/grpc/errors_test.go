package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	mdwlog "github.com/msto63/callexpr/foundation/core/log"
	"github.com/msto63/callexpr/pkg/core/logging"
)

func TestCodeFor(t *testing.T) {
	tests := []struct {
		code mdwerror.Code
		want codes.Code
	}{
		{mdwerror.CodeMalformedExpression, codes.InvalidArgument},
		{mdwerror.CodeEmptyExpression, codes.InvalidArgument},
		{mdwerror.CodeUnterminatedQuote, codes.InvalidArgument},
		{mdwerror.CodeDepthExceeded, codes.InvalidArgument},
		{mdwerror.CodeInputTooLong, codes.ResourceExhausted},
		{mdwerror.CodeDatabaseError, codes.Internal},
		{mdwerror.CodeUnknown, codes.Unknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := CodeFor(tt.code); got != tt.want {
				t.Errorf("CodeFor(%v) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestStatusRoundTrip(t *testing.T) {
	original := mdwerror.New("unexpected ')' at offset 10").
		WithCode(mdwerror.CodeMalformedExpression).
		WithDetail("offset", 10).
		WithDetail("hint", "remove it")

	st := ToStatus(original)
	if status.Code(st) != codes.InvalidArgument {
		t.Fatalf("status code = %v, want InvalidArgument", status.Code(st))
	}

	back := FromStatus(st)
	if !mdwerror.HasCode(back, mdwerror.CodeMalformedExpression) {
		t.Fatalf("FromStatus() code = %v, want MALFORMED_EXPRESSION", mdwerror.GetCode(back))
	}
	var e *mdwerror.Error
	if !errors.As(back, &e) {
		t.Fatalf("FromStatus() = %T, want *mdwerror.Error", back)
	}
	if v, _ := e.Detail("offset"); v != 10 {
		t.Errorf("offset detail = %v, want 10", v)
	}
	if v, _ := e.Detail("hint"); v != "remove it" {
		t.Errorf("hint detail = %v, want 'remove it'", v)
	}
}

func TestToStatus_PassThrough(t *testing.T) {
	if ToStatus(nil) != nil {
		t.Error("ToStatus(nil) should be nil")
	}
	existing := status.Error(codes.NotFound, "gone")
	if got := ToStatus(existing); status.Code(got) != codes.NotFound {
		t.Errorf("existing status changed to %v", status.Code(got))
	}
	if got := ToStatus(errors.New("plain")); status.Code(got) != codes.Unknown {
		t.Errorf("plain error mapped to %v, want Unknown", status.Code(got))
	}
}

func TestFromStatus_WithoutDetails(t *testing.T) {
	err := FromStatus(status.Error(codes.Unavailable, "connection refused"))
	if !mdwerror.HasCode(err, mdwerror.CodeServiceUnavailable) {
		t.Errorf("FromStatus() code = %v, want SERVICE_UNAVAILABLE", mdwerror.GetCode(err))
	}
}

func TestRequestIDInterceptor(t *testing.T) {
	interceptor := RequestIDInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/callexpr.v1.ParseService/Parse"}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDHeader, "req-42"))
	var seen string
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = GetRequestID(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor error = %v", err)
	}
	if seen != "req-42" {
		t.Errorf("request ID = %q, want req-42", seen)
	}

	_, _ = interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = GetRequestID(ctx)
		return nil, nil
	})
	if len(seen) != 36 {
		t.Errorf("generated request ID = %q, want a UUID", seen)
	}
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(logging.Wrap(mdwlog.Discard()))
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Panic"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	})
	if status.Code(err) != codes.Internal {
		t.Errorf("recovered error code = %v, want Internal", status.Code(err))
	}
}

func TestErrorInterceptor(t *testing.T) {
	interceptor := ErrorInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Fail"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, mdwerror.New("too long").WithCode(mdwerror.CodeInputTooLong)
	})
	if status.Code(err) != codes.ResourceExhausted {
		t.Errorf("error code = %v, want ResourceExhausted", status.Code(err))
	}
}

func TestClientInterceptor(t *testing.T) {
	interceptor := ClientInterceptor(logging.Wrap(mdwlog.Discard()), time.Second)
	ctx := WithRequestID(context.Background(), "req-7")

	var (
		forwarded   string
		hasDeadline bool
	)
	err := interceptor(ctx, "/callexpr.v1.ParseService/Parse", nil, nil, nil,
		func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			md, _ := metadata.FromOutgoingContext(ctx)
			if v := md.Get(RequestIDHeader); len(v) > 0 {
				forwarded = v[0]
			}
			_, hasDeadline = ctx.Deadline()
			return nil
		})
	if err != nil {
		t.Fatalf("interceptor error = %v", err)
	}
	if forwarded != "req-7" {
		t.Errorf("forwarded request ID = %q, want req-7", forwarded)
	}
	if !hasDeadline {
		t.Error("call without deadline should get the client timeout")
	}
}

func TestLoggingInterceptor_KeepsStructuredError(t *testing.T) {
	interceptor := LoggingInterceptor(logging.Wrap(mdwlog.Discard()))
	info := &grpc.UnaryServerInfo{FullMethod: "/callexpr.v1.ParseService/Parse"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, mdwerror.New("empty").WithCode(mdwerror.CodeEmptyExpression)
	})
	if !mdwerror.HasCode(err, mdwerror.CodeEmptyExpression) {
		t.Errorf("error code = %v, want EMPTY_EXPRESSION", mdwerror.GetCode(err))
	}
}
