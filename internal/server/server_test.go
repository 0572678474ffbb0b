// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     server
// Description: Tests for the gRPC ParseService over an in-memory listener
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package server

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/msto63/callexpr/foundation/callexpr/ast"
	"github.com/msto63/callexpr/foundation/callexpr/parser"
	"github.com/msto63/callexpr/foundation/callexpr/token"
	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	"github.com/msto63/callexpr/internal/service"
	coreGrpc "github.com/msto63/callexpr/pkg/core/grpc"
	"github.com/msto63/callexpr/pkg/core/logging"
)

func startTestServer(t *testing.T, svcCfg service.Config) *Client {
	t.Helper()

	svcCfg.Logger = logging.Wrap(nil)
	svc, err := service.NewService(svcCfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.Service = svc
	cfg.Reflection = false
	cfg.Logger = logging.Wrap(nil)
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	listener := bufconn.Listen(1024 * 1024)
	go srv.Serve(listener)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
	})

	clientCfg := coreGrpc.DefaultClientConfig("passthrough:///bufnet")
	clientCfg.Logger = logging.Wrap(nil)
	client, err := Dial(clientCfg, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestNew_RequiresService tests configuration validation
func TestNew_RequiresService(t *testing.T) {
	if _, err := New(DefaultConfig()); !mdwerror.HasCode(err, mdwerror.CodeConfigError) {
		t.Errorf("Expected CONFIG_ERROR, got %v", err)
	}
}

// TestParse tests the Parse RPC
func TestParse(t *testing.T) {
	client := startTestServer(t, service.Config{})

	reply, err := client.Parse(testContext(t), `Foo(1, "a,b", Bar(2, Baz()))`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := ast.NewCommand("Foo",
		ast.Lit("1"),
		ast.Quoted("a,b"),
		ast.Nest(ast.NewCommand("Bar", ast.Lit("2"), ast.Nest(ast.NewCommand("Baz")))),
	)
	if !ast.Equal(reply.Command, want) {
		t.Errorf("tree = %s, want %s", reply.Command, want)
	}
	if reply.Canonical != want.String() {
		t.Errorf("canonical = %q", reply.Canonical)
	}
	if reply.Depth != 3 || reply.Commands != 3 {
		t.Errorf("depth/commands = %d/%d, want 3/3", reply.Depth, reply.Commands)
	}
	if reply.RequestID == "" {
		t.Error("Expected a request ID")
	}
}

// TestParse_Errors tests that parse failures keep code and offset over the wire
func TestParse_Errors(t *testing.T) {
	client := startTestServer(t, service.Config{Parser: parser.Options{MaxInputLength: 32}})

	tests := []struct {
		name       string
		expr       string
		want       error
		wantOffset int
	}{
		{name: "unbalanced close", expr: "Foo(1))", want: parser.ErrMalformedExpression, wantOffset: 6},
		{name: "unterminated quote", expr: `Foo("abc`, want: parser.ErrUnterminatedQuote, wantOffset: 4},
		{name: "empty", expr: "", want: parser.ErrEmptyExpression, wantOffset: -1},
		{name: "too long", expr: "Foo(" + string(make([]byte, 40)) + ")", want: parser.ErrInputTooLong, wantOffset: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Parse(testContext(t), tt.expr)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.want)
			}
			if tt.wantOffset < 0 {
				return
			}
			offset, ok := parser.ErrorOffset(err)
			if !ok || offset != tt.wantOffset {
				t.Errorf("offset = %d (%v), want %d", offset, ok, tt.wantOffset)
			}
		})
	}
}

// TestParseBatch tests the ParseBatch RPC
func TestParseBatch(t *testing.T) {
	client := startTestServer(t, service.Config{MaxBatchSize: 2})
	ctx := testContext(t)

	replies, err := client.ParseBatch(ctx, []string{"A(1)", "B("})
	if err != nil {
		t.Fatalf("ParseBatch() error = %v", err)
	}
	if len(replies) != 2 {
		t.Fatalf("got %d replies, want 2", len(replies))
	}
	if replies[0].Err != nil || replies[0].Command.String() != "A(1)" {
		t.Errorf("replies[0] = %+v", replies[0])
	}
	if !errors.Is(replies[1].Err, parser.ErrMalformedExpression) || replies[1].Index != 1 {
		t.Errorf("replies[1] = %+v", replies[1])
	}

	_, err = client.ParseBatch(ctx, []string{"A()", "B()", "C()"})
	if !mdwerror.HasCode(err, mdwerror.CodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT for oversized batch, got %v", err)
	}
}

// TestTokenize tests the Tokenize RPC
func TestTokenize(t *testing.T) {
	client := startTestServer(t, service.Config{})

	input := `A("x,y")`
	got, err := client.Tokenize(testContext(t), input)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	want := token.Tokenize(input)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestInvalidRequest tests requests without the expression field
func TestInvalidRequest(t *testing.T) {
	client := startTestServer(t, service.Config{})

	_, err := client.invoke(testContext(t), ParseMethod, &structpb.Struct{})
	if !mdwerror.HasCode(err, mdwerror.CodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT, got %v", err)
	}

	req := &structpb.Struct{Fields: map[string]*structpb.Value{FieldExpression: structpb.NewNumberValue(1)}}
	err = client.conn.Invoke(testContext(t), TokenizeMethod, req, new(structpb.Struct))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("status code = %v, want InvalidArgument", status.Code(err))
	}
}

// TestHealth tests the standard health service
func TestHealth(t *testing.T) {
	client := startTestServer(t, service.Config{})

	got, err := client.Health(testContext(t))
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", got)
	}
}

// TestHealthRegistry tests the shared checks
func TestHealthRegistry(t *testing.T) {
	svc, err := service.NewService(service.Config{Logger: logging.Wrap(nil)})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	registry := NewHealthRegistry(svc, func(context.Context) error { return errors.New("locked") })
	report := registry.Check(context.Background())
	if len(report.Checks) != 2 {
		t.Fatalf("got %d checks, want 2", len(report.Checks))
	}
	if report.Status != "degraded" {
		t.Errorf("status = %s, want degraded", report.Status)
	}
}
