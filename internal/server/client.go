package server

import (
	"context"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/msto63/callexpr/foundation/callexpr/token"
	coreGrpc "github.com/msto63/callexpr/pkg/core/grpc"
)

// Client calls a remote ParseService. Errors returned by the server are
// converted back to structured errors, so errors.Is against the parser
// sentinels works on the client side.
type Client struct {
	conn  *grpc.ClientConn
	owned bool
}

// Dial connects to a ParseService at cfg.Target
func Dial(cfg coreGrpc.ClientConfig, opts ...grpc.DialOption) (*Client, error) {
	conn, err := coreGrpc.Dial(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, owned: true}, nil
}

// NewClient wraps an existing connection. Close leaves conn open.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close closes the connection if the client created it
func (c *Client) Close() error {
	if !c.owned {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		return nil, coreGrpc.FromStatus(err)
	}
	return resp, nil
}

// Parse parses expr remotely
func (c *Client) Parse(ctx context.Context, expr string) (*ParseReply, error) {
	resp, err := c.invoke(ctx, ParseMethod, ExpressionRequest(expr))
	if err != nil {
		return nil, err
	}
	return decodeParseReply(resp)
}

// ParseBatch parses exprs remotely; per-expression failures are in the
// replies
func (c *Client) ParseBatch(ctx context.Context, exprs []string) ([]BatchReply, error) {
	resp, err := c.invoke(ctx, ParseBatchMethod, BatchRequest(exprs))
	if err != nil {
		return nil, err
	}
	return decodeBatchReply(resp)
}

// Tokenize tokenizes expr remotely
func (c *Client) Tokenize(ctx context.Context, expr string) ([]token.Token, error) {
	resp, err := c.invoke(ctx, TokenizeMethod, ExpressionRequest(expr))
	if err != nil {
		return nil, err
	}
	return decodeTokens(resp)
}

// Health queries the standard health service for the parse API
func (c *Client) Health(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, coreGrpc.FromStatus(err)
	}
	return resp.GetStatus(), nil
}
