package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service and method names of the parse API
const (
	ServiceName = "callexpr.v1.ParseService"

	ParseMethod      = "/" + ServiceName + "/Parse"
	ParseBatchMethod = "/" + ServiceName + "/ParseBatch"
	TokenizeMethod   = "/" + ServiceName + "/Tokenize"
)

// ParseServiceServer is the server API for callexpr.v1.ParseService.
// Messages are google.protobuf.Struct values; see messages.go for their
// fields.
type ParseServiceServer interface {
	Parse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ParseBatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Tokenize(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterParseServiceServer registers srv on s
func RegisterParseServiceServer(s grpc.ServiceRegistrar, srv ParseServiceServer) {
	s.RegisterService(&ParseServiceDesc, srv)
}

// ParseServiceDesc describes callexpr.v1.ParseService
var ParseServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ParseServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Parse",
			Handler:    unaryHandler(ParseMethod, ParseServiceServer.Parse),
		},
		{
			MethodName: "ParseBatch",
			Handler:    unaryHandler(ParseBatchMethod, ParseServiceServer.ParseBatch),
		},
		{
			MethodName: "Tokenize",
			Handler:    unaryHandler(TokenizeMethod, ParseServiceServer.Tokenize),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "callexpr/v1/parse.proto",
}

type unaryMethod func(ParseServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a method expression to grpc.MethodHandler
func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ParseServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ParseServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
