// Package rpc defines the healthsync.v1.ScreeningService gRPC contract shared
// by the client and the reference server.
//
// Messages are google.protobuf.Struct values, so the service needs no
// generated code: the service descriptor below is written by hand and the
// request and response shapes are described by the types in messages.go.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "healthsync.v1.ScreeningService"

const (
	PingMethod            = "/" + ServiceName + "/Ping"
	CreatePatientMethod   = "/" + ServiceName + "/CreatePatient"
	CreateScreeningMethod = "/" + ServiceName + "/CreateScreening"
)

// ScreeningServer is implemented by the server side of the service.
type ScreeningServer interface {
	Ping(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	CreatePatient(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	CreateScreening(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

func RegisterScreeningServer(s grpc.ServiceRegistrar, srv ScreeningServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScreeningServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unaryHandler(PingMethod, ScreeningServer.Ping)},
		{MethodName: "CreatePatient", Handler: unaryHandler(CreatePatientMethod, ScreeningServer.CreatePatient)},
		{MethodName: "CreateScreening", Handler: unaryHandler(CreateScreeningMethod, ScreeningServer.CreateScreening)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "healthsync/v1/screening.proto",
}

type unaryMethod func(ScreeningServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ScreeningServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ScreeningServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ScreeningClient is the client side of the service.
type ScreeningClient struct {
	cc grpc.ClientConnInterface
}

func NewScreeningClient(cc grpc.ClientConnInterface) *ScreeningClient {
	return &ScreeningClient{cc: cc}
}

func (c *ScreeningClient) Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, PingMethod, in, opts...)
}

func (c *ScreeningClient) CreatePatient(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CreatePatientMethod, in, opts...)
}

func (c *ScreeningClient) CreateScreening(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CreateScreeningMethod, in, opts...)
}

func (c *ScreeningClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
