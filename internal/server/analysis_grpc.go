package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// AnalysisServiceName is the fully-qualified gRPC service name. Requests and responses
// are google.protobuf.Struct so no generated stubs are needed on either side.
const AnalysisServiceName = "contracts.v1.AnalysisService"

const (
	AnalysisService_Submit_FullMethodName    = "/" + AnalysisServiceName + "/Submit"
	AnalysisService_GetStatus_FullMethodName = "/" + AnalysisServiceName + "/GetStatus"
	AnalysisService_List_FullMethodName      = "/" + AnalysisServiceName + "/List"
)

// AnalysisServiceServer is the server API for contracts.v1.AnalysisService.
type AnalysisServiceServer interface {
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedAnalysisServiceServer can be embedded to have forward compatible implementations.
type UnimplementedAnalysisServiceServer struct{}

func (UnimplementedAnalysisServiceServer) Submit(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Submit not implemented")
}

func (UnimplementedAnalysisServiceServer) GetStatus(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStatus not implemented")
}

func (UnimplementedAnalysisServiceServer) List(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method List not implemented")
}

func RegisterAnalysisServiceServer(s grpc.ServiceRegistrar, srv AnalysisServiceServer) {
	s.RegisterService(&AnalysisService_ServiceDesc, srv)
}

func unaryHandler(fullMethod string, call func(AnalysisServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AnalysisServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AnalysisServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AnalysisService_ServiceDesc is the grpc.ServiceDesc for contracts.v1.AnalysisService.
var AnalysisService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: AnalysisServiceName,
	HandlerType: (*AnalysisServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Submit",
			Handler:    unaryHandler(AnalysisService_Submit_FullMethodName, AnalysisServiceServer.Submit),
		},
		{
			MethodName: "GetStatus",
			Handler:    unaryHandler(AnalysisService_GetStatus_FullMethodName, AnalysisServiceServer.GetStatus),
		},
		{
			MethodName: "List",
			Handler:    unaryHandler(AnalysisService_List_FullMethodName, AnalysisServiceServer.List),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "contracts/v1/analysis.proto",
}

// AnalysisServiceClient is the client API for contracts.v1.AnalysisService.
type AnalysisServiceClient interface {
	Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetStatus(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	List(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type analysisServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAnalysisServiceClient(cc grpc.ClientConnInterface) AnalysisServiceClient {
	return &analysisServiceClient{cc}
}

func (c *analysisServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *analysisServiceClient) Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AnalysisService_Submit_FullMethodName, in, opts)
}

func (c *analysisServiceClient) GetStatus(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AnalysisService_GetStatus_FullMethodName, in, opts)
}

func (c *analysisServiceClient) List(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AnalysisService_List_FullMethodName, in, opts)
}
