// Package ipc provides the gRPC transport between the privileged helper and
// unprivileged clients: a Unix domain socket on macOS/Linux and a Named Pipe
// on Windows.
//
// The service is registered by hand with protobuf well-known types as
// messages, so no generated code is involved.
package ipc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"wgstatusbar/internal/tunnel"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "wgstatusbar.Helper"

const (
	methodGetTunnels         = "/" + ServiceName + "/GetTunnels"
	methodSetTunnel          = "/" + ServiceName + "/SetTunnel"
	methodGetVersion         = "/" + ServiceName + "/GetVersion"
	methodWireguardInstalled = "/" + ServiceName + "/WireguardInstalled"
	methodSubscribe          = "/" + ServiceName + "/Subscribe"
)

// Helper is the control surface the daemon exposes to clients.
type Helper interface {
	GetTunnels(ctx context.Context) tunnel.Inventory
	SetTunnel(ctx context.Context, name string, enable bool) (success bool, errMsg string)
	GetVersion(ctx context.Context) string
	WireguardInstalled(ctx context.Context) bool
}

// HelperServer is the wire-level form of Helper plus the push stream.
type HelperServer interface {
	GetTunnels(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetTunnel(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetVersion(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	WireguardInstalled(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	Subscribe(*emptypb.Empty, SubscribeServer) error
}

// SubscribeServer is the server side of the push stream.
type SubscribeServer interface {
	Send(*emptypb.Empty) error
	grpc.ServerStream
}

type subscribeServer struct {
	grpc.ServerStream
}

func (s *subscribeServer) Send(m *emptypb.Empty) error {
	return s.ServerStream.SendMsg(m)
}

// ServiceDesc describes wgstatusbar.Helper for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HelperServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetTunnels", Handler: getTunnelsHandler},
		{MethodName: "SetTunnel", Handler: setTunnelHandler},
		{MethodName: "GetVersion", Handler: getVersionHandler},
		{MethodName: "WireguardInstalled", Handler: wireguardInstalledHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "wgstatusbar/helper",
}

func getTunnelsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HelperServer).GetTunnels(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetTunnels}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HelperServer).GetTunnels(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func setTunnelHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HelperServer).SetTunnel(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSetTunnel}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HelperServer).SetTunnel(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getVersionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HelperServer).GetVersion(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetVersion}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HelperServer).GetVersion(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func wireguardInstalledHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HelperServer).WireguardInstalled(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodWireguardInstalled}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HelperServer).WireguardInstalled(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(HelperServer).Subscribe(in, &subscribeServer{stream})
}
