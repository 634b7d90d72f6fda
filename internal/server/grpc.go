package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alfredjeanlab/relay/internal/model"
	_ "github.com/alfredjeanlab/relay/internal/rpcjson" // registers the json codec
)

// relayServiceDesc describes relay.v1.Relay. Messages are the model types,
// carried by the rpcjson codec.
var relayServiceDesc = grpc.ServiceDesc{
	ServiceName: model.RelayServiceName,
	HandlerType: (*RelayService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Report", Handler: unaryHandler(model.MethodReport, RelayService.Report)},
		{MethodName: "GetReports", Handler: unaryHandler(model.MethodGetReports, RelayService.GetReports)},
		{MethodName: "GetCommand", Handler: unaryHandler(model.MethodGetCommand, RelayService.GetCommand)},
		{MethodName: "SendCommand", Handler: unaryHandler(model.MethodSendCommand, RelayService.SendCommand)},
		{MethodName: "SendCommandToAll", Handler: unaryHandler(model.MethodSendCommandToAll, RelayService.SendCommandToAll)},
		{MethodName: "ListClients", Handler: unaryHandler(model.MethodListClients, RelayService.ListClients)},
		{MethodName: "RemoveClient", Handler: unaryHandler(model.MethodRemoveClient, RelayService.RemoveClient)},
		{MethodName: "Health", Handler: unaryHandler(model.MethodHealth, RelayService.Health)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "relay/v1/relay.proto",
}

// unaryHandler adapts a RelayService method to a grpc.MethodHandler.
func unaryHandler[Req, Resp any](fullMethod string, call func(RelayService, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		svc := srv.(RelayService)
		if interceptor == nil {
			return call(svc, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(svc, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterRelayService registers svc on s.
func RegisterRelayService(s grpc.ServiceRegistrar, svc RelayService) {
	s.RegisterService(&relayServiceDesc, svc)
}

// NewGRPCServer creates a gRPC server with standard interceptors and
// registers the relay and health services.
func NewGRPCServer(relayServer *RelayServer) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
		),
	)

	RegisterRelayService(srv, relayServer)

	hs := health.NewServer()
	hs.SetServingStatus(model.RelayServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}
