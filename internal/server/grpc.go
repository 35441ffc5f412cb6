package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/kefline/student-hub/internal/server/interceptors"
)

// PublicMethods are the gRPC methods callable without a Bearer token.
var PublicMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
}

// NewGRPCServer returns a gRPC server with the health service registered behind the client IP
// and auth interceptors. The returned health server starts NOT_SERVING; the caller flips it
// once dependencies are ready.
func NewGRPCServer(verifier interceptors.AccessVerifier, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.ClientIPUnary(),
			interceptors.AuthUnary(verifier, PublicMethods),
		),
	}
	s := grpc.NewServer(append(base, opts...)...)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}
