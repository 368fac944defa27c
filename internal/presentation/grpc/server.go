package grpc

import (
	"fmt"
	"log/slog"
	"net"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/bibbank/microloan/pkg/auth"
)

// ServerOptions configures transport features of the gRPC server.
type ServerOptions struct {
	// Creds enables TLS when set.
	Creds credentials.TransportCredentials
	// Reflection registers the reflection service.
	Reflection bool
}

// Server wraps a gRPC server with the MicroLoan handler registered.
type Server struct {
	gs     *grpclib.Server
	health *health.Server
	logger *slog.Logger
}

// unauthenticated methods.
var publicMethods = []string{
	"/grpc.health.v1.Health/Check",
	"/grpc.health.v1.Health/Watch",
}

// NewServer creates and configures the gRPC server. Interceptors run in
// order telemetry, auth, errors.
func NewServer(handler MicroLoanServiceServer, validator auth.TokenValidator, logger *slog.Logger, opts ServerOptions) (*Server, error) {
	telemetry, err := TelemetryInterceptor(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("telemetry interceptor: %w", err)
	}

	serverOpts := []grpclib.ServerOption{
		grpclib.ChainUnaryInterceptor(
			telemetry,
			auth.UnaryAuthInterceptor(validator, publicMethods...),
			ErrorInterceptor(logger),
		),
	}
	if opts.Creds != nil {
		serverOpts = append(serverOpts, grpclib.Creds(opts.Creds))
		logger.Info("gRPC TLS enabled")
	} else {
		logger.Info("gRPC TLS not configured, running without TLS")
	}

	gs := grpclib.NewServer(serverOpts...)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	if opts.Reflection {
		reflection.Register(gs)
	}

	RegisterMicroLoanServiceServer(gs, handler)

	return &Server{gs: gs, health: healthSrv, logger: logger}, nil
}

// Serve starts the gRPC server on the specified address.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves on an existing listener.
func (s *Server) ServeListener(lis net.Listener) error {
	s.logger.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.gs.Serve(lis)
}

// GracefulStop marks the service not serving and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.logger.Info("gRPC server shutting down")
	s.health.Shutdown()
	s.gs.GracefulStop()
}
