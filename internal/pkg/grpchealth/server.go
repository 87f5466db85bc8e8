package grpchealth

import (
	"net"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/minishop/commerce-services/internal/pkg/logger"
)

// Server exposes grpc.health.v1.Health for one named service.
// It reports NOT_SERVING until SetServing is called.
type Server struct {
	grpc    *grpc.Server
	health  *health.Server
	service string
	logger  logger.ZapLogger
}

func New(service string, log logger.ZapLogger) *Server {
	gs := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	return &Server{grpc: gs, health: hs, service: service, logger: log}
}

func (s *Server) SetServing() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(s.service, healthpb.HealthCheckResponse_SERVING)
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// ListenAndServe listens on port (with or without a leading colon) and serves.
func (s *Server) ListenAndServe(port string) error {
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	lis, err := net.Listen("tcp", port)
	if err != nil {
		return err
	}
	s.logger.Info("Starting gRPC health server", zap.String("port", port))
	return s.Serve(lis)
}

// Stop flips every status to NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
