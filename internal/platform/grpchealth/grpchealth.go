// Package grpchealth exposes database readiness over the standard gRPC
// health protocol (grpc.health.v1.Health).
package grpchealth

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/clinicrecords/clinic/internal/platform/db"
)

// ServiceName is the name clients pass in HealthCheckRequest to ask about
// the HTTP API. The empty name reports the same status.
const ServiceName = "clinic.api"

const DefaultInterval = 10 * time.Second

// Server polls the database and publishes the result on a gRPC health
// service.
type Server struct {
	pinger   db.Pinger
	interval time.Duration
	logger   zerolog.Logger

	health *health.Server
	grpc   *grpc.Server
}

func New(pinger db.Pinger, interval time.Duration, logger zerolog.Logger) *Server {
	if interval <= 0 {
		interval = DefaultInterval
	}
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		pinger:   pinger,
		interval: interval,
		logger:   logger.With().Str("component", "grpc-health").Logger(),
		health:   hs,
		grpc:     gs,
	}
}

// Check pings the database once and updates the published status.
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := db.Check(ctx, s.pinger); err != nil {
		s.logger.Warn().Err(err).Msg("database not ready")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Poll runs Check every interval until ctx is cancelled.
func (s *Server) Poll(ctx context.Context) {
	s.Check(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Serve polls in the background and serves gRPC on lis until Stop is called.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go s.Poll(ctx)
	s.logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC health listening")
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
