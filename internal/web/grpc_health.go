package web

import (
	"context"
	"errors"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/elys-network/uservault/internal/logger"
	"github.com/elys-network/uservault/internal/vault"
)

// HealthServiceName is the service reported by the gRPC health server.
const HealthServiceName = "uservault.Vault"

// HealthReporter publishes vault readiness over the standard gRPC health protocol.
type HealthReporter struct {
	grpcServer *grpc.Server
	health     *health.Server
	vault      *vault.Vault
	dbCheck    func(ctx context.Context) error
	log        zerolog.Logger
}

// NewHealthReporter registers a health service on a fresh gRPC server. dbCheck may be nil.
func NewHealthReporter(v *vault.Vault, dbCheck func(ctx context.Context) error) (*HealthReporter, error) {
	if v == nil {
		return nil, errors.New("health reporter requires a vault")
	}
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	r := &HealthReporter{
		grpcServer: gs,
		health:     hs,
		vault:      v,
		dbCheck:    dbCheck,
		log:        logger.GetForComponent("grpc_health"),
	}
	hs.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return r, nil
}

// Refresh probes the oracle and database and updates the serving status.
func (r *HealthReporter) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if _, err := r.vault.GetAssetPriceUSD(ctx); err != nil {
		r.log.Warn().Err(err).Msg("Oracle unavailable")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	if r.dbCheck != nil {
		if err := r.dbCheck(ctx); err != nil {
			r.log.Warn().Err(err).Msg("Database unavailable")
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	r.health.SetServingStatus(HealthServiceName, status)
	r.health.SetServingStatus("", status)
	return status
}

// Check answers a health request in process.
func (r *HealthReporter) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := r.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Serve blocks serving gRPC on listener.
func (r *HealthReporter) Serve(listener net.Listener) error {
	r.log.Info().Str("addr", listener.Addr().String()).Msg("Starting gRPC health server")
	if err := r.grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop marks every service as not serving and stops the server gracefully.
func (r *HealthReporter) Stop() {
	r.health.Shutdown()
	r.grpcServer.GracefulStop()
}
