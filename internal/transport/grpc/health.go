// Package grpc exposes the catalog health over the standard gRPC health protocol.
package grpc

import (
	"context"
	"log/slog"
	"sync"

	"github.com/seif-emam/deveolp-network/internal/catalog/state"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the catalog.
const ServiceName = "storefront.Catalog"

// Health mirrors the catalog load status into a gRPC health server.
type Health struct {
	server *health.Server
	logger *slog.Logger

	mu      sync.Mutex
	lastSeq uint64
}

// NewHealth creates a Health that reports SERVING until a load fails.
func NewHealth(logger *slog.Logger) *Health {
	h := &Health{
		server: health.NewServer(),
		logger: logger.With("component", "grpc-health"),
	}
	h.server.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.server.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return h
}

// Observe updates the status from a catalog snapshot. In-flight loads and
// snapshots older than one already applied are ignored.
func (h *Health) Observe(snap state.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if snap.Seq <= h.lastSeq && h.lastSeq != 0 {
		return
	}
	h.lastSeq = snap.Seq
	if snap.Loading {
		return
	}
	status := healthpb.HealthCheckResponse_SERVING
	if snap.Err != "" {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.logger.Debug("catalog health changed", "status", status.String(), "generation", snap.Generation)
	h.server.SetServingStatus(ServiceName, status)
}

// Register registers the health service on s.
func (h *Health) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Check reports the catalog status without going through the network.
func (h *Health) Check(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := h.server.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Shutdown sets every service to NOT_SERVING.
func (h *Health) Shutdown() {
	h.server.Shutdown()
}
