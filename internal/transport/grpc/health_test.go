package grpc

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/seif-emam/deveolp-network/internal/catalog/state"
	"github.com/seif-emam/deveolp-network/pkg/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestHealth_Observe(t *testing.T) {
	testCases := []struct {
		name      string
		snapshots []state.Snapshot
		want      healthpb.HealthCheckResponse_ServingStatus
	}{
		{
			name: "Initial",
			want: healthpb.HealthCheckResponse_SERVING,
		},
		{
			name:      "Load failed",
			snapshots: []state.Snapshot{{Err: state.LoadErrorMessage, Seq: 1}},
			want:      healthpb.HealthCheckResponse_NOT_SERVING,
		},
		{
			name:      "Loading keeps previous status",
			snapshots: []state.Snapshot{{Err: state.LoadErrorMessage, Seq: 1}, {Loading: true, Seq: 2}},
			want:      healthpb.HealthCheckResponse_NOT_SERVING,
		},
		{
			name:      "Recovered",
			snapshots: []state.Snapshot{{Err: state.LoadErrorMessage, Seq: 1}, {Loading: true, Seq: 2}, {Generation: 1, Seq: 3}},
			want:      healthpb.HealthCheckResponse_SERVING,
		},
		{
			name:      "Late failure after newer success",
			snapshots: []state.Snapshot{{Generation: 1, Seq: 5}, {Err: state.LoadErrorMessage, Seq: 4}},
			want:      healthpb.HealthCheckResponse_SERVING,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			h := NewHealth(testLogger)

			// when
			for _, snap := range tc.snapshots {
				h.Observe(snap)
			}

			// then
			status, err := h.Check(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, status)
		})
	}
}

func TestHealth_OverGRPC(t *testing.T) {
	// given
	h := NewHealth(testLogger)
	h.Observe(state.Snapshot{Err: state.LoadErrorMessage, Seq: 1})

	lis := bufconn.Listen(1024 * 1024)
	srv := server.NewGRPCServer(testLogger, false, h.Register)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := healthpb.NewHealthClient(conn)

	// when
	catalogResp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	overallResp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)

	// then
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, catalogResp.GetStatus())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, overallResp.GetStatus())
}
