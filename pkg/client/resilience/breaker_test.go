package resilience

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seif-emam/deveolp-network/pkg/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"
)

// setupTestEnvironment starts a test server answering with the queued status codes
// and returns a client routed through the breaker.
func setupTestEnvironment(t *testing.T, statuses ...int) (*http.Client, *BreakerTransport, *int32, string) {
	t.Helper()

	var calls int32
	queue := make(chan int, len(statuses))
	for _, s := range statuses {
		queue <- s
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case code := <-queue:
			w.WriteHeader(code)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := config.CircuitBreakerConfig{
		Enabled:             true,
		ConsecutiveFailures: 3,
		ErrorRatePercent:    60,
		OpenTimeout:         time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	transport := NewBreakerTransport("catalog-api", cfg, srv.Client().Transport, logger)
	return &http.Client{Transport: transport}, transport, &calls, srv.URL
}

func TestBreaker_HappyPath(t *testing.T) {
	client, transport, calls, url := setupTestEnvironment(t, http.StatusOK)

	// when
	resp, err := client.Get(url)

	// then
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int32(1), atomic.LoadInt32(calls))
	require.Equal(t, gobreaker.StateClosed, transport.State())
}

func TestBreaker_ServerErrorIsReturnedToCaller(t *testing.T) {
	client, _, _, url := setupTestEnvironment(t, http.StatusBadGateway)

	// when
	resp, err := client.Get(url)

	// then
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestBreaker_OpensAfterConsecutiveServerErrors(t *testing.T) {
	// given
	client, transport, calls, url := setupTestEnvironment(t,
		http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable)

	for i := 0; i < 3; i++ {
		resp, err := client.Get(url)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	require.Equal(t, gobreaker.StateOpen, transport.State())

	// when
	_, err := client.Get(url)

	// then
	require.Error(t, err)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, int32(3), atomic.LoadInt32(calls), "open breaker must not reach the server")
}

func TestBreaker_IgnoresClientErrors(t *testing.T) {
	// given
	statuses := make([]int, 10)
	for i := range statuses {
		statuses[i] = http.StatusNotFound
	}
	client, transport, calls, url := setupTestEnvironment(t, statuses...)

	// when
	for i := 0; i < 10; i++ {
		resp, err := client.Get(url)
		// then
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
	require.Equal(t, gobreaker.StateClosed, transport.State())
	require.Equal(t, int32(10), atomic.LoadInt32(calls))
}
