// Package resilience wraps outbound HTTP calls in a circuit breaker.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/seif-emam/deveolp-network/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// errServerStatus marks a 5xx response so the breaker can count it as a failure.
var errServerStatus = errors.New("upstream responded with a server error")

// BreakerTransport is an http.RoundTripper guarded by a circuit breaker.
// Transport errors and 5xx responses count as failures; 4xx responses don't.
type BreakerTransport struct {
	base http.RoundTripper
	cb   *gobreaker.CircuitBreaker[*http.Response]
}

// NewBreakerTransport wraps base with a circuit breaker built from cfg.
func NewBreakerTransport(name string, cfg config.CircuitBreakerConfig, base http.RoundTripper, logger *slog.Logger) *BreakerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(cfg.MinRequests > 0 && total >= cfg.MinRequests &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
	return &BreakerTransport{
		base: base,
		cb:   gobreaker.NewCircuitBreaker[*http.Response](st),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.cb.Execute(func() (*http.Response, error) {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	switch {
	case err == nil:
		return resp, nil
	case errors.Is(err, errServerStatus):
		// the caller still gets the response and decides what to do with it
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%s: %w", t.cb.Name(), err)
	default:
		return nil, err
	}
}

// State reports the current breaker state.
func (t *BreakerTransport) State() gobreaker.State {
	return t.cb.State()
}
