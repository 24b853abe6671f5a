// Package render resolves the page bundle and serves requests through it.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"
)

// ErrNoBundle is returned when none of the candidate paths hold a usable bundle.
var ErrNoBundle = errors.New("no render bundle found")

// Loader builds the page handler from the bundle at path.
type Loader func(path string) (http.Handler, error)

// Bootstrap delegates requests to the first bundle path that loads.
// The resolved handler is memoized; a failed resolution is retried on the next request.
type Bootstrap struct {
	load       Loader
	paths      []string
	production bool
	logger     *slog.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	handler http.Handler
	path    string
}

// NewBootstrap creates a Bootstrap trying paths in order.
func NewBootstrap(load Loader, paths []string, production bool, logger *slog.Logger) *Bootstrap {
	return &Bootstrap{
		load:       load,
		paths:      paths,
		production: production,
		logger:     logger.With("component", "render-bootstrap"),
	}
}

// Handler returns the memoized page handler, resolving it on first use.
func (b *Bootstrap) Handler(ctx context.Context) (http.Handler, error) {
	b.mu.RLock()
	h := b.handler
	b.mu.RUnlock()
	if h != nil {
		return h, nil
	}

	v, err, _ := b.group.Do("bundle", func() (any, error) {
		b.mu.RLock()
		h := b.handler
		b.mu.RUnlock()
		if h != nil {
			return h, nil
		}
		return b.resolve(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(http.Handler), nil
}

func (b *Bootstrap) resolve(ctx context.Context) (http.Handler, error) {
	var lastErr error
	for _, p := range b.paths {
		h, err := b.load(p)
		if err != nil {
			b.logger.WarnContext(ctx, "Failed to load render bundle", "path", p, "error", err)
			lastErr = err
			continue
		}
		b.mu.Lock()
		b.handler = h
		b.path = p
		b.mu.Unlock()
		b.logger.InfoContext(ctx, "Render bundle loaded", "path", p)
		return h, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoBundle, lastErr)
	}
	return nil, ErrNoBundle
}

// Path reports the resolved bundle path, empty until resolution succeeds.
func (b *Bootstrap) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// Ready resolves the bundle if needed and reports whether it is usable.
func (b *Bootstrap) Ready(ctx context.Context) error {
	_, err := b.Handler(ctx)
	return err
}

func (b *Bootstrap) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h, err := b.Handler(r.Context())
	if err != nil {
		b.logger.ErrorContext(r.Context(), "Render handler unavailable", "error", err)
		ErrorPage(w, err, debug.Stack(), !b.production)
		return
	}

	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		stack := debug.Stack()
		b.logger.ErrorContext(r.Context(), "Render handler panicked", "panic", rec, "stack", string(stack))
		if ww.Status() != 0 {
			return
		}
		ErrorPage(w, fmt.Errorf("render panic: %v", rec), stack, !b.production)
	}()
	h.ServeHTTP(ww, r)
}
