package render

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	deployPath = "/var/task/bundle"
	localPath  = "./web/bundle"
)

type countingLoader struct {
	mu    sync.Mutex
	calls map[string]int
	ok    map[string]http.Handler
}

func newCountingLoader(ok map[string]http.Handler) *countingLoader {
	return &countingLoader{calls: map[string]int{}, ok: ok}
}

func (l *countingLoader) load(path string) (http.Handler, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[path]++
	if h, found := l.ok[path]; found {
		return h, nil
	}
	return nil, errors.New("cannot open " + path)
}

func (l *countingLoader) count(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[path]
}

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, body)
	})
}

func TestBootstrap_FallbackIsMemoized(t *testing.T) {
	// given
	loader := newCountingLoader(map[string]http.Handler{localPath: okHandler("local")})
	b := NewBootstrap(loader.load, []string{deployPath, localPath}, true, testLogger)

	// when
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			b.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "local", rec.Body.String())
		}()
	}
	wg.Wait()

	// then
	assert.Equal(t, 1, loader.count(deployPath))
	assert.Equal(t, 1, loader.count(localPath))
	assert.Equal(t, localPath, b.Path())
}

func TestBootstrap_PrefersDeployPath(t *testing.T) {
	// given
	loader := newCountingLoader(map[string]http.Handler{
		deployPath: okHandler("deploy"),
		localPath:  okHandler("local"),
	})
	b := NewBootstrap(loader.load, []string{deployPath, localPath}, true, testLogger)

	// when
	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	// then
	assert.Equal(t, "deploy", rec.Body.String())
	assert.Zero(t, loader.count(localPath))
}

func TestBootstrap_NoBundle(t *testing.T) {
	testCases := []struct {
		name       string
		production bool
		wantStack  bool
	}{
		{name: "Development shows stack", production: false, wantStack: true},
		{name: "Production hides stack", production: true, wantStack: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			loader := newCountingLoader(nil)
			b := NewBootstrap(loader.load, []string{deployPath, localPath}, tc.production, testLogger)

			// when
			rec := httptest.NewRecorder()
			b.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))

			// then
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), "<h1>Server Error</h1>")
			if tc.wantStack {
				assert.Contains(t, rec.Body.String(), "<pre>")
				assert.Contains(t, rec.Body.String(), "no render bundle found")
			} else {
				assert.NotContains(t, rec.Body.String(), "<pre>")
			}
		})
	}
}

func TestBootstrap_RetriesAfterFailedResolution(t *testing.T) {
	// given
	loader := newCountingLoader(nil)
	b := NewBootstrap(loader.load, []string{localPath}, true, testLogger)
	require.ErrorIs(t, b.Ready(context.Background()), ErrNoBundle)

	// when
	loader.mu.Lock()
	loader.ok = map[string]http.Handler{localPath: okHandler("late")}
	loader.mu.Unlock()
	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	// then
	assert.Equal(t, "late", rec.Body.String())
	assert.Equal(t, 2, loader.count(localPath))
}

func TestBootstrap_HandlerPanic(t *testing.T) {
	// given
	var calls atomic.Int32
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
		panic("template exploded")
	})
	loader := newCountingLoader(map[string]http.Handler{deployPath: panicking})
	b := NewBootstrap(loader.load, []string{deployPath}, false, testLogger)

	// when
	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	// then
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "template exploded")
}

func TestErrorPage_EscapesError(t *testing.T) {
	// given
	rec := httptest.NewRecorder()

	// when
	ErrorPage(rec, errors.New("<script>alert(1)</script>"), nil, true)

	// then
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}
