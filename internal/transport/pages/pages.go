// Package pages renders the storefront HTML pages from a template bundle.
package pages

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/seif-emam/deveolp-network/internal/catalog/images"
	"github.com/seif-emam/deveolp-network/internal/catalog/listing"
	"github.com/seif-emam/deveolp-network/internal/catalog/service"
	"github.com/seif-emam/deveolp-network/internal/render"
)

// Deps are the collaborators of the page handlers.
type Deps struct {
	Service       service.ProductService
	Images        images.Store
	MaxImageBytes int64
	PageSize      int
	Production    bool
	Logger        *slog.Logger

	// EditGuard, when set, wraps the edit routes.
	EditGuard func(http.Handler) http.Handler
}

// NewLoader returns a render.Loader reading bundles from the file system.
func NewLoader(deps Deps) render.Loader {
	return func(path string) (http.Handler, error) {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("bundle path %s is not a directory", path)
		}
		return Load(os.DirFS(path), deps)
	}
}

// Load parses templates/*.gohtml from bundle and builds the page router.
// Static assets are served from bundle's static directory.
func Load(bundle fs.FS, deps Deps) (http.Handler, error) {
	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(bundle, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	for _, name := range []string{"dashboard", "products", "product", "edit"} {
		if tmpl.Lookup(name) == nil {
			return nil, fmt.Errorf("bundle is missing template %q", name)
		}
	}
	static, err := fs.Sub(bundle, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static assets: %w", err)
	}

	if deps.PageSize < 1 {
		deps.PageSize = listing.DefaultPageSize
	}
	h := &handler{
		deps:   deps,
		tmpl:   tmpl,
		logger: deps.Logger.With("component", "pages"),
	}

	r := chi.NewRouter()
	r.Get("/", redirectToDashboard)
	r.Get("/dashboard", h.dashboard)
	r.Get("/products", h.products)
	r.Get("/products/{id}", h.product)
	r.Group(func(r chi.Router) {
		if deps.EditGuard != nil {
			r.Use(deps.EditGuard)
		}
		r.Get("/products/{id}/edit", h.editForm)
		r.Post("/products/{id}/edit", h.submitEdit)
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))
	r.NotFound(redirectToDashboard)
	r.MethodNotAllowed(redirectToDashboard)
	return r, nil
}

func redirectToDashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

type handler struct {
	deps   Deps
	tmpl   *template.Template
	logger *slog.Logger
}

// render executes the named template into a buffer so a failure still yields a clean error page.
func (h *handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		h.loggerWithReqID(r).ErrorContext(r.Context(), "Failed to render page", "template", name, "error", err)
		render.ErrorPage(w, err, nil, !h.deps.Production)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *handler) loggerWithReqID(r *http.Request) *slog.Logger {
	return h.logger.With("request_id", middleware.GetReqID(r.Context()))
}

var funcs = template.FuncMap{
	"stars":   stars,
	"price":   formatPrice,
	"seconds": seconds,
	"head":    head,
	"prev":    func(i int) int { return i - 1 },
	"next":    func(i int) int { return i + 1 },
}

type headData struct {
	Title   string
	Refresh string
}

// head builds the data of the shared header; refresh is an optional meta refresh value.
func head(title string, refresh ...string) headData {
	h := headData{Title: title}
	if len(refresh) > 0 {
		h.Refresh = refresh[0]
	}
	return h
}

// stars returns five flags, the first floor(rate) of them set.
func stars(rate float64) []bool {
	out := make([]bool, 5)
	filled := int(math.Floor(rate))
	for i := range out {
		out[i] = i < filled
	}
	return out
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
