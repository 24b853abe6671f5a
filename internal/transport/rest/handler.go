// Package rest provides the JSON API over the product catalog.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/seif-emam/deveolp-network/internal/catalog"
	"github.com/seif-emam/deveolp-network/internal/catalog/dashboard"
	"github.com/seif-emam/deveolp-network/internal/catalog/listing"
	"github.com/seif-emam/deveolp-network/internal/catalog/service"
	"github.com/seif-emam/deveolp-network/internal/catalog/state"
	catalogerrors "github.com/seif-emam/deveolp-network/internal/errors"
	"github.com/seif-emam/deveolp-network/pkg/web"
)

const maxPageSize = 100

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handler struct {
	service  service.ProductService
	checks   []ReadinessCheck
	pageSize int
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new Handler. pageSize is the default listing page size.
func NewHandler(service service.ProductService, pageSize int, logger *slog.Logger, checks ...ReadinessCheck) *Handler {
	if pageSize < 1 {
		pageSize = listing.DefaultPageSize
	}
	return &Handler{
		service:  service,
		checks:   checks,
		pageSize: pageSize,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the read routes and the probes.
// Update routes are registered separately so they can be guarded.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.FindAll)
		r.Get("/products/{id}", h.FindByID)
		r.Get("/categories", h.Categories)
		r.Get("/dashboard", h.Dashboard)
	})

	r.Get("/healthz", h.HealthCheck)
	r.Get("/readyz", h.ReadinessCheck)
}

// RegisterUpdateRoutes registers PUT /api/v1/products/{id}.
func (h *Handler) RegisterUpdateRoutes(r chi.Router) {
	r.Put("/api/v1/products/{id}", h.Update)
}

// FindAll returns one page of the filtered product list.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := web.ParseOptionalGte(r, w, mLogger, "page", 1, 1)
	if !ok {
		return
	}
	pageSize, ok := web.ParseOptionalBetween(r, w, mLogger, "pageSize", 1, maxPageSize, h.pageSize)
	if !ok {
		return
	}
	query := r.URL.Query()
	search, category := query.Get("q"), query.Get("category")

	mLogger.DebugContext(r.Context(), "Received request to list products", "q", search, "category", category, "page", page)
	snapshot, ok := h.snapshot(w, r, mLogger)
	if !ok {
		return
	}

	view, ok := listing.BuildPage(snapshot.Products, search, category, page, pageSize)
	if !ok {
		web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Invalid page number: %d", page))
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully built product list", "count", len(view.Products), "total", view.FilteredCount)
	web.RespondJSON(w, mLogger, http.StatusOK, view)
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseProductID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusBadGateway, "Failed to load product")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product", "ID", found.ID, "Title", found.Title)
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Update replaces every field of a product.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseProductID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to update product", "ID", id)
	var update catalog.ProductUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(update); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.service.Update(r.Context(), id, update)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found for update", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error updating product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusBadGateway, "Failed to update product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Title", updated.Title)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// Categories lists the category names known to the remote catalog.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving categories", "error", err)
		web.RespondError(w, mLogger, http.StatusBadGateway, "Failed to load categories")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, categories)
}

// Dashboard returns the aggregate statistics. An empty catalog yields 204.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	snapshot, ok := h.snapshot(w, r, mLogger)
	if !ok {
		return
	}
	stats, err := dashboard.Compute(snapshot.Products)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrEmptyCatalog) {
			mLogger.InfoContext(r.Context(), "Dashboard requested for an empty catalog")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		mLogger.ErrorContext(r.Context(), "Error computing dashboard", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to compute dashboard")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, stats)
}

// HealthCheck is a simple liveness endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ReadinessCheck runs every registered check and reports the failing ones.
func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	failures := make(map[string]string)
	for _, c := range h.checks {
		if err := c.Check(r.Context()); err != nil {
			mLogger.WarnContext(r.Context(), "Readiness check failed", "check", c.Name, "error", err)
			failures[c.Name] = err.Error()
		}
	}
	if len(failures) > 0 {
		web.RespondJSON(w, mLogger, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failures})
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]string{"status": "ok"})
}

// snapshot loads the catalog. A failed load with no previous data responds 502.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (state.Snapshot, bool) {
	snapshot, err := h.service.Snapshot(r.Context())
	if err != nil {
		if !snapshot.Loaded() {
			mLogger.ErrorContext(r.Context(), "Error loading products", "error", err)
			web.RespondError(w, mLogger, http.StatusBadGateway, state.LoadErrorMessage)
			return snapshot, false
		}
		mLogger.WarnContext(r.Context(), "Serving previous products after failed load", "error", err)
	}
	return snapshot, true
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
