// Package app wires the storefront components together.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/seif-emam/deveolp-network/internal/catalog/images"
	"github.com/seif-emam/deveolp-network/internal/catalog/remote"
	"github.com/seif-emam/deveolp-network/internal/catalog/service"
	"github.com/seif-emam/deveolp-network/internal/catalog/state"
	"github.com/seif-emam/deveolp-network/internal/config"
	"github.com/seif-emam/deveolp-network/internal/render"
	grpcImpl "github.com/seif-emam/deveolp-network/internal/transport/grpc"
	"github.com/seif-emam/deveolp-network/internal/transport/pages"
	"github.com/seif-emam/deveolp-network/internal/transport/rest"
	"github.com/seif-emam/deveolp-network/pkg/auth"
	"github.com/seif-emam/deveolp-network/pkg/client/resilience"
	"github.com/seif-emam/deveolp-network/pkg/messaging"
	"github.com/seif-emam/deveolp-network/pkg/server"
	"github.com/seif-emam/deveolp-network/pkg/web"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
)

type Dependencies struct {
	ProductService service.ProductService
	Holder         *state.Holder
	Remote         *remote.Client
	Bootstrap      *render.Bootstrap
	Health         *grpcImpl.Health
	Logger         *slog.Logger

	guard       func(http.Handler) http.Handler
	pageSize    int
	metricsPath string
}

// SetupDependencies builds the catalog stack. publisher and verifier may be nil.
func SetupDependencies(cfg *config.Config, publisher messaging.Publisher, verifier auth.Verifier, logger *slog.Logger) (*Dependencies, error) {
	var transport http.RoundTripper = http.DefaultTransport
	if cfg.Catalog.CircuitBreaker.Enabled {
		transport = resilience.NewBreakerTransport("catalog", cfg.Catalog.CircuitBreaker, transport, logger)
	}
	client := remote.NewClient(remote.NewHTTPClient(cfg.Catalog.Timeout, transport), cfg.Catalog.BaseURL)

	holder := state.NewHolder(client, logger)
	productService := service.NewService(client, holder, publisher, cfg.Instance.ID, logger)

	store, err := newImageStore(cfg.Upload)
	if err != nil {
		return nil, err
	}

	health := grpcImpl.NewHealth(logger)
	holder.Subscribe(health.Observe)

	guard := newGuard(cfg, verifier, logger)
	loader := pages.NewLoader(pages.Deps{
		Service:       productService,
		Images:        store,
		MaxImageBytes: cfg.Upload.MaxBytes,
		PageSize:      cfg.Catalog.PageSize,
		Production:    cfg.Render.Production(),
		Logger:        logger,
		EditGuard:     guard,
	})

	metricsPath := ""
	if cfg.Telemetry.Metrics.Enabled {
		metricsPath = cfg.Telemetry.Metrics.Path
	}

	return &Dependencies{
		ProductService: productService,
		Holder:         holder,
		Remote:         client,
		Bootstrap:      render.NewBootstrap(loader, cfg.Render.Paths, cfg.Render.Production(), logger),
		Health:         health,
		Logger:         logger,
		guard:          guard,
		pageSize:       cfg.Catalog.PageSize,
		metricsPath:    metricsPath,
	}, nil
}

// newImageStore selects the store configured for form uploads.
func newImageStore(cfg config.UploadConfig) (images.Store, error) {
	if cfg.Provider != config.UploadProviderCloudinary {
		return images.FilenameStore{}, nil
	}
	store, err := images.NewCloudinaryStore(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary image store: %w", err)
	}
	return store, nil
}

// newGuard chains the rate limiter and the JWT check protecting mutations.
// It returns nil when neither is configured.
func newGuard(cfg *config.Config, verifier auth.Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	var chain []func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		chain = append(chain, web.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware(logger))
	}
	if verifier != nil {
		chain = append(chain, auth.Middleware(verifier))
	}
	if len(chain) == 0 {
		return nil
	}
	return chi.Chain(chain...).Handler
}

// SetupHttpHandler builds the router serving the JSON API, probes, metrics and pages.
// Used by tests to exercise the full handler stack.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the storefront.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	restHandler := rest.NewHandler(deps.ProductService, deps.pageSize, deps.Logger,
		rest.ReadinessCheck{Name: "catalog", Check: deps.Remote.Ping},
		rest.ReadinessCheck{Name: "bundle", Check: deps.Bootstrap.Ready},
	)
	restHandler.RegisterRoutes(mux)
	mux.Group(func(r chi.Router) {
		if deps.guard != nil {
			r.Use(deps.guard)
		}
		restHandler.RegisterUpdateRoutes(r)
	})

	if deps.metricsPath != "" {
		mux.Handle(deps.metricsPath, promhttp.Handler())
	}

	// everything else is a page
	mux.Handle("/*", deps.Bootstrap)
}

// SetupHttpServer creates and configures an HTTP server for the storefront.
func SetupHttpServer(deps *Dependencies, cfg *config.Config, serviceName string) *http.Server {
	handler := otelhttp.NewHandler(SetupHttpHandler(deps), serviceName)

	return server.NewHTTPServer(cfg.HTTPServer, handler, deps.Logger)
}

// SetupGrpcServer initializes the gRPC server exposing the catalog health.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	return server.NewGRPCServer(deps.Logger, reflectionEnabled, deps.Health.Register)
}
