// Package service ties the remote catalog, the state holder and event publishing together.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seif-emam/deveolp-network/internal/catalog"
	"github.com/seif-emam/deveolp-network/internal/catalog/state"
	catalogerrors "github.com/seif-emam/deveolp-network/internal/errors"
	"github.com/seif-emam/deveolp-network/pkg/messaging"
	"github.com/seif-emam/deveolp-network/pkg/messaging/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// ProductService defines the catalog operations used by the transports.
type ProductService interface {
	// Snapshot loads the product collection and returns the resulting state.
	// The snapshot is returned even when the load fails; its Err holds the user-facing message.
	Snapshot(ctx context.Context) (state.Snapshot, error)

	// FindByID fetches a single product from the remote catalog.
	// Returns ErrProductNotFound if the catalog has no product with the given ID.
	FindByID(ctx context.Context, id int) (*catalog.Product, error)

	// Categories fetches the category names.
	Categories(ctx context.Context) ([]string, error)

	// Update replaces every field of product id, then reloads the collection.
	Update(ctx context.Context, id int, update catalog.ProductUpdate) (*catalog.Product, error)

	// Refresh invalidates the collection and loads it again.
	Refresh(ctx context.Context) error
}

// Remote is the catalog API.
type Remote interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	GetProduct(ctx context.Context, id int) (*catalog.Product, error)
	UpdateProduct(ctx context.Context, id int, update catalog.ProductUpdate) (*catalog.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// Service implements ProductService.
type Service struct {
	remote         Remote
	holder         *state.Holder
	publisher      messaging.Publisher
	origin         string
	logger         *slog.Logger
	updatesCounter metric.Int64Counter
	now            func() time.Time
}

// NewService creates a Service. origin identifies this instance in published events.
func NewService(remote Remote, holder *state.Holder, publisher messaging.Publisher, origin string, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	meter := otel.Meter("catalog-service")
	updatesCounter, err := meter.Int64Counter("products_updated", metric.WithDescription("Total number of updated products"))
	if err != nil {
		panic(fmt.Sprintf("failed to create products_updated counter: %v", err))
	}
	return &Service{
		remote:         remote,
		holder:         holder,
		publisher:      publisher,
		origin:         origin,
		logger:         logger.With("component", "catalog-service"),
		updatesCounter: updatesCounter,
		now:            time.Now,
	}
}

func (s *Service) Snapshot(ctx context.Context) (state.Snapshot, error) {
	snap, err := s.holder.LoadSnapshot(ctx)
	if errors.Is(err, catalogerrors.ErrLoadSuperseded) {
		// a mutation landed mid-flight; load the new generation once
		snap, err = s.holder.LoadSnapshot(ctx)
	}
	return snap, err
}

func (s *Service) FindByID(ctx context.Context, id int) (*catalog.Product, error) {
	product, err := s.remote.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find product %d: %w", id, err)
	}
	return product, nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.remote.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *Service) Update(ctx context.Context, id int, update catalog.ProductUpdate) (*catalog.Product, error) {
	updated, err := s.remote.UpdateProduct(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	s.updatesCounter.Add(ctx, 1)

	event := events.ProductUpdatedEvent{
		ProductID: id,
		Title:     updated.Title,
		Price:     updated.Price,
		Category:  updated.Category,
		Image:     updated.Image,
		Origin:    s.origin,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish product updated event", "ID", id, "error", err)
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "Failed to reload catalog after update", "ID", id, "error", err)
	}
	return updated, nil
}

func (s *Service) Refresh(ctx context.Context) error {
	s.holder.Invalidate()
	return s.holder.Load(ctx)
}

// Origin returns the instance identifier stamped on published events.
func (s *Service) Origin() string {
	return s.origin
}
