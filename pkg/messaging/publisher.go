package messaging

import (
	"context"
)

// ProductsUpdatedSubject carries a ProductUpdatedEvent after every successful product update.
const ProductsUpdatedSubject = "catalog.products.updated"

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
