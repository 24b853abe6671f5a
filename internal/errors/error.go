// Package errors provides the sentinel errors shared by the catalog packages.
package errors

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")

	// ErrEmptyCatalog is returned when statistics are requested for an empty collection.
	ErrEmptyCatalog = errors.New("catalog is empty")

	// ErrLoadSuperseded is returned to callers of a load whose result was discarded
	// because the catalog was invalidated while the request was in flight.
	ErrLoadSuperseded = errors.New("catalog load superseded by a newer generation")

	// ErrCatalogUnavailable reports that the remote catalog could not be reached.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)
