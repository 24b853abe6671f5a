package remote

import (
	"fmt"
	"net/http"

	catalogerrors "github.com/seif-emam/deveolp-network/internal/errors"
)

// APIError is returned for any non-2xx response from the catalog API.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status=%d body=%s", e.Op, e.Status, e.Body)
}

// Unwrap maps a 404 to ErrProductNotFound and a 5xx to ErrCatalogUnavailable.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return catalogerrors.ErrProductNotFound
	case e.Status >= http.StatusInternalServerError:
		return catalogerrors.ErrCatalogUnavailable
	default:
		return nil
	}
}
