// Package remote is the HTTP client for the product catalog REST API.
// Each operation is a single request; nothing is retried.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/seif-emam/deveolp-network/internal/catalog"
	catalogerrors "github.com/seif-emam/deveolp-network/internal/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// DefaultBaseURL is the public catalog API.
	DefaultBaseURL = "https://fakestoreapi.com"

	maxBodyBytes  = 4 << 20
	maxErrorBytes = 4096
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the catalog API rooted at BaseURL.
type Client struct {
	doer     Doer
	baseURL  string
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewHTTPClient builds the instrumented http.Client used by Client.
// transport may be nil, in which case http.DefaultTransport is used.
func NewHTTPClient(timeout time.Duration, transport http.RoundTripper) *http.Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(transport),
	}
}

// NewClient creates a catalog client. An empty baseURL selects DefaultBaseURL.
func NewClient(doer Doer, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	meter := otel.Meter("catalog-client")
	requests, err := meter.Int64Counter("catalog_remote_requests",
		metric.WithDescription("Requests sent to the catalog API by operation and outcome"))
	if err != nil {
		panic(fmt.Sprintf("failed to create catalog_remote_requests counter: %v", err))
	}
	duration, err := meter.Float64Histogram("catalog_remote_request_duration",
		metric.WithDescription("Latency of catalog API requests"),
		metric.WithUnit("s"))
	if err != nil {
		panic(fmt.Sprintf("failed to create catalog_remote_request_duration histogram: %v", err))
	}
	return &Client{
		doer:     doer,
		baseURL:  strings.TrimRight(baseURL, "/"),
		requests: requests,
		duration: duration,
	}
}

// ListProducts fetches the whole product collection.
func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	if err := c.do(ctx, "ListProducts", http.MethodGet, "/products", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []catalog.Product{}
	}
	return out, nil
}

// GetProduct fetches one product. ErrProductNotFound is returned for a 404
// and for an empty or null body, which is how the API answers unknown ids.
func (c *Client) GetProduct(ctx context.Context, id int) (*catalog.Product, error) {
	var out *catalog.Product
	if err := c.do(ctx, "GetProduct", http.MethodGet, fmt.Sprintf("/products/%d", id), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("GetProduct %d: %w", id, catalogerrors.ErrProductNotFound)
	}
	return out, nil
}

// UpdateProduct replaces product id with the given fields and returns the API's view of it.
func (c *Client) UpdateProduct(ctx context.Context, id int, update catalog.ProductUpdate) (*catalog.Product, error) {
	update.ID = nil
	var out *catalog.Product
	if err := c.do(ctx, "UpdateProduct", http.MethodPut, fmt.Sprintf("/products/%d", id), update, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("UpdateProduct %d: %w", id, catalogerrors.ErrProductNotFound)
	}
	if out.ID == 0 {
		out.ID = id
	}
	return out, nil
}

// ListCategories fetches the category names.
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, "ListCategories", http.MethodGet, "/products/categories", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Ping checks that the API answers the categories endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListCategories(ctx)
	return err
}

func (c *Client) newReq(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends one request and decodes a 2xx body into out.
// An empty or null body leaves out untouched.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		attrs := metric.WithAttributes(attribute.String("operation", op), attribute.String("outcome", outcome))
		c.requests.Add(ctx, 1, attrs)
		c.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	req, err := c.newReq(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Op:     op,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(b[:min(len(b), maxErrorBytes)])),
		}
	}

	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%s: decode body: %w", op, err)
	}
	return nil
}
