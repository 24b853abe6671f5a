// Package config holds the storefront configuration.
package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/seif-emam/deveolp-network/internal/catalog/listing"
	"github.com/seif-emam/deveolp-network/pkg/config"
	"github.com/seif-emam/deveolp-network/pkg/config/configloader"
	"github.com/seif-emam/deveolp-network/pkg/messaging"
)

var _ configloader.Validator = (*Config)(nil)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	UploadProviderFilename   = "filename"
	UploadProviderCloudinary = "cloudinary"
)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Catalog    CatalogConfig           `koanf:"catalog"`
	Render     RenderConfig            `koanf:"render"`
	Upload     UploadConfig            `koanf:"upload"`
	NATS       config.NATSConfig       `koanf:"nats"`
	Subscriber config.SubscriberConfig `koanf:"subscriber"`
	IdP        config.IdP              `koanf:"idp"`
	RateLimit  config.RateLimitConfig  `koanf:"ratelimit"`
	Instance   InstanceConfig          `koanf:"instance"`
}

// CatalogConfig points at the remote catalog API.
type CatalogConfig struct {
	BaseURL        string                      `koanf:"baseurl"`
	Timeout        time.Duration               `koanf:"timeout"`
	PageSize       int                         `koanf:"pagesize"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
}

// RenderConfig lists the bundle locations tried in order.
type RenderConfig struct {
	Env   string   `koanf:"env"`
	Paths []string `koanf:"paths"`
}

// Production reports whether error pages must hide stack traces.
func (c *RenderConfig) Production() bool {
	return c.Env == EnvProduction
}

// UploadConfig selects where images picked in the update form are stored.
type UploadConfig struct {
	Provider   string           `koanf:"provider"`
	MaxBytes   int64            `koanf:"maxbytes"`
	Cloudinary CloudinaryConfig `koanf:"cloudinary"`
}

type CloudinaryConfig struct {
	CloudName string `koanf:"cloudname"`
	APIKey    string `koanf:"apikey"`
	APISecret string `koanf:"apisecret"`
	Folder    string `koanf:"folder"`
}

// InstanceConfig identifies this replica in published events. An empty ID is generated at startup.
type InstanceConfig struct {
	ID string `koanf:"id"`
}

// Defaults are the lowest priority configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":                                8080,
		"server.maxHeaderBytes":                      1 << 20,
		"server.timeout.read":                        15 * time.Second,
		"server.timeout.write":                       30 * time.Second,
		"server.timeout.idle":                        60 * time.Second,
		"server.timeout.readHeader":                  5 * time.Second,
		"log.level":                                  "info",
		"pprof.addr":                                 "localhost:6060",
		"grpc.port":                                  "9090",
		"shutdown.timeout":                           10 * time.Second,
		"telemetry.traces.otlphttp.timeout":          5 * time.Second,
		"telemetry.metrics.enabled":                  true,
		"telemetry.metrics.path":                     "/metrics",
		"catalog.baseurl":                            "https://fakestoreapi.com",
		"catalog.timeout":                            10 * time.Second,
		"catalog.pagesize":                           listing.DefaultPageSize,
		"catalog.circuitbreaker.enabled":             true,
		"catalog.circuitbreaker.consecutivefailures": 5,
		"catalog.circuitbreaker.minrequests":         10,
		"catalog.circuitbreaker.errorratepercent":    50,
		"catalog.circuitbreaker.interval":            60 * time.Second,
		"catalog.circuitbreaker.opentimeout":         30 * time.Second,
		"render.env":                                 EnvDevelopment,
		"render.paths":                               []string{"/var/task/web/bundle", "web/bundle"},
		"upload.provider":                            UploadProviderFilename,
		"upload.maxbytes":                            5 * 1024 * 1024,
		"upload.cloudinary.folder":                   "products",
		"nats.url":                                   "nats://localhost:4222",
		"nats.timeout":                               5 * time.Second,
		"subscriber.stream":                          "CATALOG",
		"subscriber.subject":                         messaging.ProductsUpdatedSubject,
		"subscriber.consumer":                        "storefront",
		"subscriber.batch":                           10,
		"subscriber.timeout":                         5 * time.Second,
		"subscriber.interval":                        time.Second,
		"subscriber.workers":                         1,
		"idp.mininterval":                            15 * time.Minute,
		"ratelimit.rps":                              5.0,
		"ratelimit.burst":                            10,
	}
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.GRPC.String())

	b.WriteString("\n--- Catalog ---\n")
	b.WriteString(fmt.Sprintf("  catalog.baseurl: %s\n", c.Catalog.BaseURL))
	b.WriteString(fmt.Sprintf("  catalog.timeout: %s\n", c.Catalog.Timeout))
	b.WriteString(fmt.Sprintf("  catalog.pagesize: %d\n", c.Catalog.PageSize))
	b.WriteString(c.Catalog.CircuitBreaker.String())

	b.WriteString("\n--- Render ---\n")
	b.WriteString(fmt.Sprintf("  render.env: %s\n", c.Render.Env))
	b.WriteString(fmt.Sprintf("  render.paths: %s\n", strings.Join(c.Render.Paths, ", ")))

	b.WriteString("\n--- Upload ---\n")
	b.WriteString(fmt.Sprintf("  upload.provider: %s\n", c.Upload.Provider))
	b.WriteString(fmt.Sprintf("  upload.maxbytes: %d\n", c.Upload.MaxBytes))
	if c.Upload.Provider == UploadProviderCloudinary {
		b.WriteString(fmt.Sprintf("  upload.cloudinary.cloudname: %s\n", c.Upload.Cloudinary.CloudName))
		b.WriteString(fmt.Sprintf("  upload.cloudinary.apikey: %s\n", mask(c.Upload.Cloudinary.APIKey)))
		b.WriteString(fmt.Sprintf("  upload.cloudinary.apisecret: %s\n", mask(c.Upload.Cloudinary.APISecret)))
		b.WriteString(fmt.Sprintf("  upload.cloudinary.folder: %s\n", c.Upload.Cloudinary.Folder))
	}

	b.WriteString(c.NATS.String())
	b.WriteString(c.Subscriber.String())
	b.WriteString(c.IdP.String())
	b.WriteString(c.RateLimit.String())

	b.WriteString("\n--- Observability & Logging ---\n")
	b.WriteString(fmt.Sprintf("  log.level: %s\n", c.Log.Level))
	b.WriteString(fmt.Sprintf("  pprof.enabled: %t\n", c.PProf.Enabled))
	b.WriteString(fmt.Sprintf("  pprof.address: %s\n", c.PProf.Addr))
	b.WriteString(c.Telemetry.String())

	b.WriteString("\n--- Application Behavior ---\n")
	b.WriteString(fmt.Sprintf("  shutdown.timeout: %s\n", c.Shutdown.Timeout))
	b.WriteString(fmt.Sprintf("  instance.id: %s\n", c.Instance.ID))

	return b.String()
}

func mask(secret string) string {
	if secret == "" {
		return "<not configured>"
	}
	return "****"
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.Log,
		&c.PProf,
		&c.GRPC,
		&c.Shutdown,
		&c.Telemetry,
		&c.Catalog,
		&c.Render,
		&c.Upload,
		&c.NATS,
		&c.Subscriber,
		&c.IdP,
		&c.RateLimit,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if c.Subscriber.Enabled && !c.NATS.Enabled {
		return fmt.Errorf("subscriber requires nats to be enabled")
	}
	return nil
}

func (c *CatalogConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog base url %q must be an absolute URL", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("catalog timeout must be greater than zero")
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("catalog page size must be between 1 and 100")
	}
	return c.CircuitBreaker.Validate()
}

func (c *RenderConfig) Validate() error {
	if !slices.Contains([]string{EnvProduction, EnvDevelopment}, c.Env) {
		return fmt.Errorf("render env must be %q or %q, got %q", EnvProduction, EnvDevelopment, c.Env)
	}
	if len(c.Paths) == 0 {
		return fmt.Errorf("at least one render bundle path is required")
	}
	return nil
}

func (c *UploadConfig) Validate() error {
	if c.MaxBytes <= 0 {
		return fmt.Errorf("upload max bytes must be greater than zero")
	}
	switch c.Provider {
	case UploadProviderFilename:
		return nil
	case UploadProviderCloudinary:
		if c.Cloudinary.CloudName == "" || c.Cloudinary.APIKey == "" || c.Cloudinary.APISecret == "" {
			return fmt.Errorf("cloudinary upload requires cloud name, api key and api secret")
		}
		return nil
	default:
		return fmt.Errorf("unknown upload provider %q", c.Provider)
	}
}
