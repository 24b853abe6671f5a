// Package main runs the storefront: the JSON catalog API, the admin pages and the gRPC health service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/seif-emam/deveolp-network/internal/app"
	"github.com/seif-emam/deveolp-network/internal/config"
	"github.com/seif-emam/deveolp-network/internal/transport/events"
	"github.com/seif-emam/deveolp-network/pkg/auth"
	"github.com/seif-emam/deveolp-network/pkg/bootstrap"
	"github.com/seif-emam/deveolp-network/pkg/config/configloader"
	"github.com/seif-emam/deveolp-network/pkg/messaging"
	natsclient "github.com/seif-emam/deveolp-network/pkg/nats"
	"github.com/seif-emam/deveolp-network/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

const serviceName = "storefront"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run initializes the application and serves until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName, config.Defaults())
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	if cfg.Instance.ID == "" {
		cfg.Instance.ID = uuid.NewString()
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level).With(slog.String("instance", cfg.Instance.ID))
	slog.SetDefault(logger)

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Telemetry.Traces.Enabled {
		tracerProvider, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		// gracefully shutdown tracer provider
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down tracer provider")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shutdown tracer provider: %w", err)
			}
			return nil
		})
	}

	if cfg.Telemetry.Metrics.Enabled {
		meterProvider, err := telemetry.NewMeterProvider(serviceName)
		if err != nil {
			return err
		}
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return meterProvider.Shutdown(shutdownCtx)
		})
	}

	var publisher messaging.Publisher = messaging.NoopPublisher{}
	var js jetstream.JetStream
	if cfg.NATS.Enabled {
		nc, err := natsclient.NewClient(cfg.NATS.Url, cfg.NATS.Timeout)
		if err != nil {
			return err
		}
		defer nc.Close()
		if js, err = natsclient.NewJetStreamContext(nc); err != nil {
			return err
		}
		if err := natsclient.EnsureStream(ctx, js, cfg.Subscriber.Stream, messaging.ProductsUpdatedSubject); err != nil {
			return err
		}
		publisher = natsclient.NewNatsPublisher(js)
		logger.Info("Connected to NATS", slog.String("url", cfg.NATS.Url))
	}

	var verifier auth.Verifier
	if cfg.IdP.Enabled {
		startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		jwtVerifier, err := auth.NewJWTVerifier(startupCtx, cfg.IdP)
		if err != nil {
			return fmt.Errorf("failed to create JWT verifier: %w", err)
		}
		verifier = jwtVerifier
	}

	deps, err := app.SetupDependencies(cfg, publisher, verifier, logger)
	if err != nil {
		return fmt.Errorf("failed to set up application: %w", err)
	}
	// warm the catalog so the first page is served from memory
	g.Go(func() error {
		if _, err := deps.ProductService.Snapshot(gCtx); err != nil {
			logger.Warn("initial catalog load failed", slog.Any("error", err))
		}
		return nil
	})

	if cfg.Subscriber.Enabled {
		// every replica needs its own durable to see all updates
		subCfg := cfg.Subscriber
		subCfg.Consumer = subCfg.DurableFor(cfg.Instance.ID)
		subscriber := events.NewSubscriber(deps.ProductService, cfg.Instance.ID, subCfg, logger)
		g.Go(func() error {
			logger.Info("Events subscriber started", slog.String("consumer", subCfg.Consumer))
			if err := subscriber.Start(gCtx, js); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("events subscriber failed: %w", err)
			}
			return nil
		})
	}

	httpServer := app.SetupHttpServer(deps, cfg, serviceName)
	g.Go(func() error {
		logger.Info("HTTP server started", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown the HTTP server
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.GRPC.Enabled {
		grpcServer := app.SetupGrpcServer(deps, cfg.GRPC.ReflectionEnabled)
		lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port %s: %w", cfg.GRPC.Port, err)
		}
		g.Go(func() error {
			logger.Info("gRPC server started", slog.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		})
		// gracefully shutdown the gRPC server
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down gRPC server...")
			deps.Health.Shutdown()

			stopped := make(chan struct{})
			go func() {
				grpcServer.GracefulStop()
				close(stopped)
			}()

			select {
			case <-stopped:
				return nil
			case <-time.After(cfg.Shutdown.Timeout):
				grpcServer.Stop()
				return fmt.Errorf("gRPC server did not stop within %s", cfg.Shutdown.Timeout)
			}
		})
	}

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		pprofServer := &http.Server{
			Addr: cfg.PProf.Addr,
		}
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}
