package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/ericfitz/storefront/api"
	"github.com/ericfitz/storefront/internal/catalog"
	"github.com/ericfitz/storefront/internal/config"
	"github.com/ericfitz/storefront/internal/identity"
	"github.com/ericfitz/storefront/internal/slogging"
	"github.com/ericfitz/storefront/internal/telemetry"
)

func main() {
	configFile, generateConfig, err := config.ParseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if generateConfig {
		if err := config.GenerateExampleConfig(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := slogging.Initialize(cfg.LoggerConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := slogging.Get()
	defer func() { _ = logger.Close() }()

	if err := run(cfg); err != nil {
		logger.Error("Server stopped with error: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger := slogging.Get()

	tel, err := telemetry.NewService(&telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		MetricsEnabled: cfg.Telemetry.MetricsEnabled,
		ConsoleTracing: cfg.Telemetry.ConsoleTracing,
		TraceWriter:    os.Stderr,
		ResourceAttributes: map[string]string{
			"storefront.api_version": api.APIVersion,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	metrics, err := telemetry.NewValidationMetrics(tel.Meter())
	if err != nil {
		return fmt.Errorf("failed to create validation metrics: %w", err)
	}

	registry, err := catalog.NewRegistry()
	if err != nil {
		return fmt.Errorf("failed to build schema registry: %w", err)
	}
	logger.Info("Loaded %d request schemas", len(registry.Names()))

	opts := api.RouterOptions{
		Registry:       registry,
		Recorder:       metrics,
		Tracing:        tel.Middleware(),
		MetricsHandler: tel.MetricsHandler(),
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.WriteTimeout,
		TrustedProxies: cfg.Server.TrustedProxies,
	}

	if cfg.Auth.Enabled {
		creds, err := identity.NewService(identity.Config{
			Secret:     cfg.Auth.JWT.Secret,
			Issuer:     cfg.Auth.JWT.Issuer,
			AccessTTL:  cfg.GetAccessTTL(),
			RefreshTTL: cfg.GetRefreshTTL(),
			BcryptCost: cfg.Auth.BcryptCost,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize authentication: %w", err)
		}
		opts.Credentials = creds
		opts.AuthRequired = true
		logger.Info("Bearer authentication enabled issuer=%s", cfg.Auth.JWT.Issuer)
	} else {
		logger.Warn("Authentication disabled, /v1 routes are public")
	}

	if cfg.Logging.IsDev {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := api.NewRouter(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddress(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server on %s (version %s)", srv.Addr, api.GetVersionString())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
		}
		if err := tel.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server exited")
	return nil
}
