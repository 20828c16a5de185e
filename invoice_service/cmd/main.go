// Package main runs the invoice service: the REST API, the gRPC health server and the optional pprof server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "net/http/pprof"

	"github.com/abgdnv/stockbook/invoice_service/internal/app"
	"github.com/abgdnv/stockbook/invoice_service/internal/config"
	"github.com/abgdnv/stockbook/pkg/bootstrap"
	"github.com/abgdnv/stockbook/pkg/config/configloader"
	"github.com/abgdnv/stockbook/pkg/server"
	"github.com/abgdnv/stockbook/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

const serviceName = "invoice"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, opens the store and starts the HTTP, gRPC and pprof servers.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if cfg.Telemetry.Traces.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, app.ServiceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()
	} else {
		telemetry.SetPropagator()
	}

	deps, err := app.SetupDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up dependencies: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		_ = deps.Close(closeCtx)
	}()

	g, gCtx := errgroup.WithContext(ctx)

	// keep the gRPC health status in sync with the store
	g.Go(func() error {
		return deps.Health.Run(gCtx)
	})
	server.ServeHTTP(gCtx, g, "http", app.SetupHttpServer(deps, cfg), cfg.Shutdown.Timeout, logger)
	server.ServeGRPC(gCtx, g, ":"+cfg.GRPC.Port, app.SetupGrpcServer(deps, cfg.GRPC.ReflectionEnabled), cfg.Shutdown.Timeout, logger)
	if cfg.PProf.Enabled {
		server.ServeHTTP(gCtx, g, "pprof", &http.Server{Addr: cfg.PProf.Addr}, cfg.Shutdown.Timeout, logger)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}
