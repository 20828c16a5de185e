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

	"github.com/abgdnv/stockbook/notification_service/internal/config"
	"github.com/abgdnv/stockbook/notification_service/internal/probes"
	"github.com/abgdnv/stockbook/notification_service/internal/subscriber"
	"github.com/abgdnv/stockbook/notification_service/internal/upstream"
	"github.com/abgdnv/stockbook/pkg/bootstrap"
	grpcclient "github.com/abgdnv/stockbook/pkg/client/grpc"
	"github.com/abgdnv/stockbook/pkg/config/configloader"
	"github.com/abgdnv/stockbook/pkg/nats"
	"github.com/abgdnv/stockbook/pkg/server"
	"github.com/abgdnv/stockbook/pkg/telemetry"
	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const serviceName = "notification"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run waits for the invoice service, starts the NATS subscriber and optionally the pprof server.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)
	telemetry.SetPropagator()

	natsConn, err := nats.NewClient(cfg.Nats.Url, cfg.Nats.Name, cfg.Nats.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create NATS connection: %w", err)
	}
	defer func() {
		if err := natsConn.Drain(); err != nil {
			logger.Error("failed to drain NATS connection", "error", err)
		}
	}()
	js, err := nats.NewJetStreamContext(natsConn)
	if err != nil {
		return fmt.Errorf("failed to get JetStream context: %w", err)
	}

	invoiceConn, err := grpcclient.NewClient(cfg.InvoiceService, cfg.Resilience, logger)
	if err != nil {
		return err
	}
	defer func() { _ = invoiceConn.Close() }()
	invoiceHealth := upstream.NewHealthChecker(healthpb.NewHealthClient(invoiceConn), cfg.InvoiceService.Service, logger)

	probe := probes.New(cfg.ProbesConfig, logger)
	notifier := subscriber.NewNotifier(cfg.Alerts.LowStockThreshold, logger)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return probe.RunLiveness(gCtx)
	})

	g.Go(func() error {
		if err := invoiceHealth.WaitReady(gCtx, cfg.Subscriber.Interval); err != nil {
			return err
		}
		if err := probe.MarkReady(); err != nil {
			return err
		}
		logger.Info("NATS subscriber started")
		err := subscriber.Start(gCtx, js, cfg.Subscriber, notifier, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("subscriber failed", "error", err)
			return err
		}
		logger.Info("subscriber stopped gracefully.")
		return nil
	})

	if cfg.PProf.Enabled {
		server.ServeHTTP(gCtx, g, "pprof", &http.Server{Addr: cfg.PProf.Addr}, cfg.Shutdown.Timeout, logger)
	}

	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) {
			return fmt.Errorf("errgroup encountered an error: %w", err)
		}
	}

	return nil
}
