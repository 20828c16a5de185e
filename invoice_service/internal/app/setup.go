// Package app contains the application setup for the InvoiceService.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/stockbook/invoice_service/internal/config"
	invErrors "github.com/abgdnv/stockbook/invoice_service/internal/errors"
	"github.com/abgdnv/stockbook/invoice_service/internal/service"
	"github.com/abgdnv/stockbook/invoice_service/internal/store"
	grpcImpl "github.com/abgdnv/stockbook/invoice_service/internal/transport/grpc"
	"github.com/abgdnv/stockbook/invoice_service/internal/transport/rest"
	"github.com/abgdnv/stockbook/pkg/auth"
	"github.com/abgdnv/stockbook/pkg/bootstrap"
	"github.com/abgdnv/stockbook/pkg/messaging"
	natsclient "github.com/abgdnv/stockbook/pkg/nats"
	"github.com/abgdnv/stockbook/pkg/server"
	"github.com/abgdnv/stockbook/pkg/telemetry"
	"github.com/abgdnv/stockbook/pkg/web"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
)

const ServiceName = "invoice-service"

type Dependencies struct {
	Store     store.Store
	Publisher messaging.Publisher
	Services  rest.Services
	Health    *grpcImpl.HealthReporter
	// Verifier is nil when auth is disabled.
	Verifier auth.Verifier
	// Metrics is nil when the service runs without a /metrics endpoint.
	Metrics *telemetry.Metrics
	Checks  []ReadinessCheck
	Logger  *slog.Logger

	closers []func(context.Context) error
}

// NewDependencies builds the services on top of an already opened store.
func NewDependencies(st store.Store, publisher messaging.Publisher, cfg *config.Config, logger *slog.Logger) *Dependencies {
	ledger := service.NewStockLedger(st, logger)
	categories := service.NewCategoryService(st, logger)
	products := service.NewProductService(st, ledger, logger)
	invoices := service.NewInvoiceService(st, ledger, publisher, logger)

	return &Dependencies{
		Store:     st,
		Publisher: publisher,
		Services: rest.Services{
			Categories: categories,
			Products:   products,
			Invoices:   invoices,
			Dashboard:  service.NewDashboardService(st, invoices, logger),
			Counters:   service.NewCounterService(st, logger),
			Backup:     service.NewBackupService(st, categories, products, invoices, logger),
		},
		Health: grpcImpl.NewHealthReporter(st, cfg.GRPC.HealthInterval, logger),
		Checks: []ReadinessCheck{{Name: "store", Check: st.Ping}},
		Logger: logger,
	}
}

// SetupDependencies opens the configured store and event publisher and builds the services.
// Close releases everything that was opened, also when an error is returned midway.
func SetupDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (deps *Dependencies, err error) {
	var closers []func(context.Context) error
	defer func() {
		if err != nil {
			closeAll(context.Background(), closers, logger)
		}
	}()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, st.Close)

	publisher := messaging.Publisher(messaging.NopPublisher{})
	var natsCheck *ReadinessCheck
	if cfg.Events.Enabled {
		nc, err := natsclient.NewClient(cfg.Nats.Url, cfg.Nats.Name, cfg.Nats.Timeout)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func(context.Context) error { return nc.Drain() })
		js, err := natsclient.NewJetStreamContext(nc)
		if err != nil {
			return nil, err
		}
		if _, err = natsclient.EnsureStream(ctx, js, cfg.Events.Stream, messaging.InvoicesSubjectWildcard); err != nil {
			return nil, err
		}
		publisher = natsclient.NewNatsPublisher(js)
		natsCheck = &ReadinessCheck{Name: "nats", Check: func(context.Context) error {
			if !nc.IsConnected() {
				return fmt.Errorf("nats connection status %s", nc.Status())
			}
			return nil
		}}
		logger.Info("Publishing invoice events", "stream", cfg.Events.Stream)
	}

	metrics, err := telemetry.NewMetrics(ServiceName)
	if err != nil {
		return nil, err
	}
	closers = append(closers, metrics.Shutdown)

	deps = NewDependencies(st, publisher, cfg, logger)
	deps.Metrics = metrics
	if natsCheck != nil {
		deps.Checks = append(deps.Checks, *natsCheck)
	}

	if cfg.Auth.Enabled {
		verifier, err := auth.NewJWTVerifier(ctx, cfg.Auth.IdP)
		if err != nil {
			return nil, fmt.Errorf("failed to create JWT verifier: %w", err)
		}
		deps.Verifier = verifier
	}

	deps.closers = closers
	return deps, nil
}

// openStore connects to the configured backend and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if cfg.Database.AutoMigrate {
			if err := store.Migrate(cfg.Database.URL); err != nil {
				return nil, err
			}
			logger.Info("Database migrations applied")
		}
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, err
		}
		logger.Info("Successfully connected to the database!")
		return store.NewPgStore(dbPool), nil
	case config.DriverMongo:
		client, err := bootstrap.NewMongoClient(ctx, cfg.Mongo.URI, cfg.Mongo.Timeout)
		if err != nil {
			return nil, err
		}
		st := store.NewMongoStore(client, cfg.Mongo.Database, cfg.Mongo.Transactions)
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = st.Close(context.Background())
			return nil, err
		}
		logger.Info("Successfully connected to mongo!", "database", cfg.Mongo.Database)
		return st, nil
	case config.DriverMemory:
		logger.Warn("Using the in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %s", invErrors.ErrUnsupportedDriver, cfg.Store.Driver)
	}
}

// Close releases the store, the NATS connection and the meter provider in reverse order of creation.
func (d *Dependencies) Close(ctx context.Context) error {
	return closeAll(ctx, d.closers, d.Logger)
}

func closeAll(ctx context.Context, closers []func(context.Context) error, logger *slog.Logger) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			logger.Error("Failed to release resource", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetupHttpHandler initializes the router and routes for the InvoiceService application.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := server.NewChiRouter(deps.Logger, otelhttp.NewMiddleware(ServiceName))
	wireRoutes(mux, deps, cfg)
	return mux
}

// wireRoutes sets up the HTTP routes for the InvoiceService application.
func wireRoutes(mux *chi.Mux, deps *Dependencies, cfg *config.Config) {
	var middlewares []func(http.Handler) http.Handler
	if deps.Verifier != nil {
		middlewares = append(middlewares, web.BearerAuth(deps.Verifier, deps.Logger))
	}
	handler := rest.NewHandler(deps.Services, deps.Logger)
	handler.RegisterRoutes(mux, middlewares...)

	mux.Get("/readyz", Ready(deps.Checks, cfg.Health.ReadyTimeout, deps.Logger))
	if deps.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
}

// SetupHttpServer creates and configures an HTTP server for the InvoiceService application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, SetupHttpHandler(deps, cfg))
}

// SetupGrpcServer initializes the gRPC server for the InvoiceService application.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	return server.NewGRPCServer(deps.Logger, reflectionEnabled, deps.Health.Register)
}
