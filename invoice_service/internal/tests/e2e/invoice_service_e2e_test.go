// Package e2e runs the invoice service HTTP API against real PostgreSQL and NATS containers.
//
// The suite starts both containers once, wires the application exactly as main does
// (automatic migrations, JetStream stream creation) and serves it from an httptest.Server.
// Every test starts from empty tables and a purged event stream.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/abgdnv/stockbook/invoice_service/internal/app"
	"github.com/abgdnv/stockbook/invoice_service/internal/config"
	"github.com/abgdnv/stockbook/invoice_service/internal/service"
	"github.com/abgdnv/stockbook/invoice_service/internal/store"
	pkgconfig "github.com/abgdnv/stockbook/pkg/config"
	"github.com/abgdnv/stockbook/pkg/messaging"
	"github.com/abgdnv/stockbook/pkg/messaging/events"
	pnats "github.com/abgdnv/stockbook/pkg/nats"
	"github.com/jackc/pgx/v5/pgxpool"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "INVOICE_SVC_SKIP_E2E_TESTS"

const apiURL = "/api/v1"

type InvoiceServiceE2ESuite struct {
	suite.Suite
	pgContainer   *postgres.PostgresContainer
	natsContainer *tcnats.NATSContainer
	dbPool        *pgxpool.Pool
	nc            *natsgo.Conn
	stream        jetstream.Stream
	deps          *app.Dependencies
	server        *httptest.Server
	httpClient    *http.Client
	logger        *slog.Logger
	ctx           context.Context
}

// testConfig mirrors a production config with the postgres driver and events enabled.
func testConfig(dbURL, natsURL string) *config.Config {
	var cfg config.Config

	cfg.HTTPServer.Port = 0
	cfg.HTTPServer.MaxHeaderBytes = 1 << 20
	cfg.HTTPServer.Timeout.Read = time.Minute
	cfg.HTTPServer.Timeout.Write = time.Minute
	cfg.HTTPServer.Timeout.Idle = time.Minute
	cfg.HTTPServer.Timeout.ReadHeader = time.Minute

	cfg.GRPC = pkgconfig.GrpcServerConfig{Port: "0", HealthInterval: time.Second}
	cfg.Store.Driver = config.DriverPostgres
	cfg.Database = pkgconfig.DatabaseConfig{URL: dbURL, Timeout: 10 * time.Second, AutoMigrate: true}
	cfg.Nats = pkgconfig.NATSConfig{Url: natsURL, Name: "invoice-e2e", Timeout: 5 * time.Second}
	cfg.Events = config.EventsConfig{Enabled: true, Stream: messaging.InvoicesStream}
	cfg.Shutdown.Timeout = 5 * time.Second
	cfg.Health.ReadyTimeout = 2 * time.Second

	return &cfg
}

func (s *InvoiceServiceE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("invoices"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")
	dbURL, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	s.natsContainer, err = tcnats.Run(s.ctx, "nats:2.11.6-alpine")
	require.NoError(s.T(), err, "Failed to run NATS container")
	natsURL, err := s.natsContainer.ConnectionString(s.ctx)
	require.NoError(s.T(), err)

	cfg := testConfig(dbURL, natsURL)
	s.deps, err = app.SetupDependencies(s.ctx, cfg, s.logger)
	require.NoError(s.T(), err, "Failed to setup application for E2E")

	s.dbPool, err = pgxpool.New(s.ctx, dbURL)
	require.NoError(s.T(), err)
	s.nc, err = pnats.NewClient(natsURL, "invoice-e2e-observer", 5*time.Second)
	require.NoError(s.T(), err)
	js, err := pnats.NewJetStreamContext(s.nc)
	require.NoError(s.T(), err)
	s.stream, err = js.Stream(s.ctx, messaging.InvoicesStream)
	require.NoError(s.T(), err, "stream must be created at startup")

	s.server = httptest.NewServer(app.SetupHttpHandler(s.deps, cfg))
	s.httpClient = s.server.Client()
	s.logger.Info("E2E test server started", "url", s.server.URL)
}

func (s *InvoiceServiceE2ESuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.deps != nil {
		_ = s.deps.Close(s.ctx)
	}
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.nc != nil {
		s.nc.Close()
	}
	if s.pgContainer != nil {
		if err := testcontainers.TerminateContainer(s.pgContainer); err != nil {
			s.logger.Warn("Failed to terminate PostgreSQL container", "error", err)
		}
	}
	if s.natsContainer != nil {
		if err := testcontainers.TerminateContainer(s.natsContainer); err != nil {
			s.logger.Warn("Failed to terminate NATS container", "error", err)
		}
	}
}

// SetupTest empties every table and the event stream.
func (s *InvoiceServiceE2ESuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE categories, products, invoices, counters")
	require.NoError(s.T(), err, "Failed to truncate tables")
	require.NoError(s.T(), s.stream.Purge(s.ctx), "Failed to purge stream")
}

func TestInvoiceServiceE2E(t *testing.T) {
	if os.Getenv(skipE2ETests) == "1" {
		t.Skip("Skipping E2E tests based on " + skipE2ETests + " env var")
	}
	suite.Run(t, new(InvoiceServiceE2ESuite))
}

// doRequest sends payload as JSON and returns the response body and status code.
func (s *InvoiceServiceE2ESuite) doRequest(method, path string, payload any) ([]byte, int) {
	s.T().Helper()
	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		require.NoError(s.T(), err)
		body = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, body)
	require.NoError(s.T(), err, "Failed to create HTTP request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err, "HTTP request failed")
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err, "Failed to read response body")
	return bodyBytes, resp.StatusCode
}

func decodeAs[T any](s *InvoiceServiceE2ESuite, body []byte) T {
	s.T().Helper()
	var v T
	require.NoError(s.T(), json.Unmarshal(body, &v), string(body))
	return v
}

// seedCatalog creates one category and the Cola product with 10 units in stock.
func (s *InvoiceServiceE2ESuite) seedCatalog() store.Product {
	s.T().Helper()
	_, code := s.doRequest(http.MethodPost, apiURL+"/categories", map[string]any{"name": "Drinks"})
	require.Equal(s.T(), http.StatusCreated, code)
	body, code := s.doRequest(http.MethodPost, apiURL+"/products", map[string]any{
		"name": "Cola", "categoryId": 1, "costPrice": 5000, "salePrice": 8000, "stockQuantity": 10,
	})
	require.Equal(s.T(), http.StatusCreated, code, string(body))
	return decodeAs[store.Product](s, body)
}

func invoicePayload(productID, quantity int64) map[string]any {
	return map[string]any{
		"orderDate":       "2025-03-14T10:30:00Z",
		"customerName":    "A",
		"customerPhone":   "0900",
		"customerAddress": "1 Main St",
		"shipFee":         2000,
		"items": []map[string]any{
			{"productId": productID, "productName": "Cola", "quantity": quantity, "unitPrice": 8000},
		},
	}
}

func (s *InvoiceServiceE2ESuite) stockOf(id int64) int64 {
	s.T().Helper()
	body, code := s.doRequest(http.MethodGet, apiURL+"/products/"+strconv.FormatInt(id, 10), nil)
	require.Equal(s.T(), http.StatusOK, code)
	return decodeAs[store.Product](s, body).StockQuantity
}

// lastEvent reads the newest message of the invoice stream.
func (s *InvoiceServiceE2ESuite) lastEvent(subject string) events.InvoiceEvent {
	s.T().Helper()
	var msg *jetstream.RawStreamMsg
	require.Eventually(s.T(), func() bool {
		var err error
		msg, err = s.stream.GetLastMsgForSubject(s.ctx, subject)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond, "no event on %s", subject)
	var event events.InvoiceEvent
	require.NoError(s.T(), json.Unmarshal(msg.Data, &event))
	return event
}

func (s *InvoiceServiceE2ESuite) TestInvoiceLifecycle_E2E() {
	// given
	product := s.seedCatalog()

	// when: create
	body, code := s.doRequest(http.MethodPost, apiURL+"/invoices", invoicePayload(product.ID, 3))

	// then
	require.Equal(s.T(), http.StatusCreated, code, string(body))
	inv := decodeAs[store.Invoice](s, body)
	assert.Equal(s.T(), int64(1), inv.ID)
	assert.Equal(s.T(), "26000", inv.TotalAmount.String())
	assert.Equal(s.T(), int64(7), s.stockOf(product.ID))

	created := s.lastEvent(messaging.InvoicesCreatedSubject)
	assert.Equal(s.T(), inv.ID, created.InvoiceID)
	require.Len(s.T(), created.Stock, 1)
	assert.Equal(s.T(), int64(7), created.Stock[0].StockQuantity)

	// when: update the quantity
	body, code = s.doRequest(http.MethodPatch, apiURL+"/invoices/1", map[string]any{
		"items": []map[string]any{{"productId": product.ID, "productName": "Cola", "quantity": 5, "unitPrice": 8000}},
	})

	// then
	require.Equal(s.T(), http.StatusOK, code, string(body))
	assert.Equal(s.T(), "42000", decodeAs[store.Invoice](s, body).TotalAmount.String())
	assert.Equal(s.T(), int64(5), s.stockOf(product.ID))
	assert.Equal(s.T(), int64(5), s.lastEvent(messaging.InvoicesUpdatedSubject).Stock[0].StockQuantity)

	// when: delete
	_, code = s.doRequest(http.MethodDelete, apiURL+"/invoices/1", nil)

	// then
	require.Equal(s.T(), http.StatusNoContent, code)
	assert.Equal(s.T(), int64(10), s.stockOf(product.ID))
	assert.Equal(s.T(), int64(10), s.lastEvent(messaging.InvoicesDeletedSubject).Stock[0].StockQuantity)
	_, code = s.doRequest(http.MethodGet, apiURL+"/invoices/1", nil)
	assert.Equal(s.T(), http.StatusNotFound, code)
}

func (s *InvoiceServiceE2ESuite) TestDashboard_E2E() {
	// given
	product := s.seedCatalog()
	for _, qty := range []int64{3, 4} {
		_, code := s.doRequest(http.MethodPost, apiURL+"/invoices", invoicePayload(product.ID, qty))
		require.Equal(s.T(), http.StatusCreated, code)
	}

	// when
	body, code := s.doRequest(http.MethodGet, apiURL+"/dashboard/stats", nil)

	// then
	require.Equal(s.T(), http.StatusOK, code)
	stats := decodeAs[service.Stats](s, body)
	assert.Equal(s.T(), int64(1), stats.TotalCategories)
	assert.Equal(s.T(), int64(1), stats.TotalProducts)
	assert.Equal(s.T(), int64(2), stats.TotalInvoices)
	assert.Equal(s.T(), "60000", stats.TotalRevenue.String())

	body, code = s.doRequest(http.MethodGet, apiURL+"/dashboard/low-stock?threshold=5", nil)
	require.Equal(s.T(), http.StatusOK, code)
	low := decodeAs[[]store.Product](s, body)
	require.Len(s.T(), low, 1)
	assert.Equal(s.T(), int64(3), low[0].StockQuantity)
}

func (s *InvoiceServiceE2ESuite) TestCounters_E2E() {
	testCases := []struct {
		name         string
		method       string
		path         string
		payload      any
		expectedCode int
	}{
		{name: "set invoice counter", method: http.MethodPut, path: "/counters/invoice_counter", payload: map[string]any{"nextValue": 100}, expectedCode: http.StatusOK},
		{name: "unknown counter", method: http.MethodPut, path: "/counters/bogus", payload: map[string]any{"nextValue": 5}, expectedCode: http.StatusBadRequest},
		{name: "invalid value", method: http.MethodPut, path: "/counters/invoice_counter", payload: map[string]any{"nextValue": 0}, expectedCode: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			// when
			body, code := s.doRequest(tc.method, apiURL+tc.path, tc.payload)

			// then
			assert.Equal(s.T(), tc.expectedCode, code, string(body))
		})
	}

	// the next invoice takes the configured id
	product := s.seedCatalog()
	body, code := s.doRequest(http.MethodPost, apiURL+"/invoices", invoicePayload(product.ID, 1))
	require.Equal(s.T(), http.StatusCreated, code, string(body))
	assert.Equal(s.T(), int64(100), decodeAs[store.Invoice](s, body).ID)
}

func (s *InvoiceServiceE2ESuite) TestReadiness_E2E() {
	// when
	_, code := s.doRequest(http.MethodGet, "/readyz", nil)

	// then
	assert.Equal(s.T(), http.StatusOK, code)
}
