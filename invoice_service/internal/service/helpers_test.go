package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/stockbook/invoice_service/internal/store"
	"github.com/abgdnv/stockbook/pkg/messaging"
	"github.com/abgdnv/stockbook/pkg/messaging/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var errStorage = errors.New("storage unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

// recordingPublisher keeps every published event and optionally fails.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.InvoiceEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := event.(events.InvoiceEvent); ok {
		p.events = append(p.events, e)
	}
	return p.err
}

func (p *recordingPublisher) published() []events.InvoiceEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.InvoiceEvent(nil), p.events...)
}

type testEnv struct {
	store      store.Store
	publisher  *recordingPublisher
	counters   *CounterService
	ledger     *StockLedger
	categories *CategoryService
	products   *ProductService
	invoices   *InvoiceService
	dashboard  *DashboardService
	backup     *BackupService
}

func newTestEnv(t *testing.T, st store.Store) *testEnv {
	t.Helper()
	logger := discardLogger()
	publisher := &recordingPublisher{}
	ledger := NewStockLedger(st, logger)
	categories := NewCategoryService(st, logger)
	products := NewProductService(st, ledger, logger)
	invoices := NewInvoiceService(st, ledger, publisher, logger)
	return &testEnv{
		store:      st,
		publisher:  publisher,
		counters:   NewCounterService(st, logger),
		ledger:     ledger,
		categories: categories,
		products:   products,
		invoices:   invoices,
		dashboard:  NewDashboardService(st, invoices, logger),
		backup:     NewBackupService(st, categories, products, invoices, logger),
	}
}

func (e *testEnv) mustProduct(t *testing.T, name string, stock int64) *store.Product {
	t.Helper()
	p, err := e.products.Create(context.Background(), ProductCreateDto{
		Name:          name,
		CategoryID:    1,
		CostPrice:     money("5000"),
		SalePrice:     money("8000"),
		StockQuantity: stock,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) stockOf(t *testing.T, id int64) int64 {
	t.Helper()
	p := e.products.GetByID(context.Background(), id)
	require.NotNil(t, p)
	return p.StockQuantity
}

func invoiceDto(orderDate time.Time, total string, items ...InvoiceItemDto) InvoiceCreateDto {
	dto := InvoiceCreateDto{
		OrderDate:       &orderDate,
		CustomerName:    "A",
		CustomerPhone:   "0900000000",
		CustomerAddress: "1 Main St",
		ShipFee:         money("2000"),
		Items:           items,
	}
	if total != "" {
		dto.TotalAmount = ptr(money(total))
	}
	return dto
}

func line(productID int64, name string, qty int64, price string) InvoiceItemDto {
	return InvoiceItemDto{ProductID: productID, ProductName: name, Quantity: qty, UnitPrice: money(price)}
}

// failingRepo fails every call.
type failingRepo[T any, P any] struct{}

func (failingRepo[T, P]) FindAll(context.Context) ([]T, error) { return nil, errStorage }
func (failingRepo[T, P]) FindByID(context.Context, int64) (*T, error) { return nil, errStorage }
func (failingRepo[T, P]) Insert(context.Context, T) (*T, error) { return nil, errStorage }
func (failingRepo[T, P]) Update(context.Context, int64, P) (*T, error) { return nil, errStorage }
func (failingRepo[T, P]) Delete(context.Context, int64) (bool, error) { return false, errStorage }
func (failingRepo[T, P]) Count(context.Context) (int64, error) { return 0, errStorage }

type failingProducts struct {
	failingRepo[store.Product, store.ProductPatch]
}

func (failingProducts) AdjustStock(context.Context, int64, int64) (*store.Product, error) {
	return nil, errStorage
}

type failingInvoices struct {
	failingRepo[store.Invoice, store.InvoicePatch]
}

func (failingInvoices) TotalRevenue(context.Context) (decimal.Decimal, error) {
	return decimal.Zero, errStorage
}

func (failingInvoices) FindByOrderDate(context.Context, time.Time, time.Time) ([]store.Invoice, error) {
	return nil, errStorage
}

type failingCounters struct{}

func (failingCounters) Next(context.Context, string) (int64, error) { return 0, errStorage }
func (failingCounters) Set(context.Context, string, int64) error { return errStorage }
func (failingCounters) Get(context.Context, string) (int64, error) { return 0, errStorage }
func (failingCounters) All(context.Context) (map[string]int64, error) { return nil, errStorage }

// failingStore is a store whose backend is unreachable.
type failingStore struct{}

func (failingStore) Categories() store.CategoryRepository {
	return failingRepo[store.Category, store.CategoryPatch]{}
}
func (failingStore) Products() store.ProductRepository { return failingProducts{} }
func (failingStore) Invoices() store.InvoiceRepository { return failingInvoices{} }
func (failingStore) Counters() store.CounterRepository { return failingCounters{} }

func (failingStore) WithTx(context.Context, func(context.Context, store.Repos) error) error {
	return errStorage
}
func (failingStore) Ping(context.Context) error { return errStorage }
func (failingStore) Close(context.Context) error { return nil }

// faultyStore wraps a memory store and fails stock adjustments of one product inside transactions.
type faultyStore struct {
	*store.MemoryStore
	failProduct int64
}

func (f *faultyStore) WithTx(ctx context.Context, fn func(ctx context.Context, repos store.Repos) error) error {
	return f.MemoryStore.WithTx(ctx, func(ctx context.Context, repos store.Repos) error {
		return fn(ctx, faultyRepos{Repos: repos, failProduct: f.failProduct})
	})
}

type faultyRepos struct {
	store.Repos
	failProduct int64
}

func (r faultyRepos) Products() store.ProductRepository {
	return faultyProducts{ProductRepository: r.Repos.Products(), failProduct: r.failProduct}
}

type faultyProducts struct {
	store.ProductRepository
	failProduct int64
}

func (p faultyProducts) AdjustStock(ctx context.Context, id, delta int64) (*store.Product, error) {
	if id == p.failProduct {
		return nil, errStorage
	}
	return p.ProductRepository.AdjustStock(ctx, id, delta)
}
