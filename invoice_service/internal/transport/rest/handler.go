// Package rest provides the HTTP API of the invoice service.
package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/stockbook/invoice_service/internal/service"
	"github.com/abgdnv/stockbook/invoice_service/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CRUDService is the caller-facing surface of one collection: T is the record,
// C the create DTO and U the partial update DTO.
type CRUDService[T any, C any, U any] interface {
	GetAll(ctx context.Context) []T
	GetByID(ctx context.Context, id int64) *T
	Create(ctx context.Context, dto C) (*T, error)
	// Update returns (nil, nil) when the record does not exist.
	Update(ctx context.Context, id int64, dto U) (*T, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type CategoryService = CRUDService[store.Category, service.CategoryCreateDto, service.CategoryUpdateDto]

type ProductService interface {
	CRUDService[store.Product, service.ProductCreateDto, service.ProductUpdateDto]
	UpdateStock(ctx context.Context, id, delta int64) (*store.Product, error)
}

type InvoiceService = CRUDService[store.Invoice, service.InvoiceCreateDto, service.InvoiceUpdateDto]

type DashboardService interface {
	Stats(ctx context.Context) service.Stats
	DailyRevenue(ctx context.Context, from, to time.Time) []service.RevenuePoint
	LowStock(ctx context.Context, threshold int64) []store.Product
}

type CounterService interface {
	Counters(ctx context.Context) []service.CounterDto
	GetCounterValue(ctx context.Context, name string) int64
	SetCounter(ctx context.Context, name string, nextValue int64) error
	InitializeAll(ctx context.Context, start service.InitializeCountersDto) ([]service.CounterDto, error)
}

type BackupService interface {
	Export(ctx context.Context) service.Snapshot
	Import(ctx context.Context, snap service.Snapshot) service.ImportResult
}

// Services groups everything the API calls into.
type Services struct {
	Categories CategoryService
	Products   ProductService
	Invoices   InvoiceService
	Dashboard  DashboardService
	Counters   CounterService
	Backup     BackupService
}

type Handler struct {
	services   Services
	validate   *validator.Validate
	logger     *slog.Logger
	categories *collection[store.Category, service.CategoryCreateDto, service.CategoryUpdateDto]
	products   *collection[store.Product, service.ProductCreateDto, service.ProductUpdateDto]
	invoices   *collection[store.Invoice, service.InvoiceCreateDto, service.InvoiceUpdateDto]
}

// NewHandler creates a new instance of the invoice API with the provided services.
func NewHandler(services Services, logger *slog.Logger) *Handler {
	h := &Handler{
		services: services,
		validate: service.NewValidator(),
		logger:   logger.With("component", "rest"),
	}
	h.categories = newCollection[store.Category, service.CategoryCreateDto, service.CategoryUpdateDto](h, "category", services.Categories)
	h.products = newCollection[store.Product, service.ProductCreateDto, service.ProductUpdateDto](h, "product", services.Products)
	h.invoices = newCollection[store.Invoice, service.InvoiceCreateDto, service.InvoiceUpdateDto](h, "invoice", services.Invoices)
	return h
}

// RegisterRoutes registers the API under /api/v1. Middlewares wrap the API routes only.
func (h *Handler) RegisterRoutes(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewares...)

		r.Route("/categories", h.categories.routes)
		r.Route("/products", func(r chi.Router) {
			h.products.routes(r)
			r.Patch("/{id}/stock", h.UpdateStock)
		})
		r.Route("/invoices", h.invoices.routes)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/stats", h.Stats)
			r.Get("/revenue", h.DailyRevenue)
			r.Get("/low-stock", h.LowStock)
		})

		r.Route("/counters", func(r chi.Router) {
			r.Get("/", h.Counters)
			r.Post("/initialize", h.InitializeCounters)
			r.Get("/{name}", h.GetCounter)
			r.Put("/{name}", h.SetCounter)
		})

		r.Route("/backup", func(r chi.Router) {
			r.Get("/", h.Export)
			r.Post("/", h.Import)
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// HealthCheck is a simple liveness endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}

// revenueResponse is the body of GET /dashboard/revenue.
type revenueResponse struct {
	From   store.Date             `json:"from"`
	To     store.Date             `json:"to"`
	Total  decimal.Decimal        `json:"total"`
	Points []service.RevenuePoint `json:"points"`
}
