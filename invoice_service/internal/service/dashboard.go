package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/abgdnv/stockbook/invoice_service/internal/store"
	"github.com/shopspring/decimal"
)

type Stats struct {
	TotalCategories int64           `json:"totalCategories"`
	TotalProducts   int64           `json:"totalProducts"`
	TotalInvoices   int64           `json:"totalInvoices"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
}

type RevenuePoint struct {
	Date    store.Date      `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
}

// DashboardService aggregates read-only figures. Storage failures degrade to zero values.
type DashboardService struct {
	st       store.Store
	invoices *InvoiceService
	logger   *slog.Logger
}

func NewDashboardService(st store.Store, invoices *InvoiceService, logger *slog.Logger) *DashboardService {
	return &DashboardService{st: st, invoices: invoices, logger: logger.With("component", "dashboard")}
}

func (d *DashboardService) count(ctx context.Context, what string, fn func(context.Context) (int64, error)) int64 {
	n, err := fn(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to count records", "collection", what, "error", err)
		return 0
	}
	return n
}

func (d *DashboardService) Stats(ctx context.Context) Stats {
	return Stats{
		TotalCategories: d.count(ctx, "categories", d.st.Categories().Count),
		TotalProducts:   d.count(ctx, "products", d.st.Products().Count),
		TotalInvoices:   d.count(ctx, "invoices", d.st.Invoices().Count),
		TotalRevenue:    d.invoices.GetTotalRevenue(ctx),
	}
}

// DailyRevenue returns one point per UTC calendar day from 'from' to 'to' inclusive, zero filled.
func (d *DashboardService) DailyRevenue(ctx context.Context, from, to time.Time) []RevenuePoint {
	first, last := store.NewDate(from.UTC()), store.NewDate(to.UTC())
	if first.After(last.Time) {
		return []RevenuePoint{}
	}

	points := []RevenuePoint{}
	index := map[time.Time]int{}
	for day := first.Time; !day.After(last.Time); day = day.AddDate(0, 0, 1) {
		index[day] = len(points)
		points = append(points, RevenuePoint{Date: store.Date{Time: day}, Revenue: decimal.Zero})
	}

	invoices, err := d.st.Invoices().FindByOrderDate(ctx, first.Time, last.AddDate(0, 0, 1))
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to load invoices for revenue", "from", first, "to", last, "error", err)
		return points
	}
	for _, inv := range invoices {
		if i, ok := index[store.NewDate(inv.OrderDate.UTC()).Time]; ok {
			points[i].Revenue = points[i].Revenue.Add(inv.TotalAmount)
		}
	}
	return points
}

// LowStock lists products whose stock is at or below threshold, ordered by id.
func (d *DashboardService) LowStock(ctx context.Context, threshold int64) []store.Product {
	products, err := d.st.Products().FindAll(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to list products", "error", err)
		return []store.Product{}
	}
	low := []store.Product{}
	for _, p := range products {
		if p.StockQuantity <= threshold {
			low = append(low, p)
		}
	}
	return low
}
