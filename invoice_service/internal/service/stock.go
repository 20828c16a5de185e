package service

import (
	"context"
	"errors"
	"log/slog"

	ierrors "github.com/abgdnv/stockbook/invoice_service/internal/errors"
	"github.com/abgdnv/stockbook/invoice_service/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StockLedger owns product stock adjustments. Stock is never clamped at zero.
type StockLedger struct {
	st      store.Store
	logger  *slog.Logger
	metrics instruments
}

func NewStockLedger(st store.Store, logger *slog.Logger) *StockLedger {
	return &StockLedger{
		st:      st,
		logger:  logger.With("component", "stock"),
		metrics: newInstruments(),
	}
}

// Adjust adds delta to the product's stock. An unknown product yields (nil, nil).
func (l *StockLedger) Adjust(ctx context.Context, productID, delta int64) (*store.Product, error) {
	return l.adjust(ctx, l.st, productID, delta)
}

func (l *StockLedger) adjust(ctx context.Context, repos store.Repos, productID, delta int64) (*store.Product, error) {
	p, err := repos.Products().AdjustStock(ctx, productID, delta)
	if err != nil {
		if errors.Is(err, ierrors.ErrNotFound) {
			l.logger.WarnContext(ctx, "Stock adjustment skipped for unknown product", "product_id", productID, "delta", delta)
			return nil, nil
		}
		return nil, err
	}
	l.metrics.stockAdjustments.Add(ctx, 1, metric.WithAttributes(attribute.Bool("restock", delta > 0)))
	l.logger.DebugContext(ctx, "Stock adjusted", "product_id", productID, "delta", delta, "stock", p.StockQuantity)
	return p, nil
}
