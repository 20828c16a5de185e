package subscriber

import (
	"context"
	"log/slog"

	"github.com/abgdnv/stockbook/pkg/messaging/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Notifier turns invoice events into stock alerts.
type Notifier struct {
	threshold int64
	logger    *slog.Logger
}

func NewNotifier(threshold int64, logger *slog.Logger) *Notifier {
	return &Notifier{threshold: threshold, logger: logger.With("component", "notifier")}
}

// Alert is one product whose stock needs attention after an invoice change.
type Alert struct {
	Level slog.Level
	Stock events.StockLevel
}

// Alerts returns an error level alert for every product with negative stock
// and a warning for every product at or below the threshold.
func (n *Notifier) Alerts(event events.InvoiceEvent) []Alert {
	var alerts []Alert
	for _, s := range event.Stock {
		switch {
		case s.StockQuantity < 0:
			alerts = append(alerts, Alert{Level: slog.LevelError, Stock: s})
		case s.StockQuantity <= n.threshold:
			alerts = append(alerts, Alert{Level: slog.LevelWarn, Stock: s})
		}
	}
	return alerts
}

// Notify logs the event and its alerts under the trace of the request that produced it.
func (n *Notifier) Notify(ctx context.Context, event events.InvoiceEvent) {
	if len(event.Carrier) > 0 {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(event.Carrier))
	}

	n.logger.InfoContext(ctx, "received invoice event",
		slog.String("action", string(event.Action)),
		slog.Int64("invoice_id", event.InvoiceID),
		slog.String("customer", event.CustomerName),
		slog.String("total", event.TotalAmount.String()),
		slog.Int("products", len(event.Stock)))

	for _, a := range n.Alerts(event) {
		msg := "product stock is low"
		if a.Level == slog.LevelError {
			msg = "product stock is negative"
		}
		n.logger.Log(ctx, a.Level, msg,
			slog.Int64("invoice_id", event.InvoiceID),
			slog.Int64("product_id", a.Stock.ProductID),
			slog.String("product", a.Stock.ProductName),
			slog.Int64("stock", a.Stock.StockQuantity),
			slog.Int64("threshold", n.threshold))
	}
}
