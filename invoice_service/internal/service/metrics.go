package service

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "invoice-service"

type instruments struct {
	invoicesCreated  metric.Int64Counter
	invoicesDeleted  metric.Int64Counter
	stockAdjustments metric.Int64Counter
}

func mustCounter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		panic(fmt.Sprintf("failed to create %s counter: %v", name, err))
	}
	return counter
}

// newInstruments registers the service counters on the global meter provider.
func newInstruments() instruments {
	meter := otel.Meter(meterName)
	return instruments{
		invoicesCreated:  mustCounter(meter, "invoices_created", "Total number of created invoices"),
		invoicesDeleted:  mustCounter(meter, "invoices_deleted", "Total number of deleted invoices"),
		stockAdjustments: mustCounter(meter, "stock_adjustments", "Total number of applied stock adjustments"),
	}
}
