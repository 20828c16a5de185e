package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/abgdnv/stockbook/pkg/messaging"
	"github.com/shopspring/decimal"
)

// InvoiceAction names the lifecycle step an InvoiceEvent reports.
type InvoiceAction string

const (
	InvoiceCreated InvoiceAction = "created"
	InvoiceUpdated InvoiceAction = "updated"
	InvoiceDeleted InvoiceAction = "deleted"
)

// StockLevel is the stock quantity of a product after the invoice change was applied.
type StockLevel struct {
	ProductID     int64  `json:"productId"`
	ProductName   string `json:"productName"`
	StockQuantity int64  `json:"stockQuantity"`
}

type InvoiceEvent struct {
	Action       InvoiceAction     `json:"action"`
	InvoiceID    int64             `json:"invoiceId"`
	CustomerName string            `json:"customerName"`
	TotalAmount  decimal.Decimal   `json:"totalAmount"`
	OrderDate    time.Time         `json:"orderDate"`
	Stock        []StockLevel      `json:"stock"`
	OccurredAt   time.Time         `json:"occurredAt"`
	Carrier      map[string]string `json:"carrier,omitempty"`
}

func (e InvoiceEvent) Subject() string {
	switch e.Action {
	case InvoiceUpdated:
		return messaging.InvoicesUpdatedSubject
	case InvoiceDeleted:
		return messaging.InvoicesDeletedSubject
	default:
		return messaging.InvoicesCreatedSubject
	}
}

// MessageID is unique per invoice, action and occurrence.
func (e InvoiceEvent) MessageID() string {
	return fmt.Sprintf("invoice-%d-%s-%d", e.InvoiceID, e.Action, e.OccurredAt.UnixNano())
}

func (e InvoiceEvent) Payload() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice event %d: %w", e.InvoiceID, err)
	}
	return data, nil
}
