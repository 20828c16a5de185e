package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/abgdnv/stockbook/pkg/messaging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceEvent_Subject(t *testing.T) {
	testCases := []struct {
		action InvoiceAction
		want   string
	}{
		{action: InvoiceCreated, want: messaging.InvoicesCreatedSubject},
		{action: InvoiceUpdated, want: messaging.InvoicesUpdatedSubject},
		{action: InvoiceDeleted, want: messaging.InvoicesDeletedSubject},
		{action: "", want: messaging.InvoicesCreatedSubject},
	}
	for _, tc := range testCases {
		t.Run(string(tc.action), func(t *testing.T) {
			assert.Equal(t, tc.want, InvoiceEvent{Action: tc.action}.Subject())
		})
	}
}

func TestInvoiceEvent_Payload(t *testing.T) {
	// given
	event := InvoiceEvent{
		Action:      InvoiceCreated,
		InvoiceID:   7,
		TotalAmount: decimal.RequireFromString("125.50"),
		OrderDate:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Stock:       []StockLevel{{ProductID: 1, ProductName: "Rice", StockQuantity: -2}},
		Carrier:     map[string]string{"traceparent": "00-abc-def-01"},
	}

	// when
	data, err := event.Payload()

	// then
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "created", raw["action"])
	assert.Equal(t, float64(7), raw["invoiceId"])
	assert.Equal(t, "125.5", raw["totalAmount"])
	assert.Len(t, raw["stock"], 1)
}

func TestInvoiceEvent_MessageID(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	created := InvoiceEvent{Action: InvoiceCreated, InvoiceID: 7, OccurredAt: at}
	deleted := InvoiceEvent{Action: InvoiceDeleted, InvoiceID: 7, OccurredAt: at}

	assert.Equal(t, created.MessageID(), created.MessageID())
	assert.NotEqual(t, created.MessageID(), deleted.MessageID())
	assert.Implements(t, (*messaging.Identified)(nil), created)
}
