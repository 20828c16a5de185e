package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// money goes over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	CategoryCounter = "category_counter"
	ProductCounter  = "product_counter"
	InvoiceCounter  = "invoice_counter"
)

// CounterNames lists every counter in allocation order.
var CounterNames = []string{CategoryCounter, ProductCounter, InvoiceCounter}

// IsCounterName reports whether name is one of the known counters.
func IsCounterName(name string) bool {
	return slices.Contains(CounterNames, name)
}

// Record is implemented by every stored entity: it exposes its integer id and
// returns a copy of itself carrying a new one.
type Record[T any] interface {
	Identity() int64
	WithID(id int64) T
}

// Patch merges provided fields into a record, leaving the rest untouched.
type Patch[T any] interface {
	Apply(T) T
}

// Date is a calendar date encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", raw, err)
	}
	d.Time = t
	return nil
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (c Category) Identity() int64 { return c.ID }

func (c Category) WithID(id int64) Category {
	c.ID = id
	return c
}

type CategoryPatch struct {
	Name *string `json:"name,omitempty"`
}

func (p CategoryPatch) Apply(c Category) Category {
	if p.Name != nil {
		c.Name = *p.Name
	}
	return c
}

type Product struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	CategoryID     int64           `json:"categoryId"`
	Note           string          `json:"note"`
	ExpirationDate *Date           `json:"expirationDate,omitempty"`
	CostPrice      decimal.Decimal `json:"costPrice"`
	SalePrice      decimal.Decimal `json:"salePrice"`
	StockQuantity  int64           `json:"stockQuantity"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func (p Product) Identity() int64 { return p.ID }

func (p Product) WithID(id int64) Product {
	p.ID = id
	return p
}

type ProductPatch struct {
	Name           *string          `json:"name,omitempty"`
	CategoryID     *int64           `json:"categoryId,omitempty"`
	Note           *string          `json:"note,omitempty"`
	ExpirationDate *Date            `json:"expirationDate,omitempty"`
	CostPrice      *decimal.Decimal `json:"costPrice,omitempty"`
	SalePrice      *decimal.Decimal `json:"salePrice,omitempty"`
	StockQuantity  *int64           `json:"stockQuantity,omitempty"`
}

func (p ProductPatch) Apply(prod Product) Product {
	if p.Name != nil {
		prod.Name = *p.Name
	}
	if p.CategoryID != nil {
		prod.CategoryID = *p.CategoryID
	}
	if p.Note != nil {
		prod.Note = *p.Note
	}
	if p.ExpirationDate != nil {
		d := *p.ExpirationDate
		prod.ExpirationDate = &d
	}
	if p.CostPrice != nil {
		prod.CostPrice = *p.CostPrice
	}
	if p.SalePrice != nil {
		prod.SalePrice = *p.SalePrice
	}
	if p.StockQuantity != nil {
		prod.StockQuantity = *p.StockQuantity
	}
	return prod
}

// InvoiceItem keeps the product name and unit price as they were at the time of sale.
type InvoiceItem struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	SubTotal    decimal.Decimal `json:"subTotal"`
}

type Invoice struct {
	ID                int64           `json:"id"`
	OrderDate         time.Time       `json:"orderDate"`
	CustomerName      string          `json:"customerName"`
	CustomerPhone     string          `json:"customerPhone"`
	CustomerAddress   string          `json:"customerAddress"`
	ShipFee           decimal.Decimal `json:"shipFee"`
	DiscountOrDeposit decimal.Decimal `json:"discountOrDeposit"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	Items             []InvoiceItem   `json:"items"`
	Note              string          `json:"note,omitempty"`
}

func (i Invoice) Identity() int64 { return i.ID }

func (i Invoice) WithID(id int64) Invoice {
	i.ID = id
	return i
}

// InvoicePatch leaves Items untouched when it is nil.
type InvoicePatch struct {
	OrderDate         *time.Time       `json:"orderDate,omitempty"`
	CustomerName      *string          `json:"customerName,omitempty"`
	CustomerPhone     *string          `json:"customerPhone,omitempty"`
	CustomerAddress   *string          `json:"customerAddress,omitempty"`
	ShipFee           *decimal.Decimal `json:"shipFee,omitempty"`
	DiscountOrDeposit *decimal.Decimal `json:"discountOrDeposit,omitempty"`
	TotalAmount       *decimal.Decimal `json:"totalAmount,omitempty"`
	Items             []InvoiceItem    `json:"items,omitempty"`
	Note              *string          `json:"note,omitempty"`
}

func (p InvoicePatch) Apply(inv Invoice) Invoice {
	if p.OrderDate != nil {
		inv.OrderDate = *p.OrderDate
	}
	if p.CustomerName != nil {
		inv.CustomerName = *p.CustomerName
	}
	if p.CustomerPhone != nil {
		inv.CustomerPhone = *p.CustomerPhone
	}
	if p.CustomerAddress != nil {
		inv.CustomerAddress = *p.CustomerAddress
	}
	if p.ShipFee != nil {
		inv.ShipFee = *p.ShipFee
	}
	if p.DiscountOrDeposit != nil {
		inv.DiscountOrDeposit = *p.DiscountOrDeposit
	}
	if p.TotalAmount != nil {
		inv.TotalAmount = *p.TotalAmount
	}
	if p.Items != nil {
		inv.Items = slices.Clone(p.Items)
	}
	if p.Note != nil {
		inv.Note = *p.Note
	}
	return inv
}
