package service

import (
	"reflect"
	"time"

	"github.com/abgdnv/stockbook/invoice_service/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// NewValidator returns a validator that understands decimal money fields and the
// cross-field rules of the product and invoice DTOs.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterStructValidation(productCreateRules, ProductCreateDto{})
	v.RegisterStructValidation(productUpdateRules, ProductUpdateDto{})
	return v
}

func productCreateRules(sl validator.StructLevel) {
	dto := sl.Current().Interface().(ProductCreateDto)
	if dto.SalePrice.LessThan(dto.CostPrice) {
		sl.ReportError(dto.SalePrice, "SalePrice", "SalePrice", "gtefield", "CostPrice")
	}
	if dto.ExpirationDate != nil && dto.ExpirationDate.Before(store.NewDate(time.Now()).Time) {
		sl.ReportError(dto.ExpirationDate, "ExpirationDate", "ExpirationDate", "notpast", "")
	}
}

func productUpdateRules(sl validator.StructLevel) {
	dto := sl.Current().Interface().(ProductUpdateDto)
	if dto.SalePrice != nil && dto.CostPrice != nil && dto.SalePrice.LessThan(*dto.CostPrice) {
		sl.ReportError(dto.SalePrice, "SalePrice", "SalePrice", "gtefield", "CostPrice")
	}
}

type CategoryCreateDto struct {
	Name string `json:"name" validate:"required"`
}

type CategoryUpdateDto struct {
	Name *string `json:"name" validate:"omitempty,min=1"`
}

func (d CategoryCreateDto) toModel() store.Category {
	return store.Category{Name: d.Name}
}

func (d CategoryUpdateDto) toPatch() store.CategoryPatch {
	return store.CategoryPatch{Name: d.Name}
}

type ProductCreateDto struct {
	Name           string          `json:"name"           validate:"required"`
	CategoryID     int64           `json:"categoryId"     validate:"min=1"`
	Note           string          `json:"note"`
	ExpirationDate *store.Date     `json:"expirationDate"`
	CostPrice      decimal.Decimal `json:"costPrice"      validate:"gte=0"`
	SalePrice      decimal.Decimal `json:"salePrice"      validate:"gte=0"`
	StockQuantity  int64           `json:"stockQuantity"  validate:"min=0"`
}

// ProductUpdateDto carries the fields to merge into a product; nil fields are left untouched.
type ProductUpdateDto struct {
	Name           *string          `json:"name"           validate:"omitempty,min=1"`
	CategoryID     *int64           `json:"categoryId"     validate:"omitempty,min=1"`
	Note           *string          `json:"note"`
	ExpirationDate *store.Date      `json:"expirationDate"`
	CostPrice      *decimal.Decimal `json:"costPrice"      validate:"omitempty,gte=0"`
	SalePrice      *decimal.Decimal `json:"salePrice"      validate:"omitempty,gte=0"`
	StockQuantity  *int64           `json:"stockQuantity"  validate:"omitempty,min=0"`
}

func (d ProductCreateDto) toModel(now time.Time) store.Product {
	return store.Product{
		Name:           d.Name,
		CategoryID:     d.CategoryID,
		Note:           d.Note,
		ExpirationDate: d.ExpirationDate,
		CostPrice:      d.CostPrice,
		SalePrice:      d.SalePrice,
		StockQuantity:  d.StockQuantity,
		CreatedAt:      now.UTC(),
	}
}

func (d ProductUpdateDto) toPatch() store.ProductPatch {
	return store.ProductPatch{
		Name:           d.Name,
		CategoryID:     d.CategoryID,
		Note:           d.Note,
		ExpirationDate: d.ExpirationDate,
		CostPrice:      d.CostPrice,
		SalePrice:      d.SalePrice,
		StockQuantity:  d.StockQuantity,
	}
}

type StockUpdateDto struct {
	Delta *int64 `json:"delta" validate:"required"`
}

type CounterUpdateDto struct {
	NextValue int64 `json:"nextValue" validate:"required,min=1"`
}

// InvoiceItemDto is one invoice line. ID and SubTotal are accepted but recomputed by the service.
type InvoiceItemDto struct {
	ID          int64            `json:"id"`
	ProductID   int64            `json:"productId"   validate:"min=1"`
	ProductName string           `json:"productName" validate:"required"`
	Quantity    int64            `json:"quantity"    validate:"gt=0"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"   validate:"gte=0"`
	SubTotal    *decimal.Decimal `json:"subTotal"`
}

type InvoiceCreateDto struct {
	OrderDate         *time.Time       `json:"orderDate"`
	CustomerName      string           `json:"customerName"      validate:"required"`
	CustomerPhone     string           `json:"customerPhone"     validate:"required"`
	CustomerAddress   string           `json:"customerAddress"   validate:"required"`
	ShipFee           decimal.Decimal  `json:"shipFee"           validate:"gte=0"`
	DiscountOrDeposit decimal.Decimal  `json:"discountOrDeposit" validate:"gte=0"`
	TotalAmount       *decimal.Decimal `json:"totalAmount"`
	Items             []InvoiceItemDto `json:"items"             validate:"required,min=1,dive"`
	Note              string           `json:"note"`
}

// InvoiceUpdateDto carries the fields to merge into an invoice. Omitted items keep the stored lines.
type InvoiceUpdateDto struct {
	OrderDate         *time.Time       `json:"orderDate"`
	CustomerName      *string          `json:"customerName"      validate:"omitempty,min=1"`
	CustomerPhone     *string          `json:"customerPhone"     validate:"omitempty,min=1"`
	CustomerAddress   *string          `json:"customerAddress"   validate:"omitempty,min=1"`
	ShipFee           *decimal.Decimal `json:"shipFee"           validate:"omitempty,gte=0"`
	DiscountOrDeposit *decimal.Decimal `json:"discountOrDeposit" validate:"omitempty,gte=0"`
	TotalAmount       *decimal.Decimal `json:"totalAmount"`
	Items             []InvoiceItemDto `json:"items"             validate:"omitempty,min=1,dive"`
	Note              *string          `json:"note"`
}

// toItems numbers the lines 1..n and computes each subTotal.
func toItems(dtos []InvoiceItemDto) []store.InvoiceItem {
	if dtos == nil {
		return nil
	}
	items := make([]store.InvoiceItem, 0, len(dtos))
	for i, d := range dtos {
		items = append(items, store.InvoiceItem{
			ID:          int64(i + 1),
			ProductID:   d.ProductID,
			ProductName: d.ProductName,
			Quantity:    d.Quantity,
			UnitPrice:   d.UnitPrice,
			SubTotal:    d.UnitPrice.Mul(decimal.NewFromInt(d.Quantity)),
		})
	}
	return items
}

// invoiceTotal is sum(subTotal) + shipFee - discountOrDeposit.
func invoiceTotal(inv store.Invoice) decimal.Decimal {
	total := inv.ShipFee.Sub(inv.DiscountOrDeposit)
	for _, item := range inv.Items {
		total = total.Add(item.SubTotal)
	}
	return total
}

func (d InvoiceCreateDto) toModel(now time.Time) store.Invoice {
	orderDate := now.UTC()
	if d.OrderDate != nil {
		orderDate = *d.OrderDate
	}
	inv := store.Invoice{
		OrderDate:         orderDate,
		CustomerName:      d.CustomerName,
		CustomerPhone:     d.CustomerPhone,
		CustomerAddress:   d.CustomerAddress,
		ShipFee:           d.ShipFee,
		DiscountOrDeposit: d.DiscountOrDeposit,
		Items:             toItems(d.Items),
		Note:              d.Note,
	}
	if d.TotalAmount != nil {
		inv.TotalAmount = *d.TotalAmount
	} else {
		inv.TotalAmount = invoiceTotal(inv)
	}
	return inv
}

func (d InvoiceUpdateDto) toPatch() store.InvoicePatch {
	return store.InvoicePatch{
		OrderDate:         d.OrderDate,
		CustomerName:      d.CustomerName,
		CustomerPhone:     d.CustomerPhone,
		CustomerAddress:   d.CustomerAddress,
		ShipFee:           d.ShipFee,
		DiscountOrDeposit: d.DiscountOrDeposit,
		TotalAmount:       d.TotalAmount,
		Items:             toItems(d.Items),
		Note:              d.Note,
	}
}

// affectsTotal reports whether the patch changes an input of the invoice total.
func affectsTotal(p store.InvoicePatch) bool {
	return p.Items != nil || p.ShipFee != nil || p.DiscountOrDeposit != nil
}
