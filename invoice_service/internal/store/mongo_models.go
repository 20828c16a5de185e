package store

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Documents keep the driver generated _id next to the integer id callers use.

type categoryDoc struct {
	ObjectID bson.ObjectID `bson:"_id,omitempty"`
	ID       int64         `bson:"id"`
	Name     string        `bson:"name"`
}

type productDoc struct {
	ObjectID       bson.ObjectID   `bson:"_id,omitempty"`
	ID             int64           `bson:"id"`
	Name           string          `bson:"name"`
	CategoryID     int64           `bson:"categoryId"`
	Note           string          `bson:"note"`
	ExpirationDate *time.Time      `bson:"expirationDate,omitempty"`
	CostPrice      bson.Decimal128 `bson:"costPrice"`
	SalePrice      bson.Decimal128 `bson:"salePrice"`
	StockQuantity  int64           `bson:"stockQuantity"`
	CreatedAt      time.Time       `bson:"createdAt"`
}

type invoiceItemDoc struct {
	ID          int64           `bson:"id"`
	ProductID   int64           `bson:"productId"`
	ProductName string          `bson:"productName"`
	Quantity    int64           `bson:"quantity"`
	UnitPrice   bson.Decimal128 `bson:"unitPrice"`
	SubTotal    bson.Decimal128 `bson:"subTotal"`
}

type invoiceDoc struct {
	ObjectID          bson.ObjectID    `bson:"_id,omitempty"`
	ID                int64            `bson:"id"`
	OrderDate         time.Time        `bson:"orderDate"`
	CustomerName      string           `bson:"customerName"`
	CustomerPhone     string           `bson:"customerPhone"`
	CustomerAddress   string           `bson:"customerAddress"`
	ShipFee           bson.Decimal128  `bson:"shipFee"`
	DiscountOrDeposit bson.Decimal128  `bson:"discountOrDeposit"`
	TotalAmount       bson.Decimal128  `bson:"totalAmount"`
	Items             []invoiceItemDoc `bson:"items"`
	Note              string           `bson:"note,omitempty"`
}

type counterDoc struct {
	Name  string `bson:"_id"`
	Value int64  `bson:"value"`
}

// bsonTime drops what a BSON datetime cannot hold.
func bsonTime(t time.Time) time.Time {
	return t.Truncate(time.Millisecond)
}

func toDecimal128(d decimal.Decimal) (bson.Decimal128, error) {
	d128, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, fmt.Errorf("failed to convert %s to Decimal128: %w", d, err)
	}
	return d128, nil
}

func fromDecimal128(d bson.Decimal128) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to convert Decimal128 %s: %w", d.String(), err)
	}
	return v, nil
}

// decimals converts several values at once and stops at the first failure.
func decimals(values ...decimal.Decimal) ([]bson.Decimal128, error) {
	out := make([]bson.Decimal128, len(values))
	for i, v := range values {
		d, err := toDecimal128(v)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func fromDecimals(values ...bson.Decimal128) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		d, err := fromDecimal128(v)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func toCategoryDoc(c Category) (categoryDoc, error) {
	return categoryDoc{ID: c.ID, Name: c.Name}, nil
}

func fromCategoryDoc(d categoryDoc) (Category, error) {
	return Category{ID: d.ID, Name: d.Name}, nil
}

func toProductDoc(p Product) (productDoc, error) {
	prices, err := decimals(p.CostPrice, p.SalePrice)
	if err != nil {
		return productDoc{}, err
	}
	return productDoc{
		ID:             p.ID,
		Name:           p.Name,
		CategoryID:     p.CategoryID,
		Note:           p.Note,
		ExpirationDate: dateArg(p.ExpirationDate),
		CostPrice:      prices[0],
		SalePrice:      prices[1],
		StockQuantity:  p.StockQuantity,
		CreatedAt:      bsonTime(p.CreatedAt),
	}, nil
}

func fromProductDoc(d productDoc) (Product, error) {
	prices, err := fromDecimals(d.CostPrice, d.SalePrice)
	if err != nil {
		return Product{}, err
	}
	p := Product{
		ID:            d.ID,
		Name:          d.Name,
		CategoryID:    d.CategoryID,
		Note:          d.Note,
		CostPrice:     prices[0],
		SalePrice:     prices[1],
		StockQuantity: d.StockQuantity,
		CreatedAt:     d.CreatedAt.UTC(),
	}
	if d.ExpirationDate != nil {
		date := NewDate(*d.ExpirationDate)
		p.ExpirationDate = &date
	}
	return p, nil
}

func toItemDocs(items []InvoiceItem) ([]invoiceItemDoc, error) {
	docs := make([]invoiceItemDoc, len(items))
	for i, item := range items {
		money, err := decimals(item.UnitPrice, item.SubTotal)
		if err != nil {
			return nil, err
		}
		docs[i] = invoiceItemDoc{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   money[0],
			SubTotal:    money[1],
		}
	}
	return docs, nil
}

func toInvoiceDoc(inv Invoice) (invoiceDoc, error) {
	money, err := decimals(inv.ShipFee, inv.DiscountOrDeposit, inv.TotalAmount)
	if err != nil {
		return invoiceDoc{}, err
	}
	items, err := toItemDocs(inv.Items)
	if err != nil {
		return invoiceDoc{}, err
	}
	return invoiceDoc{
		ID:                inv.ID,
		OrderDate:         bsonTime(inv.OrderDate),
		CustomerName:      inv.CustomerName,
		CustomerPhone:     inv.CustomerPhone,
		CustomerAddress:   inv.CustomerAddress,
		ShipFee:           money[0],
		DiscountOrDeposit: money[1],
		TotalAmount:       money[2],
		Items:             items,
		Note:              inv.Note,
	}, nil
}

func fromInvoiceDoc(d invoiceDoc) (Invoice, error) {
	money, err := fromDecimals(d.ShipFee, d.DiscountOrDeposit, d.TotalAmount)
	if err != nil {
		return Invoice{}, err
	}
	items := make([]InvoiceItem, len(d.Items))
	for i, item := range d.Items {
		prices, err := fromDecimals(item.UnitPrice, item.SubTotal)
		if err != nil {
			return Invoice{}, err
		}
		items[i] = InvoiceItem{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   prices[0],
			SubTotal:    prices[1],
		}
	}
	return Invoice{
		ID:                d.ID,
		OrderDate:         d.OrderDate.UTC(),
		CustomerName:      d.CustomerName,
		CustomerPhone:     d.CustomerPhone,
		CustomerAddress:   d.CustomerAddress,
		ShipFee:           money[0],
		DiscountOrDeposit: money[1],
		TotalAmount:       money[2],
		Items:             items,
		Note:              d.Note,
	}, nil
}

// The patch converters only emit $set entries for provided fields.

func categorySet(p CategoryPatch) (bson.D, error) {
	set := bson.D{}
	if p.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *p.Name})
	}
	return set, nil
}

func productSet(p ProductPatch) (bson.D, error) {
	set := bson.D{}
	if p.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *p.Name})
	}
	if p.CategoryID != nil {
		set = append(set, bson.E{Key: "categoryId", Value: *p.CategoryID})
	}
	if p.Note != nil {
		set = append(set, bson.E{Key: "note", Value: *p.Note})
	}
	if p.ExpirationDate != nil {
		set = append(set, bson.E{Key: "expirationDate", Value: p.ExpirationDate.Time})
	}
	if p.CostPrice != nil {
		d, err := toDecimal128(*p.CostPrice)
		if err != nil {
			return nil, err
		}
		set = append(set, bson.E{Key: "costPrice", Value: d})
	}
	if p.SalePrice != nil {
		d, err := toDecimal128(*p.SalePrice)
		if err != nil {
			return nil, err
		}
		set = append(set, bson.E{Key: "salePrice", Value: d})
	}
	if p.StockQuantity != nil {
		set = append(set, bson.E{Key: "stockQuantity", Value: *p.StockQuantity})
	}
	return set, nil
}

func invoiceSet(p InvoicePatch) (bson.D, error) {
	set := bson.D{}
	if p.OrderDate != nil {
		set = append(set, bson.E{Key: "orderDate", Value: bsonTime(*p.OrderDate)})
	}
	if p.CustomerName != nil {
		set = append(set, bson.E{Key: "customerName", Value: *p.CustomerName})
	}
	if p.CustomerPhone != nil {
		set = append(set, bson.E{Key: "customerPhone", Value: *p.CustomerPhone})
	}
	if p.CustomerAddress != nil {
		set = append(set, bson.E{Key: "customerAddress", Value: *p.CustomerAddress})
	}
	money := []struct {
		key   string
		value *decimal.Decimal
	}{
		{"shipFee", p.ShipFee},
		{"discountOrDeposit", p.DiscountOrDeposit},
		{"totalAmount", p.TotalAmount},
	}
	for _, m := range money {
		if m.value == nil {
			continue
		}
		d, err := toDecimal128(*m.value)
		if err != nil {
			return nil, err
		}
		set = append(set, bson.E{Key: m.key, Value: d})
	}
	if p.Items != nil {
		items, err := toItemDocs(p.Items)
		if err != nil {
			return nil, err
		}
		set = append(set, bson.E{Key: "items", Value: items})
	}
	if p.Note != nil {
		set = append(set, bson.E{Key: "note", Value: *p.Note})
	}
	return set, nil
}
