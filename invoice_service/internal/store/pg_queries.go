package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so the same queries run inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const categoryColumns = `id, name`

const (
	findAllCategories = `SELECT ` + categoryColumns + ` FROM categories ORDER BY id`
	findCategoryByID  = `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	insertCategory    = `INSERT INTO categories (id, name) VALUES ($1, $2) RETURNING ` + categoryColumns
	updateCategory    = `UPDATE categories SET name = COALESCE($2::text, name) WHERE id = $1 RETURNING ` + categoryColumns
	deleteCategory    = `DELETE FROM categories WHERE id = $1`
	countCategories   = `SELECT count(*) FROM categories`
)

const productColumns = `id, name, category_id, note, expiration_date, cost_price, sale_price, stock_quantity, created_at`

const (
	findAllProducts = `SELECT ` + productColumns + ` FROM products ORDER BY id`
	findProductByID = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	insertProduct   = `INSERT INTO products (` + productColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + productColumns
	updateProduct = `UPDATE products SET
    name            = COALESCE($2::text, name),
    category_id     = COALESCE($3::bigint, category_id),
    note            = COALESCE($4::text, note),
    expiration_date = COALESCE($5::date, expiration_date),
    cost_price      = COALESCE($6::numeric, cost_price),
    sale_price      = COALESCE($7::numeric, sale_price),
    stock_quantity  = COALESCE($8::bigint, stock_quantity)
WHERE id = $1
RETURNING ` + productColumns
	adjustProductStock = `UPDATE products SET stock_quantity = stock_quantity + $2 WHERE id = $1 RETURNING ` + productColumns
	deleteProduct      = `DELETE FROM products WHERE id = $1`
	countProducts      = `SELECT count(*) FROM products`
)

const invoiceColumns = `id, order_date, customer_name, customer_phone, customer_address, ship_fee, discount_or_deposit, total_amount, items, note`

const (
	findAllInvoices = `SELECT ` + invoiceColumns + ` FROM invoices ORDER BY id`
	findInvoiceByID = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	insertInvoice   = `INSERT INTO invoices (` + invoiceColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10)
RETURNING ` + invoiceColumns
	updateInvoice = `UPDATE invoices SET
    order_date          = COALESCE($2::timestamptz, order_date),
    customer_name       = COALESCE($3::text, customer_name),
    customer_phone      = COALESCE($4::text, customer_phone),
    customer_address    = COALESCE($5::text, customer_address),
    ship_fee            = COALESCE($6::numeric, ship_fee),
    discount_or_deposit = COALESCE($7::numeric, discount_or_deposit),
    total_amount        = COALESCE($8::numeric, total_amount),
    items               = COALESCE($9::jsonb, items),
    note                = COALESCE($10::text, note)
WHERE id = $1
RETURNING ` + invoiceColumns
	deleteInvoice          = `DELETE FROM invoices WHERE id = $1`
	countInvoices          = `SELECT count(*) FROM invoices`
	sumInvoiceTotals       = `SELECT COALESCE(SUM(total_amount), 0) FROM invoices`
	findInvoicesByDateSpan = `SELECT ` + invoiceColumns + ` FROM invoices WHERE order_date >= $1 AND order_date < $2 ORDER BY id`
)

const (
	nextCounter = `INSERT INTO counters (name, value) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
RETURNING value`
	setCounter = `INSERT INTO counters (name, value) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`
	getCounter     = `SELECT value FROM counters WHERE name = $1`
	getAllCounters = `SELECT name, value FROM counters ORDER BY name`
)

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name)
	return c, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p          Product
		expiration *time.Time
	)
	err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &p.Note, &expiration,
		&p.CostPrice, &p.SalePrice, &p.StockQuantity, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	if expiration != nil {
		d := NewDate(*expiration)
		p.ExpirationDate = &d
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv   Invoice
		items []byte
	)
	err := row.Scan(&inv.ID, &inv.OrderDate, &inv.CustomerName, &inv.CustomerPhone, &inv.CustomerAddress,
		&inv.ShipFee, &inv.DiscountOrDeposit, &inv.TotalAmount, &items, &inv.Note)
	if err != nil {
		return inv, err
	}
	inv.OrderDate = inv.OrderDate.UTC()
	if err := json.Unmarshal(items, &inv.Items); err != nil {
		return inv, fmt.Errorf("failed to decode items of invoice %d: %w", inv.ID, err)
	}
	return inv, nil
}

// encodeItems returns nil for nil items so COALESCE keeps the stored value on update.
func encodeItems(items []InvoiceItem) ([]byte, error) {
	if items == nil {
		return nil, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode invoice items: %w", err)
	}
	return data, nil
}

func dateArg(d *Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// collect runs a multi-row query and scans each row with scan.
func collect[T any](ctx context.Context, db DBTX, scan func(pgx.Row) (T, error), sql string, args ...any) ([]T, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
