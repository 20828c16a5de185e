package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	ierrors "github.com/abgdnv/stockbook/invoice_service/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgStore implements Store on PostgreSQL.
type PgStore struct {
	db *pgxpool.Pool
	pgRepos
}

var _ Store = (*PgStore)(nil)

// NewPgStore creates a new instance of Store using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{
		db:      dbp,
		pgRepos: pgRepos{db: dbp},
	}
}

func (p *PgStore) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ierrors.ErrTransactionBegin, err)
	}

	if err := fn(ctx, pgRepos{db: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w: %w", ierrors.ErrTransactionRollback, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", ierrors.ErrTransactionCommit, err)
	}
	return nil
}

func (p *PgStore) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *PgStore) Close(context.Context) error {
	p.db.Close()
	return nil
}

type pgRepos struct {
	db DBTX
}

func (r pgRepos) Categories() CategoryRepository { return &pgCategories{db: r.db} }
func (r pgRepos) Products() ProductRepository    { return &pgProducts{db: r.db} }
func (r pgRepos) Invoices() InvoiceRepository    { return &pgInvoices{db: r.db} }
func (r pgRepos) Counters() CounterRepository    { return &pgCounters{db: r.db} }

// one wraps a single row lookup, turning pgx.ErrNoRows into ErrNotFound.
func one[T any](rec T, err error, what string) (*T, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ierrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	return &rec, nil
}

func execDelete(ctx context.Context, db DBTX, sql string, id int64) (bool, error) {
	tag, err := db.Exec(ctx, sql, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete record %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func count(ctx context.Context, db DBTX, sql string) (int64, error) {
	var n int64
	if err := db.QueryRow(ctx, sql).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

type pgCategories struct {
	db DBTX
}

func (c *pgCategories) FindAll(ctx context.Context) ([]Category, error) {
	categories, err := collect(ctx, c.db, scanCategory, findAllCategories)
	if err != nil {
		return nil, fmt.Errorf("failed to find all categories: %w", err)
	}
	return categories, nil
}

func (c *pgCategories) FindByID(ctx context.Context, id int64) (*Category, error) {
	rec, err := scanCategory(c.db.QueryRow(ctx, findCategoryByID, id))
	return one(rec, err, "find category by ID")
}

func (c *pgCategories) Insert(ctx context.Context, rec Category) (*Category, error) {
	created, err := scanCategory(c.db.QueryRow(ctx, insertCategory, rec.ID, rec.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &created, nil
}

func (c *pgCategories) Update(ctx context.Context, id int64, patch CategoryPatch) (*Category, error) {
	rec, err := scanCategory(c.db.QueryRow(ctx, updateCategory, id, patch.Name))
	return one(rec, err, "update category")
}

func (c *pgCategories) Delete(ctx context.Context, id int64) (bool, error) {
	return execDelete(ctx, c.db, deleteCategory, id)
}

func (c *pgCategories) Count(ctx context.Context) (int64, error) {
	return count(ctx, c.db, countCategories)
}

type pgProducts struct {
	db DBTX
}

func (p *pgProducts) FindAll(ctx context.Context) ([]Product, error) {
	products, err := collect(ctx, p.db, scanProduct, findAllProducts)
	if err != nil {
		return nil, fmt.Errorf("failed to find all products: %w", err)
	}
	return products, nil
}

func (p *pgProducts) FindByID(ctx context.Context, id int64) (*Product, error) {
	rec, err := scanProduct(p.db.QueryRow(ctx, findProductByID, id))
	return one(rec, err, "find product by ID")
}

func (p *pgProducts) Insert(ctx context.Context, rec Product) (*Product, error) {
	created, err := scanProduct(p.db.QueryRow(ctx, insertProduct,
		rec.ID, rec.Name, rec.CategoryID, rec.Note, dateArg(rec.ExpirationDate),
		rec.CostPrice, rec.SalePrice, rec.StockQuantity, rec.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &created, nil
}

func (p *pgProducts) Update(ctx context.Context, id int64, patch ProductPatch) (*Product, error) {
	rec, err := scanProduct(p.db.QueryRow(ctx, updateProduct,
		id, patch.Name, patch.CategoryID, patch.Note, dateArg(patch.ExpirationDate),
		patch.CostPrice, patch.SalePrice, patch.StockQuantity))
	return one(rec, err, "update product")
}

func (p *pgProducts) AdjustStock(ctx context.Context, id int64, delta int64) (*Product, error) {
	rec, err := scanProduct(p.db.QueryRow(ctx, adjustProductStock, id, delta))
	return one(rec, err, "adjust product stock")
}

func (p *pgProducts) Delete(ctx context.Context, id int64) (bool, error) {
	return execDelete(ctx, p.db, deleteProduct, id)
}

func (p *pgProducts) Count(ctx context.Context) (int64, error) {
	return count(ctx, p.db, countProducts)
}

type pgInvoices struct {
	db DBTX
}

func (i *pgInvoices) FindAll(ctx context.Context) ([]Invoice, error) {
	invoices, err := collect(ctx, i.db, scanInvoice, findAllInvoices)
	if err != nil {
		return nil, fmt.Errorf("failed to find all invoices: %w", err)
	}
	return invoices, nil
}

func (i *pgInvoices) FindByID(ctx context.Context, id int64) (*Invoice, error) {
	rec, err := scanInvoice(i.db.QueryRow(ctx, findInvoiceByID, id))
	return one(rec, err, "find invoice by ID")
}

func (i *pgInvoices) Insert(ctx context.Context, rec Invoice) (*Invoice, error) {
	items := rec.Items
	if items == nil {
		items = []InvoiceItem{}
	}
	encoded, err := encodeItems(items)
	if err != nil {
		return nil, err
	}
	created, err := scanInvoice(i.db.QueryRow(ctx, insertInvoice,
		rec.ID, rec.OrderDate, rec.CustomerName, rec.CustomerPhone, rec.CustomerAddress,
		rec.ShipFee, rec.DiscountOrDeposit, rec.TotalAmount, encoded, rec.Note))
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return &created, nil
}

func (i *pgInvoices) Update(ctx context.Context, id int64, patch InvoicePatch) (*Invoice, error) {
	encoded, err := encodeItems(patch.Items)
	if err != nil {
		return nil, err
	}
	rec, err := scanInvoice(i.db.QueryRow(ctx, updateInvoice,
		id, patch.OrderDate, patch.CustomerName, patch.CustomerPhone, patch.CustomerAddress,
		patch.ShipFee, patch.DiscountOrDeposit, patch.TotalAmount, encoded, patch.Note))
	return one(rec, err, "update invoice")
}

func (i *pgInvoices) Delete(ctx context.Context, id int64) (bool, error) {
	return execDelete(ctx, i.db, deleteInvoice, id)
}

func (i *pgInvoices) Count(ctx context.Context) (int64, error) {
	return count(ctx, i.db, countInvoices)
}

func (i *pgInvoices) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := i.db.QueryRow(ctx, sumInvoiceTotals).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum invoice totals: %w", err)
	}
	return total, nil
}

func (i *pgInvoices) FindByOrderDate(ctx context.Context, from, to time.Time) ([]Invoice, error) {
	invoices, err := collect(ctx, i.db, scanInvoice, findInvoicesByDateSpan, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoices by order date: %w", err)
	}
	return invoices, nil
}

type pgCounters struct {
	db DBTX
}

func (c *pgCounters) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	if err := c.db.QueryRow(ctx, nextCounter, name).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to allocate from counter %s: %w", name, err)
	}
	return value, nil
}

func (c *pgCounters) Set(ctx context.Context, name string, value int64) error {
	if _, err := c.db.Exec(ctx, setCounter, name, value); err != nil {
		return fmt.Errorf("failed to set counter %s: %w", name, err)
	}
	return nil
}

func (c *pgCounters) Get(ctx context.Context, name string) (int64, error) {
	var value int64
	err := c.db.QueryRow(ctx, getCounter, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", name, err)
	}
	return value, nil
}

func (c *pgCounters) All(ctx context.Context) (map[string]int64, error) {
	rows, err := c.db.Query(ctx, getAllCounters)
	if err != nil {
		return nil, fmt.Errorf("failed to read counters: %w", err)
	}
	defer rows.Close()

	counters := make(map[string]int64)
	for rows.Next() {
		var (
			name  string
			value int64
		)
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan counter: %w", err)
		}
		counters[name] = value
	}
	return counters, rows.Err()
}
