// Package store provides the persistence contract of the invoice service and its
// PostgreSQL, MongoDB and in-memory implementations.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository is the generic record store behind a single collection.
// Records are addressed by their integer id, never by a backend native key.
type Repository[T any, P any] interface {
	// FindAll returns every record ordered by id.
	FindAll(ctx context.Context) ([]T, error)

	// FindByID returns ErrNotFound if no record carries the given id.
	FindByID(ctx context.Context, id int64) (*T, error)

	// Insert persists rec as is; the id must already be allocated.
	Insert(ctx context.Context, rec T) (*T, error)

	// Update merges the provided patch fields into the record.
	// Returns ErrNotFound if no record carries the given id.
	Update(ctx context.Context, id int64, patch P) (*T, error)

	// Delete reports whether a record existed and was removed.
	Delete(ctx context.Context, id int64) (bool, error)

	Count(ctx context.Context) (int64, error)
}

type CategoryRepository interface {
	Repository[Category, CategoryPatch]
}

type ProductRepository interface {
	Repository[Product, ProductPatch]

	// AdjustStock adds delta to the stock quantity in one atomic step. Stock may go negative.
	// Returns ErrNotFound if the product does not exist.
	AdjustStock(ctx context.Context, id int64, delta int64) (*Product, error)
}

type InvoiceRepository interface {
	Repository[Invoice, InvoicePatch]

	// TotalRevenue sums totalAmount over all stored invoices.
	TotalRevenue(ctx context.Context) (decimal.Decimal, error)

	// FindByOrderDate returns invoices with from <= orderDate < to, ordered by id.
	FindByOrderDate(ctx context.Context, from, to time.Time) ([]Invoice, error)
}

type CounterRepository interface {
	// Next atomically increments the counter and returns the new value. An absent counter starts at 0.
	Next(ctx context.Context, name string) (int64, error)

	// Set stores the raw counter value.
	Set(ctx context.Context, name string, value int64) error

	// Get returns the raw counter value, 0 when absent.
	Get(ctx context.Context, name string) (int64, error)

	All(ctx context.Context) (map[string]int64, error)
}

// Repos groups the repositories sharing one connection or transaction.
type Repos interface {
	Categories() CategoryRepository
	Products() ProductRepository
	Invoices() InvoiceRepository
	Counters() CounterRepository
}

// Store is the top level persistence handle.
type Store interface {
	Repos

	// WithTx runs fn with repositories bound to a single transaction when the backend supports it.
	// fn's error rolls the transaction back and is returned unchanged.
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
