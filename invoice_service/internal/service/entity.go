// Package service provides the business logic of the invoice service.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	ierrors "github.com/abgdnv/stockbook/invoice_service/internal/errors"
	"github.com/abgdnv/stockbook/invoice_service/internal/store"
)

// RepoSelector picks one repository out of a set bound to a connection or a transaction.
type RepoSelector[T any, P any] func(store.Repos) store.Repository[T, P]

// EntityStore is the generic CRUD facade over one collection. Ids come from the named counter.
//
// Reads never fail: storage errors are logged and degrade to an empty result.
// Writes return storage errors to the caller.
type EntityStore[T store.Record[T], P any] struct {
	st      store.Store
	repo    RepoSelector[T, P]
	counter string
	logger  *slog.Logger
}

func NewEntityStore[T store.Record[T], P any](st store.Store, repo RepoSelector[T, P], counter string, logger *slog.Logger) *EntityStore[T, P] {
	return &EntityStore[T, P]{
		st:      st,
		repo:    repo,
		counter: counter,
		logger:  logger,
	}
}

// GetAll returns every record ordered by id, or an empty slice when the store fails.
func (e *EntityStore[T, P]) GetAll(ctx context.Context) []T {
	records, err := e.repo(e.st).FindAll(ctx)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to list records", "error", err)
		return []T{}
	}
	return records
}

// GetByID returns nil when the record does not exist or the store fails.
func (e *EntityStore[T, P]) GetByID(ctx context.Context, id int64) *T {
	return e.getByID(ctx, e.st, id)
}

func (e *EntityStore[T, P]) getByID(ctx context.Context, repos store.Repos, id int64) *T {
	rec, err := e.repo(repos).FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ierrors.ErrNotFound) {
			e.logger.ErrorContext(ctx, "Failed to read record", "id", id, "error", err)
		}
		return nil
	}
	return rec
}

// Create allocates the next id and persists data under it in one transaction.
func (e *EntityStore[T, P]) Create(ctx context.Context, data T) (*T, error) {
	var created *T
	err := e.st.WithTx(ctx, func(ctx context.Context, repos store.Repos) error {
		var err error
		created, err = e.create(ctx, repos, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (e *EntityStore[T, P]) create(ctx context.Context, repos store.Repos, data T) (*T, error) {
	id, err := repos.Counters().Next(ctx, e.counter)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate id: %w", err)
	}
	return e.repo(repos).Insert(ctx, data.WithID(id))
}

// Update merges patch into the record. A missing record yields (nil, nil).
func (e *EntityStore[T, P]) Update(ctx context.Context, id int64, patch P) (*T, error) {
	return e.update(ctx, e.st, id, patch)
}

func (e *EntityStore[T, P]) update(ctx context.Context, repos store.Repos, id int64, patch P) (*T, error) {
	rec, err := e.repo(repos).Update(ctx, id, patch)
	if errors.Is(err, ierrors.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// Delete reports whether a record existed and was removed.
func (e *EntityStore[T, P]) Delete(ctx context.Context, id int64) (bool, error) {
	return e.repo(e.st).Delete(ctx, id)
}
