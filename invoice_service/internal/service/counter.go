package service

import (
	"context"
	"fmt"
	"log/slog"

	ierrors "github.com/abgdnv/stockbook/invoice_service/internal/errors"
	"github.com/abgdnv/stockbook/invoice_service/internal/store"
)

// CounterDto reports a counter's stored value and the id it will hand out next.
type CounterDto struct {
	Name      string `json:"name"`
	Value     int64  `json:"value"`
	NextValue int64  `json:"nextValue"`
}

type CounterService struct {
	st     store.Store
	logger *slog.Logger
}

func NewCounterService(st store.Store, logger *slog.Logger) *CounterService {
	return &CounterService{st: st, logger: logger.With("component", "counters")}
}

func checkCounterName(name string) error {
	if !store.IsCounterName(name) {
		return fmt.Errorf("%w: %s", ierrors.ErrUnknownCounter, name)
	}
	return nil
}

// Allocate returns the next id of the named counter.
func (c *CounterService) Allocate(ctx context.Context, name string) (int64, error) {
	if err := checkCounterName(name); err != nil {
		return 0, err
	}
	return c.st.Counters().Next(ctx, name)
}

// SetCounter makes the next allocation of name return nextValue.
// Existing records are not checked for collisions.
func (c *CounterService) SetCounter(ctx context.Context, name string, nextValue int64) error {
	if err := checkCounterName(name); err != nil {
		return err
	}
	if nextValue < 1 {
		return ierrors.ErrInvalidCounterValue
	}
	if err := c.st.Counters().Set(ctx, name, nextValue-1); err != nil {
		return err
	}
	c.logger.Info("Counter set", "counter", name, "next_value", nextValue)
	return nil
}

// GetCounterValue returns the raw stored value, 0 when absent or unreadable.
func (c *CounterService) GetCounterValue(ctx context.Context, name string) int64 {
	value, err := c.st.Counters().Get(ctx, name)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to read counter", "counter", name, "error", err)
		return 0
	}
	return value
}

// Counters lists every known counter, including ones never used.
func (c *CounterService) Counters(ctx context.Context) []CounterDto {
	stored, err := c.st.Counters().All(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to read counters", "error", err)
		stored = map[string]int64{}
	}
	out := make([]CounterDto, 0, len(store.CounterNames))
	for _, name := range store.CounterNames {
		out = append(out, CounterDto{Name: name, Value: stored[name], NextValue: stored[name] + 1})
	}
	return out
}

// InitializeCountersDto carries optional start ids; omitted counters are left alone.
type InitializeCountersDto struct {
	CategoryStartID *int64 `json:"categoryStartId" validate:"omitempty,min=1"`
	ProductStartID  *int64 `json:"productStartId"  validate:"omitempty,min=1"`
	InvoiceStartID  *int64 `json:"invoiceStartId"  validate:"omitempty,min=1"`
}

// InitializeAll sets every counter with a provided start id in one transaction.
func (c *CounterService) InitializeAll(ctx context.Context, start InitializeCountersDto) ([]CounterDto, error) {
	values := map[string]*int64{
		store.CategoryCounter: start.CategoryStartID,
		store.ProductCounter:  start.ProductStartID,
		store.InvoiceCounter:  start.InvoiceStartID,
	}
	for _, v := range values {
		if v != nil && *v < 1 {
			return nil, ierrors.ErrInvalidCounterValue
		}
	}

	err := c.st.WithTx(ctx, func(ctx context.Context, repos store.Repos) error {
		for _, name := range store.CounterNames {
			if values[name] == nil {
				continue
			}
			if err := repos.Counters().Set(ctx, name, *values[name]-1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize counters: %w", err)
	}
	c.logger.InfoContext(ctx, "Counters initialized")
	return c.Counters(ctx), nil
}
