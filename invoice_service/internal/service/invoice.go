package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ierrors "github.com/abgdnv/stockbook/invoice_service/internal/errors"
	"github.com/abgdnv/stockbook/invoice_service/internal/store"
	"github.com/abgdnv/stockbook/pkg/messaging"
	"github.com/abgdnv/stockbook/pkg/messaging/events"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InvoiceService keeps product stock in step with the invoices referencing it.
// Every create, update and delete runs with its stock adjustments in one store transaction.
type InvoiceService struct {
	st        store.Store
	entities  *EntityStore[store.Invoice, store.InvoicePatch]
	ledger    *StockLedger
	publisher messaging.Publisher
	logger    *slog.Logger
	metrics   instruments
	now       func() time.Time
}

func NewInvoiceService(st store.Store, ledger *StockLedger, publisher messaging.Publisher, logger *slog.Logger) *InvoiceService {
	logger = logger.With("component", "invoices")
	return &InvoiceService{
		st:        st,
		entities:  NewEntityStore(st, invoiceRepo, store.InvoiceCounter, logger),
		ledger:    ledger,
		publisher: publisher,
		logger:    logger,
		metrics:   newInstruments(),
		now:       time.Now,
	}
}

func invoiceRepo(r store.Repos) store.Repository[store.Invoice, store.InvoicePatch] {
	return r.Invoices()
}

func (s *InvoiceService) GetAll(ctx context.Context) []store.Invoice {
	return s.entities.GetAll(ctx)
}

func (s *InvoiceService) GetByID(ctx context.Context, id int64) *store.Invoice {
	return s.entities.GetByID(ctx, id)
}

// GetTotalRevenue sums totalAmount over every stored invoice. Storage failures yield zero.
func (s *InvoiceService) GetTotalRevenue(ctx context.Context) decimal.Decimal {
	total, err := s.st.Invoices().TotalRevenue(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to compute total revenue", "error", err)
		return decimal.Zero
	}
	return total
}

// stockLevels remembers the latest stock of every product touched by one operation, in first-touch order.
type stockLevels struct {
	order  []int64
	levels map[int64]events.StockLevel
}

func newStockLevels() *stockLevels {
	return &stockLevels{levels: map[int64]events.StockLevel{}}
}

func (l *stockLevels) record(p *store.Product) {
	if p == nil {
		return
	}
	if _, seen := l.levels[p.ID]; !seen {
		l.order = append(l.order, p.ID)
	}
	l.levels[p.ID] = events.StockLevel{ProductID: p.ID, ProductName: p.Name, StockQuantity: p.StockQuantity}
}

func (l *stockLevels) list() []events.StockLevel {
	out := make([]events.StockLevel, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.levels[id])
	}
	return out
}

// applyItems adjusts stock by sign*quantity for every item, in item order.
func (s *InvoiceService) applyItems(ctx context.Context, repos store.Repos, items []store.InvoiceItem, sign int64, levels *stockLevels) error {
	for _, item := range items {
		p, err := s.ledger.adjust(ctx, repos, item.ProductID, sign*item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to adjust stock of product %d: %w", item.ProductID, err)
		}
		levels.record(p)
	}
	return nil
}

// create deducts stock for every item and then stores the invoice under a fresh id.
func (s *InvoiceService) create(ctx context.Context, repos store.Repos, inv store.Invoice, levels *stockLevels) (*store.Invoice, error) {
	if err := s.applyItems(ctx, repos, inv.Items, -1, levels); err != nil {
		return nil, err
	}
	return s.entities.create(ctx, repos, inv)
}

// Create deducts stock for every item, then stores the invoice under a fresh id.
func (s *InvoiceService) Create(ctx context.Context, dto InvoiceCreateDto) (*store.Invoice, error) {
	inv := dto.toModel(s.now())

	var created *store.Invoice
	var levels *stockLevels
	err := s.st.WithTx(ctx, func(ctx context.Context, repos store.Repos) error {
		levels = newStockLevels()
		var err error
		created, err = s.create(ctx, repos, inv, levels)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.metrics.invoicesCreated.Add(ctx, 1)
	s.logger.InfoContext(ctx, "Invoice created", "invoice_id", created.ID, "items", len(created.Items), "total", created.TotalAmount)
	s.publish(ctx, events.InvoiceCreated, *created, levels)
	return created, nil
}

// Update restores the stock of every stored item, deducts the stock of the new items when the patch
// carries items and merges the patch into the invoice. A missing invoice yields (nil, nil).
func (s *InvoiceService) Update(ctx context.Context, id int64, dto InvoiceUpdateDto) (*store.Invoice, error) {
	var updated *store.Invoice
	var levels *stockLevels
	err := s.st.WithTx(ctx, func(ctx context.Context, repos store.Repos) error {
		updated = nil
		levels = newStockLevels()
		patch := dto.toPatch()

		existing, err := repos.Invoices().FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, ierrors.ErrNotFound) {
				return nil
			}
			return err
		}

		if err := s.applyItems(ctx, repos, existing.Items, 1, levels); err != nil {
			return err
		}
		if patch.Items != nil {
			if err := s.applyItems(ctx, repos, patch.Items, -1, levels); err != nil {
				return err
			}
		}

		if patch.TotalAmount == nil && affectsTotal(patch) {
			total := invoiceTotal(patch.Apply(*existing))
			patch.TotalAmount = &total
		}
		updated, err = s.entities.update(ctx, repos, id, patch)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice %d: %w", id, err)
	}
	if updated == nil {
		return nil, nil
	}

	s.logger.InfoContext(ctx, "Invoice updated", "invoice_id", id, "total", updated.TotalAmount)
	s.publish(ctx, events.InvoiceUpdated, *updated, levels)
	return updated, nil
}

// Delete restores the stock of every item and removes the invoice. Returns false when the invoice does not exist.
func (s *InvoiceService) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted *store.Invoice
	var levels *stockLevels
	err := s.st.WithTx(ctx, func(ctx context.Context, repos store.Repos) error {
		deleted = nil
		levels = newStockLevels()

		existing, err := repos.Invoices().FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, ierrors.ErrNotFound) {
				return nil
			}
			return err
		}
		if err := s.applyItems(ctx, repos, existing.Items, 1, levels); err != nil {
			return err
		}
		ok, err := repos.Invoices().Delete(ctx, id)
		if err != nil {
			return err
		}
		if ok {
			deleted = existing
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete invoice %d: %w", id, err)
	}
	if deleted == nil {
		return false, nil
	}

	s.metrics.invoicesDeleted.Add(ctx, 1)
	s.logger.InfoContext(ctx, "Invoice deleted", "invoice_id", id)
	s.publish(ctx, events.InvoiceDeleted, *deleted, levels)
	return true, nil
}

// publish reports a committed change. Failures are logged only.
func (s *InvoiceService) publish(ctx context.Context, action events.InvoiceAction, inv store.Invoice, levels *stockLevels) {
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event := events.InvoiceEvent{
		Action:       action,
		InvoiceID:    inv.ID,
		CustomerName: inv.CustomerName,
		TotalAmount:  inv.TotalAmount,
		OrderDate:    inv.OrderDate,
		Stock:        levels.list(),
		OccurredAt:   s.now().UTC(),
		Carrier:      carrier,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish invoice event", "action", action, "invoice_id", inv.ID, "error", err)
	}
}
