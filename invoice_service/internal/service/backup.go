package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/stockbook/invoice_service/internal/store"
)

// Snapshot is a full export of the catalog, the invoices and the counters.
type Snapshot struct {
	ExportedAt time.Time        `json:"exportedAt"`
	Categories []store.Category `json:"categories"`
	Products   []store.Product  `json:"products"`
	Invoices   []store.Invoice  `json:"invoices"`
	Counters   map[string]int64 `json:"counters"`
}

type ImportResult struct {
	CategoriesMigrated int      `json:"categoriesMigrated"`
	ProductsMigrated   int      `json:"productsMigrated"`
	InvoicesMigrated   int      `json:"invoicesMigrated"`
	Errors             []string `json:"errors"`
}

type BackupService struct {
	st         store.Store
	categories *CategoryService
	products   *ProductService
	invoices   *InvoiceService
	logger     *slog.Logger
}

func NewBackupService(st store.Store, categories *CategoryService, products *ProductService, invoices *InvoiceService, logger *slog.Logger) *BackupService {
	return &BackupService{
		st:         st,
		categories: categories,
		products:   products,
		invoices:   invoices,
		logger:     logger.With("component", "backup"),
	}
}

func (b *BackupService) Export(ctx context.Context) Snapshot {
	counters, err := b.st.Counters().All(ctx)
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to read counters for export", "error", err)
		counters = map[string]int64{}
	}
	return Snapshot{
		ExportedAt: time.Now().UTC(),
		Categories: b.categories.GetAll(ctx),
		Products:   b.products.GetAll(ctx),
		Invoices:   b.invoices.GetAll(ctx),
		Counters:   counters,
	}
}

// Import re-creates every record whose id is not already present, under a freshly allocated id.
// Imported invoices are stock neutral: their items are restored before the invoice deducts them again.
// Failures are collected per record and never abort the import.
func (b *BackupService) Import(ctx context.Context, snap Snapshot) ImportResult {
	result := ImportResult{Errors: []string{}}

	for _, c := range snap.Categories {
		if b.categories.GetByID(ctx, c.ID) != nil {
			b.logger.DebugContext(ctx, "Category already exists, skipping", "id", c.ID)
			continue
		}
		if _, err := b.categories.entities.Create(ctx, c); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to import category %d: %v", c.ID, err))
			continue
		}
		result.CategoriesMigrated++
	}

	for _, p := range snap.Products {
		if b.products.GetByID(ctx, p.ID) != nil {
			b.logger.DebugContext(ctx, "Product already exists, skipping", "id", p.ID)
			continue
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}
		if _, err := b.products.entities.Create(ctx, p); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to import product %d: %v", p.ID, err))
			continue
		}
		result.ProductsMigrated++
	}

	for _, inv := range snap.Invoices {
		if b.invoices.GetByID(ctx, inv.ID) != nil {
			b.logger.DebugContext(ctx, "Invoice already exists, skipping", "id", inv.ID)
			continue
		}
		if err := b.importInvoice(ctx, inv); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to import invoice %d: %v", inv.ID, err))
			continue
		}
		result.InvoicesMigrated++
	}

	b.logger.InfoContext(ctx, "Import finished",
		"categories", result.CategoriesMigrated,
		"products", result.ProductsMigrated,
		"invoices", result.InvoicesMigrated,
		"errors", len(result.Errors))
	return result
}

func (b *BackupService) importInvoice(ctx context.Context, inv store.Invoice) error {
	return b.st.WithTx(ctx, func(ctx context.Context, repos store.Repos) error {
		levels := newStockLevels()
		if err := b.invoices.applyItems(ctx, repos, inv.Items, 1, levels); err != nil {
			return err
		}
		_, err := b.invoices.create(ctx, repos, inv, levels)
		return err
	})
}
