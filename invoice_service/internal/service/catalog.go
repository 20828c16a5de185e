package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/abgdnv/stockbook/invoice_service/internal/store"
)

// CategoryService manages product categories. Deleting a category leaves its products in place.
type CategoryService struct {
	entities *EntityStore[store.Category, store.CategoryPatch]
}

func NewCategoryService(st store.Store, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		entities: NewEntityStore(st, categoryRepo, store.CategoryCounter, logger.With("component", "categories")),
	}
}

func categoryRepo(r store.Repos) store.Repository[store.Category, store.CategoryPatch] {
	return r.Categories()
}

func (s *CategoryService) GetAll(ctx context.Context) []store.Category {
	return s.entities.GetAll(ctx)
}

func (s *CategoryService) GetByID(ctx context.Context, id int64) *store.Category {
	return s.entities.GetByID(ctx, id)
}

func (s *CategoryService) Create(ctx context.Context, dto CategoryCreateDto) (*store.Category, error) {
	return s.entities.Create(ctx, dto.toModel())
}

func (s *CategoryService) Update(ctx context.Context, id int64, dto CategoryUpdateDto) (*store.Category, error) {
	return s.entities.Update(ctx, id, dto.toPatch())
}

func (s *CategoryService) Delete(ctx context.Context, id int64) (bool, error) {
	return s.entities.Delete(ctx, id)
}

// ProductService manages products. Deleting a product leaves invoices referencing it untouched.
type ProductService struct {
	entities *EntityStore[store.Product, store.ProductPatch]
	ledger   *StockLedger
	now      func() time.Time
}

func NewProductService(st store.Store, ledger *StockLedger, logger *slog.Logger) *ProductService {
	return &ProductService{
		entities: NewEntityStore(st, productRepo, store.ProductCounter, logger.With("component", "products")),
		ledger:   ledger,
		now:      time.Now,
	}
}

func productRepo(r store.Repos) store.Repository[store.Product, store.ProductPatch] {
	return r.Products()
}

func (s *ProductService) GetAll(ctx context.Context) []store.Product {
	return s.entities.GetAll(ctx)
}

func (s *ProductService) GetByID(ctx context.Context, id int64) *store.Product {
	return s.entities.GetByID(ctx, id)
}

// Create stamps createdAt with the current UTC time.
func (s *ProductService) Create(ctx context.Context, dto ProductCreateDto) (*store.Product, error) {
	return s.entities.Create(ctx, dto.toModel(s.now()))
}

func (s *ProductService) Update(ctx context.Context, id int64, dto ProductUpdateDto) (*store.Product, error) {
	return s.entities.Update(ctx, id, dto.toPatch())
}

func (s *ProductService) Delete(ctx context.Context, id int64) (bool, error) {
	return s.entities.Delete(ctx, id)
}

// UpdateStock adds delta to the product's stock. An unknown product yields (nil, nil).
func (s *ProductService) UpdateStock(ctx context.Context, id, delta int64) (*store.Product, error) {
	return s.ledger.Adjust(ctx, id, delta)
}
