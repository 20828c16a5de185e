package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	ierrors "github.com/abgdnv/stockbook/invoice_service/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractOptions tunes the shared store tests per backend.
type contractOptions struct {
	// atomicTx is false for backends that run WithTx without a real transaction.
	atomicTx bool
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, money(want).Equal(got), "expected %s, got %s", want, got)
}

func ptr[T any](v T) *T {
	return &v
}

func sampleProduct(id int64, stock int64) Product {
	exp := NewDate(time.Date(2031, 5, 17, 0, 0, 0, 0, time.UTC))
	return Product{
		ID:             id,
		Name:           "Cola",
		CategoryID:     1,
		Note:           "330ml can",
		ExpirationDate: &exp,
		CostPrice:      money("5000"),
		SalePrice:      money("8000"),
		StockQuantity:  stock,
		CreatedAt:      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func sampleInvoice(id int64, orderDate time.Time, total string) Invoice {
	return Invoice{
		ID:              id,
		OrderDate:       orderDate,
		CustomerName:    "A",
		CustomerPhone:   "0900000000",
		CustomerAddress: "1 Main St",
		ShipFee:         money("2000"),
		TotalAmount:     money(total),
		Items: []InvoiceItem{
			{ID: 1, ProductID: 1, ProductName: "Cola", Quantity: 3, UnitPrice: money("8000"), SubTotal: money("24000")},
		},
	}
}

// runStoreContract exercises the behavior every Store backend must share.
// newStore must return an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store, opts contractOptions) {
	ctx := context.Background()

	t.Run("categories crud", func(t *testing.T) {
		st := newStore(t)
		repo := st.Categories()

		// given
		for _, c := range []Category{{ID: 2, Name: "Snacks"}, {ID: 1, Name: "Drinks"}} {
			_, err := repo.Insert(ctx, c)
			require.NoError(t, err)
		}

		// when
		all, err := repo.FindAll(ctx)

		// then
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, int64(1), all[0].ID, "records are ordered by id")

		found, err := repo.FindByID(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "Snacks", found.Name)

		_, err = repo.FindByID(ctx, 99)
		assert.ErrorIs(t, err, ierrors.ErrNotFound)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("update merges only provided fields", func(t *testing.T) {
		st := newStore(t)
		repo := st.Products()
		original := sampleProduct(1, 10)
		_, err := repo.Insert(ctx, original)
		require.NoError(t, err)

		// when
		updated, err := repo.Update(ctx, 1, ProductPatch{Name: ptr("Cola Zero"), SalePrice: ptr(money("9000"))})

		// then
		require.NoError(t, err)
		assert.Equal(t, "Cola Zero", updated.Name)
		assertMoney(t, "9000", updated.SalePrice)
		assertMoney(t, "5000", updated.CostPrice)
		assert.Equal(t, original.Note, updated.Note)
		assert.Equal(t, original.CategoryID, updated.CategoryID)
		assert.Equal(t, original.StockQuantity, updated.StockQuantity)
		require.NotNil(t, updated.ExpirationDate)
		assert.True(t, original.ExpirationDate.Equal(updated.ExpirationDate.Time))
		assert.True(t, original.CreatedAt.Equal(updated.CreatedAt))

		stored, err := repo.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Cola Zero", stored.Name)
	})

	t.Run("update and delete of unknown id", func(t *testing.T) {
		st := newStore(t)

		_, err := st.Categories().Update(ctx, 42, CategoryPatch{Name: ptr("x")})
		assert.ErrorIs(t, err, ierrors.ErrNotFound)

		deleted, err := st.Categories().Delete(ctx, 42)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("insert returns what find returns", func(t *testing.T) {
		st := newStore(t)
		product := sampleProduct(1, 10)
		product.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 123456789, time.UTC)
		invoice := sampleInvoice(1, time.Date(2024, 3, 1, 9, 30, 0, 987654321, time.UTC), "26000")

		// when
		insertedProduct, err := st.Products().Insert(ctx, product)
		require.NoError(t, err)
		insertedInvoice, err := st.Invoices().Insert(ctx, invoice)
		require.NoError(t, err)

		// then
		foundProduct, err := st.Products().FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, insertedProduct, foundProduct)
		foundInvoice, err := st.Invoices().FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, insertedInvoice, foundInvoice)
	})

	t.Run("money keeps every decimal place", func(t *testing.T) {
		st := newStore(t)
		product := sampleProduct(1, 10)
		product.CostPrice = money("1234.5678")
		product.SalePrice = money("0.005")
		invoice := sampleInvoice(1, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "26000.125")
		invoice.ShipFee = money("1.999")
		_, err := st.Products().Insert(ctx, product)
		require.NoError(t, err)
		_, err = st.Invoices().Insert(ctx, invoice)
		require.NoError(t, err)

		// when
		foundProduct, err := st.Products().FindByID(ctx, 1)
		require.NoError(t, err)
		foundInvoice, err := st.Invoices().FindByID(ctx, 1)
		require.NoError(t, err)

		// then
		assertMoney(t, "1234.5678", foundProduct.CostPrice)
		assertMoney(t, "0.005", foundProduct.SalePrice)
		assertMoney(t, "26000.125", foundInvoice.TotalAmount)
		assertMoney(t, "1.999", foundInvoice.ShipFee)
	})

	t.Run("delete existing", func(t *testing.T) {
		st := newStore(t)
		_, err := st.Categories().Insert(ctx, Category{ID: 1, Name: "Drinks"})
		require.NoError(t, err)

		deleted, err := st.Categories().Delete(ctx, 1)
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = st.Categories().FindByID(ctx, 1)
		assert.ErrorIs(t, err, ierrors.ErrNotFound)
	})

	t.Run("adjust stock allows negative values", func(t *testing.T) {
		st := newStore(t)
		_, err := st.Products().Insert(ctx, sampleProduct(1, 2))
		require.NoError(t, err)

		p, err := st.Products().AdjustStock(ctx, 1, -5)
		require.NoError(t, err)
		assert.Equal(t, int64(-3), p.StockQuantity)

		p, err = st.Products().AdjustStock(ctx, 1, 4)
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.StockQuantity)

		_, err = st.Products().AdjustStock(ctx, 7, 1)
		assert.ErrorIs(t, err, ierrors.ErrNotFound)
	})

	t.Run("counters", func(t *testing.T) {
		st := newStore(t)
		counters := st.Counters()

		value, err := counters.Get(ctx, InvoiceCounter)
		require.NoError(t, err)
		assert.Zero(t, value, "absent counter reads as zero")

		for want := int64(1); want <= 3; want++ {
			got, err := counters.Next(ctx, InvoiceCounter)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}

		require.NoError(t, counters.Set(ctx, InvoiceCounter, 99))
		next, err := counters.Next(ctx, InvoiceCounter)
		require.NoError(t, err)
		assert.Equal(t, int64(100), next)

		next, err = counters.Next(ctx, CategoryCounter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), next, "counters are independent")

		all, err := counters.All(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{InvoiceCounter: 100, CategoryCounter: 1}, all)
	})

	t.Run("concurrent allocation never repeats", func(t *testing.T) {
		st := newStore(t)
		const workers, perWorker = 8, 10

		var (
			mu   sync.Mutex
			seen = make(map[int64]bool)
			wg   sync.WaitGroup
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range perWorker {
					v, err := st.Counters().Next(ctx, ProductCounter)
					if !assert.NoError(t, err) {
						return
					}
					mu.Lock()
					assert.False(t, seen[v], "value %d allocated twice", v)
					seen[v] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, seen, workers*perWorker)
		for v := int64(1); v <= workers*perWorker; v++ {
			assert.True(t, seen[v], "value %d missing", v)
		}
	})

	t.Run("invoices keep items and aggregate revenue", func(t *testing.T) {
		st := newStore(t)
		day := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
		_, err := st.Invoices().Insert(ctx, sampleInvoice(1, day, "26000"))
		require.NoError(t, err)
		_, err = st.Invoices().Insert(ctx, sampleInvoice(2, day.AddDate(0, 0, 2), "10000.50"))
		require.NoError(t, err)

		// when
		inv, err := st.Invoices().FindByID(ctx, 1)

		// then
		require.NoError(t, err)
		require.Len(t, inv.Items, 1)
		assert.Equal(t, "Cola", inv.Items[0].ProductName)
		assert.Equal(t, int64(3), inv.Items[0].Quantity)
		assertMoney(t, "24000", inv.Items[0].SubTotal)
		assert.True(t, day.Equal(inv.OrderDate))

		total, err := st.Invoices().TotalRevenue(ctx)
		require.NoError(t, err)
		assertMoney(t, "36000.50", total)

		window, err := st.Invoices().FindByOrderDate(ctx, day.Truncate(24*time.Hour), day.Truncate(24*time.Hour).AddDate(0, 0, 1))
		require.NoError(t, err)
		require.Len(t, window, 1)
		assert.Equal(t, int64(1), window[0].ID)
	})

	t.Run("invoice patch without items keeps items", func(t *testing.T) {
		st := newStore(t)
		_, err := st.Invoices().Insert(ctx, sampleInvoice(1, time.Now().UTC().Truncate(time.Second), "26000"))
		require.NoError(t, err)

		updated, err := st.Invoices().Update(ctx, 1, InvoicePatch{CustomerName: ptr("B")})
		require.NoError(t, err)
		assert.Equal(t, "B", updated.CustomerName)
		assert.Len(t, updated.Items, 1)

		updated, err = st.Invoices().Update(ctx, 1, InvoicePatch{Items: []InvoiceItem{
			{ID: 1, ProductID: 2, ProductName: "Chips", Quantity: 1, UnitPrice: money("5"), SubTotal: money("5")},
			{ID: 2, ProductID: 3, ProductName: "Tea", Quantity: 2, UnitPrice: money("3"), SubTotal: money("6")},
		}})
		require.NoError(t, err)
		assert.Len(t, updated.Items, 2)
		assert.Equal(t, "B", updated.CustomerName)
	})

	t.Run("empty revenue is zero", func(t *testing.T) {
		st := newStore(t)
		total, err := st.Invoices().TotalRevenue(ctx)
		require.NoError(t, err)
		assert.True(t, total.IsZero())
	})

	t.Run("transaction commits", func(t *testing.T) {
		st := newStore(t)
		err := st.WithTx(ctx, func(ctx context.Context, repos Repos) error {
			id, err := repos.Counters().Next(ctx, CategoryCounter)
			if err != nil {
				return err
			}
			_, err = repos.Categories().Insert(ctx, Category{ID: id, Name: "Drinks"})
			return err
		})
		require.NoError(t, err)

		n, err := st.Categories().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	if !opts.atomicTx {
		return
	}

	t.Run("transaction rolls back on error", func(t *testing.T) {
		st := newStore(t)
		_, err := st.Products().Insert(ctx, sampleProduct(1, 10))
		require.NoError(t, err)
		boom := errors.New("boom")

		// when
		err = st.WithTx(ctx, func(ctx context.Context, repos Repos) error {
			if _, err := repos.Products().AdjustStock(ctx, 1, -4); err != nil {
				return err
			}
			if _, err := repos.Counters().Next(ctx, InvoiceCounter); err != nil {
				return err
			}
			return boom
		})

		// then
		require.ErrorIs(t, err, boom)
		p, err := st.Products().FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(10), p.StockQuantity)
		value, err := st.Counters().Get(ctx, InvoiceCounter)
		require.NoError(t, err)
		assert.Zero(t, value)
	})
}
