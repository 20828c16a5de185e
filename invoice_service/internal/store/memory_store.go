package store

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	ierrors "github.com/abgdnv/stockbook/invoice_service/internal/errors"
	"github.com/shopspring/decimal"
)

// memState is the full data set of a MemoryStore. It is copied wholesale to take a snapshot.
type memState struct {
	categories map[int64]Category
	products   map[int64]Product
	invoices   map[int64]Invoice
	counters   map[string]int64
}

func (s *memState) clone() *memState {
	invoices := make(map[int64]Invoice, len(s.invoices))
	for id, inv := range s.invoices {
		inv.Items = slices.Clone(inv.Items)
		invoices[id] = inv
	}
	return &memState{
		categories: maps.Clone(s.categories),
		products:   maps.Clone(s.products),
		invoices:   invoices,
		counters:   maps.Clone(s.counters),
	}
}

// MemoryStore keeps everything in process memory. It backs tests and single-node demos.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		categories: map[int64]Category{},
		products:   map[int64]Product{},
		invoices:   map[int64]Invoice{},
		counters:   map[string]int64{},
	}}
}

func (m *MemoryStore) lock() func() {
	m.mu.Lock()
	return m.mu.Unlock
}

func noLock() func() { return func() {} }

// repos binds repositories to the current state. Inside WithTx the store lock is already held.
func (m *MemoryStore) repos(lock func() func()) memRepos {
	return memRepos{store: m, lock: lock}
}

func (m *MemoryStore) Categories() CategoryRepository { return m.repos(m.lock).Categories() }
func (m *MemoryStore) Products() ProductRepository    { return m.repos(m.lock).Products() }
func (m *MemoryStore) Invoices() InvoiceRepository    { return m.repos(m.lock).Invoices() }
func (m *MemoryStore) Counters() CounterRepository    { return m.repos(m.lock).Counters() }

// WithTx serializes fn against every other store call and restores the previous state if fn fails.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(ctx, m.repos(noLock)); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *MemoryStore) Ping(context.Context) error  { return nil }
func (m *MemoryStore) Close(context.Context) error { return nil }

type memRepos struct {
	store *MemoryStore
	lock  func() func()
}

func (r memRepos) Categories() CategoryRepository {
	return &memRepo[Category, CategoryPatch]{lock: r.lock, data: func() map[int64]Category { return r.store.state.categories }}
}

func (r memRepos) Products() ProductRepository {
	return &memProducts{memRepo[Product, ProductPatch]{lock: r.lock, data: func() map[int64]Product { return r.store.state.products }}}
}

func (r memRepos) Invoices() InvoiceRepository {
	return &memInvoices{memRepo[Invoice, InvoicePatch]{lock: r.lock, data: func() map[int64]Invoice { return r.store.state.invoices }}}
}

func (r memRepos) Counters() CounterRepository {
	return &memCounters{lock: r.lock, data: func() map[string]int64 { return r.store.state.counters }}
}

// memRepo resolves its map on every call so a restored snapshot is picked up.
type memRepo[T Record[T], P Patch[T]] struct {
	lock func() func()
	data func() map[int64]T
}

func (r *memRepo[T, P]) FindAll(context.Context) ([]T, error) {
	defer r.lock()()
	return r.sorted(func(T) bool { return true }), nil
}

func (r *memRepo[T, P]) sorted(keep func(T) bool) []T {
	out := make([]T, 0, len(r.data()))
	for _, rec := range r.data() {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(a.Identity(), b.Identity()) })
	return out
}

func (r *memRepo[T, P]) FindByID(_ context.Context, id int64) (*T, error) {
	defer r.lock()()
	rec, ok := r.data()[id]
	if !ok {
		return nil, ierrors.ErrNotFound
	}
	return &rec, nil
}

func (r *memRepo[T, P]) Insert(_ context.Context, rec T) (*T, error) {
	defer r.lock()()
	r.data()[rec.Identity()] = rec
	return &rec, nil
}

func (r *memRepo[T, P]) Update(_ context.Context, id int64, patch P) (*T, error) {
	defer r.lock()()
	rec, ok := r.data()[id]
	if !ok {
		return nil, ierrors.ErrNotFound
	}
	rec = patch.Apply(rec)
	r.data()[id] = rec
	return &rec, nil
}

func (r *memRepo[T, P]) Delete(_ context.Context, id int64) (bool, error) {
	defer r.lock()()
	if _, ok := r.data()[id]; !ok {
		return false, nil
	}
	delete(r.data(), id)
	return true, nil
}

func (r *memRepo[T, P]) Count(context.Context) (int64, error) {
	defer r.lock()()
	return int64(len(r.data())), nil
}

type memProducts struct {
	memRepo[Product, ProductPatch]
}

func (r *memProducts) AdjustStock(_ context.Context, id int64, delta int64) (*Product, error) {
	defer r.lock()()
	p, ok := r.data()[id]
	if !ok {
		return nil, ierrors.ErrNotFound
	}
	p.StockQuantity += delta
	r.data()[id] = p
	return &p, nil
}

type memInvoices struct {
	memRepo[Invoice, InvoicePatch]
}

func (r *memInvoices) TotalRevenue(context.Context) (decimal.Decimal, error) {
	defer r.lock()()
	total := decimal.Zero
	for _, inv := range r.data() {
		total = total.Add(inv.TotalAmount)
	}
	return total, nil
}

func (r *memInvoices) FindByOrderDate(_ context.Context, from, to time.Time) ([]Invoice, error) {
	defer r.lock()()
	return r.sorted(func(inv Invoice) bool {
		return !inv.OrderDate.Before(from) && inv.OrderDate.Before(to)
	}), nil
}

type memCounters struct {
	lock func() func()
	data func() map[string]int64
}

func (c *memCounters) Next(_ context.Context, name string) (int64, error) {
	defer c.lock()()
	c.data()[name]++
	return c.data()[name], nil
}

func (c *memCounters) Set(_ context.Context, name string, value int64) error {
	defer c.lock()()
	c.data()[name] = value
	return nil
}

func (c *memCounters) Get(_ context.Context, name string) (int64, error) {
	defer c.lock()()
	return c.data()[name], nil
}

func (c *memCounters) All(context.Context) (map[string]int64, error) {
	defer c.lock()()
	return maps.Clone(c.data()), nil
}
