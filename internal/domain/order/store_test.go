package order

import (
	"context"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

// memState is the full data set of the in-memory store.
type memState struct {
	carts    map[string]*cart.Cart
	products map[string]*product.Product
	orders   map[string]*Order
}

func (s *memState) clone() *memState {
	out := &memState{
		carts:    make(map[string]*cart.Cart, len(s.carts)),
		products: make(map[string]*product.Product, len(s.products)),
		orders:   make(map[string]*Order, len(s.orders)),
	}
	for k, c := range s.carts {
		cp := *c
		cp.Items = slices.Clone(c.Items)
		out.carts[k] = &cp
	}
	for k, p := range s.products {
		cp := *p
		out.products[k] = &cp
	}
	for k, o := range s.orders {
		cp := *o
		cp.Items = slices.Clone(o.Items)
		out.orders[k] = &cp
	}
	return out
}

// memStore serializes transactions with a mutex and applies a transaction's
// writes only when fn succeeds.
type memStore struct {
	mu    sync.Mutex
	state *memState
	// conflicts is the number of upcoming InTx calls failing with
	// ErrTransactionConflict before fn runs.
	conflicts int
	calls     int
	// failOn makes the named write fail inside the transaction.
	failOn string
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		carts:    map[string]*cart.Cart{},
		products: map[string]*product.Product{},
		orders:   map[string]*Order{},
	}}
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.conflicts > 0 {
		m.conflicts--
		return ErrTransactionConflict
	}
	work := m.state.clone()
	if err := fn(ctx, &memTx{s: work, failOn: m.failOn}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) reader() Repository { return memReader{m: m} }

func (m *memStore) addProduct(id, name, price string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.products[id] = &product.Product{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func (m *memStore) addToCart(userID, productID string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.state.carts[userID]
	if !ok {
		c = &cart.Cart{UserID: userID}
		m.state.carts[userID] = c
	}
	c.Items = append(c.Items, cart.Item{ProductID: productID, Quantity: qty})
}

func (m *memStore) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.products[id].Stock
}

func (m *memStore) deleteProduct(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state.products, id)
}

func (m *memStore) cart(userID string) (*cart.Cart, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.state.carts[userID]
	return c, ok
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

type memTx struct {
	s      *memState
	failOn string
}

func (t *memTx) Carts() cart.Repository       { return memCarts{s: t.s, failOn: t.failOn} }
func (t *memTx) Products() product.Repository { return memProducts{s: t.s} }
func (t *memTx) Orders() Repository           { return memOrders{s: t.s, failOn: t.failOn} }

type memCarts struct {
	s      *memState
	failOn string
}

func (r memCarts) Get(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := r.s.carts[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	cp := *c
	cp.Items = slices.Clone(c.Items)
	return &cp, nil
}

func (r memCarts) AddItem(_ context.Context, userID string, item cart.Item) error {
	c, ok := r.s.carts[userID]
	if !ok {
		c = &cart.Cart{UserID: userID}
		r.s.carts[userID] = c
	}
	c.Items = append(c.Items, item)
	return nil
}

func (r memCarts) SetQuantity(_ context.Context, userID, productID string, quantity int) error {
	c, ok := r.s.carts[userID]
	if !ok {
		return cart.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (r memCarts) RemoveItem(_ context.Context, userID, productID string) error {
	c, ok := r.s.carts[userID]
	if !ok {
		return cart.ErrNotFound
	}
	c.Items = slices.DeleteFunc(c.Items, func(it cart.Item) bool { return it.ProductID == productID })
	return nil
}

func (r memCarts) Delete(_ context.Context, userID string) error {
	if r.failOn == "cart.delete" {
		return errTestWrite
	}
	delete(r.s.carts, userID)
	return nil
}

type memProducts struct {
	s *memState
}

func (r memProducts) Create(_ context.Context, p *product.Product) error {
	cp := *p
	r.s.products[p.ID] = &cp
	return nil
}

func (r memProducts) List(_ context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range r.s.products {
		out = append(out, *p)
	}
	return out, nil
}

func (r memProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r memProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r memProducts) LockByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	return r.GetByIDs(ctx, ids)
}

func (r memProducts) AdjustStock(_ context.Context, id string, delta int) error {
	p, ok := r.s.products[id]
	if !ok {
		return product.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return product.ErrInsufficientStock
	}
	p.Stock += delta
	return nil
}

type memOrders struct {
	s      *memState
	failOn string
}

func (r memOrders) Create(_ context.Context, o *Order) error {
	if r.failOn == "order.create" {
		return errTestWrite
	}
	cp := *o
	cp.Items = slices.Clone(o.Items)
	r.s.orders[o.ID] = &cp
	return nil
}

func (r memOrders) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	cp.Items = slices.Clone(o.Items)
	return &cp, nil
}

func (r memOrders) GetForUpdate(ctx context.Context, id string) (*Order, error) {
	return r.GetByID(ctx, id)
}

func (r memOrders) UpdateStatus(_ context.Context, id string, status Status, updatedAt time.Time) error {
	o, ok := r.s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = updatedAt
	return nil
}

func (r memOrders) UpdatePaymentStatus(_ context.Context, id string, status PaymentStatus, updatedAt time.Time) error {
	o, ok := r.s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.PaymentStatus = status
	o.UpdatedAt = updatedAt
	return nil
}

func (r memOrders) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range r.s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// List supports filters and paging; the sort is always newest first.
func (r memOrders) List(_ context.Context, q Query) ([]Order, int, error) {
	var all []Order
	for _, o := range r.s.orders {
		if q.Filter.Status != "" && o.Status != q.Filter.Status {
			continue
		}
		if q.Filter.PaymentStatus != "" && o.PaymentStatus != q.Filter.PaymentStatus {
			continue
		}
		if q.Filter.UserID != "" && o.UserID != q.Filter.UserID {
			continue
		}
		all = append(all, *o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	start := min(q.Offset(), len(all))
	end := min(start+q.Limit, len(all))
	return all[start:end], len(all), nil
}

// memReader reads committed state outside of transactions.
type memReader struct {
	m *memStore
}

func (r memReader) view() memOrders { return memOrders{s: r.m.state} }

func (r memReader) Create(ctx context.Context, o *Order) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.view().Create(ctx, o)
}

func (r memReader) GetByID(ctx context.Context, id string) (*Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.view().GetByID(ctx, id)
}

func (r memReader) GetForUpdate(ctx context.Context, id string) (*Order, error) {
	return r.GetByID(ctx, id)
}

func (r memReader) UpdateStatus(ctx context.Context, id string, status Status, updatedAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.view().UpdateStatus(ctx, id, status, updatedAt)
}

func (r memReader) UpdatePaymentStatus(ctx context.Context, id string, status PaymentStatus, updatedAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.view().UpdatePaymentStatus(ctx, id, status, updatedAt)
}

func (r memReader) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.view().ListByUser(ctx, userID)
}

func (r memReader) List(ctx context.Context, q Query) ([]Order, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.view().List(ctx, q)
}

var errTestWrite = errors.New("write failed")

func newTestService(t *testing.T, store *memStore, opts ...Option) *Service {
	t.Helper()

	opts = append([]Option{
		WithMeterProvider(noopmetric.NewMeterProvider()),
		WithTracerProvider(nooptrace.NewTracerProvider()),
	}, opts...)
	svc, err := NewService(store, store.reader(), opts...)
	require.NoError(t, err)

	// Monotonic clock so listings have a stable order.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return svc
}

func testDetails() Details {
	return Details{
		Number:        "+15550100",
		Note:          "leave at the door",
		PaymentStatus: PaymentCOD,
		ShippingAddress: Address{
			Street:     "1 Main St",
			City:       "Springfield",
			PostalCode: 12345,
		},
	}
}
