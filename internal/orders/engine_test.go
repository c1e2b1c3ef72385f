package orders

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdave727/csc301-a2/internal/cache"
	"github.com/yashdave727/csc301-a2/internal/records"
)

// fakeStore is an in-memory Store with the same conditional-decrement
// semantics as the SQL adapter.
type fakeStore struct {
	mu       sync.Mutex
	products map[int64]*records.Product
	users    map[int64]*records.User
	orders   []records.Order
	nextID   int64

	productReads   int
	decrementCalls int

	decrementErr error
	insertErr    error
	// loseFirstDecrement makes the first decrement report zero rows
	// affected without touching stock, as if another request had won a
	// race that has since been undone.
	loseFirstDecrement bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[int64]*records.Product{},
		users:    map[int64]*records.User{},
	}
}

func (s *fakeStore) GetProduct(ctx context.Context, id int64) (*records.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.productReads++
	p, ok := s.products[id]
	if !ok {
		return nil, records.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) GetUser(ctx context.Context, id int64) (*records.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, records.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) DecrementStock(ctx context.Context, productID int64, qty int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decrementCalls++
	if s.decrementErr != nil {
		return false, s.decrementErr
	}
	if s.loseFirstDecrement {
		s.loseFirstDecrement = false
		return false, nil
	}
	p, ok := s.products[productID]
	if !ok || p.Quantity < qty {
		return false, nil
	}
	p.Quantity -= qty
	return true, nil
}

func (s *fakeStore) RestoreStock(ctx context.Context, productID int64, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[productID]; ok {
		p.Quantity += qty
	}
	return nil
}

func (s *fakeStore) InsertOrder(ctx context.Context, userID, productID int64, qty int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.nextID++
	s.orders = append(s.orders, records.Order{
		ID: s.nextID, UserID: userID, ProductID: productID, Quantity: qty,
	})
	return s.nextID, nil
}

func (s *fakeStore) AggregateOrders(ctx context.Context, userID int64) (records.Purchases, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := records.Purchases{}
	for _, o := range s.orders {
		if o.UserID == userID {
			out[o.ProductID] += o.Quantity
		}
	}
	return out, nil
}

func (s *fakeStore) quantity(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Quantity
}

func (s *fakeStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte

	getErr error
	setErr error
	delErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	b, ok := c.entries[key]
	return b, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, val []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = val
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delErr != nil {
		return c.delErr
	}
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

type fakeSink struct {
	mu     sync.Mutex
	events []PlacedEvent
}

func (s *fakeSink) OrderPlaced(ctx context.Context, ev PlacedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newTestEngine(st *fakeStore, ca *fakeCache, sink EventSink) *Engine {
	return NewEngine(st, ca, NewAccessor(st, ca), sink)
}

func seed(st *fakeStore) {
	st.users[1] = &records.User{ID: 1, Username: "ada", Email: "ada@example.com", PasswordHash: "x"}
	st.users[2] = &records.User{ID: 2, Username: "bob", Email: "bob@example.com", PasswordHash: "x"}
	st.products[1] = &records.Product{ID: 1, Name: "widget", Price: 9.99, Quantity: 5}
}

func TestPlaceOrder_Success(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	sink := &fakeSink{}
	seed(st)
	e := newTestEngine(st, ca, sink)

	orderID, err := e.PlaceOrder(context.Background(), 1, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), orderID)
	assert.Equal(t, 2, st.quantity(1))
	assert.Equal(t, 1, st.orderCount())
	assert.Equal(t, 1, sink.count())

	// both affected keys must be gone after the accept
	assert.False(t, ca.has(cache.ProductKey(1)))
	assert.False(t, ca.has(cache.PurchasesKey(1)))
}

func TestPlaceOrder_ThenInsufficient(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	seed(st)
	e := newTestEngine(st, ca, nil)
	ctx := context.Background()

	_, err := e.PlaceOrder(ctx, 1, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, st.quantity(1))

	_, err = e.PlaceOrder(ctx, 1, 1, 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 2, st.quantity(1))
	assert.Equal(t, 1, st.orderCount())
}

func TestPlaceOrder_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		userID    int64
		productID int64
		qty       int
		want      error
	}{
		{"zero quantity", 1, 1, 0, ErrInvalidQuantity},
		{"negative quantity", 1, 1, -2, ErrInvalidQuantity},
		{"unknown user", 42, 1, 1, ErrUnknownUser},
		{"unknown product", 1, 999, 1, ErrUnknownProduct},
		{"insufficient stock", 1, 1, 6, ErrInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			ca := newFakeCache()
			sink := &fakeSink{}
			seed(st)
			e := newTestEngine(st, ca, sink)

			_, err := e.PlaceOrder(context.Background(), tt.userID, tt.productID, tt.qty)
			assert.ErrorIs(t, err, tt.want)

			// a rejection mutates nothing and emits nothing
			assert.Equal(t, 5, st.quantity(1))
			assert.Equal(t, 0, st.orderCount())
			assert.Equal(t, 0, sink.count())
		})
	}
}

func TestPlaceOrder_ConcurrentLastUnits(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	seed(st)
	e := newTestEngine(st, ca, nil)

	var accepted, insufficient atomic.Int32
	var wg sync.WaitGroup
	for _, uid := range []int64{1, 2} {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			_, err := e.PlaceOrder(context.Background(), uid, 1, 3)
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, ErrInsufficientStock):
				insufficient.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uid)
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(1), insufficient.Load())
	assert.Equal(t, 2, st.quantity(1))
	assert.Equal(t, 1, st.orderCount())
}

func TestPlaceOrder_NoOversell(t *testing.T) {
	const initial = 20
	const requests = 50

	st := newFakeStore()
	ca := newFakeCache()
	seed(st)
	st.products[1].Quantity = initial
	e := newTestEngine(st, ca, nil)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.PlaceOrder(context.Background(), 1, 1, 1); err == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(initial), accepted.Load())
	assert.Equal(t, 0, st.quantity(1))
	assert.Equal(t, initial, st.orderCount())
}

func TestPlaceOrder_RetriesOnceAfterLostRace(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	seed(st)
	st.loseFirstDecrement = true
	e := newTestEngine(st, ca, nil)

	orderID, err := e.PlaceOrder(context.Background(), 1, 1, 3)
	require.NoError(t, err)
	assert.NotZero(t, orderID)
	assert.Equal(t, 2, st.quantity(1))
	assert.Equal(t, 2, st.decrementCalls)
}

func TestPlaceOrder_StaleCacheDoesNotOversell(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	seed(st)
	e := newTestEngine(st, ca, nil)
	ctx := context.Background()

	// warm the cache at quantity 5, then drain the store behind its back
	_, err := NewAccessor(st, ca).Product(ctx, 1)
	require.NoError(t, err)
	st.mu.Lock()
	st.products[1].Quantity = 0
	st.mu.Unlock()

	// precondition passes off the stale cache; the conditional
	// decrement and the fresh re-read must still reject
	_, err = e.PlaceOrder(ctx, 1, 1, 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 0, st.quantity(1))
	assert.Equal(t, 0, st.orderCount())
}

func TestPlaceOrder_StoreErrorSurfaces(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	seed(st)
	st.decrementErr = errors.New("connection reset")
	e := newTestEngine(st, ca, nil)

	_, err := e.PlaceOrder(context.Background(), 1, 1, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 0, st.orderCount())
	assert.Equal(t, 1, st.decrementCalls, "infrastructure errors are not retried")
}

func TestPlaceOrder_InsertFailureRestoresStock(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	sink := &fakeSink{}
	seed(st)
	st.insertErr = errors.New("constraint violation")
	e := newTestEngine(st, ca, sink)

	_, err := e.PlaceOrder(context.Background(), 1, 1, 3)
	require.Error(t, err)

	// the decrement is compensated, so the stock invariant holds
	assert.Equal(t, 5, st.quantity(1))
	assert.Equal(t, 0, st.orderCount())
	assert.Equal(t, 0, sink.count())
}

func TestPlaceOrder_CacheFailureDoesNotRejectOrder(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	sink := &fakeSink{}
	seed(st)
	ca.delErr = errors.New("redis down")
	e := newTestEngine(st, ca, sink)

	orderID, err := e.PlaceOrder(context.Background(), 1, 1, 3)
	require.NoError(t, err, "invalidation failure must not roll back a committed order")
	assert.NotZero(t, orderID)
	assert.Equal(t, 2, st.quantity(1))
	assert.Equal(t, 1, sink.count())
}

func TestPurchased_AggregatesAcrossOrders(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	seed(st)
	st.products[2] = &records.Product{ID: 2, Name: "gadget", Price: 1.50, Quantity: 10}
	e := newTestEngine(st, ca, nil)
	ctx := context.Background()

	for _, q := range []int{2, 1} {
		_, err := e.PlaceOrder(ctx, 1, 1, q)
		require.NoError(t, err)
	}
	_, err := e.PlaceOrder(ctx, 1, 2, 4)
	require.NoError(t, err)

	view, err := e.Purchased(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, records.Purchases{1: 3, 2: 4}, view)

	// other users see their own (empty) view
	other, err := e.Purchased(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}
