package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdave727/csc301-a2/internal/cache"
	"github.com/yashdave727/csc301-a2/internal/records"
)

func TestAccessor_ProductReadThrough(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	seed(st)
	a := NewAccessor(st, ca)
	ctx := context.Background()

	p1, err := a.Product(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.productReads)
	assert.True(t, ca.has(cache.ProductKey(1)), "miss populates the cache")

	// second read is served from cache: identical content, no store hit
	p2, err := a.Product(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.productReads)
	assert.Equal(t, p1, p2)
}

func TestAccessor_UserReadThrough(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	seed(st)
	a := NewAccessor(st, ca)
	ctx := context.Background()

	u, err := a.User(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)
	assert.True(t, ca.has(cache.UserKey(1)))

	again, err := a.User(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, u, again)
}

func TestAccessor_NotFoundIsNotCached(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	a := NewAccessor(st, ca)
	ctx := context.Background()

	_, err := a.Product(ctx, 999)
	assert.ErrorIs(t, err, records.ErrNotFound)
	assert.False(t, ca.has(cache.ProductKey(999)))

	// every repeated miss re-queries the store
	_, err = a.Product(ctx, 999)
	assert.ErrorIs(t, err, records.ErrNotFound)
	assert.Equal(t, 2, st.productReads)
}

func TestAccessor_CacheErrorFallsBackToStore(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	seed(st)
	ca.getErr = errors.New("redis down")
	a := NewAccessor(st, ca)

	p, err := a.Product(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Quantity)
}

func TestAccessor_CorruptEntryIsDropped(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	seed(st)
	require.NoError(t, ca.Set(context.Background(), cache.ProductKey(1), []byte("not json")))
	a := NewAccessor(st, ca)

	p, err := a.Product(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "widget", p.Name)

	// the bad entry was replaced by a good one
	again, err := a.Product(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, p, again)
	assert.Equal(t, 1, st.productReads)
}

// After an accepted order the invalidation must win over any earlier
// cached state: the next read observes the post-decrement quantity.
func TestAccessor_NoPermanentStalenessAfterOrder(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	seed(st)
	a := NewAccessor(st, ca)
	e := NewEngine(st, ca, a, nil)
	ctx := context.Background()

	p, err := a.Product(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Quantity)

	_, err = e.PlaceOrder(ctx, 1, 1, 3)
	require.NoError(t, err)

	after, err := a.Product(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, after.Quantity)
}

func TestAccessor_PurchasedReadThrough(t *testing.T) {
	st := newFakeStore()
	ca := newFakeCache()
	seed(st)
	st.orders = []records.Order{
		{ID: 1, UserID: 1, ProductID: 1, Quantity: 2},
		{ID: 2, UserID: 1, ProductID: 1, Quantity: 1},
		{ID: 3, UserID: 2, ProductID: 1, Quantity: 4},
	}
	a := NewAccessor(st, ca)
	ctx := context.Background()

	view, err := a.Purchased(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, records.Purchases{1: 3}, view)
	assert.True(t, ca.has(cache.PurchasesKey(1)))

	cachedView, err := a.Purchased(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, view, cachedView)
}
