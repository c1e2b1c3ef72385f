package orders

import (
	"context"
	"encoding/json"

	"github.com/yashdave727/csc301-a2/internal/cache"
	"github.com/yashdave727/csc301-a2/internal/records"
)

// Accessor is the read-through path: cache hit short-circuits the
// store, a miss queries the store and populates the cache before
// returning. Negative lookups are never cached, so repeated misses for
// an absent id always hit the store. That matches the write side, which
// only ever invalidates keys it has populated.
type Accessor struct {
	store Store
	cache CacheStore
}

func NewAccessor(store Store, cache CacheStore) *Accessor {
	return &Accessor{store: store, cache: cache}
}

func (a *Accessor) Product(ctx context.Context, id int64) (*records.Product, error) {
	var p records.Product
	if a.cached(ctx, cache.ProductKey(id), &p) {
		return &p, nil
	}
	fresh, err := a.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	a.populate(ctx, cache.ProductKey(id), fresh)
	return fresh, nil
}

func (a *Accessor) User(ctx context.Context, id int64) (*records.User, error) {
	var u records.User
	if a.cached(ctx, cache.UserKey(id), &u) {
		return &u, nil
	}
	fresh, err := a.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	a.populate(ctx, cache.UserKey(id), fresh)
	return fresh, nil
}

// Purchased aggregates the user's orders into a per-product quantity
// map. The aggregate is cached whole under the user's purchases key and
// invalidated by the engine on every accepted order.
func (a *Accessor) Purchased(ctx context.Context, userID int64) (records.Purchases, error) {
	var cachedView records.Purchases
	if a.cached(ctx, cache.PurchasesKey(userID), &cachedView) {
		return cachedView, nil
	}
	view, err := a.store.AggregateOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	a.populate(ctx, cache.PurchasesKey(userID), view)
	return view, nil
}

// cached decodes the cache entry for key into dst, reporting whether it
// hit. Adapter errors and undecodable entries count as misses; a bad
// entry is dropped so the next read repopulates it.
func (a *Accessor) cached(ctx context.Context, key string, dst any) bool {
	b, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cache get failed; falling back to store")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		_ = a.cache.Delete(ctx, key)
		return false
	}
	return true
}

// populate writes v under key. Duplicate concurrent populates are
// last-writer-wins and equal for a given store state, so no locking.
func (a *Accessor) populate(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, b); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cache populate failed")
	}
}
