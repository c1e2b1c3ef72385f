// Package orders implements order placement: validate the buyer and the
// product, reserve stock with a conditional decrement, persist the order
// row, then invalidate the affected cache keys. Reads go through the
// cache-aside Accessor; the decrement always goes straight to the store.
package orders

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/yashdave727/csc301-a2/internal/cache"
	"github.com/yashdave727/csc301-a2/internal/records"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "orders").Logger()

// Rejection reasons. Anything else returned by PlaceOrder is an
// infrastructure failure and maps to a 500 at the HTTP boundary.
var (
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrUnknownUser       = errors.New("unknown user")
	ErrUnknownProduct    = errors.New("unknown product")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Store is the slice of the record store the engine and accessor need.
type Store interface {
	GetProduct(ctx context.Context, id int64) (*records.Product, error)
	GetUser(ctx context.Context, id int64) (*records.User, error)
	DecrementStock(ctx context.Context, productID int64, qty int) (bool, error)
	RestoreStock(ctx context.Context, productID int64, qty int) error
	InsertOrder(ctx context.Context, userID, productID int64, qty int) (int64, error)
	AggregateOrders(ctx context.Context, userID int64) (records.Purchases, error)
}

// CacheStore is the look-aside cache. All methods are best-effort; the
// engine and accessor treat errors as misses or soft warnings.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// PlacedEvent describes a committed order for downstream consumers.
type PlacedEvent struct {
	OrderID   int64 `json:"order_id"`
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// EventSink receives post-commit order events. Implementations must not
// block the request path; delivery is fire-and-forget.
type EventSink interface {
	OrderPlaced(ctx context.Context, ev PlacedEvent)
}

type Engine struct {
	store  Store
	cache  CacheStore
	acc    *Accessor
	events EventSink // optional
}

// NewEngine wires the engine. sink may be nil when event publishing is
// disabled.
func NewEngine(store Store, cache CacheStore, acc *Accessor, sink EventSink) *Engine {
	return &Engine{store: store, cache: cache, acc: acc, events: sink}
}

// PlaceOrder validates the request, reserves qty units of the product
// and records the order. On success it returns the new order id; on
// rejection it returns one of the sentinel errors above and has mutated
// nothing. Two requests racing for the last units cannot both succeed:
// the reservation is a single conditional statement in the store.
func (e *Engine) PlaceOrder(ctx context.Context, userID, productID int64, qty int) (int64, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("quantity %d: %w", qty, ErrInvalidQuantity)
	}

	if _, err := e.acc.User(ctx, userID); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return 0, fmt.Errorf("user %d: %w", userID, ErrUnknownUser)
		}
		return 0, fmt.Errorf("resolve user: %w", err)
	}

	p, err := e.acc.Product(ctx, productID)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return 0, fmt.Errorf("product %d: %w", productID, ErrUnknownProduct)
		}
		return 0, fmt.Errorf("resolve product: %w", err)
	}
	if p.Quantity < qty {
		return 0, fmt.Errorf("product %d has %d, want %d: %w",
			productID, p.Quantity, qty, ErrInsufficientStock)
	}

	ok, err := e.store.DecrementStock(ctx, productID, qty)
	if err != nil {
		return 0, fmt.Errorf("reserve stock: %w", err)
	}
	if !ok {
		// Lost a race since the read above. The quantity we saw is no
		// longer trustworthy (and the cached copy may be stale), so
		// re-read the store once and try again with fresh data.
		fresh, err := e.store.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, records.ErrNotFound) {
				return 0, fmt.Errorf("product %d: %w", productID, ErrUnknownProduct)
			}
			return 0, fmt.Errorf("re-read product: %w", err)
		}
		if fresh.Quantity < qty {
			return 0, fmt.Errorf("product %d has %d, want %d: %w",
				productID, fresh.Quantity, qty, ErrInsufficientStock)
		}
		ok, err = e.store.DecrementStock(ctx, productID, qty)
		if err != nil {
			return 0, fmt.Errorf("reserve stock (retry): %w", err)
		}
		if !ok {
			return 0, fmt.Errorf("product %d: %w", productID, ErrInsufficientStock)
		}
	}

	// The decrement is committed; the order row must follow it, never
	// precede it (a cancelled request may leave a decrement to undo,
	// but never an order row without one).
	orderID, err := e.store.InsertOrder(ctx, userID, productID, qty)
	if err != nil {
		// Put the reserved units back so the stock invariant holds.
		// Detached from ctx: the compensation must run even if the
		// caller is already gone.
		if rerr := e.store.RestoreStock(context.WithoutCancel(ctx), productID, qty); rerr != nil {
			logger.Error().Err(rerr).
				Int64("product_id", productID).Int("qty", qty).
				Msg("stock restore failed after order insert error")
		}
		return 0, fmt.Errorf("insert order: %w", err)
	}

	// Invalidate only after both store writes committed, so a racing
	// reader cannot repopulate the cache from pre-decrement state that
	// then outlives the invalidation.
	if err := e.cache.Delete(ctx, cache.ProductKey(productID), cache.PurchasesKey(userID)); err != nil {
		logger.Warn().Err(err).
			Int64("order_id", orderID).Int64("product_id", productID).
			Msg("cache invalidation failed; stale reads possible until next write")
	}

	if e.events != nil {
		e.events.OrderPlaced(ctx, PlacedEvent{
			OrderID: orderID, UserID: userID, ProductID: productID, Quantity: qty,
		})
	}
	return orderID, nil
}

// Purchased returns the user's purchased view (total quantity per
// product), served cache-aside.
func (e *Engine) Purchased(ctx context.Context, userID int64) (records.Purchases, error) {
	return e.acc.Purchased(ctx, userID)
}
