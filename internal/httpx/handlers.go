// Package httpx maps the HTTP surface onto the engine, the read-through
// accessor and the administrative store operations. The POST endpoints
// keep the command-style bodies of the original services
// ({"command": "create", ...}); reads are plain GETs by id.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/yashdave727/csc301-a2/internal/records"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "httpx").Logger()

const requestTimeout = 5 * time.Second

// OrderPlacer is the reservation engine surface the handlers call.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID, productID int64, qty int) (int64, error)
	Purchased(ctx context.Context, userID int64) (records.Purchases, error)
}

// RecordReader is the cache-aside read path.
type RecordReader interface {
	Product(ctx context.Context, id int64) (*records.Product, error)
	User(ctx context.Context, id int64) (*records.User, error)
}

// RecordAdmin is the administrative CRUD slice of the record store.
type RecordAdmin interface {
	CreateUser(ctx context.Context, u records.User) error
	UpdateUser(ctx context.Context, u records.User) error
	DeleteUser(ctx context.Context, id int64) error
	GetUser(ctx context.Context, id int64) (*records.User, error)
	CreateProduct(ctx context.Context, p records.Product) error
	UpdateProduct(ctx context.Context, p records.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

// Invalidator deletes cache keys after an administrative write.
type Invalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

type Handlers struct {
	Engine OrderPlacer
	Reader RecordReader
	Admin  RecordAdmin
	Cache  Invalidator
}

func (h *Handlers) Register(r *chi.Mux) {
	r.Post("/user", h.userCommand)
	r.Get("/user/{id}", h.getUser)
	r.Get("/user/purchased/{id}", h.getPurchased)
	r.Post("/product", h.productCommand)
	r.Get("/product/{id}", h.getProduct)
	r.Post("/order", h.placeOrder)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func errJSON(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func reqCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}
