package records

import "errors"

// ErrNotFound is returned by lookups for ids that have no row. Callers
// decide whether that is a 404 or a typed rejection.
var ErrNotFound = errors.New("record not found")

type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

// Order rows are append-only: the reservation engine inserts them and
// nothing ever updates or deletes one.
type Order struct {
	ID        int64 `json:"id"`
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Purchases is a user's purchased view: total quantity per product id
// across all of their orders.
type Purchases map[int64]int
