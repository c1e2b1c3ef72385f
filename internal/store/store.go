// Package store is the authoritative record store for users, products
// and orders, backed by PostgreSQL. All operations are point operations
// or a single indexed scan; the only cross-request guarantee anything
// here provides is the conditional stock decrement, which is a single
// statement and therefore linearizable per product id.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yashdave727/csc301-a2/internal/records"
)

// ErrDuplicate is returned when an insert collides with an existing id.
var ErrDuplicate = errors.New("duplicate record")

const pgUniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool

	// preserveHistory controls what deleting a user does to their
	// order rows: true keeps them (soft-delete the user), false
	// removes them with the user.
	preserveHistory bool
}

func New(pool *pgxpool.Pool, preserveHistory bool) *Store {
	return &Store{pool: pool, preserveHistory: preserveHistory}
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*records.Product, error) {
	var p records.Product
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, description, price, quantity
		FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, records.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &p, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*records.User, error) {
	var u records.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash
		FROM users WHERE id = $1 AND NOT deleted`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, records.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

// DecrementStock subtracts qty from the product's quantity only if the
// result stays non-negative, in one conditional statement. It reports
// whether a row was updated; false means the stock was already gone.
func (s *Store) DecrementStock(ctx context.Context, productID int64, qty int) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		UPDATE products SET quantity = quantity - $2
		WHERE id = $1 AND quantity >= $2`, productID, qty)
	if err != nil {
		return false, fmt.Errorf("decrement stock product=%d: %w", productID, err)
	}
	return ct.RowsAffected() == 1, nil
}

// RestoreStock adds qty back after a decrement whose order insert
// failed. Compensation only; normal rejections never call this.
func (s *Store) RestoreStock(ctx context.Context, productID int64, qty int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE products SET quantity = quantity + $2 WHERE id = $1`, productID, qty)
	if err != nil {
		return fmt.Errorf("restore stock product=%d: %w", productID, err)
	}
	return nil
}

func (s *Store) InsertOrder(ctx context.Context, userID, productID int64, qty int) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO orders(user_id, product_id, quantity)
		VALUES ($1, $2, $3) RETURNING id`, userID, productID, qty,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order user=%d product=%d: %w", userID, productID, err)
	}
	return id, nil
}

// AggregateOrders sums ordered quantity per product across all of a
// user's orders.
func (s *Store) AggregateOrders(ctx context.Context, userID int64) (records.Purchases, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, SUM(quantity)
		FROM orders WHERE user_id = $1
		GROUP BY product_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregate orders user=%d: %w", userID, err)
	}
	defer rows.Close()

	out := records.Purchases{}
	for rows.Next() {
		var pid int64
		var qty int
		if err := rows.Scan(&pid, &qty); err != nil {
			return nil, err
		}
		out[pid] = qty
	}
	return out, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, u records.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users(id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)`, u.ID, u.Username, u.Email, u.PasswordHash)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %d: %w", u.ID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create user %d: %w", u.ID, err)
	}
	return nil
}

// UpdateUser overwrites the provided non-empty fields. Empty fields are
// left as-is, matching the partial-update behavior of the HTTP surface.
func (s *Store) UpdateUser(ctx context.Context, u records.User) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE users SET
			username      = COALESCE(NULLIF($2, ''), username),
			email         = COALESCE(NULLIF($3, ''), email),
			password_hash = COALESCE(NULLIF($4, ''), password_hash)
		WHERE id = $1 AND NOT deleted`,
		u.ID, u.Username, u.Email, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", u.ID, records.ErrNotFound)
	}
	return nil
}

// DeleteUser removes a user. With preserveHistory the row is only
// flagged deleted and the order history stays queryable; otherwise the
// user's orders go with them.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	if s.preserveHistory {
		ct, err := s.pool.Exec(ctx, `
			UPDATE users SET deleted = TRUE WHERE id = $1 AND NOT deleted`, id)
		if err != nil {
			return fmt.Errorf("delete user %d: %w", id, err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("user %d: %w", id, records.ErrNotFound)
		}
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("delete user %d orders: %w", id, err)
	}
	ct, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, records.ErrNotFound)
	}
	return tx.Commit(ctx)
}

func (s *Store) CreateProduct(ctx context.Context, p records.Product) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO products(id, name, description, price, quantity)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.Description, p.Price, p.Quantity)
	if isUniqueViolation(err) {
		return fmt.Errorf("product %d: %w", p.ID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create product %d: %w", p.ID, err)
	}
	return nil
}

// UpdateProduct overwrites the full record except the id. Quantity set
// here is an administrative restock, not a reservation path.
func (s *Store) UpdateProduct(ctx context.Context, p records.Product) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE products SET name = $2, description = $3, price = $4, quantity = $5
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price, p.Quantity)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", p.ID, records.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", id, records.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
