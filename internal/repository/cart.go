package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	getCartSQL = `SELECT user_id, created_at, updated_at FROM carts WHERE user_id = $1`

	listCartItemsSQL = `SELECT product_id, quantity FROM cart_items
		WHERE user_id = $1 ORDER BY position`

	upsertCartSQL = `INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()`

	insertCartItemSQL = `INSERT INTO cart_items (user_id, product_id, quantity) VALUES ($1, $2, $3)`

	setCartItemQuantitySQL = `UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND product_id = $2`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	touchCartSQL = `UPDATE carts SET updated_at = now() WHERE user_id = $1`

	deleteCartSQL = `DELETE FROM carts WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Items live
// in cart_items and keep insertion order through an identity column.
type CartRepository struct {
	q Querier
}

// NewCartRepository returns a CartRepository that runs on q.
func NewCartRepository(q Querier) *CartRepository {
	return &CartRepository{q: q}
}

// Get returns the cart with its items.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	var c cart.Cart
	err := r.q.QueryRow(ctx, getCartSQL, userID).Scan(&c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart of %q: %w", userID, err)
	}

	rows, err := r.q.Query(ctx, listCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items of %q: %w", userID, err)
	}
	c.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var it cart.Item
		err := row.Scan(&it.ProductID, &it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning cart items of %q: %w", userID, err)
	}
	return &c, nil
}

// AddItem creates the cart on first use and appends the item.
func (r *CartRepository) AddItem(ctx context.Context, userID string, item cart.Item) error {
	if _, err := r.q.Exec(ctx, upsertCartSQL, userID); err != nil {
		return fmt.Errorf("creating cart of %q: %w", userID, err)
	}
	if _, err := r.q.Exec(ctx, insertCartItemSQL, userID, item.ProductID, item.Quantity); err != nil {
		if isUniqueViolation(err) {
			return cart.ErrItemExists
		}
		return fmt.Errorf("adding %q to cart of %q: %w", item.ProductID, userID, err)
	}
	return nil
}

// SetQuantity replaces the quantity of one line.
func (r *CartRepository) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	tag, err := r.q.Exec(ctx, setCartItemQuantitySQL, userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("updating %q in cart of %q: %w", productID, userID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return r.touch(ctx, userID)
}

// RemoveItem deletes one line. Removing an absent product is not an error.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID string) error {
	if _, err := r.q.Exec(ctx, deleteCartItemSQL, userID, productID); err != nil {
		return fmt.Errorf("removing %q from cart of %q: %w", productID, userID, err)
	}
	return r.touch(ctx, userID)
}

// Delete removes the cart and all of its items.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.q.Exec(ctx, deleteCartSQL, userID); err != nil {
		return fmt.Errorf("deleting cart of %q: %w", userID, err)
	}
	return nil
}

func (r *CartRepository) touch(ctx context.Context, userID string) error {
	if _, err := r.q.Exec(ctx, touchCartSQL, userID); err != nil {
		return fmt.Errorf("touching cart of %q: %w", userID, err)
	}
	return nil
}
