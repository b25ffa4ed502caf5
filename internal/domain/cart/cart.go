package cart

import (
	"context"
	"math"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when the user has no cart.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when a cart does not contain the product.
	ErrItemNotFound = errors.New("product not found in cart")
	// ErrItemExists is returned when the product is already in the cart.
	ErrItemExists = errors.New("product is already in cart")
	// ErrInvalidQuantity is returned for quantities outside 1..MaxQuantity.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 2147483647")
)

// MaxQuantity is the largest quantity a cart line can store.
const MaxQuantity = math.MaxInt32

// Cart is the single active cart of a user. Items keep insertion order.
type Cart struct {
	UserID    string
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is a cart line. ProductID is unique within a cart.
type Item struct {
	ProductID string
	Quantity  int
}

// ProductIDs returns the product ids of the cart lines in cart order.
func (c *Cart) ProductIDs() []string {
	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	return ids
}

// Repository defines cart persistence.
type Repository interface {
	// Get returns ErrNotFound when the user has no cart.
	Get(ctx context.Context, userID string) (*Cart, error)
	// AddItem creates the cart if needed and appends the item. Returns
	// ErrItemExists when the product is already present.
	AddItem(ctx context.Context, userID string, item Item) error
	// SetQuantity returns ErrItemNotFound when the product is not in the cart.
	SetQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Delete(ctx context.Context, userID string) error
}
