package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/product"
)

// ProductReader is the part of the catalog the cart needs.
type ProductReader interface {
	GetByID(ctx context.Context, id string) (*product.Product, error)
}

// Service implements the cart operations exposed to users.
type Service struct {
	carts    Repository
	products ProductReader
}

// NewService creates a cart Service.
func NewService(carts Repository, products ProductReader) *Service {
	return &Service{
		carts:    carts,
		products: products,
	}
}

// AddToCart puts a product into the user's cart, creating the cart on the
// first add. A zero quantity means one.
func (s *Service) AddToCart(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 || quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	if err := s.carts.AddItem(ctx, userID, Item{ProductID: productID, Quantity: quantity}); err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}
	return s.carts.Get(ctx, userID)
}

// GetCart returns the user's cart.
func (s *Service) GetCart(ctx context.Context, userID string) (*Cart, error) {
	return s.carts.Get(ctx, userID)
}

// UpdateQuantity sets the quantity of a product already in the cart.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity < 1 || quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	if _, err := s.carts.Get(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.carts.SetQuantity(ctx, userID, productID, quantity); err != nil {
		return nil, errors.Wrap(err, "set quantity")
	}
	return s.carts.Get(ctx, userID)
}

// RemoveItem drops a product from the cart. Removing a product that is not
// in the cart leaves the cart unchanged.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	if _, err := s.carts.Get(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.carts.RemoveItem(ctx, userID, productID); err != nil {
		return nil, errors.Wrap(err, "remove item")
	}
	return s.carts.Get(ctx, userID)
}
