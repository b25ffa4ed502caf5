package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned by AdjustStock when a decrement would
	// take the stock count below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository defines catalog persistence. LockByIDs and AdjustStock are meant
// to be called on a transaction-scoped repository.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	// LockByIDs reads the products and holds row locks on them until the
	// surrounding transaction ends.
	LockByIDs(ctx context.Context, ids []string) ([]Product, error)
	// AdjustStock adds delta to the product's stock. A negative result is
	// rejected with ErrInsufficientStock.
	AdjustStock(ctx context.Context, id string, delta int) error
}
