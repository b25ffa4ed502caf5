package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

// PaymentStatus describes how the order was or will be paid.
type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "paid"
	PaymentCOD      PaymentStatus = "cod"
	PaymentRefunded PaymentStatus = "refunded"
)

// Order is a placed customer order. Items never change after creation; only
// Status and PaymentStatus do.
type Order struct {
	ID              string
	UserID          string
	Number          string
	Note            string
	Items           []Item
	TotalAmount     decimal.Decimal
	Status          Status
	PaymentStatus   PaymentStatus
	ShippingAddress Address
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is an order line captured at checkout time. Price is the line price
// (UnitPrice x Quantity).
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Price     decimal.Decimal `json:"price"`
}

// Address is the shipping destination.
type Address struct {
	Street     string
	City       string
	PostalCode int
}

// stockRestored reports whether a compensating stock restoration already ran
// for this order.
func (o *Order) stockRestored() bool {
	return o.Status == StatusCancelled || o.PaymentStatus == PaymentRefunded
}

// Repository defines order persistence.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// GetByID returns ErrNotFound when the order does not exist.
	GetByID(ctx context.Context, id string) (*Order, error)
	// GetForUpdate reads the order and locks it until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status, updatedAt time.Time) error
	UpdatePaymentStatus(ctx context.Context, id string, status PaymentStatus, updatedAt time.Time) error
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// List returns one page of orders matching q and the total match count.
	List(ctx context.Context, q Query) ([]Order, int, error)
}

// Tx exposes the repositories bound to one database transaction.
type Tx interface {
	Carts() cart.Repository
	Products() product.Repository
	Orders() Repository
}

// Store runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise; the transaction handle is always released.
// Conflicts detected by the database are reported as ErrTransactionConflict.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
