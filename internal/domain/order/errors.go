package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when the order does not exist or does not
	// belong to the caller.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyCart is returned when checkout finds no cart or an empty one.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrAlreadyRefunded is returned when refunding an order twice.
	ErrAlreadyRefunded = errors.New("order payment is already refunded")
	// ErrTransactionConflict is returned when the store aborted the
	// transaction because of a concurrent write. The operation can be retried.
	ErrTransactionConflict = errors.New("transaction conflict")
	// ErrAmountTooLarge is returned when the order total cannot be stored.
	ErrAmountTooLarge = errors.New("order total exceeds the maximum amount")
)

// InsufficientStockError indicates a cart line asks for more units than are
// in stock.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q (%s): requested %d, available %d",
		e.Name, e.ProductID, e.Requested, e.Available)
}

// ProductNotFoundError indicates a cart line references a product that no
// longer exists.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidTransitionError indicates a status change the lifecycle forbids.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot update status from %q to %q", e.From, e.To)
}
