package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
)

// GetOrder returns a single order.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// ListOrders returns the user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list user orders")
	}
	return orders, nil
}

// ListAllOrders returns one page of the admin listing.
func (s *Service) ListAllOrders(ctx context.Context, q Query) (*Page, error) {
	q = q.Normalize()
	orders, total, err := s.orders.List(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return &Page{
		Orders: orders,
		Total:  total,
		Page:   q.Page,
		Limit:  q.Limit,
		Fields: q.Fields,
	}, nil
}

// UpdateStatus moves the order to status. Moving to StatusCancelled returns
// the ordered units to stock.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status Status) (*Order, error) {
	return s.mutate(ctx, "update_status", orderID, func(o *Order) error {
		if err := checkTransition(o.Status, status); err != nil {
			return err
		}
		o.Status = status
		return nil
	})
}

// Cancel cancels the caller's own order and restores its stock. Orders of
// other users are reported as ErrNotFound.
func (s *Service) Cancel(ctx context.Context, orderID, userID string) (*Order, error) {
	return s.mutate(ctx, "cancel", orderID, func(o *Order) error {
		if o.UserID != userID {
			return ErrNotFound
		}
		if err := checkTransition(o.Status, StatusCancelled); err != nil {
			return err
		}
		o.Status = StatusCancelled
		return nil
	})
}

// Deliver lets the owner confirm the order arrived.
func (s *Service) Deliver(ctx context.Context, orderID, userID string) (*Order, error) {
	return s.mutate(ctx, "deliver", orderID, func(o *Order) error {
		if o.UserID != userID {
			return ErrNotFound
		}
		if err := checkTransition(o.Status, StatusDelivered); err != nil {
			return err
		}
		o.Status = StatusDelivered
		return nil
	})
}

// Refund marks the payment refunded and restores stock unless the order was
// already cancelled.
func (s *Service) Refund(ctx context.Context, orderID string) (*Order, error) {
	return s.mutate(ctx, "refund", orderID, func(o *Order) error {
		if o.PaymentStatus == PaymentRefunded {
			return ErrAlreadyRefunded
		}
		o.PaymentStatus = PaymentRefunded
		return nil
	})
}

// mutate locks the order, applies change and persists whatever it modified in
// one transaction. Stock is returned the first time the order enters a
// cancelled or refunded state.
func (s *Service) mutate(ctx context.Context, op, orderID string, change func(o *Order) error) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order."+op,
		trace.WithAttributes(attribute.String("order.id", orderID)),
	)
	defer func() { endSpan(span, rerr) }()

	var out *Order
	err := s.inTx(ctx, op, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		before := *o
		if err := change(o); err != nil {
			return err
		}

		now := s.now()
		if o.Status != before.Status {
			if err := tx.Orders().UpdateStatus(ctx, o.ID, o.Status, now); err != nil {
				return errors.Wrap(err, "update status")
			}
			o.UpdatedAt = now
		}
		if o.PaymentStatus != before.PaymentStatus {
			if err := tx.Orders().UpdatePaymentStatus(ctx, o.ID, o.PaymentStatus, now); err != nil {
				return errors.Wrap(err, "update payment status")
			}
			o.UpdatedAt = now
		}
		if !before.stockRestored() && o.stockRestored() {
			if err := s.restoreStock(ctx, tx, o); err != nil {
				return err
			}
		}

		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Order updated",
		zap.String("op", op),
		zap.String("order_id", out.ID),
		zap.String("status", string(out.Status)),
		zap.String("payment_status", string(out.PaymentStatus)),
	)
	return out, nil
}

// restoreStock adds every line quantity back to its product. Products deleted
// since checkout are skipped.
func (s *Service) restoreStock(ctx context.Context, tx Tx, o *Order) error {
	lg := zctx.From(ctx)
	for _, it := range o.Items {
		err := tx.Products().AdjustStock(ctx, it.ProductID, it.Quantity)
		switch {
		case err == nil:
		case errors.Is(err, product.ErrNotFound):
			lg.Warn("Product missing while restoring stock",
				zap.String("order_id", o.ID),
				zap.String("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity),
			)
		default:
			return errors.Wrapf(err, "restore stock of %s", it.ProductID)
		}
	}
	s.restored.Add(ctx, 1)
	return nil
}
