package order

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

const instrumentationName = "github.com/xenking/storefront/internal/domain/order"

// ErrInvalidPaymentStatus is returned when an order is placed with a payment
// status other than paid or cod.
var ErrInvalidPaymentStatus = errors.New("payment status must be paid or cod")

// Details is the checkout input supplied by the customer. Prices are never
// taken from the client.
type Details struct {
	Number          string
	Note            string
	PaymentStatus   PaymentStatus
	ShippingAddress Address
}

// Service implements checkout and the order lifecycle on top of a
// transactional Store.
type Service struct {
	store      Store
	orders     Repository
	maxRetries int
	now        func() time.Time
	newID      func() string

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	tracer   trace.Tracer
	placed   metric.Int64Counter
	rejected metric.Int64Counter
	retries  metric.Int64Counter
	restored metric.Int64Counter
}

// Option configures a Service.
type Option func(s *Service)

// WithMaxRetries sets how many times a conflicting transaction is retried.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithMeterProvider sets the meter provider for workflow counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider for workflow spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// NewService creates an order Service. Reads go through orders, every write
// goes through store.
func NewService(store Store, orders Repository, opts ...Option) (*Service, error) {
	s := &Service{
		store:      store,
		orders:     orders,
		maxRetries: 3,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID:      func() string { return uuid.New().String() },

		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	meter := s.meterProvider.Meter(instrumentationName)

	var err error
	if s.placed, err = meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders created by checkout"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.placed")
	}
	if s.rejected, err = meter.Int64Counter("orders.checkout.rejected",
		metric.WithDescription("Checkouts that did not produce an order, by reason"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.checkout.rejected")
	}
	if s.retries, err = meter.Int64Counter("orders.tx.retries",
		metric.WithDescription("Transactions retried after a conflict"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.tx.retries")
	}
	if s.restored, err = meter.Int64Counter("orders.stock.restored",
		metric.WithDescription("Orders whose stock was returned to the catalog"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.stock.restored")
	}

	return s, nil
}

// PlaceOrder converts the user's cart into an order. Stock validation, order
// creation, stock decrement and cart deletion happen in one transaction:
// either all of them are applied or none is.
func (s *Service) PlaceOrder(ctx context.Context, userID string, d Details) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer func() { endSpan(span, rerr) }()

	if d.PaymentStatus != PaymentPaid && d.PaymentStatus != PaymentCOD {
		return nil, ErrInvalidPaymentStatus
	}

	var placed *Order
	err := s.inTx(ctx, "place_order", func(ctx context.Context, tx Tx) error {
		o, err := s.checkout(ctx, tx, userID, d)
		if err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(err))))
		return nil, err
	}

	s.placed.Add(ctx, 1)
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", placed.ID),
		zap.String("user_id", userID),
		zap.Int("items", len(placed.Items)),
		zap.Stringer("total", placed.TotalAmount),
	)
	return placed, nil
}

// checkout runs a single attempt of the checkout steps on tx.
func (s *Service) checkout(ctx context.Context, tx Tx, userID string, d Details) (*Order, error) {
	c, err := tx.Carts().Get(ctx, userID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, errors.Wrap(err, "load cart")
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// Row locks keep the stock values read here valid until commit.
	locked, err := tx.Products().LockByIDs(ctx, c.ProductIDs())
	if err != nil {
		return nil, errors.Wrap(err, "lock products")
	}
	byID := make(map[string]product.Product, len(locked))
	for _, p := range locked {
		byID[p.ID] = p
	}

	items := make([]Item, len(c.Items))
	total := decimal.Zero
	for i, line := range c.Items {
		p, ok := byID[line.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		if line.Quantity > p.Stock {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: line.Quantity,
				Available: p.Stock,
			}
		}

		price := p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		items[i] = Item{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
			Price:     price,
		}
		total = total.Add(price)
	}
	if total.GreaterThan(product.MaxPrice) {
		return nil, ErrAmountTooLarge
	}

	now := s.now()
	o := &Order{
		ID:              s.newID(),
		UserID:          userID,
		Number:          d.Number,
		Note:            d.Note,
		Items:           items,
		TotalAmount:     total.Round(2),
		Status:          StatusPending,
		PaymentStatus:   d.PaymentStatus,
		ShippingAddress: d.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.Orders().Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	for _, it := range items {
		if err := tx.Products().AdjustStock(ctx, it.ProductID, -it.Quantity); err != nil {
			if errors.Is(err, product.ErrInsufficientStock) {
				return nil, &InsufficientStockError{
					ProductID: it.ProductID,
					Name:      it.Name,
					Requested: it.Quantity,
					Available: byID[it.ProductID].Stock,
				}
			}
			return nil, errors.Wrapf(err, "decrement stock of %s", it.ProductID)
		}
	}

	if err := tx.Carts().Delete(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "delete cart")
	}
	return o, nil
}

// inTx runs fn in a store transaction, retrying with exponential backoff
// while the store reports ErrTransactionConflict.
func (s *Service) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx Tx) error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 10 * time.Millisecond
	eb.MaxInterval = 200 * time.Millisecond
	eb.Reset()

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.maxRetries)), ctx)
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := s.attempt(ctx, op, attempt, fn)
		if err != nil && !errors.Is(err, ErrTransactionConflict) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		s.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
		zctx.From(ctx).Warn("Transaction conflict, retrying",
			zap.String("op", op),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	})
}

// attempt runs one store transaction under its own span.
func (s *Service) attempt(ctx context.Context, op string, n int, fn func(ctx context.Context, tx Tx) error) (rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.tx."+op,
		trace.WithAttributes(attribute.Int("tx.attempt", n)),
	)
	defer func() { endSpan(span, rerr) }()

	return s.store.InTx(ctx, fn)
}

func rejectReason(err error) string {
	var (
		stockErr   *InsufficientStockError
		missingErr *ProductNotFoundError
	)
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.As(err, &missingErr):
		return "product_not_found"
	case errors.Is(err, ErrTransactionConflict):
		return "conflict"
	case errors.Is(err, ErrAmountTooLarge):
		return "amount_too_large"
	default:
		return "error"
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
