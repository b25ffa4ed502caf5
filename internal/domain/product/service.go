package product

import (
	"context"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInvalid is returned for a price or stock outside the storable range.
var ErrInvalid = errors.New("price or stock out of range")

// Storage limits of the price and stock columns.
var (
	MaxPrice = decimal.RequireFromString("9999999999.99")
	MaxStock = math.MaxInt32
)

// Input describes a new catalog item.
type Input struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURL    string
}

// Service manages the catalog.
type Service struct {
	products Repository
	now      func() time.Time
}

// NewService creates a catalog Service.
func NewService(products Repository) *Service {
	return &Service{
		products: products,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Create adds a product to the catalog.
func (s *Service) Create(ctx context.Context, in Input) (*Product, error) {
	if in.Price.IsNegative() || in.Price.Round(2).GreaterThan(MaxPrice) ||
		in.Stock < 0 || in.Stock > MaxStock {
		return nil, ErrInvalid
	}
	now := s.now()
	p := &Product{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
		ImageURL:    in.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	zctx.From(ctx).Info("Product created",
		zap.String("product_id", p.ID),
		zap.Int("stock", p.Stock),
	)
	return p, nil
}

// List returns the whole catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.products.GetByID(ctx, id)
}
