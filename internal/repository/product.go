package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	productColumns = `id, name, description, price, stock, image_url, created_at, updated_at`

	createProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description, price = EXCLUDED.price,
			stock = EXCLUDED.stock, image_url = EXCLUDED.image_url, updated_at = EXCLUDED.updated_at`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY created_at, id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`

	// Rows are locked in id order so concurrent checkouts cannot deadlock.
	lockProductsByIDsSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	adjustStockSQL = `UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	q Querier
}

// NewProductRepository returns a ProductRepository that runs on q.
func NewProductRepository(q Querier) *ProductRepository {
	return &ProductRepository{q: q}
}

// Create inserts the product, replacing an existing product with the same id.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.q.Exec(ctx, createProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.ImageURL, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// List returns the whole catalog in creation order.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.q.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.q.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.q.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// LockByIDs is GetByIDs with FOR UPDATE row locks.
func (r *ProductRepository) LockByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.q.Query(ctx, lockProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("locking products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// AdjustStock applies delta only when the result stays non-negative.
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) error {
	tag, err := r.q.Exec(ctx, adjustStockSQL, id, delta)
	if err != nil {
		return fmt.Errorf("adjusting stock of %q: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.q.QueryRow(ctx, productExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking product %q: %w", id, err)
	}
	if !exists {
		return product.ErrNotFound
	}
	return product.ErrInsufficientStock
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
