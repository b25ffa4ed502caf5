package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// SQLSTATE codes the repositories translate into domain errors.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so every
// repository works both on the pool and inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool. The schema
// is idempotent and safe to apply on every start.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

var _ order.Store = (*Store)(nil)

// Store runs order workflows in REPEATABLE READ transactions.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that begins transactions on pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx commits when fn returns nil and rolls back otherwise. Serialization
// failures and deadlocks are reported as order.ErrTransactionConflict.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, func(tx pgx.Tx) error {
		return fn(ctx, txRepositories{tx: tx})
	})
	if err != nil && isConflict(err) {
		return fmt.Errorf("%w: %w", order.ErrTransactionConflict, err)
	}
	return err
}

type txRepositories struct {
	tx pgx.Tx
}

func (t txRepositories) Carts() cart.Repository       { return NewCartRepository(t.tx) }
func (t txRepositories) Products() product.Repository { return NewProductRepository(t.tx) }
func (t txRepositories) Orders() order.Repository     { return NewOrderRepository(t.tx) }

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isConflict(err error) bool {
	code := pgErrorCode(err)
	return code == codeSerializationFailure || code == codeDeadlockDetected
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == codeUniqueViolation
}
