package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/order"
)

const (
	orderColumns = `id, user_id, number, note, items, total_amount, status, payment_status,
		street, city, postal_code, created_at, updated_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderForUpdateSQL = getOrderByIDSQL + ` FOR UPDATE`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	updateOrderPaymentStatusSQL = `UPDATE orders SET payment_status = $2, updated_at = $3 WHERE id = $1`
)

// sortColumns maps API sort fields to columns.
var sortColumns = map[string]string{
	order.SortCreatedAt:   "created_at",
	order.SortUpdatedAt:   "updated_at",
	order.SortTotalAmount: "total_amount",
	order.SortStatus:      "status",
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository returns an OrderRepository that runs on q.
func NewOrderRepository(q Querier) *OrderRepository {
	return &OrderRepository{q: q}
}

// Create persists a new order. The order items are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.q.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, o.Number, o.Note, itemsJSON, o.TotalAmount,
		string(o.Status), string(o.PaymentStatus),
		o.ShippingAddress.Street, o.ShippingAddress.City, o.ShippingAddress.PostalCode,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

// GetByID returns a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByIDSQL, id)
}

// GetForUpdate returns the order and holds its row lock until the
// transaction ends.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderForUpdateSQL, id)
}

func (r *OrderRepository) getOne(ctx context.Context, sql, id string) (*order.Order, error) {
	rows, err := r.q.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// UpdateStatus sets the lifecycle status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status, updatedAt time.Time) error {
	return r.update(ctx, updateOrderStatusSQL, id, string(status), updatedAt)
}

// UpdatePaymentStatus sets the payment status.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id string, status order.PaymentStatus, updatedAt time.Time) error {
	return r.update(ctx, updateOrderPaymentStatusSQL, id, string(status), updatedAt)
}

func (r *OrderRepository) update(ctx context.Context, sql, id, value string, updatedAt time.Time) error {
	tag, err := r.q.Exec(ctx, sql, id, value, updatedAt)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.q.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// List returns one page of orders and the number of orders matching q. The
// count and page queries run concurrently, so List needs a pool-backed
// repository.
func (r *OrderRepository) List(ctx context.Context, q order.Query) ([]order.Order, int, error) {
	lq := buildListQuery(q)

	var (
		orders []order.Order
		total  int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.q.QueryRow(ctx, lq.countSQL, lq.args...).Scan(&total); err != nil {
			return fmt.Errorf("counting orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := r.q.Query(ctx, lq.pageSQL, lq.pageArgs...)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}
		orders, err = pgx.CollectRows(rows, scanOrder)
		if err != nil {
			return fmt.Errorf("scanning orders: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

type listQuery struct {
	countSQL string
	pageSQL  string
	args     []any
	pageArgs []any
}

// buildListQuery renders the admin listing as a count query and a page query
// sharing the same WHERE clause. Values are always bound as parameters; sort
// columns come from sortColumns only.
func buildListQuery(q order.Query) listQuery {
	q = q.Normalize()

	var (
		where []string
		args  []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.Search != "" {
		p := bind("%" + escapeLike(q.Search) + "%")
		where = append(where, fmt.Sprintf(
			"(number ILIKE %[1]s OR note ILIKE %[1]s OR street ILIKE %[1]s OR city ILIKE %[1]s)", p))
	}
	if q.Filter.Status != "" {
		where = append(where, "status = "+bind(string(q.Filter.Status)))
	}
	if q.Filter.PaymentStatus != "" {
		where = append(where, "payment_status = "+bind(string(q.Filter.PaymentStatus)))
	}
	if q.Filter.UserID != "" {
		where = append(where, "user_id = "+bind(q.Filter.UserID))
	}

	var whereSQL string
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	orderBy := make([]string, 0, len(q.Sort)+1)
	for _, s := range q.Sort {
		col, ok := sortColumns[s.Field]
		if !ok {
			continue
		}
		if s.Desc {
			col += " DESC"
		}
		orderBy = append(orderBy, col)
	}
	orderBy = append(orderBy, "id")

	pageArgs := append(append([]any(nil), args...), q.Limit, q.Offset())
	n := len(args)

	return listQuery{
		countSQL: "SELECT count(*) FROM orders" + whereSQL,
		pageSQL: "SELECT " + orderColumns + " FROM orders" + whereSQL +
			" ORDER BY " + strings.Join(orderBy, ", ") +
			fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2),
		args:     args,
		pageArgs: pageArgs,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		items         []byte
		status, pstat string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.Number, &o.Note, &items, &o.TotalAmount, &status, &pstat,
		&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.PostalCode,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(pstat)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items of order %q: %w", o.ID, err)
	}
	return o, nil
}
