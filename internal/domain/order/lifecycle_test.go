package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// placed creates an order of qty units of product "a" (stock 5) for u1.
func placed(t *testing.T, qty int) (*Service, *memStore, *Order) {
	t.Helper()

	store := newMemStore()
	store.addProduct("a", "Alpha", "10", 5)
	store.addToCart("u1", "a", qty)
	svc := newTestService(t, store)

	o, err := svc.PlaceOrder(context.Background(), "u1", testDetails())
	require.NoError(t, err)
	return svc, store, o
}

func TestCheckTransition(t *testing.T) {
	for _, tt := range []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusPackaging, true},
		{StatusPending, StatusOnTheWay, true},
		{StatusPackaging, StatusReadyToShip, true},
		{StatusOnTheWay, StatusDelivered, true},
		{StatusPending, StatusCancelled, true},
		{StatusOnTheWay, StatusCancelled, true},
		{StatusPackaging, StatusPackaging, true},
		{StatusCancelled, StatusCancelled, true},
		{StatusOnTheWay, StatusPackaging, false},
		{StatusPackaging, StatusPending, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusDelivered, StatusOnTheWay, false},
		{StatusPending, Status("lost"), false},
	} {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := checkTransition(tt.from, tt.to)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			var trErr *InvalidTransitionError
			require.ErrorAs(t, err, &trErr)
			assert.Equal(t, tt.from, trErr.From)
			assert.Equal(t, tt.to, trErr.To)
		})
	}
}

func TestUpdateStatus_Forward(t *testing.T) {
	svc, _, o := placed(t, 1)
	ctx := context.Background()

	got, err := svc.UpdateStatus(ctx, o.ID, StatusOnTheWay)
	require.NoError(t, err)
	assert.Equal(t, StatusOnTheWay, got.Status)
	assert.True(t, got.UpdatedAt.After(o.UpdatedAt))

	_, err = svc.UpdateStatus(ctx, o.ID, StatusPackaging)
	var trErr *InvalidTransitionError
	require.ErrorAs(t, err, &trErr)

	stored, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOnTheWay, stored.Status)
}

func TestUpdateStatus_SameStatusIsNoop(t *testing.T) {
	svc, _, o := placed(t, 1)

	got, err := svc.UpdateStatus(context.Background(), o.ID, StatusPending)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, o.UpdatedAt, got.UpdatedAt)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc, _, _ := placed(t, 1)

	_, err := svc.UpdateStatus(context.Background(), "missing", StatusPackaging)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_CancelRestoresStock(t *testing.T) {
	svc, store, o := placed(t, 3)
	require.Equal(t, 2, store.stock("a"))

	got, err := svc.UpdateStatus(context.Background(), o.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, 5, store.stock("a"))

	// Cancelled is terminal and stock is restored only once.
	_, err = svc.UpdateStatus(context.Background(), o.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 5, store.stock("a"))

	_, err = svc.UpdateStatus(context.Background(), o.ID, StatusPackaging)
	var trErr *InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
}

func TestCancel(t *testing.T) {
	t.Run("Owner", func(t *testing.T) {
		svc, store, o := placed(t, 3)

		got, err := svc.Cancel(context.Background(), o.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
		assert.Equal(t, 5, store.stock("a"))
	})
	t.Run("OtherUser", func(t *testing.T) {
		svc, store, o := placed(t, 3)

		_, err := svc.Cancel(context.Background(), o.ID, "u2")
		require.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 2, store.stock("a"))
	})
	t.Run("Delivered", func(t *testing.T) {
		svc, store, o := placed(t, 3)
		_, err := svc.Deliver(context.Background(), o.ID, "u1")
		require.NoError(t, err)

		_, err = svc.Cancel(context.Background(), o.ID, "u1")
		var trErr *InvalidTransitionError
		require.ErrorAs(t, err, &trErr)
		assert.Equal(t, 2, store.stock("a"))
	})
	t.Run("DeletedProduct", func(t *testing.T) {
		svc, store, o := placed(t, 3)
		store.deleteProduct("a")

		got, err := svc.Cancel(context.Background(), o.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
	})
}

func TestDeliver(t *testing.T) {
	svc, store, o := placed(t, 2)

	_, err := svc.Deliver(context.Background(), o.ID, "u2")
	require.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Deliver(context.Background(), o.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)
	assert.Equal(t, 3, store.stock("a"))
}

func TestRefund(t *testing.T) {
	svc, store, o := placed(t, 3)
	ctx := context.Background()

	got, err := svc.Refund(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentRefunded, got.PaymentStatus)
	assert.Equal(t, 5, store.stock("a"))

	_, err = svc.Refund(ctx, o.ID)
	require.ErrorIs(t, err, ErrAlreadyRefunded)
	assert.Equal(t, 5, store.stock("a"))

	// Cancelling a refunded order does not return stock twice.
	_, err = svc.Cancel(ctx, o.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, store.stock("a"))
}

func TestRefund_AfterCancel(t *testing.T) {
	svc, store, o := placed(t, 3)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, o.ID, "u1")
	require.NoError(t, err)
	require.Equal(t, 5, store.stock("a"))

	got, err := svc.Refund(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentRefunded, got.PaymentStatus)
	assert.Equal(t, 5, store.stock("a"))
}

func TestListOrders(t *testing.T) {
	store := newMemStore()
	store.addProduct("a", "Alpha", "10", 50)
	svc := newTestService(t, store)
	ctx := context.Background()

	var ids []string
	for _, user := range []string{"u1", "u2", "u1"} {
		store.addToCart(user, "a", 1)
		o, err := svc.PlaceOrder(ctx, user, testDetails())
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}

	mine, err := svc.ListOrders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, ids[2], mine[0].ID)
	assert.Equal(t, ids[0], mine[1].ID)

	none, err := svc.ListOrders(ctx, "u3")
	require.NoError(t, err)
	assert.Empty(t, none)

	page, err := svc.ListAllOrders(ctx, Query{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, ids[2], page.Orders[0].ID)

	page, err = svc.ListAllOrders(ctx, Query{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, ids[0], page.Orders[0].ID)

	page, err = svc.ListAllOrders(ctx, Query{Filter: Filter{UserID: "u2"}})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, DefaultLimit, page.Limit)
}
