package product

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProductRepo struct {
	created []Product
	byID    map[string]*Product
	err     error
}

func (m *mockProductRepo) Create(_ context.Context, p *Product) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, *p)
	return nil
}

func (m *mockProductRepo) List(_ context.Context) ([]Product, error) {
	return m.created, m.err
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(context.Context, []string) ([]Product, error) { return nil, nil }

func (m *mockProductRepo) LockByIDs(context.Context, []string) ([]Product, error) { return nil, nil }

func (m *mockProductRepo) AdjustStock(context.Context, string, int) error { return nil }

func TestCreate(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		repo := &mockProductRepo{}
		svc := NewService(repo)

		p, err := svc.Create(context.Background(), Input{
			Name:  "Widget",
			Price: decimal.RequireFromString("9.999"),
			Stock: 3,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "10", p.Price.String())
		assert.False(t, p.CreatedAt.IsZero())
		require.Len(t, repo.created, 1)
	})
	t.Run("Negative", func(t *testing.T) {
		svc := NewService(&mockProductRepo{})

		_, err := svc.Create(context.Background(), Input{Name: "x", Price: decimal.NewFromInt(-1)})
		require.ErrorIs(t, err, ErrInvalid)
		_, err = svc.Create(context.Background(), Input{Name: "x", Stock: -1})
		require.ErrorIs(t, err, ErrInvalid)
	})
	t.Run("OutOfRange", func(t *testing.T) {
		svc := NewService(&mockProductRepo{})

		_, err := svc.Create(context.Background(), Input{Name: "x", Price: decimal.RequireFromString("10000000000")})
		require.ErrorIs(t, err, ErrInvalid)
		_, err = svc.Create(context.Background(), Input{Name: "x", Price: decimal.RequireFromString("9999999999.999")})
		require.ErrorIs(t, err, ErrInvalid)
		_, err = svc.Create(context.Background(), Input{Name: "x", Stock: MaxStock + 1})
		require.ErrorIs(t, err, ErrInvalid)

		_, err = svc.Create(context.Background(), Input{Name: "x", Price: MaxPrice, Stock: MaxStock})
		require.NoError(t, err)
	})
	t.Run("RepoError", func(t *testing.T) {
		svc := NewService(&mockProductRepo{err: errors.New("db down")})

		_, err := svc.Create(context.Background(), Input{Name: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create product")
	})
}

func TestGet(t *testing.T) {
	svc := NewService(&mockProductRepo{byID: map[string]*Product{"p1": {ID: "p1"}}})

	p, err := svc.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	_, err = svc.Get(context.Background(), "p2")
	require.ErrorIs(t, err, ErrNotFound)
}
