package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/product"
)

const catalog = `[
	{"id": "p1", "name": "Waffle", "price": "6.505", "stock": 4},
	{"name": "Brownie", "price": 4.5, "stock": 0}
]`

func TestReadCatalog(t *testing.T) {
	products, err := readCatalog(strings.NewReader(catalog), false)
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "p1", products[0].ID)
	assert.True(t, decimal.RequireFromString("6.51").Equal(products[0].Price))
	assert.Equal(t, 4, products[0].Stock)
	assert.NotEmpty(t, products[1].ID)
	assert.False(t, products[1].CreatedAt.IsZero())
}

func TestReadCatalog_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	_, err := zw.Write([]byte(catalog))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	products, err := readCatalog(&buf, true)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestReadCatalog_Invalid(t *testing.T) {
	_, err := readCatalog(strings.NewReader(`[{"name": "X", "price": "-1", "stock": 1}]`), false)
	require.ErrorIs(t, err, product.ErrInvalid)

	_, err = readCatalog(strings.NewReader(`{`), false)
	require.Error(t, err)
}

func TestLoadCatalog_Embedded(t *testing.T) {
	products, err := loadCatalog("")
	require.NoError(t, err)
	assert.Len(t, products, 9)
}
