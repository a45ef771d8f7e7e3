package seed

import (
	"context"
	"testing"

	categoryrepo "agrofunnel/internal/repository/category"
	custrepo "agrofunnel/internal/repository/customer"
	productrepo "agrofunnel/internal/repository/product"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultCatalogIsIdempotent(t *testing.T) {
	ctx := context.Background()
	products := productrepo.NewMemory()
	customers := custrepo.NewMemory()
	targets := Targets{Products: products, Categories: categoryrepo.NewMemory(), Customers: customers}

	sum, err := Apply(ctx, targets, "EUR")
	require.NoError(t, err)
	assert.Equal(t, Summary{Categories: 8, Products: 3, Customers: 1}, sum)

	again, err := Apply(ctx, targets, "EUR")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Customers)

	tractor, err := products.Get(ctx, "tractor_x1000")
	require.NoError(t, err)
	assert.True(t, tractor.Price.Equal(decimal.NewFromInt(75000)))
	assert.Equal(t, "EUR", tractor.Currency)
	require.NotNil(t, tractor.LeadTimeDays)
	assert.Equal(t, 15, *tractor.LeadTimeDays)

	juan, err := customers.GetByEmail(ctx, "juan@example.com")
	require.NoError(t, err)
	assert.True(t, juan.TotalPurchases.Equal(decimal.NewFromInt(15000)))
}

func TestApplyYAMLRejectsBadRows(t *testing.T) {
	ctx := context.Background()
	targets := Targets{Products: productrepo.NewMemory()}

	_, err := ApplyYAML(ctx, targets, []byte("products:\n  - {id: x, name: X, category: naves, price: \"1\"}\n"), "EUR")
	assert.ErrorContains(t, err, "unknown category")

	_, err = ApplyYAML(ctx, targets, []byte("products:\n  - {id: x, name: X, category: tractores, price: cheap}\n"), "EUR")
	assert.ErrorContains(t, err, "invalid price")

	_, err = ApplyYAML(ctx, targets, []byte("products: ["), "EUR")
	assert.ErrorContains(t, err, "parse seed")
}
