package catalog

import (
	"context"
	"testing"
	"time"

	"agrofunnel/internal/domain"
	categoryrepo "agrofunnel/internal/repository/category"
	productrepo "agrofunnel/internal/repository/product"
	"agrofunnel/internal/retry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	products := productrepo.NewMemory()
	lead := 15
	for _, p := range []domain.Product{
		{ID: "tractor_x1000", Name: "Tractor Serie X1000", Category: domain.CategoryTractores, Description: "Tractor de 120 CV", Price: decimal.NewFromInt(75000), Currency: "EUR", Stock: 3, LeadTimeDays: &lead},
		{ID: "cosechadora_pro", Name: "Cosechadora Pro", Category: domain.CategoryCosechadoras, Price: decimal.NewFromInt(250000), Currency: "EUR", Stock: 1},
		{ID: "arado_3000", Name: "Arado Reversible 3000", Category: domain.CategoryImplementos, Description: "Arado para tractor", Price: decimal.NewFromInt(15000), Currency: "EUR", Stock: 5},
		{ID: "ordenadora_v2", Name: "Ordeñadora V2", Category: domain.CategoryGanaderia, Price: decimal.NewFromInt(9000), Currency: "EUR", Stock: 2},
		{ID: "filtro_aceite", Name: "Filtro de aceite", Category: domain.CategoryRecambios, Price: decimal.NewFromInt(45), Currency: "EUR"},
	} {
		_, err := products.Upsert(ctx, p)
		require.NoError(t, err)
	}
	categories := categoryrepo.NewMemory()
	_, err := categories.Upsert(ctx, domain.Category{ID: domain.CategoryTractores, Name: "Tractores", SortOrder: 1})
	require.NoError(t, err)
	return New(products, categories, retry.Policy{MaxAttempts: 1, AttemptTimeout: time.Second}, nil)
}

func ids(ps []domain.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestSearch(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	got, err := svc.Search(ctx, SearchInput{Query: "tractor"})
	require.NoError(t, err)
	assert.Equal(t, []string{"arado_3000", "tractor_x1000"}, ids(got))

	got, err = svc.Search(ctx, SearchInput{Category: "Cosechadoras"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cosechadora_pro"}, ids(got))

	got, err = svc.Search(ctx, SearchInput{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestSearchValidation(t *testing.T) {
	svc := newService(t)
	low, high := decimal.NewFromInt(10), decimal.NewFromInt(5)
	negative := decimal.NewFromInt(-1)

	for _, in := range []SearchInput{
		{Category: "barcos"},
		{MinPrice: &low, MaxPrice: &high},
		{MinPrice: &negative},
	} {
		_, err := svc.Search(context.Background(), in)
		assert.ErrorIs(t, err, domain.ErrInvalidArguments)
	}
}

func TestGet(t *testing.T) {
	svc := newService(t)
	p, err := svc.Get(context.Background(), "tractor_x1000")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	_, err = svc.Get(context.Background(), "tractor_x9")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 10, clamp(0, 10, 50))
	assert.Equal(t, 50, clamp(51, 10, 50))
	assert.Equal(t, 7, clamp(7, 10, 50))
}

func TestAffinity(t *testing.T) {
	hectares := 150.0
	assert.Equal(t,
		[]domain.ProductCategory{domain.CategoryTractores, domain.CategoryCosechadoras, domain.CategoryImplementos, domain.CategoryRecambios},
		Affinity(&domain.Customer{Sector: "olivar", Hectares: &hectares}))
	assert.Equal(t,
		[]domain.ProductCategory{domain.CategoryGanaderia, domain.CategoryImplementos, domain.CategoryRecambios},
		Affinity(&domain.Customer{Sector: "Ganadería vacuno"}))
}

func TestRecommendRanksByProfile(t *testing.T) {
	svc := newService(t)
	hectares := 150.0
	juan := &domain.Customer{ID: "cust_juan", Sector: "olivar", Hectares: &hectares}

	got, err := svc.Recommend(context.Background(), juan, []string{"tractor_x1000"}, 3)
	require.NoError(t, err)
	// filtro_aceite has no stock and no lead time so it is never offered
	assert.Equal(t, []string{"cosechadora_pro", "arado_3000", "ordenadora_v2"}, ids(got))

	rancher := &domain.Customer{ID: "cust_pedro", Sector: "ganaderia"}
	got, err = svc.Recommend(context.Background(), rancher, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ordenadora_v2"}, ids(got))
}

func TestCategories(t *testing.T) {
	svc := newService(t)
	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, domain.CategoryTractores, cats[0].ID)
}
