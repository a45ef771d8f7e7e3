package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"

	"agrofunnel/internal/domain"
	categoryrepo "agrofunnel/internal/repository/category"
	productrepo "agrofunnel/internal/repository/product"
	"agrofunnel/internal/retry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultSearchLimit         = 10
	MaxSearchLimit             = 50
	DefaultRecommendationLimit = 5
	MaxRecommendationLimit     = 20
	largeFarmHectares          = 100
)

// Service answers catalog questions: search, details, categories and recommendations.
type Service struct {
	products   productrepo.Repository
	categories categoryrepo.Repository
	policy     retry.Policy
	logger     *zap.Logger
}

func New(products productrepo.Repository, categories categoryrepo.Repository, policy retry.Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{products: products, categories: categories, policy: policy, logger: logger}
}

// SearchInput filters a catalog search.
type SearchInput struct {
	Query    string           `json:"query,omitempty"`
	Category string           `json:"category,omitempty"`
	MinPrice *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice *decimal.Decimal `json:"max_price,omitempty"`
	Limit    int              `json:"limit,omitempty"`
}

func (s *Service) Search(ctx context.Context, in SearchInput) ([]domain.Product, error) {
	q := domain.ProductQuery{
		Text:     strings.TrimSpace(in.Query),
		Category: domain.ProductCategory(strings.ToLower(strings.TrimSpace(in.Category))),
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Limit:    clamp(in.Limit, DefaultSearchLimit, MaxSearchLimit),
	}
	if q.Category != "" && !q.Category.Valid() {
		return nil, domain.NewError(domain.KindInvalidArguments, "unknown category %q", in.Category)
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, domain.NewError(domain.KindInvalidArguments, "min_price is greater than max_price")
	}
	if (q.MinPrice != nil && q.MinPrice.IsNegative()) || (q.MaxPrice != nil && q.MaxPrice.IsNegative()) {
		return nil, domain.NewError(domain.KindInvalidArguments, "prices cannot be negative")
	}

	var out []domain.Product
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		out, err = s.products.Search(ctx, q)
		return err
	})
	if err != nil {
		return nil, domain.Persistence(err)
	}
	return out, nil
}

// Get returns a product or a product_not_found error.
func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewError(domain.KindInvalidArguments, "product id required")
	}
	var p *domain.Product
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		p, err = s.products.Get(ctx, id)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewError(domain.KindProductNotFound, "product %s not found", id)
	}
	if err != nil {
		return nil, domain.Persistence(err)
	}
	return p, nil
}

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		out, err = s.categories.List(ctx)
		return err
	})
	if err != nil {
		return nil, domain.Persistence(err)
	}
	return out, nil
}

// Recommend ranks available products by how well their category fits the customer's
// profile. customer may be nil; products in exclude are skipped.
func (s *Service) Recommend(ctx context.Context, customer *domain.Customer, exclude []string, limit int) ([]domain.Product, error) {
	limit = clamp(limit, DefaultRecommendationLimit, MaxRecommendationLimit)

	var all []domain.Product
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		all, err = s.products.List(ctx)
		return err
	})
	if err != nil {
		return nil, domain.Persistence(err)
	}

	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	rank := map[domain.ProductCategory]int{}
	for i, c := range Affinity(customer) {
		rank[c] = i
	}
	score := func(p domain.Product) int {
		if r, ok := rank[p.Category]; ok {
			return r
		}
		return len(rank)
	}

	candidates := make([]domain.Product, 0, len(all))
	for _, p := range all {
		if skip[p.ID] || !p.IsAvailable() {
			continue
		}
		candidates = append(candidates, p)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := score(candidates[i]), score(candidates[j])
		if si != sj {
			return si < sj
		}
		if candidates[i].Stock > 0 != (candidates[j].Stock > 0) {
			return candidates[i].Stock > 0
		}
		return candidates[i].Name < candidates[j].Name
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// Affinity returns the categories that best fit a profile, strongest first.
func Affinity(c *domain.Customer) []domain.ProductCategory {
	if c == nil {
		return []domain.ProductCategory{domain.CategoryTractores, domain.CategoryImplementos}
	}
	var out []domain.ProductCategory
	sector := strings.ToLower(c.Sector)
	switch {
	case containsAny(sector, "ganad", "livestock", "vacuno", "ovino", "porcino"):
		out = append(out, domain.CategoryGanaderia)
	case containsAny(sector, "forest", "madera"):
		out = append(out, domain.CategoryForestal)
	case containsAny(sector, "jardin", "garden", "paisaj"):
		out = append(out, domain.CategoryJardineria)
	}
	if c.Hectares != nil && *c.Hectares >= largeFarmHectares {
		out = append(out, domain.CategoryTractores, domain.CategoryCosechadoras)
	}
	out = append(out, domain.CategoryImplementos, domain.CategoryRecambios)
	return out
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
