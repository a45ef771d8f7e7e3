// Package seed loads the demo catalog and customers used by local and in-memory deployments.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"agrofunnel/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type productWriter interface {
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}

type categoryWriter interface {
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
}

type customerWriter interface {
	Create(ctx context.Context, c domain.Customer) (*domain.Customer, error)
}

// Targets are the repositories seed data is written to.
type Targets struct {
	Products   productWriter
	Categories categoryWriter
	Customers  customerWriter
}

// Summary counts what a run wrote. Customers that already existed are skipped.
type Summary struct {
	Categories int
	Products   int
	Customers  int
}

type document struct {
	Categories []categorySeed `yaml:"categories"`
	Products   []productSeed  `yaml:"products"`
	Customers  []customerSeed `yaml:"customers"`
}

type categorySeed struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type productSeed struct {
	ID                 string                 `yaml:"id"`
	Name               string                 `yaml:"name"`
	Category           string                 `yaml:"category"`
	Brand              string                 `yaml:"brand"`
	Model              string                 `yaml:"model"`
	Description        string                 `yaml:"description"`
	Price              string                 `yaml:"price"`
	Currency           string                 `yaml:"currency"`
	Stock              int                    `yaml:"stock"`
	LeadTimeDays       *int                   `yaml:"lead_time_days"`
	WarrantyMonths     int                    `yaml:"warranty_months"`
	FinancingAvailable bool                   `yaml:"financing_available"`
	Specifications     map[string]interface{} `yaml:"specifications"`
}

type customerSeed struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Email          string   `yaml:"email"`
	Phone          string   `yaml:"phone"`
	Type           string   `yaml:"customer_type"`
	Sector         string   `yaml:"sector"`
	Location       string   `yaml:"location"`
	Hectares       *float64 `yaml:"hectares"`
	TotalPurchases string   `yaml:"total_purchases"`
}

// Apply writes the embedded demo catalog. It is idempotent.
func Apply(ctx context.Context, t Targets, currency string) (Summary, error) {
	return ApplyYAML(ctx, t, defaultCatalog, currency)
}

// ApplyYAML writes the catalog described by raw. Products without a currency get currency.
func ApplyYAML(ctx context.Context, t Targets, raw []byte, currency string) (Summary, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Summary{}, fmt.Errorf("parse seed: %w", err)
	}

	var sum Summary
	if t.Categories != nil {
		for i, c := range doc.Categories {
			category := domain.Category{ID: domain.ProductCategory(c.ID), Name: c.Name, Description: c.Description, SortOrder: i}
			if !category.ID.Valid() {
				return sum, fmt.Errorf("unknown category %q", c.ID)
			}
			if _, err := t.Categories.Upsert(ctx, category); err != nil {
				return sum, fmt.Errorf("upsert category %s: %w", c.ID, err)
			}
			sum.Categories++
		}
	}

	if t.Products != nil {
		for _, p := range doc.Products {
			product, err := p.toDomain(currency)
			if err != nil {
				return sum, err
			}
			if _, err := t.Products.Upsert(ctx, product); err != nil {
				return sum, fmt.Errorf("upsert product %s: %w", p.ID, err)
			}
			sum.Products++
		}
	}

	if t.Customers != nil {
		for _, c := range doc.Customers {
			customer, err := c.toDomain()
			if err != nil {
				return sum, err
			}
			if _, err := t.Customers.Create(ctx, customer); err != nil {
				if errors.Is(err, domain.ErrAlreadyExists) {
					continue
				}
				return sum, fmt.Errorf("create customer %s: %w", c.ID, err)
			}
			sum.Customers++
		}
	}
	return sum, nil
}

func (p productSeed) toDomain(currency string) (domain.Product, error) {
	if p.ID == "" || p.Name == "" {
		return domain.Product{}, fmt.Errorf("product %q: id and name are required", p.ID)
	}
	category := domain.ProductCategory(p.Category)
	if !category.Valid() {
		return domain.Product{}, fmt.Errorf("product %s: unknown category %q", p.ID, p.Category)
	}
	price, err := decimal.NewFromString(p.Price)
	if err != nil || price.IsNegative() {
		return domain.Product{}, fmt.Errorf("product %s: invalid price %q", p.ID, p.Price)
	}
	if p.Currency != "" {
		currency = p.Currency
	}
	return domain.Product{
		ID:                 p.ID,
		Name:               p.Name,
		Category:           category,
		Brand:              p.Brand,
		Model:              p.Model,
		Description:        p.Description,
		Price:              price,
		Currency:           currency,
		Specifications:     p.Specifications,
		Stock:              p.Stock,
		LeadTimeDays:       p.LeadTimeDays,
		WarrantyMonths:     p.WarrantyMonths,
		FinancingAvailable: p.FinancingAvailable,
	}, nil
}

func (c customerSeed) toDomain() (domain.Customer, error) {
	total := decimal.Zero
	if c.TotalPurchases != "" {
		var err error
		if total, err = decimal.NewFromString(c.TotalPurchases); err != nil {
			return domain.Customer{}, fmt.Errorf("customer %s: invalid total_purchases %q", c.ID, c.TotalPurchases)
		}
	}
	kind := domain.CustomerType(c.Type)
	if kind == "" {
		kind = domain.CustomerParticular
	}
	if !kind.Valid() {
		return domain.Customer{}, fmt.Errorf("customer %s: unknown customer_type %q", c.ID, c.Type)
	}
	return domain.Customer{
		ID:             c.ID,
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		Type:           kind,
		Sector:         c.Sector,
		Location:       c.Location,
		Hectares:       c.Hectares,
		TotalPurchases: total,
	}, nil
}
