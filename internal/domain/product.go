package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductCategory is the top-level catalog section a product belongs to.
type ProductCategory string

const (
	CategoryTractores    ProductCategory = "tractores"
	CategoryCosechadoras ProductCategory = "cosechadoras"
	CategoryImplementos  ProductCategory = "implementos"
	CategoryGanaderia    ProductCategory = "ganaderia"
	CategoryForestal     ProductCategory = "forestal"
	CategoryJardineria   ProductCategory = "jardineria"
	CategoryRecambios    ProductCategory = "recambios"
	CategoryServicios    ProductCategory = "servicios"
)

// ProductCategories lists every category in catalog display order.
var ProductCategories = []ProductCategory{
	CategoryTractores,
	CategoryCosechadoras,
	CategoryImplementos,
	CategoryGanaderia,
	CategoryForestal,
	CategoryJardineria,
	CategoryRecambios,
	CategoryServicios,
}

// Valid reports whether c is a known category.
func (c ProductCategory) Valid() bool {
	for _, known := range ProductCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Product is an immutable catalog entry.
type Product struct {
	ID                 string                 `json:"id"`
	Name               string                 `json:"name"`
	Category           ProductCategory        `json:"category"`
	Brand              string                 `json:"brand"`
	Model              string                 `json:"model,omitempty"`
	Description        string                 `json:"description,omitempty"`
	Price              decimal.Decimal        `json:"price"`
	Currency           string                 `json:"currency"`
	ImageURL           string                 `json:"imageUrl,omitempty"`
	Specifications     map[string]interface{} `json:"specifications,omitempty"`
	Stock              int                    `json:"stock"`
	LeadTimeDays       *int                   `json:"leadTimeDays,omitempty"`
	WarrantyMonths     int                    `json:"warrantyMonths"`
	FinancingAvailable bool                   `json:"financingAvailable"`
	CreatedAt          time.Time              `json:"createdAt"`
}

// IsAvailable reports whether the product can be sold now or on order.
func (p Product) IsAvailable() bool {
	return p.Stock > 0 || p.LeadTimeDays != nil
}

// ProductQuery filters catalog searches. Zero values mean "no filter".
type ProductQuery struct {
	Text     string
	Category ProductCategory
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Limit    int
}
