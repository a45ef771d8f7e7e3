package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerType distinguishes private buyers from businesses.
type CustomerType string

const (
	CustomerParticular  CustomerType = "particular"
	CustomerEmpresa     CustomerType = "empresa"
	CustomerCooperativa CustomerType = "cooperativa"
	CustomerAutonomo    CustomerType = "autonomo"
)

// Valid reports whether t is a known customer type.
func (t CustomerType) Valid() bool {
	switch t {
	case CustomerParticular, CustomerEmpresa, CustomerCooperativa, CustomerAutonomo:
		return true
	}
	return false
}

// Customer is the long-lived profile that orders, bookings and discount codes reference by id.
type Customer struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	CompanyName      string          `json:"companyName,omitempty"`
	Type             CustomerType    `json:"customerType"`
	Sector           string          `json:"sector,omitempty"`
	Location         string          `json:"location,omitempty"`
	Hectares         *float64        `json:"hectares,omitempty"`
	MainCrops        []string        `json:"mainCrops,omitempty"`
	CurrentMachinery []string        `json:"currentMachinery,omitempty"`
	TotalPurchases   decimal.Decimal `json:"totalPurchases"`
	LoyaltyPoints    int             `json:"loyaltyPoints"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// IsLoyal reports whether cumulative purchases reach threshold (inclusive).
func (c Customer) IsLoyal(threshold decimal.Decimal) bool {
	return c.TotalPurchases.GreaterThanOrEqual(threshold)
}

// CustomerUpdate carries a partial profile update; nil fields are left untouched.
type CustomerUpdate struct {
	Name             *string       `json:"name,omitempty"`
	Email            *string       `json:"email,omitempty"`
	Phone            *string       `json:"phone,omitempty"`
	CompanyName      *string       `json:"companyName,omitempty"`
	Type             *CustomerType `json:"customerType,omitempty"`
	Sector           *string       `json:"sector,omitempty"`
	Location         *string       `json:"location,omitempty"`
	Hectares         *float64      `json:"hectares,omitempty"`
	MainCrops        []string      `json:"mainCrops,omitempty"`
	CurrentMachinery []string      `json:"currentMachinery,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u CustomerUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil && u.CompanyName == nil && u.Type == nil &&
		u.Sector == nil && u.Location == nil && u.Hectares == nil && u.MainCrops == nil && u.CurrentMachinery == nil
}

// Apply copies the set fields onto c.
func (u CustomerUpdate) Apply(c *Customer) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.CompanyName != nil {
		c.CompanyName = *u.CompanyName
	}
	if u.Type != nil {
		c.Type = *u.Type
	}
	if u.Sector != nil {
		c.Sector = *u.Sector
	}
	if u.Location != nil {
		c.Location = *u.Location
	}
	if u.Hectares != nil {
		h := *u.Hectares
		c.Hectares = &h
	}
	if u.MainCrops != nil {
		c.MainCrops = append([]string(nil), u.MainCrops...)
	}
	if u.CurrentMachinery != nil {
		c.CurrentMachinery = append([]string(nil), u.CurrentMachinery...)
	}
}
