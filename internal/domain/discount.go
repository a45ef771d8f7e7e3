package domain

import "time"

// DiscountType selects the percentage and eligibility rule of a discount code.
type DiscountType string

const (
	DiscountLoyalty     DiscountType = "loyalty"
	DiscountNewCustomer DiscountType = "new_customer"
	DiscountReferral    DiscountType = "referral"
	DiscountSeasonal    DiscountType = "seasonal"
)

// DiscountCode is a single-use percentage discount issued to one customer.
type DiscountCode struct {
	Code       string       `json:"code"`
	CustomerID string       `json:"customerId"`
	Type       DiscountType `json:"type"`
	Percentage int          `json:"percentage"`
	Reason     string       `json:"reason,omitempty"`
	ValidFrom  time.Time    `json:"validFrom"`
	ValidUntil time.Time    `json:"validUntil"`
	Used       bool         `json:"used"`
	UsedAt     *time.Time   `json:"usedAt,omitempty"`
	OrderID    string       `json:"orderId,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// Redeemable reports whether customerID may use the code at now.
func (d DiscountCode) Redeemable(customerID string, now time.Time) bool {
	if d.Used || d.CustomerID != customerID {
		return false
	}
	return !now.Before(d.ValidFrom) && !now.After(d.ValidUntil)
}
