package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer settles an order.
type PaymentMethod string

const (
	PaymentTransfer  PaymentMethod = "transfer"
	PaymentFinancing PaymentMethod = "financing"
	PaymentCard      PaymentMethod = "card"
)

// PaymentMethods lists the accepted methods.
var PaymentMethods = []PaymentMethod{PaymentTransfer, PaymentFinancing, PaymentCard}

func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

const OrderStatusPending = "pending"

// OrderLine is the immutable snapshot of a cart line at checkout.
type OrderLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Order is created once at checkout and never mutated afterwards.
type Order struct {
	ID                  string            `json:"id"`
	CustomerID          string            `json:"customerId"`
	CustomerName        string            `json:"customerName,omitempty"`
	CustomerEmail       string            `json:"customerEmail,omitempty"`
	Lines               []OrderLine       `json:"lines"`
	Subtotal            decimal.Decimal   `json:"subtotal"`
	DiscountCodes       []string          `json:"discountCodes,omitempty"`
	DiscountAmount      decimal.Decimal   `json:"discountAmount"`
	DiscountReason      string            `json:"discountReason,omitempty"`
	Total               decimal.Decimal   `json:"total"`
	Currency            string            `json:"currency"`
	PaymentMethod       PaymentMethod     `json:"paymentMethod"`
	DeliveryAddress     map[string]string `json:"deliveryAddress,omitempty"`
	BillingInfo         map[string]string `json:"billingInfo,omitempty"`
	SpecialInstructions string            `json:"specialInstructions,omitempty"`
	Status              string            `json:"status"`
	CreatedAt           time.Time         `json:"createdAt"`
}
