package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is a cart line holding a price snapshot of the product taken when it was first added.
type CartItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Category  ProductCategory `json:"category,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Currency  string          `json:"currency"`
	Quantity  int             `json:"quantity"`
	Notes     string          `json:"notes,omitempty"`
	AddedAt   time.Time       `json:"addedAt"`
}

// Subtotal is UnitPrice × Quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is owned by a single session. Items keep insertion order.
type Cart struct {
	Items         []CartItem `json:"items"`
	DiscountCodes []string   `json:"discountCodes"`
}

// Add merges quantity into the line for p.ID, or appends a new line.
func (c *Cart) Add(p Product, quantity int) {
	for i := range c.Items {
		if c.Items[i].ProductID == p.ID {
			c.Items[i].Quantity += quantity
			return
		}
	}
	c.Items = append(c.Items, CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Category:  p.Category,
		UnitPrice: p.Price,
		Currency:  p.Currency,
		Quantity:  quantity,
		AddedAt:   time.Now().UTC(),
	})
}

// Remove drops the first line for productID and reports whether one was removed.
func (c *Cart) Remove(productID string) bool {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Subtotal sums every line subtotal.
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// TotalItems sums line quantities.
func (c Cart) TotalItems() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Contains reports whether a line exists for productID.
func (c Cart) Contains(productID string) bool {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// AttachCode records a discount code once; it reports false for duplicates.
func (c *Cart) AttachCode(code string) bool {
	for _, existing := range c.DiscountCodes {
		if existing == code {
			return false
		}
	}
	c.DiscountCodes = append(c.DiscountCodes, code)
	return true
}

// Clear resets the cart after a successful checkout.
func (c *Cart) Clear() {
	c.Items = nil
	c.DiscountCodes = nil
}

// Clone returns a deep copy so stores never share slices with callers.
func (c Cart) Clone() Cart {
	out := Cart{}
	if len(c.Items) > 0 {
		out.Items = append([]CartItem(nil), c.Items...)
	}
	if len(c.DiscountCodes) > 0 {
		out.DiscountCodes = append([]string(nil), c.DiscountCodes...)
	}
	return out
}
