package domain

import "time"

// FunnelStep is the conversational stage a session is in.
type FunnelStep string

const (
	StepGreeting  FunnelStep = "greeting"
	StepProfiling FunnelStep = "profiling"
	StepBrowsing  FunnelStep = "browsing"
	StepDetail    FunnelStep = "detail"
	StepCart      FunnelStep = "cart"
	StepCheckout  FunnelStep = "checkout"
)

// Session is the state of one conversation. It owns its cart exclusively.
type Session struct {
	ID               string          `json:"id"`
	CustomerID       *string         `json:"customerId,omitempty"`
	Step             FunnelStep      `json:"funnelStep"`
	Language         string          `json:"language"`
	SelectedCategory ProductCategory `json:"selectedCategory,omitempty"`
	SelectedProduct  string          `json:"selectedProduct,omitempty"`
	ViewedProducts   []string        `json:"viewedProducts,omitempty"`
	Cart             Cart            `json:"cart"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// HasCustomer reports whether a customer has been identified on the session.
func (s Session) HasCustomer() bool {
	return s.CustomerID != nil && *s.CustomerID != ""
}

// MarkViewed records productID once, most recent last.
func (s *Session) MarkViewed(productID string) {
	for i, id := range s.ViewedProducts {
		if id == productID {
			s.ViewedProducts = append(s.ViewedProducts[:i], s.ViewedProducts[i+1:]...)
			break
		}
	}
	s.ViewedProducts = append(s.ViewedProducts, productID)
}
