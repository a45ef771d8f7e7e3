package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"agrofunnel/internal/domain"
	cartrepo "agrofunnel/internal/repository/cart"
	"agrofunnel/internal/retry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service mutates the cart of a session. Callers hold the session lock.
type Service struct {
	repo      cartrepo.Repository
	products  productRepo
	discounts discountRepo
	policy    retry.Policy
	maxItems  int
	currency  string
	logger    *zap.Logger
	now       func() time.Time
}

type productRepo interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type discountRepo interface {
	Get(ctx context.Context, code string) (*domain.DiscountCode, error)
}

func New(repo cartrepo.Repository, products productRepo, discounts discountRepo, policy retry.Policy, maxItems int, currency string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		products:  products,
		discounts: discounts,
		policy:    policy,
		maxItems:  maxItems,
		currency:  currency,
		logger:    logger,
		now:       time.Now,
	}
}

// Summary is the customer-facing view of a cart.
type Summary struct {
	Items         []domain.CartItem `json:"items"`
	TotalItems    int               `json:"total_items"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	Currency      string            `json:"currency"`
	DiscountCodes []string          `json:"discount_codes"`
}

func (s *Service) Summarize(c domain.Cart) Summary {
	items := c.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	codes := c.DiscountCodes
	if codes == nil {
		codes = []string{}
	}
	return Summary{
		Items:         items,
		TotalItems:    c.TotalItems(),
		Subtotal:      c.Subtotal(),
		Currency:      s.currency,
		DiscountCodes: codes,
	}
}

// Add puts quantity units of productID into the session cart.
func (s *Service) Add(ctx context.Context, sess *domain.Session, productID string, quantity int) (Summary, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Summary{}, domain.NewError(domain.KindInvalidArguments, "product id required")
	}
	if quantity < 1 {
		return Summary{}, domain.ErrInvalidQuantity
	}

	var p *domain.Product
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		p, err = s.products.Get(ctx, productID)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return Summary{}, domain.NewError(domain.KindProductNotFound, "product %s not found", productID)
	}
	if err != nil {
		return Summary{}, domain.Persistence(err)
	}
	if !p.IsAvailable() {
		return Summary{}, domain.NewError(domain.KindProductUnavailable, "%s is out of stock and cannot be ordered", p.Name)
	}
	if s.maxItems > 0 && sess.Cart.TotalItems()+quantity > s.maxItems {
		return Summary{}, domain.NewError(domain.KindCartFull, "the cart holds at most %d items", s.maxItems)
	}

	next := sess.Cart.Clone()
	next.Add(*p, quantity)
	if err := s.save(ctx, sess.ID, next); err != nil {
		return Summary{}, err
	}
	sess.Cart = next
	sess.SelectedProduct = p.ID
	s.logger.Info("cart item added", zap.String("session_id", sess.ID), zap.String("product_id", p.ID), zap.Int("quantity", quantity))
	return s.Summarize(next), nil
}

// Remove drops productID from the cart. Removing a missing product is a no-op.
func (s *Service) Remove(ctx context.Context, sess *domain.Session, productID string) (Summary, bool, error) {
	next := sess.Cart.Clone()
	if !next.Remove(productID) {
		return s.Summarize(sess.Cart), false, nil
	}
	if err := s.save(ctx, sess.ID, next); err != nil {
		return Summary{}, false, err
	}
	sess.Cart = next
	s.logger.Info("cart item removed", zap.String("session_id", sess.ID), zap.String("product_id", productID))
	return s.Summarize(next), true, nil
}

// ApplyCode validates code for the session's customer and attaches it to the cart.
// The discount itself is computed at checkout.
func (s *Service) ApplyCode(ctx context.Context, sess *domain.Session, code string) (Summary, *domain.DiscountCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Summary{}, nil, domain.NewError(domain.KindInvalidArguments, "discount code required")
	}
	if !sess.HasCustomer() {
		return Summary{}, nil, domain.NewError(domain.KindUnauthenticated, "identify the customer before applying a discount code")
	}

	var d *domain.DiscountCode
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		d, err = s.discounts.Get(ctx, code)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return Summary{}, nil, domain.NewError(domain.KindInvalidDiscountCode, "discount code %s does not exist", code)
	}
	if err != nil {
		return Summary{}, nil, domain.Persistence(err)
	}
	if err := Redeemable(d, *sess.CustomerID, s.now()); err != nil {
		return Summary{}, nil, err
	}

	next := sess.Cart.Clone()
	if next.AttachCode(d.Code) {
		if err := s.save(ctx, sess.ID, next); err != nil {
			return Summary{}, nil, err
		}
		sess.Cart = next
	}
	return s.Summarize(sess.Cart), d, nil
}

// Redeemable explains why d cannot be used by customerID at now, or returns nil.
func Redeemable(d *domain.DiscountCode, customerID string, now time.Time) error {
	switch {
	case d.CustomerID != customerID:
		return domain.NewError(domain.KindInvalidDiscountCode, "discount code %s belongs to another customer", d.Code)
	case d.Used:
		return domain.NewError(domain.KindInvalidDiscountCode, "discount code %s was already used", d.Code)
	case now.Before(d.ValidFrom):
		return domain.NewError(domain.KindInvalidDiscountCode, "discount code %s is not valid yet", d.Code)
	case now.After(d.ValidUntil):
		return domain.NewError(domain.KindInvalidDiscountCode, "discount code %s expired on %s", d.Code, d.ValidUntil.Format("2006-01-02"))
	}
	return nil
}

func (s *Service) save(ctx context.Context, sessionID string, c domain.Cart) error {
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		return s.repo.Save(ctx, sessionID, c)
	})
	if err != nil {
		s.logger.Error("cart save failed", zap.String("session_id", sessionID), zap.Error(err))
		return domain.Persistence(err)
	}
	return nil
}
