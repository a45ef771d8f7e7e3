// Package discount issues single-use percentage discount codes.
package discount

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"agrofunnel/internal/config"
	"agrofunnel/internal/domain"
	"agrofunnel/internal/ident"
	"agrofunnel/internal/observability"
	"agrofunnel/internal/retry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const codeAttempts = 3

var typePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

type codeStore interface {
	Create(ctx context.Context, d domain.DiscountCode) (*domain.DiscountCode, error)
	Get(ctx context.Context, code string) (*domain.DiscountCode, error)
}

type customerStore interface {
	Get(ctx context.Context, id string) (*domain.Customer, error)
}

type Deps struct {
	Codes     codeStore
	Customers customerStore
	Rules     config.Funnel
	Tracker   *observability.Tracker
	Policy    retry.Policy
	Logger    *zap.Logger
}

type Service struct {
	Deps
	eligibility *Eligibility
	now         func() time.Time
}

func New(deps Deps) (*Service, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	eligibility, err := NewEligibility(deps.Rules.LoyaltyThreshold)
	if err != nil {
		return nil, err
	}
	return &Service{Deps: deps, eligibility: eligibility, now: time.Now}, nil
}

type Input struct {
	CustomerID string `json:"customer_id"`
	Type       string `json:"discount_type,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type Result struct {
	Code       string              `json:"code"`
	Type       domain.DiscountType `json:"type"`
	Percentage int                 `json:"percentage"`
	Reason     string              `json:"reason"`
	ValidFrom  time.Time           `json:"validFrom"`
	ValidUntil string              `json:"validUntil"`
	Conditions []string            `json:"conditions"`
}

// Percentage is the fixed discount granted by type t.
func (s *Service) Percentage(t domain.DiscountType) int {
	switch t {
	case domain.DiscountLoyalty:
		return s.Rules.LoyaltyPercentage
	case domain.DiscountNewCustomer:
		return s.Rules.NewCustomerPercentage
	case domain.DiscountReferral:
		return 15
	case domain.DiscountSeasonal:
		return 10
	}
	return 5
}

var conditions = map[domain.DiscountType][]string{
	domain.DiscountLoyalty: {
		"Valid for your next purchase",
		"Not combinable with other offers",
		"Applies to all products",
	},
	domain.DiscountNewCustomer: {
		"First purchase only",
		"Minimum purchase of 1000 EUR",
		"Not applicable to services",
	},
	domain.DiscountReferral: {
		"Valid when your referral makes their first purchase",
		"Combinable up to 3 referrals",
		"Applies to selected products",
	},
	domain.DiscountSeasonal: {
		"Valid during the current season",
		"Applies to machinery in stock",
		"Not combinable with financing",
	},
}

// Conditions lists the terms printed with a code of type t.
func Conditions(t domain.DiscountType) []string {
	if c, ok := conditions[t]; ok {
		return append([]string(nil), c...)
	}
	return []string{"See specific conditions"}
}

// Generate issues a code for the customer if the type's eligibility rule allows it.
func (s *Service) Generate(ctx context.Context, in Input) (res *Result, err error) {
	t := domain.DiscountType(strings.ToLower(strings.TrimSpace(in.Type)))
	if t == "" {
		t = domain.DiscountLoyalty
	}
	ctx, end := s.Tracker.Track(ctx, "generate_discount_code",
		attribute.String("discount.type", string(t)),
		attribute.String("customer.id", in.CustomerID),
	)
	defer func() { end(err) }()

	if !typePattern.MatchString(string(t)) {
		return nil, domain.NewError(domain.KindInvalidArguments, "invalid discount type %q", in.Type)
	}
	c, err := s.customer(ctx, strings.TrimSpace(in.CustomerID))
	if err != nil {
		return nil, err
	}

	ok, err := s.eligibility.Eligible(t, *c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.ineligible(t)
	}

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = string(t) + " discount"
	}
	now := s.now().UTC()
	code := domain.DiscountCode{
		CustomerID: c.ID,
		Type:       t,
		Percentage: s.Percentage(t),
		Reason:     reason,
		ValidFrom:  now,
		ValidUntil: now.AddDate(0, 0, s.Rules.DiscountValidityDays),
		CreatedAt:  now,
	}
	stored, err := s.store(ctx, code)
	if err != nil {
		return nil, err
	}

	s.Logger.Info("discount code issued",
		zap.String("code", stored.Code),
		zap.String("customer_id", c.ID),
		zap.String("type", string(t)),
		zap.Int("percentage", stored.Percentage),
	)
	return &Result{
		Code:       stored.Code,
		Type:       t,
		Percentage: stored.Percentage,
		Reason:     stored.Reason,
		ValidFrom:  stored.ValidFrom,
		ValidUntil: stored.ValidUntil.Format("2006-01-02"),
		Conditions: Conditions(t),
	}, nil
}

func (s *Service) customer(ctx context.Context, id string) (*domain.Customer, error) {
	if id == "" {
		return nil, domain.NewError(domain.KindInvalidArguments, "customer id required")
	}
	var c *domain.Customer
	err := retry.Do(ctx, s.Policy, func(ctx context.Context) error {
		var err error
		c, err = s.Customers.Get(ctx, id)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewError(domain.KindCustomerNotFound, "customer %s not found", id)
	}
	if err != nil {
		return nil, domain.Persistence(err)
	}
	return c, nil
}

func (s *Service) ineligible(t domain.DiscountType) error {
	switch t {
	case domain.DiscountLoyalty:
		return domain.NewError(domain.KindIneligible,
			"loyalty discounts require at least %s %s in previous purchases", s.Rules.LoyaltyThreshold.String(), s.Rules.Currency)
	case domain.DiscountNewCustomer:
		return domain.NewError(domain.KindIneligible, "new customer discounts are only available before the first purchase")
	}
	return domain.NewError(domain.KindIneligible, "the customer is not eligible for a %s discount", t)
}

// store persists d under a fresh code, drawing another one on the rare collision.
// A duplicate that belongs to this customer is an earlier attempt that landed.
func (s *Service) store(ctx context.Context, d domain.DiscountCode) (*domain.DiscountCode, error) {
	var lastErr error
	for i := 0; i < codeAttempts; i++ {
		d.Code = ident.DiscountCode(string(d.Type))
		var stored *domain.DiscountCode
		err := retry.Do(ctx, s.Policy, func(ctx context.Context) error {
			var err error
			stored, err = s.Codes.Create(ctx, d)
			if !errors.Is(err, domain.ErrAlreadyExists) {
				return err
			}
			existing, getErr := s.Codes.Get(ctx, d.Code)
			if getErr != nil {
				return getErr
			}
			if existing.CustomerID != d.CustomerID || existing.Type != d.Type {
				return err
			}
			stored = existing
			return nil
		})
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			s.Logger.Error("discount code create failed", zap.String("customer_id", d.CustomerID), zap.Error(err))
			return nil, domain.Persistence(err)
		}
		lastErr = err
	}
	return nil, domain.Persistence(lastErr)
}
