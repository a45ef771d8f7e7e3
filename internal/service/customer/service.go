package customer

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"agrofunnel/internal/domain"
	"agrofunnel/internal/ident"
	custrepo "agrofunnel/internal/repository/customer"
	"agrofunnel/internal/retry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service looks up, registers and updates customer profiles.
type Service struct {
	repo   custrepo.Repository
	policy retry.Policy
	logger *zap.Logger
}

func New(repo custrepo.Repository, policy retry.Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, policy: policy, logger: logger}
}

// IdentifyInput carries the contact details a customer gives in conversation.
type IdentifyInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Get returns the customer or a customer_not_found error.
func (s *Service) Get(ctx context.Context, id string) (*domain.Customer, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewError(domain.KindInvalidArguments, "customer id required")
	}
	var c *domain.Customer
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		c, err = s.repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, notFoundAs(err, "customer %s not found", id)
	}
	return c, nil
}

// GetByEmail returns the customer registered with email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.NewError(domain.KindInvalidArguments, "email required")
	}
	var c *domain.Customer
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		c, err = s.repo.GetByEmail(ctx, email)
		return err
	})
	if err != nil {
		return nil, notFoundAs(err, "no customer registered with %s", email)
	}
	return c, nil
}

// Lookup resolves a customer by id, falling back to email.
func (s *Service) Lookup(ctx context.Context, id, email string) (*domain.Customer, error) {
	if strings.TrimSpace(id) != "" {
		return s.Get(ctx, id)
	}
	if strings.TrimSpace(email) != "" {
		return s.GetByEmail(ctx, email)
	}
	return nil, domain.NewError(domain.KindInvalidArguments, "customer id or email required")
}

// Identify returns the customer registered with in.Email, creating one on first
// contact. created reports whether a new profile was stored.
func (s *Service) Identify(ctx context.Context, in IdentifyInput) (c *domain.Customer, created bool, err error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrCustomerNotFound) {
		return nil, false, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, false, domain.NewError(domain.KindInvalidArguments, "name required")
	}
	fresh := domain.Customer{
		ID:             ident.CustomerID(),
		Name:           name,
		Email:          email,
		Phone:          strings.TrimSpace(in.Phone),
		Type:           domain.CustomerParticular,
		TotalPurchases: decimal.Zero,
	}
	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		c, err = s.repo.Create(ctx, fresh)
		return err
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// registered concurrently by another session
		existing, err := s.GetByEmail(ctx, email)
		return existing, false, err
	}
	if err != nil {
		return nil, false, domain.Persistence(err)
	}
	s.logger.Info("customer registered", zap.String("customer_id", c.ID))
	return c, true, nil
}

// Update applies a partial profile update.
func (s *Service) Update(ctx context.Context, id string, in domain.CustomerUpdate) (*domain.Customer, error) {
	if in.Empty() {
		return nil, domain.NewError(domain.KindInvalidArguments, "no fields to update")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, domain.NewError(domain.KindInvalidArguments, "name cannot be empty")
	}
	if in.Type != nil && !in.Type.Valid() {
		return nil, domain.NewError(domain.KindInvalidArguments, "invalid customer type %q", *in.Type)
	}
	if in.Hectares != nil && *in.Hectares < 0 {
		return nil, domain.NewError(domain.KindInvalidArguments, "hectares cannot be negative")
	}
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		in.Email = &email
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.Apply(c)

	var out *domain.Customer
	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		out, err = s.repo.Update(ctx, *c)
		return err
	})
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return nil, domain.NewError(domain.KindInvalidArguments, "email already registered to another customer")
	case err != nil:
		return nil, notFoundAs(err, "customer %s not found", id)
	}
	s.logger.Info("customer profile updated", zap.String("customer_id", id))
	return out, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.NewError(domain.KindInvalidArguments, "email required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.NewError(domain.KindInvalidArguments, "invalid email %q", raw)
	}
	return email, nil
}

func notFoundAs(err error, format string, args ...interface{}) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewError(domain.KindCustomerNotFound, format, args...)
	}
	return domain.Persistence(err)
}
