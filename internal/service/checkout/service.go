// Package checkout turns a session cart into a pending order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agrofunnel/internal/config"
	"agrofunnel/internal/domain"
	"agrofunnel/internal/ident"
	"agrofunnel/internal/notify"
	"agrofunnel/internal/observability"
	"agrofunnel/internal/retry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type customerStore interface {
	Get(ctx context.Context, id string) (*domain.Customer, error)
	AddPurchase(ctx context.Context, id, orderID string, amount decimal.Decimal) error
}

type orderStore interface {
	Create(ctx context.Context, o domain.Order) (string, error)
}

type discountStore interface {
	Get(ctx context.Context, code string) (*domain.DiscountCode, error)
	MarkUsed(ctx context.Context, code, orderID string, at time.Time) error
}

type cartStore interface {
	Clear(ctx context.Context, sessionID string) error
}

// Deps groups the collaborators of the checkout workflow.
type Deps struct {
	Customers customerStore
	Orders    orderStore
	Discounts discountStore
	Carts     cartStore
	Notifier  notify.Notifier
	Tracker   *observability.Tracker
	Policy    retry.Policy
	Rules     config.Funnel
	Location  *time.Location
	Logger    *zap.Logger
}

type Service struct {
	Deps
	now func() time.Time
}

func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewLog(deps.Logger)
	}
	return &Service{Deps: deps, now: time.Now}
}

// Input is what the customer supplies at checkout besides the cart.
type Input struct {
	PaymentMethod       string            `json:"payment_method"`
	DeliveryAddress     map[string]string `json:"delivery_address,omitempty"`
	BillingInfo         map[string]string `json:"billing_info,omitempty"`
	SpecialInstructions string            `json:"special_instructions,omitempty"`
}

// Result is the confirmation returned to the customer.
type Result struct {
	OrderID           string               `json:"orderId"`
	Status            string               `json:"status"`
	Lines             []domain.OrderLine   `json:"lines"`
	Subtotal          decimal.Decimal      `json:"subtotal"`
	DiscountAmount    decimal.Decimal      `json:"discountAmount"`
	DiscountReason    string               `json:"discountReason,omitempty"`
	DiscountCode      string               `json:"discountCode,omitempty"`
	Total             decimal.Decimal      `json:"total"`
	Currency          string               `json:"currency"`
	PaymentMethod     domain.PaymentMethod `json:"paymentMethod"`
	EstimatedDelivery string               `json:"estimatedDelivery"`
	NextSteps         []string             `json:"nextSteps"`
}

var nextSteps = map[domain.PaymentMethod][]string{
	domain.PaymentTransfer: {
		"You will receive the bank details by email",
		"Make the transfer within 48 hours",
		"Send us the transfer receipt to speed up processing",
		"Once the payment is confirmed we will process your order",
	},
	domain.PaymentFinancing: {
		"You will receive an email with the financing application link",
		"Complete the required documentation",
		"You will get an approval answer within 24-48 hours",
		"Once approved we will coordinate the delivery",
	},
	domain.PaymentCard: {
		"Your payment has been processed successfully",
		"You will receive the invoice by email",
		"We are preparing your order for shipping",
		"We will notify you when your order is on its way",
	},
}

// NextSteps returns the instructions shown after an order paid with method.
func NextSteps(method domain.PaymentMethod) []string {
	return append([]string(nil), nextSteps[method]...)
}

// discountSource is the single discount applied to an order.
type discountSource struct {
	percentage int
	reason     string
	code       string
}

// Checkout places an order for the cart of sess. It assumes the caller holds the
// session lock; on success the cart on sess is cleared.
func (s *Service) Checkout(ctx context.Context, sess *domain.Session, in Input) (res *Result, err error) {
	method := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(in.PaymentMethod)))
	ctx, end := s.Tracker.Track(ctx, "checkout",
		attribute.String("session.id", sess.ID),
		attribute.String("payment.method", string(method)),
	)
	defer func() { end(err) }()

	if sess.Cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}
	if !sess.HasCustomer() {
		return nil, domain.ErrUnauthenticated
	}
	if !method.Valid() {
		return nil, domain.NewError(domain.KindInvalidPaymentMethod,
			"invalid payment method %q, choose one of: transfer, financing, card", in.PaymentMethod)
	}

	customer, err := s.customer(ctx, *sess.CustomerID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	source, err := s.bestDiscount(ctx, customer, sess.Cart.DiscountCodes, now)
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(now, customer, sess.Cart, method, in, source)
	err = retry.Do(ctx, s.Policy, func(ctx context.Context) error {
		_, err := s.Orders.Create(ctx, order)
		return err
	})
	if err != nil {
		s.Logger.Error("order create failed", zap.String("order_id", order.ID), zap.Error(err))
		return nil, domain.Persistence(err)
	}

	s.afterOrder(ctx, sess, customer, order, source, now)
	sess.Cart.Clear()

	estimated := now.In(s.Location).AddDate(0, 0, s.Rules.DeliveryDays).Format("2006-01-02")
	s.Logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("customer_id", customer.ID),
		zap.String("total", order.Total.StringFixed(2)),
		zap.String("payment_method", string(method)),
	)
	return &Result{
		OrderID:           order.ID,
		Status:            order.Status,
		Lines:             order.Lines,
		Subtotal:          order.Subtotal,
		DiscountAmount:    order.DiscountAmount,
		DiscountReason:    order.DiscountReason,
		DiscountCode:      source.code,
		Total:             order.Total,
		Currency:          order.Currency,
		PaymentMethod:     method,
		EstimatedDelivery: estimated,
		NextSteps:         NextSteps(method),
	}, nil
}

func (s *Service) customer(ctx context.Context, id string) (*domain.Customer, error) {
	var c *domain.Customer
	err := retry.Do(ctx, s.Policy, func(ctx context.Context) error {
		var err error
		c, err = s.Customers.Get(ctx, id)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewError(domain.KindUnauthenticated, "customer %s is not registered, identify the customer again", id)
	}
	if err != nil {
		return nil, domain.Persistence(err)
	}
	return c, nil
}

// bestDiscount picks the largest percentage among the loyalty rule and the
// redeemable codes attached to the cart. Loyalty wins ties.
func (s *Service) bestDiscount(ctx context.Context, c *domain.Customer, codes []string, now time.Time) (discountSource, error) {
	var best discountSource
	if s.Rules.LoyaltyPercentage > 0 && c.IsLoyal(s.Rules.LoyaltyThreshold) {
		best = discountSource{
			percentage: s.Rules.LoyaltyPercentage,
			reason:     fmt.Sprintf("Loyalty discount (%d%%)", s.Rules.LoyaltyPercentage),
		}
	}

	for _, code := range codes {
		var d *domain.DiscountCode
		err := retry.Do(ctx, s.Policy, func(ctx context.Context) error {
			var err error
			d, err = s.Discounts.Get(ctx, code)
			return err
		})
		if errors.Is(err, domain.ErrNotFound) {
			s.Logger.Info("discount code dropped at checkout", zap.String("code", code), zap.String("reason", "not found"))
			continue
		}
		if err != nil {
			return discountSource{}, domain.Persistence(err)
		}
		if !d.Redeemable(c.ID, now) {
			s.Logger.Info("discount code dropped at checkout", zap.String("code", code), zap.String("reason", "not redeemable"))
			continue
		}
		if d.Percentage > best.percentage {
			best = discountSource{
				percentage: d.Percentage,
				reason:     fmt.Sprintf("Discount code %s (%d%%)", d.Code, d.Percentage),
				code:       d.Code,
			}
		}
	}
	return best, nil
}

func (s *Service) buildOrder(now time.Time, c *domain.Customer, cart domain.Cart, method domain.PaymentMethod, in Input, source discountSource) domain.Order {
	lines := make([]domain.OrderLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, domain.OrderLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal(),
		})
	}

	subtotal := cart.Subtotal()
	amount := Discount(subtotal, source.percentage)
	var codes []string
	if source.code != "" {
		codes = []string{source.code}
	}

	return domain.Order{
		ID:                  ident.OrderID(now.In(s.Location)),
		CustomerID:          c.ID,
		CustomerName:        c.Name,
		CustomerEmail:       c.Email,
		Lines:               lines,
		Subtotal:            subtotal,
		DiscountCodes:       codes,
		DiscountAmount:      amount,
		DiscountReason:      source.reason,
		Total:               subtotal.Sub(amount),
		Currency:            s.currency(cart),
		PaymentMethod:       method,
		DeliveryAddress:     in.DeliveryAddress,
		BillingInfo:         in.BillingInfo,
		SpecialInstructions: strings.TrimSpace(in.SpecialInstructions),
		Status:              domain.OrderStatusPending,
		CreatedAt:           now.UTC(),
	}
}

// Discount is percentage of subtotal rounded to cents, never more than subtotal.
func Discount(subtotal decimal.Decimal, percentage int) decimal.Decimal {
	if percentage <= 0 || !subtotal.IsPositive() {
		return decimal.Zero
	}
	amount := subtotal.Mul(decimal.NewFromInt(int64(percentage))).Div(decimal.NewFromInt(100)).Round(2)
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}

func (s *Service) currency(cart domain.Cart) string {
	if len(cart.Items) > 0 && cart.Items[0].Currency != "" {
		return cart.Items[0].Currency
	}
	return s.Rules.Currency
}

// afterOrder runs the side effects that follow a stored order. The order is the
// record of truth, so failures here are logged and never undo the checkout.
func (s *Service) afterOrder(ctx context.Context, sess *domain.Session, c *domain.Customer, o domain.Order, source discountSource, now time.Time) {
	err := retry.Do(ctx, s.Policy, func(ctx context.Context) error {
		return s.Customers.AddPurchase(ctx, c.ID, o.ID, o.Total)
	})
	if err != nil {
		s.Logger.Error("customer purchase total not updated", zap.String("customer_id", c.ID), zap.String("order_id", o.ID), zap.Error(err))
	}

	if source.code != "" {
		err := retry.Do(ctx, s.Policy, func(ctx context.Context) error {
			return s.Discounts.MarkUsed(ctx, source.code, o.ID, now.UTC())
		})
		if err != nil {
			s.Logger.Warn("discount code not marked used", zap.String("code", source.code), zap.String("order_id", o.ID), zap.Error(err))
		}
	}

	err = retry.Do(ctx, s.Policy, func(ctx context.Context) error {
		return s.Carts.Clear(ctx, sess.ID)
	})
	if err != nil {
		s.Logger.Error("cart not cleared after checkout", zap.String("session_id", sess.ID), zap.String("order_id", o.ID), zap.Error(err))
	}

	if c.Email == "" {
		return
	}
	payload := map[string]interface{}{
		"order_id":       o.ID,
		"customer_name":  c.Name,
		"total":          o.Total.StringFixed(2),
		"currency":       o.Currency,
		"payment_method": string(o.PaymentMethod),
	}
	err = retry.Do(ctx, s.Policy, func(ctx context.Context) error {
		return s.Notifier.Send(ctx, c.Email, notify.OrderConfirmation, payload)
	})
	if err != nil {
		s.Logger.Warn("order confirmation not sent", zap.String("order_id", o.ID), zap.Error(err))
	}
}
