package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"agrofunnel/internal/config"
	"agrofunnel/internal/domain"
	"agrofunnel/internal/notify"
	cartrepo "agrofunnel/internal/repository/cart"
	custrepo "agrofunnel/internal/repository/customer"
	discountrepo "agrofunnel/internal/repository/discount"
	orderrepo "agrofunnel/internal/repository/order"
	"agrofunnel/internal/retry"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, email string, template notify.Template, payload map[string]interface{}) error {
	args := m.Called(ctx, email, template, payload)
	return args.Error(0)
}

type failingOrders struct{ calls int }

func (f *failingOrders) Create(context.Context, domain.Order) (string, error) {
	f.calls++
	return "", errors.New("connection reset")
}

type fixture struct {
	svc       *Service
	customers custrepo.Repository
	orders    orderrepo.Repository
	discounts discountrepo.Repository
	carts     cartrepo.Repository
	notifier  *mockNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		customers: custrepo.NewMemory(),
		orders:    orderrepo.NewMemory(),
		discounts: discountrepo.NewMemory(),
		carts:     cartrepo.NewMemory(),
		notifier:  &mockNotifier{},
	}
	f.svc = New(Deps{
		Customers: f.customers,
		Orders:    f.orders,
		Discounts: f.discounts,
		Carts:     f.carts,
		Notifier:  f.notifier,
		Policy:    retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond},
		Rules:     config.DefaultFunnel(),
	})
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) customer(t *testing.T, id, email string, purchases int64) string {
	t.Helper()
	_, err := f.customers.Create(context.Background(), domain.Customer{
		ID: id, Name: "Juan Pérez", Email: email, Type: domain.CustomerParticular,
		TotalPurchases: decimal.NewFromInt(purchases),
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) session(t *testing.T, customerID string, products ...domain.Product) *domain.Session {
	t.Helper()
	sess := &domain.Session{ID: "sess-" + customerID, Step: domain.StepCheckout}
	if customerID != "" {
		sess.CustomerID = &customerID
	}
	for _, p := range products {
		sess.Cart.Add(p, 1)
	}
	require.NoError(t, f.carts.Save(context.Background(), sess.ID, sess.Cart))
	return sess
}

func x1000() domain.Product {
	return domain.Product{ID: "tractor_x1000", Name: "Tractor Serie X1000", Price: decimal.NewFromInt(75000), Currency: "EUR", Stock: 3}
}

func priced(price int64) domain.Product {
	return domain.Product{ID: "p", Name: "Recambio", Price: decimal.NewFromInt(price), Currency: "EUR", Stock: 1}
}

func TestCheckoutFinancingScenario(t *testing.T) {
	f := newFixture(t)
	id := f.customer(t, "cust_juan", "juan@example.com", 15000)
	sess := f.session(t, id, x1000())
	f.notifier.On("Send", mock.Anything, "juan@example.com", notify.OrderConfirmation, mock.Anything).Return(nil).Once()

	res, err := f.svc.Checkout(context.Background(), sess, Input{PaymentMethod: "financing"})
	require.NoError(t, err)

	assert.True(t, res.Subtotal.Equal(decimal.NewFromInt(75000)))
	assert.True(t, res.DiscountAmount.Equal(decimal.NewFromInt(7500)))
	assert.True(t, res.Total.Equal(decimal.NewFromInt(67500)))
	assert.Equal(t, "Loyalty discount (10%)", res.DiscountReason)
	assert.Equal(t, "EUR", res.Currency)
	assert.Equal(t, domain.PaymentFinancing, res.PaymentMethod)
	assert.Equal(t, "2026-10-19", res.EstimatedDelivery)
	assert.Equal(t, domain.OrderStatusPending, res.Status)
	assert.Equal(t, NextSteps(domain.PaymentFinancing), res.NextSteps)
	assert.Len(t, res.NextSteps, 4)
	assert.Regexp(t, `^ORD-20261012-[0-9A-F]{6}$`, res.OrderID)

	assert.True(t, sess.Cart.IsEmpty())
	stored, err := f.carts.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsEmpty())

	order, err := f.orders.Get(context.Background(), res.OrderID)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.True(t, order.Total.Equal(res.Total))

	c, err := f.customers.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, c.TotalPurchases.Equal(decimal.NewFromInt(82500)))
	f.notifier.AssertExpectations(t)
}

func TestCheckoutLoyaltyThresholdIsInclusive(t *testing.T) {
	cases := []struct {
		purchases int64
		discount  int64
	}{
		{1000, 100},
		{999, 0},
	}
	for _, tc := range cases {
		f := newFixture(t)
		id := f.customer(t, "cust_b", "", tc.purchases)
		res, err := f.svc.Checkout(context.Background(), f.session(t, id, priced(1000)), Input{PaymentMethod: "card"})
		require.NoError(t, err)
		assert.True(t, res.DiscountAmount.Equal(decimal.NewFromInt(tc.discount)), "purchases %d", tc.purchases)
		assert.True(t, res.Total.Equal(decimal.NewFromInt(1000-tc.discount)))
	}
}

func TestCheckoutValidationOrder(t *testing.T) {
	f := newFixture(t)
	id := f.customer(t, "cust_v", "", 0)

	_, err := f.svc.Checkout(context.Background(), f.session(t, ""), Input{PaymentMethod: "bitcoin"})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = f.svc.Checkout(context.Background(), f.session(t, "", x1000()), Input{PaymentMethod: "bitcoin"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = f.svc.Checkout(context.Background(), f.session(t, "cust_ghost", x1000()), Input{PaymentMethod: "card"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	sess := f.session(t, id, x1000())
	_, err = f.svc.Checkout(context.Background(), sess, Input{PaymentMethod: "bitcoin"})
	require.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)
	assert.Contains(t, err.Error(), "transfer, financing, card")
	assert.False(t, sess.Cart.IsEmpty())

	orders, err := f.orders.ListByCustomer(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckoutEmptyCartAlwaysFails(t *testing.T) {
	f := newFixture(t)
	id := f.customer(t, "cust_e", "", 5000)

	properties := gopter.NewProperties(nil)
	properties.Property("empty cart fails whatever the inputs", prop.ForAll(
		func(method string, withCustomer bool) bool {
			sess := &domain.Session{ID: "sess-empty"}
			if withCustomer {
				sess.CustomerID = &id
			}
			_, err := f.svc.Checkout(context.Background(), sess, Input{PaymentMethod: method})
			return errors.Is(err, domain.ErrEmptyCart)
		},
		gen.OneConstOf("transfer", "financing", "card", "", "cash"),
		gen.Bool(),
	))
	properties.TestingRun(t)
}

func TestCheckoutTotalsProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("total is subtotal minus a non-negative discount", prop.ForAll(
		func(price int64, qty int, purchases int64) bool {
			f := newFixture(t)
			id := f.customer(t, "cust_p", "", purchases)
			sess := &domain.Session{ID: "sess-p", CustomerID: &id}
			sess.Cart.Add(priced(price), qty)
			res, err := f.svc.Checkout(context.Background(), sess, Input{PaymentMethod: "transfer"})
			if err != nil {
				return false
			}
			return !res.DiscountAmount.IsNegative() &&
				res.Total.Equal(res.Subtotal.Sub(res.DiscountAmount)) &&
				!res.Total.IsNegative() &&
				sess.Cart.IsEmpty()
		},
		gen.Int64Range(0, 300000),
		gen.IntRange(1, 10),
		gen.Int64Range(0, 5000),
	))
	properties.TestingRun(t)
}

func TestCheckoutRedeemsBestCode(t *testing.T) {
	f := newFixture(t)
	id := f.customer(t, "cust_c", "", 2000)
	_, err := f.discounts.Create(context.Background(), domain.DiscountCode{
		Code: "REFERRAL-AAAA1111", CustomerID: id, Type: domain.DiscountReferral, Percentage: 15,
		ValidFrom: fixedNow.AddDate(0, 0, -1), ValidUntil: fixedNow.AddDate(0, 0, 29),
	})
	require.NoError(t, err)
	_, err = f.discounts.Create(context.Background(), domain.DiscountCode{
		Code: "SEASONAL-BBBB2222", CustomerID: id, Type: domain.DiscountSeasonal, Percentage: 20,
		ValidFrom: fixedNow.AddDate(0, 0, -40), ValidUntil: fixedNow.AddDate(0, 0, -10),
	})
	require.NoError(t, err)

	sess := f.session(t, id, priced(1000))
	sess.Cart.AttachCode("REFERRAL-AAAA1111")
	sess.Cart.AttachCode("SEASONAL-BBBB2222")
	sess.Cart.AttachCode("MISSING-00000000")

	res, err := f.svc.Checkout(context.Background(), sess, Input{PaymentMethod: "transfer"})
	require.NoError(t, err)
	assert.True(t, res.DiscountAmount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "REFERRAL-AAAA1111", res.DiscountCode)
	assert.Equal(t, "Discount code REFERRAL-AAAA1111 (15%)", res.DiscountReason)

	code, err := f.discounts.Get(context.Background(), "REFERRAL-AAAA1111")
	require.NoError(t, err)
	assert.True(t, code.Used)
	assert.Equal(t, res.OrderID, code.OrderID)
}

func TestCheckoutLoyaltyWinsTies(t *testing.T) {
	f := newFixture(t)
	id := f.customer(t, "cust_t", "", 1500)
	_, err := f.discounts.Create(context.Background(), domain.DiscountCode{
		Code: "SEASONAL-CCCC3333", CustomerID: id, Percentage: 10,
		ValidFrom: fixedNow, ValidUntil: fixedNow.AddDate(0, 0, 30),
	})
	require.NoError(t, err)
	sess := f.session(t, id, priced(500))
	sess.Cart.AttachCode("SEASONAL-CCCC3333")

	res, err := f.svc.Checkout(context.Background(), sess, Input{PaymentMethod: "card"})
	require.NoError(t, err)
	assert.Empty(t, res.DiscountCode)
	code, err := f.discounts.Get(context.Background(), "SEASONAL-CCCC3333")
	require.NoError(t, err)
	assert.False(t, code.Used)
}

func TestCheckoutSwallowsNotificationFailure(t *testing.T) {
	f := newFixture(t)
	id := f.customer(t, "cust_n", "n@example.com", 0)
	f.notifier.On("Send", mock.Anything, "n@example.com", notify.OrderConfirmation, mock.Anything).
		Return(errors.New("smtp down"))

	res, err := f.svc.Checkout(context.Background(), f.session(t, id, priced(100)), Input{PaymentMethod: "card"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.OrderID)
	f.notifier.AssertNumberOfCalls(t, "Send", 2)
}

func TestCheckoutPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	orders := &failingOrders{}
	f.svc.Orders = orders
	id := f.customer(t, "cust_f", "", 0)
	sess := f.session(t, id, priced(100))

	_, err := f.svc.Checkout(context.Background(), sess, Input{PaymentMethod: "card"})
	assert.ErrorIs(t, err, domain.ErrPersistenceFailed)
	assert.Equal(t, 2, orders.calls)
	assert.False(t, sess.Cart.IsEmpty())

	c, err := f.customers.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, c.TotalPurchases.IsZero())
}

func TestDiscountRounding(t *testing.T) {
	assert.Equal(t, "3.33", Discount(decimal.RequireFromString("33.33"), 10).StringFixed(2))
	assert.True(t, Discount(decimal.NewFromInt(100), 0).IsZero())
	assert.True(t, Discount(decimal.Zero, 10).IsZero())
}
