package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"agrofunnel/internal/config"
	"agrofunnel/internal/domain"
	"agrofunnel/internal/lock"
	bookingrepo "agrofunnel/internal/repository/booking"
	cartrepo "agrofunnel/internal/repository/cart"
	categoryrepo "agrofunnel/internal/repository/category"
	custrepo "agrofunnel/internal/repository/customer"
	discountrepo "agrofunnel/internal/repository/discount"
	orderrepo "agrofunnel/internal/repository/order"
	productrepo "agrofunnel/internal/repository/product"
	sessrepo "agrofunnel/internal/repository/session"
	"agrofunnel/internal/retry"
	"agrofunnel/internal/service/booking"
	"agrofunnel/internal/service/cart"
	"agrofunnel/internal/service/catalog"
	"agrofunnel/internal/service/checkout"
	"agrofunnel/internal/service/customer"
	"agrofunnel/internal/service/discount"
	"agrofunnel/internal/service/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	registry  *Registry
	sessions  *session.Service
	customers custrepo.Repository
	orders    orderrepo.Repository
}

func buildHarness() (*harness, error) {
	ctx := context.Background()
	rules := config.DefaultFunnel()
	policy := retry.Policy{MaxAttempts: 1}

	products := productrepo.NewMemory()
	for _, p := range []domain.Product{
		{ID: "tractor_x1000", Name: "Tractor Serie X1000", Category: domain.CategoryTractores, Description: "Tractor de 120 CV", Price: decimal.NewFromInt(75000), Currency: "EUR", Stock: 3},
		{ID: "arado_3000", Name: "Arado Reversible 3000", Category: domain.CategoryImplementos, Description: "Arado para tractor", Price: decimal.NewFromInt(15000), Currency: "EUR", Stock: 5},
	} {
		if _, err := products.Upsert(ctx, p); err != nil {
			return nil, err
		}
	}
	customers := custrepo.NewMemory()
	if _, err := customers.Create(ctx, domain.Customer{ID: "cust_juan", Name: "Juan Pérez", Email: "juan@example.com", TotalPurchases: decimal.NewFromInt(15000)}); err != nil {
		return nil, err
	}

	carts := cartrepo.NewMemory()
	orders := orderrepo.NewMemory()
	discounts := discountrepo.NewMemory()
	sessions := session.New(sessrepo.NewMemory(), carts, lock.NewMemory(lock.DefaultTTL, time.Second),
		session.NewTokens("secret", time.Hour), policy, nil)
	discountSvc, err := discount.New(discount.Deps{Codes: discounts, Customers: customers, Rules: rules, Policy: policy})
	if err != nil {
		return nil, err
	}

	registry, err := New(Services{
		Sessions:  sessions,
		Customers: customer.New(customers, policy, nil),
		Catalog:   catalog.New(products, categoryrepo.NewMemory(), policy, nil),
		Cart:      cart.New(carts, products, discounts, policy, rules.MaxCartItems, rules.Currency, nil),
		Checkout:  checkout.New(checkout.Deps{Customers: customers, Orders: orders, Discounts: discounts, Carts: carts, Policy: policy, Rules: rules}),
		Booking:   booking.New(booking.Deps{Bookings: bookingrepo.NewMemory(), Customers: customers, Policy: policy, Rules: rules}),
		Discounts: discountSvc,
	}, nil)
	if err != nil {
		return nil, err
	}
	return &harness{registry: registry, sessions: sessions, customers: customers, orders: orders}, nil
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h, err := buildHarness()
	require.NoError(t, err)
	return h
}

func (h *harness) start(t *testing.T) string {
	t.Helper()
	started, err := h.sessions.Start(context.Background(), "es")
	require.NoError(t, err)
	return started.Session.ID
}

func (h *harness) call(t *testing.T, sessionID, name, args string) Result {
	t.Helper()
	return h.registry.Call(context.Background(), sessionID, name, json.RawMessage(args))
}

// decodeData round-trips the result payload the way a caller sees it.
func decodeData(t *testing.T, r Result, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(r.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestListToolsSorted(t *testing.T) {
	h := newHarness(t)
	list := h.registry.List()
	require.Len(t, list, 13)
	assert.Equal(t, "add_to_cart", list[0].Name)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Name, list[i].Name)
	}
	assert.True(t, json.Valid(list[0].Parameters))
}

func TestUnknownToolAndInvalidArguments(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)

	res := h.call(t, id, "delete_everything", `{}`)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, domain.KindUnknownTool, res.Kind)

	res = h.call(t, id, "add_to_cart", `{"product_id": "tractor_x1000", "quantity": 0}`)
	assert.Equal(t, domain.KindInvalidArguments, res.Kind)
	assert.Contains(t, res.Message, "/quantity")

	res = h.call(t, id, "search_products", `{"colour": "green"}`)
	assert.Equal(t, domain.KindInvalidArguments, res.Kind)

	res = h.call(t, id, "get_cart_summary", `not json`)
	assert.Equal(t, domain.KindInvalidArguments, res.Kind)
}

func TestValidateDecodesNumbersExactly(t *testing.T) {
	h := newHarness(t)
	schema := h.registry.tools["add_to_cart"].schema

	assert.NoError(t, validate(schema, json.RawMessage(`{"product_id": "tractor_x1000", "quantity": 2}`)))
	assert.NoError(t, validate(schema, json.RawMessage(`{"product_id": "tractor_x1000", "quantity": 9007199254740993}`)))

	err := validate(schema, json.RawMessage(`{"product_id": "tractor_x1000", "quantity": 1.5}`))
	assert.ErrorIs(t, err, domain.ErrInvalidArguments)
	assert.Contains(t, err.Error(), "/quantity")

	err = validate(schema, json.RawMessage(`{"product_id": "tractor_x1000"} {}`))
	assert.ErrorIs(t, err, domain.ErrInvalidArguments)
	err = validate(schema, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArguments)
}

func TestDisallowedTransition(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)

	res := h.call(t, id, "add_to_cart", `{"product_id": "tractor_x1000"}`)
	assert.Equal(t, domain.KindInvalidTransition, res.Kind)

	sess, err := h.sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StepGreeting, sess.Step)
}

func TestCheckoutRulesRunFromAnyStep(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)

	res := h.call(t, id, "process_checkout", `{"payment_method": "card"}`)
	assert.Equal(t, domain.KindEmptyCart, res.Kind)

	res = h.call(t, id, "identify_customer", `{"name": "Juan Pérez", "email": "juan@example.com"}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	res = h.call(t, id, "search_products", `{}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	res = h.call(t, id, "add_to_cart", `{"product_id": "tractor_x1000"}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	res = h.call(t, id, "search_products", `{"query": "arado"}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)

	res = h.call(t, id, "process_checkout", `{"payment_method": "cash"}`)
	assert.Equal(t, domain.KindInvalidPaymentMethod, res.Kind)
	sess, err := h.sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StepBrowsing, sess.Step)

	res = h.call(t, id, "process_checkout", `{"payment_method": "transfer"}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, domain.StepBrowsing, res.Step)
}

func TestSalesConversation(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)

	res := h.call(t, id, "identify_customer", `{"name": "Juan Pérez", "email": "Juan@Example.com"}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, domain.StepProfiling, res.Step)
	assert.Equal(t, "Welcome back, Juan Pérez", res.Message)

	res = h.call(t, id, "search_products", `{"query": "tractor", "max_price": 80000}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, domain.StepBrowsing, res.Step)
	assert.Equal(t, "Found 2 products", res.Message)

	res = h.call(t, id, "get_product_details", `{"product_id": "tractor_x1000"}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, domain.StepDetail, res.Step)

	res = h.call(t, id, "add_to_cart", `{"product_id": "tractor_x1000"}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, domain.StepCart, res.Step)
	assert.Equal(t, "Added 1 x Tractor Serie X1000 to the cart", res.Message)

	res = h.call(t, id, "get_recommendations", `{"limit": 5}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	var recs struct {
		Products []domain.Product `json:"products"`
	}
	decodeData(t, res, &recs)
	require.Len(t, recs.Products, 1)
	assert.Equal(t, "arado_3000", recs.Products[0].ID)
	assert.Equal(t, domain.StepBrowsing, res.Step)

	res = h.call(t, id, "get_cart_summary", ``)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, domain.StepCart, res.Step)

	res = h.call(t, id, "process_checkout", `{"payment_method": "financing"}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, domain.StepBrowsing, res.Step)
	var order checkout.Result
	decodeData(t, res, &order)
	assert.True(t, order.DiscountAmount.Equal(decimal.NewFromInt(7500)))
	assert.True(t, order.Total.Equal(decimal.NewFromInt(67500)))
	assert.Len(t, order.NextSteps, 4)

	sess, err := h.sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, sess.Cart.IsEmpty())
	assert.Equal(t, []string{"tractor_x1000"}, sess.ViewedProducts)

	stored, err := h.orders.Get(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "cust_juan", stored.CustomerID)
}

func TestCheckoutFailureKeepsStep(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)
	require.Equal(t, StatusSuccess, h.call(t, id, "search_products", `{"category": "implementos"}`).Status)
	require.Equal(t, StatusSuccess, h.call(t, id, "add_to_cart", `{"product_id": "arado_3000", "quantity": 2}`).Status)

	res := h.call(t, id, "process_checkout", `{"payment_method": "card"}`)
	assert.Equal(t, domain.KindUnauthenticated, res.Kind)

	sess, err := h.sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StepCart, sess.Step)
	assert.Equal(t, 2, sess.Cart.TotalItems())
}

func TestCustomerScopedTools(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)

	res := h.call(t, id, "schedule_service", `{"service_type": "demo", "preferred_date": "2030-01-07", "location": "Jaén"}`)
	assert.Equal(t, domain.KindUnauthenticated, res.Kind)

	require.Equal(t, StatusSuccess, h.call(t, id, "identify_customer", `{"name": "Ana", "email": "ana@example.com"}`).Status)

	res = h.call(t, id, "generate_discount_code", `{"discount_type": "new_customer"}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	var code discount.Result
	decodeData(t, res, &code)
	assert.Equal(t, 5, code.Percentage)

	res = h.call(t, id, "apply_discount_code", `{"code": "`+code.Code+`"}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, domain.StepCart, res.Step)

	res = h.call(t, id, "generate_discount_code", `{"customer_id": "cust_juan", "discount_type": "loyalty"}`)
	assert.Equal(t, domain.KindUnauthenticated, res.Kind)

	res = h.call(t, id, "update_customer_profile", `{"hectares": 120, "sector": "cereal"}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, domain.StepCart, res.Step)

	res = h.call(t, id, "get_customer_profile", `{}`)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	var profile domain.Customer
	decodeData(t, res, &profile)
	require.NotNil(t, profile.Hectares)
	assert.Equal(t, 120.0, *profile.Hectares)
}
