package discount

import (
	"context"
	"testing"
	"time"

	"agrofunnel/internal/config"
	"agrofunnel/internal/domain"
	custrepo "agrofunnel/internal/repository/customer"
	discountrepo "agrofunnel/internal/repository/discount"
	"agrofunnel/internal/retry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var issuedAt = time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, customers ...domain.Customer) (*Service, discountrepo.Repository) {
	t.Helper()
	custs := custrepo.NewMemory()
	for _, c := range customers {
		_, err := custs.Create(context.Background(), c)
		require.NoError(t, err)
	}
	codes := discountrepo.NewMemory()
	svc, err := New(Deps{
		Codes:     codes,
		Customers: custs,
		Rules:     config.DefaultFunnel(),
		Policy:    retry.Policy{MaxAttempts: 1},
	})
	require.NoError(t, err)
	svc.now = func() time.Time { return issuedAt }
	return svc, codes
}

func customer(id string, purchases string) domain.Customer {
	return domain.Customer{ID: id, Name: id, TotalPurchases: decimal.RequireFromString(purchases)}
}

func TestGenerateLoyaltyDefault(t *testing.T) {
	svc, codes := newService(t, customer("cust_loyal", "15000"))

	res, err := svc.Generate(context.Background(), Input{CustomerID: "cust_loyal"})
	require.NoError(t, err)
	assert.Regexp(t, `^LOYALTY-[0-9A-F]{8}$`, res.Code)
	assert.Equal(t, domain.DiscountLoyalty, res.Type)
	assert.Equal(t, 10, res.Percentage)
	assert.Equal(t, "loyalty discount", res.Reason)
	assert.Equal(t, "2026-11-11", res.ValidUntil)
	assert.Len(t, res.Conditions, 3)

	stored, err := codes.Get(context.Background(), res.Code)
	require.NoError(t, err)
	assert.False(t, stored.Used)
	assert.Equal(t, "cust_loyal", stored.CustomerID)
}

func TestGenerateEligibility(t *testing.T) {
	svc, _ := newService(t,
		customer("cust_new", "0"),
		customer("cust_some", "0.01"),
		customer("cust_edge", "1000"),
		customer("cust_below", "999.99"),
	)
	cases := []struct {
		customer string
		kind     string
		ok       bool
	}{
		{"cust_new", "new_customer", true},
		{"cust_some", "new_customer", false},
		{"cust_edge", "loyalty", true},
		{"cust_below", "loyalty", false},
		{"cust_new", "loyalty", false},
		{"cust_new", "referral", true},
		{"cust_some", "seasonal", true},
	}
	for _, tc := range cases {
		_, err := svc.Generate(context.Background(), Input{CustomerID: tc.customer, Type: tc.kind})
		if tc.ok {
			assert.NoError(t, err, "%s/%s", tc.customer, tc.kind)
		} else {
			assert.ErrorIs(t, err, domain.ErrIneligible, "%s/%s", tc.customer, tc.kind)
		}
	}
}

func TestGeneratePercentages(t *testing.T) {
	svc, _ := newService(t, customer("cust_new", "0"))
	want := map[string]int{"new_customer": 5, "referral": 15, "seasonal": 10, "harvest_fair": 5}
	for kind, pct := range want {
		res, err := svc.Generate(context.Background(), Input{CustomerID: "cust_new", Type: kind, Reason: "feria"})
		require.NoError(t, err, kind)
		assert.Equal(t, pct, res.Percentage, kind)
		assert.Equal(t, "feria", res.Reason)
	}

	res, err := svc.Generate(context.Background(), Input{CustomerID: "cust_new", Type: "harvest_fair"})
	require.NoError(t, err)
	assert.Equal(t, []string{"See specific conditions"}, res.Conditions)
	assert.Regexp(t, `^HARVEST_FAIR-`, res.Code)
}

func TestGenerateFailures(t *testing.T) {
	svc, _ := newService(t, customer("cust_new", "0"))

	_, err := svc.Generate(context.Background(), Input{CustomerID: "cust_missing"})
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = svc.Generate(context.Background(), Input{CustomerID: "cust_new", Type: "50% off!"})
	assert.ErrorIs(t, err, domain.ErrInvalidArguments)
}

func TestEligibilityRulesCompile(t *testing.T) {
	e, err := NewEligibility(decimal.NewFromInt(500))
	require.NoError(t, err)
	ok, err := e.Eligible(domain.DiscountLoyalty, customer("c", "500"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.Eligible(domain.DiscountReferral, customer("c", "0"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEligibilityMatchesLoyaltyCheckExactly(t *testing.T) {
	threshold := decimal.RequireFromString("1000.0000001")
	e, err := NewEligibility(threshold)
	require.NoError(t, err)

	for _, purchases := range []string{"1000", "1000.00000009", "1000.0000001", "1000.00000011", "0.000000001", "0"} {
		c := customer("c", purchases)
		ok, err := e.Eligible(domain.DiscountLoyalty, c)
		require.NoError(t, err)
		assert.Equal(t, c.IsLoyal(threshold), ok, purchases)

		ok, err = e.Eligible(domain.DiscountNewCustomer, c)
		require.NoError(t, err)
		assert.Equal(t, c.TotalPurchases.IsZero(), ok, purchases)
	}
}
