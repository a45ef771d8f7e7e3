package ident

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderAndBookingIDFormat(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	assert.Regexp(t, regexp.MustCompile(`^ORD-20261015-[0-9A-F]{6}$`), OrderID(now))
	assert.Regexp(t, regexp.MustCompile(`^SVC-20261015-[0-9A-F]{6}$`), BookingID(now))
}

func TestDiscountCodeFormat(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^NEW_CUSTOMER-[0-9A-F]{8}$`), DiscountCode("new_customer"))
	assert.Regexp(t, regexp.MustCompile(`^LOYALTY-[0-9A-F]{8}$`), DiscountCode("loyalty"))
}

func TestIDsAreUnique(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := OrderID(now)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
