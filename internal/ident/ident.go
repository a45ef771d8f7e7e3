// Package ident generates the human-readable identifiers handed to customers.
package ident

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	OrderPrefix   = "ORD"
	BookingPrefix = "SVC"
)

// OrderID returns ORD-YYYYMMDD-XXXXXX for the given creation time.
func OrderID(now time.Time) string {
	return dated(OrderPrefix, now)
}

// BookingID returns SVC-YYYYMMDD-XXXXXX for the given creation time.
func BookingID(now time.Time) string {
	return dated(BookingPrefix, now)
}

// DiscountCode returns TYPE-XXXXXXXX, the type upper-cased.
func DiscountCode(discountType string) string {
	return strings.ToUpper(discountType) + "-" + suffix(8)
}

// CustomerID returns cust_ followed by 12 lowercase hex characters.
func CustomerID() string {
	return "cust_" + strings.ToLower(suffix(12))
}

// SessionID returns a random UUID.
func SessionID() string {
	return uuid.NewString()
}

func dated(prefix string, now time.Time) string {
	return prefix + "-" + now.Format("20060102") + "-" + suffix(6)
}

func suffix(n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(hex[:n])
}
