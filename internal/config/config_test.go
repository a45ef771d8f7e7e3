package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("LOYALTY_DISCOUNT_THRESHOLD", "")
	t.Setenv("TIME_ZONE", "UTC")

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.Funnel.LoyaltyThreshold.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 10, cfg.Funnel.LoyaltyPercentage)
	assert.Equal(t, 30, cfg.Funnel.ServiceBookingDaysAhead)
	assert.Equal(t, 60, cfg.Funnel.ServiceDurationMinutes)
	assert.Equal(t, "EUR", cfg.Funnel.Currency)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "MEMORY")
	t.Setenv("LOYALTY_DISCOUNT_THRESHOLD", "2500.50")
	t.Setenv("SERVICE_BOOKING_DAYS_AHEAD", "14")
	t.Setenv("STORE_TIMEOUT_MS", "750")
	t.Setenv("SESSION_TTL_SECONDS", "60")
	t.Setenv("CORS_ORIGINS", "https://agriland.es, https://shop.agriland.es")

	cfg := FromEnv()
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "2500.5", cfg.Funnel.LoyaltyThreshold.String())
	assert.Equal(t, 14, cfg.Funnel.ServiceBookingDaysAhead)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"https://agriland.es", "https://shop.agriland.es"}, cfg.CORSOrigins)
}

func TestFromEnvIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MAX_CART_ITEMS", "lots")
	t.Setenv("LOYALTY_DISCOUNT_THRESHOLD", "abc")

	cfg := FromEnv()
	assert.Equal(t, 50, cfg.Funnel.MaxCartItems)
	assert.True(t, cfg.Funnel.LoyaltyThreshold.Equal(decimal.NewFromInt(1000)))
}

func TestValidateSessionSecret(t *testing.T) {
	cfg := Config{Environment: "development", SessionSecret: DevSessionSecret}
	assert.NoError(t, cfg.Validate())

	cfg.Environment = "production"
	assert.ErrorContains(t, cfg.Validate(), "SESSION_SECRET must be set")

	cfg.SessionSecret = ""
	assert.Error(t, cfg.Validate())

	cfg.SessionSecret = "short"
	assert.ErrorContains(t, cfg.Validate(), "at least 32 bytes")

	cfg.SessionSecret = "a7f9c1e0b24d48f6a3c5e7d9b1f2a4c6"
	assert.NoError(t, cfg.Validate())
}

func TestFromEnvProductionWithoutSecretFailsValidation(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_SECRET", "")

	assert.Error(t, FromEnv().Validate())
}
