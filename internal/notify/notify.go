// Package notify delivers customer confirmations. Delivery is best-effort: callers
// log failures and carry on.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Template names the message a notifier renders.
type Template string

const (
	OrderConfirmation   Template = "order_confirmation"
	ServiceConfirmation Template = "service_confirmation"
)

// Notifier sends a templated message to an email address.
type Notifier interface {
	Send(ctx context.Context, email string, template Template, payload map[string]interface{}) error
}

// Log writes notifications to the logger instead of delivering them.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) Send(_ context.Context, email string, template Template, payload map[string]interface{}) error {
	l.logger.Info("notification",
		zap.String("template", string(template)),
		zap.String("email", email),
		zap.Any("payload", payload),
		zap.Time("at", time.Now().UTC()),
	)
	return nil
}
