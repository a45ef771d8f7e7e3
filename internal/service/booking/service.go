// Package booking schedules on-site services: demos, installations, maintenance and training.
package booking

import (
	"context"
	"strconv"
	"strings"
	"time"

	"agrofunnel/internal/config"
	"agrofunnel/internal/domain"
	"agrofunnel/internal/ident"
	"agrofunnel/internal/notify"
	"agrofunnel/internal/observability"
	"agrofunnel/internal/retry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type bookingStore interface {
	Create(ctx context.Context, b domain.ServiceBooking) (string, error)
}

type customerStore interface {
	Get(ctx context.Context, id string) (*domain.Customer, error)
}

type Deps struct {
	Bookings  bookingStore
	Customers customerStore
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

type Input struct {
	CustomerID  string `json:"customer_id"`
	ServiceType string `json:"service_type"`
	Date        string `json:"preferred_date"`
	Location    string `json:"location"`
	ProductID   string `json:"product_id,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Details is the customer-facing summary of a booked visit.
type Details struct {
	Service    string `json:"service"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Location   string `json:"location"`
	Duration   string `json:"duration"`
	Technician string `json:"technician"`
}

type Result struct {
	BookingID string                `json:"bookingId"`
	Booking   domain.ServiceBooking `json:"booking"`
	Details   Details               `json:"details"`
	NextSteps []string              `json:"nextSteps"`
}

var nextSteps = []string{
	"You will receive a confirmation email",
	"A technician will call you 24 hours before to confirm the time",
	"Please prepare the area where the service will take place",
}

// Schedule validates the requested date and stores a scheduled booking.
func (s *Service) Schedule(ctx context.Context, in Input) (res *Result, err error) {
	ctx, end := s.Tracker.Track(ctx, "schedule_service",
		attribute.String("service.type", in.ServiceType),
		attribute.String("customer.id", in.CustomerID),
	)
	defer func() { end(err) }()

	now := s.now()
	serviceType, date, err := s.Validate(in.ServiceType, in.Date, now)
	if err != nil {
		return nil, err
	}

	b := domain.ServiceBooking{
		ID:              ident.BookingID(now.In(s.Location)),
		CustomerID:      strings.TrimSpace(in.CustomerID),
		ServiceType:     serviceType,
		ProductID:       strings.TrimSpace(in.ProductID),
		ScheduledDate:   date,
		DurationMinutes: s.Rules.ServiceDurationMinutes,
		Location:        strings.TrimSpace(in.Location),
		Notes:           strings.TrimSpace(in.Notes),
		Status:          domain.BookingStatusScheduled,
		CreatedAt:       now.UTC(),
	}
	err = retry.Do(ctx, s.Policy, func(ctx context.Context) error {
		_, err := s.Bookings.Create(ctx, b)
		return err
	})
	if err != nil {
		s.Logger.Error("booking create failed", zap.String("booking_id", b.ID), zap.Error(err))
		return nil, domain.Persistence(err)
	}

	details := Details{
		Service:    serviceType.Description(),
		Date:       date.Format(dateLayout),
		Time:       "To be confirmed",
		Location:   b.Location,
		Duration:   formatMinutes(b.DurationMinutes),
		Technician: "To be assigned",
	}
	s.confirm(ctx, b, details)

	s.Logger.Info("service scheduled",
		zap.String("booking_id", b.ID),
		zap.String("customer_id", b.CustomerID),
		zap.String("service_type", string(serviceType)),
		zap.String("date", details.Date),
	)
	return &Result{
		BookingID: b.ID,
		Booking:   b,
		Details:   details,
		NextSteps: append([]string(nil), nextSteps...),
	}, nil
}

// Validate checks serviceType and raw in order: type, format, future date,
// booking horizon, weekday. It returns the date at midnight in the service location.
func (s *Service) Validate(serviceType, raw string, now time.Time) (domain.ServiceType, time.Time, error) {
	t := domain.ServiceType(strings.ToLower(strings.TrimSpace(serviceType)))
	if !t.Valid() {
		return "", time.Time{}, domain.NewError(domain.KindInvalidServiceType,
			"invalid service type %q, choose one of: demo, installation, maintenance, training", serviceType)
	}

	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), s.Location)
	if err != nil {
		return "", time.Time{}, domain.NewError(domain.KindInvalidDateFormat, "invalid date %q, use YYYY-MM-DD", raw)
	}

	local := now.In(s.Location)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.Location)
	if !date.After(today) {
		return "", time.Time{}, domain.NewError(domain.KindPastDate, "the date must be after today (%s)", today.Format(dateLayout))
	}
	horizon := today.AddDate(0, 0, s.Rules.ServiceBookingDaysAhead)
	if date.After(horizon) {
		return "", time.Time{}, domain.NewError(domain.KindBookingHorizonExceeded,
			"services can be booked at most %d days ahead, until %s", s.Rules.ServiceBookingDaysAhead, horizon.Format(dateLayout))
	}
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return "", time.Time{}, domain.NewError(domain.KindWeekendUnavailable,
			"%s is a %s, services are available Monday to Friday", date.Format(dateLayout), wd)
	}
	return t, date, nil
}

// confirm emails the customer when an address is on file. Lookup and delivery are best-effort.
func (s *Service) confirm(ctx context.Context, b domain.ServiceBooking, d Details) {
	if b.CustomerID == "" || s.Customers == nil {
		return
	}
	var c *domain.Customer
	err := retry.Do(ctx, s.Policy, func(ctx context.Context) error {
		var err error
		c, err = s.Customers.Get(ctx, b.CustomerID)
		return err
	})
	if err != nil {
		s.Logger.Warn("booking customer lookup failed", zap.String("customer_id", b.CustomerID), zap.Error(err))
		return
	}
	if c.Email == "" {
		return
	}
	payload := map[string]interface{}{
		"booking_id":    b.ID,
		"customer_name": c.Name,
		"service":       d.Service,
		"date":          d.Date,
		"location":      d.Location,
	}
	err = retry.Do(ctx, s.Policy, func(ctx context.Context) error {
		return s.Notifier.Send(ctx, c.Email, notify.ServiceConfirmation, payload)
	})
	if err != nil {
		s.Logger.Warn("service confirmation not sent", zap.String("booking_id", b.ID), zap.Error(err))
	}
}

func formatMinutes(m int) string {
	if m == 1 {
		return "1 minute"
	}
	return strconv.Itoa(m) + " minutes"
}
