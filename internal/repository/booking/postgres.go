package booking

import (
	"context"
	"fmt"
	"time"

	"agrofunnel/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, b domain.ServiceBooking) (string, error) {
	const q = `
INSERT INTO service_bookings (id, customer_id, service_type, product_id, scheduled_date, duration_minutes,
                              location, notes, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING
`
	date := time.Date(b.ScheduledDate.Year(), b.ScheduledDate.Month(), b.ScheduledDate.Day(), 0, 0, 0, 0, time.UTC)
	if _, err := r.pool.Exec(ctx, q, b.ID, b.CustomerID, string(b.ServiceType), b.ProductID, date,
		b.DurationMinutes, b.Location, b.Notes, b.Status, b.CreatedAt); err != nil {
		r.logger.Error("booking repo: create", zap.String("booking_id", b.ID), zap.Error(err))
		return "", fmt.Errorf("booking repo: create %s: %w", b.ID, err)
	}
	r.logger.Debug("booking stored", zap.String("booking_id", b.ID), zap.String("customer_id", b.CustomerID))
	return b.ID, nil
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.ServiceBooking, error) {
	const q = `
SELECT id, customer_id, service_type, product_id, scheduled_date, duration_minutes, location, notes, status, created_at
FROM service_bookings
WHERE customer_id = $1
ORDER BY scheduled_date ASC, id ASC
`
	rows, err := r.pool.Query(ctx, q, customerID)
	if err != nil {
		return nil, fmt.Errorf("booking repo: list %s: %w", customerID, err)
	}
	defer rows.Close()

	var result []domain.ServiceBooking
	for rows.Next() {
		var b domain.ServiceBooking
		var serviceType string
		if err := rows.Scan(&b.ID, &b.CustomerID, &serviceType, &b.ProductID, &b.ScheduledDate,
			&b.DurationMinutes, &b.Location, &b.Notes, &b.Status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("booking repo: scan: %w", err)
		}
		b.ServiceType = domain.ServiceType(serviceType)
		result = append(result, b)
	}
	return result, rows.Err()
}
