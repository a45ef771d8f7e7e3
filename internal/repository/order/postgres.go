package order

import (
	"context"
	"errors"
	"fmt"

	"agrofunnel/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const columns = `id, customer_id, customer_name, customer_email, lines, subtotal, discount_codes, discount_amount,
       discount_reason, total, currency, payment_method, delivery_address, billing_info, special_instructions,
       status, created_at`

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

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (string, error) {
	const q = `
INSERT INTO orders (id, customer_id, customer_name, customer_email, lines, subtotal, discount_codes, discount_amount,
                    discount_reason, total, currency, payment_method, delivery_address, billing_info,
                    special_instructions, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, '[]'::jsonb), $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (id) DO NOTHING
`
	cmd, err := r.pool.Exec(ctx, q,
		o.ID,
		o.CustomerID,
		o.CustomerName,
		o.CustomerEmail,
		o.Lines,
		o.Subtotal,
		o.DiscountCodes,
		o.DiscountAmount,
		o.DiscountReason,
		o.Total,
		o.Currency,
		string(o.PaymentMethod),
		o.DeliveryAddress,
		o.BillingInfo,
		o.SpecialInstructions,
		o.Status,
		o.CreatedAt,
	)
	if err != nil {
		r.logger.Error("order repo: create", zap.String("order_id", o.ID), zap.Error(err))
		return "", fmt.Errorf("order repo: create %s: %w", o.ID, err)
	}
	if cmd.RowsAffected() == 0 {
		r.logger.Debug("order already stored", zap.String("order_id", o.ID))
	}
	return o.ID, nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("order repo: get %s: %w", id, err)
	}
	return o, nil
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC, id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("order repo: list %s: %w", customerID, err)
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("order repo: scan: %w", err)
		}
		result = append(result, *o)
	}
	return result, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var method string
	err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.Lines,
		&o.Subtotal,
		&o.DiscountCodes,
		&o.DiscountAmount,
		&o.DiscountReason,
		&o.Total,
		&o.Currency,
		&method,
		&o.DeliveryAddress,
		&o.BillingInfo,
		&o.SpecialInstructions,
		&o.Status,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = domain.PaymentMethod(method)
	return &o, nil
}
