package discount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agrofunnel/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const columns = `code, customer_id, type, percentage, reason, valid_from, valid_until, used, used_at, order_id, created_at`

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

func (r *postgresRepo) Create(ctx context.Context, d domain.DiscountCode) (*domain.DiscountCode, error) {
	q := `
INSERT INTO discount_codes (code, customer_id, type, percentage, reason, valid_from, valid_until, used, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + columns
	out, err := scanCode(r.pool.QueryRow(ctx, q, d.Code, d.CustomerID, string(d.Type), d.Percentage, d.Reason,
		d.ValidFrom, d.ValidUntil, d.Used, d.CreatedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("discount repo: create %s: %w", d.Code, err)
	}
	r.logger.Debug("discount code stored", zap.String("code", out.Code), zap.String("customer_id", out.CustomerID))
	return out, nil
}

func (r *postgresRepo) Get(ctx context.Context, code string) (*domain.DiscountCode, error) {
	out, err := scanCode(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM discount_codes WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("discount repo: get %s: %w", code, err)
	}
	return out, nil
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.DiscountCode, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM discount_codes WHERE customer_id = $1 ORDER BY created_at DESC, code`, customerID)
	if err != nil {
		return nil, fmt.Errorf("discount repo: list %s: %w", customerID, err)
	}
	defer rows.Close()

	var result []domain.DiscountCode
	for rows.Next() {
		d, err := scanCode(rows)
		if err != nil {
			return nil, fmt.Errorf("discount repo: scan: %w", err)
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *postgresRepo) MarkUsed(ctx context.Context, code, orderID string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE discount_codes
SET used = true, used_at = $3, order_id = $2
WHERE code = $1 AND (used = false OR order_id = $2)
`, code, orderID, at)
	if err != nil {
		return fmt.Errorf("discount repo: mark used %s: %w", code, err)
	}
	if cmd.RowsAffected() == 1 {
		r.logger.Debug("discount code redeemed", zap.String("code", code), zap.String("order_id", orderID))
		return nil
	}
	if _, err := r.Get(ctx, code); err != nil {
		return err
	}
	return domain.NewError(domain.KindInvalidDiscountCode, "discount code %s was already used", code)
}

func scanCode(row pgx.Row) (*domain.DiscountCode, error) {
	var d domain.DiscountCode
	var discountType string
	err := row.Scan(&d.Code, &d.CustomerID, &discountType, &d.Percentage, &d.Reason, &d.ValidFrom, &d.ValidUntil,
		&d.Used, &d.UsedAt, &d.OrderID, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.Type = domain.DiscountType(discountType)
	return &d, nil
}
