package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agrofunnel/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const columns = `id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(company_name, ''), customer_type,
       COALESCE(sector, ''), COALESCE(location, ''), hectares, main_crops, current_machinery,
       total_purchases, loyalty_points, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	q := `
INSERT INTO customers (
    id, name, email, phone, company_name, customer_type, sector, location, hectares,
    main_crops, current_machinery, total_purchases, loyalty_points
) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''), $9,
          COALESCE($10, '[]'::jsonb), COALESCE($11, '[]'::jsonb), $12, $13)
RETURNING ` + columns
	out, err := r.scanCustomer(r.pool.QueryRow(ctx, q,
		c.ID,
		c.Name,
		strings.ToLower(c.Email),
		c.Phone,
		c.CompanyName,
		string(c.Type),
		c.Sector,
		c.Location,
		c.Hectares,
		c.MainCrops,
		c.CurrentMachinery,
		c.TotalPurchases,
		c.LoyaltyPoints,
	))
	if err != nil {
		return nil, err
	}
	r.logger.Debug("customer created", zap.String("customer_id", out.ID))
	return out, nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.Customer, error) {
	q := `SELECT ` + columns + ` FROM customers WHERE id = $1`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	q := `SELECT ` + columns + ` FROM customers WHERE lower(email) = lower($1) LIMIT 1`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, email))
}

func (r *postgresRepo) Update(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	q := `
UPDATE customers
SET name = $2,
    email = NULLIF($3, ''),
    phone = NULLIF($4, ''),
    company_name = NULLIF($5, ''),
    customer_type = $6,
    sector = NULLIF($7, ''),
    location = NULLIF($8, ''),
    hectares = $9,
    main_crops = COALESCE($10, '[]'::jsonb),
    current_machinery = COALESCE($11, '[]'::jsonb),
    updated_at = now()
WHERE id = $1
RETURNING ` + columns
	out, err := r.scanCustomer(r.pool.QueryRow(ctx, q,
		c.ID,
		c.Name,
		strings.ToLower(c.Email),
		c.Phone,
		c.CompanyName,
		string(c.Type),
		c.Sector,
		c.Location,
		c.Hectares,
		c.MainCrops,
		c.CurrentMachinery,
	))
	if err != nil {
		return nil, err
	}
	r.logger.Debug("customer updated", zap.String("customer_id", out.ID))
	return out, nil
}

func (r *postgresRepo) AddPurchase(ctx context.Context, id, orderID string, amount decimal.Decimal) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("customer repo: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
INSERT INTO customer_purchases (order_id, customer_id, amount)
VALUES ($1, $2, $3)
ON CONFLICT (order_id) DO NOTHING
`, orderID, id, amount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.ErrNotFound
		}
		return fmt.Errorf("customer repo: record purchase %s: %w", orderID, err)
	}
	if cmd.RowsAffected() == 0 {
		r.logger.Debug("purchase already applied", zap.String("customer_id", id), zap.String("order_id", orderID))
		return nil
	}

	cmd, err = tx.Exec(ctx, `
UPDATE customers
SET total_purchases = total_purchases + $2,
    updated_at = now()
WHERE id = $1
`, id, amount)
	if err != nil {
		return fmt.Errorf("customer repo: add purchase %s: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("customer repo: commit: %w", err)
	}
	r.logger.Debug("purchase applied", zap.String("customer_id", id), zap.String("order_id", orderID), zap.String("amount", amount.StringFixed(2)))
	return nil
}

func (r *postgresRepo) scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	var customerType string
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.CompanyName,
		&customerType,
		&c.Sector,
		&c.Location,
		&c.Hectares,
		&c.MainCrops,
		&c.CurrentMachinery,
		&c.TotalPurchases,
		&c.LoyaltyPoints,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error("customer repo: scan", zap.Error(err))
		return nil, fmt.Errorf("customer repo: %w", err)
	}
	c.Type = domain.CustomerType(customerType)
	return &c, nil
}
