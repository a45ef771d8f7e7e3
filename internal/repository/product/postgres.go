package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agrofunnel/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const columns = `id, name, category, brand, model, description, price, currency, image_url, specifications,
       stock, lead_time_days, warranty_months, financing_available, created_at`

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

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.Product, error) {
	q := `SELECT ` + columns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("product not found", zap.String("product_id", id))
			return nil, domain.ErrNotFound
		}
		r.logger.Error("product repo: get", zap.String("product_id", id), zap.Error(err))
		return nil, fmt.Errorf("product repo: get %s: %w", id, err)
	}
	return p, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	return r.query(ctx, `SELECT `+columns+` FROM products ORDER BY category, name`)
}

func (r *postgresRepo) Search(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	const where = `
FROM products
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' ESCAPE '\' OR description ILIKE '%' || $1 || '%' ESCAPE '\')
  AND ($2 = '' OR category = $2)
  AND ($3::numeric IS NULL OR price >= $3::numeric)
  AND ($4::numeric IS NULL OR price <= $4::numeric)
ORDER BY name, id
LIMIT NULLIF($5, 0)`
	result, err := r.query(ctx, `SELECT `+columns+where,
		escapeLike(strings.TrimSpace(q.Text)),
		string(q.Category),
		q.MinPrice,
		q.MaxPrice,
		q.Limit,
	)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("product search", zap.String("text", q.Text), zap.String("category", string(q.Category)), zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	q := `
INSERT INTO products (id, name, category, brand, model, description, price, currency, image_url, specifications,
                      stock, lead_time_days, warranty_months, financing_available)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, '{}'::jsonb), $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    category = EXCLUDED.category,
    brand = EXCLUDED.brand,
    model = EXCLUDED.model,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    currency = EXCLUDED.currency,
    image_url = EXCLUDED.image_url,
    specifications = EXCLUDED.specifications,
    stock = EXCLUDED.stock,
    lead_time_days = EXCLUDED.lead_time_days,
    warranty_months = EXCLUDED.warranty_months,
    financing_available = EXCLUDED.financing_available
RETURNING ` + columns
	out, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.ID,
		p.Name,
		string(p.Category),
		p.Brand,
		p.Model,
		p.Description,
		p.Price,
		p.Currency,
		p.ImageURL,
		p.Specifications,
		p.Stock,
		p.LeadTimeDays,
		p.WarrantyMonths,
		p.FinancingAvailable,
	))
	if err != nil {
		r.logger.Error("product repo: upsert", zap.String("product_id", p.ID), zap.Error(err))
		return nil, fmt.Errorf("product repo: upsert %s: %w", p.ID, err)
	}
	r.logger.Debug("product upserted", zap.String("product_id", out.ID))
	return out, nil
}

func (r *postgresRepo) query(ctx context.Context, q string, args ...interface{}) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("product repo: query: %w", err)
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("product repo: scan: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("product repo: rows: %w", err)
	}
	return result, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var category string
	err := row.Scan(
		&p.ID,
		&p.Name,
		&category,
		&p.Brand,
		&p.Model,
		&p.Description,
		&p.Price,
		&p.Currency,
		&p.ImageURL,
		&p.Specifications,
		&p.Stock,
		&p.LeadTimeDays,
		&p.WarrantyMonths,
		&p.FinancingAvailable,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Category = domain.ProductCategory(category)
	return &p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
