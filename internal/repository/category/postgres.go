package category

import (
	"context"
	"fmt"

	"agrofunnel/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Category, error) {
	const q = `
SELECT id, name, description, image_url, sort_order
FROM categories
ORDER BY sort_order ASC, name ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("category repo: list: %w", err)
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		var id string
		if err := rows.Scan(&id, &c.Name, &c.Description, &c.ImageURL, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("category repo: scan: %w", err)
		}
		c.ID = domain.ProductCategory(id)
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, c domain.Category) (*domain.Category, error) {
	const q = `
INSERT INTO categories (id, name, description, image_url, sort_order)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    description = COALESCE(NULLIF(EXCLUDED.description, ''), categories.description),
    image_url = COALESCE(NULLIF(EXCLUDED.image_url, ''), categories.image_url),
    sort_order = EXCLUDED.sort_order
RETURNING description, image_url
`
	out := c
	if err := r.pool.QueryRow(ctx, q, string(c.ID), c.Name, c.Description, c.ImageURL, c.SortOrder).
		Scan(&out.Description, &out.ImageURL); err != nil {
		return nil, fmt.Errorf("category repo: upsert %s: %w", c.ID, err)
	}
	return &out, nil
}
