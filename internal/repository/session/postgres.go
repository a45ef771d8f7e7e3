package session

import (
	"context"
	"errors"
	"fmt"

	"agrofunnel/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const columns = `id, customer_id, funnel_step, language, selected_category, selected_product, viewed_products, created_at, updated_at`

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

func (r *postgresRepo) Create(ctx context.Context, s domain.Session) (*domain.Session, error) {
	q := `
INSERT INTO sessions (id, customer_id, funnel_step, language, selected_category, selected_product, viewed_products)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, '[]'::jsonb))
RETURNING ` + columns
	out, err := scanSession(r.pool.QueryRow(ctx, q, s.ID, s.CustomerID, string(s.Step), s.Language,
		string(s.SelectedCategory), s.SelectedProduct, s.ViewedProducts))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("session repo: create %s: %w", s.ID, err)
	}
	r.logger.Debug("session created", zap.String("session_id", out.ID))
	return out, nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.Session, error) {
	out, err := scanSession(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("session repo: get %s: %w", id, err)
	}
	return out, nil
}

func (r *postgresRepo) Update(ctx context.Context, s domain.Session) (*domain.Session, error) {
	q := `
UPDATE sessions
SET customer_id = $2,
    funnel_step = $3,
    language = $4,
    selected_category = $5,
    selected_product = $6,
    viewed_products = COALESCE($7, '[]'::jsonb),
    updated_at = now()
WHERE id = $1
RETURNING ` + columns
	out, err := scanSession(r.pool.QueryRow(ctx, q, s.ID, s.CustomerID, string(s.Step), s.Language,
		string(s.SelectedCategory), s.SelectedProduct, s.ViewedProducts))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("session repo: update %s: %w", s.ID, err)
	}
	r.logger.Debug("session updated", zap.String("session_id", out.ID), zap.String("step", string(out.Step)))
	return out, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	var step, category string
	if err := row.Scan(&s.ID, &s.CustomerID, &step, &s.Language, &category, &s.SelectedProduct,
		&s.ViewedProducts, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Step = domain.FunnelStep(step)
	s.SelectedCategory = domain.ProductCategory(category)
	return &s, nil
}
