package cart

import (
	"context"
	"errors"
	"fmt"

	"agrofunnel/internal/domain"
	"github.com/jackc/pgx/v5"
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

func (r *postgresRepo) Get(ctx context.Context, sessionID string) (domain.Cart, error) {
	var cart domain.Cart
	err := r.pool.QueryRow(ctx, `SELECT discount_codes FROM carts WHERE session_id = $1`, sessionID).Scan(&cart.DiscountCodes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Cart{}, nil
		}
		return domain.Cart{}, fmt.Errorf("cart repo: get %s: %w", sessionID, err)
	}

	const linesQuery = `
SELECT product_id, name, category, unit_price, currency, quantity, notes, added_at
FROM cart_lines
WHERE session_id = $1
ORDER BY position ASC
`
	rows, err := r.pool.Query(ctx, linesQuery, sessionID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("cart repo: lines %s: %w", sessionID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		var category string
		if err := rows.Scan(
			&item.ProductID,
			&item.Name,
			&category,
			&item.UnitPrice,
			&item.Currency,
			&item.Quantity,
			&item.Notes,
			&item.AddedAt,
		); err != nil {
			return domain.Cart{}, fmt.Errorf("cart repo: scan line: %w", err)
		}
		item.Category = domain.ProductCategory(category)
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

// Save replaces the stored cart with cart in one transaction.
func (r *postgresRepo) Save(ctx context.Context, sessionID string, cart domain.Cart) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("cart repo: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	codes := cart.DiscountCodes
	if codes == nil {
		codes = []string{}
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO carts (session_id, discount_codes, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (session_id) DO UPDATE
SET discount_codes = EXCLUDED.discount_codes,
    updated_at = now()
`, sessionID, codes); err != nil {
		return fmt.Errorf("cart repo: upsert %s: %w", sessionID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("cart repo: reset lines %s: %w", sessionID, err)
	}

	batch := &pgx.Batch{}
	for i, item := range cart.Items {
		batch.Queue(`
INSERT INTO cart_lines (session_id, position, product_id, name, category, unit_price, currency, quantity, notes, added_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`, sessionID, i, item.ProductID, item.Name, string(item.Category), item.UnitPrice, item.Currency, item.Quantity, item.Notes, item.AddedAt)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("cart repo: insert lines %s: %w", sessionID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("cart repo: commit: %w", err)
	}
	r.logger.Debug("cart saved", zap.String("session_id", sessionID), zap.Int("lines", len(cart.Items)))
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("cart repo: clear %s: %w", sessionID, err)
	}
	r.logger.Debug("cart cleared", zap.String("session_id", sessionID))
	return nil
}
