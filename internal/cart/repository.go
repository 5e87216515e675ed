package cart

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	Lines(ctx context.Context, buyerID string) ([]Line, error)
	UpsertLine(ctx context.Context, buyerID string, ln Line) error
	DeleteLine(ctx context.Context, buyerID, productID string) error
	Clear(ctx context.Context, buyerID string) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Lines(ctx context.Context, buyerID string) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, name, unit_price_cents, image, quantity
		FROM cart_items
		WHERE buyer_id=$1
		ORDER BY added_at
	`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("select cart_items: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ProductID, &ln.Name, &ln.UnitPriceCents, &ln.Image, &ln.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart_item: %w", err)
		}
		lines = append(lines, ln)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return lines, nil
}

func (r *PostgresRepository) UpsertLine(ctx context.Context, buyerID string, ln Line) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cart_items (buyer_id, product_id, name, unit_price_cents, image, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (buyer_id, product_id)
		DO UPDATE SET quantity=EXCLUDED.quantity, updated_at=now()
	`, buyerID, ln.ProductID, ln.Name, ln.UnitPriceCents, ln.Image, ln.Quantity)
	if err != nil {
		return fmt.Errorf("upsert cart_item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteLine(ctx context.Context, buyerID, productID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE buyer_id=$1 AND product_id=$2`, buyerID, productID)
	if err != nil {
		return fmt.Errorf("delete cart_item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Clear(ctx context.Context, buyerID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE buyer_id=$1`, buyerID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
