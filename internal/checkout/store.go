package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andreasstove999/storefront-core/internal/inventory"
	"github.com/andreasstove999/storefront-core/internal/order"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Reserver decrements stock inside the placement transaction.
type Reserver interface {
	ReserveTx(ctx context.Context, tx inventory.Tx, lines []inventory.Line) error
}

// OrderWriter inserts the order rows inside the placement transaction and
// loads orders for idempotent replays.
type OrderWriter interface {
	CreateWithTx(ctx context.Context, tx order.Tx, o *order.Order) error
	GetByID(ctx context.Context, orderID string) (*order.Order, error)
}

// PostgresStore ties reservation, order insert, order-number generation and
// the idempotency record into one transaction.
type PostgresStore struct {
	pool   DBPool
	stock  Reserver
	orders OrderWriter
}

func NewPostgresStore(pool DBPool, stock Reserver, orders OrderWriter) *PostgresStore {
	return &PostgresStore{pool: pool, stock: stock, orders: orders}
}

func (s *PostgresStore) FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	var orderID string
	err := s.pool.QueryRow(ctx,
		`SELECT order_id FROM checkout_requests WHERE idempotency_key=$1`, key).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select checkout_request: %w", err)
	}
	return s.orders.GetByID(ctx, orderID)
}

func (s *PostgresStore) Place(ctx context.Context, o *order.Order, idempotencyKey string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lines := make([]inventory.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	if err := s.stock.ReserveTx(ctx, tx, lines); err != nil {
		return err
	}

	number, err := nextOrderNumber(ctx, tx)
	if err != nil {
		return err
	}
	o.OrderNumber = number

	if err := s.orders.CreateWithTx(ctx, tx, o); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO checkout_requests (idempotency_key, order_id)
		VALUES ($1, $2)
	`, idempotencyKey, o.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert checkout_request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// nextOrderNumber draws the next human-readable order id ("ORD-000042")
// from an upsert-returning counter row.
func nextOrderNumber(ctx context.Context, tx pgx.Tx) (string, error) {
	var seq int64
	err := tx.QueryRow(ctx, `
		INSERT INTO order_sequence (scope, last_sequence, updated_at)
		VALUES ('orders', 1, NOW())
		ON CONFLICT (scope)
		DO UPDATE SET last_sequence = order_sequence.last_sequence + 1, updated_at = NOW()
		RETURNING last_sequence
	`).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next order number: %w", err)
	}
	return fmt.Sprintf("ORD-%06d", seq), nil
}
