package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Tx is the slice of pgx.Tx the reservation paths need. Callers own the
// transaction; Reserve/Restock never commit or roll back themselves.
type Tx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	Get(ctx context.Context, productID string) (StockItem, error)
	SetStock(ctx context.Context, productID string, stock int) error
	ReserveTx(ctx context.Context, tx Tx, lines []Line) error
	RestockTx(ctx context.Context, tx Tx, lines []Line) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, productID string) (StockItem, error) {
	var item StockItem
	row := r.pool.QueryRow(ctx, `SELECT product_id, stock, sold_stock FROM inventory_stock WHERE product_id=$1`, productID)
	if err := row.Scan(&item.ProductID, &item.Stock, &item.SoldStock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, ErrNotFound
		}
		return StockItem{}, err
	}
	return item, nil
}

func (r *PostgresRepository) SetStock(ctx context.Context, productID string, stock int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inventory_stock(product_id, stock)
		VALUES($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET stock=EXCLUDED.stock, updated_at=now()
	`, productID, stock)
	return err
}

// ReserveTx checks and decrements stock for every line inside the caller's
// transaction:
// - locks each product row (SELECT ... FOR UPDATE)
// - the first short line aborts with OutOfStockError; rolling back the tx
//   undoes any decrements already applied in this attempt
// - otherwise stock -= quantity and sold_stock += quantity for all lines
func (r *PostgresRepository) ReserveTx(ctx context.Context, tx Tx, lines []Line) error {
	for _, line := range lines {
		var available int
		err := tx.QueryRow(ctx, `
			SELECT stock
			FROM inventory_stock
			WHERE product_id=$1
			FOR UPDATE
		`, line.ProductID).Scan(&available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				available = 0
			} else {
				return err
			}
		}

		if available < line.Quantity {
			return &OutOfStockError{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: available,
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE inventory_stock
			SET stock = stock - $2, sold_stock = sold_stock + $2, updated_at=now()
			WHERE product_id=$1
		`, line.ProductID, line.Quantity)
		if err != nil {
			return err
		}
	}
	return nil
}

// RestockTx reverses a reservation inside the caller's transaction, so a
// cancellation's status write and its restock commit or fail together.
func (r *PostgresRepository) RestockTx(ctx context.Context, tx Tx, lines []Line) error {
	for _, line := range lines {
		_, err := tx.Exec(ctx, `
			UPDATE inventory_stock
			SET stock = stock + $2, sold_stock = sold_stock - $2, updated_at=now()
			WHERE product_id=$1
		`, line.ProductID, line.Quantity)
		if err != nil {
			return err
		}
	}
	return nil
}
