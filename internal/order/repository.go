package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andreasstove999/storefront-core/internal/inventory"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Tx is the slice of pgx.Tx used when an order insert participates in a
// larger transaction (checkout's reserve-and-persist).
type Tx interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Restocker reverses an inventory reservation inside the same transaction
// as a cancellation's status write.
type Restocker interface {
	RestockTx(ctx context.Context, tx inventory.Tx, lines []inventory.Line) error
}

type ListFilter struct {
	Status  *Status
	BuyerID string
	Page    int
	Limit   int
}

type ListResult struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Pages  int     `json:"pages"`
}

type Statistics struct {
	TotalRevenueCents int64          `json:"totalRevenue"`
	TotalOrders       int            `json:"totalOrders"`
	StatusCounts      map[Status]int `json:"statusCounts"`
}

type Repository interface {
	CreateWithTx(ctx context.Context, tx Tx, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	List(ctx context.Context, f ListFilter) (ListResult, error)
	Statistics(ctx context.Context) (Statistics, error)
	Transition(ctx context.Context, actor Actor, orderID string, to Status, now time.Time) (*Order, error)
	MarkPaid(ctx context.Context, orderID string, now time.Time) (*Order, error)
}

type PostgresRepository struct {
	pool  DBPool
	stock Restocker
}

func NewPostgresRepository(pool DBPool, stock Restocker) *PostgresRepository {
	return &PostgresRepository{pool: pool, stock: stock}
}

const orderColumns = `id, order_number, buyer_id, items_price_cents, tax_price_cents,
	shipping_price_cents, total_price_cents, ship_address, ship_city, ship_postal_code,
	ship_country, payment_method, status, is_paid, paid_at, delivered_at, created_at, notes`

// CreateWithTx inserts the order and its frozen items inside the caller's
// transaction. The caller is responsible for commit/rollback.
func (r *PostgresRepository) CreateWithTx(ctx context.Context, tx Tx, o *Order) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO orders (id, order_number, buyer_id, items_price_cents, tax_price_cents,
			shipping_price_cents, total_price_cents, ship_address, ship_city, ship_postal_code,
			ship_country, payment_method, status, is_paid, created_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, o.ID, o.OrderNumber, o.BuyerID, o.ItemsPriceCents, o.TaxPriceCents,
		o.ShippingPriceCents, o.TotalPriceCents, o.ShippingAddress.Address, o.ShippingAddress.City,
		o.ShippingAddress.PostalCode, o.ShippingAddress.Country, string(o.PaymentMethod),
		string(o.Status), o.IsPaid, o.CreatedAt, o.Notes)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, name, unit_price_cents, image, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, o.ID, it.ProductID, it.Name, it.UnitPriceCents, it.Image, it.Quantity)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, orderID string) (*Order, error) {
	return r.getBy(ctx, "id", orderID)
}

func (r *PostgresRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return r.getBy(ctx, "order_number", orderNumber)
}

func (r *PostgresRepository) getBy(ctx context.Context, column, key string) (*Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+column+`=$1`, key)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresRepository) List(ctx context.Context, f ListFilter) (ListResult, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 20
	}

	where := ""
	args := []any{}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if f.BuyerID != "" {
		args = append(args, f.BuyerID)
		where += fmt.Sprintf(" AND buyer_id=$%d", len(args))
	}

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE 1=1`+where, args...).Scan(&total)
	if err != nil {
		return ListResult{}, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM orders WHERE 1=1%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return ListResult{}, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("rows: %w", err)
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return ListResult{}, err
		}
	}

	pages := (total + limit - 1) / limit
	return ListResult{Orders: orders, Total: total, Pages: pages}, nil
}

// Statistics aggregates the seller dashboard numbers. Revenue excludes
// cancelled and rejected orders so money never realized is not credited.
func (r *PostgresRepository) Statistics(ctx context.Context) (Statistics, error) {
	stats := Statistics{StatusCounts: make(map[Status]int)}

	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(total_price_cents) FILTER (WHERE status NOT IN ('cancelled', 'rejected')), 0)
		FROM orders
	`).Scan(&stats.TotalOrders, &stats.TotalRevenueCents)
	if err != nil {
		return Statistics{}, fmt.Errorf("aggregate orders: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return Statistics{}, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Statistics{}, fmt.Errorf("scan status count: %w", err)
		}
		stats.StatusCounts[Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return Statistics{}, fmt.Errorf("rows: %w", err)
	}
	return stats, nil
}

// Transition moves an order to a new status. The row is locked for the
// duration, so the legality check, the status write and a cancellation's
// restock all commit or fail as one unit.
func (r *PostgresRepository) Transition(ctx context.Context, actor Actor, orderID string, to Status, now time.Time) (*Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, orderID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	if err := CanTransition(actor, o.Status, to); err != nil {
		return nil, err
	}

	from := o.Status
	o.Status = to
	if to == StatusDelivered {
		o.DeliveredAt = &now
	}

	_, err = tx.Exec(ctx, `UPDATE orders SET status=$2, delivered_at=$3 WHERE id=$1`,
		o.ID, string(o.Status), o.DeliveredAt)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	if err := r.loadItemsTx(ctx, tx, o); err != nil {
		return nil, err
	}

	if to == StatusCancelled && from.preShipping() {
		lines := make([]inventory.Line, 0, len(o.Items))
		for _, it := range o.Items {
			lines = append(lines, inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		if err := r.stock.RestockTx(ctx, tx, lines); err != nil {
			return nil, fmt.Errorf("restock: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return o, nil
}

// MarkPaid records a payment confirmation regardless of the order's status.
// Replayed confirmations keep the first paidAt.
func (r *PostgresRepository) MarkPaid(ctx context.Context, orderID string, now time.Time) (*Order, error) {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET is_paid=TRUE, paid_at=$2 WHERE id=$1 AND is_paid=FALSE`,
		orderID, now)
	if err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}

	return r.GetByID(ctx, orderID)
}

func (r *PostgresRepository) loadItems(ctx context.Context, o *Order) error {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, name, unit_price_cents, image, quantity FROM order_items WHERE order_id=$1`,
		o.ID)
	if err != nil {
		return fmt.Errorf("select order_items: %w", err)
	}
	return scanItems(rows, o)
}

func (r *PostgresRepository) loadItemsTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	rows, err := tx.Query(ctx,
		`SELECT product_id, name, unit_price_cents, image, quantity FROM order_items WHERE order_id=$1`,
		o.ID)
	if err != nil {
		return fmt.Errorf("select order_items: %w", err)
	}
	return scanItems(rows, o)
}

func scanItems(rows pgx.Rows, o *Order) error {
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.UnitPriceCents, &it.Image, &it.Quantity); err != nil {
			return fmt.Errorf("scan order_item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var paymentMethod, status string
	err := row.Scan(&o.ID, &o.OrderNumber, &o.BuyerID, &o.ItemsPriceCents, &o.TaxPriceCents,
		&o.ShippingPriceCents, &o.TotalPriceCents, &o.ShippingAddress.Address, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country, &paymentMethod,
		&status, &o.IsPaid, &o.PaidAt, &o.DeliveredAt, &o.CreatedAt, &o.Notes)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = PaymentMethod(paymentMethod)
	o.Status = Status(status)
	return &o, nil
}
