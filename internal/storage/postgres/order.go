package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tsena-dev/backend/internal/domain/order"
	"github.com/tsena-dev/backend/internal/domain/product"
)

const (
	checkoutCartItemsSQL = `SELECT ci.product_id, ci.quantity
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE c.client_id = $1
		ORDER BY ci.created_at, ci.id`

	// Row locks are taken in ascending ID order; callers pass IDs sorted
	// so concurrent checkouts cannot deadlock on each other.
	productsForUpdateSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	insertOrderSQL = `INSERT INTO orders (id, number, client_id, vendor_id,
			subtotal, shipping_fee, total,
			address, city, postal_code, country, phone,
			status, tracking_number, client_note, vendor_note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at`

	insertOrderLineSQL = `INSERT INTO order_lines (id, order_id, product_id,
			product_name, unit_price, quantity, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	applyStockDeltaSQL = `UPDATE products
		SET stock = stock + $2, sales_count = sales_count + $3, updated_at = now()
		WHERE id = $1`

	clearClientCartSQL = `DELETE FROM cart_items
		WHERE cart_id IN (SELECT id FROM carts WHERE client_id = $1)`

	orderColumns = `id, number, client_id, vendor_id, subtotal, shipping_fee, total,
		address, city, postal_code, country, phone,
		status, tracking_number, client_note, vendor_note,
		estimated_delivery, actual_delivery, created_at, updated_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByClientSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE client_id = $1 ORDER BY created_at DESC`

	listOrdersByVendorSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE vendor_id = $1 ORDER BY created_at DESC`

	listAllOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	getOrderLinesSQL = `SELECT id, order_id, product_id, product_name, unit_price, quantity, line_total
		FROM order_lines WHERE order_id = ANY($1) ORDER BY created_at, id`

	// The total is derived in SQL so a partial update can never leave it
	// inconsistent with its parts.
	updateOrderSQL = `UPDATE orders
		SET status = $2, tracking_number = $3, vendor_note = $4,
			estimated_delivery = $5, actual_delivery = $6,
			total = subtotal + shipping_fee, updated_at = now()
		WHERE id = $1`
)

var _ order.Store = (*Store)(nil)

// Store opens checkout transactions against PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InCheckoutTx runs fn inside a single database transaction. Any error from
// fn rolls back everything fn did through the transaction.
func (s *Store) InCheckoutTx(ctx context.Context, fn func(ctx context.Context, tx order.CheckoutTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning checkout transaction: %w", err)
	}
	// Rollback must run even when ctx is already cancelled.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, &checkoutTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing checkout transaction: %w", err)
	}
	return nil
}

var _ order.CheckoutTx = (*checkoutTx)(nil)

type checkoutTx struct {
	tx pgx.Tx
}

func (t *checkoutTx) CartItems(ctx context.Context, clientID string) ([]order.CheckoutItem, error) {
	rows, err := t.tx.Query(ctx, checkoutCartItemsSQL, clientID)
	if err != nil {
		return nil, fmt.Errorf("reading cart items: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.CheckoutItem, error) {
		var it order.CheckoutItem
		err := row.Scan(&it.ProductID, &it.Quantity)
		return it, err
	})
}

func (t *checkoutTx) ProductsForUpdate(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := t.tx.Query(ctx, productsForUpdateSQL, validUUIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("locking products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// CreateOrder inserts the order and its lines inside a savepoint. A number
// collision aborts only the savepoint, not the surrounding transaction, so
// the engine can retry with a fresh number.
func (t *checkoutTx) CreateOrder(ctx context.Context, o *order.Order) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("opening order savepoint: %w", err)
	}
	defer func() { _ = sp.Rollback(context.WithoutCancel(ctx)) }()

	err = sp.QueryRow(ctx, insertOrderSQL,
		o.ID, o.Number, o.ClientID, o.VendorID,
		o.Subtotal, o.ShippingFee, o.Total,
		o.Delivery.Address, o.Delivery.City, o.Delivery.PostalCode,
		o.Delivery.Country, o.Delivery.Phone,
		string(o.Status), o.TrackingNumber, o.ClientNote, o.VendorNote,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "orders_number_key") {
			return order.ErrNumberTaken
		}
		return fmt.Errorf("inserting order %q: %w", o.Number, err)
	}

	for _, line := range o.Lines {
		_, err := sp.Exec(ctx, insertOrderLineSQL,
			line.ID, o.ID, line.ProductID, line.ProductName,
			line.UnitPrice, line.Quantity, line.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("inserting order line for product %q: %w", line.ProductID, err)
		}
	}

	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("committing order savepoint: %w", err)
	}
	return nil
}

func (t *checkoutTx) ApplyStockDelta(ctx context.Context, productID string, stockDelta, salesDelta int) error {
	_, err := t.tx.Exec(ctx, applyStockDeltaSQL, productID, stockDelta, salesDelta)
	if err != nil {
		return fmt.Errorf("applying stock delta to product %q: %w", productID, err)
	}
	return nil
}

func (t *checkoutTx) ClearCart(ctx context.Context, clientID string) error {
	_, err := t.tx.Exec(ctx, clearClientCartSQL, clientID)
	if err != nil {
		return fmt.Errorf("clearing cart for client %q: %w", clientID, err)
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		pgErr.ConstraintName == constraint
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByID returns one order with its lines. Malformed ids read as not found
// rather than erroring at the database.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, order.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	lines, err := r.loadLines(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	return &o, nil
}

// ListByClient returns a client's orders, newest first.
func (r *OrderRepository) ListByClient(ctx context.Context, clientID string) ([]*order.Order, error) {
	return r.list(ctx, listOrdersByClientSQL, clientID)
}

// ListByVendor returns a vendor's orders, newest first.
func (r *OrderRepository) ListByVendor(ctx context.Context, vendorID string) ([]*order.Order, error) {
	return r.list(ctx, listOrdersByVendorSQL, vendorID)
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]*order.Order, error) {
	return r.list(ctx, listAllOrdersSQL)
}

// Update persists an order's mutable fields. Immutable fields (lines,
// amounts, delivery address) are deliberately not part of the statement.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, string(o.Status), o.TrackingNumber, o.VendorNote,
		o.EstimatedDelivery, o.ActualDelivery,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) list(ctx context.Context, sql string, args ...any) ([]*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	collected, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders := make([]*order.Order, len(collected))
	ids := make([]string, len(collected))
	for i := range collected {
		orders[i] = &collected[i]
		ids[i] = collected[i].ID
	}
	if len(ids) == 0 {
		return orders, nil
	}

	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.Lines = lines[o.ID]
	}
	return orders, nil
}

func (r *OrderRepository) loadLines(ctx context.Context, orderIDs []string) (map[string][]order.Line, error) {
	rows, err := r.pool.Query(ctx, getOrderLinesSQL, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("loading order lines: %w", err)
	}

	lines := make(map[string][]order.Line)
	for rows.Next() {
		var (
			line    order.Line
			orderID string
		)
		err := rows.Scan(&line.ID, &orderID, &line.ProductID, &line.ProductName,
			&line.UnitPrice, &line.Quantity, &line.LineTotal)
		if err != nil {
			return nil, fmt.Errorf("scanning order line: %w", err)
		}
		lines[orderID] = append(lines[orderID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading order lines: %w", err)
	}
	return lines, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.ClientID, &o.VendorID,
		&o.Subtotal, &o.ShippingFee, &o.Total,
		&o.Delivery.Address, &o.Delivery.City, &o.Delivery.PostalCode,
		&o.Delivery.Country, &o.Delivery.Phone,
		&status, &o.TrackingNumber, &o.ClientNote, &o.VendorNote,
		&o.EstimatedDelivery, &o.ActualDelivery,
		&o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}
