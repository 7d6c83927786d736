package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tsena-dev/backend/internal/domain/cart"
)

const (
	ensureCartSQL = `INSERT INTO carts (id, client_id) VALUES ($1, $2)
		ON CONFLICT (client_id) DO NOTHING`

	getCartSQL = `SELECT id, client_id, created_at, updated_at
		FROM carts WHERE client_id = $1`

	// Cart items carry the product's current effective price, so display
	// follows promotions without touching stored rows.
	getCartItemsSQL = `SELECT ci.id, ci.product_id, p.name,
			CASE WHEN p.promo_price IS NOT NULL AND p.promo_price < p.price
				THEN p.promo_price ELSE p.price END AS unit_price,
			ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id`

	upsertCartItemSQL = `INSERT INTO cart_items (id, cart_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`

	updateCartItemSQL = `UPDATE cart_items SET quantity = $3, updated_at = now()
		WHERE cart_id = $1 AND id = $2`

	removeCartItemSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`

	clearCartSQL = `DELETE FROM cart_items WHERE cart_id = $1`

	touchCartSQL = `UPDATE carts SET updated_at = now() WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetOrCreate returns the client's cart with its items, creating an empty
// cart on first access.
func (r *CartRepository) GetOrCreate(ctx context.Context, clientID string) (*cart.Cart, error) {
	if _, err := r.pool.Exec(ctx, ensureCartSQL, uuid.New().String(), clientID); err != nil {
		return nil, fmt.Errorf("ensuring cart for client %q: %w", clientID, err)
	}

	var c cart.Cart
	err := r.pool.QueryRow(ctx, getCartSQL, clientID).
		Scan(&c.ID, &c.ClientID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting cart for client %q: %w", clientID, err)
	}

	rows, err := r.pool.Query(ctx, getCartItemsSQL, c.ID)
	if err != nil {
		return nil, fmt.Errorf("getting cart items: %w", err)
	}
	c.Items, err = pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, fmt.Errorf("getting cart items: %w", err)
	}
	return &c, nil
}

// UpsertItem sets the quantity for a (cart, product) pair, inserting the
// item when absent.
func (r *CartRepository) UpsertItem(ctx context.Context, cartID, productID string, quantity int) error {
	_, err := r.pool.Exec(ctx, upsertCartItemSQL, uuid.New().String(), cartID, productID, quantity)
	if err != nil {
		return fmt.Errorf("upserting cart item: %w", err)
	}
	return r.touch(ctx, cartID)
}

// UpdateItemQuantity replaces an existing item's quantity. Malformed item
// ids read as not found rather than erroring at the database.
func (r *CartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	if _, err := uuid.Parse(itemID); err != nil {
		return cart.ErrItemNotFound
	}

	tag, err := r.pool.Exec(ctx, updateCartItemSQL, cartID, itemID, quantity)
	if err != nil {
		return fmt.Errorf("updating cart item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return r.touch(ctx, cartID)
}

// RemoveItem deletes one item from the cart.
func (r *CartRepository) RemoveItem(ctx context.Context, cartID, itemID string) error {
	if _, err := uuid.Parse(itemID); err != nil {
		return cart.ErrItemNotFound
	}

	tag, err := r.pool.Exec(ctx, removeCartItemSQL, cartID, itemID)
	if err != nil {
		return fmt.Errorf("removing cart item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return r.touch(ctx, cartID)
}

// Clear removes every item from a cart.
func (r *CartRepository) Clear(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, cartID); err != nil {
		return fmt.Errorf("clearing cart %q: %w", cartID, err)
	}
	return r.touch(ctx, cartID)
}

func (r *CartRepository) touch(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, touchCartSQL, cartID); err != nil {
		return fmt.Errorf("touching cart %q: %w", cartID, err)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var it cart.Item
	err := row.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity)
	return it, err
}
