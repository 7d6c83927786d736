// Package cart holds a client's pending selections before checkout.
package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when a referenced cart item does not exist in
// the caller's cart.
var ErrItemNotFound = errors.New("cart item not found")

// InvalidQuantityError indicates a cart mutation with a quantity below 1.
type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1, got %d", e.Quantity)
}

// Item is one product selection in a cart. UnitPrice is the product's current
// effective price at read time, not a snapshot.
type Item struct {
	ID          string
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// LineTotal returns quantity times the current effective unit price.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the per-client pending selection. Exactly one exists per client,
// created lazily on first access.
type Cart struct {
	ID        string
	ClientID  string
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total sums the line totals over all items.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// ItemCount sums the quantities over all items.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// ItemQuantity returns the quantity currently held for a product, zero when
// the product is not in the cart.
func (c *Cart) ItemQuantity(productID string) int {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it.Quantity
		}
	}
	return 0
}

// Repository defines persistence operations for carts. Items are unique per
// (cart, product); UpsertItem overwrites the quantity for an existing pair.
type Repository interface {
	GetOrCreate(ctx context.Context, clientID string) (*Cart, error)
	UpsertItem(ctx context.Context, cartID, productID string, quantity int) error
	UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, itemID string) error
	Clear(ctx context.Context, cartID string) error
}
