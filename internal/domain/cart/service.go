package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/tsena-dev/backend/internal/domain/product"
)

// Service encapsulates cart mutations. Stock checks here are advisory — they
// keep carts honest at mutation time, but the checkout transaction is the
// authority on stock at purchase time.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// Get returns the client's cart, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, clientID string) (*Cart, error) {
	return s.carts.GetOrCreate(ctx, clientID)
}

// AddItem adds quantity of a product to the cart, merging with any existing
// line for the same product. The merged quantity must not exceed current
// stock.
func (s *Service) AddItem(ctx context.Context, clientID, productID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, &InvalidQuantityError{Quantity: quantity}
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, product.ErrUnavailable
	}

	c, err := s.carts.GetOrCreate(ctx, clientID)
	if err != nil {
		return nil, err
	}

	merged := c.ItemQuantity(productID) + quantity
	if p.Stock < merged {
		return nil, &product.InsufficientStockError{
			ProductID: productID,
			Available: p.Stock,
			Requested: merged,
		}
	}

	if err := s.carts.UpsertItem(ctx, c.ID, productID, merged); err != nil {
		return nil, errors.Wrap(err, "upsert cart item")
	}
	return s.carts.GetOrCreate(ctx, clientID)
}

// UpdateItem replaces an item's quantity. The new quantity must be at least
// 1 and within current stock.
func (s *Service) UpdateItem(ctx context.Context, clientID, itemID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, &InvalidQuantityError{Quantity: quantity}
	}

	c, err := s.carts.GetOrCreate(ctx, clientID)
	if err != nil {
		return nil, err
	}

	var target *Item
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			target = &c.Items[i]
			break
		}
	}
	if target == nil {
		return nil, ErrItemNotFound
	}

	p, err := s.products.GetByID(ctx, target.ProductID)
	if err != nil {
		return nil, err
	}
	if p.Stock < quantity {
		return nil, &product.InsufficientStockError{
			ProductID: target.ProductID,
			Available: p.Stock,
			Requested: quantity,
		}
	}

	if err := s.carts.UpdateItemQuantity(ctx, c.ID, itemID, quantity); err != nil {
		return nil, errors.Wrap(err, "update cart item")
	}
	return s.carts.GetOrCreate(ctx, clientID)
}

// RemoveItem deletes one item from the cart unconditionally.
func (s *Service) RemoveItem(ctx context.Context, clientID, itemID string) (*Cart, error) {
	c, err := s.carts.GetOrCreate(ctx, clientID)
	if err != nil {
		return nil, err
	}
	found := false
	for _, it := range c.Items {
		if it.ID == itemID {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrItemNotFound
	}
	if err := s.carts.RemoveItem(ctx, c.ID, itemID); err != nil {
		return nil, errors.Wrap(err, "remove cart item")
	}
	return s.carts.GetOrCreate(ctx, clientID)
}

// Clear empties the cart unconditionally.
func (s *Service) Clear(ctx context.Context, clientID string) (*Cart, error) {
	c, err := s.carts.GetOrCreate(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.Clear(ctx, c.ID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}
	return s.carts.GetOrCreate(ctx, clientID)
}
