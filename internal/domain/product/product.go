package product

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrUnavailable is returned when a product exists but is not listed
	// for sale.
	ErrUnavailable = errors.New("product not available")
)

// InsufficientStockError indicates a requested quantity exceeds the product's
// current stock.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available, %d requested",
		e.ProductID, e.Available, e.Requested)
}

// Product represents a catalog item owned by a vendor.
type Product struct {
	ID          string
	VendorID    string
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	// PromoPrice only takes effect when set and strictly below Price.
	PromoPrice decimal.NullDecimal
	Stock      int
	// LowStockThreshold is the stock level at or below which the product
	// counts as running low.
	LowStockThreshold int
	SalesCount        int
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EffectivePrice returns the price a buyer pays right now: the promotional
// price when it is set and lower than the base price, the base price
// otherwise.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.PromoPrice.Valid && p.PromoPrice.Decimal.LessThan(p.Price) {
		return p.PromoPrice.Decimal
	}
	return p.Price
}

// LowStock reports whether remaining stock is at or below the alert
// threshold.
func (p Product) LowStock() bool {
	return p.Stock <= p.LowStockThreshold
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
