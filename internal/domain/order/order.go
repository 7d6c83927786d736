package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/tsena-dev/backend/internal/domain/product"
)

// Status is an order's lifecycle state. The happy path runs
// pending → confirmed → processing → shipped → delivered; cancelled and
// refunded are side branches reachable from any non-terminal state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// ParseStatus converts a raw status string into a Status, failing with
// InvalidStatusError for unrecognized values.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return Status(s), nil
	default:
		return "", &InvalidStatusError{Value: s}
	}
}

// Terminal reports whether no further transitions are allowed out of s.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// Sentinel errors for checkout and order access.
var (
	// ErrEmptyCart is returned when a checkout has nothing to order.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotAClient is returned when the checkout caller has no buyer role.
	ErrNotAClient = errors.New("caller is not a client")
	// ErrForbidden is returned when the caller may not mutate an order.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a requested order does not exist or is
	// not visible to the caller.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidShippingFee is returned when the shipping fee is negative.
	ErrInvalidShippingFee = errors.New("shipping fee must not be negative")
	// ErrNumberTaken signals an order number collision on insert. The
	// engine retries with a fresh number.
	ErrNumberTaken = errors.New("order number already taken")
)

// InvalidStatusError indicates an unrecognized order status value.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Value)
}

// InvalidTransitionError indicates an attempt to leave a terminal status.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// InvalidQuantityError indicates a line item with a quantity below 1.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for product %s", e.ProductID)
}

// ProductNotFoundError indicates a submitted product reference that does not
// resolve to any product.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// ProductUnavailableError indicates a product that exists but is no longer
// listed for sale.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available for sale", e.ProductID)
}

// Delivery holds the shipping destination supplied at checkout. One set of
// fields is shared by every per-vendor order created from the same request.
type Delivery struct {
	Address    string
	City       string
	PostalCode string
	Country    string
	Phone      string
}

// Order is a committed purchase record binding one client to one vendor.
// Orders are never deleted; they are permanent audit records.
type Order struct {
	ID          string
	Number      string
	ClientID    string
	VendorID    string
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	// Total is always recomputed as Subtotal + ShippingFee on persist,
	// never trusted from input.
	Total             decimal.Decimal
	Delivery          Delivery
	Status            Status
	TrackingNumber    string
	ClientNote        string
	VendorNote        string
	EstimatedDelivery *time.Time
	ActualDelivery    *time.Time
	Lines             []Line
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Line is an immutable snapshot of one product within an order. Name and
// unit price are fixed at creation time and never follow later product edits.
type Line struct {
	ID          string
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	LineTotal   decimal.Decimal
}

// CheckoutItem is one (product, quantity) pair submitted for checkout.
type CheckoutItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest holds the input for creating orders. When Items is empty
// the buyer's cart is used as the item source and cleared on success.
type CheckoutRequest struct {
	Delivery    Delivery
	ShippingFee decimal.Decimal
	ClientNote  string
	Items       []CheckoutItem
}

// StatusUpdate holds the mutable order fields a vendor may change.
type StatusUpdate struct {
	Status         string
	TrackingNumber *string
	VendorNote     *string
}

// ResolvedItem pairs a requested quantity with the product record read
// inside the checkout transaction.
type ResolvedItem struct {
	Product  product.Product
	Quantity int
}

// GroupByVendor splits resolved items into one group per owning vendor.
// Every vendor with at least one item gets exactly one group.
func GroupByVendor(items []ResolvedItem) map[string][]ResolvedItem {
	groups := make(map[string][]ResolvedItem)
	for _, it := range items {
		groups[it.Product.VendorID] = append(groups[it.Product.VendorID], it)
	}
	return groups
}

// CheckoutTx is the transactional view the engine works against. Every
// method observes and mutates the same isolated unit of work; when the
// enclosing function returns an error, all of it rolls back.
type CheckoutTx interface {
	// CartItems returns the buyer's current cart contents.
	CartItems(ctx context.Context, clientID string) ([]CheckoutItem, error)
	// ProductsForUpdate reads current product rows, locking them against
	// concurrent stock mutations until the transaction ends.
	ProductsForUpdate(ctx context.Context, ids []string) ([]product.Product, error)
	// CreateOrder persists an order with its lines. Returns ErrNumberTaken
	// when the order number collides with an existing one.
	CreateOrder(ctx context.Context, o *Order) error
	// ApplyStockDelta adjusts a product's stock and sales counters.
	ApplyStockDelta(ctx context.Context, productID string, stockDelta, salesDelta int) error
	// ClearCart removes every item from the buyer's cart.
	ClearCart(ctx context.Context, clientID string) error
}

// Store opens checkout transactions.
type Store interface {
	// InCheckoutTx runs fn within one atomic unit of work. If fn returns
	// an error every change made inside it is rolled back.
	InCheckoutTx(ctx context.Context, fn func(ctx context.Context, tx CheckoutTx) error) error
}

// Repository defines read and update operations for existing orders.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByClient(ctx context.Context, clientID string) ([]*Order, error)
	ListByVendor(ctx context.Context, vendorID string) ([]*Order, error)
	ListAll(ctx context.Context) ([]*Order, error)
	// Update persists status, tracking number, vendor note, and delivery
	// dates. The total is recomputed from subtotal and shipping fee.
	Update(ctx context.Context, o *Order) error
}

// CheckoutObserver is notified after a checkout commits. Notification and
// payment collaborators hang off this hook; failures there must not affect
// the already-committed orders.
type CheckoutObserver interface {
	OrdersCreated(ctx context.Context, orders []*Order)
}

// NopObserver is a CheckoutObserver that does nothing.
type NopObserver struct{}

func (NopObserver) OrdersCreated(context.Context, []*Order) {}
