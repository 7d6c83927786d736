package order

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tsena-dev/backend/internal/domain/account"
	"github.com/tsena-dev/backend/internal/domain/product"
)

// Service is the single authoritative path for turning cart contents into
// binding orders, and the query/update layer for orders that already exist.
type Service struct {
	store    Store
	repo     Repository
	observer CheckoutObserver
}

// NewService creates an order Service. A nil observer disables post-commit
// notifications.
func NewService(store Store, repo Repository, observer CheckoutObserver) *Service {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Service{
		store:    store,
		repo:     repo,
		observer: observer,
	}
}

// Checkout converts the buyer's cart (or an explicit item list) into one
// order per vendor. Product resolution, stock validation, order creation,
// stock decrement, and cart clearing all happen inside one transaction:
// any failure rolls back every vendor group, never just the failing one.
func (s *Service) Checkout(ctx context.Context, actor account.Actor, req CheckoutRequest) ([]*Order, error) {
	if !actor.IsClient() {
		return nil, ErrNotAClient
	}
	if req.ShippingFee.IsNegative() {
		return nil, ErrInvalidShippingFee
	}
	for _, it := range req.Items {
		if it.Quantity < 1 {
			return nil, &InvalidQuantityError{ProductID: it.ProductID}
		}
	}

	fromCart := len(req.Items) == 0

	var created []*Order
	err := s.store.InCheckoutTx(ctx, func(ctx context.Context, tx CheckoutTx) error {
		items := req.Items
		if fromCart {
			var err error
			items, err = tx.CartItems(ctx, actor.AccountID)
			if err != nil {
				return errors.Wrap(err, "load cart")
			}
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		resolved, err := resolveItems(ctx, tx, items)
		if err != nil {
			return err
		}

		groups := GroupByVendor(resolved)

		// Deterministic vendor order keeps the created-orders slice and
		// the insert sequence stable across runs.
		vendors := make([]string, 0, len(groups))
		for v := range groups {
			vendors = append(vendors, v)
		}
		slices.Sort(vendors)

		created = created[:0]
		for _, vendorID := range vendors {
			o, err := s.createVendorOrder(ctx, tx, actor.AccountID, vendorID, groups[vendorID], req)
			if err != nil {
				return err
			}
			created = append(created, o)
		}

		if fromCart {
			if err := tx.ClearCart(ctx, actor.AccountID); err != nil {
				return errors.Wrap(err, "clear cart")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observer.OrdersCreated(ctx, created)
	return created, nil
}

// resolveItems merges duplicate product references, re-reads every product
// inside the transaction, and verifies existence and availability. Stock is
// checked later, per vendor group, against the same locked rows.
func resolveItems(ctx context.Context, tx CheckoutTx, items []CheckoutItem) ([]ResolvedItem, error) {
	quantities := make(map[string]int, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, seen := quantities[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		quantities[it.ProductID] += it.Quantity
	}

	// Locking rows in a fixed order prevents deadlocks between concurrent
	// checkouts touching the same products.
	slices.Sort(ids)

	products, err := tx.ProductsForUpdate(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "read products")
	}
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	resolved := make([]ResolvedItem, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: id}
		}
		if !p.Active {
			return nil, &ProductUnavailableError{ProductID: id}
		}
		resolved = append(resolved, ResolvedItem{Product: p, Quantity: quantities[id]})
	}
	return resolved, nil
}

// createVendorOrder builds and persists one order for a single vendor group:
// subtotal from effective prices, snapshot lines, stock decrement and sales
// increment per item.
func (s *Service) createVendorOrder(
	ctx context.Context,
	tx CheckoutTx,
	clientID, vendorID string,
	group []ResolvedItem,
	req CheckoutRequest,
) (*Order, error) {
	subtotal := decimal.Zero
	lines := make([]Line, 0, len(group))
	for _, it := range group {
		unit := it.Product.EffectivePrice()
		lineTotal := unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(lineTotal)

		if it.Product.Stock < it.Quantity {
			return nil, &product.InsufficientStockError{
				ProductID: it.Product.ID,
				Available: it.Product.Stock,
				Requested: it.Quantity,
			}
		}

		lines = append(lines, Line{
			ID:          uuid.New().String(),
			ProductID:   it.Product.ID,
			ProductName: it.Product.Name,
			UnitPrice:   unit,
			Quantity:    it.Quantity,
			LineTotal:   lineTotal,
		})
	}

	o := &Order{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		VendorID:    vendorID,
		Subtotal:    subtotal,
		ShippingFee: req.ShippingFee,
		Total:       subtotal.Add(req.ShippingFee),
		Delivery:    req.Delivery,
		Status:      StatusPending,
		ClientNote:  req.ClientNote,
		Lines:       lines,
	}

	for attempt := 0; ; attempt++ {
		o.Number = NewNumber()
		err := tx.CreateOrder(ctx, o)
		if err == nil {
			break
		}
		if errors.Is(err, ErrNumberTaken) && attempt < maxNumberAttempts-1 {
			continue
		}
		return nil, errors.Wrap(err, "create order")
	}

	for _, it := range group {
		if err := tx.ApplyStockDelta(ctx, it.Product.ID, -it.Quantity, it.Quantity); err != nil {
			return nil, errors.Wrapf(err, "apply stock delta for product %s", it.Product.ID)
		}
	}
	return o, nil
}

// List returns orders filtered by the viewer's role: buyers see their own,
// vendors see orders placed with them, admins see everything.
func (s *Service) List(ctx context.Context, actor account.Actor) ([]*Order, error) {
	switch actor.Role {
	case account.RoleAdmin:
		return s.repo.ListAll(ctx)
	case account.RoleVendor:
		return s.repo.ListByVendor(ctx, actor.AccountID)
	case account.RoleClient:
		return s.repo.ListByClient(ctx, actor.AccountID)
	default:
		return nil, ErrForbidden
	}
}

// Get returns one order if the viewer is its buyer, its vendor, or an admin.
// Orders outside the viewer's scope read as not found.
func (s *Service) Get(ctx context.Context, actor account.Actor, id string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && o.ClientID != actor.AccountID && o.VendorID != actor.AccountID {
		return nil, ErrNotFound
	}
	return o, nil
}

// UpdateStatus lets the owning vendor or an admin advance an order's status
// and set the tracking number or internal note. Terminal statuses cannot be
// left. Each call affects exactly one order.
func (s *Service) UpdateStatus(ctx context.Context, actor account.Actor, id string, upd StatusUpdate) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !(actor.IsVendor() && o.VendorID == actor.AccountID) {
		return nil, ErrForbidden
	}

	next, err := ParseStatus(upd.Status)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() && next != o.Status {
		return nil, &InvalidTransitionError{From: o.Status, To: next}
	}

	o.Status = next
	if upd.TrackingNumber != nil {
		o.TrackingNumber = *upd.TrackingNumber
	}
	if upd.VendorNote != nil {
		o.VendorNote = *upd.VendorNote
	}
	if next == StatusDelivered && o.ActualDelivery == nil {
		now := time.Now()
		o.ActualDelivery = &now
	}

	if err := s.repo.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}
