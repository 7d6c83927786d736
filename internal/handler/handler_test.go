package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsena-dev/backend/internal/domain/account"
	"github.com/tsena-dev/backend/internal/domain/cart"
	"github.com/tsena-dev/backend/internal/domain/order"
	"github.com/tsena-dev/backend/internal/domain/product"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

var testSecret = []byte("test-secret")

// --- In-memory backends ---

type memAccounts struct {
	byID map[string]*account.Account
}

func (m *memAccounts) GetByID(_ context.Context, id string) (*account.Account, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccounts) Create(_ context.Context, a *account.Account) error {
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

type memProducts struct {
	byID map[string]product.Product
}

func (m *memProducts) List(context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *memProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type memCarts struct {
	products *memProducts
	carts    map[string]*cart.Cart
	seq      int
}

func (m *memCarts) GetOrCreate(_ context.Context, clientID string) (*cart.Cart, error) {
	c, ok := m.carts[clientID]
	if !ok {
		m.seq++
		c = &cart.Cart{ID: "cart-" + strconv.Itoa(m.seq), ClientID: clientID}
		m.carts[clientID] = c
	}
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	return &cp, nil
}

func (m *memCarts) UpsertItem(_ context.Context, cartID, productID string, quantity int) error {
	c := m.findCart(cartID)
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	p := m.products.byID[productID]
	m.seq++
	c.Items = append(c.Items, cart.Item{
		ID:          "item-" + strconv.Itoa(m.seq),
		ProductID:   productID,
		ProductName: p.Name,
		UnitPrice:   p.EffectivePrice(),
		Quantity:    quantity,
	})
	return nil
}

func (m *memCarts) UpdateItemQuantity(_ context.Context, cartID, itemID string, quantity int) error {
	c := m.findCart(cartID)
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (m *memCarts) RemoveItem(_ context.Context, cartID, itemID string) error {
	c := m.findCart(cartID)
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (m *memCarts) Clear(_ context.Context, cartID string) error {
	m.findCart(cartID).Items = nil
	return nil
}

func (m *memCarts) findCart(cartID string) *cart.Cart {
	for _, c := range m.carts {
		if c.ID == cartID {
			return c
		}
	}
	return &cart.Cart{}
}

// memStore backs the checkout engine: products and carts are shared with the
// other fakes, orders accumulate in memory.
type memStore struct {
	products *memProducts
	carts    *memCarts
	orders   *memOrders
}

func (s *memStore) InCheckoutTx(ctx context.Context, fn func(ctx context.Context, tx order.CheckoutTx) error) error {
	// No rollback emulation here; handler tests only exercise outcomes,
	// not partial failure recovery.
	return fn(ctx, s)
}

func (s *memStore) CartItems(_ context.Context, clientID string) ([]order.CheckoutItem, error) {
	c, ok := s.carts.carts[clientID]
	if !ok {
		return nil, nil
	}
	items := make([]order.CheckoutItem, len(c.Items))
	for i, it := range c.Items {
		items[i] = order.CheckoutItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return items, nil
}

func (s *memStore) ProductsForUpdate(ctx context.Context, ids []string) ([]product.Product, error) {
	return s.products.GetByIDs(ctx, ids)
}

func (s *memStore) CreateOrder(_ context.Context, o *order.Order) error {
	cp := *o
	s.orders.byID[o.ID] = &cp
	return nil
}

func (s *memStore) ApplyStockDelta(_ context.Context, productID string, stockDelta, salesDelta int) error {
	p := s.products.byID[productID]
	p.Stock += stockDelta
	p.SalesCount += salesDelta
	s.products.byID[productID] = p
	return nil
}

func (s *memStore) ClearCart(_ context.Context, clientID string) error {
	if c, ok := s.carts.carts[clientID]; ok {
		c.Items = nil
	}
	return nil
}

type memOrders struct {
	byID map[string]*order.Order
}

func (m *memOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) ListByClient(_ context.Context, clientID string) ([]*order.Order, error) {
	return m.filter(func(o *order.Order) bool { return o.ClientID == clientID }), nil
}

func (m *memOrders) ListByVendor(_ context.Context, vendorID string) ([]*order.Order, error) {
	return m.filter(func(o *order.Order) bool { return o.VendorID == vendorID }), nil
}

func (m *memOrders) ListAll(context.Context) ([]*order.Order, error) {
	return m.filter(func(*order.Order) bool { return true }), nil
}

func (m *memOrders) Update(_ context.Context, o *order.Order) error {
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *memOrders) filter(keep func(*order.Order) bool) []*order.Order {
	var out []*order.Order
	for _, o := range m.byID {
		if keep(o) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out
}

// --- Harness ---

type harness struct {
	router   *gin.Engine
	accounts *memAccounts
	products *memProducts
	carts    *memCarts
	orders   *memOrders
}

func newHarness(t *testing.T, products ...product.Product) *harness {
	t.Helper()

	ma := &memAccounts{byID: make(map[string]*account.Account)}
	mp := &memProducts{byID: make(map[string]product.Product, len(products))}
	for _, p := range products {
		mp.byID[p.ID] = p
	}
	mc := &memCarts{products: mp, carts: make(map[string]*cart.Cart)}
	mo := &memOrders{byID: make(map[string]*order.Order)}
	store := &memStore{products: mp, carts: mc, orders: mo}

	h := New(mp,
		cart.NewService(mc, mp),
		order.NewService(store, mo, nil),
		NewAuth(testSecret, ma),
	)
	return &harness{router: h.Router(), accounts: ma, products: mp, carts: mc, orders: mo}
}

func (h *harness) do(t *testing.T, method, path string, body any, actor *account.Actor) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		h.accounts.byID[actor.AccountID] = &account.Account{ID: actor.AccountID, Role: actor.Role}
		token, err := NewToken(testSecret, *actor)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func client(id string) *account.Actor {
	return &account.Actor{AccountID: id, Role: account.RoleClient}
}

func vendor(id string) *account.Actor {
	return &account.Actor{AccountID: id, Role: account.RoleVendor}
}

func activeProduct(id, vendorID, name, price string, stock int) product.Product {
	return product.Product{
		ID:       id,
		VendorID: vendorID,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Active:   true,
	}
}

// --- Tests ---

func TestAuth_MissingToken(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/api/cart", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	body := decode[errorBody](t, w)
	assert.Equal(t, "unauthorized", body.Kind)
}

func TestAuth_GarbageToken(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_UnknownAccount(t *testing.T) {
	h := newHarness(t)

	// A validly signed token whose subject was never registered.
	token, err := NewToken(testSecret, account.Actor{AccountID: "ghost", Role: account.RoleClient})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListProducts_Public(t *testing.T) {
	h := newHarness(t, activeProduct("p1", "v1", "Lamba", "25.00", 5))

	w := h.do(t, http.MethodGet, "/api/products", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[struct {
		Products []productResponse `json:"products"`
	}](t, w)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "Lamba", body.Products[0].Name)
}

func TestGetProduct_NotFound(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/api/products/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "product_not_found", decode[errorBody](t, w).Kind)
}

func TestCartFlow(t *testing.T) {
	h := newHarness(t, activeProduct("p1", "v1", "Lamba", "25.00", 5))
	actor := client("c1")

	w := h.do(t, http.MethodPost, "/api/cart/items", gin.H{"product_id": "p1", "quantity": 2}, actor)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[cartResponse](t, w)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("50.00").Equal(got.Total))

	// Update quantity.
	itemID := got.Items[0].ID
	w = h.do(t, http.MethodPatch, "/api/cart/items/"+itemID, gin.H{"quantity": 4}, actor)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, decode[cartResponse](t, w).Items[0].Quantity)

	// Remove it.
	w = h.do(t, http.MethodDelete, "/api/cart/items/"+itemID, nil, actor)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[cartResponse](t, w).Items)
}

func TestUpdateCartItem_UnknownItem(t *testing.T) {
	h := newHarness(t, activeProduct("p1", "v1", "Lamba", "25.00", 5))
	actor := client("c1")

	w := h.do(t, http.MethodPatch, "/api/cart/items/nope", gin.H{"quantity": 2}, actor)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "cart_item_not_found", decode[errorBody](t, w).Kind)

	w = h.do(t, http.MethodDelete, "/api/cart/items/nope", nil, actor)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "cart_item_not_found", decode[errorBody](t, w).Kind)
}

func TestAddCartItem_InsufficientStock(t *testing.T) {
	h := newHarness(t, activeProduct("p1", "v1", "Lamba", "25.00", 1))

	w := h.do(t, http.MethodPost, "/api/cart/items", gin.H{"product_id": "p1", "quantity": 2}, client("c1"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "insufficient_stock", decode[errorBody](t, w).Kind)
}

func TestCheckout_CreatesPerVendorOrders(t *testing.T) {
	h := newHarness(t,
		activeProduct("pA", "v-a", "Product A", "100.00", 5),
		activeProduct("pB", "v-b", "Product B", "50.00", 3),
	)
	actor := client("c1")

	require.Equal(t, http.StatusOK,
		h.do(t, http.MethodPost, "/api/cart/items", gin.H{"product_id": "pA", "quantity": 2}, actor).Code)
	require.Equal(t, http.StatusOK,
		h.do(t, http.MethodPost, "/api/cart/items", gin.H{"product_id": "pB", "quantity": 1}, actor).Code)

	w := h.do(t, http.MethodPost, "/api/orders/checkout", gin.H{
		"address":      "12 Rue des Flamboyants",
		"city":         "Antsirabe",
		"postal_code":  "110",
		"country":      "Madagascar",
		"phone":        "+261340000000",
		"shipping_fee": "10.00",
	}, actor)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode[struct {
		Orders []orderResponse `json:"orders"`
	}](t, w)
	require.Len(t, body.Orders, 2)
	assert.True(t, decimal.RequireFromString("210.00").Equal(body.Orders[0].Total))
	assert.True(t, decimal.RequireFromString("60.00").Equal(body.Orders[1].Total))
	assert.Equal(t, "pending", body.Orders[0].Status)

	// Cart is cleared and stock decremented.
	cw := h.do(t, http.MethodGet, "/api/cart", nil, actor)
	assert.Empty(t, decode[cartResponse](t, cw).Items)
	assert.Equal(t, 3, h.products.byID["pA"].Stock)
}

func TestCheckout_EmptyCart(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/orders/checkout", gin.H{
		"address": "x", "city": "x", "postal_code": "x", "country": "x", "phone": "x",
	}, client("c1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "empty_cart", decode[errorBody](t, w).Kind)
}

func TestCheckout_VendorRejected(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/orders/checkout", gin.H{
		"items": []gin.H{{"product_id": "p1", "quantity": 1}},
	}, vendor("v1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_a_client", decode[errorBody](t, w).Kind)
}

func TestOrderVisibilityAndStatus(t *testing.T) {
	h := newHarness(t, activeProduct("p1", "v1", "Lamba", "25.00", 5))
	buyer := client("c1")

	w := h.do(t, http.MethodPost, "/api/orders/checkout", gin.H{
		"address": "x", "city": "x", "postal_code": "x", "country": "x", "phone": "x",
		"items": []gin.H{{"product_id": "p1", "quantity": 1}},
	}, buyer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		Orders []orderResponse `json:"orders"`
	}](t, w).Orders
	require.Len(t, created, 1)
	id := created[0].ID

	// Buyer sees it; a stranger does not.
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/orders/"+id, nil, buyer).Code)
	sw := h.do(t, http.MethodGet, "/api/orders/"+id, nil, client("c2"))
	assert.Equal(t, http.StatusNotFound, sw.Code)
	assert.Equal(t, "order_not_found", decode[errorBody](t, sw).Kind)

	// The buyer cannot change the status.
	w = h.do(t, http.MethodPatch, "/api/orders/"+id, gin.H{"status": "shipped"}, buyer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The owning vendor can.
	w = h.do(t, http.MethodPatch, "/api/orders/"+id,
		gin.H{"status": "shipped", "tracking_number": "TRK-1"}, vendor("v1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[orderResponse](t, w)
	assert.Equal(t, "shipped", got.Status)
	assert.Equal(t, "TRK-1", got.TrackingNumber)

	// Unknown status values are rejected.
	w = h.do(t, http.MethodPatch, "/api/orders/"+id, gin.H{"status": "warp"}, vendor("v1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_status", decode[errorBody](t, w).Kind)
}

func TestListOrders_RoleFiltered(t *testing.T) {
	h := newHarness(t,
		activeProduct("pA", "v-a", "Product A", "10.00", 9),
		activeProduct("pB", "v-b", "Product B", "10.00", 9),
	)

	w := h.do(t, http.MethodPost, "/api/orders/checkout", gin.H{
		"address": "x", "city": "x", "postal_code": "x", "country": "x", "phone": "x",
		"items": []gin.H{{"product_id": "pA", "quantity": 1}, {"product_id": "pB", "quantity": 1}},
	}, client("c1"))
	require.Equal(t, http.StatusCreated, w.Code)

	type listResp struct {
		Orders []orderResponse `json:"orders"`
	}
	assert.Len(t, decode[listResp](t, h.do(t, http.MethodGet, "/api/orders", nil, client("c1"))).Orders, 2)
	assert.Len(t, decode[listResp](t, h.do(t, http.MethodGet, "/api/orders", nil, vendor("v-a"))).Orders, 1)
	admin := &account.Actor{AccountID: "a1", Role: account.RoleAdmin}
	assert.Len(t, decode[listResp](t, h.do(t, http.MethodGet, "/api/orders", nil, admin)).Orders, 2)
}
