// Package handler exposes the marketplace over HTTP using Gin.
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tsena-dev/backend/internal/domain/cart"
	"github.com/tsena-dev/backend/internal/domain/order"
	"github.com/tsena-dev/backend/internal/domain/product"
)

// Handler wires the domain services to HTTP routes.
type Handler struct {
	products product.Repository
	carts    *cart.Service
	orders   *order.Service
	auth     *Auth
}

// New creates a Handler.
func New(products product.Repository, carts *cart.Service, orders *order.Service, auth *Auth) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		orders:   orders,
		auth:     auth,
	}
}

// Router builds the Gin engine with every API route registered. Gin's own
// logger and recovery are omitted; the surrounding middleware chain covers
// both.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()

	api := r.Group("/api")

	// Catalog reads are public.
	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)

	authed := api.Group("", h.auth.Require())

	authed.GET("/cart", h.getCart)
	authed.POST("/cart/items", h.addCartItem)
	authed.PATCH("/cart/items/:id", h.updateCartItem)
	authed.DELETE("/cart/items/:id", h.removeCartItem)
	authed.DELETE("/cart", h.clearCart)

	authed.POST("/orders/checkout", h.checkout)
	authed.GET("/orders", h.listOrders)
	authed.GET("/orders/:id", h.getOrder)
	authed.PATCH("/orders/:id", h.updateOrder)

	return r
}
