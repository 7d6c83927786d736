package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/tsena-dev/backend/internal/domain/cart"
	"github.com/tsena-dev/backend/internal/domain/order"
	"github.com/tsena-dev/backend/internal/domain/product"
)

// errorBody is the wire shape of every error response. Kind is a stable
// machine-readable identifier; Message is for humans only.
type errorBody struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// respondError translates domain errors into HTTP responses. Anything not
// recognized becomes an opaque 500 so internals never leak to clients.
func respondError(c *gin.Context, err error) {
	status, kind := classify(err)

	body := errorBody{Code: status, Kind: kind, Message: err.Error()}
	if status == http.StatusInternalServerError {
		zctx.From(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()), zap.Error(err))
		body.Message = "internal error"
	}
	c.JSON(status, body)
}

func classify(err error) (int, string) {
	var (
		invalidQty     *order.InvalidQuantityError
		cartInvalidQty *cart.InvalidQuantityError
		notFound       *order.ProductNotFoundError
		unavailable    *order.ProductUnavailableError
		outOfStock     *product.InsufficientStockError
		invalidStatus  *order.InvalidStatusError
		badTransition  *order.InvalidTransitionError
	)

	switch {
	case errors.Is(err, order.ErrEmptyCart):
		return http.StatusBadRequest, "empty_cart"
	case errors.Is(err, order.ErrInvalidShippingFee):
		return http.StatusBadRequest, "invalid_shipping_fee"
	case errors.As(err, &invalidQty), errors.As(err, &cartInvalidQty):
		return http.StatusBadRequest, "invalid_quantity"
	case errors.As(err, &invalidStatus):
		return http.StatusBadRequest, "invalid_status"
	case errors.As(err, &badTransition):
		return http.StatusConflict, "invalid_status"
	case errors.As(err, &notFound), errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, "product_not_found"
	case errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound, "cart_item_not_found"
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.As(err, &unavailable), errors.Is(err, product.ErrUnavailable):
		return http.StatusConflict, "product_unavailable"
	case errors.As(err, &outOfStock):
		return http.StatusConflict, "insufficient_stock"
	case errors.Is(err, order.ErrNotAClient):
		return http.StatusForbidden, "not_a_client"
	case errors.Is(err, order.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorBody{
		Code:    http.StatusBadRequest,
		Kind:    "bad_request",
		Message: msg,
	})
}
