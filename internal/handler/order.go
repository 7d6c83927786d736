package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tsena-dev/backend/internal/domain/order"
)

type checkoutRequest struct {
	Address     string               `json:"address"`
	City        string               `json:"city"`
	PostalCode  string               `json:"postal_code"`
	Country     string               `json:"country"`
	Phone       string               `json:"phone"`
	ShippingFee decimal.Decimal      `json:"shipping_fee"`
	Note        string               `json:"note"`
	Items       []order.CheckoutItem `json:"items"`
}

type orderLineResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type orderResponse struct {
	ID                string              `json:"id"`
	Number            string              `json:"number"`
	ClientID          string              `json:"client_id"`
	VendorID          string              `json:"vendor_id"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	ShippingFee       decimal.Decimal     `json:"shipping_fee"`
	Total             decimal.Decimal     `json:"total"`
	Address           string              `json:"address"`
	City              string              `json:"city"`
	PostalCode        string              `json:"postal_code"`
	Country           string              `json:"country"`
	Phone             string              `json:"phone"`
	Status            string              `json:"status"`
	TrackingNumber    string              `json:"tracking_number,omitempty"`
	ClientNote        string              `json:"client_note,omitempty"`
	VendorNote        string              `json:"vendor_note,omitempty"`
	EstimatedDelivery *time.Time          `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time          `json:"actual_delivery,omitempty"`
	Lines             []orderLineResponse `json:"lines"`
	CreatedAt         time.Time           `json:"created_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	lines := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineResponse{
			ID:          l.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			LineTotal:   l.LineTotal,
		}
	}
	return orderResponse{
		ID:                o.ID,
		Number:            o.Number,
		ClientID:          o.ClientID,
		VendorID:          o.VendorID,
		Subtotal:          o.Subtotal,
		ShippingFee:       o.ShippingFee,
		Total:             o.Total,
		Address:           o.Delivery.Address,
		City:              o.Delivery.City,
		PostalCode:        o.Delivery.PostalCode,
		Country:           o.Delivery.Country,
		Phone:             o.Delivery.Phone,
		Status:            string(o.Status),
		TrackingNumber:    o.TrackingNumber,
		ClientNote:        o.ClientNote,
		VendorNote:        o.VendorNote,
		EstimatedDelivery: o.EstimatedDelivery,
		ActualDelivery:    o.ActualDelivery,
		Lines:             lines,
		CreatedAt:         o.CreatedAt,
	}
}

func toOrderResponses(orders []*order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	return out
}

func (h *Handler) checkout(c *gin.Context) {
	actor := actorFrom(c)

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	created, err := h.orders.Checkout(c.Request.Context(), actor, order.CheckoutRequest{
		Delivery: order.Delivery{
			Address:    req.Address,
			City:       req.City,
			PostalCode: req.PostalCode,
			Country:    req.Country,
			Phone:      req.Phone,
		},
		ShippingFee: req.ShippingFee,
		ClientNote:  req.Note,
		Items:       req.Items,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"orders": toOrderResponses(created)})
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": toOrderResponses(orders)})
}

func (h *Handler) getOrder(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *Handler) updateOrder(c *gin.Context) {
	var req struct {
		Status         string  `json:"status"`
		TrackingNumber *string `json:"tracking_number"`
		VendorNote     *string `json:"vendor_note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	o, err := h.orders.UpdateStatus(c.Request.Context(), actorFrom(c), c.Param("id"), order.StatusUpdate{
		Status:         req.Status,
		TrackingNumber: req.TrackingNumber,
		VendorNote:     req.VendorNote,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}
