package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tsena-dev/backend/internal/domain/product"
)

type productResponse struct {
	ID             string           `json:"id"`
	VendorID       string           `json:"vendor_id"`
	SKU            string           `json:"sku,omitempty"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Price          decimal.Decimal  `json:"price"`
	PromoPrice     *decimal.Decimal `json:"promo_price,omitempty"`
	EffectivePrice decimal.Decimal  `json:"effective_price"`
	Stock          int              `json:"stock"`
	LowStock       bool             `json:"low_stock"`
	Active         bool             `json:"active"`
	CreatedAt      time.Time        `json:"created_at"`
}

func toProductResponse(p product.Product) productResponse {
	resp := productResponse{
		ID:             p.ID,
		VendorID:       p.VendorID,
		SKU:            p.SKU,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		EffectivePrice: p.EffectivePrice(),
		Stock:          p.Stock,
		LowStock:       p.LowStock(),
		Active:         p.Active,
		CreatedAt:      p.CreatedAt,
	}
	if p.PromoPrice.Valid {
		resp.PromoPrice = &p.PromoPrice.Decimal
	}
	return resp
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

func (h *Handler) getProduct(c *gin.Context) {
	p, err := h.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(*p))
}
