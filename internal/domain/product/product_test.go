package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEffectivePrice(t *testing.T) {
	base := decimal.RequireFromString("100.00")

	tests := []struct {
		name  string
		promo decimal.NullDecimal
		want  string
	}{
		{name: "no promo", want: "100.00"},
		{
			name:  "promo below base",
			promo: decimal.NewNullDecimal(decimal.RequireFromString("80.00")),
			want:  "80.00",
		},
		{
			name:  "promo above base is ignored",
			promo: decimal.NewNullDecimal(decimal.RequireFromString("120.00")),
			want:  "100.00",
		},
		{
			name:  "promo equal to base is ignored",
			promo: decimal.NewNullDecimal(decimal.RequireFromString("100.00")),
			want:  "100.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{Price: base, PromoPrice: tt.promo}
			assert.True(t, decimal.RequireFromString(tt.want).Equal(p.EffectivePrice()))
		})
	}
}

func TestLowStock(t *testing.T) {
	assert.False(t, Product{Stock: 6, LowStockThreshold: 5}.LowStock())
	assert.True(t, Product{Stock: 5, LowStockThreshold: 5}.LowStock())
	assert.True(t, Product{Stock: 0, LowStockThreshold: 5}.LowStock())
}
