package spocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropship-service/internal/models"
)

func TestConvertProductCarriesVariantAttributes(t *testing.T) {
	raw := spocketProduct{
		ID:        "sp-1",
		Title:     "Canvas Tote",
		Price:     "24.90",
		Currency:  "USD",
		Inventory: 40,
		Images: []struct {
			URL string `json:"url"`
		}{{URL: "https://cdn.example.com/tote.jpg"}},
		Variants: []struct {
			SKU       string            `json:"sku"`
			Price     string            `json:"price"`
			Inventory int               `json:"inventory"`
			Options   map[string]string `json:"options"`
		}{
			{SKU: "sp-1-red-l", Price: "26.90", Inventory: 12, Options: map[string]string{"color": "red", "size": "L"}},
		},
		ShippingOrigin: "US",
	}

	product := convertProduct(raw)
	assert.Equal(t, int64(2490), product.PriceCents)
	assert.Equal(t, []string{"https://cdn.example.com/tote.jpg"}, product.Images)
	assert.Equal(t, map[string]string{"origin": "US"}, product.ShippingInfo)

	require.Len(t, product.Variations, 1)
	v := product.Variations[0]
	assert.Equal(t, "sp-1-red-l", v.SKU)
	assert.Equal(t, int64(2690), v.PriceCents)
	assert.Equal(t, 12, v.Stock)
	assert.Equal(t, map[string]string{"color": "red", "size": "L"}, v.Attributes)
}

func TestConvertProductDefaultsCurrency(t *testing.T) {
	product := convertProduct(spocketProduct{ID: "sp-2", Title: "Mug", Price: "9.99"})
	assert.Equal(t, "USD", product.Currency)
}

func TestMapOrderStatus(t *testing.T) {
	tests := []struct {
		native string
		want   models.OrderStatus
	}{
		{"unpaid", models.OrderStatusPending},
		{"paid", models.OrderStatusConfirmed},
		{"fulfilling", models.OrderStatusProcessing},
		{"SHIPPED", models.OrderStatusShipped},
		{"delivered", models.OrderStatusDelivered},
		{"cancelled", models.OrderStatusCancelled},
		{"mystery", models.OrderStatusPending},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapOrderStatus(tt.native), tt.native)
	}
}
