package cjdropshipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropship-service/internal/models"
)

func TestConvertProductCarriesVariantKey(t *testing.T) {
	raw := cjProduct{
		PID:       "cj-100",
		NameEn:    "Desk Lamp",
		SellPrice: "18.50",
		Stock:     75,
		Image:     "https://cdn.example.com/lamp.jpg",
		Variants: []struct {
			VID       string `json:"vid"`
			SellPrice string `json:"variantSellPrice"`
			Stock     int    `json:"inventoryNum"`
			Key       string `json:"variantKey"`
		}{
			{VID: "cj-100-wh", SellPrice: "19.50", Stock: 30, Key: "White"},
		},
	}

	product := convertProduct(raw)
	assert.Equal(t, int64(1850), product.PriceCents)
	assert.Equal(t, "USD", product.Currency)
	assert.Equal(t, []string{"https://cdn.example.com/lamp.jpg"}, product.Images)

	require.Len(t, product.Variations, 1)
	v := product.Variations[0]
	assert.Equal(t, "cj-100-wh", v.SKU)
	assert.Equal(t, int64(1950), v.PriceCents)
	assert.Equal(t, 30, v.Stock)
	assert.Equal(t, map[string]string{"variant": "White"}, v.Attributes)
}

func TestMapOrderStatus(t *testing.T) {
	tests := []struct {
		native string
		want   models.OrderStatus
	}{
		{"CREATED", models.OrderStatusPending},
		{"PAID", models.OrderStatusConfirmed},
		{"UNSHIPPED", models.OrderStatusProcessing},
		{"in_transit", models.OrderStatusShipped},
		{"DELIVERED", models.OrderStatusDelivered},
		{"CANCELLED", models.OrderStatusCancelled},
		{"FAILED", models.OrderStatusFailed},
		{"SOMETHING_ELSE", models.OrderStatusPending},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapOrderStatus(tt.native), tt.native)
	}
}

func TestParseAging(t *testing.T) {
	min, max := parseAging("7-15")
	assert.Equal(t, 7, min)
	assert.Equal(t, 15, max)

	min, max = parseAging("10")
	assert.Equal(t, 10, min)
	assert.Equal(t, 10, max)
}
