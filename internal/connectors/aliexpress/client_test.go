package aliexpress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropship-service/internal/connectors"
	"dropship-service/internal/models"
)

func TestSignIsDeterministicAndKeyOrdered(t *testing.T) {
	c := New(connectors.ConnectorConfig{APIKey: "key", APISecret: "secret"})

	params := map[string]string{"b": "2", "a": "1", "c": "3"}
	first := c.sign("aliexpress.ds.product.get", params)
	second := c.sign("aliexpress.ds.product.get", map[string]string{"c": "3", "a": "1", "b": "2"})

	assert.Equal(t, first, second)
	assert.Regexp(t, `^[0-9A-F]{64}$`, first)

	// changing any input changes the signature
	assert.NotEqual(t, first, c.sign("aliexpress.ds.order.create", params))
	assert.NotEqual(t, first, c.sign("aliexpress.ds.product.get", map[string]string{"a": "1", "b": "2", "c": "4"}))
}

func TestSignDependsOnSecret(t *testing.T) {
	a := New(connectors.ConnectorConfig{APIKey: "key", APISecret: "secret-one"})
	b := New(connectors.ConnectorConfig{APIKey: "key", APISecret: "secret-two"})

	params := map[string]string{"a": "1"}
	assert.NotEqual(t, a.sign("method", params), b.sign("method", params))
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	c := New(connectors.ConnectorConfig{Name: "aliexpress"})

	_, err := c.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, connectors.IsConfigurationError(err))
}

func TestAuthenticateWithoutAccessToken(t *testing.T) {
	c := New(connectors.ConnectorConfig{APIKey: "key", APISecret: "secret"})

	ok, err := c.Authenticate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMapOrderStatus(t *testing.T) {
	tests := []struct {
		native string
		want   models.OrderStatus
	}{
		{"PLACE_ORDER_SUCCESS", models.OrderStatusPending},
		{"PAYMENT_SUCCESS", models.OrderStatusConfirmed},
		{"WAIT_SELLER_SEND_GOODS", models.OrderStatusProcessing},
		{"SELLER_SEND_GOODS", models.OrderStatusShipped},
		{"in_transit", models.OrderStatusShipped},
		{"FINISH", models.OrderStatusDelivered},
		{"IN_CANCEL", models.OrderStatusCancelled},
		{"IN_ISSUE", models.OrderStatusFailed},
		{"SOMETHING_NEW", models.OrderStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.native, func(t *testing.T) {
			assert.Equal(t, tt.want, mapOrderStatus(tt.native))
		})
	}
}

func TestDecimalToCents(t *testing.T) {
	assert.Equal(t, int64(1599), decimalToCents("15.99"))
	assert.Equal(t, int64(1599), decimalToCents("$15.99"))
	assert.Equal(t, int64(1000), decimalToCents("10"))
	assert.Equal(t, int64(0), decimalToCents(""))
	assert.Equal(t, int64(0), decimalToCents("not-a-price"))
}

func TestCentsToDecimal(t *testing.T) {
	assert.Equal(t, "15.99", centsToDecimal(1599))
	assert.Equal(t, "10.00", centsToDecimal(1000))
	assert.Equal(t, "0.05", centsToDecimal(5))
}
