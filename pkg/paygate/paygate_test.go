package paygate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec-test"

func TestCreateInvoice(t *testing.T) {
	var got InvoiceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invoices", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pay_1","payment_url":"https://pay.example/pay_1","status":"new"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{
		BaseURL:    srv.URL,
		APIKey:     "key-1",
		ShopID:     "shop-9",
		SuccessURL: "https://shop.example/checkout/success?draft={order_id}",
		FailURL:    "https://shop.example/checkout/fail",
	})

	inv, err := c.CreateInvoice(context.Background(), InvoiceRequest{
		OrderID:  "draft-1",
		Amount:   150000,
		Currency: "RUB",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_1", inv.PaymentID)
	assert.Equal(t, "https://pay.example/pay_1", inv.PaymentURL)

	assert.Equal(t, "shop-9", got.ShopID)
	assert.Equal(t, int64(150000), got.Amount)
	assert.Equal(t, "https://shop.example/checkout/success?draft=draft-1", got.SuccessURL)
	assert.Equal(t, "https://shop.example/checkout/fail", got.FailURL)
}

func TestCreateInvoice_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"upstream down"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.CreateInvoice(context.Background(), InvoiceRequest{OrderID: "d", Amount: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGateway)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestParseWebhook(t *testing.T) {
	claims := WebhookClaims{
		OrderID:   "draft-1",
		PaymentID: "pay_1",
		Status:    StatusSuccess,
		Amount:    150000,
		Currency:  "RUB",
	}
	token, err := SignWebhook(claims, testSecret)
	require.NoError(t, err)

	t.Run("裸 JWT", func(t *testing.T) {
		got, err := ParseWebhook([]byte(token), testSecret)
		require.NoError(t, err)
		assert.Equal(t, "draft-1", got.OrderID)
		assert.Equal(t, int64(150000), got.Amount)
	})

	t.Run("JSON 包装", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"token": token})
		got, err := ParseWebhook(body, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "pay_1", got.PaymentID)
	})

	t.Run("签名错误", func(t *testing.T) {
		_, err := ParseWebhook([]byte(token), "other-secret")
		assert.ErrorIs(t, err, ErrInvalidWebhook)
	})

	t.Run("非 HS256 算法", func(t *testing.T) {
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = ParseWebhook([]byte(none), testSecret)
		assert.ErrorIs(t, err, ErrInvalidWebhook)
	})

	t.Run("格式错误", func(t *testing.T) {
		_, err := ParseWebhook([]byte("not-a-jwt"), testSecret)
		assert.ErrorIs(t, err, ErrInvalidWebhook)

		_, err = ParseWebhook([]byte(`{"token":`), testSecret)
		assert.ErrorIs(t, err, ErrInvalidWebhook)
	})

	t.Run("未知状态", func(t *testing.T) {
		bad := claims
		bad.Status = "refunded"
		tok, err := SignWebhook(bad, testSecret)
		require.NoError(t, err)
		_, err = ParseWebhook([]byte(tok), testSecret)
		assert.ErrorIs(t, err, ErrInvalidWebhook)
	})
}
