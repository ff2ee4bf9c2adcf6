package handshake

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-checkout/internal/payments"
)

func TestHTTPClientCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, createOrderPath, r.URL.Path)
		assert.Equal(t, "attempt-1", r.Header.Get(idempotencyHeader))
		var body payments.CreateOrderBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, decimal.RequireFromString("499").Equal(body.Amount))
		assert.Equal(t, "asha@example.com", body.CustomerInfo.Email)

		w.Header().Set(SessionHeader, "sess-new")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order":{"id":"order_abc","amount":49900,"currency":"INR","receipt":"rcpt_1"},"key_id":"rzp_test_key","expires_at":"2026-03-01T10:15:00Z"}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "", srv.Client())
	require.NoError(t, err)

	result, err := client.CreateOrder(context.Background(), "attempt-1", payments.CreateOrderBody{
		Amount:       decimal.RequireFromString("499.00"),
		Currency:     "INR",
		CustomerInfo: &payments.CustomerInfo{Name: "Asha", Email: "asha@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", result.Order.ID)
	assert.EqualValues(t, 49900, result.Order.Amount)
	assert.Equal(t, "rzp_test_key", result.KeyID)
	assert.Equal(t, "sess-new", client.SessionID())
}

func TestHTTPClientCreateOrderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"VALIDATION_ERROR","message":"amount must be positive"}}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "sess-1", nil)
	require.NoError(t, err)

	_, err = client.CreateOrder(context.Background(), "", payments.CreateOrderBody{})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "amount must be positive", statusErr.Message)
}

func TestHTTPClientVerifyPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, verifyPaymentPath, r.URL.Path)
		assert.Equal(t, "sess-1", r.Header.Get(SessionHeader))
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, "order_abc", raw["razorpay_order_id"])
		assert.Equal(t, "pay_1", raw["razorpay_payment_id"])

		if raw["razorpay_signature"] == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"success":false,"error":"Payment verification failed"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"order":{"id":"vo_1","razorpay_order_id":"order_abc","razorpay_payment_id":"pay_1","total":"499","currency":"INR"}}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL+"/", "sess-1", srv.Client())
	require.NoError(t, err)

	order, err := client.VerifyPayment(context.Background(), payments.VerifyPaymentBody{
		PaymentResult: payments.PaymentResult{OrderID: "order_abc", PaymentID: "pay_1", Signature: "good"},
	})
	require.NoError(t, err)
	assert.Equal(t, "vo_1", order.ID)
	assert.Equal(t, "pay_1", order.GatewayPaymentID)

	_, err = client.VerifyPayment(context.Background(), payments.VerifyPaymentBody{
		PaymentResult: payments.PaymentResult{OrderID: "order_abc", PaymentID: "pay_1", Signature: "bad"},
	})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "Payment verification failed", statusErr.Message)
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	_, err := NewHTTPClient(" ", "", nil)
	require.Error(t, err)
}
