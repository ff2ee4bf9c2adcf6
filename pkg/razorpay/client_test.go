package razorpay

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

type stubOrders struct {
	data map[string]interface{}
	resp map[string]interface{}
	err  error
}

func (s *stubOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	s.data = data
	return s.resp, s.err
}

type stubPayments struct {
	resp  map[string]interface{}
	err   error
	delay time.Duration
}

func (s *stubPayments) Fetch(string, map[string]interface{}, map[string]string) (map[string]interface{}, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.resp, s.err
}

func newTestClient(orders orderAPI, payments paymentAPI, buf *bytes.Buffer) *Client {
	return &Client{
		orders:   orders,
		payments: payments,
		keyID:    "rzp_test_key",
		logger:   logger.New(logger.Options{ServiceName: "test", Output: buf}),
	}
}

func TestCreateOrderSendsMinorUnits(t *testing.T) {
	orders := &stubOrders{resp: map[string]interface{}{
		"id":       "order_abc",
		"amount":   float64(49900),
		"currency": "INR",
		"receipt":  "rcpt_1",
		"status":   "created",
	}}
	c := newTestClient(orders, nil, &bytes.Buffer{})

	order, err := c.CreateOrder(context.Background(), OrderParams{
		Amount:   49900,
		Currency: "inr",
		Receipt:  "rcpt_1",
		Notes:    map[string]string{"customer_email": "a@b.c"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != "order_abc" || order.Amount != 49900 || order.Currency != "INR" {
		t.Fatalf("unexpected order %+v", order)
	}
	if orders.data["amount"] != int64(49900) || orders.data["currency"] != "INR" {
		t.Fatalf("unexpected request %v", orders.data)
	}
	notes, ok := orders.data["notes"].(map[string]interface{})
	if !ok || notes["customer_email"] != "a@b.c" {
		t.Fatalf("notes not forwarded: %v", orders.data["notes"])
	}
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	orders := &stubOrders{}
	c := newTestClient(orders, nil, &bytes.Buffer{})
	_, err := c.CreateOrder(context.Background(), OrderParams{Amount: 0, Currency: "INR"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if orders.data != nil {
		t.Fatal("gateway should not be called")
	}
}

func TestCreateOrderMapsGatewayFailure(t *testing.T) {
	c := newTestClient(&stubOrders{err: errors.New("SERVER_ERROR: upstream unavailable")}, nil, &bytes.Buffer{})
	_, err := c.CreateOrder(context.Background(), OrderParams{Amount: 100, Currency: "INR"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestFetchPaymentDecodesAndRedacts(t *testing.T) {
	buf := &bytes.Buffer{}
	c := newTestClient(nil, &stubPayments{resp: map[string]interface{}{
		"id":       "pay_1",
		"order_id": "order_abc",
		"amount":   float64(49900),
		"currency": "INR",
		"status":   "captured",
		"method":   "upi",
		"email":    "shopper@example.com",
		"contact":  "+919999999999",
	}}, buf)

	payment, err := c.FetchPayment(context.Background(), "pay_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !payment.Captured() || payment.OrderID != "order_abc" || payment.Method != "upi" {
		t.Fatalf("unexpected payment %+v", payment)
	}
	if strings.Contains(buf.String(), "shopper@example.com") || strings.Contains(buf.String(), "+919999999999") {
		t.Fatalf("pii leaked into logs: %s", buf.String())
	}
}

func TestFetchPaymentHonorsContext(t *testing.T) {
	c := newTestClient(nil, &stubPayments{delay: 200 * time.Millisecond, resp: map[string]interface{}{"id": "pay_1", "amount": float64(1)}}, &bytes.Buffer{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.FetchPayment(ctx, "pay_1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestFetchPaymentRejectsMalformedPayload(t *testing.T) {
	c := newTestClient(nil, &stubPayments{resp: map[string]interface{}{"id": "pay_1", "amount": "lots"}}, &bytes.Buffer{})
	_, err := c.FetchPayment(context.Background(), "pay_1")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestNewClientValidatesCredentials(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	if _, err := NewClient(context.Background(), config.RazorpayConfig{KeySecret: "s"}, logg); err != errKeyIDRequired {
		t.Fatalf("expected key id error, got %v", err)
	}
	if _, err := NewClient(context.Background(), config.RazorpayConfig{KeyID: "rzp_test_x"}, logg); err != errKeySecretRequired {
		t.Fatalf("expected secret error, got %v", err)
	}
	c, err := NewClient(context.Background(), config.RazorpayConfig{KeyID: "rzp_test_x", KeySecret: "s"}, logg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.KeyID() != "rzp_test_x" {
		t.Fatalf("unexpected key id %q", c.KeyID())
	}
}
