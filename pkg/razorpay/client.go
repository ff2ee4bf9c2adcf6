package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	rzp "github.com/razorpay/razorpay-go"

	"github.com/angelmondragon/storefront-checkout/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
	errLoggerRequired    = errors.New("razorpay logger is required")
)

type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentAPI interface {
	Fetch(paymentID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Client wraps the Razorpay SDK with logging, redaction, context
// cancellation, and error mapping. The key secret is never logged.
type Client struct {
	orders   orderAPI
	payments paymentAPI
	keyID    string
	logger   *logger.Logger
}

// NewClient validates the credentials and builds the SDK client.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	secret := strings.TrimSpace(cfg.KeySecret)
	if secret == "" {
		return nil, errKeySecretRequired
	}

	sdk := rzp.NewClient(keyID, secret)
	c := &Client{
		orders:   sdk.Order,
		payments: sdk.Payment,
		keyID:    keyID,
		logger:   logg,
	}
	logg.Info(logg.WithField(ctx, "key_mode", keyMode(keyID)), "razorpay client initialized")
	return c, nil
}

// KeyID returns the public key id handed to the browser checkout.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// CreateOrder creates a gateway order for the amount in minor units.
func (c *Client) CreateOrder(ctx context.Context, params OrderParams) (*Order, error) {
	if params.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}
	c.log(ctx, "request", "create_order", map[string]any{
		"amount":   params.Amount,
		"currency": params.Currency,
		"receipt":  params.Receipt,
	})

	raw, err := call(ctx, func() (map[string]interface{}, error) {
		return c.orders.Create(params.toMap(), nil)
	})
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, mapRazorpayError(err, "create order")
	}

	order, err := decodeOrder(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "razorpay create order returned an unexpected payload")
	}
	c.log(ctx, "response", "create_order", map[string]any{
		"order_id": order.ID,
		"status":   order.Status,
	})
	return order, nil
}

// FetchPayment reads the authoritative payment state from the gateway.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	c.log(ctx, "request", "fetch_payment", map[string]any{"payment_id": paymentID})

	raw, err := call(ctx, func() (map[string]interface{}, error) {
		return c.payments.Fetch(paymentID, nil, nil)
	})
	if err != nil {
		c.log(ctx, "error", "fetch_payment", map[string]any{"error": err.Error()})
		return nil, mapRazorpayError(err, "fetch payment")
	}

	payment, err := decodePayment(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "razorpay fetch payment returned an unexpected payload")
	}
	c.log(ctx, "response", "fetch_payment", map[string]any{
		"payment_id": payment.ID,
		"order_id":   payment.OrderID,
		"status":     payment.Status,
		"email":      payment.Email,
		"contact":    payment.Contact,
	})
	return payment, nil
}

// call runs a blocking SDK call and gives up when ctx ends first. The SDK
// has no context support, so the goroutine finishes on its own timeout.
func call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := fn()
		done <- result{body: body, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.body, res.err
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	c.logger.VendorCall(ctx, "razorpay", phase, op, fields)
}

// mapRazorpayError keeps gateway failures on the dependency code; the SDK
// surfaces BAD_REQUEST_ERROR for bad input we sent.
func mapRazorpayError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("razorpay %s timed out", op))
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "bad_request") && !strings.Contains(msg, "authentication") {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("razorpay %s rejected the request", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("razorpay %s failed", op))
}

func keyMode(keyID string) string {
	switch {
	case strings.HasPrefix(keyID, "rzp_live_"):
		return "live"
	case strings.HasPrefix(keyID, "rzp_test_"):
		return "test"
	default:
		return "unknown"
	}
}

func int64Field(raw map[string]interface{}, key string) (int64, error) {
	switch v := raw[key].(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case nil:
		return 0, fmt.Errorf("missing %s", key)
	default:
		return 0, fmt.Errorf("unexpected %s type %T", key, v)
	}
}

func stringField(raw map[string]interface{}, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}
