package handshake

import (
	"context"

	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/internal/payments"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// State is where a checkout attempt stands.
type State string

const (
	StateCreated                State = "created"
	StateAwaitingCustomerAction State = "awaiting_customer_action"
	StateCaptured               State = "captured"
	StateCancelled              State = "cancelled"
	StateFailed                 State = "failed"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCaptured || s == StateCancelled || s == StateFailed
}

// API is the storefront backend as seen by the checkout page. Repeating
// CreateOrder with the same idempotency key replays the first answer.
type API interface {
	CreateOrder(ctx context.Context, idempotencyKey string, body payments.CreateOrderBody) (*payments.CreateOrderResult, error)
	VerifyPayment(ctx context.Context, body payments.VerifyPaymentBody) (*payments.VerifiedOrder, error)
}

// PaymentUI opens the gateway's hosted payment form. Open returns once the
// form is shown; the outcome arrives later through opts.Handler or
// opts.Modal.OnDismiss.
type PaymentUI interface {
	Open(ctx context.Context, opts CheckoutOptions) error
}

type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

type Theme struct {
	Color string `json:"color,omitempty"`
}

type Modal struct {
	OnDismiss func() `json:"-"`
}

// CheckoutOptions configures the payment form. Amount is in minor units and
// Timeout in seconds.
type CheckoutOptions struct {
	Key         string                              `json:"key"`
	Amount      int64                               `json:"amount"`
	Currency    string                              `json:"currency"`
	Name        string                              `json:"name,omitempty"`
	Description string                              `json:"description,omitempty"`
	OrderID     string                              `json:"order_id"`
	Prefill     Prefill                             `json:"prefill"`
	Notes       map[string]any                      `json:"notes,omitempty"`
	Theme       Theme                               `json:"theme"`
	Timeout     int                                 `json:"timeout,omitempty"`
	Modal       Modal                               `json:"modal"`
	Handler     func(result payments.PaymentResult) `json:"-"`
}

// Input is one checkout attempt. AttemptID keys order creation; leave it
// empty to get a fresh one, or pass a previous Result.AttemptID to resume
// the same attempt.
type Input struct {
	AttemptID string
	Snapshot  cart.Snapshot
	Customer  payments.CustomerInfo
	Shipping  *types.ShippingAddress
	Notes     map[string]any
}

// Result is the outcome of Run. Order is set only when State is
// StateCaptured.
type Result struct {
	State     State
	AttemptID string
	OrderID   string
	Order     *payments.VerifiedOrder
}
