package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

type CustomerInfo struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Contact string `json:"contact,omitempty" validate:"omitempty,max=32"`
}

// CartItem is a line as submitted at checkout.
type CartItem struct {
	ID       string          `json:"id" validate:"required"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" validate:"min=1"`
	Image    string          `json:"image,omitempty"`
}

type CreateOrderRequest struct {
	Amount       decimal.Decimal
	Currency     string
	CustomerInfo *CustomerInfo
	CartItems    []CartItem
	SessionID    string
}

// OrderDescriptor is the gateway order handed to the payment UI. Amount is
// in minor units.
type OrderDescriptor struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Receipt   string    `json:"receipt"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CreateOrderResult struct {
	Order     OrderDescriptor `json:"order"`
	KeyID     string          `json:"key_id"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// PaymentResult is the signed triple returned by the payment UI.
type PaymentResult struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type VerifyPaymentRequest struct {
	Payment         PaymentResult
	CustomerInfo    *CustomerInfo
	CartItems       []CartItem
	ShippingAddress *types.ShippingAddress
	Notes           map[string]any
	SessionID       string
}

// VerifiedOrder is produced only after the signature matched and the
// gateway reported the payment captured.
type VerifiedOrder struct {
	ID               string                `json:"id"`
	GatewayOrderID   string                `json:"razorpay_order_id"`
	GatewayPaymentID string                `json:"razorpay_payment_id"`
	ExternalID       string                `json:"external_id,omitempty"`
	SessionID        string                `json:"-"`
	Customer         CustomerInfo          `json:"customer"`
	Items            []CartItem            `json:"items"`
	ShippingAddress  types.ShippingAddress `json:"shipping_address"`
	PaymentMethod    string                `json:"payment_method"`
	Total            decimal.Decimal       `json:"total"`
	Currency         string                `json:"currency"`
	Notes            map[string]any        `json:"notes,omitempty"`
	Fallback         bool                  `json:"fallback"`
	CreatedAt        time.Time             `json:"created_at"`
}
