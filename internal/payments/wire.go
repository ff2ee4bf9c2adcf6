package payments

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// CreateOrderBody is the JSON body of POST /api/create-order.
type CreateOrderBody struct {
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	CustomerInfo *CustomerInfo   `json:"customerInfo"`
	CartItems    []CartItem      `json:"cartItems,omitempty"`
}

func (b CreateOrderBody) Request(sessionID string) CreateOrderRequest {
	return CreateOrderRequest{
		Amount:       b.Amount,
		Currency:     b.Currency,
		CustomerInfo: b.CustomerInfo,
		CartItems:    b.CartItems,
		SessionID:    sessionID,
	}
}

// VerifyPaymentBody is the JSON body of POST /api/verify-payment. The three
// gateway fields sit at the top level, as the payment UI hands them over.
type VerifyPaymentBody struct {
	PaymentResult
	CustomerInfo    *CustomerInfo          `json:"customerInfo,omitempty"`
	CartItems       []CartItem             `json:"cartItems,omitempty"`
	ShippingAddress *types.ShippingAddress `json:"shippingAddress,omitempty"`
	Notes           map[string]any         `json:"notes,omitempty"`
}

func (b VerifyPaymentBody) Request(sessionID string) VerifyPaymentRequest {
	return VerifyPaymentRequest{
		Payment:         b.PaymentResult,
		CustomerInfo:    b.CustomerInfo,
		CartItems:       b.CartItems,
		ShippingAddress: b.ShippingAddress,
		Notes:           b.Notes,
		SessionID:       sessionID,
	}
}

// VerifyPaymentResponse is either {success:true, order} or
// {success:false, error}.
type VerifyPaymentResponse struct {
	Success bool           `json:"success"`
	Order   *VerifiedOrder `json:"order,omitempty"`
	Error   string         `json:"error,omitempty"`
}
