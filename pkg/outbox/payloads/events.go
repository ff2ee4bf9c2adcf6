package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderVerifiedItem is one line of a verified purchase.
type OrderVerifiedItem struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderVerifiedEvent is emitted once a captured payment has been recorded.
type OrderVerifiedEvent struct {
	OrderID          uuid.UUID           `json:"order_id"`
	GatewayOrderID   string              `json:"gateway_order_id"`
	GatewayPaymentID string              `json:"gateway_payment_id"`
	CustomerEmail    string              `json:"customer_email"`
	Total            decimal.Decimal     `json:"total"`
	Currency         string              `json:"currency"`
	ExternalBackend  string              `json:"external_backend"`
	ExternalID       *string             `json:"external_id,omitempty"`
	Items            []OrderVerifiedItem `json:"items"`
	VerifiedAt       time.Time           `json:"verified_at"`
}

// OrderMirrorFailedEvent records that the commerce backend did not accept a
// verified order, so a downstream consumer can retry the push.
type OrderMirrorFailedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	Backend        string    `json:"backend"`
	Reason         string    `json:"reason"`
	Retryable      bool      `json:"retryable"`
}
