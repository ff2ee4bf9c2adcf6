package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventName string

const (
	EventAddToCart      EventName = "add_to_cart"
	EventRemoveFromCart EventName = "remove_from_cart"
	EventBeginCheckout  EventName = "begin_checkout"
)

// Item is the product slice carried by an analytics event.
type Item struct {
	ID       string          `json:"item_id"`
	Title    string          `json:"item_name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Event describes one cart interaction. QuantityDelta is signed: positive for
// additions, negative for removals, zero for begin_checkout. ItemCount and
// Value describe the cart after the transition.
type Event struct {
	Name          EventName       `json:"event"`
	SessionID     string          `json:"session_id,omitempty"`
	Currency      string          `json:"currency"`
	Value         decimal.Decimal `json:"value"`
	Items         []Item          `json:"items"`
	QuantityDelta int             `json:"quantity_delta"`
	ItemCount     int             `json:"item_count"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
