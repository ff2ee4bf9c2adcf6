package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-checkout/internal/analytics"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// Product is what the storefront submits when a shopper adds a variant.
type Product struct {
	ID    string
	Title string
	Price types.Money
	Image string
}

// LineItem is one variant in the cart. Quantity is always at least 1.
type LineItem struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Price    types.Money `json:"price"`
	Quantity int         `json:"quantity"`
	Image    string      `json:"image,omitempty"`
}

// CheckoutLine is the per-item descriptor handed to the hosted checkout.
type CheckoutLine struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// Snapshot is the cart as read at one point in time.
type Snapshot struct {
	Items     []LineItem  `json:"items"`
	Subtotal  types.Money `json:"subtotal"`
	ItemCount int         `json:"item_count"`
	Open      bool        `json:"open"`
}

// Store holds one session's line items and the panel flag. Transitions are
// pure: they mutate the store and return the analytics event the caller
// should emit once the new state is saved. A Store is not safe for
// concurrent use.
type Store struct {
	sessionID string
	currency  string
	items     []LineItem
	open      bool
}

func NewStore(sessionID, currency string) *Store {
	return &Store{
		sessionID: sessionID,
		currency:  types.NormalizeCurrency(currency),
	}
}

// Add increments the quantity of an existing item or appends it with
// quantity 1, then forces the panel open.
func (s *Store) Add(p Product) *analytics.Event {
	id := strings.TrimSpace(p.ID)
	s.open = true

	idx := s.indexOf(id)
	if idx >= 0 {
		s.items[idx].Quantity++
	} else {
		price := p.Price
		price.CurrencyCode = types.NormalizeCurrency(price.CurrencyCode)
		if price.CurrencyCode == "" {
			price.CurrencyCode = s.currency
		}
		s.items = append(s.items, LineItem{
			ID:       id,
			Title:    p.Title,
			Price:    price,
			Quantity: 1,
			Image:    p.Image,
		})
		idx = len(s.items) - 1
	}

	item := s.items[idx]
	return s.event(analytics.EventAddToCart, 1, analytics.Item{
		ID:       item.ID,
		Title:    item.Title,
		Price:    item.Price.Amount,
		Quantity: 1,
	})
}

// Remove deletes the item. Removing an absent id is a no-op and returns nil.
func (s *Store) Remove(id string) *analytics.Event {
	idx := s.indexOf(strings.TrimSpace(id))
	if idx < 0 {
		return nil
	}
	removed := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return s.event(analytics.EventRemoveFromCart, -removed.Quantity, analytics.Item{
		ID:       removed.ID,
		Title:    removed.Title,
		Price:    removed.Price.Amount,
		Quantity: removed.Quantity,
	})
}

// SetQuantity overwrites an item's quantity. n <= 0 behaves as Remove.
func (s *Store) SetQuantity(id string, n int) *analytics.Event {
	if n <= 0 {
		return s.Remove(id)
	}
	if idx := s.indexOf(strings.TrimSpace(id)); idx >= 0 {
		s.items[idx].Quantity = n
	}
	return nil
}

func (s *Store) Clear() {
	s.items = nil
}

func (s *Store) Open() {
	s.open = true
}

func (s *Store) Close() {
	s.open = false
}

// Currency is the cart's currency. Every line item is priced in it.
func (s *Store) Currency() string {
	return s.currency
}

func (s *Store) IsOpen() bool {
	return s.open
}

func (s *Store) IsEmpty() bool {
	return len(s.items) == 0
}

// BeginCheckout returns one line per item and the begin_checkout event.
func (s *Store) BeginCheckout() ([]CheckoutLine, *analytics.Event) {
	lines := make([]CheckoutLine, 0, len(s.items))
	items := make([]analytics.Item, 0, len(s.items))
	for _, item := range s.items {
		lines = append(lines, CheckoutLine{ID: item.ID, Quantity: item.Quantity})
		items = append(items, analytics.Item{
			ID:       item.ID,
			Title:    item.Title,
			Price:    item.Price.Amount,
			Quantity: item.Quantity,
		})
	}
	return lines, s.event(analytics.EventBeginCheckout, 0, items...)
}

// CompleteCheckout records a successful hand-off to the hosted checkout.
func (s *Store) CompleteCheckout() {
	s.open = false
}

func (s *Store) ItemCount() int {
	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

func (s *Store) Subtotal() types.Money {
	total := types.NewMoney(decimal.Zero, s.currency)
	for _, item := range s.items {
		total = total.Plus(item.Price.Times(item.Quantity))
	}
	return total
}

func (s *Store) Snapshot() Snapshot {
	items := make([]LineItem, len(s.items))
	copy(items, s.items)
	return Snapshot{
		Items:     items,
		Subtotal:  s.Subtotal(),
		ItemCount: s.ItemCount(),
		Open:      s.open,
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) event(name analytics.EventName, delta int, items ...analytics.Item) *analytics.Event {
	subtotal := s.Subtotal()
	return &analytics.Event{
		Name:          name,
		SessionID:     s.sessionID,
		Currency:      subtotal.CurrencyCode,
		Value:         subtotal.Amount,
		Items:         items,
		QuantityDelta: delta,
		ItemCount:     s.ItemCount(),
	}
}
