package cart

import (
	"encoding/json"
	"fmt"
)

type storedCart struct {
	Currency string     `json:"currency"`
	Items    []LineItem `json:"items"`
	Open     bool       `json:"open"`
}

func (s *Store) marshal() ([]byte, error) {
	return json.Marshal(storedCart{
		Currency: s.currency,
		Items:    s.items,
		Open:     s.open,
	})
}

func restore(sessionID string, payload []byte) (*Store, error) {
	var stored storedCart
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	s := NewStore(sessionID, stored.Currency)
	s.open = stored.Open
	for _, item := range stored.Items {
		if item.ID == "" || item.Quantity < 1 || s.indexOf(item.ID) >= 0 {
			continue
		}
		s.items = append(s.items, item)
	}
	return s, nil
}
