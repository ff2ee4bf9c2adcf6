package razorpay

import (
	"errors"
	"strings"
)

const PaymentStatusCaptured = "captured"

// OrderParams is the create-order request. Amount is in minor units.
type OrderParams struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

func (p OrderParams) toMap() map[string]interface{} {
	data := map[string]interface{}{
		"amount":   p.Amount,
		"currency": strings.ToUpper(strings.TrimSpace(p.Currency)),
	}
	if p.Receipt != "" {
		data["receipt"] = p.Receipt
	}
	if len(p.Notes) > 0 {
		notes := make(map[string]interface{}, len(p.Notes))
		for k, v := range p.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}
	return data
}

// Order is the gateway order descriptor.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

// Payment is the gateway view of a payment attempt.
type Payment struct {
	ID       string
	OrderID  string
	Amount   int64
	Currency string
	Status   string
	Method   string
	Email    string
	Contact  string
}

func (p *Payment) Captured() bool {
	return p != nil && p.Status == PaymentStatusCaptured
}

func decodeOrder(raw map[string]interface{}) (*Order, error) {
	if raw == nil {
		return nil, errors.New("empty order payload")
	}
	id := stringField(raw, "id")
	if id == "" {
		return nil, errors.New("order payload missing id")
	}
	amount, err := int64Field(raw, "amount")
	if err != nil {
		return nil, err
	}
	return &Order{
		ID:       id,
		Amount:   amount,
		Currency: stringField(raw, "currency"),
		Receipt:  stringField(raw, "receipt"),
		Status:   stringField(raw, "status"),
	}, nil
}

func decodePayment(raw map[string]interface{}) (*Payment, error) {
	if raw == nil {
		return nil, errors.New("empty payment payload")
	}
	id := stringField(raw, "id")
	if id == "" {
		return nil, errors.New("payment payload missing id")
	}
	amount, err := int64Field(raw, "amount")
	if err != nil {
		return nil, err
	}
	return &Payment{
		ID:       id,
		OrderID:  stringField(raw, "order_id"),
		Amount:   amount,
		Currency: stringField(raw, "currency"),
		Status:   stringField(raw, "status"),
		Method:   stringField(raw, "method"),
		Email:    stringField(raw, "email"),
		Contact:  stringField(raw, "contact"),
	}, nil
}
