package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money is a major-unit amount with its ISO currency code.
type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, CurrencyCode: NormalizeCurrency(currency)}
}

// MoneyFromMinor converts gateway minor units (paise, cents) back to Money.
func MoneyFromMinor(minor int64, currency string) Money {
	return NewMoney(decimal.New(minor, -2), currency)
}

// MinorUnits returns round(amount * 100).
func (m Money) MinorUnits() int64 {
	return m.Amount.Mul(hundred).Round(0).IntPart()
}

func (m Money) Times(quantity int) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(int64(quantity))), CurrencyCode: m.CurrencyCode}
}

// Plus adds other to m. An empty currency on m adopts other's.
func (m Money) Plus(other Money) Money {
	currency := m.CurrencyCode
	if currency == "" {
		currency = other.CurrencyCode
	}
	return Money{Amount: m.Amount.Add(other.Amount), CurrencyCode: currency}
}

func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.CurrencyCode
}

func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
