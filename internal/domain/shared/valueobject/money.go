package valueobject

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency code, uppercase.
type Currency string

const (
	CHF Currency = "CHF"
	EUR Currency = "EUR"
)

// DefaultCurrency is the store's base currency.
const DefaultCurrency = CHF

// Money pairs an amount with its currency. Immutable; operations
// return new values and refuse to mix currencies.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromString parses a decimal string such as "79.90".
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return NewMoney(d, currency)
}

func NewMoneyCHF(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: CHF}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency     { return m.currency }
func (m Money) IsZero() bool           { return m.amount.IsZero() }
func (m Money) IsNegative() bool       { return m.amount.IsNegative() }

func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String renders the code-prefixed display form, e.g. "CHF 79.90".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.currency, m.amount.StringFixed(2))
}

// StringFixed renders the bare amount with the given decimal places.
func (m Money) StringFixed(places int32) string {
	return m.amount.StringFixed(places)
}
