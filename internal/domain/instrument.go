package domain

import (
	"time"

	"github.com/govalues/decimal"
)

// PricePoint is one entry of an instrument's price history.
type PricePoint struct {
	Time  time.Time       `json:"date" yaml:"date"`
	Value decimal.Decimal `json:"value" yaml:"value"`
}

// Instrument is a simulated tradable asset. Quantity is the portfolio's
// holding, kept on the instrument for convenience.
type Instrument struct {
	Name       string          `json:"name" yaml:"name"`
	Price      decimal.Decimal `json:"price" yaml:"price"`
	Volatility float64         `json:"volatility" yaml:"volatility"`
	Quantity   int64           `json:"quantity" yaml:"quantity"`
	Change     decimal.Decimal `json:"change" yaml:"change"`
	History    []PricePoint    `json:"history,omitempty" yaml:"history,omitempty"`
}

// MarketValue returns price*quantity.
func (i Instrument) MarketValue() (decimal.Decimal, error) {
	return Cost(i.Price, i.Quantity)
}

// Summary returns a copy without the price history.
func (i Instrument) Summary() Instrument {
	i.History = nil
	return i
}

// CatalogEntry is one record of the static instrument catalog.
type CatalogEntry struct {
	Name       string
	Value      decimal.Decimal
	Volatility float64
}

// Settlement is the applied effect of an accepted order.
type Settlement struct {
	OrderID    string          `json:"order_id"`
	Instrument string          `json:"instrument"`
	Amount     int64           `json:"amount"`
	Price      decimal.Decimal `json:"price"`
	Cost       decimal.Decimal `json:"cost"`
	Quantity   int64           `json:"quantity"`
	Cash       decimal.Decimal `json:"cash"`
	SettledAt  time.Time       `json:"settled_at"`
}

// Side reports "buy" for positive amounts and "sell" otherwise.
func (s Settlement) Side() string {
	if s.Amount > 0 {
		return "buy"
	}
	return "sell"
}

// Rejection describes an order that failed validation.
type Rejection struct {
	Instrument string `json:"instrument"`
	Amount     int64  `json:"amount"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`
}
