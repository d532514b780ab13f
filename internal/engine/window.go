package engine

import (
	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/govalues/decimal"
)

// Advance returns a new window with the oldest point evicted and p appended.
// The input slice is not modified, so published snapshots stay immutable.
func Advance(window []domain.PricePoint, p domain.PricePoint) []domain.PricePoint {
	if len(window) == 0 {
		return []domain.PricePoint{p}
	}
	next := make([]domain.PricePoint, len(window))
	copy(next, window[1:])
	next[len(next)-1] = p
	return next
}

// ChangePercent returns (newest-oldest)/oldest*100 over window. An empty
// window or a zero oldest value yields zero.
func ChangePercent(window []domain.PricePoint) decimal.Decimal {
	if len(window) == 0 {
		return decimal.Decimal{}
	}
	oldest := window[0].Value
	newest := window[len(window)-1].Value
	if oldest.IsZero() {
		return decimal.Decimal{}
	}

	diff, err := newest.Sub(oldest)
	if err != nil {
		return decimal.Decimal{}
	}
	ratio, err := diff.Quo(oldest)
	if err != nil {
		return decimal.Decimal{}
	}
	pct, err := ratio.Mul(hundred)
	if err != nil {
		return decimal.Decimal{}
	}
	return pct
}
