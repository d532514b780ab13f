package engine

import (
	"math/rand"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/govalues/decimal"
)

// maxResamples bounds the retries for a step that rounds to a non-positive
// price. With volatility <= 100 this only happens for prices near 0.01.
const maxResamples = 64

var hundred = decimal.MustNew(100, 0)

// Walker generates bounded random steps for instrument prices. It is not
// safe for concurrent use; the engine calls it from its own goroutine.
type Walker struct {
	rng *rand.Rand
}

// NewWalker creates a Walker drawing from rng.
func NewWalker(rng *rand.Rand) *Walker {
	return &Walker{rng: rng}
}

// NewSeededWalker creates a Walker with its own source. A zero seed uses the
// current time.
func NewSeededWalker(seed int64) *Walker {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewWalker(rand.New(rand.NewSource(seed)))
}

// NextPrice returns current moved by a random step of at most
// volatilityPercent percent in either direction, rounded to cents. The
// result is always positive when current is.
func (w *Walker) NextPrice(current decimal.Decimal, volatilityPercent float64) decimal.Decimal {
	v := volatilityPercent / 100
	for range maxResamples {
		change := 2 * v * w.rng.Float64()
		if change > v {
			change -= 2 * v
		}

		factor, err := decimal.NewFromFloat64(1 + change)
		if err != nil {
			continue
		}
		next, err := current.Mul(factor)
		if err != nil {
			continue
		}
		next, err = domain.RoundMoney(next)
		if err == nil && next.Sign() > 0 {
			return next
		}
	}
	return current
}

// Backfill synthesizes points+1 history entries ending at now, spaced by
// interval, walking forward from start. The last entry is the live price.
func (w *Walker) Backfill(start decimal.Decimal, volatilityPercent float64, points int, interval time.Duration, now time.Time) []domain.PricePoint {
	history := make([]domain.PricePoint, 0, points+1)
	price := start
	for i := points; i >= 0; i-- {
		price = w.NextPrice(price, volatilityPercent)
		history = append(history, domain.PricePoint{
			Time:  now.Add(-time.Duration(i) * interval),
			Value: price,
		})
	}
	return history
}
