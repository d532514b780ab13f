package engine

import (
	"fmt"
	"strconv"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/google/btree"
	"github.com/govalues/decimal"
)

// market is the mutable state owned by the engine goroutine.
type market struct {
	instruments *btree.BTreeG[domain.Instrument]
	cash        decimal.Decimal
	loaded      bool
}

// validateOrder runs the order checks in order, stopping at the first
// failure, and returns the instrument and cost of an acceptable order.
// It never mutates m.
func (m *market) validateOrder(name string, amount int64) (domain.Instrument, decimal.Decimal, error) {
	inst, ok := m.instruments.Get(domain.Instrument{Name: name})
	if !ok {
		return domain.Instrument{}, decimal.Decimal{}, &domain.OrderError{
			Reason:  domain.ErrUnknownInstrument,
			Message: fmt.Sprintf("instrument %q could not be found", name),
		}
	}

	// A cost too large to represent can never be paid for. A sell that
	// large fails on holdings instead, since its cost is a credit.
	cost, costErr := domain.Cost(inst.Price, amount)
	if costErr != nil && amount > 0 {
		return domain.Instrument{}, decimal.Decimal{}, &domain.OrderError{
			Reason: domain.ErrInsufficientFunds,
			Message: fmt.Sprintf("not enough cash: %d %s exceeds balance %s",
				amount, name, m.cash),
		}
	}

	// A sell has negative cost and always passes.
	if costErr == nil && cost.Cmp(m.cash) > 0 {
		return domain.Instrument{}, decimal.Decimal{}, &domain.OrderError{
			Reason: domain.ErrInsufficientFunds,
			Message: fmt.Sprintf("not enough cash: %d %s cost %s, balance is %s",
				amount, name, cost, m.cash),
		}
	}

	// Quantity >= 0, so the sum cannot overflow for a sell.
	if amount < 0 && inst.Quantity+amount < 0 {
		return domain.Instrument{}, decimal.Decimal{}, &domain.OrderError{
			Reason:  domain.ErrInsufficientHoldings,
			Message: fmt.Sprintf("cannot sell %s %s, holding %d", sellQuantity(amount), name, inst.Quantity),
		}
	}

	if costErr != nil {
		return domain.Instrument{}, decimal.Decimal{}, fmt.Errorf("compute cost: %w", costErr)
	}
	return inst, cost, nil
}

// sellQuantity formats -amount without overflowing on math.MinInt64.
func sellQuantity(amount int64) string {
	return strconv.FormatUint(uint64(-(amount+1))+1, 10)
}

// settle applies a validated order. Quantity and cash change together or
// not at all.
func (m *market) settle(inst domain.Instrument, amount int64, cost decimal.Decimal) (domain.Instrument, error) {
	cash, err := m.cash.Sub(cost)
	if err != nil {
		return domain.Instrument{}, fmt.Errorf("settle cash: %w", err)
	}

	inst.Quantity += amount
	m.instruments.ReplaceOrInsert(inst)
	m.cash = cash
	return inst, nil
}
