// Package service sits between the HTTP handlers and the engine. It
// validates requests and shapes snapshots into read models.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/efreitasn/stocksim/internal/engine"
	"github.com/govalues/decimal"
)

// CatalogSource returns the catalog entries to load.
type CatalogSource func() ([]domain.CatalogEntry, error)

// StateReporter reports the scheduler state.
type StateReporter interface {
	State() engine.SchedulerState
}

// SubmitOrderRequest represents the input for order submission. A positive
// amount buys, a negative amount sells.
type SubmitOrderRequest struct {
	Instrument string
	Amount     int64
}

// Holding is one non-empty position of the portfolio.
type Holding struct {
	Instrument string
	Quantity   int64
	Price      decimal.Decimal
	Value      decimal.Decimal
}

// Portfolio is the cash balance plus every non-empty position.
type Portfolio struct {
	Cash          decimal.Decimal
	Holdings      []Holding
	HoldingsValue decimal.Decimal
	TotalValue    decimal.Decimal
	UpdatedAt     time.Time
}

// MarketService handles catalog loading, orders and market queries.
type MarketService struct {
	engine    *engine.Engine
	catalog   CatalogSource
	scheduler StateReporter
}

// NewMarketService creates a new MarketService. scheduler may be nil.
func NewMarketService(e *engine.Engine, catalog CatalogSource, scheduler StateReporter) *MarketService {
	return &MarketService{
		engine:    e,
		catalog:   catalog,
		scheduler: scheduler,
	}
}

// Load reads the catalog and loads it into the engine. It returns
// domain.ErrAlreadyLoaded on every call after the first success.
func (s *MarketService) Load(ctx context.Context) (*engine.Snapshot, error) {
	if s.engine.Snapshot().Loaded {
		return nil, domain.ErrAlreadyLoaded
	}
	entries, err := s.catalog()
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return s.engine.Load(ctx, entries)
}

// SubmitOrder validates the request and submits it to the engine.
func (s *MarketService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (domain.Settlement, error) {
	name := strings.TrimSpace(req.Instrument)
	if name == "" {
		return domain.Settlement{}, &domain.ValidationError{Message: "instrument is required"}
	}
	if req.Amount == 0 {
		return domain.Settlement{}, &domain.ValidationError{Message: "amount must be non-zero"}
	}
	return s.engine.SubmitOrder(ctx, name, req.Amount)
}

// Instruments returns every instrument without its history, sorted by name.
func (s *MarketService) Instruments() ([]domain.Instrument, error) {
	snap := s.engine.Snapshot()
	if !snap.Loaded {
		return nil, domain.ErrNotLoaded
	}
	instruments := snap.Instruments()
	for i := range instruments {
		instruments[i] = instruments[i].Summary()
	}
	return instruments, nil
}

// Instrument returns the named instrument with its full history.
func (s *MarketService) Instrument(name string) (domain.Instrument, error) {
	snap := s.engine.Snapshot()
	if !snap.Loaded {
		return domain.Instrument{}, domain.ErrNotLoaded
	}
	inst, ok := snap.Instrument(name)
	if !ok {
		return domain.Instrument{}, domain.ErrUnknownInstrument
	}
	return inst, nil
}

// Portfolio values the current holdings at the latest prices.
func (s *MarketService) Portfolio() (Portfolio, error) {
	snap := s.engine.Snapshot()
	p := Portfolio{
		Cash:      snap.Cash,
		Holdings:  []Holding{},
		UpdatedAt: snap.UpdatedAt,
	}

	var err error
	for _, inst := range snap.Instruments() {
		if inst.Quantity == 0 {
			continue
		}
		value, verr := inst.MarketValue()
		if verr != nil {
			return Portfolio{}, fmt.Errorf("value %s: %w", inst.Name, verr)
		}
		p.Holdings = append(p.Holdings, Holding{
			Instrument: inst.Name,
			Quantity:   inst.Quantity,
			Price:      inst.Price,
			Value:      value,
		})
		if p.HoldingsValue, err = p.HoldingsValue.Add(value); err != nil {
			return Portfolio{}, fmt.Errorf("sum holdings: %w", err)
		}
	}

	p.HoldingsValue = p.HoldingsValue.Pad(domain.MoneyScale)
	if p.TotalValue, err = p.Cash.Add(p.HoldingsValue); err != nil {
		return Portfolio{}, fmt.Errorf("total value: %w", err)
	}
	return p, nil
}

// Loaded reports whether the catalog has been loaded.
func (s *MarketService) Loaded() bool {
	return s.engine.Snapshot().Loaded
}

// SchedulerState returns the scheduler state, or StateIdle when there is no
// scheduler.
func (s *MarketService) SchedulerState() engine.SchedulerState {
	if s.scheduler == nil {
		return engine.StateIdle
	}
	return s.scheduler.State()
}
