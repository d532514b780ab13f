package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

// Publisher receives every outbound event. It is called from the engine
// goroutine, so implementations must not block.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev domain.Event)

func (f PublisherFunc) Publish(ctx context.Context, ev domain.Event) { f(ctx, ev) }

// Config holds the engine parameters.
type Config struct {
	// Interval spaces backfilled history points.
	Interval time.Duration
	// Points is N; every history holds N+1 points.
	Points        int
	InitialCash   decimal.Decimal
	CommandBuffer int
}

// Engine owns the market state. All mutations run on the goroutine started
// by Run, in the order their commands were received; readers use Snapshot.
type Engine struct {
	cfg       Config
	walker    *Walker
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time

	commands chan func(context.Context)
	done     chan struct{}
	loaded   chan struct{}
	running  atomic.Bool

	snapshots snapshotStore
	market    market
}

// New creates an Engine. Run must be started before any command completes.
func New(cfg Config, walker *Walker, publisher Publisher, logger *slog.Logger) *Engine {
	if cfg.CommandBuffer < 1 {
		cfg.CommandBuffer = 1
	}
	if publisher == nil {
		publisher = PublisherFunc(func(context.Context, domain.Event) {})
	}

	e := &Engine{
		cfg:       cfg,
		walker:    walker,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		commands:  make(chan func(context.Context), cfg.CommandBuffer),
		done:      make(chan struct{}),
		loaded:    make(chan struct{}),
		market: market{
			instruments: newInstrumentTree(),
			cash:        cfg.InitialCash,
		},
	}
	e.snapshots.publish(e.market.instruments, e.market.cash, false, e.now())
	return e
}

// Run processes commands until ctx is cancelled. It returns nil on
// cancellation.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}
	defer close(e.done)

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-e.commands:
			cmd(ctx)
		}
	}
}

// Snapshot returns the latest published state.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshots.load()
}

// Loaded is closed once the catalog has been loaded.
func (e *Engine) Loaded() <-chan struct{} {
	return e.loaded
}

// Done is closed when Run returns.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Load backfills every catalog entry and publishes the first snapshot. It
// succeeds at most once per engine.
func (e *Engine) Load(ctx context.Context, entries []domain.CatalogEntry) (*Snapshot, error) {
	type result struct {
		snap *Snapshot
		err  error
	}
	r, err := call(ctx, e, func(ctx context.Context) result {
		snap, err := e.load(ctx, entries)
		return result{snap, err}
	})
	if err != nil {
		return nil, err
	}
	return r.snap, r.err
}

// Tick advances every instrument by one step as a single batch.
func (e *Engine) Tick(ctx context.Context) error {
	tickErr, err := call(ctx, e, e.tick)
	if err != nil {
		return err
	}
	return tickErr
}

// SubmitOrder validates and settles an order. A positive amount buys, a
// negative amount sells. Rejections return a *domain.OrderError and leave
// the state untouched.
func (e *Engine) SubmitOrder(ctx context.Context, name string, amount int64) (domain.Settlement, error) {
	type result struct {
		settlement domain.Settlement
		err        error
	}
	r, err := call(ctx, e, func(ctx context.Context) result {
		s, err := e.submitOrder(ctx, name, amount)
		return result{s, err}
	})
	if err != nil {
		return domain.Settlement{}, err
	}
	return r.settlement, r.err
}

func (e *Engine) load(ctx context.Context, entries []domain.CatalogEntry) (*Snapshot, error) {
	if e.market.loaded {
		return nil, domain.ErrAlreadyLoaded
	}
	if len(entries) == 0 {
		return nil, &domain.ValidationError{Message: "catalog must contain at least one instrument"}
	}

	now := e.now()
	tree := newInstrumentTree()
	for _, entry := range entries {
		if entry.Value.Sign() <= 0 {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("%s: value must be > 0", entry.Name)}
		}
		history := e.walker.Backfill(entry.Value, entry.Volatility, e.cfg.Points, e.cfg.Interval, now)
		inst := domain.Instrument{
			Name:       entry.Name,
			Price:      history[len(history)-1].Value,
			Volatility: entry.Volatility,
			History:    history,
			Change:     ChangePercent(history),
		}
		if _, dup := tree.ReplaceOrInsert(inst); dup {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("duplicate instrument %q", entry.Name)}
		}
	}

	e.market.instruments = tree
	e.market.loaded = true
	snap := e.snapshots.publish(e.market.instruments, e.market.cash, true, now)
	close(e.loaded)

	e.logger.Info("catalog loaded",
		slog.Int("instruments", snap.Len()),
		slog.Int("points", e.cfg.Points),
	)

	cash := snap.Cash
	e.publish(ctx, domain.Event{
		Type:        domain.EventInstrumentsLoaded,
		Timestamp:   now,
		Version:     snap.Version,
		Instruments: snap.Instruments(),
		Cash:        &cash,
	})
	e.notify(ctx, now, domain.LevelInfo, fmt.Sprintf("loaded %d instruments", snap.Len()))
	return snap, nil
}

func (e *Engine) tick(ctx context.Context) error {
	if !e.market.loaded {
		return domain.ErrNotLoaded
	}

	now := e.now()
	batch := make([]domain.Instrument, 0, e.market.instruments.Len())
	e.market.instruments.Ascend(func(inst domain.Instrument) bool {
		price := e.walker.NextPrice(inst.Price, inst.Volatility)
		inst.Price = price
		inst.History = Advance(inst.History, domain.PricePoint{Time: now, Value: price})
		inst.Change = ChangePercent(inst.History)
		batch = append(batch, inst)
		return true
	})
	for _, inst := range batch {
		e.market.instruments.ReplaceOrInsert(inst)
	}

	snap := e.snapshots.publish(e.market.instruments, e.market.cash, true, now)
	e.logger.Debug("tick", slog.Uint64("version", snap.Version), slog.Int("instruments", len(batch)))

	e.publish(ctx, domain.Event{
		Type:        domain.EventInstrumentsUpdated,
		Timestamp:   now,
		Version:     snap.Version,
		Instruments: batch,
	})
	return nil
}

func (e *Engine) submitOrder(ctx context.Context, name string, amount int64) (domain.Settlement, error) {
	if !e.market.loaded {
		return domain.Settlement{}, domain.ErrNotLoaded
	}

	now := e.now()
	inst, cost, err := e.market.validateOrder(name, amount)
	if err == nil {
		inst, err = e.market.settle(inst, amount, cost)
	}
	if err != nil {
		e.logger.Info("order rejected",
			slog.String("instrument", name),
			slog.Int64("amount", amount),
			slog.String("reason", domain.ErrorCode(err)),
		)
		e.publish(ctx, domain.Event{
			Type:      domain.EventOrderRejected,
			Timestamp: now,
			Rejection: &domain.Rejection{
				Instrument: name,
				Amount:     amount,
				Reason:     domain.ErrorCode(err),
				Message:    err.Error(),
			},
		})
		e.notify(ctx, now, domain.LevelError, err.Error())
		return domain.Settlement{}, err
	}

	snap := e.snapshots.publish(e.market.instruments, e.market.cash, true, now)
	settlement := domain.Settlement{
		OrderID:    uuid.New().String(),
		Instrument: inst.Name,
		Amount:     amount,
		Price:      inst.Price,
		Cost:       cost,
		Quantity:   inst.Quantity,
		Cash:       snap.Cash,
		SettledAt:  now,
	}

	e.logger.Info("order settled",
		slog.String("order_id", settlement.OrderID),
		slog.String("instrument", inst.Name),
		slog.Int64("amount", amount),
		slog.String("cost", cost.String()),
	)

	cash := snap.Cash
	e.publish(ctx, domain.Event{
		Type:        domain.EventPortfolioChanged,
		Timestamp:   now,
		Version:     snap.Version,
		Instruments: []domain.Instrument{inst.Summary()},
		Cash:        &cash,
	})
	e.publish(ctx, domain.Event{
		Type:       domain.EventOrderSettled,
		Timestamp:  now,
		Version:    snap.Version,
		Settlement: &settlement,
	})
	e.notify(ctx, now, domain.LevelSuccess, settlementMessage(settlement))
	return settlement, nil
}

func settlementMessage(s domain.Settlement) string {
	if s.Amount > 0 {
		return fmt.Sprintf("bought %d %s at %s", s.Amount, s.Instrument, s.Price)
	}
	return fmt.Sprintf("sold %d %s at %s", -s.Amount, s.Instrument, s.Price)
}

func (e *Engine) publish(ctx context.Context, ev domain.Event) {
	e.publisher.Publish(ctx, ev)
}

func (e *Engine) notify(ctx context.Context, now time.Time, level domain.NotifyLevel, msg string) {
	e.publish(ctx, domain.Event{
		Type:         domain.EventNotify,
		Timestamp:    now,
		Notification: &domain.Notification{Level: level, Message: msg},
	})
}

// call runs fn on the engine goroutine and waits for its result. A command
// the caller abandoned before it started is skipped; once started, its
// result is always returned.
func call[T any](ctx context.Context, e *Engine, fn func(context.Context) T) (T, error) {
	var zero T
	reply := make(chan T, 1)
	var claimed atomic.Bool

	cmd := func(ctx context.Context) {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		reply <- fn(ctx)
	}

	select {
	case e.commands <- cmd:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-e.done:
		return zero, domain.ErrEngineStopped
	}

	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return zero, ctx.Err()
		}
		// Already running.
		select {
		case v := <-reply:
			return v, nil
		case <-e.done:
			return awaitReply(reply)
		}
	case <-e.done:
		claimed.CompareAndSwap(false, true)
		return awaitReply(reply)
	}
}

// awaitReply returns a reply sent before the engine stopped.
func awaitReply[T any](reply <-chan T) (T, error) {
	select {
	case v := <-reply:
		return v, nil
	default:
		var zero T
		return zero, domain.ErrEngineStopped
	}
}
