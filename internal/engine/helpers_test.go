package engine

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
)

// recorder is a Publisher that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Event, len(r.events))
	copy(result, r.events)
	return result
}

func (r *recorder) ofType(t domain.EventType) []domain.Event {
	var result []domain.Event
	for _, ev := range r.all() {
		if ev.Type == t {
			result = append(result, ev)
		}
	}
	return result
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine builds an engine with a fixed seed and fake clock. It is not
// started.
func newTestEngine(cash string, points int) (*Engine, *recorder, *fakeClock) {
	rec := &recorder{}
	clock := newFakeClock()
	e := New(Config{
		Interval:      5 * time.Second,
		Points:        points,
		InitialCash:   domain.MustMoney(cash),
		CommandBuffer: 8,
	}, NewWalker(rand.New(rand.NewSource(1))), rec, discardLogger())
	e.now = clock.Now
	return e, rec, clock
}

// start runs e until the test ends.
func start(t testing.TB, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-e.Done()
	})
}

// startedEngine returns a running engine loaded with entries.
func startedEngine(t testing.TB, cash string, points int, entries ...domain.CatalogEntry) (*Engine, *recorder, *fakeClock) {
	t.Helper()
	e, rec, clock := newTestEngine(cash, points)
	start(t, e)
	if _, err := e.Load(context.Background(), entries); err != nil {
		t.Fatalf("load: %v", err)
	}
	return e, rec, clock
}

func entry(name, value string, volatility float64) domain.CatalogEntry {
	return domain.CatalogEntry{Name: name, Value: domain.MustMoney(value), Volatility: volatility}
}
