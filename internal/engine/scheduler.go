package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
)

// SchedulerState is the lifecycle stage of a Scheduler.
type SchedulerState int32

const (
	StateIdle SchedulerState = iota
	StateRunning
	StateStopped
)

func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Ticker is the part of the engine the scheduler drives.
type Ticker interface {
	Loaded() <-chan struct{}
	Tick(ctx context.Context) error
}

// Scheduler ticks the engine forever once the catalog is loaded. It sleeps
// for the interval after each tick completes, so a slow tick delays the
// next one.
type Scheduler struct {
	ticker   Ticker
	interval time.Duration
	logger   *slog.Logger

	state atomic.Int32
	ticks atomic.Uint64
}

// NewScheduler creates a Scheduler in the idle state.
func NewScheduler(ticker Ticker, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		ticker:   ticker,
		interval: interval,
		logger:   logger,
	}
}

// State returns the current lifecycle stage.
func (s *Scheduler) State() SchedulerState {
	return SchedulerState(s.state.Load())
}

// Ticks returns the number of completed ticks.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks.Load()
}

// Run waits for the catalog to load, then ticks until ctx is cancelled.
// Cancellation is observed between ticks. It returns nil on cancellation
// and ErrEngineStopped if the engine goes away first.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.state.Store(int32(StateStopped))

	select {
	case <-ctx.Done():
		return nil
	case <-s.ticker.Loaded():
	}

	s.state.Store(int32(StateRunning))
	s.logger.Info("scheduler running", slog.Duration("interval", s.interval))

	for {
		if err := s.ticker.Tick(ctx); err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, domain.ErrEngineStopped):
				return err
			default:
				s.logger.Warn("tick failed", slog.String("error", err.Error()))
			}
		} else {
			s.ticks.Add(1)
		}

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
