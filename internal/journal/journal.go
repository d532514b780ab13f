// Package journal keeps an append-only sqlite audit log of settled orders.
// It is never read back into engine state.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/govalues/decimal"
	_ "github.com/mattn/go-sqlite3"
)

// Schema creates the settlements table.
const Schema = `
CREATE TABLE IF NOT EXISTS settlements (
	order_id   TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	amount     INTEGER NOT NULL,
	price      TEXT NOT NULL,
	cost       TEXT NOT NULL,
	quantity   INTEGER NOT NULL,
	cash       TEXT NOT NULL,
	settled_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS settlements_settled_at ON settlements (settled_at);
`

// SQLiteJournal stores settlements in a sqlite database.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies Schema.
func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// Record appends one settlement.
func (j *SQLiteJournal) Record(ctx context.Context, s domain.Settlement) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO settlements
		(order_id, instrument, amount, price, cost, quantity, cash, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.OrderID, s.Instrument, s.Amount, s.Price.String(), s.Cost.String(),
		s.Quantity, s.Cash.String(), s.SettledAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Recent returns up to limit settlements, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]domain.Settlement, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT order_id, instrument, amount, price, cost, quantity, cash, settled_at
		FROM settlements
		ORDER BY settled_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Settlement, 0, limit)
	for rows.Next() {
		var (
			s                       domain.Settlement
			price, cost, cash, when string
		)
		if err := rows.Scan(&s.OrderID, &s.Instrument, &s.Amount, &price, &cost, &s.Quantity, &cash, &when); err != nil {
			return nil, err
		}
		if s.Price, err = decimal.Parse(price); err != nil {
			return nil, fmt.Errorf("settlement %s price: %w", s.OrderID, err)
		}
		if s.Cost, err = decimal.Parse(cost); err != nil {
			return nil, fmt.Errorf("settlement %s cost: %w", s.OrderID, err)
		}
		if s.Cash, err = decimal.Parse(cash); err != nil {
			return nil, fmt.Errorf("settlement %s cash: %w", s.OrderID, err)
		}
		if s.SettledAt, err = time.Parse(time.RFC3339Nano, when); err != nil {
			return nil, fmt.Errorf("settlement %s time: %w", s.OrderID, err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Sink records order.settled events in the background so the engine never
// waits on disk.
type Sink struct {
	journal *SQLiteJournal
	queue   chan domain.Settlement
	logger  *slog.Logger
}

// NewSink creates a Sink with a queue of the given size.
func NewSink(j *SQLiteJournal, size int, logger *slog.Logger) *Sink {
	return &Sink{
		journal: j,
		queue:   make(chan domain.Settlement, size),
		logger:  logger,
	}
}

func (s *Sink) Publish(_ context.Context, ev domain.Event) {
	if ev.Type != domain.EventOrderSettled || ev.Settlement == nil {
		return
	}
	select {
	case s.queue <- *ev.Settlement:
	default:
		s.logger.Warn("journal queue full, settlement dropped",
			slog.String("order_id", ev.Settlement.OrderID))
	}
}

// Run writes queued settlements until ctx is cancelled, then drains what is
// left in the queue. Writes are not cut short by the cancellation.
func (s *Sink) Run(ctx context.Context) error {
	writeCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case st := <-s.queue:
					s.write(writeCtx, st)
				default:
					return nil
				}
			}
		case st := <-s.queue:
			s.write(writeCtx, st)
		}
	}
}

func (s *Sink) write(ctx context.Context, st domain.Settlement) {
	if err := s.journal.Record(ctx, st); err != nil {
		s.logger.Error("journal write failed",
			slog.String("order_id", st.OrderID),
			slog.String("error", err.Error()))
	}
}
