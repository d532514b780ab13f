package journal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func settlement(id string, amount int64, at time.Time) domain.Settlement {
	return domain.Settlement{
		OrderID:    id,
		Instrument: "AAA",
		Amount:     amount,
		Price:      domain.MustMoney("100.00"),
		Cost:       domain.MustMoney("500.00"),
		Quantity:   5,
		Cash:       domain.MustMoney("500.00"),
		SettledAt:  at,
	}
}

func TestSQLiteJournal_RecordAndRecent(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, settlement("o-1", 5, base)))
	require.NoError(t, j.Record(ctx, settlement("o-2", -2, base.Add(time.Second))))
	require.NoError(t, j.Record(ctx, settlement("o-3", 1, base.Add(2*time.Second))))

	got, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "o-3", got[0].OrderID)
	assert.Equal(t, "o-2", got[1].OrderID)
	assert.Equal(t, int64(-2), got[1].Amount)
	assert.Equal(t, "100.00", got[1].Price.String())
	assert.Equal(t, "500.00", got[1].Cash.String())
	assert.True(t, got[1].SettledAt.Equal(base.Add(time.Second)))
}

func TestSQLiteJournal_DuplicateOrderID(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, settlement("o-1", 5, time.Now())))
	assert.Error(t, j.Record(ctx, settlement("o-1", 5, time.Now())))
}

func TestSink_RecordsSettledEventsOnly(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)
	sink := NewSink(j, 8, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sink.Run(ctx) }()

	s := settlement("o-9", 5, time.Now())
	sink.Publish(ctx, domain.Event{Type: domain.EventInstrumentsUpdated})
	sink.Publish(ctx, domain.Event{Type: domain.EventOrderSettled, Settlement: &s})

	cancel()
	require.NoError(t, <-done)

	got, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "o-9", got[0].OrderID)
}
