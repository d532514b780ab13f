package stream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/efreitasn/stocksim/internal/engine"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	snap *engine.Snapshot
}

func (s staticSource) Snapshot() *engine.Snapshot { return s.snap }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T, buffer int) (*Hub, *httptest.Server) {
	t.Helper()
	src := staticSource{snap: &engine.Snapshot{Cash: domain.MustMoney("500.00")}}
	hub := NewHub(src, buffer, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev domain.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHub_SendsSnapshotFirst(t *testing.T) {
	_, srv := startHub(t, 8)
	conn := dial(t, srv)

	ev := readEvent(t, conn)
	assert.Equal(t, EventSnapshot, ev.Type)
	require.NotNil(t, ev.Cash)
	assert.Equal(t, "500.00", ev.Cash.String())
	assert.Empty(t, ev.Instruments)
}

func TestHub_BroadcastsToEveryClient(t *testing.T) {
	hub, srv := startHub(t, 8)
	a := dial(t, srv)
	b := dial(t, srv)
	readEvent(t, a)
	readEvent(t, b)

	hub.Publish(context.Background(), domain.Event{
		Type:         domain.EventNotify,
		Notification: &domain.Notification{Level: domain.LevelInfo, Message: "hello"},
	})

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		assert.Equal(t, domain.EventNotify, ev.Type)
		require.NotNil(t, ev.Notification)
		assert.Equal(t, "hello", ev.Notification.Message)
	}
	assert.Equal(t, 2, hub.Clients())
}

func TestHub_TickCarriesNewestPointOnly(t *testing.T) {
	hub, srv := startHub(t, 8)
	conn := dial(t, srv)
	readEvent(t, conn)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	history := []domain.PricePoint{
		{Time: base, Value: domain.MustMoney("10.00")},
		{Time: base.Add(time.Second), Value: domain.MustMoney("10.50")},
	}
	hub.Publish(context.Background(), domain.Event{
		Type:        domain.EventInstrumentsUpdated,
		Instruments: []domain.Instrument{{Name: "ACME", Price: domain.MustMoney("10.50"), History: history}},
	})

	ev := readEvent(t, conn)
	require.Len(t, ev.Instruments, 1)
	require.Len(t, ev.Instruments[0].History, 1)
	assert.Equal(t, "10.50", ev.Instruments[0].History[0].Value.String())
	assert.Len(t, history, 2, "published event must not be modified")
}

func TestHub_SkipsEventsAlreadyInSnapshot(t *testing.T) {
	src := staticSource{snap: &engine.Snapshot{Version: 3, Cash: domain.MustMoney("500.00")}}
	hub := NewHub(src, 8, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	snap := readEvent(t, conn)
	require.Equal(t, EventSnapshot, snap.Type)
	assert.Equal(t, uint64(3), snap.Version)

	for _, v := range []uint64{2, 3, 4} {
		hub.Publish(context.Background(), domain.Event{
			Type:        domain.EventInstrumentsUpdated,
			Version:     v,
			Instruments: []domain.Instrument{{Name: "ACME", Price: domain.MustMoney("10.00")}},
		})
	}

	ev := readEvent(t, conn)
	assert.Equal(t, domain.EventInstrumentsUpdated, ev.Type)
	assert.Equal(t, uint64(4), ev.Version)
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub, srv := startHub(t, 8)
	conn := dial(t, srv)
	readEvent(t, conn)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishWithoutRunDoesNotBlock(t *testing.T) {
	hub := NewHub(staticSource{snap: &engine.Snapshot{}}, 1, discardLogger())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			hub.Publish(context.Background(), domain.Event{Type: domain.EventNotify})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}
