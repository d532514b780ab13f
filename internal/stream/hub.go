// Package stream pushes engine events to WebSocket clients.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/efreitasn/stocksim/internal/engine"
	"github.com/gorilla/websocket"
)

// EventSnapshot is the first message every client receives.
const EventSnapshot domain.EventType = "snapshot"

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	clientBuffer = 64
	readLimit    = 512
)

// SnapshotSource provides the state sent to newly connected clients.
type SnapshotSource interface {
	Snapshot() *engine.Snapshot
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	// since is the version of the snapshot the client started from.
	since uint64
}

type frame struct {
	version uint64
	data    []byte
}

// Hub fans engine events out to connected WebSocket clients. Clients that
// fall behind are disconnected rather than slowing the engine down.
type Hub struct {
	source   SnapshotSource
	logger   *slog.Logger
	upgrader websocket.Upgrader

	broadcast  chan frame
	register   chan *client
	unregister chan *client
	done       chan struct{}
	clients    atomic.Int64
}

// NewHub creates a Hub whose broadcast queue holds buffer messages.
func NewHub(source SnapshotSource, buffer int, logger *slog.Logger) *Hub {
	return &Hub{
		source: source,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		broadcast:  make(chan frame, buffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.clients.Load())
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	clients := make(map[*client]struct{})
	drop := func(c *client) {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
			h.clients.Store(int64(len(clients)))
		}
	}

	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				drop(c)
			}
			return nil
		case c := <-h.register:
			// The snapshot is read here so that no broadcast can fall
			// between it and registration.
			msg, version, err := h.snapshotMessage()
			if err != nil {
				h.logger.Error("encode stream snapshot", slog.String("error", err.Error()))
				close(c.send)
				continue
			}
			c.since = version
			c.send <- msg
			clients[c] = struct{}{}
			h.clients.Store(int64(len(clients)))
		case c := <-h.unregister:
			drop(c)
		case f := <-h.broadcast:
			for c := range clients {
				if f.version != 0 && f.version <= c.since {
					continue
				}
				select {
				case c.send <- f.data:
				default:
					h.logger.Warn("stream client too slow, disconnecting")
					drop(c)
				}
			}
		}
	}
}

// Publish queues ev for every client. It never blocks; when the queue is
// full the event is dropped.
func (h *Hub) Publish(_ context.Context, ev domain.Event) {
	msg, err := encode(ev)
	if err != nil {
		h.logger.Error("encode stream event", slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- frame{version: ev.Version, data: msg}:
	default:
		h.logger.Warn("stream queue full, event dropped", slog.String("event", string(ev.Type)))
	}
}

// ServeHTTP upgrades the request and streams events until the client goes
// away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) snapshotMessage() ([]byte, uint64, error) {
	snap := h.source.Snapshot()
	cash := snap.Cash
	msg, err := json.Marshal(domain.Event{
		Type:        EventSnapshot,
		Timestamp:   snap.UpdatedAt,
		Version:     snap.Version,
		Instruments: snap.Instruments(),
		Cash:        &cash,
	})
	return msg, snap.Version, err
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// encode marshals ev. Tick batches carry only the newest history point;
// clients append it to the history they received in the snapshot.
func encode(ev domain.Event) ([]byte, error) {
	if ev.Type == domain.EventInstrumentsUpdated {
		trimmed := make([]domain.Instrument, len(ev.Instruments))
		for i, inst := range ev.Instruments {
			if n := len(inst.History); n > 0 {
				inst.History = inst.History[n-1:]
			}
			trimmed[i] = inst
		}
		ev.Instruments = trimmed
	}
	return json.Marshal(ev)
}
