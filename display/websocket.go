package geiger

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds how long a slow observer can hold up a broadcast.
// A missed write drops that client, never the pulse itself.
const writeWait = 1 * time.Second

// PulseMsg is the immediate per-pulse notification for blink/click UIs
type PulseMsg struct {
	Type string  `json:"type"`
	TS   float64 `json:"ts"` // unix seconds
}

// AckMsg acknowledges an operation to all observers
type AckMsg struct {
	Type string `json:"type"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub is the set of connected websocket observers.
// Writes are serialized through the Hub lock because gorilla conns
// allow only one concurrent writer, and both the pulse fan-out and
// the snapshot ticker go through Broadcast.
type Hub struct {
	MU      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

func (h *Hub) Add(conn *websocket.Conn) {
	h.MU.Lock()
	h.clients[conn] = true
	h.MU.Unlock()
}

func (h *Hub) Remove(conn *websocket.Conn) {
	h.MU.Lock()
	delete(h.clients, conn)
	h.MU.Unlock()
}

func (h *Hub) Count() int {
	h.MU.Lock()
	defer h.MU.Unlock()
	return len(h.clients)
}

// Broadcast sends one JSON message to every connected observer.
// Clients that cannot keep up are dropped and closed.
func (h *Hub) Broadcast(msg any) {
	h.MU.Lock()
	defer h.MU.Unlock()

	var dead []*websocket.Conn
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			dead = append(dead, conn)
		}
	}
	for _, conn := range dead {
		delete(h.clients, conn)
		conn.Close()
	}
}

// WebsocketHandler upgrades one observer, hands it the current
// snapshot, then parks until the connection goes away. All further
// traffic to the client flows through the Hub.
func (v *View) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// First message is always a full snapshot so the client can draw.
	// The conn joins the Hub only afterward, keeping the write exclusive.
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(v.Engine.Snapshot()); err != nil {
		conn.Close()
		return
	}

	v.Stats.AddWSClient()
	v.Hub.Add(conn)
	slog.Debug("Observer connected", slog.String("remote", conn.RemoteAddr().String()))

	// Observers don't speak; the read loop only notices the close
	go func() {
		defer func() {
			v.Hub.Remove(conn)
			v.Stats.DelWSClient()
			conn.Close()
			slog.Debug("Observer disconnected", slog.String("remote", conn.RemoteAddr().String()))
		}()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
}
