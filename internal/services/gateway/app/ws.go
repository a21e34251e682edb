package app

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arcfarm/irrigation-backend/internal/logger"
	"github.com/arcfarm/irrigation-backend/internal/model"
)

const (
	writeWait      = 5 * time.Second
	clientSendBuf  = 16
	maxInboundSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from arbitrary origins in the field.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub fans state snapshots out to the connected dashboard clients. It
// implements controller.StateSubscriber; a slow client drops frames rather
// than stalling the broadcaster.
type Hub struct {
	snapshot func() model.StateSnapshot

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub builds a hub; snapshot supplies the frame sent on connect.
func NewHub(snapshot func() model.StateSnapshot) *Hub {
	return &Hub{
		snapshot: snapshot,
		clients:  make(map[*client]struct{}),
	}
}

// ClientCount reports the number of connected dashboards.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastState implements controller.StateSubscriber.
func (h *Hub) BroadcastState(snap model.StateSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		logger.Errorf("ws: encode snapshot: %v", err)
		return
	}
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client is not keeping up; it will catch up on the next frame.
		}
	}
	h.mu.Unlock()
}

// HandleWS upgrades the connection and streams state frames until the
// client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("ws: upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientSendBuf)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	logger.Infof("ws: dashboard connected (%d clients)", n)

	// Current state first so the dashboard renders immediately.
	if data, err := json.Marshal(h.snapshot()); err == nil {
		select {
		case c.send <- data:
		default:
		}
	}

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	_ = c.conn.Close()
}

// readLoop discards inbound frames; the dashboard socket is push-only.
// Reading is still required to process control frames and notice closes.
func (h *Hub) readLoop(c *client) {
	c.conn.SetReadLimit(maxInboundSize)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	close(c.send)
	logger.Infof("ws: dashboard disconnected (%d clients)", n)
}
