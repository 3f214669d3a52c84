package devtools

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeTimeout bounds a single frame write to a slow client.
	writeTimeout = 10 * time.Second

	// clientBuffer is the per-client send queue; records beyond it are
	// dropped for that client rather than stalling the write chain.
	clientBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The inspector is a development surface; same-origin checks are the
	// embedding server's concern.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// hub fans committed records out to connected WebSocket clients.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *slog.Logger
}

type client struct {
	conn *websocket.Conn
	send chan Record
	once sync.Once
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// handleLive upgrades the connection and streams records until the client
// goes away.
func (h *hub) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("devtools upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan Record, clientBuffer),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump(h)
	c.readLoop(h)
}

// broadcast queues a record for every client. Slow clients drop records
// instead of blocking the middleware chain.
func (h *hub) broadcast(rec Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- rec:
		default:
		}
	}
}

func (h *hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *hub) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

// writePump drains the send queue onto the connection.
func (c *client) writePump(h *hub) {
	for rec := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(rec); err != nil {
			h.logger.Debug("devtools write failed", "error", err)
			h.drop(c)
			return
		}
	}
}

// readLoop discards inbound messages; its job is to notice disconnects.
func (c *client) readLoop(h *hub) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				h.logger.Debug("devtools read error", "error", err)
			}
			return
		}
	}
}

// writeJSON encodes v to the response, logging encode failures.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("devtools encode failed", "error", err)
	}
}
