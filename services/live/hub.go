package livesvc

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/stg-academy/haksa/core"
	"github.com/stg-academy/haksa/core/attendance"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans committed attendance events out to connected dashboards.
// Publish never blocks; a client that cannot keep up is dropped.
type Hub struct {
	logger core.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

var _ attendance.Publisher = (*Hub)(nil)

type client struct {
	conn *websocket.Conn
	send chan attendance.Event
}

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) Publish(evt attendance.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- evt:
		default:
			// slow consumer
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Subscribe upgrades the request and streams events until the client
// disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan attendance.Event, 16)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
	return nil
}

func (h *Hub) writeLoop(c *client) {
	defer func() { _ = c.conn.Close() }()

	for evt := range c.send {
		if err := c.conn.WriteJSON(evt); err != nil {
			h.remove(c)
			return
		}
	}
}

// readLoop drains the connection so pings and close frames are processed.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		_ = c.conn.Close()
	}
}
