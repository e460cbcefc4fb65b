package events

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/eisenbruch/projector/internal/dto"
)

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) send(message any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(message)
}

// Hub fans session state transitions out to connected control clients, so
// the control page reflects start/stop without polling.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			// LAN tool, the control page may be opened via any local address.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	// Reader loop only exists to notice the peer going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(c)
				return
			}
		}
	}()
}

// Publish sends the running state to every connected client, dropping any
// connection that fails to take the write.
func (h *Hub) Publish(running bool) {
	message := dto.EventMessage{Running: running}
	for _, c := range h.snapshot() {
		if err := c.send(message); err != nil {
			h.remove(c)
		}
	}
}

// ClientCount reports the number of connected control clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close drops every connection.
func (h *Hub) Close() {
	for _, c := range h.snapshot() {
		h.remove(c)
	}
}

func (h *Hub) snapshot() []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}
