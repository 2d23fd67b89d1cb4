package api

import (
	"net/http"
	"sync"
	"time"

	"flairbridge/internal/entity"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeTimeout = 5 * time.Second

// Event is one message on the event stream.
type Event struct {
	Type      string         `json:"type"`
	EntityID  string         `json:"entity_id"`
	NewState  EntityResponse `json:"new_state"`
	TimeFired time.Time      `json:"time_fired"`
}

// connWrapper wraps a WebSocket connection with its write mutex
type connWrapper struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Hub streams entity state changes to websocket clients.
type Hub struct {
	logger  *zap.Logger
	now     func() time.Time
	mu      sync.Mutex
	clients map[*connWrapper]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger.Named("events"),
		now:     time.Now,
		clients: make(map[*connWrapper]struct{}),
	}
}

// EntityChanged broadcasts the entity's new state.
func (h *Hub) EntityChanged(e entity.Entity) {
	h.broadcast(Event{
		Type:      "state_changed",
		EntityID:  e.UniqueID(),
		NewState:  toResponse(e),
		TimeFired: h.now(),
	})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(ev Event) {
	h.mu.Lock()
	clients := make([]*connWrapper, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.writeMu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := c.conn.WriteJSON(ev)
		c.writeMu.Unlock()
		if err != nil {
			h.logger.Debug("Dropping event client", zap.Error(err))
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c *connWrapper) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

// ServeHTTP upgrades the request and keeps the client until it goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &connWrapper{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("Event client connected", zap.String("remote_addr", r.RemoteAddr))

	// Clients only listen; reading surfaces the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	h.logger.Debug("Event client disconnected", zap.String("remote_addr", r.RemoteAddr))
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*connWrapper]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.conn.Close()
	}
}
