package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/seenimoa/optiscreen/internal/scheduler"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Message is a frame sent to websocket clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub fans job events out to connected websocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	broadcast  chan Message
	register   chan *client
	unregister chan *client
	done       chan struct{}
	log        zerolog.Logger
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewHub creates a hub. Call Run before registering clients.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan Message, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "ws").Logger(),
	}
}

// Run serves the hub until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			var slow []*client
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				h.log.Warn().Msg("dropping slow websocket client")
				h.remove(c)
			}
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

// Broadcast queues msg for every client. Messages are dropped when the
// queue is full.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn().Str("type", msg.Type).Msg("websocket broadcast queue full")
	}
}

// Publish sends a scheduler event as a "job.<status>" message.
func (h *Hub) Publish(ev scheduler.Event) {
	h.Broadcast(Message{Type: "job." + ev.Status, Data: ev})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{hub: s.hub, conn: conn, send: make(chan Message, sendBuffer)}
	c.send <- Message{Type: "hello", Data: map[string]string{"version": s.version}}
	select {
	case s.hub.register <- c:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump discards client frames and detects disconnects.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
	}
}

func (c *client) writePump() {
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
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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
