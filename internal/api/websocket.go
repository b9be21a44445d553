package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"seasonbot/internal/widget"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the widget is embedded on third-party pages
	},
}

// Hub fans session updates out to the WebSocket connections of each session
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]map[*WSConnection]struct{}
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]map[*WSConnection]struct{}),
	}
}

// Publish sends u to every connection of session id. Slow clients miss
// updates rather than block the session.
func (h *Hub) Publish(id string, u widget.Update) {
	h.mu.RLock()
	conns := make([]*WSConnection, 0, len(h.clients[id]))
	for c := range h.clients[id] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	data, err := json.Marshal(Event{Type: EventUpdate, Update: &u})
	if err != nil {
		h.logger.Error("failed to marshal session update", "session", id, "error", err)
		return
	}
	for _, c := range conns {
		c.enqueue(data)
	}
}

// Connections returns the number of open connections for a session
func (h *Hub) Connections(id string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[id])
}

func (h *Hub) register(c *WSConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.sessionID] == nil {
		h.clients[c.sessionID] = make(map[*WSConnection]struct{})
	}
	h.clients[c.sessionID][c] = struct{}{}
}

func (h *Hub) unregister(c *WSConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[c.sessionID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, c.sessionID)
		}
	}
}

// Event types on the socket
const (
	EventUpdate = "update"
	EventError  = "error"
	EventSend   = "send"
)

// Event is a message on the socket in either direction
type Event struct {
	Type   string         `json:"type"`
	Text   string         `json:"text,omitempty"`
	Error  string         `json:"error,omitempty"`
	Update *widget.Update `json:"update,omitempty"`
}

// WSConnection maintains the WebSocket connection with one widget
type WSConnection struct {
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	session   *widget.Session
	hub       *Hub
	logger    *slog.Logger

	mu     sync.Mutex
	closed bool
}

// handleWebSocket upgrades the connection and pushes the current snapshot.
// Browsers cannot set headers on WebSocket requests, so the token may also
// come as a query parameter.
func (s *Server) handleWebSocket(c *gin.Context) {
	id := c.Param("id")
	token := c.GetHeader(TokenHeader)
	if token == "" {
		token = c.Query("token")
	}
	if sub, err := s.tokens.Verify(token); err != nil || sub != id {
		c.JSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidToken.Error()})
		return
	}
	session := s.manager.Resume(c.Request.Context(), id)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", "error", err)
		return
	}

	wsConn := &WSConnection{
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: id,
		session:   session,
		hub:       s.hub,
		logger:    s.logger.With("session", id),
	}
	s.hub.register(wsConn)

	go wsConn.writePump()
	go wsConn.readPump()

	snap := session.Snapshot()
	wsConn.sendEvent(Event{Type: EventUpdate, Update: &widget.Update{Snapshot: snap}})
}

// readPump pumps messages from the WebSocket connection to the session
func (c *WSConnection) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket error", "error", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *WSConnection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage sends chat text arriving over the socket; the reply comes
// back as a session update
func (c *WSConnection) handleMessage(message []byte) {
	var ev Event
	if err := json.Unmarshal(message, &ev); err != nil {
		c.sendEvent(Event{Type: EventError, Error: "malformed message"})
		return
	}
	if ev.Type != EventSend {
		c.sendEvent(Event{Type: EventError, Error: "unsupported event: " + ev.Type})
		return
	}

	go func() {
		if _, err := c.session.Send(context.Background(), ev.Text); err != nil {
			c.sendEvent(Event{Type: EventError, Error: err.Error()})
		}
	}()
}

func (c *WSConnection) sendEvent(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("failed to marshal event", "error", err)
		return
	}
	c.enqueue(data)
}

func (c *WSConnection) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("websocket buffer full, dropping message")
	}
}

func (c *WSConnection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
