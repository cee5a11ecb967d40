package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"ideahub/internal/auth"
	"ideahub/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are already restricted by CORS and the token
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope pushed to dashboard clients
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	Session auth.Session
}

// outbound is an encoded event plus the principal it concerns
type outbound struct {
	payload []byte
	scope   scope
	owner   string
}

type scope int

const (
	// scopeIdea reaches management, evaluators and the idea's submitter
	scopeIdea scope = iota
	// scopeEvaluation reaches management and the authoring evaluator
	scopeEvaluation
	// scopeManagement reaches management only
	scopeManagement
)

// scopeOf classifies an event by the record it carries
func scopeOf(data any) (scope, string) {
	record, ok := data.(model.Record)
	if !ok {
		return scopeManagement, ""
	}
	if id, ok := record["evaluator_id"].(string); ok {
		return scopeEvaluation, id
	}
	if id, ok := record["submitter_id"].(string); ok {
		return scopeIdea, id
	}
	return scopeManagement, ""
}

// allows reports whether a session may see an event. The rules mirror the
// role dashboards.
func (m outbound) allows(s auth.Session) bool {
	if s.Role == model.RoleManagement {
		return true
	}
	switch m.scope {
	case scopeEvaluation:
		return s.Role == model.RoleEvaluator && s.UserID == m.owner
	case scopeIdea:
		return s.Role == model.RoleEvaluator || s.UserID == m.owner
	}
	return false
}

// Hub maintains the set of active clients and pushes dashboard events to the
// clients allowed to see them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	log        *zap.Logger
}

// NewHub initializes a new WS Hub instance
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan outbound, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		log:        log,
	}
}

// Publish queues an event for the clients allowed to see it. It never blocks
// the caller; events are dropped when the queue is full.
func (h *Hub) Publish(event string, data any) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		h.log.Error("websocket event encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	sc, owner := scopeOf(data)
	select {
	case h.broadcast <- outbound{payload: payload, scope: sc, owner: owner}:
	default:
		h.log.Warn("websocket broadcast queue full, dropping event", zap.String("event", event))
	}
}

// ClientCount reports how many clients are connected
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run starts the dispatch loop and returns when ctx is done. It must be
// called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("websocket client connected", zap.String("user_id", client.Session.UserID))
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.log.Debug("websocket client disconnected", zap.String("user_id", client.Session.UserID))
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !message.allows(client.Session) {
					continue
				}
				select {
				case client.Send <- message.payload:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump drains the connection so close frames are noticed
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warn("websocket read failed", zap.Error(err))
			}
			break
		}
	}
}

// ServeWs upgrades an authenticated request. The token comes from the query
// string because browsers cannot set headers on websocket handshakes.
func ServeWs(hub *Hub, c *gin.Context, tokens *auth.TokenManager) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	session, err := tokens.Parse(tokenString)
	if err != nil {
		hub.log.Debug("websocket connection rejected", zap.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), Session: session}
	select {
	case hub.register <- client:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
