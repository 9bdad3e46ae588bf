package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"vertx-trading/internal/auth"
	"vertx-trading/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is enforced at the HTTP layer before the upgrade
		return true
	},
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn      *websocket.Conn
	send      chan []byte
	hub       *WSHub
	userID    string
	closeChan chan struct{}
}

// WSHub fans events out to connected clients: price ticks go to everyone,
// per-user events (credits, premium, tamper, analysis progress) go only to
// that user's connections.
type WSHub struct {
	clients     map[*WSClient]bool
	userClients map[string]map[*WSClient]bool
	broadcast   chan []byte
	userCast    chan userMessage
	register    chan *WSClient
	unregister  chan *WSClient
	mu          sync.RWMutex
}

type userMessage struct {
	userID string
	data   []byte
}

// NewWSHub creates a hub subscribed to the event bus.
func NewWSHub(bus *events.EventBus) *WSHub {
	hub := &WSHub{
		clients:     make(map[*WSClient]bool),
		userClients: make(map[string]map[*WSClient]bool),
		broadcast:   make(chan []byte, 256),
		userCast:    make(chan userMessage, 256),
		register:    make(chan *WSClient),
		unregister:  make(chan *WSClient),
	}

	bus.SubscribeAll(func(event events.Event) {
		if event.UserID == "" {
			hub.BroadcastToAll(event)
			return
		}
		hub.BroadcastToUser(event.UserID, event)
	})

	return hub
}

// Run starts the hub loop.
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if client.userID != "" {
				if h.userClients[client.userID] == nil {
					h.userClients[client.userID] = make(map[*WSClient]bool)
				}
				h.userClients[client.userID][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				if client.userID != "" {
					if userClients, ok := h.userClients[client.userID]; ok {
						delete(userClients, client)
						if len(userClients) == 0 {
							delete(h.userClients, client.userID)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
				}
			}
			h.mu.RUnlock()

		case userMsg := <-h.userCast:
			h.mu.RLock()
			if userClients, ok := h.userClients[userMsg.userID]; ok {
				for client := range userClients {
					select {
					case client.send <- userMsg.data:
					default:
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastToUser sends an event to a specific user's connections
func (h *WSHub) BroadcastToUser(userID string, event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal user event: %v", err)
		return
	}

	select {
	case h.userCast <- userMessage{userID: userID, data: data}:
	default:
		log.Printf("User broadcast channel full for user %s, dropping message", userID)
	}
}

// BroadcastToAll sends an event to all connected clients
func (h *WSHub) BroadcastToAll(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal event: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		log.Println("Broadcast channel full, dropping message")
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *WSClient) writePump() {
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

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closeChan:
			return
		}
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		close(c.closeChan)
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}
	}
}

// handleWebSocket handles GET /api/ws
func (s *Server) handleWebSocket(c *gin.Context) {
	userID := auth.GetUserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := &WSClient{
		conn:      conn,
		send:      make(chan []byte, 256),
		hub:       s.hub,
		userID:    userID,
		closeChan: make(chan struct{}),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
