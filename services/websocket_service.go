package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"zentask/zentask/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 256
)

// WebSocketServiceInterface defines the operations provided by the WebSocket service
type WebSocketServiceInterface interface {
	Start()
	Stop()
	HandleConnection(c *gin.Context)
	SendToUser(userID string, msg *models.StandardMessage) int
	DisconnectUser(userID string)
	SetSessionManager(sessions *SessionManager)
}

var WebSocketServiceInstance WebSocketServiceInterface

// Client represents a connected WebSocket client
type Client struct {
	ID     string
	UserID string
	Hub    *WebSocketService
	Conn   *websocket.Conn
	Send   chan []byte

	mu            sync.Mutex
	subscriptions map[string]bool // Collections this client is subscribed to
}

// WebSocketService manages WebSocket connections and pushes session
// messages to the connections of each user.
type WebSocketService struct {
	// Client management
	clients      map[string]*Client
	register     chan *Client
	unregister   chan *Client
	clientsMutex sync.RWMutex

	upgrader websocket.Upgrader
	sessions *SessionManager

	// Control
	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
}

// NewWebSocketService creates a new WebSocket service
func NewWebSocketService(allowedOrigins []string) *WebSocketService {
	return &WebSocketService{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, candidate := range allowed {
			if candidate == "*" || candidate == origin {
				return true
			}
		}
		return false
	}
}

func (ws *WebSocketService) SetSessionManager(sessions *SessionManager) {
	ws.sessions = sessions
}

func (ws *WebSocketService) Start() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.isRunning {
		return
	}
	ws.isRunning = true
	ws.stopChan = make(chan struct{})
	go ws.run(ws.stopChan)
	log.Println("WebSocket service started")
}

// Stop gracefully shuts down the WebSocket service
func (ws *WebSocketService) Stop() {
	ws.mu.Lock()
	if !ws.isRunning {
		ws.mu.Unlock()
		return
	}
	ws.isRunning = false
	close(ws.stopChan)
	ws.mu.Unlock()

	ws.clientsMutex.Lock()
	for id, client := range ws.clients {
		if client != nil && client.Conn != nil {
			client.Conn.Close()
		}
		close(client.Send)
		delete(ws.clients, id)
	}
	ws.clientsMutex.Unlock()

	log.Println("WebSocket service stopped")
}

// run handles client registration
func (ws *WebSocketService) run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return

		case client := <-ws.register:
			ws.clientsMutex.Lock()
			ws.clients[client.ID] = client
			ws.clientsMutex.Unlock()
			log.Printf("Client connected: %s (user: %s)", client.ID, client.UserID)

		case client := <-ws.unregister:
			ws.clientsMutex.Lock()
			if _, ok := ws.clients[client.ID]; ok {
				delete(ws.clients, client.ID)
				close(client.Send)
				log.Printf("Client disconnected: %s", client.ID)
			}
			ws.clientsMutex.Unlock()
		}
	}
}

// HandleConnection upgrades an authenticated request. The user id is set
// by the WebSocket auth middleware.
func (ws *WebSocketService) HandleConnection(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	conn, err := ws.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v: %v", ErrWebSocketConnection, err)
		return
	}

	if ws.sessions != nil {
		ws.sessions.Ensure(models.Profile{UID: userID, Email: c.GetString("email")})
	}

	client := &Client{
		ID:            uuid.New().String(),
		UserID:        userID,
		Hub:           ws,
		Conn:          conn,
		Send:          make(chan []byte, sendBufferSize),
		subscriptions: make(map[string]bool),
	}

	select {
	case ws.register <- client:
	case <-ws.stopped():
		conn.Close()
		return
	}

	go client.readPump()
	go client.writePump()
}

func (ws *WebSocketService) stopped() <-chan struct{} {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.stopChan == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return ws.stopChan
}

// SendToUser queues msg on every connection of userID that wants it and
// returns how many connections it was queued on. Slow clients whose
// buffer is full miss the message.
func (ws *WebSocketService) SendToUser(userID string, msg *models.StandardMessage) int {
	data, err := msg.ToJSON()
	if err != nil {
		log.Printf("Error marshalling message %s: %v", msg.Event, err)
		return 0
	}

	ws.clientsMutex.RLock()
	defer ws.clientsMutex.RUnlock()
	delivered := 0
	for _, client := range ws.clients {
		if client.UserID != userID || !client.wants(msg) {
			continue
		}
		select {
		case client.Send <- data:
			delivered++
		default:
			log.Printf("Send buffer full for client %s, dropping %s", client.ID, msg.Event)
		}
	}
	return delivered
}

// DisconnectUser closes every connection of userID. The read pumps
// unregister the clients.
func (ws *WebSocketService) DisconnectUser(userID string) {
	ws.clientsMutex.RLock()
	defer ws.clientsMutex.RUnlock()
	for _, client := range ws.clients {
		if client.UserID == userID && client.Conn != nil {
			client.Conn.Close()
		}
	}
}

func (ws *WebSocketService) clientCount() int {
	ws.clientsMutex.RLock()
	defer ws.clientsMutex.RUnlock()
	return len(ws.clients)
}

// wants reports whether msg is for this client. Snapshot events only go to
// clients subscribed to their collection; everything else always goes.
func (c *Client) wants(msg *models.StandardMessage) bool {
	if msg.Type != models.EventMessage || msg.ResourceType == "" {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscriptions[msg.ResourceType]
}

// readPump handles incoming messages from the WebSocket client
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.stopped():
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Error reading from WebSocket: %v", err)
			}
			break
		}

		c.processMessage(message)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON message per frame so clients can parse each frame.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage handles messages received from the client
func (c *Client) processMessage(msg []byte) {
	var clientMsg models.ClientMessage
	if err := json.Unmarshal(msg, &clientMsg); err != nil {
		log.Printf("Error parsing client message: %v", err)
		c.sendError("invalid message")
		return
	}

	switch clientMsg.Type {
	case models.SubscribeMessage:
		c.handleSubscribe(clientMsg)
	case models.UnsubscribeMessage:
		c.handleUnsubscribe(clientMsg)
	case models.PermissionMessage:
		c.handlePermission(clientMsg)
	case models.PingMessage:
		// Just a keepalive, no response needed
	default:
		log.Printf("Unknown message type: %s", clientMsg.Type)
		c.sendError("unknown message type")
	}
}

type subscriptionPayload struct {
	Resource string `json:"resource"`
}

// handleSubscribe processes subscription requests
func (c *Client) handleSubscribe(msg models.ClientMessage) {
	var payload subscriptionPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("Error parsing subscription payload: %v", err)
		c.sendError("invalid subscription")
		return
	}

	c.mu.Lock()
	c.subscriptions[payload.Resource] = true
	c.mu.Unlock()
	log.Printf("Client %s subscribed to %s", c.ID, payload.Resource)

	if c.Hub.sessions == nil {
		return
	}
	if err := c.Hub.sessions.HandleSubscribe(c.UserID, payload.Resource); err != nil {
		c.mu.Lock()
		delete(c.subscriptions, payload.Resource)
		c.mu.Unlock()
		c.sendError(err.Error())
	}
}

// handleUnsubscribe processes unsubscription requests
func (c *Client) handleUnsubscribe(msg models.ClientMessage) {
	var payload subscriptionPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("Error parsing unsubscription payload: %v", err)
		return
	}

	c.mu.Lock()
	delete(c.subscriptions, payload.Resource)
	c.mu.Unlock()
}

func (c *Client) handlePermission(msg models.ClientMessage) {
	var payload struct {
		Permission string `json:"permission"`
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("Error parsing permission payload: %v", err)
		c.sendError("invalid permission")
		return
	}
	if c.Hub.sessions == nil {
		return
	}
	if err := c.Hub.sessions.HandlePermission(c.UserID, payload.Permission); err != nil {
		c.sendError(err.Error())
	}
}

func (c *Client) sendError(message string) {
	data, err := models.NewStandardMessage(models.ErrorMessage, "", map[string]interface{}{
		"message": message,
	}).ToJSON()
	if err != nil {
		return
	}

	c.Hub.clientsMutex.RLock()
	defer c.Hub.clientsMutex.RUnlock()
	if _, ok := c.Hub.clients[c.ID]; !ok {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}
