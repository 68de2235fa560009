package ws

import (
	"sync"
	"time"

	"mentorlink/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Buffer size for client send channel
	sendBufferSize = 256

	// Messages allowed per client per minute
	messageRateLimit = 120
)

var newline = []byte{'\n'}

// Client represents one websocket connection.
type Client struct {
	// WebSocket connection
	Conn *websocket.Conn

	// Hub that manages this client
	Hub *Hub

	// Buffered channel of outbound messages
	Send chan []byte

	// Client information
	UserID    string
	IP        string
	UserAgent string

	// Rooms this connection currently belongs to
	rooms map[string]bool

	// Connection state
	ConnectedAt time.Time
	LastPong    time.Time

	// Rate limiting
	messageCount int
	windowStart  time.Time

	mu sync.RWMutex
}

// NewClient creates a new websocket client
func NewClient(conn *websocket.Conn, hub *Hub, userID string) *Client {
	return &Client{
		Conn:        conn,
		Hub:         hub,
		Send:        make(chan []byte, sendBufferSize),
		UserID:      userID,
		rooms:       make(map[string]bool),
		ConnectedAt: time.Now(),
		LastPong:    time.Now(),
		windowStart: time.Now(),
	}
}

// ReadPump pumps messages from the websocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.LastPong = time.Now()
		c.mu.Unlock()
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithFields(map[string]interface{}{
					"user_id": c.UserID,
					"error":   err.Error(),
				}).Error("WebSocket read error")
			}
			break
		}

		if !c.checkRateLimit() {
			c.sendError("rate_limited", "Rate limit exceeded")
			continue
		}

		env, err := ParseEnvelope(message)
		if err != nil {
			c.sendError("bad_message", "Invalid message format: "+err.Error())
			continue
		}

		// The authenticated connection identity wins over anything the
		// client put in the envelope.
		env.From = c.UserID

		c.Hub.dispatchEvent(c, env)
	}
}

// WritePump pumps messages from the hub to the websocket connection
func (c *Client) WritePump() {
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
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Flush queued messages into the same frame
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
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

func (c *Client) checkRateLimit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.windowStart) > time.Minute {
		c.messageCount = 0
		c.windowStart = now
	}

	c.messageCount++
	return c.messageCount <= messageRateLimit
}

// SendEnvelope sends an envelope to the client
func (c *Client) SendEnvelope(env *Envelope) error {
	data, err := env.ToJSON()
	if err != nil {
		return err
	}
	c.trySend(data)
	return nil
}

// trySend queues data without blocking; a full buffer drops the message and
// the stale connection is reaped by the ping/pong cycle.
func (c *Client) trySend(data []byte) {
	select {
	case c.Send <- data:
	default:
		logger.WithField("user_id", c.UserID).Warn("Client send buffer full, dropping message")
	}
}

func (c *Client) sendError(code, message string) {
	env, err := NewEnvelope(EventError, ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	c.SendEnvelope(env)
}

func (c *Client) joinRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room] = true
}

func (c *Client) leaveRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, room)
}

// RoomList returns the rooms this connection belongs to.
func (c *Client) RoomList() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// InRoom checks membership in a specific room.
func (c *Client) InRoom(room string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[room]
}
