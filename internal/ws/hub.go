package ws

import (
	"encoding/json"
	"sync"

	"mentorlink/pkg/logger"
)

// EventHandler receives inbound client events for dispatch.
type EventHandler func(userID string, event Event, payload json.RawMessage)

// DisconnectHandler is invoked after a client is unregistered, with the rooms
// the connection belonged to at the time it dropped.
type DisconnectHandler func(userID string, rooms []string)

// Hub maintains the set of active clients and routes room and personal
// channel traffic between them.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Clients organized by user ID
	userClients map[string]*Client

	// Clients organized by room name; a client may be in several rooms
	roomClients map[string]map[*Client]bool

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	onEvent      EventHandler
	onDisconnect DisconnectHandler

	mu sync.RWMutex
}

// NewHub creates a new websocket hub
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string]*Client),
		roomClients: make(map[string]map[*Client]bool),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
	}
}

// SetEventHandler installs the inbound event dispatcher.
func (h *Hub) SetEventHandler(fn EventHandler) {
	h.onEvent = fn
}

// SetDisconnectHandler installs the disconnect reconciliation hook.
func (h *Hub) SetDisconnectHandler(fn DisconnectHandler) {
	h.onDisconnect = fn
}

// Run handles client registration and unregistration
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()

	// A reconnect replaces the previous connection for the same user
	if prev, ok := h.userClients[client.UserID]; ok && prev != client {
		h.dropClientLocked(prev)
	}

	h.clients[client] = true
	h.userClients[client.UserID] = client

	total := len(h.clients)
	h.mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"user_id":       client.UserID,
		"total_clients": total,
	}).Info("Client registered")

	welcome, err := NewEnvelope(EventConnected, map[string]interface{}{
		"user_id": client.UserID,
	})
	if err == nil {
		client.SendEnvelope(welcome)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()

	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}

	rooms := h.dropClientLocked(client)
	total := len(h.clients)
	h.mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"user_id":       client.UserID,
		"total_clients": total,
		"rooms":         rooms,
	}).Info("Client unregistered")

	// Reconciliation runs outside the hub lock: the handler broadcasts
	// member-left events back through this hub.
	if h.onDisconnect != nil && len(rooms) > 0 {
		h.onDisconnect(client.UserID, rooms)
	}
}

// dropClientLocked removes a client from all hub maps and returns the rooms
// it belonged to. Callers must hold h.mu.
func (h *Hub) dropClientLocked(client *Client) []string {
	delete(h.clients, client)

	if h.userClients[client.UserID] == client {
		delete(h.userClients, client.UserID)
	}

	rooms := client.RoomList()
	for _, room := range rooms {
		h.removeFromRoomLocked(client, room)
	}

	close(client.Send)
	return rooms
}

func (h *Hub) removeFromRoomLocked(client *Client, room string) {
	if members, ok := h.roomClients[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.roomClients, room)
		}
	}
	client.leaveRoom(room)
}

// JoinRoom adds the user's connection to a room.
func (h *Hub) JoinRoom(userID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.userClients[userID]
	if !ok {
		return
	}

	if h.roomClients[room] == nil {
		h.roomClients[room] = make(map[*Client]bool)
	}
	h.roomClients[room][client] = true
	client.joinRoom(room)
}

// LeaveRoom removes the user's connection from a room.
func (h *Hub) LeaveRoom(userID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.userClients[userID]
	if !ok {
		return
	}

	h.removeFromRoomLocked(client, room)
}

// EmitToRoom broadcasts an event to every connection in a room, optionally
// excluding one user.
func (h *Hub) EmitToRoom(room string, event Event, payload interface{}, excludeUserID string) {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal room message")
		return
	}
	env.Room = room

	data, err := env.ToJSON()
	if err != nil {
		logger.WithError(err).Error("Failed to marshal room message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.roomClients[room] {
		if excludeUserID != "" && client.UserID == excludeUserID {
			continue
		}
		client.trySend(data)
	}
}

// EmitToUser sends an event to a user's personal channel.
func (h *Hub) EmitToUser(userID string, event Event, payload interface{}) {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal user message")
		return
	}

	data, err := env.ToJSON()
	if err != nil {
		logger.WithError(err).Error("Failed to marshal user message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, ok := h.userClients[userID]; ok {
		client.trySend(data)
	}
}

// ConnectedUserIDs returns the IDs of users currently connected to a room.
func (h *Hub) ConnectedUserIDs(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.roomClients[room]
	if !ok {
		return []string{}
	}

	users := make([]string, 0, len(members))
	for client := range members {
		users = append(users, client.UserID)
	}
	return users
}

// IsUserOnline checks if a user has an active connection.
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.userClients[userID]
	return ok
}

// OnlineUsers returns the list of connected user IDs.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

// dispatchEvent forwards a parsed inbound envelope to the event handler.
func (h *Hub) dispatchEvent(client *Client, env *Envelope) {
	if h.onEvent == nil {
		return
	}
	h.onEvent(client.UserID, env.Event, env.Payload)
}
