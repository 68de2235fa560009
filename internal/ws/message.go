package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event identifies a websocket message kind.
type Event string

const (
	// Chat events
	EventChatMessage  Event = "chat-message"
	EventMarkRead     Event = "mark-read"
	EventChatOpened   Event = "chat-opened"
	EventChatClosed   Event = "chat-closed"
	EventNewMessage   Event = "new-message"
	EventMessagesRead Event = "messages-read"

	// Call signaling events. Group variants reuse the same names and carry
	// group_id plus a specific recipient_id in the payload.
	EventOffer         Event = "offer"
	EventAnswer        Event = "answer"
	EventICECandidate  Event = "ice-candidate"
	EventCallEnded     Event = "call-ended"
	EventCallCreated   Event = "call-created"
	EventJoinGroupCall Event = "join-group-call"
	EventMemberJoined  Event = "member-joined"
	EventMemberLeft    Event = "member-left"
	EventRoster        Event = "existing-participants"

	// Call log fan-out
	EventCallLogCreated Event = "call-log-created"
	EventCallLogUpdated Event = "call-log-updated"

	// Notifications
	EventNotificationNew     Event = "notification-new"
	EventNotificationUpdated Event = "notification-updated"

	// System events
	EventConnected Event = "connected"
	EventError     Event = "error"
)

// Envelope is the wire format for every websocket message. Payload holds the
// event-specific body; each event kind has its own typed payload struct.
type Envelope struct {
	ID        string          `json:"id,omitempty"`
	Event     Event           `json:"event"`
	Room      string          `json:"room,omitempty"`
	From      string          `json:"from,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope builds an outbound envelope, marshaling the payload.
func NewEnvelope(event Event, payload interface{}) (*Envelope, error) {
	env := &Envelope{
		ID:        primitive.NewObjectID().Hex(),
		Event:     event,
		Timestamp: time.Now(),
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
		}
		env.Payload = raw
	}

	return env, nil
}

// ParseEnvelope decodes an inbound envelope.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	if env.Event == "" {
		return nil, fmt.Errorf("event is required")
	}

	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now()
	}

	return &env, nil
}

// ToJSON converts the envelope to JSON bytes.
func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ErrorPayload is the body of an error event sent back to one connection.
type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
