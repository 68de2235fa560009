package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationKind string

const (
	NotificationIncomingCall NotificationKind = "incoming_call"
	NotificationMissedCall   NotificationKind = "missed_call"
	NotificationNewMessage   NotificationKind = "new_message"
)

// Notification is a per-user notification pushed over the personal channel.
type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipientID string             `bson:"recipient_id" json:"recipient_id"`
	SenderID    string             `bson:"sender_id" json:"sender_id"`
	Kind        NotificationKind   `bson:"kind" json:"kind"`
	Text        string             `bson:"text,omitempty" json:"text,omitempty"`
	RelatedID   string             `bson:"related_id,omitempty" json:"related_id,omitempty"`
	ContextType ConversationType   `bson:"context_type,omitempty" json:"context_type,omitempty"`
	CallID      string             `bson:"call_id,omitempty" json:"call_id,omitempty"`
	CallType    CallType           `bson:"call_type,omitempty" json:"call_type,omitempty"`
	IsRead      bool               `bson:"is_read" json:"is_read"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// NotificationInput carries the fields callers provide when creating a notification.
type NotificationInput struct {
	RecipientID string
	SenderID    string
	Kind        NotificationKind
	Text        string
	RelatedID   string
	ContextType ConversationType
	CallID      string
	CallType    CallType
	Read        bool
}
