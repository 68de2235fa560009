package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusRead    MessageStatus = "read"
)

// ChatMessage is a stored chat message within a conversation thread.
type ChatMessage struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatKey     string             `bson:"chat_key" json:"chat_key"`
	SenderID    string             `bson:"sender_id" json:"sender_id"`
	Content     string             `bson:"content" json:"content"`
	ContentType string             `bson:"content_type" json:"content_type"` // text, image, file
	IsRead      bool               `bson:"is_read" json:"is_read"`
	Status      MessageStatus      `bson:"status" json:"status"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
}
