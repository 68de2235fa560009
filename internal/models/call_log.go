package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CallType string
type CallStatus string
type ConversationType string

const (
	// Call types
	CallTypeAudio CallType = "audio"
	CallTypeVideo CallType = "video"

	// Call status. Transitions are monotonic: ongoing -> completed | missed.
	CallStatusOngoing   CallStatus = "ongoing"
	CallStatusCompleted CallStatus = "completed"
	CallStatusMissed    CallStatus = "missed"

	// Conversation types
	ConversationGroup        ConversationType = "group"
	ConversationDirectMentor ConversationType = "direct-mentor"
	ConversationDirectPeer   ConversationType = "direct-peer"
)

// CallLog is the persistent record of a call, one per call ID.
type CallLog struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CallID           string             `bson:"call_id" json:"call_id"`
	ChatKey          string             `bson:"chat_key" json:"chat_key"`
	CallType         CallType           `bson:"call_type" json:"call_type"`
	ConversationType ConversationType   `bson:"conversation_type" json:"conversation_type"`
	SenderID         string             `bson:"sender_id" json:"sender_id"`
	RecipientIDs     []string           `bson:"recipient_ids" json:"recipient_ids"`
	GroupID          string             `bson:"group_id,omitempty" json:"group_id,omitempty"`
	Status           CallStatus         `bson:"status" json:"status"`
	StartTime        time.Time          `bson:"start_time" json:"start_time"`
	EndTime          *time.Time         `bson:"end_time,omitempty" json:"end_time,omitempty"`
	DurationSeconds  *int64             `bson:"duration_seconds,omitempty" json:"duration_seconds,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// Terminal reports whether the status allows no further transitions.
func (s CallStatus) Terminal() bool {
	return s == CallStatusCompleted || s == CallStatusMissed
}

// Participants returns the sender and every recipient.
func (c *CallLog) Participants() []string {
	out := make([]string, 0, len(c.RecipientIDs)+1)
	out = append(out, c.SenderID)
	out = append(out, c.RecipientIDs...)
	return out
}
