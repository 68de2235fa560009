// Package signaling implements the real-time call coordination core:
// offer/answer/ICE relay for direct and group calls, call session tracking,
// missed-call timeouts, call log lifecycle, and chat message routing.
package signaling

import (
	"context"
	"errors"
	"time"

	"mentorlink/internal/models"
	"mentorlink/internal/ws"
)

var (
	// ErrInvalidRecipient is returned when the caller has no accepted
	// relationship with the target, or the target is not reachable.
	ErrInvalidRecipient = errors.New("no relationship with recipient")

	// ErrNotAMember is returned when a user acts on a conversation they
	// do not belong to.
	ErrNotAMember = errors.New("not a member of the conversation")

	// ErrCallNotFound is returned when no call log exists for a call ID.
	ErrCallNotFound = errors.New("call not found")

	// ErrDuplicateCall is returned when a session already exists for a call ID.
	ErrDuplicateCall = errors.New("call session already exists")

	// ErrMissingField is returned when a required payload field is absent.
	ErrMissingField = errors.New("missing required field")
)

// Broadcaster is the room-based broadcast transport consumed by the
// coordinators. *ws.Hub satisfies it in production.
type Broadcaster interface {
	JoinRoom(userID, room string)
	LeaveRoom(userID, room string)
	EmitToRoom(room string, event ws.Event, payload interface{}, excludeUserID string)
	EmitToUser(userID string, event ws.Event, payload interface{})
	ConnectedUserIDs(room string) []string
}

// CallLogStore persists call log records.
type CallLogStore interface {
	Create(ctx context.Context, record *models.CallLog) (*models.CallLog, error)
	Update(ctx context.Context, callID string, patch CallLogPatch) (*models.CallLog, error)
	FindByCallID(ctx context.Context, callID string) (*models.CallLog, error)
}

// CallLogPatch is a partial update applied to a call log record.
type CallLogPatch struct {
	Status          *models.CallStatus
	EndTime         *time.Time
	DurationSeconds *int64
}

// Directory resolves who may talk to whom.
type Directory interface {
	// ResolveRelationship returns the accepted relationship between two
	// users, or nil when none exists.
	ResolveRelationship(ctx context.Context, userA, userB string) (*models.Relationship, error)
	GroupMembers(ctx context.Context, groupID string) ([]string, error)
	ConversationMembers(ctx context.Context, convType models.ConversationType, conversationID string) ([]string, error)
}

// Notifier creates notifications and pushes them to recipients.
type Notifier interface {
	Send(ctx context.Context, in models.NotificationInput) (*models.Notification, error)
	// MarkMissed flips the incoming-call notification for callID to a
	// missed call. Returns nil when no notification exists.
	MarkMissed(ctx context.Context, recipientID, callID, text string) (*models.Notification, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	Insert(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)
	List(ctx context.Context, chatKey string, limit int64) ([]models.ChatMessage, error)
	// MarkRead flips every unread message another user sent in the chat
	// and returns the flipped message IDs.
	MarkRead(ctx context.Context, chatKey, readerID string) ([]string, error)
	UnreadCount(ctx context.Context, chatKey, userID string) (int64, error)
}
