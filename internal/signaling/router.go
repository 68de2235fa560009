package signaling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"mentorlink/internal/models"
	"mentorlink/internal/ws"
	"mentorlink/pkg/logger"
)

// ActiveChatTracker remembers which conversation each user currently has
// open, so notifications for that conversation are created pre-read.
type ActiveChatTracker struct {
	mu     sync.RWMutex
	active map[string]string
}

// NewActiveChatTracker creates an empty tracker.
func NewActiveChatTracker() *ActiveChatTracker {
	return &ActiveChatTracker{active: make(map[string]string)}
}

// Set records the chat a user has open.
func (t *ActiveChatTracker) Set(userID, chatKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[userID] = chatKey
}

// Clear forgets the user's open chat.
func (t *ActiveChatTracker) Clear(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, userID)
}

// Get returns the chat the user has open, or "".
func (t *ActiveChatTracker) Get(userID string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active[userID]
}

// MessageRouter delivers chat messages into conversation rooms, fans out
// notifications, and handles read receipts.
type MessageRouter struct {
	messages    MessageStore
	directory   Directory
	notifier    Notifier
	broadcaster Broadcaster
	tracker     *ActiveChatTracker
	now         func() time.Time
}

// NewMessageRouter creates a message router.
func NewMessageRouter(
	messages MessageStore,
	directory Directory,
	notifier Notifier,
	broadcaster Broadcaster,
	tracker *ActiveChatTracker,
) *MessageRouter {
	return &MessageRouter{
		messages:    messages,
		directory:   directory,
		notifier:    notifier,
		broadcaster: broadcaster,
		tracker:     tracker,
		now:         time.Now,
	}
}

// Send resolves the conversation, persists the message, broadcasts it to
// the shared room, and notifies each recipient. A recipient whose open chat
// matches the conversation gets a pre-read notification; notification
// failures are isolated per recipient.
func (r *MessageRouter) Send(ctx context.Context, senderID string, p ChatMessagePayload) (*models.ChatMessage, error) {
	if p.Content == "" {
		return nil, fmt.Errorf("%w: content", ErrMissingField)
	}

	convType, convID, err := p.Conversation()
	if err != nil {
		return nil, err
	}

	members, err := r.directory.ConversationMembers(ctx, convType, convID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conversation: %w", err)
	}
	if !lo.Contains(members, senderID) {
		return nil, ErrNotAMember
	}

	chatKey := ChatKey(convType, convID)
	contentType := p.ContentType
	if contentType == "" {
		contentType = "text"
	}

	msg := &models.ChatMessage{
		ChatKey:     chatKey,
		SenderID:    senderID,
		Content:     p.Content,
		ContentType: contentType,
		Status:      models.MessageStatusSent,
		Timestamp:   r.now(),
	}

	stored, err := r.messages.Insert(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	r.broadcaster.EmitToRoom(chatKey, ws.EventNewMessage, stored, senderID)

	for _, recipientID := range lo.Without(members, senderID) {
		read := r.tracker.Get(recipientID) == chatKey

		if _, err := r.notifier.Send(ctx, models.NotificationInput{
			RecipientID: recipientID,
			SenderID:    senderID,
			Kind:        models.NotificationNewMessage,
			Text:        p.Content,
			RelatedID:   convID,
			ContextType: convType,
			Read:        read,
		}); err != nil {
			logger.LogError(err, "message notification failed", map[string]interface{}{
				"chat_key":  chatKey,
				"recipient": recipientID,
			})
		}
	}

	logger.LogChatEvent("message_sent", chatKey, senderID, map[string]interface{}{
		"content_type": contentType,
	})

	return stored, nil
}

// MarkRead flips every unread message another user sent in the chat, then
// broadcasts the receipt to the shared room and to each participant's
// personal channel, covering participants who never joined the room.
func (r *MessageRouter) MarkRead(ctx context.Context, readerID, chatKey string) error {
	if chatKey == "" {
		return fmt.Errorf("%w: chat_key", ErrMissingField)
	}

	ids, err := r.messages.MarkRead(ctx, chatKey, readerID)
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	payload := MessagesReadPayload{
		ChatKey:    chatKey,
		ReaderID:   readerID,
		MessageIDs: ids,
	}

	r.broadcaster.EmitToRoom(chatKey, ws.EventMessagesRead, payload, "")

	convType, convID, err := SplitChatKey(chatKey)
	if err != nil {
		return err
	}

	members, err := r.directory.ConversationMembers(ctx, convType, convID)
	if err != nil {
		return fmt.Errorf("failed to resolve conversation: %w", err)
	}
	for _, memberID := range members {
		r.broadcaster.EmitToUser(memberID, ws.EventMessagesRead, payload)
	}

	logger.LogChatEvent("messages_read", chatKey, readerID, map[string]interface{}{
		"count": len(ids),
	})
	return nil
}

// OpenChat joins the user's connection to the conversation room and tracks
// it as their active chat.
func (r *MessageRouter) OpenChat(userID, chatKey string) {
	r.tracker.Set(userID, chatKey)
	r.broadcaster.JoinRoom(userID, chatKey)
}

// CloseChat clears active-chat tracking. The connection stays in the room;
// closing the chat view only stops auto-read.
func (r *MessageRouter) CloseChat(userID, chatKey string) {
	if r.tracker.Get(userID) == chatKey {
		r.tracker.Clear(userID)
	}
}

// UnreadCount returns the unread message count for a user in a chat.
func (r *MessageRouter) UnreadCount(ctx context.Context, chatKey, userID string) (int64, error) {
	return r.messages.UnreadCount(ctx, chatKey, userID)
}

// History returns recent messages in a chat.
func (r *MessageRouter) History(ctx context.Context, chatKey string, limit int64) ([]models.ChatMessage, error) {
	return r.messages.List(ctx, chatKey, limit)
}
