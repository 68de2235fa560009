package signaling

import (
	"fmt"
	"strings"
	"time"

	"mentorlink/internal/models"
)

const groupRoomPrefix = "group_"

// DirectRoom derives the deterministic room name for a pair of users. The
// pair is sorted so both sides resolve the same room.
func DirectRoom(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("direct_%s_%s", userA, userB)
}

// GroupRoom derives the room name for a group conversation.
func GroupRoom(groupID string) string {
	return groupRoomPrefix + groupID
}

// IsGroupRoom reports whether a room name belongs to a group conversation.
func IsGroupRoom(room string) bool {
	return strings.HasPrefix(room, groupRoomPrefix)
}

// ChatKey builds the canonical conversation key.
func ChatKey(convType models.ConversationType, conversationID string) string {
	return fmt.Sprintf("%s_%s", convType, conversationID)
}

// SplitChatKey breaks a chat key into its conversation type and ID.
func SplitChatKey(chatKey string) (models.ConversationType, string, error) {
	idx := strings.Index(chatKey, "_")
	if idx <= 0 || idx == len(chatKey)-1 {
		return "", "", fmt.Errorf("malformed chat key %q", chatKey)
	}

	convType := models.ConversationType(chatKey[:idx])
	switch convType {
	case models.ConversationGroup, models.ConversationDirectMentor, models.ConversationDirectPeer:
		return convType, chatKey[idx+1:], nil
	}
	return "", "", fmt.Errorf("unknown conversation type in chat key %q", chatKey)
}

// DirectCallID generates a call ID for a direct call: the chat key plus the
// creation timestamp, unique per conversation.
func DirectCallID(chatKey string, at time.Time) string {
	return fmt.Sprintf("%s_%d", chatKey, at.UnixMilli())
}
