package signaling

import (
	"encoding/json"
	"fmt"

	"mentorlink/internal/models"
)

// Inbound payloads, one typed struct per event kind. The sender identity is
// never read from these; the dispatcher injects the authenticated user.

// OfferPayload starts a direct call, or carries a pairwise offer inside a
// group call when GroupID and RecipientID are set.
type OfferPayload struct {
	TargetID         string `json:"target_id,omitempty"`
	GroupID          string `json:"group_id,omitempty"`
	RecipientID      string `json:"recipient_id,omitempty"`
	CallID           string `json:"call_id,omitempty"`
	ChatKey          string `json:"chat_key,omitempty"`
	ConversationType string `json:"conversation_type,omitempty"`
	CallType         string `json:"call_type"`
	SDP              string `json:"sdp"`
}

// AnswerPayload answers a direct call, or a pairwise group negotiation.
type AnswerPayload struct {
	CallID      string `json:"call_id,omitempty"`
	ChatKey     string `json:"chat_key,omitempty"`
	InitiatorID string `json:"initiator_id,omitempty"`
	GroupID     string `json:"group_id,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
	SDP         string `json:"sdp"`
}

// ICECandidatePayload relays one ICE candidate.
type ICECandidatePayload struct {
	CallID      string          `json:"call_id"`
	GroupID     string          `json:"group_id,omitempty"`
	RecipientID string          `json:"recipient_id,omitempty"`
	Candidate   json.RawMessage `json:"candidate"`
}

// CallEndedPayload ends a call. For group calls it is a single member
// leaving unless Terminate requests full termination.
type CallEndedPayload struct {
	CallID    string `json:"call_id"`
	GroupID   string `json:"group_id,omitempty"`
	Terminate bool   `json:"terminate,omitempty"`
}

// JoinGroupCallPayload joins (or starts) a group call.
type JoinGroupCallPayload struct {
	GroupID  string `json:"group_id"`
	CallType string `json:"call_type"`
	CallID   string `json:"call_id,omitempty"`
}

// ChatMessagePayload carries a chat message addressed to exactly one
// conversation scope.
type ChatMessagePayload struct {
	GroupID      string `json:"group_id,omitempty"`
	MentorshipID string `json:"mentorship_id,omitempty"`
	PeerID       string `json:"peer_id,omitempty"`
	Content      string `json:"content"`
	ContentType  string `json:"content_type,omitempty"`
}

// Conversation resolves which scope the message targets.
func (p ChatMessagePayload) Conversation() (models.ConversationType, string, error) {
	set := 0
	var convType models.ConversationType
	var id string

	if p.GroupID != "" {
		set++
		convType, id = models.ConversationGroup, p.GroupID
	}
	if p.MentorshipID != "" {
		set++
		convType, id = models.ConversationDirectMentor, p.MentorshipID
	}
	if p.PeerID != "" {
		set++
		convType, id = models.ConversationDirectPeer, p.PeerID
	}

	if set != 1 {
		return "", "", fmt.Errorf("%w: exactly one conversation id required", ErrMissingField)
	}
	return convType, id, nil
}

// MarkReadPayload marks a conversation read for the sender.
type MarkReadPayload struct {
	ChatKey string `json:"chat_key"`
}

// ChatFocusPayload tracks which chat a user currently has open.
type ChatFocusPayload struct {
	ChatKey string `json:"chat_key"`
}

// Outbound payloads.

// CallCreatedPayload acknowledges an offer with the generated call ID.
type CallCreatedPayload struct {
	CallID   string `json:"call_id"`
	ChatKey  string `json:"chat_key"`
	RoomName string `json:"room_name"`
	CallType string `json:"call_type"`
}

// RelayedOffer is an offer forwarded to the callee side.
type RelayedOffer struct {
	CallID   string `json:"call_id"`
	From     string `json:"from"`
	GroupID  string `json:"group_id,omitempty"`
	ChatKey  string `json:"chat_key,omitempty"`
	CallType string `json:"call_type"`
	SDP      string `json:"sdp"`
}

// RelayedAnswer is an answer forwarded back across the call.
type RelayedAnswer struct {
	CallID  string `json:"call_id"`
	From    string `json:"from"`
	GroupID string `json:"group_id,omitempty"`
	SDP     string `json:"sdp"`
}

// RelayedCandidate is an ICE candidate forwarded across the call.
type RelayedCandidate struct {
	CallID    string          `json:"call_id"`
	From      string          `json:"from"`
	GroupID   string          `json:"group_id,omitempty"`
	Candidate json.RawMessage `json:"candidate"`
}

// CallEndedBroadcast announces call termination.
type CallEndedBroadcast struct {
	CallID          string `json:"call_id"`
	EndedBy         string `json:"ended_by,omitempty"`
	DurationSeconds *int64 `json:"duration_seconds,omitempty"`
}

// MemberEventPayload announces a group call join or leave.
type MemberEventPayload struct {
	CallID   string `json:"call_id"`
	GroupID  string `json:"group_id"`
	UserID   string `json:"user_id"`
	CallType string `json:"call_type,omitempty"`
}

// RosterPayload tells a joiner who is already in the call, so the client
// can open one peer link per existing participant (full mesh).
type RosterPayload struct {
	CallID       string   `json:"call_id"`
	GroupID      string   `json:"group_id"`
	Participants []string `json:"participants"`
}

// MessagesReadPayload announces a read receipt for a batch of messages.
type MessagesReadPayload struct {
	ChatKey    string   `json:"chat_key"`
	ReaderID   string   `json:"reader_id"`
	MessageIDs []string `json:"message_ids"`
}
