package signaling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"mentorlink/internal/models"
	"mentorlink/internal/ws"
	"mentorlink/pkg/logger"
)

// GroupCallCoordinator manages multi-party calls over a full-mesh peer
// topology: join/leave bookkeeping, pairwise signal routing, last-leaver
// finalization, and missed-call detection against the initial roster.
type GroupCallCoordinator struct {
	registry    *Registry
	broadcaster Broadcaster
	directory   Directory
	logs        *CallLogLifecycle
	notifier    Notifier
	scheduler   Scheduler
	ringTimeout time.Duration
	now         func() time.Time
}

// NewGroupCallCoordinator creates a group call coordinator.
func NewGroupCallCoordinator(
	registry *Registry,
	broadcaster Broadcaster,
	directory Directory,
	logs *CallLogLifecycle,
	notifier Notifier,
	scheduler Scheduler,
	ringTimeout time.Duration,
) *GroupCallCoordinator {
	return &GroupCallCoordinator{
		registry:    registry,
		broadcaster: broadcaster,
		directory:   directory,
		logs:        logs,
		notifier:    notifier,
		scheduler:   scheduler,
		ringTimeout: ringTimeout,
		now:         time.Now,
	}
}

// HandleJoin adds a member to a group call, creating the call on first join:
// the log record is persisted with the current roster as recipients and a
// single missed-call timer is armed. The joiner receives the existing
// participant roster so the client can open one peer link per participant.
func (g *GroupCallCoordinator) HandleJoin(ctx context.Context, userID string, p JoinGroupCallPayload) error {
	if p.GroupID == "" {
		return fmt.Errorf("%w: group_id", ErrMissingField)
	}

	members, err := g.directory.GroupMembers(ctx, p.GroupID)
	if err != nil {
		return fmt.Errorf("failed to load group members: %w", err)
	}
	if !lo.Contains(members, userID) {
		return ErrNotAMember
	}

	callID := p.CallID
	if callID == "" {
		callID = fmt.Sprintf("group_%s_%s", p.GroupID, uuid.NewString())
	}

	room := GroupRoom(p.GroupID)
	now := g.now()

	session, _ := g.registry.GetOrCreate(callID, func() *CallSession {
		return &CallSession{
			CallID:           callID,
			InitiatorID:      userID,
			RecipientIDs:     lo.Without(members, userID),
			CallType:         models.CallType(p.CallType),
			ConversationType: models.ConversationGroup,
			ChatKey:          ChatKey(models.ConversationGroup, p.GroupID),
			RoomName:         room,
			GroupID:          p.GroupID,
			StartedAt:        now,
		}
	})

	first, others := session.AddJoined(userID)
	g.broadcaster.JoinRoom(userID, room)

	if first {
		record := &models.CallLog{
			CallID:           callID,
			ChatKey:          session.ChatKey,
			CallType:         models.CallType(p.CallType),
			ConversationType: models.ConversationGroup,
			SenderID:         userID,
			RecipientIDs:     session.RecipientIDs,
			GroupID:          p.GroupID,
			Status:           models.CallStatusOngoing,
			StartTime:        now,
		}

		if _, err := g.logs.Create(ctx, record); err != nil {
			g.registry.Take(callID)
			return err
		}

		session.SetTimer(g.scheduler.Schedule(g.ringTimeout, func() {
			g.onMissedTimeout(callID)
		}))
	}

	g.broadcaster.EmitToUser(userID, ws.EventRoster, RosterPayload{
		CallID:       callID,
		GroupID:      p.GroupID,
		Participants: others,
	})

	g.broadcaster.EmitToRoom(room, ws.EventMemberJoined, MemberEventPayload{
		CallID:   callID,
		GroupID:  p.GroupID,
		UserID:   userID,
		CallType: p.CallType,
	}, userID)

	if first {
		for _, memberID := range session.RecipientIDs {
			if _, err := g.notifier.Send(ctx, models.NotificationInput{
				RecipientID: memberID,
				SenderID:    userID,
				Kind:        models.NotificationIncomingCall,
				RelatedID:   p.GroupID,
				ContextType: models.ConversationGroup,
				CallID:      callID,
				CallType:    models.CallType(p.CallType),
			}); err != nil {
				logger.LogError(err, "incoming group call notification failed", map[string]interface{}{
					"call_id":   callID,
					"recipient": memberID,
				})
			}
		}
	}

	logger.LogCallEvent("group_join", callID, userID, map[string]interface{}{
		"group_id":   p.GroupID,
		"first_join": first,
	})

	return nil
}

// HandleOffer routes a pairwise offer to the recipient's personal channel.
// Each pair inside a group call negotiates its own peer connection.
func (g *GroupCallCoordinator) HandleOffer(ctx context.Context, senderID string, p OfferPayload) error {
	if err := g.validatePair(ctx, p.GroupID, senderID, p.RecipientID); err != nil {
		return err
	}

	g.broadcaster.EmitToUser(p.RecipientID, ws.EventOffer, RelayedOffer{
		CallID:   p.CallID,
		From:     senderID,
		GroupID:  p.GroupID,
		CallType: p.CallType,
		SDP:      p.SDP,
	})
	return nil
}

// HandleAnswer routes a pairwise answer to the recipient's personal channel.
func (g *GroupCallCoordinator) HandleAnswer(ctx context.Context, senderID string, p AnswerPayload) error {
	if err := g.validatePair(ctx, p.GroupID, senderID, p.RecipientID); err != nil {
		return err
	}

	g.broadcaster.EmitToUser(p.RecipientID, ws.EventAnswer, RelayedAnswer{
		CallID:  p.CallID,
		From:    senderID,
		GroupID: p.GroupID,
		SDP:     p.SDP,
	})
	return nil
}

// HandleICECandidate routes a pairwise candidate to the recipient's
// personal channel.
func (g *GroupCallCoordinator) HandleICECandidate(ctx context.Context, senderID string, p ICECandidatePayload) error {
	if err := g.validatePair(ctx, p.GroupID, senderID, p.RecipientID); err != nil {
		return err
	}

	g.broadcaster.EmitToUser(p.RecipientID, ws.EventICECandidate, RelayedCandidate{
		CallID:    p.CallID,
		From:      senderID,
		GroupID:   p.GroupID,
		Candidate: p.Candidate,
	})
	return nil
}

// HandleLeave removes one member from the call and finalizes the log when
// the joined set returns to empty, regardless of which member leaves last.
func (g *GroupCallCoordinator) HandleLeave(ctx context.Context, userID, callID string) error {
	session, ok := g.registry.Get(callID)
	if !ok {
		return nil
	}

	present, remaining := session.RemoveJoined(userID)
	if !present {
		return nil
	}

	g.broadcaster.EmitToRoom(session.RoomName, ws.EventMemberLeft, MemberEventPayload{
		CallID:  callID,
		GroupID: session.GroupID,
		UserID:  userID,
	}, userID)

	logger.LogCallEvent("group_leave", callID, userID, map[string]interface{}{
		"remaining": remaining,
	})

	if remaining == 0 {
		return g.finalize(ctx, callID, userID)
	}
	return nil
}

// HandleEndCall is the explicit full-termination path. It shares the ended
// dedupe set with member leaves, so a leave racing a terminate still yields
// exactly one log update.
func (g *GroupCallCoordinator) HandleEndCall(ctx context.Context, userID, callID string) error {
	if callID == "" {
		return fmt.Errorf("%w: call_id", ErrMissingField)
	}
	return g.finalize(ctx, callID, userID)
}

// HandleDisconnect reconciles an abrupt transport loss: for every group
// room the connection belonged to, perform the identical bookkeeping as a
// voluntary leave.
func (g *GroupCallCoordinator) HandleDisconnect(ctx context.Context, userID string, rooms []string) {
	for _, room := range rooms {
		if !IsGroupRoom(room) {
			continue
		}
		for _, session := range g.registry.SessionsForRoom(room) {
			if err := g.HandleLeave(ctx, userID, session.CallID); err != nil {
				logger.LogError(err, "disconnect reconciliation failed", map[string]interface{}{
					"call_id": session.CallID,
					"user_id": userID,
				})
			}
		}
	}
}

func (g *GroupCallCoordinator) finalize(ctx context.Context, callID, endedBy string) error {
	if !g.registry.MarkEnded(callID) {
		g.registry.Remove(callID)
		return nil
	}

	session, _ := g.registry.Take(callID)
	if session != nil {
		session.CancelTimer()
	}

	record, _, err := g.logs.Complete(ctx, callID, g.now())
	if err != nil {
		return err
	}

	room := ""
	if session != nil {
		room = session.RoomName
	} else if record.GroupID != "" {
		room = GroupRoom(record.GroupID)
	}

	if room != "" {
		g.broadcaster.EmitToRoom(room, ws.EventCallEnded, CallEndedBroadcast{
			CallID:          callID,
			EndedBy:         endedBy,
			DurationSeconds: record.DurationSeconds,
		}, "")
	}

	logger.LogCallEvent("group_call_completed", callID, endedBy, map[string]interface{}{
		"duration_seconds": record.DurationSeconds,
	})
	return nil
}

// onMissedTimeout fires once per call, 30 seconds after the first join.
// The roster is the member list captured when the log was created; members
// invited later are not re-armed. Live state is re-read from the registry
// at fire time.
func (g *GroupCallCoordinator) onMissedTimeout(callID string) {
	session, ok := g.registry.Get(callID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	invited := append([]string{session.InitiatorID}, session.RecipientIDs...)
	missed := lo.Without(invited, session.EverJoinedSnapshot()...)

	for _, userID := range missed {
		text := fmt.Sprintf("Missed group %s call", session.CallType)
		if _, err := g.notifier.MarkMissed(ctx, userID, callID, text); err != nil {
			logger.LogError(err, "missed group call notification failed", map[string]interface{}{
				"call_id":   callID,
				"recipient": userID,
			})
		}
	}

	if len(missed) > 0 {
		logger.LogCallEvent("group_call_missed", callID, session.InitiatorID, map[string]interface{}{
			"missed": missed,
		})
	}
}

func (g *GroupCallCoordinator) validatePair(ctx context.Context, groupID, senderID, recipientID string) error {
	if groupID == "" {
		return fmt.Errorf("%w: group_id", ErrMissingField)
	}
	if recipientID == "" {
		return fmt.Errorf("%w: recipient_id", ErrMissingField)
	}

	members, err := g.directory.GroupMembers(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load group members: %w", err)
	}
	if !lo.Contains(members, senderID) {
		return ErrNotAMember
	}
	if !lo.Contains(members, recipientID) {
		return ErrInvalidRecipient
	}
	return nil
}
