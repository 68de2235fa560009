package signaling

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"mentorlink/internal/models"
	"mentorlink/internal/ws"
	"mentorlink/pkg/logger"
)

// DirectCallCoordinator relays offer/answer/ICE for 1:1 calls and drives
// their lifecycle: ringing, answered, completed, or missed on timeout.
type DirectCallCoordinator struct {
	registry    *Registry
	broadcaster Broadcaster
	directory   Directory
	logs        *CallLogLifecycle
	notifier    Notifier
	scheduler   Scheduler
	ringTimeout time.Duration
	now         func() time.Time
}

// NewDirectCallCoordinator creates a direct call coordinator.
func NewDirectCallCoordinator(
	registry *Registry,
	broadcaster Broadcaster,
	directory Directory,
	logs *CallLogLifecycle,
	notifier Notifier,
	scheduler Scheduler,
	ringTimeout time.Duration,
) *DirectCallCoordinator {
	return &DirectCallCoordinator{
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

// HandleOffer validates the relationship, creates the call session and log
// record, relays the offer into the room, and acknowledges the initiator
// with the generated call ID.
func (d *DirectCallCoordinator) HandleOffer(ctx context.Context, initiatorID string, p OfferPayload) error {
	if p.TargetID == "" {
		return fmt.Errorf("%w: target_id", ErrMissingField)
	}

	rel, err := d.directory.ResolveRelationship(ctx, initiatorID, p.TargetID)
	if err != nil {
		return fmt.Errorf("failed to resolve relationship: %w", err)
	}
	if rel == nil {
		return ErrInvalidRecipient
	}

	convType := rel.ConversationType()
	chatKey := p.ChatKey
	if chatKey == "" {
		chatKey = ChatKey(convType, rel.ID.Hex())
	}

	now := d.now()
	callID := DirectCallID(chatKey, now)
	room := DirectRoom(initiatorID, p.TargetID)

	session := &CallSession{
		CallID:           callID,
		InitiatorID:      initiatorID,
		RecipientIDs:     []string{p.TargetID},
		CallType:         models.CallType(p.CallType),
		ConversationType: convType,
		ChatKey:          chatKey,
		RoomName:         room,
		StartedAt:        now,
		State:            StateRinging,
	}

	// Session and timer are registered before the first I/O so a racing
	// answer always finds the session.
	if err := d.registry.Insert(session); err != nil {
		return err
	}
	session.SetTimer(d.scheduler.Schedule(d.ringTimeout, func() {
		d.onRingTimeout(callID)
	}))

	record := &models.CallLog{
		CallID:           callID,
		ChatKey:          chatKey,
		CallType:         models.CallType(p.CallType),
		ConversationType: convType,
		SenderID:         initiatorID,
		RecipientIDs:     []string{p.TargetID},
		Status:           models.CallStatusOngoing,
		StartTime:        now,
	}

	if _, err := d.logs.Create(ctx, record); err != nil {
		// Log integrity over call availability: without a record the
		// call does not proceed.
		if s, ok := d.registry.Take(callID); ok {
			s.CancelTimer()
		}
		return err
	}

	relay := RelayedOffer{
		CallID:   callID,
		From:     initiatorID,
		ChatKey:  chatKey,
		CallType: p.CallType,
		SDP:      p.SDP,
	}

	d.broadcaster.JoinRoom(initiatorID, room)
	d.broadcaster.EmitToRoom(room, ws.EventOffer, relay, initiatorID)
	// The callee joins the room only on answer, so the first offer must
	// travel over their personal channel to carry the SDP.
	d.broadcaster.EmitToUser(p.TargetID, ws.EventOffer, relay)

	d.broadcaster.EmitToUser(initiatorID, ws.EventCallCreated, CallCreatedPayload{
		CallID:   callID,
		ChatKey:  chatKey,
		RoomName: room,
		CallType: p.CallType,
	})

	if _, err := d.notifier.Send(ctx, models.NotificationInput{
		RecipientID: p.TargetID,
		SenderID:    initiatorID,
		Kind:        models.NotificationIncomingCall,
		RelatedID:   rel.ID.Hex(),
		ContextType: convType,
		CallID:      callID,
		CallType:    models.CallType(p.CallType),
	}); err != nil {
		logger.LogError(err, "incoming call notification failed", map[string]interface{}{
			"call_id":   callID,
			"recipient": p.TargetID,
		})
	}

	logger.LogCallEvent("offer", callID, initiatorID, map[string]interface{}{
		"chat_key":  chatKey,
		"call_type": p.CallType,
		"target":    p.TargetID,
	})

	return nil
}

// HandleAnswer relays the answer into the room and cancels the ring timer.
// An answer for an unknown or already-terminated call is silently ignored.
func (d *DirectCallCoordinator) HandleAnswer(ctx context.Context, answererID string, p AnswerPayload) error {
	session, ok := d.lookup(p.CallID, p.ChatKey, p.InitiatorID)
	if !ok {
		return nil
	}

	session.MarkAnswered()

	d.broadcaster.JoinRoom(answererID, session.RoomName)
	d.broadcaster.EmitToRoom(session.RoomName, ws.EventAnswer, RelayedAnswer{
		CallID: session.CallID,
		From:   answererID,
		SDP:    p.SDP,
	}, answererID)

	logger.LogCallEvent("answer", session.CallID, answererID, nil)
	return nil
}

// HandleICECandidate relays a candidate with no state mutation. Candidates
// for unknown or terminated sessions are dropped.
func (d *DirectCallCoordinator) HandleICECandidate(ctx context.Context, senderID string, p ICECandidatePayload) error {
	session, ok := d.registry.Get(p.CallID)
	if !ok {
		return nil
	}

	d.broadcaster.EmitToRoom(session.RoomName, ws.EventICECandidate, RelayedCandidate{
		CallID:    session.CallID,
		From:      senderID,
		Candidate: p.Candidate,
	}, senderID)

	return nil
}

// HandleCallEnded finalizes the call log, broadcasts the end event, and
// removes the session. Duplicate deliveries for the same call ID are no-ops.
func (d *DirectCallCoordinator) HandleCallEnded(ctx context.Context, senderID string, p CallEndedPayload) error {
	if p.CallID == "" {
		return fmt.Errorf("%w: call_id", ErrMissingField)
	}

	if !d.registry.MarkEnded(p.CallID) {
		return nil
	}

	session, _ := d.registry.Take(p.CallID)
	if session != nil {
		session.CancelTimer()
	}

	record, _, err := d.logs.Complete(ctx, p.CallID, d.now())
	if err != nil {
		return err
	}

	room := ""
	if session != nil {
		room = session.RoomName
	} else if len(record.RecipientIDs) > 0 {
		room = DirectRoom(record.SenderID, record.RecipientIDs[0])
	}

	payload := CallEndedBroadcast{
		CallID:          p.CallID,
		EndedBy:         senderID,
		DurationSeconds: record.DurationSeconds,
	}

	if room != "" {
		d.broadcaster.EmitToRoom(room, ws.EventCallEnded, payload, senderID)
	}
	d.broadcaster.EmitToUser(senderID, ws.EventCallEnded, payload)

	// Pair rooms exist only for the duration of one call. Evicting both
	// parties here keeps presence meaningful for the next ring timeout.
	if room != "" {
		parties := []string{record.SenderID}
		parties = append(parties, record.RecipientIDs...)
		if session != nil {
			parties = append([]string{session.InitiatorID}, session.RecipientIDs...)
		}
		for _, userID := range parties {
			d.broadcaster.LeaveRoom(userID, room)
		}
	}

	logger.LogCallEvent("call_ended", p.CallID, senderID, nil)
	return nil
}

// onRingTimeout fires when a call stays unanswered. Membership is re-read
// from the broadcaster at fire time; the session is consumed exactly once.
func (d *DirectCallCoordinator) onRingTimeout(callID string) {
	session, ok := d.registry.Take(callID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	present := d.broadcaster.ConnectedUserIDs(session.RoomName)
	missed := lo.Without(session.RecipientIDs, present...)
	if len(missed) == 0 {
		return
	}

	// The call is over; tear the pair room down so lingering membership
	// cannot shadow the next call between the same two users.
	d.broadcaster.LeaveRoom(session.InitiatorID, session.RoomName)
	for _, userID := range session.RecipientIDs {
		d.broadcaster.LeaveRoom(userID, session.RoomName)
	}

	if _, _, err := d.logs.Missed(ctx, callID); err != nil {
		logger.LogError(err, "failed to mark call missed", map[string]interface{}{
			"call_id": callID,
		})
		return
	}

	for _, userID := range missed {
		text := fmt.Sprintf("Missed %s call", session.CallType)
		if _, err := d.notifier.MarkMissed(ctx, userID, callID, text); err != nil {
			logger.LogError(err, "missed call notification failed", map[string]interface{}{
				"call_id":   callID,
				"recipient": userID,
			})
		}
	}

	logger.LogCallEvent("call_missed", callID, session.InitiatorID, map[string]interface{}{
		"missed": missed,
	})
}

// lookup matches a session by call ID when the client echoes one, falling
// back to chat key plus initiator for older clients.
func (d *DirectCallCoordinator) lookup(callID, chatKey, initiatorID string) (*CallSession, bool) {
	if callID != "" {
		return d.registry.Get(callID)
	}
	if chatKey != "" && initiatorID != "" {
		return d.registry.FindDirect(chatKey, initiatorID)
	}
	return nil, false
}
