package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mentorlink/internal/ws"
	"mentorlink/pkg/logger"
)

const handlerTimeout = 10 * time.Second

// Dispatcher decodes inbound websocket envelopes and routes them to the
// direct coordinator, group coordinator, or message router. Signaling
// events carrying a group_id take the group path; the rest are direct.
type Dispatcher struct {
	direct      *DirectCallCoordinator
	group       *GroupCallCoordinator
	router      *MessageRouter
	broadcaster Broadcaster
	tracker     *ActiveChatTracker
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(
	direct *DirectCallCoordinator,
	group *GroupCallCoordinator,
	router *MessageRouter,
	broadcaster Broadcaster,
	tracker *ActiveChatTracker,
) *Dispatcher {
	return &Dispatcher{
		direct:      direct,
		group:       group,
		router:      router,
		broadcaster: broadcaster,
		tracker:     tracker,
	}
}

// HandleEvent processes one inbound envelope from an authenticated
// connection. Handler errors are reported back on the sender's personal
// channel instead of tearing the connection down.
func (d *Dispatcher) HandleEvent(userID string, event ws.Event, payload json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	err := d.route(ctx, userID, event, payload)
	if err == nil {
		return
	}

	logger.WithError(err).WithField("event", string(event)).
		WithField("user_id", userID).Warn("event handling failed")

	d.broadcaster.EmitToUser(userID, ws.EventError, ws.ErrorPayload{
		Code:    errorCode(err),
		Message: err.Error(),
	})
}

func (d *Dispatcher) route(ctx context.Context, userID string, event ws.Event, payload json.RawMessage) error {
	switch event {
	case ws.EventOffer:
		var p OfferPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		if p.GroupID != "" {
			return d.group.HandleOffer(ctx, userID, p)
		}
		return d.direct.HandleOffer(ctx, userID, p)

	case ws.EventAnswer:
		var p AnswerPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		if p.GroupID != "" {
			return d.group.HandleAnswer(ctx, userID, p)
		}
		return d.direct.HandleAnswer(ctx, userID, p)

	case ws.EventICECandidate:
		var p ICECandidatePayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		if p.GroupID != "" {
			return d.group.HandleICECandidate(ctx, userID, p)
		}
		return d.direct.HandleICECandidate(ctx, userID, p)

	case ws.EventCallEnded:
		var p CallEndedPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		if p.GroupID != "" {
			if p.Terminate {
				return d.group.HandleEndCall(ctx, userID, p.CallID)
			}
			return d.group.HandleLeave(ctx, userID, p.CallID)
		}
		return d.direct.HandleCallEnded(ctx, userID, p)

	case ws.EventJoinGroupCall:
		var p JoinGroupCallPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		return d.group.HandleJoin(ctx, userID, p)

	case ws.EventChatMessage:
		var p ChatMessagePayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		_, err := d.router.Send(ctx, userID, p)
		return err

	case ws.EventMarkRead:
		var p MarkReadPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		return d.router.MarkRead(ctx, userID, p.ChatKey)

	case ws.EventChatOpened:
		var p ChatFocusPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		if p.ChatKey == "" {
			return fmt.Errorf("%w: chat_key", ErrMissingField)
		}
		d.router.OpenChat(userID, p.ChatKey)
		return d.router.MarkRead(ctx, userID, p.ChatKey)

	case ws.EventChatClosed:
		var p ChatFocusPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		d.router.CloseChat(userID, p.ChatKey)
		return nil

	default:
		return fmt.Errorf("unsupported event %q", event)
	}
}

// HandleDisconnect reconciles call state for a connection that dropped
// without leaving its calls, and clears active-chat tracking.
func (d *Dispatcher) HandleDisconnect(userID string, rooms []string) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	d.tracker.Clear(userID)
	d.group.HandleDisconnect(ctx, userID, rooms)
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: payload", ErrMissingField)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRecipient):
		return "invalid_recipient"
	case errors.Is(err, ErrNotAMember):
		return "not_a_member"
	case errors.Is(err, ErrCallNotFound):
		return "call_not_found"
	case errors.Is(err, ErrDuplicateCall):
		return "duplicate_call"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	default:
		return "internal_error"
	}
}
