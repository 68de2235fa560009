package signaling

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorlink/internal/models"
	"mentorlink/internal/ws"
)

// hubFixture drives the direct coordinator against a real hub so room
// membership and personal channel delivery behave exactly as in production.
type hubFixture struct {
	coord    *DirectCallCoordinator
	hub      *ws.Hub
	store    *fakeCallLogStore
	notifier *fakeNotifier
	sched    *fakeScheduler
	rel      *models.Relationship
	clients  map[string]*ws.Client
}

func newHubFixture(t *testing.T, userIDs ...string) *hubFixture {
	t.Helper()

	f := &hubFixture{
		hub:      ws.NewHub(),
		store:    newFakeCallLogStore(),
		notifier: newFakeNotifier(),
		sched:    newFakeScheduler(),
		clients:  make(map[string]*ws.Client),
	}
	go f.hub.Run()

	f.rel = &models.Relationship{
		ID:             primitive.NewObjectID(),
		ParticipantIDs: []string{"alice", "bob"},
		Type:           models.RelationshipPeer,
		Status:         "accepted",
	}
	directory := newFakeDirectory()
	directory.addRelationship(f.rel)

	f.coord = NewDirectCallCoordinator(
		NewRegistry(time.Minute), f.hub, directory,
		NewCallLogLifecycle(f.store, f.hub),
		f.notifier, f.sched, 30*time.Second,
	)

	for _, userID := range userIDs {
		client := ws.NewClient(nil, f.hub, userID)
		f.hub.Register <- client
		f.clients[userID] = client

		// The welcome event confirms the hub processed the registration.
		env := f.receive(t, userID)
		require.Equal(t, ws.EventConnected, env.Event)
	}
	return f
}

func (f *hubFixture) receive(t *testing.T, userID string) *ws.Envelope {
	t.Helper()

	select {
	case data := <-f.clients[userID].Send:
		env, err := ws.ParseEnvelope(data)
		require.NoError(t, err)
		return env
	case <-time.After(time.Second):
		t.Fatalf("no message delivered to %s", userID)
		return nil
	}
}

// drain empties a client's send buffer and returns the queued envelopes.
func (f *hubFixture) drain(userID string) []*ws.Envelope {
	var out []*ws.Envelope
	for {
		select {
		case data, ok := <-f.clients[userID].Send:
			if !ok {
				return out
			}
			if env, err := ws.ParseEnvelope(data); err == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

func TestDirectOffer_SDPReachesCalleeBeforeAnswer(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, "alice", "bob")

	err := f.coord.HandleOffer(context.Background(), "alice", OfferPayload{
		TargetID: "bob",
		CallType: "video",
		SDP:      "offer-sdp",
	})
	req.NoError(err)

	// Bob has not joined the pair room yet, so the SDP must arrive over
	// his personal channel.
	var offers []RelayedOffer
	for _, env := range f.drain("bob") {
		if env.Event != ws.EventOffer {
			continue
		}
		var relay RelayedOffer
		req.NoError(json.Unmarshal(env.Payload, &relay))
		offers = append(offers, relay)
	}

	req.Len(offers, 1)
	req.Equal("alice", offers[0].From)
	req.Equal("offer-sdp", offers[0].SDP)
}

func TestDirectCall_MissedDetectionAfterEarlierCall(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, "alice", "bob")
	ctx := context.Background()

	chatKey := ChatKey(models.ConversationDirectPeer, f.rel.ID.Hex())
	room := DirectRoom("alice", "bob")

	firstStart := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.coord.now = func() time.Time { return firstStart }

	// First call: offered, answered, ended.
	firstID := DirectCallID(chatKey, firstStart)
	req.NoError(f.coord.HandleOffer(ctx, "alice", OfferPayload{
		TargetID: "bob",
		CallType: "video",
		SDP:      "sdp-1",
	}))
	req.NoError(f.coord.HandleAnswer(ctx, "bob", AnswerPayload{CallID: firstID, SDP: "sdp-a"}))
	req.NoError(f.coord.HandleCallEnded(ctx, "alice", CallEndedPayload{CallID: firstID}))

	// Ending the call empties the pair room for both parties.
	req.Empty(f.hub.ConnectedUserIDs(room))

	// Second call rings unanswered until the timer fires.
	secondStart := firstStart.Add(5 * time.Minute)
	f.coord.now = func() time.Time { return secondStart }

	secondID := DirectCallID(chatKey, secondStart)
	req.NoError(f.coord.HandleOffer(ctx, "alice", OfferPayload{
		TargetID: "bob",
		CallType: "video",
		SDP:      "sdp-2",
	}))
	f.sched.last().Fire()

	req.Equal(models.CallStatusMissed, f.store.get(secondID).Status)
	req.Equal([]string{"bob|" + secondID}, f.notifier.missed)
	req.Empty(f.hub.ConnectedUserIDs(room))
}
