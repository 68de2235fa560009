package signaling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorlink/internal/models"
	"mentorlink/internal/ws"
)

func newDispatcherFixture(t *testing.T) (*Dispatcher, *fakeBroadcaster, *fakeCallLogStore, *fakeDirectory) {
	t.Helper()

	registry := NewRegistry(time.Minute)
	bcast := newFakeBroadcaster()
	store := newFakeCallLogStore()
	directory := newFakeDirectory()
	notifier := newFakeNotifier()
	sched := newFakeScheduler()
	lifecycle := NewCallLogLifecycle(store, bcast)

	directory.addRelationship(&models.Relationship{
		ID:             primitive.NewObjectID(),
		ParticipantIDs: []string{"alice", "bob"},
		Type:           models.RelationshipPeer,
		Status:         "accepted",
	})
	directory.groups["g1"] = []string{"alice", "bob"}

	direct := NewDirectCallCoordinator(registry, bcast, directory, lifecycle, notifier, sched, 30*time.Second)
	group := NewGroupCallCoordinator(registry, bcast, directory, lifecycle, notifier, sched, 30*time.Second)
	tracker := NewActiveChatTracker()
	router := NewMessageRouter(newFakeMessageStore(), directory, notifier, bcast, tracker)

	return NewDispatcher(direct, group, router, bcast, tracker), bcast, store, directory
}

func TestDispatcher_RoutesDirectOffer(t *testing.T) {
	req := require.New(t)
	d, bcast, _, _ := newDispatcherFixture(t)

	payload, _ := json.Marshal(OfferPayload{TargetID: "bob", CallType: "video", SDP: "sdp"})
	d.HandleEvent("alice", ws.EventOffer, payload)

	req.Len(bcast.userEvents(ws.EventCallCreated), 1)
	req.Empty(bcast.userEvents(ws.EventError))
}

func TestDispatcher_RoutesGroupJoinAndLeave(t *testing.T) {
	req := require.New(t)
	d, bcast, store, _ := newDispatcherFixture(t)

	payload, _ := json.Marshal(JoinGroupCallPayload{GroupID: "g1", CallType: "audio"})
	d.HandleEvent("alice", ws.EventJoinGroupCall, payload)

	rosters := bcast.userEvents(ws.EventRoster)
	req.Len(rosters, 1)
	callID := rosters[0].Payload.(RosterPayload).CallID

	// call-ended with group_id and no terminate flag is a member leave.
	endPayload, _ := json.Marshal(CallEndedPayload{CallID: callID, GroupID: "g1"})
	d.HandleEvent("alice", ws.EventCallEnded, endPayload)

	req.Equal(models.CallStatusCompleted, store.get(callID).Status)
	req.Empty(bcast.userEvents(ws.EventError))
}

func TestDispatcher_ErrorsGoBackToSender(t *testing.T) {
	req := require.New(t)
	d, bcast, _, _ := newDispatcherFixture(t)

	// No relationship with the target.
	payload, _ := json.Marshal(OfferPayload{TargetID: "mallory", CallType: "video"})
	d.HandleEvent("alice", ws.EventOffer, payload)

	errs := bcast.userEvents(ws.EventError)
	req.Len(errs, 1)
	req.Equal("alice", errs[0].UserID)
	req.Equal("invalid_recipient", errs[0].Payload.(ws.ErrorPayload).Code)
}

func TestDispatcher_MalformedPayload(t *testing.T) {
	req := require.New(t)
	d, bcast, _, _ := newDispatcherFixture(t)

	d.HandleEvent("alice", ws.EventOffer, json.RawMessage(`{not json`))

	errs := bcast.userEvents(ws.EventError)
	req.Len(errs, 1)
	req.Equal("internal_error", errs[0].Payload.(ws.ErrorPayload).Code)
}

func TestDispatcher_UnsupportedEvent(t *testing.T) {
	req := require.New(t)
	d, bcast, _, _ := newDispatcherFixture(t)

	d.HandleEvent("alice", ws.Event("bogus"), json.RawMessage(`{}`))
	req.Len(bcast.userEvents(ws.EventError), 1)
}

func TestDispatcher_DisconnectClearsTracker(t *testing.T) {
	req := require.New(t)
	d, _, _, _ := newDispatcherFixture(t)

	payload, _ := json.Marshal(ChatFocusPayload{ChatKey: "group_g1"})
	d.HandleEvent("alice", ws.EventChatOpened, payload)
	req.Equal("group_g1", d.tracker.Get("alice"))

	d.HandleDisconnect("alice", []string{"group_g1"})
	req.Equal("", d.tracker.Get("alice"))
}
