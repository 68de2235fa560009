package signaling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mentorlink/internal/models"
	"mentorlink/internal/ws"
)

type groupFixture struct {
	coord     *GroupCallCoordinator
	registry  *Registry
	bcast     *fakeBroadcaster
	store     *fakeCallLogStore
	directory *fakeDirectory
	notifier  *fakeNotifier
	sched     *fakeScheduler
}

func newGroupFixture(t *testing.T) *groupFixture {
	t.Helper()

	f := &groupFixture{
		registry:  NewRegistry(time.Minute),
		bcast:     newFakeBroadcaster(),
		store:     newFakeCallLogStore(),
		directory: newFakeDirectory(),
		notifier:  newFakeNotifier(),
		sched:     newFakeScheduler(),
	}
	f.directory.groups["g1"] = []string{"alice", "bob", "carol"}

	f.coord = NewGroupCallCoordinator(
		f.registry, f.bcast, f.directory,
		NewCallLogLifecycle(f.store, f.bcast),
		f.notifier, f.sched, 30*time.Second,
	)
	return f
}

func (f *groupFixture) join(t *testing.T, userID, callID string) string {
	t.Helper()

	err := f.coord.HandleJoin(context.Background(), userID, JoinGroupCallPayload{
		GroupID:  "g1",
		CallType: "video",
		CallID:   callID,
	})
	require.NoError(t, err)

	sessions := f.registry.SessionsForRoom(GroupRoom("g1"))
	require.Len(t, sessions, 1)
	return sessions[0].CallID
}

func TestGroupJoin_FirstJoinCreatesCall(t *testing.T) {
	req := require.New(t)
	f := newGroupFixture(t)

	callID := f.join(t, "alice", "")

	record := f.store.get(callID)
	req.NotNil(record)
	req.Equal(models.CallStatusOngoing, record.Status)
	req.Equal("alice", record.SenderID)
	req.ElementsMatch([]string{"bob", "carol"}, record.RecipientIDs)
	req.Equal("g1", record.GroupID)

	// The rest of the group is notified once, at call creation.
	incoming := f.notifier.sentOfKind(models.NotificationIncomingCall)
	req.Len(incoming, 2)

	// Joiner gets an empty roster; the room sees member-joined.
	rosters := f.bcast.userEvents(ws.EventRoster)
	req.Len(rosters, 1)
	req.Empty(rosters[0].Payload.(RosterPayload).Participants)

	joins := f.bcast.roomEvents(ws.EventMemberJoined)
	req.Len(joins, 1)
	req.Equal("alice", joins[0].Exclude)

	req.Equal(30*time.Second, f.sched.last().delay)
}

func TestGroupJoin_SecondJoinGetsRoster(t *testing.T) {
	req := require.New(t)
	f := newGroupFixture(t)

	callID := f.join(t, "alice", "")
	f.join(t, "bob", callID)

	// Only the first join creates a log and notifies.
	req.Len(f.notifier.sentOfKind(models.NotificationIncomingCall), 2)

	rosters := f.bcast.userEvents(ws.EventRoster)
	req.Len(rosters, 2)
	req.Equal("bob", rosters[1].UserID)
	req.Equal([]string{"alice"}, rosters[1].Payload.(RosterPayload).Participants)
}

func TestGroupJoin_NotAMember(t *testing.T) {
	req := require.New(t)
	f := newGroupFixture(t)

	err := f.coord.HandleJoin(context.Background(), "mallory", JoinGroupCallPayload{
		GroupID:  "g1",
		CallType: "video",
	})
	req.ErrorIs(err, ErrNotAMember)
	req.Equal(0, f.registry.Len())
}

func TestGroupPairwiseSignals_RouteToRecipient(t *testing.T) {
	req := require.New(t)
	f := newGroupFixture(t)
	callID := f.join(t, "alice", "")
	f.join(t, "bob", callID)

	err := f.coord.HandleOffer(context.Background(), "bob", OfferPayload{
		GroupID:     "g1",
		RecipientID: "alice",
		CallID:      callID,
		CallType:    "video",
		SDP:         "pair-offer",
	})
	req.NoError(err)

	offers := f.bcast.userEvents(ws.EventOffer)
	req.Len(offers, 1)
	req.Equal("alice", offers[0].UserID)
	req.Equal("bob", offers[0].Payload.(RelayedOffer).From)

	err = f.coord.HandleAnswer(context.Background(), "alice", AnswerPayload{
		GroupID:     "g1",
		RecipientID: "bob",
		CallID:      callID,
		SDP:         "pair-answer",
	})
	req.NoError(err)
	req.Len(f.bcast.userEvents(ws.EventAnswer), 1)

	err = f.coord.HandleICECandidate(context.Background(), "alice", ICECandidatePayload{
		GroupID:     "g1",
		RecipientID: "bob",
		CallID:      callID,
		Candidate:   []byte(`{"candidate":"x"}`),
	})
	req.NoError(err)
	req.Len(f.bcast.userEvents(ws.EventICECandidate), 1)
}

func TestGroupPairwiseSignals_Validation(t *testing.T) {
	req := require.New(t)
	f := newGroupFixture(t)

	err := f.coord.HandleOffer(context.Background(), "mallory", OfferPayload{
		GroupID:     "g1",
		RecipientID: "alice",
	})
	req.ErrorIs(err, ErrNotAMember)

	err = f.coord.HandleOffer(context.Background(), "alice", OfferPayload{
		GroupID:     "g1",
		RecipientID: "mallory",
	})
	req.ErrorIs(err, ErrInvalidRecipient)
}

func TestGroupLeave_LastLeaverFinalizes(t *testing.T) {
	req := require.New(t)
	f := newGroupFixture(t)
	callID := f.join(t, "alice", "")
	f.join(t, "bob", callID)

	req.NoError(f.coord.HandleLeave(context.Background(), "alice", callID))
	req.Equal(models.CallStatusOngoing, f.store.get(callID).Status)

	lefts := f.bcast.roomEvents(ws.EventMemberLeft)
	req.Len(lefts, 1)

	req.NoError(f.coord.HandleLeave(context.Background(), "bob", callID))

	record := f.store.get(callID)
	req.Equal(models.CallStatusCompleted, record.Status)
	req.NotNil(record.DurationSeconds)
	req.Equal(0, f.registry.Len())

	ends := f.bcast.roomEvents(ws.EventCallEnded)
	req.Len(ends, 1)
	req.Equal("", ends[0].Exclude)
}

func TestGroupLeave_NotInCallIsNoOp(t *testing.T) {
	req := require.New(t)
	f := newGroupFixture(t)
	callID := f.join(t, "alice", "")

	req.NoError(f.coord.HandleLeave(context.Background(), "carol", callID))
	req.Empty(f.bcast.roomEvents(ws.EventMemberLeft))
	req.Equal(models.CallStatusOngoing, f.store.get(callID).Status)
}

func TestGroupEndCall_TerminatesForEveryone(t *testing.T) {
	req := require.New(t)
	f := newGroupFixture(t)
	callID := f.join(t, "alice", "")
	f.join(t, "bob", callID)

	req.NoError(f.coord.HandleEndCall(context.Background(), "alice", callID))

	req.Equal(models.CallStatusCompleted, f.store.get(callID).Status)
	req.Equal(0, f.registry.Len())

	// A leave arriving after termination does not update the log again.
	req.NoError(f.coord.HandleLeave(context.Background(), "bob", callID))
	req.Len(f.bcast.roomEvents(ws.EventCallEnded), 1)
}

func TestGroupDisconnect_SharesLeavePath(t *testing.T) {
	req := require.New(t)
	f := newGroupFixture(t)
	callID := f.join(t, "alice", "")
	f.join(t, "bob", callID)

	// Bob's transport drops while he is in the group room.
	f.coord.HandleDisconnect(context.Background(), "bob", []string{GroupRoom("g1"), "direct_alice_bob"})

	lefts := f.bcast.roomEvents(ws.EventMemberLeft)
	req.Len(lefts, 1)
	req.Equal(models.CallStatusOngoing, f.store.get(callID).Status)

	// Alice drops too: the call finalizes exactly as a voluntary leave.
	f.coord.HandleDisconnect(context.Background(), "alice", []string{GroupRoom("g1")})
	req.Equal(models.CallStatusCompleted, f.store.get(callID).Status)
}

func TestGroupMissedTimeout_NotifiesAbsentees(t *testing.T) {
	req := require.New(t)
	f := newGroupFixture(t)
	callID := f.join(t, "alice", "")
	f.join(t, "bob", callID)

	f.sched.last().Fire()

	// Carol never joined; the call itself stays ongoing.
	req.Equal([]string{"carol|" + callID}, f.notifier.missed)
	req.Equal(models.CallStatusOngoing, f.store.get(callID).Status)
	req.Equal(1, f.registry.Len())
}

func TestGroupMissedTimeout_CountsEverJoined(t *testing.T) {
	req := require.New(t)
	f := newGroupFixture(t)
	callID := f.join(t, "alice", "")
	f.join(t, "bob", callID)

	// Bob joined and left before the timeout; he still answered.
	req.NoError(f.coord.HandleLeave(context.Background(), "bob", callID))
	f.sched.last().Fire()

	req.Equal([]string{"carol|" + callID}, f.notifier.missed)
}

func TestGroupMissedTimeout_AfterEndIsNoOp(t *testing.T) {
	req := require.New(t)
	f := newGroupFixture(t)
	callID := f.join(t, "alice", "")

	req.NoError(f.coord.HandleEndCall(context.Background(), "alice", callID))
	f.sched.last().Fire()

	req.Empty(f.notifier.missed)
}
