package signaling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mentorlink/internal/models"
	"mentorlink/internal/ws"
)

func TestLifecycleCreate_FansOutToParticipants(t *testing.T) {
	req := require.New(t)
	store := newFakeCallLogStore()
	bcast := newFakeBroadcaster()
	l := NewCallLogLifecycle(store, bcast)

	_, err := l.Create(context.Background(), &models.CallLog{
		CallID:       "c1",
		SenderID:     "alice",
		RecipientIDs: []string{"bob", "carol"},
		Status:       models.CallStatusOngoing,
		StartTime:    time.Now(),
	})
	req.NoError(err)

	created := bcast.userEvents(ws.EventCallLogCreated)
	req.Len(created, 3)
}

func TestLifecycleComplete_ComputesDuration(t *testing.T) {
	req := require.New(t)
	store := newFakeCallLogStore()
	bcast := newFakeBroadcaster()
	l := NewCallLogLifecycle(store, bcast)

	start := time.Now().Add(-90 * time.Second)
	_, err := l.Create(context.Background(), &models.CallLog{
		CallID:       "c1",
		SenderID:     "alice",
		RecipientIDs: []string{"bob"},
		Status:       models.CallStatusOngoing,
		StartTime:    start,
	})
	req.NoError(err)

	record, changed, err := l.Complete(context.Background(), "c1", start.Add(90*time.Second))
	req.NoError(err)
	req.True(changed)
	req.Equal(models.CallStatusCompleted, record.Status)
	req.NotNil(record.DurationSeconds)
	req.Equal(int64(90), *record.DurationSeconds)

	req.Len(bcast.userEvents(ws.EventCallLogUpdated), 2)
}

func TestLifecycleUpdate_TerminalIsMonotonic(t *testing.T) {
	req := require.New(t)
	store := newFakeCallLogStore()
	bcast := newFakeBroadcaster()
	l := NewCallLogLifecycle(store, bcast)

	_, err := l.Create(context.Background(), &models.CallLog{
		CallID:       "c1",
		SenderID:     "alice",
		RecipientIDs: []string{"bob"},
		Status:       models.CallStatusOngoing,
		StartTime:    time.Now(),
	})
	req.NoError(err)

	_, _, err = l.Missed(context.Background(), "c1")
	req.NoError(err)

	// A completion arriving after missed changes nothing.
	record, changed, err := l.Complete(context.Background(), "c1", time.Now())
	req.NoError(err)
	req.False(changed)
	req.Equal(models.CallStatusMissed, record.Status)

	// Only the first terminal transition broadcast an update.
	req.Len(bcast.userEvents(ws.EventCallLogUpdated), 1)
}

func TestLifecycleMissed_LeavesEndTimeUnset(t *testing.T) {
	req := require.New(t)
	store := newFakeCallLogStore()
	l := NewCallLogLifecycle(store, newFakeBroadcaster())

	_, err := l.Create(context.Background(), &models.CallLog{
		CallID:       "c1",
		SenderID:     "alice",
		RecipientIDs: []string{"bob"},
		Status:       models.CallStatusOngoing,
		StartTime:    time.Now(),
	})
	req.NoError(err)

	record, changed, err := l.Missed(context.Background(), "c1")
	req.NoError(err)
	req.True(changed)
	req.Equal(models.CallStatusMissed, record.Status)
	req.Nil(record.EndTime)
	req.Nil(record.DurationSeconds)
}

func TestLifecycleUpdate_UnknownCall(t *testing.T) {
	req := require.New(t)
	l := NewCallLogLifecycle(newFakeCallLogStore(), newFakeBroadcaster())

	_, _, err := l.Complete(context.Background(), "nope", time.Now())
	req.ErrorIs(err, ErrCallNotFound)
}
